// interpreter_string_test.go
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

import "testing"

func TestCPU_CmpswStopsOnRepeEarlyExit(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	cpu.Regs.SetDS(0)
	cpu.Regs.SetES(0)
	cpu.Regs.SetSI(0x2000)
	cpu.Regs.SetDI(0x3000)
	cpu.Regs.SetCX(5)

	_ = mmu.Write(0x2000, 0x1111, 2)
	_ = mmu.Write(0x3000, 0x1111, 2)
	_ = mmu.Write(0x2002, 0x2222, 2)
	_ = mmu.Write(0x3002, 0x9999, 2) // mismatch on second element

	loadCode(t, cpu, mmu, []byte{0xF3, 0xA7}) // repe cmpsw
	if _, err := cpu.Step(); err != nil {
		t.Fatal(err)
	}
	if cpu.Regs.CX() != 3 {
		t.Fatalf("CX = %d, want 3 (stopped after second compare)", cpu.Regs.CX())
	}
	if cpu.Regs.SI() != 0x2004 || cpu.Regs.DI() != 0x3004 {
		t.Fatalf("SI/DI = %#04x/%#04x, want 0x2004/0x3004", cpu.Regs.SI(), cpu.Regs.DI())
	}
}

func TestCPU_ScaswFindsMatch(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	cpu.Regs.SetES(0)
	cpu.Regs.SetDI(0x4000)
	cpu.Regs.SetCX(4)
	cpu.Regs.SetAX(0xBEEF)

	_ = mmu.Write(0x4000, 0x0000, 2)
	_ = mmu.Write(0x4002, 0xBEEF, 2)
	_ = mmu.Write(0x4004, 0x0000, 2)
	_ = mmu.Write(0x4006, 0x0000, 2)

	loadCode(t, cpu, mmu, []byte{0xF2, 0xAF}) // repne scasw
	if _, err := cpu.Step(); err != nil {
		t.Fatal(err)
	}
	if cpu.Regs.CX() != 2 {
		t.Fatalf("CX = %d, want 2 (stopped after matching second element)", cpu.Regs.CX())
	}
	if cpu.Regs.DI() != 0x4004 {
		t.Fatalf("DI = %#04x, want 0x4004", cpu.Regs.DI())
	}
	if !cpu.Regs.ZF() {
		t.Fatal("ZF should be set on match")
	}
}
