// interpreter_io_test.go
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

import "testing"

func TestCPU_OutInRoundTripUnmappedPort(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	loadCode(t, cpu, mmu, []byte{
		0xB0, 0x42, // mov al,0x42
		0xE6, 0x80, // out 0x80,al
		0xB0, 0x00, // mov al,0
		0xE4, 0x80, // in al,0x80
	})
	for i := 0; i < 4; i++ {
		if _, err := cpu.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if cpu.Regs.AL() != 0x42 {
		t.Fatalf("AL = %#02x, want 0x42 round-tripped through the port latch", cpu.Regs.AL())
	}
}

func TestCPU_OutMasterEOIClearsPICRequest(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	// IF is set at boot; clear it so Step does not deliver (and so pop)
	// IRQ0 itself, leaving the EOI as the only thing that can clear it.
	cpu.Regs.SetFlag(FlagIF, false)
	cpu.Intr.PIC.Raise(0)
	loadCode(t, cpu, mmu, []byte{
		0xB0, 0x20, // mov al,0x20
		0xE6, 0x20, // out 0x20,al  (master EOI)
	})
	for i := 0; i < 2; i++ {
		if _, err := cpu.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, ok := cpu.Intr.PIC.GetPending(); ok {
		t.Fatal("IRQ0 should be cleared after master EOI")
	}
}

func TestCPU_InsbReadsPortIntoESDI(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	cpu.Ports.latch[0x300] = 0x55
	cpu.Regs.SetDX(0x300)
	cpu.Regs.SetDI(0x0100)
	loadCode(t, cpu, mmu, []byte{0x6C}) // insb
	if _, err := cpu.Step(); err != nil {
		t.Fatal(err)
	}
	v, err := cpu.Regs.ReadMem(cpu.Regs.ES(), 0x0100, 1)
	if err != nil {
		t.Fatal(err)
	}
	if byte(v) != 0x55 {
		t.Fatalf("ES:DI = %#02x, want 0x55", byte(v))
	}
	if cpu.Regs.DI() != 0x0101 {
		t.Fatalf("DI = %#04x, want 0x0101 after one byte", cpu.Regs.DI())
	}
}
