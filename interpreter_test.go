// interpreter_test.go
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

import (
	"log"
	"testing"
)

func newTestCPU(t *testing.T) (*CPU, *fakeMMU) {
	t.Helper()
	mmu := newFakeMMU()
	cpu := NewCPU(mmu, log.New(nilWriter{}, "", 0))
	return cpu, mmu
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }

func loadCode(t *testing.T, cpu *CPU, mmu *fakeMMU, code []byte) {
	t.Helper()
	base := cpu.Regs.SegToLinear(cpu.Regs.CS(), uint16(cpu.Regs.IP))
	for i, b := range code {
		if err := mmu.Write(uint64(base)+uint64(i), uint64(b), 1); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCPU_MovAddImmediate(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	// MOV AX, 0x0005 ; MOV CX, 0x0003 ; ADD AX, CX
	loadCode(t, cpu, mmu, []byte{
		0xB8, 0x05, 0x00, // mov ax,5
		0xB9, 0x03, 0x00, // mov cx,3
		0x01, 0xC8, // add ax,cx  (ADD Ev,Gv; modrm C8 = mod3 reg=CX(1) rm=AX(0))
	})
	for i := 0; i < 3; i++ {
		if _, err := cpu.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if cpu.Regs.AX() != 8 {
		t.Fatalf("AX = %d, want 8", cpu.Regs.AX())
	}
}

func TestCPU_PushPopRoundTrip(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	loadCode(t, cpu, mmu, []byte{
		0xB8, 0xEF, 0xBE, // mov ax, 0xBEEF
		0x50,             // push ax
		0xB8, 0x00, 0x00, // mov ax, 0
		0x58, // pop ax
	})
	for i := 0; i < 4; i++ {
		if _, err := cpu.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if cpu.Regs.AX() != 0xBEEF {
		t.Fatalf("AX after pop = %#04x, want 0xBEEF", cpu.Regs.AX())
	}
}

func TestCPU_Halt(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	loadCode(t, cpu, mmu, []byte{0xF4}) // hlt
	outcome, err := cpu.Step()
	if err != nil {
		t.Fatal(err)
	}
	if outcome != StepHalt {
		t.Fatalf("outcome = %v, want halt", outcome)
	}
	outcome, err = cpu.Step()
	if err != nil {
		t.Fatal(err)
	}
	if outcome != StepContinue {
		t.Fatalf("second Step after halt-no-interrupt should be continue, got %v", outcome)
	}
}

func TestCPU_JumpLoop(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	loadCode(t, cpu, mmu, []byte{
		0xB9, 0x03, 0x00, // mov cx,3
		0x40,       // inc ax (marker, executed 3 times)
		0xE2, 0xFD, // loop -3
	})
	for i := 0; i < 1+3*2; i++ {
		if _, err := cpu.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if cpu.Regs.AX() != 3 {
		t.Fatalf("AX = %d, want 3 after loop ran 3 times", cpu.Regs.AX())
	}
	if cpu.Regs.CX() != 0 {
		t.Fatalf("CX = %d, want 0", cpu.Regs.CX())
	}
}

func TestCPU_ModeSwitchDetectedOnce(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	cpu.Regs.SetEAX(CR0PE)
	loadCode(t, cpu, mmu, []byte{
		0x0F, 0x22, 0xC0, // mov cr0,eax
		0x90, // nop
	})
	outcome, err := cpu.Step()
	if err != nil {
		t.Fatal(err)
	}
	if outcome != StepModeSwitch {
		t.Fatalf("outcome = %v, want mode switch", outcome)
	}
	if cpu.Mode.Mode() != ModeProtected {
		t.Fatalf("mode = %v, want protected", cpu.Mode.Mode())
	}
	outcome, err = cpu.Step()
	if err != nil {
		t.Fatal(err)
	}
	if outcome != StepContinue {
		t.Fatalf("second Step outcome = %v, want continue (switch reported once)", outcome)
	}
}

func TestCPU_InterruptThroughIVT(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	// IVT entry 0x21: offset 0x1234, segment 0x0000
	_ = mmu.Write(0x21*4, 0x1234, 2)
	_ = mmu.Write(0x21*4+2, 0x0000, 2)

	if err := cpu.injectInterrupt(0x21, true); err != nil {
		t.Fatal(err)
	}
	if cpu.Regs.IP != 0x1234 {
		t.Fatalf("IP = %#04x, want 0x1234", cpu.Regs.IP)
	}
	if cpu.Regs.IF() {
		t.Fatal("IF should be cleared on interrupt entry")
	}
}

func TestCPU_BiosTeletypeWritesVGABuffer(t *testing.T) {
	cpu, _ := newTestCPU(t)
	cpu.Regs.SetAH(0x0E)
	cpu.Regs.SetAL('A')
	if err := cpu.injectInterrupt(0x10, true); err != nil {
		t.Fatal(err)
	}
	v, err := cpu.mmu.Read(0xB8000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if byte(v) != 'A' {
		t.Fatalf("VGA cell = %q, want 'A'", byte(v))
	}
}
