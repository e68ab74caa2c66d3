// emulator_test.go
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

import (
	"log"
	"testing"
)

func newTestEmulator(t *testing.T) (*Emulator, *fakeMMU) {
	t.Helper()
	mmu := newFakeMMU()
	return NewEmulator(mmu, log.New(nilWriter{}, "", 0)), mmu
}

func TestEmulator_StepBeforeActivateReportsNotActive(t *testing.T) {
	emu, _ := newTestEmulator(t)
	outcome, err := emu.Step()
	if err != nil {
		t.Fatal(err)
	}
	if outcome != StepNotActive {
		t.Fatalf("outcome = %v, want not-active", outcome)
	}
}

func TestEmulator_StepRunsOnceActivated(t *testing.T) {
	emu, mmu := newTestEmulator(t)
	base := emu.Registers().SegToLinear(emu.Registers().CS(), uint16(emu.Registers().IP))
	_ = mmu.Write(uint64(base), 0xF4, 1) // HLT
	emu.Activate()

	outcome, err := emu.Step()
	if err != nil {
		t.Fatal(err)
	}
	if outcome != StepHalt {
		t.Fatalf("outcome = %v, want halt", outcome)
	}
}

func TestEmulator_VirtualClockAdvancesPerStep(t *testing.T) {
	emu, mmu := newTestEmulator(t)
	base := emu.Registers().SegToLinear(emu.Registers().CS(), uint16(emu.Registers().IP))
	for i := 0; i < 4; i++ {
		_ = mmu.Write(uint64(base)+uint64(i), 0x90, 1) // NOP
	}
	emu.Activate()
	for i := 0; i < 3; i++ {
		if _, err := emu.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if got := emu.CPU().VirtualTimeNs(); got != 3*stepQuantumNs {
		t.Fatalf("virtual time = %d, want %d", got, 3*stepQuantumNs)
	}
}

func TestEmulator_ForceModeTransitionStaircase(t *testing.T) {
	emu, _ := newTestEmulator(t)
	if outcome := emu.ForceModeTransition(); outcome != StepModeSwitch {
		t.Fatalf("Real->Protected outcome = %v, want mode-switch", outcome)
	}
	if emu.CPU().Mode.Mode() != ModeProtected {
		t.Fatalf("mode = %v, want protected", emu.CPU().Mode.Mode())
	}
	if outcome := emu.ForceModeTransition(); outcome != StepModeSwitch {
		t.Fatalf("Protected->Long outcome = %v, want mode-switch", outcome)
	}
	if emu.CPU().Mode.Mode() != ModeLong {
		t.Fatalf("mode = %v, want long", emu.CPU().Mode.Mode())
	}
}

func TestEmulator_SwitchToLongModeDeactivatesAndReportsEntry(t *testing.T) {
	emu, _ := newTestEmulator(t)
	emu.Activate()
	addr := emu.SwitchToLongMode()
	if addr != LongModeEntryAddr {
		t.Fatalf("entry = %#x, want %#x", addr, LongModeEntryAddr)
	}
	if emu.IsActive() {
		t.Fatal("emulator should be inactive after SwitchToLongMode")
	}
	if emu.CPU().Mode.Mode() != ModeLong {
		t.Fatalf("mode = %v, want long", emu.CPU().Mode.Mode())
	}
}

func TestEmulator_PitDrivesIRQ0OverVirtualTime(t *testing.T) {
	emu, mmu := newTestEmulator(t)
	// IVT entry 0x08 -> a handler that just executes IRET immediately.
	_ = mmu.Write(0x08*4, 0x9000, 2)
	_ = mmu.Write(0x08*4+2, 0x0000, 2)
	handler := uint64(emu.Registers().SegToLinear(0, 0x9000))
	_ = mmu.Write(handler, 0xCF, 1) // IRET

	regs := emu.Registers()
	mainBase := uint64(regs.SegToLinear(regs.CS(), uint16(regs.IP)))
	for i := uint64(0); i < 4096; i++ {
		_ = mmu.Write(mainBase+i, 0x90, 1) // NOP, long enough to outlast the PIT period
	}

	emu.SetPitReload(1) // shortest possible period, fires almost immediately
	emu.SetPicMask(0, false)
	emu.Registers().SetFlag(FlagIF, true)
	emu.Activate()

	sawInjection := false
	for i := 0; i < 1000 && !sawInjection; i++ {
		if _, err := emu.Step(); err != nil {
			t.Fatal(err)
		}
		if emu.Registers().CS() == 0 && emu.Registers().IP == 0x9000 {
			sawInjection = true
		}
	}
	if !sawInjection {
		t.Fatal("expected the PIT to eventually inject IRQ0 and move IP")
	}
}
