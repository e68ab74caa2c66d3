// emulator.go - top-level host-facing interpreter handle
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later
//
// Emulator is the narrow surface §6.2 exposes to the host: construction,
// activation, the per-instruction Step, the stuck-init-loop escape hatch,
// and the long-mode hand-off. It wraps a CPU the same way the teacher's
// machine-level types wrap a CPU_X86 behind a small host-facing API rather
// than exposing the interpreter's internals directly.

package vmcore

import "log"

// LongModeEntryAddr is the conventional long-mode entry linear address
// SwitchToLongMode reports, per spec §6.2.
const LongModeEntryAddr = 0x100000

// Emulator owns one real-mode CPU and reports whether the host currently
// has it active. A host runs a scheduling loop that calls Step while
// Emulator.IsActive is true, and stops driving it once SwitchToLongMode or
// a SwitchMode StepOutcome hands control elsewhere.
type Emulator struct {
	cpu    *CPU
	active bool
}

// NewEmulator constructs an Emulator over mmu. logger receives the same
// sparse warning diagnostics as the underlying CPU and Bios (nil selects
// log.Default()). The emulator starts inactive; call Activate before
// driving Step.
func NewEmulator(mmu MMU, logger *log.Logger) *Emulator {
	return &Emulator{cpu: NewCPU(mmu, logger)}
}

// Activate marks the emulator active, matching the teacher's construct-
// then-activate two-phase startup so a host can finish wiring devices
// (disk image, keyboard queue, PIT reload) before the first Step.
func (e *Emulator) Activate() { e.active = true }

// IsActive reports whether the host currently has this emulator driving
// execution.
func (e *Emulator) IsActive() bool { return e.active }

// CPU exposes the underlying interpreter for direct register/device access
// (§6.2's "mutable accessors").
func (e *Emulator) CPU() *CPU { return e.cpu }

// Registers returns the mutable register file accessor required by §6.2.
func (e *Emulator) Registers() *RegisterFile { return e.cpu.Regs }

// SetPitReload reprograms the PIT channel-0 reload value.
func (e *Emulator) SetPitReload(reload uint32) { e.cpu.Pit.SetReload(reload) }

// SetPicMask toggles delivery of IRQ irq on the legacy PIC.
func (e *Emulator) SetPicMask(irq int, masked bool) { e.cpu.Intr.PIC.SetMask(irq, masked) }

// SetApicEnabled toggles the local APIC's enable bit.
func (e *Emulator) SetApicEnabled(enabled bool) {
	if enabled {
		e.cpu.Intr.Local.Enable()
	} else {
		e.cpu.Intr.Local.Disable()
	}
}

// Step advances the emulator by exactly one Step call on its CPU. If the
// emulator is not active it returns NotActive without touching any state,
// per §4.7.1's StepOutcome enumeration.
func (e *Emulator) Step() (StepOutcome, error) {
	if !e.active {
		return StepNotActive, nil
	}
	return e.cpu.Step()
}

// ForceModeTransition is the bounded-stuck-init-loop escape hatch (§4.2,
// §6.2): it forces the mode manager one step along the Real->Protected->Long
// staircase and reports the resulting StepOutcome, StepModeSwitch if the
// mode actually advanced.
func (e *Emulator) ForceModeTransition() StepOutcome {
	before := e.cpu.Mode.Mode()
	e.cpu.Mode.ForceTransition(before + 1)
	if e.cpu.Mode.Mode() != before {
		return StepModeSwitch
	}
	return StepContinue
}

// SwitchToLongMode deactivates the real-mode interpreter and returns the
// long-mode entry linear address (LongModeEntryAddr, 0x100000 by
// convention) the host should hand control to next. If the mode manager
// has not yet progressed through Protected, it is forced through that
// intermediate step first, preserving the no-direct-Real->Long invariant
// (§3.2) even when invoked as a hard escape hatch.
func (e *Emulator) SwitchToLongMode() uint64 {
	e.active = false
	if e.cpu.Mode.Mode() == ModeReal {
		e.cpu.Mode.ForceTransition(ModeProtected)
	}
	if e.cpu.Mode.Mode() == ModeProtected {
		e.cpu.Mode.ForceTransition(ModeLong)
	}
	return LongModeEntryAddr
}
