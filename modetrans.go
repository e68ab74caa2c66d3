// modetrans.go - CPU mode-transition manager
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

// Mode identifies the current operating mode of the virtual CPU.
type Mode int

const (
	ModeReal Mode = iota
	ModeProtected
	ModeLong
)

func (m Mode) String() string {
	switch m {
	case ModeReal:
		return "real"
	case ModeProtected:
		return "protected"
	case ModeLong:
		return "long"
	default:
		return "unknown"
	}
}

// Control register bits consulted when deciding a mode transition.
const (
	CR0PE uint32 = 1 << 0 // Protection Enable
	CR0PG uint32 = 1 << 31
	CR4PAE uint32 = 1 << 5
	EFERLME uint64 = 1 << 8 // Long Mode Enable
	EFERLMA uint64 = 1 << 10 // Long Mode Active
)

// DescriptorTableReg mirrors GDTR/IDTR: a base address and a limit.
type DescriptorTableReg struct {
	Base  uint64
	Limit uint16
}

// ModeManager tracks the CR0/CR2/CR3/CR4/EFER shadow registers, the
// descriptor table registers, and the current/previous operating mode.
type ModeManager struct {
	CR0  uint32
	CR2  uint32
	CR3  uint32
	CR4  uint32
	EFER uint64

	GDTR DescriptorTableReg
	IDTR DescriptorTableReg

	mode     Mode
	prevMode Mode
}

// NewModeManager returns a manager in ModeReal with all shadows zeroed.
func NewModeManager() *ModeManager {
	return &ModeManager{mode: ModeReal, prevMode: ModeReal}
}

// Mode returns the current operating mode.
func (m *ModeManager) Mode() Mode { return m.mode }

// PreviousMode returns the mode in effect before the last committed
// transition, letting a caller detect a Real->Protected->Long staircase
// without tracking history itself.
func (m *ModeManager) PreviousMode() Mode { return m.prevMode }

// WriteCR writes one of the four general control registers (0,2,3,4) and
// evaluates whether the write alone causes a mode transition.
func (m *ModeManager) WriteCR(n int, value uint32) error {
	switch n {
	case 0:
		m.CR0 = value
	case 2:
		m.CR2 = value
	case 3:
		m.CR3 = value
	case 4:
		m.CR4 = value
	default:
		return &InternalError{Message: "unknown control register", PC: uint32(n)}
	}
	m.CheckModeSwitch()
	return nil
}

// WriteMSR writes the EFER shadow (only EFER is modeled) and re-evaluates
// the mode.
func (m *ModeManager) WriteMSR(value uint64) {
	m.EFER = value
	m.CheckModeSwitch()
}

// LoadGDTR loads the global descriptor table register and, per spec.md's
// "after every CR/MSR/GDTR/IDTR write" rule, re-evaluates the mode (a GDTR
// load never changes the composite precondition by itself, but the
// re-check is mandatory regardless of source register).
func (m *ModeManager) LoadGDTR(base uint64, limit uint16) {
	m.GDTR = DescriptorTableReg{Base: base, Limit: limit}
	m.CheckModeSwitch()
}

// LoadIDTR loads the interrupt descriptor table register and re-evaluates
// the mode, for the same reason as LoadGDTR above.
func (m *ModeManager) LoadIDTR(base uint64, limit uint16) {
	m.IDTR = DescriptorTableReg{Base: base, Limit: limit}
	m.CheckModeSwitch()
}

// commit records a mode change, preserving the prior mode for one step.
func (m *ModeManager) commit(next Mode) {
	if next == m.mode {
		return
	}
	m.prevMode = m.mode
	m.mode = next
}

// CheckModeSwitch evaluates CR0/CR4/EFER against the composite
// preconditions and commits a transition if warranted:
//
//	Real -> Protected:  CR0.PE set
//	Protected -> Long:  CR0.PE & CR0.PG & CR4.PAE & EFER.LME all set
//
// A Real->Long jump never happens directly; Protected is always the
// intermediate step, matching the staircase the original emulator forces.
func (m *ModeManager) CheckModeSwitch() Mode {
	pe := m.CR0&CR0PE != 0
	pg := m.CR0&CR0PG != 0
	pae := m.CR4&CR4PAE != 0
	lme := m.EFER&EFERLME != 0

	switch m.mode {
	case ModeReal:
		if pe {
			m.commit(ModeProtected)
		}
	case ModeProtected:
		if pe && pg && pae && lme {
			m.EFER |= EFERLMA
			m.commit(ModeLong)
		} else if !pe {
			m.commit(ModeReal)
		}
	case ModeLong:
		if !pe {
			m.EFER &^= EFERLMA
			m.commit(ModeReal)
		}
	}
	return m.mode
}

// ForceTransition is the escape hatch a host may invoke after a bounded
// number of instructions spent in a stuck init loop (§4.2). It bypasses the
// composite CR/EFER precondition check but still enforces the canonical
// staircase: Real->Protected->Long only, one step per call, never a direct
// Real->Long jump. A call that would skip a step or move backwards is a
// no-op.
func (m *ModeManager) ForceTransition(next Mode) {
	if next == m.mode+1 {
		m.commit(next)
	}
}
