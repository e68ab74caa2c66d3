// modetrans_test.go
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

import "testing"

func TestModeManager_RealToProtected(t *testing.T) {
	m := NewModeManager()
	if m.Mode() != ModeReal {
		t.Fatalf("initial mode = %v, want real", m.Mode())
	}
	if err := m.WriteCR(0, CR0PE); err != nil {
		t.Fatal(err)
	}
	if m.Mode() != ModeProtected {
		t.Fatalf("mode after PE = %v, want protected", m.Mode())
	}
	if m.PreviousMode() != ModeReal {
		t.Fatalf("previous mode = %v, want real", m.PreviousMode())
	}
}

func TestModeManager_Staircase(t *testing.T) {
	m := NewModeManager()
	_ = m.WriteCR(0, CR0PE)
	_ = m.WriteCR(4, CR4PAE)
	m.WriteMSR(EFERLME)
	if m.Mode() != ModeProtected {
		t.Fatalf("mode without PG = %v, want still protected", m.Mode())
	}
	_ = m.WriteCR(0, CR0PE|CR0PG)
	if m.Mode() != ModeLong {
		t.Fatalf("mode = %v, want long", m.Mode())
	}
	if m.EFER&EFERLMA == 0 {
		t.Fatal("EFER.LMA should be set on entering long mode")
	}
}

func TestModeManager_NeverDirectRealToLong(t *testing.T) {
	m := NewModeManager()
	_ = m.WriteCR(4, CR4PAE)
	m.WriteMSR(EFERLME)
	_ = m.WriteCR(0, CR0PE|CR0PG)
	if m.Mode() == ModeLong {
		t.Fatal("must not jump Real->Long in one CheckModeSwitch call from Real")
	}
}

func TestModeManager_LoadGDTRReevaluatesMode(t *testing.T) {
	m := NewModeManager()
	// Set CR0.PE on the shadow field directly, bypassing WriteCR's own
	// re-check, then confirm a LoadGDTR call alone re-runs CheckModeSwitch
	// (spec.md: "after every CR/MSR/GDTR/IDTR write") and commits the
	// Real->Protected transition.
	m.CR0 = CR0PE
	if m.Mode() != ModeReal {
		t.Fatalf("setup failed, mode = %v", m.Mode())
	}
	m.LoadGDTR(0x00001000, 0x27)
	if m.GDTR.Base != 0x00001000 || m.GDTR.Limit != 0x27 {
		t.Fatalf("GDTR = %#x/%#x, want 0x1000/0x27", m.GDTR.Base, m.GDTR.Limit)
	}
	if m.Mode() != ModeProtected {
		t.Fatalf("mode after LoadGDTR = %v, want protected", m.Mode())
	}

	_ = m.WriteCR(4, CR4PAE)
	m.WriteMSR(EFERLME)
	_ = m.WriteCR(0, CR0PE|CR0PG)
	if m.Mode() != ModeLong {
		t.Fatalf("setup failed, mode = %v", m.Mode())
	}
	m.LoadIDTR(0x00002000, 0xFF)
	if m.IDTR.Base != 0x00002000 || m.IDTR.Limit != 0xFF {
		t.Fatalf("IDTR = %#x/%#x, want 0x2000/0xFF", m.IDTR.Base, m.IDTR.Limit)
	}
	if m.Mode() != ModeLong {
		t.Fatalf("LoadIDTR must not itself change mode once long mode is entered, got %v", m.Mode())
	}
}

func TestModeManager_LongToReal(t *testing.T) {
	m := NewModeManager()
	_ = m.WriteCR(4, CR4PAE)
	m.WriteMSR(EFERLME)
	_ = m.WriteCR(0, CR0PE)
	_ = m.WriteCR(0, CR0PE|CR0PG)
	if m.Mode() != ModeLong {
		t.Fatalf("setup failed, mode = %v", m.Mode())
	}
	_ = m.WriteCR(0, 0)
	if m.Mode() != ModeReal {
		t.Fatalf("mode after clearing PE = %v, want real", m.Mode())
	}
	if m.EFER&EFERLMA != 0 {
		t.Fatal("EFER.LMA should clear on leaving long mode")
	}
}
