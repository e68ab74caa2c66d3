// registers_test.go
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

import "testing"

func TestRegisterFile_BootState(t *testing.T) {
	r := NewRegisterFile(newFakeMMU())
	if r.CS() != 0x07C0 || r.DS() != 0x07C0 || r.ES() != 0x07C0 || r.SS() != 0x07C0 {
		t.Fatalf("unexpected boot segments: CS=%#04x DS=%#04x ES=%#04x SS=%#04x", r.CS(), r.DS(), r.ES(), r.SS())
	}
	if r.SP() != 0x7C00 {
		t.Fatalf("SP = %#04x, want 0x7C00", r.SP())
	}
	if r.IP != 0 {
		t.Fatalf("IP = %#04x, want 0", r.IP)
	}
	if r.Flags != 0x202 {
		t.Fatalf("Flags = %#04x, want 0x202", r.Flags)
	}
}

func TestRegisterFile_SubViews(t *testing.T) {
	r := NewRegisterFile(newFakeMMU())
	r.SetEAX(0x12345678)
	if r.AX() != 0x5678 {
		t.Fatalf("AX = %#04x, want 0x5678", r.AX())
	}
	if r.AL() != 0x78 || r.AH() != 0x56 {
		t.Fatalf("AL/AH = %#02x/%#02x, want 0x78/0x56", r.AL(), r.AH())
	}
	r.SetAL(0xFF)
	if r.EAX() != 0x123456FF {
		t.Fatalf("EAX after SetAL = %#08x, want 0x123456FF", r.EAX())
	}
	r.SetAH(0x00)
	if r.EAX() != 0x123400FF {
		t.Fatalf("EAX after SetAH = %#08x, want 0x123400FF", r.EAX())
	}
}

func TestRegisterFile_SegToLinear(t *testing.T) {
	r := NewRegisterFile(newFakeMMU())
	if got := r.SegToLinear(0x07C0, 0x0010); got != 0x07C10 {
		t.Fatalf("SegToLinear(0x07C0,0x10) = %#05x, want 0x07C10", got)
	}
}

func TestRegisterFile_PushPop(t *testing.T) {
	r := NewRegisterFile(newFakeMMU())
	sp0 := r.SP()
	if err := r.Push16(0xBEEF); err != nil {
		t.Fatal(err)
	}
	if r.SP() != sp0-2 {
		t.Fatalf("SP after push = %#04x, want %#04x", r.SP(), sp0-2)
	}
	v, err := r.Pop16()
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xBEEF {
		t.Fatalf("popped %#04x, want 0xBEEF", v)
	}
	if r.SP() != sp0 {
		t.Fatalf("SP after pop = %#04x, want %#04x", r.SP(), sp0)
	}
}

func TestRegisterFile_Flags(t *testing.T) {
	r := NewRegisterFile(newFakeMMU())
	r.SetFlag(FlagZF, true)
	if !r.ZF() {
		t.Fatal("ZF should be set")
	}
	r.SetFlag(FlagZF, false)
	if r.ZF() {
		t.Fatal("ZF should be clear")
	}
}
