// interpreter_grp_test.go
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

import "testing"

func TestCPU_ShlByImm8(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	loadCode(t, cpu, mmu, []byte{
		0xB0, 0x01, // mov al,1
		0xC0, 0xE0, 0x03, // shl al,3  (C0 /4 Ib; modrm E0 = mod3 reg=4(SHL) rm=AL)
	})
	for i := 0; i < 2; i++ {
		if _, err := cpu.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if cpu.Regs.AL() != 8 {
		t.Fatalf("AL = %d, want 8", cpu.Regs.AL())
	}
}

func TestCPU_RolByOne(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	loadCode(t, cpu, mmu, []byte{
		0xB0, 0x81, // mov al,0x81
		0xD0, 0xC0, // rol al,1  (D0 /0 ; modrm C0 = mod3 reg=0(ROL) rm=AL)
	})
	for i := 0; i < 2; i++ {
		if _, err := cpu.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if cpu.Regs.AL() != 0x03 {
		t.Fatalf("AL = %#02x, want 0x03", cpu.Regs.AL())
	}
	if !cpu.Regs.CF() {
		t.Fatal("CF should be set: bit 7 rotated into bit 0")
	}
}

func TestCPU_TestDoesNotWriteBack(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	loadCode(t, cpu, mmu, []byte{
		0xB0, 0x0F, // mov al,0x0F
		0xA8, 0xF0, // test al,0xF0
	})
	for i := 0; i < 2; i++ {
		if _, err := cpu.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if cpu.Regs.AL() != 0x0F {
		t.Fatalf("AL = %#02x, want unchanged 0x0F", cpu.Regs.AL())
	}
	if !cpu.Regs.ZF() {
		t.Fatal("ZF should be set: 0x0F & 0xF0 == 0")
	}
}

func TestCPU_DivByZeroRaisesInterrupt(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	// IVT entry 0: offset 0x4000, segment 0x0000
	_ = mmu.Write(0, 0x4000, 2)
	_ = mmu.Write(2, 0x0000, 2)
	loadCode(t, cpu, mmu, []byte{
		0xB8, 0x0A, 0x00, // mov ax,10
		0xB1, 0x00, // mov cl,0
		0xF6, 0xF1, // div cl  (F6 /6 ; modrm F1 = mod3 reg=6(DIV) rm=CL)
	})
	for i := 0; i < 3; i++ {
		if _, err := cpu.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if cpu.Regs.IP != 0x4000 {
		t.Fatalf("IP = %#04x, want 0x4000 (divide-by-zero fault entry)", cpu.Regs.IP)
	}
}

func TestCPU_IncEvPreservesCF(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	loadCode(t, cpu, mmu, []byte{
		0xF9,       // stc
		0xB8, 0xFF, 0xFF, // mov ax,0xFFFF
		0xFF, 0xC0, // inc ax  (FF /0 ; modrm C0 = mod3 reg=0(INC) rm=AX)
	})
	for i := 0; i < 3; i++ {
		if _, err := cpu.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if cpu.Regs.AX() != 0 {
		t.Fatalf("AX = %#04x, want 0", cpu.Regs.AX())
	}
	if !cpu.Regs.CF() {
		t.Fatal("INC must preserve CF")
	}
}

func TestCPU_MovzxZeroExtends(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	loadCode(t, cpu, mmu, []byte{
		0xB8, 0xFF, 0xFF, // mov ax,0xFFFF (clobber AX first)
		0xB3, 0x80, // mov bl,0x80
		0x0F, 0xB6, 0xC3, // movzx ax,bl  (0F B6 ; modrm C3 = mod3 reg=0(AX) rm=3(BL))
	})
	for i := 0; i < 3; i++ {
		if _, err := cpu.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if cpu.Regs.AX() != 0x0080 {
		t.Fatalf("AX = %#04x, want 0x0080", cpu.Regs.AX())
	}
}

func TestCPU_MovsxSignExtends(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	loadCode(t, cpu, mmu, []byte{
		0xB3, 0x80, // mov bl,0x80
		0x0F, 0xBE, 0xC3, // movsx ax,bl
	})
	for i := 0; i < 2; i++ {
		if _, err := cpu.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if cpu.Regs.AX() != 0xFF80 {
		t.Fatalf("AX = %#04x, want 0xFF80", cpu.Regs.AX())
	}
}

func TestCPU_LgdtLoadsGDTRAndTruncatesBaseWithoutOpSize32(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	gdtLinear := uint64(cpu.Regs.SegToLinear(cpu.Regs.DS(), 0x0200))
	if err := mmu.Write(gdtLinear, 0x0027, 2); err != nil {
		t.Fatal(err)
	}
	if err := mmu.Write(gdtLinear+2, 0x12345678, 4); err != nil {
		t.Fatal(err)
	}
	loadCode(t, cpu, mmu, []byte{
		0x0F, 0x01, 0x16, 0x00, 0x02, // lgdt [0x0200]  (0F 01 /2, modrm 16 = mod0 reg=2 rm=6 disp16)
	})
	if _, err := cpu.Step(); err != nil {
		t.Fatal(err)
	}
	if cpu.Mode.GDTR.Limit != 0x0027 {
		t.Fatalf("GDTR.Limit = %#04x, want 0x0027", cpu.Mode.GDTR.Limit)
	}
	if cpu.Mode.GDTR.Base != 0x00345678 {
		t.Fatalf("GDTR.Base = %#08x, want 0x00345678 (top byte zeroed without 0x66)", cpu.Mode.GDTR.Base)
	}
}

func TestCPU_LidtWithOpSize32KeepsFullBase(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	idtLinear := uint64(cpu.Regs.SegToLinear(cpu.Regs.DS(), 0x0300))
	if err := mmu.Write(idtLinear, 0x03FF, 2); err != nil {
		t.Fatal(err)
	}
	if err := mmu.Write(idtLinear+2, 0x12345678, 4); err != nil {
		t.Fatal(err)
	}
	loadCode(t, cpu, mmu, []byte{
		0x66, 0x0F, 0x01, 0x1E, 0x00, 0x03, // o32 lidt [0x0300]  (0F 01 /3, modrm 1E = mod0 reg=3 rm=6 disp16)
	})
	if _, err := cpu.Step(); err != nil {
		t.Fatal(err)
	}
	if cpu.Mode.IDTR.Limit != 0x03FF {
		t.Fatalf("IDTR.Limit = %#04x, want 0x03FF", cpu.Mode.IDTR.Limit)
	}
	if cpu.Mode.IDTR.Base != 0x12345678 {
		t.Fatalf("IDTR.Base = %#08x, want full 0x12345678 under the 0x66 prefix", cpu.Mode.IDTR.Base)
	}
}

func TestCPU_PushaPopaRoundTrip(t *testing.T) {
	cpu, mmu := newTestCPU(t)
	loadCode(t, cpu, mmu, []byte{
		0xB8, 0x11, 0x11, // mov ax,0x1111
		0xB9, 0x22, 0x22, // mov cx,0x2222
		0x60,             // pusha
		0xB8, 0x00, 0x00, // mov ax,0
		0xB9, 0x00, 0x00, // mov cx,0
		0x61, // popa
	})
	for i := 0; i < 7; i++ {
		if _, err := cpu.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if cpu.Regs.AX() != 0x1111 || cpu.Regs.CX() != 0x2222 {
		t.Fatalf("AX=%#04x CX=%#04x, want 0x1111/0x2222", cpu.Regs.AX(), cpu.Regs.CX())
	}
}
