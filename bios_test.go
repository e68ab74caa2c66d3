// bios_test.go
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

import (
	"log"
	"testing"
)

func newTestBios(t *testing.T) (*Bios, *RegisterFile, *fakeMMU) {
	t.Helper()
	mmu := newFakeMMU()
	regs := NewRegisterFile(mmu)
	pic := NewPic8259()
	return NewBios(regs, mmu, pic, log.New(nilWriter{}, "", 0)), regs, mmu
}

func TestBios_Int13ReadSector(t *testing.T) {
	b, regs, mmu := newTestBios(t)
	disk := make([]byte, 1024)
	for i := range disk[:512] {
		disk[i] = byte(i)
	}
	b.LoadDisk(disk)

	regs.SetAH(0x02)
	regs.SetAL(1) // 1 sector
	regs.SetGP8(1, 0) // CL = sector 0
	regs.SetGP16(3, 0x0100) // BX = dest offset
	regs.SetES(0x0000)

	if !b.Handle(0x13) {
		t.Fatal("Handle(0x13) should report handled")
	}
	if regs.CF() {
		t.Fatal("CF should be clear on success")
	}
	v, err := mmu.Read(uint64(regs.SegToLinear(0, 0x0100)), 1)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Fatalf("first read byte = %d, want 0", v)
	}
}

func TestBios_Int16KeyboardQueue(t *testing.T) {
	b, regs, _ := newTestBios(t)
	b.QueueKey(0x1E) // 'A' scancode
	regs.SetAH(0x00)
	b.Handle(0x16)
	if regs.AL() != 0x1E {
		t.Fatalf("AL = %#02x, want 0x1E", regs.AL())
	}
}

func TestBios_Int09DrainsSameQueue(t *testing.T) {
	b, _, _ := newTestBios(t)
	b.QueueKey(0x1E)
	b.QueueKey(0x30)
	b.Handle(0x09)
	if len(b.keyQueue) != 1 || b.keyQueue[0] != 0x30 {
		t.Fatalf("keyQueue = %v, want [0x30]", b.keyQueue)
	}
}

func TestBios_Int15E820ReportsUsableRAM(t *testing.T) {
	b, regs, mmu := newTestBios(t)
	regs.SetEAX(0xE820)
	regs.SetDI(0x2000)
	regs.SetES(0)
	b.Handle(0x15)
	if regs.CF() {
		t.Fatal("CF should be clear")
	}
	typ, err := mmu.Read(0x2000+16, 4)
	if err != nil {
		t.Fatal(err)
	}
	if typ != 1 {
		t.Fatalf("entry type = %d, want 1 (usable)", typ)
	}
}
