// bios.go - legacy BIOS interrupt services
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

import "log"

// VGA text-mode constants, matching the conventional 80x25 16-color buffer
// at the standard legacy linear address.
const (
	vgaBase    = 0xB8000
	vgaCols    = 80
	vgaRows    = 25
	vgaDefAttr = 0x07
)

// Bios provides the legacy INT 10h/13h/15h/16h/1Ah/09h services consumed
// by real-mode boot code. It holds the small amount of state those
// services need: the VGA cursor, a keyboard scancode queue, and a disk
// image reader.
type Bios struct {
	regs *RegisterFile
	mmu  MMU
	pic  *Pic8259

	cursorCol, cursorRow int

	keyQueue []byte

	disk []byte // flat disk image, sector 0 = first 512 bytes

	clock func() uint64 // virtual-time source for INT 1Ah; nil reads as 0

	log *log.Logger
}

// biosTickPeriodNs is the conventional ~18.2Hz BIOS timer-tick period
// (1/18.2 Hz), used to derive INT 1Ah's tick counter from virtual time.
const biosTickPeriodNs = 54_925_000

// SetClock wires the virtual-time source INT 1Ah reads its tick counter
// from. NewCPU wires this to the owning CPU's VirtualTimeNs.
func (b *Bios) SetClock(clock func() uint64) { b.clock = clock }

// NewBios returns a Bios bound to regs/mmu/pic, with an empty disk image
// and keyboard queue. Pass a logger to capture the warnings this service
// logs for unsupported function codes; nil selects log.Default().
func NewBios(regs *RegisterFile, mmu MMU, pic *Pic8259, logger *log.Logger) *Bios {
	if logger == nil {
		logger = log.Default()
	}
	return &Bios{regs: regs, mmu: mmu, pic: pic, log: logger}
}

// LoadDisk installs the flat disk image INT 13h reads sectors from.
func (b *Bios) LoadDisk(image []byte) { b.disk = image }

// QueueKey appends a scancode to the keyboard queue that INT 16h/INT 09h
// drain from.
func (b *Bios) QueueKey(scancode byte) { b.keyQueue = append(b.keyQueue, scancode) }

// Handle dispatches interrupt vector to the matching BIOS service. It
// returns false if vector names no modeled service, in which case the
// interpreter's normal IVT dispatch applies.
func (b *Bios) Handle(vector byte) bool {
	switch vector {
	case 0x09:
		b.int09Keyboard()
	case 0x10:
		b.int10Video()
	case 0x13:
		b.int13Disk()
	case 0x15:
		b.int15System()
	case 0x16:
		b.int16Keyboard()
	case 0x1A:
		b.int1ATime()
	default:
		return false
	}
	return true
}

// int10Video implements the AH=0x0E teletype-output function: write AL to
// the VGA text buffer at the current cursor position, advancing the
// cursor and scrolling the buffer up one row on overflow.
func (b *Bios) int10Video() {
	switch b.regs.AH() {
	case 0x0E:
		b.teletypeOut(b.regs.AL())
	case 0x02: // set cursor position: DH=row, DL=col
		b.cursorRow = int(b.regs.GP8(6)) // DH
		b.cursorCol = int(b.regs.GP8(2)) // DL
	default:
		b.log.Printf("bios: INT 10h unsupported AH=%#02x", b.regs.AH())
	}
}

func (b *Bios) teletypeOut(ch byte) {
	if ch == '\n' {
		b.cursorCol = 0
		b.cursorRow++
	} else if ch == '\r' {
		b.cursorCol = 0
	} else {
		b.writeCell(b.cursorRow, b.cursorCol, ch, vgaDefAttr)
		b.cursorCol++
		if b.cursorCol >= vgaCols {
			b.cursorCol = 0
			b.cursorRow++
		}
	}
	if b.cursorRow >= vgaRows {
		b.scroll()
		b.cursorRow = vgaRows - 1
	}
}

func (b *Bios) writeCell(row, col int, ch, attr byte) {
	addr := uint64(vgaBase + (row*vgaCols+col)*2)
	_ = b.mmu.Write(addr, uint64(ch), 1)
	_ = b.mmu.Write(addr+1, uint64(attr), 1)
}

func (b *Bios) scroll() {
	for row := 1; row < vgaRows; row++ {
		for col := 0; col < vgaCols; col++ {
			src := uint64(vgaBase + (row*vgaCols+col)*2)
			dst := uint64(vgaBase + ((row-1)*vgaCols+col)*2)
			v, err := b.mmu.Read(src, 2)
			if err != nil {
				continue
			}
			_ = b.mmu.Write(dst, v, 2)
		}
	}
	for col := 0; col < vgaCols; col++ {
		b.writeCell(vgaRows-1, col, ' ', vgaDefAttr)
	}
}

// int13Disk implements AH=0x02 (read sectors): reads AL sectors starting
// at CL, taken directly as a 0-based linear sector index, into ES:BX. No
// geometry is modeled, so CH and DH are ignored.
func (b *Bios) int13Disk() {
	if b.regs.AH() != 0x02 {
		b.log.Printf("bios: INT 13h unsupported AH=%#02x", b.regs.AH())
		b.regs.SetFlag(FlagCF, true)
		return
	}
	count := int(b.regs.AL())
	sector := int(b.regs.GP8(1)) // CL: sector number, 1-based in real geometry but used directly here
	dest := b.regs.GP16(3)       // BX
	es := b.regs.ES()

	start := sector * 512
	need := count * 512
	if start < 0 || need < 0 || start+need > len(b.disk) {
		b.regs.SetFlag(FlagCF, true)
		b.regs.SetAH(0x04) // sector not found
		return
	}
	for i := 0; i < need; i++ {
		_ = b.mmu.Write(uint64(b.regs.SegToLinear(es, dest+uint16(i))), uint64(b.disk[start+i]), 1)
	}
	b.regs.SetFlag(FlagCF, false)
	b.regs.SetAH(0)
}

// int15System implements EAX=0xE820 (get system memory map), returning a
// single entry covering all of the host-provided memory as type 1 (usable).
func (b *Bios) int15System() {
	if b.regs.EAX() != 0xE820 {
		b.log.Printf("bios: INT 15h unsupported EAX=%#08x", b.regs.EAX())
		b.regs.SetFlag(FlagCF, true)
		return
	}
	di := b.regs.DI()
	es := b.regs.ES()
	base := b.regs.SegToLinear(es, di)
	write64 := func(off uint32, v uint64) {
		_ = b.mmu.Write(uint64(base)+uint64(off), v, 8)
	}
	write64(0, 0)                     // base address
	write64(8, uint64(0x10000000))    // length: 256MB, arbitrary host-provided size
	_ = b.mmu.Write(uint64(base)+16, 1, 4) // type 1: usable RAM
	b.regs.SetEAX(0x534D4150)         // "SMAP"
	b.regs.SetGP32(2, 20)             // ECX: entry size
	b.regs.SetGP32(3, 0)              // EBX: continuation = 0, single entry
	b.regs.SetFlag(FlagCF, false)
}

// int16Keyboard implements AH=0x00 (read key): pops one scancode from the
// queue into AL. It does not block: on an empty queue it returns at once
// and leaves AL and the flags unchanged. AH=0x01 (check key) sets ZF when
// the queue is empty and clears it otherwise.
func (b *Bios) int16Keyboard() {
	switch b.regs.AH() {
	case 0x00:
		if len(b.keyQueue) == 0 {
			return
		}
		b.regs.SetAL(b.keyQueue[0])
		b.keyQueue = b.keyQueue[1:]
	case 0x01:
		b.regs.SetFlag(FlagZF, len(b.keyQueue) == 0)
	default:
		b.log.Printf("bios: INT 16h unsupported AH=%#02x", b.regs.AH())
	}
}

// int09Keyboard is the hardware IRQ1 handler: it drains exactly one
// scancode from the same queue INT 16h reads and acknowledges the PIC,
// pairing with INT 16h so the queue is actually consumed from two angles
// the way a real keyboard controller/BIOS split would be.
func (b *Bios) int09Keyboard() {
	if len(b.keyQueue) > 0 {
		b.keyQueue = b.keyQueue[1:]
	}
	if b.pic != nil {
		b.pic.Clear(1)
	}
}

// int1ATime implements AH=0x00 (get system time counter), returning the
// BIOS tick count derived from virtual time (§3.4): ticks since emulator
// construction at the conventional ~18.2Hz rate, split CX:DX high:low. This
// core models no calendar day, so the midnight-rollover flag is always
// reported false.
func (b *Bios) int1ATime() {
	switch b.regs.AH() {
	case 0x00:
		var ticks uint32
		if b.clock != nil {
			ticks = uint32(b.clock() / biosTickPeriodNs)
		}
		b.regs.SetGP16(2, uint16(ticks>>16)) // CX: high 16 bits
		b.regs.SetGP16(3, uint16(ticks))     // DX: low 16 bits
		b.regs.SetAL(0)                      // midnight flag
	default:
		b.log.Printf("bios: INT 1Ah unsupported AH=%#02x", b.regs.AH())
	}
}
