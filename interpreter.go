// interpreter.go - real-mode fetch/decode/execute loop
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later
//
// CPU is the top-level real-mode interpreter: a register file, a mode
// manager, an interrupt source, and a dispatch table built once at
// construction time the way the teacher's CPU_X86 builds initBaseOps.

package vmcore

import (
	"log"
	"sync/atomic"
)

// StepOutcome reports what Step did, generalized from the teacher's
// Continue/Halt/Error trio plus an explicit mode-switch signal.
type StepOutcome int

const (
	StepContinue StepOutcome = iota
	StepHalt
	StepModeSwitch
	StepNotActive
)

func (s StepOutcome) String() string {
	switch s {
	case StepHalt:
		return "halt"
	case StepModeSwitch:
		return "mode-switch"
	case StepNotActive:
		return "not-active"
	default:
		return "continue"
	}
}

// opHandler is the signature every opcode handler in the dispatch table
// satisfies, mirroring the teacher's func(*CPU_X86) handler values.
type opHandler func(*CPU, *decodeCtx) error

// stepQuantumNs is the fixed virtual-time advance per retired Step, standing
// in for one host-CPU cycle at ~250MHz (spec §3.4).
const stepQuantumNs uint64 = 4

// CPU holds all real-mode interpreter state.
type CPU struct {
	Regs  *RegisterFile
	Mode  *ModeManager
	Intr  *InterruptSource
	Bios  *Bios
	Pit   *Pit8253
	Ports *PortSpace
	mmu   MMU

	vclock   uint64 // monotonic virtual nanoseconds, the interpreter's sole clock source

	running  atomic.Bool
	halted   atomic.Bool
	cycles   uint64

	opTable    [256]opHandler
	op0FTable  [256]opHandler

	log *log.Logger
}

// VirtualTimeNs returns the monotonic virtual-time clock driving the PIT and
// APIC timer, advanced by stepQuantumNs on every Step call (§3.4).
func (c *CPU) VirtualTimeNs() uint64 { return c.vclock }

// decodeCtx carries the per-instruction decode state threaded through an
// opcode handler: prefixes seen, the fetched ModR/M breakdown, and the
// instruction's starting IP (for error reporting).
type decodeCtx struct {
	startIP uint32

	segOverride int // -1 if none
	opSize32    bool
	addrSize32  bool
	rep         byte // 0 none, 0xF2 REPNE, 0xF3 REP
	lock        bool

	modrm      byte
	mod, reg, rm byte
	haveModRM  bool
}

// NewCPU builds an interpreter over mmu with a fresh register file, mode
// manager and interrupt source. logger receives the same sparse warning
// diagnostics as Bios; nil selects log.Default().
func NewCPU(mmu MMU, logger *log.Logger) *CPU {
	if logger == nil {
		logger = log.Default()
	}
	local := NewLocalApic()
	local.Enable()
	pic := NewPic8259()
	io := NewIoApic(local)
	io.SetupDefaultIRQs(0x20, 16)

	c := &CPU{
		Regs: NewRegisterFile(mmu),
		Mode: NewModeManager(),
		Intr: &InterruptSource{Local: local, IO: io, PIC: pic},
		Pit:  NewPit8253(pic, DefaultPitReload),
		mmu:  mmu,
		log:  logger,
	}
	c.Ports = newPortSpace(pic, c.Pit)
	c.Bios = NewBios(c.Regs, mmu, pic, logger)
	c.Bios.SetClock(c.VirtualTimeNs)
	c.running.Store(true)
	c.initOps()
	c.initOps0F()
	return c
}

// Running reports whether the host has the interpreter enabled; it may be
// cleared concurrently from another goroutine between Step calls.
func (c *CPU) Running() bool { return c.running.Load() }

// Halt clears the running flag, observable without a lock from the host
// that drives Step in a loop.
func (c *CPU) Halt() { c.running.Store(false) }

// Resume sets the running flag and clears the halted-by-HLT latch.
func (c *CPU) Resume() {
	c.running.Store(true)
	c.halted.Store(false)
}

// Cycles returns the running instruction count, for tests asserting
// forward progress.
func (c *CPU) Cycles() uint64 { return c.cycles }

// fetch8 reads one byte at CS:IP and advances IP.
func (c *CPU) fetch8() (byte, error) {
	v, err := c.Regs.ReadMem(c.Regs.CS(), uint16(c.Regs.IP), 1)
	if err != nil {
		return 0, err
	}
	c.Regs.IP++
	return byte(v), nil
}

func (c *CPU) fetch16() (uint16, error) {
	v, err := c.Regs.ReadMem(c.Regs.CS(), uint16(c.Regs.IP), 2)
	if err != nil {
		return 0, err
	}
	c.Regs.IP += 2
	return uint16(v), nil
}

func (c *CPU) fetch32() (uint32, error) {
	v, err := c.Regs.ReadMem(c.Regs.CS(), uint16(c.Regs.IP), 4)
	if err != nil {
		return 0, err
	}
	c.Regs.IP += 4
	return uint32(v), nil
}

// Step advances virtual time by one quantum, ticks the PIT and the local
// APIC timer, then either injects one pending interrupt (if IF is set) or
// fetches, decodes and executes exactly one instruction, including any
// legacy prefixes that precede its opcode byte (§4.7.1). This mirrors the
// teacher's check-before-fetch ordering in Step(), generalized with the
// virtual-clock advance and timer ticks spec.md's device model requires.
func (c *CPU) Step() (StepOutcome, error) {
	if !c.running.Load() {
		return StepHalt, nil
	}

	c.vclock += stepQuantumNs
	c.Pit.Tick(stepQuantumNs)
	c.Intr.Local.UpdateTimer(stepQuantumNs)

	if c.halted.Load() {
		if c.Regs.IF() {
			if v, ok := c.Intr.GetPendingInterrupt(); ok {
				if err := c.injectInterrupt(v, false); err != nil {
					return StepContinue, err
				}
				c.halted.Store(false)
			}
		}
		return StepContinue, nil
	}

	if c.Regs.IF() {
		if v, ok := c.Intr.GetPendingInterrupt(); ok {
			if err := c.injectInterrupt(v, false); err != nil {
				return StepContinue, err
			}
			return StepContinue, nil
		}
	}

	ctx := &decodeCtx{startIP: c.Regs.IP, segOverride: -1}
	modeBefore := c.Mode.Mode()

	for {
		b, err := c.fetch8()
		if err != nil {
			return StepContinue, err
		}
		switch b {
		case 0x26:
			ctx.segOverride = SegES
			continue
		case 0x2E:
			ctx.segOverride = SegCS
			continue
		case 0x36:
			ctx.segOverride = SegSS
			continue
		case 0x3E:
			ctx.segOverride = SegDS
			continue
		case 0x64:
			ctx.segOverride = SegFS
			continue
		case 0x65:
			ctx.segOverride = SegGS
			continue
		case 0x66:
			ctx.opSize32 = true
			continue
		case 0x67:
			ctx.addrSize32 = true
			continue
		case 0xF0:
			ctx.lock = true
			continue
		case 0xF2, 0xF3:
			ctx.rep = b
			continue
		case 0x0F:
			b2, err := c.fetch8()
			if err != nil {
				return StepContinue, err
			}
			h := c.op0FTable[b2]
			if h == nil {
				c.log.Printf("interpreter: unknown opcode 0F %#02x at IP=%#04x", b2, ctx.startIP)
				return StepContinue, nil
			}
			if err := h(c, ctx); err != nil {
				return StepContinue, err
			}
			c.cycles++
			return c.postExec(modeBefore), nil
		default:
			h := c.opTable[b]
			if h == nil {
				c.log.Printf("interpreter: unknown opcode %#02x at IP=%#04x", b, ctx.startIP)
				return StepContinue, nil
			}
			if err := h(c, ctx); err != nil {
				return StepContinue, err
			}
			c.cycles++
			return c.postExec(modeBefore), nil
		}
	}
}

// postExec re-evaluates the mode manager and reports StepModeSwitch
// exactly once per transition, per the interpreter's mode-switch detector.
// before is the mode in effect when the instruction started.
func (c *CPU) postExec(before Mode) StepOutcome {
	c.Mode.CheckModeSwitch()
	if c.Mode.Mode() != before {
		return StepModeSwitch
	}
	if c.halted.Load() {
		return StepHalt
	}
	return StepContinue
}

// effectiveSeg resolves the segment that applies given any override
// prefix seen, defaulting to def.
func (ctx *decodeCtx) effectiveSeg(def int, regs *RegisterFile) uint16 {
	if ctx.segOverride >= 0 {
		return regs.Seg(ctx.segOverride)
	}
	return regs.Seg(def)
}
