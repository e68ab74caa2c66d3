// pit.go - 8253 programmable interval timer, channel 0 only
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

// pitBaseHz is the 8253's input clock frequency.
const pitBaseHz = 1193182

// DefaultPitReload is the reload value the BIOS programs at boot for a
// ~100Hz tick (11931 / 1193182 Hz ~= 100.006 Hz), reused verbatim from the
// reference boot sequence.
const DefaultPitReload = 11931

// Pit8253 models channel 0 of the 8253 timer, counting down in virtual
// nanoseconds and raising IRQ0 through the PIC on every underflow.
type Pit8253 struct {
	reload   uint32
	remaining uint64 // ns remaining until next underflow
	pic      *Pic8259
}

// NewPit8253 returns channel 0 programmed with reload and wired to raise
// IRQ0 on pic.
func NewPit8253(pic *Pic8259, reload uint32) *Pit8253 {
	p := &Pit8253{pic: pic}
	p.SetReload(reload)
	return p
}

// SetReload reprograms the channel-0 reload count and restarts the
// countdown from the top.
func (p *Pit8253) SetReload(reload uint32) {
	if reload == 0 {
		reload = 0x10000 // 8253 treats a zero count as 65536
	}
	p.reload = reload
	p.remaining = p.periodNs()
}

// periodNs converts the current reload count to a virtual-time period in
// nanoseconds.
func (p *Pit8253) periodNs() uint64 {
	return uint64(p.reload) * 1_000_000_000 / pitBaseHz
}

// Tick advances the timer by elapsedNs of virtual time, raising IRQ0 on the
// PIC once per underflow crossed (elapsedNs may span multiple periods).
func (p *Pit8253) Tick(elapsedNs uint64) {
	period := p.periodNs()
	if period == 0 {
		return
	}
	for elapsedNs > 0 {
		if elapsedNs < p.remaining {
			p.remaining -= elapsedNs
			return
		}
		elapsedNs -= p.remaining
		p.pic.Raise(0)
		p.remaining = period
	}
}

// RemainingNs returns the virtual nanoseconds left until the next
// underflow, so tests can assert the "at least one raise per period"
// property without a wall-clock sleep.
func (p *Pit8253) RemainingNs() uint64 { return p.remaining }
