// apic.go - local and IO APIC, minimal interrupt-routing model
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

// LocalApic models one CPU's local APIC: a 256-bit interrupt-request
// bitmap and an enable/timer pair. Priority among set bits is by vector
// number, highest first, matching the real hardware's IRR/ISR scan order.
type LocalApic struct {
	enabled bool
	irr     [4]uint64 // 256-bit pending bitmap, irr[0] holds vectors 0-63

	timerEnabled bool
	timerVector  byte
	timerReload  uint64 // ns period
	timerRemain  uint64 // ns remaining until next underflow
}

// NewLocalApic returns a disabled local APIC.
func NewLocalApic() *LocalApic { return &LocalApic{} }

// Enable turns the local APIC on.
func (l *LocalApic) Enable() { l.enabled = true }

// Disable turns the local APIC off; its pending IRR bits are left intact so
// a subsequent Enable resumes with whatever was latched.
func (l *LocalApic) Disable() { l.enabled = false }

// Enabled reports whether the local APIC is accepting interrupts.
func (l *LocalApic) Enabled() bool { return l.enabled }

// RaiseVector sets the pending bit for vector in the IRR.
func (l *LocalApic) RaiseVector(vector byte) {
	l.irr[vector/64] |= 1 << (uint(vector) % 64)
}

// EnableTimer arms the local APIC timer to deliver vector on expiry, counting
// down periodNs of virtual time per period. A periodNs of zero disarms the
// timer (matches a reload count of zero on real hardware, which does not
// tick).
func (l *LocalApic) EnableTimer(vector byte, periodNs uint64) {
	l.timerEnabled = periodNs != 0
	l.timerVector = vector
	l.timerReload = periodNs
	l.timerRemain = periodNs
}

// FireTimer raises the timer's configured vector, if armed.
func (l *LocalApic) FireTimer() {
	if l.timerEnabled {
		l.RaiseVector(l.timerVector)
	}
}

// UpdateTimer decrements the armed timer by elapsedNs of virtual time,
// raising the configured vector once per period crossed, mirroring the
// PIT's own multi-period Tick semantics (§4.5).
func (l *LocalApic) UpdateTimer(elapsedNs uint64) {
	if !l.timerEnabled || l.timerReload == 0 {
		return
	}
	for elapsedNs > 0 {
		if elapsedNs < l.timerRemain {
			l.timerRemain -= elapsedNs
			return
		}
		elapsedNs -= l.timerRemain
		l.FireTimer()
		l.timerRemain = l.timerReload
	}
}

// GetPending returns the highest-priority pending vector, or ok=false if
// none is set or the APIC is disabled.
func (l *LocalApic) GetPending() (vector byte, ok bool) {
	if !l.enabled {
		return 0, false
	}
	for word := 3; word >= 0; word-- {
		if l.irr[word] == 0 {
			continue
		}
		for bit := 63; bit >= 0; bit-- {
			if l.irr[word]&(1<<uint(bit)) != 0 {
				return byte(word*64 + bit), true
			}
		}
	}
	return 0, false
}

// Clear clears the pending bit for vector, e.g. on EOI.
func (l *LocalApic) Clear(vector byte) {
	l.irr[vector/64] &^= 1 << (uint(vector) % 64)
}

// ioApicEntries is the fixed redirection-table size of a standard IO APIC.
const ioApicEntries = 24

// RedirectionEntry is one IO APIC redirection-table row.
type RedirectionEntry struct {
	Vector byte
	Masked bool
}

// IoApic models the IO APIC's 24-entry redirection table, routing each
// external IRQ line to a vector on the local APIC.
type IoApic struct {
	table [ioApicEntries]RedirectionEntry
	local *LocalApic
}

// NewIoApic returns an IO APIC with every entry masked, wired to deliver
// through local.
func NewIoApic(local *LocalApic) *IoApic {
	io := &IoApic{local: local}
	for i := range io.table {
		io.table[i].Masked = true
	}
	return io
}

// SetupDefaultIRQs programs the identity mapping IRQ n -> vector base+n for
// the first count lines, matching the conventional legacy-compatible
// default, and unmasks them.
func (io *IoApic) SetupDefaultIRQs(base byte, count int) {
	if count > ioApicEntries {
		count = ioApicEntries
	}
	for i := 0; i < count; i++ {
		io.table[i] = RedirectionEntry{Vector: base + byte(i), Masked: false}
	}
}

// Route programs line (0-23) to deliver vector, masked or not.
func (io *IoApic) Route(line int, vector byte, masked bool) {
	io.table[line] = RedirectionEntry{Vector: vector, Masked: masked}
}

// Raise signals external IRQ line, delivering it to the local APIC if the
// line is unmasked.
func (io *IoApic) Raise(line int) {
	e := io.table[line]
	if e.Masked {
		return
	}
	io.local.RaiseVector(e.Vector)
}

// InterruptSource groups a PIC and an APIC pair behind the single priority
// rule the interpreter consults: the local APIC is checked first, and only
// if it has nothing pending does a legacy PIC-routed interrupt fire.
type InterruptSource struct {
	Local *LocalApic
	IO    *IoApic
	PIC   *Pic8259
}

// GetPendingInterrupt implements the APIC-before-PIC priority: the local
// APIC's highest-priority pending vector wins outright; only when it has
// nothing pending does a masked-checked PIC IRQ surface.
func (s *InterruptSource) GetPendingInterrupt() (vector byte, ok bool) {
	if v, ok := s.Local.GetPending(); ok {
		return v, true
	}
	if _, v, ok := s.PIC.GetPending(); ok {
		return v, true
	}
	return 0, false
}

// HasPendingInterrupt reports whether any interrupt is pending on either
// controller, without resolving priority or consuming the PIC's request
// bit (PIC.GetPending pops; PIC.HasPending peeks).
func (s *InterruptSource) HasPendingInterrupt() bool {
	if _, ok := s.Local.GetPending(); ok {
		return true
	}
	ok := s.PIC.HasPending()
	return ok
}
