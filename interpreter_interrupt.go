// interpreter_interrupt.go - interrupt injection and IVT/IDT dispatch
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

// injectInterrupt pushes FLAGS, CS, IP (in that order, matching real
// hardware and the teacher's handleInterrupt push order) and transfers
// control to the vector's handler. software marks whether this came from
// an INT instruction; this core does not model TF and handles both paths
// identically, including the Bios-modeled services, which short-circuit
// the jump for hardware and software interrupts alike.
func (c *CPU) injectInterrupt(vector byte, software bool) error {
	if c.Bios != nil && c.Bios.Handle(vector) {
		return nil
	}

	if err := c.Regs.Push16(uint16(c.Regs.Flags)); err != nil {
		return err
	}
	if err := c.Regs.Push16(c.Regs.CS()); err != nil {
		return err
	}
	if err := c.Regs.Push16(uint16(c.Regs.IP)); err != nil {
		return err
	}
	c.Regs.SetFlag(FlagIF, false)

	if c.Mode.Mode() != ModeReal {
		return c.dispatchIDT(vector)
	}
	return c.dispatchIVT(vector)
}

// dispatchIVT reads the classic real-mode interrupt vector table: four
// bytes per vector (offset, then segment) starting at linear address 0.
func (c *CPU) dispatchIVT(vector byte) error {
	entry := uint32(vector) * 4
	offLo, err := c.mmu.Read(uint64(entry), 2)
	if err != nil {
		return err
	}
	segLo, err := c.mmu.Read(uint64(entry+2), 2)
	if err != nil {
		return err
	}
	c.Regs.SetCS(uint16(segLo))
	c.Regs.IP = uint32(offLo)
	return nil
}

// dispatchIDT reads an 8-byte protected-mode interrupt gate descriptor
// from IDTR.Base + vector*8: offset low16, selector, type/attr byte
// (ignored at this fidelity), offset high16. Falls back to the IVT with a
// warning if IDTR was never loaded, per the ambient-stack logging policy.
func (c *CPU) dispatchIDT(vector byte) error {
	if c.Mode.IDTR.Base == 0 && c.Mode.IDTR.Limit == 0 {
		c.log.Printf("interpreter: INT %#02x dispatched before IDTR load, falling back to IVT", vector)
		return c.dispatchIVT(vector)
	}
	entry := c.Mode.IDTR.Base + uint64(vector)*8
	offLo, err := c.mmu.Read(entry, 2)
	if err != nil {
		return err
	}
	selector, err := c.mmu.Read(entry+2, 2)
	if err != nil {
		return err
	}
	offHi, err := c.mmu.Read(entry+6, 2)
	if err != nil {
		return err
	}
	c.Regs.SetCS(uint16(selector))
	c.Regs.IP = uint32(offLo) | uint32(offHi)<<16
	return nil
}

// Iret pops IP, CS, FLAGS in reverse of injectInterrupt's push order.
func (c *CPU) Iret() error {
	ip, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	cs, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	flags, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	c.Regs.IP = uint32(ip)
	c.Regs.SetCS(cs)
	c.Regs.Flags = (c.Regs.Flags &^ 0xFFFF) | uint32(flags)
	return nil
}
