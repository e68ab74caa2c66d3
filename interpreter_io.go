// interpreter_io.go - IN/OUT and the string I/O forms INSB/INSW/OUTSB/OUTSW
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later
//
// Grounded on the teacher's opIN_AL_imm8/opIN_AX_DX/opOUT_DX_AL/opINSB
// family in cpu_x86_ops.go, adapted from its bus.In/bus.Out collaborator
// call to this core's own PortSpace (see ports.go) since the PIC and PIT
// are owned directly rather than through an external bus.

package vmcore

func inALImm8(c *CPU, ctx *decodeCtx) error {
	port, err := c.fetch8()
	if err != nil {
		return err
	}
	c.Regs.SetAL(c.Ports.In8(uint16(port)))
	return nil
}

func inAXImm8(c *CPU, ctx *decodeCtx) error {
	port, err := c.fetch8()
	if err != nil {
		return err
	}
	c.Regs.SetAX(c.Ports.In16(uint16(port)))
	return nil
}

func outImm8AL(c *CPU, ctx *decodeCtx) error {
	port, err := c.fetch8()
	if err != nil {
		return err
	}
	c.Ports.Out8(uint16(port), c.Regs.AL())
	return nil
}

func outImm8AX(c *CPU, ctx *decodeCtx) error {
	port, err := c.fetch8()
	if err != nil {
		return err
	}
	c.Ports.Out16(uint16(port), c.Regs.AX())
	return nil
}

func inALDX(c *CPU, ctx *decodeCtx) error {
	c.Regs.SetAL(c.Ports.In8(c.Regs.DX()))
	return nil
}

func inAXDX(c *CPU, ctx *decodeCtx) error {
	c.Regs.SetAX(c.Ports.In16(c.Regs.DX()))
	return nil
}

func outDXAL(c *CPU, ctx *decodeCtx) error {
	c.Ports.Out8(c.Regs.DX(), c.Regs.AL())
	return nil
}

func outDXAX(c *CPU, ctx *decodeCtx) error {
	c.Ports.Out16(c.Regs.DX(), c.Regs.AX())
	return nil
}

// insb reads one (or, REP-prefixed, CX) byte(s) from DX into ES:DI.
func insb(c *CPU, ctx *decodeCtx) error {
	n, bare := repCount(ctx, c)
	port := c.Regs.DX()
	for i := uint16(0); i < n; i++ {
		if err := c.Regs.WriteMem(c.Regs.ES(), c.Regs.DI(), uint64(c.Ports.In8(port)), 1); err != nil {
			return err
		}
		c.Regs.SetDI(c.Regs.DI() + stringDelta(c.Regs.DF(), 1))
	}
	if !bare {
		c.Regs.SetCX(0)
	}
	return nil
}

func insw(c *CPU, ctx *decodeCtx) error {
	n, bare := repCount(ctx, c)
	port := c.Regs.DX()
	for i := uint16(0); i < n; i++ {
		if err := c.Regs.WriteMem(c.Regs.ES(), c.Regs.DI(), uint64(c.Ports.In16(port)), 2); err != nil {
			return err
		}
		c.Regs.SetDI(c.Regs.DI() + stringDelta(c.Regs.DF(), 2))
	}
	if !bare {
		c.Regs.SetCX(0)
	}
	return nil
}

// outsb writes one (or, REP-prefixed, CX) byte(s) from DS:SI to DX.
func outsb(c *CPU, ctx *decodeCtx) error {
	n, bare := repCount(ctx, c)
	port := c.Regs.DX()
	for i := uint16(0); i < n; i++ {
		v, err := c.Regs.ReadMem(ctx.effectiveSeg(SegDS, c.Regs), c.Regs.SI(), 1)
		if err != nil {
			return err
		}
		c.Ports.Out8(port, byte(v))
		c.Regs.SetSI(c.Regs.SI() + stringDelta(c.Regs.DF(), 1))
	}
	if !bare {
		c.Regs.SetCX(0)
	}
	return nil
}

func outsw(c *CPU, ctx *decodeCtx) error {
	n, bare := repCount(ctx, c)
	port := c.Regs.DX()
	for i := uint16(0); i < n; i++ {
		v, err := c.Regs.ReadMem(ctx.effectiveSeg(SegDS, c.Regs), c.Regs.SI(), 2)
		if err != nil {
			return err
		}
		c.Ports.Out16(port, uint16(v))
		c.Regs.SetSI(c.Regs.SI() + stringDelta(c.Regs.DF(), 2))
	}
	if !bare {
		c.Regs.SetCX(0)
	}
	return nil
}
