// interpreter_string.go - string instructions and REP/REPNE prefix handling
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later
//
// Each handler executes one element; the REP/REPNE prefix is honored by
// looping the element here rather than by the dispatch loop, matching the
// teacher's opMOVSB/opSTOSB-family shape in cpu_x86_ops.go where the
// repeat count is consumed inside the handler itself. LODSB/LODSW are the
// exception: they always execute a single element and ignore the prefix.

package vmcore

func repCount(ctx *decodeCtx, c *CPU) (count uint16, bare bool) {
	if ctx.rep == 0 {
		return 1, true
	}
	return c.Regs.CX(), false
}

func movsb(c *CPU, ctx *decodeCtx) error {
	n, bare := repCount(ctx, c)
	for i := uint16(0); i < n; i++ {
		v, err := c.Regs.ReadMem(ctx.effectiveSeg(SegDS, c.Regs), c.Regs.SI(), 1)
		if err != nil {
			return err
		}
		if err := c.Regs.WriteMem(c.Regs.ES(), c.Regs.DI(), v, 1); err != nil {
			return err
		}
		c.Regs.SetSI(c.Regs.SI() + stringDelta(c.Regs.DF(), 1))
		c.Regs.SetDI(c.Regs.DI() + stringDelta(c.Regs.DF(), 1))
	}
	if !bare {
		c.Regs.SetCX(0)
	}
	return nil
}

func movsw(c *CPU, ctx *decodeCtx) error {
	n, bare := repCount(ctx, c)
	for i := uint16(0); i < n; i++ {
		v, err := c.Regs.ReadMem(ctx.effectiveSeg(SegDS, c.Regs), c.Regs.SI(), 2)
		if err != nil {
			return err
		}
		if err := c.Regs.WriteMem(c.Regs.ES(), c.Regs.DI(), v, 2); err != nil {
			return err
		}
		c.Regs.SetSI(c.Regs.SI() + stringDelta(c.Regs.DF(), 2))
		c.Regs.SetDI(c.Regs.DI() + stringDelta(c.Regs.DF(), 2))
	}
	if !bare {
		c.Regs.SetCX(0)
	}
	return nil
}

func stosb(c *CPU, ctx *decodeCtx) error {
	n, bare := repCount(ctx, c)
	for i := uint16(0); i < n; i++ {
		if err := c.Regs.WriteMem(c.Regs.ES(), c.Regs.DI(), uint64(c.Regs.AL()), 1); err != nil {
			return err
		}
		c.Regs.SetDI(c.Regs.DI() + stringDelta(c.Regs.DF(), 1))
	}
	if !bare {
		c.Regs.SetCX(0)
	}
	return nil
}

func stosw(c *CPU, ctx *decodeCtx) error {
	n, bare := repCount(ctx, c)
	for i := uint16(0); i < n; i++ {
		if err := c.Regs.WriteMem(c.Regs.ES(), c.Regs.DI(), uint64(c.Regs.AX()), 2); err != nil {
			return err
		}
		c.Regs.SetDI(c.Regs.DI() + stringDelta(c.Regs.DF(), 2))
	}
	if !bare {
		c.Regs.SetCX(0)
	}
	return nil
}

func lodsb(c *CPU, ctx *decodeCtx) error {
	v, err := c.Regs.ReadMem(ctx.effectiveSeg(SegDS, c.Regs), c.Regs.SI(), 1)
	if err != nil {
		return err
	}
	c.Regs.SetAL(byte(v))
	c.Regs.SetSI(c.Regs.SI() + stringDelta(c.Regs.DF(), 1))
	return nil
}

func lodsw(c *CPU, ctx *decodeCtx) error {
	v, err := c.Regs.ReadMem(ctx.effectiveSeg(SegDS, c.Regs), c.Regs.SI(), 2)
	if err != nil {
		return err
	}
	c.Regs.SetAX(uint16(v))
	c.Regs.SetSI(c.Regs.SI() + stringDelta(c.Regs.DF(), 2))
	return nil
}

// cmpsb/scasb honor REPE (0xF3) and REPNE (0xF2) as early-exit-on-flag
// loops rather than a fixed count, per the real semantics of those two
// prefixes on CMPS/SCAS (distinct from their use as bare repeat counts on
// MOVS/STOS/LODS).
// repTerminated consumes one CX decrement against the REPE/REPNE
// termination rule shared by CMPS/SCAS, returning true once the loop
// should stop (bare execution, CX exhausted, or the flag-based early exit
// fires).
func repTerminated(c *CPU, ctx *decodeCtx) bool {
	if ctx.rep == 0 {
		return true
	}
	cx := c.Regs.CX() - 1
	c.Regs.SetCX(cx)
	if cx == 0 {
		return true
	}
	if ctx.rep == 0xF3 && !c.Regs.ZF() {
		return true
	}
	if ctx.rep == 0xF2 && c.Regs.ZF() {
		return true
	}
	return false
}

func cmpsb(c *CPU, ctx *decodeCtx) error {
	if ctx.rep != 0 && c.Regs.CX() == 0 {
		return nil
	}
	for {
		a, err := c.Regs.ReadMem(ctx.effectiveSeg(SegDS, c.Regs), c.Regs.SI(), 1)
		if err != nil {
			return err
		}
		b, err := c.Regs.ReadMem(c.Regs.ES(), c.Regs.DI(), 1)
		if err != nil {
			return err
		}
		c.alu8(aluCMP, byte(a), byte(b))
		c.Regs.SetSI(c.Regs.SI() + stringDelta(c.Regs.DF(), 1))
		c.Regs.SetDI(c.Regs.DI() + stringDelta(c.Regs.DF(), 1))
		if repTerminated(c, ctx) {
			return nil
		}
	}
}

func cmpsw(c *CPU, ctx *decodeCtx) error {
	if ctx.rep != 0 && c.Regs.CX() == 0 {
		return nil
	}
	for {
		a, err := c.Regs.ReadMem(ctx.effectiveSeg(SegDS, c.Regs), c.Regs.SI(), 2)
		if err != nil {
			return err
		}
		b, err := c.Regs.ReadMem(c.Regs.ES(), c.Regs.DI(), 2)
		if err != nil {
			return err
		}
		c.alu16(aluCMP, uint16(a), uint16(b))
		c.Regs.SetSI(c.Regs.SI() + stringDelta(c.Regs.DF(), 2))
		c.Regs.SetDI(c.Regs.DI() + stringDelta(c.Regs.DF(), 2))
		if repTerminated(c, ctx) {
			return nil
		}
	}
}

func scasb(c *CPU, ctx *decodeCtx) error {
	if ctx.rep != 0 && c.Regs.CX() == 0 {
		return nil
	}
	for {
		b, err := c.Regs.ReadMem(c.Regs.ES(), c.Regs.DI(), 1)
		if err != nil {
			return err
		}
		c.alu8(aluCMP, c.Regs.AL(), byte(b))
		c.Regs.SetDI(c.Regs.DI() + stringDelta(c.Regs.DF(), 1))
		if repTerminated(c, ctx) {
			return nil
		}
	}
}

func scasw(c *CPU, ctx *decodeCtx) error {
	if ctx.rep != 0 && c.Regs.CX() == 0 {
		return nil
	}
	for {
		b, err := c.Regs.ReadMem(c.Regs.ES(), c.Regs.DI(), 2)
		if err != nil {
			return err
		}
		c.alu16(aluCMP, c.Regs.AX(), uint16(b))
		c.Regs.SetDI(c.Regs.DI() + stringDelta(c.Regs.DF(), 2))
		if repTerminated(c, ctx) {
			return nil
		}
	}
}

func stringDelta(df bool, width uint16) uint16 {
	if df {
		return -width
	}
	return width
}
