// interpreter_modrm.go - ModR/M and SIB decoding, effective address computation
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

// operand describes a decoded ModR/M operand: either a register (reg
// holds the encoded index) or a memory location (mem holds seg:offset).
type operand struct {
	isMem bool
	reg   byte
	seg   uint16
	off   uint16
}

// readModRM fetches the ModR/M byte (and SIB/displacement as needed) and
// returns the register field plus an operand for r/m. Memory operands
// default to DS when no override prefix applies; BP-relative modes default
// to SS, matching real hardware.
func (c *CPU) readModRM(ctx *decodeCtx) (regField byte, rm operand, err error) {
	b, err := c.fetch8()
	if err != nil {
		return 0, operand{}, err
	}
	ctx.modrm = b
	ctx.haveModRM = true
	ctx.mod = b >> 6
	ctx.reg = (b >> 3) & 7
	ctx.rm = b & 7

	if ctx.mod == 3 {
		return ctx.reg, operand{isMem: false, reg: ctx.rm}, nil
	}

	if ctx.addrSize32 {
		o, err := c.decode32AddrMem(ctx)
		return ctx.reg, o, err
	}
	o, err := c.decode16AddrMem(ctx)
	return ctx.reg, o, err
}

// decode16AddrMem implements the classic 16-bit ModR/M addressing table
// (no SIB byte exists in this mode).
func (c *CPU) decode16AddrMem(ctx *decodeCtx) (operand, error) {
	var base uint16
	defSeg := SegDS

	switch ctx.rm {
	case 0:
		base = c.Regs.BX() + c.Regs.SI()
	case 1:
		base = c.Regs.BX() + c.Regs.DI()
	case 2:
		base = c.Regs.BP() + c.Regs.SI()
		defSeg = SegSS
	case 3:
		base = c.Regs.BP() + c.Regs.DI()
		defSeg = SegSS
	case 4:
		base = c.Regs.SI()
	case 5:
		base = c.Regs.DI()
	case 6:
		if ctx.mod == 0 {
			disp, err := c.fetch16()
			if err != nil {
				return operand{}, err
			}
			return operand{isMem: true, seg: ctx.effectiveSeg(SegDS, c.Regs), off: disp}, nil
		}
		base = c.Regs.BP()
		defSeg = SegSS
	case 7:
		base = c.Regs.BX()
	}

	var disp uint16
	switch ctx.mod {
	case 1:
		d, err := c.fetch8()
		if err != nil {
			return operand{}, err
		}
		disp = uint16(int16(int8(d)))
	case 2:
		d, err := c.fetch16()
		if err != nil {
			return operand{}, err
		}
		disp = d
	}

	return operand{isMem: true, seg: ctx.effectiveSeg(defSeg, c.Regs), off: base + disp}, nil
}

// decode32AddrMem implements 32-bit ModR/M+SIB addressing, reached via the
// 0x67 address-size override prefix. The computed linear offset is
// truncated to 16 bits for storage in operand.off, since this interpreter
// only models a 20-bit real-mode address space addressed as seg:off16;
// code using 32-bit addressing inside real mode relies on the low 16 bits
// matching, as real hardware does for wraparound-sensitive code.
func (c *CPU) decode32AddrMem(ctx *decodeCtx) (operand, error) {
	var base uint32
	defSeg := SegDS

	rm := ctx.rm
	if rm == 4 {
		sib, err := c.fetch8()
		if err != nil {
			return operand{}, err
		}
		scale := sib >> 6
		index := (sib >> 3) & 7
		baseField := sib & 7

		var idxVal uint32
		if index != 4 {
			idxVal = c.Regs.GP32(int(index)) << scale
		}
		if baseField == 5 && ctx.mod == 0 {
			d, err := c.fetch32()
			if err != nil {
				return operand{}, err
			}
			base = d + idxVal
		} else {
			base = c.Regs.GP32(int(baseField)) + idxVal
			if baseField == 5 {
				defSeg = SegSS
			}
		}
	} else if rm == 5 && ctx.mod == 0 {
		d, err := c.fetch32()
		if err != nil {
			return operand{}, err
		}
		base = d
	} else {
		base = c.Regs.GP32(int(rm))
		if rm == 5 {
			defSeg = SegSS
		}
	}

	switch ctx.mod {
	case 1:
		d, err := c.fetch8()
		if err != nil {
			return operand{}, err
		}
		base += uint32(int32(int8(d)))
	case 2:
		d, err := c.fetch32()
		if err != nil {
			return operand{}, err
		}
		base += d
	}

	return operand{isMem: true, seg: ctx.effectiveSeg(defSeg, c.Regs), off: uint16(base)}, nil
}

// readRM8/16/32 read the r/m operand's value at its declared width.
func (c *CPU) readRM8(o operand) (byte, error) {
	if !o.isMem {
		return c.Regs.GP8(o.reg), nil
	}
	v, err := c.Regs.ReadMem(o.seg, o.off, 1)
	return byte(v), err
}

func (c *CPU) readRM16(o operand) (uint16, error) {
	if !o.isMem {
		return c.Regs.GP16(int(o.reg)), nil
	}
	v, err := c.Regs.ReadMem(o.seg, o.off, 2)
	return uint16(v), err
}

func (c *CPU) readRM32(o operand) (uint32, error) {
	if !o.isMem {
		return c.Regs.GP32(int(o.reg)), nil
	}
	v, err := c.Regs.ReadMem(o.seg, o.off, 4)
	return uint32(v), err
}

func (c *CPU) writeRM8(o operand, v byte) error {
	if !o.isMem {
		c.Regs.SetGP8(o.reg, v)
		return nil
	}
	return c.Regs.WriteMem(o.seg, o.off, uint64(v), 1)
}

func (c *CPU) writeRM16(o operand, v uint16) error {
	if !o.isMem {
		c.Regs.SetGP16(int(o.reg), v)
		return nil
	}
	return c.Regs.WriteMem(o.seg, o.off, uint64(v), 2)
}

func (c *CPU) writeRM32(o operand, v uint32) error {
	if !o.isMem {
		c.Regs.SetGP32(int(o.reg), v)
		return nil
	}
	return c.Regs.WriteMem(o.seg, o.off, uint64(v), 4)
}
