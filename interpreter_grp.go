// interpreter_grp.go - ModR/M-extension group opcodes: shifts/rotates
// (Group 2), TEST/NOT/NEG/MUL/IMUL/DIV/IDIV (Group 3), INC/DEC Eb
// (Group 4), and the indirect CALL/JMP/PUSH family (Group 5).
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later
//
// Grounded on the teacher's cpu_x86_grp.go shiftRotate8/16/32 and
// opGrp3_Eb/opGrp3_Ev/opGrp4_Eb/opGrp5_Ev, generalized to this
// interpreter's opHandler/decodeCtx/ModR/M shape.

package vmcore

// shift/rotate sub-op selectors, the ModR/M reg field values for Group 2.
const (
	rotROL = 0
	rotROR = 1
	rotRCL = 2
	rotRCR = 3
	rotSHL = 4
	rotSHR = 5
	rotSAL = 6 // same operation as SHL
	rotSAR = 7
)

func shiftRotate8(c *CPU, val byte, count byte, op byte) byte {
	count &= 0x1F
	if count == 0 {
		return val
	}
	var result byte
	switch op {
	case rotROL:
		n := count % 8
		result = (val << n) | (val >> (8 - n))
		c.Regs.SetFlag(FlagCF, result&1 != 0)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>7)^(result&1) != 0)
		}
	case rotROR:
		n := count % 8
		result = (val >> n) | (val << (8 - n))
		c.Regs.SetFlag(FlagCF, result&0x80 != 0)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>7)^((result>>6)&1) != 0)
		}
	case rotRCL:
		n := count % 9
		cf := byte(0)
		if c.Regs.CF() {
			cf = 1
		}
		for i := byte(0); i < n; i++ {
			newCF := val >> 7
			val = (val << 1) | cf
			cf = newCF
		}
		result = val
		c.Regs.SetFlag(FlagCF, cf != 0)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>7)^cf != 0)
		}
	case rotRCR:
		n := count % 9
		cf := byte(0)
		if c.Regs.CF() {
			cf = 1
		}
		for i := byte(0); i < n; i++ {
			newCF := val & 1
			val = (val >> 1) | (cf << 7)
			cf = newCF
		}
		result = val
		c.Regs.SetFlag(FlagCF, cf != 0)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>7)^((result>>6)&1) != 0)
		}
	case rotSHL, rotSAL:
		c.Regs.SetFlag(FlagCF, (val>>(8-count))&1 != 0)
		result = val << count
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>7)^(val>>7) != 0)
		}
		c.setFlagsLogic8(result)
	case rotSHR:
		c.Regs.SetFlag(FlagCF, (val>>(count-1))&1 != 0)
		result = val >> count
		if count == 1 {
			c.Regs.SetFlag(FlagOF, val&0x80 != 0)
		}
		c.setFlagsLogic8(result)
	case rotSAR:
		c.Regs.SetFlag(FlagCF, (val>>(count-1))&1 != 0)
		result = byte(int8(val) >> count)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, false)
		}
		c.setFlagsLogic8(result)
	}
	return result
}

func shiftRotate16(c *CPU, val uint16, count byte, op byte) uint16 {
	count &= 0x1F
	if count == 0 {
		return val
	}
	var result uint16
	switch op {
	case rotROL:
		n := count % 16
		result = (val << n) | (val >> (16 - n))
		c.Regs.SetFlag(FlagCF, result&1 != 0)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>15)^(result&1) != 0)
		}
	case rotROR:
		n := count % 16
		result = (val >> n) | (val << (16 - n))
		c.Regs.SetFlag(FlagCF, result&0x8000 != 0)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>15)^((result>>14)&1) != 0)
		}
	case rotRCL:
		n := count % 17
		cf := uint16(0)
		if c.Regs.CF() {
			cf = 1
		}
		for i := byte(0); i < n; i++ {
			newCF := val >> 15
			val = (val << 1) | cf
			cf = newCF
		}
		result = val
		c.Regs.SetFlag(FlagCF, cf != 0)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>15)^cf != 0)
		}
	case rotRCR:
		n := count % 17
		cf := uint16(0)
		if c.Regs.CF() {
			cf = 1
		}
		for i := byte(0); i < n; i++ {
			newCF := val & 1
			val = (val >> 1) | (cf << 15)
			cf = newCF
		}
		result = val
		c.Regs.SetFlag(FlagCF, cf != 0)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>15)^((result>>14)&1) != 0)
		}
	case rotSHL, rotSAL:
		c.Regs.SetFlag(FlagCF, (val>>(16-count))&1 != 0)
		result = val << count
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>15)^(val>>15) != 0)
		}
		c.setFlagsLogic16(result)
	case rotSHR:
		c.Regs.SetFlag(FlagCF, (val>>(count-1))&1 != 0)
		result = val >> count
		if count == 1 {
			c.Regs.SetFlag(FlagOF, val&0x8000 != 0)
		}
		c.setFlagsLogic16(result)
	case rotSAR:
		c.Regs.SetFlag(FlagCF, (val>>(count-1))&1 != 0)
		result = uint16(int16(val) >> count)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, false)
		}
		c.setFlagsLogic16(result)
	}
	return result
}

func shiftRotate32(c *CPU, val uint32, count byte, op byte) uint32 {
	count &= 0x1F
	if count == 0 {
		return val
	}
	var result uint32
	switch op {
	case rotROL:
		result = (val << count) | (val >> (32 - count))
		c.Regs.SetFlag(FlagCF, result&1 != 0)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>31)^(result&1) != 0)
		}
	case rotROR:
		result = (val >> count) | (val << (32 - count))
		c.Regs.SetFlag(FlagCF, result&0x80000000 != 0)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>31)^((result>>30)&1) != 0)
		}
	case rotRCL:
		cf := uint32(0)
		if c.Regs.CF() {
			cf = 1
		}
		for i := byte(0); i < count; i++ {
			newCF := val >> 31
			val = (val << 1) | cf
			cf = newCF
		}
		result = val
		c.Regs.SetFlag(FlagCF, cf != 0)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>31)^cf != 0)
		}
	case rotRCR:
		cf := uint32(0)
		if c.Regs.CF() {
			cf = 1
		}
		for i := byte(0); i < count; i++ {
			newCF := val & 1
			val = (val >> 1) | (cf << 31)
			cf = newCF
		}
		result = val
		c.Regs.SetFlag(FlagCF, cf != 0)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>31)^((result>>30)&1) != 0)
		}
	case rotSHL, rotSAL:
		c.Regs.SetFlag(FlagCF, (val>>(32-count))&1 != 0)
		result = val << count
		if count == 1 {
			c.Regs.SetFlag(FlagOF, (result>>31)^(val>>31) != 0)
		}
		c.setFlagsLogic32(result)
	case rotSHR:
		c.Regs.SetFlag(FlagCF, (val>>(count-1))&1 != 0)
		result = val >> count
		if count == 1 {
			c.Regs.SetFlag(FlagOF, val&0x80000000 != 0)
		}
		c.setFlagsLogic32(result)
	case rotSAR:
		c.Regs.SetFlag(FlagCF, (val>>(count-1))&1 != 0)
		result = uint32(int32(val) >> count)
		if count == 1 {
			c.Regs.SetFlag(FlagOF, false)
		}
		c.setFlagsLogic32(result)
	}
	return result
}

// grp2Eb builds the 0xC0/0xD0/0xD2 (Eb, count) handlers; countFn reads the
// shift count per the opcode's form (fixed 1, CL, or a fetched Ib).
func grp2Eb(countFn func(*CPU) (byte, error)) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		_, rm, err := c.readModRM(ctx)
		if err != nil {
			return err
		}
		val, err := c.readRM8(rm)
		if err != nil {
			return err
		}
		count, err := countFn(c)
		if err != nil {
			return err
		}
		return c.writeRM8(rm, shiftRotate8(c, val, count, ctx.reg))
	}
}

func grp2Ev(countFn func(*CPU) (byte, error)) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		_, rm, err := c.readModRM(ctx)
		if err != nil {
			return err
		}
		count, err := countFn(c)
		if err != nil {
			return err
		}
		if ctx.opSize32 {
			val, err := c.readRM32(rm)
			if err != nil {
				return err
			}
			return c.writeRM32(rm, shiftRotate32(c, val, count, ctx.reg))
		}
		val, err := c.readRM16(rm)
		if err != nil {
			return err
		}
		return c.writeRM16(rm, shiftRotate16(c, val, count, ctx.reg))
	}
}

func countOne(c *CPU) (byte, error)  { return 1, nil }
func countCL(c *CPU) (byte, error)   { return c.Regs.GP8(1), nil } // CL is GP8 index 1
func countFetch(c *CPU) (byte, error) { return c.fetch8() }

// grp3Eb implements TEST/NOT/NEG/MUL/IMUL/DIV/IDIV on an 8-bit operand
// (0xF6), selected by the ModR/M reg field.
func grp3Eb(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	val, err := c.readRM8(rm)
	if err != nil {
		return err
	}
	switch ctx.reg {
	case 0, 1:
		imm, err := c.fetch8()
		if err != nil {
			return err
		}
		c.setFlagsLogic8(val & imm)
	case 2:
		return c.writeRM8(rm, ^val)
	case 3:
		cf := val != 0
		r := byte(0) - val
		c.setFlagsArith8(0, val, r, true)
		c.Regs.SetFlag(FlagCF, cf)
		return c.writeRM8(rm, r)
	case 4:
		result := uint16(c.Regs.AL()) * uint16(val)
		c.Regs.SetAX(result)
		of := byte(result>>8) != 0
		c.Regs.SetFlag(FlagCF, of)
		c.Regs.SetFlag(FlagOF, of)
	case 5:
		result := int16(int8(c.Regs.AL())) * int16(int8(val))
		c.Regs.SetAX(uint16(result))
		signExt := int16(int8(byte(result)))
		of := result != signExt
		c.Regs.SetFlag(FlagCF, of)
		c.Regs.SetFlag(FlagOF, of)
	case 6:
		if val == 0 {
			return c.injectInterrupt(0, false)
		}
		dividend := c.Regs.AX()
		q, r := dividend/uint16(val), dividend%uint16(val)
		if q > 0xFF {
			return c.injectInterrupt(0, false)
		}
		c.Regs.SetAL(byte(q))
		c.Regs.SetAH(byte(r))
	case 7:
		if val == 0 {
			return c.injectInterrupt(0, false)
		}
		dividend := int16(c.Regs.AX())
		divisor := int16(int8(val))
		q, r := dividend/divisor, dividend%divisor
		if q > 127 || q < -128 {
			return c.injectInterrupt(0, false)
		}
		c.Regs.SetAL(byte(q))
		c.Regs.SetAH(byte(r))
	}
	return nil
}

// grp3Ev is the 16/32-bit form (0xF7) of Group 3.
func grp3Ev(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	if ctx.opSize32 {
		val, err := c.readRM32(rm)
		if err != nil {
			return err
		}
		switch ctx.reg {
		case 0, 1:
			imm, err := c.fetch32()
			if err != nil {
				return err
			}
			c.setFlagsLogic32(val & imm)
		case 2:
			return c.writeRM32(rm, ^val)
		case 3:
			cf := val != 0
			r := uint32(0) - val
			c.setFlagsArith32(0, val, r, true)
			c.Regs.SetFlag(FlagCF, cf)
			return c.writeRM32(rm, r)
		case 4:
			result := uint64(c.Regs.EAX()) * uint64(val)
			c.Regs.SetEAX(uint32(result))
			c.Regs.SetGP32(2, uint32(result>>32)) // EDX
			of := uint32(result>>32) != 0
			c.Regs.SetFlag(FlagCF, of)
			c.Regs.SetFlag(FlagOF, of)
		case 5:
			result := int64(int32(c.Regs.EAX())) * int64(int32(val))
			c.Regs.SetEAX(uint32(result))
			c.Regs.SetGP32(2, uint32(result>>32))
			signExt := int64(int32(uint32(result)))
			of := result != signExt
			c.Regs.SetFlag(FlagCF, of)
			c.Regs.SetFlag(FlagOF, of)
		case 6:
			if val == 0 {
				return c.injectInterrupt(0, false)
			}
			dividend := uint64(c.Regs.GP32(2))<<32 | uint64(c.Regs.EAX())
			q, r := dividend/uint64(val), dividend%uint64(val)
			if q > 0xFFFFFFFF {
				return c.injectInterrupt(0, false)
			}
			c.Regs.SetEAX(uint32(q))
			c.Regs.SetGP32(2, uint32(r))
		case 7:
			if val == 0 {
				return c.injectInterrupt(0, false)
			}
			dividend := int64(uint64(c.Regs.GP32(2))<<32 | uint64(c.Regs.EAX()))
			divisor := int64(int32(val))
			q, r := dividend/divisor, dividend%divisor
			if q > 0x7FFFFFFF || q < -0x80000000 {
				return c.injectInterrupt(0, false)
			}
			c.Regs.SetEAX(uint32(q))
			c.Regs.SetGP32(2, uint32(r))
		}
		return nil
	}

	val, err := c.readRM16(rm)
	if err != nil {
		return err
	}
	switch ctx.reg {
	case 0, 1:
		imm, err := c.fetch16()
		if err != nil {
			return err
		}
		c.setFlagsLogic16(val & imm)
	case 2:
		return c.writeRM16(rm, ^val)
	case 3:
		cf := val != 0
		r := uint16(0) - val
		c.setFlagsArith16(0, val, r, true)
		c.Regs.SetFlag(FlagCF, cf)
		return c.writeRM16(rm, r)
	case 4:
		result := uint32(c.Regs.AX()) * uint32(val)
		c.Regs.SetAX(uint16(result))
		c.Regs.SetDX(uint16(result >> 16))
		of := uint16(result>>16) != 0
		c.Regs.SetFlag(FlagCF, of)
		c.Regs.SetFlag(FlagOF, of)
	case 5:
		result := int32(int16(c.Regs.AX())) * int32(int16(val))
		c.Regs.SetAX(uint16(result))
		c.Regs.SetDX(uint16(result >> 16))
		signExt := int32(int16(uint16(result)))
		of := result != signExt
		c.Regs.SetFlag(FlagCF, of)
		c.Regs.SetFlag(FlagOF, of)
	case 6:
		if val == 0 {
			return c.injectInterrupt(0, false)
		}
		dividend := uint32(c.Regs.DX())<<16 | uint32(c.Regs.AX())
		q, r := dividend/uint32(val), dividend%uint32(val)
		if q > 0xFFFF {
			return c.injectInterrupt(0, false)
		}
		c.Regs.SetAX(uint16(q))
		c.Regs.SetDX(uint16(r))
	case 7:
		if val == 0 {
			return c.injectInterrupt(0, false)
		}
		dividend := int32(uint32(c.Regs.DX())<<16 | uint32(c.Regs.AX()))
		divisor := int32(int16(val))
		q, r := dividend/divisor, dividend%divisor
		if q > 32767 || q < -32768 {
			return c.injectInterrupt(0, false)
		}
		c.Regs.SetAX(uint16(q))
		c.Regs.SetDX(uint16(r))
	}
	return nil
}

// grp4Eb is 0xFE: only INC/DEC Eb are defined.
func grp4Eb(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	val, err := c.readRM8(rm)
	if err != nil {
		return err
	}
	cf := c.Regs.CF()
	var r byte
	switch ctx.reg {
	case 0:
		r = val + 1
		c.setFlagsArith8(val, 1, r, false)
	case 1:
		r = val - 1
		c.setFlagsArith8(val, 1, r, true)
	default:
		return nil
	}
	c.Regs.SetFlag(FlagCF, cf)
	return c.writeRM8(rm, r)
}

// grp5Ev is 0xFF: INC/DEC Ev, CALL/JMP near and far indirect, PUSH Ev.
func grp5Ev(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	switch ctx.reg {
	case 0, 1:
		cf := c.Regs.CF()
		if ctx.opSize32 {
			val, err := c.readRM32(rm)
			if err != nil {
				return err
			}
			var r uint32
			if ctx.reg == 0 {
				r = val + 1
				c.setFlagsArith32(val, 1, r, false)
			} else {
				r = val - 1
				c.setFlagsArith32(val, 1, r, true)
			}
			c.Regs.SetFlag(FlagCF, cf)
			return c.writeRM32(rm, r)
		}
		val, err := c.readRM16(rm)
		if err != nil {
			return err
		}
		var r uint16
		if ctx.reg == 0 {
			r = val + 1
			c.setFlagsArith16(val, 1, r, false)
		} else {
			r = val - 1
			c.setFlagsArith16(val, 1, r, true)
		}
		c.Regs.SetFlag(FlagCF, cf)
		return c.writeRM16(rm, r)
	case 2: // CALL Ev, near indirect
		target, err := c.readRM16(rm)
		if err != nil {
			return err
		}
		if err := c.Regs.Push16(uint16(c.Regs.IP)); err != nil {
			return err
		}
		c.Regs.IP = uint32(target)
		return nil
	case 3: // CALL Mp, far indirect
		if !rm.isMem {
			return &InternalError{Message: "far CALL requires a memory operand", Mod: ctx.mod, RM: ctx.rm, PC: ctx.startIP}
		}
		offset, err := c.Regs.ReadMem(rm.seg, rm.off, 2)
		if err != nil {
			return err
		}
		seg, err := c.Regs.ReadMem(rm.seg, rm.off+2, 2)
		if err != nil {
			return err
		}
		if err := c.Regs.Push16(c.Regs.CS()); err != nil {
			return err
		}
		if err := c.Regs.Push16(uint16(c.Regs.IP)); err != nil {
			return err
		}
		c.Regs.SetCS(uint16(seg))
		c.Regs.IP = uint32(offset)
		return nil
	case 4: // JMP Ev, near indirect
		target, err := c.readRM16(rm)
		if err != nil {
			return err
		}
		c.Regs.IP = uint32(target)
		return nil
	case 5: // JMP Mp, far indirect
		if !rm.isMem {
			return &InternalError{Message: "far JMP requires a memory operand", Mod: ctx.mod, RM: ctx.rm, PC: ctx.startIP}
		}
		offset, err := c.Regs.ReadMem(rm.seg, rm.off, 2)
		if err != nil {
			return err
		}
		seg, err := c.Regs.ReadMem(rm.seg, rm.off+2, 2)
		if err != nil {
			return err
		}
		c.Regs.SetCS(uint16(seg))
		c.Regs.IP = uint32(offset)
		return nil
	case 6: // PUSH Ev
		val, err := c.readRM16(rm)
		if err != nil {
			return err
		}
		return c.Regs.Push16(val)
	}
	return nil
}

// movzxGbEb/movzxGwEw/movsxGbEb/movsxGwEw implement 0x0F B6/B7/BE/BF.
func movzxGbEb(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	val, err := c.readRM8(rm)
	if err != nil {
		return err
	}
	if ctx.opSize32 {
		c.Regs.SetGP32(int(ctx.reg), uint32(val))
	} else {
		c.Regs.SetGP16(int(ctx.reg), uint16(val))
	}
	return nil
}

func movzxGwEw(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	val, err := c.readRM16(rm)
	if err != nil {
		return err
	}
	c.Regs.SetGP32(int(ctx.reg), uint32(val))
	return nil
}

func movsxGbEb(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	val, err := c.readRM8(rm)
	if err != nil {
		return err
	}
	sv := int8(val)
	if ctx.opSize32 {
		c.Regs.SetGP32(int(ctx.reg), uint32(int32(sv)))
	} else {
		c.Regs.SetGP16(int(ctx.reg), uint16(int16(sv)))
	}
	return nil
}

func movsxGwEw(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	val, err := c.readRM16(rm)
	if err != nil {
		return err
	}
	c.Regs.SetGP32(int(ctx.reg), uint32(int32(int16(val))))
	return nil
}

// movFromCR/movToCR implement 0x0F 20/22 (MOV Rd,Cd / MOV Cd,Rd). Only
// mod=3 register-direct operands are valid for control-register moves.
func movFromCR(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	var v uint32
	switch ctx.reg {
	case 0:
		v = c.Mode.CR0
	case 2:
		v = c.Mode.CR2
	case 3:
		v = c.Mode.CR3
	case 4:
		v = c.Mode.CR4
	default:
		return &InternalError{Message: "unsupported control register", Mod: ctx.mod, RM: ctx.reg, PC: ctx.startIP}
	}
	c.Regs.SetGP32(int(rm.reg), v)
	return nil
}

func movToCR(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	return c.Mode.WriteCR(int(ctx.reg), c.Regs.GP32(int(rm.reg)))
}

// grp0F01 implements the 0x0F 01 group, selected by the ModR/M reg field:
// /2 LGDT m16&32, /3 LIDT m16&32. Both load a 2-byte limit followed by a
// 4-byte base from the m16&32 memory operand into the mode manager's
// GDTR/IDTR, which re-evaluates the mode switch precondition on every load
// (spec §4.2: "after every CR/MSR/GDTR/IDTR write"). Without the 0x66
// operand-size override the base's top byte is forced to zero, matching
// real 16-bit-mode LGDT/LIDT behaviour. /0 SGDT, /1 SIDT, /4 SMSW, /6 LMSW
// are decoded (so IP still advances past the ModR/M) but left as no-ops:
// no boot path this core targets stores or loads the machine status word.
func grp0F01(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	switch ctx.reg {
	case 2, 3:
		if !rm.isMem {
			return &InternalError{Message: "LGDT/LIDT require a memory operand", Mod: ctx.mod, RM: ctx.rm, PC: ctx.startIP}
		}
		limit, err := c.Regs.ReadMem(rm.seg, rm.off, 2)
		if err != nil {
			return err
		}
		base, err := c.Regs.ReadMem(rm.seg, rm.off+2, 4)
		if err != nil {
			return err
		}
		if !ctx.opSize32 {
			base &^= 0xFF000000
		}
		if ctx.reg == 2 {
			c.Mode.LoadGDTR(base, uint16(limit))
		} else {
			c.Mode.LoadIDTR(base, uint16(limit))
		}
		return nil
	default:
		return nil
	}
}
