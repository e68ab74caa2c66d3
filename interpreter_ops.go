// interpreter_ops.go - opcode handlers and dispatch table construction
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package vmcore

// parity reports the even-parity bit used by PF: true if the low byte of
// v has an even number of set bits.
func parity(v byte) bool {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v&1 == 0
}

func (c *CPU) setFlagsLogic8(v byte) {
	c.Regs.SetFlag(FlagCF, false)
	c.Regs.SetFlag(FlagOF, false)
	c.Regs.SetFlag(FlagZF, v == 0)
	c.Regs.SetFlag(FlagSF, v&0x80 != 0)
	c.Regs.SetFlag(FlagPF, parity(v))
}

func (c *CPU) setFlagsLogic16(v uint16) {
	c.Regs.SetFlag(FlagCF, false)
	c.Regs.SetFlag(FlagOF, false)
	c.Regs.SetFlag(FlagZF, v == 0)
	c.Regs.SetFlag(FlagSF, v&0x8000 != 0)
	c.Regs.SetFlag(FlagPF, parity(byte(v)))
}

func (c *CPU) setFlagsLogic32(v uint32) {
	c.Regs.SetFlag(FlagCF, false)
	c.Regs.SetFlag(FlagOF, false)
	c.Regs.SetFlag(FlagZF, v == 0)
	c.Regs.SetFlag(FlagSF, v&0x80000000 != 0)
	c.Regs.SetFlag(FlagPF, parity(byte(v)))
}

// setFlagsArith8 sets CF/OF/ZF/SF/PF for an 8-bit add (sub=false) or
// subtract (sub=true) of dst-src producing result.
func (c *CPU) setFlagsArith8(dst, src, result byte, sub bool) {
	if sub {
		c.Regs.SetFlag(FlagCF, dst < src)
		c.Regs.SetFlag(FlagOF, (dst^src)&0x80 != 0 && (dst^result)&0x80 != 0)
	} else {
		c.Regs.SetFlag(FlagCF, uint16(dst)+uint16(src) > 0xFF)
		c.Regs.SetFlag(FlagOF, (dst^result)&0x80 != 0 && (src^result)&0x80 == 0)
	}
	c.Regs.SetFlag(FlagZF, result == 0)
	c.Regs.SetFlag(FlagSF, result&0x80 != 0)
	c.Regs.SetFlag(FlagPF, parity(result))
}

func (c *CPU) setFlagsArith16(dst, src, result uint16, sub bool) {
	if sub {
		c.Regs.SetFlag(FlagCF, dst < src)
		c.Regs.SetFlag(FlagOF, (dst^src)&0x8000 != 0 && (dst^result)&0x8000 != 0)
	} else {
		c.Regs.SetFlag(FlagCF, uint32(dst)+uint32(src) > 0xFFFF)
		c.Regs.SetFlag(FlagOF, (dst^result)&0x8000 != 0 && (src^result)&0x8000 == 0)
	}
	c.Regs.SetFlag(FlagZF, result == 0)
	c.Regs.SetFlag(FlagSF, result&0x8000 != 0)
	c.Regs.SetFlag(FlagPF, parity(byte(result)))
}

func (c *CPU) setFlagsArith32(dst, src, result uint32, sub bool) {
	if sub {
		c.Regs.SetFlag(FlagCF, dst < src)
		c.Regs.SetFlag(FlagOF, (dst^src)&0x80000000 != 0 && (dst^result)&0x80000000 != 0)
	} else {
		c.Regs.SetFlag(FlagCF, uint64(dst)+uint64(src) > 0xFFFFFFFF)
		c.Regs.SetFlag(FlagOF, (dst^result)&0x80000000 != 0 && (src^result)&0x80000000 == 0)
	}
	c.Regs.SetFlag(FlagZF, result == 0)
	c.Regs.SetFlag(FlagSF, result&0x80000000 != 0)
	c.Regs.SetFlag(FlagPF, parity(byte(result)))
}

// aluOp names the eight Grp1-style arithmetic/logic operations sharing one
// Eb/Gb, Ev/Gv, AL/Ib, eAX/Iv encoding family, the same grouping the
// teacher's cpu_x86_grp.go uses for Grp1 (0x80-0x83).
type aluOp int

const (
	aluADD aluOp = iota
	aluOR
	aluADC
	aluSBB
	aluAND
	aluSUB
	aluXOR
	aluCMP
	aluTEST // AND for flags only, like aluCMP but for the logic family
)

func (c *CPU) alu8(op aluOp, dst, src byte) byte {
	var result uint16
	sub := false
	switch op {
	case aluADD:
		result = uint16(dst) + uint16(src)
	case aluOR:
		result = uint16(dst | src)
	case aluADC:
		cf := byte(0)
		if c.Regs.CF() {
			cf = 1
		}
		result = uint16(dst) + uint16(src) + uint16(cf)
	case aluSBB:
		cf := byte(0)
		if c.Regs.CF() {
			cf = 1
		}
		result = uint16(dst) - uint16(src) - uint16(cf)
		sub = true
	case aluAND, aluTEST:
		result = uint16(dst & src)
	case aluSUB, aluCMP:
		result = uint16(dst) - uint16(src)
		sub = true
	case aluXOR:
		result = uint16(dst ^ src)
	}
	r := byte(result)
	if op == aluOR || op == aluAND || op == aluXOR || op == aluTEST {
		c.setFlagsLogic8(r)
	} else {
		c.setFlagsArith8(dst, src, r, sub)
	}
	return r
}

func (c *CPU) alu16(op aluOp, dst, src uint16) uint16 {
	var result uint32
	sub := false
	switch op {
	case aluADD:
		result = uint32(dst) + uint32(src)
	case aluOR:
		result = uint32(dst | src)
	case aluADC:
		cf := uint32(0)
		if c.Regs.CF() {
			cf = 1
		}
		result = uint32(dst) + uint32(src) + cf
	case aluSBB:
		cf := uint32(0)
		if c.Regs.CF() {
			cf = 1
		}
		result = uint32(dst) - uint32(src) - cf
		sub = true
	case aluAND, aluTEST:
		result = uint32(dst & src)
	case aluSUB, aluCMP:
		result = uint32(dst) - uint32(src)
		sub = true
	case aluXOR:
		result = uint32(dst ^ src)
	}
	r := uint16(result)
	if op == aluOR || op == aluAND || op == aluXOR || op == aluTEST {
		c.setFlagsLogic16(r)
	} else {
		c.setFlagsArith16(dst, src, r, sub)
	}
	return r
}

func (c *CPU) alu32(op aluOp, dst, src uint32) uint32 {
	var result uint64
	sub := false
	switch op {
	case aluADD:
		result = uint64(dst) + uint64(src)
	case aluOR:
		result = uint64(dst | src)
	case aluADC:
		cf := uint64(0)
		if c.Regs.CF() {
			cf = 1
		}
		result = uint64(dst) + uint64(src) + cf
	case aluSBB:
		cf := uint64(0)
		if c.Regs.CF() {
			cf = 1
		}
		result = uint64(dst) - uint64(src) - cf
		sub = true
	case aluAND, aluTEST:
		result = uint64(dst & src)
	case aluSUB, aluCMP:
		result = uint64(dst) - uint64(src)
		sub = true
	case aluXOR:
		result = uint64(dst ^ src)
	}
	r := uint32(result)
	if op == aluOR || op == aluAND || op == aluXOR || op == aluTEST {
		c.setFlagsLogic32(r)
	} else {
		c.setFlagsArith32(dst, src, r, sub)
	}
	return r
}

// aluEbGb/aluEvGv/aluAlIb/aluEAXIv build the four-handler family shared by
// every Grp1 operation, generalized from cpu_x86_ops.go's opADD_Eb_Gb etc.
func aluEbGb(op aluOp) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		_, rm, err := c.readModRM(ctx)
		if err != nil {
			return err
		}
		dst, err := c.readRM8(rm)
		if err != nil {
			return err
		}
		src := c.Regs.GP8(ctx.reg)
		r := c.alu8(op, dst, src)
		if op != aluCMP && op != aluTEST {
			return c.writeRM8(rm, r)
		}
		return nil
	}
}

func aluGbEb(op aluOp) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		_, rm, err := c.readModRM(ctx)
		if err != nil {
			return err
		}
		src, err := c.readRM8(rm)
		if err != nil {
			return err
		}
		dst := c.Regs.GP8(ctx.reg)
		r := c.alu8(op, dst, src)
		if op != aluCMP && op != aluTEST {
			c.Regs.SetGP8(ctx.reg, r)
		}
		return nil
	}
}

func aluEvGv(op aluOp) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		_, rm, err := c.readModRM(ctx)
		if err != nil {
			return err
		}
		if ctx.opSize32 {
			dst, err := c.readRM32(rm)
			if err != nil {
				return err
			}
			r := c.alu32(op, dst, c.Regs.GP32(int(ctx.reg)))
			if op != aluCMP && op != aluTEST {
				return c.writeRM32(rm, r)
			}
			return nil
		}
		dst, err := c.readRM16(rm)
		if err != nil {
			return err
		}
		r := c.alu16(op, dst, c.Regs.GP16(int(ctx.reg)))
		if op != aluCMP && op != aluTEST {
			return c.writeRM16(rm, r)
		}
		return nil
	}
}

func aluGvEv(op aluOp) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		_, rm, err := c.readModRM(ctx)
		if err != nil {
			return err
		}
		if ctx.opSize32 {
			src, err := c.readRM32(rm)
			if err != nil {
				return err
			}
			r := c.alu32(op, c.Regs.GP32(int(ctx.reg)), src)
			if op != aluCMP && op != aluTEST {
				c.Regs.SetGP32(int(ctx.reg), r)
			}
			return nil
		}
		src, err := c.readRM16(rm)
		if err != nil {
			return err
		}
		r := c.alu16(op, c.Regs.GP16(int(ctx.reg)), src)
		if op != aluCMP && op != aluTEST {
			c.Regs.SetGP16(int(ctx.reg), r)
		}
		return nil
	}
}

func aluALIb(op aluOp) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		imm, err := c.fetch8()
		if err != nil {
			return err
		}
		r := c.alu8(op, c.Regs.AL(), imm)
		if op != aluCMP && op != aluTEST {
			c.Regs.SetAL(r)
		}
		return nil
	}
}

func aluEAXIv(op aluOp) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		if ctx.opSize32 {
			imm, err := c.fetch32()
			if err != nil {
				return err
			}
			r := c.alu32(op, c.Regs.EAX(), imm)
			if op != aluCMP && op != aluTEST {
				c.Regs.SetEAX(r)
			}
			return nil
		}
		imm, err := c.fetch16()
		if err != nil {
			return err
		}
		r := c.alu16(op, c.Regs.AX(), imm)
		if op != aluCMP && op != aluTEST {
			c.Regs.SetAX(r)
		}
		return nil
	}
}

// grp1EvIb/grp1EvIz implement the immediate-group ALU opcodes (0x80-0x83):
// the sub-operation is selected by the ModR/M reg field rather than by the
// opcode byte itself, per the teacher's cpu_x86_grp.go Grp1 dispatch.
func grp1EvIb(signExtend bool) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		_, rm, err := c.readModRM(ctx)
		if err != nil {
			return err
		}
		ib, err := c.fetch8()
		if err != nil {
			return err
		}
		op := aluOp(ctx.reg)
		if ctx.opSize32 {
			dst, err := c.readRM32(rm)
			if err != nil {
				return err
			}
			var imm uint32
			if signExtend {
				imm = uint32(int32(int8(ib)))
			} else {
				imm = uint32(ib)
			}
			r := c.alu32(op, dst, imm)
			if op != aluCMP && op != aluTEST {
				return c.writeRM32(rm, r)
			}
			return nil
		}
		dst, err := c.readRM16(rm)
		if err != nil {
			return err
		}
		var imm uint16
		if signExtend {
			imm = uint16(int16(int8(ib)))
		} else {
			imm = uint16(ib)
		}
		r := c.alu16(op, dst, imm)
		if op != aluCMP && op != aluTEST {
			return c.writeRM16(rm, r)
		}
		return nil
	}
}

func grp1EbIb(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	ib, err := c.fetch8()
	if err != nil {
		return err
	}
	op := aluOp(ctx.reg)
	dst, err := c.readRM8(rm)
	if err != nil {
		return err
	}
	r := c.alu8(op, dst, ib)
	if op != aluCMP && op != aluTEST {
		return c.writeRM8(rm, r)
	}
	return nil
}

// grp1EvIz is the 0x81 form: the immediate is a full operand-sized Iz
// (16 or 32 bits), unlike 0x80/0x83's single Ib — distinct fetch width,
// not a sign-extended byte.
func grp1EvIz(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	op := aluOp(ctx.reg)
	if ctx.opSize32 {
		dst, err := c.readRM32(rm)
		if err != nil {
			return err
		}
		imm, err := c.fetch32()
		if err != nil {
			return err
		}
		r := c.alu32(op, dst, imm)
		if op != aluCMP && op != aluTEST {
			return c.writeRM32(rm, r)
		}
		return nil
	}
	dst, err := c.readRM16(rm)
	if err != nil {
		return err
	}
	imm, err := c.fetch16()
	if err != nil {
		return err
	}
	r := c.alu16(op, dst, imm)
	if op != aluCMP && op != aluTEST {
		return c.writeRM16(rm, r)
	}
	return nil
}

// ---------------------------------------------------------------------
// MOV family
// ---------------------------------------------------------------------

func movEbGb(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	return c.writeRM8(rm, c.Regs.GP8(ctx.reg))
}

func movGbEb(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	v, err := c.readRM8(rm)
	if err != nil {
		return err
	}
	c.Regs.SetGP8(ctx.reg, v)
	return nil
}

func movEvGv(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	if ctx.opSize32 {
		return c.writeRM32(rm, c.Regs.GP32(int(ctx.reg)))
	}
	return c.writeRM16(rm, c.Regs.GP16(int(ctx.reg)))
}

func movGvEv(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	if ctx.opSize32 {
		v, err := c.readRM32(rm)
		if err != nil {
			return err
		}
		c.Regs.SetGP32(int(ctx.reg), v)
		return nil
	}
	v, err := c.readRM16(rm)
	if err != nil {
		return err
	}
	c.Regs.SetGP16(int(ctx.reg), v)
	return nil
}

// movRegIb/movRegIv build the 8x register-encoded-in-opcode MOV immediate
// forms (0xB0-0xBF), the same closure-over-register-index idiom
// cpu_x86.go uses for its register-indexed opcode variants.
func movRegIb(reg byte) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		v, err := c.fetch8()
		if err != nil {
			return err
		}
		c.Regs.SetGP8(reg, v)
		return nil
	}
}

func movRegIv(reg int) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		if ctx.opSize32 {
			v, err := c.fetch32()
			if err != nil {
				return err
			}
			c.Regs.SetGP32(reg, v)
			return nil
		}
		v, err := c.fetch16()
		if err != nil {
			return err
		}
		c.Regs.SetGP16(reg, v)
		return nil
	}
}

func movEvIz(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	if ctx.opSize32 {
		imm, err := c.fetch32()
		if err != nil {
			return err
		}
		return c.writeRM32(rm, imm)
	}
	imm, err := c.fetch16()
	if err != nil {
		return err
	}
	return c.writeRM16(rm, imm)
}

func movEbIb(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	imm, err := c.fetch8()
	if err != nil {
		return err
	}
	return c.writeRM8(rm, imm)
}

// ---------------------------------------------------------------------
// INC/DEC, PUSH/POP
// ---------------------------------------------------------------------

func incReg16(reg int) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		v := c.Regs.GP16(reg)
		r := v + 1
		c.Regs.SetGP16(reg, r)
		cf := c.Regs.CF()
		c.setFlagsArith16(v, 1, r, false)
		c.Regs.SetFlag(FlagCF, cf)
		return nil
	}
}

func decReg16(reg int) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		v := c.Regs.GP16(reg)
		r := v - 1
		c.Regs.SetGP16(reg, r)
		cf := c.Regs.CF()
		c.setFlagsArith16(v, 1, r, true)
		c.Regs.SetFlag(FlagCF, cf)
		return nil
	}
}

func pushReg16(reg int) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		return c.Regs.Push16(c.Regs.GP16(reg))
	}
}

func popReg16(reg int) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		v, err := c.Regs.Pop16()
		if err != nil {
			return err
		}
		c.Regs.SetGP16(reg, v)
		return nil
	}
}

func pushImm16(c *CPU, ctx *decodeCtx) error {
	imm, err := c.fetch16()
	if err != nil {
		return err
	}
	return c.Regs.Push16(imm)
}

func pushImm8(c *CPU, ctx *decodeCtx) error {
	imm, err := c.fetch8()
	if err != nil {
		return err
	}
	return c.Regs.Push16(uint16(int16(int8(imm))))
}

// ---------------------------------------------------------------------
// Control flow: Jcc, JMP, CALL, RET, LOOP
// ---------------------------------------------------------------------

func jccRel8(cond func(*CPU) bool) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		rel, err := c.fetch8()
		if err != nil {
			return err
		}
		if cond(c) {
			c.Regs.IP = uint32(uint16(c.Regs.IP) + uint16(int16(int8(rel))))
		}
		return nil
	}
}

func jmpRel8(c *CPU, ctx *decodeCtx) error {
	rel, err := c.fetch8()
	if err != nil {
		return err
	}
	c.Regs.IP = uint32(uint16(c.Regs.IP) + uint16(int16(int8(rel))))
	return nil
}

// jmpRel16 is JMP rel16, or JMP rel32 when the 0x66 operand-size prefix
// widens the relative displacement.
func jmpRel16(c *CPU, ctx *decodeCtx) error {
	if ctx.opSize32 {
		rel, err := c.fetch32()
		if err != nil {
			return err
		}
		c.Regs.IP = c.Regs.IP + rel
		return nil
	}
	rel, err := c.fetch16()
	if err != nil {
		return err
	}
	c.Regs.IP = uint32(uint16(c.Regs.IP) + rel)
	return nil
}

func callRel16(c *CPU, ctx *decodeCtx) error {
	if ctx.opSize32 {
		rel, err := c.fetch32()
		if err != nil {
			return err
		}
		if err := c.Regs.Push16(uint16(c.Regs.IP)); err != nil {
			return err
		}
		c.Regs.IP = c.Regs.IP + rel
		return nil
	}
	rel, err := c.fetch16()
	if err != nil {
		return err
	}
	if err := c.Regs.Push16(uint16(c.Regs.IP)); err != nil {
		return err
	}
	c.Regs.IP = uint32(uint16(c.Regs.IP) + rel)
	return nil
}

func retNear(c *CPU, ctx *decodeCtx) error {
	ip, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	c.Regs.IP = uint32(ip)
	return nil
}

func loopRel8(c *CPU, ctx *decodeCtx) error {
	rel, err := c.fetch8()
	if err != nil {
		return err
	}
	cx := c.Regs.CX() - 1
	c.Regs.SetCX(cx)
	if cx != 0 {
		c.Regs.IP = uint32(uint16(c.Regs.IP) + uint16(int16(int8(rel))))
	}
	return nil
}

// ---------------------------------------------------------------------
// Misc: HLT, flag-bit instructions, INT, NOP
// ---------------------------------------------------------------------

func opHLT(c *CPU, ctx *decodeCtx) error {
	c.halted.Store(true)
	return nil
}

func opCLI(c *CPU, ctx *decodeCtx) error { c.Regs.SetFlag(FlagIF, false); return nil }
func opSTI(c *CPU, ctx *decodeCtx) error { c.Regs.SetFlag(FlagIF, true); return nil }
func opCLD(c *CPU, ctx *decodeCtx) error { c.Regs.SetFlag(FlagDF, false); return nil }
func opSTD(c *CPU, ctx *decodeCtx) error { c.Regs.SetFlag(FlagDF, true); return nil }
func opCLC(c *CPU, ctx *decodeCtx) error { c.Regs.SetFlag(FlagCF, false); return nil }
func opSTC(c *CPU, ctx *decodeCtx) error { c.Regs.SetFlag(FlagCF, true); return nil }
func opNOP(c *CPU, ctx *decodeCtx) error { return nil }

func opINT(c *CPU, ctx *decodeCtx) error {
	vector, err := c.fetch8()
	if err != nil {
		return err
	}
	return c.injectInterrupt(vector, true)
}

func opINT3(c *CPU, ctx *decodeCtx) error { return c.injectInterrupt(3, true) }

// ---------------------------------------------------------------------
// Dispatch table construction
// ---------------------------------------------------------------------

// initOps builds the one-byte opcode table, the same way cpu_x86.go's
// initBaseOps/initExtendedOps build CPU_X86.opcodes: one explicit
// assignment per byte value, grouped by instruction family.
func (c *CPU) initOps() {
	t := &c.opTable

	// ALU family, Eb/Gb,Gb/Eb,Ev/Gv,Gv/Ev,AL/Ib,eAX/Iv x 8 ops, 0x00-0x3D.
	bases := []byte{0x00, 0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38}
	ops := []aluOp{aluADD, aluOR, aluADC, aluSBB, aluAND, aluSUB, aluXOR, aluCMP}
	for i, base := range bases {
		op := ops[i]
		t[base+0] = aluEbGb(op)
		t[base+1] = aluEvGv(op)
		t[base+2] = aluGbEb(op)
		t[base+3] = aluGvEv(op)
		t[base+4] = aluALIb(op)
		t[base+5] = aluEAXIv(op)
	}

	t[0x80] = grp1EbIb
	t[0x81] = grp1EvIz
	t[0x83] = grp1EvIb(true)

	t[0x88] = movEbGb
	t[0x89] = movEvGv
	t[0x8A] = movGbEb
	t[0x8B] = movGvEv
	t[0xC6] = movEbIb
	t[0xC7] = movEvIz

	for r := 0; r < 8; r++ {
		t[0x50+r] = pushReg16(r)
		t[0x58+r] = popReg16(r)
		t[0x40+r] = incReg16(r)
		t[0x48+r] = decReg16(r)
		t[0xB0+r] = movRegIb(byte(r))
		t[0xB8+r] = movRegIv(r)
	}
	t[0x68] = pushImm16
	t[0x6A] = pushImm8

	t[0xE8] = callRel16
	t[0xE9] = jmpRel16
	t[0xEB] = jmpRel8
	t[0xC3] = retNear
	t[0xE2] = loopRel8

	// Jcc rel8, 0x70-0x7F, standard condition predicates.
	t[0x70] = jccRel8(func(c *CPU) bool { return c.Regs.OF() })
	t[0x71] = jccRel8(func(c *CPU) bool { return !c.Regs.OF() })
	t[0x72] = jccRel8(func(c *CPU) bool { return c.Regs.CF() })
	t[0x73] = jccRel8(func(c *CPU) bool { return !c.Regs.CF() })
	t[0x74] = jccRel8(func(c *CPU) bool { return c.Regs.ZF() })
	t[0x75] = jccRel8(func(c *CPU) bool { return !c.Regs.ZF() })
	t[0x76] = jccRel8(func(c *CPU) bool { return c.Regs.CF() || c.Regs.ZF() })
	t[0x77] = jccRel8(func(c *CPU) bool { return !c.Regs.CF() && !c.Regs.ZF() })
	t[0x78] = jccRel8(func(c *CPU) bool { return c.Regs.SF() })
	t[0x79] = jccRel8(func(c *CPU) bool { return !c.Regs.SF() })
	t[0x7A] = jccRel8(func(c *CPU) bool { return c.Regs.PF() })
	t[0x7B] = jccRel8(func(c *CPU) bool { return !c.Regs.PF() })
	t[0x7C] = jccRel8(func(c *CPU) bool { return c.Regs.SF() != c.Regs.OF() })
	t[0x7D] = jccRel8(func(c *CPU) bool { return c.Regs.SF() == c.Regs.OF() })
	t[0x7E] = jccRel8(func(c *CPU) bool { return c.Regs.ZF() || c.Regs.SF() != c.Regs.OF() })
	t[0x7F] = jccRel8(func(c *CPU) bool { return !c.Regs.ZF() && c.Regs.SF() == c.Regs.OF() })

	t[0xF4] = opHLT
	t[0xFA] = opCLI
	t[0xFB] = opSTI
	t[0xFC] = opCLD
	t[0xFD] = opSTD
	t[0xF8] = opCLC
	t[0xF9] = opSTC
	t[0x90] = opNOP
	t[0xCC] = opINT3
	t[0xCD] = opINT
	t[0xCF] = func(c *CPU, ctx *decodeCtx) error { return c.Iret() }

	t[0xA4] = movsb
	t[0xA5] = movsw
	t[0xAA] = stosb
	t[0xAB] = stosw
	t[0xAC] = lodsb
	t[0xAD] = lodsw
	t[0xA6] = cmpsb
	t[0xA7] = cmpsw
	t[0xAE] = scasb
	t[0xAF] = scasw

	// TEST, direct forms (0x84/0x85 Eb/Gb,Ev/Gv; 0xA8/0xA9 AL/Ib,eAX/Iv),
	// reusing the Grp1-style handler builders with the logic-only aluTEST op.
	t[0x84] = aluEbGb(aluTEST)
	t[0x85] = aluEvGv(aluTEST)
	t[0xA8] = aluALIb(aluTEST)
	t[0xA9] = aluEAXIv(aluTEST)

	// Group 2: shift/rotate, 0xC0/0xC1 (Ib count), 0xD0/0xD1 (count 1),
	// 0xD2/0xD3 (count CL).
	t[0xC0] = grp2Eb(countFetch)
	t[0xC1] = grp2Ev(countFetch)
	t[0xD0] = grp2Eb(countOne)
	t[0xD1] = grp2Ev(countOne)
	t[0xD2] = grp2Eb(countCL)
	t[0xD3] = grp2Ev(countCL)

	// Group 3 (TEST/NOT/NEG/MUL/IMUL/DIV/IDIV), Group 4 (INC/DEC Eb),
	// Group 5 (INC/DEC/CALL/JMP/PUSH Ev).
	t[0xF6] = grp3Eb
	t[0xF7] = grp3Ev
	t[0xFE] = grp4Eb
	t[0xFF] = grp5Ev

	// Segment register PUSH/POP.
	t[0x06] = pushSeg(SegES)
	t[0x07] = popSeg(SegES)
	t[0x0E] = pushSeg(SegCS)
	t[0x16] = pushSeg(SegSS)
	t[0x17] = popSeg(SegSS)
	t[0x1E] = pushSeg(SegDS)
	t[0x1F] = popSeg(SegDS)

	// PUSHA/POPA, PUSHF/POPF, SAHF/LAHF, LEAVE, POP Ev.
	t[0x60] = pusha
	t[0x61] = popa
	t[0x9C] = pushf
	t[0x9D] = popf
	t[0x9E] = opSAHF
	t[0x9F] = opLAHF
	t[0xC9] = leave
	t[0x8F] = popEv

	// RET imm16, RETF, RETF imm16.
	t[0xC2] = retImm16
	t[0xCB] = retFar
	t[0xCA] = retFarImm16

	// Far JMP/CALL, direct ptr16:16 forms.
	t[0xEA] = jmpFarPtr
	t[0x9A] = callFarPtr

	// LOOPE/LOOPNE, JCXZ, INTO.
	t[0xE0] = loopneRel8
	t[0xE1] = loopeRel8
	t[0xE3] = jcxzRel8
	t[0xCE] = opINTO

	// CMC, SALC (undocumented).
	t[0xF5] = opCMC
	t[0xD6] = opSALC

	// BCD adjust: full semantics out of scope, decoded as no-ops.
	t[0x27] = bcdNoOp // DAA
	t[0x2F] = bcdNoOp // DAS
	t[0x37] = bcdNoOp // AAA
	t[0x3F] = bcdNoOp // AAS
	t[0xD4] = bcdImm8NoOp // AAM
	t[0xD5] = bcdImm8NoOp // AAD

	// FPU escape opcodes: decoded (ModR/M consumed) but not executed.
	for op := byte(0xD8); op <= 0xDF; op++ {
		t[op] = fpuNoOp
	}

	// Port I/O.
	t[0xE4] = inALImm8
	t[0xE5] = inAXImm8
	t[0xE6] = outImm8AL
	t[0xE7] = outImm8AX
	t[0xEC] = inALDX
	t[0xED] = inAXDX
	t[0xEE] = outDXAL
	t[0xEF] = outDXAX
	t[0x6C] = insb
	t[0x6D] = insw
	t[0x6E] = outsb
	t[0x6F] = outsw
}

// initOps0F builds the two-byte 0x0F-prefixed table: MOVZX/MOVSX, MOV
// to/from control registers, and the LGDT/LIDT group. Anything wider (SSE,
// CPUID, extended Jcc) follows this core's lenient unknown-opcode policy.
func (c *CPU) initOps0F() {
	t := &c.op0FTable
	t[0xB6] = movzxGbEb
	t[0xB7] = movzxGwEw
	t[0xBE] = movsxGbEb
	t[0xBF] = movsxGwEw
	t[0x20] = movFromCR
	t[0x22] = movToCR
	t[0x01] = grp0F01
}
