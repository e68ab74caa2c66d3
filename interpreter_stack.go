// interpreter_stack.go - PUSHA/POPA, PUSHF/POPF, LEAVE, segment-register
// PUSH/POP, and far/indirect control transfer forms not covered by the
// one-opcode-one-handler table in interpreter_ops.go.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later
//
// Grounded on the teacher's opPUSHA/opPOPA/opPUSHF/opPOPF/opLEAVE in
// cpu_x86_ops.go, trimmed to this interpreter's 16-bit-default real-mode
// register set (no EIP-width PUSHAD/POPAD path is exercised by the boot
// sequence this core targets).

package vmcore

func pushSeg(idx int) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		return c.Regs.Push16(c.Regs.Seg(idx))
	}
}

func popSeg(idx int) opHandler {
	return func(c *CPU, ctx *decodeCtx) error {
		v, err := c.Regs.Pop16()
		if err != nil {
			return err
		}
		c.Regs.SetSeg(idx, v)
		return nil
	}
}

// pusha pushes AX,CX,DX,BX,(original)SP,BP,SI,DI in that order.
func pusha(c *CPU, ctx *decodeCtx) error {
	sp := c.Regs.SP()
	vals := []uint16{c.Regs.AX(), c.Regs.CX(), c.Regs.DX(), c.Regs.BX(), sp, c.Regs.BP(), c.Regs.SI(), c.Regs.DI()}
	for _, v := range vals {
		if err := c.Regs.Push16(v); err != nil {
			return err
		}
	}
	return nil
}

// popa restores DI,SI,BP,(skip SP),BX,DX,CX,AX, the reverse order of pusha.
func popa(c *CPU, ctx *decodeCtx) error {
	di, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	si, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	bp, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	if _, err := c.Regs.Pop16(); err != nil { // discarded SP slot
		return err
	}
	bx, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	dx, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	cx, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	ax, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	c.Regs.SetDI(di)
	c.Regs.SetSI(si)
	c.Regs.SetBP(bp)
	c.Regs.SetBX(bx)
	c.Regs.SetDX(dx)
	c.Regs.SetCX(cx)
	c.Regs.SetAX(ax)
	return nil
}

func pushf(c *CPU, ctx *decodeCtx) error {
	return c.Regs.Push16(uint16(c.Regs.Flags))
}

func popf(c *CPU, ctx *decodeCtx) error {
	v, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	c.Regs.Flags = (c.Regs.Flags &^ 0xFFFF) | uint32(v)
	return nil
}

// leave undoes the standard ENTER-less frame setup: SP<-BP, then pop BP.
func leave(c *CPU, ctx *decodeCtx) error {
	c.Regs.SetSP(c.Regs.BP())
	bp, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	c.Regs.SetBP(bp)
	return nil
}

// popEv is 0x8F. Like the rest of this core's stack operations (PUSH/POP
// reg, PUSHA/POPA, CALL/RET), the stack pointer advances by 16-bit units
// regardless of the 0x66 operand-size prefix; no 32-bit SP path exists in
// this real-mode model.
func popEv(c *CPU, ctx *decodeCtx) error {
	_, rm, err := c.readModRM(ctx)
	if err != nil {
		return err
	}
	v, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	return c.writeRM16(rm, v)
}

// retImm16 is RET imm16 (0xC2): pop IP, then discard imm16 bytes of
// caller-supplied arguments from the stack.
func retImm16(c *CPU, ctx *decodeCtx) error {
	imm, err := c.fetch16()
	if err != nil {
		return err
	}
	ip, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	c.Regs.IP = uint32(ip)
	c.Regs.SetSP(c.Regs.SP() + imm)
	return nil
}

func retFar(c *CPU, ctx *decodeCtx) error {
	ip, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	cs, err := c.Regs.Pop16()
	if err != nil {
		return err
	}
	c.Regs.IP = uint32(ip)
	c.Regs.SetCS(cs)
	return nil
}

func retFarImm16(c *CPU, ctx *decodeCtx) error {
	imm, err := c.fetch16()
	if err != nil {
		return err
	}
	if err := retFar(c, ctx); err != nil {
		return err
	}
	c.Regs.SetSP(c.Regs.SP() + imm)
	return nil
}

// jmpFarPtr is 0xEA, JMP ptr16:16: an absolute offset:segment pair encoded
// directly in the instruction stream, not via ModR/M.
func jmpFarPtr(c *CPU, ctx *decodeCtx) error {
	offset, err := c.fetch16()
	if err != nil {
		return err
	}
	seg, err := c.fetch16()
	if err != nil {
		return err
	}
	c.Regs.IP = uint32(offset)
	c.Regs.SetCS(seg)
	return nil
}

// callFarPtr is 0x9A, CALL ptr16:16.
func callFarPtr(c *CPU, ctx *decodeCtx) error {
	offset, err := c.fetch16()
	if err != nil {
		return err
	}
	seg, err := c.fetch16()
	if err != nil {
		return err
	}
	if err := c.Regs.Push16(c.Regs.CS()); err != nil {
		return err
	}
	if err := c.Regs.Push16(uint16(c.Regs.IP)); err != nil {
		return err
	}
	c.Regs.SetCS(seg)
	c.Regs.IP = uint32(offset)
	return nil
}

func loopeRel8(c *CPU, ctx *decodeCtx) error {
	rel, err := c.fetch8()
	if err != nil {
		return err
	}
	cx := c.Regs.CX() - 1
	c.Regs.SetCX(cx)
	if cx != 0 && c.Regs.ZF() {
		c.Regs.IP = uint32(uint16(c.Regs.IP) + uint16(int16(int8(rel))))
	}
	return nil
}

func loopneRel8(c *CPU, ctx *decodeCtx) error {
	rel, err := c.fetch8()
	if err != nil {
		return err
	}
	cx := c.Regs.CX() - 1
	c.Regs.SetCX(cx)
	if cx != 0 && !c.Regs.ZF() {
		c.Regs.IP = uint32(uint16(c.Regs.IP) + uint16(int16(int8(rel))))
	}
	return nil
}

func jcxzRel8(c *CPU, ctx *decodeCtx) error {
	rel, err := c.fetch8()
	if err != nil {
		return err
	}
	if c.Regs.CX() == 0 {
		c.Regs.IP = uint32(uint16(c.Regs.IP) + uint16(int16(int8(rel))))
	}
	return nil
}

func opINTO(c *CPU, ctx *decodeCtx) error {
	if c.Regs.OF() {
		return c.injectInterrupt(4, true)
	}
	return nil
}
