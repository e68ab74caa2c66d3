// interpreter_flags.go - CMC/SAHF/LAHF/SALC and the BCD/FPU opcodes the
// spec requires to be decoded (consuming their operand bytes correctly so
// IP advances) but permits to be stubbed, since no boot path this core
// targets exercises real decimal or floating-point arithmetic.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later
//
// Grounded on the teacher's opSAHF/opLAHF/opCMC/opSALC/opDAA/opAAD in
// cpu_x86_ops.go for the flag-bit instructions; the BCD/FPU stub policy
// follows spec.md's own "may be stubbed" allowance rather than any teacher
// source (the teacher implements full decimal adjust semantics, which are
// out of scope here).

package vmcore

func opCMC(c *CPU, ctx *decodeCtx) error {
	c.Regs.SetFlag(FlagCF, !c.Regs.CF())
	return nil
}

// opSAHF loads the low byte of FLAGS from AH.
func opSAHF(c *CPU, ctx *decodeCtx) error {
	c.Regs.Flags = (c.Regs.Flags &^ 0xFF) | uint32(c.Regs.AH())
	return nil
}

// opLAHF stores the low byte of FLAGS into AH.
func opLAHF(c *CPU, ctx *decodeCtx) error {
	c.Regs.SetAH(byte(c.Regs.Flags))
	return nil
}

// opSALC is the undocumented 0xD6: AL <- 0xFF if CF else 0x00.
func opSALC(c *CPU, ctx *decodeCtx) error {
	if c.Regs.CF() {
		c.Regs.SetAL(0xFF)
	} else {
		c.Regs.SetAL(0)
	}
	return nil
}

// bcdNoOp consumes no operand bytes; AAA/AAS/DAA/DAS have none beyond the
// opcode itself. Flags are left as real hardware leaves them undefined
// for these inputs at this fidelity (§4.7.2 permits a stub).
func bcdNoOp(c *CPU, ctx *decodeCtx) error { return nil }

// bcdImm8NoOp consumes the trailing 0x0A base-immediate AAM/AAD carry
// without interpreting it.
func bcdImm8NoOp(c *CPU, ctx *decodeCtx) error {
	_, err := c.fetch8()
	return err
}

// fpuNoOp decodes (and discards) a full ModR/M + displacement for the
// D8-DF escape opcodes so instruction length stays correct; no FPU state
// exists in this core.
func fpuNoOp(c *CPU, ctx *decodeCtx) error {
	_, _, err := c.readModRM(ctx)
	return err
}
