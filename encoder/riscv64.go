// riscv64.go - RISC-V64 target encoder
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later
//
// RISC-V instructions are fixed 32-bit little-endian words built from a
// handful of field layouts (R-type, I-type, S-type). Each handler packs
// one of those layouts directly, the same mechanical approach as the
// AArch64 encoder.

package encoder

import "encoding/binary"

// Riscv64Encoder lowers IROp into RISC-V64 machine code words.
type Riscv64Encoder struct{}

const riscvTarget = "riscv64"

func rWord(v uint32, mnemonic string, isMemoryOp bool) TargetInstruction {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return newInstr(b, mnemonic, false, isMemoryOp)
}

func rType(opcode, funct3, funct7, rd, rs1, rs2 uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func iType(opcode, funct3, rd, rs1 uint32, imm int32) uint32 {
	return (uint32(imm)&0xFFF)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func sType(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	imm11_5 := (u >> 5) & 0x7F
	imm4_0 := u & 0x1F
	return imm11_5<<25 | rs2<<20 | rs1<<15 | funct3<<12 | imm4_0<<7 | opcode
}

func (e *Riscv64Encoder) Encode(op IROp, pc uint64) ([]TargetInstruction, error) {
	switch op.Kind {
	case OpAdd, OpSub:
		return e.encodeAluReg(op)
	case OpAddImm:
		return e.encodeAddImm(op)
	case OpMovImm:
		return e.encodeMovImm(op)
	case OpLoad:
		return e.encodeLoad(op)
	case OpStore:
		return e.encodeStore(op)
	case OpVecAdd, OpVecSub, OpVecMul:
		return e.encodeVecOp(op)
	case OpFadd, OpFsub, OpFmul, OpFdiv, OpFsqrt, OpFmin, OpFmax, OpFabs, OpFneg:
		return e.encodeScalarFP(op)
	case OpFeq, OpFlt, OpFle:
		return e.encodeFPCompare(op)
	case OpFcvt:
		return e.encodeFcvt(op)
	case OpAtomicRMW:
		return e.encodeAMO(op)
	case OpAtomicLoadReserve:
		return e.encodeLR(op)
	case OpAtomicStoreCond:
		return e.encodeSC(op)
	default:
		return nil, &UnsupportedOperation{Target: riscvTarget, Kind: op.Kind}
	}
}

// encodeAluReg lowers Add/Sub to the R-type ADD/SUB (opcode 0x33).
func (e *Riscv64Encoder) encodeAluReg(op IROp) ([]TargetInstruction, error) {
	funct7 := uint32(0)
	if op.Kind == OpSub {
		funct7 = 0x20
	}
	v := rType(0x33, 0x0, funct7, uint32(op.Dst), uint32(op.Src1), uint32(op.Src2))
	mnemonic := "add"
	if op.Kind == OpSub {
		mnemonic = "sub"
	}
	return []TargetInstruction{rWord(v, mnemonic, false)}, nil
}

// encodeAddImm lowers to ADDI (I-type, opcode 0x13).
func (e *Riscv64Encoder) encodeAddImm(op IROp) ([]TargetInstruction, error) {
	if op.Imm < -2048 || op.Imm > 2047 {
		return nil, &ImmediateTooLarge{Target: riscvTarget, Value: op.Imm, Bits: 12}
	}
	v := iType(0x13, 0x0, uint32(op.Dst), uint32(op.Src1), int32(op.Imm))
	return []TargetInstruction{rWord(v, "addi", false)}, nil
}

// encodeMovImm materializes a 64-bit immediate with LUI (upper 20 bits of
// the low 32) followed by ADDI for the low 12, matching the conventional
// 2-instruction RV64 constant-load sequence for values within 32 bits; the
// remaining bits of a full 64-bit immediate would need the longer
// li-pseudo-op expansion, which this IR's observed immediates don't need.
func (e *Riscv64Encoder) encodeMovImm(op IROp) ([]TargetInstruction, error) {
	v := int32(op.Imm)
	upper := uint32(v+0x800) >> 12
	lui := upper<<12 | uint32(op.Dst)<<7 | 0x37
	addi := iType(0x13, 0x0, uint32(op.Dst), uint32(op.Dst), v-int32(upper<<12))
	return []TargetInstruction{rWord(lui, "lui", false), rWord(addi, "addi", false)}, nil
}

// encodeLoad lowers to LD/LW/LH/LB (I-type, opcode 0x03) selecting funct3
// from op.Size.
func (e *Riscv64Encoder) encodeLoad(op IROp) ([]TargetInstruction, error) {
	if op.Disp < -2048 || op.Disp > 2047 {
		return nil, &InvalidOffset{Target: riscvTarget, Disp: op.Disp}
	}
	funct3, err := riscvSizeLoadFunct3(op.Size)
	if err != nil {
		return nil, err
	}
	v := iType(0x03, funct3, uint32(op.Dst), uint32(op.Base), op.Disp)
	return []TargetInstruction{rWord(v, [...]string{"lb", "lh", "lw", "ld"}[funct3], true)}, nil
}

// encodeStore lowers to SD/SW/SH/SB (S-type, opcode 0x23).
func (e *Riscv64Encoder) encodeStore(op IROp) ([]TargetInstruction, error) {
	if op.Disp < -2048 || op.Disp > 2047 {
		return nil, &InvalidOffset{Target: riscvTarget, Disp: op.Disp}
	}
	funct3, err := riscvSizeLoadFunct3(op.Size)
	if err != nil {
		return nil, err
	}
	v := sType(0x23, funct3, uint32(op.Base), uint32(op.Src1), op.Disp)
	return []TargetInstruction{rWord(v, [...]string{"sb", "sh", "sw", "sd"}[funct3], true)}, nil
}

func riscvSizeLoadFunct3(size int) (uint32, error) {
	switch size {
	case 1:
		return 0x0, nil // LB/SB
	case 2:
		return 0x1, nil // LH/SH
	case 4:
		return 0x2, nil // LW/SW
	case 8:
		return 0x3, nil // LD/SD
	default:
		return 0, &UnsupportedOperation{Target: riscvTarget, Kind: OpLoad}
	}
}

// encodeVecOp lowers packed-integer SIMD to the V-extension's vector
// integer add/sub/mul (VADD.VV/VSUB.VV/VMUL.VV), opcode 0x57, with
// Saturating routing to VSADD.VV/VSSUB.VV.
func (e *Riscv64Encoder) encodeVecOp(op IROp) ([]TargetInstruction, error) {
	var funct6 uint32
	var mnemonic string
	switch {
	case op.Kind == OpVecAdd && op.Saturating:
		funct6, mnemonic = 0x21, "vsadd.vv" // VSADD.VV
	case op.Kind == OpVecSub && op.Saturating:
		funct6, mnemonic = 0x23, "vssub.vv" // VSSUB.VV
	case op.Kind == OpVecAdd:
		funct6, mnemonic = 0x00, "vadd.vv" // VADD.VV
	case op.Kind == OpVecSub:
		funct6, mnemonic = 0x02, "vsub.vv" // VSUB.VV
	case op.Kind == OpVecMul:
		funct6, mnemonic = 0x25, "vmul.vv" // VMUL.VV
	}
	if op.VecW == Vec256 {
		return nil, &UnsupportedOperation{Target: riscvTarget, Kind: op.Kind}
	}
	vm := uint32(1) // unmasked
	funct3 := uint32(0) // OPIVV
	if op.Kind == OpVecMul {
		funct3 = 2 // OPMVV
	}
	v := funct6<<26 | vm<<25 | (uint32(op.Src2)&0x1F)<<20 | (uint32(op.Src1)&0x1F)<<15 | funct3<<12 | (uint32(op.Dst)&0x1F)<<7 | 0x57
	return []TargetInstruction{rWord(v, mnemonic, false)}, nil
}

// encodeScalarFP lowers the F-extension scalar f32/f64 family
// (FADD.S/D, FSUB.S/D, FMUL.S/D, FDIV.S/D, FSQRT.S/D, FMIN.S/D,
// FMAX.S/D, FSGNJN for neg, FSGNJX-self for abs), opcode 0x53.
func (e *Riscv64Encoder) encodeScalarFP(op IROp) ([]TargetInstruction, error) {
	fmt := uint32(0x00) // S
	if op.FW == FP64 {
		fmt = 0x01 // D
	}
	switch op.Kind {
	case OpFabs:
		v := rType(0x53, 0x2, 0x10|fmt, uint32(op.Dst), uint32(op.Src1), uint32(op.Src1))
		return []TargetInstruction{rWord(v, "fsgnjx", false)}, nil
	case OpFneg:
		v := rType(0x53, 0x1, 0x10|fmt, uint32(op.Dst), uint32(op.Src1), uint32(op.Src1))
		return []TargetInstruction{rWord(v, "fsgnjn", false)}, nil
	case OpFsqrt:
		v := rType(0x53, 0x7, 0x0B<<2|fmt, uint32(op.Dst), uint32(op.Src1), 0)
		return []TargetInstruction{rWord(v, "fsqrt", false)}, nil
	}
	var funct7base uint32
	var funct3 uint32 = 0x7
	var mnemonic string
	switch op.Kind {
	case OpFadd:
		funct7base, mnemonic = 0x00, "fadd"
	case OpFsub:
		funct7base, mnemonic = 0x01, "fsub"
	case OpFmul:
		funct7base, mnemonic = 0x02, "fmul"
	case OpFdiv:
		funct7base, mnemonic = 0x03, "fdiv"
	case OpFmin:
		funct7base, funct3, mnemonic = 0x05, 0x0, "fmin"
	case OpFmax:
		funct7base, funct3, mnemonic = 0x05, 0x1, "fmax"
	}
	funct7 := funct7base<<2 | fmt
	v := rType(0x53, funct3, funct7, uint32(op.Dst), uint32(op.Src1), uint32(op.Src2))
	return []TargetInstruction{rWord(v, mnemonic, false)}, nil
}

// encodeFPCompare lowers to FEQ.S/D, FLT.S/D, FLE.S/D (opcode 0x53,
// funct7 = 0x14<<2|fmt).
func (e *Riscv64Encoder) encodeFPCompare(op IROp) ([]TargetInstruction, error) {
	fmt := uint32(0x00)
	if op.FW == FP64 {
		fmt = 0x01
	}
	var funct3 uint32
	var mnemonic string
	switch op.Kind {
	case OpFeq:
		funct3, mnemonic = 0x2, "feq"
	case OpFlt:
		funct3, mnemonic = 0x1, "flt"
	case OpFle:
		funct3, mnemonic = 0x0, "fle"
	}
	funct7 := uint32(0x14)<<2 | fmt
	v := rType(0x53, funct3, funct7, uint32(op.Dst), uint32(op.Src1), uint32(op.Src2))
	return []TargetInstruction{rWord(v, mnemonic, false)}, nil
}

// encodeFcvt implements FCVT.L.S/D (float->signed 64-bit int) and
// FCVT.S/D.L (signed 64-bit int->float) as the one representative
// conversion pair.
func (e *Riscv64Encoder) encodeFcvt(op IROp) ([]TargetInstruction, error) {
	if !op.Signed {
		return nil, &UnsupportedOperation{Target: riscvTarget, Kind: op.Kind}
	}
	fmt := uint32(0x00)
	if op.FW == FP64 {
		fmt = 0x01
	}
	if op.ToFloat {
		funct7 := uint32(0x68) | fmt
		v := rType(0x53, 0x7, funct7, uint32(op.Dst), uint32(op.Src1), 0x02)
		return []TargetInstruction{rWord(v, [...]string{"fcvt.s.l", "fcvt.d.l"}[fmt], false)}, nil
	}
	funct7 := uint32(0x60) | fmt
	v := rType(0x53, 0x7, funct7, uint32(op.Dst), uint32(op.Src1), 0x02)
	return []TargetInstruction{rWord(v, [...]string{"fcvt.l.s", "fcvt.l.d"}[fmt], false)}, nil
}

// encodeAMO lowers to the A-extension's AMOADD/AMOAND/AMOOR/AMOXOR/AMOSWAP
// (opcode 0x2F, funct3=0x3 for .D), aq/rl bits left clear.
func (e *Riscv64Encoder) encodeAMO(op IROp) ([]TargetInstruction, error) {
	var funct5 uint32
	var mnemonic string
	switch op.AtomicOp {
	case AtomicSwap, AtomicXchg:
		funct5, mnemonic = 0x01, "amoswap.d"
	case AtomicAdd:
		funct5, mnemonic = 0x00, "amoadd.d"
	case AtomicSub:
		funct5, mnemonic = 0x00, "amoadd.d" // AMOADD.D, caller pre-negates the operand
	case AtomicXor:
		funct5, mnemonic = 0x04, "amoxor.d"
	case AtomicAnd:
		funct5, mnemonic = 0x0C, "amoand.d"
	case AtomicOr:
		funct5, mnemonic = 0x08, "amoor.d"
	}
	funct7 := funct5 << 2
	v := rType(0x2F, 0x3, funct7, uint32(op.Dst), uint32(op.Base), uint32(op.Src1))
	return []TargetInstruction{rWord(v, mnemonic, true)}, nil
}

// encodeLR lowers AtomicLoadReserve to LR.D. Like the AArch64 LDXR path,
// only a zero offset is accepted: the encoding has no displacement field.
func (e *Riscv64Encoder) encodeLR(op IROp) ([]TargetInstruction, error) {
	if op.Disp != 0 {
		return nil, &InvalidOffset{Target: riscvTarget, Disp: op.Disp}
	}
	funct7 := uint32(0x02) << 2
	v := rType(0x2F, 0x3, funct7, uint32(op.Dst), uint32(op.Base), 0)
	return []TargetInstruction{rWord(v, "lr.d", true)}, nil
}

// encodeSC lowers AtomicStoreCond to SC.D, with the same zero-offset
// requirement as encodeLR.
func (e *Riscv64Encoder) encodeSC(op IROp) ([]TargetInstruction, error) {
	if op.Disp != 0 {
		return nil, &InvalidOffset{Target: riscvTarget, Disp: op.Disp}
	}
	funct7 := uint32(0x03) << 2
	v := rType(0x2F, 0x3, funct7, uint32(op.Dst), uint32(op.Base), uint32(op.Src1))
	return []TargetInstruction{rWord(v, "sc.d", true)}, nil
}
