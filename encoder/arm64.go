// arm64.go - AArch64 target encoder
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later
//
// Every AArch64 instruction is a fixed 4-byte little-endian word, so each
// handler below builds one uint32 bitfield-by-bitfield and serializes it
// with encoding/binary, the same mechanical idiom the x86-64 encoder uses
// for its byte slices.

package encoder

import "encoding/binary"

// Arm64Encoder lowers IROp into AArch64 machine code words.
type Arm64Encoder struct{}

const arm64Target = "aarch64"

func word(v uint32, mnemonic string, isMemoryOp bool) TargetInstruction {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return newInstr(b, mnemonic, false, isMemoryOp)
}

func (e *Arm64Encoder) Encode(op IROp, pc uint64) ([]TargetInstruction, error) {
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
		return e.encodeAtomicRMW(op)
	case OpAtomicCmpXchg:
		return e.encodeCAS(op)
	case OpAtomicLoadReserve:
		return e.encodeLDXR(op)
	case OpAtomicStoreCond:
		return e.encodeSTXR(op)
	default:
		return nil, &UnsupportedOperation{Target: arm64Target, Kind: op.Kind}
	}
}

// encodeAluReg lowers Add/Sub to ADD/SUB (shifted register, 64-bit):
// sf=1 op=0/1 S=0 | 01011 shift(2)=00 | 0 | Rm(5) | imm6=0 | Rn(5) | Rd(5)
func (e *Arm64Encoder) encodeAluReg(op IROp) ([]TargetInstruction, error) {
	var base uint32 = 0x8B000000 // ADD, sf=1
	if op.Kind == OpSub {
		base = 0xCB000000
	}
	v := base | (uint32(op.Src2)&0x1F)<<16 | (uint32(op.Src1)&0x1F)<<5 | (uint32(op.Dst) & 0x1F)
	mnemonic := "add"
	if op.Kind == OpSub {
		mnemonic = "sub"
	}
	return []TargetInstruction{word(v, mnemonic, false)}, nil
}

// encodeAddImm lowers to ADD (immediate, 64-bit): sf=1 0 0 10001 sh(1)=0 imm12 Rn Rd
func (e *Arm64Encoder) encodeAddImm(op IROp) ([]TargetInstruction, error) {
	if op.Imm < 0 || op.Imm > 0xFFF {
		return nil, &ImmediateTooLarge{Target: arm64Target, Value: op.Imm, Bits: 12}
	}
	v := uint32(0x91000000) | (uint32(op.Imm)&0xFFF)<<10 | (uint32(op.Src1)&0x1F)<<5 | (uint32(op.Dst) & 0x1F)
	return []TargetInstruction{word(v, "add", false)}, nil
}

// encodeMovImm materializes a 64-bit immediate with MOVZ followed by up to
// three MOVK instructions, one per non-zero 16-bit chunk above bit 0 (the
// bottom chunk always comes from the initial MOVZ).
func (e *Arm64Encoder) encodeMovImm(op IROp) ([]TargetInstruction, error) {
	u := uint64(op.Imm)
	var instrs []TargetInstruction
	chunk0 := uint32(u & 0xFFFF)
	movz := uint32(0xD2800000) | chunk0<<5 | (uint32(op.Dst) & 0x1F)
	instrs = append(instrs, word(movz, "movz", false))
	for shift := 1; shift < 4; shift++ {
		chunk := uint16(u >> (uint(shift) * 16))
		if chunk == 0 {
			continue
		}
		hw := uint32(shift) << 21
		movk := uint32(0xF2800000) | hw | uint32(chunk)<<5 | (uint32(op.Dst) & 0x1F)
		instrs = append(instrs, word(movk, "movk", false))
	}
	return instrs, nil
}

// encodeLoad lowers to LDR (immediate, unsigned offset): size depends on
// op.Size; offset must be a multiple of the access size and fit the
// 12-bit scaled immediate field.
func (e *Arm64Encoder) encodeLoad(op IROp) ([]TargetInstruction, error) {
	size, err := arm64SizeField(op.Size)
	if err != nil {
		return nil, err
	}
	scaled, err := arm64ScaledOffset(op.Disp, op.Size)
	if err != nil {
		return nil, err
	}
	v := uint32(size)<<30 | 0x39400000 | scaled<<10 | (uint32(op.Base)&0x1F)<<5 | (uint32(op.Dst) & 0x1F)
	return []TargetInstruction{word(v, "ldr", true)}, nil
}

// encodeStore lowers to STR (immediate, unsigned offset).
func (e *Arm64Encoder) encodeStore(op IROp) ([]TargetInstruction, error) {
	size, err := arm64SizeField(op.Size)
	if err != nil {
		return nil, err
	}
	scaled, err := arm64ScaledOffset(op.Disp, op.Size)
	if err != nil {
		return nil, err
	}
	v := uint32(size)<<30 | 0x39000000 | scaled<<10 | (uint32(op.Base)&0x1F)<<5 | (uint32(op.Src1) & 0x1F)
	return []TargetInstruction{word(v, "str", true)}, nil
}

func arm64SizeField(size int) (uint32, error) {
	switch size {
	case 1:
		return 0, nil
	case 2:
		return 1, nil
	case 4:
		return 2, nil
	case 8:
		return 3, nil
	default:
		return 0, &UnsupportedOperation{Target: arm64Target, Kind: OpLoad}
	}
}

func arm64ScaledOffset(disp int32, size int) (uint32, error) {
	if disp < 0 || int(disp)%size != 0 {
		return 0, &InvalidOffset{Target: arm64Target, Disp: disp}
	}
	scaled := disp / int32(size)
	if scaled > 0xFFF {
		return 0, &InvalidOffset{Target: arm64Target, Disp: disp}
	}
	return uint32(scaled), nil
}

// encodeVecOp lowers packed integer SIMD to NEON ADD/SUB/MUL (vector),
// 4S arrangement for 128-bit, with Saturating routing to SQADD/SQSUB.
func (e *Arm64Encoder) encodeVecOp(op IROp) ([]TargetInstruction, error) {
	var base uint32
	var mnemonic string
	switch {
	case op.Kind == OpVecAdd && op.Saturating:
		base, mnemonic = 0x4EA0_0C00, "sqadd" // SQADD Vd.4S
	case op.Kind == OpVecSub && op.Saturating:
		base, mnemonic = 0x4EA0_2C00, "sqsub" // SQSUB Vd.4S
	case op.Kind == OpVecAdd:
		base, mnemonic = 0x4EA0_8400, "add" // ADD Vd.4S
	case op.Kind == OpVecSub:
		base, mnemonic = 0x6EA0_8400, "sub" // SUB Vd.4S
	case op.Kind == OpVecMul:
		base, mnemonic = 0x4EA0_9C00, "mul" // MUL Vd.4S
	}
	if op.VecW == Vec256 {
		return nil, &UnsupportedOperation{Target: arm64Target, Kind: op.Kind}
	}
	v := base | (uint32(op.Src2)&0x1F)<<16 | (uint32(op.Src1)&0x1F)<<5 | (uint32(op.Dst) & 0x1F)
	return []TargetInstruction{word(v, mnemonic, false)}, nil
}

// encodeScalarFP lowers the scalar f32/f64 family to FADD/FSUB/FMUL/FDIV/
// FSQRT/FMIN/FMAX/FABS/FNEG, selecting the single (0) vs double (1) `type`
// field from op.FW.
func (e *Arm64Encoder) encodeScalarFP(op IROp) ([]TargetInstruction, error) {
	ftype := uint32(0)
	if op.FW == FP64 {
		ftype = 1
	}
	if op.Kind == OpFsqrt || op.Kind == OpFabs || op.Kind == OpFneg {
		var opcode uint32
		switch op.Kind {
		case OpFsqrt:
			opcode = 0x03 // FSQRT
		case OpFabs:
			opcode = 0x01
		case OpFneg:
			opcode = 0x02
		}
		var mnemonic string
		switch op.Kind {
		case OpFsqrt:
			mnemonic = "fsqrt"
		case OpFabs:
			mnemonic = "fabs"
		case OpFneg:
			mnemonic = "fneg"
		}
		v := uint32(0x1E204000) | ftype<<22 | opcode<<15 | (uint32(op.Src1)&0x1F)<<5 | (uint32(op.Dst) & 0x1F)
		return []TargetInstruction{word(v, mnemonic, false)}, nil
	}
	var opc2 uint32
	var mnemonic string
	switch op.Kind {
	case OpFadd:
		opc2, mnemonic = 0x2, "fadd"
	case OpFsub:
		opc2, mnemonic = 0x3, "fsub"
	case OpFmul:
		opc2, mnemonic = 0x0, "fmul"
	case OpFdiv:
		opc2, mnemonic = 0x1, "fdiv"
	case OpFmax:
		opc2, mnemonic = 0x4, "fmax"
	case OpFmin:
		opc2, mnemonic = 0x5, "fmin"
	}
	v := uint32(0x1E200800) | ftype<<22 | (uint32(op.Src2)&0x1F)<<16 | opc2<<12 | (uint32(op.Src1)&0x1F)<<5 | (uint32(op.Dst) & 0x1F)
	return []TargetInstruction{word(v, mnemonic, false)}, nil
}

// encodeFPCompare lowers to FCMP + CSET-style sequence; emitted as FCMPE
// followed by a CSET on the matching condition code (EQ/MI/LE).
func (e *Arm64Encoder) encodeFPCompare(op IROp) ([]TargetInstruction, error) {
	ftype := uint32(0)
	if op.FW == FP64 {
		ftype = 1
	}
	fcmp := uint32(0x1E202010) | ftype<<22 | (uint32(op.Src2)&0x1F)<<16 | (uint32(op.Src1)&0x1F)<<5
	var cond uint32
	switch op.Kind {
	case OpFeq:
		cond = 0x0 // EQ
	case OpFlt:
		cond = 0x4 // MI
	case OpFle:
		cond = 0xD // LE
	}
	invCond := cond ^ 1
	cset := uint32(0x9A9F07E0) | invCond<<12 | (uint32(op.Dst) & 0x1F)
	return []TargetInstruction{word(fcmp, "fcmpe", false), word(cset, "cset", false)}, nil
}

// encodeFcvt implements FCVTZS (float->signed int) and SCVTF (signed
// int->float) as the one representative conversion pair.
func (e *Arm64Encoder) encodeFcvt(op IROp) ([]TargetInstruction, error) {
	if !op.Signed {
		return nil, &UnsupportedOperation{Target: arm64Target, Kind: op.Kind}
	}
	ftype := uint32(0)
	if op.FW == FP64 {
		ftype = 1
	}
	if op.ToFloat {
		v := uint32(0x9E220000) | ftype<<22 | (uint32(op.Src1)&0x1F)<<5 | (uint32(op.Dst) & 0x1F)
		return []TargetInstruction{word(v, "scvtf", false)}, nil
	}
	v := uint32(0x9E380000) | ftype<<22 | (uint32(op.Src1)&0x1F)<<5 | (uint32(op.Dst) & 0x1F)
	return []TargetInstruction{word(v, "fcvtzs", false)}, nil
}

// encodeAtomicRMW lowers to the ARMv8.1 LDADD/LDCLR/LDEOR/LDSET/SWP
// atomic memory family.
func (e *Arm64Encoder) encodeAtomicRMW(op IROp) ([]TargetInstruction, error) {
	var opc uint32
	var mnemonic string
	switch op.AtomicOp {
	case AtomicAdd:
		opc, mnemonic = 0x0, "ldadd" // LDADD
	case AtomicSub:
		opc, mnemonic = 0x0, "ldadd" // LDADD, caller pre-negates the operand
	case AtomicAnd:
		opc, mnemonic = 0x1, "ldclr" // LDCLR (bic = and-not, caller pre-inverts operand)
	case AtomicXor:
		opc, mnemonic = 0x2, "ldeor" // LDEOR
	case AtomicOr:
		opc, mnemonic = 0x3, "ldset" // LDSET
	case AtomicSwap, AtomicXchg:
		opc, mnemonic = 0x8, "swp" // SWP
	}
	v := uint32(0xB8200000) | (uint32(op.Src1)&0x1F)<<16 | opc<<12 | (uint32(op.Base)&0x1F)<<5 | (uint32(op.Dst) & 0x1F)
	return []TargetInstruction{word(v, mnemonic, true)}, nil
}

// encodeCAS lowers AtomicCmpXchg to the ARMv8.1 CAS instruction.
func (e *Arm64Encoder) encodeCAS(op IROp) ([]TargetInstruction, error) {
	v := uint32(0x88A07C00) | (uint32(op.Src2)&0x1F)<<16 | (uint32(op.Base)&0x1F)<<5 | (uint32(op.Dst) & 0x1F)
	return []TargetInstruction{word(v, "cas", true)}, nil
}

// encodeLDXR lowers AtomicLoadReserve to LDXR. Only a zero offset is
// accepted: the tightened behavior rejects any non-zero displacement with
// InvalidOffset rather than silently truncating it, since LDXR's encoding
// has no offset field at all.
func (e *Arm64Encoder) encodeLDXR(op IROp) ([]TargetInstruction, error) {
	if op.Disp != 0 {
		return nil, &InvalidOffset{Target: arm64Target, Disp: op.Disp}
	}
	v := uint32(0xC85F7C00) | (uint32(op.Base)&0x1F)<<5 | (uint32(op.Dst) & 0x1F)
	return []TargetInstruction{word(v, "ldxr", true)}, nil
}

// encodeSTXR lowers AtomicStoreCond to STXR, with the same zero-offset
// requirement as encodeLDXR.
func (e *Arm64Encoder) encodeSTXR(op IROp) ([]TargetInstruction, error) {
	if op.Disp != 0 {
		return nil, &InvalidOffset{Target: arm64Target, Disp: op.Disp}
	}
	v := uint32(0xC8007C00) | (uint32(op.Dst)&0x1F)<<16 | (uint32(op.Base)&0x1F)<<5 | (uint32(op.Src1) & 0x1F)
	return []TargetInstruction{word(v, "stxr", true)}, nil
}
