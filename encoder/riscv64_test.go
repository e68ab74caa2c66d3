// riscv64_test.go
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package encoder

import (
	"encoding/binary"
	"testing"
)

func TestRiscv64Encoder_AddReg(t *testing.T) {
	e := &Riscv64Encoder{}
	instrs, err := e.Encode(IROp{Kind: OpAdd, Dst: 1, Src1: 2, Src2: 3}, 0)
	if err != nil {
		t.Fatal(err)
	}
	v := binary.LittleEndian.Uint32(instrs[0].Bytes)
	if v&0x7F != 0x33 {
		t.Fatalf("opcode field = %#02x, want 0x33 (R-type)", v&0x7F)
	}
}

func TestRiscv64Encoder_LR_RejectsNonZeroOffset(t *testing.T) {
	e := &Riscv64Encoder{}
	_, err := e.Encode(IROp{Kind: OpAtomicLoadReserve, Dst: 0, Base: 1, Disp: 8}, 0)
	if _, ok := err.(*InvalidOffset); !ok {
		t.Fatalf("expected InvalidOffset, got %v", err)
	}
}

func TestRiscv64Encoder_AddImmTooLarge(t *testing.T) {
	e := &Riscv64Encoder{}
	_, err := e.Encode(IROp{Kind: OpAddImm, Imm: 5000}, 0)
	if _, ok := err.(*ImmediateTooLarge); !ok {
		t.Fatalf("expected ImmediateTooLarge, got %v", err)
	}
}

func TestRiscv64Encoder_UnsupportedOp(t *testing.T) {
	e := &Riscv64Encoder{}
	_, err := e.Encode(IROp{Kind: OpFmadd}, 0)
	if _, ok := err.(*UnsupportedOperation); !ok {
		t.Fatalf("expected UnsupportedOperation, got %v", err)
	}
}

func TestRiscv64Encoder_AtomicSubReusesAMOADD(t *testing.T) {
	e := &Riscv64Encoder{}
	add, err := e.Encode(IROp{Kind: OpAtomicRMW, AtomicOp: AtomicAdd, Base: 1, Src1: 2, Dst: 0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	sub, err := e.Encode(IROp{Kind: OpAtomicRMW, AtomicOp: AtomicSub, Base: 1, Src1: 2, Dst: 0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(add[0].Bytes) != string(sub[0].Bytes) {
		t.Fatalf("AtomicSub should share AMOADD.D's encoding (caller pre-negates), got % x vs % x", sub[0].Bytes, add[0].Bytes)
	}
	if sub[0].Length != len(sub[0].Bytes) {
		t.Fatalf("Length = %d, want %d", sub[0].Length, len(sub[0].Bytes))
	}
	if !sub[0].IsMemoryOp {
		t.Fatal("atomic RMW should report IsMemoryOp")
	}
}

func TestRiscv64Encoder_AtomicXchgMatchesSwap(t *testing.T) {
	e := &Riscv64Encoder{}
	swap, err := e.Encode(IROp{Kind: OpAtomicRMW, AtomicOp: AtomicSwap, Base: 1, Src1: 2, Dst: 0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	xchg, err := e.Encode(IROp{Kind: OpAtomicRMW, AtomicOp: AtomicXchg, Base: 1, Src1: 2, Dst: 0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(swap[0].Bytes) != string(xchg[0].Bytes) {
		t.Fatalf("AtomicXchg should share AMOSWAP.D's encoding, got % x vs % x", xchg[0].Bytes, swap[0].Bytes)
	}
}
