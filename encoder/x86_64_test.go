// x86_64_test.go
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package encoder

import "testing"

func TestX86_64Encoder_MovImm(t *testing.T) {
	e := &X86_64Encoder{}
	instrs, err := e.Encode(IROp{Kind: OpMovImm, Dst: 0, Imm: 42}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(instrs) != 1 {
		t.Fatalf("got %d instructions, want 1", len(instrs))
	}
	b := instrs[0].Bytes
	if len(b) != 10 || b[1] != 0xB8 {
		t.Fatalf("unexpected MOV immediate encoding: % x", b)
	}
}

func TestX86_64Encoder_AddImmTooLarge(t *testing.T) {
	e := &X86_64Encoder{}
	_, err := e.Encode(IROp{Kind: OpAddImm, Dst: 0, Src1: 0, Imm: 1 << 40}, 0)
	var tooLarge *ImmediateTooLarge
	if !asImmediateTooLarge(err, &tooLarge) {
		t.Fatalf("expected ImmediateTooLarge, got %v", err)
	}
}

func asImmediateTooLarge(err error, target **ImmediateTooLarge) bool {
	e, ok := err.(*ImmediateTooLarge)
	if ok {
		*target = e
	}
	return ok
}

func TestX86_64Encoder_UnsupportedOp(t *testing.T) {
	e := &X86_64Encoder{}
	_, err := e.Encode(IROp{Kind: OpFclass}, 0)
	if _, ok := err.(*UnsupportedOperation); !ok {
		t.Fatalf("expected UnsupportedOperation, got %v", err)
	}
}

func TestX86_64Encoder_AddRegExactBytes(t *testing.T) {
	e := &X86_64Encoder{}
	instrs, err := e.Encode(IROp{Kind: OpAdd, Dst: 1, Src1: 0, Src2: 2}, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x48, 0x01, 0xD1}
	if len(instrs) != 1 || string(instrs[0].Bytes) != string(want) {
		t.Fatalf("Add{dst:1,src1:0,src2:2} = % x, want % x", instrs[0].Bytes, want)
	}
}

func TestX86_64Encoder_LoadStoreRoundTripShape(t *testing.T) {
	e := &X86_64Encoder{}
	instrs, err := e.Encode(IROp{Kind: OpLoad, Dst: 0, Base: 5, Disp: 8, Size: 8}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(instrs) != 1 || instrs[0].Bytes[1] != 0x8B {
		t.Fatalf("unexpected load encoding: % x", instrs[0].Bytes)
	}
	if !instrs[0].IsMemoryOp {
		t.Fatal("load should report IsMemoryOp")
	}
	if instrs[0].Length != len(instrs[0].Bytes) {
		t.Fatalf("Length = %d, want %d", instrs[0].Length, len(instrs[0].Bytes))
	}
}

func TestX86_64Encoder_AtomicSubAndXchgDistinctFromAdd(t *testing.T) {
	e := &X86_64Encoder{}
	sub, err := e.Encode(IROp{Kind: OpAtomicRMW, AtomicOp: AtomicSub, Base: 0, Src1: 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	xchg, err := e.Encode(IROp{Kind: OpAtomicRMW, AtomicOp: AtomicXchg, Base: 0, Src1: 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	swap, err := e.Encode(IROp{Kind: OpAtomicRMW, AtomicOp: AtomicSwap, Base: 0, Src1: 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if string(sub[0].Bytes) == string(xchg[0].Bytes) {
		t.Fatal("AtomicSub should not encode the same as AtomicXchg")
	}
	if string(xchg[0].Bytes) != string(swap[0].Bytes) {
		t.Fatalf("AtomicXchg should encode identically to AtomicSwap, got % x vs % x", xchg[0].Bytes, swap[0].Bytes)
	}
	if !xchg[0].IsMemoryOp {
		t.Fatal("atomic RMW should report IsMemoryOp")
	}
}
