// concurrency_test.go - asserts Encode is safely callable from many
// goroutines at once, per this package's stated concurrency property.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package encoder

import (
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestEncoders_ConcurrentEncodeIsSafe(t *testing.T) {
	targets := []ArchEncoder{&X86_64Encoder{}, &Arm64Encoder{}, &Riscv64Encoder{}}

	var g errgroup.Group
	for i := 0; i < 64; i++ {
		i := i
		g.Go(func() error {
			target := targets[i%len(targets)]
			op := IROp{Kind: OpAdd, Dst: RegId(i % 16), Src1: RegId((i + 1) % 16), Src2: RegId((i + 2) % 16)}
			_, err := target.Encode(op, uint64(i))
			if err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestEncoders_ConcurrentMixedOpsNoDataRace(t *testing.T) {
	e := &X86_64Encoder{}
	var g errgroup.Group
	ops := []IROp{
		{Kind: OpMovImm, Dst: 0, Imm: 1},
		{Kind: OpAdd, Dst: 1, Src1: 2, Src2: 3},
		{Kind: OpLoad, Dst: 0, Base: 1, Disp: 16, Size: 8},
		{Kind: OpStore, Src1: 0, Base: 1, Disp: 16, Size: 8},
	}
	for i := 0; i < 32; i++ {
		op := ops[i%len(ops)]
		g.Go(func() error {
			_, err := e.Encode(op, 0)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}
