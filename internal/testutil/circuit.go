// Package testutil holds deterministic fixtures shared by package tests.
package testutil

import (
	"math/rand/v2"
	"testing"

	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
)

// MustParse parses a native-dialect circuit or fails the test.
func MustParse(t testing.TB, src string) *circuit.Circuit {
	t.Helper()
	c, err := circuit.ParseString(src, circuit.Native)
	if err != nil {
		t.Fatalf("parse circuit: %v", err)
	}
	return c
}

// RandomOptions bounds the shape of RandomCircuit output.
type RandomOptions struct {
	MaxQubits int
	MaxOps    int
	MaxDepth  int
}

// RandomCircuit builds a well-formed native circuit from rng. Every rotation
// carries a depth in [1, MaxDepth].
func RandomCircuit(rng *rand.Rand, opts RandomOptions) *circuit.Circuit {
	n := 1 + rng.IntN(max(opts.MaxQubits, 1))
	ops := rng.IntN(max(opts.MaxOps, 1) + 1)
	b := circuit.NewBuilder(n, 1+rng.IntN(3), circuit.Native)
	for i := 0; i < ops; i++ {
		q := rng.IntN(n)
		switch k := rng.IntN(4); {
		case k == 0 && n > 1:
			t := rng.IntN(n - 1)
			if t >= q {
				t++
			}
			b.TwoQubit(circuit.KindMS, q, t)
		case k == 1:
			b.RotationDepth(q, 1+rng.IntN(max(opts.MaxDepth, 1)))
		case k == 2:
			b.Clifford(circuit.KindGPI2, q)
		default:
			b.Clifford(circuit.KindGPI, q)
		}
	}
	c, err := b.Build()
	if err != nil {
		panic("testutil: random circuit: " + err.Error())
	}
	return c
}
