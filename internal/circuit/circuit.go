package circuit

import (
	"fmt"
)

// NoPartner marks an instance without a two-qubit partner.
const NoPartner = -1

// Dialect selects the gate set of the textual circuit format.
type Dialect int

const (
	// Generic is the x/y/z/h/s/sdg/rz/cx gate set.
	Generic Dialect = iota
	// Native is the gpi/gpi2/rz/ms gate set of the trapped-ion hardware.
	Native
)

// String returns the dialect name used on the command line.
func (d Dialect) String() string {
	switch d {
	case Generic:
		return "generic"
	case Native:
		return "native"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// ParseDialect maps a dialect name to its value.
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "generic":
		return Generic, nil
	case "native", "":
		return Native, nil
	default:
		return 0, fmt.Errorf("unknown dialect %q: must be one of [generic native]", s)
	}
}

// Ref addresses one instance by qubit and tape position.
type Ref struct {
	Qubit int
	Pos   int
}

// Instance is one operation on one qubit's tape.
//
// Two-qubit operations are stored as two instances, one on each tape, that
// point at each other through Partner (an arena index).
type Instance struct {
	Kind     Kind
	Qubit    int
	Pos      int
	Angle    float64 // generic rotations
	Depth    int     // repeat-until-success bound, valid when HasDepth
	HasDepth bool
	Control  bool // control side of a cx
	Partner  int
}

// Circuit is an immutable set of per-qubit operation tapes.
//
// Instances live in a single arena; tapes hold arena indices in program
// order. The partner of a two-qubit instance is resolved by index, never
// recomputed.
type Circuit struct {
	numQubits int
	repeat    int
	dialect   Dialect
	instances []Instance
	tapes     [][]int
}

// NumQubits returns the number of logical qubits.
func (c *Circuit) NumQubits() int { return c.numQubits }

// Repeat returns the repetition multiplier used when extrapolating results.
func (c *Circuit) Repeat() int { return c.repeat }

// Dialect returns the gate set the circuit was written in.
func (c *Circuit) Dialect() Dialect { return c.dialect }

// NumInstances returns the total number of tape instances.
func (c *Circuit) NumInstances() int { return len(c.instances) }

// Len returns the tape length of qubit q.
func (c *Circuit) Len(q int) int { return len(c.tapes[q]) }

// At returns the instance at position pos of qubit q's tape.
func (c *Circuit) At(q, pos int) Instance {
	return c.instances[c.tapes[q][pos]]
}

// Partner returns the tape position of the partner of a two-qubit instance.
func (c *Circuit) Partner(q, pos int) (Ref, bool) {
	inst := c.At(q, pos)
	if inst.Partner == NoPartner {
		return Ref{}, false
	}
	p := c.instances[inst.Partner]
	return Ref{Qubit: p.Qubit, Pos: p.Pos}, true
}

// Depth returns the repeat-until-success bound of a rotation, if present.
func (c *Circuit) Depth(q, pos int) (int, bool) {
	inst := c.At(q, pos)
	return inst.Depth, inst.HasDepth
}

// Builder accumulates instances in program order.
type Builder struct {
	c   *Circuit
	err error
}

// NewBuilder starts a circuit over numQubits qubits.
func NewBuilder(numQubits, repeat int, dialect Dialect) *Builder {
	b := &Builder{c: &Circuit{
		numQubits: numQubits,
		repeat:    repeat,
		dialect:   dialect,
		tapes:     make([][]int, max(numQubits, 0)),
	}}
	if numQubits < 0 {
		b.err = fmt.Errorf("negative qubit count %d", numQubits)
	}
	if repeat < 1 {
		b.err = fmt.Errorf("repetition multiplier must be positive, got %d", repeat)
	}
	return b
}

func (b *Builder) push(inst Instance) int {
	inst.Pos = len(b.c.tapes[inst.Qubit])
	idx := len(b.c.instances)
	b.c.instances = append(b.c.instances, inst)
	b.c.tapes[inst.Qubit] = append(b.c.tapes[inst.Qubit], idx)
	return idx
}

func (b *Builder) checkQubit(q int) bool {
	if b.err != nil {
		return false
	}
	if q < 0 || q >= b.c.numQubits {
		b.err = fmt.Errorf("qubit %d out of range [0, %d)", q, b.c.numQubits)
		return false
	}
	return true
}

// Clifford appends a single-qubit Clifford-type operation.
func (b *Builder) Clifford(k Kind, q int) *Builder {
	if !b.checkQubit(q) {
		return b
	}
	if k.Class() != ClassClifford {
		b.err = fmt.Errorf("%s is not a single-qubit Clifford operation", k)
		return b
	}
	b.push(Instance{Kind: k, Qubit: q, Partner: NoPartner})
	return b
}

// Rotation appends a continuous-angle rotation without a repeat bound.
func (b *Builder) Rotation(q int, angle float64) *Builder {
	if !b.checkQubit(q) {
		return b
	}
	b.push(Instance{Kind: KindRZ, Qubit: q, Angle: angle, Partner: NoPartner})
	return b
}

// RotationDepth appends a rotation with an explicit repeat-until-success bound.
func (b *Builder) RotationDepth(q, depth int) *Builder {
	if !b.checkQubit(q) {
		return b
	}
	if depth < 0 {
		b.err = fmt.Errorf("negative rotation depth %d on qubit %d", depth, q)
		return b
	}
	b.push(Instance{Kind: KindRZ, Qubit: q, Depth: depth, HasDepth: true, Partner: NoPartner})
	return b
}

// TwoQubit appends a paired operation acting on qubits a and b. For cx, a is
// the control.
func (b *Builder) TwoQubit(k Kind, a, t int) *Builder {
	if !b.checkQubit(a) || !b.checkQubit(t) {
		return b
	}
	if !k.Paired() {
		b.err = fmt.Errorf("%s is not a two-qubit operation", k)
		return b
	}
	if a == t {
		b.err = fmt.Errorf("%s on qubit %d cannot target itself", k, a)
		return b
	}
	ia := b.push(Instance{Kind: k, Qubit: a, Control: k == KindCX})
	it := b.push(Instance{Kind: k, Qubit: t})
	b.c.instances[ia].Partner = it
	b.c.instances[it].Partner = ia
	return b
}

// Err returns the first construction error, if any.
func (b *Builder) Err() error { return b.err }

// Build validates and returns the circuit. The builder must not be used
// afterwards.
func (b *Builder) Build() (*Circuit, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.c.validate(); err != nil {
		return nil, err
	}
	c := b.c
	b.c = nil
	return c, nil
}

// validate checks the partner and depth invariants of the arena.
func (c *Circuit) validate() error {
	for idx, inst := range c.instances {
		if inst.Kind.Paired() {
			if inst.Partner < 0 || inst.Partner >= len(c.instances) {
				return fmt.Errorf("instance (%d,%d): %s without partner", inst.Qubit, inst.Pos, inst.Kind)
			}
			p := c.instances[inst.Partner]
			if p.Partner != idx || p.Kind != inst.Kind || p.Qubit == inst.Qubit {
				return fmt.Errorf("instance (%d,%d): asymmetric partner (%d,%d)", inst.Qubit, inst.Pos, p.Qubit, p.Pos)
			}
		} else if inst.Partner != NoPartner {
			return fmt.Errorf("instance (%d,%d): %s must not have a partner", inst.Qubit, inst.Pos, inst.Kind)
		}
		if c.tapes[inst.Qubit][inst.Pos] != idx {
			return fmt.Errorf("instance (%d,%d): tape index mismatch", inst.Qubit, inst.Pos)
		}
	}
	return nil
}
