// Package reliability estimates the probability that a scheduled circuit
// completes without an uncorrectable error.
//
// Each qubit carries a running error probability p that every scheduled
// entry updates through a depolarizing channel composition. At each
// correction marker the probability that the accumulated flips are
// correctable is multiplied into the overall success, squared for the two
// independent error channels, and p resets to the post-correction residual.
package reliability

import (
	"fmt"
	"math"

	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
	"github.com/WestGround/qecc-iontrap-chip/internal/schedule"
)

// Tapes is the read-only view of a schedule the model walks.
type Tapes interface {
	NumQubits() int
	Len(q int) int
	At(q, i int) schedule.Entry
}

// Model evaluates schedules for one code and set of error ratios. A Model
// holds no state between calls and is safe for concurrent use.
type Model struct {
	code   Code
	ratios Ratios
}

// Option configures a Model.
type Option func(*Model)

// WithRatios replaces DefaultRatios.
func WithRatios(r Ratios) Option {
	return func(m *Model) {
		m.ratios = r
	}
}

// New validates code and options and returns a Model.
func New(code Code, opts ...Option) (*Model, error) {
	m := &Model{code: code, ratios: DefaultRatios()}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.code.Validate(); err != nil {
		return nil, err
	}
	if err := m.ratios.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Code returns the model's code.
func (m *Model) Code() Code { return m.code }

// magnitudes are the per-kind error probabilities for one baseline rate.
type magnitudes struct {
	single, two, swap, shuttle, measure, residual float64
}

func (m *Model) magnitudes(rate float64) (magnitudes, error) {
	if rate < 0 || rate > 1 || math.IsNaN(rate) {
		return magnitudes{}, &ContractViolation{Code: ErrCodeInvalidRate, Qubit: -1, Pos: -1,
			Message: fmt.Sprintf("error rate %v outside [0, 1]", rate)}
	}
	r := m.ratios
	return magnitudes{
		single:   rate * r.Single,
		two:      rate * r.Two,
		swap:     rate * r.Swap,
		shuttle:  rate * r.Shuttle,
		measure:  rate * r.Measure,
		residual: rate * r.Residual,
	}, nil
}

// oneQubit composes a single-qubit depolarizing channel of strength e.
func oneQubit(p, e float64) float64 { return p + e - 4*e*p/3 }

// twoQubit composes the single-qubit marginal of a two-qubit depolarizing
// channel of strength e.
func twoQubit(p, e float64) float64 { return p + 4*e/5 - 16*e*p/15 }

func (mg magnitudes) apply(k circuit.Kind, p float64) float64 {
	switch k.Class() {
	case circuit.ClassClifford, circuit.ClassRotation:
		return oneQubit(p, mg.single)
	case circuit.ClassTwoQubit:
		return twoQubit(p, mg.two)
	case circuit.ClassSwap:
		return twoQubit(p, mg.swap)
	case circuit.ClassShuttle:
		return oneQubit(p, mg.shuttle)
	case circuit.ClassMeasure:
		return oneQubit(p, mg.measure)
	}
	return p
}

// visitor receives walk events in tape order, qubit by qubit.
type visitor interface {
	entry(k circuit.Kind)
	correction(correctable float64)
}

// walk runs the channel recursion over every tape.
func (m *Model) walk(s Tapes, rate float64, v visitor) error {
	mg, err := m.magnitudes(rate)
	if err != nil {
		return err
	}
	for q := 0; q < s.NumQubits(); q++ {
		n := s.Len(q)
		if n == 0 || s.At(q, n-1).Kind != circuit.KindCorrection {
			return &ContractViolation{Code: ErrCodeMissingTerminalCorrection, Qubit: q, Pos: n - 1,
				Message: "tape does not end in a correction marker"}
		}
	}

	binom := NewBinomial()
	for q := 0; q < s.NumQubits(); q++ {
		var p float64
		for i := 0; i < s.Len(q); i++ {
			k := s.At(q, i).Kind
			if k != circuit.KindCorrection {
				p = mg.apply(k, p)
				v.entry(k)
				continue
			}
			if p > 1 {
				return &ContractViolation{Code: ErrCodeProbabilityOverflow, Qubit: q, Pos: i,
					Message: fmt.Sprintf("accumulated error probability %v exceeds 1", p)}
			}
			v.correction(Correctable(binom, m.code, p))
			p = mg.residual
		}
	}
	return nil
}

type successVisitor struct{ success float64 }

func (v *successVisitor) entry(circuit.Kind) {}

func (v *successVisitor) correction(c float64) { v.success *= c * c }

// SuccessProbability returns the probability in [0, 1] that the schedule
// completes without an uncorrectable error at baseline two-qubit error rate
// rate.
func (m *Model) SuccessProbability(s Tapes, rate float64) (float64, error) {
	v := &successVisitor{success: 1}
	if err := m.walk(s, rate, v); err != nil {
		return 0, err
	}
	return v.success, nil
}

// Extrapolate raises a per-repetition success probability to the circuit's
// repetition multiplier.
func Extrapolate(p float64, repeat int) float64 {
	return math.Pow(p, float64(repeat))
}
