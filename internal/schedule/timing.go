package schedule

import (
	"fmt"
)

// Timing holds the fixed durations of every scheduled step on the shared
// discrete time axis.
type Timing struct {
	SingleQubit int64 `yaml:"single_qubit" json:"single_qubit"`
	TwoQubit    int64 `yaml:"two_qubit" json:"two_qubit"`
	Swap        int64 `yaml:"swap" json:"swap"`
	Shuttle     int64 `yaml:"shuttle" json:"shuttle"`
	Measure     int64 `yaml:"measure" json:"measure"`
}

// DefaultTiming returns the reference durations: a swap costs three
// two-qubit gates.
func DefaultTiming() Timing {
	return Timing{
		SingleQubit: 1,
		TwoQubit:    5,
		Swap:        15,
		Shuttle:     15,
		Measure:     1,
	}
}

// Validate requires every duration to be positive.
func (t Timing) Validate() error {
	fields := []struct {
		name string
		v    int64
	}{
		{"single_qubit", t.SingleQubit},
		{"two_qubit", t.TwoQubit},
		{"swap", t.Swap},
		{"shuttle", t.Shuttle},
		{"measure", t.Measure},
	}
	for _, f := range fields {
		if f.v < 1 {
			return fmt.Errorf("timing %s must be positive, got %d", f.name, f.v)
		}
	}
	return nil
}

// DefaultEmptySectors is the number of buffer sectors past the last qubit.
const DefaultEmptySectors = 3

// Params are the per-run geometry and correction parameters.
type Params struct {
	// SectorSize is the number of horizontal slots per block.
	SectorSize int

	// EmptySectors is the number of buffer sectors the shuttle may travel
	// past the end of the chain.
	EmptySectors int

	// CorrectionTime is the duration of one correction round. Ignored by
	// the baseline policy.
	CorrectionTime int64
}
