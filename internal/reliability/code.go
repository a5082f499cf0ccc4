package reliability

import (
	"fmt"
	"math"
	"strings"
)

// Code holds the parameters of an error-correcting code: block size N,
// logical qubits K and distance D, plus the duration of one correction
// round on the shared time axis.
type Code struct {
	Name           string `yaml:"name" json:"name"`
	N              int    `yaml:"n" json:"n"`
	K              int    `yaml:"k" json:"k"`
	D              int    `yaml:"d" json:"d"`
	CorrectionTime int64  `yaml:"correction_time" json:"correction_time"`
}

var (
	// Code7 is the [[7,1,3]] Steane code.
	Code7 = Code{Name: "c7", N: 7, K: 1, D: 3, CorrectionTime: 25}
	// Code17 is a [[17,1,5]] code.
	Code17 = Code{Name: "c17", N: 17, K: 1, D: 5, CorrectionTime: 50}
	// Code31 is a [[31,1,7]] code.
	Code31 = Code{Name: "c31", N: 31, K: 1, D: 7, CorrectionTime: 50}
	// Uncorrected evaluates baseline schedules: a single physical qubit per
	// logical qubit, correcting nothing.
	Uncorrected = Code{Name: "uncorrected", N: 1, K: 1, D: 1}
)

// Presets returns the built-in codes.
func Presets() []Code {
	return []Code{Code7, Code17, Code31, Uncorrected}
}

// LookupCode finds a preset by name, case-insensitively.
func LookupCode(name string) (Code, bool) {
	for _, c := range Presets() {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Code{}, false
}

// String renders the code as name(n,k,d).
func (c Code) String() string {
	return fmt.Sprintf("%s(%d,%d,%d)", c.Name, c.N, c.K, c.D)
}

// Validate checks the code parameters.
func (c Code) Validate() error {
	switch {
	case c.N < 1 || c.K < 1 || c.D < 1:
		return &ContractViolation{Code: ErrCodeInvalidCode, Qubit: -1, Pos: -1,
			Message: fmt.Sprintf("code %s: n, k and d must be positive", c)}
	case c.K > c.N || c.D > c.N:
		return &ContractViolation{Code: ErrCodeInvalidCode, Qubit: -1, Pos: -1,
			Message: fmt.Sprintf("code %s: k and d must not exceed n", c)}
	case c.CorrectionTime < 0:
		return &ContractViolation{Code: ErrCodeInvalidCode, Qubit: -1, Pos: -1,
			Message: fmt.Sprintf("code %s: negative correction time", c)}
	}
	return nil
}

// Ratios scale the baseline two-qubit error rate into per-kind error
// magnitudes.
type Ratios struct {
	Single   float64 `yaml:"single" json:"single"`
	Two      float64 `yaml:"two" json:"two"`
	Swap     float64 `yaml:"swap" json:"swap"`
	Shuttle  float64 `yaml:"shuttle" json:"shuttle"`
	Measure  float64 `yaml:"measure" json:"measure"`
	Residual float64 `yaml:"residual" json:"residual"`
}

// DefaultRatios returns the reference ratios.
func DefaultRatios() Ratios {
	return Ratios{
		Single:   0.1,
		Two:      1.0,
		Swap:     3.0,
		Shuttle:  0.1,
		Measure:  0.1,
		Residual: 5.0,
	}
}

// Validate requires every ratio to be finite and non-negative.
func (r Ratios) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"single", r.Single}, {"two", r.Two}, {"swap", r.Swap},
		{"shuttle", r.Shuttle}, {"measure", r.Measure}, {"residual", r.Residual},
	}
	for _, f := range fields {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ContractViolation{Code: ErrCodeInvalidRate, Qubit: -1, Pos: -1,
				Message: fmt.Sprintf("ratio %s must be finite and non-negative, got %v", f.name, f.v)}
		}
	}
	return nil
}
