// Package sweep runs experiment plans: a grid of scheduling policies, codes,
// sector sizes and error rates evaluated over repeated iterations of one
// circuit.
//
// Plans are YAML or CUE files. A CUE plan is evaluated and exported to JSON,
// then decoded through the same strict YAML path, so both formats accept
// exactly the same fields.
package sweep

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
	"github.com/WestGround/qecc-iontrap-chip/internal/reliability"
	"github.com/WestGround/qecc-iontrap-chip/internal/schedule"
)

// Plan describes one sweep.
type Plan struct {
	Name       string `yaml:"name"`
	Circuit    string `yaml:"circuit"`
	Dialect    string `yaml:"dialect"`
	Iterations int    `yaml:"iterations"`
	Seed       uint64 `yaml:"seed"`
	// Workers bounds concurrent runs. Zero uses GOMAXPROCS.
	Workers int `yaml:"workers"`

	Policies     []string   `yaml:"policies"`
	Codes        []CodeSpec `yaml:"codes"`
	SectorSizes  []int      `yaml:"sector_sizes"`
	EmptySectors int        `yaml:"empty_sectors"`
	ErrorRates   Rates      `yaml:"error_rates"`

	Timing        schedule.Timing    `yaml:"timing"`
	Ratios        reliability.Ratios `yaml:"ratios"`
	TimeCeiling   int64              `yaml:"time_ceiling"`
	FallbackDepth int                `yaml:"fallback_depth"`

	dir string
}

// DefaultPlan returns a plan holding every default; decoding a file over it
// overrides only the fields the file names.
func DefaultPlan() Plan {
	return Plan{
		Dialect:      circuit.Native.String(),
		Iterations:   1,
		EmptySectors: schedule.DefaultEmptySectors,
		Timing:       schedule.DefaultTiming(),
		Ratios:       reliability.DefaultRatios(),
		TimeCeiling:  schedule.DefaultTimeCeiling,
	}
}

// CodeSpec is a code given by preset name or by explicit parameters.
type CodeSpec struct {
	Preset string
	Code   reliability.Code
}

// UnmarshalYAML accepts a scalar preset name or a mapping of code fields.
func (c *CodeSpec) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		c.Preset = n.Value
		return nil
	case yaml.MappingNode:
		return n.Decode(&c.Code)
	}
	return fmt.Errorf("line %d: code must be a preset name or a mapping", n.Line)
}

// Resolve returns the preset or the explicit code.
func (c CodeSpec) Resolve() (reliability.Code, error) {
	if c.Preset == "" {
		return c.Code, c.Code.Validate()
	}
	code, ok := reliability.LookupCode(c.Preset)
	if !ok {
		return reliability.Code{}, fmt.Errorf("unknown code preset %q", c.Preset)
	}
	return code, nil
}

// RateRange is an arithmetic sequence of error rates.
type RateRange struct {
	Start float64 `yaml:"start"`
	Step  float64 `yaml:"step"`
	Count int     `yaml:"count"`
}

// Rates is either an explicit list or a RateRange.
type Rates struct {
	List  []float64
	Range *RateRange
}

// UnmarshalYAML accepts a sequence of numbers or a {start, step, count}
// mapping.
func (r *Rates) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		return n.Decode(&r.List)
	case yaml.MappingNode:
		r.Range = &RateRange{}
		return n.Decode(r.Range)
	}
	return fmt.Errorf("line %d: error_rates must be a list or a range", n.Line)
}

// Values expands the rates in order.
func (r Rates) Values() []float64 {
	if r.Range == nil {
		return r.List
	}
	out := make([]float64, 0, max(r.Range.Count, 0))
	for i := 0; i < r.Range.Count; i++ {
		out = append(out, r.Range.Start+float64(i)*r.Range.Step)
	}
	return out
}

// LoadPlan reads a plan file. Files ending in .cue are evaluated as CUE;
// anything else is parsed as YAML. Unknown fields are rejected and the
// result is validated.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	if filepath.Ext(path) == ".cue" {
		data, err = exportCUE(data, path)
		if err != nil {
			return nil, err
		}
	}
	plan, err := decodePlan(data)
	if err != nil {
		return nil, err
	}
	plan.dir = filepath.Dir(path)
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	return plan, nil
}

func exportCUE(data []byte, path string) ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE plan %s: %w", path, err)
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("invalid CUE plan %s: %w", path, err)
	}
	out, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export CUE plan %s: %w", path, err)
	}
	return out, nil
}

func decodePlan(data []byte) (*Plan, error) {
	plan := DefaultPlan()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	return &plan, nil
}

// CircuitPath resolves the circuit path against the plan file's directory.
func (p *Plan) CircuitPath() string {
	if filepath.IsAbs(p.Circuit) || p.dir == "" {
		return p.Circuit
	}
	return filepath.Join(p.dir, p.Circuit)
}

// ParsedPolicies returns the plan's policies in file order.
func (p *Plan) ParsedPolicies() ([]schedule.Policy, error) {
	out := make([]schedule.Policy, 0, len(p.Policies))
	for _, name := range p.Policies {
		pol, err := schedule.ParsePolicy(name)
		if err != nil {
			return nil, err
		}
		out = append(out, pol)
	}
	return out, nil
}

// ResolvedCodes returns the plan's codes in file order.
func (p *Plan) ResolvedCodes() ([]reliability.Code, error) {
	out := make([]reliability.Code, 0, len(p.Codes))
	for _, spec := range p.Codes {
		code, err := spec.Resolve()
		if err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out, nil
}

// Validate reports every problem with the plan at once.
func (p *Plan) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(p.Name) == "" {
		add("name is required")
	}
	if p.Circuit == "" {
		add("circuit is required")
	}
	if _, err := circuit.ParseDialect(p.Dialect); err != nil {
		errs = multierr.Append(errs, err)
	}
	if p.Iterations < 1 {
		add("iterations must be at least 1, got %d", p.Iterations)
	}
	if p.Workers < 0 {
		add("workers must not be negative, got %d", p.Workers)
	}
	if p.EmptySectors < 1 {
		add("empty_sectors must be at least 1, got %d", p.EmptySectors)
	}
	if p.TimeCeiling < 1 {
		add("time_ceiling must be positive, got %d", p.TimeCeiling)
	}
	if p.FallbackDepth < 0 {
		add("fallback_depth must not be negative, got %d", p.FallbackDepth)
	}

	policies, err := p.ParsedPolicies()
	switch {
	case err != nil:
		errs = multierr.Append(errs, err)
	case len(policies) == 0:
		add("policies list is required and must be non-empty")
	}
	corrected := false
	for _, pol := range policies {
		corrected = corrected || pol.Corrected()
	}

	if corrected && len(p.Codes) == 0 {
		add("codes list is required for corrected policies")
	}
	for i, spec := range p.Codes {
		code, err := spec.Resolve()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("codes[%d]: %w", i, err))
			continue
		}
		if corrected && code.CorrectionTime < 1 {
			add("codes[%d]: %s needs a positive correction_time", i, code)
		}
	}

	if len(p.SectorSizes) == 0 {
		add("sector_sizes list is required and must be non-empty")
	}
	for i, s := range p.SectorSizes {
		if s < 1 {
			add("sector_sizes[%d]: must be at least 1, got %d", i, s)
		}
	}

	if r := p.ErrorRates.Range; r != nil && r.Count < 1 {
		add("error_rates: range count must be at least 1, got %d", r.Count)
	}
	rates := p.ErrorRates.Values()
	if len(rates) == 0 && p.ErrorRates.Range == nil {
		add("error_rates is required and must be non-empty")
	}
	for i, rate := range rates {
		if rate < 0 || rate > 1 || math.IsNaN(rate) {
			add("error_rates[%d]: %v outside [0, 1]", i, rate)
		}
	}

	if err := p.Timing.Validate(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := p.Ratios.Validate(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// Problems splits a Validate error into its individual problems.
func Problems(err error) []error {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return joined.Unwrap()
	}
	return multierr.Errors(err)
}
