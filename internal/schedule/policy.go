package schedule

import (
	"fmt"

	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
)

// Policy selects a scheduling strategy.
type Policy uint8

const (
	PolicyBalanced Policy = iota + 1
	PolicyBaseline
	PolicyOverlapped
)

var policyNames = map[Policy]string{
	PolicyBalanced:   "balanced",
	PolicyBaseline:   "baseline",
	PolicyOverlapped: "overlapped",
}

// String returns the policy name used on the command line and in plans.
func (p Policy) String() string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Policy(%d)", uint8(p))
}

// Corrected reports whether the policy interleaves correction rounds.
func (p Policy) Corrected() bool {
	return p == PolicyBalanced || p == PolicyOverlapped
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if _, ok := policyNames[p]; !ok {
		return nil, fmt.Errorf("unknown policy %d", uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Policies returns every policy in a stable order.
func Policies() []Policy {
	return []Policy{PolicyBalanced, PolicyBaseline, PolicyOverlapped}
}

// ParsePolicy maps a policy name to its value.
func ParsePolicy(s string) (Policy, error) {
	for _, p := range Policies() {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown policy %q: must be one of [balanced baseline overlapped]", s)
}

// Run dispatches to the policy function.
func Run(p Policy, c *circuit.Circuit, params Params, opts ...Option) (*Result, error) {
	switch p {
	case PolicyBalanced:
		return Balanced(c, params, opts...)
	case PolicyBaseline:
		return Baseline(c, params, opts...)
	case PolicyOverlapped:
		return Overlapped(c, params, opts...)
	default:
		return nil, paramError("unknown policy %d", uint8(p))
	}
}
