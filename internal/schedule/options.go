package schedule

import (
	"log/slog"
	"math/rand/v2"
)

// DefaultTimeCeiling bounds the shared time axis. A run whose clock passes
// it stops and is reported as truncated.
const DefaultTimeCeiling int64 = 987654321000

type config struct {
	timing        Timing
	rng           *rand.Rand
	logger        *slog.Logger
	ceiling       int64
	fallbackDepth int
	trace         func(Snapshot)
}

// Option configures a scheduling run.
type Option func(*config)

// WithTiming replaces the reference durations.
func WithTiming(t Timing) Option {
	return func(c *config) {
		c.timing = t
	}
}

// WithRand sets the source of the repeat-until-success coin flips. The
// generator must not be shared with a concurrent run.
func WithRand(r *rand.Rand) Option {
	return func(c *config) {
		c.rng = r
	}
}

// WithSeed makes the coin flips reproducible.
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithLogger sets the logger used for truncation warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithTimeCeiling overrides DefaultTimeCeiling.
func WithTimeCeiling(ceiling int64) Option {
	return func(c *config) {
		c.ceiling = ceiling
	}
}

// WithFallbackDepth sets the repeat bound used for rotations that carry
// none. Zero (the default) makes such rotations an error under corrected
// policies.
func WithFallbackDepth(depth int) Option {
	return func(c *config) {
		c.fallbackDepth = depth
	}
}

// WithTrace registers a callback invoked once per round, after swap
// selection and before the shuttle advances.
func WithTrace(fn func(Snapshot)) Option {
	return func(c *config) {
		c.trace = fn
	}
}

func newConfig(opts []Option) config {
	c := config{
		timing:  DefaultTiming(),
		ceiling: DefaultTimeCeiling,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.rng == nil {
		// Fresh per run so a sweep never correlates coin flips.
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}
