package sweep

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/WestGround/qecc-iontrap-chip/internal/schedule"
)

// Run outcomes recorded in qecc_sweep_runs_total.
const (
	OutcomeOK        = "ok"
	OutcomeTruncated = "truncated"
	OutcomeError     = "error"
)

// Metrics holds sweep instrumentation on a private registry, so several
// runners in one process never collide.
type Metrics struct {
	registry *prometheus.Registry
	runs     *prometheus.CounterVec
	elapsed  *prometheus.HistogramVec
	swaps    *prometheus.CounterVec
}

// NewMetrics creates and registers the sweep metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qecc_sweep_runs_total",
				Help: "Scheduling runs by policy and outcome",
			},
			[]string{"policy", "outcome"},
		),
		elapsed: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qecc_sweep_schedule_elapsed",
				Help:    "Schedule makespan in time units, before repetition",
				Buckets: prometheus.ExponentialBuckets(100, 4, 10),
			},
			[]string{"policy"},
		),
		swaps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qecc_sweep_swaps_total",
				Help: "Swaps inserted by the scheduler",
			},
			[]string{"policy"},
		),
	}
	m.registry.MustRegister(m.runs, m.elapsed, m.swaps)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// observe records one scheduling run. res is nil when err is non-nil.
func (m *Metrics) observe(p schedule.Policy, res *schedule.Result, err error) {
	policy := p.String()
	switch {
	case err != nil:
		m.runs.WithLabelValues(policy, OutcomeError).Inc()
		return
	case res.Truncated:
		m.runs.WithLabelValues(policy, OutcomeTruncated).Inc()
	default:
		m.runs.WithLabelValues(policy, OutcomeOK).Inc()
	}
	m.elapsed.WithLabelValues(policy).Observe(float64(res.Elapsed))
	m.swaps.WithLabelValues(policy).Add(float64(res.Swaps.Total()))
}

// WriteTextfile writes every metric in the text exposition format, for
// node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
