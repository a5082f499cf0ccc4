package sweep

import (
	"cmp"
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
	"github.com/WestGround/qecc-iontrap-chip/internal/reliability"
	"github.com/WestGround/qecc-iontrap-chip/internal/schedule"
)

// Row is one evaluated point: one scheduling run at one error rate. Success
// and Elapsed already account for the circuit's repetition multiplier.
type Row struct {
	RunID      string  `json:"run_id"`
	Iteration  int     `json:"iteration"`
	Policy     string  `json:"policy"`
	Code       string  `json:"code"`
	SectorSize int     `json:"sector_size"`
	Rate       float64 `json:"rate"`
	Success    float64 `json:"success"`
	Elapsed    int64   `json:"elapsed"`
	Truncated  bool    `json:"truncated"`
	Rounds     int     `json:"rounds"`
	Swaps      int     `json:"swaps"`
}

// Report is the outcome of one sweep. Rows are ordered by iteration,
// policy, code and sector size, then by error rate in plan order.
type Report struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Circuit   string    `json:"circuit"`
	Seed      uint64    `json:"seed"`
	CreatedAt time.Time `json:"created_at"`
	Rows      []Row     `json:"rows"`
}

// Runner executes plans.
type Runner struct {
	ids     RunIDGenerator
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(g RunIDGenerator) RunnerOption {
	return func(r *Runner) {
		r.ids = g
	}
}

// WithMetrics records every run into m.
func WithMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithLogger sets the logger for sweep progress and scheduler warnings.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithClock sets the source of Report.CreatedAt.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type job struct {
	iteration  int
	policy     schedule.Policy
	code       reliability.Code
	model      *reliability.Model
	sectorSize int
	seed       uint64
}

func (j job) String() string {
	return fmt.Sprintf("iteration %d, %s, %s, sector size %d", j.iteration, j.policy, j.code.Name, j.sectorSize)
}

// deriveSeed mixes the plan seed with the run coordinates, so a run's coin
// flips do not depend on the order or concurrency of the sweep.
func deriveSeed(seed uint64, iteration int, p schedule.Policy, code string, sectorSize int) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d/%d/%s/%s/%d", seed, iteration, p, code, sectorSize)
	return h.Sum64()
}

func (r *Runner) jobs(plan *Plan) ([]job, error) {
	policies, err := plan.ParsedPolicies()
	if err != nil {
		return nil, err
	}
	codes, err := plan.ResolvedCodes()
	if err != nil {
		return nil, err
	}

	models := make(map[string]*reliability.Model)
	model := func(code reliability.Code) (*reliability.Model, error) {
		if m, ok := models[code.Name]; ok {
			return m, nil
		}
		m, err := reliability.New(code, reliability.WithRatios(plan.Ratios))
		if err != nil {
			return nil, err
		}
		models[code.Name] = m
		return m, nil
	}

	var out []job
	for it := 0; it < plan.Iterations; it++ {
		for _, p := range policies {
			runCodes := codes
			if !p.Corrected() {
				runCodes = []reliability.Code{reliability.Uncorrected}
			}
			for _, code := range runCodes {
				m, err := model(code)
				if err != nil {
					return nil, err
				}
				for _, s := range plan.SectorSizes {
					out = append(out, job{
						iteration:  it,
						policy:     p,
						code:       code,
						model:      m,
						sectorSize: s,
						seed:       deriveSeed(plan.Seed, it, p, code.Name, s),
					})
				}
			}
		}
	}
	return out, nil
}

// Run schedules the circuit once per iteration, policy, code and sector
// size, and evaluates each schedule at every error rate of the plan. Runs
// execute concurrently, at most plan.Workers at a time. The first failing
// run cancels the rest.
func (r *Runner) Run(ctx context.Context, plan *Plan, c *circuit.Circuit) (*Report, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	jobs, err := r.jobs(plan)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ID:        r.ids.Generate(),
		Name:      plan.Name,
		Circuit:   plan.Circuit,
		Seed:      plan.Seed,
		CreatedAt: r.now().UTC(),
	}
	workers := plan.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	r.logger.Info("sweep started",
		"sweep", report.ID, "name", plan.Name, "runs", len(jobs), "workers", workers)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := r.runOne(plan, c, j)
			if err != nil {
				return err
			}
			mu.Lock()
			report.Rows = append(report.Rows, rows...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sweep %s: %w", plan.Name, err)
	}

	slices.SortStableFunc(report.Rows, func(a, b Row) int {
		return cmp.Or(
			cmp.Compare(a.Iteration, b.Iteration),
			cmp.Compare(a.Policy, b.Policy),
			cmp.Compare(a.Code, b.Code),
			cmp.Compare(a.SectorSize, b.SectorSize),
		)
	})
	r.logger.Info("sweep finished", "sweep", report.ID, "rows", len(report.Rows))
	return report, nil
}

func (r *Runner) runOne(plan *Plan, c *circuit.Circuit, j job) ([]Row, error) {
	params := schedule.Params{
		SectorSize:     j.sectorSize,
		EmptySectors:   plan.EmptySectors,
		CorrectionTime: j.code.CorrectionTime,
	}
	res, err := schedule.Run(j.policy, c, params,
		schedule.WithSeed(j.seed),
		schedule.WithTiming(plan.Timing),
		schedule.WithTimeCeiling(plan.TimeCeiling),
		schedule.WithFallbackDepth(plan.FallbackDepth),
		schedule.WithLogger(r.logger),
	)
	if r.metrics != nil {
		r.metrics.observe(j.policy, res, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", j, err)
	}

	runID := r.ids.Generate()
	repeat := c.Repeat()
	rates := plan.ErrorRates.Values()
	rows := make([]Row, 0, len(rates))
	for _, rate := range rates {
		p, err := j.model.SuccessProbability(res.Schedule, rate)
		if err != nil {
			return nil, fmt.Errorf("%s, rate %v: %w", j, rate, err)
		}
		rows = append(rows, Row{
			RunID:      runID,
			Iteration:  j.iteration,
			Policy:     j.policy.String(),
			Code:       j.code.Name,
			SectorSize: j.sectorSize,
			Rate:       rate,
			Success:    reliability.Extrapolate(p, repeat),
			Elapsed:    res.Elapsed * int64(repeat),
			Truncated:  res.Truncated,
			Rounds:     res.Rounds,
			Swaps:      res.Swaps.Total(),
		})
	}
	r.logger.Debug("run finished",
		"run", runID, "policy", j.policy, "code", j.code.Name, "sector_size", j.sectorSize,
		"iteration", j.iteration, "elapsed", res.Elapsed, "truncated", res.Truncated)
	return rows, nil
}
