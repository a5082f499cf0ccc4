package sweep

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/WestGround/qecc-iontrap-chip/internal/reliability"
	"github.com/WestGround/qecc-iontrap-chip/internal/schedule"
	tu "github.com/WestGround/qecc-iontrap-chip/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPlan_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plan.yaml", `
name: smoke
circuit: circuit.txt
iterations: 2
seed: 7
workers: 2
policies: [balanced, baseline]
codes:
  - c7
  - {name: custom, n: 9, k: 1, d: 3, correction_time: 30}
sector_sizes: [2]
error_rates: {start: 0, step: 0.001, count: 3}
timing:
  swap: 20
`)

	plan, err := LoadPlan(path)
	require.NoError(t, err)

	assert.Equal(t, "smoke", plan.Name)
	assert.Equal(t, filepath.Join(dir, "circuit.txt"), plan.CircuitPath())
	assert.Equal(t, 2, plan.Iterations)
	assert.Equal(t, uint64(7), plan.Seed)
	assert.Equal(t, schedule.DefaultEmptySectors, plan.EmptySectors)

	want := schedule.DefaultTiming()
	want.Swap = 20
	assert.Equal(t, want, plan.Timing)
	assert.Equal(t, reliability.DefaultRatios(), plan.Ratios)

	codes, err := plan.ResolvedCodes()
	require.NoError(t, err)
	assert.Equal(t, []reliability.Code{
		reliability.Code7,
		{Name: "custom", N: 9, K: 1, D: 3, CorrectionTime: 30},
	}, codes)

	assert.InDeltaSlice(t, []float64{0, 0.001, 0.002}, plan.ErrorRates.Values(), 1e-15)

	policies, err := plan.ParsedPolicies()
	require.NoError(t, err)
	assert.Equal(t, []schedule.Policy{schedule.PolicyBalanced, schedule.PolicyBaseline}, policies)
}

func TestLoadPlan_CUE(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plan.cue", `
#Rate: number & >=0 & <=1

name:         "cue-smoke"
circuit:      "/abs/circuit.txt"
policies:     ["overlapped"]
codes:        ["c17"]
sector_sizes: [2, 3]
error_rates:  [...#Rate] & [0.0001, 0.001]
`)

	plan, err := LoadPlan(path)
	require.NoError(t, err)

	assert.Equal(t, "cue-smoke", plan.Name)
	assert.Equal(t, "/abs/circuit.txt", plan.CircuitPath())
	assert.Equal(t, []int{2, 3}, plan.SectorSizes)
	assert.Equal(t, []float64{0.0001, 0.001}, plan.ErrorRates.Values())
	assert.Equal(t, 1, plan.Iterations)

	codes, err := plan.ResolvedCodes()
	require.NoError(t, err)
	assert.Equal(t, []reliability.Code{reliability.Code17}, codes)
}

func TestLoadPlan_CUEConstraintViolation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plan.cue", `
#Rate: number & >=0 & <=1
name:        "bad"
error_rates: [...#Rate] & [2]
`)
	_, err := LoadPlan(path)
	require.Error(t, err)
}

func TestLoadPlan_RejectsUnknownFields(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plan.yaml", "nmae: typo\n")
	_, err := LoadPlan(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nmae")
}

func TestPlanValidate_CollectsEveryProblem(t *testing.T) {
	plan, err := decodePlan([]byte(`
iterations: 0
policies: [bogus]
sector_sizes: []
error_rates: [2]
`))
	require.NoError(t, err)

	err = plan.Validate()
	require.Error(t, err)
	problems := Problems(err)
	assert.Len(t, problems, 6)
	for _, fragment := range []string{"name is required", "circuit is required", "iterations", "bogus", "sector_sizes", "error_rates[0]"} {
		assert.Contains(t, err.Error(), fragment)
	}
}

func TestPlanValidate_CorrectedPolicyNeedsCorrectionTime(t *testing.T) {
	plan := DefaultPlan()
	plan.Name = "x"
	plan.Circuit = "x"
	plan.Policies = []string{"balanced"}
	plan.Codes = []CodeSpec{{Code: reliability.Code{Name: "slow", N: 7, K: 1, D: 3}}}
	plan.SectorSizes = []int{2}
	plan.ErrorRates = Rates{List: []float64{0}}

	err := plan.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "correction_time")

	plan.Policies = []string{"baseline"}
	assert.NoError(t, plan.Validate())
}

func TestRates_EmptyRange(t *testing.T) {
	r := Rates{Range: &RateRange{Start: 0.1, Step: 0.1, Count: 0}}
	assert.Empty(t, r.Values())
}

func unitPlan() *Plan {
	plan := DefaultPlan()
	plan.Name = "unit"
	plan.Circuit = "inline"
	plan.Iterations = 2
	plan.Seed = 42
	plan.Workers = 3
	plan.Policies = []string{"balanced", "baseline", "overlapped"}
	plan.Codes = []CodeSpec{{Preset: "c7"}}
	plan.SectorSizes = []int{2, 3}
	plan.ErrorRates = Rates{List: []float64{0, 1e-3}}
	return &plan
}

func TestRunner_Grid(t *testing.T) {
	c := tu.MustParse(t, "3 2\nms 0 2\ngpi 1\nrz 1 2")
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewRunner(
		WithIDGenerator(tu.NewSequentialIDGenerator("t")),
		WithClock(func() time.Time { return created }),
	)

	report, err := r.Run(context.Background(), unitPlan(), c)
	require.NoError(t, err)

	assert.Equal(t, "t-0001", report.ID)
	assert.Equal(t, "unit", report.Name)
	assert.Equal(t, created, report.CreatedAt)
	require.Len(t, report.Rows, 24)

	runs := map[string]bool{}
	for _, row := range report.Rows {
		runs[row.RunID] = true
		if row.Rate == 0 {
			assert.Equal(t, 1.0, row.Success, "row %+v", row)
		}
		if row.Policy == "baseline" {
			assert.Equal(t, reliability.Uncorrected.Name, row.Code)
		} else {
			assert.Equal(t, "c7", row.Code)
		}
		assert.Positive(t, row.Elapsed)
		assert.Zero(t, row.Elapsed%2, "elapsed scales with repeat")
		assert.False(t, row.Truncated)
	}
	assert.Len(t, runs, 12)

	first := report.Rows[0]
	assert.Equal(t, 0, first.Iteration)
	assert.Equal(t, "balanced", first.Policy)
	assert.Equal(t, 2, first.SectorSize)
	assert.Equal(t, 0.0, first.Rate)
	assert.Equal(t, 1e-3, report.Rows[1].Rate)
	assert.Equal(t, first.RunID, report.Rows[1].RunID)
}

func TestRunner_ReproducibleAcrossWorkerCounts(t *testing.T) {
	c := tu.MustParse(t, "4 1\nms 0 3\nrz 2 3\nms 1 2\nrz 0 1")

	parallel, err := NewRunner().Run(context.Background(), unitPlan(), c)
	require.NoError(t, err)

	sequentialPlan := unitPlan()
	sequentialPlan.Workers = 1
	sequential, err := NewRunner().Run(context.Background(), sequentialPlan, c)
	require.NoError(t, err)

	if diff := cmp.Diff(parallel.Rows, sequential.Rows, cmpopts.IgnoreFields(Row{}, "RunID")); diff != "" {
		t.Errorf("rows differ between worker counts (-parallel +sequential):\n%s", diff)
	}
}

func TestRunner_Metrics(t *testing.T) {
	c := tu.MustParse(t, "3 1\nms 0 2")
	m := NewMetrics()
	_, err := NewRunner(WithMetrics(m)).Run(context.Background(), unitPlan(), c)
	require.NoError(t, err)

	for _, policy := range []string{"balanced", "baseline", "overlapped"} {
		assert.Equal(t, 4.0, testutil.ToFloat64(m.runs.WithLabelValues(policy, OutcomeOK)), policy)
	}
	assert.Equal(t, 3, testutil.CollectAndCount(m.elapsed))

	path := filepath.Join(t.TempDir(), "sweep.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `qecc_sweep_runs_total{outcome="ok",policy="balanced"} 4`)
	assert.Contains(t, string(data), "qecc_sweep_schedule_elapsed_bucket")
}

func TestRunner_SchedulerErrorStopsSweep(t *testing.T) {
	c := tu.MustParse(t, "1 1\nrz 0")
	plan := unitPlan()
	plan.Iterations = 1
	plan.Workers = 1
	plan.Policies = []string{"balanced"}
	plan.SectorSizes = []int{2}

	m := NewMetrics()
	_, err := NewRunner(WithMetrics(m)).Run(context.Background(), plan, c)
	require.Error(t, err)
	assert.True(t, schedule.IsMissingDepth(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("balanced", OutcomeError)))

	plan.FallbackDepth = 2
	_, err = NewRunner().Run(context.Background(), plan, c)
	assert.NoError(t, err)
}

func TestRunner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner().Run(ctx, unitPlan(), tu.MustParse(t, "2 1\nms 0 1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_RejectsInvalidPlan(t *testing.T) {
	plan := unitPlan()
	plan.SectorSizes = nil
	_, err := NewRunner().Run(context.Background(), plan, tu.MustParse(t, "2 1\nms 0 1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid plan")
}

func TestDeriveSeed_DependsOnEveryCoordinate(t *testing.T) {
	base := deriveSeed(1, 0, schedule.PolicyBalanced, "c7", 2)
	assert.Equal(t, base, deriveSeed(1, 0, schedule.PolicyBalanced, "c7", 2))
	for _, other := range []uint64{
		deriveSeed(2, 0, schedule.PolicyBalanced, "c7", 2),
		deriveSeed(1, 1, schedule.PolicyBalanced, "c7", 2),
		deriveSeed(1, 0, schedule.PolicyOverlapped, "c7", 2),
		deriveSeed(1, 0, schedule.PolicyBalanced, "c17", 2),
		deriveSeed(1, 0, schedule.PolicyBalanced, "c7", 3),
	} {
		assert.NotEqual(t, base, other)
	}
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
