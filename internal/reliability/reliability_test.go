package reliability

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
	"github.com/WestGround/qecc-iontrap-chip/internal/schedule"
	"github.com/WestGround/qecc-iontrap-chip/internal/testutil"
)

type fakeTapes [][]circuit.Kind

func (f fakeTapes) NumQubits() int { return len(f) }
func (f fakeTapes) Len(q int) int  { return len(f[q]) }
func (f fakeTapes) At(q, i int) schedule.Entry {
	return schedule.Entry{Kind: f[q][i]}
}

func mustModel(t *testing.T, code Code, opts ...Option) *Model {
	t.Helper()
	m, err := New(code, opts...)
	require.NoError(t, err)
	return m
}

func defaultParams() schedule.Params {
	return schedule.Params{SectorSize: 2, EmptySectors: schedule.DefaultEmptySectors, CorrectionTime: 25}
}

func TestBinomial_PascalProperties(t *testing.T) {
	b := NewBinomial()
	for n := 0; n <= 40; n++ {
		assert.Equal(t, 1.0, b.C(n, 0))
		assert.Equal(t, 1.0, b.C(n, n))
		for k := 1; k < n; k++ {
			assert.Equal(t, b.C(n-1, k-1)+b.C(n-1, k), b.C(n, k), "C(%d,%d)", n, k)
		}
	}
	assert.Equal(t, 21.0, b.C(7, 2))
	assert.Equal(t, 4495.0, b.C(31, 3))
	assert.Zero(t, b.C(3, 4))
	assert.Zero(t, b.C(3, -1))
	assert.Positive(t, b.Len())
}

func TestCorrectable_NoErrorIsCertain(t *testing.T) {
	b := NewBinomial()
	for _, code := range Presets() {
		assert.Equal(t, 1.0, Correctable(b, code, 0), "code %s", code)
	}
}

func TestCorrectable_MonotonicInDistance(t *testing.T) {
	b := NewBinomial()
	for _, p := range []float64{0.001, 0.01, 0.1, 0.5} {
		prev := 0.0
		for d := 1; d <= 17; d += 2 {
			got := Correctable(b, Code{Name: "x", N: 17, K: 1, D: d}, p)
			assert.GreaterOrEqual(t, got, prev, "p=%v d=%d", p, d)
			prev = got
		}
	}
}

func TestSuccess_EmptyCircuitIsCertain(t *testing.T) {
	c := testutil.MustParse(t, "1 1\n")
	for _, p := range schedule.Policies() {
		res, err := schedule.Run(p, c, defaultParams())
		require.NoError(t, err)
		for _, code := range Presets() {
			m := mustModel(t, code)
			for _, rate := range []float64{0, 1e-4, 0.01, 0.2} {
				got, err := m.SuccessProbability(res.Schedule, rate)
				require.NoError(t, err)
				assert.Equal(t, 1.0, got, "policy %s code %s rate %v", p, code, rate)
			}
		}
	}
}

func TestSuccess_ZeroRateIsCertain(t *testing.T) {
	c := testutil.MustParse(t, "1 1\ngpi 0")
	for _, p := range schedule.Policies() {
		res, err := schedule.Run(p, c, defaultParams())
		require.NoError(t, err)
		got, err := mustModel(t, Code7).SuccessProbability(res.Schedule, 0)
		require.NoError(t, err)
		assert.Equal(t, 1.0, got, "policy %s", p)
	}
}

func TestSuccess_HandComputed(t *testing.T) {
	m := mustModel(t, Uncorrected)
	tapes := fakeTapes{
		{circuit.KindMS, circuit.KindShuttle, circuit.KindCorrection},
		{circuit.KindMS, circuit.KindShuttle, circuit.KindCorrection},
	}
	rate := 0.01

	p := 0.8 * rate
	e := 0.1 * rate
	p = p + e - 4*e*p/3
	c := 1 - 2*p/3
	want := math.Pow(c, 4)

	got, err := m.SuccessProbability(tapes, rate)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-15)
}

func TestSuccess_ResidualAfterCorrection(t *testing.T) {
	m := mustModel(t, Code7)
	rate := 0.001
	tapes := fakeTapes{{circuit.KindCorrection, circuit.KindCorrection}}

	b := NewBinomial()
	first := Correctable(b, Code7, 0)
	second := Correctable(b, Code7, 5*rate)
	want := first * first * second * second

	got, err := m.SuccessProbability(tapes, rate)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-15)
	assert.Less(t, got, 1.0)
}

func TestSuccess_Idempotent(t *testing.T) {
	c := testutil.MustParse(t, "3 1\nms 0 2\nrz 1 2\ngpi 2\nms 1 2")
	res, err := schedule.Balanced(c, defaultParams(), schedule.WithSeed(9))
	require.NoError(t, err)

	m := mustModel(t, Code17)
	a, err := m.SuccessProbability(res.Schedule, 1e-3)
	require.NoError(t, err)
	b, err := m.SuccessProbability(res.Schedule, 1e-3)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Greater(t, a, 0.0)
	assert.LessOrEqual(t, a, 1.0)
}

func TestSuccess_DecreasesWithRate(t *testing.T) {
	c := testutil.MustParse(t, "3 1\nms 0 2\ngpi 1\nms 0 1")
	res, err := schedule.Overlapped(c, defaultParams())
	require.NoError(t, err)

	m := mustModel(t, Code7)
	prev := 1.0
	for _, rate := range []float64{0, 1e-5, 1e-4, 1e-3, 1e-2} {
		got, err := m.SuccessProbability(res.Schedule, rate)
		require.NoError(t, err)
		assert.LessOrEqual(t, got, prev, "rate %v", rate)
		prev = got
	}
}

func TestContract_MissingTerminalCorrection(t *testing.T) {
	m := mustModel(t, Code7)
	for name, tapes := range map[string]fakeTapes{
		"empty tape":       {{}},
		"ends with swap":   {{circuit.KindCorrection, circuit.KindSwap}},
		"second qubit bad": {{circuit.KindCorrection}, {circuit.KindGPI}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.SuccessProbability(tapes, 0.01)
			require.Error(t, err)
			assert.True(t, IsContractViolation(err))
			assert.Equal(t, ErrCodeMissingTerminalCorrection, ViolationCodeOf(err))
		})
	}
}

func TestContract_ProbabilityOverflow(t *testing.T) {
	r := DefaultRatios()
	r.Single = 50
	m := mustModel(t, Code7, WithRatios(r))

	_, err := m.SuccessProbability(fakeTapes{{circuit.KindGPI, circuit.KindCorrection}}, 1)
	require.Error(t, err)
	assert.Equal(t, ErrCodeProbabilityOverflow, ViolationCodeOf(err))

	var cv *ContractViolation
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, 0, cv.Qubit)
	assert.Equal(t, 1, cv.Pos)
}

func TestContract_InvalidInputs(t *testing.T) {
	m := mustModel(t, Code7)
	for _, rate := range []float64{-0.1, 1.5, math.NaN()} {
		_, err := m.SuccessProbability(fakeTapes{{circuit.KindCorrection}}, rate)
		assert.Equal(t, ErrCodeInvalidRate, ViolationCodeOf(err), "rate %v", rate)
	}

	_, err := New(Code{Name: "bad", N: 0, K: 1, D: 1})
	assert.Equal(t, ErrCodeInvalidCode, ViolationCodeOf(err))

	_, err = New(Code{Name: "bad", N: 3, K: 1, D: 5})
	assert.Equal(t, ErrCodeInvalidCode, ViolationCodeOf(err))

	r := DefaultRatios()
	r.Swap = -1
	_, err = New(Code7, WithRatios(r))
	assert.Equal(t, ErrCodeInvalidRate, ViolationCodeOf(err))
}

func TestOverhead_IntervalStatistics(t *testing.T) {
	c := testutil.MustParse(t, "3 1\nms 0 2")
	res, err := schedule.Balanced(c, schedule.Params{SectorSize: 2, EmptySectors: 1, CorrectionTime: 25})
	require.NoError(t, err)

	m := mustModel(t, Code7)
	ov, err := m.Overhead(res.Schedule, 1e-3)
	require.NoError(t, err)

	assert.Equal(t, 2, ov.Swaps)
	assert.Equal(t, 9, ov.Shuttles)
	assert.Equal(t, 6, ov.Corrections)

	// Intervals per qubit: q0 [2 3], q1 [3 1], q2 [0 4].
	assert.InDelta(t, 13.0/6, ov.Ops.Mean, 1e-12)
	assert.InDelta(t, 1.0/3, ov.SwapsBetween.Mean, 1e-12)
	assert.InDelta(t, 1.5, ov.ShuttlesBetween.Mean, 1e-12)

	want := moments([]float64{2, 3, 3, 1, 0, 4})
	assert.InDelta(t, want.Std, ov.Ops.Std, 1e-12)

	success, err := m.SuccessProbability(res.Schedule, 1e-3)
	require.NoError(t, err)
	assert.Equal(t, success, ov.Success)
}

func TestMoments(t *testing.T) {
	assert.Equal(t, Moments{}, moments(nil))
	got := moments([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, got.Mean, 1e-12)
	assert.InDelta(t, 2.0, got.Std, 1e-12)
}

func TestExtrapolate(t *testing.T) {
	assert.InDelta(t, 0.125, Extrapolate(0.5, 3), 1e-15)
	assert.Equal(t, 0.9, Extrapolate(0.9, 1))
}

func TestLookupCode(t *testing.T) {
	c, ok := LookupCode("C17")
	require.True(t, ok)
	assert.Equal(t, Code17, c)
	assert.Equal(t, int64(50), c.CorrectionTime)

	_, ok = LookupCode("surface")
	assert.False(t, ok)
	assert.Equal(t, "c7(7,1,3)", Code7.String())
}
