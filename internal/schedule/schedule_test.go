package schedule

import (
	"bytes"
	"log/slog"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
	"github.com/WestGround/qecc-iontrap-chip/internal/testutil"
)

const (
	sw = circuit.KindSwap
	sh = circuit.KindShuttle
	qc = circuit.KindCorrection
	ms = circuit.KindMS
)

type want struct {
	kinds  []circuit.Kind
	starts []int64
}

func assertTape(t *testing.T, s *Schedule, q int, w want) {
	t.Helper()
	var kinds []circuit.Kind
	var starts []int64
	for _, e := range s.Tape(q) {
		kinds = append(kinds, e.Kind)
		starts = append(starts, e.Start)
	}
	assert.Equal(t, w.kinds, kinds, "qubit %d kinds", q)
	assert.Equal(t, w.starts, starts, "qubit %d starts", q)
}

func TestBaseline_SameSectorNeedsNoSwap(t *testing.T) {
	c := testutil.MustParse(t, "2 1\nms 0 1")
	res, err := Baseline(c, Params{SectorSize: 2, EmptySectors: DefaultEmptySectors})
	require.NoError(t, err)

	for q := 0; q < 2; q++ {
		assertTape(t, res.Schedule, q, want{
			kinds:  []circuit.Kind{ms, sh, qc},
			starts: []int64{0, 5, 20},
		})
	}
	assert.Zero(t, res.Schedule.Count(sw))
	assert.Zero(t, res.Swaps.Total())
	assert.Equal(t, int64(20), res.Elapsed)
	assert.Equal(t, 1, res.Rounds)
	assert.False(t, res.Truncated)

	p, ok := res.Schedule.Partner(0, 0)
	require.True(t, ok)
	assert.Equal(t, circuit.Ref{Qubit: 1, Pos: 0}, p)
	require.NoError(t, res.Schedule.Validate())
}

func TestBaseline_SwapsTrailingEndpoint(t *testing.T) {
	c := testutil.MustParse(t, "3 1\nms 0 2")
	res, err := Baseline(c, Params{SectorSize: 2, EmptySectors: 1})
	require.NoError(t, err)

	assertTape(t, res.Schedule, 0, want{
		kinds:  []circuit.Kind{sw, sh, ms, sh, qc},
		starts: []int64{0, 15, 30, 35, 50},
	})
	assertTape(t, res.Schedule, 1, want{
		kinds:  []circuit.Kind{sw, sh, sh, qc},
		starts: []int64{0, 15, 35, 50},
	})
	assertTape(t, res.Schedule, 2, want{
		kinds:  []circuit.Kind{sh, ms, sh, qc},
		starts: []int64{15, 30, 35, 50},
	})
	assert.Equal(t, int64(50), res.Elapsed)
	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, SwapStats{Move: 1}, res.Swaps)
	require.NoError(t, res.Schedule.Validate())
}

func TestBalanced_CorrectsVerticalSlotsEveryRound(t *testing.T) {
	c := testutil.MustParse(t, "3 1\nms 0 2")
	res, err := Balanced(c, Params{SectorSize: 2, EmptySectors: 1, CorrectionTime: 25})
	require.NoError(t, err)

	assertTape(t, res.Schedule, 0, want{
		kinds:  []circuit.Kind{sw, sh, qc, sh, ms, sh, qc},
		starts: []int64{0, 40, 55, 80, 95, 125, 140},
	})
	assertTape(t, res.Schedule, 1, want{
		kinds:  []circuit.Kind{sw, sh, sh, qc, sh, qc},
		starts: []int64{0, 40, 80, 100, 125, 140},
	})
	assertTape(t, res.Schedule, 2, want{
		kinds:  []circuit.Kind{qc, sh, sh, ms, sh, qc},
		starts: []int64{15, 40, 80, 95, 125, 140},
	})
	assert.Equal(t, int64(140), res.Elapsed)
	assert.Equal(t, 3, res.Rounds)
	assert.Equal(t, 1, res.Swaps.Move)
	require.NoError(t, res.Schedule.Validate())
}

func TestOverlapped_SwapsTowardFarPartner(t *testing.T) {
	c := testutil.MustParse(t, "3 1\nms 0 2")
	res, err := Overlapped(c, Params{SectorSize: 2, EmptySectors: 1, CorrectionTime: 25})
	require.NoError(t, err)

	assertTape(t, res.Schedule, 0, want{
		kinds:  []circuit.Kind{sw, sh, qc, sh, ms, sh, qc},
		starts: []int64{0, 25, 40, 65, 80, 105, 120},
	})
	assertTape(t, res.Schedule, 1, want{
		kinds:  []circuit.Kind{sw, sh, sh, qc, sh, qc},
		starts: []int64{0, 25, 65, 80, 105, 120},
	})
	assertTape(t, res.Schedule, 2, want{
		kinds:  []circuit.Kind{qc, sh, sh, ms, sh, qc},
		starts: []int64{0, 25, 65, 80, 105, 120},
	})
	assert.Equal(t, int64(120), res.Elapsed)
	assert.Equal(t, 3, res.Rounds)
	assert.Equal(t, SwapStats{Far: 1}, res.Swaps)
	require.NoError(t, res.Schedule.Validate())
}

func allPolicies(t *testing.T, c *circuit.Circuit, opts ...Option) map[Policy]*Result {
	t.Helper()
	out := make(map[Policy]*Result)
	for _, p := range Policies() {
		res, err := Run(p, c, Params{SectorSize: 2, EmptySectors: DefaultEmptySectors, CorrectionTime: 25}, opts...)
		require.NoError(t, err, "policy %s", p)
		require.Equal(t, p, res.Policy)
		out[p] = res
	}
	return out
}

func TestEmptyCircuit_OnlyTerminalCorrection(t *testing.T) {
	c := testutil.MustParse(t, "1 1\n")
	for p, res := range allPolicies(t, c) {
		assertTape(t, res.Schedule, 0, want{kinds: []circuit.Kind{qc}, starts: []int64{0}})
		assert.Zero(t, res.Rounds, "policy %s", p)
		assert.Zero(t, res.Elapsed, "policy %s", p)
	}
}

func TestSingleGate_FinishesInOneRound(t *testing.T) {
	c := testutil.MustParse(t, "1 1\ngpi 0")
	for p, res := range allPolicies(t, c) {
		assert.Equal(t, 1, res.Rounds, "policy %s", p)
		var kinds []circuit.Kind
		for _, e := range res.Schedule.Tape(0) {
			kinds = append(kinds, e.Kind)
		}
		assert.Equal(t, []circuit.Kind{circuit.KindGPI, sh, qc}, kinds, "policy %s", p)
	}
}

func assertExpansion(t *testing.T, s *Schedule, depth int) {
	t.Helper()
	inject := s.Count(circuit.KindInjectMS)
	assert.GreaterOrEqual(t, inject, 1)
	assert.LessOrEqual(t, inject, depth)
	assert.Equal(t, inject, s.Count(circuit.KindMeasure))
	assert.Equal(t, 3*inject, s.Count(circuit.KindGPI2))
}

func TestRotation_WaitsForVerticalSector(t *testing.T) {
	c := testutil.MustParse(t, "1 1\nrz 0 3")
	params := Params{SectorSize: 2, EmptySectors: DefaultEmptySectors, CorrectionTime: 25}

	bal, err := Balanced(c, params, WithSeed(3))
	require.NoError(t, err)
	assert.Equal(t, 3, bal.Rounds)
	assert.Equal(t, circuit.KindGPI2, bal.Schedule.At(0, 2).Kind)
	assert.Equal(t, int64(80), bal.Schedule.At(0, 2).Start)
	assertExpansion(t, bal.Schedule, 3)

	ov, err := Overlapped(c, params, WithSeed(3))
	require.NoError(t, err)
	assert.Equal(t, 3, ov.Rounds)
	assert.Equal(t, circuit.KindGPI2, ov.Schedule.At(0, 2).Kind)
	assert.Equal(t, int64(80), ov.Schedule.At(0, 2).Start)
	assertExpansion(t, ov.Schedule, 3)
}

func TestRotation_MissingDepth(t *testing.T) {
	c := testutil.MustParse(t, "1 1\nrz 0")
	params := Params{SectorSize: 2, EmptySectors: DefaultEmptySectors, CorrectionTime: 25}

	for _, p := range []Policy{PolicyBalanced, PolicyOverlapped} {
		_, err := Run(p, c, params)
		require.Error(t, err)
		assert.True(t, IsMissingDepth(err), "policy %s", p)

		var se *Error
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 0, se.Qubit)
		assert.Equal(t, 0, se.Pos)

		res, err := Run(p, c, params, WithFallbackDepth(2), WithSeed(1))
		require.NoError(t, err)
		assertExpansion(t, res.Schedule, 2)
	}

	res, err := Baseline(c, params)
	require.NoError(t, err)
	assert.Equal(t, circuit.KindRZ, res.Schedule.At(0, 0).Kind)
	assert.Zero(t, res.Schedule.Count(circuit.KindInjectMS))
}

func TestInvalidParams(t *testing.T) {
	c := testutil.MustParse(t, "2 1\nms 0 1")
	tests := []struct {
		name   string
		policy Policy
		c      *circuit.Circuit
		params Params
		opts   []Option
	}{
		{"nil circuit", PolicyBalanced, nil, Params{SectorSize: 2, EmptySectors: 1, CorrectionTime: 5}, nil},
		{"zero sector size", PolicyBaseline, c, Params{SectorSize: 0, EmptySectors: 1}, nil},
		{"no empty sectors", PolicyOverlapped, c, Params{SectorSize: 2, CorrectionTime: 5}, nil},
		{"no correction time", PolicyBalanced, c, Params{SectorSize: 2, EmptySectors: 1}, nil},
		{"two-qubit op with unit sectors", PolicyBaseline, c, Params{SectorSize: 1, EmptySectors: 1}, nil},
		{"bad timing", PolicyBaseline, c, Params{SectorSize: 2, EmptySectors: 1}, []Option{WithTiming(Timing{})}},
		{"negative fallback", PolicyBalanced, c, Params{SectorSize: 2, EmptySectors: 1, CorrectionTime: 5}, []Option{WithFallbackDepth(-1)}},
		{"gate longer than overlapped budget", PolicyOverlapped, c, Params{SectorSize: 2, EmptySectors: 1, CorrectionTime: 2}, nil},
		{"unknown policy", Policy(0), c, Params{SectorSize: 2, EmptySectors: 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.policy, tt.c, tt.params, tt.opts...)
			require.Error(t, err)
			assert.True(t, IsInvalidParams(err), "got %v", err)
			assert.Contains(t, err.Error(), string(ErrCodeInvalidParams))
		})
	}
}

func TestTimeCeiling_TruncatesWithTail(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	c := testutil.MustParse(t, "3 1\nms 0 2")
	res, err := Balanced(c, Params{SectorSize: 2, EmptySectors: 1, CorrectionTime: 25},
		WithTimeCeiling(30), WithLogger(logger))
	require.NoError(t, err, "truncation is not an error")

	assert.True(t, res.Truncated)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, int64(55), res.Elapsed)
	require.NoError(t, res.Schedule.Validate())
	for q := 0; q < 3; q++ {
		last := res.Schedule.At(q, res.Schedule.Len(q)-1)
		assert.Equal(t, qc, last.Kind)
		assert.Equal(t, int64(55), last.Start)
	}
	assert.Contains(t, buf.String(), "schedule truncated")
	assert.Contains(t, buf.String(), "policy=balanced")
}

func TestOverlapped_StalledRunIsTruncated(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	c := testutil.MustParse(t, "6 1\ngpi2 4\nms 2 0\ngpi 0\ngpi 1\nms 2 5\nms 2 5\ngpi 2\nrz 2 1\nms 2 0\nms 4 0\nms 5 2")
	res, err := Overlapped(c, Params{SectorSize: 2, EmptySectors: 1, CorrectionTime: 25}, WithLogger(logger))
	require.NoError(t, err, "a stalled run is truncated, not failed")

	assert.True(t, res.Truncated)
	assert.Less(t, res.Rounds, 1000)
	require.NoError(t, res.Schedule.Validate())
	for q := 0; q < c.NumQubits(); q++ {
		assert.Equal(t, qc, res.Schedule.At(q, res.Schedule.Len(q)-1).Kind, "qubit %d", q)
	}
	assert.Contains(t, buf.String(), "schedule truncated")
	assert.Contains(t, buf.String(), "stalled=true")
}

func TestStall_NeedsFullSweepWithoutProgress(t *testing.T) {
	c := testutil.MustParse(t, "3 1\nms 0 2")
	e, err := newEngine(PolicyBalanced, c, Params{SectorSize: 2, EmptySectors: 1, CorrectionTime: 25}, nil)
	require.NoError(t, err)
	sweep := 2 * e.shuttle.MaxShift
	require.Positive(t, sweep)

	for i := 1; i < sweep; i++ {
		assert.False(t, e.stall(), "idle round %d", i)
	}
	assert.True(t, e.stall())

	e.cursor[1]++
	assert.False(t, e.stall(), "cursor progress resets the count")
	e.swaps.record(reasonMove)
	assert.False(t, e.stall(), "a swap resets the count")
}

func TestTrace_ReportsEveryRound(t *testing.T) {
	var snaps []Snapshot
	c := testutil.MustParse(t, "3 1\nms 0 2")
	res, err := Balanced(c, Params{SectorSize: 2, EmptySectors: 1, CorrectionTime: 25},
		WithTrace(func(s Snapshot) { snaps = append(snaps, s) }))
	require.NoError(t, err)

	require.Len(t, snaps, res.Rounds)
	assert.Equal(t, Snapshot{Round: 1, Offset: 0, Right: true, Time: 40, Layout: []int{1, 0, 2}}, snaps[0])
	assert.Equal(t, 1, snaps[1].Offset)
	assert.Equal(t, 2, snaps[2].Offset)
	assert.False(t, snaps[2].Right)
}

func TestChooseEdge(t *testing.T) {
	mk := func(n int, move, stop []int) marks {
		m := marks{move: make([]bool, n), stop: make([]bool, n)}
		for _, i := range move {
			m.move[i] = true
		}
		for _, i := range stop {
			m.stop[i] = true
		}
		return m
	}

	tests := []struct {
		name   string
		m      marks
		right  bool
		pick   int
		reason swapReason
	}{
		{"move closest to right edge", mk(4, []int{0, 2}, nil), true, 2, reasonMove},
		{"move closest to left edge", mk(4, []int{1, 3}, nil), false, 1, reasonMove},
		{"right edge stopped", mk(4, nil, []int{3}), true, 2, reasonStop},
		{"left edge stopped", mk(4, nil, []int{0}), false, 1, reasonStop},
		{"move beats stop", mk(4, []int{0}, []int{3}), true, 0, reasonMove},
		{"all stopped", mk(4, nil, []int{0, 1, 2, 3}), true, 3, reasonNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pick, reason := chooseEdge(0, 4, tt.m, tt.right)
			assert.Equal(t, tt.pick, pick)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestSeed_Reproducible(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 8))
	c := testutil.RandomCircuit(rng, testutil.RandomOptions{MaxQubits: 5, MaxOps: 20, MaxDepth: 4})
	params := Params{SectorSize: 3, EmptySectors: 2, CorrectionTime: 25}

	for _, p := range Policies() {
		a, err := Run(p, c, params, WithSeed(42), WithTimeCeiling(200000))
		require.NoError(t, err)
		b, err := Run(p, c, params, WithSeed(42), WithTimeCeiling(200000))
		require.NoError(t, err)

		assert.Equal(t, a.Elapsed, b.Elapsed, "policy %s", p)
		for q := 0; q < c.NumQubits(); q++ {
			assert.Equal(t, a.Schedule.Tape(q), b.Schedule.Tape(q), "policy %s qubit %d", p, q)
		}
	}
}

func countCircuit(c *circuit.Circuit, k circuit.Kind) int {
	n := 0
	for q := 0; q < c.NumQubits(); q++ {
		for i := 0; i < c.Len(q); i++ {
			if c.At(q, i).Kind == k {
				n++
			}
		}
	}
	return n
}

func TestRandomCircuits_Invariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(2024, 10))
	for i := 0; i < 60; i++ {
		c := testutil.RandomCircuit(rng, testutil.RandomOptions{MaxQubits: 6, MaxOps: 16, MaxDepth: 3})
		params := Params{
			SectorSize:     2 + rng.IntN(3),
			EmptySectors:   1 + rng.IntN(3),
			CorrectionTime: 25,
		}
		for _, p := range Policies() {
			layoutOK := true
			res, err := Run(p, c, params,
				WithSeed(uint64(i)),
				WithTimeCeiling(200000),
				WithTrace(func(s Snapshot) {
					perm := slices.Clone(s.Layout)
					slices.Sort(perm)
					for j, v := range perm {
						if v != j {
							layoutOK = false
						}
					}
				}),
			)
			require.NoError(t, err, "circuit %d policy %s", i, p)
			require.NoError(t, res.Schedule.Validate(), "circuit %d policy %s", i, p)
			assert.True(t, layoutOK, "circuit %d policy %s: layout is not a permutation", i, p)
			assert.Equal(t, 2*res.Swaps.Total(), res.Schedule.Count(sw))

			if !res.Truncated {
				assert.Equal(t, countCircuit(c, ms), res.Schedule.Count(ms), "circuit %d policy %s", i, p)
				assert.Equal(t, countCircuit(c, circuit.KindGPI), res.Schedule.Count(circuit.KindGPI))
			}
		}
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range Policies() {
		got, err := ParsePolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePolicy("mark")
	assert.Error(t, err)

	var p Policy
	require.NoError(t, p.UnmarshalText([]byte("overlapped")))
	assert.Equal(t, PolicyOverlapped, p)
	assert.True(t, p.Corrected())
	assert.False(t, PolicyBaseline.Corrected())
}

func TestFrontier_FIFO(t *testing.T) {
	f := newFrontier(0)
	_, ok := f.pop()
	assert.False(t, ok)

	f.push(circuit.Ref{Qubit: 1})
	f.push(circuit.Ref{Qubit: 2})
	assert.Equal(t, 2, f.len())

	r, ok := f.pop()
	require.True(t, ok)
	assert.Equal(t, 1, r.Qubit)
	r, _ = f.pop()
	assert.Equal(t, 2, r.Qubit)
	assert.Zero(t, f.len())
}
