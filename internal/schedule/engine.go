package schedule

import (
	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
	"github.com/WestGround/qecc-iontrap-chip/internal/layout"
)

// engine is the per-run state shared by all policies. Nothing in it outlives
// a single call to a policy function.
type engine struct {
	policy  Policy
	c       *circuit.Circuit
	cfg     config
	params  Params
	geo     layout.Geometry
	shuttle *layout.Shuttle
	pos     *layout.PositionMap
	cursor  []int
	front   *frontier
	sched   *Schedule
	swaps   SwapStats
	rounds  int
	sectors int
	start   int64

	// Progress seen at the last round end, and the run of rounds since.
	done    int
	swapped int
	idle    int
	stalled bool
}

func newEngine(policy Policy, c *circuit.Circuit, p Params, opts []Option) (*engine, error) {
	if c == nil {
		return nil, paramError("nil circuit")
	}
	cfg := newConfig(opts)
	if err := cfg.timing.Validate(); err != nil {
		return nil, paramError("%s", err.Error())
	}
	if p.EmptySectors < 1 {
		return nil, paramError("empty sector count must be positive, got %d", p.EmptySectors)
	}
	if policy.Corrected() && p.CorrectionTime < 1 {
		return nil, paramError("correction time must be positive, got %d", p.CorrectionTime)
	}
	if policy == PolicyOverlapped {
		// The horizontal budget of a round never exceeds two corrections.
		if d := max(cfg.timing.SingleQubit, cfg.timing.TwoQubit); d > 2*p.CorrectionTime {
			return nil, paramError("operation time %d exceeds twice the correction time %d", d, p.CorrectionTime)
		}
	}
	if cfg.fallbackDepth < 0 {
		return nil, paramError("fallback depth must not be negative, got %d", cfg.fallbackDepth)
	}

	shape := layout.ShapeCorrected
	if !policy.Corrected() {
		shape = layout.ShapePlain
	}
	geo, err := layout.NewGeometry(shape, p.SectorSize)
	if err != nil {
		return nil, paramError("%s", err.Error())
	}
	n := c.NumQubits()
	shift, err := geo.MaxShift(n, p.EmptySectors)
	if err != nil {
		return nil, paramError("%s", err.Error())
	}

	e := &engine{
		policy:  policy,
		c:       c,
		cfg:     cfg,
		params:  p,
		geo:     geo,
		shuttle: layout.NewShuttle(shift),
		pos:     layout.NewPositionMap(n),
		cursor:  make([]int, n),
		front:   newFrontier(n),
		sched:   newSchedule(n),
		sectors: geo.SectorCount(n, shift),
	}
	if err := e.check(); err != nil {
		return nil, err
	}
	return e, nil
}

// check rejects circuits the policy could never finish.
func (e *engine) check() error {
	for q := 0; q < e.c.NumQubits(); q++ {
		for i := 0; i < e.c.Len(q); i++ {
			inst := e.c.At(q, i)
			switch inst.Kind.Class() {
			case circuit.ClassClifford:
			case circuit.ClassTwoQubit:
				if !inst.Kind.Paired() {
					return &Error{Code: ErrCodeUnsupportedOp, Message: inst.Kind.String() + " is not a circuit operation", Qubit: q, Pos: i}
				}
				if e.params.SectorSize < 2 {
					return paramError("two-qubit operations need a sector size of at least 2, got %d", e.params.SectorSize)
				}
			case circuit.ClassRotation:
				if e.policy.Corrected() && !inst.HasDepth && e.cfg.fallbackDepth == 0 {
					return &Error{Code: ErrCodeMissingDepth, Message: "rotation without repeat bound", Qubit: q, Pos: i}
				}
			default:
				return &Error{Code: ErrCodeUnsupportedOp, Message: inst.Kind.String() + " is not a circuit operation", Qubit: q, Pos: i}
			}
		}
	}
	return nil
}

// pending reports whether qubit q has unexecuted instances.
func (e *engine) pending(q int) bool { return e.cursor[q] < e.c.Len(q) }

// remaining reports whether any qubit has unexecuted instances.
func (e *engine) remaining() bool {
	for q := range e.cursor {
		if e.pending(q) {
			return true
		}
	}
	return false
}

// next returns the position and instance at qubit q's cursor.
func (e *engine) next(q int) (circuit.Ref, circuit.Instance) {
	ref := circuit.Ref{Qubit: q, Pos: e.cursor[q]}
	return ref, e.c.At(q, ref.Pos)
}

// partnerReady reports whether the partner of a two-qubit instance has
// reached it.
func (e *engine) partnerReady(ref circuit.Ref) (circuit.Ref, bool) {
	p, _ := e.c.Partner(ref.Qubit, ref.Pos)
	return p, e.cursor[p.Qubit] == p.Pos
}

// seed fills the frontier with every qubit's first instance. A two-qubit
// first instance is queued once, from its lower qubit, and only when it is
// also the partner's first instance.
func (e *engine) seed() {
	for q := 0; q < e.c.NumQubits(); q++ {
		if e.c.Len(q) == 0 {
			continue
		}
		inst := e.c.At(q, 0)
		if inst.Kind.Paired() {
			p, _ := e.c.Partner(q, 0)
			if p.Qubit > q && p.Pos == 0 {
				e.front.push(circuit.Ref{Qubit: q, Pos: 0})
			}
			continue
		}
		e.front.push(circuit.Ref{Qubit: q, Pos: 0})
	}
}

// advance moves qubit q past its current instance and queues the next one
// if it is ready.
func (e *engine) advance(q int) {
	e.cursor[q]++
	if !e.pending(q) {
		return
	}
	ref, inst := e.next(q)
	if inst.Kind.Paired() {
		if _, ok := e.partnerReady(ref); !ok {
			return
		}
	}
	e.front.push(ref)
}

// sectorOf returns the sector currently holding logical qubit q.
func (e *engine) sectorOf(q int) int {
	return e.geo.SectorOf(e.pos.Physical(q), e.shuttle.Offset)
}

// depth returns the repeat bound of a rotation.
func (e *engine) depth(inst circuit.Instance) int {
	if inst.HasDepth {
		return inst.Depth
	}
	return e.cfg.fallbackDepth
}

// expand appends the repeat-until-success sequence of a rotation to qubit
// q's tape starting at t and returns the time after the last step.
func (e *engine) expand(q, depth int, t int64) int64 {
	tm := e.cfg.timing
	steps := [...]struct {
		kind circuit.Kind
		dur  int64
	}{
		{circuit.KindGPI2, tm.SingleQubit},
		{circuit.KindInjectMS, tm.TwoQubit},
		{circuit.KindGPI2, tm.SingleQubit},
		{circuit.KindGPI2, tm.SingleQubit},
		{circuit.KindMeasure, tm.Measure},
	}
	for i := 0; i < depth; i++ {
		for _, st := range steps {
			e.sched.add(q, st.kind, t)
			t += st.dur
		}
		if e.cfg.rng.IntN(2) == 0 {
			break
		}
	}
	return t
}

// swapSlots exchanges the qubits at two physical slots and records a swap
// entry on both at time t.
func (e *engine) swapSlots(pick, def int, t int64, reason swapReason) {
	moved, displaced := e.pos.Swap(pick, def)
	e.sched.add(moved, circuit.KindSwap, t)
	e.sched.add(displaced, circuit.KindSwap, t)
	e.swaps.record(reason)
}

// correctVertical appends a correction marker at t to every qubit sitting in
// a vertical slot.
func (e *engine) correctVertical(t int64) {
	for _, v := range e.geo.VerticalSlots(e.shuttle.Offset, e.c.NumQubits()) {
		e.sched.add(e.pos.Logical(v), circuit.KindCorrection, t)
	}
}

// endRound reports the round, appends the shuttle marker to every qubit and
// advances the shuttle. It returns false once the clock passes the ceiling
// or the run has stalled.
func (e *engine) endRound() bool {
	e.rounds++
	if e.cfg.trace != nil {
		e.cfg.trace(Snapshot{
			Round:  e.rounds,
			Offset: e.shuttle.Offset,
			Right:  e.shuttle.Right,
			Time:   e.start,
			Layout: e.pos.Snapshot(),
		})
	}
	for q := 0; q < e.c.NumQubits(); q++ {
		e.sched.add(q, circuit.KindShuttle, e.start)
	}
	e.start += e.cfg.timing.Shuttle
	e.shuttle.Advance()
	if e.stall() {
		e.stalled = true
		return false
	}
	return e.start <= e.cfg.ceiling
}

// stall reports whether a full shuttle sweep has passed without a cursor
// advancing or a swap. The run state is then periodic and never finishes.
func (e *engine) stall() bool {
	done := 0
	for _, c := range e.cursor {
		done += c
	}
	if swapped := e.swaps.Total(); done != e.done || swapped != e.swapped {
		e.done, e.swapped, e.idle = done, swapped, 0
		return false
	}
	e.idle++
	return e.idle >= max(2*e.shuttle.MaxShift, 1)
}

// finish appends the terminal correction to every tape.
func (e *engine) finish(truncated bool) *Result {
	for q := 0; q < e.c.NumQubits(); q++ {
		e.sched.add(q, circuit.KindCorrection, e.start)
	}
	if truncated {
		e.cfg.logger.Warn("schedule truncated",
			"policy", e.policy.String(),
			"sector_size", e.params.SectorSize,
			"elapsed", e.start,
			"rounds", e.rounds,
			"stalled", e.stalled,
		)
	}
	return &Result{
		Policy:    e.policy,
		Schedule:  e.sched,
		Elapsed:   e.start,
		Truncated: truncated,
		Rounds:    e.rounds,
		Swaps:     e.swaps,
	}
}
