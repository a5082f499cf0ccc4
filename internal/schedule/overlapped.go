package schedule

import (
	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
)

// Overlapped runs the throughput policy. A qubit in a vertical slot runs at
// most one ready rotation and is then corrected. Meanwhile each horizontal
// block executes as many ready operations as fit in a budget bounded by
// the longest vertical sequence and capped at twice the correction time.
func Overlapped(c *circuit.Circuit, p Params, opts ...Option) (*Result, error) {
	e, err := newEngine(PolicyOverlapped, c, p, opts)
	if err != nil {
		return nil, err
	}
	n := c.NumQubits()
	qec := p.CorrectionTime
	for e.remaining() {
		limit := e.start + qec
		for _, v := range e.geo.VerticalSlots(e.shuttle.Offset, n) {
			q := e.pos.Logical(v)
			t := e.start
			if e.pending(q) {
				if _, inst := e.next(q); inst.Kind.Class() == circuit.ClassRotation {
					t = e.expand(q, e.depth(inst), t)
					e.cursor[q]++
				}
			}
			e.sched.add(q, circuit.KindCorrection, t)
			t += qec
			limit = max(limit, t)
		}

		hlimit := min(limit, e.start+2*qec)
		for b := e.geo.FirstHorizontal(e.shuttle.Offset); b.Lo < n; b = b.Next(e.geo).Next(e.geo) {
			slots := blockSlots(b, n, e.shuttle.Right)
			t := e.fill(slots, e.start, hlimit)
			if t+e.cfg.timing.Swap > limit {
				continue
			}
			if pick, reason := e.chooseOverlapped(slots); pick != slots[0] {
				e.swapSlots(pick, slots[0], t, reason)
			}
		}

		e.start = limit
		if !e.endRound() {
			return e.finish(true), nil
		}
	}
	return e.finish(false), nil
}

// fill repeatedly scans the slots of one horizontal block, executing ready
// operations from time t until nothing more fits before hlimit. It returns
// the block's clock.
func (e *engine) fill(slots []int, t, hlimit int64) int64 {
	for t < hlimit {
		changed := false
		for _, p := range slots {
			q := e.pos.Logical(p)
			for {
				next, ok := e.step(q, p, t, hlimit)
				if !ok {
					break
				}
				t = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return t
}

// step executes qubit q's next instance from physical slot p if it is ready
// and fits before hlimit.
func (e *engine) step(q, p int, t, hlimit int64) (int64, bool) {
	if !e.pending(q) {
		return t, false
	}
	tm := e.cfg.timing
	ref, inst := e.next(q)
	switch inst.Kind.Class() {
	case circuit.ClassClifford:
		if t+tm.SingleQubit > hlimit {
			return t, false
		}
		e.sched.add(q, inst.Kind, t)
		e.cursor[q]++
		return t + tm.SingleQubit, true

	case circuit.ClassTwoQubit:
		if t+tm.TwoQubit > hlimit {
			return t, false
		}
		partner, ok := e.partnerReady(ref)
		if !ok {
			return t, false
		}
		off := e.shuttle.Offset
		if e.geo.SectorOf(p, off) != e.geo.SectorOf(e.pos.Physical(partner.Qubit), off) {
			return t, false
		}
		e.sched.addPair(q, partner.Qubit, inst.Kind, t)
		e.cursor[q]++
		e.cursor[partner.Qubit]++
		return t + tm.TwoQubit, true
	}
	return t, false
}
