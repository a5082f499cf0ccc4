package schedule

import (
	"slices"

	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
)

// Balanced runs the lock-step policy. Every round executes what the current
// sector partition allows, selects at most one swap per horizontal block,
// corrects every qubit in a vertical slot and advances the shuttle.
func Balanced(c *circuit.Circuit, p Params, opts ...Option) (*Result, error) {
	e, err := newEngine(PolicyBalanced, c, p, opts)
	if err != nil {
		return nil, err
	}
	e.seed()
	tm := e.cfg.timing
	for e.front.len() > 0 {
		sectorTime := make([]int64, e.sectors)
		for i := range sectorTime {
			sectorTime[i] = e.start
		}

		blocked := newFrontier(e.front.len())
		for {
			ref, ok := e.front.pop()
			if !ok {
				break
			}
			q := ref.Qubit
			inst := e.c.At(q, ref.Pos)
			sec := e.sectorOf(q)
			switch inst.Kind.Class() {
			case circuit.ClassClifford:
				if e.geo.IsVertical(sec) {
					blocked.push(ref)
					continue
				}
				e.sched.add(q, inst.Kind, sectorTime[sec])
				sectorTime[sec] += tm.SingleQubit
				e.advance(q)

			case circuit.ClassTwoQubit:
				partner, _ := e.c.Partner(q, ref.Pos)
				if sec != e.sectorOf(partner.Qubit) {
					blocked.push(ref)
					continue
				}
				e.sched.addPair(q, partner.Qubit, inst.Kind, sectorTime[sec])
				sectorTime[sec] += tm.TwoQubit
				e.advance(q)
				e.advance(partner.Qubit)

			case circuit.ClassRotation:
				if !e.geo.IsVertical(sec) {
					blocked.push(ref)
					continue
				}
				sectorTime[sec] = e.expand(q, e.depth(inst), sectorTime[sec])
				e.advance(q)
			}
		}
		e.front = blocked

		e.swapWalk(e.mark(), sectorTime)

		e.start = slices.Max(sectorTime)
		e.correctVertical(e.start)
		e.start += p.CorrectionTime

		if !e.endRound() {
			return e.finish(true), nil
		}
	}
	return e.finish(false), nil
}
