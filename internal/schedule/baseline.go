package schedule

import (
	"slices"

	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
)

// Baseline runs the uncorrected comparison policy over plain blocks. Single
// qubit operations, rotations included, execute as soon as they are ready;
// two-qubit operations wait until both endpoints share a sector. The only
// correction marker is the terminal one.
func Baseline(c *circuit.Circuit, p Params, opts ...Option) (*Result, error) {
	e, err := newEngine(PolicyBaseline, c, p, opts)
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
			if !inst.Kind.Paired() {
				e.sched.add(q, inst.Kind, sectorTime[sec])
				sectorTime[sec] += tm.SingleQubit
				e.advance(q)
				continue
			}
			partner, _ := e.c.Partner(q, ref.Pos)
			if sec != e.sectorOf(partner.Qubit) {
				blocked.push(ref)
				continue
			}
			e.sched.addPair(q, partner.Qubit, inst.Kind, sectorTime[sec])
			sectorTime[sec] += tm.TwoQubit
			e.advance(q)
			e.advance(partner.Qubit)
		}
		e.front = blocked

		e.swapWalk(e.mark(), sectorTime)
		e.start = slices.Max(sectorTime)

		if !e.endRound() {
			return e.finish(true), nil
		}
	}
	return e.finish(false), nil
}
