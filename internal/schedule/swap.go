package schedule

import (
	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
	"github.com/WestGround/qecc-iontrap-chip/internal/layout"
)

// marks flags physical slots for the swap walk: move slots hold a qubit
// that should travel with the shuttle, stop slots one that should stay put.
// Both slices are indexed by physical slot and rebuilt every round.
type marks struct {
	move []bool
	stop []bool
}

// mark derives move and stop slots from the entries left in the frontier.
// For a blocked two-qubit instance the endpoint trailing the shuttle moves
// and the leading one stops. A blocked rotation moves.
func (e *engine) mark() marks {
	n := e.c.NumQubits()
	m := marks{move: make([]bool, n), stop: make([]bool, n)}
	right := e.shuttle.Right
	e.front.each(func(ref circuit.Ref) {
		inst := e.c.At(ref.Qubit, ref.Pos)
		switch inst.Kind.Class() {
		case circuit.ClassTwoQubit:
			p, _ := e.c.Partner(ref.Qubit, ref.Pos)
			a, b := e.pos.Physical(ref.Qubit), e.pos.Physical(p.Qubit)
			lo, hi := min(a, b), max(a, b)
			if right {
				m.move[lo], m.stop[hi] = true, true
			} else {
				m.move[hi], m.stop[lo] = true, true
			}
		case circuit.ClassRotation:
			m.move[e.pos.Physical(ref.Qubit)] = true
		}
	})
	return m
}

// chooseEdge picks the slot in [lo, hi) to bring to the block edge facing
// the shuttle direction: the move slot closest to that edge, else the first
// slot that is not stopped, else the edge itself.
func chooseEdge(lo, hi int, m marks, right bool) (int, swapReason) {
	if right {
		for i := hi - 1; i >= lo; i-- {
			if m.move[i] {
				return i, reasonMove
			}
		}
		for i := hi - 1; i >= lo; i-- {
			if !m.stop[i] {
				return i, reasonStop
			}
		}
		return hi - 1, reasonNone
	}
	for i := lo; i < hi; i++ {
		if m.move[i] {
			return i, reasonMove
		}
	}
	for i := lo; i < hi; i++ {
		if !m.stop[i] {
			return i, reasonStop
		}
	}
	return lo, reasonNone
}

// swapBlock performs at most one swap inside the horizontal block [lo, hi)
// and charges it to the block's sector clock.
func (e *engine) swapBlock(lo, hi int, m marks, sectorTime []int64) {
	right := e.shuttle.Right
	def := lo
	if right {
		def = hi - 1
	}
	pick, reason := chooseEdge(lo, hi, m, right)
	if pick == def {
		return
	}
	sec := e.geo.SectorOf(lo, e.shuttle.Offset)
	e.swapSlots(pick, def, sectorTime[sec], reason)
	sectorTime[sec] += e.cfg.timing.Swap
}

// swapWalk visits the horizontal blocks left to right. When shuttling left
// a leading partial block is skipped and the trailing block cut by the end
// of the chain is visited.
func (e *engine) swapWalk(m marks, sectorTime []int64) {
	n := e.c.NumQubits()
	right := e.shuttle.Right
	b := e.geo.FirstBlock(e.shuttle.Offset)
	if !right && b.Partial(e.geo) {
		b = b.Next(e.geo)
	}
	for b.Hi <= n {
		if !b.Vertical {
			e.swapBlock(b.Lo, b.Hi, m, sectorTime)
		}
		b = b.Next(e.geo)
	}
	if !right && !b.Vertical && b.Lo < n {
		e.swapBlock(b.Lo, n, m, sectorTime)
	}
}

// chooseOverlapped ranks swap candidates for one horizontal block of the
// overlapped policy. slots are ordered from the edge facing the shuttle.
// A ready rotation wins, then a two-qubit instance whose partner is within
// one sector width on the favorable side, then the first one whose partner
// is farther away in the shuttle direction.
func (e *engine) chooseOverlapped(slots []int) (int, swapReason) {
	if len(slots) == 1 {
		return slots[0], reasonNone
	}
	for _, p := range slots {
		q := e.pos.Logical(p)
		if !e.pending(q) {
			continue
		}
		if _, inst := e.next(q); inst.Kind.Class() == circuit.ClassRotation {
			return p, reasonRotation
		}
	}

	right := slots[0] > slots[1]
	size := e.geo.SectorSize
	far := -1
	for _, p := range slots {
		q := e.pos.Logical(p)
		if !e.pending(q) {
			continue
		}
		ref, inst := e.next(q)
		if inst.Kind.Class() != circuit.ClassTwoQubit {
			continue
		}
		partner, ok := e.partnerReady(ref)
		if !ok {
			continue
		}
		pp := e.pos.Physical(partner.Qubit)
		if abs(p-pp) < size {
			if (pp > p && right) || (pp < p && !right) {
				return p, reasonClose
			}
			continue
		}
		if far < 0 && ((right && pp >= p+size) || (!right && p >= pp+size)) {
			far = p
		}
	}
	if far >= 0 {
		return far, reasonFar
	}
	return slots[0], reasonNone
}

// blockSlots lists the slots of b below n, ordered from the edge facing the
// shuttle.
func blockSlots(b layout.Block, n int, right bool) []int {
	hi := min(b.Hi, n)
	slots := make([]int, 0, hi-b.Lo)
	if right {
		for p := hi - 1; p >= b.Lo; p-- {
			slots = append(slots, p)
		}
		return slots
	}
	for p := b.Lo; p < hi; p++ {
		slots = append(slots, p)
	}
	return slots
}

// abs returns the distance of x from zero.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
