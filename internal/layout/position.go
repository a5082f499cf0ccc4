package layout

import (
	"fmt"
)

// PositionMap is the bidirectional logical to physical slot mapping.
//
// The two arrays are mutual inverses at all times. Swap is the only mutation.
type PositionMap struct {
	toPhysical []int
	toLogical  []int
}

// NewPositionMap returns the identity mapping over n qubits.
func NewPositionMap(n int) *PositionMap {
	m := &PositionMap{
		toPhysical: make([]int, n),
		toLogical:  make([]int, n),
	}
	for i := 0; i < n; i++ {
		m.toPhysical[i] = i
		m.toLogical[i] = i
	}
	return m
}

// Len returns the number of qubits.
func (m *PositionMap) Len() int { return len(m.toPhysical) }

// Physical returns the slot currently holding logical qubit l.
func (m *PositionMap) Physical(l int) int { return m.toPhysical[l] }

// Logical returns the qubit currently at physical slot p.
func (m *PositionMap) Logical(p int) int { return m.toLogical[p] }

// Swap exchanges the logical qubits at physical slots p1 and p2 and returns
// them in that order.
func (m *PositionMap) Swap(p1, p2 int) (int, int) {
	l1, l2 := m.toLogical[p1], m.toLogical[p2]
	m.toLogical[p1], m.toLogical[p2] = l2, l1
	m.toPhysical[l1], m.toPhysical[l2] = p2, p1
	return l1, l2
}

// Snapshot returns a copy of the physical to logical array.
func (m *PositionMap) Snapshot() []int {
	out := make([]int, len(m.toLogical))
	copy(out, m.toLogical)
	return out
}

// Valid checks that the two arrays form a bijection and are inverses.
func (m *PositionMap) Valid() error {
	n := len(m.toPhysical)
	if len(m.toLogical) != n {
		return fmt.Errorf("position map size mismatch: %d logical, %d physical", n, len(m.toLogical))
	}
	seen := make([]bool, n)
	for l, p := range m.toPhysical {
		if p < 0 || p >= n {
			return fmt.Errorf("logical %d maps to slot %d out of range", l, p)
		}
		if seen[p] {
			return fmt.Errorf("slot %d holds more than one logical qubit", p)
		}
		seen[p] = true
		if m.toLogical[p] != l {
			return fmt.Errorf("slot %d maps back to %d, want %d", p, m.toLogical[p], l)
		}
	}
	return nil
}
