// Package layout models the physical qubit chain: the repeating partition of
// slots into execution (horizontal) and correction (vertical) sectors, the
// shuttle that sweeps that partition back and forth, and the logical to
// physical position map mutated by swaps.
package layout

import (
	"fmt"
)

// Shape selects how physical slots are grouped into blocks.
type Shape uint8

const (
	// ShapeCorrected groups slots into SectorSize horizontal slots followed by
	// one vertical slot. Horizontal sectors are even-numbered, vertical
	// sectors odd-numbered.
	ShapeCorrected Shape = iota + 1

	// ShapePlain groups slots into homogeneous blocks of SectorSize slots.
	ShapePlain
)

// String returns a readable shape name.
func (s Shape) String() string {
	switch s {
	case ShapeCorrected:
		return "corrected"
	case ShapePlain:
		return "plain"
	default:
		return fmt.Sprintf("Shape(%d)", uint8(s))
	}
}

// Geometry computes sector membership for one shape and sector size.
type Geometry struct {
	Shape      Shape
	SectorSize int
}

// NewGeometry validates the sector size and returns the geometry.
func NewGeometry(shape Shape, sectorSize int) (Geometry, error) {
	if shape != ShapeCorrected && shape != ShapePlain {
		return Geometry{}, fmt.Errorf("unknown shape %d", shape)
	}
	if sectorSize < 1 {
		return Geometry{}, fmt.Errorf("sector size must be positive, got %d", sectorSize)
	}
	return Geometry{Shape: shape, SectorSize: sectorSize}, nil
}

// Period returns the number of slots in one repeating group of sectors:
// SectorSize, plus the vertical slot under ShapeCorrected.
func (g Geometry) Period() int {
	if g.Shape == ShapeCorrected {
		return g.SectorSize + 1
	}
	return g.SectorSize
}

// SectorOf returns the sector enclosing a physical slot at the given shuttle
// offset. The offset shifts the partition left, so slot p sits where slot
// p+offset would sit at offset zero. Under ShapeCorrected each period of
// SectorSize+1 slots holds horizontal sector 2k and vertical sector 2k+1.
func (g Geometry) SectorOf(slot, offset int) int {
	p := slot + offset
	if g.Shape == ShapePlain {
		return p / g.SectorSize
	}
	n := p / (g.SectorSize + 1) * 2
	if p%(g.SectorSize+1) == g.SectorSize {
		n++
	}
	return n
}

// IsVertical reports whether a sector is a correction sector.
func (g Geometry) IsVertical(sector int) bool {
	return g.Shape == ShapeCorrected && sector%2 == 1
}

// Block is a half-open range of physical slots belonging to one sector.
type Block struct {
	Lo, Hi   int
	Vertical bool
}

// Width returns the number of slots in the block.
func (b Block) Width() int { return b.Hi - b.Lo }

// Partial reports whether b is a horizontal block cut short by the offset.
func (b Block) Partial(g Geometry) bool {
	return !b.Vertical && b.Width() < g.SectorSize
}

// Next returns the block immediately to the right of b.
func (b Block) Next(g Geometry) Block {
	if g.Shape == ShapeCorrected && !b.Vertical {
		return Block{Lo: b.Hi, Hi: b.Hi + 1, Vertical: true}
	}
	return Block{Lo: b.Hi, Hi: b.Hi + g.SectorSize}
}

// FirstBlock returns the block that starts at physical slot 0. At a
// nonzero offset it may be a horizontal block cut short by the shift, or
// the vertical slot itself.
func (g Geometry) FirstBlock(offset int) Block {
	if g.Shape == ShapePlain {
		return Block{Lo: 0, Hi: g.SectorSize - offset%g.SectorSize}
	}
	m := offset % (g.SectorSize + 1)
	if m == g.SectorSize {
		return Block{Lo: 0, Hi: 1, Vertical: true}
	}
	return Block{Lo: 0, Hi: g.SectorSize - m}
}

// FirstHorizontal returns the leftmost horizontal block, which may be
// partial.
func (g Geometry) FirstHorizontal(offset int) Block {
	b := g.FirstBlock(offset)
	if b.Vertical {
		return b.Next(g)
	}
	return b
}

// VerticalSlots returns the physical slots below n that sit in a vertical
// sector at the given offset, left to right.
func (g Geometry) VerticalSlots(offset, n int) []int {
	if g.Shape != ShapeCorrected {
		return nil
	}
	first := g.FirstBlock(offset)
	v := first.Lo
	if !first.Vertical {
		v = first.Hi
	}
	var slots []int
	for ; v < n; v += g.SectorSize + 1 {
		slots = append(slots, v)
	}
	return slots
}

// MaxShift returns the largest shuttle offset for a chain of numQubits slots
// followed by emptySectors buffer sectors. The chain is first padded to a
// whole number of periods; each buffer sector then adds one period. Under
// ShapeCorrected the shift stops one slot short of the last period.
//
// Combinations that leave no room to shuttle return an error.
func (g Geometry) MaxShift(numQubits, emptySectors int) (int, error) {
	if emptySectors < 1 {
		return 0, fmt.Errorf("empty sector count must be positive, got %d", emptySectors)
	}
	s := g.SectorSize
	var shift int
	switch g.Shape {
	case ShapeCorrected:
		if numQubits%(s+1) == 0 {
			shift = emptySectors*s + emptySectors - 1
		} else {
			shift = (s + 1) - numQubits%(s+1) + emptySectors*(s+1) - 1
		}
	default:
		if numQubits%s == 0 {
			shift = emptySectors * s
		} else {
			shift = s - numQubits%s + emptySectors*s
		}
	}
	if shift <= 0 {
		return 0, fmt.Errorf("max shift %d is not positive (qubits=%d, sector size=%d, empty sectors=%d)",
			shift, numQubits, s, emptySectors)
	}
	return shift, nil
}

// SectorCount returns the number of sector indices reachable by slots below
// numQubits at any offset up to maxShift. Policies size their per-sector
// clocks with it.
func (g Geometry) SectorCount(numQubits, maxShift int) int {
	if g.Shape == ShapePlain {
		return (numQubits + maxShift) / g.SectorSize
	}
	return (numQubits+maxShift)/(g.SectorSize+1)*2 + 1
}
