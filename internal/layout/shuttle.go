package layout

// Shuttle is the sweep of the sector partition over the chain. The offset
// moves by one slot per round and reverses at 0 and MaxShift.
type Shuttle struct {
	Offset   int
	Right    bool
	MaxShift int
}

// NewShuttle starts at offset 0 moving right.
func NewShuttle(maxShift int) *Shuttle {
	return &Shuttle{Right: true, MaxShift: maxShift}
}

// Advance moves the offset one step in the current direction.
func (s *Shuttle) Advance() {
	if s.Right {
		s.Offset++
	} else {
		s.Offset--
	}
	if s.Offset == 0 || s.Offset == s.MaxShift {
		s.Right = !s.Right
	}
}
