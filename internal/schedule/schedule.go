package schedule

import (
	"fmt"

	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
)

// Entry is one scheduled step on a qubit's tape.
type Entry struct {
	Kind  circuit.Kind `json:"kind"`
	Start int64        `json:"start"`
}

// Schedule holds per-qubit timestamped tapes and the partner table of the
// two-qubit entries they contain, keyed by schedule position.
//
// A Schedule is append-only while a policy runs and read-only afterwards.
type Schedule struct {
	tapes    [][]Entry
	partners [][]int32 // index into links, or -1
	links    []circuit.Ref
}

func newSchedule(n int) *Schedule {
	return &Schedule{
		tapes:    make([][]Entry, n),
		partners: make([][]int32, n),
	}
}

func (s *Schedule) add(q int, k circuit.Kind, start int64) {
	s.tapes[q] = append(s.tapes[q], Entry{Kind: k, Start: start})
	s.partners[q] = append(s.partners[q], -1)
}

// addPair appends k to both tapes at the same start and links the two
// entries.
func (s *Schedule) addPair(a, b int, k circuit.Kind, start int64) {
	ra := circuit.Ref{Qubit: a, Pos: len(s.tapes[a])}
	rb := circuit.Ref{Qubit: b, Pos: len(s.tapes[b])}
	s.tapes[a] = append(s.tapes[a], Entry{Kind: k, Start: start})
	s.tapes[b] = append(s.tapes[b], Entry{Kind: k, Start: start})

	idx := int32(len(s.links))
	s.links = append(s.links, rb, ra)
	s.partners[a] = append(s.partners[a], idx)
	s.partners[b] = append(s.partners[b], idx+1)
}

// NumQubits returns the number of tapes.
func (s *Schedule) NumQubits() int { return len(s.tapes) }

// Len returns the length of qubit q's tape.
func (s *Schedule) Len(q int) int { return len(s.tapes[q]) }

// At returns entry i of qubit q's tape.
func (s *Schedule) At(q, i int) Entry { return s.tapes[q][i] }

// Tape returns a copy of qubit q's tape.
func (s *Schedule) Tape(q int) []Entry {
	out := make([]Entry, len(s.tapes[q]))
	copy(out, s.tapes[q])
	return out
}

// Partner returns the schedule position of the partner of a two-qubit entry.
func (s *Schedule) Partner(q, i int) (circuit.Ref, bool) {
	idx := s.partners[q][i]
	if idx < 0 {
		return circuit.Ref{}, false
	}
	return s.links[idx], true
}

// Makespan returns the latest start time on any tape.
func (s *Schedule) Makespan() int64 {
	var last int64
	for _, tape := range s.tapes {
		if n := len(tape); n > 0 && tape[n-1].Start > last {
			last = tape[n-1].Start
		}
	}
	return last
}

// Count returns how many entries of kind k the schedule holds, summed over
// all tapes. A two-qubit entry counts once per endpoint.
func (s *Schedule) Count(k circuit.Kind) int {
	n := 0
	for _, tape := range s.tapes {
		for _, e := range tape {
			if e.Kind == k {
				n++
			}
		}
	}
	return n
}

// Validate checks the structural invariants every policy guarantees: the
// partner table is symmetric, start times never decrease along a tape, and
// every tape ends in a correction.
func (s *Schedule) Validate() error {
	for q, tape := range s.tapes {
		if len(tape) == 0 || tape[len(tape)-1].Kind != circuit.KindCorrection {
			return fmt.Errorf("qubit %d: tape does not end in a correction", q)
		}
		for i, e := range tape {
			if i > 0 && e.Start < tape[i-1].Start {
				return fmt.Errorf("qubit %d: entry %d starts at %d before %d", q, i, e.Start, tape[i-1].Start)
			}
			p, ok := s.Partner(q, i)
			if e.Kind.Paired() != ok {
				return fmt.Errorf("qubit %d: entry %d (%s) partner presence mismatch", q, i, e.Kind)
			}
			if !ok {
				continue
			}
			back, ok := s.Partner(p.Qubit, p.Pos)
			if !ok || back != (circuit.Ref{Qubit: q, Pos: i}) {
				return fmt.Errorf("qubit %d: entry %d partner (%d,%d) is not symmetric", q, i, p.Qubit, p.Pos)
			}
			if s.tapes[p.Qubit][p.Pos].Start != e.Start {
				return fmt.Errorf("qubit %d: entry %d starts apart from its partner", q, i)
			}
		}
	}
	return nil
}

// SwapStats counts inserted swaps by the reason they were selected.
type SwapStats struct {
	Move     int `json:"move"`
	Stop     int `json:"stop"`
	Rotation int `json:"rotation"`
	Close    int `json:"close"`
	Far      int `json:"far"`
}

// Total returns the number of swaps.
func (s SwapStats) Total() int {
	return s.Move + s.Stop + s.Rotation + s.Close + s.Far
}

// swapReason is the selection rule that chose a swap.
type swapReason uint8

const (
	reasonNone swapReason = iota
	reasonMove
	reasonStop
	reasonRotation
	reasonClose
	reasonFar
)

// record counts one swap under its reason. reasonNone is not counted.
func (s *SwapStats) record(r swapReason) {
	switch r {
	case reasonMove:
		s.Move++
	case reasonStop:
		s.Stop++
	case reasonRotation:
		s.Rotation++
	case reasonClose:
		s.Close++
	case reasonFar:
		s.Far++
	}
}

// Result is the outcome of one scheduling run.
type Result struct {
	Policy    Policy
	Schedule  *Schedule
	Elapsed   int64
	Truncated bool
	Rounds    int
	Swaps     SwapStats
}

// Snapshot describes the chain at the end of one round.
type Snapshot struct {
	Round  int
	Offset int
	Right  bool
	Time   int64
	// Layout[p] is the logical qubit at physical slot p.
	Layout []int
}
