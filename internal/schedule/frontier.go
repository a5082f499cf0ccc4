package schedule

import "github.com/WestGround/qecc-iontrap-chip/internal/circuit"

// frontier is a FIFO of ready tape positions.
//
// A run owns its frontier; no locking.
type frontier struct {
	refs []circuit.Ref
}

func newFrontier(capacity int) *frontier {
	return &frontier{refs: make([]circuit.Ref, 0, capacity)}
}

// push adds a position to the back.
func (f *frontier) push(r circuit.Ref) {
	f.refs = append(f.refs, r)
}

// pop removes and returns the front position.
func (f *frontier) pop() (circuit.Ref, bool) {
	if len(f.refs) == 0 {
		return circuit.Ref{}, false
	}
	r := f.refs[0]
	if len(f.refs) == 1 {
		f.refs = f.refs[:0]
	} else {
		f.refs = f.refs[1:]
	}
	return r, true
}

func (f *frontier) len() int { return len(f.refs) }

// each visits the queued positions front to back without removing them.
func (f *frontier) each(fn func(circuit.Ref)) {
	for _, r := range f.refs {
		fn(r)
	}
}
