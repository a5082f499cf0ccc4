package circuit

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// EmitString renders c in the textual format accepted by Parse.
func EmitString(c *Circuit) (string, error) {
	var sb strings.Builder
	if err := Emit(&sb, c); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Emit writes c in the textual format accepted by Parse.
//
// The walk keeps a stack of (qubit, limit) frames. A qubit whose next
// instance is two-qubit stops until the partner's own tape has been emitted
// up to the paired position, so every pair is written exactly once and in an
// order that respects both tapes.
func Emit(w io.Writer, c *Circuit) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", c.NumQubits(), c.Repeat())

	type frame struct{ qubit, limit int }
	pos := make([]int, c.NumQubits())
	stack := make([]frame, 0, c.NumQubits())
	for q := 0; q < c.NumQubits(); q++ {
		stack = append(stack, frame{qubit: q, limit: c.Len(q)})
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		q := top.qubit
		if pos[q] == top.limit {
			stack = stack[:len(stack)-1]
			continue
		}
		inst := c.At(q, pos[q])

		if inst.Kind.Paired() {
			partner, _ := c.Partner(q, pos[q])
			if pos[partner.Qubit] != partner.Pos {
				stack = append(stack, frame{qubit: partner.Qubit, limit: partner.Pos})
				continue
			}
			first, second := q, partner.Qubit
			if inst.Kind == KindCX && !inst.Control {
				first, second = second, first
			}
			fmt.Fprintf(bw, "%s %d %d\n", inst.Kind, first, second)
			pos[q]++
			pos[partner.Qubit]++
			continue
		}

		switch inst.Kind {
		case KindRZ:
			switch {
			case c.Dialect() == Generic:
				fmt.Fprintf(bw, "rz %d %s\n", q, strconv.FormatFloat(inst.Angle, 'g', -1, 64))
			case inst.HasDepth:
				fmt.Fprintf(bw, "rz %d %d\n", q, inst.Depth)
			default:
				fmt.Fprintf(bw, "rz %d\n", q)
			}
		default:
			fmt.Fprintf(bw, "%s %d\n", inst.Kind, q)
		}
		pos[q]++
	}

	return bw.Flush()
}
