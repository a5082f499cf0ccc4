package circuit

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

var genericCliffords = map[string]Kind{
	"x":   KindX,
	"y":   KindY,
	"z":   KindZ,
	"h":   KindH,
	"s":   KindS,
	"sdg": KindSdg,
}

var nativeCliffords = map[string]Kind{
	"gpi":  KindGPI,
	"gpi2": KindGPI2,
}

// ParseString parses a circuit held in memory.
func ParseString(input string, d Dialect) (*Circuit, error) {
	return Parse(strings.NewReader(input), d)
}

// Parse reads the line-oriented circuit format.
//
// The first non-blank line holds the qubit count and an optional repetition
// multiplier (default 1). Every following non-blank line is one operation:
// a keyword followed by integer qubit indices and, for rotations, an angle
// (generic) or an optional repeat depth (native).
func Parse(r io.Reader, d Dialect) (*Circuit, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		b      *Builder
		lineNo int
	)
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if b == nil {
			var err error
			b, err = parseHeader(fields, lineNo, d)
			if err != nil {
				return nil, err
			}
			continue
		}
		if err := parseOp(b, fields, lineNo, d); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if b == nil {
		return nil, &ParseError{Line: lineNo, Message: "missing header line"}
	}
	return b.Build()
}

func parseHeader(fields []string, line int, d Dialect) (*Builder, error) {
	if len(fields) > 2 {
		return nil, &ParseError{Line: line, Token: fields[2], Message: "unexpected header field"}
	}
	n, err := parseCount(fields[0], line, "qubit count")
	if err != nil {
		return nil, err
	}
	repeat := 1
	if len(fields) == 2 {
		repeat, err = parseCount(fields[1], line, "repetition multiplier")
		if err != nil {
			return nil, err
		}
		if repeat < 1 {
			return nil, &ParseError{Line: line, Token: fields[1], Message: "repetition multiplier must be positive"}
		}
	}
	return NewBuilder(n, repeat, d), nil
}

func parseCount(tok string, line int, what string) (int, error) {
	v, err := strconv.Atoi(tok)
	if err != nil || v < 0 {
		return 0, &ParseError{Line: line, Token: tok, Message: "invalid " + what}
	}
	return v, nil
}

func parseQubit(b *Builder, tok string, line int) (int, error) {
	q, err := strconv.Atoi(tok)
	if err != nil {
		return 0, &ParseError{Line: line, Token: tok, Message: "invalid qubit index"}
	}
	if q < 0 || q >= b.c.numQubits {
		return 0, &ParseError{Line: line, Token: tok, Message: "qubit index out of range"}
	}
	return q, nil
}

func arity(fields []string, line int, lo, hi int) error {
	n := len(fields) - 1
	if n < lo {
		return &ParseError{Line: line, Token: fields[0], Message: "missing operands"}
	}
	if n > hi {
		return &ParseError{Line: line, Token: fields[hi+1], Message: "unexpected operand"}
	}
	return nil
}

func parseOp(b *Builder, fields []string, line int, d Dialect) error {
	keyword := fields[0]
	cliffords := genericCliffords
	twoQubit := KindCX
	if d == Native {
		cliffords = nativeCliffords
		twoQubit = KindMS
	}

	switch {
	case cliffords[keyword] != KindInvalid:
		if err := arity(fields, line, 1, 1); err != nil {
			return err
		}
		q, err := parseQubit(b, fields[1], line)
		if err != nil {
			return err
		}
		b.Clifford(cliffords[keyword], q)

	case keyword == KindRZ.String():
		if err := parseRotation(b, fields, line, d); err != nil {
			return err
		}

	case keyword == twoQubit.String():
		if err := arity(fields, line, 2, 2); err != nil {
			return err
		}
		q0, err := parseQubit(b, fields[1], line)
		if err != nil {
			return err
		}
		q1, err := parseQubit(b, fields[2], line)
		if err != nil {
			return err
		}
		if q0 == q1 {
			return &ParseError{Line: line, Token: fields[2], Message: "two-qubit operation needs distinct qubits"}
		}
		b.TwoQubit(twoQubit, q0, q1)

	default:
		return &ParseError{Line: line, Token: keyword, Message: "unknown operation"}
	}

	if err := b.Err(); err != nil {
		return &ParseError{Line: line, Token: keyword, Message: err.Error()}
	}
	return nil
}

func parseRotation(b *Builder, fields []string, line int, d Dialect) error {
	if d == Generic {
		if err := arity(fields, line, 2, 2); err != nil {
			return err
		}
	} else if err := arity(fields, line, 1, 2); err != nil {
		return err
	}
	q, err := parseQubit(b, fields[1], line)
	if err != nil {
		return err
	}

	if d == Generic {
		angle, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return &ParseError{Line: line, Token: fields[2], Message: "invalid rotation angle"}
		}
		b.Rotation(q, angle)
		return nil
	}

	if len(fields) == 2 {
		// Uncorrected circuits carry no repeat bound.
		b.Rotation(q, 0)
		return nil
	}
	depth, err := parseCount(fields[2], line, "rotation depth")
	if err != nil {
		return err
	}
	b.RotationDepth(q, depth)
	return nil
}
