package circuit

import "fmt"

// Kind identifies the operation carried by a tape instance.
//
// The first group of kinds can appear in a parsed circuit. The second group
// is only produced by the scheduler (maintenance and expansion steps).
type Kind uint8

const (
	KindInvalid Kind = iota

	// Generic gate set
	KindX
	KindY
	KindZ
	KindH
	KindS
	KindSdg
	KindCX

	// Native gate set
	KindGPI
	KindGPI2
	KindMS

	// Rotation, shared by both dialects
	KindRZ

	// Schedule-only kinds
	KindInjectMS // two-qubit-cost step of a repeat-until-success expansion
	KindMeasure
	KindSwap
	KindShuttle
	KindCorrection
)

// Class groups kinds by how the scheduler and the error model treat them.
type Class uint8

const (
	ClassInvalid Class = iota
	ClassClifford
	ClassRotation
	ClassTwoQubit
	ClassMeasure
	ClassSwap
	ClassShuttle
	ClassCorrection
)

var kindNames = map[Kind]string{
	KindX:          "x",
	KindY:          "y",
	KindZ:          "z",
	KindH:          "h",
	KindS:          "s",
	KindSdg:        "sdg",
	KindCX:         "cx",
	KindGPI:        "gpi",
	KindGPI2:       "gpi2",
	KindMS:         "ms",
	KindRZ:         "rz",
	KindInjectMS:   "ms*",
	KindMeasure:    "measure",
	KindSwap:       "swap",
	KindShuttle:    "shuttle",
	KindCorrection: "qec",
}

// String returns the textual keyword of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler so tapes render by keyword.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Class returns the scheduling class of the kind.
func (k Kind) Class() Class {
	switch k {
	case KindX, KindY, KindZ, KindH, KindS, KindSdg, KindGPI, KindGPI2:
		return ClassClifford
	case KindRZ:
		return ClassRotation
	case KindCX, KindMS, KindInjectMS:
		return ClassTwoQubit
	case KindMeasure:
		return ClassMeasure
	case KindSwap:
		return ClassSwap
	case KindShuttle:
		return ClassShuttle
	case KindCorrection:
		return ClassCorrection
	default:
		return ClassInvalid
	}
}

// Paired reports whether instances of this kind always come with a partner
// instance on another qubit's tape.
func (k Kind) Paired() bool {
	return k == KindCX || k == KindMS
}

// Symbol is the one-letter code used in compact tape listings.
func (k Kind) Symbol() string {
	switch k {
	case KindGPI:
		return "g"
	case KindGPI2:
		return "p"
	case KindMS, KindCX, KindInjectMS:
		return "m"
	case KindRZ:
		return "r"
	case KindMeasure:
		return "M"
	case KindSwap:
		return "s"
	case KindShuttle:
		return "h"
	case KindCorrection:
		return "q"
	case KindX:
		return "X"
	case KindY:
		return "Y"
	case KindZ:
		return "Z"
	case KindH:
		return "H"
	case KindS:
		return "S"
	case KindSdg:
		return "D"
	default:
		return "?"
	}
}
