package reliability

import (
	"math"

	"github.com/WestGround/qecc-iontrap-chip/internal/circuit"
)

// Moments is a population mean and standard deviation.
type Moments struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

func moments(xs []float64) Moments {
	if len(xs) == 0 {
		return Moments{}
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return Moments{Mean: mean, Std: math.Sqrt(sq / float64(len(xs)))}
}

// Overhead summarizes maintenance operations and what happens between
// consecutive correction markers of the same qubit.
type Overhead struct {
	Success     float64 `json:"success"`
	Shuttles    int     `json:"shuttles"`
	Swaps       int     `json:"swaps"`
	Corrections int     `json:"corrections"`

	// Per correction interval.
	Ops             Moments `json:"ops"`
	SwapsBetween    Moments `json:"swaps_between"`
	ShuttlesBetween Moments `json:"shuttles_between"`
}

type overheadVisitor struct {
	success float64
	out     Overhead

	ops, swaps, shuttles       int
	opsAt, swapsAt, shuttlesAt []float64
}

func (v *overheadVisitor) entry(k circuit.Kind) {
	v.ops++
	switch k {
	case circuit.KindSwap:
		v.swaps++
		v.out.Swaps++
	case circuit.KindShuttle:
		v.shuttles++
		v.out.Shuttles++
	}
}

func (v *overheadVisitor) correction(c float64) {
	v.success *= c * c
	v.out.Corrections++
	v.opsAt = append(v.opsAt, float64(v.ops))
	v.swapsAt = append(v.swapsAt, float64(v.swaps))
	v.shuttlesAt = append(v.shuttlesAt, float64(v.shuttles))
	v.ops, v.swaps, v.shuttles = 0, 0, 0
}

// Overhead walks the schedule like SuccessProbability and additionally
// reports maintenance counts. Moments are zero when the schedule holds no
// correction markers.
func (m *Model) Overhead(s Tapes, rate float64) (Overhead, error) {
	v := &overheadVisitor{success: 1}
	if err := m.walk(s, rate, v); err != nil {
		return Overhead{}, err
	}
	v.out.Success = v.success
	v.out.Ops = moments(v.opsAt)
	v.out.SwapsBetween = moments(v.swapsAt)
	v.out.ShuttlesBetween = moments(v.shuttlesAt)
	return v.out, nil
}
