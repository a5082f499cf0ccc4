package reliability

import "math"

// Binomial is a memoized table of binomial coefficients built by Pascal's
// recursion. Not safe for concurrent use; the model creates one per call.
type Binomial struct {
	memo map[[2]int]float64
}

// NewBinomial returns an empty table.
func NewBinomial() *Binomial {
	return &Binomial{memo: make(map[[2]int]float64)}
}

// C returns n choose k. Out-of-range k yields 0.
func (b *Binomial) C(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	if k == 0 || k == n {
		return 1
	}
	key := [2]int{n, k}
	if v, ok := b.memo[key]; ok {
		return v
	}
	v := b.C(n-1, k-1) + b.C(n-1, k)
	b.memo[key] = v
	return v
}

// Len returns the number of memoized entries.
func (b *Binomial) Len() int { return len(b.memo) }

// Correctable returns the probability that the flips accumulated at error
// probability p stay within the correction radius of code: the tail sum
// over j <= d/2 of C(n,j) q^(n-j) (1-q)^j with q = 1 - 2p/3.
func Correctable(b *Binomial, code Code, p float64) float64 {
	q := 1 - 2*p/3
	var sum float64
	for j := 0; j <= code.D/2; j++ {
		sum += b.C(code.N, j) * math.Pow(q, float64(code.N-j)) * math.Pow(1-q, float64(j))
	}
	return sum
}
