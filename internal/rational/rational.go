// Package rational provides exact fraction arithmetic for frame-rate and
// sample conversions, avoiding the drift that accumulates when frame
// rates such as 23.976 or 29.97 are carried as floating point.
package rational

import (
	"fmt"
	"math/bits"
)

// Rat is a reduced, positive fraction Num/Den.
type Rat struct {
	Num int64
	Den int64
}

// New returns num/den reduced to lowest terms.
// Panics if den is zero; callers are expected to validate input upstream.
func New(num, den int64) Rat {
	if den == 0 {
		panic("rational: zero denominator")
	}

	if den < 0 {
		num, den = -num, -den
	}

	g := gcd(abs64(num), den)
	if g == 0 {
		g = 1
	}

	return Rat{Num: num / g, Den: den / g}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}

	return a
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}

	return v
}

// Round returns the nearest integer to Num/Den, rounding half away from zero.
func (r Rat) Round() int64 {
	if r.Den == 1 {
		return r.Num
	}

	q := r.Num / r.Den
	rem := r.Num % r.Den

	if rem*2 >= r.Den {
		q++
	}

	return q
}

// Float64 returns the fraction as a float64, for display and non-exact paths only.
func (r Rat) Float64() float64 {
	return float64(r.Num) / float64(r.Den)
}

func (r Rat) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// MulDivFloor computes floor(value * mul / div) without overflowing for
// values and rates encountered at 192 kHz over a 24 hour span, by carrying
// the intermediate product in 128 bits.
func MulDivFloor(value, mul, div uint64) uint64 {
	hi, lo := bits.Mul64(value, mul)
	q, _ := div128(hi, lo, div)

	return q
}

// div128 divides the 128-bit value (hi:lo) by y, returning quotient and remainder.
// Panics on divide-by-zero or quotient overflow, mirroring bits.Div64's contract.
func div128(hi, lo, y uint64) (quo, rem uint64) {
	if hi == 0 {
		return lo / y, lo % y
	}

	return bits.Div64(hi, lo, y)
}
