// Package fastmath provides table and bit-trick approximations of sqrt, pow,
// sin and cos for per-partial inner loops. Accuracy is traded for speed;
// none of the functions fail, and every input maps to an in-bounds table
// index.
package fastmath

import "math"

const (
	tableSize = 65536
	tableMask = tableSize - 1

	// sinScale converts radians to a sine table index (≈ 65536/2π).
	sinScale = 10430.378

	quarterPeriod = tableSize / 4

	powBias    = 4606921280493453312 // bits of 1.0 minus the Schraudolph offset
	fasterBias = 1072632447

	// maxSquaringExponent bounds the integer part handled by squaring.
	maxSquaringExponent = 1 << 52
)

var (
	sqrtTable [tableSize]float64
	sinTable  [tableSize]float64
)

func init() {
	for i := 0; i < tableSize; i++ {
		sinTable[i] = math.Sin(float64(i) * math.Pi * 2.0 / tableSize)
		sqrtTable[i] = math.Sqrt(float64(i) / tableSize)
	}
}

// Sqrt returns math.Sqrt(x) for x >= 1 and a 64K lookup table value for
// x in [0,1). Negative and NaN inputs read the first table entry.
func Sqrt(x float64) float64 {
	if x >= 1 {
		return math.Sqrt(x)
	}
	if !(x > 0) {
		return sqrtTable[0]
	}
	return sqrtTable[int(x*tableSize)&tableMask]
}

// Pow approximates a^b. Exponents 0 and 1, negative exponents and integer
// exponents up to 10 are exact; everything else combines exponentiation by
// squaring with an IEEE-754 interpolation of the fractional part.
func Pow(a, b float64) float64 {
	switch {
	case b == 0:
		return 1.0
	case b == 1:
		return a
	case b < 0:
		return 1.0 / Pow(a, -b)
	case b <= 10 && b == math.Trunc(b):
		res := a
		for i := 1; float64(i) < b; i++ {
			res *= a
		}
		return res
	case math.IsNaN(b) || b >= maxSquaringExponent:
		return math.Pow(a, b)
	}

	r := 1.0
	base := a
	exp := uint64(b)
	for exp != 0 {
		if exp&1 != 0 {
			r *= base
		}
		base *= base
		exp >>= 1
	}

	frac := b - math.Trunc(b)
	bits := int64(math.Float64bits(a))
	interp := int64(frac*float64(bits-powBias)) + powBias
	return r * math.Float64frombits(uint64(interp))
}

// FasterPow is a single bit-trick approximation of a^b on the high word of
// a's representation. It is the fastest and least accurate of the pow kernels.
func FasterPow(a, b float64) float64 {
	hi := int32(math.Float64bits(a) >> 32)
	res := int32(b*float64(hi-fasterBias) + fasterBias)
	return math.Float64frombits(uint64(uint32(res)) << 32)
}

// HybridPow is the power kernel used by filters. It currently delegates to
// Pow; the approximate rolloff is part of the filter's sound.
func HybridPow(a, b float64) float64 {
	return Pow(a, b)
}

// Sin returns a table approximation of sin(x).
func Sin(x float64) float64 {
	return sinTable[int64(x*sinScale)&tableMask]
}

// Cos returns a table approximation of cos(x), reading the sine table a
// quarter period ahead.
func Cos(x float64) float64 {
	return sinTable[(int64(x*sinScale)+quarterPeriod)&tableMask]
}
