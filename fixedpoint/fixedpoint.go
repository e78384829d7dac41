// Package fixedpoint implements the 17.14 signed fixed-point arithmetic
// used by the BSD-style scheduler: a real number x is represented as the
// integer x*F, where F = 1<<14. There is no floating-point hardware in
// scope for the kernel that consumes this package, so every operation is
// integer-only, widening to int64 for multiplication and division to avoid
// overflow.
package fixedpoint

// T is a 17.14 signed fixed-point value: T / F is the represented real
// number.
type T int32

// F is the fixed-point scaling factor, 2^14.
const F T = 1 << 14

// FromInt converts an integer to fixed-point.
func FromInt(n int32) T {
	return T(n) * F
}

// FromFrac converts the rational n/d to fixed-point: fp(n/d) = (n*F)/d.
//
// Panics if d is zero.
func FromFrac(n, d int32) T {
	if d == 0 {
		panic(`fixedpoint: from frac: division by zero`)
	}
	return T((int64(n) * int64(F)) / int64(d))
}

// Add returns x + y.
func (x T) Add(y T) T {
	return x + y
}

// Sub returns x - y.
func (x T) Sub(y T) T {
	return x - y
}

// AddInt returns x + n, where n is an integer.
func (x T) AddInt(n int32) T {
	return x + FromInt(n)
}

// SubInt returns x - n, where n is an integer.
func (x T) SubInt(n int32) T {
	return x - FromInt(n)
}

// Mul returns x * y, widening through int64 to avoid overflow:
// x*y = ((int64)x * y) / F.
func (x T) Mul(y T) T {
	return T((int64(x) * int64(y)) / int64(F))
}

// MulInt returns x * n, where n is an integer.
func (x T) MulInt(n int32) T {
	return x * T(n)
}

// Div returns x / y, widening through int64 to avoid overflow:
// x/y = ((int64)x * F) / y.
//
// Panics if y is zero.
func (x T) Div(y T) T {
	if y == 0 {
		panic(`fixedpoint: div: division by zero`)
	}
	return T((int64(x) * int64(F)) / int64(y))
}

// DivInt returns x / n, where n is an integer.
//
// Panics if n is zero.
func (x T) DivInt(n int32) T {
	if n == 0 {
		panic(`fixedpoint: div int: division by zero`)
	}
	return x / T(n)
}

// Trunc rounds toward zero, returning the integer part.
func (x T) Trunc() int32 {
	return int32(x / F)
}

// Round rounds to the nearest integer, per spec: (x + F/2)/F for x >= 0,
// (x - F/2)/F for x < 0.
func (x T) Round() int32 {
	if x >= 0 {
		return int32((x + F/2) / F)
	}
	return int32((x - F/2) / F)
}

// String formats x as a decimal approximation, for logging/diagnostics
// only — it is not used for any arithmetic decision in this package.
func (x T) String() string {
	whole := x.Trunc()
	frac := x - FromInt(whole)
	if frac < 0 {
		frac = -frac
	}
	// frac is in [0, F); scale to 4 decimal digits.
	scaled := (int64(frac) * 10000) / int64(F)
	return formatDecimal(x < 0, int64(whole), scaled)
}

func formatDecimal(neg bool, whole, frac int64) string {
	digits := [4]byte{}
	v := frac
	for i := 3; i >= 0; i-- {
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	sign := ""
	if neg && whole == 0 {
		// itoa(0) carries no sign, so a value in (-1, 0) gets it here.
		sign = "-"
	}
	return sign + itoa(whole) + "." + string(digits[:])
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
