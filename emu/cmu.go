package emu

// Complex math unit. None of these operations fail: division and modulo by
// zero return a sentinel and set overflow and carry.

// MultiplyLow returns the low byte of a * b. Carry is set when the high
// byte is non-zero.
func MultiplyLow(a, b uint8) Result {
	p := uint16(a) * uint16(b)
	return Result{Value: uint8(p), Carry: p>>8 != 0}
}

// MultiplyHigh returns the high byte of a * b.
func MultiplyHigh(a, b uint8) Result {
	p := uint16(a) * uint16(b)
	return Result{Value: uint8(p >> 8)}
}

// Divide returns a / b, or 0xFF when b is zero.
func Divide(a, b uint8) Result {
	if b == 0 {
		return Result{Value: 0xFF, Carry: true, Overflow: true}
	}
	return Result{Value: a / b}
}

// Modulo returns a % b, or a when b is zero.
func Modulo(a, b uint8) Result {
	if b == 0 {
		return Result{Value: a, Carry: true, Overflow: true}
	}
	return Result{Value: a % b}
}

// SquareRoot returns the integer square root of v using a descending bit
// search. Carry is set when the root is inexact.
func SquareRoot(v uint8) Result {
	var root uint16

	for b := uint16(0x80); b > 0; b >>= 1 {
		candidate := root | b
		if candidate*candidate <= uint16(v) {
			root = candidate
		}
	}

	return Result{Value: uint8(root), Carry: root*root != uint16(v)}
}

// CountLeadingZeros returns the number of leading zero bits, 8 for zero.
func CountLeadingZeros(v uint8) Result {
	n := uint8(0)
	for mask := uint8(0x80); mask != 0 && v&mask == 0; mask >>= 1 {
		n++
	}
	return Result{Value: n}
}

// CountTrailingZeros returns the number of trailing zero bits, 8 for zero.
func CountTrailingZeros(v uint8) Result {
	n := uint8(0)
	for mask := uint8(0x01); mask != 0 && v&mask == 0; mask <<= 1 {
		n++
	}
	return Result{Value: n}
}

// CountOnes returns the number of set bits.
func CountOnes(v uint8) Result {
	n := uint8(0)
	for v != 0 {
		v &= v - 1
		n++
	}
	return Result{Value: n}
}
