package emu

import "github.com/sarchlab/p8sim/insts"

// Shift runs the barrel shifter. The amount is masked to 3 bits and the
// operation is applied one position at a time; carry receives the last bit
// shifted out. An amount of 0 returns v with the supplied carry.
func Shift(t insts.ShiftType, v, amount uint8, carry bool) Result {
	amount &= 0x7
	c := carry

	for i := uint8(0); i < amount; i++ {
		switch t {
		case insts.ShiftLSL:
			c = v&0x80 != 0
			v <<= 1
		case insts.ShiftLSR:
			c = v&0x01 != 0
			v >>= 1
		case insts.ShiftROR:
			c = v&0x01 != 0
			v = v>>1 | v<<7
		case insts.ShiftASR:
			c = v&0x01 != 0
			v = v>>1 | v&0x80
		case insts.ShiftROL:
			c = v&0x80 != 0
			v = v<<1 | v>>7
		case insts.ShiftRCL:
			out := v&0x80 != 0
			v = v<<1 | bit(c)
			c = out
		case insts.ShiftRCR:
			out := v&0x01 != 0
			v = v>>1 | bit(c)<<7
			c = out
		case insts.ShiftPass:
			return Result{Value: v, Carry: carry}
		}
	}

	return Result{Value: v, Carry: c}
}

// ShiftLeft is a logical shift left.
func ShiftLeft(v, amount uint8, carry bool) Result {
	return Shift(insts.ShiftLSL, v, amount, carry)
}

// ShiftRight is a logical shift right.
func ShiftRight(v, amount uint8, carry bool) Result {
	return Shift(insts.ShiftLSR, v, amount, carry)
}

// ArithmeticShiftRight shifts right, preserving the sign bit.
func ArithmeticShiftRight(v, amount uint8, carry bool) Result {
	return Shift(insts.ShiftASR, v, amount, carry)
}

// RotateRight rotates right.
func RotateRight(v, amount uint8, carry bool) Result {
	return Shift(insts.ShiftROR, v, amount, carry)
}

// RotateLeft rotates left.
func RotateLeft(v, amount uint8, carry bool) Result {
	return Shift(insts.ShiftROL, v, amount, carry)
}
