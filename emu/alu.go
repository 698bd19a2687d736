package emu

// Result is the output of an execution unit: the result byte and the flag
// inputs the operation supplies. Zero, sign and parity are derived from
// Value by the StatusRegister.
type Result struct {
	Value    uint8
	Carry    bool
	AuxCarry bool
	Overflow bool
}

func bit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Add returns a + b.
func Add(a, b uint8) Result {
	return AddWithCarry(a, b, false)
}

// AddWithCarry returns a + b + carry. Carry is set when the sum exceeds 8
// bits, aux-carry on a carry out of bit 3, and overflow when two operands
// of the same sign produce a result of the other sign.
func AddWithCarry(a, b uint8, carry bool) Result {
	c := bit(carry)
	sum := uint16(a) + uint16(b) + uint16(c)
	v := uint8(sum)

	return Result{
		Value:    v,
		Carry:    sum > 0xFF,
		AuxCarry: (a&0xF)+(b&0xF)+c > 0xF,
		Overflow: (a^v)&(b^v)&0x80 != 0,
	}
}

// Sub returns a - b.
func Sub(a, b uint8) Result {
	return SubWithBorrow(a, b, false)
}

// SubWithBorrow returns a - b - borrow. Carry means a borrow occurred.
func SubWithBorrow(a, b uint8, borrow bool) Result {
	c := int(bit(borrow))
	diff := int(a) - int(b) - c
	v := uint8(diff)

	return Result{
		Value:    v,
		Carry:    diff < 0,
		AuxCarry: int(a&0xF)-int(b&0xF)-c < 0,
		Overflow: (a^b)&(a^v)&0x80 != 0,
	}
}

// AddVector adds the two nibbles independently. The low nibble carry goes
// to aux-carry and the high nibble carry to carry. The carry-in enters the
// low nibble only.
func AddVector(a, b uint8, carry bool) Result {
	lo := a&0xF + b&0xF + bit(carry)
	hi := a>>4 + b>>4

	return Result{
		Value:    (hi&0xF)<<4 | lo&0xF,
		Carry:    hi > 0xF,
		AuxCarry: lo > 0xF,
	}
}

// SubVector subtracts the two nibbles independently.
func SubVector(a, b uint8, borrow bool) Result {
	lo := int(a&0xF) - int(b&0xF) - int(bit(borrow))
	hi := int(a>>4) - int(b>>4)

	return Result{
		Value:    uint8(hi&0xF)<<4 | uint8(lo&0xF),
		Carry:    hi < 0,
		AuxCarry: lo < 0,
	}
}

// Increment returns a + 1. The carry flag passes through unchanged.
func Increment(a uint8, carry bool) Result {
	return Result{
		Value:    a + 1,
		Carry:    carry,
		AuxCarry: a&0xF == 0xF,
		Overflow: a == 0x7F,
	}
}

// Decrement returns a - 1. The carry flag passes through unchanged.
func Decrement(a uint8, carry bool) Result {
	return Result{
		Value:    a - 1,
		Carry:    carry,
		AuxCarry: a&0xF == 0x0,
		Overflow: a == 0x80,
	}
}

// Logic operations clear carry, aux-carry and overflow.

// And returns a & b.
func And(a, b uint8) Result { return Result{Value: a & b} }

// Or returns a | b.
func Or(a, b uint8) Result { return Result{Value: a | b} }

// Xor returns a ^ b.
func Xor(a, b uint8) Result { return Result{Value: a ^ b} }

// Not returns ^a.
func Not(a uint8) Result { return Result{Value: ^a} }

// Implies returns ^a | b.
func Implies(a, b uint8) Result { return Result{Value: ^a | b} }

// Nor returns ^(a | b).
func Nor(a, b uint8) Result { return Result{Value: ^(a | b)} }

// Nand returns ^(a & b).
func Nand(a, b uint8) Result { return Result{Value: ^(a & b)} }

// Xnor returns ^(a ^ b).
func Xnor(a, b uint8) Result { return Result{Value: ^(a ^ b)} }

// NotImplies returns a &^ b.
func NotImplies(a, b uint8) Result { return Result{Value: a &^ b} }
