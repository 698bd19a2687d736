package emu

import "math/bits"

// Flag is a bit in the flags byte.
type Flag uint8

// Flag bits. Bits 1 and 3 are reserved.
const (
	FlagCarry    Flag = 1 << 0
	FlagParity   Flag = 1 << 2
	FlagAuxCarry Flag = 1 << 4
	FlagOverflow Flag = 1 << 5
	FlagZero     Flag = 1 << 6
	FlagSign     Flag = 1 << 7

	flagMask = FlagCarry | FlagParity | FlagAuxCarry | FlagOverflow |
		FlagZero | FlagSign
)

// StatusRegister holds the flags byte.
type StatusRegister struct {
	value uint8
}

// Update recomputes zero, sign and parity from result and takes carry,
// aux-carry and overflow as given.
func (s *StatusRegister) Update(result uint8, carry, auxCarry, overflow bool) {
	var v Flag

	if carry {
		v |= FlagCarry
	}
	if bits.OnesCount8(result)%2 == 0 {
		v |= FlagParity
	}
	if auxCarry {
		v |= FlagAuxCarry
	}
	if overflow {
		v |= FlagOverflow
	}
	if result == 0 {
		v |= FlagZero
	}
	if result&0x80 != 0 {
		v |= FlagSign
	}

	s.value = uint8(v)
}

// Apply updates the flags from a unit result.
func (s *StatusRegister) Apply(r Result) {
	s.Update(r.Value, r.Carry, r.AuxCarry, r.Overflow)
}

// Clear zeroes all flags.
func (s *StatusRegister) Clear() {
	s.value = 0
}

// Byte returns the flags byte.
func (s *StatusRegister) Byte() uint8 {
	return s.value
}

// Set loads the flags byte. Reserved bits read back as 0.
func (s *StatusRegister) Set(b uint8) {
	s.value = b & uint8(flagMask)
}

// Has reports whether flag f is set.
func (s *StatusRegister) Has(f Flag) bool {
	return s.value&uint8(f) != 0
}

// Carry returns the carry flag.
func (s *StatusRegister) Carry() bool { return s.Has(FlagCarry) }

// Parity returns the parity flag, set when the result has even parity.
func (s *StatusRegister) Parity() bool { return s.Has(FlagParity) }

// AuxCarry returns the aux-carry flag.
func (s *StatusRegister) AuxCarry() bool { return s.Has(FlagAuxCarry) }

// Overflow returns the overflow flag.
func (s *StatusRegister) Overflow() bool { return s.Has(FlagOverflow) }

// Zero returns the zero flag.
func (s *StatusRegister) Zero() bool { return s.Has(FlagZero) }

// Sign returns the sign flag.
func (s *StatusRegister) Sign() bool { return s.Has(FlagSign) }
