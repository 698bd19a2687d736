package emu

import "github.com/sarchlab/p8sim/insts"

// ConditionHolds evaluates a 3-bit branch condition against the flags.
// In alternate mode the signed/overflow reading of each condition is used.
func ConditionHolds(cond insts.Cond, flags *StatusRegister, alternate bool) bool {
	z := flags.Zero()
	c := flags.Carry()
	n := flags.Sign()
	v := flags.Overflow()
	p := flags.Parity()

	if alternate {
		switch cond & 0x7 {
		case insts.CondVS:
			return v
		case insts.CondVC:
			return !v
		case insts.CondLT:
			return n != v
		case insts.CondGT:
			return n == v && !z
		case insts.CondLE:
			return n != v || z
		case insts.CondGE:
			return n == v
		case insts.CondOD:
			return !p
		default:
			return true
		}
	}

	switch cond & 0x7 {
	case insts.CondEQ:
		return z
	case insts.CondNE:
		return !z
	case insts.CondLO:
		return !c
	case insts.CondHI:
		return c && !z
	case insts.CondLS:
		return !c || z
	case insts.CondHS:
		return c
	case insts.CondEV:
		return p
	default:
		return true
	}
}

// BranchTarget computes the target of a BRA. A direct branch replaces the
// low 7 bits of pc; a pointer branch jumps to BO:AP masked to 11 bits.
func BranchTarget(inst *insts.Instruction, pc uint16, ap, bo uint8) uint16 {
	if inst.BranchType == insts.BranchToPointer {
		return (uint16(bo)<<8 | uint16(ap)) & 0x7FF
	}
	return pc&^0x7F | inst.Addr&0x7F
}
