// Package latency provides the execute latency model for the P8 pipeline.
//
// The pipeline does not stall on multi-cycle operations; it uses the table
// to account for the cycles a blocking implementation would spend.
package latency

import (
	"github.com/sarchlab/p8sim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execute latency in cycles for the given instruction.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Class {
	case insts.ClassMUL:
		switch inst.MulDivType() {
		case insts.MulDiv, insts.MulMod:
			return t.config.DivideLatency
		default:
			return t.config.MultiplyLatency
		}

	case insts.ClassBTC:
		switch inst.BitCountType() {
		case insts.BitCountSqrt:
			return t.config.SqrtLatency
		case insts.BitCountOnes:
			return t.config.PopCountLatency
		default:
			return t.config.BitCountLatency
		}

	case insts.ClassJMP, insts.ClassBRA, insts.ClassCAL, insts.ClassRET:
		return t.config.BranchLatency

	case insts.ClassMLD, insts.ClassSLD, insts.ClassPOP:
		return t.config.LoadLatency

	case insts.ClassMST, insts.ClassSST, insts.ClassPSH:
		return t.config.StoreLatency

	case insts.ClassINP, insts.ClassOUT, insts.ClassOPI, insts.ClassCPC:
		return t.config.IOLatency

	case insts.ClassNOP, insts.ClassHLT, insts.ClassSYS:
		return 1

	default:
		return t.config.ALULatency
	}
}

// IsMultiCycle returns true if the instruction takes more than one
// execute cycle.
func (t *Table) IsMultiCycle(inst *insts.Instruction) bool {
	return t.GetLatency(inst) > 1
}

// IsMemoryOp returns true if the instruction accesses data memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Class {
	case insts.ClassMLD, insts.ClassMST, insts.ClassPOP, insts.ClassPSH:
		return true
	default:
		return false
	}
}

// IsBranchOp returns true if the instruction can transfer control.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.IsControlFlow()
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
