// Package pipeline provides the 4-stage lock-step pipeline for timing
// simulation: fetch, decode, execute and writeback.
package pipeline

import (
	"github.com/sarchlab/p8sim/emu"
	"github.com/sarchlab/p8sim/insts"
)

// StageSlot holds the instruction occupying one pipeline stage.
type StageSlot struct {
	// Valid indicates if this slot holds an instruction or a bubble.
	Valid bool

	// Bubble marks a decoded NOP inserted by a flush.
	Bubble bool

	// PC is the address the instruction was fetched from.
	PC uint16

	// Word is the raw instruction word.
	Word uint16

	// Inst is the decoded instruction. It is nil until decode.
	Inst *insts.Instruction

	// Fault is a fetch error carried to execute.
	Fault error

	// PredictedNextPC is the address fetch continued from.
	PredictedNextPC uint16

	// Predicted is set when the branch predictor was consulted.
	Predicted bool

	// PredictedTaken is the predictor's answer.
	PredictedTaken bool

	// BranchTarget is the target the predictor was asked about.
	BranchTarget uint16

	// Stalled holds the slot in decode for one cycle.
	Stalled bool

	// Released is set on the cycle after a stall ends so the slot is not
	// stalled again by the same producer.
	Released bool

	// Outcome is the execute result, committed at writeback.
	Outcome emu.Outcome
}

// Clear resets the slot to empty.
func (s *StageSlot) Clear() {
	*s = StageSlot{}
}

// Occupied reports whether the slot holds a real instruction.
func (s *StageSlot) Occupied() bool {
	return s.Valid && !s.Bubble
}

// bubble returns a flushed slot holding a decoded NOP.
func bubble(d *insts.Decoder) StageSlot {
	return StageSlot{
		Valid:  true,
		Bubble: true,
		Inst:   d.Decode(insts.EncodeNOP()),
	}
}

// Stages is the set of four stage slots.
type Stages struct {
	Fetch     StageSlot
	Decode    StageSlot
	Execute   StageSlot
	Writeback StageSlot
}

// Clear empties every stage.
func (s *Stages) Clear() {
	s.Fetch.Clear()
	s.Decode.Clear()
	s.Execute.Clear()
	s.Writeback.Clear()
}
