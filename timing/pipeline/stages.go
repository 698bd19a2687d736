package pipeline

import (
	"github.com/sarchlab/p8sim/emu"
	"github.com/sarchlab/p8sim/insts"
)

// FetchStage reads instruction words from instruction memory.
type FetchStage struct {
	memory emu.InstructionMemory
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(memory emu.InstructionMemory) *FetchStage {
	return &FetchStage{
		memory: memory,
	}
}

// Fetch reads the word at pc into a new slot. A read error is carried in
// the slot rather than returned.
func (s *FetchStage) Fetch(pc uint16) StageSlot {
	slot := StageSlot{
		Valid:           true,
		PC:              pc,
		PredictedNextPC: pc + 1,
	}

	word, err := s.memory.ReadInstruction(pc)
	if err != nil {
		slot.Fault = err
		return slot
	}

	slot.Word = word
	return slot
}

// DecodeStage decodes fetched words.
type DecodeStage struct {
	decoder *insts.Decoder
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage() *DecodeStage {
	return &DecodeStage{
		decoder: insts.NewDecoder(),
	}
}

// Decode fills in the slot's decoded instruction. Faulted and bubble
// slots are left as they are.
func (s *DecodeStage) Decode(slot *StageSlot) {
	if !slot.Valid || slot.Bubble || slot.Fault != nil || slot.Inst != nil {
		return
	}
	slot.Inst = s.decoder.Decode(slot.Word)
}

// ExecuteStage runs instructions through the executor.
type ExecuteStage struct {
	executor *emu.Executor
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage(executor *emu.Executor) *ExecuteStage {
	return &ExecuteStage{
		executor: executor,
	}
}

// Execute runs the slot's instruction and stores the outcome in the slot.
func (s *ExecuteStage) Execute(slot *StageSlot) emu.Outcome {
	slot.Outcome = s.executor.Execute(slot.Inst, slot.PC)
	return slot.Outcome
}

// WritebackStage commits register results.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{
		regFile: regFile,
	}
}

// Writeback commits the slot's register write. It returns true if the
// slot retired a real instruction.
func (s *WritebackStage) Writeback(slot *StageSlot) bool {
	if !slot.Occupied() {
		return false
	}

	if slot.Outcome.WriteReg {
		s.regFile.WriteReg(slot.Outcome.Rd, slot.Outcome.Value)
	}

	return true
}
