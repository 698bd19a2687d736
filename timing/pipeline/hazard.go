package pipeline

import "github.com/sarchlab/p8sim/insts"

// HazardResult reports what the hazard unit did in one cycle.
type HazardResult struct {
	// DataHazard is set when decode was stalled.
	DataHazard bool

	// ControlHazard is set when the fetch slot was flushed because decode
	// holds a BRA or JMP.
	ControlHazard bool

	// Redirect is set with ControlHazard when fetch must continue from
	// RedirectPC.
	Redirect   bool
	RedirectPC uint16
}

// HazardUnit inspects the stage slots before they advance.
type HazardUnit struct {
	decoder *insts.Decoder
}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{
		decoder: insts.NewDecoder(),
	}
}

// Resolve checks for data and control hazards and applies the stall and
// flush to the stages.
func (h *HazardUnit) Resolve(s *Stages) HazardResult {
	result := HazardResult{}

	if h.DetectDataHazard(s) {
		s.Decode.Stalled = true
		result.DataHazard = true
	}

	if h.DetectControlHazard(s) {
		if s.Fetch.Valid {
			s.Fetch = bubble(h.decoder)
		}
		result.ControlHazard = true
		result.Redirect = true
		result.RedirectPC = s.Decode.PredictedNextPC
	}

	return result
}

// DetectDataHazard reports whether the decode slot reads a register that
// the execute or writeback slot will write. Register 0 never counts, and a
// slot just released from a stall is not stalled again.
func (h *HazardUnit) DetectDataHazard(s *Stages) bool {
	d := &s.Decode
	if !d.Occupied() || d.Inst == nil || d.Stalled || d.Released {
		return false
	}

	return h.writes(&s.Execute, d.Inst) || h.writes(&s.Writeback, d.Inst)
}

func (h *HazardUnit) writes(producer *StageSlot, consumer *insts.Instruction) bool {
	if !producer.Occupied() || producer.Inst == nil {
		return false
	}
	if !producer.Inst.WritesToRegister {
		return false
	}
	return consumer.ReadsRegister(producer.Inst.Rd)
}

// DetectControlHazard reports whether decode holds a BRA or JMP.
func (h *HazardUnit) DetectControlHazard(s *Stages) bool {
	d := &s.Decode
	if !d.Occupied() || d.Inst == nil {
		return false
	}
	return d.Inst.IsBranchOrJump()
}
