package pipeline

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/p8sim/emu"
	"github.com/sarchlab/p8sim/insts"
	"github.com/sarchlab/p8sim/timing/latency"
)

// ErrMaxCycles is returned by Run when the cycle limit is reached.
var ErrMaxCycles = errors.New("max cycles reached")

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired at writeback.
	Instructions uint64
	// Stalls is the number of cycles decode was held.
	Stalls uint64
	// DataHazards is the number of RAW data hazards detected.
	DataHazards uint64
	// ControlHazards is the number of fetch flushes caused by a BRA or JMP
	// in decode.
	ControlHazards uint64
	// Flushes is the number of redirects at execute (mispredicted
	// branches, calls, returns and halts).
	Flushes uint64
	// FlushedInstructions is the number of fetched instructions discarded.
	FlushedInstructions uint64
	// MultiCycleOps is the number of executed instructions with an execute
	// latency above one cycle.
	MultiCycleOps uint64
	// UnmodeledExecCycles is the number of extra execute cycles those
	// instructions would take. The pipeline does not stall for them.
	UnmodeledExecCycles uint64
	// Branch holds the branch predictor statistics.
	Branch BranchPredictorStats
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// InterruptHook is called once per cycle after the writeback commit and
// before the next fetch.
type InterruptHook func(p *Pipeline)

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithIOBus attaches an I/O bus for INP, OUT and OPI.
func WithIOBus(bus emu.IOBus) PipelineOption {
	return func(p *Pipeline) {
		p.execOpts = append(p.execOpts, emu.WithIOBus(bus))
	}
}

// WithCoprocessor attaches a coprocessor command sink for CPC.
func WithCoprocessor(c emu.Coprocessor) PipelineOption {
	return func(p *Pipeline) {
		p.execOpts = append(p.execOpts, emu.WithCoprocessor(c))
	}
}

// WithInterruptHook installs the interrupt hook.
func WithInterruptHook(hook InterruptHook) PipelineOption {
	return func(p *Pipeline) {
		p.interruptHook = hook
	}
}

// WithLatencyTable sets a custom latency table for instruction timing.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latencyTable = table
	}
}

// WithBranchPredictor configures the branch predictor.
func WithBranchPredictor(config BranchPredictorConfig) PipelineOption {
	return func(p *Pipeline) {
		p.branchPredictor = NewBranchPredictor(config)
	}
}

// WithLogger sets the logger. The default logs warnings to stderr.
func WithLogger(logger logrus.FieldLogger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMaxCycles limits Run to the given number of cycles. A value of 0
// means no limit.
func WithMaxCycles(max uint64) PipelineOption {
	return func(p *Pipeline) {
		p.maxCycles = max
	}
}

// Pipeline implements the 4-stage lock-step P8 pipeline.
// Stages: Fetch -> Decode -> Execute -> Writeback
type Pipeline struct {
	stages Stages

	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	writebackStage *WritebackStage

	hazardUnit      *HazardUnit
	branchPredictor *BranchPredictor
	latencyTable    *latency.Table

	machine  *emu.Machine
	execOpts []emu.ExecutorOption

	interruptHook InterruptHook

	logger logrus.FieldLogger
	debug  bool

	pc          uint16
	maxCycles   uint64
	haltPending bool
	halted      bool
	exited      bool
	err         error

	stats Statistics
}

// NewPipeline creates a new 4-stage pipeline over the given machine and
// memories.
func NewPipeline(
	machine *emu.Machine,
	imem emu.InstructionMemory,
	dmem emu.DataMemory,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		fetchStage:      NewFetchStage(imem),
		decodeStage:     NewDecodeStage(),
		writebackStage:  NewWritebackStage(&machine.Regs),
		hazardUnit:      NewHazardUnit(),
		branchPredictor: NewBranchPredictor(DefaultBranchPredictorConfig()),
		latencyTable:    latency.NewTable(),
		machine:         machine,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		p.logger = l
	}
	p.debug = levelEnabled(p.logger, logrus.DebugLevel)

	p.executeStage = NewExecuteStage(emu.NewExecutor(machine, dmem, p.execOpts...))

	return p
}

func levelEnabled(l logrus.FieldLogger, level logrus.Level) bool {
	switch v := l.(type) {
	case *logrus.Logger:
		return v.IsLevelEnabled(level)
	case *logrus.Entry:
		return v.Logger.IsLevelEnabled(level)
	default:
		return true
	}
}

// Machine returns the architectural state.
func (p *Pipeline) Machine() *emu.Machine {
	return p.machine
}

// PC returns the next fetch address.
func (p *Pipeline) PC() uint16 {
	return p.pc
}

// SetPC sets the next fetch address.
func (p *Pipeline) SetPC(pc uint16) {
	p.pc = pc
}

// Stages returns a copy of the stage slots.
func (p *Pipeline) Stages() Stages {
	return p.stages
}

// BranchPredictor returns the branch predictor.
func (p *Pipeline) BranchPredictor() *BranchPredictor {
	return p.branchPredictor
}

// LatencyTable returns the latency table.
func (p *Pipeline) LatencyTable() *latency.Table {
	return p.latencyTable
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	s := p.stats
	s.Branch = p.branchPredictor.Stats()
	return s
}

// Halted returns true if the pipeline has halted.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Exited returns true if the pipeline halted on an exiting HLT.
func (p *Pipeline) Exited() bool {
	return p.exited
}

// Err returns the fault that halted the pipeline, if any.
func (p *Pipeline) Err() error {
	return p.err
}

// Run ticks the pipeline until it halts.
func (p *Pipeline) Run() error {
	for !p.halted {
		if p.maxCycles > 0 && p.stats.Cycles >= p.maxCycles {
			return ErrMaxCycles
		}
		p.Tick()
	}
	return p.err
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still running, false if halted.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		p.Tick()
	}
	return !p.halted
}

// Cycle is an alias for Tick.
func (p *Pipeline) Cycle() {
	p.Tick()
}

// Tick executes one pipeline cycle.
//
// The order is fixed: resolve hazards, commit writeback, run the
// interrupt hook, execute, advance decode, advance fetch into decode and
// fetch. Writeback commits before execute reads its operands, so a
// dependent instruction one stage behind its producer sees the new value.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}

	p.stats.Cycles++

	hz := p.hazardUnit.Resolve(&p.stages)
	if hz.DataHazard {
		p.stats.DataHazards++
	}
	if hz.ControlHazard {
		p.stats.ControlHazards++
		p.pc = hz.RedirectPC
	}

	if p.doWriteback() {
		return
	}

	if p.interruptHook != nil {
		p.interruptHook(p)
	}

	if p.doExecute() {
		return
	}

	stalled := p.doDecode()
	if !stalled {
		p.doFetchToDecode()
	}
	p.doFetch()

	if p.debug {
		p.logger.WithFields(logrus.Fields{
			"cycle":     p.stats.Cycles,
			"fetch":     p.stages.Fetch.String(),
			"decode":    p.stages.Decode.String(),
			"execute":   p.stages.Execute.String(),
			"writeback": p.stages.Writeback.String(),
		}).Debug("tick")
	}
}

// doWriteback commits the writeback slot. It returns true if the pipeline
// halted.
func (p *Pipeline) doWriteback() bool {
	slot := &p.stages.Writeback
	if p.writebackStage.Writeback(slot) {
		p.stats.Instructions++
	}

	halt := slot.Occupied() && slot.Outcome.Halt
	exit := slot.Outcome.Exit
	slot.Clear()

	if halt {
		p.halted = true
		p.exited = exit
		p.stages.Clear()
		return true
	}

	return false
}

// doExecute runs the execute slot and moves it to writeback. It returns
// true if the pipeline halted on a fault.
func (p *Pipeline) doExecute() bool {
	slot := &p.stages.Execute
	if !slot.Occupied() {
		slot.Clear()
		return false
	}

	if slot.Fault != nil {
		p.fault(slot.PC, fmt.Errorf("failed to fetch at pc=0x%03X: %w", slot.PC, slot.Fault))
		return true
	}

	out := p.executeStage.Execute(slot)

	if lat := p.latencyTable.GetLatency(slot.Inst); lat > 1 {
		p.stats.MultiCycleOps++
		p.stats.UnmodeledExecCycles += lat - 1
	}

	if out.Err != nil {
		p.fault(slot.PC, fmt.Errorf("failed to execute %s at pc=0x%03X: %w",
			slot.Inst.Class, slot.PC, out.Err))
		return true
	}

	if slot.Predicted {
		p.branchPredictor.Update(slot.PC, slot.BranchTarget, out.Taken)
	}

	switch {
	case out.Halt:
		p.flushYounger()
		p.haltPending = true
		p.pc = out.NextPC
	case out.NextPC != slot.PredictedNextPC:
		p.stats.Flushes++
		p.flushYounger()
		p.pc = out.NextPC
		p.logger.WithFields(logrus.Fields{
			"pc":        slot.PC,
			"inst":      slot.Inst.String(),
			"predicted": slot.PredictedNextPC,
			"actual":    out.NextPC,
		}).Debug("redirect")
	}

	p.stages.Writeback = *slot
	slot.Clear()

	return false
}

// flushYounger replaces fetch and decode with bubbles.
func (p *Pipeline) flushYounger() {
	for _, s := range []*StageSlot{&p.stages.Fetch, &p.stages.Decode} {
		if s.Occupied() {
			p.stats.FlushedInstructions++
		}
		if s.Valid {
			*s = bubble(p.hazardUnit.decoder)
		}
	}
}

func (p *Pipeline) fault(pc uint16, err error) {
	p.logger.WithFields(logrus.Fields{
		"cycle": p.stats.Cycles,
		"pc":    pc,
	}).Warn(err.Error())

	p.err = err
	p.halted = true
	p.pc = pc
	p.stages.Clear()
}

// doDecode moves decode into execute. It returns true if decode is
// stalled this cycle.
func (p *Pipeline) doDecode() bool {
	d := &p.stages.Decode
	if d.Stalled {
		d.Stalled = false
		d.Released = true
		p.stats.Stalls++
		return true
	}

	p.stages.Execute = *d
	p.stages.Execute.Released = false
	d.Clear()

	return false
}

// doFetchToDecode moves fetch into decode and predicts control transfers.
func (p *Pipeline) doFetchToDecode() {
	p.stages.Decode = p.stages.Fetch
	p.stages.Fetch.Clear()

	d := &p.stages.Decode
	p.decodeStage.Decode(d)

	if d.Occupied() && d.Inst != nil && d.Inst.IsBranchOrJump() {
		p.predict(d)
	}
}

// predict sets the slot's predicted next PC. JMP and always-taken
// branches are taken; hinted branches follow the hint; the rest ask the
// branch predictor.
func (p *Pipeline) predict(slot *StageSlot) {
	inst := slot.Inst

	if inst.Class == insts.ClassJMP {
		slot.PredictedNextPC = inst.Addr
		return
	}

	target := emu.BranchTarget(inst, slot.PC, p.machine.AP, p.machine.BO)
	slot.BranchTarget = target

	var taken bool
	switch {
	case inst.Cond == insts.CondAL, inst.BranchType == insts.BranchAssumeTaken:
		taken = true
	case inst.BranchType == insts.BranchAssumeNotTaken:
		taken = false
	default:
		taken = p.branchPredictor.Predict(slot.PC, target)
		slot.Predicted = true
	}

	slot.PredictedTaken = taken
	if taken {
		slot.PredictedNextPC = target
	}
}

// doFetch fills an empty fetch slot from the PC.
func (p *Pipeline) doFetch() {
	if p.haltPending || p.stages.Fetch.Valid {
		return
	}

	p.stages.Fetch = p.fetchStage.Fetch(p.pc)
	p.pc++
}

// Reset clears the pipeline, the machine, the predictor and statistics.
// Memory contents are kept.
func (p *Pipeline) Reset() {
	p.stages.Clear()
	p.machine.Reset()
	p.branchPredictor.Reset()
	p.stats = Statistics{}
	p.pc = 0
	p.haltPending = false
	p.halted = false
	p.exited = false
	p.err = nil
}

// String renders the slot for logs.
func (s *StageSlot) String() string {
	switch {
	case !s.Valid:
		return "-"
	case s.Bubble:
		return "bubble"
	case s.Fault != nil:
		return fmt.Sprintf("%03X: fault", s.PC)
	case s.Inst == nil:
		return fmt.Sprintf("%03X: %04X", s.PC, s.Word)
	default:
		return fmt.Sprintf("%03X: %s", s.PC, s.Inst)
	}
}
