package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/p8sim/insts"
)

// ErrMaxInstructions is returned when the instruction limit is reached.
var ErrMaxInstructions = errors.New("max instructions reached")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true once a HLT has executed or a fault stopped the machine.
	Halted bool

	// Exited is true if the HLT carried the exit flag.
	Exited bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes P8 instructions functionally, one per Step.
type Emulator struct {
	machine  *Machine
	imem     InstructionMemory
	dmem     DataMemory
	decoder  *insts.Decoder
	executor *Executor

	pc     uint16
	halted bool
	exited bool
	err    error

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit

	execOpts []ExecutorOption
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithEmulatorIOBus attaches an I/O bus.
func WithEmulatorIOBus(bus IOBus) EmulatorOption {
	return func(e *Emulator) {
		e.execOpts = append(e.execOpts, WithIOBus(bus))
	}
}

// WithEmulatorCoprocessor attaches a coprocessor.
func WithEmulatorCoprocessor(c Coprocessor) EmulatorOption {
	return func(e *Emulator) {
		e.execOpts = append(e.execOpts, WithCoprocessor(c))
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithMachine uses an existing machine instead of a fresh one.
func WithMachine(m *Machine) EmulatorOption {
	return func(e *Emulator) {
		e.machine = m
	}
}

// NewEmulator creates a new P8 emulator over the given memories.
func NewEmulator(
	imem InstructionMemory,
	dmem DataMemory,
	opts ...EmulatorOption,
) *Emulator {
	e := &Emulator{
		imem:    imem,
		dmem:    dmem,
		decoder: insts.NewDecoder(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.machine == nil {
		e.machine = NewMachine()
	}

	e.executor = NewExecutor(e.machine, dmem, e.execOpts...)

	return e
}

// Machine returns the emulator's architectural state.
func (e *Emulator) Machine() *Machine {
	return e.machine
}

// PC returns the program counter.
func (e *Emulator) PC() uint16 {
	return e.pc
}

// SetPC sets the program counter.
func (e *Emulator) SetPC(pc uint16) {
	e.pc = pc
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Halted reports whether the machine has stopped.
func (e *Emulator) Halted() bool {
	return e.halted
}

// Exited reports whether the machine stopped on an exiting HLT.
func (e *Emulator) Exited() bool {
	return e.exited
}

// Err returns the fault that stopped the machine, if any.
func (e *Emulator) Err() error {
	return e.err
}

// Reset restores the machine and PC. Memory contents are kept.
func (e *Emulator) Reset() {
	e.machine.Reset()
	e.pc = 0
	e.halted = false
	e.exited = false
	e.err = nil
	e.instructionCount = 0
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.halted {
		return StepResult{Halted: true, Exited: e.exited, Err: e.err}
	}

	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	word, err := e.imem.ReadInstruction(e.pc)
	if err != nil {
		return e.fault(fmt.Errorf("failed to fetch at pc=0x%03X: %w", e.pc, err))
	}

	inst := e.decoder.Decode(word)
	out := e.executor.Execute(inst, e.pc)
	e.instructionCount++

	if out.Err != nil {
		return e.fault(fmt.Errorf("failed to execute %s at pc=0x%03X: %w",
			inst.Class, e.pc, out.Err))
	}

	if out.WriteReg {
		e.machine.Regs.WriteReg(out.Rd, out.Value)
	}

	e.pc = out.NextPC

	if out.Halt {
		e.halted = true
		e.exited = out.Exit
		return StepResult{Halted: true, Exited: out.Exit}
	}

	return StepResult{}
}

func (e *Emulator) fault(err error) StepResult {
	e.halted = true
	e.err = err
	return StepResult{Halted: true, Err: err}
}

// Run steps until the machine halts or the instruction limit is reached.
func (e *Emulator) Run() error {
	for {
		res := e.Step()
		if res.Err != nil {
			return res.Err
		}
		if res.Halted {
			return nil
		}
	}
}
