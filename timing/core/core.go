// Package core provides the cycle-level CPU core model.
// It wraps the pipeline and serializes access to it, so a clock driver
// goroutine can call Step while other goroutines read statistics.
package core

import (
	"errors"
	"sync"

	"github.com/sarchlab/p8sim/emu"
	"github.com/sarchlab/p8sim/timing/pipeline"
)

// ErrHalted is returned by Step once the core has halted cleanly.
var ErrHalted = errors.New("core halted")

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of stall cycles.
	Stalls uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// BranchAccuracy is the predictor accuracy as a percentage.
	BranchAccuracy float64
}

// CPI returns the cycles per instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Snapshot is a consistent view of the core between cycles.
type Snapshot struct {
	State  emu.State
	PC     uint16
	Stats  Stats
	Halted bool
	Exited bool
}

// Core represents a cycle-level P8 core.
type Core struct {
	mu sync.Mutex

	pipeline *pipeline.Pipeline
	machine  *emu.Machine
}

// NewCore creates a new Core over the given machine and memories.
func NewCore(
	machine *emu.Machine,
	imem emu.InstructionMemory,
	dmem emu.DataMemory,
	opts ...pipeline.PipelineOption,
) *Core {
	return &Core{
		pipeline: pipeline.NewPipeline(machine, imem, dmem, opts...),
		machine:  machine,
	}
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipeline.SetPC(pc)
}

// Step advances the core by one cycle. It returns the fault if the cycle
// halted the core on one, and ErrHalted if the core had already halted.
func (c *Core) Step() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pipeline.Halted() {
		if err := c.pipeline.Err(); err != nil {
			return err
		}
		return ErrHalted
	}

	c.pipeline.Tick()

	return c.pipeline.Err()
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipeline.Tick()
}

// Halted returns true if the core has halted.
func (c *Core) Halted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipeline.Halted()
}

// Exited returns true if the core halted on an exiting HLT.
func (c *Core) Exited() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipeline.Exited()
}

// Err returns the fault that halted the core, if any.
func (c *Core) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipeline.Err()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats()
}

func (c *Core) stats() Stats {
	pipeStats := c.pipeline.Stats()
	return Stats{
		Cycles:         pipeStats.Cycles,
		Instructions:   pipeStats.Instructions,
		Stalls:         pipeStats.Stalls,
		Flushes:        pipeStats.Flushes,
		BranchAccuracy: pipeStats.Branch.Accuracy(),
	}
}

// PipelineStats returns the full pipeline statistics.
func (c *Core) PipelineStats() pipeline.Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipeline.Stats()
}

// Snapshot returns the architectural state and statistics.
func (c *Core) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		State:  c.machine.State(),
		PC:     c.pipeline.PC(),
		Stats:  c.stats(),
		Halted: c.pipeline.Halted(),
		Exited: c.pipeline.Exited(),
	}
}

// Run executes the core until it halts.
func (c *Core) Run() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipeline.Run()
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipeline.RunCycles(cycles)
}

// Reset clears all core state. Memory contents are kept.
func (c *Core) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pipeline.Reset()
}
