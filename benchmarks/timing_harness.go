// Package benchmarks provides timing benchmark infrastructure for the P8
// pipeline model.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/p8sim/emu"
	"github.com/sarchlab/p8sim/timing/cache"
	"github.com/sarchlab/p8sim/timing/latency"
	"github.com/sarchlab/p8sim/timing/pipeline"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of cycles decode was held
	StallCycles uint64 `json:"stall_cycles"`

	// DataHazards is the number of RAW data hazards detected
	DataHazards uint64 `json:"data_hazards"`

	// ControlHazards is the number of fetch flushes behind a branch in decode
	ControlHazards uint64 `json:"control_hazards"`

	// PipelineFlushes is the number of redirects at execute
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// FlushedInstructions is the number of fetched words discarded
	FlushedInstructions uint64 `json:"flushed_instructions"`

	// MultiCycleOps is the number of instructions with latency above one
	MultiCycleOps uint64 `json:"multi_cycle_ops"`

	// UnmodeledExecCycles is the extra latency the pipeline did not stall for
	UnmodeledExecCycles uint64 `json:"unmodeled_exec_cycles"`

	// Page swap counts for the two memories
	IPageSwaps uint64 `json:"ipage_swaps"`
	DPageSwaps uint64 `json:"dpage_swaps"`

	// SwapCycles is the page swap latency charged by both memories
	SwapCycles uint64 `json:"swap_cycles"`

	// Branch predictor stats
	BranchPredictions     uint64  `json:"branch_predictions,omitempty"`
	BranchCorrect         uint64  `json:"branch_correct,omitempty"`
	BranchMispredictions  uint64  `json:"branch_mispredictions,omitempty"`
	BranchAccuracyPercent float64 `json:"branch_accuracy_percent,omitempty"`

	// Result is the value of the benchmark's result register
	Result uint8 `json:"result"`

	// Passed is true if the run halted cleanly with the expected result
	Passed bool `json:"passed"`

	// Error is the fault that stopped the run, if any
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the machine state and data memory
	Setup func(m *emu.Machine, data *cache.DataMemory)

	// Program is the P8 machine code, loaded at address 0
	Program []uint16

	// ResultReg holds the value checked after the run
	ResultReg uint8

	// Expected is the expected value of ResultReg
	Expected uint8
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Timing is the latency configuration. PageSwapLatency also sets the
	// swap latency of both memories.
	Timing *latency.TimingConfig

	// PredictorEntries is the branch predictor capacity
	PredictorEntries int

	// MaxCycles bounds each run; 0 means no limit
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives per-benchmark progress when Verbose is set
	Logger logrus.FieldLogger

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Timing:           latency.DefaultTimingConfig(),
		PredictorEntries: pipeline.DefaultBranchPredictorConfig().Entries,
		MaxCycles:        1_000_000,
		Output:           os.Stdout,
		Verbose:          false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}
	if config.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(os.Stderr)
		config.Logger = logger
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		if h.config.Verbose {
			h.config.Logger.WithFields(logrus.Fields{
				"benchmark": result.Name,
				"cycles":    result.SimulatedCycles,
				"cpi":       fmt.Sprintf("%.3f", result.CPI),
				"passed":    result.Passed,
			}).Info("benchmark complete")
		}
		results = append(results, result)
	}

	return results
}

func (h *Harness) memoryConfigs() (cache.Config, cache.Config) {
	icfg := cache.DefaultInstructionConfig()
	dcfg := cache.DefaultDataConfig()
	icfg.SwapLatency = h.config.Timing.PageSwapLatency
	dcfg.SwapLatency = h.config.Timing.PageSwapLatency
	return icfg, dcfg
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	icfg, dcfg := h.memoryConfigs()
	imem := cache.NewInstructionMemory(icfg)
	data := cache.NewDataMemory(dcfg)
	machine := emu.NewMachine()

	if bench.Setup != nil {
		bench.Setup(machine, data)
	}

	image := make([]uint16, imem.Size())
	copy(image, bench.Program)
	if err := imem.Flash(image); err != nil {
		result.Error = err.Error()
		return result
	}

	pipe := pipeline.NewPipeline(machine, imem, data,
		pipeline.WithLatencyTable(latency.NewTableWithConfig(h.config.Timing)),
		pipeline.WithBranchPredictor(pipeline.BranchPredictorConfig{
			Entries: h.config.PredictorEntries,
		}),
		pipeline.WithMaxCycles(h.config.MaxCycles),
	)

	start := time.Now()
	err := pipe.Run()
	result.WallTime = time.Since(start)

	stats := pipe.Stats()
	istats := imem.Stats()
	dstats := data.Stats()

	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.StallCycles = stats.Stalls
	result.DataHazards = stats.DataHazards
	result.ControlHazards = stats.ControlHazards
	result.PipelineFlushes = stats.Flushes
	result.FlushedInstructions = stats.FlushedInstructions
	result.MultiCycleOps = stats.MultiCycleOps
	result.UnmodeledExecCycles = stats.UnmodeledExecCycles
	result.IPageSwaps = istats.PageSwaps
	result.DPageSwaps = dstats.PageSwaps
	result.SwapCycles = istats.SwapCycles + dstats.SwapCycles
	result.BranchPredictions = stats.Branch.Predictions
	result.BranchCorrect = stats.Branch.Correct
	result.BranchMispredictions = stats.Branch.Mispredictions
	result.BranchAccuracyPercent = stats.Branch.Accuracy()
	result.Result = machine.Regs.ReadReg(bench.ResultReg)

	if err != nil {
		result.Error = err.Error()
	}
	result.Passed = err == nil && pipe.Exited() && result.Result == bench.Expected

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output

	_, _ = fmt.Fprintln(out, "=== P8 Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(out, "  Result: %d (passed: %v)\n", r.Result, r.Passed)
		if r.Error != "" {
			_, _ = fmt.Fprintf(out, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintln(out, "  --- Timing ---")
		_, _ = fmt.Fprintf(out, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(out, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(out, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(out, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(out, "  Data Hazards:         %d\n", r.DataHazards)
		_, _ = fmt.Fprintf(out, "  Control Hazards:      %d\n", r.ControlHazards)
		_, _ = fmt.Fprintf(out, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)
		_, _ = fmt.Fprintf(out, "  Flushed Instructions: %d\n", r.FlushedInstructions)
		if r.MultiCycleOps > 0 {
			_, _ = fmt.Fprintf(out, "  Multi-cycle Ops:      %d (+%d cycles unmodeled)\n",
				r.MultiCycleOps, r.UnmodeledExecCycles)
		}

		_, _ = fmt.Fprintln(out, "  --- Paged Memory ---")
		_, _ = fmt.Fprintf(out, "  I-Page Swaps: %d\n", r.IPageSwaps)
		_, _ = fmt.Fprintf(out, "  D-Page Swaps: %d\n", r.DPageSwaps)
		_, _ = fmt.Fprintf(out, "  Swap Cycles:  %d\n", r.SwapCycles)

		if r.BranchPredictions > 0 {
			_, _ = fmt.Fprintln(out, "  --- Branch Predictor ---")
			_, _ = fmt.Fprintf(out, "  Predictions:     %d\n", r.BranchPredictions)
			_, _ = fmt.Fprintf(out, "  Correct:         %d\n", r.BranchCorrect)
			_, _ = fmt.Fprintf(out, "  Mispredictions:  %d\n", r.BranchMispredictions)
			_, _ = fmt.Fprintf(out, "  Accuracy:        %.1f%%\n", r.BranchAccuracyPercent)
		}

		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,stalls,data_hazards,control_hazards,flushes,flushed,multi_cycle_ops,unmodeled_cycles,ipage_swaps,dpage_swaps,branch_accuracy,result,passed")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d,%d,%.1f,%d,%v\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.DataHazards,
			r.ControlHazards,
			r.PipelineFlushes,
			r.FlushedInstructions,
			r.MultiCycleOps,
			r.UnmodeledExecCycles,
			r.IPageSwaps,
			r.DPageSwaps,
			r.BranchAccuracyPercent,
			r.Result,
			r.Passed,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Version of the simulator
	Version string `json:"version"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the harness configuration used.
type BenchmarkConfig struct {
	Timing           *latency.TimingConfig `json:"timing"`
	PredictorEntries int                   `json:"predictor_entries"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Passed is the number of benchmarks with the expected result
	Passed int `json:"passed"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Version is reported in JSON benchmark reports.
const Version = "0.1.0"

// Report builds the JSON report for a set of results.
func (h *Harness) Report(results []BenchmarkResult) BenchmarkReport {
	summary := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalInstructions += r.InstructionsRetired
		summary.TotalWallTime += r.WallTime
		if r.Passed {
			summary.Passed++
		}
	}

	if summary.TotalInstructions > 0 {
		summary.AverageCPI = float64(summary.TotalCycles) / float64(summary.TotalInstructions)
	}

	return BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Config: BenchmarkConfig{
				Timing:           h.config.Timing,
				PredictorEntries: h.config.PredictorEntries,
			},
		},
		Results: results,
		Summary: summary,
	}
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(h.Report(results))
}
