// Package main provides the entry point for p8sim, a cycle-level simulator
// for the P8 8-bit CPU.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/p8sim/emu"
	"github.com/sarchlab/p8sim/loader"
	"github.com/sarchlab/p8sim/timing/cache"
	"github.com/sarchlab/p8sim/timing/core"
	"github.com/sarchlab/p8sim/timing/latency"
	"github.com/sarchlab/p8sim/timing/pipeline"
)

// Exit codes.
const (
	exitOK     = 0
	exitFault  = 1
	exitUsage  = 2
	exitNoExit = 3
)

type options struct {
	timing           bool
	configPath       string
	writeConfig      string
	verbose          bool
	logLevel         string
	dump             bool
	color            bool
	entry            uint
	maxCycles        uint64
	predictorEntries int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	opts := &options{}

	fs := flag.NewFlagSet("p8sim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.timing, "timing", false, "Enable timing simulation mode")
	fs.StringVar(&opts.configPath, "config", "", "Path to timing configuration JSON file")
	fs.StringVar(&opts.writeConfig, "write-config", "", "Write the default timing configuration to a file and exit")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output (info logging)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVar(&opts.dump, "dump", false, "Pretty-print the final machine state")
	fs.BoolVar(&opts.color, "color", false, "Colorize the state dump")
	fs.UintVar(&opts.entry, "entry", 0, "Start address")
	fs.Uint64Var(&opts.maxCycles, "max-cycles", 10_000_000, "Cycle or instruction limit, 0 for none")
	fs.IntVar(&opts.predictorEntries, "predictor-entries",
		pipeline.DefaultBranchPredictorConfig().Entries, "Branch predictor capacity")

	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: p8sim [options] <program.hex|program.bin>\n")
		_, _ = fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	return opts, fs.Args(), nil
}

func newLogger(opts *options, stderr io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(logrus.WarnLevel)

	if opts.verbose {
		logger.SetLevel(logrus.InfoLevel)
	}

	if opts.logLevel != "" {
		level, err := logrus.ParseLevel(opts.logLevel)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(level)
	}

	return logger, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, rest, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	logger, err := newLogger(opts, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if opts.writeConfig != "" {
		if err := latency.DefaultTimingConfig().SaveConfig(opts.writeConfig); err != nil {
			logger.WithError(err).Error("failed to write timing config")
			return exitFault
		}
		return exitOK
	}

	if len(rest) < 1 {
		_, _ = fmt.Fprintf(stderr, "Usage: p8sim [options] <program.hex|program.bin>\n")
		return exitUsage
	}

	programPath := rest[0]

	prog, err := loader.Load(programPath)
	if err != nil {
		logger.WithError(err).Error("failed to load program")
		return exitFault
	}

	logger.WithFields(logrus.Fields{
		"program": programPath,
		"words":   prog.Length,
		"entry":   fmt.Sprintf("0x%03X", opts.entry),
	}).Info("loaded")

	timingConfig := latency.DefaultTimingConfig()
	if opts.configPath != "" {
		timingConfig, err = latency.LoadConfig(opts.configPath)
		if err != nil {
			logger.WithError(err).Error("failed to load timing config")
			return exitFault
		}
	}
	if err := timingConfig.Validate(); err != nil {
		logger.WithError(err).Error("invalid timing config")
		return exitFault
	}

	sim, err := newSimulation(prog, timingConfig)
	if err != nil {
		logger.WithError(err).Error("failed to flash program")
		return exitFault
	}

	var exited bool
	if opts.timing {
		exited, err = sim.runTiming(opts, logger, stdout)
	} else {
		exited, err = sim.runEmulation(opts, stdout)
	}

	if opts.dump {
		sim.dump(stdout, opts.color)
	}

	if err != nil {
		logger.WithError(err).Error("simulation stopped")
		return exitFault
	}
	if !exited {
		return exitNoExit
	}
	return exitOK
}

type simulation struct {
	machine *emu.Machine
	imem    *cache.InstructionMemory
	data    *cache.DataMemory
	timing  *latency.TimingConfig
	pc      uint16
}

func newSimulation(prog *loader.Program, timing *latency.TimingConfig) (*simulation, error) {
	icfg := cache.DefaultInstructionConfig()
	dcfg := cache.DefaultDataConfig()
	icfg.SwapLatency = timing.PageSwapLatency
	dcfg.SwapLatency = timing.PageSwapLatency

	s := &simulation{
		machine: emu.NewMachine(),
		imem:    cache.NewInstructionMemory(icfg),
		data:    cache.NewDataMemory(dcfg),
		timing:  timing,
	}

	if err := prog.Flash(s.imem); err != nil {
		return nil, err
	}

	return s, nil
}

// runEmulation runs the program in functional emulation mode.
func (s *simulation) runEmulation(opts *options, stdout io.Writer) (bool, error) {
	emulator := emu.NewEmulator(s.imem, s.data,
		emu.WithMachine(s.machine),
		emu.WithMaxInstructions(opts.maxCycles),
	)
	emulator.SetPC(uint16(opts.entry))

	err := emulator.Run()
	s.pc = emulator.PC()

	_, _ = fmt.Fprintf(stdout, "Instructions executed: %d\n", emulator.InstructionCount())
	_, _ = fmt.Fprintf(stdout, "Final PC: 0x%03X\n", s.pc)

	return emulator.Exited(), err
}

// runTiming runs the program in timing simulation mode.
func (s *simulation) runTiming(opts *options, logger logrus.FieldLogger, stdout io.Writer) (bool, error) {
	c := core.NewCore(s.machine, s.imem, s.data,
		pipeline.WithLatencyTable(latency.NewTableWithConfig(s.timing)),
		pipeline.WithBranchPredictor(pipeline.BranchPredictorConfig{
			Entries: opts.predictorEntries,
		}),
		pipeline.WithLogger(logger),
		pipeline.WithMaxCycles(opts.maxCycles),
	)
	c.SetPC(uint16(opts.entry))

	err := c.Run()

	snap := c.Snapshot()
	s.pc = snap.PC

	s.printTimingReport(stdout, c.PipelineStats())

	return snap.Exited, err
}

func percent(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return 100.0 * float64(part) / float64(total)
}

func (s *simulation) printTimingReport(w io.Writer, stats pipeline.Statistics) {
	istats := s.imem.Stats()
	dstats := s.data.Stats()

	_, _ = fmt.Fprintf(w, "Total Instructions: %d\n", stats.Instructions)
	_, _ = fmt.Fprintf(w, "Total Cycles: %d\n", stats.Cycles)
	_, _ = fmt.Fprintf(w, "CPI: %.2f\n", stats.CPI())
	_, _ = fmt.Fprintf(w, "Final PC: 0x%03X\n", s.pc)
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Breakdown:\n")
	_, _ = fmt.Fprintf(w, "  Retired:             %4d cycles (%5.1f%%)\n",
		stats.Instructions, percent(stats.Instructions, stats.Cycles))
	_, _ = fmt.Fprintf(w, "  Data stalls:         %4d cycles (%5.1f%%)\n",
		stats.Stalls, percent(stats.Stalls, stats.Cycles))
	_, _ = fmt.Fprintf(w, "  Flushed slots:       %4d\n", stats.FlushedInstructions)
	_, _ = fmt.Fprintf(w, "  Unmodeled execute:   %4d cycles\n", stats.UnmodeledExecCycles)
	_, _ = fmt.Fprintf(w, "  Page swap latency:   %4d cycles\n", istats.SwapCycles+dstats.SwapCycles)
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Pipeline Events:\n")
	_, _ = fmt.Fprintf(w, "  Data hazards:    %d\n", stats.DataHazards)
	_, _ = fmt.Fprintf(w, "  Control hazards: %d\n", stats.ControlHazards)
	_, _ = fmt.Fprintf(w, "  Flushes:         %d\n", stats.Flushes)
	_, _ = fmt.Fprintf(w, "  Multi-cycle ops: %d\n", stats.MultiCycleOps)
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Branch Predictor:\n")
	_, _ = fmt.Fprintf(w, "  Predictions:    %d\n", stats.Branch.Predictions)
	_, _ = fmt.Fprintf(w, "  Mispredictions: %d\n", stats.Branch.Mispredictions)
	_, _ = fmt.Fprintf(w, "  Accuracy:       %.1f%%\n", stats.Branch.Accuracy())
}

type stateDump struct {
	PC    string
	State emu.State
	Data  []byte
}

func (s *simulation) dump(w io.Writer, color bool) {
	printer := pp.New()
	printer.SetOutput(w)
	printer.SetColoringEnabled(color)

	data, err := s.data.Bytes()
	if err != nil {
		data = nil
	}

	_, _ = printer.Println(stateDump{
		PC:    fmt.Sprintf("0x%03X", s.pc),
		State: s.machine.State(),
		Data:  data,
	})
}
