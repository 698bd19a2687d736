// Command benchmark runs the p8sim timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv          Output results in CSV format (default: human-readable)
//	-json         Output results as a JSON report
//	-core         Run only the core benchmarks
//	-config       Path to a timing configuration JSON file
//	-export dir   Write each benchmark program as a .hex file and exit
//	-v            Log each benchmark as it completes
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/p8sim/benchmarks"
	"github.com/sarchlab/p8sim/loader"
	"github.com/sarchlab/p8sim/timing/latency"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results as a JSON report")
	coreOnly := flag.Bool("core", false, "Run only the core benchmarks")
	configPath := flag.String("config", "", "Path to timing configuration JSON file")
	exportDir := flag.String("export", "", "Write benchmark programs as .hex files to this directory")
	verbose := flag.Bool("v", false, "Log each benchmark as it completes")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)

	suite := benchmarks.GetMicrobenchmarks()
	if *coreOnly {
		suite = benchmarks.GetCoreBenchmarks()
	}

	if *exportDir != "" {
		if err := export(*exportDir, suite); err != nil {
			log.WithError(err).Fatal("failed to export benchmarks")
		}
		return
	}

	config := benchmarks.DefaultConfig()
	config.Output = os.Stdout
	config.Logger = log
	config.Verbose = *verbose

	if *configPath != "" {
		timing, err := latency.LoadConfig(*configPath)
		if err != nil {
			log.WithError(err).Fatal("failed to load timing config")
		}
		if err := timing.Validate(); err != nil {
			log.WithError(err).Fatal("invalid timing config")
		}
		config.Timing = timing
	}

	harness := benchmarks.NewHarness(config)
	harness.AddBenchmarks(suite)

	if !*csvOutput && !*jsonOutput {
		fmt.Println("P8 Timing Benchmark Harness")
		fmt.Println("===========================")
		fmt.Printf("Predictor entries: %d\n", config.PredictorEntries)
		fmt.Printf("Page swap latency: %d\n", config.Timing.PageSwapLatency)
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			log.WithError(err).Fatal("failed to write JSON report")
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)

		fmt.Println("=== Summary ===")
		fmt.Println("")
		fmt.Println("Expected characteristics:")
		fmt.Println("- arithmetic_sequential: no stalls, CPI near 1")
		fmt.Println("- dependency_chain: one stall per dependent pair")
		fmt.Println("- function_calls: a flush per call and return")
		fmt.Println("- loop_simulation: one mispredict at loop exit")
		fmt.Println("- complex_math: latency beyond one cycle is reported, not stalled")
	}

	for _, r := range results {
		if !r.Passed {
			os.Exit(1)
		}
	}
}

func export(dir string, suite []benchmarks.Benchmark) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for _, b := range suite {
		f, err := os.Create(filepath.Join(dir, b.Name+".hex"))
		if err != nil {
			return err
		}

		err = loader.WriteHex(f, b.Program)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", b.Name, err)
		}
	}

	return nil
}
