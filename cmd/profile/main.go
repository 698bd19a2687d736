// Package main provides a profiling wrapper for p8sim to identify
// simulator performance bottlenecks.
//
// The program is re-run until the duration elapses so that short P8
// programs still produce a useful CPU profile.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/p8sim/benchmarks"
	"github.com/sarchlab/p8sim/emu"
	"github.com/sarchlab/p8sim/loader"
	"github.com/sarchlab/p8sim/timing/cache"
	"github.com/sarchlab/p8sim/timing/pipeline"
)

var (
	timing      = flag.Bool("timing", false, "Enable timing simulation mode")
	bench       = flag.String("bench", "", "Profile a built-in microbenchmark instead of a program file")
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 5*time.Second, "how long to keep re-running the program")
	instruction = flag.Uint64("max-instr", 1000000, "max instructions or cycles per run (0 = unlimited)")
)

var log = logrus.New()

func main() {
	flag.Parse()

	words, name, err := program()
	if err != nil {
		log.WithError(err).Fatal("failed to load program")
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.WithError(err).Fatal("failed to create CPU profile")
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			log.WithError(err).Fatal("failed to start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	fmt.Printf("Profiling: %s (timing=%v)\n", name, *timing)

	var (
		runs       int
		instrCount uint64
	)

	start := time.Now()
	for time.Since(start) < *duration {
		n, err := runOnce(words)
		if err != nil {
			log.WithError(err).Error("run stopped")
			break
		}
		instrCount += n
		runs++
	}
	elapsed := time.Since(start)

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.WithError(err).Fatal("failed to create memory profile")
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			log.WithError(err).Error("failed to write memory profile")
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Runs: %d\n", runs)
	fmt.Printf("Instructions executed: %d\n", instrCount)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if instrCount > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}
}

func program() ([]uint16, string, error) {
	if *bench != "" {
		for _, b := range benchmarks.GetMicrobenchmarks() {
			if b.Name == *bench {
				image, err := loader.Pad(b.Program, loader.ImageSize)
				return image, b.Name, err
			}
		}
		return nil, "", fmt.Errorf("unknown benchmark %q", *bench)
	}

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.hex|program.bin>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	prog, err := loader.Load(flag.Arg(0))
	if err != nil {
		return nil, "", err
	}
	return prog.Words, flag.Arg(0), nil
}

// runOnce runs the image from reset and returns the retired instruction
// count.
func runOnce(words []uint16) (uint64, error) {
	imem := cache.NewInstructionMemory(cache.DefaultInstructionConfig())
	if err := imem.Flash(words); err != nil {
		return 0, err
	}
	data := cache.NewDataMemory(cache.DefaultDataConfig())

	if *timing {
		pipe := pipeline.NewPipeline(emu.NewMachine(), imem, data,
			pipeline.WithMaxCycles(*instruction))
		err := pipe.Run()
		return pipe.Stats().Instructions, err
	}

	emulator := emu.NewEmulator(imem, data, emu.WithMaxInstructions(*instruction))
	err := emulator.Run()
	return emulator.InstructionCount(), err
}
