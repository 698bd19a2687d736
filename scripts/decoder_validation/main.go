// Validate the decoder over the whole 16-bit word space: every word must
// decode to the class in its top five bits, decoding must be
// deterministic, and the per-decode cost is reported.
package main

import (
	"fmt"
	"os"
	"reflect"
	"runtime"
	"time"

	"github.com/sarchlab/p8sim/insts"
)

const wordSpace = 1 << 16

func main() {
	decoder := insts.NewDecoder()

	var histogram [insts.NumClasses]int
	failures := 0

	for w := 0; w < wordSpace; w++ {
		word := uint16(w)

		first := decoder.Decode(word)
		second := decoder.Decode(word)

		if want := insts.Class(word >> 11); first.Class != want {
			fmt.Printf("word 0x%04X decoded as %s, want %s\n", word, first.Class, want)
			failures++
		}

		if !reflect.DeepEqual(first, second) {
			fmt.Printf("word 0x%04X decoded differently on repeat\n", word)
			failures++
		}

		histogram[first.Class]++
	}

	fmt.Printf("Decoder Validation Results:\n")
	fmt.Printf("===========================\n")
	for c := 0; c < insts.NumClasses; c++ {
		fmt.Printf("  %-4s %6d\n", insts.Class(c), histogram[c])
	}

	runtime.GC()
	var m1, m2 runtime.MemStats
	runtime.ReadMemStats(&m1)

	start := time.Now()
	for w := 0; w < wordSpace; w++ {
		decoder.Decode(uint16(w))
	}
	elapsed := time.Since(start)

	runtime.ReadMemStats(&m2)
	allocations := m2.Mallocs - m1.Mallocs

	fmt.Printf("\nTotal decode operations: %d\n", wordSpace)
	fmt.Printf("Time elapsed: %v\n", elapsed)
	fmt.Printf("Decodes per second: %.0f\n", float64(wordSpace)/elapsed.Seconds())
	fmt.Printf("Allocations per decode: %.3f\n", float64(allocations)/float64(wordSpace))

	if failures > 0 {
		fmt.Printf("\nFAILED: %d mismatches\n", failures)
		os.Exit(1)
	}
	fmt.Printf("\nOK: every word decodes deterministically to its class\n")
}
