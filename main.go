// Package main provides the entry point for p8sim.
// p8sim is a cycle-level simulator for the P8 8-bit CPU built on Akita.
//
// For the full CLI, use: go run ./cmd/p8sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("p8sim - P8 CPU Simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: p8sim [options] <program.hex|program.bin>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -timing    Enable timing simulation mode")
	fmt.Println("  -config    Path to timing configuration JSON file")
	fmt.Println("  -dump      Pretty-print the final machine state")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/p8sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/p8sim' instead.")
	}
}
