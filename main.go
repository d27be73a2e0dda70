// Package main provides the entry point for mipsim.
// mipsim is a cycle-accurate five-stage MIPS32 pipeline simulator.
//
// For the full CLI, use: go run ./cmd/mipsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("mipsim - MIPS32 five-stage pipeline simulator")
	fmt.Println("")
	fmt.Println("Usage: mipsim [options] <program.hex>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -forward   Enable the bypass (forwarding) network (default true)")
	fmt.Println("  -config    Path to simulator configuration JSON file")
	fmt.Println("  -batch     Run to completion without the interactive shell")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/mipsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/mipsim' instead.")
	}
}
