// Package main provides the entry point for mipsim.
// mipsim is a cycle-accurate five-stage MIPS32 pipeline simulator.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/mipsim/config"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/shell"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

var (
	forward    = flag.Bool("forward", true, "Enable the bypass (forwarding) network")
	configPath = flag.String("config", "", "Path to simulator configuration JSON file")
	batch      = flag.Bool("batch", false, "Run to completion without the interactive shell")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: mipsim [options] <program.hex>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	// An explicit -forward overrides the config file's forwarding setting.
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "forward" {
			cfg.Forwarding = *forward
		}
	})

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	memory := emu.NewEmptyMemory()
	for _, r := range cfg.Regions {
		memory.AddRegion(r.Name, r.Begin, r.End)
	}
	prog.WriteTo(memory, cfg.TextBase)

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("%d words written into memory at 0x%08x\n", prog.Size(), cfg.TextBase)
	}

	pipe := pipeline.NewPipeline(
		memory,
		pipeline.WithForwarding(cfg.Forwarding),
	)
	pipe.SetPC(cfg.TextBase)

	if *batch {
		runBatch(pipe, programPath)
		return
	}

	sh := shell.New(pipe, memory, prog, cfg.TextBase, os.Stdin, os.Stdout)
	sh.Run()
}

// runBatch runs the program to completion and prints a statistics report.
func runBatch(pipe *pipeline.Pipeline, programPath string) {
	pipe.Run()
	stats := pipe.Stats()

	fmt.Printf("\n")
	fmt.Printf("Program: %s\n", programPath)
	fmt.Printf("Total Instructions: %d\n", stats.Instructions)
	fmt.Printf("Total Cycles: %d\n", stats.Cycles)
	fmt.Printf("CPI: %.2f\n", stats.CPI)
	fmt.Printf("\n")
	fmt.Printf("Pipeline Events:\n")
	fmt.Printf("  Stalls:  %d\n", stats.Stalls)
	fmt.Printf("  Branches: %d\n", stats.Branches)
	fmt.Printf("  Flushes: %d\n", stats.Flushes)

	if *verbose {
		state := pipe.State()
		fmt.Printf("\nFinal PC: 0x%08x\n", state.PC)
		for i := 0; i < emu.NumRegs; i++ {
			fmt.Printf("[R%d]\t: 0x%08x\n", i, state.Reg(uint8(i)))
		}
		fmt.Printf("[HI]\t: 0x%08x\n", state.HI)
		fmt.Printf("[LO]\t: 0x%08x\n", state.LO)
	}
}
