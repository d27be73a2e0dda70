// Package shell provides the interactive operator interface of the
// simulator: running, dumping, poking, disassembly, and the pipeline
// view.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

const prompt = "MIPSIM:> "

// Shell is the interactive command loop. It owns nothing: the pipeline,
// memory, and loaded program are handed in and mutated through their
// public interfaces.
type Shell struct {
	pipe     *pipeline.Pipeline
	memory   *emu.Memory
	program  *loader.Program
	textBase uint32
	decoder  *insts.Decoder

	in  io.Reader
	out io.Writer
}

// New creates a shell over the given pipeline, memory, and program.
func New(pipe *pipeline.Pipeline, memory *emu.Memory, program *loader.Program,
	textBase uint32, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		pipe:     pipe,
		memory:   memory,
		program:  program,
		textBase: textBase,
		decoder:  insts.NewDecoder(),
		in:       in,
		out:      out,
	}
}

// Run reads and executes commands until quit or EOF.
func (s *Shell) Run() {
	s.help()
	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, prompt)
		if !scanner.Scan() {
			return
		}
		if !s.execute(scanner.Text()) {
			return
		}
	}
}

// execute runs one command line; returns false on quit.
func (s *Shell) execute(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	switch strings.ToLower(fields[0]) {
	case "sim":
		s.runAll()
	case "run":
		n, err := parseNum(fields, 1)
		if err != nil {
			s.complain()
			break
		}
		s.run(n)
	case "rdump":
		s.rdump()
	case "mdump":
		start, err1 := parseNum(fields, 1)
		stop, err2 := parseNum(fields, 2)
		if err1 != nil || err2 != nil {
			s.complain()
			break
		}
		s.mdump(uint32(start), uint32(stop))
	case "reset":
		s.reset()
	case "input":
		reg, err1 := parseNum(fields, 1)
		val, err2 := parseNum(fields, 2)
		if err1 != nil || err2 != nil || reg >= emu.NumRegs {
			s.complain()
			break
		}
		s.pipe.SetReg(uint8(reg), uint32(val))
	case "high":
		val, err := parseNum(fields, 1)
		if err != nil {
			s.complain()
			break
		}
		s.pipe.SetHI(uint32(val))
	case "low":
		val, err := parseNum(fields, 1)
		if err != nil {
			s.complain()
			break
		}
		s.pipe.SetLO(uint32(val))
	case "print":
		s.printProgram()
	case "show":
		s.showPipeline()
	case "forward":
		if len(fields) < 2 {
			s.complain()
			break
		}
		switch strings.ToLower(fields[1]) {
		case "on":
			s.pipe.SetForwarding(true)
		case "off":
			s.pipe.SetForwarding(false)
		default:
			s.complain()
		}
	case "?", "help":
		s.help()
	case "quit", "q":
		fmt.Fprintln(s.out, "Exiting MIPSIM... Good bye.")
		return false
	default:
		fmt.Fprintln(s.out, "Invalid Command.")
	}

	return true
}

// parseNum accepts decimal or 0x-prefixed hex.
func parseNum(fields []string, i int) (uint64, error) {
	if i >= len(fields) {
		return 0, fmt.Errorf("missing argument")
	}
	return strconv.ParseUint(fields[i], 0, 32)
}

func (s *Shell) complain() {
	fmt.Fprintln(s.out, "Invalid Command.")
}

func (s *Shell) help() {
	fmt.Fprintln(s.out, "------------------------------------------------------------------")
	fmt.Fprintln(s.out, "sim\t-- simulate program to completion")
	fmt.Fprintln(s.out, "run <n>\t-- simulate program for <n> cycles")
	fmt.Fprintln(s.out, "rdump\t-- dump register values")
	fmt.Fprintln(s.out, "reset\t-- clear all registers/memory and re-load the program")
	fmt.Fprintln(s.out, "input <reg> <val>\t-- set GPR <reg> to <val>")
	fmt.Fprintln(s.out, "mdump <start> <stop>\t-- dump memory from <start> to <stop> address")
	fmt.Fprintln(s.out, "high <val>\t-- set the HI register to <val>")
	fmt.Fprintln(s.out, "low <val>\t-- set the LO register to <val>")
	fmt.Fprintln(s.out, "print\t-- print the program loaded into memory")
	fmt.Fprintln(s.out, "show\t-- print the current content of the pipeline latches")
	fmt.Fprintln(s.out, "forward <on|off>\t-- toggle the bypass network")
	fmt.Fprintln(s.out, "?\t-- display this menu")
	fmt.Fprintln(s.out, "quit\t-- exit the simulator")
	fmt.Fprintln(s.out, "------------------------------------------------------------------")
}

func (s *Shell) runAll() {
	if s.pipe.Halted() {
		fmt.Fprintln(s.out, "Simulation Stopped.")
		return
	}
	fmt.Fprintln(s.out, "Simulation Started...")
	s.pipe.Run()
	fmt.Fprintln(s.out, "Simulation Finished.")
}

func (s *Shell) run(n uint64) {
	if s.pipe.Halted() {
		fmt.Fprintln(s.out, "Simulation Stopped.")
		return
	}
	fmt.Fprintf(s.out, "Running simulator for %d cycles...\n", n)
	if !s.pipe.RunCycles(n) {
		fmt.Fprintln(s.out, "Simulation Stopped.")
	}
}

func (s *Shell) reset() {
	s.memory.Reset()
	s.program.WriteTo(s.memory, s.textBase)
	s.pipe.Reset(s.textBase)
}

func (s *Shell) rdump() {
	state := s.pipe.State()
	stats := s.pipe.Stats()
	fmt.Fprintln(s.out, "-------------------------------------")
	fmt.Fprintln(s.out, "Dumping Register Content")
	fmt.Fprintln(s.out, "-------------------------------------")
	fmt.Fprintf(s.out, "# Instructions Executed\t: %d\n", stats.Instructions)
	fmt.Fprintf(s.out, "# Cycles Executed\t: %d\n", stats.Cycles)
	fmt.Fprintf(s.out, "PC\t: 0x%08x\n", state.PC)
	fmt.Fprintln(s.out, "-------------------------------------")
	fmt.Fprintln(s.out, "[Register]\t[Value]")
	fmt.Fprintln(s.out, "-------------------------------------")
	for i := 0; i < emu.NumRegs; i++ {
		fmt.Fprintf(s.out, "[R%d]\t: 0x%08x\n", i, state.Reg(uint8(i)))
	}
	fmt.Fprintln(s.out, "-------------------------------------")
	fmt.Fprintf(s.out, "[HI]\t: 0x%08x\n", state.HI)
	fmt.Fprintf(s.out, "[LO]\t: 0x%08x\n", state.LO)
	fmt.Fprintln(s.out, "-------------------------------------")
}

func (s *Shell) mdump(start, stop uint32) {
	fmt.Fprintln(s.out, "-------------------------------------------------------------")
	fmt.Fprintf(s.out, "Memory content [0x%08x..0x%08x] :\n", start, stop)
	fmt.Fprintln(s.out, "-------------------------------------------------------------")
	fmt.Fprintln(s.out, "\t[Address in Hex (Dec) ]\t[Value]")
	for addr := start; addr <= stop; addr += 4 {
		fmt.Fprintf(s.out, "\t0x%08x (%d) :\t0x%08x\n", addr, addr, s.memory.Read32(addr))
	}
}

func (s *Shell) printProgram() {
	for i := 0; i < s.program.Size(); i++ {
		addr := s.textBase + uint32(i)*4
		inst := s.decoder.Decode(s.memory.Read32(addr))
		fmt.Fprintf(s.out, "0x%08x\t%s\n", addr, inst.Disassemble(addr))
	}
}

func (s *Shell) disassembleAt(addr uint32) string {
	inst := s.decoder.Decode(s.memory.Read32(addr))
	return inst.Disassemble(addr)
}

func (s *Shell) showPipeline() {
	ifid := s.pipe.IFID()
	idex := s.pipe.IDEX()
	exmem := s.pipe.EXMEM()
	memwb := s.pipe.MEMWB()

	fmt.Fprintln(s.out, "---Pipeline Contents---")
	fmt.Fprintf(s.out, "PC: 0x%08x\n", s.pipe.PC())

	fmt.Fprintf(s.out, "IF/ID.IR 0x%08x\n", ifid.IR)
	fmt.Fprintf(s.out, "IF/ID.PC 0x%08x\n", ifid.PC)
	if !ifid.Bubble() {
		fmt.Fprintf(s.out, "\t%s\n", s.disassembleAt(ifid.PC))
	}

	fmt.Fprintf(s.out, "ID/EX.IR 0x%08x\n", idex.IR)
	fmt.Fprintf(s.out, "ID/EX.A 0x%08x\n", idex.A)
	fmt.Fprintf(s.out, "ID/EX.B 0x%08x\n", idex.B)
	fmt.Fprintf(s.out, "ID/EX.imm 0x%08x\n", idex.Imm)

	fmt.Fprintf(s.out, "EX/MEM.IR 0x%08x\n", exmem.IR)
	fmt.Fprintf(s.out, "EX/MEM.A 0x%08x\n", exmem.A)
	fmt.Fprintf(s.out, "EX/MEM.B 0x%08x\n", exmem.B)
	fmt.Fprintf(s.out, "EX/MEM.ALUOutput 0x%08x\n", exmem.ALUOutput)

	fmt.Fprintf(s.out, "MEM/WB.IR 0x%08x\n", memwb.IR)
	fmt.Fprintf(s.out, "MEM/WB.ALUOutput 0x%08x\n", memwb.ALUOutput)
	fmt.Fprintf(s.out, "MEM/WB.LMD 0x%08x\n", memwb.LMD)
}
