// Package pipeline provides the five-stage MIPS32 pipeline model.
//
// The pipeline implements the classic 5-stage design:
//   - Fetch (IF): Read instruction from memory
//   - Decode (ID): Decode instruction, read registers, detect hazards
//   - Execute (EX): ALU operations, address calculation, branch resolution
//   - Memory (MEM): Load/Store memory access
//   - Writeback (WB): Write results to the register file
//
// Features:
//   - Pipeline latches between stages (IF/ID, ID/EX, EX/MEM, MEM/WB)
//   - RAW hazard detection at two distances, with an optional bypass
//     network that reduces stalls to the single unavoidable load-use case
//   - Pipeline flushing for taken branches and jumps (no delay slots)
//   - Double-buffered architectural state with a half-cycle register file
//     (WB's write is visible to the same cycle's decode)
package pipeline

import (
	"github.com/sarchlab/mipsim/emu"
)

// Pipeline is a single-issue in-order 5-stage MIPS32 pipeline.
type Pipeline struct {
	// Pipeline stages.
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	// Pipeline latches. Single-copy; see registers.go.
	ifid  IFIDLatch
	idex  IDEXLatch
	exmem EXMEMLatch
	memwb MEMWBLatch

	// Hazard detection unit.
	hazards *HazardUnit

	// Architectural state, double-buffered. Stages read current and
	// write next; next commits into current at the end of every cycle.
	current emu.State
	next    emu.State

	memory *emu.Memory

	// Statistics.
	cycleCount       uint64
	instructionCount uint64
	stallCount       uint64
	branchCount      uint64
	flushCount       uint64

	// Execution state. flushPending is raised by EX when a control
	// transfer is taken and consumed by the driver at end of cycle.
	// noFetch is raised by SYSCALL so the pipeline drains instead of
	// fetching or decoding past the halt.
	flushPending bool
	noFetch      bool
	halted       bool
}

// Option is a functional option for configuring the Pipeline.
type Option func(*Pipeline)

// WithForwarding enables or disables the bypass network. Forwarding is
// enabled by default.
func WithForwarding(on bool) Option {
	return func(p *Pipeline) {
		p.hazards.SetForwarding(on)
	}
}

// NewPipeline creates a new 5-stage pipeline over the given memory, with
// the PC at the text base.
func NewPipeline(memory *emu.Memory, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetchStage:     NewFetchStage(memory),
		decodeStage:    NewDecodeStage(),
		executeStage:   NewExecuteStage(),
		memoryStage:    NewMemoryStage(memory),
		writebackStage: NewWritebackStage(),
		hazards:        NewHazardUnit(true),
		memory:         memory,
	}
	p.SetPC(emu.TextBase)

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// SetPC sets the program counter in both state snapshots.
func (p *Pipeline) SetPC(pc uint32) {
	p.current.PC = pc
	p.next.PC = pc
}

// PC returns the current program counter.
func (p *Pipeline) PC() uint32 {
	return p.current.PC
}

// State returns the current architectural state snapshot.
func (p *Pipeline) State() *emu.State {
	return &p.current
}

// SetReg pokes a general-purpose register in both snapshots. Meant for
// operator use between runs.
func (p *Pipeline) SetReg(r uint8, v uint32) {
	p.current.SetReg(r, v)
	p.next.SetReg(r, v)
}

// SetHI pokes the HI register in both snapshots.
func (p *Pipeline) SetHI(v uint32) {
	p.current.HI = v
	p.next.HI = v
}

// SetLO pokes the LO register in both snapshots.
func (p *Pipeline) SetLO(v uint32) {
	p.current.LO = v
	p.next.LO = v
}

// Forwarding reports whether the bypass network is enabled.
func (p *Pipeline) Forwarding() bool {
	return p.hazards.Forwarding()
}

// SetForwarding toggles the bypass network between runs.
func (p *Pipeline) SetForwarding(on bool) {
	p.hazards.SetForwarding(on)
}

// Halted returns true once the SYSCALL that stopped the machine has
// retired.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Stats holds pipeline performance statistics.
type Stats struct {
	Cycles       uint64
	Instructions uint64
	Stalls       uint64
	Branches     uint64
	Flushes      uint64
	CPI          float64 // Cycles per instruction
}

// Stats returns pipeline performance statistics.
func (p *Pipeline) Stats() Stats {
	s := Stats{
		Cycles:       p.cycleCount,
		Instructions: p.instructionCount,
		Stalls:       p.stallCount,
		Branches:     p.branchCount,
		Flushes:      p.flushCount,
	}
	if s.Instructions > 0 {
		s.CPI = float64(s.Cycles) / float64(s.Instructions)
	}
	return s
}

// Tick advances the pipeline by one cycle.
//
// Stages run in reverse order. WB runs first so its register write is
// visible to this cycle's decode; every other stage then reads the latch
// its predecessor filled in the previous cycle and overwrites its own
// output latch. Decode consequently observes EX/MEM and MEM/WB exactly
// as the distance-1 and distance-2 producers left them this cycle, which
// is what the hazard distances are defined against.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}

	p.cycleCount++

	p.doWriteback()
	p.doMemory()
	p.doExecute()
	p.doDecode()
	p.doFetch()

	if p.flushPending {
		// Kill the speculatively fetched and decoded instructions.
		p.ifid.Clear()
		p.idex.Clear()
		p.flushCount++
		p.flushPending = false
	}

	p.current = p.next
}

// doWriteback retires the instruction in MEM/WB.
func (p *Pipeline) doWriteback() {
	if p.memwb.Bubble() {
		return
	}

	p.writebackStage.Writeback(&p.memwb, &p.current, &p.next)
	p.instructionCount++

	if p.memwb.Inst.IsSyscall() {
		p.halted = true
	}
}

// doMemory performs the memory stage.
func (p *Pipeline) doMemory() {
	if p.exmem.Bubble() {
		p.memwb.Clear()
		return
	}

	lmd := p.memoryStage.Access(&p.exmem)

	p.memwb = MEMWBLatch{
		IR:        p.exmem.IR,
		Inst:      p.exmem.Inst,
		ALUOutput: p.exmem.ALUOutput,
		LMD:       lmd,
		RegWrite:  p.exmem.RegWrite,
	}
}

// doExecute performs the execute stage and resolves control transfers.
func (p *Pipeline) doExecute() {
	if p.idex.Bubble() {
		p.exmem.Clear()
		return
	}

	res := p.executeStage.Execute(&p.idex, &p.current, &p.next)

	p.exmem = EXMEMLatch{
		IR:        p.idex.IR,
		Inst:      p.idex.Inst,
		A:         p.idex.A,
		B:         p.idex.B,
		ALUOutput: res.ALUOutput,
		Load:      res.Load,
		Store:     res.Store,
		RegWrite:  res.RegWrite,
	}

	if res.Syscall {
		p.noFetch = true
	}

	if res.BranchTaken {
		p.branchCount++
		p.flushPending = true
		p.next.PC = res.BranchTarget
	}
}

// doDecode performs the decode stage with hazard control.
func (p *Pipeline) doDecode() {
	if p.flushPending {
		// The instruction in IF/ID is on the wrong path; any stall it
		// would schedule must die with it.
		p.hazards.Reset()
		p.idex.Clear()
		return
	}

	if p.noFetch {
		// Draining after SYSCALL: the word fetched behind it never issues.
		p.idex.Clear()
		return
	}

	p.hazards.BeginCycle()

	if p.ifid.Bubble() {
		p.idex.Clear()
		return
	}

	if p.hazards.Stalled() {
		p.stallCount++
		p.idex.Clear()
		return
	}

	idex := p.decodeStage.Decode(&p.ifid, &p.current)

	if p.hazards.Forwarding() {
		a, b, loadUse := p.hazards.ForwardOperands(idex.Inst, idex.A, idex.B, &p.exmem, &p.memwb)
		if loadUse {
			p.stallCount++
			p.idex.Clear()
			return
		}
		idex.A, idex.B = a, b
	} else if p.hazards.DetectRAW(idex.Inst, &p.exmem, &p.memwb) {
		p.stallCount++
		p.idex.Clear()
		return
	}

	p.idex = idex
}

// doFetch performs the fetch stage.
func (p *Pipeline) doFetch() {
	if p.flushPending || p.noFetch {
		// Squashed, or draining after SYSCALL. On a flush EX already
		// redirected next.PC; leave it alone.
		p.ifid.Clear()
		return
	}

	if p.hazards.Stalled() {
		// Hold IF/ID and the PC so the stalled instruction re-decodes.
		return
	}

	p.ifid = IFIDLatch{
		IR: p.fetchStage.Fetch(p.current.PC),
		PC: p.current.PC,
	}
	p.next.PC = p.current.PC + 4
}

// Run executes the pipeline until it halts. Returns the cycle count.
func (p *Pipeline) Run() uint64 {
	for !p.halted {
		p.Tick()
	}
	return p.cycleCount
}

// RunCycles executes at most n cycles. Returns true if still running.
func (p *Pipeline) RunCycles(n uint64) bool {
	for i := uint64(0); i < n && !p.halted; i++ {
		p.Tick()
	}
	return !p.halted
}

// Reset clears the latches, counters, hazard state, and both state
// snapshots, and puts the PC at pc. The forwarding setting is kept.
func (p *Pipeline) Reset(pc uint32) {
	p.current.Reset()
	p.next.Reset()
	p.SetPC(pc)

	p.ifid.Clear()
	p.idex.Clear()
	p.exmem.Clear()
	p.memwb.Clear()
	p.hazards.Reset()

	p.flushPending = false
	p.noFetch = false
	p.halted = false

	p.cycleCount = 0
	p.instructionCount = 0
	p.stallCount = 0
	p.branchCount = 0
	p.flushCount = 0
}

// IFID returns the IF/ID latch for inspection.
func (p *Pipeline) IFID() IFIDLatch {
	return p.ifid
}

// IDEX returns the ID/EX latch for inspection.
func (p *Pipeline) IDEX() IDEXLatch {
	return p.idex
}

// EXMEM returns the EX/MEM latch for inspection.
func (p *Pipeline) EXMEM() EXMEMLatch {
	return p.exmem
}

// MEMWB returns the MEM/WB latch for inspection.
func (p *Pipeline) MEMWB() MEMWBLatch {
	return p.memwb
}
