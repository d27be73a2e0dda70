// Package pipeline provides the five-stage MIPS32 pipeline model.
package pipeline

import (
	"github.com/sarchlab/mipsim/insts"
)

// The latches are single-copy: each one is written directly by its
// producing stage and read by the following stage. Because the driver
// evaluates stages in reverse order, a stage always reads the value its
// predecessor produced in the previous cycle, while the decode stage
// observes EX/MEM and MEM/WB freshly written by the in-flight producers
// it must detect hazards against.
//
// An IR of 0 is the bubble sentinel: a bubble latch carries no work and
// must never mutate architectural state.

// IFIDLatch holds state between the Fetch and Decode stages.
type IFIDLatch struct {
	// IR is the fetched instruction word. 0 denotes a bubble.
	IR uint32

	// PC is the address the instruction was fetched from.
	PC uint32
}

// IDEXLatch holds state between the Decode and Execute stages.
type IDEXLatch struct {
	// IR is the instruction word. 0 denotes a bubble.
	IR uint32

	// PC is the address of this instruction.
	PC uint32

	// Inst is the decoded instruction, nil for bubbles.
	Inst *insts.Instruction

	// A is the value read (or forwarded) for rs.
	A uint32

	// B is the value read (or forwarded) for rt.
	B uint32

	// Imm is the sign-extended 16-bit immediate.
	Imm uint32
}

// EXMEMLatch holds state between the Execute and Memory stages.
type EXMEMLatch struct {
	// IR is the instruction word. 0 denotes a bubble.
	IR uint32

	// Inst is the decoded instruction, nil for bubbles.
	Inst *insts.Instruction

	// A and B carry the operand values forward (B is the store datum).
	A uint32
	B uint32

	// ALUOutput is the ALU result or the computed memory address.
	ALUOutput uint32

	// Load and Store flag the memory operation; at most one is set.
	Load  bool
	Store bool

	// RegWrite is true iff the instruction will write a GPR in WB.
	RegWrite bool
}

// MEMWBLatch holds state between the Memory and Writeback stages.
type MEMWBLatch struct {
	// IR is the instruction word. 0 denotes a bubble.
	IR uint32

	// Inst is the decoded instruction, nil for bubbles.
	Inst *insts.Instruction

	// ALUOutput is the ALU result for non-load instructions.
	ALUOutput uint32

	// LMD is the raw loaded word; sub-word extension happens in WB.
	LMD uint32

	// RegWrite is true iff the instruction will write a GPR in WB.
	RegWrite bool
}

// Bubble reports whether the latch holds the bubble sentinel.
func (l IFIDLatch) Bubble() bool { return l.IR == 0 }

// Bubble reports whether the latch holds the bubble sentinel.
func (l IDEXLatch) Bubble() bool { return l.IR == 0 }

// Bubble reports whether the latch holds the bubble sentinel.
func (l EXMEMLatch) Bubble() bool { return l.IR == 0 }

// Bubble reports whether the latch holds the bubble sentinel.
func (l MEMWBLatch) Bubble() bool { return l.IR == 0 }

// Clear resets the latch to a bubble.
func (l *IFIDLatch) Clear() { *l = IFIDLatch{} }

// Clear resets the latch to a bubble.
func (l *IDEXLatch) Clear() { *l = IDEXLatch{} }

// Clear resets the latch to a bubble.
func (l *EXMEMLatch) Clear() { *l = EXMEMLatch{} }

// Clear resets the latch to a bubble.
func (l *MEMWBLatch) Clear() { *l = MEMWBLatch{} }
