// Package pipeline provides the five-stage MIPS32 pipeline model.
package pipeline

import (
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// FetchStage reads instruction words from memory.
type FetchStage struct {
	memory *emu.Memory
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(memory *emu.Memory) *FetchStage {
	return &FetchStage{memory: memory}
}

// Fetch reads the instruction word at pc.
func (s *FetchStage) Fetch(pc uint32) uint32 {
	return s.memory.Read32(pc)
}

// DecodeStage decodes instruction words and reads register operands.
type DecodeStage struct {
	decoder *insts.Decoder
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage() *DecodeStage {
	return &DecodeStage{decoder: insts.NewDecoder()}
}

// Decode decodes the IF/ID contents and reads the register file. The
// register values reflect this cycle's writeback because WB runs before
// ID within a cycle (the half-cycle register file).
func (s *DecodeStage) Decode(ifid *IFIDLatch, state *emu.State) IDEXLatch {
	inst := s.decoder.Decode(ifid.IR)
	return IDEXLatch{
		IR:   ifid.IR,
		PC:   ifid.PC,
		Inst: inst,
		A:    state.Reg(inst.Rs),
		B:    state.Reg(inst.Rt),
		Imm:  inst.SignExtImm(),
	}
}

// ExecuteResult holds the outputs of the execute stage.
type ExecuteResult struct {
	// ALUOutput is the ALU result, computed address, or link value.
	ALUOutput uint32

	// Load and Store flag the memory operation for MEM.
	Load  bool
	Store bool

	// RegWrite is true iff the instruction writes a GPR in WB.
	RegWrite bool

	// BranchTaken and BranchTarget report a resolved control transfer.
	BranchTaken  bool
	BranchTarget uint32

	// Syscall is true for SYSCALL; the driver stops fetching and
	// decoding and lets the instructions already past decode drain.
	Syscall bool
}

// ExecuteStage performs ALU operations, address computation, and
// branch/jump resolution.
type ExecuteStage struct{}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{}
}

// Execute computes the instruction in ID/EX. HI/LO results are written
// into the next-state snapshot; their only reader is this stage itself,
// at least one commit later. cur supplies HI/LO source values.
func (s *ExecuteStage) Execute(idex *IDEXLatch, cur, next *emu.State) ExecuteResult {
	inst := idex.Inst
	res := ExecuteResult{RegWrite: inst.WritesReg()}
	a, b := idex.A, idex.B

	switch inst.Op {
	case insts.OpADD, insts.OpADDU:
		res.ALUOutput = a + b
	case insts.OpSUB, insts.OpSUBU:
		res.ALUOutput = a - b
	case insts.OpAND:
		res.ALUOutput = a & b
	case insts.OpOR:
		res.ALUOutput = a | b
	case insts.OpXOR:
		res.ALUOutput = a ^ b
	case insts.OpNOR:
		res.ALUOutput = ^(a | b)
	case insts.OpSLT:
		if int32(a) < int32(b) {
			res.ALUOutput = 1
		}
	case insts.OpSLL:
		res.ALUOutput = b << inst.Sa
	case insts.OpSRL:
		res.ALUOutput = b >> inst.Sa
	case insts.OpSRA:
		res.ALUOutput = uint32(int32(b) >> inst.Sa)

	case insts.OpMULT:
		p := int64(int32(a)) * int64(int32(b))
		next.HI = uint32(uint64(p) >> 32)
		next.LO = uint32(uint64(p))
	case insts.OpMULTU:
		p := uint64(a) * uint64(b)
		next.HI = uint32(p >> 32)
		next.LO = uint32(p)
	case insts.OpDIV:
		// Divide by zero leaves HI/LO untouched.
		if b != 0 {
			next.LO = uint32(int32(a) / int32(b))
			next.HI = uint32(int32(a) % int32(b))
		}
	case insts.OpDIVU:
		if b != 0 {
			next.LO = a / b
			next.HI = a % b
		}
	case insts.OpMFHI:
		res.ALUOutput = cur.HI
	case insts.OpMFLO:
		res.ALUOutput = cur.LO
	case insts.OpMTHI:
		next.HI = a
	case insts.OpMTLO:
		next.LO = a

	case insts.OpSyscall:
		res.Syscall = true

	case insts.OpADDI, insts.OpADDIU:
		res.ALUOutput = a + idex.Imm
	case insts.OpSLTI:
		if int32(a) < int32(idex.Imm) {
			res.ALUOutput = 1
		}
	case insts.OpANDI:
		res.ALUOutput = a & inst.ZeroExtImm()
	case insts.OpORI:
		res.ALUOutput = a | inst.ZeroExtImm()
	case insts.OpXORI:
		res.ALUOutput = a ^ inst.ZeroExtImm()
	case insts.OpLUI:
		res.ALUOutput = inst.ZeroExtImm() << 16

	case insts.OpLB, insts.OpLH, insts.OpLW:
		res.ALUOutput = a + idex.Imm
		res.Load = true
	case insts.OpSB, insts.OpSH, insts.OpSW:
		res.ALUOutput = a + idex.Imm
		res.Store = true

	case insts.OpBLTZ:
		res.branch(int32(a) < 0, branchTarget(idex.PC, idex.Imm))
	case insts.OpBGEZ:
		res.branch(int32(a) >= 0, branchTarget(idex.PC, idex.Imm))
	case insts.OpBEQ:
		res.branch(a == b, branchTarget(idex.PC, idex.Imm))
	case insts.OpBNE:
		res.branch(a != b, branchTarget(idex.PC, idex.Imm))
	case insts.OpBLEZ:
		res.branch(int32(a) <= 0, branchTarget(idex.PC, idex.Imm))
	case insts.OpBGTZ:
		res.branch(int32(a) > 0, branchTarget(idex.PC, idex.Imm))

	case insts.OpJ:
		res.branch(true, jumpTarget(idex.PC, inst.Target))
	case insts.OpJAL:
		res.branch(true, jumpTarget(idex.PC, inst.Target))
		res.ALUOutput = idex.PC + 4
	case insts.OpJR:
		res.branch(true, a)
	case insts.OpJALR:
		res.branch(true, a)
		res.ALUOutput = idex.PC + 4
	}

	return res
}

func (r *ExecuteResult) branch(taken bool, target uint32) {
	if taken {
		r.BranchTaken = true
		r.BranchTarget = target
	}
}

// branchTarget is PC-relative: the base is the address after the branch
// and the sign-extended immediate is a word offset.
func branchTarget(pc, imm uint32) uint32 {
	return pc + 4 + (imm << 2)
}

// jumpTarget keeps the high nibble of the jump's own address.
func jumpTarget(pc, target uint32) uint32 {
	return (pc & 0xF0000000) | (target << 2)
}

// MemoryStage performs loads and stores.
type MemoryStage struct {
	memory *emu.Memory
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(memory *emu.Memory) *MemoryStage {
	return &MemoryStage{memory: memory}
}

// Access performs the memory operation of the EX/MEM contents. Loads
// return the raw word at the computed address; sub-word extension is
// deferred to WB. Sub-word stores read-modify-write the low bits of the
// enclosing aligned word.
func (s *MemoryStage) Access(exmem *EXMEMLatch) (lmd uint32) {
	if exmem.Load {
		return s.memory.Read32(exmem.ALUOutput)
	}

	if exmem.Store {
		addr := exmem.ALUOutput
		switch exmem.Inst.Op {
		case insts.OpSW:
			s.memory.Write32(addr, exmem.B)
		case insts.OpSH:
			aligned := addr &^ 3
			word := s.memory.Read32(aligned)
			s.memory.Write32(aligned, word&^0xFFFF|exmem.B&0xFFFF)
		case insts.OpSB:
			aligned := addr &^ 3
			word := s.memory.Read32(aligned)
			s.memory.Write32(aligned, word&^0xFF|exmem.B&0xFF)
		}
	}

	return 0
}

// WritebackStage commits results to the register file.
type WritebackStage struct{}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage() *WritebackStage {
	return &WritebackStage{}
}

// Writeback writes the destination register in both state snapshots so
// the value is visible to this cycle's decode as well as to the next
// cycle (the half-cycle register file). Sub-word loads sign-extend here.
func (s *WritebackStage) Writeback(memwb *MEMWBLatch, cur, next *emu.State) {
	if !memwb.RegWrite {
		return
	}

	dest, ok := memwb.Inst.DestReg()
	if !ok {
		return
	}

	var value uint32
	switch memwb.Inst.Op {
	case insts.OpLB:
		value = uint32(int32(int8(memwb.LMD)))
	case insts.OpLH:
		value = uint32(int32(int16(memwb.LMD)))
	case insts.OpLW:
		value = memwb.LMD
	default:
		value = memwb.ALUOutput
	}

	cur.SetReg(dest, value)
	next.SetReg(dest, value)
}
