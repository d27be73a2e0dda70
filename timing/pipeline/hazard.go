// Package pipeline provides the five-stage MIPS32 pipeline model.
package pipeline

import (
	"github.com/sarchlab/mipsim/insts"
)

// HazardUnit detects RAW data hazards in the decode stage and decides
// between stalling and forwarding. It owns the stall counter: while the
// counter is positive, decode emits bubbles and fetch holds both IF/ID
// and the PC.
type HazardUnit struct {
	forwarding   bool
	stallCounter int
}

// NewHazardUnit creates a hazard unit with the given forwarding mode.
func NewHazardUnit(forwarding bool) *HazardUnit {
	return &HazardUnit{forwarding: forwarding}
}

// Forwarding reports whether the bypass network is enabled.
func (h *HazardUnit) Forwarding() bool {
	return h.forwarding
}

// SetForwarding toggles the bypass network. Meant to be used between
// runs, not mid-cycle.
func (h *HazardUnit) SetForwarding(on bool) {
	h.forwarding = on
}

// Stalled reports whether previously injected bubbles are still pending.
func (h *HazardUnit) Stalled() bool {
	return h.stallCounter > 0
}

// BeginCycle consumes one pending stall cycle. Decode calls it first
// thing every cycle.
func (h *HazardUnit) BeginCycle() {
	if h.stallCounter > 0 {
		h.stallCounter--
	}
}

// Reset clears any pending stall.
func (h *HazardUnit) Reset() {
	h.stallCounter = 0
}

// producerDest returns the destination register of an in-flight producer
// latch, or ok=false if the latch is a bubble or writes no GPR.
func producerDest(inst *insts.Instruction, bubble, regWrite bool) (uint8, bool) {
	if bubble || !regWrite || inst == nil {
		return 0, false
	}
	return destOf(inst)
}

func destOf(inst *insts.Instruction) (uint8, bool) {
	rd, ok := inst.DestReg()
	if !ok || rd == 0 {
		return 0, false
	}
	return rd, true
}

// DetectRAW implements the non-forwarding interlock. A distance-1 hazard
// (producer just executed, now in EX/MEM) costs two bubbles; a distance-2
// hazard (producer in MEM/WB, retiring next cycle) costs one. Returns
// true if a stall was scheduled; the caller then bubbles ID/EX.
func (h *HazardUnit) DetectRAW(inst *insts.Instruction, exmem *EXMEMLatch, memwb *MEMWBLatch) bool {
	rs, rt := inst.Rs, inst.Rt
	rtIsSrc := inst.ReadsRt()

	if rd, ok := producerDest(exmem.Inst, exmem.Bubble(), exmem.RegWrite); ok {
		if rd == rs || (rtIsSrc && rd == rt) {
			h.stallCounter = 2
		}
	}
	if rd, ok := producerDest(memwb.Inst, memwb.Bubble(), memwb.RegWrite); ok {
		if rd == rs || (rtIsSrc && rd == rt) {
			if h.stallCounter < 1 {
				h.stallCounter = 1
			}
		}
	}

	return h.stallCounter > 0
}

// ForwardOperands applies the bypass network to the register-file values
// a and b. EX/MEM wins over MEM/WB for each operand independently. If the
// EX/MEM producer is a load its ALUOutput is the address rather than the
// datum, so a one-cycle load-use stall is scheduled instead; the caller
// then bubbles ID/EX and the operand re-forwards from MEM/WB.LMD next
// cycle.
func (h *HazardUnit) ForwardOperands(inst *insts.Instruction, a, b uint32,
	exmem *EXMEMLatch, memwb *MEMWBLatch) (fwdA, fwdB uint32, loadUse bool) {
	fwdA, fwdB = a, b

	fwdA, lu := h.forwardOne(inst.Rs, fwdA, exmem, memwb)
	loadUse = loadUse || lu

	if inst.ReadsRt() {
		fwdB, lu = h.forwardOne(inst.Rt, fwdB, exmem, memwb)
		loadUse = loadUse || lu
	}

	if loadUse {
		h.stallCounter = 1
	}

	return fwdA, fwdB, loadUse
}

func (h *HazardUnit) forwardOne(src uint8, val uint32, exmem *EXMEMLatch, memwb *MEMWBLatch) (uint32, bool) {
	if src == 0 {
		return val, false
	}

	if rd, ok := producerDest(exmem.Inst, exmem.Bubble(), exmem.RegWrite); ok && rd == src {
		if exmem.Load {
			return val, true
		}
		return exmem.ALUOutput, false
	}

	if rd, ok := producerDest(memwb.Inst, memwb.Bubble(), memwb.RegWrite); ok && rd == src {
		if memwb.Inst.IsLoad() {
			return memwb.LMD, false
		}
		return memwb.ALUOutput, false
	}

	return val, false
}
