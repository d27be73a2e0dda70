// Package insts provides MIPS32 instruction definitions and decoding.
package insts

import "fmt"

// NotImplemented is printed when disassembling an unsupported word.
const NotImplemented = "Instruction is not implemented!"

// Decoder decodes MIPS32 machine code words into Instruction structs.
type Decoder struct{}

// NewDecoder creates a new MIPS32 decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode extracts all bitfields of word and classifies the operation.
// Unsupported encodings decode to OpUnknown with the fields still filled in.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Raw:    word,
		Opcode: uint8(word >> 26),
		Funct:  uint8(word & 0x3F),
		Rs:     uint8((word >> 21) & 0x1F),
		Rt:     uint8((word >> 16) & 0x1F),
		Rd:     uint8((word >> 11) & 0x1F),
		Sa:     uint8((word >> 6) & 0x1F),
		Imm:    uint16(word & 0xFFFF),
		Target: word & 0x03FFFFFF,
	}

	switch inst.Opcode {
	case opcSpecial:
		inst.Format = FormatR
		inst.Op = decodeSpecial(inst.Funct)
		if inst.Op == OpUnknown {
			inst.Format = FormatUnknown
		}
	case opcRegImm:
		inst.Format = FormatI
		switch inst.Rt {
		case 0:
			inst.Op = OpBLTZ
		case 1:
			inst.Op = OpBGEZ
		default:
			inst.Op = OpUnknown
			inst.Format = FormatUnknown
		}
	case opcJ:
		inst.Format = FormatJ
		inst.Op = OpJ
	case opcJAL:
		inst.Format = FormatJ
		inst.Op = OpJAL
	case opcBEQ:
		inst.Format = FormatI
		inst.Op = OpBEQ
	case opcBNE:
		inst.Format = FormatI
		inst.Op = OpBNE
	case opcBLEZ:
		inst.Format = FormatI
		inst.Op = OpBLEZ
	case opcBGTZ:
		inst.Format = FormatI
		inst.Op = OpBGTZ
	case opcADDI:
		inst.Format = FormatI
		inst.Op = OpADDI
	case opcADDIU:
		inst.Format = FormatI
		inst.Op = OpADDIU
	case opcSLTI:
		inst.Format = FormatI
		inst.Op = OpSLTI
	case opcANDI:
		inst.Format = FormatI
		inst.Op = OpANDI
	case opcORI:
		inst.Format = FormatI
		inst.Op = OpORI
	case opcXORI:
		inst.Format = FormatI
		inst.Op = OpXORI
	case opcLUI:
		inst.Format = FormatI
		inst.Op = OpLUI
	case opcLB:
		inst.Format = FormatI
		inst.Op = OpLB
	case opcLH:
		inst.Format = FormatI
		inst.Op = OpLH
	case opcLW:
		inst.Format = FormatI
		inst.Op = OpLW
	case opcSB:
		inst.Format = FormatI
		inst.Op = OpSB
	case opcSH:
		inst.Format = FormatI
		inst.Op = OpSH
	case opcSW:
		inst.Format = FormatI
		inst.Op = OpSW
	default:
		inst.Op = OpUnknown
		inst.Format = FormatUnknown
	}

	return inst
}

func decodeSpecial(funct uint8) Op {
	switch funct {
	case fnSLL:
		return OpSLL
	case fnSRL:
		return OpSRL
	case fnSRA:
		return OpSRA
	case fnJR:
		return OpJR
	case fnJALR:
		return OpJALR
	case fnSyscall:
		return OpSyscall
	case fnMFHI:
		return OpMFHI
	case fnMTHI:
		return OpMTHI
	case fnMFLO:
		return OpMFLO
	case fnMTLO:
		return OpMTLO
	case fnMULT:
		return OpMULT
	case fnMULTU:
		return OpMULTU
	case fnDIV:
		return OpDIV
	case fnDIVU:
		return OpDIVU
	case fnADD:
		return OpADD
	case fnADDU:
		return OpADDU
	case fnSUB:
		return OpSUB
	case fnSUBU:
		return OpSUBU
	case fnAND:
		return OpAND
	case fnOR:
		return OpOR
	case fnXOR:
		return OpXOR
	case fnNOR:
		return OpNOR
	case fnSLT:
		return OpSLT
	}
	return OpUnknown
}

// mnemonics maps every supported operation to its assembler name.
var mnemonics = map[Op]string{
	OpSLL: "SLL", OpSRL: "SRL", OpSRA: "SRA",
	OpJR: "JR", OpJALR: "JALR", OpSyscall: "SYSCALL",
	OpMFHI: "MFHI", OpMTHI: "MTHI", OpMFLO: "MFLO", OpMTLO: "MTLO",
	OpMULT: "MULT", OpMULTU: "MULTU", OpDIV: "DIV", OpDIVU: "DIVU",
	OpADD: "ADD", OpADDU: "ADDU", OpSUB: "SUB", OpSUBU: "SUBU",
	OpAND: "AND", OpOR: "OR", OpXOR: "XOR", OpNOR: "NOR", OpSLT: "SLT",
	OpBLTZ: "BLTZ", OpBGEZ: "BGEZ",
	OpJ: "J", OpJAL: "JAL",
	OpBEQ: "BEQ", OpBNE: "BNE", OpBLEZ: "BLEZ", OpBGTZ: "BGTZ",
	OpADDI: "ADDI", OpADDIU: "ADDIU", OpSLTI: "SLTI",
	OpANDI: "ANDI", OpORI: "ORI", OpXORI: "XORI", OpLUI: "LUI",
	OpLB: "LB", OpLH: "LH", OpLW: "LW",
	OpSB: "SB", OpSH: "SH", OpSW: "SW",
}

// Mnemonic returns the assembler name of the operation, or "???" for
// unsupported encodings.
func (i *Instruction) Mnemonic() string {
	if m, ok := mnemonics[i.Op]; ok {
		return m
	}
	return "???"
}

// Disassemble renders the instruction in assembly form, with jump and
// branch targets resolved relative to addr, the address the word was
// fetched from.
func (i *Instruction) Disassemble(addr uint32) string {
	switch i.Op {
	case OpSLL, OpSRL, OpSRA:
		return fmt.Sprintf("%s $r%d, $r%d, 0x%x", i.Mnemonic(), i.Rd, i.Rt, i.Sa)
	case OpJR:
		return fmt.Sprintf("JR $r%d", i.Rs)
	case OpJALR:
		if i.Rd == LinkReg {
			return fmt.Sprintf("JALR $r%d", i.Rs)
		}
		return fmt.Sprintf("JALR $r%d, $r%d", i.Rd, i.Rs)
	case OpSyscall:
		return "SYSCALL"
	case OpMFHI, OpMFLO:
		return fmt.Sprintf("%s $r%d", i.Mnemonic(), i.Rd)
	case OpMTHI, OpMTLO:
		return fmt.Sprintf("%s $r%d", i.Mnemonic(), i.Rs)
	case OpMULT, OpMULTU, OpDIV, OpDIVU:
		return fmt.Sprintf("%s $r%d, $r%d", i.Mnemonic(), i.Rs, i.Rt)
	case OpADD, OpADDU, OpSUB, OpSUBU, OpAND, OpOR, OpXOR, OpNOR, OpSLT:
		return fmt.Sprintf("%s $r%d, $r%d, $r%d", i.Mnemonic(), i.Rd, i.Rs, i.Rt)
	case OpBLTZ, OpBGEZ, OpBLEZ, OpBGTZ:
		return fmt.Sprintf("%s $r%d, 0x%x", i.Mnemonic(), i.Rs, uint32(i.Imm)<<2)
	case OpJ, OpJAL:
		return fmt.Sprintf("%s 0x%x", i.Mnemonic(), (addr&0xF0000000)|(i.Target<<2))
	case OpBEQ, OpBNE:
		return fmt.Sprintf("%s $r%d, $r%d, 0x%x", i.Mnemonic(), i.Rs, i.Rt, uint32(i.Imm)<<2)
	case OpADDI, OpADDIU, OpSLTI, OpANDI, OpORI, OpXORI:
		return fmt.Sprintf("%s $r%d, $r%d, 0x%x", i.Mnemonic(), i.Rt, i.Rs, i.Imm)
	case OpLUI:
		return fmt.Sprintf("LUI $r%d, 0x%x", i.Rt, i.Imm)
	case OpLB, OpLH, OpLW, OpSB, OpSH, OpSW:
		return fmt.Sprintf("%s $r%d, 0x%x($r%d)", i.Mnemonic(), i.Rt, i.Imm, i.Rs)
	}
	return NotImplemented
}

// String renders the instruction with targets relative to address 0.
func (i *Instruction) String() string {
	return i.Disassemble(0)
}
