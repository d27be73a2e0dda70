package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

var _ = Describe("HazardUnit", func() {
	var (
		decoder *insts.Decoder
		hazards *pipeline.HazardUnit
	)

	// producerEXMEM builds an EX/MEM latch for a word that writes a GPR.
	producerEXMEM := func(word, aluOut uint32, load bool) pipeline.EXMEMLatch {
		inst := decoder.Decode(word)
		return pipeline.EXMEMLatch{
			IR:        word,
			Inst:      inst,
			ALUOutput: aluOut,
			Load:      load,
			RegWrite:  inst.WritesReg(),
		}
	}

	producerMEMWB := func(word, aluOut, lmd uint32) pipeline.MEMWBLatch {
		inst := decoder.Decode(word)
		return pipeline.MEMWBLatch{
			IR:        word,
			Inst:      inst,
			ALUOutput: aluOut,
			LMD:       lmd,
			RegWrite:  inst.WritesReg(),
		}
	}

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("interlock mode", func() {
		BeforeEach(func() {
			hazards = pipeline.NewHazardUnit(false)
		})

		It("should schedule two stall cycles for a distance-1 RAW", func() {
			exmem := producerEXMEM(0x20010005, 5, false) // ADDI $r1
			memwb := pipeline.MEMWBLatch{}
			consumer := decoder.Decode(0x00221820) // ADD $r3, $r1, $r2

			Expect(hazards.DetectRAW(consumer, &exmem, &memwb)).To(BeTrue())

			hazards.BeginCycle()
			Expect(hazards.Stalled()).To(BeTrue())
			hazards.BeginCycle()
			Expect(hazards.Stalled()).To(BeFalse())
		})

		It("should schedule one stall cycle for a distance-2 RAW", func() {
			exmem := pipeline.EXMEMLatch{}
			memwb := producerMEMWB(0x20010005, 5, 0) // ADDI $r1
			consumer := decoder.Decode(0x00221820)   // ADD $r3, $r1, $r2

			Expect(hazards.DetectRAW(consumer, &exmem, &memwb)).To(BeTrue())

			hazards.BeginCycle()
			Expect(hazards.Stalled()).To(BeFalse())
		})

		It("should keep the larger stall when both distances hit", func() {
			exmem := producerEXMEM(0x20020007, 7, false) // ADDI $r2
			memwb := producerMEMWB(0x20010005, 5, 0)     // ADDI $r1
			consumer := decoder.Decode(0x00221820)       // ADD $r3, $r1, $r2

			Expect(hazards.DetectRAW(consumer, &exmem, &memwb)).To(BeTrue())

			hazards.BeginCycle()
			hazards.BeginCycle()
			Expect(hazards.Stalled()).To(BeFalse())
		})

		It("should not stall on a hazard against register 0", func() {
			exmem := producerEXMEM(0x20000005, 5, false) // ADDI $r0 (writes nothing)
			memwb := pipeline.MEMWBLatch{}
			consumer := decoder.Decode(0x00001820) // ADD $r3, $r0, $r0

			Expect(hazards.DetectRAW(consumer, &exmem, &memwb)).To(BeFalse())
		})

		It("should not stall on rt when rt is not read as data", func() {
			exmem := producerEXMEM(0x20010005, 5, false) // ADDI $r1
			memwb := pipeline.MEMWBLatch{}
			// ADDI $r1, $r0, 7: rt names the destination, not a source.
			consumer := decoder.Decode(0x20010007)

			Expect(hazards.DetectRAW(consumer, &exmem, &memwb)).To(BeFalse())
		})

		It("should ignore bubbles", func() {
			exmem := pipeline.EXMEMLatch{}
			memwb := pipeline.MEMWBLatch{}
			consumer := decoder.Decode(0x00221820)

			Expect(hazards.DetectRAW(consumer, &exmem, &memwb)).To(BeFalse())
		})
	})

	Describe("forwarding mode", func() {
		BeforeEach(func() {
			hazards = pipeline.NewHazardUnit(true)
		})

		It("should forward an ALU result from EX/MEM", func() {
			exmem := producerEXMEM(0x20010005, 42, false) // ADDI $r1
			memwb := pipeline.MEMWBLatch{}
			consumer := decoder.Decode(0x00221820) // ADD $r3, $r1, $r2

			a, b, loadUse := hazards.ForwardOperands(consumer, 1, 2, &exmem, &memwb)

			Expect(loadUse).To(BeFalse())
			Expect(a).To(Equal(uint32(42)))
			Expect(b).To(Equal(uint32(2)))
		})

		It("should prefer EX/MEM over MEM/WB", func() {
			exmem := producerEXMEM(0x20010005, 42, false) // ADDI $r1
			memwb := producerMEMWB(0x20010007, 7, 0)      // older ADDI $r1
			consumer := decoder.Decode(0x00221820)

			a, _, _ := hazards.ForwardOperands(consumer, 1, 2, &exmem, &memwb)

			Expect(a).To(Equal(uint32(42)))
		})

		It("should forward to rt only when rt is read as data", func() {
			exmem := producerEXMEM(0x20020007, 99, false) // ADDI $r2
			memwb := pipeline.MEMWBLatch{}

			add := decoder.Decode(0x00221820) // ADD reads rt
			_, b, _ := hazards.ForwardOperands(add, 1, 2, &exmem, &memwb)
			Expect(b).To(Equal(uint32(99)))

			lw := decoder.Decode(0x8C220000) // LW $r2, 0($r1): rt is the dest
			_, b, _ = hazards.ForwardOperands(lw, 1, 2, &exmem, &memwb)
			Expect(b).To(Equal(uint32(2)))
		})

		It("should stall one cycle on a load-use hazard", func() {
			exmem := producerEXMEM(0x8C220000, 0x10010000, true) // LW $r2
			memwb := pipeline.MEMWBLatch{}
			consumer := decoder.Decode(0x00421820) // ADD $r3, $r2, $r2

			_, _, loadUse := hazards.ForwardOperands(consumer, 0, 0, &exmem, &memwb)

			Expect(loadUse).To(BeTrue())
			Expect(hazards.Stalled()).To(BeTrue())
			hazards.BeginCycle()
			Expect(hazards.Stalled()).To(BeFalse())
		})

		It("should forward LMD from a load in MEM/WB", func() {
			exmem := pipeline.EXMEMLatch{}
			memwb := producerMEMWB(0x8C220000, 0x10010000, 0x99) // LW $r2
			consumer := decoder.Decode(0x00421820)               // ADD $r3, $r2, $r2

			a, b, loadUse := hazards.ForwardOperands(consumer, 0, 0, &exmem, &memwb)

			Expect(loadUse).To(BeFalse())
			Expect(a).To(Equal(uint32(0x99)))
			Expect(b).To(Equal(uint32(0x99)))
		})
	})

	Describe("Reset", func() {
		It("should drop a pending stall", func() {
			hazards = pipeline.NewHazardUnit(false)
			exmem := producerEXMEM(0x20010005, 5, false)
			memwb := pipeline.MEMWBLatch{}
			hazards.DetectRAW(decoder.Decode(0x00221820), &exmem, &memwb)
			Expect(hazards.Stalled()).To(BeTrue())

			hazards.Reset()
			Expect(hazards.Stalled()).To(BeFalse())
		})
	})
})
