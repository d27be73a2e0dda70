package shell_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/shell"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

var _ = Describe("Shell", func() {
	var (
		memory *emu.Memory
		pipe   *pipeline.Pipeline
		prog   *loader.Program
		out    *bytes.Buffer
	)

	// session runs the given command script through a fresh shell and
	// returns everything it printed.
	session := func(script string) string {
		sh := shell.New(pipe, memory, prog, emu.TextBase, strings.NewReader(script), out)
		sh.Run()
		return out.String()
	}

	BeforeEach(func() {
		memory = emu.NewMemory()
		// ADDI $r1, $r0, 5; SYSCALL
		prog = &loader.Program{Words: []uint32{0x20010005, 0x0000000C}}
		prog.WriteTo(memory, emu.TextBase)
		pipe = pipeline.NewPipeline(memory)
		out = &bytes.Buffer{}
	})

	It("should print the menu and exit on quit", func() {
		text := session("quit\n")
		Expect(text).To(ContainSubstring("sim\t-- simulate program to completion"))
		Expect(text).To(ContainSubstring("Good bye"))
	})

	It("should exit on EOF", func() {
		Expect(func() { session("") }).NotTo(Panic())
	})

	It("should run the program to completion", func() {
		session("sim\nquit\n")
		Expect(pipe.Halted()).To(BeTrue())
		Expect(pipe.State().Reg(1)).To(Equal(uint32(5)))
	})

	It("should run a bounded number of cycles", func() {
		session("run 3\nquit\n")
		Expect(pipe.Halted()).To(BeFalse())
		Expect(pipe.Stats().Cycles).To(Equal(uint64(3)))
	})

	It("should dump registers", func() {
		text := session("input 5 0x2a\nrdump\nquit\n")
		Expect(text).To(ContainSubstring("[R5]\t: 0x0000002a"))
		Expect(text).To(ContainSubstring("[HI]\t: 0x00000000"))
	})

	It("should poke HI and LO", func() {
		session("high 0x11\nlow 0x22\nquit\n")
		Expect(pipe.State().HI).To(Equal(uint32(0x11)))
		Expect(pipe.State().LO).To(Equal(uint32(0x22)))
	})

	It("should dump memory", func() {
		text := session("mdump 0x400000 0x400004\nquit\n")
		Expect(text).To(ContainSubstring("0x00400000"))
		Expect(text).To(ContainSubstring("0x20010005"))
	})

	It("should disassemble the loaded program", func() {
		text := session("print\nquit\n")
		Expect(text).To(ContainSubstring("ADDI $r1, $r0, 0x5"))
		Expect(text).To(ContainSubstring("SYSCALL"))
	})

	It("should show the pipeline latches", func() {
		text := session("run 1\nshow\nquit\n")
		Expect(text).To(ContainSubstring("---Pipeline Contents---"))
		Expect(text).To(ContainSubstring("IF/ID.IR 0x20010005"))
	})

	It("should toggle forwarding", func() {
		session("forward off\nquit\n")
		Expect(pipe.Forwarding()).To(BeFalse())
	})

	It("should reset the machine and reload the program", func() {
		session("sim\nreset\nquit\n")
		Expect(pipe.Halted()).To(BeFalse())
		Expect(pipe.State().Reg(1)).To(Equal(uint32(0)))
		Expect(memory.Read32(emu.TextBase)).To(Equal(uint32(0x20010005)))
	})

	It("should complain about unknown commands", func() {
		text := session("bogus\nquit\n")
		Expect(text).To(ContainSubstring("Invalid Command."))
	})

	It("should re-prompt after a parse error", func() {
		text := session("run notanumber\nquit\n")
		Expect(text).To(ContainSubstring("Invalid Command."))
		Expect(pipe.Stats().Cycles).To(Equal(uint64(0)))
	})
})
