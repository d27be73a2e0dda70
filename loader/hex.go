// Package loader reads flat hexadecimal program images.
//
// A program image is ASCII text with one 32-bit instruction word per
// line, base-16 without a 0x prefix. Words are written into memory
// sequentially from the text base.
package loader

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/mipsim/emu"
)

// Program is a loaded hex image ready to be written into memory.
type Program struct {
	// Words are the instruction words in file order.
	Words []uint32
}

// Size returns the number of words in the image.
func (p *Program) Size() int {
	return len(p.Words)
}

// Load parses the hex text image at path. Blank lines and surrounding
// whitespace are tolerated; a line that is not a hex word is an error.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program file: %w", err)
	}
	defer func() { _ = f.Close() }()

	prog := &Program{}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		word, err := strconv.ParseUint(text, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("bad word at %s:%d: %w", path, line, err)
		}
		prog.Words = append(prog.Words, uint32(word))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program file: %w", err)
	}

	return prog, nil
}

// WriteTo writes the image into memory starting at base.
func (p *Program) WriteTo(mem *emu.Memory, base uint32) {
	for i, word := range p.Words {
		mem.Write32(base+uint32(i)*4, word)
	}
}
