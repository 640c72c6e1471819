// Package disasm defines the instruction stream produced by an external
// bytecode disassembler: offset-ordered (offset, text) pairs.
package disasm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Inst is a single disassembled instruction.
type Inst struct {
	Offset uint64 // byte offset of the instruction in the bytecode
	Text   string // formatted disassembly, e.g. "PUSH1 80"
}

// Op returns the mnemonic, i.e. the first field of Text.
func (i Inst) Op() string {
	if idx := strings.IndexByte(i.Text, ' '); idx >= 0 {
		return i.Text[:idx]
	}
	return i.Text
}

// String formats the instruction the way reports print it.
func (i Inst) String() string {
	return fmt.Sprintf("0x%-8x %-20s", i.Offset, i.Text)
}

// MarshalJSON encodes the instruction as an [offset, text] tuple.
func (i Inst) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{i.Offset, i.Text})
}

// UnmarshalJSON decodes an [offset, text] tuple.
func (i *Inst) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("instruction: %w", err)
	}
	if len(tuple) != 2 {
		return fmt.Errorf("instruction: want [offset, text], got %d elements", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &i.Offset); err != nil {
		return fmt.Errorf("instruction offset: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &i.Text); err != nil {
		return fmt.Errorf("instruction text: %w", err)
	}
	return nil
}

// Stream is a linear, offset-ordered sequence of instructions.
type Stream []Inst

// Range returns the instructions whose offsets fall within [start, end].
// The result aliases s.
func (s Stream) Range(start, end uint64) Stream {
	if start > end {
		return nil
	}
	lo := sort.Search(len(s), func(i int) bool { return s[i].Offset >= start })
	hi := sort.Search(len(s), func(i int) bool { return s[i].Offset > end })
	if lo >= hi {
		return nil
	}
	return s[lo:hi]
}
