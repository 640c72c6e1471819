package analysis

import (
	"fmt"

	"evmtrace/internal/contract"
	"evmtrace/internal/disasm"
)

// BlockRange is the [Start, End] offset range of a traced block.
type BlockRange struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

func (r BlockRange) String() string {
	return fmt.Sprintf("0x%x - 0x%x", r.Start, r.End)
}

// FunctionTrace is the materialized reachable path of one function.
type FunctionTrace struct {
	Selector     contract.Selector `json:"selector"`
	Entry        uint64            `json:"entry_point"`
	Blocks       []BlockRange      `json:"blocks"`
	Instructions disasm.Stream     `json:"disassembled"`
}

// StartsBlock reports whether offset is the first offset of a traced block.
func (t FunctionTrace) StartsBlock(offset uint64) bool {
	for _, b := range t.Blocks {
		if b.Start == offset {
			return true
		}
	}
	return false
}

// BlockStarts returns the start offsets of the traced blocks.
func (t FunctionTrace) BlockStarts() []uint64 {
	starts := make([]uint64, len(t.Blocks))
	for i, b := range t.Blocks {
		starts[i] = b.Start
	}
	return starts
}

// PatternMatch is one located occurrence of an opcode pattern.
type PatternMatch struct {
	Pattern  string        `json:"pattern,omitempty"` // descriptive name of the search
	Selector string        `json:"function_selector"` // 0x-prefixed selector of the owning function
	Location uint64        `json:"location"`          // offset of the first opcode hit
	Context  disasm.Stream `json:"context"`           // instructions around the hit
}
