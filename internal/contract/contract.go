// Package contract holds the analysis document an external bytecode
// analyzer produces for one contract: discovered functions, the disassembly,
// basic blocks, the control-flow graph and storage records.
package contract

import (
	"evmtrace/internal/cfg"
	"evmtrace/internal/disasm"
)

// Function is a dispatcher entry discovered by the analyzer.
type Function struct {
	Selector        Selector `json:"selector" jsonschema:"description=4-byte selector as hex"`
	BytecodeOffset  uint64   `json:"bytecode_offset" jsonschema:"description=Entry offset of the function body"`
	Arguments       *string  `json:"arguments,omitempty" jsonschema:"description=Decoded argument types, comma separated"`
	StateMutability *string  `json:"state_mutability,omitempty" jsonschema:"enum=pure,enum=view,enum=payable,enum=nonpayable"`
}

// ArgumentsText returns the argument list or "None" when it was not recovered.
func (f Function) ArgumentsText() string {
	if f.Arguments == nil {
		return "None"
	}
	if *f.Arguments == "" {
		return "()"
	}
	return *f.Arguments
}

// MutabilityText returns the state mutability or "Unknown".
func (f Function) MutabilityText() string {
	if f.StateMutability == nil || *f.StateMutability == "" {
		return "Unknown"
	}
	return *f.StateMutability
}

// StorageRecord describes one storage slot and the functions touching it.
type StorageRecord struct {
	Slot   string     `json:"slot"`
	Offset uint8      `json:"offset"`
	Type   string     `json:"type"`
	Reads  []Selector `json:"reads"`
	Writes []Selector `json:"writes"`
}

// ControlFlowGraph wraps the block map the way the analyzer serializes it.
type ControlFlowGraph struct {
	Blocks cfg.Graph `json:"blocks"`
}

// Info is a full analysis document. Every section is optional; a nil
// section means the analyzer did not produce it.
type Info struct {
	Functions        []Function        `json:"functions,omitempty"`
	Disassembled     disasm.Stream     `json:"disassembled,omitempty"`
	BasicBlocks      [][2]uint64       `json:"basic_blocks,omitempty"`
	ControlFlowGraph *ControlFlowGraph `json:"control_flow_graph,omitempty"`
	Storage          []StorageRecord   `json:"storage,omitempty"`
}

// Graph returns the CFG blocks, or nil when the document has none.
func (i *Info) Graph() cfg.Graph {
	if i == nil || i.ControlFlowGraph == nil {
		return nil
	}
	return i.ControlFlowGraph.Blocks
}

// Function looks up a discovered function by selector.
func (i *Info) Function(sel Selector) (Function, bool) {
	if i == nil {
		return Function{}, false
	}
	for _, f := range i.Functions {
		if f.Selector == sel {
			return f, true
		}
	}
	return Function{}, false
}
