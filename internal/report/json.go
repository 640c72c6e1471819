package report

import (
	"encoding/json"
	"io"

	"evmtrace/internal/analysis"
	"evmtrace/internal/contract"
	"evmtrace/internal/disasm"
)

// TraceSummary is the JSON form of one traced function.
type TraceSummary struct {
	Selector     contract.Selector     `json:"selector"`
	Entry        uint64                `json:"entry_point"`
	Blocks       []analysis.BlockRange `json:"blocks"`
	Instructions int                   `json:"instructions"`
	Disassembled disasm.Stream         `json:"disassembled,omitempty"`
}

// Document is the JSON report.
type Document struct {
	Source    string              `json:"source,omitempty"`
	Functions []contract.Function `json:"functions"`
	Traces    []TraceSummary      `json:"traces"`
	Patterns  []PatternResult     `json:"patterns"`
	Matches   int                 `json:"match_count"`
}

// NewDocument summarizes r. Full keeps each trace's code path.
func NewDocument(r *Report, opts Options) Document {
	doc := Document{
		Source:    r.Source,
		Functions: []contract.Function{},
		Traces:    make([]TraceSummary, 0, len(r.Traces)),
		Patterns:  r.Patterns,
		Matches:   r.MatchCount(),
	}
	if r.Info != nil && r.Info.Functions != nil {
		doc.Functions = r.Info.Functions
	}
	if doc.Patterns == nil {
		doc.Patterns = []PatternResult{}
	}
	for _, t := range r.Traces {
		s := TraceSummary{
			Selector:     t.Selector,
			Entry:        t.Entry,
			Blocks:       t.Blocks,
			Instructions: len(t.Instructions),
		}
		if s.Blocks == nil {
			s.Blocks = []analysis.BlockRange{}
		}
		if opts.Full {
			s.Disassembled = t.Instructions
		}
		doc.Traces = append(doc.Traces, s)
	}
	return doc
}

// JSON writes the indented JSON report.
func JSON(w io.Writer, r *Report, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(r, opts))
}
