// Package report renders traced functions and pattern matches as plain
// text tables, markdown or JSON.
package report

import (
	"evmtrace/internal/analysis"
	"evmtrace/internal/contract"
	"evmtrace/internal/detectors"
)

// Options selects report sections.
type Options struct {
	// Full adds traced blocks, code paths, storage, basic blocks and the CFG.
	Full bool
	// Color highlights instruction lines in text output.
	Color bool
}

// PatternResult holds the matches of one searched pattern.
type PatternResult struct {
	Name    string                  `json:"name"`
	Title   string                  `json:"title"`
	First   string                  `json:"first,omitempty"`
	Second  string                  `json:"second,omitempty"`
	Matches []analysis.PatternMatch `json:"matches"`
}

// Report is everything a run produced for one analysis document.
type Report struct {
	Source   string
	Info     *contract.Info
	Traces   []analysis.FunctionTrace
	Patterns []PatternResult
}

// patterned is implemented by detectors that search a known pattern.
type patterned interface {
	Pattern() detectors.Pattern
}

// Build runs chain over traces and collects the results in chain order.
func Build(source string, info *contract.Info, traces []analysis.FunctionTrace, chain *analysis.DetectorChain) *Report {
	r := &Report{Source: source, Info: info, Traces: traces}
	if chain == nil {
		return r
	}

	found := chain.Detect(traces)
	for i, d := range chain.Detectors() {
		res := PatternResult{Name: d.Name(), Title: d.Name(), Matches: found[i]}
		if p, ok := d.(patterned); ok {
			pat := p.Pattern()
			res.Name, res.First, res.Second = pat.Name, pat.First, pat.Second
		}
		if res.Matches == nil {
			res.Matches = []analysis.PatternMatch{}
		}
		r.Patterns = append(r.Patterns, res)
	}
	return r
}

// MatchCount returns the number of matches over all patterns.
func (r *Report) MatchCount() int {
	n := 0
	for _, p := range r.Patterns {
		n += len(p.Matches)
	}
	return n
}

// Trace returns the trace of sel, if it was traced.
func (r *Report) Trace(sel contract.Selector) (analysis.FunctionTrace, bool) {
	for _, t := range r.Traces {
		if t.Selector == sel {
			return t, true
		}
	}
	return analysis.FunctionTrace{}, false
}

// MatchesIn returns the matches located in the function with selector sel.
func (r *Report) MatchesIn(sel contract.Selector) []analysis.PatternMatch {
	var out []analysis.PatternMatch
	want := sel.String()
	for _, p := range r.Patterns {
		for _, m := range p.Matches {
			if m.Selector == want {
				out = append(out, m)
			}
		}
	}
	return out
}
