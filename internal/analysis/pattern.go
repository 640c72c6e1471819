package analysis

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"evmtrace/internal/disasm"
)

// Search scans the traces whose selector is in targets for firstOp followed
// by secondOp within the lookahead window and returns one match per
// qualifying firstOp occurrence. Both opcodes are matched as substrings of
// the instruction text. A trace is scanned when its canonical selector text
// ("0x" plus 8 lowercase hex digits) is in targets; build targets with
// TargetSet to normalize user input.
// patternName is copied into each match and does not affect matching.
func Search(targets mapset.Set[string], traces []FunctionTrace, firstOp, secondOp string, contextSize int, patternName string) []PatternMatch {
	var matches []PatternMatch
	if targets == nil || targets.Cardinality() == 0 {
		return matches
	}
	if contextSize < 0 {
		contextSize = 0
	}

	for _, trace := range traces {
		selector := trace.Selector.String()
		if !targets.Contains(selector) {
			continue
		}

		code := trace.Instructions
		for i := range code {
			if !strings.Contains(code[i].Text, firstOp) {
				continue
			}

			limit := min(len(code), i+LookaheadWindow)
			for j := i + 1; j < limit; j++ {
				if !strings.Contains(code[j].Text, secondOp) {
					continue
				}

				// Clamp before adding so huge context sizes cannot overflow.
				startIdx := i - min(contextSize, i)
				endIdx := j + min(contextSize, len(code)-1-j)
				window := make(disasm.Stream, endIdx-startIdx+1)
				copy(window, code[startIdx:endIdx+1])

				matches = append(matches, PatternMatch{
					Pattern:  patternName,
					Selector: selector,
					Location: code[i].Offset,
					Context:  window,
				})
				break
			}
		}
	}

	return matches
}

// TargetSet builds a selector set in canonical lowercase form.
func TargetSet(selectors ...string) mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, s := range selectors {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, "0x") {
			s = "0x" + s
		}
		set.Add(s)
	}
	return set
}

// SelectorsOf returns the canonical selectors of traces, in order.
func SelectorsOf(traces []FunctionTrace) []string {
	out := make([]string, len(traces))
	for i, t := range traces {
		out[i] = t.Selector.String()
	}
	return out
}
