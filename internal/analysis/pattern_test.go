package analysis

import (
	"math"
	"testing"

	"evmtrace/internal/contract"
	"evmtrace/internal/disasm"
)

func mustSelector(t *testing.T, s string) contract.Selector {
	t.Helper()
	sel, err := contract.ParseSelector(s)
	if err != nil {
		t.Fatalf("ParseSelector(%q): %v", s, err)
	}
	return sel
}

// traceOf builds a trace whose instruction i has offset base+i and text ops[i].
func traceOf(t *testing.T, selector string, base uint64, ops ...string) FunctionTrace {
	t.Helper()
	code := make(disasm.Stream, len(ops))
	for i, op := range ops {
		code[i] = disasm.Inst{Offset: base + uint64(i), Text: op}
	}
	return FunctionTrace{
		Selector:     mustSelector(t, selector),
		Entry:        base,
		Blocks:       []BlockRange{{Start: base, End: base + uint64(len(ops)) - 1}},
		Instructions: code,
	}
}

// filler returns n instructions that match neither CALLER nor EQ.
func filler(n int) []string {
	ops := make([]string, n)
	for i := range ops {
		ops[i] = "DUP1"
	}
	return ops
}

func TestSearchAuthorizationScenario(t *testing.T) {
	code := disasm.Stream{
		{Offset: 90, Text: "PUSH1 00"},
		{Offset: 92, Text: "DUP1"},
		{Offset: 93, Text: "SLOAD"},
		{Offset: 94, Text: "PUSH20 ffffffffffffffffffffffffffffffffffffffff"},
		{Offset: 99, Text: "AND"},
		{Offset: 100, Text: "CALLER"},
		{Offset: 101, Text: "SWAP1"},
		{Offset: 104, Text: "EQ"},
		{Offset: 105, Text: "PUSH2 0178"},
		{Offset: 108, Text: "JUMPI"},
		{Offset: 109, Text: "PUSH1 40"},
		{Offset: 111, Text: "MLOAD"},
		{Offset: 112, Text: "REVERT"},
	}
	trace := FunctionTrace{Selector: mustSelector(t, "0xd0f61a17"), Entry: 90, Instructions: code}

	matches := Search(TargetSet("0xfa461e33", "0xd0f61a17"), []FunctionTrace{trace}, "CALLER", "EQ", 5, "Authorization Check (CALLER+EQ)")
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}

	m := matches[0]
	if m.Location != 100 {
		t.Errorf("Location = %d, want 100", m.Location)
	}
	if m.Selector != "0xd0f61a17" {
		t.Errorf("Selector = %q", m.Selector)
	}
	if m.Pattern != "Authorization Check (CALLER+EQ)" {
		t.Errorf("Pattern = %q", m.Pattern)
	}
	// i = 5, j = 7: context [0, 12]
	if len(m.Context) != 13 || m.Context[0].Offset != 90 || m.Context[12].Offset != 112 {
		t.Errorf("Context = %v", m.Context)
	}
}

func TestSearchLookaheadWindow(t *testing.T) {
	tests := []struct {
		name     string
		distance int // position of EQ relative to CALLER
		want     int
	}{
		{name: "adjacent", distance: 1, want: 1},
		{name: "last position in window", distance: LookaheadWindow - 1, want: 1},
		{name: "window upper bound is exclusive", distance: LookaheadWindow, want: 0},
		{name: "beyond window", distance: LookaheadWindow + 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := append([]string{"CALLER"}, filler(tt.distance-1)...)
			ops = append(ops, "EQ")
			ops = append(ops, filler(3)...)
			trace := traceOf(t, "0xfa461e33", 0, ops...)

			matches := Search(TargetSet("0xfa461e33"), []FunctionTrace{trace}, "CALLER", "EQ", 0, "auth")
			if len(matches) != tt.want {
				t.Fatalf("got %d matches, want %d", len(matches), tt.want)
			}
			if tt.want == 1 {
				ctx := matches[0].Context
				if len(ctx) != tt.distance+1 || ctx[len(ctx)-1].Text != "EQ" {
					t.Errorf("context with size 0 = %v", ctx)
				}
			}
		})
	}
}

func TestSearchContextClamping(t *testing.T) {
	// CALLER at index 0, EQ at index 2, trace of 5 instructions.
	short := traceOf(t, "0xfa461e33", 0x40, "CALLER", "DUP1", "EQ", "DUP1", "DUP1")

	// CALLER at index 8, EQ at index 9, trace of 18 instructions.
	ops := append(filler(8), "CALLER", "EQ")
	ops = append(ops, filler(8)...)
	long := traceOf(t, "0xfa461e33", 0, ops...)

	tests := []struct {
		name        string
		trace       FunctionTrace
		contextSize int
		first, last uint64
		length      int
	}{
		{name: "clamped at both ends", trace: short, contextSize: 5, first: 0x40, last: 0x44, length: 5},
		{name: "within bounds", trace: long, contextSize: 2, first: 6, last: 11, length: 6},
		{name: "zero context", trace: long, contextSize: 0, first: 8, last: 9, length: 2},
		{name: "max int", trace: short, contextSize: math.MaxInt, first: 0x40, last: 0x44, length: 5},
		{name: "max int, match mid trace", trace: long, contextSize: math.MaxInt, first: 0, last: 17, length: 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := Search(TargetSet("0xfa461e33"), []FunctionTrace{tt.trace}, "CALLER", "EQ", tt.contextSize, "auth")
			if len(matches) != 1 {
				t.Fatalf("got %d matches, want 1", len(matches))
			}
			ctx := matches[0].Context
			if len(ctx) != tt.length {
				t.Fatalf("context has %d instructions, want %d", len(ctx), tt.length)
			}
			if ctx[0].Offset != tt.first || ctx[len(ctx)-1].Offset != tt.last {
				t.Errorf("context = [0x%x, 0x%x], want [0x%x, 0x%x]", ctx[0].Offset, ctx[len(ctx)-1].Offset, tt.first, tt.last)
			}
		})
	}
}

func TestSearchTargetFiltering(t *testing.T) {
	inTarget := traceOf(t, "0xfa461e33", 0, "CALLER", "EQ")
	outside := traceOf(t, "0x893d20e8", 10, "CALLER", "EQ")
	traces := []FunctionTrace{inTarget, outside}

	tests := []struct {
		name    string
		targets []string
		want    []string
	}{
		{name: "only targeted selector", targets: []string{"0xfa461e33"}, want: []string{"0xfa461e33"}},
		{name: "case and prefix insensitive", targets: []string{"FA461E33"}, want: []string{"0xfa461e33"}},
		{name: "both", targets: []string{"0xfa461e33", "0x893d20e8"}, want: []string{"0xfa461e33", "0x893d20e8"}},
		{name: "selector not present", targets: []string{"0xd0f61a17"}, want: nil},
		{name: "empty targets", targets: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := Search(TargetSet(tt.targets...), traces, "CALLER", "EQ", 5, "auth")
			if len(matches) != len(tt.want) {
				t.Fatalf("got %d matches, want %d", len(matches), len(tt.want))
			}
			for i, m := range matches {
				if m.Selector != tt.want[i] {
					t.Errorf("match %d selector = %s, want %s", i, m.Selector, tt.want[i])
				}
			}
		})
	}

	if got := Search(nil, traces, "CALLER", "EQ", 5, "auth"); len(got) != 0 {
		t.Errorf("nil target set produced %d matches", len(got))
	}
}

func TestSearchOccurrences(t *testing.T) {
	// Two CALLERs share the same EQ; each occurrence is reported.
	trace := traceOf(t, "0xfa461e33", 0, "CALLER", "CALLER", "EQ", "DUP1", "CALLER", "DUP1", "EQ")

	matches := Search(TargetSet("0xfa461e33"), []FunctionTrace{trace}, "CALLER", "EQ", 1, "auth")
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	for i, want := range []uint64{0, 1, 4} {
		if matches[i].Location != want {
			t.Errorf("match %d location = %d, want %d", i, matches[i].Location, want)
		}
	}
}

func TestSearchSubstringSemantics(t *testing.T) {
	// "CALL" also matches CALLER and DELEGATECALL.
	trace := traceOf(t, "0xfa461e33", 0, "CALLER", "ISZERO", "DELEGATECALL", "POP", "CALLVALUE", "SLOAD")

	matches := Search(TargetSet("0xfa461e33"), []FunctionTrace{trace}, "CALL", "ISZERO", 0, "")
	if len(matches) != 1 || matches[0].Location != 0 {
		t.Fatalf("matches = %+v", matches)
	}

	matches = Search(TargetSet("0xfa461e33"), []FunctionTrace{trace}, "CALL", "LOAD", 0, "")
	if len(matches) != 3 {
		t.Errorf("got %d matches, want 3", len(matches))
	}
}

func TestSearchContextIsCopied(t *testing.T) {
	trace := traceOf(t, "0xfa461e33", 0, "CALLER", "EQ")
	matches := Search(TargetSet("0xfa461e33"), []FunctionTrace{trace}, "CALLER", "EQ", 5, "auth")
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	matches[0].Context[0].Text = "MUTATED"
	if trace.Instructions[0].Text != "CALLER" {
		t.Error("match context aliases the trace")
	}
}

func TestSearchNoMatch(t *testing.T) {
	trace := traceOf(t, "0xfa461e33", 0, "PUSH1 80", "PUSH1 40", "MSTORE")
	if got := Search(TargetSet("0xfa461e33"), []FunctionTrace{trace}, "CALLER", "EQ", 5, "auth"); len(got) != 0 {
		t.Errorf("got %d matches, want none", len(got))
	}
	if got := Search(TargetSet("0xfa461e33"), nil, "CALLER", "EQ", 5, "auth"); len(got) != 0 {
		t.Errorf("got %d matches on no traces", len(got))
	}
}
