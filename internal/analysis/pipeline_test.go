package analysis

import (
	"context"
	"errors"
	"slices"
	"testing"

	"evmtrace/internal/cfg"
	"evmtrace/internal/contract"
	"evmtrace/internal/disasm"
)

func sampleInfo(t *testing.T) *contract.Info {
	t.Helper()
	return &contract.Info{
		Functions: []contract.Function{
			{Selector: mustSelector(t, "0xfa461e33"), BytecodeOffset: 20},
			{Selector: mustSelector(t, "0xd0f61a17"), BytecodeOffset: 0},
			{Selector: mustSelector(t, "0x893d20e8"), BytecodeOffset: 99},
		},
		Disassembled: disasm.Stream{
			{Offset: 0, Text: "CALLER"},
			{Offset: 1, Text: "PUSH1 00"},
			{Offset: 3, Text: "SLOAD"},
			{Offset: 4, Text: "EQ"},
			{Offset: 5, Text: "PUSH1 14"},
			{Offset: 7, Text: "JUMPI"},
			{Offset: 20, Text: "JUMPDEST"},
			{Offset: 21, Text: "STOP"},
		},
		ControlFlowGraph: &contract.ControlFlowGraph{Blocks: cfg.Graph{
			0:  {Start: 0, End: 7, Type: cfg.Jumpi{TrueTo: 20, FalseTo: 8}},
			20: {Start: 20, End: 21, Type: cfg.Terminate{Success: true}},
		}},
	}
}

func TestTraceFunctions(t *testing.T) {
	info := sampleInfo(t)

	traces, err := TraceFunctions(context.Background(), info, TraceOptions{Workers: 2})
	if err != nil {
		t.Fatalf("TraceFunctions failed: %v", err)
	}
	if got := SelectorsOf(traces); !slices.Equal(got, []string{"0xfa461e33", "0xd0f61a17", "0x893d20e8"}) {
		t.Fatalf("selectors = %v, want document order", got)
	}

	if got := traces[0].BlockStarts(); !slices.Equal(got, []uint64{20}) {
		t.Errorf("trace 0 blocks = %v", got)
	}
	if got := traces[1].BlockStarts(); !slices.Equal(got, []uint64{0, 20}) {
		t.Errorf("trace 1 blocks = %v", got)
	}
	if len(traces[1].Instructions) != 8 {
		t.Errorf("trace 1 has %d instructions, want 8", len(traces[1].Instructions))
	}
	if len(traces[2].Blocks) != 0 || len(traces[2].Instructions) != 0 {
		t.Errorf("trace from missing entry = %+v", traces[2])
	}
	if traces[2].Entry != 99 {
		t.Errorf("entry = %d, want 99", traces[2].Entry)
	}

	matches := Search(TargetSet(SelectorsOf(traces)...), traces, "CALLER", "EQ", DefaultContextSize, "auth")
	if len(matches) != 1 || matches[0].Selector != "0xd0f61a17" || matches[0].Location != 0 {
		t.Errorf("matches = %+v", matches)
	}
}

func TestTraceFunctionsIncompleteDocument(t *testing.T) {
	full := sampleInfo(t)

	tests := []struct {
		name string
		info *contract.Info
	}{
		{name: "nil", info: nil},
		{name: "empty", info: &contract.Info{}},
		{name: "no functions", info: &contract.Info{Disassembled: full.Disassembled, ControlFlowGraph: full.ControlFlowGraph}},
		{name: "no graph", info: &contract.Info{Functions: full.Functions, Disassembled: full.Disassembled}},
		{name: "no disassembly", info: &contract.Info{Functions: full.Functions, ControlFlowGraph: full.ControlFlowGraph}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			traces, err := TraceFunctions(context.Background(), tt.info, TraceOptions{})
			if err != nil {
				t.Fatalf("TraceFunctions failed: %v", err)
			}
			if traces != nil {
				t.Errorf("traces = %+v, want nil", traces)
			}
		})
	}
}

func TestTraceFunctionsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := TraceFunctions(ctx, sampleInfo(t), TraceOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

type fakeDetector struct {
	name  string
	calls int
	out   []PatternMatch
}

func (f *fakeDetector) Name() string { return f.name }

func (f *fakeDetector) Detect(traces []FunctionTrace) []PatternMatch {
	f.calls++
	return f.out
}

func TestDetectorChain(t *testing.T) {
	hit := &fakeDetector{name: "hit", out: []PatternMatch{{Pattern: "hit", Selector: "0xfa461e33", Location: 4}}}
	miss := &fakeDetector{name: "miss"}
	chain := NewDetectorChain(hit, miss)

	if got := chain.Detectors(); len(got) != 2 || got[0] != Detector(hit) {
		t.Fatalf("Detectors() = %v", got)
	}

	result := chain.Detect([]FunctionTrace{{}})
	if hit.calls != 1 || miss.calls != 1 {
		t.Errorf("calls = %d, %d; want 1, 1", hit.calls, miss.calls)
	}
	if len(result) != 2 {
		t.Fatalf("got %d results, want 2", len(result))
	}
	if len(result[0]) != 1 || result[0][0].Location != 4 {
		t.Errorf("hit = %+v", result[0])
	}
	if len(result[1]) != 0 {
		t.Errorf("miss = %+v, want no matches", result[1])
	}
}

func TestDetectorChainSharedNames(t *testing.T) {
	match := PatternMatch{Pattern: "auth", Selector: "0xfa461e33", Location: 4}

	tests := []struct {
		name      string
		detectors []Detector
		want      []int
	}{
		{
			name:      "distinct names",
			detectors: []Detector{&fakeDetector{name: "a", out: []PatternMatch{match}}, &fakeDetector{name: "b"}},
			want:      []int{1, 0},
		},
		{
			name:      "same name twice",
			detectors: []Detector{&fakeDetector{name: "a", out: []PatternMatch{match}}, &fakeDetector{name: "a", out: []PatternMatch{match}}},
			want:      []int{1, 1},
		},
		{
			name:      "same name, one empty",
			detectors: []Detector{&fakeDetector{name: "a"}, &fakeDetector{name: "a", out: []PatternMatch{match, match}}},
			want:      []int{0, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewDetectorChain(tt.detectors...).Detect(nil)
			if len(result) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(result), len(tt.want))
			}
			for i, n := range tt.want {
				if len(result[i]) != n {
					t.Errorf("result[%d] has %d matches, want %d", i, len(result[i]), n)
				}
			}
		})
	}
}
