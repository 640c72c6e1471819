package analysis

import (
	"fmt"
	"slices"
	"testing"

	"evmtrace/internal/cfg"
	"evmtrace/internal/disasm"
)

func u(v uint64) *uint64 { return &v }

// streamFor builds one instruction per offset in [0, n) named after it.
func streamFor(n uint64) disasm.Stream {
	s := make(disasm.Stream, 0, n)
	for off := uint64(0); off < n; off++ {
		s = append(s, disasm.Inst{Offset: off, Text: fmt.Sprintf("OP_%d", off)})
	}
	return s
}

func starts(blocks []BlockRange) []uint64 {
	out := make([]uint64, len(blocks))
	for i, b := range blocks {
		out[i] = b.Start
	}
	return out
}

func assertStrictlyIncreasing(t *testing.T, code disasm.Stream) {
	t.Helper()
	for i := 1; i < len(code); i++ {
		if code[i].Offset <= code[i-1].Offset {
			t.Fatalf("instruction offsets not strictly increasing at %d: 0x%x after 0x%x", i, code[i].Offset, code[i-1].Offset)
		}
	}
}

func TestTraceScenario(t *testing.T) {
	g := cfg.Graph{
		0:  {Start: 0, End: 9, Type: cfg.Jump{To: 10}},
		10: {Start: 10, End: 19, Type: cfg.Jumpi{TrueTo: 20, FalseTo: 30}},
		20: {Start: 20, End: 29, Type: cfg.Terminate{Success: true}},
		30: {Start: 30, End: 39, Type: cfg.Terminate{Success: false}},
	}

	blocks, code := Trace(0, g, streamFor(40))

	want := []BlockRange{{0, 9}, {10, 19}, {20, 29}, {30, 39}}
	if !slices.Equal(blocks, want) {
		t.Fatalf("blocks = %v, want %v", blocks, want)
	}
	if len(code) != 40 {
		t.Errorf("got %d instructions, want 40", len(code))
	}
	assertStrictlyIncreasing(t, code)
}

func TestTraceGraphShapes(t *testing.T) {
	tests := []struct {
		name  string
		graph cfg.Graph
		entry uint64
		want  []uint64
	}{
		{
			name: "diamond visits the join once",
			graph: cfg.Graph{
				0:  {Start: 0, End: 4, Type: cfg.Jumpi{TrueTo: 10, FalseTo: 5}},
				5:  {Start: 5, End: 9, Type: cfg.Jump{To: 20}},
				10: {Start: 10, End: 19, Type: cfg.Jump{To: 20}},
				20: {Start: 20, End: 24, Type: cfg.Terminate{Success: true}},
			},
			want: []uint64{0, 5, 10, 20},
		},
		{
			name: "unreachable blocks are ignored",
			graph: cfg.Graph{
				0:  {Start: 0, End: 4, Type: cfg.Terminate{Success: true}},
				10: {Start: 10, End: 14, Type: cfg.Jump{To: 0}},
			},
			want: []uint64{0},
		},
		{
			name: "dangling targets are dropped",
			graph: cfg.Graph{
				0: {Start: 0, End: 4, Type: cfg.Jumpi{TrueTo: 99, FalseTo: 5}},
				5: {Start: 5, End: 9, Type: cfg.Jump{To: 77}},
			},
			want: []uint64{0, 5},
		},
		{
			name: "missing entry yields nothing",
			graph: cfg.Graph{
				0: {Start: 0, End: 4, Type: cfg.Terminate{}},
			},
			entry: 3,
			want:  nil,
		},
		{
			name: "dynamic jump follows resolved candidates only",
			graph: cfg.Graph{
				0:  {Start: 0, End: 4, Type: cfg.DynamicJump{To: []cfg.DynamicTarget{{To: nil}, {To: u(20)}, {Path: []uint64{0}, To: u(10)}}}},
				10: {Start: 10, End: 14, Type: cfg.Terminate{Success: true}},
				20: {Start: 20, End: 24, Type: cfg.Terminate{Success: true}},
				30: {Start: 30, End: 34, Type: cfg.Terminate{Success: true}},
			},
			want: []uint64{0, 10, 20},
		},
		{
			name: "dynamic jumpi follows taken candidates and fall-through",
			graph: cfg.Graph{
				0:  {Start: 0, End: 4, Type: cfg.DynamicJumpi{TrueTo: []cfg.DynamicTarget{{To: u(30)}, {To: nil}}, FalseTo: 5}},
				5:  {Start: 5, End: 9, Type: cfg.Terminate{Success: false}},
				30: {Start: 30, End: 34, Type: cfg.Terminate{Success: true}},
			},
			want: []uint64{0, 5, 30},
		},
		{
			name: "self loop",
			graph: cfg.Graph{
				0: {Start: 0, End: 4, Type: cfg.Jumpi{TrueTo: 0, FalseTo: 5}},
				5: {Start: 5, End: 9, Type: cfg.Terminate{Success: true}},
			},
			want: []uint64{0, 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks, code := Trace(tt.entry, tt.graph, streamFor(40))
			if got := starts(blocks); !slices.Equal(got, tt.want) {
				t.Fatalf("traced starts = %v, want %v", got, tt.want)
			}
			assertStrictlyIncreasing(t, code)

			seen := map[uint64]bool{}
			for _, b := range blocks {
				if seen[b.Start] {
					t.Errorf("block 0x%x traced twice", b.Start)
				}
				seen[b.Start] = true
			}
			for _, inst := range code {
				covered := false
				for _, b := range blocks {
					if inst.Offset >= b.Start && inst.Offset <= b.End {
						covered = true
						break
					}
				}
				if !covered {
					t.Errorf("instruction 0x%x is outside every traced block", inst.Offset)
				}
			}
		})
	}
}

func TestTraceCycleTerminates(t *testing.T) {
	g := cfg.Graph{
		0:  {Start: 0, End: 9, Type: cfg.Jump{To: 10}},
		10: {Start: 10, End: 19, Type: cfg.Jump{To: 0}},
	}

	blocks, code := Trace(0, g, streamFor(20))
	if got := starts(blocks); !slices.Equal(got, []uint64{0, 10}) {
		t.Fatalf("traced starts = %v, want [0 10]", got)
	}
	if len(code) != 20 {
		t.Errorf("got %d instructions, want 20", len(code))
	}
}

func TestTraceOverlappingBlocksDeduplicates(t *testing.T) {
	g := cfg.Graph{
		0: {Start: 0, End: 9, Type: cfg.Jump{To: 5}},
		5: {Start: 5, End: 14, Type: cfg.Terminate{Success: true}},
	}

	_, code := Trace(0, g, streamFor(20))
	if len(code) != 15 {
		t.Fatalf("got %d instructions, want 15", len(code))
	}
	assertStrictlyIncreasing(t, code)
}

// chain returns blocks 0 -> 1 -> ... -> n-1, each one instruction long.
func chain(n uint64) cfg.Graph {
	g := make(cfg.Graph, n)
	for i := uint64(0); i < n; i++ {
		var bt cfg.BlockType = cfg.Jump{To: i + 1}
		if i == n-1 {
			bt = cfg.Terminate{Success: true}
		}
		g[i] = cfg.Block{Start: i, End: i, Type: bt}
	}
	return g
}

func TestTraceStepCeiling(t *testing.T) {
	tests := []struct {
		name     string
		maxSteps int
		length   uint64
		want     int
	}{
		{name: "default ceiling", maxSteps: 0, length: 300, want: MaxTraceSteps + 1},
		{name: "short chain is complete", maxSteps: 0, length: 50, want: 50},
		{name: "custom ceiling", maxSteps: 3, length: 10, want: 4},
		{name: "raised ceiling", maxSteps: 500, length: 300, want: 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer := &Tracer{MaxSteps: tt.maxSteps}
			blocks, code := tracer.Trace(0, chain(tt.length), streamFor(tt.length))
			if len(blocks) != tt.want {
				t.Errorf("traced %d blocks, want %d", len(blocks), tt.want)
			}
			if len(code) != tt.want {
				t.Errorf("traced %d instructions, want %d", len(code), tt.want)
			}
		})
	}
}

func TestTraceStepCeilingIsGlobal(t *testing.T) {
	// The fall-through target is popped first and misses, which still costs
	// a step, so the taken branch is never expanded.
	g := cfg.Graph{
		0:  {Start: 0, End: 4, Type: cfg.Jumpi{TrueTo: 10, FalseTo: 99}},
		10: {Start: 10, End: 14, Type: cfg.Terminate{Success: true}},
	}

	blocks, _ := (&Tracer{MaxSteps: 1}).Trace(0, g, streamFor(20))
	if got := starts(blocks); !slices.Equal(got, []uint64{0}) {
		t.Errorf("traced starts = %v, want [0]", got)
	}

	blocks, _ = (&Tracer{MaxSteps: 2}).Trace(0, g, streamFor(20))
	if got := starts(blocks); !slices.Equal(got, []uint64{0, 10}) {
		t.Errorf("traced starts = %v, want [0 10]", got)
	}
}

func TestTraceEmptyInputs(t *testing.T) {
	blocks, code := Trace(0, nil, nil)
	if len(blocks) != 0 || len(code) != 0 {
		t.Errorf("Trace on empty inputs = %v, %v", blocks, code)
	}

	g := cfg.Graph{0: {Start: 0, End: 4}}
	blocks, _ = Trace(0, g, streamFor(5))
	if len(blocks) != 1 {
		t.Errorf("block without exit type: traced %d blocks, want 1", len(blocks))
	}
}
