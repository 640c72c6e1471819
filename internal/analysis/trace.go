package analysis

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"evmtrace/internal/cfg"
	"evmtrace/internal/disasm"
)

// offsetStack is the explicit LIFO work-list of block offsets.
type offsetStack struct {
	data []uint64
}

func (s *offsetStack) Push(offsets ...uint64) {
	s.data = append(s.data, offsets...)
}

func (s *offsetStack) Pop() (uint64, bool) {
	if len(s.data) == 0 {
		return 0, false
	}
	val := s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return val, true
}

// Tracer explores the blocks reachable from an entry offset.
type Tracer struct {
	// MaxSteps is the global step ceiling; <= 0 selects MaxTraceSteps.
	MaxSteps int
}

// NewTracer returns a Tracer with the default step ceiling.
func NewTracer() *Tracer {
	return &Tracer{MaxSteps: MaxTraceSteps}
}

// Trace explores graph from entry with the default step ceiling.
func Trace(entry uint64, graph cfg.Graph, insts disasm.Stream) ([]BlockRange, disasm.Stream) {
	return NewTracer().Trace(entry, graph, insts)
}

// Trace walks graph from entry with an explicit work-list and returns the
// visited block ranges sorted by start and the covered instructions sorted
// and deduplicated by offset.
//
// The step counter is shared by the whole walk and is never reset per
// branch. Once it exceeds MaxSteps every remaining candidate is skipped, so
// the result may silently omit reachable blocks of large or cyclic graphs.
// Targets missing from graph count as a step and are dropped.
func (t *Tracer) Trace(entry uint64, graph cfg.Graph, insts disasm.Stream) ([]BlockRange, disasm.Stream) {
	maxSteps := t.MaxSteps
	if maxSteps <= 0 {
		maxSteps = MaxTraceSteps
	}

	visited := mapset.NewThreadUnsafeSet[uint64]()
	var (
		blocks []BlockRange
		code   disasm.Stream
		steps  int
		queue  offsetStack
	)
	queue.Push(entry)

	for {
		start, ok := queue.Pop()
		if !ok {
			break
		}
		if visited.Contains(start) || steps > maxSteps {
			continue
		}
		visited.Add(start)
		steps++

		block, ok := graph[start]
		if !ok {
			continue
		}

		blocks = append(blocks, BlockRange{Start: block.Start, End: block.End})
		code = append(code, insts.Range(block.Start, block.End)...)

		if block.Type != nil {
			queue.Push(block.Type.Successors()...)
		}
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Start < blocks[j].Start })
	return blocks, dedupe(code)
}

// dedupe sorts code by offset and keeps the first instruction per offset.
func dedupe(code disasm.Stream) disasm.Stream {
	sort.SliceStable(code, func(i, j int) bool { return code[i].Offset < code[j].Offset })

	out := make(disasm.Stream, 0, len(code))
	for i, inst := range code {
		if i > 0 && inst.Offset == code[i-1].Offset {
			continue
		}
		out = append(out, inst)
	}
	return out
}
