package analysis

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"evmtrace/internal/contract"
)

// TraceOptions configures TraceFunctions.
type TraceOptions struct {
	MaxSteps int // step ceiling per function; <= 0 selects MaxTraceSteps
	Workers  int // concurrent traces; <= 0 selects runtime.NumCPU()
}

// TraceFunctions traces every function of info from its bytecode offset.
// The result keeps the document's function order. A document without
// functions, CFG or disassembly yields no traces.
func TraceFunctions(ctx context.Context, info *contract.Info, opts TraceOptions) ([]FunctionTrace, error) {
	graph := info.Graph()
	if info == nil || len(info.Functions) == 0 || graph == nil || info.Disassembled == nil {
		return nil, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	tracer := &Tracer{MaxSteps: opts.MaxSteps}

	traces := make([]FunctionTrace, len(info.Functions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, fn := range info.Functions {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			blocks, code := tracer.Trace(fn.BytecodeOffset, graph, info.Disassembled)
			traces[i] = FunctionTrace{
				Selector:     fn.Selector,
				Entry:        fn.BytecodeOffset,
				Blocks:       blocks,
				Instructions: code,
			}
			slog.Debug("Traced function",
				"selector", fn.Selector.String(),
				"entry", fn.BytecodeOffset,
				"blocks", len(blocks),
				"instructions", len(code))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return traces, nil
}
