package cfg

import (
	"fmt"
	"strings"
)

// ToDot returns a Graphviz DOT representation of the blocks of g whose start
// offsets are listed in starts. Only edges between listed blocks are drawn.
// When starts is empty the whole graph is rendered.
func ToDot(g Graph, starts []uint64) string {
	if len(starts) == 0 {
		starts = g.Starts()
	}
	keep := make(map[uint64]bool, len(starts))
	for _, s := range starts {
		keep[s] = true
	}

	var sb strings.Builder
	sb.WriteString("digraph CFG {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, fontname=\"Courier\"];\n")

	for _, start := range starts {
		block, ok := g[start]
		if !ok {
			continue
		}

		kind := Kind("?")
		if block.Type != nil {
			kind = block.Type.Kind()
		}
		label := fmt.Sprintf("0x%x..0x%x\\n%s", block.Start, block.End, kind)

		attrs := ""
		if t, ok := block.Type.(Terminate); ok {
			if t.Success {
				attrs = ", color=darkgreen"
			} else {
				attrs = ", color=red"
			}
		}
		sb.WriteString(fmt.Sprintf("  b%d [label=\"%s\"%s];\n", block.Start, label, attrs))

		for i, to := range g.Successors(start) {
			if !keep[to] {
				continue
			}
			style := ""
			if j, ok := block.Type.(Jumpi); ok && i == 1 && to == j.FalseTo {
				style = " [style=dashed]"
			}
			if j, ok := block.Type.(DynamicJumpi); ok && to == j.FalseTo && i == len(g.Successors(start))-1 {
				style = " [style=dashed]"
			}
			sb.WriteString(fmt.Sprintf("  b%d -> b%d%s;\n", block.Start, to, style))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}
