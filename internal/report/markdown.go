package report

import (
	"fmt"
	"io"
	"strings"

	"evmtrace/internal/analysis"
	"evmtrace/internal/disasm"
	"evmtrace/internal/evmtrace/styles"
)

func codeBlock(sb *strings.Builder, code disasm.Stream, blockStart func(uint64) bool) {
	sb.WriteString("```\n")
	for _, inst := range code {
		if blockStart != nil && blockStart(inst.Offset) {
			sb.WriteString("; --- block ---\n")
		}
		sb.WriteString(strings.TrimRight(inst.String(), " "))
		sb.WriteString("\n")
	}
	sb.WriteString("```\n\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Markdown returns the report as markdown source.
func Markdown(r *Report, opts Options) string {
	var sb strings.Builder
	sb.WriteString("# evmtrace\n\n")
	if r.Source != "" {
		fmt.Fprintf(&sb, "> %s\n\n", r.Source)
	}

	sb.WriteString("## Functions\n\n")
	if r.Info == nil || len(r.Info.Functions) == 0 {
		sb.WriteString("_No functions found._\n\n")
	} else {
		sb.WriteString("| Selector | Offset | Arguments | Mutability | Blocks |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, f := range r.Info.Functions {
			blocks := "-"
			if t, ok := r.Trace(f.Selector); ok {
				blocks = fmt.Sprint(len(t.Blocks))
			}
			fmt.Fprintf(&sb, "| `%s` | %d | %s | %s | %s |\n",
				f.Selector, f.BytecodeOffset, escapeCell(f.ArgumentsText()), f.MutabilityText(), blocks)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Pattern Matches\n\n")
	if r.MatchCount() == 0 {
		sb.WriteString("_No pattern matches found._\n\n")
	}
	for _, p := range r.Patterns {
		if len(p.Matches) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "### %s\n\n", p.Title)
		for i, m := range p.Matches {
			fmt.Fprintf(&sb, "**Match #%d** in `%s` at `0x%x`\n\n", i+1, m.Selector, m.Location)
			codeBlock(&sb, m.Context, nil)
		}
	}

	if opts.Full {
		writeMarkdownTraces(&sb, r.Traces)
	}
	return sb.String()
}

func writeMarkdownTraces(sb *strings.Builder, traces []analysis.FunctionTrace) {
	sb.WriteString("## Traced Functions\n\n")
	if len(traces) == 0 {
		sb.WriteString("_No blocks traced._\n\n")
		return
	}
	for _, t := range traces {
		fmt.Fprintf(sb, "### `%s` (entry `0x%x`)\n\n", t.Selector, t.Entry)
		if len(t.Blocks) == 0 {
			sb.WriteString("_No blocks traced._\n\n")
			continue
		}
		for i, b := range t.Blocks {
			fmt.Fprintf(sb, "%d. `%s`\n", i+1, b)
		}
		sb.WriteString("\n")
		codeBlock(sb, t.Instructions, t.StartsBlock)
	}
}

// RenderMarkdown renders the markdown report for a terminal of the given width.
func RenderMarkdown(w io.Writer, r *Report, opts Options, width int) error {
	renderer, err := styles.MarkdownRenderer(width)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(Markdown(r, opts))
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
