package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"evmtrace/internal/cfg"
	"evmtrace/internal/contract"
	"evmtrace/internal/disasm"
	"evmtrace/internal/ui/colorize"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator(" ")
	table.SetCenterSeparator("-")
	return table
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "======= %s =======\n", title)
}

// instLine formats one listing line, indented by two spaces.
func instLine(inst disasm.Inst, color bool) string {
	line := inst.String()
	if color {
		line = colorize.Instruction(line)
	}
	if text, ok := inst.ImmediateString(); ok {
		line += fmt.Sprintf("  ; %q", text)
	}
	return "  " + line
}

func joinSelectors(sels []contract.Selector) string {
	parts := make([]string, len(sels))
	for i, s := range sels {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

// Text writes the plain-text report.
func Text(w io.Writer, r *Report, opts Options) error {
	bw := &errWriter{w: w}
	info := r.Info

	section(bw, "CONTRACT ANALYSIS")
	if r.Source != "" {
		fmt.Fprintf(bw, "; %s\n", r.Source)
	}
	if info != nil {
		fmt.Fprintf(bw, "; %d functions, %d instructions, %d CFG blocks\n",
			len(info.Functions), len(info.Disassembled), len(info.Graph()))
	}
	fmt.Fprintln(bw)

	writeFunctions(bw, info)
	writePatterns(bw, r, opts)

	if opts.Full {
		writeTraces(bw, r, opts)
		writeStorage(bw, info)
		writeBasicBlocks(bw, info)
		writeGraph(bw, info)
	}
	return bw.err
}

func writeFunctions(w io.Writer, info *contract.Info) {
	if info == nil || len(info.Functions) == 0 {
		fmt.Fprintln(w, "No functions found.")
		fmt.Fprintln(w)
		return
	}

	section(w, "FUNCTIONS")
	table := newTable(w, "Selector", "Offset", "Arguments", "Mutability")
	for _, f := range info.Functions {
		table.Append([]string{
			f.Selector.String(),
			strconv.FormatUint(f.BytecodeOffset, 10),
			f.ArgumentsText(),
			f.MutabilityText(),
		})
	}
	table.Render()
	fmt.Fprintln(w)
}

func writePatterns(w io.Writer, r *Report, opts Options) {
	if r.MatchCount() == 0 {
		section(w, "NO PATTERN MATCHES FOUND")
		fmt.Fprintln(w)
		return
	}

	for _, p := range r.Patterns {
		if len(p.Matches) == 0 {
			continue
		}
		section(w, "PATTERN SEARCH: "+strings.ToUpper(p.Title))
		for i, m := range p.Matches {
			fmt.Fprintf(w, "\nMatch #%d in function %s at offset 0x%x:\n", i+1, m.Selector, m.Location)
			fmt.Fprintln(w, "Context:")
			for _, inst := range m.Context {
				fmt.Fprintln(w, instLine(inst, opts.Color))
			}
		}
		fmt.Fprintln(w)
	}
}

func writeTraces(w io.Writer, r *Report, opts Options) {
	if len(r.Traces) == 0 {
		fmt.Fprintln(w, "No blocks traced.")
		fmt.Fprintln(w)
		return
	}

	section(w, "FUNCTION BLOCKS ANALYSIS")
	for _, t := range r.Traces {
		fmt.Fprintf(w, "\nFunction: %s (offset 0x%x)\n", t.Selector, t.Entry)
		fmt.Fprintln(w, strings.Repeat("-", 50))
		if len(t.Blocks) == 0 {
			fmt.Fprintln(w, "No blocks traced.")
			continue
		}

		fmt.Fprintln(w, "Execution Blocks:")
		for i, b := range t.Blocks {
			fmt.Fprintf(w, "  Block %d: %s\n", i+1, b)
		}

		fmt.Fprintln(w, "\nDisassembled Code Path:")
		for _, inst := range t.Instructions {
			if t.StartsBlock(inst.Offset) {
				fmt.Fprintln(w, "\n  --- New Block ---")
			}
			fmt.Fprintln(w, instLine(inst, opts.Color))
		}
	}
	fmt.Fprintln(w)
}

func writeStorage(w io.Writer, info *contract.Info) {
	if info == nil || info.Storage == nil {
		fmt.Fprintln(w, "No storage records found.")
		fmt.Fprintln(w)
		return
	}

	section(w, "STORAGE RECORDS")
	table := newTable(w, "Slot", "Offset", "Type", "Reads", "Writes")
	for _, rec := range info.Storage {
		table.Append([]string{
			rec.Slot,
			strconv.Itoa(int(rec.Offset)),
			rec.Type,
			joinSelectors(rec.Reads),
			joinSelectors(rec.Writes),
		})
	}
	table.Render()
	fmt.Fprintln(w)
}

func writeBasicBlocks(w io.Writer, info *contract.Info) {
	if info == nil || info.BasicBlocks == nil {
		fmt.Fprintln(w, "No basic blocks found.")
		fmt.Fprintln(w)
		return
	}

	section(w, "BASIC BLOCKS")
	table := newTable(w, "Start", "End", "Size")
	for _, bb := range sortedBasicBlocks(info.BasicBlocks) {
		table.Append([]string{
			strconv.FormatUint(bb[0], 10),
			strconv.FormatUint(bb[1], 10),
			strconv.FormatUint(bb[1]-bb[0]+1, 10),
		})
	}
	table.Render()
	fmt.Fprintln(w)
}

func writeGraph(w io.Writer, info *contract.Info) {
	g := info.Graph()
	if g == nil {
		fmt.Fprintln(w, "No control flow graph found.")
		fmt.Fprintln(w)
		return
	}

	section(w, "CONTROL FLOW GRAPH")
	table := newTable(w, "Block", "Start", "End", "Flow Type")
	for _, start := range g.Starts() {
		b := g[start]
		table.Append([]string{
			strconv.FormatUint(start, 10),
			strconv.FormatUint(b.Start, 10),
			strconv.FormatUint(b.End, 10),
			cfg.Describe(b.Type),
		})
	}
	table.Render()
	fmt.Fprintln(w)
}

// sortedBasicBlocks orders ranges by start, keeping the last range per start.
func sortedBasicBlocks(blocks [][2]uint64) [][2]uint64 {
	byStart := make(map[uint64]uint64, len(blocks))
	for _, b := range blocks {
		byStart[b[0]] = b[1]
	}
	out := make([][2]uint64, 0, len(byStart))
	for start, end := range byStart {
		out = append(out, [2]uint64{start, end})
	}
	slices.SortFunc(out, func(a, b [2]uint64) int { return cmp.Compare(a[0], b[0]) })
	return out
}

// errWriter remembers the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
