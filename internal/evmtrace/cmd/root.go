package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"evmtrace/internal/analysis"
	"evmtrace/internal/report"
)

// Overridable in tests.
var (
	stdoutIsTerminal = func() bool { return term.IsTerminal(os.Stdout.Fd()) }
	stdinIsTerminal  = func() bool { return term.IsTerminal(os.Stdin.Fd()) }
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "evmtrace [analysis.json]",
		Short: "Trace EVM function paths and search opcode patterns",
		Long: `Evmtrace follows the control-flow graph of each function found by a bytecode
analyzer, materializes the instructions on its reachable path and searches
them for opcode pairs such as CALLER followed by EQ.

The input is the analyzer's JSON document, read from a file or from stdin.`,
		Example: `
# Explore an analysis document interactively
evmtrace contract.json

# Search two selectors for authorization checks and print plain text
evmtrace -n -s 0xfa461e33 -s 0xd0f61a17 contract.json

# Ad-hoc pattern with three instructions of context
evmtrace --first ORIGIN --second EQ -C 3 contract.json

# Graphviz of one traced function
evmtrace --dot 0xfa461e33 contract.json | dot -Tsvg > fn.svg
  `,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runRoot,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolP("debug", "d", false, "Debug")
	pf.String("config", "", "YAML config file")
	pf.StringSliceP("selector", "s", nil, "Target selector or signature, repeatable (default: every traced function)")
	pf.StringSliceP("pattern", "p", nil, "Pattern name, repeatable (see 'evmtrace patterns')")
	pf.String("first", "", "First opcode of an ad-hoc pattern")
	pf.String("second", "", "Opcode that must follow --first within the lookahead window")
	pf.String("name", "", "Title of the ad-hoc pattern")
	pf.IntP("context", "C", analysis.DefaultContextSize, "Instructions of context around each match")
	pf.Int("max-steps", analysis.MaxTraceSteps, "Step ceiling of the block tracer")
	pf.Int("workers", 0, "Concurrent function traces (0: one per CPU)")

	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().BoolP("no-tui", "n", false, "Show the report without TUI")
	rootCmd.Flags().BoolP("full", "f", false, "Include traced blocks, code paths, storage and the CFG (implies --no-tui)")
	rootCmd.Flags().BoolP("json", "j", false, "Output results as JSON")
	rootCmd.Flags().Bool("plain", false, "Plain text tables instead of rendered markdown")
	rootCmd.Flags().String("dot", "", "Print the traced CFG of one function as Graphviz DOT")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")

	rootCmd.AddCommand(newRunCmd(), newWatchCmd(), newSchemaCmd(), newPatternsCmd())
	return rootCmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	memprofile, _ := cmd.Flags().GetString("memprofile")
	if memprofile != "" {
		defer func() {
			f, err := os.Create(memprofile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", err)
				return
			}
			defer f.Close()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", err)
			}
		}()
	}

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	src, name, err := sourceFor(args)
	if err != nil {
		return err
	}

	mode := outputMode(cmd)
	if mode == modeTUI {
		return runTUI(cmd.Context(), func(ctx context.Context) (*report.Report, error) {
			return analyze(ctx, src, name, s)
		})
	}

	res, err := analyze(cmd.Context(), src, name, s)
	if err != nil {
		return err
	}
	return writeReport(cmd, res, mode)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func execute(args []string) error {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)

	// Plain output bypasses fang's styled help and error rendering.
	plain := !stdoutIsTerminal()
	for _, arg := range args {
		switch arg {
		case "--no-tui", "-n", "--full", "-f", "--json", "-j", "--plain":
			plain = true
		}
	}

	if plain {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return rootCmd.ExecuteContext(ctx)
	}
	return fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	)
}
