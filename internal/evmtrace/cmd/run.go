package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"evmtrace/internal/analysis"
	"evmtrace/internal/cfg"
	"evmtrace/internal/contract"
	"evmtrace/internal/detectors"
	"evmtrace/internal/report"
	"evmtrace/internal/ui/colorize"
)

type outMode int

const (
	modeTUI outMode = iota
	modeMarkdown
	modeText
	modeJSON
	modeDot
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Run a single non-interactive analysis",
		Long: `Run a single analysis in non-interactive mode and exit.
Prints the plain text report; pattern and selector flags apply as for the
root command.`,
		Example: `
# Search every function for all built-in patterns
evmtrace run contract.json -p caller-eq -p origin-eq -p delegatecall

# Quiet mode prints only the match count
evmtrace run -q contract.json
  `,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")

			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			src, name, err := sourceFor(args)
			if err != nil {
				return err
			}

			res, err := analyze(cmd.Context(), src, name, s)
			if err != nil {
				return err
			}
			if quiet {
				fmt.Fprintln(cmd.OutOrStdout(), res.MatchCount())
				return nil
			}
			return writeReport(cmd, res, modeText)
		},
	}
	runCmd.Flags().BoolP("quiet", "q", false, "Print only the number of matches")
	runCmd.Flags().BoolP("full", "f", false, "Include traced blocks, code paths, storage and the CFG")
	return runCmd
}

// sourceFor picks the document source: the argument, or stdin when piped.
func sourceFor(args []string) (contract.Source, string, error) {
	if len(args) == 1 {
		name := args[0]
		if name == "-" {
			name = "stdin"
		}
		return contract.NewFileSource(args[0]), name, nil
	}
	if stdinIsTerminal() {
		return nil, "", fmt.Errorf("no analysis document given; pass a file or pipe JSON to stdin")
	}
	return contract.NewFileSource("-"), "stdin", nil
}

// analyze loads one document, traces its functions and runs the patterns.
func analyze(ctx context.Context, src contract.Source, name string, s *settings) (*report.Report, error) {
	info, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}

	traces, err := analysis.TraceFunctions(ctx, info, analysis.TraceOptions{
		MaxSteps: s.cfg.MaxSteps,
		Workers:  s.cfg.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to trace functions: %w", err)
	}

	chain := detectors.Chain(s.patterns, s.cfg.ContextSize, s.targets...)
	res := report.Build(name, info, traces, chain)

	slog.Debug("Analysis complete",
		"source", name,
		"functions", len(info.Functions),
		"traces", len(traces),
		"patterns", len(s.patterns),
		"matches", res.MatchCount())
	return res, nil
}

func outputMode(cmd *cobra.Command) outMode {
	flags := cmd.Flags()
	if v, _ := flags.GetBool("json"); v {
		return modeJSON
	}
	if v, _ := flags.GetString("dot"); v != "" {
		return modeDot
	}
	if v, _ := flags.GetBool("plain"); v || !stdoutIsTerminal() {
		return modeText
	}

	noTUI, _ := flags.GetBool("no-tui")
	full, _ := flags.GetBool("full")
	if noTUI || full {
		return modeMarkdown
	}
	return modeTUI
}

func writeReport(cmd *cobra.Command, res *report.Report, mode outMode) error {
	out := cmd.OutOrStdout()
	full, _ := cmd.Flags().GetBool("full")
	opts := report.Options{Full: full}

	switch mode {
	case modeJSON:
		return report.JSON(out, res, opts)

	case modeDot:
		raw, _ := cmd.Flags().GetString("dot")
		sel, err := contract.ParseSelector(raw)
		if err != nil {
			return err
		}
		if _, ok := res.Info.Function(sel); !ok {
			return fmt.Errorf("function %s not found in %s", sel, res.Source)
		}
		trace, ok := res.Trace(sel)
		if !ok || len(trace.Blocks) == 0 {
			return fmt.Errorf("function %s has no traced blocks", sel)
		}
		_, err = fmt.Fprint(out, cfg.ToDot(res.Info.Graph(), trace.BlockStarts()))
		return err

	case modeMarkdown:
		width := 100
		if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
			width = w
		}
		return report.RenderMarkdown(out, res, opts, width)

	default:
		opts.Color = stdoutIsTerminal() && colorize.Enabled()
		return report.Text(out, res, opts)
	}
}
