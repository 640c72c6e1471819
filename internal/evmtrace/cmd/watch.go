package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"

	"evmtrace/internal/contract"
	"evmtrace/internal/report"
)

func newWatchCmd() *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch <stream.jsonl>",
		Short: "Follow a JSON-lines stream of analysis documents",
		Long: `Follow a file holding one analysis document per line, as appended by a
long-running analyzer, and report pattern matches for every new document.
Malformed lines are logged and skipped.`,
		Example: `
# Follow new documents and print one JSON report per line
evmtrace watch --json analyses.jsonl

# Process the whole file once and exit
evmtrace watch --once -p caller-eq analyses.jsonl
  `,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			once, _ := cmd.Flags().GetBool("once")
			fromStart, _ := cmd.Flags().GetBool("from-start")
			poll, _ := cmd.Flags().GetBool("poll")
			asJSON, _ := cmd.Flags().GetBool("json")

			conf := tail.Config{
				Follow:    !once,
				ReOpen:    !once,
				MustExist: true,
				Poll:      poll,
				Logger:    tail.DiscardingLogger,
			}
			if !once && !fromStart {
				conf.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
			}

			t, err := tail.TailFile(args[0], conf)
			if err != nil {
				return fmt.Errorf("failed to open stream: %w", err)
			}
			defer t.Cleanup()

			w := &streamWriter{out: cmd.OutOrStdout(), settings: s, json: asJSON}
			return w.follow(cmd.Context(), t)
		},
	}
	watchCmd.Flags().Bool("once", false, "Read the existing lines and exit")
	watchCmd.Flags().Bool("from-start", false, "Process lines already in the file before following")
	watchCmd.Flags().Bool("poll", false, "Poll for changes instead of using inotify")
	watchCmd.Flags().BoolP("json", "j", false, "Print one JSON report per document")
	return watchCmd
}

// streamWriter reports on each document of a JSON-lines stream.
type streamWriter struct {
	out      io.Writer
	settings *settings
	json     bool
	seen     int
}

func (w *streamWriter) follow(ctx context.Context, t *tail.Tail) error {
	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Wait()
			}
			if line.Err != nil {
				slog.Warn("Failed to read stream line", "error", line.Err)
				continue
			}
			if err := w.handle(ctx, line.Text); err != nil {
				return err
			}
		}
	}
}

// handle reports on one line. Only output failures are returned; bad
// documents are logged and skipped.
func (w *streamWriter) handle(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	w.seen++
	name := fmt.Sprintf("document #%d", w.seen)

	res, err := analyze(ctx, contract.BytesSource(text), name, w.settings)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("Skipping document", "document", w.seen, "error", err)
		return nil
	}

	if w.json {
		return json.NewEncoder(w.out).Encode(report.NewDocument(res, report.Options{}))
	}

	if _, err := fmt.Fprintf(w.out, "%s: %d functions, %d matches\n", name, len(res.Info.Functions), res.MatchCount()); err != nil {
		return err
	}
	for _, p := range res.Patterns {
		for _, m := range p.Matches {
			if _, err := fmt.Fprintf(w.out, "  %s in %s at 0x%x\n", p.Title, m.Selector, m.Location); err != nil {
				return err
			}
		}
	}
	return nil
}
