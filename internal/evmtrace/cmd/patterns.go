package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"evmtrace/internal/analysis"
	"evmtrace/internal/detectors"
)

func newPatternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List the searchable patterns",
		Long:  "List the built-in patterns and those defined in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Name", "Title", "First", "Second", "Context", "Source"})
			table.SetAutoFormatHeaders(false)
			table.SetAutoWrapText(false)
			table.SetBorder(false)

			row := func(p detectors.Pattern, source string) []string {
				return []string{p.Name, p.Label(), p.First, p.Second, strconv.Itoa(p.ContextSize(s.cfg.ContextSize)), source}
			}
			for _, p := range s.cfg.Patterns {
				table.Append(row(p, "config"))
			}
			for _, p := range detectors.Builtin() {
				if shadowed(p, s.cfg.Patterns) {
					continue
				}
				table.Append(row(p, "builtin"))
			}
			table.Render()

			fmt.Fprintf(cmd.OutOrStdout(), "\nSecond opcode is searched up to %d instructions after the first.\n", analysis.LookaheadWindow-1)
			return nil
		},
	}
}

// shadowed reports whether a config pattern replaces p.
func shadowed(p detectors.Pattern, extra []detectors.Pattern) bool {
	for _, e := range extra {
		if strings.EqualFold(e.Name, p.Name) {
			return true
		}
	}
	return false
}
