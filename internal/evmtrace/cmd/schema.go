package cmd

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"evmtrace/internal/cfg"
	"evmtrace/internal/config"
	"evmtrace/internal/contract"
	"evmtrace/internal/disasm"
	"evmtrace/internal/report"
)

var schemaTargets = map[string]any{
	"config":   &config.Config{},
	"document": &contract.Info{},
	"report":   &report.Document{},
}

// schemaMapper describes the types with custom JSON codecs.
func schemaMapper(t reflect.Type) *jsonschema.Schema {
	switch t {
	case reflect.TypeOf(contract.Selector{}):
		return &jsonschema.Schema{
			Type:        "string",
			Pattern:     "^0x[0-9a-f]{8}$",
			Description: "4-byte function selector",
		}
	case reflect.TypeOf(disasm.Inst{}):
		return &jsonschema.Schema{
			Type:        "array",
			Description: "[offset, instruction text] tuple",
		}
	case reflect.TypeOf(cfg.Block{}):
		return &jsonschema.Schema{
			Type:        "object",
			Required:    []string{"start", "end", "btype"},
			Description: "Block range with exactly one btype: Jump, Jumpi, DynamicJump, DynamicJumpi or Terminate",
		}
	}
	return nil
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [config|document|report]",
		Short:     "Generate JSON schema",
		Long:      "Generate the JSON schema of the config file, the analysis document or the JSON report",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"config", "document", "report"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "config"
			if len(args) == 1 {
				target = args[0]
			}

			reflector := &jsonschema.Reflector{Mapper: schemaMapper}
			bts, err := json.MarshalIndent(reflector.Reflect(schemaTargets[target]), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bts))
			return nil
		},
	}
}
