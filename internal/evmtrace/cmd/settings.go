package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"evmtrace/internal/config"
	"evmtrace/internal/detectors"
	"evmtrace/internal/evmtrace/log"
)

const defaultPattern = "caller-eq"

// settings is the config file merged with command-line flags.
type settings struct {
	cfg      config.Config
	targets  []string
	patterns []detectors.Pattern
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	flags := cmd.Flags()

	cfg := config.Default()
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	debug, _ := flags.GetBool("debug")
	log.Setup(debug || cfg.Debug)

	if flags.Changed("max-steps") {
		cfg.MaxSteps, _ = flags.GetInt("max-steps")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("context") {
		cfg.ContextSize, _ = flags.GetInt("context")
	}
	if selectors, _ := flags.GetStringSlice("selector"); len(selectors) > 0 {
		cfg.Targets = selectors
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	patterns, err := selectPatterns(cmd, cfg)
	if err != nil {
		return nil, err
	}

	slog.Debug("Settings loaded",
		"max_steps", cfg.MaxSteps,
		"workers", cfg.Workers,
		"context", cfg.ContextSize,
		"targets", cfg.Targets,
		"patterns", len(patterns))

	return &settings{cfg: cfg, targets: cfg.Targets, patterns: patterns}, nil
}

// selectPatterns resolves --pattern names and the ad-hoc --first/--second
// pair. Without either, the config file's patterns are used, or caller-eq.
func selectPatterns(cmd *cobra.Command, cfg config.Config) ([]detectors.Pattern, error) {
	flags := cmd.Flags()
	names, _ := flags.GetStringSlice("pattern")
	first, _ := flags.GetString("first")
	second, _ := flags.GetString("second")

	var patterns []detectors.Pattern
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		p, ok := cfg.Pattern(name)
		if !ok {
			return nil, fmt.Errorf("unknown pattern %q (known: %s)", name, strings.Join(detectors.Names(), ", "))
		}
		key := strings.ToLower(p.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		patterns = append(patterns, p)
	}

	if first != "" || second != "" {
		title, _ := flags.GetString("name")
		if title == "" {
			title = fmt.Sprintf("%s+%s", first, second)
		}
		adhoc := detectors.Pattern{Name: "custom", Title: title, First: first, Second: second}
		warnings, err := adhoc.Validate()
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			slog.Warn(w)
		}
		patterns = append(patterns, adhoc)
	}

	if len(patterns) == 0 {
		if len(cfg.Patterns) > 0 {
			return cfg.Patterns, nil
		}
		p, _ := detectors.Lookup(defaultPattern)
		patterns = append(patterns, p)
	}
	return patterns, nil
}
