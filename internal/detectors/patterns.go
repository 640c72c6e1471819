// Package detectors holds the opcode-pair patterns evmtrace searches for
// and adapts them to the analysis.Detector interface.
package detectors

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/core/vm"
)

// Pattern is an ordered opcode pair searched within traced functions.
type Pattern struct {
	Name    string   `yaml:"name" json:"name" jsonschema:"required,description=Short identifier used on the command line"`
	Title   string   `yaml:"title,omitempty" json:"title,omitempty" jsonschema:"description=Label printed with each match"`
	First   string   `yaml:"first" json:"first" jsonschema:"required,description=Opcode text of the first instruction"`
	Second  string   `yaml:"second" json:"second" jsonschema:"required,description=Opcode text within the lookahead window"`
	Context *int     `yaml:"context,omitempty" json:"context,omitempty" jsonschema:"minimum=0,description=Instructions of context on each side"`
	Targets []string `yaml:"targets,omitempty" json:"targets,omitempty" jsonschema:"description=Selectors to search; empty means all traced functions"`
}

// Label returns the title, falling back to the name.
func (p Pattern) Label() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}

// ContextSize returns the configured context or fallback when unset.
func (p Pattern) ContextSize(fallback int) int {
	if p.Context == nil {
		return fallback
	}
	return *p.Context
}

// Validate rejects unusable patterns. Opcodes that are not EVM mnemonics
// are reported as warnings since matching is by substring.
func (p Pattern) Validate() (warnings []string, err error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("pattern has no name")
	}
	if strings.TrimSpace(p.First) == "" || strings.TrimSpace(p.Second) == "" {
		return nil, fmt.Errorf("pattern %s: both opcodes are required", p.Name)
	}
	if p.Context != nil && *p.Context < 0 {
		return nil, fmt.Errorf("pattern %s: negative context %d", p.Name, *p.Context)
	}
	for _, op := range []string{p.First, p.Second} {
		if !IsMnemonic(op) {
			warnings = append(warnings, fmt.Sprintf("pattern %s: %q is not an EVM mnemonic, matching as substring", p.Name, op))
		}
	}
	return warnings, nil
}

// IsMnemonic reports whether op names an EVM opcode.
func IsMnemonic(op string) bool {
	op = strings.ToUpper(strings.TrimSpace(op))
	return op == "STOP" || vm.StringToOp(op) != vm.STOP
}

func intp(n int) *int { return &n }

var builtin = []Pattern{
	{Name: "caller-eq", Title: "Authorization Check (CALLER+EQ)", First: "CALLER", Second: "EQ"},
	{Name: "origin-eq", Title: "Origin Check (ORIGIN+EQ)", First: "ORIGIN", Second: "EQ"},
	{Name: "caller-sload", Title: "Caller Lookup (CALLER+SLOAD)", First: "CALLER", Second: "SLOAD"},
	{Name: "timestamp-lt", Title: "Time Lock (TIMESTAMP+LT)", First: "TIMESTAMP", Second: "LT"},
	{Name: "delegatecall", Title: "Delegated Call (GAS+DELEGATECALL)", First: "GAS", Second: "DELEGATECALL", Context: intp(3)},
	{Name: "selfdestruct", Title: "Self Destruct (CALLER+SELFDESTRUCT)", First: "CALLER", Second: "SELFDESTRUCT"},
}

// Builtin returns a copy of the built-in catalog.
func Builtin() []Pattern {
	return slices.Clone(builtin)
}

// Lookup finds a pattern by name in the built-in catalog and extra, with
// extra taking precedence.
func Lookup(name string, extra ...Pattern) (Pattern, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range extra {
		if strings.ToLower(p.Name) == name {
			return p, true
		}
	}
	for _, p := range builtin {
		if p.Name == name {
			return p, true
		}
	}
	return Pattern{}, false
}

// Names lists the built-in pattern names.
func Names() []string {
	names := make([]string, len(builtin))
	for i, p := range builtin {
		names[i] = p.Name
	}
	return names
}
