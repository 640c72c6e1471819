// Package colorize highlights EVM instruction listings for the terminal.
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// EVM tokenizes lines of the form "0x64       PUSH2 0178".
var EVM = lexers.Register(chroma.MustNewLexer(
	&chroma.Config{
		Name:    "EVM",
		Aliases: []string{"evm", "evmasm"},
	},
	func() chroma.Rules {
		return chroma.Rules{
			"root": {
				{Pattern: `\s+`, Type: chroma.TextWhitespace},
				{Pattern: `0x[0-9a-fA-F]+`, Type: chroma.NameLabel},
				{Pattern: `;.*`, Type: chroma.Comment},
				{Pattern: `(JUMPI|JUMPDEST|JUMP|STOP|RETURN|REVERT|INVALID|SELFDESTRUCT)\b`, Type: chroma.Keyword},
				{Pattern: `(DELEGATECALL|STATICCALL|CALLCODE|CALL|CREATE2|CREATE)\b`, Type: chroma.NameException},
				{Pattern: `(CALLER|ORIGIN|CALLVALUE|TIMESTAMP|NUMBER|COINBASE|GAS|GASPRICE|ADDRESS|BALANCE|SELFBALANCE|CHAINID|BLOCKHASH)\b`, Type: chroma.NameBuiltin},
				{Pattern: `(SLOAD|SSTORE|TLOAD|TSTORE|MLOAD|MSTORE8|MSTORE|CALLDATALOAD|CALLDATACOPY|CALLDATASIZE)\b`, Type: chroma.NameVariable},
				{Pattern: `(PUSH[0-9]*|DUP[0-9]+|SWAP[0-9]+|POP)\b`, Type: chroma.KeywordPseudo},
				{Pattern: `[A-Z][A-Z0-9]*`, Type: chroma.NameFunction},
				{Pattern: `[0-9a-fA-F]+`, Type: chroma.LiteralNumberHex},
				{Pattern: `.`, Type: chroma.Text},
			},
		}
	},
))

// EVMDark is the highlighting style for instruction listings.
var EVMDark = styles.Register(chroma.MustNewStyle("evm-dark", chroma.StyleEntries{
	chroma.Text:             "#D4D4D4",
	chroma.Background:       "bg:#1e1e1e",
	chroma.Comment:          "#6A9955",
	chroma.NameLabel:        "#4F4F4F",
	chroma.Keyword:          "#C586C0",
	chroma.KeywordPseudo:    "#7C9C9D",
	chroma.NameException:    "bold #FF5F87",
	chroma.NameBuiltin:      "#FFD700",
	chroma.NameVariable:     "#4FC1FF",
	chroma.NameFunction:     "#FFFFFF",
	chroma.LiteralNumberHex: "#EACD53",
}))

// Enabled reports whether highlighting is on; EVMTRACE_NO_COLOR turns it off.
func Enabled() bool {
	return os.Getenv("EVMTRACE_NO_COLOR") == ""
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Listing highlights a multi-line instruction listing. On failure the
// input is returned unchanged along with the error.
func Listing(code string) (string, error) {
	if !Enabled() {
		return code, nil
	}

	iterator, err := EVM.Tokenise(nil, code)
	if err != nil {
		return code, err
	}

	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, EVMDark, iterator); err != nil {
		return code, err
	}
	return buf.String(), nil
}

// Instruction highlights a single formatted instruction line.
func Instruction(line string) string {
	out, err := Listing(line)
	if err != nil {
		return line
	}
	return out
}

// StripANSI removes ANSI escape sequences.
func StripANSI(s string) string {
	var result strings.Builder
	inEscape := false

	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
		} else if inEscape {
			if r == 'm' {
				inEscape = false
			}
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}
