// Package styles holds the terminal palette shared by the markdown report
// and the interactive viewer.
package styles

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

// Palette colors, as hex strings.
var (
	Foreground = charmtone.Smoke.Hex()
	Muted      = charmtone.Squid.Hex()
	Accent     = charmtone.Malibu.Hex()
	Highlight  = charmtone.Zest.Hex()
	Danger     = charmtone.Coral.Hex()
	Success    = charmtone.Guac.Hex()
	Panel      = charmtone.Charcoal.Hex()
	Brand      = charmtone.Charple.Hex()
)

func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
func uintPtr(u uint) *uint       { return &u }

func heading(prefix string, bold bool) ansi.StyleBlock {
	return ansi.StyleBlock{
		StylePrimitive: ansi.StylePrimitive{
			Prefix: prefix,
			Color:  stringPtr(Accent),
			Bold:   boolPtr(bold),
		},
	}
}

// MarkdownStyle is the glamour style of the markdown report. Match context
// is rendered as code blocks, the function overview as tables.
func MarkdownStyle() ansi.StyleConfig {
	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(Foreground)},
			Margin:         uintPtr(1),
		},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				BlockSuffix: "\n",
				Color:       stringPtr(Accent),
				Bold:        boolPtr(true),
			},
		},
		H1: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Prefix:          " ",
				Suffix:          " ",
				Color:           stringPtr(Highlight),
				BackgroundColor: stringPtr(Brand),
				Bold:            boolPtr(true),
			},
		},
		H2: heading("## ", true),
		H3: heading("### ", false),
		H4: heading("#### ", false),
		BlockQuote: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(Muted), Italic: boolPtr(true)},
			Indent:         uintPtr(1),
			IndentToken:    stringPtr("│ "),
		},
		List:   ansi.StyleList{LevelIndent: 2},
		Item:   ansi.StylePrimitive{BlockPrefix: "• "},
		Strong: ansi.StylePrimitive{Bold: boolPtr(true)},
		Emph:   ansi.StylePrimitive{Italic: boolPtr(true)},
		HorizontalRule: ansi.StylePrimitive{
			Color:  stringPtr(Panel),
			Format: "\n--------\n",
		},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(Highlight)},
		},
		CodeBlock: ansi.StyleCodeBlock{
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{Color: stringPtr(Foreground)},
				Margin:         uintPtr(2),
			},
		},
		Table: ansi.StyleTable{
			StyleBlock: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{}},
		},
		Text: ansi.StylePrimitive{},
	}
}

// MarkdownRenderer returns a glamour renderer wrapping at width.
func MarkdownRenderer(width int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithStyles(MarkdownStyle()),
		glamour.WithWordWrap(width),
	)
}

// Lipgloss styles of the interactive viewer.
var (
	Title    = lipgloss.NewStyle().Foreground(lipgloss.Color(Highlight)).Background(lipgloss.Color(Brand)).Bold(true).Padding(0, 1)
	Selected = lipgloss.NewStyle().Foreground(lipgloss.Color(Accent)).Bold(true)
	Normal   = lipgloss.NewStyle().Foreground(lipgloss.Color(Foreground))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color(Muted))
	Match    = lipgloss.NewStyle().Foreground(lipgloss.Color(Danger)).Bold(true)
	Block    = lipgloss.NewStyle().Foreground(lipgloss.Color(Success))
	Menu     = lipgloss.NewStyle().Background(lipgloss.Color(Panel)).Foreground(lipgloss.Color(Foreground)).Padding(0, 1)
)
