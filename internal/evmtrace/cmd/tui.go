package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"

	"evmtrace/internal/analysis"
	"evmtrace/internal/contract"
	"evmtrace/internal/evmtrace/styles"
	"evmtrace/internal/report"
	"evmtrace/internal/ui/colorize"
)

type viewMode int

const (
	viewOverview viewMode = iota
	viewFunctions
	viewCode
)

type analyzeFunc func(ctx context.Context) (*report.Report, error)

// reportMsg carries the finished analysis into the model.
type reportMsg struct {
	report *report.Report
	err    error
}

type functionItem struct {
	fn      contract.Function
	trace   analysis.FunctionTrace
	traced  bool
	matches []analysis.PatternMatch
}

func (i functionItem) FilterValue() string {
	return i.fn.Selector.String() + " " + i.fn.ArgumentsText()
}

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(functionItem)
	if !ok {
		return
	}

	indicator := " "
	selStyle := styles.Dim
	if index == m.Index() {
		indicator = ">"
		selStyle = styles.Selected
	}

	blocks := styles.Dim.Render("not traced")
	if i.traced {
		blocks = styles.Block.Render(fmt.Sprintf("%d blocks", len(i.trace.Blocks)))
	}
	marker := ""
	if len(i.matches) > 0 {
		marker = "  " + styles.Match.Render(fmt.Sprintf("%d match(es)", len(i.matches)))
	}

	fmt.Fprintf(w, " %s  %s  %-8s %s  %s%s",
		indicator,
		selStyle.Render(i.fn.Selector.String()),
		fmt.Sprintf("0x%x", i.fn.BytecodeOffset),
		styles.Normal.Render(i.fn.ArgumentsText()),
		blocks,
		marker)
}

type model struct {
	ctx       context.Context
	analyze   analyzeFunc
	overview  viewport.Model
	code      viewport.Model
	functions list.Model
	spinner   spinner.Model
	mode      viewMode
	report    *report.Report
	err       error
	loading   bool
	width     int
	height    int
}

func newModel(ctx context.Context, analyze analyzeFunc) model {
	overview := viewport.New()
	overview.SetWidth(80)
	overview.SetHeight(22)

	code := viewport.New()
	code.SetWidth(80)
	code.SetHeight(22)

	functions := list.New([]list.Item{}, itemDelegate{}, 80, 22)
	functions.SetShowStatusBar(false)
	functions.SetFilteringEnabled(true)
	functions.Title = "Functions"
	functions.Styles.Title = styles.Title

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Selected

	m := model{
		ctx:       ctx,
		analyze:   analyze,
		overview:  overview,
		code:      code,
		functions: functions,
		spinner:   s,
		mode:      viewOverview,
		loading:   true,
		width:     80,
		height:    24,
	}
	m.updateOverview()
	return m
}

func runAnalysisCmd(ctx context.Context, analyze analyzeFunc) tea.Cmd {
	return func() tea.Msg {
		r, err := analyze(ctx)
		return reportMsg{report: r, err: err}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		runAnalysisCmd(m.ctx, m.analyze),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case reportMsg:
		m.loading = false
		m.report, m.err = msg.report, msg.err
		if m.err != nil {
			slog.Error("Analysis failed", "error", m.err)
		}
		m.updateFunctions()
		m.updateOverview()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateOverview()
		return m, cmd

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.resize(msg.Width, msg.Height)
			m.updateOverview()
		}

	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg.String()); handled {
			return next, cmd
		}
	}

	switch m.mode {
	case viewFunctions:
		m.functions, cmd = m.functions.Update(msg)
	case viewCode:
		m.code, cmd = m.code.Update(msg)
	default:
		m.overview, cmd = m.overview.Update(msg)
	}
	return m, cmd
}

func (m *model) resize(width, height int) {
	m.width, m.height = width, height
	m.overview.SetWidth(width)
	m.overview.SetHeight(height - 2)
	m.code.SetWidth(width)
	m.code.SetHeight(height - 2)
	m.functions.SetWidth(width)
	m.functions.SetHeight(height - 2)
}

// handleKey applies navigation keys. Keys it does not handle go to the
// active view.
func (m model) handleKey(key string) (model, tea.Cmd, bool) {
	if key == "ctrl+c" {
		return m, tea.Quit, true
	}
	// While filtering, the list owns the keyboard.
	if m.mode == viewFunctions && m.functions.FilterState() == list.Filtering {
		return m, nil, false
	}

	switch key {
	case "q":
		return m, tea.Quit, true
	case "o":
		m.mode = viewOverview
		return m, nil, true
	case "f":
		if len(m.functions.Items()) > 0 {
			m.mode = viewFunctions
		}
		return m, nil, true
	case "esc":
		if m.mode == viewCode {
			m.mode = viewFunctions
			return m, nil, true
		}
	case "enter":
		if m.mode == viewFunctions {
			if item, ok := m.functions.SelectedItem().(functionItem); ok {
				m.code.SetContent(codeView(item))
				m.code.GotoTop()
				m.mode = viewCode
			}
			return m, nil, true
		}
	case "tab":
		switch m.mode {
		case viewOverview:
			if len(m.functions.Items()) > 0 {
				m.mode = viewFunctions
			}
		default:
			m.mode = viewOverview
		}
		return m, nil, true
	}
	return m, nil, false
}

func (m model) View() string {
	var content, menu string
	switch m.mode {
	case viewFunctions:
		content = m.functions.View()
		menu = " Enter: code path • /: filter • O: overview • Q: quit "
	case viewCode:
		content = m.code.View()
		menu = " Esc: functions • O: overview • Q: quit "
	default:
		content = m.overview.View()
		if len(m.functions.Items()) > 0 {
			menu = " F: functions • Tab: cycle • Q: quit "
		} else {
			menu = " Q: quit "
		}
	}

	return content + "\n" + styles.Menu.Width(m.width).Render(menu)
}

func (m *model) updateFunctions() {
	if m.report == nil || m.report.Info == nil {
		return
	}
	items := make([]list.Item, 0, len(m.report.Info.Functions))
	for _, fn := range m.report.Info.Functions {
		trace, traced := m.report.Trace(fn.Selector)
		items = append(items, functionItem{
			fn:      fn,
			trace:   trace,
			traced:  traced,
			matches: m.report.MatchesIn(fn.Selector),
		})
	}
	m.functions.SetItems(items)
}

func (m *model) updateOverview() {
	var md string
	switch {
	case m.loading:
		md = fmt.Sprintf("# evmtrace\n\n%s Tracing functions...", m.spinner.View())
	case m.err != nil:
		md = fmt.Sprintf("# evmtrace\n\n**Analysis failed:** %s", m.err)
	default:
		md = report.Markdown(m.report, report.Options{})
	}

	width := m.width
	if width == 0 {
		width = 80
	}
	renderer, err := styles.MarkdownRenderer(width - 2)
	if err != nil {
		m.overview.SetContent(md)
		return
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		rendered = md
	}
	m.overview.SetContent(strings.TrimSuffix(rendered, "\n"))
}

// codeView renders the traced code path of one function with match
// locations marked.
func codeView(item functionItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; function %s  entry 0x%x  %s  %s\n",
		item.fn.Selector, item.fn.BytecodeOffset, item.fn.ArgumentsText(), item.fn.MutabilityText())

	if !item.traced || len(item.trace.Blocks) == 0 {
		sb.WriteString("\n; no blocks traced\n")
		return sb.String()
	}

	hits := make(map[uint64]string, len(item.matches))
	for _, m := range item.matches {
		hits[m.Location] = m.Pattern
	}

	for _, inst := range item.trace.Instructions {
		if item.trace.StartsBlock(inst.Offset) {
			sb.WriteString("\n" + styles.Block.Render(fmt.Sprintf("; block 0x%x", inst.Offset)) + "\n")
		}
		line := inst.String()
		if pattern, ok := hits[inst.Offset]; ok {
			sb.WriteString(styles.Match.Render("▶ "+line) + "  " + styles.Dim.Render("; "+pattern) + "\n")
			continue
		}
		if text, ok := inst.ImmediateString(); ok {
			line = colorize.Instruction(line) + "  " + styles.Dim.Render(fmt.Sprintf("; %q", text))
		} else {
			line = colorize.Instruction(line)
		}
		sb.WriteString("  " + line + "\n")
	}
	return sb.String()
}

func runTUI(ctx context.Context, analyze analyzeFunc) error {
	program := tea.NewProgram(
		newModel(ctx, analyze),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	final, err := program.Run()
	if err != nil {
		slog.Error("TUI run error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	if m, ok := final.(model); ok && m.err != nil {
		return m.err
	}
	return nil
}
