// Package panel is a terminal view of the published context.
package panel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/mvp-joe/workbench-context/internal/clipboard"
	"github.com/mvp-joe/workbench-context/internal/summary"
)

// pollInterval is how often the analyzing flag is sampled.
const pollInterval = 200 * time.Millisecond

// previewLines is how many content lines each item shows.
const previewLines = 6

// Source is the context the panel displays. *summary.Updater satisfies it.
type Source interface {
	Items() []summary.Item
	Analyzing() bool
	Refresh(ctx context.Context) ([]summary.Item, error)
}

// ItemsMsg delivers a newly published list. Send it from the Updater's
// OnUpdate callback via tea.Program.Send.
type ItemsMsg struct {
	Items []summary.Item
	At    time.Time
}

type refreshDoneMsg struct {
	items []summary.Item
	err   error
}

type pollMsg time.Time

// Options configures the panel model.
type Options struct {
	Source       Source
	Clipboard    clipboard.Writer
	ExcerptChars int // prompt excerpt used by copy; 0 means the default
	Logger       *zap.Logger
}

// Color scheme
var (
	accentColor  = lipgloss.Color("#00D9FF")
	mutedColor   = lipgloss.Color("#6B7280")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	fileColor    = lipgloss.Color("#FCD34D")
	projectColor = lipgloss.Color("#8B5CF6")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(successColor)
	errStyle    = lipgloss.NewStyle().Foreground(errorColor)
	itemStyle   = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)
)

// Model is the bubbletea model for the context panel.
type Model struct {
	src     Source
	clip    clipboard.Writer
	excerpt int
	log     *zap.Logger

	items     []summary.Item
	updated   time.Time
	analyzing bool
	notice    string
	noticeErr bool

	spinner  spinner.Model
	viewport viewport.Model
	width    int
	height   int
}

// New creates the panel, seeded with the source's current items.
func New(opts Options) Model {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.System{}
	}
	if opts.ExcerptChars <= 0 {
		opts.ExcerptChars = summary.DefaultPromptExcerptChars
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentColor)

	m := Model{
		src:      opts.Source,
		clip:     opts.Clipboard,
		excerpt:  opts.ExcerptChars,
		log:      opts.Logger,
		items:    opts.Source.Items(),
		spinner:  s,
		viewport: viewport.New(80, 20),
		width:    80,
		height:   24,
	}
	m.analyzing = opts.Source.Analyzing()
	m.viewport.SetContent(m.renderItems())
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, poll())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "c":
			m.copyPrompt()
			return m, nil
		case "r":
			m.analyzing = true
			m.notice = ""
			return m, m.refresh()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 1) // header, status, footer
		m.viewport.SetContent(m.renderItems())
		return m, nil

	case ItemsMsg:
		m.setItems(msg.Items, msg.At)
		return m, nil

	case refreshDoneMsg:
		m.analyzing = false
		if msg.err != nil {
			m.setNotice(fmt.Sprintf("refresh failed: %v", msg.err), true)
			return m, nil
		}
		m.setItems(msg.items, time.Now())
		return m, nil

	case pollMsg:
		m.analyzing = m.src.Analyzing()
		return m, poll()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Workbench Context"))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("c copy • r refresh • ↑/↓ scroll • q quit"))

	return b.String()
}

func (m Model) statusLine() string {
	var parts []string
	if m.analyzing {
		parts = append(parts, m.spinner.View()+" Analyzing...")
	} else {
		parts = append(parts, fmt.Sprintf("%d items", len(m.items)))
		if !m.updated.IsZero() {
			parts = append(parts, "updated "+humanize.Time(m.updated))
		}
	}

	line := mutedStyle.Render(strings.Join(parts, " · "))
	if m.notice != "" {
		style := okStyle
		if m.noticeErr {
			style = errStyle
		}
		line += "  " + style.Render(m.notice)
	}
	return line
}

func (m Model) renderItems() string {
	if len(m.items) == 0 {
		return mutedStyle.Render("No context yet. Select a file in the workspace to see it here.")
	}

	width := max(m.width-2, 20)
	blocks := make([]string, 0, len(m.items))
	for _, item := range m.items {
		kind := lipgloss.NewStyle().Foreground(kindColor(item.Kind)).Render(string(item.Kind))
		heading := fmt.Sprintf("%s %s %s", titleStyle.Render(item.Title), kind,
			mutedStyle.Render(fmt.Sprintf("%.0f%%", item.Relevance*100)))
		blocks = append(blocks, itemStyle.Width(width).Render(heading+"\n"+preview(item.Content)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func (m *Model) setItems(items []summary.Item, at time.Time) {
	m.items = items
	m.updated = at
	m.analyzing = false
	m.viewport.SetContent(m.renderItems())
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m *Model) copyPrompt() {
	text := summary.RenderWithExcerpt(m.items, m.excerpt)
	switch {
	case text == "":
		m.setNotice("nothing to copy", false)
	case clipboard.Export(m.clip, text, m.log):
		m.setNotice("copied to clipboard", false)
	default:
		m.setNotice("clipboard unavailable", true)
	}
}

func (m Model) refresh() tea.Cmd {
	src := m.src
	return func() tea.Msg {
		items, err := src.Refresh(context.Background())
		return refreshDoneMsg{items: items, err: err}
	}
}

func poll() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func preview(content string) string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) > previewLines {
		lines = append(lines[:previewLines], "…")
	}
	return strings.Join(lines, "\n")
}

func kindColor(kind summary.Kind) lipgloss.Color {
	switch kind {
	case summary.KindFile:
		return fileColor
	case summary.KindProject:
		return projectColor
	default:
		return mutedColor
	}
}
