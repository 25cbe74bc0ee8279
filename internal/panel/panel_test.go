package panel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/workbench-context/internal/summary"
)

type fakeSource struct {
	items      []summary.Item
	analyzing  bool
	refreshed  []summary.Item
	refreshErr error
	calls      int
}

func (f *fakeSource) Items() []summary.Item { return f.items }
func (f *fakeSource) Analyzing() bool       { return f.analyzing }

func (f *fakeSource) Refresh(ctx context.Context) ([]summary.Item, error) {
	f.calls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshed, nil
}

type fakeClipboard struct {
	written []string
	err     error
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, text)
	return nil
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

var sampleItems = []summary.Item{
	{ID: "file:main.go", Kind: summary.KindFile, Title: "main.go", Content: "package main\n\nfunc main() {}", Relevance: summary.RelevanceActiveFile},
	{ID: "project:overview", Kind: summary.KindProject, Title: "Project Files", Content: "main.go (go, 28 chars)", Relevance: summary.RelevanceProject},
}

func TestModel_EmptyView(t *testing.T) {
	m := New(Options{Source: &fakeSource{}, Clipboard: &fakeClipboard{}})

	view := m.View()
	assert.Contains(t, view, "Workbench Context")
	assert.Contains(t, view, "No context yet")
	assert.Contains(t, view, "0 items")
}

func TestModel_ShowsItems(t *testing.T) {
	m := New(Options{Source: &fakeSource{items: sampleItems}, Clipboard: &fakeClipboard{}})

	view := m.View()
	assert.Contains(t, view, "main.go")
	assert.Contains(t, view, "Project Files")
	assert.Contains(t, view, "90%")
	assert.Contains(t, view, "2 items")
}

func TestModel_ItemsMsg(t *testing.T) {
	m := New(Options{Source: &fakeSource{}, Clipboard: &fakeClipboard{}})

	m, cmd := update(t, m, ItemsMsg{Items: sampleItems, At: time.Now()})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "2 items")
	assert.Contains(t, m.View(), "updated now")
}

func TestModel_AnalyzingIndicator(t *testing.T) {
	src := &fakeSource{analyzing: true}
	m := New(Options{Source: src, Clipboard: &fakeClipboard{}})
	assert.Contains(t, m.View(), "Analyzing...")

	src.analyzing = false
	m, cmd := update(t, m, pollMsg(time.Now()))
	assert.NotNil(t, cmd, "polling should continue")
	assert.NotContains(t, m.View(), "Analyzing...")
}

func TestModel_CopyKey(t *testing.T) {
	clip := &fakeClipboard{}
	m := New(Options{Source: &fakeSource{items: sampleItems}, Clipboard: clip})

	m, _ = update(t, m, key("c"))

	require.Len(t, clip.written, 1)
	assert.Equal(t, summary.Render(sampleItems), clip.written[0])
	assert.Contains(t, m.View(), "copied to clipboard")
}

func TestModel_CopyUsesExcerpt(t *testing.T) {
	clip := &fakeClipboard{}
	m := New(Options{Source: &fakeSource{items: sampleItems}, Clipboard: clip, ExcerptChars: 7})

	update(t, m, key("c"))

	require.Len(t, clip.written, 1)
	assert.Contains(t, clip.written[0], "```\npackage\n```")
}

func TestModel_CopyNothing(t *testing.T) {
	clip := &fakeClipboard{}
	m := New(Options{Source: &fakeSource{}, Clipboard: clip})

	m, _ = update(t, m, key("c"))

	assert.Empty(t, clip.written)
	assert.Contains(t, m.View(), "nothing to copy")
}

func TestModel_CopyFailureIsReported(t *testing.T) {
	clip := &fakeClipboard{err: errors.New("no xclip")}
	m := New(Options{Source: &fakeSource{items: sampleItems}, Clipboard: clip})

	assert.NotPanics(t, func() {
		m, _ = update(t, m, key("c"))
	})
	assert.Contains(t, m.View(), "clipboard unavailable")
}

func TestModel_RefreshKey(t *testing.T) {
	src := &fakeSource{refreshed: sampleItems}
	m := New(Options{Source: src, Clipboard: &fakeClipboard{}})

	m, cmd := update(t, m, key("r"))
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Analyzing...")

	msg := cmd()
	assert.Equal(t, 1, src.calls)

	m, _ = update(t, m, msg)
	view := m.View()
	assert.NotContains(t, view, "Analyzing...")
	assert.Contains(t, view, "2 items")
}

func TestModel_RefreshFailure(t *testing.T) {
	src := &fakeSource{items: sampleItems, refreshErr: errors.New("extractor exploded")}
	m := New(Options{Source: src, Clipboard: &fakeClipboard{}})

	m, cmd := update(t, m, key("r"))
	m, _ = update(t, m, cmd())

	view := m.View()
	assert.Contains(t, view, "refresh failed: extractor exploded")
	assert.Contains(t, view, "2 items", "the previous list should stay on screen")
}

func TestModel_QuitKeys(t *testing.T) {
	for _, k := range []tea.KeyMsg{key("q"), {Type: tea.KeyCtrlC}, {Type: tea.KeyEsc}} {
		m := New(Options{Source: &fakeSource{}, Clipboard: &fakeClipboard{}})
		_, cmd := update(t, m, k)
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestModel_WindowResize(t *testing.T) {
	m := New(Options{Source: &fakeSource{items: sampleItems}, Clipboard: &fakeClipboard{}})

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 12})
	assert.Equal(t, 40, m.viewport.Width)
	assert.Equal(t, 8, m.viewport.Height)
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("line\n", 10)
	got := preview(long)
	assert.Equal(t, previewLines+1, strings.Count(got, "\n")+1)
	assert.True(t, strings.HasSuffix(got, "…"))

	assert.Equal(t, "one\ntwo", preview("one\ntwo\n"))
}
