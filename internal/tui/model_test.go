package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Mr-Dark-debug/arbor/internal/loader"
	"github.com/Mr-Dark-debug/arbor/internal/tree"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"
)

// memDocs serves node documents by base name and counts fetches.
type memDocs struct {
	docs  map[string]string
	calls map[string]int
	fail  map[string]error
}

func newMemDocs(docs map[string]string) *memDocs {
	return &memDocs{docs: docs, calls: make(map[string]int), fail: make(map[string]error)}
}

func (d *memDocs) Fetch(ctx context.Context, source string) ([]byte, error) {
	name := filepath.Base(source)
	d.calls[name]++
	if err := d.fail[name]; err != nil {
		return nil, err
	}
	body, ok := d.docs[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", source, loader.ErrNotFound)
	}
	return []byte(body), nil
}

func newTestModel(t *testing.T, docs *memDocs) Model {
	t.Helper()
	l := loader.New(loader.Options{File: docs})
	m := NewModel("root.json", Options{Loader: l, Tree: tree.DefaultOptions()})
	m = update(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return drive(t, m, m.Init())
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

// drive runs cmd and every command it leads to, feeding the messages back
// through Update. Spinner ticks and quit messages are dropped.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, spinner.TickMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			next, nc := m.Update(msg)
			m = next.(Model)
			queue = append(queue, nc)
		}
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// press sends each key and runs the resulting commands.
func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(keyMsg(k))
		m = drive(t, next.(Model), cmd)
	}
	return m
}

func focused(m Model) string {
	if n := m.Tree().Focused(); n != nil {
		return n.Label
	}
	return ""
}

func visibleLabels(m Model) []string {
	var out []string
	for _, n := range m.Tree().Visible() {
		out = append(out, n.Label)
	}
	return out
}

func sampleDocs() *memDocs {
	return newMemDocs(map[string]string{
		"root.json": `[{"label":"A","childrenURL":"a.json"},{"label":"B","color":"red"}]`,
		"a.json":    `[{"label":"A1"},{"label":"A2"}]`,
	})
}

func TestInitLoadsRoot(t *testing.T) {
	m := newTestModel(t, sampleDocs())

	if !m.mounted || m.err != nil {
		t.Fatalf("expected a mounted tree, err=%v", m.err)
	}
	if diff := cmp.Diff([]string{"A", "B"}, visibleLabels(m)); diff != "" {
		t.Errorf("visible mismatch (-want +got):\n%s", diff)
	}
	if got := focused(m); got != "A" {
		t.Errorf("focus=%q, want A", got)
	}

	view := m.View()
	for _, want := range []string{"ARBOR", "root.json", "▸ A", "B"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestKeyboardWalkthrough(t *testing.T) {
	docs := sampleDocs()
	m := newTestModel(t, docs)

	m = press(t, m, "right")
	if got := focused(m); got != "A1" {
		t.Fatalf("expand A: focus=%q, want A1", got)
	}
	if docs.calls["a.json"] != 1 {
		t.Errorf("expected one fetch of a.json, got %d", docs.calls["a.json"])
	}
	if m.inflight != 0 {
		t.Errorf("inflight=%d after load", m.inflight)
	}

	m = press(t, m, "down")
	if got := focused(m); got != "A2" {
		t.Fatalf("down: focus=%q, want A2", got)
	}
	m = press(t, m, "k")
	if got := focused(m); got != "A1" {
		t.Fatalf("k: focus=%q, want A1", got)
	}

	m = press(t, m, "h")
	if got := focused(m); got != "A" {
		t.Fatalf("collapse A1: focus=%q, want A", got)
	}

	// A is still expanded; enter collapses it and a second enter reopens
	// it without fetching again.
	m = press(t, m, "enter")
	if diff := cmp.Diff([]string{"A", "B"}, visibleLabels(m)); diff != "" {
		t.Errorf("after collapse (-want +got):\n%s", diff)
	}
	m = press(t, m, "enter")
	if got := focused(m); got != "A1" {
		t.Errorf("re-expand: focus=%q, want A1", got)
	}
	if docs.calls["a.json"] != 1 {
		t.Errorf("re-expand fetched again: %d calls", docs.calls["a.json"])
	}

	m = press(t, m, "up", "up")
	if got := focused(m); got != "A" {
		t.Errorf("up at the top should stay on A, got %q", got)
	}
}

func TestFailedLoadCanBeRetried(t *testing.T) {
	docs := sampleDocs()
	docs.fail["a.json"] = errors.New("connection reset")
	m := newTestModel(t, docs)

	m = press(t, m, "right")
	a := m.Tree().FindByLabel("A")
	if a.State != tree.LoadFailed || a.Expanded {
		t.Fatalf("A state=%s expanded=%v, want failed and collapsed", a.State, a.Expanded)
	}
	if got := focused(m); got != "A" {
		t.Errorf("failed load moved focus to %q", got)
	}
	if !strings.HasPrefix(m.statusMsg, "Error loading") {
		t.Errorf("status=%q", m.statusMsg)
	}
	if !strings.Contains(m.View(), "✗ A") {
		t.Errorf("failed glyph missing:\n%s", m.View())
	}

	delete(docs.fail, "a.json")
	m = press(t, m, "right")
	if got := focused(m); got != "A1" {
		t.Errorf("retry: focus=%q, want A1", got)
	}
	if docs.calls["a.json"] != 2 {
		t.Errorf("expected 2 fetches, got %d", docs.calls["a.json"])
	}
}

func TestReloadDropsStaleResults(t *testing.T) {
	docs := sampleDocs()
	m := newTestModel(t, docs)

	next, pending := m.Update(keyMsg("right"))
	m = next.(Model)
	if m.inflight != 1 {
		t.Fatalf("inflight=%d, want 1", m.inflight)
	}

	m = press(t, m, "r")
	if m.gen != 1 || m.inflight != 0 {
		t.Fatalf("gen=%d inflight=%d after reload", m.gen, m.inflight)
	}

	m = drive(t, m, pending)
	if m.Tree().FindByLabel("A1") != nil {
		t.Error("a result from the previous mount was attached")
	}
	if diff := cmp.Diff([]string{"A", "B"}, visibleLabels(m)); diff != "" {
		t.Errorf("visible mismatch (-want +got):\n%s", diff)
	}
	if docs.calls["root.json"] != 2 {
		t.Errorf("expected the root to be fetched twice, got %d", docs.calls["root.json"])
	}
}

func TestMouse(t *testing.T) {
	docs := sampleDocs()
	m := newTestModel(t, docs)

	// Glyph column of A (first row).
	next, cmd := m.Update(tea.MouseMsg{X: paddingCols, Y: rowTop, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	m = drive(t, next.(Model), cmd)
	if diff := cmp.Diff([]string{"A", "A1", "A2", "B"}, visibleLabels(m)); diff != "" {
		t.Fatalf("glyph click should expand A (-want +got):\n%s", diff)
	}

	// Label of B (fourth row) only focuses.
	m = update(m, tea.MouseMsg{X: 20, Y: rowTop + 3, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if got := focused(m); got != "B" {
		t.Errorf("label click: focus=%q, want B", got)
	}

	// Label click on A does not toggle it.
	m = update(m, tea.MouseMsg{X: 20, Y: rowTop, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if got := focused(m); got != "A" || !m.Tree().FindByLabel("A").Expanded {
		t.Errorf("label click on A: focus=%q expanded=%v", got, m.Tree().FindByLabel("A").Expanded)
	}

	m = update(m, tea.MouseMsg{X: 20, Y: rowTop, Button: tea.MouseButtonWheelDown})
	if got := focused(m); got != "A1" {
		t.Errorf("wheel down: focus=%q, want A1", got)
	}

	// Clicks below the last row are ignored.
	m = update(m, tea.MouseMsg{X: 20, Y: rowTop + 10, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if got := focused(m); got != "A1" {
		t.Errorf("click on empty space moved focus to %q", got)
	}
}

func TestMouseWideGlyphs(t *testing.T) {
	l := loader.New(loader.Options{File: sampleDocs()})
	m := NewModel("root.json", Options{Loader: l, Glyphs: Glyphs{Collapsed: "+", Expanded: "[-]"}})
	m = update(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m = drive(t, m, m.Init())

	next, cmd := m.Update(tea.MouseMsg{X: paddingCols, Y: rowTop, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	m = drive(t, next.(Model), cmd)
	if !m.Tree().FindByLabel("A").Expanded {
		t.Fatal("glyph click should expand A")
	}

	// Last cell of the three-cell expanded glyph.
	m = update(m, tea.MouseMsg{X: paddingCols + 2, Y: rowTop, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if a := m.Tree().FindByLabel("A"); a.Expanded {
		t.Errorf("click on the expanded glyph should collapse A, focus=%q", focused(m))
	}

	// Past the collapsed glyph and its gap is the label.
	m = update(m, tea.MouseMsg{X: paddingCols + 2, Y: rowTop, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if m.Tree().FindByLabel("A").Expanded {
		t.Error("click on the label of a collapsed row should not expand it")
	}
}

func nestedDocs() *memDocs {
	return newMemDocs(map[string]string{
		"root.json": `[
			{"label":"Fruits","nodes":[{"label":"Apple"},{"label":"Banana"}]},
			{"label":"Vegetables","nodes":[{"label":"Carrot"},{"label":"Cabbage"}]}
		]`,
	})
}

func TestExpandLoaded(t *testing.T) {
	m := newTestModel(t, nestedDocs())

	m = press(t, m, "E")
	want := []string{"Fruits", "Apple", "Banana", "Vegetables", "Carrot", "Cabbage"}
	if diff := cmp.Diff(want, visibleLabels(m)); diff != "" {
		t.Errorf("visible mismatch (-want +got):\n%s", diff)
	}
	if got := focused(m); got != "Fruits" {
		t.Errorf("focus=%q, want Fruits", got)
	}
}

func TestSearch(t *testing.T) {
	m := newTestModel(t, nestedDocs())

	m = press(t, m, "/", "c", "a", "r", "r")
	if !m.searchMode {
		t.Fatal("expected search mode")
	}
	if got := focused(m); got != "Carrot" {
		t.Fatalf("focus=%q, want Carrot", got)
	}
	if !m.Tree().FindByLabel("Vegetables").Expanded {
		t.Error("the match's ancestors should be revealed")
	}

	m = press(t, m, "backspace", "backspace", "backspace", "enter")
	if m.searchMode {
		t.Error("enter should leave search mode")
	}
	if len(m.matches) < 2 {
		t.Fatalf("expected several matches for %q, got %d", m.searchQuery, len(m.matches))
	}

	first := focused(m)
	m = press(t, m, "n")
	if focused(m) == first {
		t.Errorf("n should move to the next match, still on %q", first)
	}

	m = press(t, m, "/", "z", "z", "z")
	if len(m.matches) != 0 || !strings.HasPrefix(m.statusMsg, "No match") {
		t.Errorf("matches=%d status=%q", len(m.matches), m.statusMsg)
	}
	m = press(t, m, "esc")
	if m.searchMode || m.searchQuery != "" {
		t.Error("esc should clear the search")
	}
}

func TestSearchModeSwallowsKeys(t *testing.T) {
	m := newTestModel(t, nestedDocs())
	next, cmd := m.Update(keyMsg("/"))
	m = drive(t, next.(Model), cmd)

	_, cmd = m.Update(keyMsg("q"))
	if cmd != nil {
		t.Error("q in search mode must not quit")
	}
}

func TestCopyPath(t *testing.T) {
	var copied string
	orig := writeClipboard
	writeClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { writeClipboard = orig })

	m := newTestModel(t, nestedDocs())
	m = press(t, m, "/", "c", "a", "r", "r", "enter", "y")

	if copied != "Vegetables / Carrot" {
		t.Errorf("copied %q", copied)
	}
	if m.statusMsg != "Copied Vegetables / Carrot" {
		t.Errorf("status=%q", m.statusMsg)
	}
}

func TestHelpAndQuit(t *testing.T) {
	m := newTestModel(t, sampleDocs())

	m = press(t, m, "?")
	if !m.showHelp || !strings.Contains(m.View(), "collapse") {
		t.Errorf("help not shown:\n%s", m.View())
	}

	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestRootLoadFailure(t *testing.T) {
	m := newTestModel(t, newMemDocs(nil))

	if m.err == nil || !errors.Is(m.err, loader.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", m.err)
	}
	if !strings.Contains(m.View(), "Could not load root.json") {
		t.Errorf("error state missing:\n%s", m.View())
	}

	// Keys on an empty tree are no-ops.
	m = press(t, m, "down", "right", "enter", "left", "y")
	if m.Tree().Len() != 0 {
		t.Error("tree should stay empty")
	}
}

func TestScrollKeepsFocusVisible(t *testing.T) {
	var records []string
	for i := 0; i < 30; i++ {
		records = append(records, fmt.Sprintf(`{"label":"item %02d"}`, i))
	}
	docs := newMemDocs(map[string]string{"root.json": "[" + strings.Join(records, ",") + "]"})

	l := loader.New(loader.Options{File: docs})
	m := NewModel("root.json", Options{Loader: l, Tree: tree.DefaultOptions()})
	m = update(m, tea.WindowSizeMsg{Width: 60, Height: 10})
	m = drive(t, m, m.Init())

	rows := m.viewportRows()
	for i := 0; i < 20; i++ {
		m = press(t, m, "down")
	}
	if got := focused(m); got != "item 20" {
		t.Fatalf("focus=%q", got)
	}
	if m.offset != 20-rows+1 {
		t.Errorf("offset=%d, want %d", m.offset, 20-rows+1)
	}
	if !strings.Contains(m.View(), "item 20") || strings.Contains(m.View(), "item 00") {
		t.Errorf("scroll window wrong:\n%s", m.View())
	}

	for i := 0; i < 20; i++ {
		m = press(t, m, "up")
	}
	if m.offset != 0 {
		t.Errorf("offset=%d after scrolling back", m.offset)
	}
}

func TestGlyphOverrides(t *testing.T) {
	l := loader.New(loader.Options{File: sampleDocs()})
	m := NewModel("root.json", Options{Loader: l, Glyphs: Glyphs{Collapsed: "+"}})
	m = update(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m = drive(t, m, m.Init())

	if m.glyphs.Collapsed != "+" || m.glyphs.Expanded != "▾" {
		t.Errorf("glyphs=%+v", m.glyphs)
	}
	if !strings.Contains(m.View(), "+ A") {
		t.Errorf("custom glyph missing:\n%s", m.View())
	}
}

func TestWatchRemounts(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "root.json")
	if err := os.WriteFile(root, []byte(`[{"label":"v1"}]`), 0o644); err != nil {
		t.Fatalf("writing root: %v", err)
	}

	m := NewModel(root, Options{Loader: loader.New(loader.Options{}), Watch: true})
	t.Cleanup(m.Close)
	m = update(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m = drive(t, m, m.loadRoot())

	started, ok := startWatch(root)().(watchStartedMsg)
	if !ok {
		t.Fatal("expected the watcher to start")
	}
	next, wait := m.Update(started)
	m = next.(Model)
	t.Cleanup(m.Close)

	changed := make(chan tea.Msg, 1)
	go func() { changed <- wait() }()

	if err := os.WriteFile(root, []byte(`[{"label":"v2"}]`), 0o644); err != nil {
		t.Fatalf("rewriting root: %v", err)
	}

	var msg tea.Msg
	select {
	case msg = <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change detected")
	}
	if _, ok := msg.(sourceChangedMsg); !ok {
		t.Fatalf("got %T, want sourceChangedMsg", msg)
	}

	m = update(m, msg)
	if m.gen != 1 || m.mounted {
		t.Fatalf("gen=%d mounted=%v after change", m.gen, m.mounted)
	}
	m = drive(t, m, m.loadRoot())
	if got := focused(m); got != "v2" {
		t.Errorf("focus=%q, want v2", got)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello w…"},
		{"日本語テキスト", 5, "日本…"},
		{"abc", 1, "a"},
		{"abc", 0, ""},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d)=%q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestColorStyle(t *testing.T) {
	if got := colorStyle("Red").GetForeground(); got != colorRed {
		t.Errorf("red maps to %v", got)
	}
	if got := colorStyle("#abcdef").GetForeground(); got != lipgloss.Color("#abcdef") {
		t.Errorf("hex maps to %v", got)
	}
	if got := colorStyle("chartreuse-ish").GetForeground(); got != colorText {
		t.Errorf("unknown color maps to %v", got)
	}
}
