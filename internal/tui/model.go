package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mr-Dark-debug/arbor/internal/loader"
	"github.com/Mr-Dark-debug/arbor/internal/logx"
	"github.com/Mr-Dark-debug/arbor/internal/tree"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// ────────────────────────────────────────────────────────────
// Options
// ────────────────────────────────────────────────────────────

// Glyphs are the expand affordances drawn in front of each label.
type Glyphs struct {
	Collapsed string
	Expanded  string
	Failed    string
}

// DefaultGlyphs returns the built-in affordances.
func DefaultGlyphs() Glyphs {
	return Glyphs{Collapsed: "▸", Expanded: "▾", Failed: "✗"}
}

// Options configures the navigator.
type Options struct {
	// Loader fetches the root and every lazy subtree. Required.
	Loader *loader.Loader
	// Tree tunes navigation and failed-load handling.
	Tree tree.Options
	// Glyphs overrides the affordances; zero fields keep the defaults.
	Glyphs Glyphs
	// Watch remounts the tree when a local root document changes.
	Watch bool
	// Logger receives load and watch events.
	Logger *log.Logger
	// Context bounds every load; cancelled loads are dropped.
	Context context.Context
}

// ────────────────────────────────────────────────────────────
// Model
// ────────────────────────────────────────────────────────────

// Model is the root BubbleTea model of the navigator.
//
// The tree is only ever mutated inside Update. Loads run as tea.Cmds and
// come back as messages tagged with the mount generation, so results of a
// previous mount are dropped after a reload.
type Model struct {
	source string
	loader *loader.Loader
	logger *log.Logger
	opts   Options
	glyphs Glyphs

	// Data
	tree     *tree.Tree
	mounted  bool
	gen      int
	inflight int

	// Loads
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	watcher *fsnotify.Watcher

	// UI state
	keys        keyMap
	help        help.Model
	spinner     spinner.Model
	width       int
	height      int
	offset      int
	showHelp    bool
	searchMode  bool
	searchQuery string
	matches     []uuid.UUID
	matchIdx    int

	// Status
	statusMsg string
	err       error
}

// NewModel creates a navigator for the node document at source.
// Nothing is fetched until Init runs.
func NewModel(source string, opts Options) Model {
	g := DefaultGlyphs()
	if opts.Glyphs.Collapsed != "" {
		g.Collapsed = opts.Glyphs.Collapsed
	}
	if opts.Glyphs.Expanded != "" {
		g.Expanded = opts.Glyphs.Expanded
	}
	if opts.Glyphs.Failed != "" {
		g.Failed = opts.Glyphs.Failed
	}

	logger := opts.Logger
	if logger == nil {
		logger = logx.Discard()
	}
	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	sp.Style = nodeLoadingStyle

	return Model{
		source:    source,
		loader:    opts.Loader,
		logger:    logger,
		opts:      opts,
		glyphs:    g,
		tree:      tree.New(opts.Tree),
		parent:    parent,
		ctx:       ctx,
		cancel:    cancel,
		keys:      defaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		statusMsg: fmt.Sprintf("Loading %s...", source),
	}
}

// Tree returns the navigator's tree.
func (m Model) Tree() *tree.Tree { return m.tree }

// Close cancels in-flight loads and stops watching the source.
func (m Model) Close() {
	m.cancel()
	if m.watcher != nil {
		m.watcher.Close()
	}
}

// ────────────────────────────────────────────────────────────
// Messages
// ────────────────────────────────────────────────────────────

type rootLoadedMsg struct {
	gen     int
	records []tree.Record
	err     error
}

type subtreeLoadedMsg struct {
	gen int
	res tree.LoadResult
}

type copiedMsg struct {
	path string
	err  error
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// ────────────────────────────────────────────────────────────
// Init
// ────────────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadRoot()}
	if m.opts.Watch {
		cmds = append(cmds, startWatch(m.source))
	}
	return tea.Batch(cmds...)
}

func (m Model) loadRoot() tea.Cmd {
	ctx, gen, l, source := m.ctx, m.gen, m.loader, m.source
	return func() tea.Msg {
		records, err := l.Load(ctx, source)
		return rootLoadedMsg{gen: gen, records: records, err: err}
	}
}

func (m Model) loadSubtree(req tree.LoadRequest) tea.Cmd {
	ctx, gen, l := m.ctx, m.gen, m.loader
	return func() tea.Msg {
		return subtreeLoadedMsg{gen: gen, res: l.LoadChildren(ctx, req)}
	}
}

// ────────────────────────────────────────────────────────────
// Update
// ────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		m, cmd = m.handleKey(msg)

	case tea.MouseMsg:
		m, cmd = m.handleMouse(msg)

	case spinner.TickMsg:
		if m.inflight == 0 {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case rootLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.mounted = true
		if msg.err != nil {
			m.err = msg.err
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			break
		}
		m.err = nil
		m.tree.Render(m.source, msg.records, uuid.Nil, true)
		m.statusMsg = fmt.Sprintf("%d nodes from %s", len(msg.records), m.source)

	case subtreeLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.inflight = max(m.inflight-1, 0)
		m.tree.Attach(msg.res)
		if msg.res.Err != nil {
			m.statusMsg = fmt.Sprintf("Error loading %s: %v", msg.res.Source, msg.res.Err)
		} else {
			m.statusMsg = fmt.Sprintf("Loaded %d nodes from %s", len(msg.res.Records), msg.res.Source)
		}

	case watchStartedMsg:
		m.watcher = msg.w
		cmd = waitForChange(msg.w, msg.file)

	case watchErrMsg:
		m.logger.Warn("watch error", "file", msg.file, "err", msg.err)
		cmd = waitForChange(m.watcher, msg.file)

	case sourceChangedMsg:
		m.logger.Info("source changed, remounting", "source", m.source)
		m = m.remount()
		cmd = tea.Batch(m.loadRoot(), waitForChange(m.watcher, msg.file))

	case copiedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Copy failed: %v", msg.err)
		} else {
			m.statusMsg = "Copied " + msg.path
		}

	case errMsg:
		m.logger.Warn("navigator error", "err", msg.err)
		m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
	}

	m.syncScroll()
	return m, cmd
}

// handleKey routes keyboard input based on the current mode.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.Close()
		return m, tea.Quit
	}

	// ── Search mode ──

	if m.searchMode {
		switch msg.Type {
		case tea.KeyEsc:
			m.searchMode = false
			m.searchQuery = ""
			m.matches = nil
		case tea.KeyEnter:
			m.searchMode = false
		case tea.KeyBackspace:
			if r := []rune(m.searchQuery); len(r) > 0 {
				m.searchQuery = string(r[:len(r)-1])
				m.runSearch()
			}
		case tea.KeySpace:
			m.searchQuery += " "
			m.runSearch()
		case tea.KeyRunes:
			m.searchQuery += string(msg.Runes)
			m.runSearch()
		}
		return m, nil
	}

	// ── Tree ──

	focused := m.tree.Focused()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.tree.MoveUp()

	case key.Matches(msg, m.keys.Down):
		m.tree.MoveDown()

	case key.Matches(msg, m.keys.Collapse):
		if focused != nil {
			m.tree.Collapse(focused.ID)
		}

	case key.Matches(msg, m.keys.Expand):
		if focused != nil {
			return m.request(m.tree.Expand(focused.ID))
		}

	case key.Matches(msg, m.keys.Toggle):
		if focused != nil {
			return m.request(m.tree.Toggle(focused.ID))
		}

	case key.Matches(msg, m.keys.ExpandAll):
		m.tree.ExpandAll()
		m.statusMsg = fmt.Sprintf("%d nodes visible", len(m.tree.Visible()))

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchQuery = ""
		m.matches = nil

	case key.Matches(msg, m.keys.Next):
		m.nextMatch()

	case key.Matches(msg, m.keys.Copy):
		if focused != nil {
			return m, copyPath(focused)
		}

	case key.Matches(msg, m.keys.Reload):
		m = m.remount()
		return m, m.loadRoot()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	}

	return m, nil
}

// handleMouse maps clicks onto tree rows. A click on a row's glyph column
// focuses the row and toggles it; a click elsewhere on the row focuses it.
// The wheel moves focus.
func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	if m.searchMode {
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.tree.MoveUp()
		return m, nil
	case tea.MouseButtonWheelDown:
		m.tree.MoveDown()
		return m, nil
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
	default:
		return m, nil
	}

	n, onGlyph := m.hitTest(msg.X, msg.Y)
	if n == nil {
		return m, nil
	}
	m.tree.SetFocus(n.ID)
	if onGlyph && n.Expandable {
		return m.request(m.tree.Toggle(n.ID))
	}
	return m, nil
}

// request turns a LoadRequest from the tree into a load command and
// starts the spinner if it is the first load in flight.
func (m Model) request(req *tree.LoadRequest) (Model, tea.Cmd) {
	if req == nil {
		return m, nil
	}
	m.logger.Debug("loading subtree", "ref", req.Ref, "base", req.Base)
	m.statusMsg = "Loading " + req.Ref + "..."
	m.inflight++
	if m.inflight == 1 {
		return m, tea.Batch(m.loadSubtree(*req), m.spinner.Tick)
	}
	return m, m.loadSubtree(*req)
}

// remount drops the current tree and every in-flight load. The caller
// issues the new root load.
func (m Model) remount() Model {
	m.cancel()
	m.ctx, m.cancel = context.WithCancel(m.parent)
	m.gen++
	m.tree = tree.New(m.opts.Tree)
	m.mounted = false
	m.inflight = 0
	m.offset = 0
	m.matches = nil
	m.err = nil
	m.statusMsg = fmt.Sprintf("Reloading %s...", m.source)
	return m
}

// ────────────────────────────────────────────────────────────
// View
// ────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	header := renderHeader(&m)
	footer := renderFooter(&m)

	bodyHeight := m.height - 2 // header + footer
	var helpView string
	if m.showHelp {
		helpView = helpStyle.Width(m.width).Render(m.help.FullHelpView(m.keys.FullHelp()))
		bodyHeight -= lipgloss.Height(helpView)
	}

	body := renderTreePanel(&m, m.width, bodyHeight)

	parts := []string{header, body}
	if helpView != "" {
		parts = append(parts, helpView)
	}
	parts = append(parts, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// pathString joins a node's label path for display and copying.
func pathString(n *tree.Node) string {
	return strings.Join(n.Path(), " / ")
}
