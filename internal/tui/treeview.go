package tui

import (
	"fmt"
	"strings"

	"github.com/Mr-Dark-debug/arbor/internal/tree"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
)

// Layout of the tree panel on screen. Rows start below the header bar,
// the panel's top border and the title line; content is indented by the
// panel's left padding.
const (
	headerRows  = 1
	borderRows  = 1
	titleRows   = 1
	rowTop      = headerRows + borderRows + titleRows
	paddingCols = 1
)

// viewportRows is the number of tree rows that fit on screen.
func (m *Model) viewportRows() int {
	rows := m.height - 2 - borderRows - titleRows // header + footer
	if m.showHelp {
		rows -= lipgloss.Height(m.help.FullHelpView(m.keys.FullHelp()))
	}
	return max(rows, 1)
}

// syncScroll moves the scroll window so the focused row stays visible.
func (m *Model) syncScroll() {
	visible := m.tree.Visible()
	rows := m.viewportRows()

	idx := -1
	if f := m.tree.FocusID(); f != uuid.Nil {
		for i, n := range visible {
			if n.ID == f {
				idx = i
				break
			}
		}
	}
	if idx >= 0 {
		if idx < m.offset {
			m.offset = idx
		}
		if idx >= m.offset+rows {
			m.offset = idx - rows + 1
		}
	}
	m.offset = clamp(m.offset, 0, max(len(visible)-rows, 0))
}

// hitTest returns the visible node drawn at screen cell (x, y) and whether
// the cell lies in that row's glyph column.
func (m *Model) hitTest(x, y int) (*tree.Node, bool) {
	row := y - rowTop
	if row < 0 || row >= m.viewportRows() {
		return nil, false
	}
	visible := m.tree.Visible()
	i := m.offset + row
	if i >= len(visible) {
		return nil, false
	}
	n := visible[i]

	// The glyph drawn depends on the row's state, and configured glyphs
	// need not share a width.
	start := paddingCols + n.Depth*2
	end := start + lipgloss.Width(m.glyph(n)) + 1
	return n, x >= start && x < end
}

// ────────────────────────────────────────────────────────────
// Rows
// ────────────────────────────────────────────────────────────

// glyph returns the affordance for a node: blank for leaves, the spinner
// while its subtree is in flight, the failed mark after a failed fetch.
func (m *Model) glyph(n *tree.Node) string {
	switch {
	case !n.Expandable:
		return strings.Repeat(" ", runewidth.StringWidth(m.glyphs.Collapsed))
	case n.State == tree.LoadInFlight:
		return m.spinner.View()
	case n.State == tree.LoadFailed && !n.Expanded:
		return nodeFailedStyle.Render(m.glyphs.Failed)
	case n.Expanded:
		return treeGlyphStyle.Render(m.glyphs.Expanded)
	default:
		return treeGlyphStyle.Render(m.glyphs.Collapsed)
	}
}

func (m *Model) renderRow(n *tree.Node, width int, focused bool) string {
	indent := strings.Repeat("  ", n.Depth)
	glyph := m.glyph(n)
	room := width - runewidth.StringWidth(indent) - lipgloss.Width(glyph) - 1
	label := truncate(n.Label, room)

	if focused {
		plain := glyph
		if n.State != tree.LoadInFlight {
			plain = m.plainGlyph(n)
		}
		return nodeFocusedStyle.Width(width).Render(indent + plain + " " + label)
	}
	return indent + glyph + " " + colorStyle(n.Color).Render(label)
}

func (m *Model) plainGlyph(n *tree.Node) string {
	switch {
	case !n.Expandable:
		return strings.Repeat(" ", runewidth.StringWidth(m.glyphs.Collapsed))
	case n.State == tree.LoadFailed && !n.Expanded:
		return m.glyphs.Failed
	case n.Expanded:
		return m.glyphs.Expanded
	default:
		return m.glyphs.Collapsed
	}
}

// renderTree renders the visible walk inside the panel.
func renderTree(m *Model, width, height int) string {
	visible := m.tree.Visible()

	title := panelTitleStyle.Render("Tree")
	if m.mounted && m.err == nil {
		title += dimStyle.Render(fmt.Sprintf("  %d visible  %d loaded", len(visible), m.tree.Len()))
	}

	switch {
	case !m.mounted:
		return title + "\n" + emptyStateStyle.Render("Loading "+m.source+"...")
	case m.err != nil:
		return title + "\n" + errorStateStyle.Render(fmt.Sprintf("Could not load %s\n%v", m.source, m.err))
	case len(visible) == 0:
		return title + "\n" + emptyStateStyle.Render("No nodes in this document.")
	}

	lines := []string{title}
	end := min(m.offset+height, len(visible))
	focus := m.tree.FocusID()
	for _, n := range visible[m.offset:end] {
		lines = append(lines, m.renderRow(n, width, n.ID == focus))
	}

	if len(visible) > height {
		lines[0] += dimStyle.Render(fmt.Sprintf("  rows %d-%d", m.offset+1, end))
	}
	return strings.Join(lines, "\n")
}

// renderTreePanel wraps the tree in a styled panel.
func renderTreePanel(m *Model, width, height int) string {
	content := renderTree(m, width-2*paddingCols, m.viewportRows())
	return panelStyle.Width(width).Height(max(height-borderRows, 1)).Render(content)
}
