package tui

import (
	"fmt"

	"github.com/Mr-Dark-debug/arbor/internal/tree"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
)

// writeClipboard is replaced in tests; the system clipboard is not
// available on every machine the tests run on.
var writeClipboard = clipboard.WriteAll

// runSearch fuzzy-matches the query against every loaded label, hidden
// nodes included, and jumps to the best match.
func (m *Model) runSearch() {
	m.matches = nil
	m.matchIdx = 0
	if m.searchQuery == "" {
		return
	}

	var ids []uuid.UUID
	var labels []string
	m.tree.Walk(func(n *tree.Node) bool {
		ids = append(ids, n.ID)
		labels = append(labels, n.Label)
		return true
	})

	for _, match := range fuzzy.Find(m.searchQuery, labels) {
		m.matches = append(m.matches, ids[match.Index])
	}
	if len(m.matches) == 0 {
		m.statusMsg = fmt.Sprintf("No match for %q", m.searchQuery)
		return
	}
	m.jumpTo(m.matches[0])
}

// nextMatch cycles through the matches of the last search.
func (m *Model) nextMatch() {
	if len(m.matches) == 0 {
		return
	}
	m.matchIdx = (m.matchIdx + 1) % len(m.matches)
	m.jumpTo(m.matches[m.matchIdx])
}

func (m *Model) jumpTo(id uuid.UUID) {
	m.tree.Reveal(id)
	m.tree.SetFocus(id)
	m.statusMsg = fmt.Sprintf("Match %d/%d", m.matchIdx+1, len(m.matches))
}

// copyPath copies the label path of n to the system clipboard.
func copyPath(n *tree.Node) tea.Cmd {
	path := pathString(n)
	return func() tea.Msg {
		return copiedMsg{path: path, err: writeClipboard(path)}
	}
}
