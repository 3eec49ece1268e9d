package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader produces the top bar:
//
//	ARBOR  |  tree/root.json  |  12 visible  |  2 loading
func renderHeader(m *Model) string {
	brand := headerBrandStyle.Render("ARBOR")
	sep := headerSepStyle.Render(" │ ")

	parts := []string{brand, sep, headerMetaStyle.Render(truncate(m.source, max(m.width/2, 10)))}

	if m.mounted && m.err == nil {
		parts = append(parts, sep, headerMetaStyle.Render(
			fmt.Sprintf("%d visible", len(m.tree.Visible()))))
	}
	if m.inflight > 0 {
		parts = append(parts, sep, nodeLoadingStyle.Render(
			fmt.Sprintf("%s %d loading", m.spinner.View(), m.inflight)))
	}
	if m.watcher != nil {
		parts = append(parts, sep, headerMetaStyle.Render("watching"))
	}

	return headerBarStyle.Width(m.width).Render(strings.Join(parts, ""))
}

// renderFooter produces the bottom status bar with keyboard hints.
func renderFooter(m *Model) string {
	var left, right string

	if m.searchMode {
		cursor := searchCursorStyle.Render(" ")
		left = searchBarStyle.Render(fmt.Sprintf("/ %s%s", m.searchQuery, cursor))
		if m.searchQuery != "" {
			left += statusStyle.Render(fmt.Sprintf("%d matches", len(m.matches)))
		}
		right = renderHints([]hint{
			{"enter", "keep"},
			{"esc", "cancel"},
		})
	} else {
		if m.statusMsg != "" {
			style := statusStyle
			if m.err != nil || strings.HasPrefix(m.statusMsg, "Error") {
				style = statusErrorStyle
			}
			left = style.Render(truncate(m.statusMsg, max(m.width/2, 10)))
		}
		right = renderHints([]hint{
			{"↑↓", "navigate"},
			{"enter", "toggle"},
			{"/", "search"},
			{"y", "copy"},
			{"?", "help"},
			{"q", "quit"},
		})
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return lipgloss.NewStyle().
		Background(colorBgSurface).
		Width(m.width).
		Render(bar)
}

type hint struct {
	key  string
	desc string
}

func renderHints(hints []hint) string {
	var parts []string
	for _, h := range hints {
		parts = append(parts,
			hintKeyStyle.Render(h.key)+" "+hintDescStyle.Render(h.desc))
	}
	return strings.Join(parts, hintDescStyle.Render("  "))
}
