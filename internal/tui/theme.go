package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ────────────────────────────────────────────────────────────
// Color palette, GitHub Dark
// ────────────────────────────────────────────────────────────
//
// All colors are defined here. Node documents name their colors; those
// names are mapped onto this palette by colorStyle.

var (
	// Base
	colorBg        = lipgloss.Color("#0d1117")
	colorBgSurface = lipgloss.Color("#1c2128")

	// Text
	colorText      = lipgloss.Color("#e6edf3")
	colorTextDim   = lipgloss.Color("#8b949e")
	colorTextMuted = lipgloss.Color("#484f58")

	// Accents
	colorBlue   = lipgloss.Color("#58a6ff")
	colorGreen  = lipgloss.Color("#3fb950")
	colorRed    = lipgloss.Color("#f85149")
	colorYellow = lipgloss.Color("#d29922")
	colorOrange = lipgloss.Color("#db6d28")
	colorPurple = lipgloss.Color("#bc8cff")
	colorPink   = lipgloss.Color("#f778ba")
	colorCyan   = lipgloss.Color("#76e3ea")

	// Structural
	colorDivider   = lipgloss.Color("#30363d")
	colorHighlight = lipgloss.Color("#1f6feb")
)

// namedColors maps document color names onto the palette.
var namedColors = map[string]lipgloss.Color{
	"blue":   colorBlue,
	"green":  colorGreen,
	"red":    colorRed,
	"yellow": colorYellow,
	"orange": colorOrange,
	"purple": colorPurple,
	"pink":   colorPink,
	"cyan":   colorCyan,
	"gray":   colorTextDim,
	"grey":   colorTextDim,
	"white":  colorText,
}

// colorStyle returns the label style for a node color. Palette names and
// "#rrggbb" values are honored; anything else renders as plain text.
func colorStyle(name string) lipgloss.Style {
	name = strings.ToLower(strings.TrimSpace(name))
	if c, ok := namedColors[name]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	if strings.HasPrefix(name, "#") && (len(name) == 4 || len(name) == 7) {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(name))
	}
	return nodeNormalStyle
}

// ────────────────────────────────────────────────────────────
// Component Styles
// ────────────────────────────────────────────────────────────

// Header bar
var (
	headerBarStyle = lipgloss.NewStyle().
			Background(colorBgSurface).
			Foreground(colorText).
			Padding(0, 1)

	headerBrandStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorGreen)

	headerSepStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	headerMetaStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)
)

// Panel chrome
var (
	panelStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.Border{
			Top:    "─",
			Bottom: "",
			Left:   "",
			Right:  "",
		}).
		BorderForeground(colorDivider)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	emptyStateStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Padding(1, 2)

	errorStateStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Padding(1, 2)
)

// Tree rows
var (
	nodeNormalStyle = lipgloss.NewStyle().
			Foreground(colorText)

	nodeFocusedStyle = lipgloss.NewStyle().
				Background(colorHighlight).
				Foreground(colorText).
				Bold(true)

	nodeLoadingStyle = lipgloss.NewStyle().
				Foreground(colorYellow)

	nodeFailedStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	treeGlyphStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)
)

// Footer / status bar
var (
	statusStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorBgSurface).
			Padding(0, 1)

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(colorRed).
				Background(colorBgSurface).
				Padding(0, 1)

	hintKeyStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	hintDescStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	helpStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.Border{Top: "─"}).
			BorderForeground(colorDivider)
)

// Search bar
var (
	searchBarStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorBgSurface).
			Padding(0, 1)

	searchCursorStyle = lipgloss.NewStyle().
				Background(colorBlue).
				Foreground(colorBg)
)
