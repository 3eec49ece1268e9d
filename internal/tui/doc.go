// Package tui implements the Arbor terminal tree navigator.
//
// Built with Charmbracelet's BubbleTea, Lipgloss, and Bubbles libraries.
// Node documents are fetched by internal/loader; every subtree behind a
// childrenURL is fetched the first time it is expanded.
//
// Component architecture:
//
//	model.go     root model, message routing, Init/Update/View
//	keys.go      key bindings and help
//	treeview.go  visible walk rendering, scroll window, mouse hit-testing
//	header.go    top bar and status line with keyboard hints
//	theme.go     centralized color + style definitions
//	search.go    fuzzy label search and path copy
//	watch.go     remount on root document changes
//	helpers.go   truncation and small utilities
package tui
