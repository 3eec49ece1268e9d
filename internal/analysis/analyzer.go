// Package analysis computes structural statistics for node trees.
//
// Key capabilities:
//   - Node, leaf, branch and lazy-reference counts
//   - Depth profile
//   - Duplicate label detection (labels are display text, not identity)
//   - Color usage
package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/arbor/internal/loader"
	"github.com/Mr-Dark-debug/arbor/internal/tree"
	"github.com/Mr-Dark-debug/arbor/pkg/timeutil"

	"github.com/google/uuid"
)

// Analyzer loads a document and reports on the resulting tree.
type Analyzer struct {
	loader *loader.Loader
}

// NewAnalyzer creates an analyzer backed by the given loader.
func NewAnalyzer(l *loader.Loader) *Analyzer {
	return &Analyzer{loader: l}
}

// ============================================================
// Report
// ============================================================

// Duplicate is a label carried by more than one node.
type Duplicate struct {
	Label string   `json:"label"`
	Count int      `json:"count"`
	Paths []string `json:"paths"`
}

// Stats summarizes one tree.
type Stats struct {
	Nodes    int            `json:"nodes"`
	Roots    int            `json:"roots"`
	Leaves   int            `json:"leaves"`
	Branches int            `json:"branches"`
	Lazy     int            `json:"lazy"`
	Failed   int            `json:"failed"`
	MaxDepth int            `json:"max_depth"`
	PerDepth []int          `json:"per_depth"`
	Colors   map[string]int `json:"colors,omitempty"`

	Duplicates []Duplicate `json:"duplicates,omitempty"`
}

// Report is the result of a full analysis run.
type Report struct {
	Source     string                 `json:"source"`
	Expanded   bool                   `json:"expanded"`
	Prefetch   *loader.PrefetchReport `json:"prefetch,omitempty"`
	Stats      Stats                  `json:"stats"`
	AnalyzedAt int64                  `json:"analyzed_at"`
	Elapsed    string                 `json:"elapsed"`
}

// FullAnalysis loads source, optionally prefetches every lazy subtree,
// and computes the tree statistics.
func (a *Analyzer) FullAnalysis(ctx context.Context, source string, expand bool, concurrency int) (*Report, error) {
	start := time.Now()

	records, err := a.loader.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("loading %s for analysis: %w", source, err)
	}

	t := tree.New(tree.Options{RetryFailedLoads: false})
	t.Render(source, records, uuid.Nil, true)

	report := &Report{Source: source, Expanded: expand}
	if expand {
		pf, err := a.loader.Prefetch(ctx, t, concurrency)
		if err != nil {
			return nil, fmt.Errorf("prefetching %s: %w", source, err)
		}
		report.Prefetch = &pf
	}

	report.Stats = Analyze(t)
	report.AnalyzedAt = timeutil.NowNano()
	report.Elapsed = timeutil.Elapsed(time.Since(start))
	return report, nil
}

// Analyze computes statistics over every node of t, hidden ones included.
func Analyze(t *tree.Tree) Stats {
	s := Stats{Roots: len(t.Roots()), Colors: make(map[string]int)}
	byLabel := make(map[string][]*tree.Node)
	var order []string

	t.Walk(func(n *tree.Node) bool {
		s.Nodes++
		switch {
		case !n.Expandable:
			s.Leaves++
		default:
			s.Branches++
		}
		if n.Pending != "" {
			s.Lazy++
		}
		if n.State == tree.LoadFailed {
			s.Failed++
		}
		if n.Depth > s.MaxDepth {
			s.MaxDepth = n.Depth
		}
		for len(s.PerDepth) <= n.Depth {
			s.PerDepth = append(s.PerDepth, 0)
		}
		s.PerDepth[n.Depth]++
		if n.Color != "" {
			s.Colors[n.Color]++
		}

		if _, seen := byLabel[n.Label]; !seen {
			order = append(order, n.Label)
		}
		byLabel[n.Label] = append(byLabel[n.Label], n)
		return true
	})

	for _, label := range order {
		nodes := byLabel[label]
		if len(nodes) < 2 {
			continue
		}
		d := Duplicate{Label: label, Count: len(nodes)}
		for _, n := range nodes {
			d.Paths = append(d.Paths, strings.Join(n.Path(), " / "))
		}
		s.Duplicates = append(s.Duplicates, d)
	}
	sort.SliceStable(s.Duplicates, func(i, j int) bool {
		return s.Duplicates[i].Count > s.Duplicates[j].Count
	})

	if len(s.Colors) == 0 {
		s.Colors = nil
	}
	return s
}

// ============================================================
// Formatting
// ============================================================

// FormatReport renders a report as Markdown.
func (a *Analyzer) FormatReport(r *Report) string {
	var b strings.Builder
	s := r.Stats

	fmt.Fprintf(&b, "# Tree report: %s\n\n", r.Source)
	fmt.Fprintf(&b, "Analyzed %s in %s", timeutil.Stamp(r.AnalyzedAt), r.Elapsed)
	if r.Expanded {
		b.WriteString(" (lazy subtrees prefetched)")
	}
	b.WriteString("\n\n")

	b.WriteString("## Structure\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	rows := []struct {
		name  string
		value int
	}{
		{"Nodes", s.Nodes},
		{"Root nodes", s.Roots},
		{"Leaves", s.Leaves},
		{"Branches", s.Branches},
		{"Unloaded lazy subtrees", s.Lazy},
		{"Failed loads", s.Failed},
		{"Max depth", s.MaxDepth},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "| %s | %d |\n", row.name, row.value)
	}

	if r.Prefetch != nil {
		fmt.Fprintf(&b, "\nPrefetch: %d loaded, %d failed, %d skipped (re-entrant)\n",
			r.Prefetch.Loaded, r.Prefetch.Failed, r.Prefetch.Skipped)
	}

	if len(s.PerDepth) > 0 {
		b.WriteString("\n## Nodes per depth\n\n")
		for depth, count := range s.PerDepth {
			fmt.Fprintf(&b, "- depth %d: %d\n", depth, count)
		}
	}

	if len(s.Colors) > 0 {
		b.WriteString("\n## Colors\n\n")
		colors := make([]string, 0, len(s.Colors))
		for c := range s.Colors {
			colors = append(colors, c)
		}
		sort.Strings(colors)
		for _, c := range colors {
			fmt.Fprintf(&b, "- %s: %d\n", c, s.Colors[c])
		}
	}

	b.WriteString("\n## Duplicate labels\n\n")
	if len(s.Duplicates) == 0 {
		b.WriteString("None. Every label is unique.\n")
	} else {
		for _, d := range s.Duplicates {
			fmt.Fprintf(&b, "- **%s** ×%d\n", d.Label, d.Count)
			for _, p := range d.Paths {
				fmt.Fprintf(&b, "  - %s\n", p)
			}
		}
	}
	return b.String()
}
