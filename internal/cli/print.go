package cli

import (
	"fmt"

	"github.com/Mr-Dark-debug/arbor/internal/loader"
	"github.com/Mr-Dark-debug/arbor/internal/tree"

	ltree "github.com/charmbracelet/lipgloss/tree"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (c *CLI) printCommand() *cobra.Command {
	var expand bool

	cmd := &cobra.Command{
		Use:   "print [source]",
		Short: "Print a node document as a tree",
		Long: `Print renders every inline node of a document. Subtrees that live in
other documents are shown as references unless --expand fetches them all.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := c.sourceArg(args)
			if err != nil {
				return err
			}
			env, err := c.env(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			t, err := buildTree(cmd, env, source, expand)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), RenderText(t))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&expand, "expand", "e", false, "fetch every lazy subtree before printing")
	return cmd
}

// buildTree loads source into a fresh tree, prefetching lazy subtrees when
// expand is set.
func buildTree(cmd *cobra.Command, env *Env, source string, expand bool) (*tree.Tree, error) {
	ctx := cmd.Context()
	records, err := env.Loader.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", source, err)
	}

	t := tree.New(tree.Options{})
	t.Render(source, records, uuid.Nil, true)

	if expand {
		report, err := env.Loader.Prefetch(ctx, t, env.Config.Fetch.Concurrency)
		if err != nil {
			return nil, err
		}
		env.Logger.Info("prefetched subtrees",
			"loaded", report.Loaded, "failed", report.Failed, "skipped", report.Skipped,
			"documents", countLoaded(t))
	}
	return t, nil
}

// RenderText draws every node of t with box-drawing connectors. Unfetched
// subtrees show their reference; failed ones show the error.
func RenderText(t *tree.Tree) string {
	out := ltree.New().Enumerator(ltree.RoundedEnumerator)
	for _, n := range t.Roots() {
		out.Child(textNode(n))
	}
	return out.String()
}

func textNode(n *tree.Node) any {
	label := n.Label
	switch {
	case n.State == tree.LoadFailed:
		label = fmt.Sprintf("%s ✗ %v", label, n.LoadErr)
	case n.Pending != "":
		label = fmt.Sprintf("%s ▸ %s", label, n.Pending)
	case n.Expandable && len(n.Children) == 0:
		label += " (empty)"
	}
	if len(n.Children) == 0 {
		return label
	}

	sub := ltree.Root(label).Enumerator(ltree.RoundedEnumerator)
	for _, child := range n.Children {
		sub.Child(textNode(child))
	}
	return sub
}

// countLoaded reports how many documents a tree was assembled from.
func countLoaded(t *tree.Tree) int {
	seen := make(map[string]bool)
	t.Walk(func(n *tree.Node) bool {
		seen[loader.FilePath(n.Source)] = true
		return true
	})
	return len(seen)
}
