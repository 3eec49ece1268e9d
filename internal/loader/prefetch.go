package loader

import (
	"context"

	"github.com/Mr-Dark-debug/arbor/internal/tree"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// PrefetchReport summarizes a Prefetch run.
type PrefetchReport struct {
	Loaded  int
	Failed  int
	Skipped int
}

// Prefetch loads every pending subtree of t, level by level, with at most
// concurrency fetches in flight. Results are attached on the calling
// goroutine once a level completes. Each node is tried once; references
// that would re-enter a document already on the node's ancestor chain are
// skipped. Only context cancellation aborts the run.
func (l *Loader) Prefetch(ctx context.Context, t *tree.Tree, concurrency int) (PrefetchReport, error) {
	var report PrefetchReport
	tried := make(map[uuid.UUID]bool)

	for {
		var reqs []tree.LoadRequest
		for _, n := range t.PendingNodes() {
			if tried[n.ID] {
				continue
			}
			tried[n.ID] = true
			if reentrant(n, Resolve(n.Source, n.Pending)) {
				report.Skipped++
				continue
			}
			if req := t.Expand(n.ID); req != nil {
				reqs = append(reqs, *req)
			}
		}
		if len(reqs) == 0 {
			return report, nil
		}

		results := make([]tree.LoadResult, len(reqs))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(concurrency, 1))
		for i, req := range reqs {
			i, req := i, req
			g.Go(func() error {
				results[i] = l.LoadChildren(gctx, req)
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return report, err
		}

		for _, res := range results {
			t.Attach(res)
			if res.Err != nil {
				report.Failed++
			} else {
				report.Loaded++
			}
		}
	}
}

func reentrant(n *tree.Node, source string) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Source == source {
			return true
		}
	}
	return false
}
