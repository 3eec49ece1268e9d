package tree

import (
	"github.com/google/uuid"
)

// LoadRequest asks the caller to fetch the children document Ref,
// resolved against Base, and hand the outcome back through Attach.
type LoadRequest struct {
	Node uuid.UUID
	Ref  string
	Base string
}

// LoadResult is the outcome of a LoadRequest. Source is the resolved
// location the records came from.
type LoadResult struct {
	Node    uuid.UUID
	Ref     string
	Source  string
	Records []Record
	Err     error
}

// ────────────────────────────────────────────────────────────
// Focus
// ────────────────────────────────────────────────────────────

// Focused returns the focused node, or nil before anything was rendered.
func (t *Tree) Focused() *Node { return t.index[t.focus] }

// FocusID returns the focused node id, uuid.Nil when nothing is focused.
func (t *Tree) FocusID() uuid.UUID { return t.focus }

// SetFocus makes id the only focused node. Unknown ids are ignored.
func (t *Tree) SetFocus(id uuid.UUID) {
	if _, ok := t.index[id]; ok {
		t.focus = id
	}
}

// ────────────────────────────────────────────────────────────
// Expand / collapse
// ────────────────────────────────────────────────────────────

// Expand shows a node's children and focuses the first one.
//
// If the node still carries a pending children reference, the reference is
// cleared and returned as a LoadRequest; a node is fetched at most once per
// reference. A node whose children are all still in flight is marked
// expanded with an empty list until Attach fills it. Expanding a leaf is a
// no-op.
func (t *Tree) Expand(id uuid.UUID) *LoadRequest {
	n := t.index[id]
	if n == nil {
		return nil
	}

	var req *LoadRequest
	if n.Pending != "" {
		req = &LoadRequest{Node: n.ID, Ref: n.Pending, Base: n.Source}
		n.Pending = ""
		n.State = LoadInFlight
		n.LoadErr = nil
		n.Expanded = true
	}

	if len(n.Children) > 0 {
		n.Expanded = true
		t.focus = n.Children[0].ID
	}
	return req
}

// Collapse hides a node's children. Focus moves to the node's parent
// unless the node is in the root list.
func (t *Tree) Collapse(id uuid.UUID) {
	n := t.index[id]
	if n == nil {
		return
	}
	n.Expanded = false
	if !n.IsRoot() {
		t.focus = n.Parent.ID
	}
}

// Toggle collapses an expanded node and expands a collapsed one.
func (t *Tree) Toggle(id uuid.UUID) *LoadRequest {
	n := t.index[id]
	if n == nil {
		return nil
	}
	if n.Expanded {
		t.Collapse(id)
		return nil
	}
	return t.Expand(id)
}

// Attach applies a finished load to its node.
//
// On success the records are placed visible under the node and focus moves
// to the first of them, unless the node was hidden by a collapsed ancestor
// in the meantime. On failure the node is marked failed; with
// RetryFailedLoads the reference is restored so the next Expand fetches
// again.
func (t *Tree) Attach(res LoadResult) []*Node {
	n := t.index[res.Node]
	if n == nil {
		return nil
	}

	if res.Err != nil {
		n.State = LoadFailed
		n.LoadErr = res.Err
		if t.opts.RetryFailedLoads {
			n.Pending = res.Ref
		}
		if len(n.Children) == 0 {
			n.Expanded = false
		}
		return nil
	}

	n.State = LoadIdle
	n.LoadErr = nil
	n.Expanded = true

	placed := t.place(res.Source, res.Records, n, true)
	if len(placed) > 0 && t.IsVisible(n.ID) {
		t.focus = placed[0].ID
	}
	return placed
}

// ────────────────────────────────────────────────────────────
// Navigation
// ────────────────────────────────────────────────────────────

// MoveUp moves focus one step up. It is a no-op on the first node.
func (t *Tree) MoveUp() {
	n := t.Focused()
	if n == nil {
		return
	}
	if t.opts.Navigation == NavLegacy {
		t.legacyUp(n)
		return
	}

	vis := t.Visible()
	i := indexOf(vis, n.ID)
	switch {
	case i < 0:
		t.focusNearestVisible(n)
	case i > 0:
		t.focus = vis[i-1].ID
	}
}

// MoveDown moves focus one step down. It is a no-op on the last node.
func (t *Tree) MoveDown() {
	n := t.Focused()
	if n == nil {
		return
	}
	if t.opts.Navigation == NavLegacy {
		t.legacyDown(n)
		return
	}

	vis := t.Visible()
	i := indexOf(vis, n.ID)
	switch {
	case i < 0:
		t.focusNearestVisible(n)
	case i < len(vis)-1:
		t.focus = vis[i+1].ID
	}
}

func (t *Tree) legacyUp(n *Node) {
	if len(t.roots) > 0 && t.roots[0] == n {
		return
	}
	sibs := t.siblings(n)
	if n.Parent != nil && sibs[0] == n {
		t.focus = n.Parent.ID
		return
	}
	if i := indexOf(sibs, n.ID); i > 0 {
		t.focus = sibs[i-1].ID
	}
}

func (t *Tree) legacyDown(n *Node) {
	sibs := t.siblings(n)
	i := indexOf(sibs, n.ID)
	if i < 0 || i == len(sibs)-1 {
		return
	}
	t.focus = sibs[i+1].ID
}

// focusNearestVisible handles focus stranded inside a collapsed subtree.
func (t *Tree) focusNearestVisible(n *Node) {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if t.IsVisible(cur.ID) {
			t.focus = cur.ID
			return
		}
	}
}

func indexOf(nodes []*Node, id uuid.UUID) int {
	for i, n := range nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
