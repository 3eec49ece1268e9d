package tree

import (
	"github.com/google/uuid"
)

// Visible returns the nodes a reader can currently see, in display order:
// the root list plus the children of every expanded node on the way down.
func (t *Tree) Visible() []*Node {
	var out []*Node
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			out = append(out, n)
			if n.Expanded {
				walk(n.Children)
			}
		}
	}
	walk(t.roots)
	return out
}

// IsVisible reports whether every ancestor of id is expanded.
func (t *Tree) IsVisible(id uuid.UUID) bool {
	n := t.index[id]
	if n == nil {
		return false
	}
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if !cur.Expanded {
			return false
		}
	}
	return true
}

// Walk visits every node in document order (pre-order, insertion order),
// hidden ones included. Returning false from fn stops the walk.
func (t *Tree) Walk(fn func(n *Node) bool) {
	var walk func(nodes []*Node) bool
	walk = func(nodes []*Node) bool {
		for _, n := range nodes {
			if !fn(n) || !walk(n.Children) {
				return false
			}
		}
		return true
	}
	walk(t.roots)
}

// FindByLabel returns the first node in document order carrying label.
// Labels are not unique; this mirrors lookups that address nodes by text.
func (t *Tree) FindByLabel(label string) *Node {
	var found *Node
	t.Walk(func(n *Node) bool {
		if n.Label == label {
			found = n
			return false
		}
		return true
	})
	return found
}

// Reveal expands every ancestor of id so the node becomes visible. It does
// not trigger loads: ancestors of a placed node are already populated.
func (t *Tree) Reveal(id uuid.UUID) {
	n := t.index[id]
	if n == nil {
		return
	}
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		cur.Expanded = true
	}
}

// PendingNodes returns every node that still carries an unfetched
// children reference, in document order.
func (t *Tree) PendingNodes() []*Node {
	var out []*Node
	t.Walk(func(n *Node) bool {
		if n.Pending != "" {
			out = append(out, n)
		}
		return true
	})
	return out
}

// ExpandAll marks every expandable node expanded without touching focus
// or pending references.
func (t *Tree) ExpandAll() {
	t.Walk(func(n *Node) bool {
		if len(n.Children) > 0 {
			n.Expanded = true
		}
		return true
	})
}
