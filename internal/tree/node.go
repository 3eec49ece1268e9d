// Package tree holds the in-memory model behind the navigator.
//
// A Tree is built from Records decoded out of JSON node documents. Every
// Record becomes a Node with a generated identity; the label is only
// presentation data, so duplicate labels never break focus or lookups.
// The focus state machine (focus.go) mutates visibility and focus, and
// hands lazy subtree loads back to the caller as LoadRequests so the tree
// itself never performs I/O.
package tree

import (
	"github.com/google/uuid"
)

// ============================================================
// Input records
// ============================================================

// Record is one entry of a node document as it appears on the wire.
// A record with neither Nodes nor ChildrenURL is a leaf.
type Record struct {
	Label       string   `json:"label"`
	Nodes       []Record `json:"nodes,omitempty"`
	Color       string   `json:"color,omitempty"`
	ChildrenURL string   `json:"childrenURL,omitempty"`
}

// HasChildren reports whether the record gets an expand affordance.
// An explicit empty "nodes" array counts.
func (r Record) HasChildren() bool {
	return r.Nodes != nil || r.ChildrenURL != ""
}

// ============================================================
// Display nodes
// ============================================================

// LoadState tracks the lazy subtree fetch of a node.
type LoadState int

const (
	LoadIdle LoadState = iota
	LoadInFlight
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadInFlight:
		return "loading"
	case LoadFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Node is one displayed entry of the tree. A node exclusively owns its
// Children; inline children and lazily loaded ones share the same list,
// loaded ones appended after the inline ones.
type Node struct {
	ID     uuid.UUID
	Label  string
	Color  string
	Depth  int
	Parent *Node

	Children []*Node

	// Expanded is the visibility of the child list.
	Expanded bool
	// Expandable is set when the node was created with inline children or
	// a children source; leaves never get an affordance.
	Expandable bool

	// Pending is the unfetched children reference, empty once a fetch
	// has been issued.
	Pending string
	// Source is the document this node was decoded from. Relative
	// Pending references resolve against it.
	Source string

	State   LoadState
	LoadErr error
}

// IsRoot reports whether the node sits directly in the root list.
func (n *Node) IsRoot() bool { return n.Parent == nil }

// Path returns the labels from the root list down to n.
func (n *Node) Path() []string {
	var path []string
	for cur := n; cur != nil; cur = cur.Parent {
		path = append(path, cur.Label)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ============================================================
// Tree
// ============================================================

// NavMode selects how MoveUp and MoveDown walk the tree.
type NavMode int

const (
	// NavVisible steps through the flattened list of visible nodes.
	NavVisible NavMode = iota
	// NavLegacy steps between siblings only: up from a first child goes
	// to the parent, down from any last child does nothing.
	NavLegacy
)

// Options tunes the focus state machine.
type Options struct {
	Navigation NavMode
	// RetryFailedLoads restores a node's pending reference when its fetch
	// fails so the next expand tries again. When false a failed fetch is
	// permanent for that node.
	RetryFailedLoads bool
}

// DefaultOptions returns the options used by the navigator.
func DefaultOptions() Options {
	return Options{Navigation: NavVisible, RetryFailedLoads: true}
}

// Tree is the arena of display nodes plus the single focus.
// It is not safe for concurrent use; all mutations are expected to happen
// on one goroutine (the UI update loop).
type Tree struct {
	roots []*Node
	index map[uuid.UUID]*Node
	focus uuid.UUID
	opts  Options
	newID func() uuid.UUID
}

// New returns an empty tree.
func New(opts Options) *Tree {
	return &Tree{
		index: make(map[uuid.UUID]*Node),
		opts:  opts,
		newID: uuid.New,
	}
}

// Options returns the options the tree was built with.
func (t *Tree) Options() Options { return t.opts }

// Node returns the node with the given id, or nil.
func (t *Tree) Node(id uuid.UUID) *Node { return t.index[id] }

// Roots returns the root list.
func (t *Tree) Roots() []*Node { return t.roots }

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.index) }

func (t *Tree) siblings(n *Node) []*Node {
	if n.Parent == nil {
		return t.roots
	}
	return n.Parent.Children
}
