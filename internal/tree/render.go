package tree

import (
	"github.com/google/uuid"
)

// Render places records under parent and focuses the first node placed.
//
// parent == uuid.Nil appends to the root list. Otherwise the records are
// appended to the parent's children and, when visible is true, the parent
// is expanded. Inline children are placed recursively, collapsed. src is
// the document the records were decoded from.
//
// Rendering an empty slice places nothing and leaves focus alone. An
// unknown parent is ignored.
func (t *Tree) Render(src string, records []Record, parent uuid.UUID, visible bool) []*Node {
	var owner *Node
	if parent != uuid.Nil {
		if owner = t.index[parent]; owner == nil {
			return nil
		}
	}

	placed := t.place(src, records, owner, visible)
	if len(placed) > 0 {
		t.focus = placed[0].ID
	}
	return placed
}

func (t *Tree) place(src string, records []Record, owner *Node, visible bool) []*Node {
	if len(records) == 0 {
		return nil
	}

	depth := 0
	if owner != nil {
		depth = owner.Depth + 1
		if visible {
			owner.Expanded = true
		}
	}

	placed := make([]*Node, 0, len(records))
	for _, rec := range records {
		n := &Node{
			ID:         t.newID(),
			Label:      rec.Label,
			Color:      rec.Color,
			Depth:      depth,
			Parent:     owner,
			Expandable: rec.HasChildren(),
			Pending:    rec.ChildrenURL,
			Source:     src,
		}
		t.index[n.ID] = n

		if owner == nil {
			t.roots = append(t.roots, n)
		} else {
			owner.Children = append(owner.Children, n)
		}

		if len(rec.Nodes) > 0 {
			t.place(src, rec.Nodes, n, false)
		}
		placed = append(placed, n)
	}
	return placed
}
