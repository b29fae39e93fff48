package graph

import (
	"fmt"

	"github.com/aretw0/grapher/pkg/domain"
)

// Document is the unit of persistence: a node tree, its plug connections,
// an ordered variable table and a free-text (optionally HTML) comment.
//
// A Document is not safe for concurrent mutation; callers sharing one must
// guard the whole document.
type Document struct {
	Comment     string
	Variables   []domain.Variable
	Tree        *Tree
	Connections []domain.Connection

	// SourcePath is the file the document was loaded from or will be saved to.
	// Empty for an unsaved document.
	SourcePath string
}

// NewDocument returns an empty, unsaved document.
func NewDocument() *Document {
	return &Document{Tree: NewTree()}
}

// AddNode inserts node into the tree. See Tree.Insert.
func (d *Document) AddNode(node domain.Node, parent domain.NodeID, index int) (domain.NodeID, error) {
	return d.Tree.Insert(node, parent, index)
}

// UpdateNode applies fn to the node at id. Unlike Tree.Update it may change the
// node type, provided every connection touching the node is still carried by
// the new type's plugs. On failure the document is left unchanged.
func (d *Document) UpdateNode(id domain.NodeID, fn func(*domain.Node)) error {
	prev, err := d.Tree.replace(id, fn)
	if err != nil {
		return err
	}
	n, _ := d.Tree.Node(id)
	caps := n.Type.Capabilities()
	for _, c := range d.Connections {
		plug, touches := c.SourcePlug, c.Source == id
		if c.Dest == id {
			plug, touches = c.DestPlug, true
		}
		if touches && !caps.Has(plug) {
			_, _ = d.Tree.replace(id, func(m *domain.Node) { *m = prev })
			return fmt.Errorf("%w: %s node %s has no %s plug", domain.ErrInvalidPlugDirection,
				n.Type, n.Name, plug)
		}
	}
	return nil
}

// RemoveNode removes id with its subtree and drops every connection touching a removed node.
func (d *Document) RemoveNode(id domain.NodeID) error {
	removed, err := d.Tree.Remove(id)
	if err != nil {
		return err
	}
	gone := make(map[domain.NodeID]bool, len(removed))
	for _, r := range removed {
		gone[r] = true
	}
	kept := d.Connections[:0]
	for _, c := range d.Connections {
		if !gone[c.Source] && !gone[c.Dest] {
			kept = append(kept, c)
		}
	}
	d.Connections = kept
	return nil
}
