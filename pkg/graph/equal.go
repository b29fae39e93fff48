package graph

import (
	"reflect"

	"github.com/aretw0/grapher/pkg/domain"
)

// PathConnection is a connection expressed with node paths instead of arena IDs.
type PathConnection struct {
	Source     string
	SourcePlug domain.PlugKind
	Dest       string
	DestPlug   domain.PlugKind
}

// PathNode is a node together with its position in the tree.
type PathNode struct {
	Path   string
	Parent string
	Node   domain.Node
}

// Flatten returns the nodes in pre-order with their paths.
func (t *Tree) Flatten() []PathNode {
	ids := t.AllNodes()
	out := make([]PathNode, 0, len(ids))
	for _, id := range ids {
		e := &t.arena[id]
		parent := ""
		if e.parent != NoParent {
			parent = t.mustPath(e.parent)
		}
		out = append(out, PathNode{Path: t.mustPath(id), Parent: parent, Node: e.node.Clone()})
	}
	return out
}

// PathConnections returns the connections in order with node paths as endpoints.
func (d *Document) PathConnections() []PathConnection {
	out := make([]PathConnection, 0, len(d.Connections))
	for _, c := range d.Connections {
		src, _ := d.Tree.Path(c.Source)
		dst, _ := d.Tree.Path(c.Dest)
		out = append(out, PathConnection{Source: src, SourcePlug: c.SourcePlug, Dest: dst, DestPlug: c.DestPlug})
	}
	return out
}

// Equal reports whether a and b are structurally equal. Arena IDs and
// SourcePath are ignored; tree shape, node payloads, connection order,
// variable order and the comment are compared.
func Equal(a, b *Document) bool {
	if a.Comment != b.Comment {
		return false
	}
	if len(a.Variables) != len(b.Variables) {
		return false
	}
	for i := range a.Variables {
		if a.Variables[i] != b.Variables[i] {
			return false
		}
	}
	if !reflect.DeepEqual(normalize(a.Tree.Flatten()), normalize(b.Tree.Flatten())) {
		return false
	}
	ac, bc := a.PathConnections(), b.PathConnections()
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if ac[i] != bc[i] {
			return false
		}
	}
	return true
}

// normalize treats nil and empty version maps alike.
func normalize(nodes []PathNode) []PathNode {
	for i := range nodes {
		if len(nodes[i].Node.Versions) == 0 {
			nodes[i].Node.Versions = nil
		}
	}
	return nodes
}
