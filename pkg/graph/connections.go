package graph

import (
	"fmt"

	"github.com/aretw0/grapher/pkg/domain"
)

// Connect links the output plug of src to the input plug of dst.
// The edge is appended after any existing fan-out of the source plug, so later
// connections win when downstream data conflicts.
func (d *Document) Connect(src domain.NodeID, srcPlug domain.PlugKind, dst domain.NodeID, dstPlug domain.PlugKind) (domain.Connection, error) {
	c := domain.Connection{Source: src, SourcePlug: srcPlug, Dest: dst, DestPlug: dstPlug}
	if err := d.validate(c); err != nil {
		return domain.Connection{}, err
	}
	d.Connections = append(d.Connections, c)
	return c, nil
}

func (d *Document) validate(c domain.Connection) error {
	srcNode, err := d.Tree.Node(c.Source)
	if err != nil {
		return err
	}
	dstNode, err := d.Tree.Node(c.Dest)
	if err != nil {
		return err
	}
	if c.Source == c.Dest {
		return fmt.Errorf("%w: %s", domain.ErrSelfConnection, srcNode.Name)
	}
	if !c.SourcePlug.IsOutput() || !c.DestPlug.IsInput() {
		return fmt.Errorf("%w: %s.%s -> %s.%s", domain.ErrInvalidPlugDirection,
			srcNode.Name, c.SourcePlug, dstNode.Name, c.DestPlug)
	}
	if !srcNode.Type.Capabilities().Has(c.SourcePlug) {
		return fmt.Errorf("%w: %s node %s has no %s plug", domain.ErrInvalidPlugDirection,
			srcNode.Type, srcNode.Name, c.SourcePlug)
	}
	if !dstNode.Type.Capabilities().Has(c.DestPlug) {
		return fmt.Errorf("%w: %s node %s has no %s plug", domain.ErrInvalidPlugDirection,
			dstNode.Type, dstNode.Name, c.DestPlug)
	}
	if _, ok := d.Inbound(c.Dest, c.DestPlug); ok {
		return fmt.Errorf("%w: %s.%s", domain.ErrDuplicateConnection, dstNode.Name, c.DestPlug)
	}
	return nil
}

// Disconnect removes c. Removing a connection that is not present is a no-op.
func (d *Document) Disconnect(c domain.Connection) {
	for i, existing := range d.Connections {
		if existing == c {
			d.Connections = append(d.Connections[:i], d.Connections[i+1:]...)
			return
		}
	}
}

// Outbound returns the ordered fan-out of the given output plug.
func (d *Document) Outbound(id domain.NodeID, plug domain.PlugKind) []domain.Connection {
	var out []domain.Connection
	for _, c := range d.Connections {
		if c.Source == id && c.SourcePlug == plug {
			out = append(out, c)
		}
	}
	return out
}

// Inbound returns the single upstream connection of the given input plug.
func (d *Document) Inbound(id domain.NodeID, plug domain.PlugKind) (domain.Connection, bool) {
	for _, c := range d.Connections {
		if c.Dest == id && c.DestPlug == plug {
			return c, true
		}
	}
	return domain.Connection{}, false
}
