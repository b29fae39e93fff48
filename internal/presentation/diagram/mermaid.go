package diagram

import (
	"fmt"
	"strings"

	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/graph"
)

// Overlay contains dynamic state data to visualize on the graph.
type Overlay struct {
	// Done lists node paths whose work already ran.
	Done []string
	// Current is the node path being edited or executed.
	Current string
}

// GenerateMermaid produces a Mermaid flowchart of doc. Nodes with children
// become subgraphs. Shapes follow the node type:
// - modul: [[Subroutine]]
// - loop: {{Hexagon}}
// - condition: {Rhombus}
// - data nodes: [/Parallelogram/]
// Connections are drawn with their plug names; disabled nodes are dimmed.
func GenerateMermaid(doc *graph.Document, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make(map[domain.NodeID]string)
	for i, id := range doc.Tree.AllNodes() {
		ids[id] = fmt.Sprintf("n%d", i)
	}

	var disabled []string
	var write func(id domain.NodeID, depth int)
	write = func(id domain.NodeID, depth int) {
		node, _ := doc.Tree.Node(id)
		children, _ := doc.Tree.Children(id)
		indent := strings.Repeat("    ", depth)
		label := escapeLabel(node.Name)

		if !node.Enabled {
			disabled = append(disabled, ids[id])
		}
		if len(children) > 0 {
			fmt.Fprintf(&sb, "%ssubgraph %s_group[\"%s\"]\n", indent, ids[id], label)
			fmt.Fprintf(&sb, "%s    %s%s\n", indent, ids[id], shape(node.Type, label))
			for _, c := range children {
				write(c, depth+1)
			}
			fmt.Fprintf(&sb, "%send\n", indent)
			return
		}
		fmt.Fprintf(&sb, "%s%s%s\n", indent, ids[id], shape(node.Type, label))
	}
	for _, root := range doc.Tree.Roots() {
		write(root, 1)
	}

	for _, c := range doc.Connections {
		fmt.Fprintf(&sb, "    %s -- \"%s → %s\" --> %s\n", ids[c.Source], c.SourcePlug, c.DestPlug, ids[c.Dest])
	}

	if len(disabled) > 0 {
		sb.WriteString("\n    classDef disabled fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray: 5 5,color:#757575;\n")
		for _, id := range disabled {
			fmt.Fprintf(&sb, "    class %s disabled;\n", id)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme.
		sb.WriteString("    classDef done fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, p := range overlay.Done {
			id, ok := doc.Tree.FindByPath(p)
			if !ok || seen[ids[id]] {
				continue
			}
			seen[ids[id]] = true
			fmt.Fprintf(&sb, "    class %s done;\n", ids[id])
		}
		if id, ok := doc.Tree.FindByPath(overlay.Current); ok && overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", ids[id])
		}
	}

	return sb.String()
}

func shape(t domain.NodeType, label string) string {
	switch t {
	case domain.NodeTypeModul:
		return "[[\"" + label + "\"]]"
	case domain.NodeTypeLoop:
		return "{{\"" + label + "\"}}"
	case domain.NodeTypeCondition:
		return "{\"" + label + "\"}"
	}
	return "[/\"" + label + "\"/]"
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}
