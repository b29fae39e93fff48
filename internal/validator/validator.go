// Package validator reports problems that a document can be saved with but
// not run with.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/graph"
)

// ValidateDocument checks variable expansion, script references, loop inputs,
// connections from nodes that never execute and data flow cycles. It returns
// nil for a runnable document.
func ValidateDocument(doc *graph.Document) error {
	var problems []string

	if _, err := doc.ExpandVariables(); err != nil {
		problems = append(problems, err.Error())
	}
	labels := make(map[string]bool)
	for _, v := range doc.Variables {
		if v.Enabled {
			labels[v.Label] = true
		}
	}

	runs := make(map[domain.NodeID]bool)
	for _, id := range doc.Tree.ExecutionOrder() {
		runs[id] = true
	}

	for _, id := range doc.Tree.AllNodes() {
		n, _ := doc.Tree.Node(id)
		path, _ := doc.Tree.Path(id)
		if n.Type.HasScript() {
			for _, ref := range graph.References(n.Script) {
				if !labels[ref] {
					problems = append(problems, fmt.Sprintf("%s references undefined variable ${%s}", path, ref))
				}
			}
		}
		if n.Type == domain.NodeTypeLoop && runs[id] {
			if _, ok := doc.Inbound(id, domain.PlugInputData); !ok {
				problems = append(problems, fmt.Sprintf("loop %s has no inputData connection", path))
			}
		}
	}

	for _, c := range doc.Connections {
		if !runs[c.Source] && runs[c.Dest] {
			src, _ := doc.Tree.Path(c.Source)
			dst, _ := doc.Tree.Path(c.Dest)
			problems = append(problems, fmt.Sprintf("%s feeds %s but never executes", src, dst))
		}
	}

	if cycle := findCycle(doc); cycle != nil {
		problems = append(problems, "data flow cycle: "+strings.Join(cycle, " -> "))
	}

	if len(problems) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(problems), strings.Join(problems, "\n- "))
	}
	return nil
}

// findCycle returns the node paths of one connection cycle, closed on its
// first node, or nil.
func findCycle(doc *graph.Document) []string {
	next := make(map[domain.NodeID][]domain.NodeID)
	for _, c := range doc.Connections {
		next[c.Source] = append(next[c.Source], c.Dest)
	}

	const (
		unvisited = iota
		active
		done
	)
	state := make(map[domain.NodeID]int)
	var stack []domain.NodeID
	var cycle []domain.NodeID

	var visit func(id domain.NodeID) bool
	visit = func(id domain.NodeID) bool {
		state[id] = active
		stack = append(stack, id)
		for _, n := range next[id] {
			switch state[n] {
			case active:
				for i, s := range stack {
					if s == n {
						cycle = append(append(cycle, stack[i:]...), n)
						return true
					}
				}
			case unvisited:
				if visit(n) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return false
	}

	for _, id := range doc.Tree.AllNodes() {
		if state[id] == unvisited && visit(id) {
			out := make([]string, 0, len(cycle))
			for _, c := range cycle {
				p, _ := doc.Tree.Path(c)
				out = append(out, p)
			}
			return out
		}
	}
	return nil
}
