package graph

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/grapher/pkg/domain"
)

// NoParent is the parent of root nodes.
const NoParent domain.NodeID = -1

// Append inserts after the last sibling.
const Append = -1

// PathSeparator joins ancestor names in a node path.
const PathSeparator = "/"

// ReservedName orders the records of a saved tree and cannot name a node.
const ReservedName = "_order"

type entry struct {
	node     domain.Node
	parent   domain.NodeID
	children []domain.NodeID
	live     bool
}

// Tree is an ordered forest of nodes stored in an arena.
// IDs are stable for the life of the tree and never reused after removal.
// Node names are unique across the whole tree, not per parent.
type Tree struct {
	arena []entry
	roots []domain.NodeID
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	n := 0
	for i := range t.arena {
		if t.arena[i].live {
			n++
		}
	}
	return n
}

func (t *Tree) get(id domain.NodeID) (*entry, error) {
	if id < 0 || int(id) >= len(t.arena) || !t.arena[id].live {
		return nil, fmt.Errorf("%w: id %d", domain.ErrNodeNotFound, id)
	}
	return &t.arena[id], nil
}

// Contains reports whether id is a live node.
func (t *Tree) Contains(id domain.NodeID) bool {
	_, err := t.get(id)
	return err == nil
}

// Node returns a copy of the node stored at id.
func (t *Tree) Node(id domain.NodeID) (domain.Node, error) {
	e, err := t.get(id)
	if err != nil {
		return domain.Node{}, err
	}
	return e.node.Clone(), nil
}

// Parent returns the parent of id, or NoParent for roots.
func (t *Tree) Parent(id domain.NodeID) (domain.NodeID, error) {
	e, err := t.get(id)
	if err != nil {
		return NoParent, err
	}
	return e.parent, nil
}

// Children returns the ordered children of id. Pass NoParent for the roots.
func (t *Tree) Children(id domain.NodeID) ([]domain.NodeID, error) {
	if id == NoParent {
		return append([]domain.NodeID(nil), t.roots...), nil
	}
	e, err := t.get(id)
	if err != nil {
		return nil, err
	}
	return append([]domain.NodeID(nil), e.children...), nil
}

// Roots returns the ordered root nodes.
func (t *Tree) Roots() []domain.NodeID {
	return append([]domain.NodeID(nil), t.roots...)
}

func (t *Tree) siblings(parent domain.NodeID) *[]domain.NodeID {
	if parent == NoParent {
		return &t.roots
	}
	return &t.arena[parent].children
}

// Insert adds node under parent at index, renaming it if its name collides.
// It returns the ID of the inserted node.
func (t *Tree) Insert(node domain.Node, parent domain.NodeID, index int) (domain.NodeID, error) {
	if !node.Type.Valid() {
		return NoParent, fmt.Errorf("%w: %q", domain.ErrInvalidNodeType, node.Type)
	}
	if err := checkName(node.Name); err != nil {
		return NoParent, err
	}
	if err := t.checkParent(parent); err != nil {
		return NoParent, err
	}

	n := node.Clone()
	n.Name = t.uniqueName(n.Name, NoParent)

	id := domain.NodeID(len(t.arena))
	t.arena = append(t.arena, entry{node: n, parent: parent, live: true})
	sib := t.siblings(parent)
	*sib = insertAt(*sib, index, id)
	return id, nil
}

func checkName(name string) error {
	if name == "" || name == ReservedName || strings.Contains(name, PathSeparator) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidNodeName, name)
	}
	return nil
}

func (t *Tree) checkParent(parent domain.NodeID) error {
	if parent == NoParent {
		return nil
	}
	p, err := t.get(parent)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidParent, err)
	}
	if !domain.AcceptsChildren(p.node.Type) {
		return fmt.Errorf("%w: %s nodes cannot have children", domain.ErrInvalidParent, p.node.Type)
	}
	return nil
}

// Remove detaches id and its whole subtree. It returns the removed IDs in pre-order.
// Connections are not touched; use Document.RemoveNode to drop them too.
func (t *Tree) Remove(id domain.NodeID) ([]domain.NodeID, error) {
	e, err := t.get(id)
	if err != nil {
		return nil, err
	}
	removed := t.subtree(id)
	sib := t.siblings(e.parent)
	*sib = removeID(*sib, id)
	for _, r := range removed {
		t.arena[r].live = false
		t.arena[r].children = nil
	}
	return removed, nil
}

// Move detaches id and reinserts it under newParent at newIndex.
// Moving a node under itself or one of its descendants returns ErrCycle.
func (t *Tree) Move(id, newParent domain.NodeID, newIndex int) error {
	e, err := t.get(id)
	if err != nil {
		return err
	}
	if err := t.checkParent(newParent); err != nil {
		return err
	}
	if newParent != NoParent && t.isDescendantOrSelf(newParent, id) {
		return fmt.Errorf("%w: %s under %s", domain.ErrCycle, t.mustPath(id), t.mustPath(newParent))
	}

	old := t.siblings(e.parent)
	*old = removeID(*old, id)
	e.parent = newParent
	sib := t.siblings(newParent)
	*sib = insertAt(*sib, newIndex, id)
	return nil
}

// isDescendantOrSelf walks up from candidate looking for ancestor.
func (t *Tree) isDescendantOrSelf(candidate, ancestor domain.NodeID) bool {
	for cur := candidate; cur != NoParent; cur = t.arena[cur].parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// Rename changes the name of id, resolving collisions against every other node.
// It returns the name actually assigned.
func (t *Tree) Rename(id domain.NodeID, newName string) (string, error) {
	e, err := t.get(id)
	if err != nil {
		return "", err
	}
	if err := checkName(newName); err != nil {
		return "", err
	}
	e.node.Name = t.uniqueName(newName, id)
	return e.node.Name, nil
}

// Update applies fn to the node stored at id. The name and type cannot be
// changed this way; use Document.UpdateNode to change the type of a node.
func (t *Tree) Update(id domain.NodeID, fn func(*domain.Node)) error {
	e, err := t.get(id)
	if err != nil {
		return err
	}
	n := e.node.Clone()
	fn(&n)
	if n.Type != e.node.Type {
		return fmt.Errorf("%w: %s cannot change type from %s to %q here",
			domain.ErrInvalidNodeType, e.node.Name, e.node.Type, n.Type)
	}
	n.Name = e.node.Name
	e.node = n
	return nil
}

// replace swaps the stored node, keeping its name. It returns the previous value.
func (t *Tree) replace(id domain.NodeID, fn func(*domain.Node)) (domain.Node, error) {
	e, err := t.get(id)
	if err != nil {
		return domain.Node{}, err
	}
	prev := e.node
	n := prev.Clone()
	fn(&n)
	if !n.Type.Valid() {
		return domain.Node{}, fmt.Errorf("%w: %q", domain.ErrInvalidNodeType, n.Type)
	}
	n.Name = prev.Name
	e.node = n
	return prev, nil
}

// FindByName returns the node with the given bare name.
func (t *Tree) FindByName(name string) (domain.NodeID, bool) {
	for i := range t.arena {
		if t.arena[i].live && t.arena[i].node.Name == name {
			return domain.NodeID(i), true
		}
	}
	return NoParent, false
}

// FindByPath returns the node whose ancestor chain matches path.
func (t *Tree) FindByPath(path string) (domain.NodeID, bool) {
	parts := strings.Split(strings.Trim(path, PathSeparator), PathSeparator)
	level := t.roots
	found := NoParent
	for _, part := range parts {
		next := NoParent
		for _, c := range level {
			if t.arena[c].node.Name == part {
				next = c
				break
			}
		}
		if next == NoParent {
			return NoParent, false
		}
		found = next
		level = t.arena[next].children
	}
	return found, found != NoParent
}

// Path returns the "/"-joined names from the root down to id.
func (t *Tree) Path(id domain.NodeID) (string, error) {
	if _, err := t.get(id); err != nil {
		return "", err
	}
	return t.mustPath(id), nil
}

func (t *Tree) mustPath(id domain.NodeID) string {
	var names []string
	for cur := id; cur != NoParent; cur = t.arena[cur].parent {
		names = append(names, t.arena[cur].node.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, PathSeparator)
}

// AllNodes returns every live node ID in depth-first pre-order.
func (t *Tree) AllNodes() []domain.NodeID {
	return t.walk(t.roots, func(domain.NodeID) bool { return true })
}

// ExecutionOrder is AllNodes without disabled nodes and their subtrees.
func (t *Tree) ExecutionOrder() []domain.NodeID {
	return t.walk(t.roots, func(id domain.NodeID) bool { return t.arena[id].node.Enabled })
}

func (t *Tree) subtree(id domain.NodeID) []domain.NodeID {
	return t.walk([]domain.NodeID{id}, func(domain.NodeID) bool { return true })
}

// walk is an explicit-stack pre-order traversal. Nodes rejected by keep are
// skipped along with their descendants.
func (t *Tree) walk(start []domain.NodeID, keep func(domain.NodeID) bool) []domain.NodeID {
	var out []domain.NodeID
	stack := make([]domain.NodeID, 0, len(start))
	for i := len(start) - 1; i >= 0; i-- {
		stack = append(stack, start[i])
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !keep(id) {
			continue
		}
		out = append(out, id)
		children := t.arena[id].children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}

// uniqueName resolves name against every live node other than exclude.
// A colliding name "base" or "base_K" becomes "base_N" where N is one more
// than the highest numeric suffix in use for base (a bare base counts as 0).
func (t *Tree) uniqueName(name string, exclude domain.NodeID) string {
	taken := false
	for i := range t.arena {
		if domain.NodeID(i) != exclude && t.arena[i].live && t.arena[i].node.Name == name {
			taken = true
			break
		}
	}
	if !taken {
		return name
	}

	base, _ := splitSuffix(name)
	for {
		highest := t.highestSuffix(base, exclude)
		if highest < math.MaxInt {
			return fmt.Sprintf("%s_%d", base, highest+1)
		}
		// The suffix space of base is exhausted; extend the saturated name instead.
		base = fmt.Sprintf("%s_%d", base, highest)
	}
}

func (t *Tree) highestSuffix(base string, exclude domain.NodeID) int {
	highest := 0
	for i := range t.arena {
		if domain.NodeID(i) == exclude || !t.arena[i].live {
			continue
		}
		if b, n := splitSuffix(t.arena[i].node.Name); b == base && n > highest {
			highest = n
		}
	}
	return highest
}

// splitSuffix splits "name_12" into ("name", 12). Names without a numeric
// suffix return (name, 0).
func splitSuffix(name string) (string, int) {
	i := strings.LastIndex(name, "_")
	if i <= 0 || i == len(name)-1 {
		return name, 0
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil || n < 0 || strings.HasPrefix(name[i+1:], "+") {
		return name, 0
	}
	return name[:i], n
}

func insertAt(ids []domain.NodeID, index int, id domain.NodeID) []domain.NodeID {
	if index < 0 || index >= len(ids) {
		return append(ids, id)
	}
	ids = append(ids, 0)
	copy(ids[index+1:], ids[index:])
	ids[index] = id
	return ids
}

func removeID(ids []domain.NodeID, id domain.NodeID) []domain.NodeID {
	for i, c := range ids {
		if c == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
