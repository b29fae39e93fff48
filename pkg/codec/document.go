package codec

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/graph"
)

// Top-level identifiers of a document file.
const (
	IdentComment     = "comment"
	IdentVariables   = "variables"
	IdentConnections = "connections"
	IdentTree        = "tree"
)

const documentHeader = "grapher document"

type nodeRecord struct {
	Name     string         `mapstructure:"name"`
	Type     string         `mapstructure:"type"`
	Parent   string         `mapstructure:"parent"`
	Enabled  bool           `mapstructure:"enabled"`
	Expanded bool           `mapstructure:"expanded"`
	ExecFlag bool           `mapstructure:"execFlag"`
	Version  int            `mapstructure:"version"`
	Versions map[string]any `mapstructure:"versions"`
	Script   string         `mapstructure:"script"`
}

type connectionRecord struct {
	Source     string `mapstructure:"source"`
	SourcePlug string `mapstructure:"sourcePlug"`
	Dest       string `mapstructure:"dest"`
	DestPlug   string `mapstructure:"destPlug"`
}

// Marshal encodes doc in the literal assignment format.
func Marshal(doc *graph.Document) ([]byte, error) {
	variables := make([]map[string]any, 0, len(doc.Variables))
	for _, v := range doc.Variables {
		variables = append(variables, map[string]any{
			"enabled":  v.Enabled,
			"label":    v.Label,
			"operator": string(v.Operator),
			"value":    v.Value,
			"comment":  v.Comment,
		})
	}

	connections := make([]map[string]any, 0, len(doc.Connections))
	for _, c := range doc.PathConnections() {
		connections = append(connections, map[string]any{
			"source":     c.Source,
			"sourcePlug": string(c.SourcePlug),
			"dest":       c.Dest,
			"destPlug":   string(c.DestPlug),
		})
	}

	flat := doc.Tree.Flatten()
	order := make([]string, 0, len(flat))
	tree := make(map[string]any, len(flat)+1)
	for _, pn := range flat {
		order = append(order, pn.Path)
		tree[pn.Path] = map[string]any{
			"name":     pn.Node.Name,
			"type":     string(pn.Node.Type),
			"parent":   pn.Parent,
			"enabled":  pn.Node.Enabled,
			"expanded": pn.Node.Expanded,
			"execFlag": pn.Node.ExecFlag,
			"version":  pn.Node.Version,
			"versions": encodeVersions(pn.Node.Versions),
			"script":   pn.Node.Script,
		}
	}
	tree[OrderKey] = order

	return Encode(documentHeader,
		Assignment{IdentComment, doc.Comment},
		Assignment{IdentVariables, variables},
		Assignment{IdentConnections, connections},
		Assignment{IdentTree, tree},
	)
}

func encodeVersions(versions map[int]string) map[string]any {
	ids := make([]int, 0, len(versions))
	for id := range versions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make(map[string]any, len(ids)+1)
	order := make([]string, 0, len(ids))
	for _, id := range ids {
		key := strconv.Itoa(id)
		order = append(order, key)
		out[key] = versions[id]
	}
	out[OrderKey] = order
	return out
}

// Unmarshal decodes a document. It either returns a fully built document or
// an ErrMalformedDocument error, never a partial result.
func Unmarshal(data []byte) (*graph.Document, error) {
	values, err := Decode(data, IdentComment, IdentVariables, IdentConnections, IdentTree)
	if err != nil {
		return nil, err
	}
	for _, ident := range []string{IdentComment, IdentVariables, IdentConnections, IdentTree} {
		if _, ok := values[ident]; !ok {
			return nil, fmt.Errorf("%w: missing %q", domain.ErrMalformedDocument, ident)
		}
	}

	doc := graph.NewDocument()

	comment, ok := values[IdentComment].(string)
	if !ok {
		return nil, fmt.Errorf("%w: comment must be a string", domain.ErrMalformedDocument)
	}
	doc.Comment = comment

	var variables []domain.Variable
	if err := decodeStruct(values[IdentVariables], &variables, IdentVariables); err != nil {
		return nil, err
	}
	for i, v := range variables {
		if !v.Operator.Valid() {
			return nil, fmt.Errorf("%w: variable %d: unknown operator %q", domain.ErrMalformedDocument, i, v.Operator)
		}
	}
	doc.Variables = variables

	ids, err := buildTree(doc, values[IdentTree])
	if err != nil {
		return nil, err
	}

	var connections []connectionRecord
	if err := decodeStruct(values[IdentConnections], &connections, IdentConnections); err != nil {
		return nil, err
	}
	for i, c := range connections {
		src, okSrc := ids[c.Source]
		dst, okDst := ids[c.Dest]
		if !okSrc || !okDst {
			return nil, fmt.Errorf("%w: connection %d references unknown node", domain.ErrMalformedDocument, i)
		}
		if _, err := doc.Connect(src, domain.PlugKind(c.SourcePlug), dst, domain.PlugKind(c.DestPlug)); err != nil {
			return nil, fmt.Errorf("%w: connection %d: %w", domain.ErrMalformedDocument, i, err)
		}
	}

	return doc, nil
}

// buildTree inserts the nodes of a tree literal in "_order" sequence and
// returns the path -> ID index.
func buildTree(doc *graph.Document, raw any) (map[string]domain.NodeID, error) {
	tree, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: tree must be a mapping", domain.ErrMalformedDocument)
	}
	order, err := orderOf(tree, "tree")
	if err != nil {
		return nil, err
	}
	if len(order) != len(tree)-1 {
		return nil, fmt.Errorf("%w: tree %s lists %d of %d nodes", domain.ErrMalformedDocument, OrderKey, len(order), len(tree)-1)
	}

	ids := make(map[string]domain.NodeID, len(order))
	for _, path := range order {
		raw, ok := tree[path]
		if !ok {
			return nil, fmt.Errorf("%w: tree %s names unknown node %q", domain.ErrMalformedDocument, OrderKey, path)
		}
		if _, dup := ids[path]; dup {
			return nil, fmt.Errorf("%w: node %q listed twice", domain.ErrMalformedDocument, path)
		}
		var rec nodeRecord
		if err := decodeStruct(raw, &rec, path); err != nil {
			return nil, err
		}

		parent := graph.NoParent
		want := rec.Name
		if rec.Parent != "" {
			p, ok := ids[rec.Parent]
			if !ok {
				return nil, fmt.Errorf("%w: node %q has unknown parent %q", domain.ErrMalformedDocument, path, rec.Parent)
			}
			parent = p
			want = rec.Parent + graph.PathSeparator + rec.Name
		}
		if want != path {
			return nil, fmt.Errorf("%w: node key %q does not match its path %q", domain.ErrMalformedDocument, path, want)
		}

		versions, err := decodeVersions(rec.Versions, path)
		if err != nil {
			return nil, err
		}
		node := domain.Node{
			Name:     rec.Name,
			Type:     domain.NodeType(rec.Type),
			Enabled:  rec.Enabled,
			Expanded: rec.Expanded,
			ExecFlag: rec.ExecFlag,
			Version:  rec.Version,
			Versions: versions,
			Script:   rec.Script,
		}
		id, err := doc.Tree.Insert(node, parent, graph.Append)
		if err != nil {
			return nil, fmt.Errorf("%w: node %q: %w", domain.ErrMalformedDocument, path, err)
		}
		if got, _ := doc.Tree.Node(id); got.Name != rec.Name {
			return nil, fmt.Errorf("%w: duplicate node name %q", domain.ErrMalformedDocument, rec.Name)
		}
		ids[path] = id
	}
	return ids, nil
}

func decodeVersions(raw map[string]any, path string) (map[int]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	order, err := orderOf(raw, path+" versions")
	if err != nil {
		return nil, err
	}
	if len(order) != len(raw)-1 {
		return nil, fmt.Errorf("%w: %s: versions %s lists %d of %d entries", domain.ErrMalformedDocument, path, OrderKey, len(order), len(raw)-1)
	}
	out := make(map[int]string, len(order))
	for _, key := range order {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: version id %q is not an integer", domain.ErrMalformedDocument, path, key)
		}
		label, ok := raw[key].(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s: version %q label must be a string", domain.ErrMalformedDocument, path, key)
		}
		out[id] = label
	}
	return out, nil
}

func orderOf(m map[string]any, what string) ([]string, error) {
	raw, ok := m[OrderKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s key", domain.ErrMalformedDocument, what, OrderKey)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s must be a list", domain.ErrMalformedDocument, what, OrderKey)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s %s must list strings", domain.ErrMalformedDocument, what, OrderKey)
		}
		out = append(out, s)
	}
	return out, nil
}
