package domain

// NodeType is the closed set of node kinds a graph can hold.
type NodeType string

const (
	// NodeTypeModul groups other nodes. It has no plugs and no script.
	NodeTypeModul NodeType = "modul"
	// NodeTypeSysData runs a system (shell) script.
	NodeTypeSysData NodeType = "sysData"
	// NodeTypeCmdData runs a host command script (Mel/Nuke).
	NodeTypeCmdData NodeType = "cmdData"
	// NodeTypePyData runs a Python script.
	NodeTypePyData NodeType = "pyData"
	// NodeTypeLoop repeats its body once per iterator value.
	NodeTypeLoop NodeType = "loop"
	// NodeTypeCondition gates its body.
	// NOTE: behaviour beyond connectivity is not defined yet.
	NodeTypeCondition NodeType = "condition"
)

// NodeTypes lists every known type in declaration order.
var NodeTypes = []NodeType{
	NodeTypeModul,
	NodeTypeSysData,
	NodeTypeCmdData,
	NodeTypePyData,
	NodeTypeLoop,
	NodeTypeCondition,
}

// PlugCapabilities describes which plugs a node type exposes.
type PlugCapabilities struct {
	InputFile  bool
	InputData  bool
	OutputFile bool
	Script     bool
}

var capabilities = map[NodeType]PlugCapabilities{
	NodeTypeModul:     {},
	NodeTypeSysData:   {OutputFile: true, Script: true},
	NodeTypeCmdData:   {OutputFile: true, Script: true},
	NodeTypePyData:    {OutputFile: true, Script: true},
	NodeTypeLoop:      {InputFile: true, InputData: true, OutputFile: true},
	NodeTypeCondition: {InputFile: true, InputData: true, OutputFile: true},
}

// Valid reports whether t belongs to the closed set.
func (t NodeType) Valid() bool {
	_, ok := capabilities[t]
	return ok
}

// Capabilities returns the plug table entry of t. Unknown types expose nothing.
func (t NodeType) Capabilities() PlugCapabilities {
	return capabilities[t]
}

// HasScript reports whether nodes of this type carry a script payload.
func (t NodeType) HasScript() bool {
	return capabilities[t].Script
}

// Has reports whether the type exposes the given plug.
func (c PlugCapabilities) Has(kind PlugKind) bool {
	switch kind {
	case PlugInputFile:
		return c.InputFile
	case PlugInputData:
		return c.InputData
	case PlugOutputFile:
		return c.OutputFile
	}
	return false
}

// AcceptsChildren reports whether a node of type t may parent other nodes.
// Every current type does; the hook exists for leaf-only kinds.
func AcceptsChildren(t NodeType) bool {
	return true
}

// Node is a single step of a pipeline graph.
type Node struct {
	// Name is unique among all nodes of the owning tree.
	Name string   `json:"name" mapstructure:"name"`
	Type NodeType `json:"type" mapstructure:"type"`

	// Enabled nodes take part in execution. A disabled node hides its whole subtree.
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Expanded is a display hint only.
	Expanded bool `json:"expanded" mapstructure:"expanded"`
	// ExecFlag marks a node as directly executable rather than organizational.
	ExecFlag bool `json:"execFlag" mapstructure:"execFlag"`

	// Version selects the active take among Versions.
	Version  int            `json:"version" mapstructure:"version"`
	Versions map[int]string `json:"-" mapstructure:"-"`

	// Script holds the payload of the *Data types.
	Script string `json:"script,omitempty" mapstructure:"script"`
}

// NewNode returns an enabled node of the given type with an initial version 1.
func NewNode(name string, t NodeType) Node {
	return Node{
		Name:     name,
		Type:     t,
		Enabled:  true,
		Version:  1,
		Versions: map[int]string{1: "v001"},
	}
}

// VersionLabel returns the label of the active version, or "" if it has none.
func (n Node) VersionLabel() string {
	return n.Versions[n.Version]
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	c := n
	if n.Versions != nil {
		c.Versions = make(map[int]string, len(n.Versions))
		for k, v := range n.Versions {
			c.Versions[k] = v
		}
	}
	return c
}
