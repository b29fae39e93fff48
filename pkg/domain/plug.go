package domain

// PlugKind is a typed connection point on a node.
type PlugKind string

const (
	PlugInputFile  PlugKind = "inputFile"
	PlugInputData  PlugKind = "inputData"
	PlugOutputFile PlugKind = "outputFile"
)

// Valid reports whether k is one of the three plug kinds.
func (k PlugKind) Valid() bool {
	return k == PlugInputFile || k == PlugInputData || k == PlugOutputFile
}

// IsInput reports whether k receives data.
func (k PlugKind) IsInput() bool {
	return k == PlugInputFile || k == PlugInputData
}

// IsOutput reports whether k emits data.
func (k PlugKind) IsOutput() bool {
	return k == PlugOutputFile
}

// NodeID identifies a node inside one tree arena.
type NodeID int

// Connection is a directed link from an output plug to an input plug.
// Connections ignore tree parentage.
type Connection struct {
	Source     NodeID
	SourcePlug PlugKind
	Dest       NodeID
	DestPlug   PlugKind
}
