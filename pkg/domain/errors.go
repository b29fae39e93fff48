package domain

import (
	"errors"
	"fmt"
)

// Structural errors. The rejected mutation leaves the model unchanged.
var (
	// ErrInvalidParent is returned when a node cannot be placed under the requested parent.
	ErrInvalidParent = errors.New("invalid parent")
	// ErrNodeNotFound is returned when a node ID does not belong to the tree.
	ErrNodeNotFound = errors.New("node not found")
	// ErrCycle is returned when a node would be moved under itself or one of its descendants.
	ErrCycle = errors.New("move would create a cycle")
	// ErrDuplicateConnection is returned when an input plug already has an inbound edge.
	ErrDuplicateConnection = errors.New("input plug already connected")
	// ErrInvalidPlugDirection is returned for any edge that is not output -> compatible input.
	ErrInvalidPlugDirection = errors.New("invalid plug direction")
	// ErrSelfConnection is returned when source and destination are the same node.
	ErrSelfConnection = errors.New("node cannot connect to itself")
	// ErrInvalidNodeName is returned for an empty name or one containing the path separator.
	ErrInvalidNodeName = errors.New("invalid node name")
	// ErrInvalidNodeType is returned for a type outside the closed set.
	ErrInvalidNodeType = errors.New("invalid node type")
	// ErrIndexOutOfRange is returned for a variable index outside the table.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrVariableTypeMismatch is returned when a num operator meets a non-numeric value.
	ErrVariableTypeMismatch = errors.New("variable type mismatch")
)

// Format errors.
var (
	// ErrInvalidDocumentName is returned before any filesystem access for a bad document name.
	ErrInvalidDocumentName = errors.New("invalid document name")
	// ErrMalformedDocument is returned when content does not parse to the expected shape.
	ErrMalformedDocument = errors.New("malformed document")
)

// I/O errors. They always wrap the underlying OS or backend error.
var (
	ErrDocumentRead  = errors.New("document read failed")
	ErrDocumentWrite = errors.New("document write failed")
	ErrLockIO        = errors.New("lock io failed")
	ErrMarkerWrite   = errors.New("marker write failed")
	ErrLauncherWrite = errors.New("launcher write failed")
)

// ErrReadOnlyViolation is returned when a save is attempted without holding the lock.
var ErrReadOnlyViolation = errors.New("document is read-only: lock held by another user")

// VariableTypeMismatchError reports the variable that broke numeric accumulation.
type VariableTypeMismatchError struct {
	Index int    // Position in the variable table
	Label string // Accumulator label
	Value string // Offending value (operand or current accumulator)
}

func (e *VariableTypeMismatchError) Error() string {
	return fmt.Sprintf("variable %d (%q): num operator on non-numeric value %q", e.Index, e.Label, e.Value)
}

// Is makes errors.Is(err, ErrVariableTypeMismatch) match.
func (e *VariableTypeMismatchError) Is(target error) bool {
	return target == ErrVariableTypeMismatch
}
