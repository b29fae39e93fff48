package domain

// Operator controls how a variable folds into the value accumulated for its label.
type Operator string

const (
	// OpAssign replaces the accumulated value.
	OpAssign Operator = "="
	// OpAppend concatenates onto the accumulated value.
	OpAppend Operator = "+"
	// OpNum adds numerically to the accumulated value.
	OpNum Operator = "num"
)

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	return o == OpAssign || o == OpAppend || o == OpNum
}

// Variable is one ordered entry of a document's variable table.
type Variable struct {
	Enabled  bool     `json:"enabled" mapstructure:"enabled"`
	Label    string   `json:"label" mapstructure:"label"`
	Operator Operator `json:"operator" mapstructure:"operator"`
	Value    string   `json:"value" mapstructure:"value"`
	Comment  string   `json:"comment" mapstructure:"comment"`
}
