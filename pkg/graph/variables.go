package graph

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/aretw0/grapher/pkg/domain"
)

// Direction moves a variable one slot up or down the table.
type Direction int

const (
	Up   Direction = -1
	Down Direction = 1
)

// AddVariable inserts v at index. An index outside the table appends.
func (d *Document) AddVariable(index int, v domain.Variable) {
	if index < 0 || index >= len(d.Variables) {
		d.Variables = append(d.Variables, v)
		return
	}
	d.Variables = append(d.Variables, domain.Variable{})
	copy(d.Variables[index+1:], d.Variables[index:])
	d.Variables[index] = v
}

// RemoveVariable deletes the variable at index.
func (d *Document) RemoveVariable(index int) error {
	if index < 0 || index >= len(d.Variables) {
		return fmt.Errorf("%w: variable %d of %d", domain.ErrIndexOutOfRange, index, len(d.Variables))
	}
	d.Variables = append(d.Variables[:index], d.Variables[index+1:]...)
	return nil
}

// MoveVariable swaps the variable at index with its neighbour in dir.
// Moving the first entry up or the last entry down does nothing.
func (d *Document) MoveVariable(index int, dir Direction) error {
	if index < 0 || index >= len(d.Variables) {
		return fmt.Errorf("%w: variable %d of %d", domain.ErrIndexOutOfRange, index, len(d.Variables))
	}
	target := index + int(dir)
	if target < 0 || target >= len(d.Variables) {
		return nil
	}
	d.Variables[index], d.Variables[target] = d.Variables[target], d.Variables[index]
	return nil
}

var referencePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.]*)\}`)

// substitute replaces ${label} references found in values. Unknown labels stay verbatim.
func substitute(s string, values map[string]string) string {
	return referencePattern.ReplaceAllStringFunc(s, func(m string) string {
		label := referencePattern.FindStringSubmatch(m)[1]
		if v, ok := values[label]; ok {
			return v
		}
		return m
	})
}

// References returns the labels referenced with ${label} in s, in order of
// first appearance.
func References(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range referencePattern.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// ExpandVariables folds the enabled variables, in table order, into one value per label.
// A value may reference labels resolved earlier in the table with ${label}.
func (d *Document) ExpandVariables() (map[string]string, error) {
	acc := make(map[string]string)
	for i, v := range d.Variables {
		if !v.Enabled {
			continue
		}
		value := substitute(v.Value, acc)
		current, seen := acc[v.Label]

		switch v.Operator {
		case domain.OpAssign:
			acc[v.Label] = value
		case domain.OpAppend:
			acc[v.Label] = current + value
		case domain.OpNum:
			operand, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, &domain.VariableTypeMismatchError{Index: i, Label: v.Label, Value: value}
			}
			total := 0.0
			if seen {
				total, err = strconv.ParseFloat(current, 64)
				if err != nil {
					return nil, &domain.VariableTypeMismatchError{Index: i, Label: v.Label, Value: current}
				}
			}
			acc[v.Label] = strconv.FormatFloat(total+operand, 'f', -1, 64)
		default:
			return nil, fmt.Errorf("variable %d (%q): unknown operator %q", i, v.Label, v.Operator)
		}
	}
	return acc, nil
}

// ExpandScript returns the script of id with ${label} references resolved.
func (d *Document) ExpandScript(id domain.NodeID) (string, error) {
	n, err := d.Tree.Node(id)
	if err != nil {
		return "", err
	}
	values, err := d.ExpandVariables()
	if err != nil {
		return "", err
	}
	return substitute(n.Script, values), nil
}
