package codec

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/graph"
	"github.com/mitchellh/mapstructure"
)

// OrderKey lists the keys of an ordered mapping.
const OrderKey = graph.ReservedName

// Assignment is one "identifier = literal" line.
type Assignment struct {
	Ident string
	Value any
}

// Encode writes assignments in order, preceded by an optional header comment.
func Encode(header string, assignments ...Assignment) ([]byte, error) {
	var buf bytes.Buffer
	if header != "" {
		fmt.Fprintf(&buf, "# %s\n", header)
	}
	for _, a := range assignments {
		lit, err := json.Marshal(a.Value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", a.Ident, err)
		}
		fmt.Fprintf(&buf, "%s = %s\n", a.Ident, lit)
	}
	return buf.Bytes(), nil
}

// Decode parses every assignment line of data. Blank lines and "#" comments
// are skipped. Only identifiers in allowed are accepted, each at most once.
// Numbers are kept as json.Number.
func Decode(data []byte, allowed ...string) (map[string]any, error) {
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}

	out := make(map[string]any)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ident, lit, found := strings.Cut(line, "=")
		ident = strings.TrimSpace(ident)
		if !found || ident == "" {
			return nil, fmt.Errorf("%w: line %d: expected identifier = literal", domain.ErrMalformedDocument, lineNo)
		}
		if !ok[ident] {
			return nil, fmt.Errorf("%w: line %d: unknown identifier %q", domain.ErrMalformedDocument, lineNo, ident)
		}
		if _, dup := out[ident]; dup {
			return nil, fmt.Errorf("%w: line %d: duplicate identifier %q", domain.ErrMalformedDocument, lineNo, ident)
		}

		dec := json.NewDecoder(strings.NewReader(lit))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: line %d: %s: %w", domain.ErrMalformedDocument, lineNo, ident, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("%w: line %d: %s: trailing data", domain.ErrMalformedDocument, lineNo, ident)
		}
		out[ident] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedDocument, err)
	}
	return out, nil
}

// DecodeRecord decodes a single-assignment file such as a lock or marker into out.
func DecodeRecord(data []byte, ident string, out any) error {
	values, err := Decode(data, ident)
	if err != nil {
		return err
	}
	v, ok := values[ident]
	if !ok {
		return fmt.Errorf("%w: missing %q", domain.ErrMalformedDocument, ident)
	}
	return decodeStruct(v, out, ident)
}

// decodeStruct maps a decoded literal onto a tagged struct without weak typing,
// so a string where a bool is expected is rejected.
func decodeStruct(in, out any, what string) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrMalformedDocument, what, err)
	}
	return nil
}
