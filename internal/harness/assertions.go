package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/esq/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Path     string // Document path, when the assertion has one
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s", e.Type)
	if e.Path != "" {
		fmt.Fprintf(&buf, " at %s", e.Path)
	}
	fmt.Fprintf(&buf, "\n  expected: %s\n  actual:   %s", e.Expected, e.Actual)
	return buf.String()
}

// evaluate checks one assertion against the decoded document.
func evaluate(a Assertion, doc any, hash string) error {
	switch a.Type {
	case AssertHasPath:
		if _, err := lookup(doc, a.Path); err != nil {
			return &AssertionError{Type: a.Type, Path: a.Path, Expected: "path present", Actual: err.Error()}
		}
	case AssertLacksPath:
		if v, err := lookup(doc, a.Path); err == nil {
			return &AssertionError{Type: a.Type, Path: a.Path, Expected: "path absent", Actual: describe(v)}
		}
	case AssertPathEquals:
		v, err := lookup(doc, a.Path)
		if err != nil {
			return &AssertionError{Type: a.Type, Path: a.Path, Expected: describe(a.Value), Actual: err.Error()}
		}
		want, err := ir.MarshalCanonical(a.Value)
		if err != nil {
			return fmt.Errorf("encode value: %w", err)
		}
		got, err := ir.MarshalCanonical(v)
		if err != nil {
			return fmt.Errorf("encode document value: %w", err)
		}
		if string(want) != string(got) {
			return &AssertionError{Type: a.Type, Path: a.Path, Expected: string(want), Actual: string(got)}
		}
	case AssertHashEquals:
		if want, _ := a.Value.(string); want != hash {
			return &AssertionError{Type: a.Type, Expected: want, Actual: hash}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// lookup resolves a dotted path. Object keys are matched exactly; list
// elements are addressed by decimal index.
func lookup(doc any, path string) (any, error) {
	cur := doc
	for i, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("no key %q at %s", part, prefix(path, i))
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("no index %q at %s (length %d)", part, prefix(path, i), len(node))
			}
			cur = node[idx]
		default:
			return nil, fmt.Errorf("%s is a scalar", prefix(path, i))
		}
	}
	return cur, nil
}

func prefix(path string, n int) string {
	if n == 0 {
		return "document root"
	}
	return strings.Join(strings.Split(path, ".")[:n], ".")
}

func describe(v any) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// toGeneric decodes a JSON-encodable value into maps and slices, keeping
// numbers as json.Number.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
