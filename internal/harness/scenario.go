package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a query compilation scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the query, so
	// compile errors read "<name>.where[0]: ...".
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Query is one query spec, with the same keys as a queries.<name>
	// entry in a spec file.
	Query map[string]any `yaml:"query"`

	// Expect is the document the query must compile to.
	Expect any `yaml:"expect,omitempty"`

	// ExpectError is a substring of the expected compile error.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions are checked against the compiled document.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Assertion validates part of a compiled document.
type Assertion struct {
	// Type is one of has_path, lacks_path, path_equals, hash_equals.
	Type string `yaml:"type"`

	// Path is a dotted path into the document; list elements are addressed
	// by index (query.bool.must.0).
	Path string `yaml:"path,omitempty"`

	// Value is the expected value (path_equals) or hash (hash_equals).
	Value any `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertHasPath    = "has_path"
	AssertLacksPath  = "lacks_path"
	AssertPathEquals = "path_equals"
	AssertHashEquals = "hash_equals"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Query == nil {
		return fmt.Errorf("query is required (use {} for an empty query)")
	}
	if s.Expect != nil && s.ExpectError != "" {
		return fmt.Errorf("expect and expect_error are mutually exclusive")
	}
	if s.ExpectError != "" && len(s.Assertions) > 0 {
		return fmt.Errorf("assertions need a document; remove them or expect_error")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertHasPath, AssertLacksPath:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for %s", index, a.Type)
		}
	case AssertPathEquals:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for %s", index, a.Type)
		}
	case AssertHashEquals:
		if s, ok := a.Value.(string); !ok || s == "" {
			return fmt.Errorf("assertions[%d]: value must be a hash string for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
