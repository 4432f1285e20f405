package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/esq/internal/querydsl"
)

// AssertGolden compares a compiled document, pretty-printed, against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, doc querydsl.Document) {
	t.Helper()

	pretty, err := doc.Pretty()
	if err != nil {
		t.Fatalf("pretty-print %s: %v", name, err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(pretty+"\n"))
}

// RunWithGolden runs a scenario and compares its golden form against
// testdata/golden/{scenario.Name}.golden.
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("run %s: %v", scenario.Name, err)
	}
	golden, err := result.Golden()
	if err != nil {
		t.Fatalf("golden %s: %v", scenario.Name, err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, golden)
	return result
}

// GoldenPath returns the golden file for a scenario file outside of
// tests: golden/<base>.golden next to the scenario.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// WriteGolden writes the result's golden form to path.
func WriteGolden(path string, result *Result) error {
	data, err := result.Golden()
	if err != nil {
		return fmt.Errorf("golden form: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the result matches the golden file at
// path byte for byte. A missing file is reported with os.ErrNotExist.
func CompareGolden(path string, result *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	got, err := result.Golden()
	if err != nil {
		return false, fmt.Errorf("golden form: %w", err)
	}
	return bytes.Equal(want, got), nil
}
