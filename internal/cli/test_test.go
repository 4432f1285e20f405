package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := executeCmd(t, NewTestCommand, &RootOptions{Format: "text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := executeCmd(t, NewTestCommand, &RootOptions{Format: "text"}, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := executeCmd(t, NewTestCommand, &RootOptions{Format: "text"}, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := executeCmd(t, NewTestCommand, &RootOptions{Format: "json"}, t.TempDir())
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandScenarios(t *testing.T) {
	out, err := executeCmd(t, NewTestCommand, &RootOptions{Format: "text"}, "testdata/scenarios")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ bad_operator")
	assert.Contains(t, out, "✓ status_term")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilterJSON(t *testing.T) {
	out, err := executeCmd(t, NewTestCommand, &RootOptions{Format: "json"}, "testdata/scenarios", "--filter", "status_*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "status_term", resp.Data.Scenarios[0].Name)
	assert.Len(t, resp.Data.Scenarios[0].Hash, 64)
}

const termScenario = `name: term
description: "term query"
query:
  where:
    - where: {field: status, value: active}
`

func TestTestCommandUpdateAndMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "term.yaml", termScenario)

	out, err := executeCmd(t, NewTestCommand, &RootOptions{Format: "text"}, dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ term (golden updated)")

	goldenPath := filepath.Join(dir, "golden", "term.golden")
	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status": "active"`)

	_, err = executeCmd(t, NewTestCommand, &RootOptions{Format: "text"}, dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0o644))
	out, err = executeCmd(t, NewTestCommand, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ term")
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wrong.yaml", `name: wrong
description: "expects the wrong document"
query:
  where:
    - where: {field: status, value: active}
expect:
  query:
    term: {status: inactive}
`)
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	out, err := executeCmd(t, NewTestCommand, &RootOptions{Format: "json"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 2, resp.Data.Failed)

	// Discover sorts: broken.yaml, then wrong.yaml
	assert.Equal(t, "broken.yaml", resp.Data.Scenarios[0].Name)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "failed to load scenario")
	assert.Equal(t, "wrong", resp.Data.Scenarios[1].Name)
	assert.Contains(t, resp.Data.Scenarios[1].Errors[0], "assertion failed: expect")
}

func TestTestHelpText(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{})
	assert.Contains(t, cmd.Long, "Exit codes")
	assert.Contains(t, cmd.Long, "--update")
}
