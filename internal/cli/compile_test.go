package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compiledJSON mirrors CompiledQuery with a generic document.
type compiledJSON struct {
	Name     string         `json:"name"`
	Index    string         `json:"index"`
	Hash     string         `json:"hash"`
	Document map[string]any `json:"document"`
}

func TestCompileValidSpecs(t *testing.T) {
	out, err := executeCmd(t, NewCompileCommand, &RootOptions{Format: "text"}, specsDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 3 query(s)")
	assert.Contains(t, out, "# active → users")
	assert.Contains(t, out, "# recent_orders → orders")
	assert.Contains(t, out, `"status": "active"`)
}

func TestCompileValidSpecsJSON(t *testing.T) {
	out, err := executeCmd(t, NewCompileCommand, &RootOptions{Format: "json"}, specsDir)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   []compiledJSON `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 3)

	// Files load in sorted order, queries in declaration order.
	assert.Equal(t, "recent_orders", resp.Data[0].Name)
	assert.Equal(t, "active", resp.Data[1].Name)
	assert.Equal(t, "adults", resp.Data[2].Name)

	active := resp.Data[1]
	assert.Equal(t, "users", active.Index)
	assert.Len(t, active.Hash, 64)
	assert.Equal(t, float64(20), active.Document["size"])
	assert.Equal(t, map[string]any{"term": map[string]any{"status": "active"}}, active.Document["query"])
}

func TestCompileSingleQuery(t *testing.T) {
	out, err := executeCmd(t, NewCompileCommand, &RootOptions{Format: "json"}, specsDir, "--query", "adults")
	require.NoError(t, err)

	var resp struct {
		Data []compiledJSON `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "adults", resp.Data[0].Name)
}

func TestCompileUnknownQuery(t *testing.T) {
	out, err := executeCmd(t, NewCompileCommand, &RootOptions{Format: "text"}, specsDir, "-q", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeQueryNotFound)
	assert.Contains(t, out, `query "missing" not found`)
}

func TestCompileSingleFile(t *testing.T) {
	out, err := executeCmd(t, NewCompileCommand, &RootOptions{Format: "text"}, filepath.Join(specsDir, "orders.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 1 query(s)")
	assert.Contains(t, out, `"exists"`)
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "compiled.json")

	out, err := executeCmd(t, NewCompileCommand, &RootOptions{Format: "text"}, specsDir, "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote compiled documents to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var compiled []compiledJSON
	require.NoError(t, json.Unmarshal(data, &compiled))
	assert.Len(t, compiled, 3)
}

func TestCompileInvalidOperator(t *testing.T) {
	out, err := executeCmd(t, NewCompileCommand, &RootOptions{Format: "text"}, invalidDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, "bad_operator.cue:4:")
	assert.Contains(t, out, ErrCodeInvalidOperator)
	assert.Contains(t, out, `unknown operator "~"`)
}

func TestCompileInvalidOperatorJSON(t *testing.T) {
	out, err := executeCmd(t, NewCompileCommand, &RootOptions{Format: "json"}, invalidDir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidOperator, resp.Error.Code)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		code  string
	}{
		{
			name:  "missing path",
			setup: func(t *testing.T) string { return "/nonexistent/specs" },
			code:  ErrCodeNotFound,
		},
		{
			name:  "empty directory",
			setup: func(t *testing.T) string { return t.TempDir() },
			code:  ErrCodeNoFiles,
		},
		{
			name: "unsupported file",
			setup: func(t *testing.T) string {
				return writeFile(t, t.TempDir(), "queries.toml", "x = 1")
			},
			code: ErrCodeNoFiles,
		},
		{
			name: "no queries",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "empty.cue", "other: 1\n")
				return dir
			},
			code: ErrCodeNoQueries,
		},
		{
			name: "duplicate query",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "a.cue", "queries: q: size: 1\n")
				writeFile(t, dir, "b.json", `{"queries": {"q": {"size": 2}}}`)
				return dir
			},
			code: ErrCodeDuplicateQuery,
		},
		{
			name: "syntax error",
			setup: func(t *testing.T) string {
				return writeFile(t, t.TempDir(), "bad.cue", "queries: q: {\n")
			},
			code: ErrCodeLoadFailed,
		},
		{
			name: "yaml syntax error",
			setup: func(t *testing.T) string {
				return writeFile(t, t.TempDir(), "bad.yaml", "queries:\n  q: [unclosed\n")
			},
			code: ErrCodeLoadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCmd(t, NewCompileCommand, &RootOptions{Format: "json"}, tt.setup(t))
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestLoadSpecs_FailFast(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", "queries: a: where: [{where: {field: \"x\", op: \"~\", value: 1}}]\n")
	writeFile(t, dir, "b.cue", "queries: b: where: [{where: {field: \"y\", op: \"~\", value: 1}}]\n")

	_, errs := LoadSpecs(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)

	_, errs = LoadSpecs(dir, LoadModeCollectAll)
	assert.Len(t, errs, 2)
}

func TestFindSpecFiles(t *testing.T) {
	files, err := FindSpecFiles(specsDir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(specsDir, "orders.yaml"),
		filepath.Join(specsDir, "users.cue"),
	}, files)
}

func TestLoadError_Error(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no spec files found in x"}
	assert.Equal(t, "E003: no spec files found in x", err.Error())
	assert.Equal(t, ErrCodeNoFiles, MapErrorToCode(err))
}
