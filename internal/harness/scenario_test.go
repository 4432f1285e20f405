package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/adults_in_benelux.yaml")
	require.NoError(t, err)

	assert.Equal(t, "adults_in_benelux", s.Name)
	assert.Equal(t, "people", s.Query["index"])
	assert.NotNil(t, s.Expect)
	require.Len(t, s.Assertions, 3)
	assert.Equal(t, AssertHasPath, s.Assertions[0].Type)
	assert.Equal(t, 18, s.Assertions[2].Value)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nquery: {}\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nquery: {}\n",
			wantErr: "description is required",
		},
		{
			name:    "missing query",
			yaml:    "name: n\ndescription: d\n",
			wantErr: "query is required",
		},
		{
			name:    "unknown field",
			yaml:    "name: n\ndescription: d\nquery: {}\nexpects: {}\n",
			wantErr: "field expects not found",
		},
		{
			name:    "expect and expect_error",
			yaml:    "name: n\ndescription: d\nquery: {}\nexpect: {}\nexpect_error: x\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "assertions with expect_error",
			yaml:    "name: n\ndescription: d\nquery: {}\nexpect_error: x\nassertions: [{type: has_path, path: query}]\n",
			wantErr: "assertions need a document",
		},
		{
			name:    "assertion without type",
			yaml:    "name: n\ndescription: d\nquery: {}\nassertions: [{path: query}]\n",
			wantErr: "assertions[0]: type is required",
		},
		{
			name:    "assertion without path",
			yaml:    "name: n\ndescription: d\nquery: {}\nassertions: [{type: lacks_path}]\n",
			wantErr: "path is required for lacks_path",
		},
		{
			name:    "hash without value",
			yaml:    "name: n\ndescription: d\nquery: {}\nassertions: [{type: hash_equals}]\n",
			wantErr: "value must be a hash string",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\nquery: {}\nassertions: [{type: trace_order}]\n",
			wantErr: `unknown assertion type "trace_order"`,
		},
		{
			name:    "malformed yaml",
			yaml:    "name: [unclosed\n",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt", "sub/c.yaml", "golden/a.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	files, err := Discover(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "sub", "c.yaml"),
	}, files)

	files, err = Discover(dir, "[ab]")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = Discover(dir, "[")
	assert.ErrorContains(t, err, "invalid filter pattern")
}
