package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"gopkg.in/yaml.v3"
)

// Format is the syntax of a query-spec source.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, true
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// Parse builds a CUE value from source text. CUE and JSON are compiled
// directly, keeping positions; YAML is decoded first and encoded into CUE.
func Parse(ctx *cue.Context, data []byte, filename string, format Format) (cue.Value, error) {
	var v cue.Value
	switch format {
	case FormatCUE, FormatJSON:
		v = ctx.CompileBytes(data, cue.Filename(filename))
	case FormatYAML:
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return cue.Value{}, &CompileError{Field: "yaml", Message: fmt.Sprintf("%s: %v", filename, err)}
		}
		if doc == nil {
			doc = map[string]any{}
		}
		v = ctx.Encode(doc)
	default:
		return cue.Value{}, fmt.Errorf("unsupported query-spec format %q", format)
	}
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// CompileSource parses a spec file and compiles its queries struct.
func CompileSource(ctx *cue.Context, data []byte, filename string, format Format) ([]*Query, error) {
	v, err := Parse(ctx, data, filename, format)
	if err != nil {
		return nil, err
	}
	return CompileQueries(v)
}

// CompileSingle parses one bare query struct, as posted to the HTTP
// surface, and compiles it under the given name.
func CompileSingle(ctx *cue.Context, data []byte, name string, format Format) (*Query, error) {
	v, err := Parse(ctx, data, name, format)
	if err != nil {
		return nil, err
	}
	return compileNamed(v, name)
}
