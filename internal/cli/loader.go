package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/esq/internal/builder"
	"github.com/roach88/esq/internal/compiler"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the queries loaded from a file or directory.
type LoadResult struct {
	Queries   []*compiler.Query
	Files     []string // Spec files read, in load order
	FileCount int      // Number of spec files found
}

// Lookup returns the query with the given name.
func (r *LoadResult) Lookup(name string) (*compiler.Query, bool) {
	for _, q := range r.Queries {
		if q.Name == name {
			return q, true
		}
	}
	return nil, false
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs loads and compiles query specs from a file or a directory.
// Directories are walked for .cue, .json, .yaml and .yml files; each file
// is compiled on its own and query names must be unique across files.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadSpecs(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("spec path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing spec path: %v", err)}}
	}

	var files []string
	if info.IsDir() {
		files, err = FindSpecFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(files) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no spec files found in %s", path)}}
		}
	} else {
		if _, ok := compiler.FormatOf(path); !ok {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("unsupported spec file: %s", path)}}
		}
		files = []string{path}
	}

	result := &LoadResult{Files: files, FileCount: len(files)}
	seen := make(map[string]string)
	var errs []error

	ctx := cuecontext.New()
	for _, file := range files {
		format, _ := compiler.FormatOf(file)
		data, err := os.ReadFile(file)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", file, err)})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		queries, err := compiler.CompileSource(ctx, data, file, format)
		if err != nil {
			errs = append(errs, convertCompileError(err, file))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		for _, q := range queries {
			if prev, dup := seen[q.Name]; dup {
				errs = append(errs, &LoadError{
					Code:    ErrCodeDuplicateQuery,
					Message: fmt.Sprintf("query %q is declared in both %s and %s", q.Name, prev, file),
				})
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			seen[q.Name] = file
			result.Queries = append(result.Queries, q)
		}
	}

	if len(result.Queries) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoQueries, Message: "no queries found in specs"})
	}
	return result, errs
}

// FindSpecFiles walks the directory and returns all query-spec file paths,
// sorted.
func FindSpecFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if _, ok := compiler.FormatOf(path); ok {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapErrorToCode(err),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeLoadFailed,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No spec files found
	ErrCodeLoadFailed  = "E004" // Spec file unreadable or unparsable
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // Query spec rejected
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeConfig      = "E008" // Configuration error

	// Query errors
	ErrCodeInvalidOperator  = "E101" // Unknown or misused comparison operator
	ErrCodeInvalidValue     = "E102" // Missing or malformed value
	ErrCodeInvalidStructure = "E103" // Malformed structural input
	ErrCodeInvalidQuery     = "E104" // Structural validation failed
	ErrCodeQueryNotFound    = "E110" // --query names no loaded query
	ErrCodeDuplicateQuery   = "E111" // Query declared twice
	ErrCodeNoQueries        = "E112" // Specs declare no queries

	// Execution errors
	ErrCodeNoExecutor    = "E201" // No search cluster configured
	ErrCodeSearchFailed  = "E202" // Search rejected or failed
	ErrCodeJournalFailed = "E203" // Journal unavailable
)

// MapErrorToCode maps a load or compile error to an error code.
func MapErrorToCode(err error) string {
	var loadErr *LoadError
	switch {
	case errors.As(err, &loadErr):
		return loadErr.Code
	case errors.Is(err, builder.ErrInvalidOperator):
		return ErrCodeInvalidOperator
	case errors.Is(err, builder.ErrInvalidValue):
		return ErrCodeInvalidValue
	case errors.Is(err, builder.ErrInvalidStructure):
		return ErrCodeInvalidStructure
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		if compileErr.Field == "cue" || compileErr.Field == "yaml" {
			return ErrCodeLoadFailed
		}
		return ErrCodeBuildFailed
	}
	return ErrCodeGeneric
}
