package harness

import (
	"fmt"

	"github.com/roach88/esq/internal/querydsl"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	Pass bool `json:"pass"`

	// Document is the compiled document; empty when compilation failed.
	Document querydsl.Document `json:"document"`

	// Hash is the document hash; empty when compilation failed.
	Hash string `json:"hash,omitempty"`

	// CompileError is the compile error message, if any.
	CompileError string `json:"compile_error,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Golden returns the golden-file form of the result: the pretty-printed
// document, or the compile error for scenarios that expect one.
func (r *Result) Golden() ([]byte, error) {
	if r.CompileError != "" {
		return []byte(fmt.Sprintf("error: %s\n", r.CompileError)), nil
	}
	pretty, err := r.Document.Pretty()
	if err != nil {
		return nil, err
	}
	return []byte(pretty + "\n"), nil
}
