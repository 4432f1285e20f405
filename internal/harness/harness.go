package harness

import (
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/esq/internal/compiler"
	"github.com/roach88/esq/internal/ir"
	"github.com/roach88/esq/internal/querydsl"
)

// Run compiles the scenario's query and checks the outcome against its
// expectations. The returned error reports a harness failure (the
// scenario could not be evaluated at all); scenario failures are recorded
// in the result.
func Run(scenario *Scenario) (*Result, error) {
	data, err := json.Marshal(scenario.Query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	result := NewResult()
	q, compileErr := compiler.CompileSingle(cuecontext.New(), data, scenario.Name, compiler.FormatJSON)
	if compileErr != nil {
		result.CompileError = compileErr.Error()
		checkError(scenario, compileErr, result)
		return result, nil
	}

	result.Document = querydsl.NewCompiler().Compile(q.Spec)
	if result.Hash, err = ir.DocumentHash(result.Document); err != nil {
		return nil, fmt.Errorf("hash document: %w", err)
	}

	if scenario.ExpectError != "" {
		result.AddError(fmt.Sprintf("expected error containing %q, query compiled", scenario.ExpectError))
		return result, nil
	}

	if scenario.Expect != nil {
		if err := compareDocument(scenario.Expect, result.Document); err != nil {
			result.AddError(err.Error())
		}
	}

	generic, err := toGeneric(result.Document)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	for i, a := range scenario.Assertions {
		if err := evaluate(a, generic, result.Hash); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

func checkError(scenario *Scenario, err error, result *Result) {
	if scenario.ExpectError == "" {
		result.AddError(fmt.Sprintf("compile failed: %v", err))
		return
	}
	if !strings.Contains(err.Error(), scenario.ExpectError) {
		result.AddError(fmt.Sprintf("expected error containing %q, got %q", scenario.ExpectError, err.Error()))
	}
}

// compareDocument compares expected and actual in canonical form.
func compareDocument(expected any, actual querydsl.Document) error {
	want, err := ir.MarshalCanonical(expected)
	if err != nil {
		return fmt.Errorf("encode expect: %w", err)
	}
	got, err := ir.MarshalCanonical(actual)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if string(want) != string(got) {
		return &AssertionError{
			Type:     "expect",
			Expected: string(want),
			Actual:   string(got),
		}
	}
	return nil
}
