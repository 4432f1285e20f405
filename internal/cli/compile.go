package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/esq/internal/compiler"
	"github.com/roach88/esq/internal/ir"
	"github.com/roach88/esq/internal/querydsl"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Query  string // compile only this query
	Output string // output file path
}

// CompiledQuery is one compiled query in command output.
type CompiledQuery struct {
	Name     string            `json:"name"`
	Index    string            `json:"index,omitempty"`
	Scroll   string            `json:"scroll,omitempty"`
	Hash     string            `json:"hash"`
	Document querydsl.Document `json:"document"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <path>",
		Short: "Compile query specs to search documents",
		Long: `Compile query specs (.cue, .json, .yaml) to Elasticsearch request documents.

<path> is a spec file or a directory of spec files. Each query declared
under "queries" is compiled and printed with its document hash.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "compile only the named query")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadSpecs(path, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message)
	}

	formatter.VerboseLog("Found %d spec file(s) in %s", loadResult.FileCount, path)
	for _, q := range loadResult.Queries {
		formatter.VerboseLog("Compiling query: %s", q.Name)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	queries := loadResult.Queries
	if opts.Query != "" {
		q, ok := loadResult.Lookup(opts.Query)
		if !ok {
			return formatter.Fail(ExitCommandError, ErrCodeQueryNotFound, fmt.Sprintf("query %q not found", opts.Query))
		}
		queries = []*compiler.Query{q}
	}

	compiled, err := compileAll(queries)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	if opts.Output != "" {
		if err := writeCompiledToFile(compiled, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, compiled, opts.Output)
}

// compileAll compiles each query and hashes its document.
func compileAll(queries []*compiler.Query) ([]CompiledQuery, error) {
	c := querydsl.NewCompiler()
	out := make([]CompiledQuery, 0, len(queries))
	for _, q := range queries {
		doc := c.Compile(q.Spec)
		hash, err := ir.DocumentHash(doc)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", q.Name, err)
		}
		out = append(out, CompiledQuery{
			Name:     q.Name,
			Index:    q.Spec.Index,
			Scroll:   q.Spec.Scroll,
			Hash:     hash,
			Document: doc,
		})
	}
	return out, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, compiled []CompiledQuery, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(compiled)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d query(s)\n\n", len(compiled))
	for _, q := range compiled {
		header := q.Name
		if q.Index != "" {
			header += " → " + q.Index
		}
		fmt.Fprintf(formatter.Writer, "# %s (%s)\n", header, shortHash(q.Hash))
		pretty, err := q.Document.Pretty()
		if err != nil {
			return err
		}
		fmt.Fprintln(formatter.Writer, pretty)
		fmt.Fprintln(formatter.Writer)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote compiled documents to %s\n", outputFile)
	}
	return nil
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapErrorToCode(err), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeCompiledToFile writes the compiled queries as indented JSON.
func writeCompiledToFile(compiled []CompiledQuery, filename string) error {
	data, err := json.MarshalIndent(compiled, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling documents: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
