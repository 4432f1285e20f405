package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/esq/internal/compiler"
	"github.com/roach88/esq/internal/ir"
	"github.com/roach88/esq/internal/querydsl"
)

// HashOptions holds flags for the hash command.
type HashOptions struct {
	*RootOptions
	Query string
}

// QueryHash is the hash output for one query.
type QueryHash struct {
	Name        string `json:"name"`
	Index       string `json:"index,omitempty"`
	Document    string `json:"document"`
	RequestHash string `json:"request"`
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HashOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hash <path>",
		Short: "Print content hashes of compiled queries",
		Long: `Print the content hash of each compiled query document.

The document hash identifies the request body alone and matches the hash
recorded in the journal. The request hash also covers the target index
and is the cache key used for search results.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "hash only the named query")

	return cmd
}

func runHash(opts *HashOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadSpecs(path, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message)
	}

	queries := loadResult.Queries
	if opts.Query != "" {
		q, ok := loadResult.Lookup(opts.Query)
		if !ok {
			return formatter.Fail(ExitCommandError, ErrCodeQueryNotFound, fmt.Sprintf("query %q not found", opts.Query))
		}
		queries = []*compiler.Query{q}
	}

	c := querydsl.NewCompiler()
	hashes := make([]QueryHash, 0, len(queries))
	for _, q := range queries {
		doc := c.Compile(q.Spec)
		docHash, err := ir.DocumentHash(doc)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
		}
		reqHash, err := ir.RequestHash(q.Spec.Index, doc)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
		}
		hashes = append(hashes, QueryHash{
			Name:        q.Name,
			Index:       q.Spec.Index,
			Document:    docHash,
			RequestHash: reqHash,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(hashes)
	}
	for _, h := range hashes {
		fmt.Fprintf(formatter.Writer, "%s  %s\n", h.Document, h.Name)
		formatter.VerboseLog("%s  %s (request)", h.RequestHash, h.Name)
	}
	return nil
}
