package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/esq/internal/compiler"
	"github.com/roach88/esq/internal/executor"
	"github.com/roach88/esq/internal/queryir"
)

// Run modes.
const (
	ModeGet      = "get"
	ModeFirst    = "first"
	ModeCount    = "count"
	ModePaginate = "paginate"
	ModeScan     = "scan"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Query string
	Mode  string
	Index string // overrides the spec and default index
	Page  int
	Size  int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <path>",
		Short: "Execute a query against Elasticsearch",
		Long: `Compile one query and execute it against the configured cluster.

Modes:
  get       total, records and aggregations
  first     the first record only
  count     the exact number of matches
  paginate  one page, with --page and --size
  scan      every record through a scroll cursor, one JSON object per line

Example:
  esq run ./specs --query adults --config esq.yaml
  esq run ./specs/users.cue -q active --mode paginate --page 2 --size 50`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "query to run (required when the specs declare more than one)")
	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", ModeGet, "get|first|count|paginate|scan")
	cmd.Flags().StringVar(&opts.Index, "index", "", "index override")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number for paginate")
	cmd.Flags().IntVar(&opts.Size, "size", 10, "page size for paginate")

	return cmd
}

func runQuery(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	switch opts.Mode {
	case ModeGet, ModeFirst, ModeCount, ModePaginate, ModeScan:
	default:
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("unknown mode %q", opts.Mode))
	}

	cfg, err := opts.LoadConfig()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error())
	}

	loadResult, loadErrors := LoadSpecs(path, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message)
	}
	q, err := pickQuery(loadResult, opts.Query)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeQueryNotFound, err.Error())
	}

	spec := q.Spec.Clone()
	switch {
	case opts.Index != "":
		spec.Index = opts.Index
	case spec.Index == "":
		spec.Index = cfg.Elasticsearch.DefaultIndex
	}
	if opts.Mode == ModeScan && spec.Scroll == "" {
		spec.Scroll = cfg.Elasticsearch.Scroll
	}

	log, err := opts.Logger(cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error())
	}
	defer func() { _ = log.Sync() }()

	stack, err := BuildStack(cfg, nil, log)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error())
	}
	defer func() {
		if closeErr := stack.Close(); closeErr != nil {
			log.Warn("error closing executor stack", zap.Error(closeErr))
		}
	}()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Scans run for as long as the cursor has pages.
	if opts.Mode != ModeScan {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout())
		defer cancel()
	}

	log.Debug("running query",
		zap.String("query", q.Name),
		zap.String("index", spec.Index),
		zap.String("mode", opts.Mode),
	)

	runner := executor.NewRunner(stack.Executor)
	data, err := execute(ctx, runner, spec, opts, formatter)
	if err != nil {
		return outputRunError(formatter, err)
	}
	if data == nil {
		return nil
	}

	if formatter.Format == "json" {
		return formatter.Success(data)
	}
	return formatter.Indented(data)
}

// pickQuery selects the named query, or the only one loaded.
func pickQuery(result *LoadResult, name string) (*compiler.Query, error) {
	if name == "" {
		if len(result.Queries) == 1 {
			return result.Queries[0], nil
		}
		return nil, fmt.Errorf("--query is required: specs declare %d queries", len(result.Queries))
	}
	q, ok := result.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("query %q not found", name)
	}
	return q, nil
}

// execute runs spec in the requested mode. Scan streams its records and
// returns nil data.
func execute(ctx context.Context, runner *executor.Runner, spec *queryir.QuerySpec, opts *RunOptions, formatter *OutputFormatter) (any, error) {
	switch opts.Mode {
	case ModeFirst:
		rec, err := runner.First(ctx, spec)
		if err != nil {
			return nil, err
		}
		return map[string]any{"record": rec}, nil
	case ModeCount:
		n, err := runner.Count(ctx, spec)
		if err != nil {
			return nil, err
		}
		return map[string]any{"count": n}, nil
	case ModePaginate:
		return runner.Paginate(ctx, spec, opts.Page, opts.Size)
	case ModeScan:
		enc := json.NewEncoder(formatter.Writer)
		n, err := runner.Scan(ctx, spec, func(rec executor.Record) error {
			return enc.Encode(rec)
		})
		formatter.VerboseLog("Scanned %d record(s)", n)
		return nil, err
	default:
		return runner.Get(ctx, spec)
	}
}

// outputRunError reports a failed execution. A missing cluster is a
// command error; anything the cluster rejects is a failure.
func outputRunError(formatter *OutputFormatter, err error) error {
	if errors.Is(err, executor.ErrNoExecutor) {
		_ = formatter.Error(ErrCodeNoExecutor, "no elasticsearch addresses configured", nil)
		return WrapExitError(ExitCommandError, ErrCodeNoExecutor, err)
	}
	_ = formatter.Error(ErrCodeSearchFailed, err.Error(), nil)
	return WrapExitError(ExitFailure, ErrCodeSearchFailed, err)
}
