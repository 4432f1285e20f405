package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/esq/internal/executor"
	"github.com/roach88/esq/internal/metrics"
	"github.com/roach88/esq/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port int // overrides http.port
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compile and search HTTP API",
		Long: `Serve the HTTP API:

  POST /v1/compile   compile a query spec to a search document
  POST /v1/search    compile and execute a query spec
  GET  /healthz      dependency health
  GET  /metrics      Prometheus metrics (when metrics.enabled)

Example:
  esq serve --config esq.yaml --port 9000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "listen port (default: http.port from config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}
	if opts.Port > 0 {
		cfg.HTTP.Port = opts.Port
	}

	log, err := opts.Logger(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}
	defer func() { _ = log.Sync() }()

	var (
		reg      prometheus.Registerer
		gatherer prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		r := prometheus.NewRegistry()
		r.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		reg, gatherer = r, r
	}

	stack, err := BuildStack(cfg, reg, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build executor", err)
	}
	defer func() {
		if closeErr := stack.Close(); closeErr != nil {
			log.Error("error closing executor stack", zap.Error(closeErr))
		}
	}()

	checks := make(map[string]server.HealthCheck)
	for name, check := range stack.HealthChecks() {
		checks[name] = check
	}

	var runner *executor.Runner
	if stack.Executor != nil {
		runner = executor.NewRunner(stack.Executor)
	}

	srvOpts := server.Options{
		Logger:       log,
		Runner:       runner,
		DefaultIndex: cfg.Elasticsearch.DefaultIndex,
		Checks:       checks,
	}
	if gatherer != nil {
		srvOpts.Metrics = metrics.NewHTTP(reg)
		srvOpts.Gatherer = gatherer
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("esq serving",
		zap.Int("port", cfg.HTTP.Port),
		zap.Bool("search", runner != nil),
		zap.Bool("metrics", gatherer != nil),
	)
	if err := server.New(srvOpts).ListenAndServe(ctx, cfg.HTTP); err != nil {
		return WrapExitError(ExitCommandError, "server failed", err)
	}
	return nil
}
