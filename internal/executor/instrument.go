package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/esq/internal/metrics"
)

type instrumented struct {
	next    Executor
	metrics *metrics.Executions
	log     *zap.Logger
}

// Instrument records metrics and logs for every request. A nil logger
// disables logging.
func Instrument(next Executor, m *metrics.Executions, log *zap.Logger) Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &instrumented{next: next, metrics: m, log: log}
}

func (i *instrumented) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := i.next.Execute(ctx, req)
	i.observe(req, start, resp, err)
	return resp, err
}

func (i *instrumented) ExecuteWithCursor(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := i.next.ExecuteWithCursor(ctx, req)
	i.observe(req, start, resp, err)
	return resp, err
}

func (i *instrumented) ClearCursor(ctx context.Context, scrollID string) error {
	err := i.next.ClearCursor(ctx, scrollID)
	if err != nil {
		i.log.Warn("clear scroll failed", zap.Error(err))
	}
	return err
}

func (i *instrumented) observe(req Request, start time.Time, resp *Response, err error) {
	elapsed := time.Since(start)
	hits := 0
	if resp != nil {
		hits = len(resp.Hits.Hits)
	}
	if i.metrics != nil {
		i.metrics.Observe(req.Index, req.Mode(), elapsed.Seconds(), hits, err)
	}

	if err != nil {
		i.log.Warn("search failed",
			zap.String("index", req.Index),
			zap.String("mode", req.Mode()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return
	}
	i.log.Debug("search executed",
		zap.String("index", req.Index),
		zap.String("mode", req.Mode()),
		zap.Duration("elapsed", elapsed),
		zap.Int64("took_ms", resp.Took),
		zap.Int64("total", resp.Hits.Total.Value),
		zap.Int("hits", hits),
	)
}
