package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roach88/esq/internal/config"
	"github.com/roach88/esq/internal/executor"
	"github.com/roach88/esq/internal/metrics"
	"github.com/roach88/esq/internal/store"
)

// Stack is the decorated executor and the resources behind it.
type Stack struct {
	// Executor is nil when no cluster is configured.
	Executor executor.Executor
	Metrics  *metrics.Executions
	Journal  *store.Store
	Redis    *redis.Client

	closers []func() error
}

// Close releases the journal and cache connections.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// BuildStack assembles the executor chain from cfg:
// Elasticsearch -> Cached -> Journal -> Instrument.
// Caching sits innermost so cache hits are still journaled and measured.
// reg may be nil.
func BuildStack(cfg config.Config, reg prometheus.Registerer, log *zap.Logger) (*Stack, error) {
	s := &Stack{Metrics: metrics.NewExecutions(reg)}

	if cfg.Journal.Enabled {
		st, err := store.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		s.Journal = st
		s.closers = append(s.closers, st.Close)
	}

	if !cfg.SearchEnabled() {
		log.Debug("no elasticsearch addresses configured; searches disabled")
		return s, nil
	}

	es, err := executor.NewElasticsearch(cfg.Elasticsearch, nil)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	var exec executor.Executor = es

	if cfg.Cache.Enabled {
		s.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		s.closers = append(s.closers, s.Redis.Close)
		exec = executor.Cached(exec, executor.NewRedisCache(s.Redis, cfg.Cache.KeyPrefix), cfg.CacheTTL(), s.Metrics)
	}
	if s.Journal != nil {
		exec = executor.Journal(exec, s.Journal)
	}
	s.Executor = executor.Instrument(exec, s.Metrics, log)

	log.Debug("executor ready",
		zap.Strings("addresses", cfg.Elasticsearch.Addresses),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.Bool("journal", cfg.Journal.Enabled),
	)
	return s, nil
}

// HealthChecks returns a check per configured dependency.
func (s *Stack) HealthChecks() map[string]func(context.Context) error {
	checks := make(map[string]func(context.Context) error)
	if s.Journal != nil {
		checks["journal"] = func(ctx context.Context) error { return s.Journal.DB().PingContext(ctx) }
	}
	if s.Redis != nil {
		checks["cache"] = func(ctx context.Context) error { return s.Redis.Ping(ctx).Err() }
	}
	return checks
}
