// Package metrics holds the Prometheus collectors for search executions
// and the HTTP surface.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Executions holds the search execution collectors.
type Executions struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	HitsTotal       *prometheus.CounterVec
	CacheTotal      *prometheus.CounterVec
}

// NewExecutions creates the execution collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewExecutions(reg prometheus.Registerer) *Executions {
	m := &Executions{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "esq",
				Name:      "search_requests_total",
				Help:      "Total number of search executions",
			},
			[]string{"index", "mode", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "esq",
				Name:      "search_request_duration_seconds",
				Help:      "Search execution duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"index", "mode"},
		),
		HitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "esq",
				Name:      "search_hits_total",
				Help:      "Total hits returned by search executions",
			},
			[]string{"index"},
		),
		CacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "esq",
				Name:      "search_cache_total",
				Help:      "Search response cache hits and misses",
			},
			[]string{"result"}, // "hit" / "miss"
		),
	}
	if reg != nil {
		reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.HitsTotal, m.CacheTotal)
	}
	return m
}

// Observe records one finished execution.
func (m *Executions) Observe(index, mode string, seconds float64, hits int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	if index == "" {
		index = "_all"
	}
	m.RequestsTotal.WithLabelValues(index, mode, status).Inc()
	m.RequestDuration.WithLabelValues(index, mode).Observe(seconds)
	if hits > 0 {
		m.HitsTotal.WithLabelValues(index).Add(float64(hits))
	}
}

// CacheResult records a cache lookup.
func (m *Executions) CacheResult(hit bool) {
	if hit {
		m.CacheTotal.WithLabelValues("hit").Inc()
		return
	}
	m.CacheTotal.WithLabelValues("miss").Inc()
}
