package github

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the GitHub client.
type Metrics struct {
	LookupsTotal  *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	CacheEntries  prometheus.Gauge
}

// NewMetrics registers and returns GitHub client metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issue_assistant_github_lookups_total",
			Help: "Issue lookups by outcome (hit, miss, not_found, rate_limited, error).",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "issue_assistant_github_fetch_duration_seconds",
			Help:    "Duration of GitHub API fetches in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "issue_assistant_github_cache_entries",
			Help: "Entries held by the issue cache, fresh or expired.",
		}),
	}

	reg.MustRegister(
		m.LookupsTotal,
		m.FetchDuration,
		m.CacheEntries,
	)

	return m
}

// All observe helpers tolerate a nil *Metrics.

func (m *Metrics) observeLookup(outcome string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

func (m *Metrics) setCacheEntries(n int) {
	if m == nil {
		return
	}
	m.CacheEntries.Set(float64(n))
}
