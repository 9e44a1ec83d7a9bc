package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsProvider exposes the engine's operational counters and gauges
// over a Prometheus registry.
type MetricsProvider struct {
	registry *prometheus.Registry

	UpdatesProcessed      *prometheus.CounterVec
	QueriesServed         *prometheus.CounterVec
	InsufficientLiquidity *prometheus.CounterVec
	SweepDuration         *prometheus.HistogramVec
	VenueStaleness        *prometheus.GaugeVec
	BookLevels            *prometheus.GaugeVec
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	ServiceName string
	Namespace   string
	Port        int
	Enabled     bool
}

// NewMetricsProvider creates a new metrics provider with a fresh
// registry and all six collectors registered. cfg.Enabled and cfg.Port
// are not read: the provider is always fully enabled.
func NewMetricsProvider(cfg MetricsConfig) (*MetricsProvider, error) {
	registry := prometheus.NewRegistry()

	mp := &MetricsProvider{
		registry: registry,
		UpdatesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "updates_processed_total",
			Help:      "Number of BookUpdate messages applied, by venue and side.",
		}, []string{"venue", "side"}),
		QueriesServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "queries_served_total",
			Help:      "Number of quote queries served, by side and outcome.",
		}, []string{"side", "outcome"}),
		InsufficientLiquidity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "insufficient_liquidity_total",
			Help:      "Number of sweeps that exhausted the book before filling the target volume.",
		}, []string{"side"}),
		SweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Time to compute a sweep over the consolidated book.",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 12),
		}, []string{"side"}),
		VenueStaleness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "venue_staleness_seconds",
			Help:      "Seconds since the last update was received from a venue.",
		}, []string{"venue"}),
		BookLevels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "book_price_levels",
			Help:      "Number of distinct price levels currently resting in a side book.",
		}, []string{"side"}),
	}

	for _, c := range []prometheus.Collector{
		mp.UpdatesProcessed, mp.QueriesServed, mp.InsufficientLiquidity,
		mp.SweepDuration, mp.VenueStaleness, mp.BookLevels,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return mp, nil
}

// Handler returns the HTTP handler that serves /metrics.
func (mp *MetricsProvider) Handler() http.Handler {
	return promhttp.HandlerFor(mp.registry, promhttp.HandlerOpts{})
}
