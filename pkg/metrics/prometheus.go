package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchesTotal   *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
	candlesWritten *prometheus.CounterVec
	indicatorSkips *prometheus.CounterVec
	cycleDuration  *prometheus.HistogramVec
	cacheAccess    *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_provider_fetches_total",
				Help: "Total vendor fetches by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		fallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_provider_fallbacks_total",
				Help: "Fetches rerouted to the secondary provider",
			},
			[]string{"provider"},
		),
		candlesWritten: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_candles_written_total",
				Help: "Candle rows written to the time-series store",
			},
			[]string{"timeframe"},
		),
		indicatorSkips: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_indicator_skips_total",
				Help: "Indicators skipped for insufficient data",
			},
			[]string{"indicator"},
		),
		cycleDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketpulse_task_cycle_duration_seconds",
				Help:    "Duration of one scheduled task cycle",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"task"},
		),
		cacheAccess: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_cache_access_total",
				Help: "Cache lookups by data kind and result",
			},
			[]string{"kind", "result"},
		),
	}
}

// RecordFetch records one vendor fetch attempt.
func (r *Recorder) RecordFetch(provider, outcome string) {
	r.fetchesTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordFallback records a reroute to the secondary provider.
func (r *Recorder) RecordFallback(provider string) {
	r.fallbacksTotal.WithLabelValues(provider).Inc()
}

// RecordCandlesWritten records rows written for a timeframe.
func (r *Recorder) RecordCandlesWritten(timeframe string, n int) {
	r.candlesWritten.WithLabelValues(timeframe).Add(float64(n))
}

// RecordIndicatorSkip records an indicator skipped for lack of data.
func (r *Recorder) RecordIndicatorSkip(indicator string) {
	r.indicatorSkips.WithLabelValues(indicator).Inc()
}

// RecordCycleDuration records one task cycle duration in seconds.
func (r *Recorder) RecordCycleDuration(task string, seconds float64) {
	r.cycleDuration.WithLabelValues(task).Observe(seconds)
}

// RecordCacheAccess records a cache hit or miss.
func (r *Recorder) RecordCacheAccess(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheAccess.WithLabelValues(kind, result).Inc()
}
