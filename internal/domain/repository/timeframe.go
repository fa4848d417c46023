package repository

import "time"

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1m, TF5m, TF15m, TF30m, TF1h, TF4h, TF1d:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1m }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// Bucket returns the bucket width of the timeframe.
func (tf Timeframe) Bucket() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF30m:
		return 30 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TF1d:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// AggregateDefinition declares one derived higher-timeframe view over the
// 1m base series. Staleness bounds how far back a refresh recomputes, so
// refresh cost stays constant regardless of history depth.
type AggregateDefinition struct {
	Timeframe Timeframe
	Bucket    time.Duration
	Refresh   time.Duration
	Staleness time.Duration
}

// Aggregates lists every derived view, finest first. Daily rows also come
// from the EOD seeder; reads de-duplicate by timestamp with the most
// recently written row winning.
func Aggregates() []AggregateDefinition {
	return []AggregateDefinition{
		{Timeframe: TF5m, Bucket: 5 * time.Minute, Refresh: 5 * time.Minute, Staleness: 30 * time.Minute},
		{Timeframe: TF15m, Bucket: 15 * time.Minute, Refresh: 15 * time.Minute, Staleness: time.Hour},
		{Timeframe: TF30m, Bucket: 30 * time.Minute, Refresh: 30 * time.Minute, Staleness: 2 * time.Hour},
		{Timeframe: TF1h, Bucket: time.Hour, Refresh: time.Hour, Staleness: 4 * time.Hour},
		{Timeframe: TF4h, Bucket: 4 * time.Hour, Refresh: 4 * time.Hour, Staleness: 24 * time.Hour},
		{Timeframe: TF1d, Bucket: 24 * time.Hour, Refresh: 24 * time.Hour, Staleness: 3 * 24 * time.Hour},
	}
}

// TTLPolicy computes cache expiries from the configured task cadences.
// Each entry expires shortly after the next refresh should have landed.
type TTLPolicy struct {
	IngestInterval    time.Duration
	IndicatorInterval time.Duration
	HotQuoteInterval  time.Duration
	WarmQuoteInterval time.Duration
}

// CandleTTL returns the cache TTL for a candle series of tf.
func (p TTLPolicy) CandleTTL(tf Timeframe) time.Duration {
	if tf == TF1m {
		return 2 * p.IngestInterval
	}
	for _, def := range Aggregates() {
		if def.Timeframe == tf {
			if tf == TF1d {
				return def.Refresh
			}
			return 2 * def.Refresh
		}
	}
	return 2 * p.IngestInterval
}

// IndicatorTTL returns the cache TTL for indicator results.
func (p TTLPolicy) IndicatorTTL() time.Duration { return p.IndicatorInterval }

// QuoteTTL returns the cache TTL for a quote, by universe tier.
func (p TTLPolicy) QuoteTTL(hot bool) time.Duration {
	if hot {
		return 2 * p.HotQuoteInterval
	}
	return 2 * p.WarmQuoteInterval
}
