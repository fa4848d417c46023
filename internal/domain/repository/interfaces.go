package repository

import (
	"context"

	"MarketPulse/internal/domain/models"
)

// Provider is the uniform fetch contract over one market-data vendor.
// Implementations track their own rate-limit window and expose remaining
// headroom so callers can avoid triggering vendor-side throttling.
type Provider interface {
	Name() string
	FetchCandles(ctx context.Context, symbol string, tf Timeframe, lookback int) ([]models.Candle, error)
	FetchQuote(ctx context.Context, symbol string) (*models.Quote, error)
	RemainingCalls() int
}

// CandleStore persists the canonical candle series and its derived views.
type CandleStore interface {
	// UpsertCandles inserts rows, silently skipping (symbol, timeframe,
	// timestamp) tuples already present. Returns the number of rows
	// actually written. Safe to re-run.
	UpsertCandles(ctx context.Context, candles []models.Candle) (int, error)

	// RefreshAggregate recomputes the derived view for def over its
	// staleness window. Idempotent: a double-run yields the same rows.
	RefreshAggregate(ctx context.Context, symbol string, def AggregateDefinition) error

	// GetCandles returns up to limit most recent candles for symbol/tf
	// in ascending timestamp order. Daily reads merge seeded and derived
	// rows, most recent write winning on timestamp conflicts.
	GetCandles(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error)

	Health(ctx context.Context) error
}

// UniverseSource queries the external pipeline/execution store for the
// tickers currently in active use.
type UniverseSource interface {
	FetchHot(ctx context.Context) ([]string, error)
	FetchWarm(ctx context.Context) ([]string, error)
}

// UniverseView is a read-only snapshot accessor other components use to
// scope their work. Snapshots are replaced wholesale, never mutated.
type UniverseView interface {
	Snapshot() *models.Universe
}

// EventPublisher broadcasts refresh notifications to downstream pipelines.
type EventPublisher interface {
	PublishRefresh(ctx context.Context, symbol string, timeframes []string) error
	Close() error
}

// Metrics records operational counters for the data plane.
type Metrics interface {
	RecordFetch(provider, outcome string)
	RecordFallback(provider string)
	RecordCandlesWritten(timeframe string, n int)
	RecordIndicatorSkip(indicator string)
	RecordCycleDuration(task string, seconds float64)
	RecordCacheAccess(kind string, hit bool)
}
