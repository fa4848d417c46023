package usecase

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	pkgcache "MarketPulse/pkg/cache"
	applogger "MarketPulse/pkg/logger"
)

// QuoteRefresher keeps latest quotes warm per universe tier: hot
// tickers on a tight cadence, warm tickers on a relaxed one. It also
// serves on-demand reads for the API, falling through to the vendor
// when the cache has nothing.
type QuoteRefresher struct {
	provider domrepo.Provider
	cache    pkgcache.Service
	universe domrepo.UniverseView
	metrics  domrepo.Metrics
	l        *applogger.Logger
	ttl      domrepo.TTLPolicy
}

// NewQuoteRefresher creates the quote usecase.
func NewQuoteRefresher(provider domrepo.Provider, cache pkgcache.Service, universe domrepo.UniverseView, metrics domrepo.Metrics, l *applogger.Logger, ttl domrepo.TTLPolicy) *QuoteRefresher {
	return &QuoteRefresher{
		provider: provider,
		cache:    cache,
		universe: universe,
		metrics:  metrics,
		l:        l,
		ttl:      ttl,
	}
}

// RunHot refreshes quotes for tickers with running executions.
func (q *QuoteRefresher) RunHot(ctx context.Context) error {
	snap := q.universe.Snapshot()
	return q.refresh(ctx, "quotes:hot", snap.Hot, true)
}

// RunWarm refreshes quotes for configured-but-idle tickers. Tickers
// that are also hot are skipped; the hot cycle keeps them fresher.
func (q *QuoteRefresher) RunWarm(ctx context.Context) error {
	snap := q.universe.Snapshot()
	warmOnly := make([]string, 0, len(snap.Warm))
	for _, s := range snap.Warm {
		if !snap.IsHot(s) {
			warmOnly = append(warmOnly, s)
		}
	}
	return q.refresh(ctx, "quotes:warm", warmOnly, false)
}

func (q *QuoteRefresher) refresh(ctx context.Context, task string, tickers []string, hot bool) error {
	start := time.Now()
	failed := 0
	for _, symbol := range tickers {
		if ctx.Err() != nil {
			break
		}
		if _, err := q.fetchAndCache(ctx, symbol, hot); err != nil {
			failed++
		}
	}

	q.metrics.RecordCycleDuration(task, time.Since(start).Seconds())
	if len(tickers) > 0 {
		q.l.Debug("quote refresh done",
			applogger.String("task", task),
			applogger.Int("tickers", len(tickers)),
			applogger.Int("failed", failed),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// GetQuote serves a read: cache hit wins, otherwise the vendor is
// called on demand and the result cached. Untracked tickers work too;
// they are cached on the warm cadence.
func (q *QuoteRefresher) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var quote models.Quote
	err := q.cache.Get(ctx, pkgcache.QuoteKey(symbol), &quote)
	if err == nil {
		q.metrics.RecordCacheAccess("quote", true)
		return &quote, nil
	}
	q.metrics.RecordCacheAccess("quote", false)

	return q.fetchAndCache(ctx, symbol, q.universe.Snapshot().IsHot(symbol))
}

func (q *QuoteRefresher) fetchAndCache(ctx context.Context, symbol string, hot bool) (*models.Quote, error) {
	quote, err := q.provider.FetchQuote(ctx, symbol)
	if err != nil {
		q.l.Warn("quote fetch failed",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, err
	}

	if err := q.cache.Set(ctx, pkgcache.QuoteKey(symbol), quote, q.ttl.QuoteTTL(hot)); err != nil {
		q.l.Warn("quote cache write failed",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
	return quote, nil
}
