package usecase

import (
	"context"
	"errors"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/indicators"
	pkgcache "MarketPulse/pkg/cache"
	applogger "MarketPulse/pkg/logger"
)

// IndicatorEngine computes the standard indicator battery for every
// universe ticker across the configured timeframes. Each ticker and
// timeframe costs exactly one series read regardless of battery size —
// the cached series the ingest path keeps warm, with a store fallback
// on miss. Results go to the cache only, never back to the store.
type IndicatorEngine struct {
	store    domrepo.CandleStore
	cache    pkgcache.Service
	universe domrepo.UniverseView
	metrics  domrepo.Metrics
	l        *applogger.Logger

	timeframes []domrepo.Timeframe
	battery    []indicators.Computation
	maxNeed    int
	ttl        domrepo.TTLPolicy
	now        func() time.Time
}

// NewIndicatorEngine creates the batch indicator usecase.
func NewIndicatorEngine(store domrepo.CandleStore, cache pkgcache.Service, universe domrepo.UniverseView, metrics domrepo.Metrics, l *applogger.Logger, timeframes []domrepo.Timeframe, ttl domrepo.TTLPolicy) *IndicatorEngine {
	battery := indicators.Battery()
	return &IndicatorEngine{
		store:      store,
		cache:      cache,
		universe:   universe,
		metrics:    metrics,
		l:          l,
		timeframes: timeframes,
		battery:    battery,
		maxNeed:    indicators.MaxNeed(battery),
		ttl:        ttl,
		now:        time.Now,
	}
}

// RunCycle evaluates the battery over the whole universe. Indicators
// with less history than their lookback are skipped and logged; the
// rest of the battery still runs.
func (e *IndicatorEngine) RunCycle(ctx context.Context) error {
	start := time.Now()
	tickers := e.universe.Snapshot().All()
	if len(tickers) == 0 {
		e.l.Debug("indicator cycle skipped, universe empty")
		return nil
	}

	computed, skipped := 0, 0
	for _, symbol := range tickers {
		for _, tf := range e.timeframes {
			if ctx.Err() != nil {
				e.metrics.RecordCycleDuration("indicators", time.Since(start).Seconds())
				return ctx.Err()
			}
			c, s := e.runBattery(ctx, symbol, tf)
			computed += c
			skipped += s
		}
	}

	e.metrics.RecordCycleDuration("indicators", time.Since(start).Seconds())
	e.l.Info("indicator cycle done",
		applogger.Int("tickers", len(tickers)),
		applogger.Int("computed", computed),
		applogger.Int("skipped", skipped),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (e *IndicatorEngine) runBattery(ctx context.Context, symbol string, tf domrepo.Timeframe) (computed, skipped int) {
	candles, err := e.loadCandles(ctx, symbol, tf)
	if err != nil {
		e.l.Warn("indicator series read failed",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Error(err),
		)
		return 0, 0
	}

	if len(candles) > e.maxNeed {
		candles = candles[len(candles)-e.maxNeed:]
	}

	now := e.now()
	for _, comp := range e.battery {
		res, err := comp.Compute(symbol, string(tf), candles, now)
		if err != nil {
			var insufficient *models.InsufficientDataError
			if errors.As(err, &insufficient) {
				skipped++
				e.metrics.RecordIndicatorSkip(comp.ID)
				e.l.Debug("indicator skipped, not enough history",
					applogger.String("symbol", symbol),
					applogger.String("tf", string(tf)),
					applogger.String("indicator", comp.ID),
					applogger.Int("need", insufficient.Need),
					applogger.Int("have", insufficient.Have),
				)
				continue
			}
			e.l.Warn("indicator compute failed",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.String("indicator", comp.ID),
				applogger.Error(err),
			)
			continue
		}

		key := pkgcache.IndicatorKey(string(tf), symbol, comp.ID)
		if err := e.cache.Set(ctx, key, res, e.ttl.IndicatorTTL()); err != nil {
			e.l.Warn("indicator cache write failed",
				applogger.String("key", key),
				applogger.Error(err),
			)
			continue
		}
		computed++
	}
	return computed, skipped
}

// loadCandles reads the series the ingest path keeps warm; a cache miss
// (or a cached series too short for the battery) falls back to the store.
func (e *IndicatorEngine) loadCandles(ctx context.Context, symbol string, tf domrepo.Timeframe) ([]models.Candle, error) {
	var cached []models.Candle
	err := e.cache.Get(ctx, pkgcache.CandlesKey(string(tf), symbol), &cached)
	hit := err == nil && len(cached) >= e.maxNeed
	e.metrics.RecordCacheAccess("candles", hit)
	if hit {
		return cached, nil
	}
	return e.store.GetCandles(ctx, symbol, tf, e.maxNeed)
}
