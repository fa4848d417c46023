package usecase

import (
	"context"
	"encoding/json"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/indicators"
	pkgcache "MarketPulse/pkg/cache"
	applogger "MarketPulse/pkg/logger"
)

// QueryService is the read path behind the API: cache first, store as
// fallback for candles, never a vendor call in the hot path (quotes
// excepted, which degrade to an on-demand fetch via QuoteRefresher).
type QueryService struct {
	store   domrepo.CandleStore
	cache   pkgcache.Service
	metrics domrepo.Metrics
	l       *applogger.Logger
	battery []indicators.Computation
	ttl     domrepo.TTLPolicy
}

// NewQueryService creates the read usecase.
func NewQueryService(store domrepo.CandleStore, cache pkgcache.Service, metrics domrepo.Metrics, l *applogger.Logger, ttl domrepo.TTLPolicy) *QueryService {
	return &QueryService{
		store:   store,
		cache:   cache,
		metrics: metrics,
		l:       l,
		battery: indicators.Battery(),
		ttl:     ttl,
	}
}

// GetCandles returns up to limit most recent candles, ascending. The
// cached series is preferred; the store backs a miss. An empty series
// maps to NotFoundError.
func (s *QueryService) GetCandles(ctx context.Context, symbol string, tf domrepo.Timeframe, limit int) ([]models.Candle, error) {
	var cached []models.Candle
	err := s.cache.Get(ctx, pkgcache.CandlesKey(string(tf), symbol), &cached)
	if err == nil && len(cached) > 0 {
		s.metrics.RecordCacheAccess("candles", true)
		if len(cached) > limit {
			cached = cached[len(cached)-limit:]
		}
		return cached, nil
	}
	s.metrics.RecordCacheAccess("candles", false)

	stored, err := s.store.GetCandles(ctx, symbol, tf, limit)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, models.NewNotFoundError("candles", symbol)
	}
	return stored, nil
}

// GetIndicators returns the cached battery results for symbol/tf,
// optionally filtered to the given indicator IDs. overrides maps a
// single-period family name ("sma", "rsi", ...) to a caller-chosen
// period; overridden indicators outside the battery are computed on
// demand from the cached series and then cached like battery results.
// Results are read in one multi-get; absent entries are simply omitted.
func (s *QueryService) GetIndicators(ctx context.Context, symbol string, tf domrepo.Timeframe, ids []string, overrides map[string]int) (map[string]*models.IndicatorResult, error) {
	wanted := s.battery
	if len(ids) > 0 {
		byID := make(map[string]indicators.Computation, len(s.battery))
		for _, c := range s.battery {
			byID[c.ID] = c
		}
		wanted = wanted[:0:0]
		for _, id := range ids {
			if c, ok := byID[id]; ok {
				wanted = append(wanted, c)
			}
		}
	}

	custom := make([]indicators.Computation, 0, len(overrides))
	for name, period := range overrides {
		if c, ok := indicators.WithPeriod(name, period); ok {
			custom = append(custom, c)
		}
	}
	if len(wanted) == 0 && len(custom) == 0 {
		return nil, models.NewNotFoundError("indicators", symbol)
	}
	wanted = append(wanted, custom...)

	keys := make([]string, 0, len(wanted))
	for _, c := range wanted {
		keys = append(keys, pkgcache.IndicatorKey(string(tf), symbol, c.ID))
	}

	raw, err := s.cache.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*models.IndicatorResult, len(raw))
	for i, c := range wanted {
		payload, ok := raw[keys[i]]
		if !ok || payload == "" {
			continue
		}
		var res models.IndicatorResult
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			s.l.Warn("cached indicator unmarshal failed",
				applogger.String("key", keys[i]),
				applogger.Error(err),
			)
			continue
		}
		out[c.ID] = &res
	}

	for _, c := range custom {
		if _, ok := out[c.ID]; ok {
			continue
		}
		if res, ok := s.computeOnDemand(ctx, symbol, tf, c); ok {
			out[c.ID] = res
		}
	}

	s.metrics.RecordCacheAccess("indicators", len(out) > 0)
	if len(out) == 0 {
		return nil, models.NewNotFoundError("indicators", symbol)
	}
	return out, nil
}

// computeOnDemand evaluates one non-battery computation from the cached
// series (store fallback) and caches the result alongside the battery's.
// Insufficient history omits the indicator, same as the batch engine.
func (s *QueryService) computeOnDemand(ctx context.Context, symbol string, tf domrepo.Timeframe, comp indicators.Computation) (*models.IndicatorResult, bool) {
	var candles []models.Candle
	if err := s.cache.Get(ctx, pkgcache.CandlesKey(string(tf), symbol), &candles); err != nil || len(candles) < comp.Need() {
		stored, err := s.store.GetCandles(ctx, symbol, tf, comp.Need())
		if err != nil {
			s.l.Warn("series read for on-demand indicator failed",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
			return nil, false
		}
		candles = stored
	}
	if len(candles) > comp.Need() {
		candles = candles[len(candles)-comp.Need():]
	}

	res, err := comp.Compute(symbol, string(tf), candles, time.Now())
	if err != nil {
		s.l.Debug("on-demand indicator skipped",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.String("indicator", comp.ID),
			applogger.Error(err),
		)
		return nil, false
	}

	key := pkgcache.IndicatorKey(string(tf), symbol, comp.ID)
	if err := s.cache.Set(ctx, key, res, s.ttl.IndicatorTTL()); err != nil {
		s.l.Warn("on-demand indicator cache write failed",
			applogger.String("key", key),
			applogger.Error(err),
		)
	}
	return res, true
}
