package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	pkgcache "MarketPulse/pkg/cache"
	applogger "MarketPulse/pkg/logger"
)

func TestGetCandlesCacheHitRespectsLimit(t *testing.T) {
	cache := newMemCache()
	start := time.Date(2024, 10, 10, 9, 0, 0, 0, time.UTC)
	series := minuteSeries("AAPL", start, 1, 2, 3, 4, 5)
	if err := cache.Set(context.Background(), pkgcache.CandlesKey("1m", "AAPL"), series, time.Minute); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	qs := NewQueryService(newMemStore(), cache, newCountMetrics(), applogger.Nop(), testTTL())
	out, err := qs.GetCandles(context.Background(), "AAPL", domrepo.TF1m, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	// The most recent candles, still ascending.
	if out[0].Close != 4 || out[1].Close != 5 {
		t.Fatalf("closes = %v/%v, want 4/5", out[0].Close, out[1].Close)
	}
}

func TestGetCandlesFallsBackToStore(t *testing.T) {
	store := newMemStore()
	start := time.Date(2024, 10, 10, 9, 0, 0, 0, time.UTC)
	if _, err := store.UpsertCandles(context.Background(), minuteSeries("AAPL", start, 1, 2, 3)); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	qs := NewQueryService(store, newMemCache(), newCountMetrics(), applogger.Nop(), testTTL())
	out, err := qs.GetCandles(context.Background(), "AAPL", domrepo.TF1m, 10)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3 from store", len(out))
	}
}

func TestGetCandlesNotFound(t *testing.T) {
	qs := NewQueryService(newMemStore(), newMemCache(), newCountMetrics(), applogger.Nop(), testTTL())
	_, err := qs.GetCandles(context.Background(), "UNKNOWN", domrepo.TF1h, 10)
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestGetIndicatorsFiltered(t *testing.T) {
	cache := newMemCache()
	now := time.Now().UTC()
	for _, id := range []string{"sma_20", "rsi_14"} {
		res := &models.IndicatorResult{
			Indicator:  id,
			Symbol:     "AAPL",
			Timeframe:  "1h",
			Values:     map[string]float64{"value": 42},
			ComputedAt: now,
		}
		if err := cache.Set(context.Background(), pkgcache.IndicatorKey("1h", "AAPL", id), res, time.Minute); err != nil {
			t.Fatalf("prime cache: %v", err)
		}
	}

	qs := NewQueryService(newMemStore(), cache, newCountMetrics(), applogger.Nop(), testTTL())

	all, err := qs.GetIndicators(context.Background(), "AAPL", domrepo.TF1h, nil, nil)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want the 2 cached entries", len(all))
	}

	filtered, err := qs.GetIndicators(context.Background(), "AAPL", domrepo.TF1h, []string{"rsi_14"}, nil)
	if err != nil {
		t.Fatalf("get filtered: %v", err)
	}
	if len(filtered) != 1 || filtered["rsi_14"] == nil {
		t.Fatalf("filtered = %+v, want only rsi_14", filtered)
	}
}

func TestGetIndicatorsPeriodOverrideComputesOnDemand(t *testing.T) {
	store := newMemStore()
	if _, err := store.UpsertCandles(context.Background(), hourlySeries("AAPL", 250)); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	cache := newMemCache()
	qs := NewQueryService(store, cache, newCountMetrics(), applogger.Nop(), testTTL())

	out, err := qs.GetIndicators(context.Background(), "AAPL", domrepo.TF1h, nil, map[string]int{"sma": 100})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	res := out["sma_100"]
	if res == nil {
		t.Fatalf("sma_100 missing: %+v", out)
	}
	if res.Values["value"] != 100 {
		t.Fatalf("sma_100 = %v, want 100 for a flat series", res.Values["value"])
	}
	if !cache.has(pkgcache.IndicatorKey("1h", "AAPL", "sma_100")) {
		t.Fatalf("on-demand result not cached")
	}

	// Second call must be served from the cache: break the store and ask
	// again.
	store.getErr = errors.New("store down")
	again, err := qs.GetIndicators(context.Background(), "AAPL", domrepo.TF1h, nil, map[string]int{"sma": 100})
	if err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if again["sma_100"] == nil {
		t.Fatalf("cached sma_100 missing")
	}
}

func TestGetIndicatorsOverrideSkipsOnShortHistory(t *testing.T) {
	store := newMemStore()
	if _, err := store.UpsertCandles(context.Background(), hourlySeries("AAPL", 50)); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	qs := NewQueryService(store, newMemCache(), newCountMetrics(), applogger.Nop(), testTTL())
	_, err := qs.GetIndicators(context.Background(), "AAPL", domrepo.TF1h, nil, map[string]int{"sma": 200})
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError when the override cannot compute, got %v", err)
	}
}

func TestGetIndicatorsNotFound(t *testing.T) {
	qs := NewQueryService(newMemStore(), newMemCache(), newCountMetrics(), applogger.Nop(), testTTL())
	_, err := qs.GetIndicators(context.Background(), "AAPL", domrepo.TF1h, nil, nil)
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("want NotFoundError when nothing is cached, got %v", err)
	}
}
