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

func testTTL() domrepo.TTLPolicy {
	return domrepo.TTLPolicy{
		IngestInterval:    time.Minute,
		IndicatorInterval: 5 * time.Minute,
		HotQuoteInterval:  time.Minute,
		WarmQuoteInterval: 5 * time.Minute,
	}
}

func newTestIngestor(p domrepo.Provider, store domrepo.CandleStore, cache pkgcache.Service, pub domrepo.EventPublisher, uni domrepo.UniverseView, m domrepo.Metrics) *Ingestor {
	return NewIngestor(p, store, cache, pub, uni, m, applogger.Nop(), 500, 2, testTTL())
}

func TestIngestCycleWritesAndCaches(t *testing.T) {
	start := time.Date(2024, 10, 10, 9, 30, 0, 0, time.UTC)
	provider := newScriptedProvider()
	provider.candles["AAPL"] = minuteSeries("AAPL", start, 190, 190.5, 191)

	store := newMemStore()
	cache := newMemCache()
	pub := &recordPublisher{}
	metrics := newCountMetrics()
	in := newTestIngestor(provider, store, cache, pub, newStaticUniverse([]string{"AAPL"}, nil), metrics)

	if err := in.RunCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}

	if n := store.count("AAPL", "1m"); n != 3 {
		t.Fatalf("stored rows = %d, want 3", n)
	}
	c, ok := store.get("AAPL", "1m", start)
	if !ok || c.Source != models.SourceIngest {
		t.Fatalf("row at %v: ok=%v source=%q, want ingest", start, ok, c.Source)
	}
	if !cache.has(pkgcache.CandlesKey("1m", "AAPL")) {
		t.Fatalf("1m series not cached")
	}
	if !pub.hasEvent("AAPL", "1m") || !pub.hasEvent("AAPL", "5m") {
		t.Fatalf("refresh event missing timeframes: %v", pub.events)
	}
	if metrics.writtenFor("1m") != 3 {
		t.Fatalf("written metric = %d, want 3", metrics.writtenFor("1m"))
	}
}

func TestIngestCycleIdempotent(t *testing.T) {
	start := time.Date(2024, 10, 10, 9, 30, 0, 0, time.UTC)
	provider := newScriptedProvider()
	provider.candles["AAPL"] = minuteSeries("AAPL", start, 190, 190.5, 191)

	store := newMemStore()
	metrics := newCountMetrics()
	in := newTestIngestor(provider, store, newMemCache(), nil, newStaticUniverse([]string{"AAPL"}, nil), metrics)

	if err := in.RunCycle(context.Background()); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	first, _ := store.get("AAPL", "1m", start)

	// Same window again with different values; existing rows must keep
	// their first-written values and no duplicates may appear.
	provider.candles["AAPL"] = minuteSeries("AAPL", start, 999, 999, 999)
	if err := in.RunCycle(context.Background()); err != nil {
		t.Fatalf("second cycle: %v", err)
	}

	if n := store.count("AAPL", "1m"); n != 3 {
		t.Fatalf("stored rows after re-run = %d, want 3", n)
	}
	again, _ := store.get("AAPL", "1m", start)
	if again != first {
		t.Fatalf("first-written row changed: %+v vs %+v", again, first)
	}
	if metrics.writtenFor("1m") != 3 {
		t.Fatalf("written metric = %d, want 3 (second run writes nothing)", metrics.writtenFor("1m"))
	}
}

func TestIngestUniverseDrivenScope(t *testing.T) {
	start := time.Date(2024, 10, 10, 9, 30, 0, 0, time.UTC)
	provider := newScriptedProvider()
	provider.candles["AAPL"] = minuteSeries("AAPL", start, 190)
	provider.candles["TSLA"] = minuteSeries("TSLA", start, 250)

	uni := newStaticUniverse([]string{"AAPL"}, nil)
	in := newTestIngestor(provider, newMemStore(), newMemCache(), nil, uni, newCountMetrics())

	if err := in.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if provider.fetches("TSLA") != 0 {
		t.Fatalf("TSLA fetched before joining the universe")
	}

	uni.set([]string{"AAPL", "TSLA"}, nil)
	if err := in.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if provider.fetches("TSLA") != 1 {
		t.Fatalf("TSLA fetches = %d, want 1 after joining", provider.fetches("TSLA"))
	}

	uni.set([]string{"AAPL"}, nil)
	if err := in.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if provider.fetches("TSLA") != 1 {
		t.Fatalf("TSLA fetched after leaving the universe")
	}
}

func TestIngestIsolatesTickerFailure(t *testing.T) {
	start := time.Date(2024, 10, 10, 9, 30, 0, 0, time.UTC)
	provider := newScriptedProvider()
	provider.candles["AAPL"] = minuteSeries("AAPL", start, 190)
	provider.errs["BROKEN"] = errors.New("vendor down")
	provider.candles["TSLA"] = minuteSeries("TSLA", start, 250)

	store := newMemStore()
	in := newTestIngestor(provider, store, newMemCache(), nil, newStaticUniverse([]string{"AAPL", "BROKEN", "TSLA"}, nil), newCountMetrics())

	if err := in.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle should absorb per-ticker failures, got %v", err)
	}
	if store.count("AAPL", "1m") != 1 || store.count("TSLA", "1m") != 1 {
		t.Fatalf("healthy tickers not ingested: AAPL=%d TSLA=%d", store.count("AAPL", "1m"), store.count("TSLA", "1m"))
	}
	if store.count("BROKEN", "1m") != 0 {
		t.Fatalf("failed ticker wrote rows")
	}
}

func TestIngestThenFiveMinuteAggregate(t *testing.T) {
	bucket := time.Date(2024, 10, 10, 9, 30, 0, 0, time.UTC)
	closes := []float64{10.0, 10.5, 10.2}
	series := make([]models.Candle, 0, 3)
	for i, cl := range closes {
		series = append(series, models.Candle{
			Symbol:    "XYZ",
			Timeframe: "1m",
			Timestamp: bucket.Add(time.Duration(i) * time.Minute),
			Open:      cl,
			High:      cl,
			Low:       cl,
			Close:     cl,
			Volume:    100,
		})
	}
	provider := newScriptedProvider()
	provider.candles["XYZ"] = series

	store := newMemStore()
	cache := newMemCache()
	in := newTestIngestor(provider, store, cache, nil, newStaticUniverse([]string{"XYZ"}, nil), newCountMetrics())

	// A single ingest cycle must leave the derived views current; the
	// partial bucket is visible before the five minutes close out.
	if err := in.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	derived, ok := store.get("XYZ", "5m", bucket)
	if !ok {
		t.Fatalf("5m bucket at %v missing", bucket)
	}
	if derived.Open != 10.0 || derived.Close != 10.2 || derived.High != 10.5 || derived.Low != 10.0 || derived.Volume != 300 {
		t.Fatalf("bucket = O:%v H:%v L:%v C:%v V:%v, want O:10.0 H:10.5 L:10.0 C:10.2 V:300",
			derived.Open, derived.High, derived.Low, derived.Close, derived.Volume)
	}

	var cached []models.Candle
	if err := cache.Get(context.Background(), pkgcache.CandlesKey("5m", "XYZ"), &cached); err != nil {
		t.Fatalf("5m series not cached: %v", err)
	}
	if len(cached) != 1 || cached[0].Close != 10.2 {
		t.Fatalf("cached 5m series = %+v", cached)
	}
}

func TestScheduledAggregateRefreshBackstop(t *testing.T) {
	bucket := time.Date(2024, 10, 10, 9, 30, 0, 0, time.UTC)

	// Rows landed in the store but the derived views were never rolled
	// forward (an earlier cycle died mid-way). The scheduled refresh must
	// catch the ticker up without a new ingest.
	store := newMemStore()
	if _, err := store.UpsertCandles(context.Background(), minuteSeries("XYZ", bucket, 10.0, 10.5, 10.2)); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	cache := newMemCache()
	in := newTestIngestor(newScriptedProvider(), store, cache, nil, newStaticUniverse([]string{"XYZ"}, nil), newCountMetrics())

	var fiveMin domrepo.AggregateDefinition
	for _, def := range domrepo.Aggregates() {
		if def.Timeframe == domrepo.TF5m {
			fiveMin = def
		}
	}
	if err := in.RefreshAggregates(context.Background(), fiveMin); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if _, ok := store.get("XYZ", "5m", bucket); !ok {
		t.Fatalf("5m bucket at %v missing after scheduled refresh", bucket)
	}
	if !cache.has(pkgcache.CandlesKey("5m", "XYZ")) {
		t.Fatalf("5m series not re-warmed")
	}
}
