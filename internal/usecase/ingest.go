package usecase

import (
	"context"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	pkgcache "MarketPulse/pkg/cache"
	applogger "MarketPulse/pkg/logger"
)

// candleCacheLimit caps the series length kept warm in the cache; it
// matches the read API's maximum page size.
const candleCacheLimit = 500

// Ingestor runs the minute-candle ingestion and aggregate-refresh
// cycles over the current universe. One ticker failing never aborts
// the cycle; the ticker just waits for the next pass.
type Ingestor struct {
	provider  domrepo.Provider
	store     domrepo.CandleStore
	cache     pkgcache.Service
	publisher domrepo.EventPublisher
	universe  domrepo.UniverseView
	metrics   domrepo.Metrics
	l         *applogger.Logger

	lookback    int
	parallelism int
	ttl         domrepo.TTLPolicy
}

// NewIngestor creates the ingestion usecase. publisher may be nil when
// event publishing is disabled.
func NewIngestor(
	provider domrepo.Provider,
	store domrepo.CandleStore,
	cache pkgcache.Service,
	publisher domrepo.EventPublisher,
	universe domrepo.UniverseView,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	lookback, parallelism int,
	ttl domrepo.TTLPolicy,
) *Ingestor {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Ingestor{
		provider:    provider,
		store:       store,
		cache:       cache,
		publisher:   publisher,
		universe:    universe,
		metrics:     metrics,
		l:           l,
		lookback:    lookback,
		parallelism: parallelism,
		ttl:         ttl,
	}
}

// RunCycle ingests the freshest 1m candles for every universe ticker
// with bounded fan-out.
func (in *Ingestor) RunCycle(ctx context.Context) error {
	start := time.Now()
	tickers := in.universe.Snapshot().All()
	if len(tickers) == 0 {
		in.l.Debug("ingest cycle skipped, universe empty")
		return nil
	}

	var (
		wg     sync.WaitGroup
		sem    = make(chan struct{}, in.parallelism)
		mu     sync.Mutex
		failed int
	)
	for _, symbol := range tickers {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := in.ingestOne(ctx, symbol); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(symbol)
	}
	wg.Wait()

	in.metrics.RecordCycleDuration("ingest", time.Since(start).Seconds())
	in.l.Info("ingest cycle done",
		applogger.Int("tickers", len(tickers)),
		applogger.Int("failed", failed),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (in *Ingestor) ingestOne(ctx context.Context, symbol string) error {
	candles, err := in.provider.FetchCandles(ctx, symbol, domrepo.TF1m, in.lookback)
	if err != nil {
		in.l.Warn("candle fetch failed",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return err
	}
	for i := range candles {
		candles[i].Source = models.SourceIngest
	}

	inserted, err := in.store.UpsertCandles(ctx, candles)
	if err != nil {
		in.l.Error("candle upsert failed",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return err
	}
	in.metrics.RecordCandlesWritten(string(domrepo.TF1m), inserted)
	if inserted == 0 {
		return nil
	}

	in.cacheSeries(ctx, symbol, domrepo.TF1m)

	// New 1m rows invalidate the derived views, so roll every timeframe
	// forward immediately instead of waiting for its scheduled refresh.
	refreshed := []string{string(domrepo.TF1m)}
	for _, def := range domrepo.Aggregates() {
		if err := in.store.RefreshAggregate(ctx, symbol, def); err != nil {
			in.l.Warn("aggregate refresh failed",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(def.Timeframe)),
				applogger.Error(err),
			)
			continue
		}
		in.cacheSeries(ctx, symbol, def.Timeframe)
		refreshed = append(refreshed, string(def.Timeframe))
	}

	in.publishRefresh(ctx, symbol, refreshed)
	return nil
}

// RefreshAggregates recomputes def's derived view for every universe
// ticker and re-warms the cached series. The ingest path already rolls
// aggregates forward after each write; the scheduled per-timeframe runs
// through here backstop tickers whose ingest kept failing.
func (in *Ingestor) RefreshAggregates(ctx context.Context, def domrepo.AggregateDefinition) error {
	start := time.Now()
	tickers := in.universe.Snapshot().All()

	failed := 0
	for _, symbol := range tickers {
		if ctx.Err() != nil {
			break
		}
		if err := in.store.RefreshAggregate(ctx, symbol, def); err != nil {
			failed++
			in.l.Warn("aggregate refresh failed",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(def.Timeframe)),
				applogger.Error(err),
			)
			continue
		}
		in.cacheSeries(ctx, symbol, def.Timeframe)
		in.publishRefresh(ctx, symbol, []string{string(def.Timeframe)})
	}

	task := "aggregate:" + string(def.Timeframe)
	in.metrics.RecordCycleDuration(task, time.Since(start).Seconds())
	in.l.Info("aggregate refresh done",
		applogger.String("tf", string(def.Timeframe)),
		applogger.Int("tickers", len(tickers)),
		applogger.Int("failed", failed),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// cacheSeries re-reads the canonical series and replaces the cached
// copy. The store stays the source of truth; a cache write failure is
// logged and absorbed.
func (in *Ingestor) cacheSeries(ctx context.Context, symbol string, tf domrepo.Timeframe) {
	candles, err := in.store.GetCandles(ctx, symbol, tf, candleCacheLimit)
	if err != nil {
		in.l.Warn("series read-back failed",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Error(err),
		)
		return
	}
	if err := in.cache.Set(ctx, pkgcache.CandlesKey(string(tf), symbol), candles, in.ttl.CandleTTL(tf)); err != nil {
		in.l.Warn("series cache write failed",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Error(err),
		)
	}
}

func (in *Ingestor) publishRefresh(ctx context.Context, symbol string, timeframes []string) {
	if in.publisher == nil {
		return
	}
	if err := in.publisher.PublishRefresh(ctx, symbol, timeframes); err != nil {
		in.l.Warn("refresh event publish failed",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
}
