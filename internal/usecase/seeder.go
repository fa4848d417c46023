package usecase

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	applogger "MarketPulse/pkg/logger"
)

// Seeder backfills daily history so long-lookback indicators have a
// full series on day one instead of waiting for aggregation to accrue.
// It runs once shortly after startup and then once per day.
type Seeder struct {
	provider domrepo.Provider
	store    domrepo.CandleStore
	universe domrepo.UniverseView
	metrics  domrepo.Metrics
	l        *applogger.Logger

	historyDays int
}

// NewSeeder creates the EOD seeding usecase.
func NewSeeder(provider domrepo.Provider, store domrepo.CandleStore, universe domrepo.UniverseView, metrics domrepo.Metrics, l *applogger.Logger, historyDays int) *Seeder {
	return &Seeder{
		provider:    provider,
		store:       store,
		universe:    universe,
		metrics:     metrics,
		l:           l,
		historyDays: historyDays,
	}
}

// RunSeed fetches historyDays of daily candles for every universe
// ticker and upserts them tagged as seeded rows. Already-present
// timestamps are skipped by the store, so re-seeding is cheap and
// safe to repeat.
func (s *Seeder) RunSeed(ctx context.Context) error {
	start := time.Now()
	tickers := s.universe.Snapshot().All()
	if len(tickers) == 0 {
		s.l.Debug("seed skipped, universe empty")
		return nil
	}

	seeded, failed := 0, 0
	for _, symbol := range tickers {
		if ctx.Err() != nil {
			break
		}
		n, err := s.seedOne(ctx, symbol)
		if err != nil {
			failed++
			continue
		}
		seeded += n
	}

	s.metrics.RecordCycleDuration("seed", time.Since(start).Seconds())
	s.l.Info("daily seed done",
		applogger.Int("tickers", len(tickers)),
		applogger.Int("rows", seeded),
		applogger.Int("failed", failed),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *Seeder) seedOne(ctx context.Context, symbol string) (int, error) {
	candles, err := s.provider.FetchCandles(ctx, symbol, domrepo.TF1d, s.historyDays)
	if err != nil {
		s.l.Warn("daily history fetch failed",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return 0, err
	}
	for i := range candles {
		candles[i].Source = models.SourceSeed
	}

	inserted, err := s.store.UpsertCandles(ctx, candles)
	if err != nil {
		s.l.Error("daily seed upsert failed",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return 0, err
	}
	s.metrics.RecordCandlesWritten(string(domrepo.TF1d), inserted)
	return inserted, nil
}
