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

// UniverseTracker maintains the in-memory hot/warm ticker snapshot that
// every other task reads to scope its work. Refresh replaces the
// snapshot wholesale; on a source failure the previous snapshot stays
// in place so a flaky pipeline store never empties the universe.
type UniverseTracker struct {
	source  domrepo.UniverseSource
	cache   pkgcache.Service
	metrics domrepo.Metrics
	l       *applogger.Logger

	mu       sync.RWMutex
	snapshot *models.Universe
}

// NewUniverseTracker creates a tracker with an empty snapshot.
func NewUniverseTracker(source domrepo.UniverseSource, cache pkgcache.Service, metrics domrepo.Metrics, l *applogger.Logger) *UniverseTracker {
	return &UniverseTracker{
		source:   source,
		cache:    cache,
		metrics:  metrics,
		l:        l,
		snapshot: &models.Universe{},
	}
}

// Snapshot returns the current universe. Callers must not mutate it.
func (t *UniverseTracker) Snapshot() *models.Universe {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// Refresh re-reads both tiers from the pipeline store and swaps the
// snapshot. A ticker present in both tiers counts as hot.
func (t *UniverseTracker) Refresh(ctx context.Context) error {
	start := time.Now()

	hot, err := t.source.FetchHot(ctx)
	if err != nil {
		t.l.Warn("universe hot tier fetch failed, keeping previous snapshot", applogger.Error(err))
		return err
	}
	warm, err := t.source.FetchWarm(ctx)
	if err != nil {
		t.l.Warn("universe warm tier fetch failed, keeping previous snapshot", applogger.Error(err))
		return err
	}

	next := &models.Universe{Hot: hot, Warm: warm}

	t.mu.Lock()
	t.snapshot = next
	t.mu.Unlock()

	if err := t.cache.Set(ctx, pkgcache.UniverseKey(), next, 0); err != nil {
		t.l.Warn("universe snapshot cache write failed", applogger.Error(err))
	}

	t.metrics.RecordCycleDuration("universe", time.Since(start).Seconds())
	t.l.Info("universe refreshed",
		applogger.Int("hot", len(hot)),
		applogger.Int("warm", len(warm)),
		applogger.Int("total", next.Total()),
	)
	return nil
}
