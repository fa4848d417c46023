package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/aggregate"
	pkgcache "MarketPulse/pkg/cache"
)

// memStore is an in-memory CandleStore with the same write discipline
// as the real one: upserts skip existing (symbol, timeframe, ts)
// tuples, aggregate refreshes replace derived rows.
type memStore struct {
	mu   sync.Mutex
	rows map[string]models.Candle

	upsertErr error
	getErr    error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]models.Candle)}
}

func storeKey(symbol, timeframe string, ts time.Time) string {
	return fmt.Sprintf("%s|%s|%d", symbol, timeframe, ts.Unix())
}

func (s *memStore) UpsertCandles(_ context.Context, candles []models.Candle) (int, error) {
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, c := range candles {
		k := storeKey(c.Symbol, c.Timeframe, c.Timestamp)
		if _, ok := s.rows[k]; ok {
			continue
		}
		s.rows[k] = c
		inserted++
	}
	return inserted, nil
}

func (s *memStore) RefreshAggregate(_ context.Context, symbol string, def domrepo.AggregateDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	minute := make([]models.Candle, 0)
	for _, c := range s.rows {
		if c.Symbol == symbol && c.Timeframe == string(domrepo.TF1m) {
			minute = append(minute, c)
		}
	}
	for _, c := range aggregate.Derive(symbol, def, minute) {
		s.rows[storeKey(c.Symbol, c.Timeframe, c.Timestamp)] = c
	}
	return nil
}

func (s *memStore) GetCandles(_ context.Context, symbol string, tf domrepo.Timeframe, limit int) ([]models.Candle, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Candle, 0)
	for _, c := range s.rows {
		if c.Symbol == symbol && c.Timeframe == string(tf) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) Health(context.Context) error { return nil }

func (s *memStore) count(symbol, timeframe string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.rows {
		if c.Symbol == symbol && c.Timeframe == timeframe {
			n++
		}
	}
	return n
}

func (s *memStore) get(symbol, timeframe string, ts time.Time) (models.Candle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[storeKey(symbol, timeframe, ts)]
	return c, ok
}

// memCache is a map-backed cache.Service; TTLs are recorded, not
// enforced (expiry behavior is covered by the cache package tests).
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	c.ttls[key] = expiration
	return nil
}

func (c *memCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	b, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return pkgcache.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) Exists(_ context.Context, keys ...string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if _, ok := c.data[k]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (c *memCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if b, ok := c.data[k]; ok {
			out[k] = string(b)
		}
	}
	return out, nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// scriptedProvider returns canned candles/quotes per symbol, with
// optional per-symbol errors, and counts fetches.
type scriptedProvider struct {
	mu      sync.Mutex
	candles map[string][]models.Candle
	quotes  map[string]*models.Quote
	errs    map[string]error
	fetched map[string]int
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{
		candles: make(map[string][]models.Candle),
		quotes:  make(map[string]*models.Quote),
		errs:    make(map[string]error),
		fetched: make(map[string]int),
	}
}

func (p *scriptedProvider) Name() string        { return "scripted" }
func (p *scriptedProvider) RemainingCalls() int { return 1 << 20 }

func (p *scriptedProvider) FetchCandles(_ context.Context, symbol string, _ domrepo.Timeframe, _ int) ([]models.Candle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetched[symbol]++
	if err := p.errs[symbol]; err != nil {
		return nil, err
	}
	out := make([]models.Candle, len(p.candles[symbol]))
	copy(out, p.candles[symbol])
	return out, nil
}

func (p *scriptedProvider) FetchQuote(_ context.Context, symbol string) (*models.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetched[symbol]++
	if err := p.errs[symbol]; err != nil {
		return nil, err
	}
	q, ok := p.quotes[symbol]
	if !ok {
		return nil, models.NewNotFoundError("quote", symbol)
	}
	cp := *q
	return &cp, nil
}

func (p *scriptedProvider) fetches(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetched[symbol]
}

// staticUniverse is a swappable UniverseView.
type staticUniverse struct {
	mu   sync.RWMutex
	snap *models.Universe
}

func newStaticUniverse(hot, warm []string) *staticUniverse {
	return &staticUniverse{snap: &models.Universe{Hot: hot, Warm: warm}}
}

func (u *staticUniverse) Snapshot() *models.Universe {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.snap
}

func (u *staticUniverse) set(hot, warm []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.snap = &models.Universe{Hot: hot, Warm: warm}
}

// countMetrics tallies recorder calls.
type countMetrics struct {
	mu        sync.Mutex
	fallbacks int
	written   map[string]int
	skips     map[string]int
	cycles    map[string]int
}

func newCountMetrics() *countMetrics {
	return &countMetrics{
		written: make(map[string]int),
		skips:   make(map[string]int),
		cycles:  make(map[string]int),
	}
}

func (m *countMetrics) RecordFetch(string, string) {}
func (m *countMetrics) RecordFallback(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks++
}
func (m *countMetrics) RecordCandlesWritten(tf string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written[tf] += n
}
func (m *countMetrics) RecordIndicatorSkip(indicator string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skips[indicator]++
}
func (m *countMetrics) RecordCycleDuration(task string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles[task]++
}
func (m *countMetrics) RecordCacheAccess(string, bool) {}

func (m *countMetrics) writtenFor(tf string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written[tf]
}

func (m *countMetrics) skipsFor(indicator string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skips[indicator]
}

// recordPublisher captures refresh events.
type recordPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordPublisher) PublishRefresh(_ context.Context, symbol string, timeframes []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, tf := range timeframes {
		p.events = append(p.events, symbol+":"+tf)
	}
	return nil
}

func (p *recordPublisher) Close() error { return nil }

func (p *recordPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func (p *recordPublisher) hasEvent(symbol, tf string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ev := range p.events {
		if ev == symbol+":"+tf {
			return true
		}
	}
	return false
}

func minuteSeries(symbol string, start time.Time, closes ...float64) []models.Candle {
	out := make([]models.Candle, 0, len(closes))
	for i, cl := range closes {
		out = append(out, models.Candle{
			Symbol:    symbol,
			Timeframe: string(domrepo.TF1m),
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      cl,
			High:      cl + 0.1,
			Low:       cl - 0.1,
			Close:     cl,
			Volume:    100,
		})
	}
	return out
}
