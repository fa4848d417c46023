package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/aggregate"
	pkgch "MarketPulse/pkg/clickhouse"
	applogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/util"
)

// CHCandleStore implements CandleStore backed by ClickHouse. The table
// is a ReplacingMergeTree keyed on (symbol, timeframe, ts); reads go
// through FINAL so the most recently written row wins when a seeded
// daily candle and a derived one collide on the same timestamp.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
	now   func() time.Time
}

func NewCHCandleStore(ch *pkgch.Client, database string) *CHCandleStore {
	return &CHCandleStore{
		db:    ch.DB(),
		table: database + ".candles",
		now:   time.Now,
	}
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) { s.l = l }

// UpsertCandles inserts rows, skipping (symbol, timeframe, ts) tuples
// already present, and returns the number of rows actually written.
// Re-running the same batch is a no-op, so ingestion cycles that
// overlap their lookback window stay idempotent.
func (s *CHCandleStore) UpsertCandles(ctx context.Context, candles []models.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}
	start := time.Now()

	type seriesKey struct {
		symbol    string
		timeframe string
	}
	groups := make(map[seriesKey][]models.Candle)
	for _, c := range candles {
		if c.Symbol == "" || c.Timestamp.IsZero() {
			continue
		}
		k := seriesKey{symbol: c.Symbol, timeframe: c.Timeframe}
		groups[k] = append(groups[k], c)
	}

	inserted := 0
	for k, group := range groups {
		existing, err := s.existingTimestamps(ctx, k.symbol, k.timeframe, group)
		if err != nil {
			return inserted, err
		}

		fresh := make([]models.Candle, 0, len(group))
		for _, c := range group {
			if _, ok := existing[c.Timestamp.Unix()]; ok {
				continue
			}
			fresh = append(fresh, c)
		}
		if len(fresh) == 0 {
			continue
		}

		if err := s.insertBatch(ctx, fresh); err != nil {
			return inserted, models.NewStorageWriteError(k.symbol, err)
		}
		inserted += len(fresh)
	}

	if s.l != nil {
		s.l.Debug("clickhouse upsert_candles ok",
			applogger.Int("received", len(candles)),
			applogger.Int("inserted", inserted),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return inserted, nil
}

func (s *CHCandleStore) existingTimestamps(ctx context.Context, symbol, timeframe string, group []models.Candle) (map[int64]struct{}, error) {
	lo, hi := group[0].Timestamp, group[0].Timestamp
	for _, c := range group[1:] {
		if c.Timestamp.Before(lo) {
			lo = c.Timestamp
		}
		if c.Timestamp.After(hi) {
			hi = c.Timestamp
		}
	}

	q := fmt.Sprintf(`
        SELECT ts
        FROM %s FINAL
        WHERE symbol = ? AND timeframe = ? AND ts >= ? AND ts <= ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, timeframe, lo, hi)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse existing_ts query error",
				applogger.String("symbol", symbol),
				applogger.String("tf", timeframe),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("existing timestamps: %w", err)
	}
	defer rows.Close()

	existing := make(map[int64]struct{}, len(group))
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan ts: %w", err)
		}
		existing[ts.Unix()] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return existing, nil
}

func (s *CHCandleStore) insertBatch(ctx context.Context, candles []models.Candle) error {
	// Multi-row VALUES keeps round-trips down; chunked to bound the
	// statement size on large seed backfills.
	const chunkSize = 1000
	for start := 0; start < len(candles); start += chunkSize {
		end := start + chunkSize
		if end > len(candles) {
			end = len(candles)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, c := range candles[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				c.Symbol,
				c.Timeframe,
				c.Timestamp.UTC(),
				c.Open,
				c.High,
				c.Low,
				c.Close,
				c.Volume,
				c.Source,
			)
		}

		q := fmt.Sprintf("INSERT INTO %s (symbol, timeframe, ts, open, high, low, close, volume, source) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert candles: %w", err)
		}
	}
	return nil
}

// RefreshAggregate recomputes def's derived view over its staleness
// window from the 1m series and writes the buckets back. The recompute
// is deterministic and the replacing engine collapses duplicate
// (symbol, timeframe, ts) rows, so a double-run yields the same series.
func (s *CHCandleStore) RefreshAggregate(ctx context.Context, symbol string, def domrepo.AggregateDefinition) error {
	start := time.Now()
	from := util.AlignToBucket(s.now().Add(-def.Staleness), def.Bucket)

	q := fmt.Sprintf(`
        SELECT ts, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND timeframe = '1m' AND ts >= ?
        ORDER BY ts ASC
    `, s.table)

	rows, err := s.db.QueryContext(ctx, q, symbol, from)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse refresh_aggregate query error",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(def.Timeframe)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("refresh aggregate: %w", err)
	}
	defer rows.Close()

	minute := make([]models.Candle, 0, 256)
	for rows.Next() {
		c := models.Candle{Symbol: symbol, Timeframe: string(domrepo.TF1m)}
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return fmt.Errorf("scan minute row: %w", err)
		}
		minute = append(minute, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}

	out := aggregate.Derive(symbol, def, minute)
	if len(out) == 0 {
		return nil
	}

	if err := s.insertBatch(ctx, out); err != nil {
		return models.NewStorageWriteError(symbol, err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse refresh_aggregate ok",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(def.Timeframe)),
			applogger.Int("buckets", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// GetCandles returns up to limit most recent candles for symbol/tf in
// ascending timestamp order.
func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, tf domrepo.Timeframe, limit int) ([]models.Candle, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT symbol, timeframe, ts, open, high, low, close, volume, source
        FROM %s FINAL
        WHERE symbol = ? AND timeframe = ?
        ORDER BY ts DESC
        LIMIT ?
    `, s.table)

	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_candles query error",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Candle, 0, limit)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Source); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		tmp = append(tmp, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Debug("clickhouse get_candles ok",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

// Health performs a connectivity check.
func (s *CHCandleStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
