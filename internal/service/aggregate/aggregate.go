package aggregate

import (
	"sort"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/util"
)

// Derive rolls a 1m series up into def's bucket width. Per bucket:
// open is the first minute's open, close the last minute's close, high
// the max of highs, low the min of lows, volume the sum of volumes.
// Buckets are aligned to UTC boundaries; daily buckets start at UTC
// midnight. The input need not be sorted. Deterministic, so re-running
// a refresh over the same window yields identical rows.
func Derive(symbol string, def domrepo.AggregateDefinition, minute []models.Candle) []models.Candle {
	if len(minute) == 0 {
		return nil
	}

	sorted := make([]models.Candle, len(minute))
	copy(sorted, minute)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := make([]models.Candle, 0, len(sorted)/2+1)
	for _, m := range sorted {
		bucket := util.AlignToBucket(m.Timestamp, def.Bucket)

		if len(out) == 0 || !out[len(out)-1].Timestamp.Equal(bucket) {
			out = append(out, models.Candle{
				Symbol:    symbol,
				Timeframe: string(def.Timeframe),
				Timestamp: bucket,
				Open:      m.Open,
				High:      m.High,
				Low:       m.Low,
				Close:     m.Close,
				Volume:    m.Volume,
				Source:    models.SourceAgg,
			})
			continue
		}

		cur := &out[len(out)-1]
		if m.High > cur.High {
			cur.High = m.High
		}
		if m.Low < cur.Low {
			cur.Low = m.Low
		}
		cur.Close = m.Close
		cur.Volume += m.Volume
	}
	return out
}
