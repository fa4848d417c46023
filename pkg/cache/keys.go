package cache

import "fmt"

// Cache keys are namespaced by data kind, timeframe, and ticker so each
// kind can expire on its own schedule.

// CandlesKey is the key for a candle series of one timeframe.
func CandlesKey(timeframe, symbol string) string {
	return fmt.Sprintf("candles:%s:%s", timeframe, symbol)
}

// QuoteKey is the key for the latest quote of a symbol.
func QuoteKey(symbol string) string {
	return fmt.Sprintf("quote:%s", symbol)
}

// IndicatorKey is the key for one indicator result. id carries the
// parameter tuple (e.g. "sma_20") so different periods coexist.
func IndicatorKey(timeframe, symbol, id string) string {
	return fmt.Sprintf("indicator:%s:%s:%s", timeframe, symbol, id)
}

// UniverseKey is the key for the current hot/warm snapshot.
func UniverseKey() string {
	return "universe:snapshot"
}
