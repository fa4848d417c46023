package models

import "time"

// CandleSource identifies how a candle row was produced.
const (
	SourceIngest = "ingest" // minute pipeline
	SourceAgg    = "agg"    // derived aggregate refresh
	SourceSeed   = "seed"   // EOD backfill
)

// Candle is one OHLCV bar for a symbol over a fixed time bucket.
// At most one row exists per (symbol, timeframe, timestamp).
type Candle struct {
	Symbol    string    `json:"ticker"`
	Timeframe string    `json:"timeframe"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Source    string    `json:"-"`
}

// Quote is the latest price snapshot for a symbol.
type Quote struct {
	Symbol        string    `json:"ticker"`
	CurrentPrice  float64   `json:"current_price"`
	Change        float64   `json:"change"`
	PercentChange float64   `json:"percent_change"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PreviousClose float64   `json:"previous_close"`
	Timestamp     time.Time `json:"timestamp"`
}

// AssetClass of a ticker, inferred from symbol structure.
type AssetClass string

const (
	AssetEquity AssetClass = "equity"
	AssetCrypto AssetClass = "crypto"
	AssetForex  AssetClass = "forex"
)

// ClassifySymbol infers the asset class from the symbol's shape.
// Forex pairs carry a "/" separator ("EUR/USD"); crypto symbols use a
// dash pair ("BTC-USD"); everything else is treated as an equity.
func ClassifySymbol(symbol string) AssetClass {
	for i := 0; i < len(symbol); i++ {
		switch symbol[i] {
		case '/':
			return AssetForex
		case '-':
			return AssetCrypto
		}
	}
	return AssetEquity
}
