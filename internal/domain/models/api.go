package models

// Read API request/response shapes. Requests bind from path and query
// params; validation tags enforce the documented limits.

// QuoteRequest asks for the latest quote of one ticker.
type QuoteRequest struct {
	Ticker string `param:"ticker" validate:"required"`
}

// CandlesRequest asks for a candle series page.
type CandlesRequest struct {
	Ticker    string `param:"ticker" validate:"required"`
	Timeframe string `query:"timeframe" default:"1m" validate:"oneof=1m 5m 15m 30m 1h 4h 1d"`
	Limit     int    `query:"limit" default:"100" validate:"min=1,max=500"`
}

// CandlesResponse is a candle series page, ascending by timestamp.
type CandlesResponse struct {
	Ticker    string   `json:"ticker"`
	Timeframe string   `json:"timeframe"`
	Count     int      `json:"count"`
	Candles   []Candle `json:"candles"`
}

// IndicatorsRequest asks for cached indicator results. Indicators is a
// comma-separated ID filter; empty means the full battery. The period
// fields override the default period of a single-period family, served
// by on-demand computation when outside the battery.
type IndicatorsRequest struct {
	Ticker     string `param:"ticker" validate:"required"`
	Timeframe  string `query:"timeframe" default:"1h" validate:"oneof=1m 5m 15m 30m 1h 4h 1d"`
	Indicators string `query:"indicators"`
	SMAPeriod  int    `query:"sma_period" validate:"omitempty,min=2,max=400"`
	EMAPeriod  int    `query:"ema_period" validate:"omitempty,min=2,max=400"`
	RSIPeriod  int    `query:"rsi_period" validate:"omitempty,min=2,max=400"`
	ATRPeriod  int    `query:"atr_period" validate:"omitempty,min=2,max=400"`
}

// PeriodOverrides collects the non-zero period overrides by family name.
func (r *IndicatorsRequest) PeriodOverrides() map[string]int {
	out := make(map[string]int)
	if r.SMAPeriod > 0 {
		out["sma"] = r.SMAPeriod
	}
	if r.EMAPeriod > 0 {
		out["ema"] = r.EMAPeriod
	}
	if r.RSIPeriod > 0 {
		out["rsi"] = r.RSIPeriod
	}
	if r.ATRPeriod > 0 {
		out["atr"] = r.ATRPeriod
	}
	return out
}

// BatchRequest asks for a per-ticker bundle. Tickers and DataTypes are
// comma-separated; data types default to quote and candles.
type BatchRequest struct {
	Tickers   string `query:"tickers" validate:"required"`
	DataTypes string `query:"data_types" default:"quote,candles"`
	Timeframe string `query:"timeframe" default:"1m" validate:"oneof=1m 5m 15m 30m 1h 4h 1d"`
	Limit     int    `query:"limit" default:"100" validate:"min=1,max=500"`
}

// BatchEntry is one ticker's slice of a batch response. Error carries
// the per-ticker failure without failing the whole batch.
type BatchEntry struct {
	Ticker  string           `json:"ticker"`
	Quote   *Quote           `json:"quote,omitempty"`
	Candles *CandlesResponse `json:"candles,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// UniverseResponse mirrors the current hot/warm snapshot.
type UniverseResponse struct {
	Hot   []string `json:"hot"`
	Warm  []string `json:"warm"`
	Total int      `json:"total"`
}
