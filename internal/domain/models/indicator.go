package models

import "time"

// IndicatorResult is one computed indicator for a symbol/timeframe pair.
// Params carries the full parameter tuple so SMA-20 and SMA-50 coexist
// under distinct cache keys.
type IndicatorResult struct {
	Indicator  string             `json:"indicator"`
	Symbol     string             `json:"ticker"`
	Timeframe  string             `json:"timeframe"`
	Params     map[string]int     `json:"params,omitempty"`
	Values     map[string]float64 `json:"values"`
	ComputedAt time.Time          `json:"timestamp"`
}
