package indicators

import (
	"strconv"
	"time"

	"MarketPulse/internal/domain/models"
)

// lookbackBuffer pads the minimum candle count so smoothed indicators
// (EMA, RSI, ATR) have a few extra points to converge over.
const lookbackBuffer = 5

// Computation is one indicator in the standard battery: a stable ID
// used in cache keys, the parameter set, and the minimum candle count
// it needs before a result is meaningful.
type Computation struct {
	ID     string
	Params map[string]int
	need   int
	fn     func(candles []models.Candle, closes []float64) map[string]float64
}

// Need returns the candle count this computation wants, buffer included.
func (c Computation) Need() int { return c.need + lookbackBuffer }

// Compute evaluates the indicator over candles (ascending order). It
// returns an InsufficientDataError when fewer candles than the buffered
// lookback are available; the caller skips and moves on.
func (c Computation) Compute(symbol string, timeframe string, candles []models.Candle, now time.Time) (*models.IndicatorResult, error) {
	if len(candles) < c.Need() {
		return nil, models.NewInsufficientDataError(c.ID, c.Need(), len(candles))
	}

	closes := make([]float64, len(candles))
	for i, cd := range candles {
		closes[i] = cd.Close
	}

	return &models.IndicatorResult{
		Indicator:  c.ID,
		Symbol:     symbol,
		Timeframe:  timeframe,
		Params:     c.Params,
		Values:     c.fn(candles, closes),
		ComputedAt: now,
	}, nil
}

// Battery returns the standard indicator set computed for every ticker
// and timeframe on each engine cycle.
func Battery() []Computation {
	battery := []Computation{
		smaComputation(20),
		smaComputation(50),
		smaComputation(200),
		emaComputation(12),
		emaComputation(26),
		rsiComputation(14),
		{
			ID:     "macd_12_26_9",
			Params: map[string]int{"fast": 12, "slow": 26, "signal": 9},
			need:   34,
			fn: func(_ []models.Candle, closes []float64) map[string]float64 {
				macd, sig, hist := MACD(closes, 12, 26, 9)
				return map[string]float64{"macd": macd, "signal": sig, "histogram": hist}
			},
		},
		{
			ID:     "bbands_20_2",
			Params: map[string]int{"period": 20, "width": 2},
			need:   20,
			fn: func(_ []models.Candle, closes []float64) map[string]float64 {
				upper, middle, lower := Bollinger(closes, 20, 2)
				return map[string]float64{"upper": upper, "middle": middle, "lower": lower}
			},
		},
		atrComputation(14),
		{
			ID:     "stoch_14_3",
			Params: map[string]int{"k_period": 14, "d_period": 3},
			need:   16,
			fn: func(candles []models.Candle, _ []float64) map[string]float64 {
				k, d := Stochastic(candles, 14, 3)
				return map[string]float64{"k": k, "d": d}
			},
		},
	}
	return battery
}

// MaxNeed returns the largest candle count any battery member wants,
// which sizes the single store read per ticker and timeframe.
func MaxNeed(battery []Computation) int {
	max := 0
	for _, c := range battery {
		if n := c.Need(); n > max {
			max = n
		}
	}
	return max
}

// WithPeriod builds a computation for a single-period indicator family
// at a caller-chosen period, for read-path overrides. Multi-parameter
// families (macd, bbands, stoch) are only served at battery defaults.
func WithPeriod(name string, period int) (Computation, bool) {
	if period <= 0 {
		return Computation{}, false
	}
	switch name {
	case "sma":
		return smaComputation(period), true
	case "ema":
		return emaComputation(period), true
	case "rsi":
		return rsiComputation(period), true
	case "atr":
		return atrComputation(period), true
	default:
		return Computation{}, false
	}
}

func smaComputation(period int) Computation {
	return Computation{
		ID:     idWithPeriod("sma", period),
		Params: map[string]int{"period": period},
		need:   period,
		fn: func(_ []models.Candle, closes []float64) map[string]float64 {
			return map[string]float64{"value": SMA(closes, period)}
		},
	}
}

func emaComputation(period int) Computation {
	return Computation{
		ID:     idWithPeriod("ema", period),
		Params: map[string]int{"period": period},
		need:   period,
		fn: func(_ []models.Candle, closes []float64) map[string]float64 {
			return map[string]float64{"value": EMA(closes, period)}
		},
	}
}

func rsiComputation(period int) Computation {
	return Computation{
		ID:     idWithPeriod("rsi", period),
		Params: map[string]int{"period": period},
		need:   period + 1,
		fn: func(_ []models.Candle, closes []float64) map[string]float64 {
			return map[string]float64{"value": RSI(closes, period)}
		},
	}
}

func atrComputation(period int) Computation {
	return Computation{
		ID:     idWithPeriod("atr", period),
		Params: map[string]int{"period": period},
		need:   period + 1,
		fn: func(candles []models.Candle, _ []float64) map[string]float64 {
			return map[string]float64{"value": ATR(candles, period)}
		},
	}
}

func idWithPeriod(name string, period int) string {
	return name + "_" + strconv.Itoa(period)
}
