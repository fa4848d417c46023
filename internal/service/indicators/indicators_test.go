package indicators

import (
	"errors"
	"math"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func flatCandles(n int, price float64) []models.Candle {
	out := make([]models.Candle, n)
	base := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.Candle{
			Symbol:    "TEST",
			Timeframe: "1h",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    100,
		}
	}
	return out
}

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	if got := SMA(closes, 5); !almostEqual(got, 3) {
		t.Fatalf("SMA = %v, want 3", got)
	}
	if got := SMA(closes, 2); !almostEqual(got, 4.5) {
		t.Fatalf("SMA(2) = %v, want 4.5", got)
	}
}

func TestEMAConstantSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 42
	}
	if got := EMA(closes, 12); !almostEqual(got, 42) {
		t.Fatalf("EMA of constant series = %v, want 42", got)
	}
}

func TestEMAConvergesTowardRecent(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 10
	}
	for i := 30; i < 40; i++ {
		closes[i] = 20
	}
	ema := EMA(closes, 12)
	if ema <= 10 || ema >= 20 {
		t.Fatalf("EMA = %v, want between 10 and 20", ema)
	}
	if ema < 15 {
		t.Fatalf("EMA = %v, should weight recent values above the midpoint", ema)
	}
}

func TestRSIAllGains(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	if got := RSI(closes, 14); !almostEqual(got, 100) {
		t.Fatalf("RSI of monotone rise = %v, want 100", got)
	}
}

func TestRSIAllLosses(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(100 - i)
	}
	if got := RSI(closes, 14); !almostEqual(got, 0) {
		t.Fatalf("RSI of monotone fall = %v, want 0", got)
	}
}

func TestMACDConstantSeries(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 99.5
	}
	macd, sig, hist := MACD(closes, 12, 26, 9)
	if !almostEqual(macd, 0) || !almostEqual(sig, 0) || !almostEqual(hist, 0) {
		t.Fatalf("MACD of constant series = %v/%v/%v, want zeros", macd, sig, hist)
	}
}

func TestBollingerConstantSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 50
	}
	upper, middle, lower := Bollinger(closes, 20, 2)
	if !almostEqual(upper, 50) || !almostEqual(middle, 50) || !almostEqual(lower, 50) {
		t.Fatalf("bands collapsed to %v/%v/%v, want all 50", upper, middle, lower)
	}
}

func TestBollingerWidth(t *testing.T) {
	// Alternating 10/20 has mean 15 and population stddev 5.
	closes := make([]float64, 20)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 10
		} else {
			closes[i] = 20
		}
	}
	upper, middle, lower := Bollinger(closes, 20, 2)
	if !almostEqual(middle, 15) {
		t.Fatalf("middle = %v, want 15", middle)
	}
	if !almostEqual(upper, 25) || !almostEqual(lower, 5) {
		t.Fatalf("bands = %v/%v, want 25/5", upper, lower)
	}
}

func TestATRFlatRange(t *testing.T) {
	candles := flatCandles(20, 100)
	for i := range candles {
		candles[i].High = 102
		candles[i].Low = 98
	}
	if got := ATR(candles, 14); !almostEqual(got, 4) {
		t.Fatalf("ATR = %v, want 4", got)
	}
}

func TestStochasticAtHigh(t *testing.T) {
	candles := flatCandles(20, 100)
	for i := range candles {
		candles[i].High = 100 + float64(i)
		candles[i].Low = 90
		candles[i].Close = 100 + float64(i)
	}
	k, d := Stochastic(candles, 14, 3)
	if !almostEqual(k, 100) {
		t.Fatalf("%%K = %v, want 100 when close is the period high", k)
	}
	if !almostEqual(d, 100) {
		t.Fatalf("%%D = %v, want 100", d)
	}
}

func TestComputationInsufficientData(t *testing.T) {
	battery := Battery()
	var sma200 Computation
	for _, c := range battery {
		if c.ID == "sma_200" {
			sma200 = c
		}
	}
	if sma200.ID == "" {
		t.Fatalf("sma_200 missing from battery")
	}

	_, err := sma200.Compute("AAPL", "1h", flatCandles(50, 100), time.Now())
	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("want InsufficientDataError, got %v", err)
	}
	if insufficient.Need != 205 || insufficient.Have != 50 {
		t.Fatalf("need/have = %d/%d, want 205/50 (lookback plus buffer)", insufficient.Need, insufficient.Have)
	}
}

func TestComputationRequiresBufferedLookback(t *testing.T) {
	sma20 := smaComputation(20)

	// The bare period alone is not enough; the buffered lookback is the
	// skip threshold.
	if _, err := sma20.Compute("AAPL", "1h", flatCandles(20, 100), time.Now()); err == nil {
		t.Fatalf("want insufficiency at the bare period, got result")
	}
	if _, err := sma20.Compute("AAPL", "1h", flatCandles(sma20.Need(), 100), time.Now()); err != nil {
		t.Fatalf("buffered lookback should compute: %v", err)
	}
}

func TestBatteryComputesOnFullHistory(t *testing.T) {
	battery := Battery()
	candles := flatCandles(MaxNeed(battery), 75)
	now := time.Now()

	for _, c := range battery {
		res, err := c.Compute("AAPL", "1d", candles, now)
		if err != nil {
			t.Fatalf("%s: %v", c.ID, err)
		}
		if res.Indicator != c.ID || res.Symbol != "AAPL" || res.Timeframe != "1d" {
			t.Fatalf("%s: bad identity %+v", c.ID, res)
		}
		if len(res.Values) == 0 {
			t.Fatalf("%s: no values", c.ID)
		}
	}
}

func TestMaxNeedCoversLongestIndicator(t *testing.T) {
	if got := MaxNeed(Battery()); got != 205 {
		t.Fatalf("MaxNeed = %d, want 205 (sma_200 plus buffer)", got)
	}
}
