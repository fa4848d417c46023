package indicators

import (
	"math"

	"MarketPulse/internal/domain/models"
)

// SMA returns the simple moving average of the last period closes.
func SMA(closes []float64, period int) float64 {
	n := len(closes)
	sum := 0.0
	for _, c := range closes[n-period:] {
		sum += c
	}
	return sum / float64(period)
}

// EMASeries returns the exponential moving average series, seeded with
// the SMA of the first period values. The result is aligned to the
// input: result[i] is meaningful for i >= period-1.
func EMASeries(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) < period {
		return out
	}

	seed := 0.0
	for _, c := range closes[:period] {
		seed += c
	}
	seed /= float64(period)
	out[period-1] = seed

	k := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		out[i] = closes[i]*k + out[i-1]*(1-k)
	}
	return out
}

// EMA returns the latest exponential moving average value.
func EMA(closes []float64, period int) float64 {
	series := EMASeries(closes, period)
	return series[len(series)-1]
}

// RSI returns the Wilder-smoothed relative strength index.
func RSI(closes []float64, period int) float64 {
	gains, losses := 0.0, 0.0
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the MACD line, signal line and histogram for the
// standard fast/slow/signal periods.
func MACD(closes []float64, fast, slow, signal int) (macd, sig, hist float64) {
	fastSeries := EMASeries(closes, fast)
	slowSeries := EMASeries(closes, slow)

	// MACD line exists once the slow EMA does.
	line := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		line = append(line, fastSeries[i]-slowSeries[i])
	}

	sigSeries := EMASeries(line, signal)
	macd = line[len(line)-1]
	sig = sigSeries[len(sigSeries)-1]
	hist = macd - sig
	return macd, sig, hist
}

// Bollinger returns the upper, middle and lower bands over period
// closes at width standard deviations.
func Bollinger(closes []float64, period int, width float64) (upper, middle, lower float64) {
	middle = SMA(closes, period)

	variance := 0.0
	for _, c := range closes[len(closes)-period:] {
		d := c - middle
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))

	return middle + width*sd, middle, middle - width*sd
}

// ATR returns the Wilder-smoothed average true range. Requires
// period+1 candles for the first true range.
func ATR(candles []models.Candle, period int) float64 {
	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		h, l, pc := candles[i].High, candles[i].Low, candles[i-1].Close
		tr := h - l
		if d := math.Abs(h - pc); d > tr {
			tr = d
		}
		if d := math.Abs(l - pc); d > tr {
			tr = d
		}
		trs = append(trs, tr)
	}

	atr := 0.0
	for _, tr := range trs[:period] {
		atr += tr
	}
	atr /= float64(period)

	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
	}
	return atr
}

// Stochastic returns %K and %D for a kPeriod lookback with a dPeriod
// SMA smoothing of %K. Requires kPeriod+dPeriod-1 candles.
func Stochastic(candles []models.Candle, kPeriod, dPeriod int) (k, d float64) {
	kValues := make([]float64, 0, dPeriod)
	for off := dPeriod - 1; off >= 0; off-- {
		end := len(candles) - off
		window := candles[end-kPeriod : end]

		hi, lo := window[0].High, window[0].Low
		for _, c := range window[1:] {
			if c.High > hi {
				hi = c.High
			}
			if c.Low < lo {
				lo = c.Low
			}
		}

		kv := 50.0
		if hi != lo {
			kv = 100 * (window[len(window)-1].Close - lo) / (hi - lo)
		}
		kValues = append(kValues, kv)
	}

	k = kValues[len(kValues)-1]
	sum := 0.0
	for _, v := range kValues {
		sum += v
	}
	return k, sum / float64(len(kValues))
}
