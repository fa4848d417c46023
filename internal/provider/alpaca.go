package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
)

// AlpacaProvider fetches candles and quotes from the Alpaca market-data
// API. Equities use the stock endpoints; dash-pair symbols ("BTC-USD")
// are translated to the crypto endpoints.
type AlpacaProvider struct {
	client     *marketdata.Client
	httpClient *http.Client
	rate       *RateState
}

// NewAlpacaProvider creates an Alpaca adapter. The SDK's calls carry no
// context, so the timeout is enforced on the underlying HTTP client; a
// hung vendor call cannot hold an ingest slot past it.
func NewAlpacaProvider(apiKey, apiSecret, dataURL string, timeout time.Duration, rate *RateState) *AlpacaProvider {
	httpClient := &http.Client{Timeout: timeout}
	opts := marketdata.ClientOpts{
		APIKey:     apiKey,
		APISecret:  apiSecret,
		HTTPClient: httpClient,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaProvider{
		client:     marketdata.NewClient(opts),
		httpClient: httpClient,
		rate:       rate,
	}
}

func (p *AlpacaProvider) Name() string { return "alpaca" }

// RemainingCalls exposes headroom in the current rate window.
func (p *AlpacaProvider) RemainingCalls() int { return p.rate.Remaining() }

// FetchCandles fetches the most recent lookback candles of tf.
func (p *AlpacaProvider) FetchCandles(ctx context.Context, symbol string, tf domrepo.Timeframe, lookback int) ([]models.Candle, error) {
	if !p.rate.Acquire() {
		return nil, models.NewProviderError(p.Name(), symbol, ErrRateLimited)
	}
	if err := ctx.Err(); err != nil {
		return nil, models.NewProviderError(p.Name(), symbol, err)
	}

	timeframe, err := alpacaTimeFrame(tf)
	if err != nil {
		return nil, err
	}

	start := time.Now().Add(-time.Duration(lookback) * tf.Bucket())

	if models.ClassifySymbol(symbol) == models.AssetCrypto {
		bars, err := p.client.GetCryptoBars(cryptoVendorSymbol(symbol), marketdata.GetCryptoBarsRequest{
			TimeFrame:  timeframe,
			Start:      start,
			TotalLimit: lookback,
		})
		if err != nil {
			return nil, models.NewProviderError(p.Name(), symbol, err)
		}
		out := make([]models.Candle, 0, len(bars))
		for _, b := range bars {
			out = append(out, models.Candle{
				Symbol:    symbol,
				Timeframe: string(tf),
				Timestamp: b.Timestamp.UTC(),
				Open:      b.Open,
				High:      b.High,
				Low:       b.Low,
				Close:     b.Close,
				Volume:    b.Volume,
			})
		}
		return out, nil
	}

	bars, err := p.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  timeframe,
		Start:      start,
		TotalLimit: lookback,
	})
	if err != nil {
		return nil, models.NewProviderError(p.Name(), symbol, err)
	}

	out := make([]models.Candle, 0, len(bars))
	for _, b := range bars {
		out = append(out, models.Candle{
			Symbol:    symbol,
			Timeframe: string(tf),
			Timestamp: b.Timestamp.UTC(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    float64(b.Volume),
		})
	}
	return out, nil
}

// FetchQuote fetches the latest snapshot and flattens it into a quote.
func (p *AlpacaProvider) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if !p.rate.Acquire() {
		return nil, models.NewProviderError(p.Name(), symbol, ErrRateLimited)
	}
	if err := ctx.Err(); err != nil {
		return nil, models.NewProviderError(p.Name(), symbol, err)
	}

	if models.ClassifySymbol(symbol) == models.AssetCrypto {
		snap, err := p.client.GetCryptoSnapshot(cryptoVendorSymbol(symbol), marketdata.GetCryptoSnapshotRequest{})
		if err != nil {
			return nil, models.NewProviderError(p.Name(), symbol, err)
		}
		if snap == nil || snap.LatestTrade == nil || snap.DailyBar == nil {
			return nil, models.NewProviderError(p.Name(), symbol, fmt.Errorf("empty snapshot"))
		}

		prevClose := snap.DailyBar.Open
		if snap.PrevDailyBar != nil {
			prevClose = snap.PrevDailyBar.Close
		}
		return buildQuote(symbol, snap.LatestTrade.Price, snap.DailyBar.Open, snap.DailyBar.High, snap.DailyBar.Low, prevClose, snap.LatestTrade.Timestamp), nil
	}

	snap, err := p.client.GetSnapshot(symbol, marketdata.GetSnapshotRequest{})
	if err != nil {
		return nil, models.NewProviderError(p.Name(), symbol, err)
	}
	if snap == nil || snap.LatestTrade == nil || snap.DailyBar == nil {
		return nil, models.NewProviderError(p.Name(), symbol, fmt.Errorf("empty snapshot"))
	}

	prevClose := snap.DailyBar.Open
	if snap.PrevDailyBar != nil {
		prevClose = snap.PrevDailyBar.Close
	}
	return buildQuote(symbol, snap.LatestTrade.Price, snap.DailyBar.Open, snap.DailyBar.High, snap.DailyBar.Low, prevClose, snap.LatestTrade.Timestamp), nil
}

func buildQuote(symbol string, current, open, high, low, prevClose float64, ts time.Time) *models.Quote {
	change := current - prevClose
	pct := 0.0
	if prevClose != 0 {
		pct = change / prevClose * 100
	}
	return &models.Quote{
		Symbol:        symbol,
		CurrentPrice:  current,
		Change:        change,
		PercentChange: pct,
		High:          high,
		Low:           low,
		Open:          open,
		PreviousClose: prevClose,
		Timestamp:     ts,
	}
}

func alpacaTimeFrame(tf domrepo.Timeframe) (marketdata.TimeFrame, error) {
	switch tf {
	case domrepo.TF1m:
		return marketdata.OneMin, nil
	case domrepo.TF5m:
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case domrepo.TF15m:
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case domrepo.TF30m:
		return marketdata.NewTimeFrame(30, marketdata.Min), nil
	case domrepo.TF1h:
		return marketdata.OneHour, nil
	case domrepo.TF4h:
		return marketdata.NewTimeFrame(4, marketdata.Hour), nil
	case domrepo.TF1d:
		return marketdata.OneDay, nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("alpaca: unsupported resolution %s", tf)
	}
}

// cryptoVendorSymbol maps "BTC-USD" to the "BTC/USD" pair form the
// crypto endpoints expect.
func cryptoVendorSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "-", "/")
}
