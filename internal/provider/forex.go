package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	xhttp "MarketPulse/pkg/http"
)

// ForexProvider serves currency pairs over the Finnhub forex endpoints.
// Pair symbols ("EUR/USD") are mapped to the OANDA feed naming the
// vendor expects ("OANDA:EUR_USD"). All forex tickers route here
// regardless of the configured equity vendors.
type ForexProvider struct {
	apiKey  string
	baseURL string
	client  *xhttp.Client
	rate    *RateState
}

// NewForexProvider creates the forex-specialized adapter.
func NewForexProvider(apiKey, baseURL string, timeout time.Duration, rate *RateState) *ForexProvider {
	return &ForexProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		rate:    rate,
	}
}

func (p *ForexProvider) Name() string { return "finnhub-forex" }

// RemainingCalls exposes headroom in the current rate window.
func (p *ForexProvider) RemainingCalls() int { return p.rate.Remaining() }

// FetchCandles fetches the most recent lookback forex candles.
func (p *ForexProvider) FetchCandles(ctx context.Context, symbol string, tf domrepo.Timeframe, lookback int) ([]models.Candle, error) {
	if !p.rate.Acquire() {
		return nil, models.NewProviderError(p.Name(), symbol, ErrRateLimited)
	}

	resolution, err := finnhubResolution(tf)
	if err != nil {
		return nil, err
	}

	to := time.Now()
	from := to.Add(-time.Duration(lookback) * tf.Bucket())

	var resp finnhubCandleResponse
	err = p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    p.baseURL + "/forex/candle",
		QueryParams: map[string][]string{
			"symbol":     {forexVendorSymbol(symbol)},
			"resolution": {resolution},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(to.Unix(), 10)},
			"token":      {p.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, models.NewProviderError(p.Name(), symbol, err)
	}
	if resp.Status != "ok" {
		return nil, models.NewProviderError(p.Name(), symbol, fmt.Errorf("candle status %q", resp.Status))
	}

	return finnhubCandles(symbol, tf, &resp), nil
}

// FetchQuote derives a quote from the two most recent daily candles.
// The vendor has no forex quote endpoint, so the last close stands in
// for the current price and the prior close anchors the change.
func (p *ForexProvider) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	candles, err := p.FetchCandles(ctx, symbol, domrepo.TF1d, 3)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, models.NewProviderError(p.Name(), symbol, fmt.Errorf("no daily candles"))
	}

	last := candles[len(candles)-1]
	prevClose := last.Open
	if len(candles) >= 2 {
		prevClose = candles[len(candles)-2].Close
	}

	change := last.Close - prevClose
	pct := 0.0
	if prevClose != 0 {
		pct = change / prevClose * 100
	}

	return &models.Quote{
		Symbol:        symbol,
		CurrentPrice:  last.Close,
		Change:        change,
		PercentChange: pct,
		High:          last.High,
		Low:           last.Low,
		Open:          last.Open,
		PreviousClose: prevClose,
		Timestamp:     last.Timestamp,
	}, nil
}

func forexVendorSymbol(symbol string) string {
	return "OANDA:" + strings.ReplaceAll(symbol, "/", "_")
}
