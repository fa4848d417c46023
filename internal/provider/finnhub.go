package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	xhttp "MarketPulse/pkg/http"
)

// ErrRateLimited signals the provider's own rate window is exhausted
// before the vendor was even called.
var ErrRateLimited = errors.New("rate window exhausted")

// FinnhubProvider fetches candles and quotes over the Finnhub REST API.
type FinnhubProvider struct {
	apiKey  string
	baseURL string
	client  *xhttp.Client
	rate    *RateState
}

// NewFinnhubProvider creates a Finnhub REST adapter.
func NewFinnhubProvider(apiKey, baseURL string, timeout time.Duration, rate *RateState) *FinnhubProvider {
	return &FinnhubProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		rate:    rate,
	}
}

func (p *FinnhubProvider) Name() string { return "finnhub" }

// RemainingCalls exposes headroom in the current rate window.
func (p *FinnhubProvider) RemainingCalls() int { return p.rate.Remaining() }

type finnhubCandleResponse struct {
	Close  []float64 `json:"c"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Open   []float64 `json:"o"`
	Status string    `json:"s"`
	TS     []int64   `json:"t"`
	Volume []float64 `json:"v"`
}

type finnhubQuoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PrevClose     float64 `json:"pc"`
	TS            int64   `json:"t"`
}

// FetchCandles fetches the most recent lookback candles of tf for symbol.
func (p *FinnhubProvider) FetchCandles(ctx context.Context, symbol string, tf domrepo.Timeframe, lookback int) ([]models.Candle, error) {
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
		URL:    p.baseURL + "/stock/candle",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
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

// FetchQuote fetches the latest quote for symbol.
func (p *FinnhubProvider) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if !p.rate.Acquire() {
		return nil, models.NewProviderError(p.Name(), symbol, ErrRateLimited)
	}

	var resp finnhubQuoteResponse
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    p.baseURL + "/quote",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {p.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, models.NewProviderError(p.Name(), symbol, err)
	}
	if resp.Current == 0 && resp.TS == 0 {
		return nil, models.NewProviderError(p.Name(), symbol, fmt.Errorf("empty quote"))
	}

	return &models.Quote{
		Symbol:        symbol,
		CurrentPrice:  resp.Current,
		Change:        resp.Change,
		PercentChange: resp.PercentChange,
		High:          resp.High,
		Low:           resp.Low,
		Open:          resp.Open,
		PreviousClose: resp.PrevClose,
		Timestamp:     time.Unix(resp.TS, 0),
	}, nil
}

func finnhubResolution(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1m:
		return "1", nil
	case domrepo.TF5m:
		return "5", nil
	case domrepo.TF15m:
		return "15", nil
	case domrepo.TF30m:
		return "30", nil
	case domrepo.TF1h:
		return "60", nil
	case domrepo.TF1d:
		return "D", nil
	default:
		return "", fmt.Errorf("finnhub: unsupported resolution %s", tf)
	}
}

func finnhubCandles(symbol string, tf domrepo.Timeframe, resp *finnhubCandleResponse) []models.Candle {
	n := len(resp.TS)
	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		if i >= len(resp.Open) || i >= len(resp.High) || i >= len(resp.Low) || i >= len(resp.Close) || i >= len(resp.Volume) {
			break
		}
		out = append(out, models.Candle{
			Symbol:    symbol,
			Timeframe: string(tf),
			Timestamp: time.Unix(resp.TS[i], 0).UTC(),
			Open:      resp.Open[i],
			High:      resp.High[i],
			Low:       resp.Low[i],
			Close:     resp.Close[i],
			Volume:    resp.Volume[i],
		})
	}
	return out
}
