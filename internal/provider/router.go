package provider

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	applogger "MarketPulse/pkg/logger"
)

// Router implements the routing policy over concrete vendor adapters:
// forex tickers always go to the forex-specialized provider; everything
// else goes to the primary vendor with automatic fallback to the
// secondary when the primary errors, times out, or has an exhausted
// rate window. There is no in-cycle retry beyond the single fallback;
// a failed ticker waits for the next scheduled cycle.
type Router struct {
	primary   domrepo.Provider
	secondary domrepo.Provider
	forex     domrepo.Provider
	timeout   time.Duration
	logger    *applogger.Logger
	metrics   domrepo.Metrics
}

// NewRouter creates a provider router with per-call timeout.
func NewRouter(primary, secondary, forex domrepo.Provider, timeout time.Duration, l *applogger.Logger, m domrepo.Metrics) *Router {
	return &Router{
		primary:   primary,
		secondary: secondary,
		forex:     forex,
		timeout:   timeout,
		logger:    l,
		metrics:   m,
	}
}

func (r *Router) Name() string { return "router" }

// RemainingCalls reports the primary vendor's headroom; the scheduler
// uses it to size fan-out, and the secondary tracks its own window.
func (r *Router) RemainingCalls() int { return r.primary.RemainingCalls() }

// FetchCandles routes a candle fetch per the failover policy.
func (r *Router) FetchCandles(ctx context.Context, symbol string, tf domrepo.Timeframe, lookback int) ([]models.Candle, error) {
	if models.ClassifySymbol(symbol) == models.AssetForex {
		ctx, cancel := r.callContext(ctx)
		defer cancel()
		candles, err := r.forex.FetchCandles(ctx, symbol, tf, lookback)
		r.record(r.forex.Name(), err)
		return candles, err
	}

	if r.primary.RemainingCalls() > 0 {
		cctx, cancel := r.callContext(ctx)
		candles, err := r.primary.FetchCandles(cctx, symbol, tf, lookback)
		cancel()
		r.record(r.primary.Name(), err)
		if err == nil {
			return candles, nil
		}
		r.logger.Warn("primary candle fetch failed, falling back",
			applogger.String("provider", r.primary.Name()),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
	r.metrics.RecordFallback(r.primary.Name())

	cctx, cancel := r.callContext(ctx)
	defer cancel()
	candles, err := r.secondary.FetchCandles(cctx, symbol, tf, lookback)
	r.record(r.secondary.Name(), err)
	return candles, err
}

// FetchQuote routes a quote fetch per the failover policy.
func (r *Router) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if models.ClassifySymbol(symbol) == models.AssetForex {
		ctx, cancel := r.callContext(ctx)
		defer cancel()
		quote, err := r.forex.FetchQuote(ctx, symbol)
		r.record(r.forex.Name(), err)
		return quote, err
	}

	if r.primary.RemainingCalls() > 0 {
		cctx, cancel := r.callContext(ctx)
		quote, err := r.primary.FetchQuote(cctx, symbol)
		cancel()
		r.record(r.primary.Name(), err)
		if err == nil {
			return quote, nil
		}
		r.logger.Warn("primary quote fetch failed, falling back",
			applogger.String("provider", r.primary.Name()),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
	r.metrics.RecordFallback(r.primary.Name())

	cctx, cancel := r.callContext(ctx)
	defer cancel()
	quote, err := r.secondary.FetchQuote(cctx, symbol)
	r.record(r.secondary.Name(), err)
	return quote, err
}

func (r *Router) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Router) record(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.metrics.RecordFetch(provider, outcome)
}
