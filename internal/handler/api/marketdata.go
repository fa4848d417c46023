package api

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/usecase"
	xhttp "MarketPulse/pkg/http"
	xlogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/util"
)

// MarketDataHandler serves the read API over the cache-first usecases.
type MarketDataHandler struct {
	logger   *xlogger.Logger
	query    *usecase.QueryService
	quotes   *usecase.QuoteRefresher
	universe domrepo.UniverseView
}

func NewMarketDataHandler(logger *xlogger.Logger, query *usecase.QueryService, quotes *usecase.QuoteRefresher, universe domrepo.UniverseView) *MarketDataHandler {
	return &MarketDataHandler{logger: logger, query: query, quotes: quotes, universe: universe}
}

func (h *MarketDataHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/quote/:ticker", h.Quote)
	g.GET("/candles/:ticker", h.Candles)
	g.GET("/indicators/:ticker", h.Indicators)
	g.GET("/batch", h.Batch)
	g.GET("/universe", h.Universe)
}

func (h *MarketDataHandler) Quote(c echo.Context) error {
	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	quote, err := h.quotes.GetQuote(c.Request().Context(), normalizeTicker(req.Ticker))
	if err != nil {
		return h.errorResponse(c, "quote", err)
	}
	return xhttp.SuccessResponse(c, quote)
}

func (h *MarketDataHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ticker := normalizeTicker(req.Ticker)
	tf := domrepo.Timeframe(req.Timeframe)

	candles, err := h.query.GetCandles(c.Request().Context(), ticker, tf, req.Limit)
	if err != nil {
		return h.errorResponse(c, "candles", err)
	}
	return xhttp.SuccessResponse(c, &models.CandlesResponse{
		Ticker:    ticker,
		Timeframe: req.Timeframe,
		Count:     len(candles),
		Candles:   candles,
	})
}

func (h *MarketDataHandler) Indicators(c echo.Context) error {
	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ticker := normalizeTicker(req.Ticker)
	tf := domrepo.Timeframe(req.Timeframe)

	results, err := h.query.GetIndicators(c.Request().Context(), ticker, tf, util.SplitCSV(req.Indicators), req.PeriodOverrides())
	if err != nil {
		return h.errorResponse(c, "indicators", err)
	}
	return xhttp.SuccessResponse(c, results)
}

func (h *MarketDataHandler) Batch(c echo.Context) error {
	req := &models.BatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	tickers := util.SplitCSV(req.Tickers)
	if len(tickers) == 0 {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_REQUIRED",
			Field:   "tickers",
			Message: "tickers is required",
		}})
	}

	wantQuote, wantCandles := false, false
	for _, dt := range util.SplitCSV(req.DataTypes) {
		switch strings.ToLower(dt) {
		case "quote":
			wantQuote = true
		case "candles":
			wantCandles = true
		}
	}
	if !wantQuote && !wantCandles {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_ONEOF",
			Field:   "data_types",
			Message: "data_types must include quote or candles",
		}})
	}

	ctx := c.Request().Context()
	tf := domrepo.Timeframe(req.Timeframe)
	out := make([]models.BatchEntry, 0, len(tickers))
	for _, raw := range tickers {
		out = append(out, h.batchEntry(ctx, normalizeTicker(raw), tf, req.Limit, wantQuote, wantCandles))
	}
	return xhttp.SuccessResponse(c, out)
}

// batchEntry assembles one ticker's bundle; failures stay inside the
// entry so one bad ticker never fails the whole batch.
func (h *MarketDataHandler) batchEntry(ctx context.Context, ticker string, tf domrepo.Timeframe, limit int, wantQuote, wantCandles bool) models.BatchEntry {
	entry := models.BatchEntry{Ticker: ticker}

	if wantQuote {
		quote, err := h.quotes.GetQuote(ctx, ticker)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Quote = quote
		}
	}
	if wantCandles {
		candles, err := h.query.GetCandles(ctx, ticker, tf, limit)
		if err != nil {
			if entry.Error == "" {
				entry.Error = err.Error()
			}
		} else {
			entry.Candles = &models.CandlesResponse{
				Ticker:    ticker,
				Timeframe: string(tf),
				Count:     len(candles),
				Candles:   candles,
			}
		}
	}
	return entry
}

func (h *MarketDataHandler) Universe(c echo.Context) error {
	snap := h.universe.Snapshot()
	return xhttp.SuccessResponse(c, &models.UniverseResponse{
		Hot:   snap.Hot,
		Warm:  snap.Warm,
		Total: snap.Total(),
	})
}

func (h *MarketDataHandler) errorResponse(c echo.Context, op string, err error) error {
	var notFound *models.NotFoundError
	if errors.As(err, &notFound) {
		return xhttp.NotFoundResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_NOT_FOUND",
			Message: notFound.Error(),
		}})
	}

	var provider *models.ProviderError
	if errors.As(err, &provider) {
		h.logger.Warn("vendor error on read path",
			xlogger.String("op", op),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, xhttp.UpstreamError("vendor unavailable").WithError(err))
	}

	h.logger.Error("read path error",
		xlogger.String("op", op),
		xlogger.Error(err),
	)
	return xhttp.InternalServerErrorResponse(c)
}

func normalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
