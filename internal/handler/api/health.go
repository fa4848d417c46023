package api

import (
	"context"

	"github.com/labstack/echo/v4"

	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/scheduler"
	xhttp "MarketPulse/pkg/http"
)

// Pinger is anything that can report infrastructure connectivity.
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthHandler reports store/cache connectivity and scheduled job state.
type HealthHandler struct {
	store domrepo.CandleStore
	cache Pinger
	sched *scheduler.Scheduler
}

type healthReport struct {
	Status string                `json:"status"`
	Store  string                `json:"store"`
	Cache  string                `json:"cache"`
	Jobs   []scheduler.JobStatus `json:"jobs"`
}

func NewHealthHandler(store domrepo.CandleStore, cache Pinger, sched *scheduler.Scheduler) *HealthHandler {
	return &HealthHandler{store: store, cache: cache, sched: sched}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	report := healthReport{Status: "ok", Store: "ok", Cache: "ok", Jobs: h.sched.Jobs()}

	if err := h.store.Health(ctx); err != nil {
		report.Status = "degraded"
		report.Store = err.Error()
	}
	if err := h.cache.Health(ctx); err != nil {
		report.Status = "degraded"
		report.Cache = err.Error()
	}
	if report.Status != "ok" {
		return xhttp.ServiceUnavailableResponse(c, report)
	}
	return xhttp.SuccessResponse(c, report)
}
