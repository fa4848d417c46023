package api

import (
	"github.com/labstack/echo/v4"

	xhttp "MarketPulse/pkg/http"
)

// Routes bundles every handler behind a single registration point so
// the HTTP server can mount them together.
type Routes struct {
	handlers []xhttp.Handler
}

func NewRoutes(handlers ...xhttp.Handler) *Routes {
	return &Routes{handlers: handlers}
}

func (r *Routes) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}
