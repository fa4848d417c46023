package middleware

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per request: method, path, status, and
// latency. Request errors surface in the status after echo's error
// handler has run, so logging happens on the way out.
func RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			log.Printf("%s %s -> %d (%s, %s)",
				req.Method,
				req.RequestURI,
				c.Response().Status,
				time.Since(start),
				req.RemoteAddr,
			)
			return err
		}
	}
}
