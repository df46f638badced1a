package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/felipesantoos/read-it-later-backend/internal/observability"
)

// requestsPerSecond caps per-client request rates. Extraction previews
// can fan out into real fetches, so the limit is deliberately modest.
const requestsPerSecond = 20

// MetricsMiddleware records request metrics for the API. metrics may be
// nil, in which case the middleware is a pass-through.
func MetricsMiddleware(metrics *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if metrics == nil {
				return next(c)
			}
			start := time.Now()

			err := next(c)

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}

			status := c.Response().Status
			if status == 0 {
				if err != nil {
					status = http.StatusInternalServerError
				} else {
					status = http.StatusOK
				}
			}

			code := strconv.Itoa(status)
			durationSeconds := time.Since(start).Seconds()

			metrics.HTTPRequestTotal.WithLabelValues(route, code).Inc()
			metrics.HTTPRequestDurationSeconds.WithLabelValues(route, code).Observe(durationSeconds)

			if status < 200 || status >= 300 {
				metrics.HTTPRequestNon2xxTotal.WithLabelValues(route, code).Inc()
			}

			return err
		}
	}
}

// RateLimitMiddleware applies a per-client-IP token bucket.
func RateLimitMiddleware() echo.MiddlewareFunc {
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(requestsPerSecond)))
}
