package httpadapter

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/PabloGalante/hospital-erp-agent/internal/observability"
)

const headerRequestID = "X-Request-ID"

// withRequestID puts a request id in the request context so every log line
// of the request carries it.
func withRequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		id := req.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(headerRequestID, id)
		c.SetRequest(req.WithContext(observability.WithRequestID(req.Context(), id)))

		return next(c)
	}
}

// withLogging logs every request once it is done.
func withLogging(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			c.Error(err)
		}

		observability.LoggerFromContext(c.Request().Context()).Info("http request",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}
}
