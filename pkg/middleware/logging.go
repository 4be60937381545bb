package middleware

import (
	"time"

	"golang-backtester/pkg/common"
	"golang-backtester/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger stores a request scoped logger in the request context and
// logs one line per request. It expects the request id middleware to run first.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := c.Response().Header().Get(common.HEADER_REQUEST_ID)
			reqLog := log.With(logger.StringField("request_id", requestID))
			c.SetRequest(req.WithContext(logger.NewContext(req.Context(), reqLog)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				logger.StringField("method", req.Method),
				logger.StringField("path", c.Path()),
				logger.IntField("status", c.Response().Status),
				logger.DurationField("latency", time.Since(start)),
				logger.StringField("remote_ip", c.RealIP()),
			}
			if err != nil {
				fields = append(fields, logger.ErrorField(err))
			}

			switch status := c.Response().Status; {
			case status >= 500:
				reqLog.Error("HTTP request", fields...)
			case status >= 400:
				reqLog.Warn("HTTP request", fields...)
			default:
				reqLog.Info("HTTP request", fields...)
			}
			return nil
		}
	}
}
