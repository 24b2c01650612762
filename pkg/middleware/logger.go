package middleware

import (
	"golang-backtest/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// NewRequestLoggerMiddleware logs one line per request and stores a request
// scoped logger, tagged with the request id, in the request context.
func NewRequestLoggerMiddleware(log *logger.Logger) echo.MiddlewareFunc {
	requestID := middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			ctx := logger.NewContext(req.Context(), log.With(logger.StringField("request_id", id)))
			c.SetRequest(req.WithContext(ctx))
		},
	})

	requestLogger := middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			if v.Error != nil {
				log.WarnContext(ctx, "HTTP request failed",
					logger.StringField("method", v.Method),
					logger.StringField("uri", v.URI),
					logger.IntField("status", v.Status),
					logger.Int64Field("latency_ms", v.Latency.Milliseconds()),
					logger.StringField("remote_ip", v.RemoteIP),
					logger.ErrorField(v.Error),
				)
				return nil
			}
			log.InfoContext(ctx, "HTTP request",
				logger.StringField("method", v.Method),
				logger.StringField("uri", v.URI),
				logger.IntField("status", v.Status),
				logger.Int64Field("latency_ms", v.Latency.Milliseconds()),
				logger.StringField("remote_ip", v.RemoteIP),
			)
			return nil
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return requestID(requestLogger(next))
	}
}
