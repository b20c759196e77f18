package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
)

// RequestLogger logs one DEBUG entry per request with the route template
// rather than the raw path, so offender numbers do not end up in the logs.
// Server errors are logged at WARN.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
    logger = logger.Named("http")
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let echo's error handler settle the status before we read it
                c.Error(err)
            }
            status := c.Response().Status
            caller, _ := CallerID(c)
            fields := []zap.Field{
                zap.String("method", c.Request().Method),
                zap.String("route", c.Path()),
                zap.Int("status", status),
                zap.Duration("duration", time.Since(start)),
                zap.String("caller", caller),
            }
            if status >= 500 {
                if err != nil {
                    fields = append(fields, zap.Error(err))
                }
                logger.Warn("request failed", fields...)
            } else {
                logger.Debug("request", fields...)
            }
            return nil
        }
    }
}
