package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "database/sql"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// HealthHandler reports liveness to load balancers and monitoring systems.
// When DB is set the legacy record store is pinged as well, because the
// service cannot answer anything useful without it.
type HealthHandler struct {
    DB *sql.DB
}

// Health returns plain text "ok" with 200, or 503 when the store is unreachable.
func (h *HealthHandler) Health(c echo.Context) error {
    if h.DB != nil {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := h.DB.PingContext(ctx); err != nil {
            return c.String(http.StatusServiceUnavailable, "database unavailable")
        }
    }
    return c.String(http.StatusOK, "ok")
}
