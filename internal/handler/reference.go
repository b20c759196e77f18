package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/prisoner-profile-details/internal/model"
)

// CatalogueLister lists the profile type catalogue.
type CatalogueLister interface {
    ListProfileTypes(ctx context.Context) ([]model.ProfileType, error)
}

// ReferenceHandler serves the read-only profile type catalogue so callers
// can discover which types and codes a write will accept.
type ReferenceHandler struct {
    Catalogue CatalogueLister
    Logger    *zap.Logger
}

// ListProfileTypes returns every profile type with its codes under "items".
// Inactive entries are included and flagged so historical values can still
// be described.
func (h *ReferenceHandler) ListProfileTypes(c echo.Context) error {
    types, err := h.Catalogue.ListProfileTypes(c.Request().Context())
    if err != nil {
        h.Logger.Error("list profile types failed", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": types})
}
