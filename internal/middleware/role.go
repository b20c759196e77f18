package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireRole returns a middleware function that enforces that the
// authenticated caller holds at least one of the specified roles.  It
// assumes JWTAuth has already stored the caller's roles under "roles".
// A caller without any allowed role is answered with 403 Forbidden.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            granted, _ := c.Get("roles").([]string)
            for _, r := range granted {
                if allowed[r] {
                    return next(c)
                }
            }
            return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
        }
    }
}
