package middleware

// identity.go holds the caller lookup shared by the rate limiter, the request
// logger and the handlers.  JWTAuth stores the token subject under
// "user_id"; anything else (including an unauthenticated request) is "anon".

import (
    "github.com/labstack/echo/v4"
)

// CallerID returns the authenticated caller's username and true, or "anon"
// and false when the request carries no verified identity.
func CallerID(c echo.Context) (string, bool) {
    if v, ok := c.Get("user_id").(string); ok && v != "" {
        return v, true
    }
    return "anon", false
}
