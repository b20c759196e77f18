package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the caller's identity into the request context.  The provided
// secret must match the one used when issuing tokens.  Downstream code reads
// the caller via `c.Get("user_id")` (the sub claim as a string) and its
// granted roles via `c.Get("roles")` ([]string, merged from the "role" and
// "roles" claims).
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Parse the token, rejecting anything not signed with HMAC.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            // The subject is written into audit columns, so a token without
            // one cannot be used to write anything.
            sub, _ := claims["sub"].(string)
            if strings.TrimSpace(sub) == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token has no subject"})
            }

            c.Set("user_id", sub)
            c.Set("roles", rolesFromClaims(claims))
            return next(c)
        }
    }
}

// rolesFromClaims merges the single "role" claim and the "roles" array,
// dropping duplicates and keeping first-seen order.
func rolesFromClaims(claims jwt.MapClaims) []string {
    var roles []string
    seen := map[string]bool{}
    add := func(v interface{}) {
        if r, ok := v.(string); ok && r != "" && !seen[r] {
            seen[r] = true
            roles = append(roles, r)
        }
    }
    add(claims["role"])
    if arr, ok := claims["roles"].([]interface{}); ok {
        for _, v := range arr {
            add(v)
        }
    }
    return roles
}
