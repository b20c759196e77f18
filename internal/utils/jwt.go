package utils // package utils provides helper functions for token creation

import (
    "errors" // errors for argument validation
    "time"   // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Callers send it in the Authorization header
// when calling the profile details endpoints.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a caller.  subject is the
// caller's username and ends up in the audit columns of every record it
// writes.  roles become the "roles" array claim; the first role is also set
// as the single "role" claim for clients that only read that one.
func NewAccessToken(secret, subject string, roles []string, ttlMin int) (AccessToken, error) {
    if secret == "" {
        return AccessToken{}, errors.New("empty signing secret")
    }
    if subject == "" {
        return AccessToken{}, errors.New("empty subject")
    }
    now := time.Now().UTC()
    // Calculate the expiration time by adding the TTL to the current UTC time.
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":   subject,
        "roles": roles,
        "exp":   exp.Unix(),
        "iat":   now.Unix(),
    }
    if len(roles) > 0 {
        claims["role"] = roles[0]
    }
    // Sign with HS256.  If signing fails, return the error and a zero AccessToken.
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}
