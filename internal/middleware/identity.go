// Package middleware contains the HTTP middleware applied in front of the
// turn pipeline: optional identity resolution and rate limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ContextKeyAuthSubject is the echo context key under which the verified
// external identity is stored, when present.
const ContextKeyAuthSubject = "auth_subject"

// OptionalIdentity returns middleware that resolves the external identity
// provider's Bearer token when one is supplied.  The core never performs
// verification beyond the signature check: a valid token sets the subject
// in the request context, an absent token simply means the turn proceeds
// anonymously.  Only a token that is present but invalid is rejected, so a
// client cannot silently fall back to guest limits with a broken session.
func OptionalIdentity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return next(c)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

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
			if sub, ok := claims["sub"].(string); ok && sub != "" {
				c.Set(ContextKeyAuthSubject, sub)
			}
			return next(c)
		}
	}
}

// AuthSubject returns the verified external identity attached by
// OptionalIdentity, or "" for anonymous requests.
func AuthSubject(c echo.Context) string {
	if v := c.Get(ContextKeyAuthSubject); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
