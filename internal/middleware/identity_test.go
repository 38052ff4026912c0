package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func runIdentity(t *testing.T, authHeader string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var subject string
	next := func(c echo.Context) error {
		subject = AuthSubject(c)
		return c.NoContent(http.StatusOK)
	}
	require.NoError(t, OptionalIdentity(testSecret)(next)(c))
	return rec, subject
}

func TestOptionalIdentityNoToken(t *testing.T) {
	rec, subject := runIdentity(t, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, subject, "absent token means anonymous, not rejected")
}

func TestOptionalIdentityValidToken(t *testing.T) {
	rec, subject := runIdentity(t, "Bearer "+signToken(t, testSecret, "user-42"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", subject)
}

func TestOptionalIdentityWrongSecret(t *testing.T) {
	rec, subject := runIdentity(t, "Bearer "+signToken(t, "other-secret", "user-42"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, subject)
}

func TestOptionalIdentityGarbageToken(t *testing.T) {
	rec, _ := runIdentity(t, "Bearer not.a.token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
