package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func secureHeadersResponse(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Use(SecureHeaders())
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSecureHeaders_AllHeadersPresent(t *testing.T) {
	rec := secureHeadersResponse(t, "/test")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
}

func TestSecureHeaders_ContentSecurityPolicy(t *testing.T) {
	rec := secureHeadersResponse(t, "/test")

	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "default-src 'none'")
	assert.Contains(t, csp, "frame-ancestors 'none'")
}

func TestSecureHeaders_HSTSNotOnHTTP(t *testing.T) {
	rec := secureHeadersResponse(t, "http://localhost/test")

	// HSTS should NOT be set on plain HTTP
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}
