package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/welldanyogia/webrana-replypilot/internal/logger"
	"golang.org/x/time/rate"
)

func limitedServer(rps float64, burst int, secLogger *logger.SecurityLogger) *echo.Echo {
	e := echo.New()
	e.Use(rateLimit(NewIPRateLimiter(rate.Limit(rps), burst), secLogger))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})
	return e
}

func hit(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Real-IP", ip)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_WithinLimit(t *testing.T) {
	e := limitedServer(10, 20, nil)

	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1").Code)
}

func TestRateLimiter_ExceedsLimit(t *testing.T) {
	var buf bytes.Buffer
	e := limitedServer(1, 1, logger.NewSecurityLoggerWithHandler(slog.NewJSONHandler(&buf, nil)))

	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1").Code)

	rec := hit(e, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, buf.String(), "rate_limit_exceeded")
}

func TestRateLimiter_PerIPIsolation(t *testing.T) {
	e := limitedServer(1, 1, nil)

	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(e, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(e, "10.0.0.2").Code)
}

func TestRateLimiter_BurstAllowed(t *testing.T) {
	e := limitedServer(1, 5, nil)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(e, "10.0.0.1").Code, "request %d should pass", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(e, "10.0.0.1").Code)
}

func TestIPRateLimiter_GetLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(10, 20)

	l1 := limiter.GetLimiter("192.168.1.1")
	assert.NotNil(t, l1)
	assert.Same(t, l1, limiter.GetLimiter("192.168.1.1"))
	assert.NotSame(t, l1, limiter.GetLimiter("192.168.1.2"))
}

func TestIPRateLimiter_CleanupEvictsIdleEntriesOnly(t *testing.T) {
	limiter := NewIPRateLimiter(10, 20)
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.GetLimiter("192.168.1.1")
	now = now.Add(15 * time.Minute)
	limiter.GetLimiter("192.168.1.2")

	removed := limiter.CleanupOldEntries(10 * time.Minute)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, limiter.Len())
}
