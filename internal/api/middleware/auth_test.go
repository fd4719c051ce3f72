package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-replypilot/internal/logger"
)

const testAPIKey = "test-api-key"

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "success")
}

func serveAuth(t *testing.T, apiKey, path, authHeader string, secLogger *logger.SecurityLogger) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)

	err := APIKeyAuth(apiKey, secLogger, nil)(okHandler)(c)
	return rec, err
}

func requireUnauthorized(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAPIKeyAuth_MissingHeader(t *testing.T) {
	_, err := serveAuth(t, testAPIKey, "/api/participants", "", nil)
	requireUnauthorized(t, err)
}

func TestAPIKeyAuth_InvalidKey(t *testing.T) {
	_, err := serveAuth(t, testAPIKey, "/api/participants", "Bearer wrong-key", nil)
	requireUnauthorized(t, err)
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	rec, err := serveAuth(t, testAPIKey, "/api/participants", "Bearer "+testAPIKey, nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_HealthEndpointsSkipAuth(t *testing.T) {
	for _, path := range []string{"/health", "/ready"} {
		t.Run(path, func(t *testing.T) {
			rec, err := serveAuth(t, testAPIKey, path, "", nil)

			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestAPIKeyAuth_NoAPIKeyConfigured(t *testing.T) {
	rec, err := serveAuth(t, "", "/api/participants", "", nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyAuth_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	secLogger := logger.NewSecurityLoggerWithHandler(slog.NewJSONHandler(&buf, nil))

	_, err := serveAuth(t, testAPIKey, "/api/replies/run", "Bearer nope", secLogger)

	requireUnauthorized(t, err)
	assert.Contains(t, buf.String(), "auth_failure")
	assert.Contains(t, buf.String(), "/api/replies/run")
	assert.NotContains(t, buf.String(), "nope")
}

func TestAPIKeyAuth_WarnsWhenUnsecured(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	APIKeyAuth("", nil, log)

	assert.Contains(t, buf.String(), "UNSECURED")
}
