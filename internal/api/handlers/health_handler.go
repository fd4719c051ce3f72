package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const pingTimeout = 2 * time.Second

// PollerStatus reports whether the background reply poller is running.
type PollerStatus interface {
	IsRunning() bool
}

type HealthHandler struct {
	db     *gorm.DB
	poller PollerStatus
}

// NewHealthHandler builds the /health and /ready handlers. poller is nil when
// background polling is disabled.
func NewHealthHandler(db *gorm.DB, poller PollerStatus) *HealthHandler {
	return &HealthHandler{db: db, poller: poller}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// pingDB returns a short reason when the database is unreachable, "" otherwise.
func (h *HealthHandler) pingDB(ctx context.Context) string {
	sqlDB, err := h.db.DB()
	if err != nil {
		return "database connection failed"
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return "database ping failed"
	}
	return ""
}

func (h *HealthHandler) pollerState() string {
	switch {
	case h.poller == nil:
		return "disabled"
	case h.poller.IsRunning():
		return "running"
	default:
		return "stopped"
	}
}

// Health handles GET /health. Only the database decides the overall status;
// a stopped poller is reported without failing the check.
func (h *HealthHandler) Health(c echo.Context) error {
	resp := HealthResponse{
		Status: "healthy",
		Services: map[string]string{
			"database":     "healthy",
			"reply_poller": h.pollerState(),
		},
	}
	code := http.StatusOK
	if h.pingDB(c.Request().Context()) != "" {
		resp.Status = "unhealthy"
		resp.Services["database"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

// Ready handles GET /ready.
func (h *HealthHandler) Ready(c echo.Context) error {
	if reason := h.pingDB(c.Request().Context()); reason != "" {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": reason})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
