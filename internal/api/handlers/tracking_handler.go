package handlers

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-replypilot/internal/api/response"
	"github.com/welldanyogia/webrana-replypilot/internal/campaign"
	"github.com/welldanyogia/webrana-replypilot/internal/logger"
	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
	"github.com/welldanyogia/webrana-replypilot/internal/validator"
	"github.com/welldanyogia/webrana-replypilot/internal/websocket"
)

// Stats window bounds, in days
const (
	defaultStatsDays = 7
	maxStatsDays     = 365
)

// maxOpenClockSkew bounds how far in the future a reported open may be
const maxOpenClockSkew = 5 * time.Minute

// TrackingHandler exposes open-tracking statistics and the open event sink
type TrackingHandler struct {
	repo          repository.TrackingRepository
	notifier      campaign.Notifier
	instantWindow time.Duration
	logger        *slog.Logger
	secLogger     *logger.SecurityLogger
	now           func() time.Time
}

// TrackingHandlerConfig holds the TrackingHandler collaborators. Notifier and
// SecurityLogger are optional.
type TrackingHandlerConfig struct {
	Repo              repository.TrackingRepository
	Notifier          campaign.Notifier
	InstantOpenWindow time.Duration
	Logger            *slog.Logger
	SecurityLogger    *logger.SecurityLogger
}

// NewTrackingHandler creates a new TrackingHandler
func NewTrackingHandler(cfg TrackingHandlerConfig) *TrackingHandler {
	return &TrackingHandler{
		repo:          cfg.Repo,
		notifier:      cfg.Notifier,
		instantWindow: cfg.InstantOpenWindow,
		logger:        cfg.Logger,
		secLogger:     cfg.SecurityLogger,
		now:           time.Now,
	}
}

// OpenEventRequest is an open reported by the external pixel collector
type OpenEventRequest struct {
	TrackingID string     `json:"tracking_id"`
	OpenedAt   *time.Time `json:"opened_at,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	IPAddress  string     `json:"ip_address,omitempty"`
	Referer    string     `json:"referer,omitempty"`
}

// OpenEventResponse reports whether an open event was counted
type OpenEventResponse struct {
	TrackingID string `json:"tracking_id"`
	Counted    bool   `json:"counted"`
}

// RecordOpen handles POST /api/tracking/events/open
func (h *TrackingHandler) RecordOpen(c echo.Context) error {
	var req OpenEventRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.TrackingID == "" {
		return response.BadRequest(c, "tracking_id is required")
	}

	open := &models.EmailOpen{
		TrackingID: req.TrackingID,
		OpenedAt:   h.now().UTC(),
		UserAgent:  validator.SanitizeString(req.UserAgent, 512),
		IPAddress:  validator.SanitizeString(req.IPAddress, 64),
		Referer:    validator.SanitizeString(req.Referer, 1024),
	}
	if req.OpenedAt != nil {
		if req.OpenedAt.Sub(open.OpenedAt) > maxOpenClockSkew {
			if h.secLogger != nil {
				h.secLogger.SuspiciousActivity(c.RealIP(), c.Path(), "future_dated_open")
			}
			return response.BadRequest(c, "opened_at is in the future")
		}
		open.OpenedAt = req.OpenedAt.UTC()
	}

	ctx := c.Request().Context()
	counted, err := h.repo.RecordOpen(ctx, open, h.instantWindow)
	if err != nil {
		if errors.Is(err, repository.ErrTrackingNotFound) {
			if h.secLogger != nil {
				h.secLogger.UnknownTrackingID(c.RealIP(), req.TrackingID)
			}
			return response.NotFound(c, "tracking id not found")
		}
		return response.InternalError(c, "failed to record open")
	}

	if counted {
		h.notifyOpen(c, open)
	}

	return response.Success(c, OpenEventResponse{TrackingID: req.TrackingID, Counted: counted})
}

func (h *TrackingHandler) notifyOpen(c echo.Context, open *models.EmailOpen) {
	if h.notifier == nil {
		return
	}
	email, err := h.repo.GetByTrackingID(c.Request().Context(), open.TrackingID)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("failed to load tracked email for open event",
				slog.String("tracking_id", open.TrackingID),
				slog.Any("error", err))
		}
		return
	}
	h.notifier.Broadcast(email.CampaignName, websocket.MessageTypeEmailOpened, &websocket.OpenPayload{
		TrackingID: email.TrackingID,
		Recipient:  email.RecipientEmail,
		Unique:     email.OpenCount == 1,
		OpenedAt:   open.OpenedAt,
	})
}

// StatsResponse is the result of GET /api/tracking/stats
type StatsResponse struct {
	Days     int    `json:"days"`
	Campaign string `json:"campaign,omitempty"`
	*models.TrackingStats
}

// Stats handles GET /api/tracking/stats?days=&campaign=
func (h *TrackingHandler) Stats(c echo.Context) error {
	days := defaultStatsDays
	if d := c.QueryParam("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed <= 0 || parsed > maxStatsDays {
			return response.BadRequest(c, "days must be between 1 and 365")
		}
		days = parsed
	}
	campaignName := c.QueryParam("campaign")

	since := h.now().UTC().AddDate(0, 0, -days)
	stats, err := h.repo.Stats(c.Request().Context(), since, campaignName)
	if err != nil {
		return response.InternalError(c, "failed to compute tracking stats")
	}

	return response.Success(c, StatsResponse{Days: days, Campaign: campaignName, TrackingStats: stats})
}

// Campaigns handles GET /api/tracking/campaigns
func (h *TrackingHandler) Campaigns(c echo.Context) error {
	campaigns, err := h.repo.ListCampaigns(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "failed to list campaigns")
	}
	return response.Success(c, campaigns)
}

// Email handles GET /api/tracking/emails/:tracking_id
func (h *TrackingHandler) Email(c echo.Context) error {
	trackingID := c.Param("tracking_id")
	if trackingID == "" {
		return response.BadRequest(c, "tracking id is required")
	}

	email, err := h.repo.GetByTrackingID(c.Request().Context(), trackingID)
	if err != nil {
		if errors.Is(err, repository.ErrTrackingNotFound) {
			return response.NotFound(c, "tracking id not found")
		}
		return response.InternalError(c, "failed to get tracked email")
	}

	return response.Success(c, email)
}
