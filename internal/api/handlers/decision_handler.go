package handlers

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-replypilot/internal/api/response"
	"github.com/welldanyogia/webrana-replypilot/internal/campaign"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
	"github.com/welldanyogia/webrana-replypilot/internal/validator"
)

// DecisionHandler evaluates posted threads without sending anything
type DecisionHandler struct {
	participantRepo repository.ParticipantRepository
	operator        string
	cooldown        time.Duration
	now             func() time.Time
}

// NewDecisionHandler creates a new DecisionHandler
func NewDecisionHandler(participantRepo repository.ParticipantRepository, operator string, cooldown time.Duration) *DecisionHandler {
	return &DecisionHandler{
		participantRepo: participantRepo,
		operator:        operator,
		cooldown:        cooldown,
		now:             time.Now,
	}
}

// DecisionRequest is the body of POST /api/decisions. The watched set is
// either listed inline or loaded from the active participants of Campaign.
type DecisionRequest struct {
	Thread   decider.Thread               `json:"thread"`
	Watched  []decider.WatchedParticipant `json:"watched,omitempty"`
	Campaign string                       `json:"campaign,omitempty"`
	Cooldown string                       `json:"cooldown,omitempty"`
	Now      *time.Time                   `json:"now,omitempty"`
}

// Decide handles POST /api/decisions
func (h *DecisionHandler) Decide(c echo.Context) error {
	var req DecisionRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if err := decider.ValidateOperator(h.operator); err != nil {
		return response.Error(c, err)
	}

	cooldown := h.cooldown
	if req.Cooldown != "" {
		d, err := time.ParseDuration(req.Cooldown)
		if err != nil || d < 0 {
			return response.BadRequest(c, "cooldown must be a non-negative duration")
		}
		cooldown = d
	}

	watched := make([]decider.WatchedParticipant, 0, len(req.Watched))
	for _, w := range req.Watched {
		w.EmailNormalized = decider.NormalizeAddress(w.EmailNormalized)
		watched = append(watched, w)
	}
	if req.Campaign != "" {
		if err := validator.ValidateCampaign(req.Campaign); err != nil {
			return response.BadRequest(c, "invalid campaign name")
		}
		participants, err := h.participantRepo.ListActive(c.Request().Context(), req.Campaign)
		if err != nil {
			return response.InternalError(c, "failed to load participants")
		}
		fromCampaign, _ := campaign.WatchList(participants)
		watched = append(watched, fromCampaign...)
	}

	now := h.now()
	if req.Now != nil {
		now = *req.Now
	}

	decision := decider.Decide(normalizeThread(req.Thread), h.operator, watched, cooldown, now)
	return response.Success(c, decision)
}

// normalizeThread accepts display-form addresses ("Dana <dana@x.com>") in posted messages
func normalizeThread(thread decider.Thread) decider.Thread {
	messages := make([]decider.Message, len(thread.Messages))
	for i, m := range thread.Messages {
		m.From = decider.NormalizeAddress(m.From)
		m.To = decider.NormalizeAll(m.To)
		m.CC = decider.NormalizeAll(m.CC)
		if m.ThreadID == "" {
			m.ThreadID = thread.ID
		}
		if m.Location == "" {
			m.Location = decider.LocationOther
		}
		messages[i] = m
	}
	return decider.Thread{ID: thread.ID, Messages: messages}
}
