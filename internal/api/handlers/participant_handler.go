package handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-replypilot/internal/api/response"
	"github.com/welldanyogia/webrana-replypilot/internal/crm"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
	"github.com/welldanyogia/webrana-replypilot/internal/validator"
)

// ParticipantHandler handles campaign participant HTTP requests
type ParticipantHandler struct {
	repo repository.ParticipantRepository
}

// NewParticipantHandler creates a new ParticipantHandler
func NewParticipantHandler(repo repository.ParticipantRepository) *ParticipantHandler {
	return &ParticipantHandler{repo: repo}
}

// CreateParticipantRequest represents the request body for creating a participant
type CreateParticipantRequest struct {
	Email       string            `json:"email"`
	Campaign    string            `json:"campaign"`
	DisplayName string            `json:"display_name,omitempty"`
	Active      *bool             `json:"active,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Activities  string            `json:"activities,omitempty"`
}

// UpdateParticipantRequest represents the request body for updating a participant
type UpdateParticipantRequest struct {
	DisplayName *string           `json:"display_name,omitempty"`
	Active      *bool             `json:"active,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Activities  *string           `json:"activities,omitempty"`
}

// ParticipantDetail is a participant with its decoded CRM activities
type ParticipantDetail struct {
	models.Participant
	ParsedActivities []crm.Activity `json:"parsed_activities"`
}

// Create handles POST /api/participants
func (h *ParticipantHandler) Create(c echo.Context) error {
	var req CreateParticipantRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	email := decider.NormalizeAddress(req.Email)
	if err := validator.ValidateEmail(email); err != nil || !decider.IsWellFormed(email) {
		return response.BadRequest(c, "invalid email address")
	}
	if err := validator.ValidateCampaign(req.Campaign); err != nil {
		return response.BadRequest(c, "invalid campaign name")
	}
	if err := validator.ValidateMetadata(req.Metadata); err != nil {
		return response.BadRequest(c, "invalid metadata: "+err.Error())
	}

	participant := &models.Participant{
		Email:       email,
		Campaign:    req.Campaign,
		DisplayName: validator.SanitizeString(req.DisplayName, 255),
		Active:      true,
		Metadata:    req.Metadata,
	}
	if req.Active != nil {
		participant.Active = *req.Active
	}
	if err := applyActivities(participant, req.Activities); err != nil {
		return response.BadRequest(c, "invalid activities: "+err.Error())
	}

	if err := h.repo.Create(c.Request().Context(), participant); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return response.Conflict(c, "participant already exists in campaign")
		}
		return response.InternalError(c, "failed to create participant")
	}

	return response.Created(c, participant)
}

// List handles GET /api/participants
func (h *ParticipantHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset = validator.ValidatePagination(limit, offset)

	filter := repository.ParticipantFilter{
		Campaign:   c.QueryParam("campaign"),
		ActiveOnly: c.QueryParam("active_only") == "true",
		Limit:      limit,
		Offset:     offset,
	}

	participants, total, err := h.repo.List(c.Request().Context(), filter)
	if err != nil {
		return response.InternalError(c, "failed to list participants")
	}

	return response.Paginated(c, participants, total, limit, offset)
}

// Get handles GET /api/participants/:id
func (h *ParticipantHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid participant ID")
	}

	participant, err := h.repo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "participant not found")
		}
		return response.InternalError(c, "failed to get participant")
	}

	detail := ParticipantDetail{Participant: *participant, ParsedActivities: []crm.Activity{}}
	if participant.Activities != "" {
		// Stored activities were validated on write
		if activities, err := crm.Parse(participant.Activities); err == nil {
			detail.ParsedActivities = activities
		}
	}

	return response.Success(c, detail)
}

// Update handles PUT /api/participants/:id
func (h *ParticipantHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid participant ID")
	}

	var req UpdateParticipantRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	participant, err := h.repo.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "participant not found")
		}
		return response.InternalError(c, "failed to get participant")
	}

	if req.DisplayName != nil {
		participant.DisplayName = validator.SanitizeString(*req.DisplayName, 255)
	}
	if req.Active != nil {
		participant.Active = *req.Active
	}
	if req.Metadata != nil {
		if err := validator.ValidateMetadata(req.Metadata); err != nil {
			return response.BadRequest(c, "invalid metadata: "+err.Error())
		}
		participant.Metadata = req.Metadata
	}
	if req.Activities != nil {
		if err := applyActivities(participant, *req.Activities); err != nil {
			return response.BadRequest(c, "invalid activities: "+err.Error())
		}
	}

	if err := h.repo.Update(c.Request().Context(), participant); err != nil {
		return response.InternalError(c, "failed to update participant")
	}

	return response.Success(c, participant)
}

// Delete handles DELETE /api/participants/:id
func (h *ParticipantHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "invalid participant ID")
	}

	if err := h.repo.Delete(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "participant not found")
		}
		return response.InternalError(c, "failed to delete participant")
	}

	return response.NoContent(c)
}

// applyActivities stores the raw CRM activities and derives LastActivityAt
func applyActivities(p *models.Participant, raw string) error {
	p.Activities = raw
	p.LastActivityAt = nil
	if raw == "" {
		return nil
	}

	activities, err := crm.Parse(raw)
	if err != nil {
		return err
	}
	if latest := crm.Latest(activities); latest != nil {
		at := latest.Date
		p.LastActivityAt = &at
	}
	return nil
}
