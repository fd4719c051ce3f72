package handlers

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-replypilot/internal/api/response"
	"github.com/welldanyogia/webrana-replypilot/internal/campaign"
	"github.com/welldanyogia/webrana-replypilot/internal/validator"
)

// CampaignHandler triggers reply and outreach batches on demand
type CampaignHandler struct {
	replies  campaign.ReplyService
	outreach campaign.OutreachService
	logger   *slog.Logger
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(replies campaign.ReplyService, outreach campaign.OutreachService, logger *slog.Logger) *CampaignHandler {
	return &CampaignHandler{
		replies:  replies,
		outreach: outreach,
		logger:   logger,
	}
}

// OutreachRequest is the body of POST /api/outreach/run
type OutreachRequest struct {
	Campaign string `json:"campaign"`
}

// RunSummary counts batch results by status
type RunSummary struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// RunReplies handles POST /api/replies/run
func (h *CampaignHandler) RunReplies(c echo.Context) error {
	results, err := h.replies.Run(c.Request().Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Error("reply batch failed", slog.Any("error", err))
		}
		return response.Error(c, err)
	}

	statuses := make([]string, len(results))
	for i, r := range results {
		statuses[i] = r.Status
	}

	return response.Success(c, map[string]interface{}{
		"summary": summarize(statuses),
		"results": results,
	})
}

// RunOutreach handles POST /api/outreach/run
func (h *CampaignHandler) RunOutreach(c echo.Context) error {
	var req OutreachRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if err := validator.ValidateCampaign(req.Campaign); err != nil {
		return response.BadRequest(c, "campaign is required")
	}

	results, err := h.outreach.Run(c.Request().Context(), req.Campaign)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("outreach batch failed",
				slog.String("campaign", req.Campaign),
				slog.Any("error", err))
		}
		return response.Error(c, err)
	}

	statuses := make([]string, len(results))
	for i, r := range results {
		statuses[i] = r.Status
	}

	summary := summarize(statuses)
	if summary.Total == 0 {
		return response.SuccessWithMessage(c, map[string]interface{}{
			"summary": summary,
			"results": results,
		}, "no active participants in campaign")
	}
	return response.Success(c, map[string]interface{}{
		"summary": summary,
		"results": results,
	})
}

func summarize(statuses []string) RunSummary {
	summary := RunSummary{Total: len(statuses), ByStatus: make(map[string]int)}
	for _, st := range statuses {
		summary.ByStatus[st]++
	}
	return summary
}
