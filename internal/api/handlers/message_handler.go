package handlers

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-replypilot/internal/api/response"
	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
	"github.com/welldanyogia/webrana-replypilot/internal/validator"
)

// MessageHandler serves ingested thread messages and the reply log
type MessageHandler struct {
	messageRepo  repository.MessageRepository
	replyLogRepo repository.ReplyLogRepository
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageRepo repository.MessageRepository, replyLogRepo repository.ReplyLogRepository) *MessageHandler {
	return &MessageHandler{
		messageRepo:  messageRepo,
		replyLogRepo: replyLogRepo,
	}
}

// ThreadResponse is a stored thread with its automated reply history
type ThreadResponse struct {
	ThreadID string            `json:"thread_id"`
	Messages []models.Message  `json:"messages"`
	Replies  []models.ReplyLog `json:"replies"`
}

// GetThread handles GET /api/threads/:id
func (h *MessageHandler) GetThread(c echo.Context) error {
	threadID, err := url.PathUnescape(c.Param("id"))
	if err != nil || threadID == "" {
		return response.BadRequest(c, "thread ID is required")
	}

	ctx := c.Request().Context()
	messages, err := h.messageRepo.ListByThread(ctx, threadID)
	if err != nil {
		return response.InternalError(c, "failed to list thread messages")
	}
	replies, err := h.replyLogRepo.ListByThread(ctx, threadID)
	if err != nil {
		return response.InternalError(c, "failed to list replies")
	}

	if len(messages) == 0 && len(replies) == 0 {
		return response.NotFound(c, "thread not found")
	}

	return response.Success(c, ThreadResponse{
		ThreadID: threadID,
		Messages: messages,
		Replies:  replies,
	})
}

// ListReplies handles GET /api/replies
func (h *MessageHandler) ListReplies(c echo.Context) error {
	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}
	limit, _ = validator.ValidatePagination(limit, 0)

	replies, err := h.replyLogRepo.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return response.InternalError(c, "failed to list replies")
	}

	return response.Success(c, replies)
}

// Delete handles DELETE /api/messages/:provider_id
func (h *MessageHandler) Delete(c echo.Context) error {
	providerID, err := url.PathUnescape(c.Param("provider_id"))
	if err != nil || providerID == "" {
		return response.BadRequest(c, "message ID is required")
	}

	if err := h.messageRepo.Delete(c.Request().Context(), providerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "message not found")
		}
		return response.InternalError(c, "failed to delete message")
	}

	return response.NoContent(c)
}
