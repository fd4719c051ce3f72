package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/webrana-replypilot/internal/api/response"
	"github.com/welldanyogia/webrana-replypilot/internal/mocks"
	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
)

// MessageHandlerTestSuite is the test suite for MessageHandler
type MessageHandlerTestSuite struct {
	suite.Suite
	echo             *echo.Echo
	handler          *MessageHandler
	mockMessageRepo  *mocks.MockMessageRepository
	mockReplyLogRepo *mocks.MockReplyLogRepository
}

func (s *MessageHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.mockMessageRepo = new(mocks.MockMessageRepository)
	s.mockReplyLogRepo = new(mocks.MockReplyLogRepository)
	s.handler = NewMessageHandler(s.mockMessageRepo, s.mockReplyLogRepo)
}

func (s *MessageHandlerTestSuite) TearDownTest() {
	s.mockMessageRepo.AssertExpectations(s.T())
	s.mockReplyLogRepo.AssertExpectations(s.T())
}

func TestMessageHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(MessageHandlerTestSuite))
}

func (s *MessageHandlerTestSuite) createContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return s.echo.NewContext(req, rec), rec
}

func (s *MessageHandlerTestSuite) testMessage(providerID string) models.Message {
	return models.Message{
		ProviderID:  providerID,
		ThreadID:    "t-1",
		SenderEmail: "dana@cust.com",
		ToAddrs:     "jake@co.com",
		Subject:     "Pricing",
		Location:    models.LocationInbox,
		SentAt:      time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
	}
}

func (s *MessageHandlerTestSuite) TestGetThread_Success() {
	c, rec := s.createContext(http.MethodGet, "/api/threads/t-1", "")
	c.SetParamNames("id")
	c.SetParamValues("t-1")

	s.mockMessageRepo.On("ListByThread", mock.Anything, "t-1").
		Return([]models.Message{s.testMessage("<m1@cust.com>")}, nil)
	s.mockReplyLogRepo.On("ListByThread", mock.Anything, "t-1").
		Return([]models.ReplyLog{{ThreadID: "t-1", Status: models.ReplyStatusSent}}, nil)

	s.NoError(s.handler.GetThread(c))
	s.Equal(http.StatusOK, rec.Code)

	var resp struct {
		Success bool           `json:"success"`
		Data    ThreadResponse `json:"data"`
	}
	s.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Success)
	s.Equal("t-1", resp.Data.ThreadID)
	s.Len(resp.Data.Messages, 1)
	s.Len(resp.Data.Replies, 1)
}

func (s *MessageHandlerTestSuite) TestGetThread_NotFound() {
	c, rec := s.createContext(http.MethodGet, "/api/threads/nope", "")
	c.SetParamNames("id")
	c.SetParamValues("nope")

	s.mockMessageRepo.On("ListByThread", mock.Anything, "nope").Return([]models.Message{}, nil)
	s.mockReplyLogRepo.On("ListByThread", mock.Anything, "nope").Return([]models.ReplyLog{}, nil)

	s.NoError(s.handler.GetThread(c))
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *MessageHandlerTestSuite) TestGetThread_RepositoryError() {
	c, rec := s.createContext(http.MethodGet, "/api/threads/t-1", "")
	c.SetParamNames("id")
	c.SetParamValues("t-1")

	s.mockMessageRepo.On("ListByThread", mock.Anything, "t-1").Return(nil, errors.New("database error"))

	s.NoError(s.handler.GetThread(c))
	s.Equal(http.StatusInternalServerError, rec.Code)
}

func (s *MessageHandlerTestSuite) TestListReplies_DefaultLimit() {
	c, rec := s.createContext(http.MethodGet, "/api/replies", "")

	s.mockReplyLogRepo.On("ListRecent", mock.Anything, 20).Return([]models.ReplyLog{}, nil)

	s.NoError(s.handler.ListReplies(c))
	s.Equal(http.StatusOK, rec.Code)
}

func (s *MessageHandlerTestSuite) TestListReplies_CapsLimit() {
	c, rec := s.createContext(http.MethodGet, "/api/replies?limit=5000", "")

	s.mockReplyLogRepo.On("ListRecent", mock.Anything, 100).Return([]models.ReplyLog{}, nil)

	s.NoError(s.handler.ListReplies(c))
	s.Equal(http.StatusOK, rec.Code)
}

func (s *MessageHandlerTestSuite) TestDelete_Success() {
	c, rec := s.createContext(http.MethodDelete, "/api/messages/m1", "")
	c.SetParamNames("provider_id")
	c.SetParamValues("m1")

	s.mockMessageRepo.On("Delete", mock.Anything, "m1").Return(nil)

	s.NoError(s.handler.Delete(c))
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *MessageHandlerTestSuite) TestDelete_NotFound() {
	c, rec := s.createContext(http.MethodDelete, "/api/messages/m9", "")
	c.SetParamNames("provider_id")
	c.SetParamValues("m9")

	s.mockMessageRepo.On("Delete", mock.Anything, "m9").Return(repository.ErrNotFound)

	s.NoError(s.handler.Delete(c))
	s.Equal(http.StatusNotFound, rec.Code)

	var resp response.ErrorResponse
	s.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.False(resp.Success)
}
