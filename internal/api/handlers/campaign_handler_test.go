package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/webrana-replypilot/internal/campaign"
	apperrors "github.com/welldanyogia/webrana-replypilot/internal/errors"
	"github.com/welldanyogia/webrana-replypilot/internal/mocks"
)

type CampaignHandlerTestSuite struct {
	suite.Suite
	echo         *echo.Echo
	handler      *CampaignHandler
	mockReplies  *mocks.MockReplyService
	mockOutreach *mocks.MockOutreachService
}

func (s *CampaignHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.mockReplies = new(mocks.MockReplyService)
	s.mockOutreach = new(mocks.MockOutreachService)
	s.handler = NewCampaignHandler(s.mockReplies, s.mockOutreach, nil)
}

func (s *CampaignHandlerTestSuite) TearDownTest() {
	s.mockReplies.AssertExpectations(s.T())
	s.mockOutreach.AssertExpectations(s.T())
}

func TestCampaignHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(CampaignHandlerTestSuite))
}

func (s *CampaignHandlerTestSuite) createContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return s.echo.NewContext(req, rec), rec
}

type runResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Summary RunSummary        `json:"summary"`
		Results []json.RawMessage `json:"results"`
	} `json:"data"`
}

func (s *CampaignHandlerTestSuite) TestRunReplies_Summarizes() {
	c, rec := s.createContext(http.MethodPost, "/api/replies/run", "")

	s.mockReplies.On("Run", mock.Anything).Return([]campaign.ThreadResult{
		{ThreadID: "t-1", Status: campaign.ThreadReplied},
		{ThreadID: "t-2", Status: campaign.ThreadSkipped},
		{ThreadID: "t-3", Status: campaign.ThreadSkipped},
	}, nil)

	s.NoError(s.handler.RunReplies(c))
	s.Equal(http.StatusOK, rec.Code)

	var resp runResponse
	s.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Success)
	s.Equal(3, resp.Data.Summary.Total)
	s.Equal(1, resp.Data.Summary.ByStatus[campaign.ThreadReplied])
	s.Equal(2, resp.Data.Summary.ByStatus[campaign.ThreadSkipped])
	s.Len(resp.Data.Results, 3)
}

func (s *CampaignHandlerTestSuite) TestRunReplies_GatewayDown() {
	c, rec := s.createContext(http.MethodPost, "/api/replies/run", "")

	s.mockReplies.On("Run", mock.Anything).
		Return(nil, fmt.Errorf("failed to list inbox: %w", apperrors.ErrGatewayUnavailable))

	s.NoError(s.handler.RunReplies(c))
	s.Equal(http.StatusBadGateway, rec.Code)
	s.Contains(rec.Body.String(), apperrors.CodeGatewayUnavailable)
}

func (s *CampaignHandlerTestSuite) TestRunOutreach_Success() {
	c, rec := s.createContext(http.MethodPost, "/api/outreach/run", `{"campaign":"spring"}`)

	s.mockOutreach.On("Run", mock.Anything, "spring").Return([]campaign.OutreachResult{
		{Email: "dana@cust.com", Status: campaign.OutreachSent},
		{Email: "bad", Status: campaign.OutreachSkipped},
	}, nil)

	s.NoError(s.handler.RunOutreach(c))
	s.Equal(http.StatusOK, rec.Code)

	var resp runResponse
	s.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(2, resp.Data.Summary.Total)
	s.Equal(1, resp.Data.Summary.ByStatus[campaign.OutreachSent])
}

func (s *CampaignHandlerTestSuite) TestRunOutreach_EmptyCampaign() {
	c, rec := s.createContext(http.MethodPost, "/api/outreach/run", `{"campaign":"winter"}`)

	s.mockOutreach.On("Run", mock.Anything, "winter").Return([]campaign.OutreachResult{}, nil)

	s.NoError(s.handler.RunOutreach(c))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"message":"no active participants in campaign"`)
}

func (s *CampaignHandlerTestSuite) TestRunOutreach_CampaignRequired() {
	c, rec := s.createContext(http.MethodPost, "/api/outreach/run", `{}`)

	s.NoError(s.handler.RunOutreach(c))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.mockOutreach.AssertNotCalled(s.T(), "Run", mock.Anything, mock.Anything)
}

func (s *CampaignHandlerTestSuite) TestRunOutreach_ServiceError() {
	c, rec := s.createContext(http.MethodPost, "/api/outreach/run", `{"campaign":"spring"}`)

	s.mockOutreach.On("Run", mock.Anything, "spring").Return(nil, fmt.Errorf("boom"))

	s.NoError(s.handler.RunOutreach(c))
	s.Equal(http.StatusInternalServerError, rec.Code)
}
