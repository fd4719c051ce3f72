// Package api assembles the ReplyPilot HTTP API.
package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-replypilot/internal/api/handlers"
	"github.com/welldanyogia/webrana-replypilot/internal/api/middleware"
	"github.com/welldanyogia/webrana-replypilot/internal/campaign"
	"github.com/welldanyogia/webrana-replypilot/internal/logger"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
	"github.com/welldanyogia/webrana-replypilot/internal/websocket"
	"gorm.io/gorm"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB *gorm.DB

	Messages     repository.MessageRepository
	Participants repository.ParticipantRepository
	ReplyLog     repository.ReplyLogRepository
	Tracking     repository.TrackingRepository

	Replies  campaign.ReplyService
	Outreach campaign.OutreachService
	Poller   handlers.PollerStatus

	// Hub is optional; without it /ws is not served and events are dropped.
	Hub *websocket.Hub

	OperatorAddress   string
	ReplyCooldown     time.Duration
	InstantOpenWindow time.Duration

	Logger         *slog.Logger
	SecurityLogger *logger.SecurityLogger

	// Security configuration
	APIKey         string // empty disables authentication
	AllowedOrigins []string
	AppEnv         string
	RateLimit      float64 // requests per second per IP
	RateBurst      int
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Order matters: recover first, then headers, CORS, rate limit and logging
	e.Use(middleware.Recover())
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.AppEnv))

	rps, burst := cfg.RateLimit, cfg.RateBurst
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 20
	}
	e.Use(middleware.RateLimiter(rps, burst, cfg.SecurityLogger))

	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	var notifier campaign.Notifier
	if cfg.Hub != nil {
		notifier = cfg.Hub
	}

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Poller)
	decisionHandler := handlers.NewDecisionHandler(cfg.Participants, cfg.OperatorAddress, cfg.ReplyCooldown)
	campaignHandler := handlers.NewCampaignHandler(cfg.Replies, cfg.Outreach, cfg.Logger)
	participantHandler := handlers.NewParticipantHandler(cfg.Participants)
	messageHandler := handlers.NewMessageHandler(cfg.Messages, cfg.ReplyLog)
	trackingHandler := handlers.NewTrackingHandler(handlers.TrackingHandlerConfig{
		Repo:              cfg.Tracking,
		Notifier:          notifier,
		InstantOpenWindow: cfg.InstantOpenWindow,
		Logger:            cfg.Logger,
		SecurityLogger:    cfg.SecurityLogger,
	})

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	api := e.Group("/api")
	api.Use(middleware.APIKeyAuth(cfg.APIKey, cfg.SecurityLogger, cfg.Logger))

	api.POST("/decisions", decisionHandler.Decide)

	api.POST("/replies/run", campaignHandler.RunReplies)
	api.GET("/replies", messageHandler.ListReplies)
	api.POST("/outreach/run", campaignHandler.RunOutreach)

	participants := api.Group("/participants")
	participants.POST("", participantHandler.Create)
	participants.GET("", participantHandler.List)
	participants.GET("/:id", participantHandler.Get)
	participants.PUT("/:id", participantHandler.Update)
	participants.DELETE("/:id", participantHandler.Delete)

	api.GET("/threads/:id", messageHandler.GetThread)
	api.DELETE("/messages/:provider_id", messageHandler.Delete)

	tracking := api.Group("/tracking")
	tracking.GET("/stats", trackingHandler.Stats)
	tracking.GET("/campaigns", trackingHandler.Campaigns)
	tracking.GET("/emails/:tracking_id", trackingHandler.Email)
	tracking.POST("/events/open", trackingHandler.RecordOpen)

	// Browsers cannot send the API key on a websocket handshake; the
	// upgrader checks the origin instead.
	if cfg.Hub != nil {
		upgrader := websocket.NewSecureUpgrader(strings.Join(cfg.AllowedOrigins, ","), cfg.SecurityLogger)
		if cfg.AppEnv == "development" && len(cfg.AllowedOrigins) == 0 {
			upgrader = websocket.DefaultUpgrader()
		}
		wsHandler := handlers.NewWSHandler(cfg.Hub, upgrader, cfg.Logger)
		e.GET("/ws", wsHandler.Serve)
	}

	return e
}
