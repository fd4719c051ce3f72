package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/welldanyogia/webrana-replypilot/internal/api"
	"github.com/welldanyogia/webrana-replypilot/internal/campaign"
	"github.com/welldanyogia/webrana-replypilot/internal/composer"
	"github.com/welldanyogia/webrana-replypilot/internal/config"
	"github.com/welldanyogia/webrana-replypilot/internal/database"
	"github.com/welldanyogia/webrana-replypilot/internal/gmailclient"
	"github.com/welldanyogia/webrana-replypilot/internal/logger"
	"github.com/welldanyogia/webrana-replypilot/internal/mailbox"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
	"github.com/welldanyogia/webrana-replypilot/internal/sender"
	"github.com/welldanyogia/webrana-replypilot/internal/smtp"
	"github.com/welldanyogia/webrana-replypilot/internal/storage"
	"github.com/welldanyogia/webrana-replypilot/internal/websocket"
	"google.golang.org/api/gmail/v1"
)

func main() {
	envFile := flag.String("env", ".env", "path to an optional .env file")
	gmailAuth := flag.Bool("gmail-auth", false, "run the Gmail OAuth flow, save the token and exit")
	rollback := flag.Bool("rollback", false, "roll back the newest database migration and exit")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.LoadWithValidation()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	if *gmailAuth {
		if err := gmailclient.Authorize(context.Background(), cfg.GmailCredentialsFile, cfg.GmailTokenFile, os.Stdin, os.Stdout); err != nil {
			log.Error("Gmail authorization failed", slog.Any("error", err))
			os.Exit(1)
		}
		log.Info("Gmail token saved", slog.String("path", cfg.GmailTokenFile))
		return
	}

	if err := run(cfg, log, *rollback); err != nil {
		log.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger, rollback bool) error {
	log.Info("Starting ReplyPilot server...",
		slog.String("env", cfg.AppEnv),
		slog.String("gateway", cfg.Gateway),
		slog.String("sender", cfg.Sender))

	secLogger := logger.NewSecurityLogger()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if rollback {
		return database.RollbackLast(db)
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	messageRepo := repository.NewMessageRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	replyLogRepo := repository.NewReplyLogRepository(db)
	trackingRepo := repository.NewTrackingRepository(db)

	hub := websocket.NewHub(log)
	go hub.Run()

	ctx := context.Background()

	var gmailSrv *gmail.Service
	if cfg.Gateway == config.GatewayGmail || cfg.Sender == config.SenderGmail {
		if gmailSrv, err = gmailclient.NewService(ctx, cfg.GmailCredentialsFile, cfg.GmailTokenFile); err != nil {
			return err
		}
	}

	gateway := newGateway(cfg, messageRepo, gmailSrv, log)
	mailSender, err := newSender(cfg, messageRepo, trackingRepo, gmailSrv, log)
	if err != nil {
		return err
	}

	var gen composer.Generator = composer.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set - replies and outreach use a fixed template")
		gen = composer.StaticGenerator{Text: "Thanks for your message. I'll get back to you shortly."}
	}
	comp := composer.New(gen, cfg.OperatorName, log)

	replies := campaign.NewReplyService(campaign.ReplyDeps{
		Gateway:      gateway,
		Participants: participantRepo,
		ReplyLog:     replyLogRepo,
		Composer:     comp,
		Sender:       mailSender,
		Notifier:     hub,
		Logger:       log,
	}, campaign.ReplyConfig{
		OperatorAddress: cfg.OperatorAddress,
		OperatorName:    cfg.OperatorName,
		Campaign:        cfg.ReplyCampaign,
		WatchCampaign:   cfg.WatchCampaign,
		Cooldown:        cfg.ReplyCooldown,
		Lookback:        cfg.ReplyLookback,
	})
	outreach := campaign.NewOutreachService(campaign.OutreachDeps{
		Participants: participantRepo,
		Composer:     comp,
		Sender:       mailSender,
		Notifier:     hub,
		Logger:       log,
	}, cfg.OperatorAddress, cfg.OperatorName)

	var origins []string
	if cfg.AllowedOrigins != "" {
		origins = websocket.ParseOrigins(cfg.AllowedOrigins)
	}

	routerCfg := &api.RouterConfig{
		DB:                db,
		Messages:          messageRepo,
		Participants:      participantRepo,
		ReplyLog:          replyLogRepo,
		Tracking:          trackingRepo,
		Replies:           replies,
		Outreach:          outreach,
		Hub:               hub,
		OperatorAddress:   cfg.OperatorAddress,
		ReplyCooldown:     cfg.ReplyCooldown,
		InstantOpenWindow: cfg.InstantOpenWindow,
		Logger:            log,
		SecurityLogger:    secLogger,
		APIKey:            cfg.APIKey,
		AllowedOrigins:    origins,
		AppEnv:            cfg.AppEnv,
		RateLimit:         cfg.RateLimitRequests,
		RateBurst:         cfg.RateLimitBurst,
	}

	var poller *campaign.Poller
	if cfg.ReplyPollInterval > 0 {
		poller = campaign.NewPoller(replies, campaign.PollerConfig{Interval: cfg.ReplyPollInterval}, log)
		poller.Start()
		defer poller.Stop()
		routerCfg.Poller = poller
	}

	e := api.NewRouter(routerCfg)
	errCh := make(chan error, 2)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		log.Info("HTTP API listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if cfg.SMTPIngestEnabled {
		backend, err := smtp.NewBackend(&smtp.BackendConfig{
			MessageRepo:     messageRepo,
			Notifier:        hub,
			OperatorAddress: cfg.OperatorAddress,
			Logger:          log,
			SecurityLogger:  secLogger,
		})
		if err != nil {
			return err
		}
		tlsConfig, err := smtp.LoadTLSConfig(cfg.SMTPTLSCert, cfg.SMTPTLSKey)
		if err != nil {
			return err
		}
		smtpServer := smtp.NewSecureServer(backend, &smtp.ServerConfig{
			Addr:          fmt.Sprintf(":%d", cfg.SMTPPort),
			Domain:        cfg.SMTPDomain,
			AllowInsecure: cfg.AppEnv != "production",
			TLSConfig:     tlsConfig,
		})
		defer smtpServer.Close()

		go func() {
			log.Info("SMTP ingest listening", slog.String("addr", smtpServer.Addr), slog.Bool("tls", tlsConfig != nil))
			if err := smtpServer.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("smtp server: %w", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", slog.Any("error", err))
	}

	log.Info("Server stopped")
	return nil
}

func newGateway(cfg *config.Config, messages repository.MessageRepository, gmailSrv *gmail.Service, log *slog.Logger) mailbox.Gateway {
	var gw mailbox.Gateway
	switch cfg.Gateway {
	case config.GatewayGmail:
		gw = mailbox.NewGmailGateway(gmailSrv, log)
	case config.GatewayMbox:
		gw = mailbox.NewMboxGateway(cfg.MboxPath, log)
	default:
		gw = mailbox.NewStoreGateway(messages)
	}
	return mailbox.NewLimited(gw, cfg.GatewayRatePerSecond)
}

func newSender(cfg *config.Config, messages repository.MessageRepository, tracking repository.TrackingRepository, gmailSrv *gmail.Service, log *slog.Logger) (sender.Sender, error) {
	var next sender.Sender
	switch cfg.Sender {
	case config.SenderGmail:
		next = sender.NewGmailSender(gmailSrv)
	case config.SenderSendGrid:
		next = sender.NewSendGridSender(cfg.SendGridAPIKey, "")
	default:
		mode, err := sender.ParseTLSMode(cfg.SMTPRelayTLS)
		if err != nil {
			return nil, err
		}
		next = sender.NewSMTPSender(sender.SMTPConfig{
			Addr:     cfg.SMTPRelayAddr,
			Username: cfg.SMTPRelayUsername,
			Password: cfg.SMTPRelayPassword,
			TLS:      mode,
		})
	}

	archive, err := storage.NewLocalArchive(cfg.ArchivePath)
	if err != nil {
		return nil, err
	}

	return sender.NewTracked(sender.TrackedConfig{
		Next:            next,
		Tracking:        tracking,
		Messages:        messages,
		Archive:         archive,
		TrackingBaseURL: cfg.TrackingBaseURL,
		Logger:          log,
	}), nil
}
