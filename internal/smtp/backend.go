// Package smtp is the inbound ingest: an SMTP server that accepts mail for
// the operator's mailbox and stores it as thread messages for the store
// gateway.
package smtp

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/welldanyogia/webrana-replypilot/internal/campaign"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	"github.com/welldanyogia/webrana-replypilot/internal/logger"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
)

const (
	DefaultMaxMessageSize = 25 << 20
	DefaultMaxRecipients  = 100
	DefaultReadTimeout    = 60 * time.Second
	DefaultWriteTimeout   = 60 * time.Second
	DefaultMaxLineLength  = 2000
	DefaultStoreTimeout   = 30 * time.Second
)

// Backend is the go-smtp backend for the ingest listener.
type Backend struct {
	messageRepo    repository.MessageRepository
	notifier       campaign.Notifier
	operator       string
	operatorDomain string
	logger         *slog.Logger
	secLogger      *logger.SecurityLogger
	storeTimeout   time.Duration
	now            func() time.Time
}

type BackendConfig struct {
	MessageRepo     repository.MessageRepository
	Notifier        campaign.Notifier
	OperatorAddress string
	Logger          *slog.Logger
	SecurityLogger  *logger.SecurityLogger
	// StoreTimeout bounds thread lookup and storage for one message.
	StoreTimeout time.Duration
}

// NewBackend creates a new SMTP backend. Mail is accepted for any address
// at the operator's domain.
func NewBackend(cfg *BackendConfig) (*Backend, error) {
	operator := decider.NormalizeAddress(cfg.OperatorAddress)
	domain := domainOf(operator)
	if domain == "" {
		return nil, fmt.Errorf("invalid operator address %q", cfg.OperatorAddress)
	}
	return &Backend{
		messageRepo:    cfg.MessageRepo,
		notifier:       cfg.Notifier,
		operator:       operator,
		operatorDomain: domain,
		logger:         cfg.Logger,
		secLogger:      cfg.SecurityLogger,
		storeTimeout:   orDefault(cfg.StoreTimeout, DefaultStoreTimeout),
		now:            time.Now,
	}, nil
}

func (b *Backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	remote := ""
	if conn := c.Conn(); conn != nil {
		remote = conn.RemoteAddr().String()
	}
	if b.logger != nil {
		b.logger.Info("new SMTP connection", slog.String("remote_addr", remote))
	}
	return NewSession(b, remote), nil
}

type ServerConfig struct {
	Addr           string
	Domain         string
	MaxMessageSize int64
	MaxRecipients  int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowInsecure  bool
	TLSConfig      *tls.Config
}

// NewSecureServer applies size, recipient, timeout and line limits to a
// go-smtp server. Zero values in cfg fall back to the defaults.
func NewSecureServer(backend *Backend, cfg *ServerConfig) *smtp.Server {
	s := smtp.NewServer(backend)
	s.Addr = cfg.Addr
	s.Domain = cfg.Domain
	s.MaxMessageBytes = orDefault(cfg.MaxMessageSize, DefaultMaxMessageSize)
	s.MaxRecipients = orDefault(cfg.MaxRecipients, DefaultMaxRecipients)
	s.ReadTimeout = orDefault(cfg.ReadTimeout, DefaultReadTimeout)
	s.WriteTimeout = orDefault(cfg.WriteTimeout, DefaultWriteTimeout)
	s.MaxLineLength = DefaultMaxLineLength
	s.AllowInsecureAuth = cfg.AllowInsecure
	s.TLSConfig = cfg.TLSConfig
	return s
}

func orDefault[T int | int64 | time.Duration](v, def T) T {
	if v > 0 {
		return v
	}
	return def
}

// LoadTLSConfig loads a certificate pair for STARTTLS. Empty paths mean no TLS.
func LoadTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	if certFile == "" || keyFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load SMTP TLS certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
