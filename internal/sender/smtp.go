package sender

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// TLSMode selects how the SMTP sender secures the relay connection.
type TLSMode string

const (
	// TLSAuto upgrades with STARTTLS when the relay offers it.
	TLSAuto     TLSMode = "auto"
	TLSStartTLS TLSMode = "starttls"
	TLSImplicit TLSMode = "tls"
	TLSNone     TLSMode = "none"
)

// ParseTLSMode accepts auto, starttls, tls and none. Empty means auto.
func ParseTLSMode(s string) (TLSMode, error) {
	switch m := TLSMode(s); m {
	case "":
		return TLSAuto, nil
	case TLSAuto, TLSStartTLS, TLSImplicit, TLSNone:
		return m, nil
	default:
		return "", fmt.Errorf("unknown SMTP TLS mode %q", s)
	}
}

const dialTimeout = 30 * time.Second

type SMTPConfig struct {
	Addr     string
	Username string
	Password string
	TLS      TLSMode
	// TLSConfig overrides the client TLS settings; ServerName defaults to
	// the relay host.
	TLSConfig *tls.Config
}

// SMTPSender relays mail through an SMTP server.
type SMTPSender struct {
	cfg SMTPConfig
	now func() time.Time
}

// NewSMTPSender creates a sender for the relay. Authentication uses PLAIN
// when Username is set.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.TLS == "" {
		cfg.TLS = TLSAuto
	}
	return &SMTPSender{cfg: cfg, now: time.Now}
}

// Send builds the MIME message and relays it to To and CC. Cancelling ctx
// aborts the dial and closes a connection in use.
func (s *SMTPSender) Send(ctx context.Context, out Outgoing) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{Status: StatusFailed}, err
	}
	if out.MessageID == "" {
		out.MessageID = NewMessageID(out.From)
	}

	raw, err := BuildMIME(out, s.now())
	if err != nil {
		return Result{Status: StatusFailed}, err
	}

	_, from := splitAddress("", out.From)
	if err := s.relay(ctx, from, out.Recipients(), raw); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{Status: StatusFailed}, sendFailed("smtp", ctxErr)
		}
		return Result{Status: StatusFailed}, sendFailed("smtp", err)
	}

	return Result{MessageID: out.MessageID, ProviderID: out.MessageID, Status: StatusSent}, nil
}

func (s *SMTPSender) relay(ctx context.Context, from string, to []string, raw []byte) error {
	c, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if s.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("relay does not offer AUTH")
		}
		if err := c.Auth(sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)); err != nil {
			return err
		}
	}
	if err := c.SendMail(from, to, bytes.NewReader(raw)); err != nil {
		return err
	}
	return c.Quit()
}

// connect returns a client secured according to the TLS mode.
func (s *SMTPSender) connect(ctx context.Context) (*smtp.Client, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}

	switch s.cfg.TLS {
	case TLSNone, TLSImplicit:
		return smtp.NewClient(conn), nil
	case TLSStartTLS:
		return smtp.NewClientStartTLS(conn, s.tlsConfig())
	}

	// Auto: the capability list is only known after EHLO, and go-smtp cannot
	// upgrade an existing client, so a relay offering STARTTLS is redialled.
	c := smtp.NewClient(conn)
	if ok, _ := c.Extension("STARTTLS"); !ok {
		return c, nil
	}
	_ = c.Quit()
	if conn, err = s.dial(ctx); err != nil {
		return nil, err
	}
	return smtp.NewClientStartTLS(conn, s.tlsConfig())
}

// dial connects to the relay. The returned connection is closed when ctx
// is done, which unblocks any SMTP exchange in progress.
func (s *SMTPSender) dial(ctx context.Context) (net.Conn, error) {
	d := &net.Dialer{Timeout: dialTimeout}
	var conn net.Conn
	var err error
	if s.cfg.TLS == TLSImplicit {
		conn, err = (&tls.Dialer{NetDialer: d, Config: s.tlsConfig()}).DialContext(ctx, "tcp", s.cfg.Addr)
	} else {
		conn, err = d.DialContext(ctx, "tcp", s.cfg.Addr)
	}
	if err != nil {
		return nil, err
	}
	return &ctxConn{Conn: conn, stop: context.AfterFunc(ctx, func() { conn.Close() })}, nil
}

type ctxConn struct {
	net.Conn
	stop func() bool
}

func (c *ctxConn) Close() error {
	c.stop()
	return c.Conn.Close()
}

func (s *SMTPSender) tlsConfig() *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if s.cfg.TLSConfig != nil {
		cfg = s.cfg.TLSConfig.Clone()
	}
	if cfg.ServerName == "" {
		if host, _, err := net.SplitHostPort(s.cfg.Addr); err == nil {
			cfg.ServerName = host
		}
	}
	return cfg
}
