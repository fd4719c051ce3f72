package logger

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// SecurityLogger writes security events as JSON lines, one per event, each
// carrying an event_type, the client address and a UTC timestamp.
// Credentials and message content are never passed in.
type SecurityLogger struct {
	logger *slog.Logger
}

// NewSecurityLogger logs to stdout.
func NewSecurityLogger() *SecurityLogger {
	return NewSecurityLoggerWithHandler(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func NewSecurityLoggerWithHandler(handler slog.Handler) *SecurityLogger {
	return &SecurityLogger{logger: slog.New(handler)}
}

func (s *SecurityLogger) event(msg, eventType, ip string, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("event_type", eventType),
		slog.String("ip", ip),
	}
	base = append(base, attrs...)
	base = append(base, slog.Time("timestamp", time.Now().UTC()))
	s.logger.LogAttrs(context.Background(), slog.LevelWarn, msg, base...)
}

// AuthFailure records a rejected API key. The key itself is never logged.
func (s *SecurityLogger) AuthFailure(ip, path, reason string) {
	s.event("authentication_failure", "auth_failure", ip,
		slog.String("path", path), slog.String("reason", reason))
}

func (s *SecurityLogger) RateLimitExceeded(ip, path string) {
	s.event("rate_limit_exceeded", "rate_limit", ip, slog.String("path", path))
}

func (s *SecurityLogger) SuspiciousActivity(ip, path, activity string) {
	s.event("suspicious_activity", "suspicious", ip,
		slog.String("path", path), slog.String("activity", activity))
}

// UnknownTrackingID records an open event for a tracking id that was never issued.
func (s *SecurityLogger) UnknownTrackingID(ip, trackingID string) {
	s.event("unknown_tracking_id", "unknown_tracking_id", ip, slog.String("tracking_id", trackingID))
}

// InboundRejected records a message refused by the SMTP ingest listener.
func (s *SecurityLogger) InboundRejected(remoteAddr, from, reason string) {
	s.event("inbound_rejected", "inbound_rejected", remoteAddr,
		slog.String("from", from), slog.String("reason", reason))
}

// InvalidOrigin records an event-feed handshake from a disallowed origin.
func (s *SecurityLogger) InvalidOrigin(ip, origin string) {
	s.event("invalid_origin", "invalid_origin", ip, slog.String("origin", origin))
}
