package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
)

// Gateway kinds
const (
	GatewayStore = "store"
	GatewayGmail = "gmail"
	GatewayMbox  = "mbox"
)

// Sender kinds
const (
	SenderSMTP     = "smtp"
	SenderGmail    = "gmail"
	SenderSendGrid = "sendgrid"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server ports
	APIPort  int
	SMTPPort int

	// Features
	SMTPIngestEnabled bool

	// SMTP ingest
	SMTPDomain  string
	SMTPTLSCert string
	SMTPTLSKey  string

	// Operator identity
	OperatorAddress string
	OperatorName    string

	// Reply policy
	ReplyCooldown     time.Duration
	InstantOpenWindow time.Duration
	ReplyPollInterval time.Duration
	ReplyLookback     time.Duration
	ReplyCampaign     string
	WatchCampaign     string

	// Mailbox gateway
	Gateway              string
	MboxPath             string
	GatewayRatePerSecond float64

	// Outbound sender
	Sender            string
	SMTPRelayAddr     string
	SMTPRelayUsername string
	SMTPRelayPassword string
	SMTPRelayTLS      string
	SendGridAPIKey    string

	// Gmail
	GmailCredentialsFile string
	GmailTokenFile       string

	// Composer
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Tracking and archive
	TrackingBaseURL string
	ArchivePath     string

	// Logging
	LogLevel string

	// Security
	APIKey         string
	AllowedOrigins string
	AppEnv         string

	// Rate Limiting
	RateLimitRequests float64
	RateLimitBurst    int
}

// LoadDotEnv loads variables from a .env file when one exists.
// Variables already present in the environment are not overridden.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// Required: DATABASE_URL
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	// Required: OPERATOR_ADDRESS
	cfg.OperatorAddress = strings.TrimSpace(os.Getenv("OPERATOR_ADDRESS"))
	if cfg.OperatorAddress == "" {
		return nil, fmt.Errorf("OPERATOR_ADDRESS is required but not set")
	}
	cfg.OperatorName = getEnv("OPERATOR_NAME", "")

	if cfg.APIPort, err = getEnvInt("API_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getEnvInt("SMTP_PORT", 2525); err != nil {
		return nil, err
	}
	if cfg.SMTPIngestEnabled, err = getEnvBool("SMTP_INGEST_ENABLED", true); err != nil {
		return nil, err
	}
	cfg.SMTPDomain = getEnv("SMTP_DOMAIN", "localhost")
	cfg.SMTPTLSCert = os.Getenv("SMTP_TLS_CERT")
	cfg.SMTPTLSKey = os.Getenv("SMTP_TLS_KEY")

	if cfg.ReplyCooldown, err = getEnvDuration("REPLY_COOLDOWN", 27*time.Hour); err != nil {
		return nil, err
	}
	if cfg.InstantOpenWindow, err = getEnvDuration("INSTANT_OPEN_WINDOW", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReplyPollInterval, err = getEnvDuration("REPLY_POLL_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReplyLookback, err = getEnvDuration("REPLY_LOOKBACK", 72*time.Hour); err != nil {
		return nil, err
	}
	cfg.ReplyCampaign = getEnv("REPLY_CAMPAIGN", "AI Email Replies")
	cfg.WatchCampaign = os.Getenv("WATCH_CAMPAIGN")

	cfg.Gateway = strings.ToLower(getEnv("GATEWAY", GatewayStore))
	cfg.MboxPath = os.Getenv("MBOX_PATH")
	if cfg.GatewayRatePerSecond, err = getEnvFloat("GATEWAY_RATE_PER_SECOND", 5.0); err != nil {
		return nil, err
	}

	cfg.Sender = strings.ToLower(getEnv("SENDER", SenderSMTP))
	cfg.SMTPRelayAddr = getEnv("SMTP_RELAY_ADDR", "localhost:25")
	cfg.SMTPRelayUsername = os.Getenv("SMTP_RELAY_USERNAME")
	cfg.SMTPRelayPassword = os.Getenv("SMTP_RELAY_PASSWORD")
	cfg.SMTPRelayTLS = strings.ToLower(getEnv("SMTP_RELAY_TLS", "auto"))
	cfg.SendGridAPIKey = os.Getenv("SENDGRID_API_KEY")

	cfg.GmailCredentialsFile = getEnv("GMAIL_CREDENTIALS_FILE", "credentials.json")
	cfg.GmailTokenFile = getEnv("GMAIL_TOKEN_FILE", "token.json")

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", "gpt-4")
	cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")

	cfg.TrackingBaseURL = strings.TrimRight(getEnv("TRACKING_BASE_URL", "http://localhost:8080"), "/")
	cfg.ArchivePath = getEnv("ARCHIVE_PATH", "./archive")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	cfg.APIKey = os.Getenv("API_KEY")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")
	cfg.AppEnv = getEnv("APP_ENV", "development")

	if cfg.RateLimitRequests, err = getEnvFloat("RATE_LIMIT_REQUESTS", 10.0); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Production-specific validation
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if err := decider.ValidateOperator(c.OperatorAddress); err != nil {
		return err
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.SMTPIngestEnabled && (c.SMTPPort <= 0 || c.SMTPPort > 65535) {
		return fmt.Errorf("SMTPPort must be between 1 and 65535")
	}
	if c.ReplyCooldown < 0 {
		return fmt.Errorf("REPLY_COOLDOWN cannot be negative")
	}
	if c.InstantOpenWindow < 0 {
		return fmt.Errorf("INSTANT_OPEN_WINDOW cannot be negative")
	}
	if c.ReplyLookback <= 0 {
		return fmt.Errorf("REPLY_LOOKBACK must be positive")
	}
	if c.GatewayRatePerSecond <= 0 {
		return fmt.Errorf("GATEWAY_RATE_PER_SECOND must be positive")
	}

	switch c.Gateway {
	case GatewayStore:
	case GatewayGmail:
		if c.GmailCredentialsFile == "" {
			return fmt.Errorf("GMAIL_CREDENTIALS_FILE is required for the gmail gateway")
		}
	case GatewayMbox:
		if c.MboxPath == "" {
			return fmt.Errorf("MBOX_PATH is required for the mbox gateway")
		}
	default:
		return fmt.Errorf("GATEWAY must be one of store, gmail, mbox; got %q", c.Gateway)
	}

	switch c.Sender {
	case SenderSMTP:
		if c.SMTPRelayAddr == "" {
			return fmt.Errorf("SMTP_RELAY_ADDR is required for the smtp sender")
		}
		switch c.SMTPRelayTLS {
		case "auto", "starttls", "tls", "none":
		default:
			return fmt.Errorf("SMTP_RELAY_TLS must be one of auto, starttls, tls, none; got %q", c.SMTPRelayTLS)
		}
	case SenderGmail:
		if c.GmailCredentialsFile == "" {
			return fmt.Errorf("GMAIL_CREDENTIALS_FILE is required for the gmail sender")
		}
	case SenderSendGrid:
		if c.SendGridAPIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required for the sendgrid sender")
		}
	default:
		return fmt.Errorf("SENDER must be one of smtp, gmail, sendgrid; got %q", c.Sender)
	}

	if c.ArchivePath == "" {
		return fmt.Errorf("ArchivePath cannot be empty")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	// Check for wildcard in production
	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	// Check for sslmode=disable in database URL
	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	if strings.HasPrefix(c.DatabaseURL, "sqlite:") {
		return fmt.Errorf("sqlite databases are not allowed in production")
	}

	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required in production")
	}

	return nil
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Int("api_port", c.APIPort),
		slog.Int("smtp_port", c.SMTPPort),
		slog.Bool("smtp_ingest", c.SMTPIngestEnabled),
		slog.String("smtp_domain", c.SMTPDomain),
		slog.Bool("smtp_tls", c.SMTPTLSCert != ""),
		slog.String("operator", c.OperatorAddress),
		slog.Duration("reply_cooldown", c.ReplyCooldown),
		slog.Duration("instant_open_window", c.InstantOpenWindow),
		slog.Duration("reply_poll_interval", c.ReplyPollInterval),
		slog.Duration("reply_lookback", c.ReplyLookback),
		slog.String("gateway", c.Gateway),
		slog.String("sender", c.Sender),
		slog.String("smtp_relay_tls", c.SMTPRelayTLS),
		slog.String("openai_model", c.OpenAIModel),
		slog.Bool("openai_key_set", c.OpenAIAPIKey != ""),
		slog.String("tracking_base_url", c.TrackingBaseURL),
		slog.String("archive_path", c.ArchivePath),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a valid boolean: %w", key, err)
	}
	return b, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return d, nil
}
