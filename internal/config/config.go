package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	Storage StorageConfig
	HTTP    HTTPConfig
	GRPC    GRPCConfig
	Auth    AuthConfig
	AI      AIConfig
	Notify  NotifyConfig
	Log     LogConfig
}

// StorageConfig points at the directory holding the database and uploads.
type StorageConfig struct {
	DataDir string `env:"DATA_DIR"`
	// DataDirSet reports whether DATA_DIR was present in the environment.
	DataDirSet bool `env:"-"`
}

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	Address     string `env:"HTTP_ADDRESS" envDefault:":5000"`
	WebsiteURL  string `env:"WEBSITE_URL" envDefault:"http://localhost:5000"`
	MaxUploadMB int64  `env:"MAX_UPLOAD_MB" envDefault:"50"`
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address string `env:"GRPC_ADDRESS" envDefault:":50051"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	SecretKey  string        `env:"SECRET_KEY"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
}

// AIConfig configures the invoice matcher.
type AIConfig struct {
	APIKey  string `env:"ANTHROPIC_API_KEY"`
	BaseURL string `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com/v1/"`
	Model   string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	Enabled bool   `env:"USE_CLAUDE_MATCHING" envDefault:"true"`
}

// NotifyConfig holds Telegram and SMTP credentials.
type NotifyConfig struct {
	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID string `env:"TELEGRAM_CHAT_ID"`
	SMTPHost       string `env:"SMTP_HOST"`
	SMTPPort       int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername   string `env:"SMTP_USERNAME"`
	SMTPPassword   string `env:"SMTP_PASSWORD"`
	SMTPFrom       string `env:"SMTP_FROM"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a fixed SECRET_KEY in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = "dev-secret-change-me"
	}
	return cfg, nil
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if v, ok := os.LookupEnv("DATA_DIR"); ok && v != "" {
		cfg.Storage.DataDirSet = true
	}
	if cfg.HTTP.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", cfg.HTTP.MaxUploadMB)
	}
	if cfg.Auth.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.Auth.SessionTTL)
	}
	return cfg, nil
}

// TelegramEnabled reports whether both bot token and chat ID are configured.
func (n NotifyConfig) TelegramEnabled() bool {
	return n.TelegramToken != "" && n.TelegramChatID != ""
}

// SMTPEnabled reports whether an SMTP relay is configured.
func (n NotifyConfig) SMTPEnabled() bool {
	return n.SMTPHost != ""
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	dataDir := c.Storage.DataDir
	if !c.Storage.DataDirSet {
		dataDir = "(unset)"
	}
	return fmt.Sprintf("Config{DataDir: %s, HTTP: %s, gRPC: %s, Auth: *** (masked) ***, AI key set: %t, Telegram: %t, SMTP: %t}",
		dataDir, c.HTTP.Address, c.GRPC.Address, c.AI.APIKey != "", c.Notify.TelegramEnabled(), c.Notify.SMTPEnabled())
}
