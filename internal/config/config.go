package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full environment surface of the service
type Config struct {
	Port        string   `envconfig:"PORT" default:"8080"`
	Env         string   `envconfig:"ENV" default:"development"`
	JWTSecret   string   `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	// Outbound webhook dispatcher. Disabled by default so non-production
	// environments never call the automation tool by accident.
	WebhookTargetURL     string `envconfig:"WEBHOOK_TARGET_URL"`
	WebhookEnabled       bool   `envconfig:"WEBHOOK_ENABLED" default:"false"`
	WebhookRetryAttempts int    `envconfig:"WEBHOOK_RETRY_ATTEMPTS" default:"3"`
	WebhookRetryDelayMS  int    `envconfig:"WEBHOOK_RETRY_DELAY_MS" default:"1000"`
	WebhookSource        string `envconfig:"WEBHOOK_SOURCE" default:"citaly-api"`
	WebhookAuditEnabled  bool   `envconfig:"WEBHOOK_AUDIT_ENABLED" default:"true"`

	ServiceVersion string `envconfig:"SERVICE_VERSION" default:"1.0.0"`

	// Database used only for the webhook delivery audit log. The service
	// runs without one; auditing is simply skipped.
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// Load reads the configuration from the environment
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs in development mode
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// DatabaseConfigured reports whether enough database settings are present
// to open a connection
func (c Config) DatabaseConfigured() bool {
	return c.DBHost != "" && c.DBName != ""
}

// WebhookRetryDelay returns the inter-retry delay as a duration
func (c Config) WebhookRetryDelay() time.Duration {
	return time.Duration(c.WebhookRetryDelayMS) * time.Millisecond
}
