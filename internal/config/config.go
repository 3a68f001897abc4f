// Package config provides application configuration.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "kitefolio/internal/errors"
)

// Secret backends accepted by SECRETS_SOURCE.
const (
	SecretsSourceEnv = "env"
	SecretsSourceS3  = "s3"
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	Port string
	Host string

	// Logging
	LogLevel  string
	LogPretty bool

	// Holdings snapshot validity window
	CacheTTL time.Duration

	// Credential resolution
	SecretsSource    string // primary backend: env or s3
	SecretsEnvPrefix string
	SecretsFile      string // fallback dotenv file
	SecretsS3Bucket  string
	SecretsS3Key     string

	// Login automation
	LoginWait            time.Duration
	LoginTransitionPause time.Duration
	LoginScreenshot      string // written on failed login when set
	ChromePath           string

	// Brokerage
	KiteBaseURI string // empty uses the library default

	// Dashboard
	DashboardURL string
	CORSOrigins  []string

	// Reminder; empty values take the notifier defaults
	NtfyServer      string
	NtfyTopic       string // NFTY_TOPIC is accepted as an alias
	WebhookURL      string
	ReminderTitle   string
	ReminderMessage string

	// Environment
	IsDevelopment bool
}

// Load reads the configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return New()
}

// New creates a new Config with values from environment variables or defaults.
func New() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Host:             getEnv("HOST", "localhost"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogPretty:        getEnvAsBool("LOG_PRETTY", false),
		SecretsSource:    strings.ToLower(getEnv("SECRETS_SOURCE", SecretsSourceEnv)),
		SecretsEnvPrefix: getEnv("SECRETS_ENV_PREFIX", ""),
		SecretsFile:      getEnv("SECRETS_FILE", ".secrets.env"),
		SecretsS3Bucket:  getEnv("SECRETS_S3_BUCKET", ""),
		SecretsS3Key:     getEnv("SECRETS_S3_KEY", "kitefolio/secrets.env"),
		LoginScreenshot:  getEnv("LOGIN_SCREENSHOT", ""),
		ChromePath:       getEnv("CHROME_PATH", ""),
		KiteBaseURI:      getEnv("KITE_BASE_URI", ""),
		DashboardURL:     strings.TrimSpace(getEnv("DASHBOARD_URL", "")),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "")),
		NtfyServer:       getEnv("NTFY_SERVER", ""),
		NtfyTopic:        strings.TrimSpace(getEnv("NTFY_TOPIC", os.Getenv("NFTY_TOPIC"))),
		WebhookURL:       strings.TrimSpace(getEnv("WEBHOOK_URL", "")),
		ReminderTitle:    getEnv("REMINDER_TITLE", ""),
		ReminderMessage:  getEnv("REMINDER_MESSAGE", ""),
		IsDevelopment:    getEnv("ENV", "development") == "development",
	}

	var err error
	if cfg.CacheTTL, err = getEnvAsDuration("CACHE_TTL", 4*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LoginWait, err = getEnvAsDuration("LOGIN_WAIT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.LoginTransitionPause, err = getEnvAsDuration("LOGIN_TRANSITION_PAUSE", 2*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	switch c.SecretsSource {
	case SecretsSourceEnv:
	case SecretsSourceS3:
		if c.SecretsS3Bucket == "" {
			return apperrors.Configuration("SECRETS_S3_BUCKET is required when SECRETS_SOURCE=s3")
		}
	default:
		return apperrors.Configurationf("unsupported SECRETS_SOURCE %q (valid: env, s3)", c.SecretsSource)
	}
	if c.CacheTTL <= 0 {
		return apperrors.Configuration("CACHE_TTL must be positive")
	}
	if c.LoginWait <= 0 {
		return apperrors.Configuration("LOGIN_WAIT must be positive")
	}
	return nil
}

// Address returns the full address to bind the server to.
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrConfiguration, "invalid duration in "+key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
