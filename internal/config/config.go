package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
)

const (
	DefaultAIGatewayURL = "https://ai.gateway.lovable.dev/v1/chat/completions"
	DefaultAIModel      = "google/gemini-2.5-flash"
)

type Config struct {
	// HTTP Server
	Port           string   `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`

	// Database
	SQLiteDBPath string `toml:"sqlite_db_path"`

	// AMQP
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	AMQPQueue    string `toml:"amqp_queue"`

	// Identity
	JWTSecret string `toml:"jwt_secret"`

	// AI gateway
	AIGatewayURL string        `toml:"ai_gateway_url"`
	AIAPIKey     string        `toml:"ai_api_key"`
	AIModel      string        `toml:"ai_model"`
	AITimeout    time.Duration `toml:"ai_timeout"`

	// Mailgun alerts
	MailgunDomain string `toml:"mailgun_domain"`
	MailgunAPIKey string `toml:"mailgun_api_key"`
	AlertSender   string `toml:"alert_sender"`

	// Google Sheets export
	GoogleSpreadsheetID      string `toml:"google_spreadsheet_id"`
	GoogleSheetName          string `toml:"google_sheet_name"`
	GoogleServiceAccountJSON string `toml:"google_service_account_json"`
	GoogleServiceAccountFile string `toml:"google_service_account_file"`

	// Worker
	AlertSchedule     string `toml:"alert_schedule"`
	WorkerConcurrency int    `toml:"worker_concurrency"`

	// Limits and caching
	RateLimitPerMinute        int           `toml:"rate_limit_per_minute"`
	AnalyzeRateLimitPerMinute int           `toml:"analyze_rate_limit_per_minute"`
	OverviewCacheTTL          time.Duration `toml:"overview_cache_ttl"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		Port:           "8080",
		AllowedOrigins: []string{"*"},
		SQLiteDBPath:   "./data/budgetbee.db",

		AMQPExchange: "budgetbee",
		AMQPQueue:    "expense_events",

		AIGatewayURL: DefaultAIGatewayURL,
		AIModel:      DefaultAIModel,
		AITimeout:    60 * time.Second,

		GoogleSheetName: "Expenses",

		AlertSchedule:     "0 8 * * *",
		WorkerConcurrency: 4,

		RateLimitPerMinute:        60,
		AnalyzeRateLimitPerMinute: 10,
		OverviewCacheTTL:          5 * time.Minute,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds the configuration from defaults, an optional TOML file and the
// environment, in that order. An empty path falls back to BUDGETBEE_CONFIG.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv("BUDGETBEE_CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.SQLiteDBPath = getEnv("SQLITE_DB_PATH", cfg.SQLiteDBPath)

	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AMQPQueue = getEnv("AMQP_QUEUE", cfg.AMQPQueue)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)

	cfg.AIGatewayURL = getEnv("AI_GATEWAY_URL", cfg.AIGatewayURL)
	cfg.AIAPIKey = getEnv("AI_API_KEY", getEnv("LOVABLE_API_KEY", cfg.AIAPIKey))
	cfg.AIModel = getEnv("AI_MODEL", cfg.AIModel)
	cfg.AITimeout = getEnvDuration("AI_TIMEOUT", cfg.AITimeout)

	cfg.MailgunDomain = getEnv("MAILGUN_DOMAIN", cfg.MailgunDomain)
	cfg.MailgunAPIKey = getEnv("MAILGUN_API_KEY", cfg.MailgunAPIKey)
	cfg.AlertSender = getEnv("ALERT_SENDER", cfg.AlertSender)

	cfg.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", cfg.GoogleSpreadsheetID)
	cfg.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", cfg.GoogleSheetName)
	cfg.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", cfg.GoogleServiceAccountJSON)
	cfg.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", cfg.GoogleServiceAccountFile))

	cfg.AlertSchedule = getEnv("ALERT_SCHEDULE", cfg.AlertSchedule)
	cfg.WorkerConcurrency = getEnvInt("WORKER_CONCURRENCY", cfg.WorkerConcurrency)

	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.AnalyzeRateLimitPerMinute = getEnvInt("ANALYZE_RATE_LIMIT_PER_MINUTE", cfg.AnalyzeRateLimitPerMinute)
	cfg.OverviewCacheTTL = getEnvDuration("OVERVIEW_CACHE_TTL", cfg.OverviewCacheTTL)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	return cfg, nil
}

// MailgunEnabled reports whether alert emails can be sent.
func (c *Config) MailgunEnabled() bool {
	return c.MailgunDomain != "" && c.MailgunAPIKey != ""
}

// SheetsEnabled reports whether expenses are exported to a spreadsheet.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.SQLiteDBPath) == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if parsedURL, err := url.Parse(c.AIGatewayURL); err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		errors = append(errors, fmt.Sprintf("invalid AI gateway URL '%s': must be an http(s) URL", c.AIGatewayURL))
	}
	if c.AIModel == "" {
		errors = append(errors, "AI model cannot be empty")
	}
	if c.AITimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid AI timeout %v: must be at least 1 second", c.AITimeout))
	}

	if (c.MailgunDomain == "") != (c.MailgunAPIKey == "") {
		errors = append(errors, "MAILGUN_DOMAIN and MAILGUN_API_KEY must be set together")
	}
	if c.MailgunEnabled() && c.AlertSender == "" {
		errors = append(errors, "ALERT_SENDER is required when Mailgun is configured")
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets export")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if _, err := cron.ParseStandard(c.AlertSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid alert schedule '%s': %v", c.AlertSchedule, err))
	}
	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid worker concurrency %d: must be between 1 and 64", c.WorkerConcurrency))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}
	if c.AnalyzeRateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid analyze rate limit %d: must be at least 1", c.AnalyzeRateLimitPerMinute))
	}
	if c.OverviewCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid overview cache TTL %v: must be at least 1 second", c.OverviewCacheTTL))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateServer adds the checks only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("configuration validation failed:\n- JWT_SECRET must be at least 32 characters")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
