package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"

	"github.com/linnemanlabs/carewatch/internal/summary"
)

// Config adds carewatch-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string
	MaxUploadBytes        int64

	HealthPath   string
	SafetyPath   string
	ReminderPath string

	OllamaEndpoint        string
	OllamaModel           string
	SummaryMode           string
	SummaryTimeoutSeconds int

	DatabaseURL string
	RedisURL    string

	SlackWebhookURL string
	TelegramToken   string
	TelegramChatID  int64
}

const (
	minUploadBytes = 1 << 10
	maxUploadBytes = 64 << 20
)

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on /api routes")
	fs.Int64Var(&c.MaxUploadBytes, "max-upload-bytes", 8<<20, "largest accepted request body in bytes (1KiB..64MiB)")
	fs.StringVar(&c.HealthPath, "health-path", "", "health monitoring CSV/XLSX loaded into the startup session")
	fs.StringVar(&c.SafetyPath, "safety-path", "", "safety monitoring CSV/XLSX loaded into the startup session")
	fs.StringVar(&c.ReminderPath, "reminder-path", "", "daily reminder CSV/XLSX loaded into the startup session")
	fs.StringVar(&c.OllamaEndpoint, "ollama-endpoint", summary.DefaultEndpoint, "generate endpoint of the local model server")
	fs.StringVar(&c.OllamaModel, "ollama-model", summary.DefaultModel, "model used for caregiver summaries")
	fs.StringVar(&c.SummaryMode, "summary-mode", string(summary.ModeStream), "summary response mode (whole|stream)")
	fs.IntVar(&c.SummaryTimeoutSeconds, "summary-timeout-seconds", int(summary.DefaultTimeout.Seconds()), "upper bound on one summary request (1..600)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL for reports")
	fs.StringVar(&c.RedisURL, "redis-url", "", "Redis URL for reports (used when database-url is empty)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for notifications")
	fs.StringVar(&c.TelegramToken, "telegram-token", "", "Telegram bot token for notifications")
	fs.Int64Var(&c.TelegramChatID, "telegram-chat-id", 0, "Telegram chat receiving notifications")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// the API serves health data, never run it open
	if c.APIToken == "" {
		errs = append(errs, errors.New("API_TOKEN is required"))
	}

	if c.MaxUploadBytes < minUploadBytes || c.MaxUploadBytes > maxUploadBytes {
		errs = append(errs, fmt.Errorf("invalid MAX_UPLOAD_BYTES %d (must be %d..%d)", c.MaxUploadBytes, minUploadBytes, maxUploadBytes))
	}

	if err := validateHTTPURL(c.OllamaEndpoint); err != nil {
		errs = append(errs, fmt.Errorf("invalid OLLAMA_ENDPOINT: %w", err))
	}
	if c.OllamaModel == "" {
		errs = append(errs, errors.New("OLLAMA_MODEL is required"))
	}
	if _, err := summary.ParseMode(c.SummaryMode); err != nil {
		errs = append(errs, fmt.Errorf("invalid SUMMARY_MODE: %w", err))
	}
	if c.SummaryTimeoutSeconds <= 0 || c.SummaryTimeoutSeconds > 600 {
		errs = append(errs, fmt.Errorf("invalid SUMMARY_TIMEOUT_SECONDS %d (must be 1..600)", c.SummaryTimeoutSeconds))
	}

	// one report store at a time
	if c.DatabaseURL != "" && c.RedisURL != "" {
		errs = append(errs, errors.New("DATABASE_URL and REDIS_URL are mutually exclusive"))
	}

	if (c.TelegramToken == "") != (c.TelegramChatID == 0) {
		errs = append(errs, errors.New("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
