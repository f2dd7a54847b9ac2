package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	Environment   string
	LogLevel      string
	HTTPAddress   string
	StorageDriver string
	DatabaseURL   string
	MigrationsDir string
	TelegramToken string // optional; notifications are only logged without it
	Timezone      string

	CronSpecReminders   string
	CronSpecAutoPost    string
	CronSpecSuggestions string
	JobTimeout          time.Duration
	SuggestionDaysBack  int

	NotificationQueueSize   int
	NotificationMaxAttempts int
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Errors are ignored if the file doesn't exist. godotenv.Load will not
	// override existing env variables.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDRESS", ":8080")
	v.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("TELEGRAM_TOKEN", "")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("CRON_SPEC_REMINDERS", "0 8 * * *")
	v.SetDefault("CRON_SPEC_AUTO_POST", "5 0 * * *")
	v.SetDefault("CRON_SPEC_SUGGESTIONS", "0 3 * * *")
	v.SetDefault("JOB_TIMEOUT", "5m")
	v.SetDefault("SUGGESTION_DAYS_BACK", 30)
	v.SetDefault("NOTIFICATION_QUEUE_SIZE", 256)
	v.SetDefault("NOTIFICATION_MAX_ATTEMPTS", 3)
	v.AutomaticEnv()

	cfg := &AppConfig{
		Environment:             strings.ToLower(v.GetString("ENVIRONMENT")),
		LogLevel:                strings.ToLower(v.GetString("LOG_LEVEL")),
		HTTPAddress:             v.GetString("HTTP_ADDRESS"),
		StorageDriver:           strings.ToLower(v.GetString("STORAGE_DRIVER")),
		DatabaseURL:             v.GetString("DATABASE_URL"),
		MigrationsDir:           v.GetString("MIGRATIONS_DIR"),
		TelegramToken:           v.GetString("TELEGRAM_TOKEN"),
		Timezone:                v.GetString("TIMEZONE"),
		CronSpecReminders:       v.GetString("CRON_SPEC_REMINDERS"),
		CronSpecAutoPost:        v.GetString("CRON_SPEC_AUTO_POST"),
		CronSpecSuggestions:     v.GetString("CRON_SPEC_SUGGESTIONS"),
		JobTimeout:              v.GetDuration("JOB_TIMEOUT"),
		SuggestionDaysBack:      v.GetInt("SUGGESTION_DAYS_BACK"),
		NotificationQueueSize:   v.GetInt("NOTIFICATION_QUEUE_SIZE"),
		NotificationMaxAttempts: v.GetInt("NOTIFICATION_MAX_ATTEMPTS"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is not set")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q: want %s or %s", c.StorageDriver, StorageDriverPostgres, StorageDriverMemory)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	specs := map[string]string{
		"CRON_SPEC_REMINDERS":   c.CronSpecReminders,
		"CRON_SPEC_AUTO_POST":   c.CronSpecAutoPost,
		"CRON_SPEC_SUGGESTIONS": c.CronSpecSuggestions,
	}
	for name, spec := range specs {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if c.JobTimeout <= 0 {
		return fmt.Errorf("JOB_TIMEOUT must be positive")
	}
	if c.SuggestionDaysBack < 1 || c.SuggestionDaysBack > 365 {
		return fmt.Errorf("SUGGESTION_DAYS_BACK must be between 1 and 365, got %d", c.SuggestionDaysBack)
	}
	return nil
}

// Location is the zone the scheduler evaluates cron specs and "today" in.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether logs should be machine readable.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "staging"
}
