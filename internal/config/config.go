// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port          string
	FrontendURL   string
	DBPath        string
	DataDir       string // device-local state (consent records) lives here
	TasksSeedPath string
	ResponderAddr string // external assistant endpoint; empty disables AI replies
	AdminUserIDs  []string

	BlockCacheTTL  time.Duration
	AutoSendDelay  time.Duration
	OrphanSweep    OrphanSweepConfig
	Retry          RetryConfig
	Eligibility    EligibilityConfig
	MaxCodeBytes   int
	RequestTimeout time.Duration
}

// OrphanSweepConfig controls the orphaned-session sweep worker.
type OrphanSweepConfig struct {
	Interval time.Duration
	IdleTTL  time.Duration
}

// RetryConfig controls bounded retries on transient failures.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// EligibilityConfig holds the post-assessment activity thresholds.
type EligibilityConfig struct {
	DaysActive     int
	QuestionsAsked int
	TasksCompleted int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		FrontendURL:   getEnv("FRONTEND_URL", ""),
		DBPath:        getEnv("DB_PATH", "./data/helper.db"),
		DataDir:       getEnv("DATA_DIR", "./data/local"),
		TasksSeedPath: getEnv("TASKS_SEED_PATH", "./data/tasks.json"),
		ResponderAddr: getEnv("RESPONDER_ADDR", ""),
		AdminUserIDs:  getEnvList("ADMIN_USER_IDS"),

		BlockCacheTTL: getEnvDuration("BLOCK_CACHE_TTL", 30*time.Second),
		AutoSendDelay: getEnvDuration("AUTO_SEND_DELAY", 500*time.Millisecond),
		OrphanSweep: OrphanSweepConfig{
			Interval: getEnvDuration("ORPHAN_SWEEP_INTERVAL", 15*time.Minute),
			IdleTTL:  getEnvDuration("ORPHAN_SWEEP_IDLE_TTL", 24*time.Hour),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:   getEnvDuration("RETRY_BASE_DELAY", 100*time.Millisecond),
		},
		Eligibility: EligibilityConfig{
			DaysActive:     getEnvInt("ELIGIBILITY_DAYS_ACTIVE", 5),
			QuestionsAsked: getEnvInt("ELIGIBILITY_QUESTIONS_ASKED", 10),
			TasksCompleted: getEnvInt("ELIGIBILITY_TASKS_COMPLETED", 3),
		},
		MaxCodeBytes:   getEnvInt("MAX_CODE_BYTES", 64*1024),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR cannot be empty")
	}
	if c.BlockCacheTTL <= 0 {
		return fmt.Errorf("BLOCK_CACHE_TTL must be > 0")
	}
	if c.AutoSendDelay < 0 {
		return fmt.Errorf("AUTO_SEND_DELAY must be >= 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be > 0")
	}
	if c.MaxCodeBytes <= 0 {
		return fmt.Errorf("MAX_CODE_BYTES must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvList(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
