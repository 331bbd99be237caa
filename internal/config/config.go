// Package config loads server configuration from the environment.
// A local .env file is honored when present; real environment variables win.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all tunable server settings.
type Config struct {
	ListenAddr string
	DataDir    string

	// Oracle provider selection: "anthropic" or "openai".
	OracleProvider  string
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	OracleBaseURL   string
	MaxTokens       int
	TokenBudget     int

	// Virtual clock defaults. Speed is real seconds per game minute.
	ClockSpeed       float64
	StartTime        time.Time
	StaggerDelay     time.Duration
	MeetingPausePoll time.Duration

	// Resolver cadence.
	ResolverInitialDelay time.Duration
	ResolverInterval     time.Duration

	// Persistence cadence and archive threshold (virtual minutes).
	SaveInterval        time.Duration
	ArchiveAfterMinutes float64
	ArchiveDBPath       string
}

// DefaultStartTime anchors new games at the opening moment of the scenario.
var DefaultStartTime = time.Date(2023, 10, 7, 6, 29, 0, 0, time.UTC)

// Load reads .env (if present) and the environment into a Config.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:           getEnv("PM1_LISTEN_ADDR", ":8080"),
		DataDir:              getEnv("PM1_DATA_DIR", "data"),
		OracleProvider:       getEnv("PM1_ORACLE_PROVIDER", "anthropic"),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:       getEnv("PM1_ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:          getEnv("PM1_OPENAI_MODEL", "gpt-4o"),
		OracleBaseURL:        os.Getenv("PM1_ORACLE_BASE_URL"),
		MaxTokens:            getEnvInt("PM1_MAX_TOKENS", 1024),
		TokenBudget:          getEnvInt("PM1_TOKEN_BUDGET", 2_000_000),
		ClockSpeed:           getEnvFloat("PM1_CLOCK_SPEED", 2.0),
		StartTime:            DefaultStartTime,
		StaggerDelay:         getEnvDuration("PM1_STAGGER_DELAY", 5*time.Second),
		MeetingPausePoll:     getEnvDuration("PM1_MEETING_PAUSE_POLL", 2*time.Second),
		ResolverInitialDelay: getEnvDuration("PM1_RESOLVER_INITIAL_DELAY", 15*time.Second),
		ResolverInterval:     getEnvDuration("PM1_RESOLVER_INTERVAL", 30*time.Second),
		SaveInterval:         getEnvDuration("PM1_SAVE_INTERVAL", 30*time.Second),
		ArchiveAfterMinutes:  getEnvFloat("PM1_ARCHIVE_AFTER_MINUTES", 60),
		ArchiveDBPath:        getEnv("PM1_ARCHIVE_DB", "data/events_archive.db"),
	}

	if ts := os.Getenv("PM1_START_TIME"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			cfg.StartTime = parsed
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
