package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SmartVest/internal/database"
)

// DateLayout is the format of date settings
const DateLayout = "2006-01-02"

// Config holds all application configuration
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	TwelveAPIKey   string `env:"TWELVE_API_KEY" envDefault:"-"`
	TwelveBaseURL  string `env:"TWELVE_BASE_URL" envDefault:"https://api.twelvedata.com"`
	RequestTimeout int    `env:"HTTP_TIMEOUT_SEC" envDefault:"30"` // seconds
	RequestsPerSec int    `env:"HTTP_REQUESTS_PER_SEC" envDefault:"5"`
	MaxRetries     int    `env:"HTTP_MAX_RETRIES" envDefault:"3"`

	DatabaseEnabled bool `env:"DATABASE_ENABLED" envDefault:"false"`
	Database        database.ConnectionParams

	Benchmark      string   `env:"BENCHMARK_TICKER" envDefault:"SPY"`
	Universe       []string `env:"UNIVERSE"`
	InitialCapital float64  `env:"INITIAL_CAPITAL" envDefault:"10000"`
	ProfilesFile   string   `env:"PROFILES_FILE"`

	BatchWorkers  int       `env:"BATCH_WORKERS"`
	ScenarioDays  int       `env:"SCENARIO_DAYS" envDefault:"365"`
	EarliestStart time.Time `env:"EARLIEST_START" envDefault:"2018-01-01"`
	LatestEnd     time.Time `env:"LATEST_END" envDefault:"2025-12-31"`

	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`
	MetricsAddr    string `env:"METRICS_ADDR"`
}

// DefaultUniverse is used when UNIVERSE is not set
var DefaultUniverse = []string{
	"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL", "META", "JPM", "V", "JNJ", "PG",
	"XOM", "CVX", "KO", "PEP", "MRK", "ABBV", "COST", "WMT", "HD", "UNH",
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")

	cfg.TwelveAPIKey = os.Getenv("TWELVE_API_KEY")
	cfg.TwelveBaseURL = getEnvWithDefault("TWELVE_BASE_URL", "https://api.twelvedata.com")
	cfg.RequestTimeout = getEnvIntWithDefault("HTTP_TIMEOUT_SEC", 30)
	cfg.RequestsPerSec = getEnvIntWithDefault("HTTP_REQUESTS_PER_SEC", 5)
	cfg.MaxRetries = getEnvIntWithDefault("HTTP_MAX_RETRIES", 3)

	cfg.DatabaseEnabled = getEnvBoolWithDefault("DATABASE_ENABLED", false)
	cfg.Database = database.ConnectionParams{
		Host:     getEnvWithDefault("POSTGRES_HOST", "localhost"),
		Port:     getEnvWithDefault("POSTGRES_PORT", "5432"),
		User:     getEnvWithDefault("POSTGRES_USER", "postgres"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		DBName:   getEnvWithDefault("POSTGRES_DB", "smartvest"),
		SSLMode:  getEnvWithDefault("POSTGRES_SSLMODE", "disable"),
	}

	cfg.Benchmark = getEnvWithDefault("BENCHMARK_TICKER", "SPY")
	cfg.Universe = getEnvListWithDefault("UNIVERSE", DefaultUniverse)
	cfg.InitialCapital = getEnvFloatWithDefault("INITIAL_CAPITAL", 10000)
	cfg.ProfilesFile = os.Getenv("PROFILES_FILE")

	cfg.BatchWorkers = getEnvIntWithDefault("BATCH_WORKERS", runtime.NumCPU())
	cfg.ScenarioDays = getEnvIntWithDefault("SCENARIO_DAYS", 365)
	cfg.EarliestStart = getEnvDateWithDefault("EARLIEST_START", time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg.LatestEnd = getEnvDateWithDefault("LATEST_END", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))

	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = int64(getEnvIntWithDefault("TELEGRAM_CHAT_ID", 0))
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	return &cfg, nil
}

// RequestTimeoutDuration returns the HTTP timeout as a duration
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvListWithDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.ToUpper(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvDateWithDefault(key string, defaultValue time.Time) time.Time {
	if value := os.Getenv(key); value != "" {
		if t, err := time.Parse(DateLayout, value); err == nil {
			return t
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid date, using default")
	}
	return defaultValue
}
