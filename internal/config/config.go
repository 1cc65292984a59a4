package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"aibets/predictor/internal/cache"
	"aibets/predictor/internal/repository"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// API-Football
	FootballAPIKey   string        `envconfig:"API_FOOTBALL_KEY" required:"true"`
	FootballBaseURL  string        `envconfig:"API_FOOTBALL_BASE_URL" default:"https://v3.football.api-sports.io"`
	FootballTimeout  time.Duration `envconfig:"API_FOOTBALL_TIMEOUT" default:"10s"`
	FootballTimezone string        `envconfig:"API_FOOTBALL_TIMEZONE" default:"UTC"`

	// OpenAI
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIModel   string `envconfig:"OPENAI_API_MODEL" default:"o4-mini"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`

	// Database
	DatabaseHost        string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort        int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName        string `envconfig:"DATABASE_NAME" default:"aibets"`
	DatabaseUser        string `envconfig:"DATABASE_USER" default:"aibets_user"`
	DatabasePassword    string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode     string `envconfig:"DATABASE_SSL_MODE" default:"disable"`
	DatabaseAutoMigrate bool   `envconfig:"DATABASE_AUTO_MIGRATE" default:"true"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP API
	HTTPPort           int      `envconfig:"HTTP_PORT" default:"8080"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	CronSecret         string   `envconfig:"CRON_SECRET" default:"change_me"`

	// Scheduler
	EnableScheduler     bool          `envconfig:"ENABLE_SCHEDULER" default:"true"`
	DailyUpdateCron     string        `envconfig:"DAILY_UPDATE_CRON" default:"0 6 * * *"`
	FixtureSyncInterval time.Duration `envconfig:"FIXTURE_SYNC_INTERVAL" default:"30m"`

	// Prediction batch pass
	PredictionLeagueIDs []int         `envconfig:"PREDICTION_LEAGUE_IDS" default:"39,140"`
	PredictionDaysAhead int           `envconfig:"PREDICTION_DAYS_AHEAD" default:"3"`
	PredictionDelay     time.Duration `envconfig:"PREDICTION_DELAY" default:"5s"`
	BatchLockTTL        time.Duration `envconfig:"BATCH_LOCK_TTL" default:"2h"`

	// Fixture sync
	SyncLeagueIDs []int `envconfig:"SYNC_LEAGUE_IDS" default:"39,140"`
	SyncDaysAhead int   `envconfig:"SYNC_DAYS_AHEAD" default:"2"`
	SyncBatchSize int   `envconfig:"SYNC_BATCH_SIZE" default:"20"`

	// Caching TTL (in seconds)
	CacheTTLOdds  int `envconfig:"CACHE_TTL_ODDS" default:"300"`  // 5 minutes
	CacheTTLStats int `envconfig:"CACHE_TTL_STATS" default:"600"` // 10 minutes

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.FootballAPIKey == "" {
		return fmt.Errorf("API_FOOTBALL_KEY is required")
	}

	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if len(c.PredictionLeagueIDs) == 0 || len(c.SyncLeagueIDs) == 0 {
		return fmt.Errorf("at least one league id is required")
	}

	if c.PredictionDaysAhead < 1 || c.SyncDaysAhead < 1 {
		return fmt.Errorf("days ahead must be at least 1")
	}

	if c.SyncBatchSize < 1 {
		return fmt.Errorf("SYNC_BATCH_SIZE must be positive")
	}

	if c.PredictionDelay < 0 {
		return fmt.Errorf("PREDICTION_DELAY cannot be negative")
	}

	if c.CronSecret == "change_me" && c.AppEnv == "production" {
		return fmt.Errorf("CRON_SECRET must be changed in production")
	}

	return nil
}

// Database returns the connection settings for the repository layer
func (c *Config) Database() repository.Config {
	return repository.Config{
		Host:     c.DatabaseHost,
		Port:     strconv.Itoa(c.DatabasePort),
		User:     c.DatabaseUser,
		Password: c.DatabasePassword,
		Database: c.DatabaseName,
		SSLMode:  c.DatabaseSSLMode,
	}
}

// Redis returns the connection settings for the cache layer
func (c *Config) Redis() cache.Config {
	return cache.Config{
		Host:     c.RedisHost,
		Port:     strconv.Itoa(c.RedisPort),
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// OddsCacheTTL returns the odds cache TTL as a duration
func (c *Config) OddsCacheTTL() time.Duration {
	return time.Duration(c.CacheTTLOdds) * time.Second
}

// StatsCacheTTL returns the prediction-stats cache TTL as a duration
func (c *Config) StatsCacheTTL() time.Duration {
	return time.Duration(c.CacheTTLStats) * time.Second
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
