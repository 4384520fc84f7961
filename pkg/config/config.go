package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	DART DARTConfig

	// Insights pipeline
	Sync      SyncConfig
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool

	// InsightsCacheTTL is how long an assembled insights response stays hot
	InsightsCacheTTL time.Duration
	// APIRateLimit is the number of API requests allowed per client per minute
	APIRateLimit int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// MigrateOnBoot applies pending migrations when the API starts
	MigrateOnBoot bool
}

// DARTConfig holds DART (전자공시) API configuration
type DARTConfig struct {
	APIKey  string
	BaseURL string

	// MinInterval is the minimum gap between two OpenDART calls, process-wide
	MinInterval time.Duration
	Timeout     time.Duration
	MaxRetries  int
}

// SyncConfig controls the insights sync pipeline
type SyncConfig struct {
	DefaultYears   int
	Workers        int
	MaxEpsAttempts int
	DefaultScope   string // CFS, OFS

	// RequireKnownCorp rejects corp codes absent from the corp registry
	RequireKnownCorp bool
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	RefreshCorps          []string
	RefreshSchedule       string
	MappingReloadSchedule string
	CorpSyncSchedule      string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "5001"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
			MigrateOnBoot:   getEnvAsBool("MIGRATE_ON_BOOT", false),
		},

		// Redis
		Redis: RedisConfig{
			Host:             getEnv("REDIS_HOST", "localhost"),
			Port:             getEnv("REDIS_PORT", "6379"),
			Password:         getEnv("REDIS_PASSWORD", ""),
			DB:               getEnvAsInt("REDIS_DB", 0),
			Enabled:          getEnvAsBool("REDIS_ENABLED", false),
			InsightsCacheTTL: getEnvAsDuration("INSIGHTS_CACHE_TTL", "10m"),
			APIRateLimit:     getEnvAsInt("API_RATE_LIMIT", 100),
		},

		// External APIs
		DART: DARTConfig{
			APIKey:      getEnv("DART_API_KEY", ""),
			BaseURL:     getEnv("DART_BASE_URL", "https://opendart.fss.or.kr/api"),
			MinInterval: getEnvAsDuration("DART_MIN_INTERVAL", "700ms"),
			Timeout:     getEnvAsDuration("DART_TIMEOUT", "15s"),
			MaxRetries:  getEnvAsInt("DART_MAX_RETRIES", 2),
		},

		Sync: SyncConfig{
			DefaultYears:   getEnvAsInt("SYNC_DEFAULT_YEARS", 5),
			Workers:        getEnvAsInt("SYNC_WORKERS", 2),
			MaxEpsAttempts: getEnvAsInt("SYNC_EPS_MAX_ATTEMPTS", 3),
			DefaultScope:   strings.ToUpper(getEnv("SYNC_DEFAULT_SCOPE", "CFS")),

			RequireKnownCorp: getEnvAsBool("SYNC_REQUIRE_KNOWN_CORP", true),
		},

		Scheduler: SchedulerConfig{
			RefreshCorps:          getEnvAsList("REFRESH_CORPS"),
			RefreshSchedule:       getEnv("REFRESH_SCHEDULE", "0 0 7 * * 1-5"),
			MappingReloadSchedule: getEnv("MAPPING_RELOAD_SCHEDULE", "0 30 6 * * *"),
			CorpSyncSchedule:      getEnv("CORP_SYNC_SCHEDULE", "0 0 5 * * 1"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Sync.DefaultScope != "CFS" && c.Sync.DefaultScope != "OFS" {
		return fmt.Errorf("SYNC_DEFAULT_SCOPE must be one of: CFS, OFS")
	}

	if c.Sync.DefaultYears < 1 {
		return fmt.Errorf("SYNC_DEFAULT_YEARS must be positive")
	}

	if c.Sync.Workers < 1 {
		c.Sync.Workers = 1
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
