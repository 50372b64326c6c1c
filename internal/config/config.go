package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Remote   RemoteConfig
	Sync     SyncConfig
	Snapshot SnapshotConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	FrontendURL     string
	Environment     string
	RateLimitRPS    float64
	RateLimitBurst  int
	OperatorSecret  string // HS256 secret guarding sync control, empty leaves it open
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string
	Format     string // json or console
	OutputPath string
}

// RemoteConfig contains the game-data API configuration
type RemoteConfig struct {
	BaseURL       string
	APIKey        string
	Lang          string
	SchemaVersion string
	Timeout       time.Duration
	ChunkSize     int           // ids per bulk request, capped at the remote ceiling
	Pacing        time.Duration // minimum delay between two bulk requests
}

// SyncConfig contains fetch cycle scheduling configuration
type SyncConfig struct {
	Schedule    string // cron expression, empty disables scheduling
	OnStart     bool
	FullCatalog bool
}

// SnapshotConfig contains snapshot export configuration
type SnapshotConfig struct {
	Dir                string
	S3Bucket           string
	S3Prefix           string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	GCSBucket          string
	GCSPrefix          string
	GCSCredentialsFile string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			RateLimitRPS:    getEnvAsFloat("RATE_LIMIT_RPS", 20),
			RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 40),
			OperatorSecret:  getEnv("OPERATOR_JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "gw2ledger"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./gw2ledger.db"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Remote: RemoteConfig{
			BaseURL:       getEnv("GW2_BASE_URL", "https://api.guildwars2.com"),
			APIKey:        getEnv("GW2_API_KEY", ""),
			Lang:          getEnv("GW2_LANG", "en"),
			SchemaVersion: getEnv("GW2_SCHEMA_VERSION", "2019-12-19T00:00:00.000Z"),
			Timeout:       getEnvAsDuration("GW2_TIMEOUT", 30*time.Second),
			ChunkSize:     getEnvAsInt("GW2_CHUNK_SIZE", 200),
			Pacing:        getEnvAsDuration("GW2_PACING", time.Second),
		},
		Sync: SyncConfig{
			Schedule:    getEnv("SYNC_SCHEDULE", "0 */6 * * *"),
			OnStart:     getEnvAsBool("SYNC_ON_START", true),
			FullCatalog: getEnvAsBool("SYNC_FULL_CATALOG", false),
		},
		Snapshot: SnapshotConfig{
			Dir:                getEnv("SNAPSHOT_DIR", "./snapshot"),
			S3Bucket:           getEnv("SNAPSHOT_S3_BUCKET", ""),
			S3Prefix:           getEnv("SNAPSHOT_S3_PREFIX", "gw2ledger"),
			AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
			AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			GCSBucket:          getEnv("SNAPSHOT_GCS_BUCKET", ""),
			GCSPrefix:          getEnv("SNAPSHOT_GCS_PREFIX", "gw2ledger"),
			GCSCredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Remote.ChunkSize < 1 || c.Remote.ChunkSize > 200 {
		return fmt.Errorf("GW2_CHUNK_SIZE must be between 1 and 200, got %d", c.Remote.ChunkSize)
	}

	if c.Remote.Pacing < 0 {
		return fmt.Errorf("GW2_PACING must not be negative")
	}

	if c.Sync.Schedule != "" {
		if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
			return fmt.Errorf("invalid SYNC_SCHEDULE %q: %w", c.Sync.Schedule, err)
		}
	}

	return nil
}

// Addr returns the host:port the HTTP server listens on
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
