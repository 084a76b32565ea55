// Package config loads the runtime settings of the ivrflow binaries from the
// environment, optionally seeded from a .env file
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds all configuration for the ivrflow server
type Config struct {
	Server        ServerConfig
	Store         StoreConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Serialization SerializationConfig
	LogLevel      string
}

type ServerConfig struct {
	Addr          string
	SessionTTL    time.Duration
	SweepInterval time.Duration
	CatalogPath   string
}

type StoreConfig struct {
	Backend    string
	SQLitePath string
}

type DatabaseConfig struct {
	Host           string
	Port           int
	Name           string
	User           string
	Password       string
	SSLMode        string
	MaxConnections int
}

type RedisConfig struct {
	URL      string
	DraftTTL time.Duration
}

type SerializationConfig struct {
	Codec       string
	Compression string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:          getEnvWithDefault("IVRFLOW_ADDR", ":8080"),
			SessionTTL:    getEnvAsDuration("IVRFLOW_SESSION_TTL", 30*time.Minute),
			SweepInterval: getEnvAsDuration("IVRFLOW_SWEEP_INTERVAL", time.Minute),
			CatalogPath:   getEnvWithDefault("IVRFLOW_CATALOG", ""),
		},
		Store: StoreConfig{
			Backend:    strings.ToLower(getEnvWithDefault("IVRFLOW_STORE", StoreMemory)),
			SQLitePath: getEnvWithDefault("IVRFLOW_SQLITE_PATH", "ivrflow.db"),
		},
		Database: DatabaseConfig{
			Host:           getEnvWithDefault("DB_HOST", "localhost"),
			Port:           getEnvAsInt("DB_PORT", 5432),
			Name:           getEnvWithDefault("DB_NAME", "ivrflow"),
			User:           getEnvWithDefault("DB_USER", "postgres"),
			Password:       getEnvWithDefault("DB_PASSWORD", ""),
			SSLMode:        getEnvWithDefault("DB_SSL_MODE", "disable"),
			MaxConnections: getEnvAsInt("DB_MAX_CONNECTIONS", 10),
		},
		Redis: RedisConfig{
			URL:      getEnvWithDefault("REDIS_URL", ""),
			DraftTTL: getEnvAsDuration("IVRFLOW_DRAFT_TTL", 24*time.Hour),
		},
		Serialization: SerializationConfig{
			Codec:       getEnvWithDefault("IVRFLOW_CODEC", "msgpack"),
			Compression: getEnvWithDefault("IVRFLOW_COMPRESSION", "zstd"),
		},
		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("IVRFLOW_SQLITE_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for the postgres store")
		}
	default:
		return fmt.Errorf("IVRFLOW_STORE must be one of memory, sqlite, postgres; got %q", c.Store.Backend)
	}

	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("IVRFLOW_SESSION_TTL must be positive")
	}
	if c.Server.SweepInterval <= 0 {
		return fmt.Errorf("IVRFLOW_SWEEP_INTERVAL must be positive")
	}
	if c.Redis.DraftTTL < 0 {
		return fmt.Errorf("IVRFLOW_DRAFT_TTL must not be negative")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// GetDatabaseURL returns the PostgreSQL connection string
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
		c.Database.MaxConnections,
	)
}

// SlogLevel parses LOG_LEVEL
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// Helper functions for environment variable parsing

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
