package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"library-backend/internal/infrastructure/database"
)

// Config chứa toàn bộ application configuration
// Struct này được populate từ environment variables (và POLICY_FILE cho Policy)
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Policy   Policy
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	LogLevel    string
	StoreDriver string // postgres | memory
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN là connection string cho database/sql drivers (lib/pq)
func (d DatabaseConfig) DSN() string {
	return (&database.DBConfig{
		Host:     d.Host,
		Port:     d.Port,
		Username: d.User,
		Password: d.Password,
		DBName:   d.Database,
		SSLMode:  d.SSLMode,
	}).DSN()
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
	Enabled  bool
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Load đọc config từ environment variables
func Load() (*Config, error) {
	policy, err := LoadPolicy()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Library API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		},
		Database: loadDatabase(),
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnvBool("REDIS_ENABLED", true),
		},
		Policy: policy,
	}

	// Validate critical config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate kiểm tra config có hợp lệ không
func (c *Config) Validate() error {
	switch c.App.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.App.StoreDriver)
	}

	if c.App.Environment == "production" {
		if c.App.StoreDriver == StoreDriverMemory {
			return fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
	}

	return c.Policy.Validate()
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Database: getEnv("DB_NAME", "library"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
		MaxConns: getEnvInt("DB_MAX_CONNS", 25),
		MinConns: getEnvInt("DB_MIN_CONNS", 5),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
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

func getEnvBool(key string, defaultValue bool) bool {
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
