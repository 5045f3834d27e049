package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"library-backend/internal/infrastructure/database"
)

// LoadDatabaseConfig builds the pgx pool config. Connection keys are the
// ones Config.Database reads; pool tuning and retry come from DB_* vars.
// Unlike Load, a malformed value is an error rather than a silent default.
func LoadDatabaseConfig() (*database.DBConfig, error) {
	conn := loadDatabase()
	var p strictEnv

	cfg := &database.DBConfig{
		Host:     conn.Host,
		Port:     p.int("DB_PORT", 5432),
		Username: conn.User,
		Password: conn.Password,
		DBName:   conn.Database,
		SSLMode:  conn.SSLMode,

		MaxConns:          int32(p.int("DB_MAX_CONNS", 25)),
		MinConns:          int32(p.int("DB_MIN_CONNS", 5)),
		MaxConnLifetime:   p.duration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   p.duration("DB_MAX_CONN_IDLE_TIME", time.Minute),
		HealthCheckPeriod: p.duration("DB_HEALTH_CHECK_PERIOD", time.Minute),

		MaxRetries:     p.int("DB_MAX_RETRIES", 5),
		RetryDelay:     p.duration("DB_RETRY_DELAY", time.Second),
		ConnectTimeout: p.duration("DB_CONNECT_TIMEOUT", 10*time.Second),
	}
	if p.err != nil {
		return nil, p.err
	}

	if cfg.MinConns > cfg.MaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", cfg.MinConns, cfg.MaxConns)
	}
	return cfg, nil
}

// strictEnv collects every parse failure instead of stopping at the first
type strictEnv struct {
	err error
}

func (s *strictEnv) int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		s.err = errors.Join(s.err, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return v
}

func (s *strictEnv) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		s.err = errors.Join(s.err, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return v
}
