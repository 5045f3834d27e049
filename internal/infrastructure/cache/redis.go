package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"library-backend/internal/config"
)

const (
	redisPoolSize     = 10
	redisMinIdleConns = 2
	redisPingTimeout  = 2 * time.Second
)

// RedisClient owns the go-redis connection pool
type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg config.RedisConfig) *RedisClient {
	return &RedisClient{
		Client: redis.NewClient(&redis.Options{
			Addr:         cfg.Host,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     redisPoolSize,
			MinIdleConns: redisMinIdleConns,
			MaxRetries:   1,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		}),
	}
}

// Connect pings once; the caller decides whether a failure is fatal
func (r *RedisClient) Connect(ctx context.Context) error {
	if err := r.HealthCheck(ctx); err != nil {
		return err
	}
	opts := r.Client.Options()
	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("Redis connected")
	return nil
}

func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	if r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
