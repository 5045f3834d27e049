package cache

import (
	"context"
	"time"
)

// Cache is a JSON value cache. Implementations must treat a miss as
// (false, nil) and leave dest untouched.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes keys; missing keys are not an error
	Delete(ctx context.Context, keys ...string) error

	Ping(ctx context.Context) error
}
