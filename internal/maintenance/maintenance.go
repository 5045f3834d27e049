// Package maintenance holds out-of-band jobs that run straight against the
// PostgreSQL schema: the legacy reservation expiry backfill and the ledger
// consistency audit. They use database/sql through sqlx and lib/pq, apart
// from the pgx pool the engine uses.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"library-backend/internal/config"
)

const (
	maxOpenConns    = 4
	maxIdleConns    = 2
	connMaxLifetime = 10 * time.Minute
)

// Open connects a small sqlx pool; maintenance jobs are short and serial
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open maintenance connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping maintenance connection: %w", err)
	}
	return db, nil
}

// Jobs runs maintenance statements over one sqlx handle
type Jobs struct {
	db     *sqlx.DB
	policy config.Policy
}

func New(db *sqlx.DB, policy config.Policy) *Jobs {
	return &Jobs{db: db, policy: policy}
}
