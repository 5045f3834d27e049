// Package postgres implements the Ledger Store on PostgreSQL with pgx.
//
// Row locks are SELECT ... FOR UPDATE inside the unit of work. The catalog
// item row serializes its reservation queue, the copy row serializes its
// circulation.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"library-backend/internal/ledger"
	"library-backend/pkg/database"
)

var (
	_ ledger.Store = (*Store)(nil)
	_ ledger.Tx    = (*tx)(nil)
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queries implements ledger.Queries over any dbtx
type queries struct {
	db dbtx
}

type tx struct {
	queries
}

// Store is the pool-backed Ledger Store
type Store struct {
	queries
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{queries: queries{db: pool}, pool: pool}
}

// WithTx runs fn in one database transaction, see database.WithTransaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return database.WithTransaction(ctx, s.pool, func(pgxTx pgx.Tx) error {
		return fn(&tx{queries: queries{db: pgxTx}})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close is a no-op: the pool belongs to the database package lifecycle.
func (s *Store) Close() {}
