package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Beginner is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx (savepoints)
type Beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TxFunc is executed inside a transaction
type TxFunc func(pgx.Tx) error

// WithTransaction runs fn in a READ COMMITTED transaction. The transaction
// is rolled back when fn returns an error or panics, committed otherwise.
func WithTransaction(ctx context.Context, db Beginner, fn TxFunc) error {
	return WithTransactionOptions(ctx, db, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// WithTransactionOptions is WithTransaction with explicit options
func WithTransactionOptions(ctx context.Context, db Beginner, opts pgx.TxOptions, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
