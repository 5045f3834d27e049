package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"library-backend/internal/ledger"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgExclusionViolation  = "23P01"
)

// mapError converts driver errors into ledger errors. notFound is returned
// for pgx.ErrNoRows.
func mapError(err error, op string, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgExclusionViolation:
			return ledger.NewDuplicateError(fmt.Sprintf("%s: %s", op, pgErr.ConstraintName))
		case pgForeignKeyViolation:
			return ledger.NewInvalidReferenceError(fmt.Sprintf("%s: %s", op, pgErr.ConstraintName))
		case pgCheckViolation:
			return fmt.Errorf("%s: check constraint %s violated: %w", op, pgErr.ConstraintName, err)
		}
	}
	return fmt.Errorf("%s: %w", op, errors.Join(ledger.ErrStoreUnavailable, err))
}

// requireRow turns a zero-row UPDATE/DELETE into notFound.
func requireRow(tag pgconn.CommandTag, notFound error) error {
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}
