package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"library-backend/internal/config"
	"library-backend/internal/infrastructure/database"
	"library-backend/internal/maintenance"
	"library-backend/pkg/container"
)

const jobTimeout = 5 * time.Minute

// ─── migrate ────────────────────────────────────────────────────────────────

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), jobTimeout)
	defer cancel()

	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return err
	}
	db := database.NewPostgresDB(dbConfig)
	if err := db.Connect(ctx); err != nil {
		return err
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db.Pool)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), map[string]any{"applied": applied})
}

// ─── expire-reservations ────────────────────────────────────────────────────

var expireCmd = &cobra.Command{
	Use:   "expire-reservations",
	Short: "Expire every active reservation past its expiry date",
	Long: `Marks overdue active reservations expired and closes the gaps they
leave in each item's queue, exactly like POST /api/v1/reservations/expire.`,
	Args: cobra.NoArgs,
	RunE: runExpire,
}

func runExpire(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), jobTimeout)
	defer cancel()

	app, err := container.NewContainer(ctx, container.WithRegisterer(prometheus.NewRegistry()))
	if err != nil {
		return err
	}
	defer app.Cleanup()

	res, err := app.ReservationService.ExpireDue(ctx)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), res)
}

// ─── backfill-reservation-expiry ────────────────────────────────────────────

var backfillCmd = &cobra.Command{
	Use:   "backfill-reservation-expiry",
	Short: "Fill missing reservation expiry dates with the legacy window",
	Long: `Sets expiry_date = reservation_date + LEGACY_RESERVATION_EXPIRY_DAYS
(default 5) on reservations that predate the column. New reservations use
RESERVATION_EXPIRY_DAYS (default 7).`,
	Args: cobra.NoArgs,
	RunE: runBackfill,
}

func runBackfill(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	return withJobs(cmd.Context(), func(ctx context.Context, jobs *maintenance.Jobs) error {
		res, err := jobs.BackfillReservationExpiry(ctx, dryRun)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	})
}

// ─── audit ──────────────────────────────────────────────────────────────────

var errAuditFailed = errors.New("ledger audit found violations")

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check the ledger invariants (read-only)",
	Long: `Reports copies whose status disagrees with their active transactions,
reservation queues whose positions are not 1..N, and patrons whose balance
differs from the sum of their unpaid fines. Exits non-zero on any finding.`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	return withJobs(cmd.Context(), func(ctx context.Context, jobs *maintenance.Jobs) error {
		report, err := jobs.Audit(ctx)
		if err != nil {
			return err
		}
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		if !report.Clean() {
			return errAuditFailed
		}
		return nil
	})
}

func withJobs(parent context.Context, fn func(ctx context.Context, jobs *maintenance.Jobs) error) error {
	ctx, cancel := context.WithTimeout(parent, jobTimeout)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := maintenance.Open(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer func(db *sqlx.DB) {
		if cerr := db.Close(); cerr != nil {
			fmt.Fprintln(rootCmd.ErrOrStderr(), "close:", cerr)
		}
	}(db)

	return fn(ctx, maintenance.New(db, cfg.Policy))
}
