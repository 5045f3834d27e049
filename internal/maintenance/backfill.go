package maintenance

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

const countMissingExpiry = `SELECT COUNT(*) FROM reservations WHERE expiry_date IS NULL`

// Rows written before expiry_date existed used a five day window, not the
// seven days new reservations get.
const backfillExpiry = `
UPDATE reservations
   SET expiry_date = reservation_date + make_interval(days => $1),
       updated_at  = NOW()
 WHERE expiry_date IS NULL`

// BackfillResult reports how many reservations lacked an expiry date
type BackfillResult struct {
	Missing int64 `json:"missing"`
	Updated int64 `json:"updated"`
	Days    int   `json:"days"`
	DryRun  bool  `json:"dry_run"`
}

// BackfillReservationExpiry sets expiry_date = reservation_date + the
// legacy expiry window on every row where it is NULL. With dryRun only the
// count is reported.
func (j *Jobs) BackfillReservationExpiry(ctx context.Context, dryRun bool) (*BackfillResult, error) {
	res := &BackfillResult{Days: j.policy.LegacyReservationExpiryDays, DryRun: dryRun}

	if err := j.db.GetContext(ctx, &res.Missing, countMissingExpiry); err != nil {
		return nil, fmt.Errorf("count reservations without expiry: %w", err)
	}
	if dryRun || res.Missing == 0 {
		return res, nil
	}

	out, err := j.db.ExecContext(ctx, backfillExpiry, res.Days)
	if err != nil {
		return nil, fmt.Errorf("backfill reservation expiry: %w", err)
	}
	if res.Updated, err = out.RowsAffected(); err != nil {
		return nil, fmt.Errorf("backfill reservation expiry: %w", err)
	}

	log.Info().
		Int64("updated", res.Updated).
		Int("days", res.Days).
		Msg("Reservation expiry backfilled")
	return res, nil
}
