package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	branchModel "library-backend/internal/domains/branch/model"
	catalogModel "library-backend/internal/domains/catalog/model"
	circulationModel "library-backend/internal/domains/circulation/model"
	fineModel "library-backend/internal/domains/fine/model"
	patronModel "library-backend/internal/domains/patron/model"
	reservationModel "library-backend/internal/domains/reservation/model"
	"library-backend/internal/ledger"
)

// ========================================
// ROW LOCKS (SELECT ... FOR UPDATE)
// ========================================

func (t *tx) LockCatalogItem(ctx context.Context, id uuid.UUID) (*catalogModel.CatalogItem, error) {
	ds := dialect.From(tableItems).Select(itemColumns...).Where(byID(id)).ForUpdate(exp.Wait)
	return selectOne(ctx, t.db, ds, scanItem, "lock catalog item", catalogModel.NewCatalogItemNotFoundError(id))
}

func (t *tx) LockCopy(ctx context.Context, id uuid.UUID) (*catalogModel.Copy, error) {
	ds := dialect.From(tableCopies).Select(copyColumns...).Where(byID(id)).ForUpdate(exp.Wait)
	return selectOne(ctx, t.db, ds, scanCopy, "lock copy", catalogModel.NewCopyNotFoundError(id))
}

func (t *tx) LockPatron(ctx context.Context, id uuid.UUID) (*patronModel.Patron, error) {
	ds := dialect.From(tablePatrons).Select(patronColumns...).Where(byID(id)).ForUpdate(exp.Wait)
	return selectOne(ctx, t.db, ds, scanPatron, "lock patron", patronModel.NewPatronNotFoundError(id))
}

func (t *tx) LockTransaction(ctx context.Context, id uuid.UUID) (*circulationModel.Transaction, error) {
	ds := dialect.From(tableTransactions).Select(transactionColumns...).Where(byID(id)).ForUpdate(exp.Wait)
	return selectOne(ctx, t.db, ds, scanTransaction, "lock transaction", circulationModel.NewTransactionNotFoundError(id))
}

func (t *tx) LockFine(ctx context.Context, id uuid.UUID) (*fineModel.Fine, error) {
	ds := dialect.From(tableFines).Select(fineColumns...).Where(byID(id)).ForUpdate(exp.Wait)
	return selectOne(ctx, t.db, ds, scanFine, "lock fine", fineModel.NewFineNotFoundError(id))
}

func (t *tx) LockReservation(ctx context.Context, id uuid.UUID) (*reservationModel.Reservation, error) {
	ds := dialect.From(tableReservations).Select(reservationColumns...).Where(byID(id)).ForUpdate(exp.Wait)
	return selectOne(ctx, t.db, ds, scanReservation, "lock reservation", reservationModel.NewReservationNotFoundError(id))
}

// ========================================
// Branches
// ========================================

func (t *tx) InsertBranch(ctx context.Context, b *branchModel.Branch) error {
	query := `
		INSERT INTO branches (id, name, address, is_main, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := t.db.Exec(ctx, query, b.ID, b.Name, b.Address, b.IsMain, b.CreatedAt, b.UpdatedAt)
	return mapError(err, "insert branch", nil)
}

func (t *tx) UpdateBranch(ctx context.Context, b *branchModel.Branch) error {
	query := `
		UPDATE branches SET name = $2, address = $3, is_main = $4, updated_at = $5
		WHERE id = $1
	`
	tag, err := t.db.Exec(ctx, query, b.ID, b.Name, b.Address, b.IsMain, b.UpdatedAt)
	if err != nil {
		return mapError(err, "update branch", nil)
	}
	return requireRow(tag, branchModel.NewBranchNotFoundError(b.ID))
}

func (t *tx) DeleteBranch(ctx context.Context, id uuid.UUID) error {
	tag, err := t.db.Exec(ctx, `DELETE FROM branches WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete branch", nil)
	}
	return requireRow(tag, branchModel.NewBranchNotFoundError(id))
}

func (t *tx) CountCopiesAtBranch(ctx context.Context, branchID uuid.UUID) (int, error) {
	ds := dialect.From(tableCopies).Where(goqu.Or(
		goqu.Ex{"owning_branch_id": branchID.String()},
		goqu.Ex{"current_branch_id": branchID.String()},
		goqu.Ex{"return_to_branch_id": branchID.String()},
	))
	return selectCount(ctx, t.db, ds, "count copies at branch")
}

// ========================================
// Catalog items
// ========================================

func (t *tx) InsertCatalogItem(ctx context.Context, item *catalogModel.CatalogItem) error {
	query := `
		INSERT INTO catalog_items (id, title, item_type, publication_year, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := t.db.Exec(ctx, query,
		item.ID, item.Title, item.Type, item.PublicationYear, item.Description, item.CreatedAt, item.UpdatedAt)
	return mapError(err, "insert catalog item", nil)
}

func (t *tx) UpdateCatalogItem(ctx context.Context, item *catalogModel.CatalogItem) error {
	query := `
		UPDATE catalog_items
		SET title = $2, item_type = $3, publication_year = $4, description = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := t.db.Exec(ctx, query,
		item.ID, item.Title, item.Type, item.PublicationYear, item.Description, item.UpdatedAt)
	if err != nil {
		return mapError(err, "update catalog item", nil)
	}
	return requireRow(tag, catalogModel.NewCatalogItemNotFoundError(item.ID))
}

// DeleteCatalogItem relies on ON DELETE CASCADE for copies and reservations.
func (t *tx) DeleteCatalogItem(ctx context.Context, id uuid.UUID) error {
	tag, err := t.db.Exec(ctx, `DELETE FROM catalog_items WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete catalog item", nil)
	}
	return requireRow(tag, catalogModel.NewCatalogItemNotFoundError(id))
}

// ========================================
// Copies
// ========================================

func (t *tx) InsertCopy(ctx context.Context, c *catalogModel.Copy) error {
	query := `
		INSERT INTO copies (
			id, catalog_item_id, owning_branch_id, current_branch_id, return_to_branch_id,
			condition, status, cost, notes, acquisition_date, due_date, checked_out_by,
			status_note, status_changed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := t.db.Exec(ctx, query,
		c.ID, c.CatalogItemID, c.OwningBranchID, c.CurrentBranchID, c.ReturnToBranchID,
		c.Condition, c.Status, c.Cost, c.Notes, c.AcquisitionDate, c.DueDate, c.CheckedOutBy,
		c.StatusNote, c.StatusChangedAt, c.CreatedAt, c.UpdatedAt,
	)
	return mapError(err, "insert copy", nil)
}

// UpdateCopy never touches catalog_item_id.
func (t *tx) UpdateCopy(ctx context.Context, c *catalogModel.Copy) error {
	query := `
		UPDATE copies SET
			owning_branch_id = $2, current_branch_id = $3, return_to_branch_id = $4,
			condition = $5, status = $6, cost = $7, notes = $8, due_date = $9, checked_out_by = $10,
			status_note = $11, status_changed_at = $12, updated_at = $13
		WHERE id = $1
	`
	tag, err := t.db.Exec(ctx, query,
		c.ID, c.OwningBranchID, c.CurrentBranchID, c.ReturnToBranchID,
		c.Condition, c.Status, c.Cost, c.Notes, c.DueDate, c.CheckedOutBy,
		c.StatusNote, c.StatusChangedAt, c.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "update copy", nil)
	}
	return requireRow(tag, catalogModel.NewCopyNotFoundError(c.ID))
}

func (t *tx) DeleteCopy(ctx context.Context, id uuid.UUID) error {
	tag, err := t.db.Exec(ctx, `DELETE FROM copies WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete copy", nil)
	}
	return requireRow(tag, catalogModel.NewCopyNotFoundError(id))
}

func (t *tx) InsertCopyEvent(ctx context.Context, e *catalogModel.CopyEvent) error {
	query := `
		INSERT INTO copy_status_events (id, copy_id, from_status, to_status, trigger, note, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := t.db.Exec(ctx, query, e.ID, e.CopyID, e.FromStatus, e.ToStatus, e.Trigger, e.Note, e.ChangedAt)
	return mapError(err, "insert copy event", nil)
}

// LockAvailableCopy skips copies locked by concurrent fulfilments.
func (t *tx) LockAvailableCopy(ctx context.Context, itemID uuid.UUID) (*catalogModel.Copy, error) {
	status := catalogModel.StatusAvailable
	ds := copyListDataset(ledger.CopyFilter{CatalogItemID: &itemID, Status: &status}).
		Limit(1).
		ForUpdate(exp.SkipLocked)
	notFound := fmt.Errorf("%w: no available copy of item %s", catalogModel.ErrCopyNotFound, itemID)
	return selectOne(ctx, t.db, ds, scanCopy, "lock available copy", notFound)
}

// ========================================
// Patrons
// ========================================

func (t *tx) InsertPatron(ctx context.Context, p *patronModel.Patron) error {
	query := `
		INSERT INTO patrons (
			id, name, email, phone, address, balance, card_expiration_date, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := t.db.Exec(ctx, query,
		p.ID, p.Name, p.Email, p.Phone, p.Address, p.Balance, p.CardExpirationDate,
		p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	return mapError(err, "insert patron", nil)
}

// UpdatePatron leaves balance alone; see AdjustPatronBalance.
func (t *tx) UpdatePatron(ctx context.Context, p *patronModel.Patron) error {
	query := `
		UPDATE patrons SET
			name = $2, email = $3, phone = $4, address = $5,
			card_expiration_date = $6, is_active = $7, updated_at = $8
		WHERE id = $1
	`
	tag, err := t.db.Exec(ctx, query,
		p.ID, p.Name, p.Email, p.Phone, p.Address, p.CardExpirationDate, p.IsActive, p.UpdatedAt)
	if err != nil {
		return mapError(err, "update patron", nil)
	}
	return requireRow(tag, patronModel.NewPatronNotFoundError(p.ID))
}

func (t *tx) AdjustPatronBalance(ctx context.Context, patronID uuid.UUID, delta decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	query := `
		UPDATE patrons SET balance = balance + $2, updated_at = $3
		WHERE id = $1
		RETURNING balance
	`
	var balance decimal.Decimal
	err := t.db.QueryRow(ctx, query, patronID, delta, at).Scan(&balance)
	if err != nil {
		return decimal.Zero, mapError(err, "adjust patron balance", patronModel.NewPatronNotFoundError(patronID))
	}
	return balance, nil
}

// ========================================
// Transactions
// ========================================

func (t *tx) InsertTransaction(ctx context.Context, tr *circulationModel.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, copy_id, patron_id, branch_id, transaction_type, checkout_date, due_date,
			return_date, fine_amount, renewal_count, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := t.db.Exec(ctx, query,
		tr.ID, tr.CopyID, tr.PatronID, tr.BranchID, tr.Type, tr.CheckoutDate, tr.DueDate,
		tr.ReturnDate, tr.FineAmount, tr.RenewalCount, tr.Status, tr.CreatedAt, tr.UpdatedAt,
	)
	return mapError(err, "insert transaction", nil)
}

func (t *tx) UpdateTransaction(ctx context.Context, tr *circulationModel.Transaction) error {
	query := `
		UPDATE transactions SET
			transaction_type = $2, due_date = $3, return_date = $4, fine_amount = $5,
			renewal_count = $6, status = $7, updated_at = $8
		WHERE id = $1
	`
	tag, err := t.db.Exec(ctx, query,
		tr.ID, tr.Type, tr.DueDate, tr.ReturnDate, tr.FineAmount, tr.RenewalCount, tr.Status, tr.UpdatedAt)
	if err != nil {
		return mapError(err, "update transaction", nil)
	}
	return requireRow(tag, circulationModel.NewTransactionNotFoundError(tr.ID))
}

func (t *tx) LockActiveTransactionForCopy(ctx context.Context, copyID uuid.UUID) (*circulationModel.Transaction, error) {
	status := circulationModel.StatusActive
	ds := transactionListDataset(ledger.TransactionFilter{CopyID: &copyID, Status: &status}).
		Limit(1).
		ForUpdate(exp.Wait)
	return selectOne(ctx, t.db, ds, scanTransaction, "lock active transaction", circulationModel.NewNoActiveLoanError(copyID))
}

// ========================================
// Fines
// ========================================

func (t *tx) InsertFine(ctx context.Context, f *fineModel.Fine) error {
	query := `
		INSERT INTO fines (
			id, transaction_id, patron_id, amount, reason, is_paid, paid_date, payment_method, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := t.db.Exec(ctx, query,
		f.ID, f.TransactionID, f.PatronID, f.Amount, f.Reason, f.IsPaid, f.PaidDate,
		f.PaymentMethod, f.CreatedAt, f.UpdatedAt,
	)
	return mapError(err, "insert fine", nil)
}

func (t *tx) UpdateFine(ctx context.Context, f *fineModel.Fine) error {
	query := `
		UPDATE fines SET is_paid = $2, paid_date = $3, payment_method = $4, updated_at = $5
		WHERE id = $1
	`
	tag, err := t.db.Exec(ctx, query, f.ID, f.IsPaid, f.PaidDate, f.PaymentMethod, f.UpdatedAt)
	if err != nil {
		return mapError(err, "update fine", nil)
	}
	return requireRow(tag, fineModel.NewFineNotFoundError(f.ID))
}

func (t *tx) DeleteFine(ctx context.Context, id uuid.UUID) error {
	tag, err := t.db.Exec(ctx, `DELETE FROM fines WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete fine", nil)
	}
	return requireRow(tag, fineModel.NewFineNotFoundError(id))
}

// ========================================
// Reservations
// ========================================

func (t *tx) InsertReservation(ctx context.Context, r *reservationModel.Reservation) error {
	query := `
		INSERT INTO reservations (
			id, catalog_item_id, patron_id, reservation_date, expiry_date, status,
			queue_position, notification_sent, copy_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := t.db.Exec(ctx, query,
		r.ID, r.CatalogItemID, r.PatronID, r.ReservationDate, r.ExpiryDate, r.Status,
		r.QueuePosition, r.NotificationSent, r.CopyID, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		mapped := mapError(err, "insert reservation", nil)
		if ledger.IsDuplicate(mapped) {
			return reservationModel.NewDuplicateReservationError(r.CatalogItemID, r.PatronID)
		}
		return mapped
	}
	return nil
}

func (t *tx) UpdateReservation(ctx context.Context, r *reservationModel.Reservation) error {
	query := `
		UPDATE reservations SET
			expiry_date = $2, status = $3, queue_position = $4,
			notification_sent = $5, copy_id = $6, updated_at = $7
		WHERE id = $1
	`
	tag, err := t.db.Exec(ctx, query,
		r.ID, r.ExpiryDate, r.Status, r.QueuePosition, r.NotificationSent, r.CopyID, r.UpdatedAt)
	if err != nil {
		return mapError(err, "update reservation", nil)
	}
	return requireRow(tag, reservationModel.NewReservationNotFoundError(r.ID))
}

func (t *tx) activeQueue(itemID uuid.UUID) *goqu.SelectDataset {
	return dialect.From(tableReservations).Where(goqu.Ex{
		"catalog_item_id": itemID.String(),
		"status":          string(reservationModel.StatusActive),
	})
}

func (t *tx) CountActiveReservations(ctx context.Context, itemID uuid.UUID) (int, error) {
	return selectCount(ctx, t.db, t.activeQueue(itemID), "count active reservations")
}

func (t *tx) HasActiveReservation(ctx context.Context, itemID, patronID uuid.UUID) (bool, error) {
	n, err := selectCount(ctx, t.db,
		t.activeQueue(itemID).Where(goqu.Ex{"patron_id": patronID.String()}),
		"check active reservation")
	return n > 0, err
}

func (t *tx) MaxActiveQueuePosition(ctx context.Context, itemID uuid.UUID) (int, error) {
	query, args, err := t.activeQueue(itemID).
		Select(goqu.COALESCE(goqu.MAX("queue_position"), 0)).
		Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("max queue position: build query: %w", err)
	}
	var top int
	if err := t.db.QueryRow(ctx, query, args...).Scan(&top); err != nil {
		return 0, mapError(err, "max queue position", nil)
	}
	return top, nil
}

// CloseQueueGap shifts the tail of the active queue up by one. The
// exclusion constraint on positions is deferred to commit.
func (t *tx) CloseQueueGap(ctx context.Context, itemID uuid.UUID, position int, at time.Time) error {
	query := `
		UPDATE reservations
		SET queue_position = queue_position - 1, updated_at = $3
		WHERE catalog_item_id = $1 AND status = 'active' AND queue_position > $2
	`
	_, err := t.db.Exec(ctx, query, itemID, position, at)
	return mapError(err, "close queue gap", nil)
}

func (t *tx) FindHoldForCopy(ctx context.Context, copyID uuid.UUID) (*reservationModel.Reservation, error) {
	ds := dialect.From(tableReservations).Select(reservationColumns...).
		Where(goqu.Ex{"copy_id": copyID.String(), "status": string(reservationModel.StatusFulfilled)}).
		Order(goqu.I("notification_sent").Desc().NullsLast(), goqu.I("updated_at").Desc()).
		Limit(1).
		ForUpdate(exp.Wait)
	notFound := fmt.Errorf("%w: no hold on copy %s", reservationModel.ErrReservationNotFound, copyID)
	return selectOne(ctx, t.db, ds, scanReservation, "find hold for copy", notFound)
}

func (t *tx) ListExpiredReservations(ctx context.Context, asOf time.Time) ([]reservationModel.Reservation, error) {
	ds := dialect.From(tableReservations).Select(reservationColumns...).
		Where(
			goqu.Ex{"status": string(reservationModel.StatusActive)},
			goqu.C("expiry_date").IsNotNull(),
			goqu.C("expiry_date").Lt(asOf),
		).
		Order(goqu.I("reservation_date").Asc(), goqu.I("id").Asc())
	return selectMany(ctx, t.db, ds, scanReservation, "list expired reservations")
}
