package postgres

import (
	branchModel "library-backend/internal/domains/branch/model"
	catalogModel "library-backend/internal/domains/catalog/model"
	circulationModel "library-backend/internal/domains/circulation/model"
	fineModel "library-backend/internal/domains/fine/model"
	patronModel "library-backend/internal/domains/patron/model"
	reservationModel "library-backend/internal/domains/reservation/model"
)

const (
	tableBranches     = "branches"
	tableItems        = "catalog_items"
	tableCopies       = "copies"
	tableCopyEvents   = "copy_status_events"
	tablePatrons      = "patrons"
	tableTransactions = "transactions"
	tableFines        = "fines"
	tableReservations = "reservations"
	dialectPostgres   = "postgres"
)

// Column lists, in the order the scan functions below expect.
var (
	branchColumns = []any{"id", "name", "address", "is_main", "created_at", "updated_at"}

	itemColumns = []any{"id", "title", "item_type", "publication_year", "description", "created_at", "updated_at"}

	copyColumns = []any{
		"id", "catalog_item_id", "owning_branch_id", "current_branch_id", "return_to_branch_id",
		"condition", "status", "cost", "notes", "acquisition_date", "due_date", "checked_out_by",
		"status_note", "status_changed_at", "created_at", "updated_at",
	}

	eventColumns = []any{"id", "copy_id", "from_status", "to_status", "trigger", "note", "changed_at"}

	patronColumns = []any{
		"id", "name", "email", "phone", "address", "balance", "card_expiration_date",
		"is_active", "created_at", "updated_at",
	}

	transactionColumns = []any{
		"id", "copy_id", "patron_id", "branch_id", "transaction_type", "checkout_date", "due_date",
		"return_date", "fine_amount", "renewal_count", "status", "created_at", "updated_at",
	}

	fineColumns = []any{
		"id", "transaction_id", "patron_id", "amount", "reason", "is_paid", "paid_date",
		"payment_method", "created_at", "updated_at",
	}

	reservationColumns = []any{
		"id", "catalog_item_id", "patron_id", "reservation_date", "expiry_date", "status",
		"queue_position", "notification_sent", "copy_id", "created_at", "updated_at",
	}
)

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBranch(row rowScanner) (*branchModel.Branch, error) {
	var b branchModel.Branch
	err := row.Scan(&b.ID, &b.Name, &b.Address, &b.IsMain, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanItem(row rowScanner) (*catalogModel.CatalogItem, error) {
	var i catalogModel.CatalogItem
	err := row.Scan(&i.ID, &i.Title, &i.Type, &i.PublicationYear, &i.Description, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func scanCopy(row rowScanner) (*catalogModel.Copy, error) {
	var c catalogModel.Copy
	err := row.Scan(
		&c.ID, &c.CatalogItemID, &c.OwningBranchID, &c.CurrentBranchID, &c.ReturnToBranchID,
		&c.Condition, &c.Status, &c.Cost, &c.Notes, &c.AcquisitionDate, &c.DueDate, &c.CheckedOutBy,
		&c.StatusNote, &c.StatusChangedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanEvent(row rowScanner) (*catalogModel.CopyEvent, error) {
	var e catalogModel.CopyEvent
	err := row.Scan(&e.ID, &e.CopyID, &e.FromStatus, &e.ToStatus, &e.Trigger, &e.Note, &e.ChangedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanPatron(row rowScanner) (*patronModel.Patron, error) {
	var p patronModel.Patron
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.Address, &p.Balance, &p.CardExpirationDate,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanTransaction(row rowScanner) (*circulationModel.Transaction, error) {
	var t circulationModel.Transaction
	err := row.Scan(
		&t.ID, &t.CopyID, &t.PatronID, &t.BranchID, &t.Type, &t.CheckoutDate, &t.DueDate,
		&t.ReturnDate, &t.FineAmount, &t.RenewalCount, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanFine(row rowScanner) (*fineModel.Fine, error) {
	var f fineModel.Fine
	err := row.Scan(
		&f.ID, &f.TransactionID, &f.PatronID, &f.Amount, &f.Reason, &f.IsPaid, &f.PaidDate,
		&f.PaymentMethod, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanReservation(row rowScanner) (*reservationModel.Reservation, error) {
	var r reservationModel.Reservation
	err := row.Scan(
		&r.ID, &r.CatalogItemID, &r.PatronID, &r.ReservationDate, &r.ExpiryDate, &r.Status,
		&r.QueuePosition, &r.NotificationSent, &r.CopyID, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
