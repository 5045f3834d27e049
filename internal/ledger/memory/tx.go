package memory

import (
	"context"
	"fmt"
	"time"

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

var _ ledger.Tx = (*tx)(nil)

// tx owns its working state exclusively, so Lock* are plain reads.
type tx struct {
	reader
}

func (t *tx) LockCatalogItem(ctx context.Context, id uuid.UUID) (*catalogModel.CatalogItem, error) {
	return t.GetCatalogItem(ctx, id)
}

func (t *tx) LockCopy(ctx context.Context, id uuid.UUID) (*catalogModel.Copy, error) {
	return t.GetCopy(ctx, id)
}

func (t *tx) LockPatron(ctx context.Context, id uuid.UUID) (*patronModel.Patron, error) {
	return t.GetPatron(ctx, id)
}

func (t *tx) LockTransaction(ctx context.Context, id uuid.UUID) (*circulationModel.Transaction, error) {
	return t.GetTransaction(ctx, id)
}

func (t *tx) LockFine(ctx context.Context, id uuid.UUID) (*fineModel.Fine, error) {
	return t.GetFine(ctx, id)
}

func (t *tx) LockReservation(ctx context.Context, id uuid.UUID) (*reservationModel.Reservation, error) {
	return t.GetReservation(ctx, id)
}

// ========================================
// Branches
// ========================================

func (t *tx) InsertBranch(_ context.Context, b *branchModel.Branch) error {
	if _, ok := t.st.branches[b.ID]; ok {
		return ledger.NewDuplicateError("branch " + b.ID.String())
	}
	t.st.branches[b.ID] = *b
	t.st.stamp(b.ID)
	return nil
}

func (t *tx) UpdateBranch(_ context.Context, b *branchModel.Branch) error {
	if _, ok := t.st.branches[b.ID]; !ok {
		return branchModel.NewBranchNotFoundError(b.ID)
	}
	t.st.branches[b.ID] = *b
	return nil
}

func (t *tx) DeleteBranch(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.st.branches[id]; !ok {
		return branchModel.NewBranchNotFoundError(id)
	}
	n, _ := t.CountCopiesAtBranch(ctx, id)
	if n > 0 {
		return branchModel.NewBranchHasCopiesError(id, n)
	}
	for id2, tr := range t.st.transactions {
		if tr.BranchID != nil && *tr.BranchID == id {
			tr.BranchID = nil
			t.st.transactions[id2] = tr
		}
	}
	delete(t.st.branches, id)
	return nil
}

func (t *tx) CountCopiesAtBranch(_ context.Context, branchID uuid.UUID) (int, error) {
	n := 0
	for _, c := range t.st.copies {
		if c.OwningBranchID == branchID || c.CurrentBranchID == branchID ||
			(c.ReturnToBranchID != nil && *c.ReturnToBranchID == branchID) {
			n++
		}
	}
	return n, nil
}

// ========================================
// Catalog items
// ========================================

func (t *tx) InsertCatalogItem(_ context.Context, item *catalogModel.CatalogItem) error {
	if _, ok := t.st.items[item.ID]; ok {
		return ledger.NewDuplicateError("catalog item " + item.ID.String())
	}
	t.st.items[item.ID] = *item
	t.st.stamp(item.ID)
	return nil
}

func (t *tx) UpdateCatalogItem(_ context.Context, item *catalogModel.CatalogItem) error {
	if _, ok := t.st.items[item.ID]; !ok {
		return catalogModel.NewCatalogItemNotFoundError(item.ID)
	}
	t.st.items[item.ID] = *item
	return nil
}

// DeleteCatalogItem cascades to copies (and their history) and reservations.
func (t *tx) DeleteCatalogItem(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.items[id]; !ok {
		return catalogModel.NewCatalogItemNotFoundError(id)
	}
	for copyID, c := range t.st.copies {
		if c.CatalogItemID == id {
			t.removeCopy(copyID)
		}
	}
	for resID, res := range t.st.reservations {
		if res.CatalogItemID == id {
			delete(t.st.reservations, resID)
		}
	}
	delete(t.st.items, id)
	return nil
}

// ========================================
// Copies
// ========================================

func (t *tx) checkCopyRefs(c *catalogModel.Copy) error {
	if _, ok := t.st.items[c.CatalogItemID]; !ok {
		return ledger.NewInvalidReferenceError("catalog_item_id=" + c.CatalogItemID.String())
	}
	branches := []uuid.UUID{c.OwningBranchID, c.CurrentBranchID}
	if c.ReturnToBranchID != nil {
		branches = append(branches, *c.ReturnToBranchID)
	}
	for _, b := range branches {
		if _, ok := t.st.branches[b]; !ok {
			return ledger.NewInvalidReferenceError("branch_id=" + b.String())
		}
	}
	if c.CheckedOutBy != nil {
		if _, ok := t.st.patrons[*c.CheckedOutBy]; !ok {
			return ledger.NewInvalidReferenceError("checked_out_by=" + c.CheckedOutBy.String())
		}
	}
	if !c.IsLoanConsistent() {
		return fmt.Errorf("copy %s violates loan invariant (status=%s)", c.ID, c.Status)
	}
	return nil
}

func (t *tx) InsertCopy(_ context.Context, c *catalogModel.Copy) error {
	if _, ok := t.st.copies[c.ID]; ok {
		return ledger.NewDuplicateError("copy " + c.ID.String())
	}
	if err := t.checkCopyRefs(c); err != nil {
		return err
	}
	t.st.copies[c.ID] = *c
	t.st.stamp(c.ID)
	return nil
}

func (t *tx) UpdateCopy(_ context.Context, c *catalogModel.Copy) error {
	old, ok := t.st.copies[c.ID]
	if !ok {
		return catalogModel.NewCopyNotFoundError(c.ID)
	}
	if old.CatalogItemID != c.CatalogItemID {
		return fmt.Errorf("copy %s: catalog item is immutable", c.ID)
	}
	if err := t.checkCopyRefs(c); err != nil {
		return err
	}
	t.st.copies[c.ID] = *c
	return nil
}

func (t *tx) DeleteCopy(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.copies[id]; !ok {
		return catalogModel.NewCopyNotFoundError(id)
	}
	t.removeCopy(id)
	return nil
}

// removeCopy mirrors the foreign keys: history cascades, loans and holds
// keep their rows with the copy reference cleared.
func (t *tx) removeCopy(id uuid.UUID) {
	for trID, tr := range t.st.transactions {
		if tr.CopyID != nil && *tr.CopyID == id {
			tr.CopyID = nil
			t.st.transactions[trID] = tr
		}
	}
	for resID, res := range t.st.reservations {
		if res.CopyID != nil && *res.CopyID == id {
			res.CopyID = nil
			t.st.reservations[resID] = res
		}
	}
	delete(t.st.events, id)
	delete(t.st.copies, id)
}

func (t *tx) InsertCopyEvent(_ context.Context, e *catalogModel.CopyEvent) error {
	if _, ok := t.st.copies[e.CopyID]; !ok {
		return ledger.NewInvalidReferenceError("copy_id=" + e.CopyID.String())
	}
	t.st.events[e.CopyID] = append(t.st.events[e.CopyID], *e)
	return nil
}

func (t *tx) LockAvailableCopy(ctx context.Context, itemID uuid.UUID) (*catalogModel.Copy, error) {
	status := catalogModel.StatusAvailable
	copies, _ := t.ListCopies(ctx, ledger.CopyFilter{CatalogItemID: &itemID, Status: &status})
	if len(copies) == 0 {
		return nil, fmt.Errorf("%w: no available copy of item %s", catalogModel.ErrCopyNotFound, itemID)
	}
	return &copies[0], nil
}

// ========================================
// Patrons
// ========================================

func (t *tx) InsertPatron(_ context.Context, p *patronModel.Patron) error {
	if _, ok := t.st.patrons[p.ID]; ok {
		return ledger.NewDuplicateError("patron " + p.ID.String())
	}
	if p.Email != "" {
		for _, other := range t.st.patrons {
			if other.Email == p.Email {
				return ledger.NewDuplicateError("email " + p.Email)
			}
		}
	}
	t.st.patrons[p.ID] = *p
	t.st.stamp(p.ID)
	return nil
}

func (t *tx) UpdatePatron(_ context.Context, p *patronModel.Patron) error {
	if _, ok := t.st.patrons[p.ID]; !ok {
		return patronModel.NewPatronNotFoundError(p.ID)
	}
	if p.Email != "" {
		for id, other := range t.st.patrons {
			if id != p.ID && other.Email == p.Email {
				return ledger.NewDuplicateError("email " + p.Email)
			}
		}
	}
	t.st.patrons[p.ID] = *p
	return nil
}

func (t *tx) AdjustPatronBalance(_ context.Context, patronID uuid.UUID, delta decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	p, ok := t.st.patrons[patronID]
	if !ok {
		return decimal.Zero, patronModel.NewPatronNotFoundError(patronID)
	}
	p.Balance = p.Balance.Add(delta)
	p.UpdatedAt = at
	t.st.patrons[patronID] = p
	return p.Balance, nil
}

// ========================================
// Transactions
// ========================================

func (t *tx) checkTransactionRefs(tr *circulationModel.Transaction) error {
	if _, ok := t.st.patrons[tr.PatronID]; !ok {
		return ledger.NewInvalidReferenceError("patron_id=" + tr.PatronID.String())
	}
	if tr.CopyID != nil {
		if _, ok := t.st.copies[*tr.CopyID]; !ok {
			return ledger.NewInvalidReferenceError("copy_id=" + tr.CopyID.String())
		}
	}
	if tr.BranchID != nil {
		if _, ok := t.st.branches[*tr.BranchID]; !ok {
			return ledger.NewInvalidReferenceError("branch_id=" + tr.BranchID.String())
		}
	}
	return nil
}

func (t *tx) InsertTransaction(_ context.Context, tr *circulationModel.Transaction) error {
	if _, ok := t.st.transactions[tr.ID]; ok {
		return ledger.NewDuplicateError("transaction " + tr.ID.String())
	}
	if err := t.checkTransactionRefs(tr); err != nil {
		return err
	}
	t.st.transactions[tr.ID] = *tr
	t.st.stamp(tr.ID)
	return nil
}

func (t *tx) UpdateTransaction(_ context.Context, tr *circulationModel.Transaction) error {
	if _, ok := t.st.transactions[tr.ID]; !ok {
		return circulationModel.NewTransactionNotFoundError(tr.ID)
	}
	if err := t.checkTransactionRefs(tr); err != nil {
		return err
	}
	t.st.transactions[tr.ID] = *tr
	return nil
}

func (t *tx) LockActiveTransactionForCopy(ctx context.Context, copyID uuid.UUID) (*circulationModel.Transaction, error) {
	status := circulationModel.StatusActive
	txs, _ := t.ListTransactions(ctx, ledger.TransactionFilter{CopyID: &copyID, Status: &status})
	if len(txs) == 0 {
		return nil, circulationModel.NewNoActiveLoanError(copyID)
	}
	return &txs[0], nil
}

// ========================================
// Fines
// ========================================

func (t *tx) InsertFine(_ context.Context, f *fineModel.Fine) error {
	if _, ok := t.st.fines[f.ID]; ok {
		return ledger.NewDuplicateError("fine " + f.ID.String())
	}
	if _, ok := t.st.patrons[f.PatronID]; !ok {
		return ledger.NewInvalidReferenceError("patron_id=" + f.PatronID.String())
	}
	if f.TransactionID != nil {
		if _, ok := t.st.transactions[*f.TransactionID]; !ok {
			return ledger.NewInvalidReferenceError("transaction_id=" + f.TransactionID.String())
		}
	}
	if !f.Amount.IsPositive() {
		return fineModel.ErrInvalidAmount
	}
	t.st.fines[f.ID] = *f
	t.st.stamp(f.ID)
	return nil
}

func (t *tx) UpdateFine(_ context.Context, f *fineModel.Fine) error {
	if _, ok := t.st.fines[f.ID]; !ok {
		return fineModel.NewFineNotFoundError(f.ID)
	}
	t.st.fines[f.ID] = *f
	return nil
}

func (t *tx) DeleteFine(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.fines[id]; !ok {
		return fineModel.NewFineNotFoundError(id)
	}
	delete(t.st.fines, id)
	return nil
}

// ========================================
// Reservations
// ========================================

func (t *tx) InsertReservation(ctx context.Context, r *reservationModel.Reservation) error {
	if _, ok := t.st.reservations[r.ID]; ok {
		return ledger.NewDuplicateError("reservation " + r.ID.String())
	}
	if _, ok := t.st.items[r.CatalogItemID]; !ok {
		return ledger.NewInvalidReferenceError("catalog_item_id=" + r.CatalogItemID.String())
	}
	if _, ok := t.st.patrons[r.PatronID]; !ok {
		return ledger.NewInvalidReferenceError("patron_id=" + r.PatronID.String())
	}
	if r.Status == reservationModel.StatusActive {
		held, _ := t.HasActiveReservation(ctx, r.CatalogItemID, r.PatronID)
		if held {
			return reservationModel.NewDuplicateReservationError(r.CatalogItemID, r.PatronID)
		}
	}
	t.st.reservations[r.ID] = *r
	t.st.stamp(r.ID)
	return nil
}

func (t *tx) UpdateReservation(_ context.Context, r *reservationModel.Reservation) error {
	old, ok := t.st.reservations[r.ID]
	if !ok {
		return reservationModel.NewReservationNotFoundError(r.ID)
	}
	if old.CatalogItemID != r.CatalogItemID {
		return fmt.Errorf("reservation %s: catalog item is immutable", r.ID)
	}
	if r.CopyID != nil {
		if _, ok := t.st.copies[*r.CopyID]; !ok {
			return ledger.NewInvalidReferenceError("copy_id=" + r.CopyID.String())
		}
	}
	t.st.reservations[r.ID] = *r
	return nil
}

func (t *tx) CountActiveReservations(_ context.Context, itemID uuid.UUID) (int, error) {
	n := 0
	for _, r := range t.st.reservations {
		if r.CatalogItemID == itemID && r.Status == reservationModel.StatusActive {
			n++
		}
	}
	return n, nil
}

func (t *tx) HasActiveReservation(_ context.Context, itemID, patronID uuid.UUID) (bool, error) {
	for _, r := range t.st.reservations {
		if r.CatalogItemID == itemID && r.PatronID == patronID && r.Status == reservationModel.StatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) MaxActiveQueuePosition(_ context.Context, itemID uuid.UUID) (int, error) {
	top := 0
	for _, r := range t.st.reservations {
		if r.CatalogItemID == itemID && r.Status == reservationModel.StatusActive && r.QueuePosition > top {
			top = r.QueuePosition
		}
	}
	return top, nil
}

func (t *tx) CloseQueueGap(_ context.Context, itemID uuid.UUID, position int, at time.Time) error {
	for id, r := range t.st.reservations {
		if r.CatalogItemID == itemID && r.Status == reservationModel.StatusActive && r.QueuePosition > position {
			r.QueuePosition--
			r.UpdatedAt = at
			t.st.reservations[id] = r
		}
	}
	return nil
}

func (t *tx) FindHoldForCopy(ctx context.Context, copyID uuid.UUID) (*reservationModel.Reservation, error) {
	status := reservationModel.StatusFulfilled
	holds, _ := t.ListReservations(ctx, ledger.ReservationFilter{Status: &status})
	var latest *reservationModel.Reservation
	for i := range holds {
		h := &holds[i]
		if h.CopyID == nil || *h.CopyID != copyID {
			continue
		}
		if latest == nil || notifiedAfter(h, latest) {
			latest = h
		}
	}
	if latest != nil {
		return latest, nil
	}
	return nil, fmt.Errorf("%w: no hold on copy %s", reservationModel.ErrReservationNotFound, copyID)
}

func (t *tx) ListExpiredReservations(ctx context.Context, asOf time.Time) ([]reservationModel.Reservation, error) {
	status := reservationModel.StatusActive
	active, _ := t.ListReservations(ctx, ledger.ReservationFilter{Status: &status})
	out := make([]reservationModel.Reservation, 0)
	for _, r := range active {
		if r.IsExpired(asOf) {
			out = append(out, r)
		}
	}
	return out, nil
}

// notifiedAfter orders holds by fulfilment time, unset last.
func notifiedAfter(a, b *reservationModel.Reservation) bool {
	switch {
	case a.NotificationSent == nil:
		return false
	case b.NotificationSent == nil:
		return true
	default:
		return a.NotificationSent.After(*b.NotificationSent)
	}
}
