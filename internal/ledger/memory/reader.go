package memory

import (
	"context"
	"sort"
	"strings"

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

// reader implements ledger.Queries over one state value. Results are
// copies; callers never alias stored rows.
type reader struct {
	st *state
}

func paginate[T any](rows []T, p ledger.Page) []T {
	if p.Limit < 1 {
		return rows
	}
	off := p.Offset()
	if off >= len(rows) {
		return []T{}
	}
	end := off + p.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[off:end]
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// ========================================
// Branches
// ========================================

func (r reader) GetBranch(_ context.Context, id uuid.UUID) (*branchModel.Branch, error) {
	b, ok := r.st.branches[id]
	if !ok {
		return nil, branchModel.NewBranchNotFoundError(id)
	}
	return &b, nil
}

func (r reader) ListBranches(_ context.Context) ([]branchModel.Branch, error) {
	out := make([]branchModel.Branch, 0, len(r.st.branches))
	for _, b := range r.st.branches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return r.st.seq[out[i].ID] < r.st.seq[out[j].ID]
	})
	return out, nil
}

// ========================================
// Catalog items & copies
// ========================================

func (r reader) GetCatalogItem(_ context.Context, id uuid.UUID) (*catalogModel.CatalogItem, error) {
	item, ok := r.st.items[id]
	if !ok {
		return nil, catalogModel.NewCatalogItemNotFoundError(id)
	}
	return &item, nil
}

func (r reader) ListCatalogItems(_ context.Context, f ledger.CatalogItemFilter) ([]catalogModel.CatalogItem, int, error) {
	out := make([]catalogModel.CatalogItem, 0)
	for _, item := range r.st.items {
		if f.Type != nil && item.Type != *f.Type {
			continue
		}
		if f.Title != "" && !containsFold(item.Title, f.Title) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return r.st.seq[out[i].ID] < r.st.seq[out[j].ID]
	})
	return paginate(out, f.Page), len(out), nil
}

func (r reader) CountCopiesByStatus(_ context.Context, itemID uuid.UUID) (map[catalogModel.CopyStatus]int, error) {
	counts := map[catalogModel.CopyStatus]int{}
	for _, c := range r.st.copies {
		if c.CatalogItemID == itemID {
			counts[c.Status]++
		}
	}
	return counts, nil
}

func (r reader) GetCopy(_ context.Context, id uuid.UUID) (*catalogModel.Copy, error) {
	c, ok := r.st.copies[id]
	if !ok {
		return nil, catalogModel.NewCopyNotFoundError(id)
	}
	return &c, nil
}

func (r reader) ListCopies(_ context.Context, f ledger.CopyFilter) ([]catalogModel.Copy, error) {
	out := make([]catalogModel.Copy, 0)
	for _, c := range r.st.copies {
		if f.CatalogItemID != nil && c.CatalogItemID != *f.CatalogItemID {
			continue
		}
		if f.BranchID != nil && c.CurrentBranchID != *f.BranchID {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		out = append(out, c)
	}
	r.sortCopies(out)
	return paginate(out, f.Page), nil
}

// sortCopies orders oldest acquisition first.
func (r reader) sortCopies(out []catalogModel.Copy) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AcquisitionDate.Equal(out[j].AcquisitionDate) {
			return out[i].AcquisitionDate.Before(out[j].AcquisitionDate)
		}
		return r.st.seq[out[i].ID] < r.st.seq[out[j].ID]
	})
}

func (r reader) ListCopyEvents(_ context.Context, copyID uuid.UUID) ([]catalogModel.CopyEvent, error) {
	if _, ok := r.st.copies[copyID]; !ok {
		return nil, catalogModel.NewCopyNotFoundError(copyID)
	}
	return append([]catalogModel.CopyEvent{}, r.st.events[copyID]...), nil
}

// ========================================
// Patrons
// ========================================

func (r reader) GetPatron(_ context.Context, id uuid.UUID) (*patronModel.Patron, error) {
	p, ok := r.st.patrons[id]
	if !ok {
		return nil, patronModel.NewPatronNotFoundError(id)
	}
	return &p, nil
}

func (r reader) ListPatrons(_ context.Context, f ledger.PatronFilter) ([]patronModel.Patron, int, error) {
	out := make([]patronModel.Patron, 0)
	for _, p := range r.st.patrons {
		if f.Active != nil && p.IsActive != *f.Active {
			continue
		}
		if f.Name != "" && !containsFold(p.Name, f.Name) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return r.st.seq[out[i].ID] < r.st.seq[out[j].ID]
	})
	return paginate(out, f.Page), len(out), nil
}

// ========================================
// Transactions
// ========================================

func (r reader) GetTransaction(_ context.Context, id uuid.UUID) (*circulationModel.Transaction, error) {
	t, ok := r.st.transactions[id]
	if !ok {
		return nil, circulationModel.NewTransactionNotFoundError(id)
	}
	return &t, nil
}

func (r reader) ListTransactions(_ context.Context, f ledger.TransactionFilter) ([]circulationModel.Transaction, error) {
	out := make([]circulationModel.Transaction, 0)
	for _, t := range r.st.transactions {
		if f.PatronID != nil && t.PatronID != *f.PatronID {
			continue
		}
		if f.CopyID != nil && (t.CopyID == nil || *t.CopyID != *f.CopyID) {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.DueBefore != nil && (t.Status != circulationModel.StatusActive || !t.DueDate.Before(*f.DueBefore)) {
			continue
		}
		out = append(out, t)
	}
	r.sortTransactions(out)
	return paginate(out, f.Page), nil
}

// sortTransactions orders most recent checkout first.
func (r reader) sortTransactions(out []circulationModel.Transaction) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckoutDate.Equal(out[j].CheckoutDate) {
			return out[i].CheckoutDate.After(out[j].CheckoutDate)
		}
		return r.st.seq[out[i].ID] > r.st.seq[out[j].ID]
	})
}

// ========================================
// Fines
// ========================================

func (r reader) GetFine(_ context.Context, id uuid.UUID) (*fineModel.Fine, error) {
	f, ok := r.st.fines[id]
	if !ok {
		return nil, fineModel.NewFineNotFoundError(id)
	}
	return &f, nil
}

func (r reader) ListFines(_ context.Context, f ledger.FineFilter) ([]fineModel.Fine, error) {
	out := make([]fineModel.Fine, 0)
	for _, fine := range r.st.fines {
		if f.PatronID != nil && fine.PatronID != *f.PatronID {
			continue
		}
		if f.Paid != nil && fine.IsPaid != *f.Paid {
			continue
		}
		out = append(out, fine)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return r.st.seq[out[i].ID] > r.st.seq[out[j].ID]
	})
	return paginate(out, f.Page), nil
}

func (r reader) SumUnpaidFines(_ context.Context, patronID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, f := range r.st.fines {
		if f.PatronID == patronID && !f.IsPaid {
			sum = sum.Add(f.Amount)
		}
	}
	return sum, nil
}

// ========================================
// Reservations
// ========================================

func (r reader) GetReservation(_ context.Context, id uuid.UUID) (*reservationModel.Reservation, error) {
	res, ok := r.st.reservations[id]
	if !ok {
		return nil, reservationModel.NewReservationNotFoundError(id)
	}
	return &res, nil
}

func (r reader) ListReservations(_ context.Context, f ledger.ReservationFilter) ([]reservationModel.Reservation, error) {
	out := make([]reservationModel.Reservation, 0)
	for _, res := range r.st.reservations {
		if f.CatalogItemID != nil && res.CatalogItemID != *f.CatalogItemID {
			continue
		}
		if f.PatronID != nil && res.PatronID != *f.PatronID {
			continue
		}
		if f.Status != nil && res.Status != *f.Status {
			continue
		}
		out = append(out, res)
	}
	r.sortReservations(out)
	return paginate(out, f.Page), nil
}

func (r reader) sortReservations(out []reservationModel.Reservation) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReservationDate.Equal(out[j].ReservationDate) {
			return out[i].ReservationDate.Before(out[j].ReservationDate)
		}
		if out[i].QueuePosition != out[j].QueuePosition {
			return out[i].QueuePosition < out[j].QueuePosition
		}
		return r.st.seq[out[i].ID] < r.st.seq[out[j].ID]
	})
}
