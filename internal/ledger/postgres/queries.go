package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
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

var dialect = goqu.Dialect(dialectPostgres)

// ========================================
// QUERY HELPERS
// ========================================

func selectOne[T any](ctx context.Context, db dbtx, ds *goqu.SelectDataset,
	scan func(rowScanner) (*T, error), op string, notFound error) (*T, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	v, err := scan(db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, op, notFound)
	}
	return v, nil
}

func selectMany[T any](ctx context.Context, db dbtx, ds *goqu.SelectDataset,
	scan func(rowScanner) (*T, error), op string) ([]T, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, op, nil)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, op, nil)
	}
	return out, nil
}

func selectCount(ctx context.Context, db dbtx, ds *goqu.SelectDataset, op string) (int, error) {
	query, args, err := ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("%s: build count query: %w", op, err)
	}
	var n int
	if err := db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapError(err, op, nil)
	}
	return n, nil
}

func paged(ds *goqu.SelectDataset, p ledger.Page) *goqu.SelectDataset {
	if p.Limit < 1 {
		return ds
	}
	return ds.Limit(uint(p.Limit)).Offset(uint(p.Offset()))
}

func byID(id uuid.UUID) exp.Ex {
	return goqu.Ex{"id": id.String()}
}

// ========================================
// Branches
// ========================================

func (q queries) GetBranch(ctx context.Context, id uuid.UUID) (*branchModel.Branch, error) {
	ds := dialect.From(tableBranches).Select(branchColumns...).Where(byID(id))
	return selectOne(ctx, q.db, ds, scanBranch, "get branch", branchModel.NewBranchNotFoundError(id))
}

func (q queries) ListBranches(ctx context.Context) ([]branchModel.Branch, error) {
	ds := dialect.From(tableBranches).Select(branchColumns...).Order(goqu.I("name").Asc(), goqu.I("created_at").Asc())
	return selectMany(ctx, q.db, ds, scanBranch, "list branches")
}

// ========================================
// Catalog items & copies
// ========================================

func (q queries) GetCatalogItem(ctx context.Context, id uuid.UUID) (*catalogModel.CatalogItem, error) {
	ds := dialect.From(tableItems).Select(itemColumns...).Where(byID(id))
	return selectOne(ctx, q.db, ds, scanItem, "get catalog item", catalogModel.NewCatalogItemNotFoundError(id))
}

func (q queries) ListCatalogItems(ctx context.Context, f ledger.CatalogItemFilter) ([]catalogModel.CatalogItem, int, error) {
	ds := dialect.From(tableItems)
	if f.Type != nil {
		ds = ds.Where(goqu.C("item_type").Eq(string(*f.Type)))
	}
	if f.Title != "" {
		ds = ds.Where(goqu.C("title").ILike("%" + f.Title + "%"))
	}

	total, err := selectCount(ctx, q.db, ds, "count catalog items")
	if err != nil {
		return nil, 0, err
	}

	ds = paged(ds.Select(itemColumns...).Order(goqu.I("title").Asc(), goqu.I("created_at").Asc()), f.Page)
	items, err := selectMany(ctx, q.db, ds, scanItem, "list catalog items")
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (q queries) CountCopiesByStatus(ctx context.Context, itemID uuid.UUID) (map[catalogModel.CopyStatus]int, error) {
	query, args, err := dialect.From(tableCopies).
		Select(goqu.C("status"), goqu.COUNT(goqu.Star())).
		Where(goqu.Ex{"catalog_item_id": itemID.String()}).
		GroupBy(goqu.C("status")).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("count copies: build query: %w", err)
	}

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "count copies", nil)
	}
	defer rows.Close()

	counts := map[catalogModel.CopyStatus]int{}
	for rows.Next() {
		var status catalogModel.CopyStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("count copies: scan row: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (q queries) GetCopy(ctx context.Context, id uuid.UUID) (*catalogModel.Copy, error) {
	ds := dialect.From(tableCopies).Select(copyColumns...).Where(byID(id))
	return selectOne(ctx, q.db, ds, scanCopy, "get copy", catalogModel.NewCopyNotFoundError(id))
}

func copyListDataset(f ledger.CopyFilter) *goqu.SelectDataset {
	ds := dialect.From(tableCopies).Select(copyColumns...)
	if f.CatalogItemID != nil {
		ds = ds.Where(goqu.Ex{"catalog_item_id": f.CatalogItemID.String()})
	}
	if f.BranchID != nil {
		ds = ds.Where(goqu.Ex{"current_branch_id": f.BranchID.String()})
	}
	if f.Status != nil {
		ds = ds.Where(goqu.Ex{"status": string(*f.Status)})
	}
	return ds.Order(goqu.I("acquisition_date").Asc(), goqu.I("created_at").Asc(), goqu.I("id").Asc())
}

func (q queries) ListCopies(ctx context.Context, f ledger.CopyFilter) ([]catalogModel.Copy, error) {
	return selectMany(ctx, q.db, paged(copyListDataset(f), f.Page), scanCopy, "list copies")
}

func (q queries) ListCopyEvents(ctx context.Context, copyID uuid.UUID) ([]catalogModel.CopyEvent, error) {
	if _, err := q.GetCopy(ctx, copyID); err != nil {
		return nil, err
	}
	ds := dialect.From(tableCopyEvents).Select(eventColumns...).
		Where(goqu.Ex{"copy_id": copyID.String()}).
		Order(goqu.I("changed_at").Asc(), goqu.I("id").Asc())
	return selectMany(ctx, q.db, ds, scanEvent, "list copy events")
}

// ========================================
// Patrons
// ========================================

func (q queries) GetPatron(ctx context.Context, id uuid.UUID) (*patronModel.Patron, error) {
	ds := dialect.From(tablePatrons).Select(patronColumns...).Where(byID(id))
	return selectOne(ctx, q.db, ds, scanPatron, "get patron", patronModel.NewPatronNotFoundError(id))
}

func (q queries) ListPatrons(ctx context.Context, f ledger.PatronFilter) ([]patronModel.Patron, int, error) {
	ds := dialect.From(tablePatrons)
	if f.Active != nil {
		ds = ds.Where(goqu.Ex{"is_active": *f.Active})
	}
	if f.Name != "" {
		ds = ds.Where(goqu.C("name").ILike("%" + f.Name + "%"))
	}

	total, err := selectCount(ctx, q.db, ds, "count patrons")
	if err != nil {
		return nil, 0, err
	}

	ds = paged(ds.Select(patronColumns...).Order(goqu.I("name").Asc(), goqu.I("created_at").Asc()), f.Page)
	patrons, err := selectMany(ctx, q.db, ds, scanPatron, "list patrons")
	if err != nil {
		return nil, 0, err
	}
	return patrons, total, nil
}

// ========================================
// Transactions
// ========================================

func (q queries) GetTransaction(ctx context.Context, id uuid.UUID) (*circulationModel.Transaction, error) {
	ds := dialect.From(tableTransactions).Select(transactionColumns...).Where(byID(id))
	return selectOne(ctx, q.db, ds, scanTransaction, "get transaction", circulationModel.NewTransactionNotFoundError(id))
}

func transactionListDataset(f ledger.TransactionFilter) *goqu.SelectDataset {
	ds := dialect.From(tableTransactions).Select(transactionColumns...)
	if f.PatronID != nil {
		ds = ds.Where(goqu.Ex{"patron_id": f.PatronID.String()})
	}
	if f.CopyID != nil {
		ds = ds.Where(goqu.Ex{"copy_id": f.CopyID.String()})
	}
	if f.Status != nil {
		ds = ds.Where(goqu.Ex{"status": string(*f.Status)})
	}
	if f.DueBefore != nil {
		ds = ds.Where(
			goqu.Ex{"status": string(circulationModel.StatusActive)},
			goqu.C("due_date").Lt(*f.DueBefore),
		)
	}
	return ds.Order(goqu.I("checkout_date").Desc(), goqu.I("created_at").Desc(), goqu.I("id").Asc())
}

func (q queries) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]circulationModel.Transaction, error) {
	return selectMany(ctx, q.db, paged(transactionListDataset(f), f.Page), scanTransaction, "list transactions")
}

// ========================================
// Fines
// ========================================

func (q queries) GetFine(ctx context.Context, id uuid.UUID) (*fineModel.Fine, error) {
	ds := dialect.From(tableFines).Select(fineColumns...).Where(byID(id))
	return selectOne(ctx, q.db, ds, scanFine, "get fine", fineModel.NewFineNotFoundError(id))
}

func (q queries) ListFines(ctx context.Context, f ledger.FineFilter) ([]fineModel.Fine, error) {
	ds := dialect.From(tableFines).Select(fineColumns...)
	if f.PatronID != nil {
		ds = ds.Where(goqu.Ex{"patron_id": f.PatronID.String()})
	}
	if f.Paid != nil {
		ds = ds.Where(goqu.Ex{"is_paid": *f.Paid})
	}
	ds = ds.Order(goqu.I("created_at").Desc(), goqu.I("id").Asc())
	return selectMany(ctx, q.db, paged(ds, f.Page), scanFine, "list fines")
}

func (q queries) SumUnpaidFines(ctx context.Context, patronID uuid.UUID) (decimal.Decimal, error) {
	query, args, err := dialect.From(tableFines).
		Select(goqu.COALESCE(goqu.SUM("amount"), 0)).
		Where(goqu.Ex{"patron_id": patronID.String(), "is_paid": false}).
		Prepared(true).ToSQL()
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum unpaid fines: build query: %w", err)
	}
	var sum decimal.Decimal
	if err := q.db.QueryRow(ctx, query, args...).Scan(&sum); err != nil {
		return decimal.Zero, mapError(err, "sum unpaid fines", nil)
	}
	return sum, nil
}

// ========================================
// Reservations
// ========================================

func (q queries) GetReservation(ctx context.Context, id uuid.UUID) (*reservationModel.Reservation, error) {
	ds := dialect.From(tableReservations).Select(reservationColumns...).Where(byID(id))
	return selectOne(ctx, q.db, ds, scanReservation, "get reservation", reservationModel.NewReservationNotFoundError(id))
}

func reservationListDataset(f ledger.ReservationFilter) *goqu.SelectDataset {
	ds := dialect.From(tableReservations).Select(reservationColumns...)
	if f.CatalogItemID != nil {
		ds = ds.Where(goqu.Ex{"catalog_item_id": f.CatalogItemID.String()})
	}
	if f.PatronID != nil {
		ds = ds.Where(goqu.Ex{"patron_id": f.PatronID.String()})
	}
	if f.Status != nil {
		ds = ds.Where(goqu.Ex{"status": string(*f.Status)})
	}
	return ds.Order(goqu.I("reservation_date").Asc(), goqu.I("queue_position").Asc(), goqu.I("id").Asc())
}

func (q queries) ListReservations(ctx context.Context, f ledger.ReservationFilter) ([]reservationModel.Reservation, error) {
	return selectMany(ctx, q.db, paged(reservationListDataset(f), f.Page), scanReservation, "list reservations")
}
