package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const copyLoansQuery = `
SELECT c.id                               AS copy_id,
       c.status                           AS status,
       c.checked_out_by                   AS checked_out_by,
       COUNT(t.id)                        AS active_loans,
       MIN(t.patron_id::text)             AS loan_patron_id
  FROM copies c
  LEFT JOIN transactions t ON t.copy_id = c.id AND t.status = 'active'
 GROUP BY c.id, c.status, c.checked_out_by`

const activeQueueQuery = `
SELECT catalog_item_id, queue_position
  FROM reservations
 WHERE status = 'active'
 ORDER BY catalog_item_id, queue_position`

const patronBalanceQuery = `
SELECT p.id                                                      AS patron_id,
       p.balance                                                 AS balance,
       COALESCE(SUM(f.amount) FILTER (WHERE NOT f.is_paid), 0)   AS unpaid
  FROM patrons p
  LEFT JOIN fines f ON f.patron_id = p.id
 GROUP BY p.id, p.balance`

type copyLoanRow struct {
	CopyID       uuid.UUID      `db:"copy_id"`
	Status       string         `db:"status"`
	CheckedOutBy uuid.NullUUID  `db:"checked_out_by"`
	ActiveLoans  int            `db:"active_loans"`
	LoanPatronID sql.NullString `db:"loan_patron_id"`
}

type queueRow struct {
	CatalogItemID uuid.UUID `db:"catalog_item_id"`
	QueuePosition int       `db:"queue_position"`
}

type balanceRow struct {
	PatronID uuid.UUID       `db:"patron_id"`
	Balance  decimal.Decimal `db:"balance"`
	Unpaid   decimal.Decimal `db:"unpaid"`
}

// CopyViolation: a copy is checked out iff it has exactly one active
// transaction, and that transaction's patron is the copy's borrower.
type CopyViolation struct {
	CopyID      uuid.UUID `json:"copy_id"`
	Status      string    `json:"status"`
	ActiveLoans int       `json:"active_loans"`
	Problem     string    `json:"problem"`
}

// QueueViolation: active positions of an item must be exactly 1..N
type QueueViolation struct {
	CatalogItemID uuid.UUID `json:"catalog_item_id"`
	Positions     []int     `json:"positions"`
}

// BalanceViolation: balance must equal the sum of unpaid fines
type BalanceViolation struct {
	PatronID uuid.UUID       `json:"patron_id"`
	Balance  decimal.Decimal `json:"balance"`
	Unpaid   decimal.Decimal `json:"unpaid"`
}

type AuditReport struct {
	CopiesChecked  int                `json:"copies_checked"`
	QueuesChecked  int                `json:"queues_checked"`
	PatronsChecked int                `json:"patrons_checked"`
	Copies         []CopyViolation    `json:"copy_violations"`
	Queues         []QueueViolation   `json:"queue_violations"`
	Balances       []BalanceViolation `json:"balance_violations"`
}

// Clean reports whether no invariant is violated
func (r *AuditReport) Clean() bool {
	return len(r.Copies) == 0 && len(r.Queues) == 0 && len(r.Balances) == 0
}

// Audit reads the ledger and reports every row that breaks a consistency
// invariant. It never writes.
func (j *Jobs) Audit(ctx context.Context) (*AuditReport, error) {
	var copies []copyLoanRow
	if err := j.db.SelectContext(ctx, &copies, copyLoansQuery); err != nil {
		return nil, fmt.Errorf("audit copies: %w", err)
	}

	var queue []queueRow
	if err := j.db.SelectContext(ctx, &queue, activeQueueQuery); err != nil {
		return nil, fmt.Errorf("audit queues: %w", err)
	}

	var balances []balanceRow
	if err := j.db.SelectContext(ctx, &balances, patronBalanceQuery); err != nil {
		return nil, fmt.Errorf("audit balances: %w", err)
	}

	report := &AuditReport{
		CopiesChecked:  len(copies),
		PatronsChecked: len(balances),
		Copies:         checkCopies(copies),
		Balances:       checkBalances(balances),
	}
	report.Queues, report.QueuesChecked = checkQueues(queue)
	return report, nil
}

func checkCopies(rows []copyLoanRow) []CopyViolation {
	var out []CopyViolation
	for _, r := range rows {
		problem := ""
		checkedOut := r.Status == "checked_out"
		switch {
		case checkedOut && r.ActiveLoans == 0:
			problem = "checked out without an active transaction"
		case r.ActiveLoans > 1:
			problem = "more than one active transaction"
		case !checkedOut && r.ActiveLoans > 0:
			problem = "active transaction on a copy that is not checked out"
		case checkedOut && (!r.CheckedOutBy.Valid || !r.LoanPatronID.Valid ||
			r.CheckedOutBy.UUID.String() != r.LoanPatronID.String):
			problem = "borrower differs from the active transaction's patron"
		}
		if problem != "" {
			out = append(out, CopyViolation{
				CopyID:      r.CopyID,
				Status:      r.Status,
				ActiveLoans: r.ActiveLoans,
				Problem:     problem,
			})
		}
	}
	return out
}

// checkQueues expects rows grouped by item; it returns the violations and
// the number of distinct queues seen.
func checkQueues(rows []queueRow) ([]QueueViolation, int) {
	byItem := make(map[uuid.UUID][]int)
	for _, r := range rows {
		byItem[r.CatalogItemID] = append(byItem[r.CatalogItemID], r.QueuePosition)
	}

	var out []QueueViolation
	for itemID, positions := range byItem {
		sort.Ints(positions)
		for i, p := range positions {
			if p != i+1 {
				out = append(out, QueueViolation{CatalogItemID: itemID, Positions: positions})
				break
			}
		}
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].CatalogItemID.String() < out[b].CatalogItemID.String()
	})
	return out, len(byItem)
}

func checkBalances(rows []balanceRow) []BalanceViolation {
	var out []BalanceViolation
	for _, r := range rows {
		if !r.Balance.Equal(r.Unpaid) {
			out = append(out, BalanceViolation{PatronID: r.PatronID, Balance: r.Balance, Unpaid: r.Unpaid})
		}
	}
	return out
}
