package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// DaysOverdue = max(0, ceil((now - due) / 1 day)).
func DaysOverdue(due, now time.Time) int {
	late := now.Sub(due)
	if late <= 0 {
		return 0
	}
	days := late / day
	if late%day != 0 {
		days++
	}
	return int(days)
}

// LateFee multiplies the overdue days by the per-day rate.
func LateFee(daysOverdue int, perDay decimal.Decimal) decimal.Decimal {
	if daysOverdue <= 0 {
		return decimal.Zero
	}
	return perDay.Mul(decimal.NewFromInt(int64(daysOverdue)))
}

// LateReturnReason is the fine reason recorded for a late check-in.
func LateReturnReason(daysOverdue int) string {
	return fmt.Sprintf("Late return - %d days overdue", daysOverdue)
}
