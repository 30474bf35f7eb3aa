package services

import (
	"cmp"
	"slices"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Day thresholds for status and severity.
const (
	dueSoonDays     = 7
	dueCriticalDays = 3
)

// ResolveBillStatus computes the status of bill as of today. Only payments
// dated in today's calendar month are considered, whatever the caller passes.
//
// The due date is bill.DueDay in the current month, clamped to the month's
// last day. Once that date has passed the next month's due date is used,
// clamped the same way from the original DueDay.
func ResolveBillStatus(bill core.RecurringBill, payments []core.Transaction, today civil.Date) core.RecurringBillStatus {
	st := core.RecurringBillStatus{Bill: bill}

	for _, p := range payments {
		if !core.SameMonth(p.Date, today) {
			continue
		}
		st.PaidThisMonth = true
		if st.LastPaymentDate == nil || p.Date.After(*st.LastPaymentDate) {
			d := p.Date
			st.LastPaymentDate = &d
		}
	}

	due := core.DateIn(today.Year, today.Month, bill.DueDay)
	if due.Before(today) {
		due = core.DateIn(today.Year, today.Month+1, bill.DueDay)
	}
	st.DueDate = due
	st.DaysUntilDue = due.DaysSince(today)
	st.Status = statusFor(st.PaidThisMonth, st.DaysUntilDue)
	st.Severity = severityFor(st.PaidThisMonth, st.DaysUntilDue)
	return st
}

func statusFor(paid bool, days int) core.BillStatus {
	switch {
	case paid:
		return core.BillPaid
	case days <= 0:
		return core.BillOverdue
	case days == 1:
		return core.BillDueTomorrow
	case days <= dueSoonDays:
		return core.BillDueSoon
	default:
		return core.BillScheduled
	}
}

func severityFor(paid bool, days int) core.Severity {
	switch {
	case paid:
		return core.SeverityPositive
	case days <= dueCriticalDays:
		return core.SeverityCritical
	case days <= dueSoonDays:
		return core.SeverityWarning
	default:
		return core.SeverityNeutral
	}
}

// ResolveBillStatuses resolves every bill against the transactions linked to
// it through RecurringBillID. Results are ordered by due day, then name.
func ResolveBillStatuses(bills []core.RecurringBill, txs []core.Transaction, today civil.Date) []core.RecurringBillStatus {
	byBill := make(map[string][]core.Transaction)
	for _, tx := range txs {
		if tx.RecurringBillID == "" {
			continue
		}
		byBill[tx.RecurringBillID] = append(byBill[tx.RecurringBillID], tx)
	}

	ordered := slices.Clone(bills)
	slices.SortStableFunc(ordered, func(a, b core.RecurringBill) int {
		if c := cmp.Compare(a.DueDay, b.DueDay); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	out := make([]core.RecurringBillStatus, 0, len(ordered))
	for _, b := range ordered {
		out = append(out, ResolveBillStatus(b, byBill[b.ID], today))
	}
	return out
}

// SummarizeBills rolls up the active bills. Inactive bills are skipped.
func SummarizeBills(statuses []core.RecurringBillStatus) core.BillSummary {
	sum := core.BillSummary{
		TotalMonthly:      decimal.Zero,
		PaidAmount:        decimal.Zero,
		OutstandingAmount: decimal.Zero,
	}
	for _, st := range statuses {
		if !st.Bill.Active {
			continue
		}
		sum.TotalMonthly = sum.TotalMonthly.Add(st.Bill.Amount)
		if st.PaidThisMonth {
			sum.PaidAmount = sum.PaidAmount.Add(st.Bill.Amount)
			continue
		}
		sum.OutstandingAmount = sum.OutstandingAmount.Add(st.Bill.Amount)
		if st.DaysUntilDue <= 0 {
			sum.OverdueCount++
		}
	}
	return sum
}

// NeedsReminder reports whether an unpaid active bill is close enough to its
// due date to notify about it.
func NeedsReminder(st core.RecurringBillStatus) bool {
	if !st.Bill.Active || st.PaidThisMonth {
		return false
	}
	return st.Severity == core.SeverityCritical || st.Severity == core.SeverityWarning
}
