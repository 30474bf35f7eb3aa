// Package services provides business logic and orchestration services.
//
// The dashboard and bill status computations are pure functions over already
// loaded records. Orchestration that touches storage or messaging lives in
// ledger_service.go and bill_reminders.go.
package services

import (
	"cmp"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// RecentLimit is the number of transactions shown in the "latest" list.
const RecentLimit = 5

// AggregateDashboard computes the dashboard view for period. Transactions
// outside a month period are ignored. DaysRemaining and DailyAllowance always
// refer to the month of today, whatever period is being viewed.
func AggregateDashboard(txs []core.Transaction, period core.Period, today civil.Date) core.DashboardSummary {
	inPeriod := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if period.Contains(tx.Date) {
			inPeriod = append(inPeriod, tx)
		}
	}

	s := core.DashboardSummary{
		Period:       period.Key(),
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}

	for _, tx := range inPeriod {
		if isIncome(tx) {
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		} else {
			s.TotalExpense = s.TotalExpense.Add(tx.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)

	s.ByCategory = groupByCategory(inPeriod, nil)
	expense := core.Expense
	s.ExpenseByCategory = groupByCategory(inPeriod, &expense)
	s.ByMonth = monthBuckets(inPeriod)

	if period.All {
		s.ByDay = dayBuckets(inPeriod)
	} else {
		s.ByDay = zeroFilledDays(inPeriod, period.Year, period.Month)
	}

	s.RecentTransactions = recent(inPeriod, RecentLimit)
	s.DaysRemaining, s.DailyAllowance = dailyAllowance(s.Balance, today)
	return s
}

// DailyTotals returns one bucket per day of the given month, zero-filled,
// counting only transactions dated inside that month.
func DailyTotals(txs []core.Transaction, year int, month time.Month) []core.DayBucket {
	p := core.MonthPeriod(year, month)
	inMonth := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if p.Contains(tx.Date) {
			inMonth = append(inMonth, tx)
		}
	}
	return zeroFilledDays(inMonth, year, month)
}

func isIncome(tx core.Transaction) bool {
	return tx.Category.Type == core.Income
}

func groupByCategory(txs []core.Transaction, only *core.CategoryType) []core.CategoryAmount {
	index := make(map[string]int)
	out := make([]core.CategoryAmount, 0)
	for _, tx := range txs {
		if only != nil && tx.Category.Type != *only {
			continue
		}
		i, ok := index[tx.Category.Name]
		if !ok {
			i = len(out)
			index[tx.Category.Name] = i
			out = append(out, core.CategoryAmount{
				Name:   tx.Category.Name,
				Type:   tx.Category.Type,
				Amount: decimal.Zero,
			})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

func monthBuckets(txs []core.Transaction) []core.MonthBucket {
	buckets := make(map[string]*core.MonthBucket)
	for _, tx := range txs {
		key := core.MonthKey(tx.Date)
		b, ok := buckets[key]
		if !ok {
			b = &core.MonthBucket{Month: key, Income: decimal.Zero, Expense: decimal.Zero}
			buckets[key] = b
		}
		if isIncome(tx) {
			b.Income = b.Income.Add(tx.Amount)
		} else {
			b.Expense = b.Expense.Add(tx.Amount)
		}
	}

	out := make([]core.MonthBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b core.MonthBucket) int {
		return cmp.Compare(a.Month, b.Month)
	})
	return out
}

func addToDay(b *core.DayBucket, tx core.Transaction) {
	if isIncome(tx) {
		b.Income = b.Income.Add(tx.Amount)
	} else {
		b.Expense = b.Expense.Add(tx.Amount)
	}
}

func dayBuckets(txs []core.Transaction) []core.DayBucket {
	buckets := make(map[civil.Date]*core.DayBucket)
	for _, tx := range txs {
		b, ok := buckets[tx.Date]
		if !ok {
			b = &core.DayBucket{Day: tx.Date.String(), Income: decimal.Zero, Expense: decimal.Zero}
			buckets[tx.Date] = b
		}
		addToDay(b, tx)
	}

	out := make([]core.DayBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	// YYYY-MM-DD sorts lexically in date order.
	slices.SortFunc(out, func(a, b core.DayBucket) int {
		return cmp.Compare(a.Day, b.Day)
	})
	return out
}

func zeroFilledDays(txs []core.Transaction, year int, month time.Month) []core.DayBucket {
	n := core.DaysIn(year, month)
	out := make([]core.DayBucket, n)
	for i := range out {
		d := civil.Date{Year: year, Month: month, Day: i + 1}
		out[i] = core.DayBucket{Day: d.String(), Income: decimal.Zero, Expense: decimal.Zero}
	}
	for _, tx := range txs {
		if tx.Date.Year != year || tx.Date.Month != month {
			continue
		}
		addToDay(&out[tx.Date.Day-1], tx)
	}
	return out
}

func recent(txs []core.Transaction, limit int) []core.Transaction {
	sorted := slices.Clone(txs)
	slices.SortStableFunc(sorted, func(a, b core.Transaction) int {
		return b.Date.Compare(a.Date)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	if sorted == nil {
		sorted = []core.Transaction{}
	}
	return sorted
}

func dailyAllowance(balance decimal.Decimal, today civil.Date) (int, decimal.Decimal) {
	days := core.LastDayOfMonth(today).Day - today.Day + 1
	if days <= 0 {
		return days, decimal.Zero
	}
	return days, balance.DivRound(decimal.NewFromInt(int64(days)), 2)
}
