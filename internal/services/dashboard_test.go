package services

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financas/internal/core"
)

var (
	salary    = core.Category{ID: "c-salary", Name: "Salary", Type: core.Income}
	groceries = core.Category{ID: "c-groceries", Name: "Groceries", Type: core.Expense}
	transport = core.Category{ID: "c-transport", Name: "Transport", Type: core.Expense}
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func tx(id, amount string, d civil.Date, c core.Category) core.Transaction {
	return core.Transaction{ID: id, Amount: decimal.RequireFromString(amount), Date: d, Category: c}
}

func TestAggregateDashboard_BalanceIdentity(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "5000", date(2024, 1, 1), salary),
		tx("2", "800", date(2024, 1, 2), groceries),
	}

	s := AggregateDashboard(txs, core.MonthPeriod(2024, time.January), date(2024, 1, 10))

	assert.True(t, s.TotalIncome.Equal(decimal.NewFromInt(5000)), "income %s", s.TotalIncome)
	assert.True(t, s.TotalExpense.Equal(decimal.NewFromInt(800)), "expense %s", s.TotalExpense)
	assert.True(t, s.Balance.Equal(decimal.NewFromInt(4200)), "balance %s", s.Balance)
	assert.True(t, s.Balance.Equal(s.TotalIncome.Sub(s.TotalExpense)))
	assert.Equal(t, "2024-01", s.Period)
}

func TestAggregateDashboard_MonthFilterIgnoresOtherMonths(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "100", date(2024, 1, 31), groceries),
		tx("2", "50", date(2024, 2, 1), groceries),
		tx("3", "25", date(2023, 2, 1), groceries),
	}

	s := AggregateDashboard(txs, core.MonthPeriod(2024, time.February), date(2024, 2, 1))

	assert.True(t, s.TotalExpense.Equal(decimal.NewFromInt(50)))
	require.Len(t, s.RecentTransactions, 1)
	assert.Equal(t, "2", s.RecentTransactions[0].ID)
	require.Len(t, s.ByMonth, 1)
	assert.Equal(t, "2024-02", s.ByMonth[0].Month)
}

func TestAggregateDashboard_ExpenseCategoriesAddUpToTotal(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "5000", date(2024, 1, 1), salary),
		tx("2", "800", date(2024, 1, 2), groceries),
		tx("3", "120.50", date(2024, 1, 3), transport),
		tx("4", "79.50", date(2024, 1, 4), groceries),
	}

	s := AggregateDashboard(txs, core.AllTime(), date(2024, 1, 10))

	sum := decimal.Zero
	for _, c := range s.ExpenseByCategory {
		assert.Equal(t, core.Expense, c.Type)
		sum = sum.Add(c.Amount)
	}
	assert.True(t, sum.Equal(s.TotalExpense), "sum %s total %s", sum, s.TotalExpense)

	require.Len(t, s.ByCategory, 3)
	assert.Equal(t, []string{"Groceries", "Salary", "Transport"},
		[]string{s.ByCategory[0].Name, s.ByCategory[1].Name, s.ByCategory[2].Name})
	assert.True(t, s.ByCategory[0].Amount.Equal(decimal.RequireFromString("879.50")))
}

func TestAggregateDashboard_DayZeroFill(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month time.Month
		want  int
	}{
		{"leap february", 2024, time.February, 29},
		{"february", 2023, time.February, 28},
		{"april", 2024, time.April, 30},
		{"december", 2024, time.December, 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := []core.Transaction{tx("1", "10", date(tt.year, tt.month, 3), groceries)}
			s := AggregateDashboard(txs, core.MonthPeriod(tt.year, tt.month), date(tt.year, tt.month, 1))

			require.Len(t, s.ByDay, tt.want)
			for i, b := range s.ByDay {
				assert.Equal(t, date(tt.year, tt.month, i+1).String(), b.Day)
			}
			assert.True(t, s.ByDay[2].Expense.Equal(decimal.NewFromInt(10)))
			assert.True(t, s.ByDay[0].Expense.IsZero())
		})
	}
}

func TestAggregateDashboard_AllTimeDaysOnlyWithData(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "10", date(2024, 3, 5), groceries),
		tx("2", "20", date(2023, 12, 5), salary),
		tx("3", "5", date(2024, 3, 5), groceries),
	}

	s := AggregateDashboard(txs, core.AllTime(), date(2024, 3, 10))

	require.Len(t, s.ByDay, 2)
	assert.Equal(t, "2023-12-05", s.ByDay[0].Day)
	assert.Equal(t, "2024-03-05", s.ByDay[1].Day)
	assert.True(t, s.ByDay[1].Expense.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, "todos", s.Period)
}

func TestAggregateDashboard_MonthBucketsAscending(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "10", date(2024, 3, 1), groceries),
		tx("2", "10", date(2023, 11, 1), groceries),
		tx("3", "10", date(2024, 1, 1), salary),
		tx("4", "10", date(2024, 3, 2), salary),
	}

	s := AggregateDashboard(txs, core.AllTime(), date(2024, 3, 10))

	require.Len(t, s.ByMonth, 3)
	for i := 1; i < len(s.ByMonth); i++ {
		assert.Less(t, s.ByMonth[i-1].Month, s.ByMonth[i].Month)
	}
	assert.True(t, s.ByMonth[2].Income.Equal(decimal.NewFromInt(10)))
	assert.True(t, s.ByMonth[2].Expense.Equal(decimal.NewFromInt(10)))
}

func TestAggregateDashboard_RecentTransactions(t *testing.T) {
	txs := []core.Transaction{
		tx("a", "1", date(2024, 1, 1), groceries),
		tx("b", "1", date(2024, 1, 5), groceries),
		tx("c", "1", date(2024, 1, 3), groceries),
		tx("d", "1", date(2024, 1, 5), groceries),
		tx("e", "1", date(2024, 1, 2), groceries),
		tx("f", "1", date(2024, 1, 4), groceries),
		tx("g", "1", date(2024, 1, 6), groceries),
	}

	s := AggregateDashboard(txs, core.AllTime(), date(2024, 1, 10))

	ids := make([]string, 0, len(s.RecentTransactions))
	for _, r := range s.RecentTransactions {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"g", "b", "d", "f", "c"}, ids)
}

func TestAggregateDashboard_DailyAllowance(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "3100", date(2024, 1, 1), salary),
	}

	tests := []struct {
		name      string
		today     civil.Date
		wantDays  int
		allowance string
	}{
		{"first day", date(2024, 1, 1), 31, "100"},
		{"last day returns balance", date(2024, 1, 31), 1, "3100"},
		{"mid month rounds to cents", date(2024, 1, 21), 11, "281.82"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := AggregateDashboard(txs, core.AllTime(), tt.today)
			assert.Equal(t, tt.wantDays, s.DaysRemaining)
			assert.True(t, s.DailyAllowance.Equal(decimal.RequireFromString(tt.allowance)),
				"allowance %s, want %s", s.DailyAllowance, tt.allowance)
		})
	}

	days, allowance := dailyAllowance(decimal.NewFromInt(100), civil.Date{Year: 2024, Month: 1, Day: 32})
	assert.Equal(t, 0, days)
	assert.True(t, allowance.IsZero())
}

func TestAggregateDashboard_Empty(t *testing.T) {
	s := AggregateDashboard(nil, core.MonthPeriod(2024, time.January), date(2024, 1, 1))

	assert.True(t, s.Balance.IsZero())
	assert.Empty(t, s.ByCategory)
	assert.Empty(t, s.ByMonth)
	assert.NotNil(t, s.RecentTransactions)
	assert.Len(t, s.ByDay, 31)
}

func TestDailyTotals(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "10", date(2024, 2, 29), groceries),
		tx("2", "90", date(2024, 2, 29), salary),
		tx("3", "10", date(2024, 3, 1), groceries),
	}

	got := DailyTotals(txs, 2024, time.February)

	require.Len(t, got, 29)
	assert.Equal(t, "2024-02-29", got[28].Day)
	assert.True(t, got[28].Expense.Equal(decimal.NewFromInt(10)))
	assert.True(t, got[28].Income.Equal(decimal.NewFromInt(90)))
}
