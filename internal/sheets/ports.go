package sheets

import (
	"context"
	"fmt"

	"financas/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter replaces the monthly summary table in a spreadsheet.
	SummaryWriter interface {
		WriteMonthlySummary(ctx context.Context, rows []core.MonthBucket) (rangeRef string, err error)
	}
)

// SummaryHeader is the first row of the exported summary table.
var SummaryHeader = []any{"Mês", "Entradas", "Saídas", "Saldo"}

// SummaryRows renders buckets as spreadsheet rows, header first. Amounts are
// written as plain decimal strings with two places.
func SummaryRows(buckets []core.MonthBucket) [][]any {
	out := make([][]any, 0, len(buckets)+1)
	out = append(out, SummaryHeader)
	for _, b := range buckets {
		out = append(out, []any{
			b.Month,
			b.Income.StringFixed(2),
			b.Expense.StringFixed(2),
			b.Income.Sub(b.Expense).StringFixed(2),
		})
	}
	return out
}

// TableRange returns the A1 range covering n rows of the summary table.
func TableRange(sheet string, n int) string {
	if n < 1 {
		n = 1
	}
	return fmt.Sprintf("%s!A1:D%d", sheet, n)
}
