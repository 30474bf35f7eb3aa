package core

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"categoria"`
	Type   CategoryType    `json:"tipo"`
	Amount decimal.Decimal `json:"valor"`
}

// MonthBucket sums income and expense for one YYYY-MM key.
type MonthBucket struct {
	Month   string          `json:"mes"`
	Income  decimal.Decimal `json:"entradas"`
	Expense decimal.Decimal `json:"saidas"`
}

// DayBucket sums income and expense for one YYYY-MM-DD key.
type DayBucket struct {
	Day     string          `json:"dia"`
	Income  decimal.Decimal `json:"entradas"`
	Expense decimal.Decimal `json:"saidas"`
}

// DashboardSummary is the derived dashboard view model. It is never stored.
type DashboardSummary struct {
	Period             string           `json:"periodo"`
	TotalIncome        decimal.Decimal  `json:"entradas"`
	TotalExpense       decimal.Decimal  `json:"saidas"`
	Balance            decimal.Decimal  `json:"saldo"`
	DailyAllowance     decimal.Decimal  `json:"gastoDiarioPermitido"`
	DaysRemaining      int              `json:"diasRestantes"`
	ByCategory         []CategoryAmount `json:"transacoesPorCategoria"`
	ExpenseByCategory  []CategoryAmount `json:"gastosPorCategoria"`
	ByMonth            []MonthBucket    `json:"transacoesPorMes"`
	ByDay              []DayBucket      `json:"transacoesPorDia"`
	RecentTransactions []Transaction    `json:"ultimasTransacoes"`
}

type (
	BillStatus string
	Severity   string
)

const (
	BillPaid        BillStatus = "paid"
	BillOverdue     BillStatus = "overdue"
	BillDueTomorrow BillStatus = "due_tomorrow"
	BillDueSoon     BillStatus = "due_soon"
	BillScheduled   BillStatus = "scheduled"
)

const (
	SeverityPositive Severity = "positive"
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityNeutral  Severity = "neutral"
)

// RecurringBillStatus is computed fresh on every query.
type RecurringBillStatus struct {
	Bill            RecurringBill `json:"conta"`
	PaidThisMonth   bool          `json:"pagoEsteMes"`
	LastPaymentDate *civil.Date   `json:"dataUltimoPagamento,omitempty"`
	DueDate         civil.Date    `json:"dataVencimento"`
	DaysUntilDue    int           `json:"diasAteVencimento"`
	Status          BillStatus    `json:"status"`
	Severity        Severity      `json:"severidade"`
}

// BillSummary rolls up the active bills for the dashboard cards.
type BillSummary struct {
	TotalMonthly      decimal.Decimal `json:"totalMensal"`
	PaidAmount        decimal.Decimal `json:"totalPago"`
	OutstandingAmount decimal.Decimal `json:"totalPendente"`
	OverdueCount      int             `json:"vencidas"`
}
