package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/quotes"
)

// Store ports implemented by storage.SQLiteRepository.
type (
	TransactionStore interface {
		CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
		ListTransactions(ctx context.Context, period core.Period) ([]core.Transaction, error)
		FindTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
	}

	BillStore interface {
		GetRecurringBill(ctx context.Context, id string) (core.RecurringBill, error)
		ListRecurringBills(ctx context.Context, activeOnly bool) ([]core.RecurringBill, error)
		ListBillPayments(ctx context.Context, year int, month time.Month) ([]core.Transaction, error)
	}

	InvestmentStore interface {
		ListWallets(ctx context.Context) ([]core.InvestmentWallet, error)
		ListInvestments(ctx context.Context) ([]core.Investment, error)
		InvestmentTransactionsByInvestment(ctx context.Context) (map[string][]core.InvestmentTransaction, error)
	}

	RateSource interface {
		Rates(ctx context.Context) quotes.Rates
	}
)

// TransactionInput is a request to record a transaction. Installments above
// one splits Amount into that many monthly parts.
type TransactionInput struct {
	Amount          decimal.Decimal
	Description     string
	Date            civil.Date
	CategoryID      string
	RecurringBillID string
	Installments    int
}

// BillsOverview is the recurring bills screen: one status per bill plus the
// totals over the active ones.
type BillsOverview struct {
	Statuses []core.RecurringBillStatus `json:"contas"`
	Summary  core.BillSummary           `json:"resumo"`
}

// BillDetail is one recurring bill with its status today and every
// payment recorded against it, newest first.
type BillDetail struct {
	Status   core.RecurringBillStatus `json:"situacao"`
	Payments []core.Transaction       `json:"transacoes"`
}

// LedgerService orchestrates reads and writes across storage, the dashboard
// cache and the quote client.
type LedgerService struct {
	txs         TransactionStore
	bills       BillStore
	investments InvestmentStore
	rates       RateSource
	dashboards  cache.Cache[core.DashboardSummary]
	now         func() time.Time
	loc         *time.Location

	// gen counts writes. A dashboard computed under an older generation
	// is returned but not cached.
	mu  sync.Mutex
	gen uint64
}

// LedgerOption customizes a LedgerService.
type LedgerOption func(*LedgerService)

// WithDashboardCache caches dashboard summaries per period and day.
func WithDashboardCache(c cache.Cache[core.DashboardSummary]) LedgerOption {
	return func(s *LedgerService) { s.dashboards = c }
}

// WithClock overrides the wall clock used to derive today.
func WithClock(now func() time.Time) LedgerOption {
	return func(s *LedgerService) { s.now = now }
}

// WithLocation sets the zone in which today is computed.
func WithLocation(loc *time.Location) LedgerOption {
	return func(s *LedgerService) { s.loc = loc }
}

func NewLedgerService(txs TransactionStore, bills BillStore, investments InvestmentStore, rates RateSource, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		txs:         txs,
		bills:       bills,
		investments: investments,
		rates:       rates,
		now:         time.Now,
		loc:         time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar date in the configured zone.
func (s *LedgerService) Today() civil.Date {
	return core.Today(s.now().In(s.loc))
}

// CreateTransaction validates and stores in. With more than one installment
// every part is stored in the same database transaction.
func (s *LedgerService) CreateTransaction(ctx context.Context, in TransactionInput) ([]core.Transaction, error) {
	count := in.Installments
	if count == 0 {
		count = 1
	}
	txs, err := core.SplitInstallments(core.InstallmentRequest{
		Total:           in.Amount,
		Count:           count,
		FirstDate:       in.Date,
		Description:     in.Description,
		Category:        core.Category{ID: in.CategoryID},
		RecurringBillID: in.RecurringBillID,
	})
	if err != nil {
		return nil, err
	}

	saved, err := s.txs.CreateTransactions(ctx, txs)
	if err != nil {
		return nil, fmt.Errorf("save transactions: %w", err)
	}

	s.invalidate()

	slog.InfoContext(ctx, "Transactions created",
		"count", len(saved),
		"amount", in.Amount.StringFixed(2),
		"installments", count)
	return saved, nil
}

// Dashboard returns the summary of period as of today.
func (s *LedgerService) Dashboard(ctx context.Context, period core.Period) (core.DashboardSummary, error) {
	today := s.Today()
	key := period.Key() + "@" + today.String()
	if s.dashboards != nil {
		if sum, ok := s.dashboards.Get(key); ok {
			return sum, nil
		}
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	txs, err := s.txs.ListTransactions(ctx, period)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("load transactions: %w", err)
	}
	sum := AggregateDashboard(txs, period, today)

	if s.dashboards != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.dashboards.Set(key, sum)
		}
		s.mu.Unlock()
	}
	return sum, nil
}

// invalidate bumps the write generation and drops every cached dashboard.
func (s *LedgerService) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.dashboards != nil {
		s.dashboards.Purge()
	}
}

// Transactions lists the transactions matching f, newest first.
func (s *LedgerService) Transactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	txs, err := s.txs.FindTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	return txs, nil
}

// Bill returns one recurring bill resolved for today with its payment history.
func (s *LedgerService) Bill(ctx context.Context, id string) (BillDetail, error) {
	bill, err := s.bills.GetRecurringBill(ctx, id)
	if err != nil {
		return BillDetail{}, fmt.Errorf("load recurring bill: %w", err)
	}
	payments, err := s.txs.FindTransactions(ctx, core.TransactionFilter{RecurringBillID: id})
	if err != nil {
		return BillDetail{}, fmt.Errorf("load bill payments: %w", err)
	}
	return BillDetail{
		Status:   ResolveBillStatus(bill, payments, s.Today()),
		Payments: payments,
	}, nil
}

// Daily returns the zero-filled per-day series of a month.
func (s *LedgerService) Daily(ctx context.Context, year int, month time.Month) ([]core.DayBucket, error) {
	txs, err := s.txs.ListTransactions(ctx, core.MonthPeriod(year, month))
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return DailyTotals(txs, year, month), nil
}

// Bills resolves the status of every recurring bill for today.
func (s *LedgerService) Bills(ctx context.Context) (BillsOverview, error) {
	return LoadBillsOverview(ctx, s.bills, s.Today())
}

// LoadBillsOverview loads bills and this month's payments and resolves them.
func LoadBillsOverview(ctx context.Context, store BillStore, today civil.Date) (BillsOverview, error) {
	bills, err := store.ListRecurringBills(ctx, false)
	if err != nil {
		return BillsOverview{}, fmt.Errorf("load recurring bills: %w", err)
	}
	payments, err := store.ListBillPayments(ctx, today.Year, today.Month)
	if err != nil {
		return BillsOverview{}, fmt.Errorf("load bill payments: %w", err)
	}
	statuses := ResolveBillStatuses(bills, payments, today)
	return BillsOverview{Statuses: statuses, Summary: SummarizeBills(statuses)}, nil
}

// Wallets values every wallet in BRL using the current quotes.
func (s *LedgerService) Wallets(ctx context.Context) ([]WalletSummary, error) {
	wallets, err := s.investments.ListWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load wallets: %w", err)
	}
	invs, err := s.investments.ListInvestments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load investments: %w", err)
	}
	byInv, err := s.investments.InvestmentTransactionsByInvestment(ctx)
	if err != nil {
		return nil, fmt.Errorf("load investment transactions: %w", err)
	}

	var conv CurrencyConverter
	if s.rates != nil {
		conv = s.rates.Rates(ctx)
	}

	out := make([]WalletSummary, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, WalletTotal(w, invs, byInv, conv))
	}
	return out, nil
}
