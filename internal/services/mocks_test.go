package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/quotes"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	args := m.Called(ctx, txs)
	out, _ := args.Get(0).([]core.Transaction)
	return out, args.Error(1)
}

func (m *mockStore) ListTransactions(ctx context.Context, period core.Period) ([]core.Transaction, error) {
	args := m.Called(ctx, period)
	out, _ := args.Get(0).([]core.Transaction)
	return out, args.Error(1)
}

func (m *mockStore) FindTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	args := m.Called(ctx, f)
	out, _ := args.Get(0).([]core.Transaction)
	return out, args.Error(1)
}

func (m *mockStore) GetRecurringBill(ctx context.Context, id string) (core.RecurringBill, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(core.RecurringBill)
	return out, args.Error(1)
}

func (m *mockStore) ListRecurringBills(ctx context.Context, activeOnly bool) ([]core.RecurringBill, error) {
	args := m.Called(ctx, activeOnly)
	out, _ := args.Get(0).([]core.RecurringBill)
	return out, args.Error(1)
}

func (m *mockStore) ListBillPayments(ctx context.Context, year int, month time.Month) ([]core.Transaction, error) {
	args := m.Called(ctx, year, month)
	out, _ := args.Get(0).([]core.Transaction)
	return out, args.Error(1)
}

func (m *mockStore) ListWallets(ctx context.Context) ([]core.InvestmentWallet, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]core.InvestmentWallet)
	return out, args.Error(1)
}

func (m *mockStore) ListInvestments(ctx context.Context) ([]core.Investment, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]core.Investment)
	return out, args.Error(1)
}

func (m *mockStore) InvestmentTransactionsByInvestment(ctx context.Context) (map[string][]core.InvestmentTransaction, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).(map[string][]core.InvestmentTransaction)
	return out, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishBillReminder(ctx context.Context, msg *amqp.BillReminder) error {
	return m.Called(ctx, msg).Error(0)
}

type staticRates struct {
	rates quotes.Rates
}

func (s staticRates) Rates(context.Context) quotes.Rates { return s.rates }
