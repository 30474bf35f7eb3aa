package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/quotes"
	"financas/internal/services"
	"financas/internal/storage"
)

var today = civil.Date{Year: 2024, Month: 3, Day: 15}

type fakeLedger struct {
	created   []services.TransactionInput
	period    core.Period
	filter    core.TransactionFilter
	dailyErr  error
	createErr error
}

func (f *fakeLedger) Today() civil.Date { return today }

func (f *fakeLedger) CreateTransaction(ctx context.Context, in services.TransactionInput) ([]core.Transaction, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	return []core.Transaction{{ID: "t1", Amount: in.Amount, Date: in.Date, Category: core.Category{ID: in.CategoryID}}}, nil
}

func (f *fakeLedger) Dashboard(ctx context.Context, period core.Period) (core.DashboardSummary, error) {
	f.period = period
	return core.DashboardSummary{Period: period.String(), Balance: decimal.NewFromInt(10)}, nil
}

func (f *fakeLedger) Daily(ctx context.Context, year int, month time.Month) ([]core.DayBucket, error) {
	if f.dailyErr != nil {
		return nil, f.dailyErr
	}
	return make([]core.DayBucket, core.DaysIn(year, month)), nil
}

func (f *fakeLedger) Bills(ctx context.Context) (services.BillsOverview, error) {
	return services.BillsOverview{Statuses: []core.RecurringBillStatus{}}, nil
}

func (f *fakeLedger) Wallets(ctx context.Context) ([]services.WalletSummary, error) {
	return []services.WalletSummary{}, nil
}

func (f *fakeLedger) Transactions(ctx context.Context, filter core.TransactionFilter) ([]core.Transaction, error) {
	f.filter = filter
	return []core.Transaction{{ID: "t1"}}, nil
}

func (f *fakeLedger) Bill(ctx context.Context, id string) (services.BillDetail, error) {
	if id != "b1" {
		return services.BillDetail{}, fmt.Errorf("load recurring bill: %w", storage.ErrNotFound)
	}
	return services.BillDetail{
		Status:   core.RecurringBillStatus{Bill: core.RecurringBill{ID: id}, Status: core.BillScheduled},
		Payments: []core.Transaction{},
	}, nil
}

type fakeCatalog struct {
	categories  []core.Category
	bills       map[string]core.RecurringBill
	wallets     []core.InvestmentWallet
	investments []core.Investment
	invTxs      []core.InvestmentTransaction
}

func (f *fakeCatalog) ListCategories(ctx context.Context) ([]core.Category, error) {
	return f.categories, nil
}

func (f *fakeCatalog) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = "c-new"
	f.categories = append(f.categories, c)
	return c, nil
}

func (f *fakeCatalog) CreateRecurringBill(ctx context.Context, b core.RecurringBill) (core.RecurringBill, error) {
	b.ID = "b-new"
	return b, nil
}

func (f *fakeCatalog) GetRecurringBill(ctx context.Context, id string) (core.RecurringBill, error) {
	b, ok := f.bills[id]
	if !ok {
		return core.RecurringBill{}, fmt.Errorf("recurring bill %s: %w", id, storage.ErrNotFound)
	}
	return b, nil
}

func (f *fakeCatalog) UpdateRecurringBill(ctx context.Context, b core.RecurringBill) (core.RecurringBill, error) {
	if _, ok := f.bills[b.ID]; !ok {
		return core.RecurringBill{}, storage.ErrNotFound
	}
	f.bills[b.ID] = b
	return b, nil
}

func (f *fakeCatalog) DeleteRecurringBill(ctx context.Context, id string) error {
	if _, ok := f.bills[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.bills, id)
	return nil
}

func (f *fakeCatalog) CreateWallet(ctx context.Context, w core.InvestmentWallet) (core.InvestmentWallet, error) {
	w.ID = "w-new"
	f.wallets = append(f.wallets, w)
	return w, nil
}

func (f *fakeCatalog) ListInvestments(ctx context.Context) ([]core.Investment, error) {
	return f.investments, nil
}

func (f *fakeCatalog) CreateInvestment(ctx context.Context, inv core.Investment) (core.Investment, error) {
	if inv.WalletID != "w1" {
		return core.Investment{}, fmt.Errorf("wallet %s: %w", inv.WalletID, storage.ErrNotFound)
	}
	inv.ID = "i-new"
	f.investments = append(f.investments, inv)
	return inv, nil
}

func (f *fakeCatalog) CreateInvestmentTransaction(ctx context.Context, t core.InvestmentTransaction) (core.InvestmentTransaction, error) {
	t.ID = "it-new"
	f.invTxs = append(f.invTxs, t)
	return t, nil
}

type fixedRates struct{}

func (fixedRates) Rates(ctx context.Context) quotes.Rates {
	return quotes.FallbackRates(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
}

type pingFunc func(ctx context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

func newTestServer(t *testing.T, mutate func(*Options)) (*Server, *fakeLedger, *fakeCatalog) {
	t.Helper()
	ledger := &fakeLedger{}
	catalog := &fakeCatalog{
		categories: []core.Category{{ID: "c1", Name: "Food", Type: core.Expense}},
		bills: map[string]core.RecurringBill{
			"b1": {ID: "b1", Name: "Rent", Amount: decimal.NewFromInt(1500), DueDay: 5, Active: true, Category: core.Category{ID: "c1"}},
		},
	}
	opts := Options{
		Ledger:             ledger,
		Catalog:            catalog,
		Quotes:             fixedRates{},
		RateLimitPerMinute: 100,
		Logger:             log.New(log.Config{Level: log.DefaultConfig().Level, Output: io.Discard}),
	}
	if mutate != nil {
		mutate(&opts)
	}
	s := NewServer(opts)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, ledger, catalog
}

func do(s *Server, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, rd)
	for k, v := range header {
		r.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, r)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	if rec := do(s, "GET", "/healthz", "", nil); rec.Code != 200 || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(s, "GET", "/readyz", "", nil); rec.Code != 200 {
		t.Fatalf("readyz without checker: %d", rec.Code)
	}

	failing, _, _ := newTestServer(t, func(o *Options) {
		o.Ready = pingFunc(func(ctx context.Context) error { return errors.New("db down") })
	})
	if rec := do(failing, "GET", "/readyz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing checker: %d", rec.Code)
	}
}

func TestResponsesCarryRequestIDAndSecurityHeaders(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	rec := do(s, "GET", "/healthz", "", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if s.Metrics().Requests != 1 {
		t.Errorf("Requests = %d, want 1", s.Metrics().Requests)
	}
}

func TestDashboardPeriods(t *testing.T) {
	s, ledger, _ := newTestServer(t, nil)

	tests := []struct {
		query      string
		wantStatus int
		want       core.Period
	}{
		{"", 200, core.MonthPeriod(2024, time.March)},
		{"?mes=todos", 200, core.AllTime()},
		{"?mes=2023-12", 200, core.MonthPeriod(2023, time.December)},
		{"?mes=12-2023", 400, core.Period{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			ledger.period = core.Period{}
			rec := do(s, "GET", "/api/dashboard"+tt.query, "", nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if ledger.period != tt.want {
				t.Errorf("period = %+v, want %+v", ledger.period, tt.want)
			}
		})
	}
}

func TestDaily(t *testing.T) {
	s, ledger, _ := newTestServer(t, nil)

	rec := do(s, "GET", "/api/dashboard/daily?mes=2024-02", "", nil)
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var days []core.DayBucket
	if err := json.Unmarshal(rec.Body.Bytes(), &days); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(days) != 29 {
		t.Errorf("len = %d, want 29", len(days))
	}

	for _, q := range []string{"", "?mes=todos", "?mes=bad"} {
		if rec := do(s, "GET", "/api/dashboard/daily"+q, "", nil); rec.Code != 400 {
			t.Errorf("daily%s: status = %d, want 400", q, rec.Code)
		}
	}

	ledger.dailyErr = errors.New("boom")
	if rec := do(s, "GET", "/api/dashboard/daily?mes=2024-02", "", nil); rec.Code != 500 {
		t.Errorf("store failure: status = %d, want 500", rec.Code)
	}
}

func TestCreateTransaction(t *testing.T) {
	s, ledger, _ := newTestServer(t, nil)

	rec := do(s, "POST", "/api/transactions",
		`{"amount":"300,00","description":"TV","date":"2024-03-01","categoryId":"c1","installments":3}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if len(ledger.created) != 1 || ledger.created[0].Installments != 3 {
		t.Fatalf("created = %+v", ledger.created)
	}

	rec = do(s, "POST", "/api/transactions", `{"amount":"0","date":"2024-03-01","categoryId":"c1"}`, nil)
	if rec.Code != 400 || decodeError(t, rec) != core.ErrInvalidAmount.Error() {
		t.Errorf("zero amount: %d %s", rec.Code, rec.Body.String())
	}

	ledger.createErr = core.ErrInvalidInstallments
	rec = do(s, "POST", "/api/transactions", `{"amount":"1","date":"2024-03-01","categoryId":"c1","installments":-1}`, nil)
	if rec.Code != 400 {
		t.Errorf("invalid installments: status = %d", rec.Code)
	}

	if rec := do(s, "PUT", "/api/transactions", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT transactions: status = %d", rec.Code)
	}
}

func TestCreateTransactionUnknownBill(t *testing.T) {
	s, ledger, _ := newTestServer(t, nil)
	ledger.createErr = fmt.Errorf("save transactions: %w",
		fmt.Errorf("recurring bill ghost: %w", storage.ErrNotFound))

	rec := do(s, "POST", "/api/transactions",
		`{"amount":"10","date":"2024-03-01","categoryId":"c1","recurringBillId":"ghost"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (%s)", rec.Code, rec.Body.String())
	}
	if got := decodeError(t, rec); got != "not found" {
		t.Errorf("error = %q", got)
	}
}

func TestListTransactions(t *testing.T) {
	s, ledger, _ := newTestServer(t, nil)

	rec := do(s, "GET", "/api/transactions?categoriaId=c1&dataInicio=2024-01-01&dataFim=2024-01-31&limite=5", "", nil)
	if rec.Code != 200 {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	want := core.TransactionFilter{
		CategoryID: "c1",
		From:       civil.Date{Year: 2024, Month: 1, Day: 1},
		To:         civil.Date{Year: 2024, Month: 1, Day: 31},
		Limit:      5,
	}
	if ledger.filter != want {
		t.Errorf("filter = %+v, want %+v", ledger.filter, want)
	}

	tests := []struct {
		query string
		want  error
	}{
		{"?dataInicio=2024-13-01", core.ErrInvalidDate},
		{"?dataInicio=2024-02-01&dataFim=2024-01-01", core.ErrInvalidDateRange},
		{"?limite=-1", core.ErrInvalidLimit},
		{"?limite=ten", core.ErrInvalidLimit},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := do(s, "GET", "/api/transactions"+tt.query, "", nil)
			if rec.Code != 400 || decodeError(t, rec) != tt.want.Error() {
				t.Errorf("got %d %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRecurringBillByID(t *testing.T) {
	s, _, catalog := newTestServer(t, nil)

	rec := do(s, "GET", "/api/recurring-bills/b1", "", nil)
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"situacao"`) {
		t.Errorf("get bill: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(s, "GET", "/api/recurring-bills/missing", "", nil); rec.Code != 404 {
		t.Errorf("get missing bill: %d", rec.Code)
	}

	rec = do(s, "PUT", "/api/recurring-bills/b1", `{"amount":"1600,50","active":false}`, nil)
	if rec.Code != 200 {
		t.Fatalf("update bill: %d %s", rec.Code, rec.Body.String())
	}
	got := catalog.bills["b1"]
	if !got.Amount.Equal(decimal.RequireFromString("1600.50")) || got.Active || got.Name != "Rent" || got.DueDay != 5 {
		t.Errorf("updated bill = %+v", got)
	}

	rec = do(s, "PUT", "/api/recurring-bills/b1", `{"dueDay":0}`, nil)
	if rec.Code != 400 || decodeError(t, rec) != core.ErrInvalidDueDay.Error() {
		t.Errorf("invalid patch: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(s, "PUT", "/api/recurring-bills/missing", `{"name":"X"}`, nil); rec.Code != 404 {
		t.Errorf("update missing bill: %d", rec.Code)
	}

	if rec := do(s, "DELETE", "/api/recurring-bills/b1", "", nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete bill: %d", rec.Code)
	}
	if _, ok := catalog.bills["b1"]; ok {
		t.Error("bill still present after delete")
	}
	if rec := do(s, "DELETE", "/api/recurring-bills/b1", "", nil); rec.Code != 404 {
		t.Errorf("second delete: %d", rec.Code)
	}
	if rec := do(s, "PATCH", "/api/recurring-bills/b1", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PATCH bill: %d", rec.Code)
	}
}

func TestInvestmentWrites(t *testing.T) {
	s, _, catalog := newTestServer(t, nil)

	if rec := do(s, "POST", "/api/investments/wallets", `{"name":"Main"}`, nil); rec.Code != http.StatusCreated {
		t.Errorf("create wallet: %d %s", rec.Code, rec.Body.String())
	}
	if len(catalog.wallets) != 1 || !catalog.wallets[0].Active {
		t.Errorf("wallets = %+v", catalog.wallets)
	}
	if rec := do(s, "POST", "/api/investments/wallets", `{"name":" "}`, nil); rec.Code != 400 {
		t.Errorf("blank wallet: %d", rec.Code)
	}

	rec := do(s, "POST", "/api/investments", `{"name":"ETF","currency":"usd","walletId":"w1"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create investment: %d %s", rec.Code, rec.Body.String())
	}
	if catalog.investments[0].Currency != core.USD {
		t.Errorf("currency = %q", catalog.investments[0].Currency)
	}
	if rec := do(s, "POST", "/api/investments", `{"name":"ETF","currency":"JPY","walletId":"w1"}`, nil); rec.Code != 400 {
		t.Errorf("bad currency: %d", rec.Code)
	}
	if rec := do(s, "POST", "/api/investments", `{"name":"ETF","walletId":"ghost"}`, nil); rec.Code != 404 {
		t.Errorf("unknown wallet: %d", rec.Code)
	}
	if rec := do(s, "GET", "/api/investments", "", nil); rec.Code != 200 || !strings.Contains(rec.Body.String(), "ETF") {
		t.Errorf("list investments: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(s, "POST", "/api/investments/transactions",
		`{"amount":"250","date":"2024-03-01","kind":"aporte","investmentId":"i-new"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create investment transaction: %d %s", rec.Code, rec.Body.String())
	}
	if catalog.invTxs[0].Kind != core.Contribution {
		t.Errorf("kind = %q", catalog.invTxs[0].Kind)
	}
	rec = do(s, "POST", "/api/investments/transactions",
		`{"amount":"250","date":"2024-03-01","kind":"gift","investmentId":"i-new"}`, nil)
	if rec.Code != 400 || decodeError(t, rec) != core.ErrInvalidKind.Error() {
		t.Errorf("bad kind: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(s, "GET", "/api/investments/transactions", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET investment transactions: %d", rec.Code)
	}
}

func TestCategoriesAndBills(t *testing.T) {
	s, _, catalog := newTestServer(t, nil)

	rec := do(s, "POST", "/api/categories", `{"name":"Salary","type":"INCOME"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: %d %s", rec.Code, rec.Body.String())
	}
	if len(catalog.categories) != 2 {
		t.Errorf("categories = %d, want 2", len(catalog.categories))
	}
	if rec := do(s, "GET", "/api/categories", "", nil); rec.Code != 200 {
		t.Errorf("list categories: %d", rec.Code)
	}

	rec = do(s, "POST", "/api/recurring-bills", `{"name":"Rent","amount":"1500","dueDay":40,"categoryId":"c1"}`, nil)
	if rec.Code != 400 || decodeError(t, rec) != core.ErrInvalidDueDay.Error() {
		t.Errorf("bad due day: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(s, "POST", "/api/recurring-bills", `{"name":"Rent","amount":"1500","dueDay":5,"categoryId":"c1"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Errorf("create bill: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(s, "GET", "/api/recurring-bills", "", nil); rec.Code != 200 || !strings.Contains(rec.Body.String(), `"contas"`) {
		t.Errorf("list bills: %d %s", rec.Code, rec.Body.String())
	}
}

func TestQuotesAndWallets(t *testing.T) {
	s, _, _ := newTestServer(t, nil)

	rec := do(s, "GET", "/api/quotes", "", nil)
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"source":"`+quotes.SourceFixed+`"`) {
		t.Errorf("quotes: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(s, "GET", "/api/investments/wallets", "", nil); rec.Code != 200 {
		t.Errorf("wallets: %d", rec.Code)
	}
	if rec := do(s, "GET", "/api/nope", "", nil); rec.Code != 404 {
		t.Errorf("unknown route: %d", rec.Code)
	}
}

func TestAPIToken(t *testing.T) {
	s, _, _ := newTestServer(t, func(o *Options) { o.APIToken = "s3cret" })

	if rec := do(s, "GET", "/api/quotes", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}
	h := http.Header{"Authorization": {"Bearer s3cret"}}
	if rec := do(s, "GET", "/api/quotes", "", h); rec.Code != 200 {
		t.Fatalf("with token: %d", rec.Code)
	}
	if rec := do(s, "GET", "/healthz", "", nil); rec.Code != 200 {
		t.Errorf("healthz must stay public: %d", rec.Code)
	}
	if s.Metrics().Unauthorized != 1 {
		t.Errorf("Unauthorized = %d, want 1", s.Metrics().Unauthorized)
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	s, _, _ := newTestServer(t, func(o *Options) { o.RateLimitPerMinute = 2 })

	body := `{"name":"X","type":"EXPENSE"}`
	for i := 0; i < 2; i++ {
		if rec := do(s, "POST", "/api/categories", body, nil); rec.Code != http.StatusCreated {
			t.Fatalf("request %d: %d", i, rec.Code)
		}
	}
	rec := do(s, "POST", "/api/categories", body, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third write: %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if rec := do(s, "GET", "/api/categories", "", nil); rec.Code != 200 {
		t.Errorf("reads are not limited: %d", rec.Code)
	}
	if rec := do(s, "DELETE", "/api/recurring-bills/b1", "", nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("deletes are limited: %d", rec.Code)
	}
}
