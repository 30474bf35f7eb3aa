package core

import (
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

const (
	Income  CategoryType = "INCOME"
	Expense CategoryType = "EXPENSE"
)

const (
	BRL Currency = "BRL"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

const (
	Contribution InvestmentKind = "CONTRIBUTION"
	Withdrawal   InvestmentKind = "WITHDRAWAL"
	Yield        InvestmentKind = "YIELD"
)

type (
	CategoryType   string
	Currency       string
	InvestmentKind string

	Category struct {
		ID   string       `json:"id"`
		Name string       `json:"name"`
		Type CategoryType `json:"type"`
	}

	// Transaction is a single income or expense entry. Amount is always
	// positive; the category type decides whether it adds to or subtracts
	// from the balance.
	Transaction struct {
		ID              string          `json:"id"`
		Amount          decimal.Decimal `json:"amount"`
		Description     string          `json:"description,omitempty"`
		Date            civil.Date      `json:"date"`
		Category        Category        `json:"category"`
		RecurringBillID string          `json:"recurringBillId,omitempty"`
		CreatedAt       time.Time       `json:"createdAt"`
	}

	// RecurringBill is a monthly obligation realized by a linked Transaction.
	RecurringBill struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description,omitempty"`
		DueDay      int             `json:"dueDay"`
		Active      bool            `json:"active"`
		Category    Category        `json:"category"`
	}

	InvestmentWallet struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Active      bool   `json:"active"`
	}

	Investment struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Description string   `json:"description,omitempty"`
		Currency    Currency `json:"currency"`
		Active      bool     `json:"active"`
		WalletID    string   `json:"walletId"`
	}

	InvestmentTransaction struct {
		ID           string          `json:"id"`
		Amount       decimal.Decimal `json:"amount"`
		Description  string          `json:"description,omitempty"`
		Date         civil.Date      `json:"date"`
		Kind         InvestmentKind  `json:"kind"`
		InvestmentID string          `json:"investmentId"`
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidDueDay       = errors.New("due day must be between 1 and 31")
	ErrEmptyName           = errors.New("empty name")
	ErrEmptyCategory       = errors.New("empty category")
	ErrInvalidCategoryType = errors.New("invalid category type")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrInvalidKind         = errors.New("invalid investment transaction kind")
	ErrNameTooLong         = errors.New("name too long (max 100 characters)")
	ErrDescriptionTooLong  = errors.New("description too long (max 200 characters)")
	ErrEmptyWallet         = errors.New("empty wallet")
	ErrEmptyInvestment     = errors.New("empty investment")
	ErrInvalidDateRange    = errors.New("start date is after end date")
	ErrInvalidLimit        = errors.New("limit must not be negative")
)

var validationErrors = []error{
	ErrInvalidAmount, ErrInvalidDate, ErrInvalidDueDay, ErrEmptyName,
	ErrEmptyCategory, ErrInvalidCategoryType, ErrInvalidCurrency, ErrInvalidKind,
	ErrNameTooLong, ErrDescriptionTooLong, ErrEmptyWallet, ErrEmptyInvestment,
	ErrInvalidPeriod, ErrInvalidInstallments, ErrInvalidDateRange, ErrInvalidLimit,
}

// IsValidation reports whether err is caused by invalid user input.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ParseCategoryType accepts both the canonical tokens and the legacy
// ENTRADA/SAIDA ones.
func ParseCategoryType(s string) (CategoryType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INCOME", "ENTRADA":
		return Income, nil
	case "EXPENSE", "SAIDA":
		return Expense, nil
	}
	return "", ErrInvalidCategoryType
}

func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(s))); c {
	case BRL, USD, EUR:
		return c, nil
	case "":
		return BRL, nil
	}
	return "", ErrInvalidCurrency
}

func ParseInvestmentKind(s string) (InvestmentKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CONTRIBUTION", "APORTE":
		return Contribution, nil
	case "WITHDRAWAL", "RESGATE":
		return Withdrawal, nil
	case "YIELD", "RENDIMENTO":
		return Yield, nil
	}
	return "", ErrInvalidKind
}

// ValidateDueDay rejects days of month outside [1, 31].
func ValidateDueDay(day int) error {
	if day < 1 || day > 31 {
		return ErrInvalidDueDay
	}
	return nil
}

func validateDate(d civil.Date) error {
	if d == (civil.Date{}) || !d.IsValid() {
		return ErrInvalidDate
	}
	return nil
}

func validatePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return ErrNameTooLong
	}
	if c.Type != Income && c.Type != Expense {
		return ErrInvalidCategoryType
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := validatePositive(t.Amount); err != nil {
		return err
	}
	if err := validateDate(t.Date); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if strings.TrimSpace(t.Category.ID) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (b RecurringBill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if err := validatePositive(b.Amount); err != nil {
		return err
	}
	if err := ValidateDueDay(b.DueDay); err != nil {
		return err
	}
	if strings.TrimSpace(b.Category.ID) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (w InvestmentWallet) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (i Investment) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if _, err := ParseCurrency(string(i.Currency)); err != nil {
		return err
	}
	if strings.TrimSpace(i.WalletID) == "" {
		return ErrEmptyWallet
	}
	return nil
}

func (t InvestmentTransaction) Validate() error {
	if err := validatePositive(t.Amount); err != nil {
		return err
	}
	if err := validateDate(t.Date); err != nil {
		return err
	}
	if _, err := ParseInvestmentKind(string(t.Kind)); err != nil {
		return err
	}
	if strings.TrimSpace(t.InvestmentID) == "" {
		return ErrEmptyInvestment
	}
	return nil
}

// TransactionFilter narrows a transaction listing. Empty fields match
// everything; From and To are inclusive. A zero Limit means no limit.
type TransactionFilter struct {
	CategoryID      string
	RecurringBillID string
	From            civil.Date
	To              civil.Date
	Limit           int
}

func (f TransactionFilter) Validate() error {
	for _, d := range []civil.Date{f.From, f.To} {
		if d != (civil.Date{}) && !d.IsValid() {
			return ErrInvalidDate
		}
	}
	if f.From != (civil.Date{}) && f.To != (civil.Date{}) && f.To.Before(f.From) {
		return ErrInvalidDateRange
	}
	if f.Limit < 0 {
		return ErrInvalidLimit
	}
	return nil
}
