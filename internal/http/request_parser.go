// Package http provides the JSON API server and its handlers.
//
// This file implements request decoding and validation. Handlers receive
// domain values; malformed input is reported as a validation error.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/services"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks input that could not be decoded at all.
var errBadRequest = errors.New("malformed request body")

// amountField accepts an amount as a JSON string ("12,34") or number (12.34).
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amountField(n.String())
	return nil
}

func (a amountField) parse() (decimal.Decimal, error) {
	return core.ParseAmount(string(a))
}

func parseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil || !d.IsValid() {
		return civil.Date{}, core.ErrInvalidDate
	}
	return d, nil
}

// decodeJSON reads a single JSON object into dst. Unknown fields, trailing
// data and bodies over maxBodyBytes are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errBadRequest)
	}
	return nil
}

type transactionRequest struct {
	Amount          amountField `json:"amount"`
	Description     string      `json:"description"`
	Date            string      `json:"date"`
	CategoryID      string      `json:"categoryId"`
	RecurringBillID string      `json:"recurringBillId"`
	Installments    int         `json:"installments"`
}

func (req transactionRequest) toInput() (services.TransactionInput, error) {
	amount, err := req.Amount.parse()
	if err != nil {
		return services.TransactionInput{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return services.TransactionInput{}, err
	}
	if strings.TrimSpace(req.CategoryID) == "" {
		return services.TransactionInput{}, core.ErrEmptyCategory
	}
	return services.TransactionInput{
		Amount:          amount,
		Description:     sanitizeInput(req.Description),
		Date:            date,
		CategoryID:      strings.TrimSpace(req.CategoryID),
		RecurringBillID: strings.TrimSpace(req.RecurringBillID),
		Installments:    req.Installments,
	}, nil
}

type recurringBillRequest struct {
	Name        string      `json:"name"`
	Amount      amountField `json:"amount"`
	Description string      `json:"description"`
	DueDay      int         `json:"dueDay"`
	Active      *bool       `json:"active"`
	CategoryID  string      `json:"categoryId"`
}

func (req recurringBillRequest) toBill() (core.RecurringBill, error) {
	if err := core.ValidateDueDay(req.DueDay); err != nil {
		return core.RecurringBill{}, err
	}
	amount, err := req.Amount.parse()
	if err != nil {
		return core.RecurringBill{}, err
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	b := core.RecurringBill{
		Name:        sanitizeInput(req.Name),
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		DueDay:      req.DueDay,
		Active:      active,
		Category:    core.Category{ID: strings.TrimSpace(req.CategoryID)},
	}
	return b, b.Validate()
}

type categoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (req categoryRequest) toCategory() (core.Category, error) {
	typ, err := core.ParseCategoryType(req.Type)
	if err != nil {
		return core.Category{}, err
	}
	c := core.Category{Name: sanitizeInput(req.Name), Type: typ}
	return c, c.Validate()
}

// billPatch is a partial update of a recurring bill. Absent fields keep
// their stored value.
type billPatch struct {
	Name        *string      `json:"name"`
	Amount      *amountField `json:"amount"`
	Description *string      `json:"description"`
	DueDay      *int         `json:"dueDay"`
	Active      *bool        `json:"active"`
	CategoryID  *string      `json:"categoryId"`
}

func (p billPatch) apply(b core.RecurringBill) (core.RecurringBill, error) {
	if p.Name != nil {
		b.Name = sanitizeInput(*p.Name)
	}
	if p.Amount != nil {
		amount, err := p.Amount.parse()
		if err != nil {
			return core.RecurringBill{}, err
		}
		b.Amount = amount
	}
	if p.Description != nil {
		b.Description = sanitizeInput(*p.Description)
	}
	if p.DueDay != nil {
		b.DueDay = *p.DueDay
	}
	if p.Active != nil {
		b.Active = *p.Active
	}
	if p.CategoryID != nil {
		b.Category = core.Category{ID: strings.TrimSpace(*p.CategoryID)}
	}
	return b, b.Validate()
}

type walletRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (req walletRequest) toWallet() (core.InvestmentWallet, error) {
	wallet := core.InvestmentWallet{
		Name:        sanitizeInput(req.Name),
		Description: sanitizeInput(req.Description),
		Active:      true,
	}
	return wallet, wallet.Validate()
}

type investmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Currency    string `json:"currency"`
	WalletID    string `json:"walletId"`
}

func (req investmentRequest) toInvestment() (core.Investment, error) {
	cur, err := core.ParseCurrency(req.Currency)
	if err != nil {
		return core.Investment{}, err
	}
	inv := core.Investment{
		Name:        sanitizeInput(req.Name),
		Description: sanitizeInput(req.Description),
		Currency:    cur,
		Active:      true,
		WalletID:    strings.TrimSpace(req.WalletID),
	}
	return inv, inv.Validate()
}

type investmentTransactionRequest struct {
	Amount       amountField `json:"amount"`
	Description  string      `json:"description"`
	Date         string      `json:"date"`
	Kind         string      `json:"kind"`
	InvestmentID string      `json:"investmentId"`
}

func (req investmentTransactionRequest) toTransaction() (core.InvestmentTransaction, error) {
	amount, err := req.Amount.parse()
	if err != nil {
		return core.InvestmentTransaction{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.InvestmentTransaction{}, err
	}
	kind, err := core.ParseInvestmentKind(req.Kind)
	if err != nil {
		return core.InvestmentTransaction{}, err
	}
	t := core.InvestmentTransaction{
		Amount:       amount,
		Description:  sanitizeInput(req.Description),
		Date:         date,
		Kind:         kind,
		InvestmentID: strings.TrimSpace(req.InvestmentID),
	}
	return t, t.Validate()
}

// parseTransactionFilter reads the listing filters of GET /api/transactions.
func parseTransactionFilter(q url.Values) (core.TransactionFilter, error) {
	f := core.TransactionFilter{
		CategoryID:      strings.TrimSpace(q.Get("categoriaId")),
		RecurringBillID: strings.TrimSpace(q.Get("contaRecorrenteId")),
	}
	var err error
	if v := q.Get("dataInicio"); v != "" {
		if f.From, err = parseDate(v); err != nil {
			return core.TransactionFilter{}, err
		}
	}
	if v := q.Get("dataFim"); v != "" {
		if f.To, err = parseDate(v); err != nil {
			return core.TransactionFilter{}, err
		}
	}
	if v := strings.TrimSpace(q.Get("limite")); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			return core.TransactionFilter{}, core.ErrInvalidLimit
		}
	}
	return f, f.Validate()
}
