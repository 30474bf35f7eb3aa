package core

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

var ErrInvalidInstallments = errors.New("installments must be at least 1")

// InstallmentRequest describes a purchase split into monthly installments.
type InstallmentRequest struct {
	Total           decimal.Decimal
	Count           int
	FirstDate       civil.Date
	Description     string
	Category        Category
	RecurringBillID string
}

// SplitInstallments produces Count independent transactions dated one
// calendar month apart starting at FirstDate. Each amount is Total/Count in
// cents; the rounding remainder goes to the first installment so the parts
// always add up to Total. A Count of 1 yields a single plain transaction.
func SplitInstallments(req InstallmentRequest) ([]Transaction, error) {
	if req.Count < 1 {
		return nil, ErrInvalidInstallments
	}
	if err := validatePositive(req.Total); err != nil {
		return nil, err
	}
	if err := validateDate(req.FirstDate); err != nil {
		return nil, err
	}

	if req.Count == 1 {
		return []Transaction{{
			Amount:          req.Total,
			Description:     req.Description,
			Date:            req.FirstDate,
			Category:        req.Category,
			RecurringBillID: req.RecurringBillID,
		}}, nil
	}

	n := decimal.NewFromInt(int64(req.Count))
	part := req.Total.DivRound(n, 2)
	remainder := req.Total.Sub(part.Mul(n))

	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = "Transação"
	}

	out := make([]Transaction, req.Count)
	for i := range out {
		amount := part
		if i == 0 {
			amount = part.Add(remainder)
		}
		out[i] = Transaction{
			Amount:          amount,
			Description:     fmt.Sprintf("%s (%d/%d)", desc, i+1, req.Count),
			Date:            AddMonthsClamped(req.FirstDate, i),
			Category:        req.Category,
			RecurringBillID: req.RecurringBillID,
		}
	}
	return out, nil
}
