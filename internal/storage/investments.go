package storage

import (
	"context"
	"fmt"
	"strings"

	"financas/internal/core"
)

func (r *SQLiteRepository) CreateWallet(ctx context.Context, w core.InvestmentWallet) (core.InvestmentWallet, error) {
	w.Name = strings.TrimSpace(w.Name)
	if err := w.Validate(); err != nil {
		return core.InvestmentWallet{}, err
	}
	w.ID = newID(w.ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO investment_wallets (id, name, description, active) VALUES (?, ?, ?, ?)`,
		w.ID, w.Name, w.Description, boolToInt(w.Active))
	if err != nil {
		return core.InvestmentWallet{}, fmt.Errorf("create wallet: %w", err)
	}
	return w, nil
}

func (r *SQLiteRepository) ListWallets(ctx context.Context) ([]core.InvestmentWallet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, active FROM investment_wallets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	out := []core.InvestmentWallet{}
	for rows.Next() {
		var w core.InvestmentWallet
		var active int
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &active); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		w.Active = active != 0
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateInvestment(ctx context.Context, inv core.Investment) (core.Investment, error) {
	inv.Name = strings.TrimSpace(inv.Name)
	if inv.Currency == "" {
		inv.Currency = core.BRL
	}
	if err := inv.Validate(); err != nil {
		return core.Investment{}, err
	}
	if err := requireRow(ctx, r.db, `SELECT 1 FROM investment_wallets WHERE id = ?`, inv.WalletID); err != nil {
		return core.Investment{}, fmt.Errorf("wallet %s: %w", inv.WalletID, err)
	}
	inv.ID = newID(inv.ID)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO investments (id, name, description, currency, active, wallet_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Name, inv.Description, string(inv.Currency), boolToInt(inv.Active), inv.WalletID)
	if err != nil {
		return core.Investment{}, fmt.Errorf("create investment: %w", err)
	}
	return inv, nil
}

func (r *SQLiteRepository) ListInvestments(ctx context.Context) ([]core.Investment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, currency, active, wallet_id
		FROM investments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	out := []core.Investment{}
	for rows.Next() {
		var inv core.Investment
		var currency string
		var active int
		if err := rows.Scan(&inv.ID, &inv.Name, &inv.Description, &currency, &active, &inv.WalletID); err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		inv.Currency = core.Currency(currency)
		inv.Active = active != 0
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateInvestmentTransaction(ctx context.Context, t core.InvestmentTransaction) (core.InvestmentTransaction, error) {
	if err := t.Validate(); err != nil {
		return core.InvestmentTransaction{}, err
	}
	if err := requireRow(ctx, r.db, `SELECT 1 FROM investments WHERE id = ?`, t.InvestmentID); err != nil {
		return core.InvestmentTransaction{}, fmt.Errorf("investment %s: %w", t.InvestmentID, err)
	}
	t.ID = newID(t.ID)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO investment_transactions (id, amount, description, date, kind, investment_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Amount.StringFixed(2), t.Description, formatDate(t.Date), string(t.Kind), t.InvestmentID)
	if err != nil {
		return core.InvestmentTransaction{}, fmt.Errorf("create investment transaction: %w", err)
	}
	return t, nil
}

// InvestmentTransactionsByInvestment loads every investment transaction
// grouped by investment ID.
func (r *SQLiteRepository) InvestmentTransactionsByInvestment(ctx context.Context) (map[string][]core.InvestmentTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount, description, date, kind, investment_id
		FROM investment_transactions ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("list investment transactions: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]core.InvestmentTransaction)
	for rows.Next() {
		var t core.InvestmentTransaction
		var amount, date, kind string
		if err := rows.Scan(&t.ID, &amount, &t.Description, &date, &kind, &t.InvestmentID); err != nil {
			return nil, fmt.Errorf("scan investment transaction: %w", err)
		}
		d, err := parseDate(date)
		if err != nil {
			return nil, err
		}
		t.Date = d
		t.Amount = core.CoerceAmount(amount)
		t.Kind = core.InvestmentKind(kind)
		out[t.InvestmentID] = append(out[t.InvestmentID], t)
	}
	return out, rows.Err()
}
