package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"financas/internal/core"
)

// transactionColumns joins the category with a LEFT JOIN so a dangling
// category reference surfaces as ErrIntegrity instead of a dropped row.
const transactionColumns = `
	SELECT t.id, t.amount, t.description, t.date, t.category_id,
	       COALESCE(t.recurring_bill_id, ''), t.created_at,
	       c.id, c.name, c.type
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		tx                      core.Transaction
		amount, date, createdAt string
		categoryRef             string
		catID, catName, catType sql.NullString
	)
	if err := s.Scan(&tx.ID, &amount, &tx.Description, &date, &categoryRef,
		&tx.RecurringBillID, &createdAt, &catID, &catName, &catType); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	if !catID.Valid {
		return core.Transaction{}, fmt.Errorf("%w: transaction %s references missing category %s",
			ErrIntegrity, tx.ID, categoryRef)
	}

	d, err := parseDate(date)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Date = d
	tx.Amount = core.CoerceAmount(amount)
	tx.Category = core.Category{ID: catID.String, Name: catName.String, Type: core.CategoryType(catType.String)}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		tx.CreatedAt = t
	}
	return tx, nil
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// CreateTransactions stores txs atomically. Installment splits are written
// through here so either all parts exist or none.
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	if len(txs) == 0 {
		return []core.Transaction{}, nil
	}

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO transactions (id, amount, description, date, category_id, recurring_bill_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	out := make([]core.Transaction, 0, len(txs))
	now := r.now().UTC()
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return nil, err
		}
		cat, err := r.categoryIn(ctx, dbtx, tx.Category.ID)
		if err != nil {
			return nil, err
		}
		tx.Category = cat
		if tx.RecurringBillID != "" {
			if err := requireRow(ctx, dbtx, `SELECT 1 FROM recurring_bills WHERE id = ?`, tx.RecurringBillID); err != nil {
				return nil, fmt.Errorf("recurring bill %s: %w", tx.RecurringBillID, err)
			}
		}

		tx.ID = newID(tx.ID)
		tx.CreatedAt = now
		var billID any
		if tx.RecurringBillID != "" {
			billID = tx.RecurringBillID
		}
		if _, err := stmt.ExecContext(ctx, tx.ID, tx.Amount.StringFixed(2), tx.Description,
			formatDate(tx.Date), tx.Category.ID, billID, now.Format(time.RFC3339Nano)); err != nil {
			return nil, fmt.Errorf("insert transaction: %w", err)
		}
		out = append(out, tx)
	}

	if err := dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions saved to SQLite", "count", len(out))
	return out, nil
}

// categoryIn loads the category inside a database transaction so stored rows
// carry the full category, not just the ID the caller passed.
func (r *SQLiteRepository) categoryIn(ctx context.Context, dbtx *sql.Tx, id string) (core.Category, error) {
	var c core.Category
	var typ string
	err := dbtx.QueryRowContext(ctx, `SELECT id, name, type FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	c.Type = core.CategoryType(typ)
	return c, nil
}

// ListTransactions returns the transactions of period ordered by date
// descending, then creation time descending.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, period core.Period) ([]core.Transaction, error) {
	if period.All {
		return r.queryTransactions(ctx, transactionColumns+`
			ORDER BY t.date DESC, t.created_at DESC`)
	}
	return r.queryTransactions(ctx, transactionColumns+`
		WHERE t.date >= ? AND t.date <= ?
		ORDER BY t.date DESC, t.created_at DESC`,
		formatDate(period.FirstDay()), formatDate(period.LastDay()))
}

// ListBillPayments returns the transactions linked to any recurring bill in
// the given month.
func (r *SQLiteRepository) ListBillPayments(ctx context.Context, year int, month time.Month) ([]core.Transaction, error) {
	p := core.MonthPeriod(year, month)
	return r.queryTransactions(ctx, transactionColumns+`
		WHERE t.recurring_bill_id IS NOT NULL AND t.date >= ? AND t.date <= ?
		ORDER BY t.date DESC`,
		formatDate(p.FirstDay()), formatDate(p.LastDay()))
}

// FindTransactions lists transactions matching f, newest first.
func (r *SQLiteRepository) FindTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.CategoryID != "" {
		where = append(where, "t.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.RecurringBillID != "" {
		where = append(where, "t.recurring_bill_id = ?")
		args = append(args, f.RecurringBillID)
	}
	if f.From != (civil.Date{}) {
		where = append(where, "t.date >= ?")
		args = append(args, formatDate(f.From))
	}
	if f.To != (civil.Date{}) {
		where = append(where, "t.date <= ?")
		args = append(args, formatDate(f.To))
	}

	query := transactionColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.date DESC, t.created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return r.queryTransactions(ctx, query, args...)
}
