package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"financas/internal/core"
)

const billColumns = `
	SELECT b.id, b.name, b.amount, b.description, b.due_day, b.active, b.category_id,
	       c.id, c.name, c.type
	FROM recurring_bills b
	LEFT JOIN categories c ON c.id = b.category_id`

func scanBill(s rowScanner) (core.RecurringBill, error) {
	var (
		b                       core.RecurringBill
		amount, categoryRef     string
		active                  int
		catID, catName, catType sql.NullString
	)
	if err := s.Scan(&b.ID, &b.Name, &amount, &b.Description, &b.DueDay, &active,
		&categoryRef, &catID, &catName, &catType); err != nil {
		return core.RecurringBill{}, fmt.Errorf("scan recurring bill: %w", err)
	}
	if !catID.Valid {
		return core.RecurringBill{}, fmt.Errorf("%w: recurring bill %s references missing category %s",
			ErrIntegrity, b.ID, categoryRef)
	}
	b.Amount = core.CoerceAmount(amount)
	b.Active = active != 0
	b.Category = core.Category{ID: catID.String, Name: catName.String, Type: core.CategoryType(catType.String)}
	return b, nil
}

func (r *SQLiteRepository) CreateRecurringBill(ctx context.Context, b core.RecurringBill) (core.RecurringBill, error) {
	b.Name = strings.TrimSpace(b.Name)
	if err := b.Validate(); err != nil {
		return core.RecurringBill{}, err
	}
	cat, err := r.GetCategory(ctx, b.Category.ID)
	if err != nil {
		return core.RecurringBill{}, err
	}
	b.Category = cat
	b.ID = newID(b.ID)

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO recurring_bills (id, name, amount, description, due_day, active, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Amount.StringFixed(2), b.Description, b.DueDay, boolToInt(b.Active), b.Category.ID)
	if err != nil {
		return core.RecurringBill{}, fmt.Errorf("create recurring bill: %w", err)
	}

	slog.InfoContext(ctx, "Recurring bill created",
		"id", b.ID,
		"name", b.Name,
		"amount", b.Amount.StringFixed(2),
		"due_day", b.DueDay)
	return b, nil
}

func (r *SQLiteRepository) UpdateRecurringBill(ctx context.Context, b core.RecurringBill) (core.RecurringBill, error) {
	b.Name = strings.TrimSpace(b.Name)
	if err := b.Validate(); err != nil {
		return core.RecurringBill{}, err
	}
	cat, err := r.GetCategory(ctx, b.Category.ID)
	if err != nil {
		return core.RecurringBill{}, err
	}
	b.Category = cat

	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_bills
		SET name = ?, amount = ?, description = ?, due_day = ?, active = ?, category_id = ?
		WHERE id = ?`,
		b.Name, b.Amount.StringFixed(2), b.Description, b.DueDay, boolToInt(b.Active), b.Category.ID, b.ID)
	if err != nil {
		return core.RecurringBill{}, fmt.Errorf("update recurring bill: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.RecurringBill{}, fmt.Errorf("recurring bill %s: %w", b.ID, ErrNotFound)
	}
	return b, nil
}

// DeleteRecurringBill removes a bill. Its payments stay and lose the link.
func (r *SQLiteRepository) DeleteRecurringBill(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring bill: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("recurring bill %s: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Recurring bill deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) GetRecurringBill(ctx context.Context, id string) (core.RecurringBill, error) {
	b, err := scanBill(r.db.QueryRowContext(ctx, billColumns+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringBill{}, fmt.Errorf("recurring bill %s: %w", id, ErrNotFound)
	}
	return b, err
}

// ListRecurringBills returns bills ordered by due day. With activeOnly set,
// inactive bills are left out.
func (r *SQLiteRepository) ListRecurringBills(ctx context.Context, activeOnly bool) ([]core.RecurringBill, error) {
	query := billColumns
	if activeOnly {
		query += ` WHERE b.active = 1`
	}
	query += ` ORDER BY b.due_day, b.name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list recurring bills: %w", err)
	}
	defer rows.Close()

	out := []core.RecurringBill{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
