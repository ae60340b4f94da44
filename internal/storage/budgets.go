package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

const budgetColumns = `id, user_id, category_id, amount, period`

func scanBudget(scan func(...any) error) (core.Budget, error) {
	var b core.Budget
	if err := scan(&b.ID, &b.UserID, &b.CategoryID, &b.Amount, dateColumn{&b.Period}); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// UpsertBudget creates or replaces the ceiling for (user, category, period).
// Concurrent writers resolve through the unique key; the last write wins.
func (s *Store) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	err := s.InTx(ctx, func(tx *Store) error {
		if err := tx.ensureOwned(ctx, "categories", "category", b.UserID, b.CategoryID); err != nil {
			return err
		}
		id, err := tx.insert(ctx,
			`INSERT INTO budgets (user_id, category_id, amount, period) VALUES (?, ?, ?, ?)
			 ON CONFLICT (user_id, category_id, period) DO UPDATE SET amount = excluded.amount`,
			b.UserID, b.CategoryID, b.Amount, b.Period.String())
		if err != nil {
			return fmt.Errorf("upsert budget: %w", err)
		}
		b.ID = id
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// ListBudgets returns the user's budgets. A zero period returns every month;
// otherwise only budgets for that month.
func (s *Store) ListBudgets(ctx context.Context, userID int64, period core.Date) ([]core.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = ?`
	args := []any{userID}
	if !period.IsZero() {
		query += ` AND period = ?`
		args = append(args, period.MonthStart().String())
	}
	query += ` ORDER BY period DESC, category_id`
	return s.listBudgets(ctx, query, args...)
}

// BudgetsForYear returns budgets whose period falls in year.
func (s *Store) BudgetsForYear(ctx context.Context, userID int64, year int) ([]core.Budget, error) {
	return s.listBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND period >= ? AND period <= ? ORDER BY period, category_id`,
		userID, core.NewDate(year, 1, 1).String(), core.NewDate(year, 12, 1).String())
}

func (s *Store) listBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) GetBudget(ctx context.Context, userID, id int64) (core.Budget, error) {
	row := s.queryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBudget(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.NewNotFound("budget", id)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (s *Store) DeleteBudget(ctx context.Context, userID, id int64) error {
	res, err := s.exec(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return affectedOrNotFound(res, core.NewNotFound("budget", id))
}
