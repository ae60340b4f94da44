package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

const categoryColumns = `id, user_id, name, is_income`

func scanCategory(scan func(...any) error) (core.Category, error) {
	var c core.Category
	if err := scan(&c.ID, &c.UserID, &c.Name, &c.IsIncome); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func categoryWriteError(err error, c core.Category) error {
	if isUniqueViolation(err) {
		kind := "expense"
		if c.IsIncome {
			kind = "income"
		}
		return core.NewValidation("name", fmt.Sprintf("an %s category named %q already exists", kind, c.Name))
	}
	if isForeignKeyViolation(err) {
		return core.NewNotFound("user", c.UserID)
	}
	return fmt.Errorf("save category: %w", err)
}

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	id, err := s.insert(ctx,
		`INSERT INTO categories (user_id, name, is_income) VALUES (?, ?, ?)`, c.UserID, c.Name, c.IsIncome)
	if err != nil {
		return core.Category{}, categoryWriteError(err, c)
	}
	c.ID = id
	return c, nil
}

// ListCategories returns the user's categories ordered by name. A nil
// income filter returns both kinds.
func (s *Store) ListCategories(ctx context.Context, userID int64, income *bool) ([]core.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = ?`
	args := []any{userID}
	if income != nil {
		query += ` AND is_income = ?`
		args = append(args, *income)
	}
	query += ` ORDER BY is_income DESC, name, id`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	row := s.queryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCategory(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NewNotFound("category", id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := s.exec(ctx,
		`UPDATE categories SET name = ?, is_income = ? WHERE id = ? AND user_id = ?`,
		c.Name, c.IsIncome, c.ID, c.UserID)
	if err != nil {
		return core.Category{}, categoryWriteError(err, c)
	}
	if err := affectedOrNotFound(res, core.NewNotFound("category", c.ID)); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

// DeleteCategory removes a category. It fails with ProtectedDeleteError and
// leaves the row intact while any transaction references it. Budgets for the
// category are removed with it.
func (s *Store) DeleteCategory(ctx context.Context, userID, id int64) error {
	return s.InTx(ctx, func(tx *Store) error {
		if err := tx.ensureOwned(ctx, "categories", "category", userID, id); err != nil {
			return err
		}
		refs, err := tx.countRefs(ctx, "category_id", id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return &core.ProtectedDeleteError{Entity: "category", ID: id, References: refs}
		}
		if _, err := tx.exec(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			if isForeignKeyViolation(err) {
				return &core.ProtectedDeleteError{Entity: "category", ID: id}
			}
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}
