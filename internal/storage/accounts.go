package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

const accountColumns = `id, user_id, name, account_type, balance, display_order`

func scanAccount(scan func(...any) error) (core.Account, error) {
	var a core.Account
	var typ string
	if err := scan(&a.ID, &a.UserID, &a.Name, &typ, &a.Balance, &a.DisplayOrder); err != nil {
		return core.Account{}, err
	}
	a.Type = core.AccountType(typ)
	return a, nil
}

// CreateAccount inserts a at the end of the user's display order.
func (s *Store) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	err := s.InTx(ctx, func(tx *Store) error {
		var next int
		if err := tx.queryRow(ctx,
			`SELECT COALESCE(MAX(display_order), -1) + 1 FROM accounts WHERE user_id = ?`, a.UserID).Scan(&next); err != nil {
			return fmt.Errorf("next display order: %w", err)
		}
		a.DisplayOrder = next

		id, err := tx.insert(ctx,
			`INSERT INTO accounts (user_id, name, account_type, balance, display_order) VALUES (?, ?, ?, ?, ?)`,
			a.UserID, a.Name, string(a.Type), a.Balance, a.DisplayOrder)
		if err != nil {
			return accountWriteError(err, a)
		}
		a.ID = id
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func accountWriteError(err error, a core.Account) error {
	if isUniqueViolation(err) {
		return core.NewValidation("name", fmt.Sprintf("an account named %q already exists", a.Name))
	}
	if isForeignKeyViolation(err) {
		return core.NewNotFound("user", a.UserID)
	}
	return fmt.Errorf("save account: %w", err)
}

func (s *Store) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	rows, err := s.query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY display_order, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAccount(ctx context.Context, userID, id int64) (core.Account, error) {
	row := s.queryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.NewNotFound("account", id)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// UpdateAccount changes name, type and balance. Display order is managed by ReorderAccounts.
func (s *Store) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := s.exec(ctx,
		`UPDATE accounts SET name = ?, account_type = ?, balance = ? WHERE id = ? AND user_id = ?`,
		a.Name, string(a.Type), a.Balance, a.ID, a.UserID)
	if err != nil {
		return core.Account{}, accountWriteError(err, a)
	}
	if err := affectedOrNotFound(res, core.NewNotFound("account", a.ID)); err != nil {
		return core.Account{}, err
	}
	return s.GetAccount(ctx, a.UserID, a.ID)
}

// ReorderAccounts assigns display order by position in ids. Every id must
// belong to the user; accounts not listed keep their relative order after them.
func (s *Store) ReorderAccounts(ctx context.Context, userID int64, ids []int64) error {
	return s.InTx(ctx, func(tx *Store) error {
		current, err := tx.ListAccounts(ctx, userID)
		if err != nil {
			return err
		}
		owned := make(map[int64]bool, len(current))
		for _, a := range current {
			owned[a.ID] = true
		}

		order := make([]int64, 0, len(current))
		listed := make(map[int64]bool, len(ids))
		for _, id := range ids {
			if !owned[id] {
				return core.NewNotFound("account", id)
			}
			if listed[id] {
				return core.NewValidation("ids", fmt.Sprintf("account %d listed twice", id))
			}
			listed[id] = true
			order = append(order, id)
		}
		for _, a := range current {
			if !listed[a.ID] {
				order = append(order, a.ID)
			}
		}

		for pos, id := range order {
			if _, err := tx.exec(ctx,
				`UPDATE accounts SET display_order = ? WHERE id = ? AND user_id = ?`, pos, id, userID); err != nil {
				return fmt.Errorf("update display order: %w", err)
			}
		}
		return nil
	})
}

// DeleteAccount removes an account no transaction references.
func (s *Store) DeleteAccount(ctx context.Context, userID, id int64) error {
	return s.InTx(ctx, func(tx *Store) error {
		if err := tx.ensureOwned(ctx, "accounts", "account", userID, id); err != nil {
			return err
		}
		refs, err := tx.countRefs(ctx, "account_id", id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return &core.ProtectedDeleteError{Entity: "account", ID: id, References: refs}
		}
		if _, err := tx.exec(ctx, `DELETE FROM accounts WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			if isForeignKeyViolation(err) {
				return &core.ProtectedDeleteError{Entity: "account", ID: id}
			}
			return fmt.Errorf("delete account: %w", err)
		}
		return nil
	})
}
