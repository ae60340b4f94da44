package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const currencyColumns = `id, user_id, code, exchange_rate, last_updated`

func scanCurrency(scan func(...any) error) (core.Currency, error) {
	var c core.Currency
	var owner sql.NullInt64
	if err := scan(&c.ID, &owner, &c.Code, &c.Rate, timeColumn{&c.LastUpdated}); err != nil {
		return core.Currency{}, err
	}
	c.UserID = ownerValue(owner)
	return c, nil
}

// CreateCurrency inserts a system currency (UserID == 0) or a user currency.
func (s *Store) CreateCurrency(ctx context.Context, c core.Currency) (core.Currency, error) {
	if c.LastUpdated.IsZero() {
		c.LastUpdated = time.Now()
	}
	id, err := s.insert(ctx,
		`INSERT INTO currencies (user_id, code, exchange_rate, last_updated) VALUES (?, ?, ?, ?)`,
		ownerArg(c.UserID), c.Code, c.Rate, timestampArg(c.LastUpdated))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Currency{}, core.NewValidation("code", fmt.Sprintf("currency %s already exists", c.Code))
		}
		if isForeignKeyViolation(err) {
			return core.Currency{}, core.NewNotFound("user", c.UserID)
		}
		return core.Currency{}, fmt.Errorf("create currency: %w", err)
	}
	c.ID = id
	c.LastUpdated = c.LastUpdated.UTC().Truncate(time.Second)
	s.logger.DebugContext(ctx, "Currency created", log.FieldUserID, c.UserID, log.FieldCurrency, c.Code)
	return c, nil
}

// ListCurrencies returns system currencies followed by the user's own, each ordered by code.
func (s *Store) ListCurrencies(ctx context.Context, userID int64) ([]core.Currency, error) {
	return s.listCurrencies(ctx,
		`SELECT `+currencyColumns+` FROM currencies
		 WHERE user_id IS NULL OR user_id = ?
		 ORDER BY CASE WHEN user_id IS NULL THEN 0 ELSE 1 END, code`, userID)
}

// UserCurrencies returns only the currencies owned by userID, or the system
// currencies when userID is 0.
func (s *Store) UserCurrencies(ctx context.Context, userID int64) ([]core.Currency, error) {
	if userID == 0 {
		return s.listCurrencies(ctx, `SELECT `+currencyColumns+` FROM currencies WHERE user_id IS NULL ORDER BY code`)
	}
	return s.listCurrencies(ctx, `SELECT `+currencyColumns+` FROM currencies WHERE user_id = ? ORDER BY code`, userID)
}

func (s *Store) listCurrencies(ctx context.Context, query string, args ...any) ([]core.Currency, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var out []core.Currency
	for rows.Next() {
		c, err := scanCurrency(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCurrency returns a currency visible to userID: a system currency or one they own.
func (s *Store) GetCurrency(ctx context.Context, userID, id int64) (core.Currency, error) {
	row := s.queryRow(ctx,
		`SELECT `+currencyColumns+` FROM currencies WHERE id = ? AND (user_id IS NULL OR user_id = ?)`, id, userID)
	c, err := scanCurrency(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Currency{}, core.NewNotFound("currency", id)
	}
	if err != nil {
		return core.Currency{}, fmt.Errorf("get currency: %w", err)
	}
	return c, nil
}

// UpdateCurrencyRate sets the rate of a currency owned by userID (0 for system currencies).
func (s *Store) UpdateCurrencyRate(ctx context.Context, userID, id int64, rate decimal.Decimal, at time.Time) error {
	var (
		res sql.Result
		err error
	)
	if userID == 0 {
		res, err = s.exec(ctx,
			`UPDATE currencies SET exchange_rate = ?, last_updated = ? WHERE id = ? AND user_id IS NULL`,
			rate, timestampArg(at), id)
	} else {
		res, err = s.exec(ctx,
			`UPDATE currencies SET exchange_rate = ?, last_updated = ? WHERE id = ? AND user_id = ?`,
			rate, timestampArg(at), id, userID)
	}
	if err != nil {
		return fmt.Errorf("update currency rate: %w", err)
	}
	return affectedOrNotFound(res, core.NewNotFound("currency", id))
}

// DeleteCurrency removes a user-owned currency that no transaction references.
func (s *Store) DeleteCurrency(ctx context.Context, userID, id int64) error {
	return s.InTx(ctx, func(tx *Store) error {
		if err := tx.ensureOwned(ctx, "currencies", "currency", userID, id); err != nil {
			return err
		}
		refs, err := tx.countRefs(ctx, "currency_id", id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return &core.ProtectedDeleteError{Entity: "currency", ID: id, References: refs}
		}
		if _, err := tx.exec(ctx, `DELETE FROM currencies WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			if isForeignKeyViolation(err) {
				return &core.ProtectedDeleteError{Entity: "currency", ID: id}
			}
			return fmt.Errorf("delete currency: %w", err)
		}
		return nil
	})
}

// ensureOwned checks that a row in table exists and belongs to userID.
func (s *Store) ensureOwned(ctx context.Context, table, entity string, userID, id int64) error {
	var one int
	err := s.queryRow(ctx, `SELECT 1 FROM `+table+` WHERE id = ? AND user_id = ?`, id, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NewNotFound(entity, id)
	}
	if err != nil {
		return fmt.Errorf("check %s ownership: %w", entity, err)
	}
	return nil
}

// countRefs counts transactions whose column points at id.
func (s *Store) countRefs(ctx context.Context, column string, id int64) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE `+column+` = ?`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count references: %w", err)
	}
	return n, nil
}
