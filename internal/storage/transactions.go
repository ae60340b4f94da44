package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const transactionColumns = `id, user_id, account_id, category_id, currency_id, is_income, amount, date, description, is_saved`

// TransactionFilter narrows ListTransactions. Zero values mean "no filter";
// Month is ignored without Year.
type TransactionFilter struct {
	Year      int
	Month     int
	SavedOnly bool
	Limit     int
}

func scanTransaction(scan func(...any) error) (core.Transaction, error) {
	var t core.Transaction
	err := scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &t.CurrencyID,
		&t.IsIncome, &t.Amount, dateColumn{&t.Date}, &t.Description, &t.Saved)
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// checkTransactionRefs verifies that account and category belong to the user
// and that the currency is a system currency or theirs.
func (s *Store) checkTransactionRefs(ctx context.Context, t core.Transaction) error {
	if err := s.ensureOwned(ctx, "accounts", "account", t.UserID, t.AccountID); err != nil {
		return err
	}
	if err := s.ensureOwned(ctx, "categories", "category", t.UserID, t.CategoryID); err != nil {
		return err
	}
	if _, err := s.GetCurrency(ctx, t.UserID, t.CurrencyID); err != nil {
		return err
	}
	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	err := s.InTx(ctx, func(tx *Store) error {
		if err := tx.checkTransactionRefs(ctx, t); err != nil {
			return err
		}
		id, err := tx.insert(ctx,
			`INSERT INTO transactions (user_id, account_id, category_id, currency_id, is_income, amount, date, description, is_saved)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.UserID, t.AccountID, t.CategoryID, t.CurrencyID, t.IsIncome, t.Amount, t.Date.String(), t.Description, t.Saved)
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		t.ID = id
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row := s.queryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NewNotFound("transaction", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	err := s.InTx(ctx, func(tx *Store) error {
		if err := tx.checkTransactionRefs(ctx, t); err != nil {
			return err
		}
		res, err := tx.exec(ctx,
			`UPDATE transactions
			 SET account_id = ?, category_id = ?, currency_id = ?, is_income = ?, amount = ?, date = ?, description = ?, is_saved = ?
			 WHERE id = ? AND user_id = ?`,
			t.AccountID, t.CategoryID, t.CurrencyID, t.IsIncome, t.Amount, t.Date.String(), t.Description, t.Saved,
			t.ID, t.UserID)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return affectedOrNotFound(res, core.NewNotFound("transaction", t.ID))
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *Store) SetTransactionSaved(ctx context.Context, userID, id int64, saved bool) error {
	res, err := s.exec(ctx, `UPDATE transactions SET is_saved = ? WHERE id = ? AND user_id = ?`, saved, id, userID)
	if err != nil {
		return fmt.Errorf("set transaction saved: %w", err)
	}
	return affectedOrNotFound(res, core.NewNotFound("transaction", id))
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := s.exec(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return affectedOrNotFound(res, core.NewNotFound("transaction", id))
}

// ListTransactions returns the user's transactions, newest first.
func (s *Store) ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{userID}

	if f.Year > 0 {
		from, to := core.NewDate(f.Year, 1, 1), core.NewDate(f.Year, 12, 31)
		if f.Month >= 1 && f.Month <= 12 {
			from = core.NewDate(f.Year, f.Month, 1)
			to = from.MonthEnd()
		}
		query += ` AND date >= ? AND date <= ?`
		args = append(args, from.String(), to.String())
	}
	if f.SavedOnly {
		query += ` AND is_saved = ?`
		args = append(args, true)
	}
	query += ` ORDER BY date DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TransactionDates returns every distinct date on which the user has a transaction.
func (s *Store) TransactionDates(ctx context.Context, userID int64) ([]core.Date, error) {
	rows, err := s.query(ctx, `SELECT DISTINCT date FROM transactions WHERE user_id = ? ORDER BY date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transaction dates: %w", err)
	}
	defer rows.Close()

	var out []core.Date
	for rows.Next() {
		var d core.Date
		if err := rows.Scan(dateColumn{&d}); err != nil {
			return nil, fmt.Errorf("scan transaction date: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ExpenseTotal sums raw expense amounts for one category between from and to
// inclusive. Amounts are summed as stored, whatever their currency.
func (s *Store) ExpenseTotal(ctx context.Context, userID, categoryID int64, from, to core.Date) (decimal.Decimal, error) {
	rows, err := s.query(ctx,
		`SELECT amount FROM transactions
		 WHERE user_id = ? AND category_id = ? AND is_income = ? AND date >= ? AND date <= ?`,
		userID, categoryID, false, from.String(), to.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}
