package http

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type userJSON struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountJSON struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	AccountType  core.AccountType `json:"account_type"`
	Balance      decimal.Decimal  `json:"balance"`
	DisplayOrder int              `json:"display_order"`
}

type accountRequest struct {
	Name        string           `json:"name"`
	AccountType core.AccountType `json:"account_type"`
	Balance     decimal.Decimal  `json:"balance"`
}

type reorderRequest struct {
	IDs []int64 `json:"ids"`
}

type categoryJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsIncome bool   `json:"is_income"`
}

type categoryRequest struct {
	Name     string `json:"name"`
	IsIncome bool   `json:"is_income"`
}

type currencyJSON struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Rate        decimal.Decimal `json:"exchange_rate"`
	System      bool            `json:"system"`
	LastUpdated time.Time       `json:"last_updated"`
}

type currencyRequest struct {
	Code string `json:"code"`
}

type rateRequest struct {
	Rate decimal.Decimal `json:"exchange_rate"`
}

type transactionJSON struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	CategoryID  int64           `json:"category_id"`
	CurrencyID  int64           `json:"currency_id"`
	IsIncome    bool            `json:"is_income"`
	Amount      decimal.Decimal `json:"amount"`
	Date        core.Date       `json:"date"`
	Description string          `json:"description"`
	Saved       bool            `json:"saved"`
}

type transactionRequest struct {
	AccountID   int64           `json:"account_id"`
	CategoryID  int64           `json:"category_id"`
	CurrencyID  int64           `json:"currency_id"`
	IsIncome    bool            `json:"is_income"`
	Amount      decimal.Decimal `json:"amount"`
	Date        core.Date       `json:"date"`
	Description string          `json:"description"`
}

type savedRequest struct {
	Saved bool `json:"saved"`
}

type budgetJSON struct {
	ID         int64           `json:"id"`
	CategoryID int64           `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Period     string          `json:"period"`
}

type budgetRequest struct {
	CategoryID int64           `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Period     string          `json:"period"`
}

type budgetUsageJSON struct {
	Budget    budgetJSON      `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
}

type refreshJSON struct {
	Queued bool `json:"queued"`
}

type exportJSON struct {
	Reference string `json:"reference"`
}

func toUserJSON(u core.User) userJSON {
	return userJSON{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func toAccountJSON(a core.Account) accountJSON {
	return accountJSON{
		ID:           a.ID,
		Name:         a.Name,
		AccountType:  a.Type,
		Balance:      a.Balance,
		DisplayOrder: a.DisplayOrder,
	}
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name, IsIncome: c.IsIncome}
}

func toCurrencyJSON(c core.Currency) currencyJSON {
	return currencyJSON{
		ID:          c.ID,
		Code:        c.Code,
		Rate:        c.Rate,
		System:      c.IsSystem(),
		LastUpdated: c.LastUpdated,
	}
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
		CurrencyID:  t.CurrencyID,
		IsIncome:    t.IsIncome,
		Amount:      t.Amount,
		Date:        t.Date,
		Description: t.Description,
		Saved:       t.Saved,
	}
}

func (r transactionRequest) toTransaction(userID, id int64) core.Transaction {
	return core.Transaction{
		ID:          id,
		UserID:      userID,
		AccountID:   r.AccountID,
		CategoryID:  r.CategoryID,
		CurrencyID:  r.CurrencyID,
		IsIncome:    r.IsIncome,
		Amount:      r.Amount,
		Date:        r.Date,
		Description: sanitizeInput(r.Description),
	}
}

func toBudgetJSON(b core.Budget) budgetJSON {
	return budgetJSON{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Amount:     b.Amount,
		Period:     core.FormatPeriod(b.Period),
	}
}

func toBudgetUsageJSON(u services.BudgetUsage) budgetUsageJSON {
	return budgetUsageJSON{
		Budget:    toBudgetJSON(u.Budget),
		Spent:     u.Spent,
		Remaining: u.Remaining,
	}
}

// mapSlice converts every element with fn, returning an empty (not nil) slice.
func mapSlice[T, U any](in []T, fn func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
