package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BaseCurrency is the reporting currency every amount is normalized into.
const BaseCurrency = "GBP"

// UncategorizedName is used in reports when a transaction's category cannot be resolved.
const UncategorizedName = "Uncategorized"

const (
	AccountCash       AccountType = "cash"
	AccountBank       AccountType = "bank"
	AccountCreditCard AccountType = "credit_card"
	AccountDebitCard  AccountType = "debit_card"
)

type (
	AccountType string

	User struct {
		ID           int64
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	// Currency is either a system currency (UserID == 0) or owned by a user.
	// Rate is expressed as units of this currency per one unit of BaseCurrency.
	Currency struct {
		ID          int64
		UserID      int64
		Code        string
		Rate        decimal.Decimal
		LastUpdated time.Time
	}

	Account struct {
		ID           int64
		UserID       int64
		Name         string
		Type         AccountType
		Balance      decimal.Decimal
		DisplayOrder int
	}

	Category struct {
		ID       int64
		UserID   int64
		Name     string
		IsIncome bool
	}

	Transaction struct {
		ID          int64
		UserID      int64
		AccountID   int64
		CategoryID  int64
		CurrencyID  int64
		IsIncome    bool
		Amount      decimal.Decimal
		Date        Date
		Description string
		Saved       bool
	}

	// Budget caps spending for one category in the month starting at Period.
	Budget struct {
		ID         int64
		UserID     int64
		CategoryID int64
		Amount     decimal.Decimal
		Period     Date
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrInvalidCode      = errors.New("currency code must be three letters")
	ErrUnknownAccountTy = errors.New("unknown account type")
	ErrTooPrecise       = errors.New("at most two decimal places allowed")
)

// DefaultIncomeCategories and DefaultExpenseCategories are created for every new user.
var (
	DefaultIncomeCategories = []string{
		"Salary", "Bonus", "Investment Income", "Gift", "Other Income",
	}
	DefaultExpenseCategories = []string{
		"Rent", "Utilities", "Food", "Transportation", "Entertainment",
		"Health", "Insurance", "Education", "Gift", "Other Expense",
	}
)

// DefaultAccountName is the cash account every new user starts with.
const DefaultAccountName = "Cash"

func (t AccountType) Valid() bool {
	switch t {
	case AccountCash, AccountBank, AccountCreditCard, AccountDebitCard:
		return true
	}
	return false
}

// IsSystem reports whether the currency is shared by all users.
func (c Currency) IsSystem() bool {
	return c.UserID == 0
}

// NormalizeCode upper-cases and trims a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidateCode(code string) error {
	if len(code) != 3 {
		return ErrInvalidCode
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ErrInvalidCode
		}
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return &ValidationError{Field: "name", Reason: ErrEmptyName.Error()}
	}
	if len(a.Name) > 100 {
		return &ValidationError{Field: "name", Reason: "name too long (max 100 characters)"}
	}
	if !a.Type.Valid() {
		return &ValidationError{Field: "account_type", Reason: ErrUnknownAccountTy.Error()}
	}
	if !HasCents(a.Balance) {
		return &ValidationError{Field: "balance", Reason: ErrTooPrecise.Error()}
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Reason: ErrEmptyName.Error()}
	}
	if len(c.Name) > 100 {
		return &ValidationError{Field: "name", Reason: "name too long (max 100 characters)"}
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "date cannot be zero"}
	}
	if t.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: ErrNegativeAmount.Error()}
	}
	if !HasCents(t.Amount) {
		return &ValidationError{Field: "amount", Reason: ErrTooPrecise.Error()}
	}
	if len(t.Description) > 255 {
		return &ValidationError{Field: "description", Reason: "description too long (max 255 characters)"}
	}
	if t.AccountID == 0 {
		return &ValidationError{Field: "account_id", Reason: "account is required"}
	}
	if t.CategoryID == 0 {
		return &ValidationError{Field: "category_id", Reason: "category is required"}
	}
	if t.CurrencyID == 0 {
		return &ValidationError{Field: "currency_id", Reason: "currency is required"}
	}
	return nil
}

func (b Budget) Validate() error {
	if b.CategoryID == 0 {
		return &ValidationError{Field: "category_id", Reason: "category is required"}
	}
	if b.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: ErrNegativeAmount.Error()}
	}
	if !HasCents(b.Amount) {
		return &ValidationError{Field: "amount", Reason: ErrTooPrecise.Error()}
	}
	if b.Period.IsZero() || b.Period.Day() != 1 {
		return &ValidationError{Field: "period", Reason: ErrInvalidPeriod.Error()}
	}
	return nil
}
