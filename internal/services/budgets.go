package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// BudgetUsage is a read-only view of how much of a budget is left.
type BudgetUsage struct {
	Budget    core.Budget
	Spent     decimal.Decimal
	Remaining decimal.Decimal
}

// UpsertBudget sets the ceiling for a category in the month given as "YYYY-MM".
// Writing the same (category, month) again replaces the amount.
func (s *FinanceService) UpsertBudget(ctx context.Context, userID, categoryID int64, period string, amount decimal.Decimal) (core.Budget, error) {
	start, err := core.ParsePeriod(period)
	if err != nil {
		return core.Budget{}, core.NewValidation("period", err.Error())
	}
	b := core.Budget{UserID: userID, CategoryID: categoryID, Amount: amount, Period: start}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	saved, err := s.store.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, err
	}
	s.invalidate(ctx, userID)
	s.logger.InfoContext(ctx, "Budget saved",
		log.FieldUserID, userID,
		log.FieldCategory, categoryID,
		log.FieldAmount, amount.String(),
		"period", core.FormatPeriod(start))
	return saved, nil
}

// ListBudgets returns every budget when period is empty, otherwise only
// those of the "YYYY-MM" month.
func (s *FinanceService) ListBudgets(ctx context.Context, userID int64, period string) ([]core.Budget, error) {
	var start core.Date
	if strings.TrimSpace(period) != "" {
		p, err := core.ParsePeriod(period)
		if err != nil {
			return nil, core.NewValidation("period", err.Error())
		}
		start = p
	}
	return s.store.ListBudgets(ctx, userID, start)
}

func (s *FinanceService) DeleteBudget(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteBudget(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// BudgetUsage computes ceiling minus spending for the budget's month.
// Spending is the plain sum of the category's expense amounts as stored,
// without converting them to the base currency.
func (s *FinanceService) BudgetUsage(ctx context.Context, userID, budgetID int64) (BudgetUsage, error) {
	b, err := s.store.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return BudgetUsage{}, err
	}
	spent, err := s.store.ExpenseTotal(ctx, userID, b.CategoryID, b.Period, b.Period.MonthEnd())
	if err != nil {
		return BudgetUsage{}, err
	}
	return BudgetUsage{
		Budget:    b,
		Spent:     spent,
		Remaining: b.Amount.Sub(spent),
	}, nil
}
