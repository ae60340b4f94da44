package services

import (
	"context"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *FinanceService) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, userID)
}

func (s *FinanceService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.Name = strings.TrimSpace(a.Name)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	created, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, err
	}
	s.logger.InfoContext(ctx, "Account created", log.FieldUserID, a.UserID, "account_id", created.ID)
	return created, nil
}

func (s *FinanceService) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.Name = strings.TrimSpace(a.Name)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	return s.store.UpdateAccount(ctx, a)
}

// DeleteAccount fails with *core.ProtectedDeleteError while transactions use the account.
func (s *FinanceService) DeleteAccount(ctx context.Context, userID, id int64) error {
	return s.store.DeleteAccount(ctx, userID, id)
}

// ReorderAccounts sets display order from the position of each id.
func (s *FinanceService) ReorderAccounts(ctx context.Context, userID int64, ids []int64) error {
	return s.store.ReorderAccounts(ctx, userID, ids)
}

// ListCategories returns both kinds when income is nil.
func (s *FinanceService) ListCategories(ctx context.Context, userID int64, income *bool) ([]core.Category, error) {
	return s.store.ListCategories(ctx, userID, income)
}

func (s *FinanceService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	return s.store.CreateCategory(ctx, c)
}

func (s *FinanceService) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	updated, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.invalidate(ctx, c.UserID)
	return updated, nil
}

// DeleteCategory fails with *core.ProtectedDeleteError and leaves the
// category intact while any transaction references it.
func (s *FinanceService) DeleteCategory(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteCategory(ctx, userID, id); err != nil {
		return err
	}
	// budgets for the category are gone with it
	s.invalidate(ctx, userID)
	return nil
}
