package services

import (
	"context"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// CreateTransaction records an income or expense. Account and category must
// belong to the user; the currency may be a system currency or theirs.
func (s *FinanceService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.invalidate(ctx, t.UserID)
	return created, nil
}

func (s *FinanceService) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

func (s *FinanceService) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	updated, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.invalidate(ctx, t.UserID)
	return updated, nil
}

func (s *FinanceService) DeleteTransaction(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldUserID, userID, log.FieldTransactionID, id)
	return nil
}

func (s *FinanceService) ListTransactions(ctx context.Context, userID int64, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, userID, f)
}

// SetSaved flags a transaction as saved (bookmarked) or clears the flag.
func (s *FinanceService) SetSaved(ctx context.Context, userID, id int64, saved bool) error {
	return s.store.SetTransactionSaved(ctx, userID, id, saved)
}
