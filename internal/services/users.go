package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/rates"
	"fintrack/internal/storage"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores input beyond 72 bytes
	maxPasswordLength = 72
)

// ProvisionUser registers a user together with their default categories,
// currencies and cash account. Everything is created in one transaction.
func (s *FinanceService) ProvisionUser(ctx context.Context, email, password string) (core.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return core.User{}, core.NewValidation("email", "a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return core.User{}, core.NewValidation("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if len(password) > maxPasswordLength {
		return core.User{}, core.NewValidation("password", fmt.Sprintf("must be at most %d bytes", maxPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	codes := normalizeCodes(s.defaultCurrencies)
	initial, usedFallback := s.initialRates(ctx, codes)
	now := time.Now()

	var user core.User
	err = s.store.InTx(ctx, func(tx *storage.Store) error {
		u, err := tx.CreateUser(ctx, email, string(hash))
		if err != nil {
			return err
		}
		user = u

		for _, name := range core.DefaultIncomeCategories {
			if _, err := tx.CreateCategory(ctx, core.Category{UserID: u.ID, Name: name, IsIncome: true}); err != nil {
				return fmt.Errorf("default category %s: %w", name, err)
			}
		}
		for _, name := range core.DefaultExpenseCategories {
			if _, err := tx.CreateCategory(ctx, core.Category{UserID: u.ID, Name: name}); err != nil {
				return fmt.Errorf("default category %s: %w", name, err)
			}
		}

		for _, code := range codes {
			rate, ok := initial[code]
			if !ok {
				continue
			}
			if _, err := tx.CreateCurrency(ctx, core.Currency{UserID: u.ID, Code: code, Rate: rate, LastUpdated: now}); err != nil {
				return fmt.Errorf("default currency %s: %w", code, err)
			}
		}

		_, err = tx.CreateAccount(ctx, core.Account{
			UserID:  u.ID,
			Name:    core.DefaultAccountName,
			Type:    core.AccountCash,
			Balance: decimal.Zero,
		})
		return err
	})
	if err != nil {
		return core.User{}, err
	}

	s.logger.InfoContext(ctx, "User provisioned",
		log.FieldOperation, log.OpProvision,
		log.FieldUserID, user.ID,
		"currencies", len(initial),
		"fallback_rates", usedFallback)

	// Approximate rates get replaced as soon as the worker can reach the API.
	if usedFallback && s.publisher != nil {
		if err := s.publisher.PublishRateRefresh(ctx, user.ID); err != nil {
			s.logger.WarnContext(ctx, "Failed to queue rate refresh", log.FieldUserID, user.ID, log.FieldError, err)
		}
	}
	return user, nil
}

// GetUser is used to authenticate the caller id.
func (s *FinanceService) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.store.GetUser(ctx, id)
}

// initialRates looks the codes up in one call and fills whatever is missing
// from the fallback table. Codes unknown to both are dropped.
func (s *FinanceService) initialRates(ctx context.Context, codes []string) (map[string]decimal.Decimal, bool) {
	out := make(map[string]decimal.Decimal, len(codes))
	if len(codes) == 0 {
		return out, false
	}

	usedFallback := false
	if s.rates != nil {
		got, err := s.rates.RatesFor(ctx, codes)
		if err != nil {
			s.logger.WarnContext(ctx, "Rate lookup failed, using fallback rates", log.FieldError, err)
		}
		for code, r := range got {
			out[code] = r
		}
	}

	for _, code := range codes {
		if _, ok := out[code]; ok {
			continue
		}
		if r, ok := rates.Fallback(code); ok {
			out[code] = r
			usedFallback = true
			continue
		}
		s.logger.WarnContext(ctx, "No rate available, currency skipped", log.FieldCurrency, code)
	}
	return out, usedFallback
}

// normalizeCodes upper-cases, validates and dedupes currency codes, keeping order.
func normalizeCodes(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = core.NormalizeCode(c)
		if core.ValidateCode(c) != nil || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
