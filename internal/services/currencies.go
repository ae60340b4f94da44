package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/rates"
)

// ListCurrencies returns the system currencies followed by the user's own.
func (s *FinanceService) ListCurrencies(ctx context.Context, userID int64) ([]core.Currency, error) {
	return s.store.ListCurrencies(ctx, userID)
}

// AddCurrency creates a user currency at the provider's current rate. When
// the provider fails and the code has a fallback rate, the fallback is stored
// and a refresh is queued; otherwise the lookup error is returned.
func (s *FinanceService) AddCurrency(ctx context.Context, userID int64, code string) (core.Currency, error) {
	code = core.NormalizeCode(code)
	if err := core.ValidateCode(code); err != nil {
		return core.Currency{}, core.NewValidation("code", err.Error())
	}
	if s.rates == nil {
		return core.Currency{}, fmt.Errorf("add currency: rates provider not configured")
	}

	usedFallback := false
	rate, err := s.rates.RateFor(ctx, code)
	if err != nil {
		fb, ok := rates.Fallback(code)
		if !rates.IsLookupError(err) || !ok {
			return core.Currency{}, err
		}
		s.logger.WarnContext(ctx, "Rate lookup failed, using fallback rate",
			log.FieldCurrency, code, log.FieldRate, fb.String(), log.FieldError, err)
		rate = fb
		usedFallback = true
	}

	c, err := s.store.CreateCurrency(ctx, core.Currency{UserID: userID, Code: code, Rate: rate, LastUpdated: time.Now()})
	if err != nil {
		return core.Currency{}, err
	}
	s.invalidate(ctx, userID)
	s.logger.InfoContext(ctx, "Currency added",
		log.FieldUserID, userID, log.FieldCurrency, code, log.FieldRate, rate.String())

	if usedFallback && s.publisher != nil {
		if err := s.publisher.PublishRateRefresh(ctx, userID); err != nil {
			s.logger.WarnContext(ctx, "Failed to queue rate refresh", log.FieldUserID, userID, log.FieldError, err)
		}
	}
	return c, nil
}

// SetCurrencyRate overrides the rate of a user currency by hand.
func (s *FinanceService) SetCurrencyRate(ctx context.Context, userID, id int64, rate decimal.Decimal) (core.Currency, error) {
	if !rate.IsPositive() {
		return core.Currency{}, core.NewValidation("exchange_rate", "must be greater than zero")
	}
	if userID == 0 {
		return core.Currency{}, core.NewNotFound("currency", id)
	}
	if err := s.store.UpdateCurrencyRate(ctx, userID, id, rate, time.Now()); err != nil {
		return core.Currency{}, err
	}
	s.invalidate(ctx, userID)
	return s.store.GetCurrency(ctx, userID, id)
}

// DeleteCurrency fails with *core.ProtectedDeleteError while transactions use the currency.
func (s *FinanceService) DeleteCurrency(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteCurrency(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// RefreshRates re-fetches every currency owned by userID in a single batch
// and stores the returned rates. userID 0 refreshes the system currencies.
// Codes the provider omits keep their previous rate. It returns how many
// currencies were updated.
func (s *FinanceService) RefreshRates(ctx context.Context, userID int64) (int, error) {
	if s.rates == nil {
		return 0, fmt.Errorf("refresh rates: rates provider not configured")
	}
	currencies, err := s.store.UserCurrencies(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(currencies) == 0 {
		return 0, nil
	}

	codes := make([]string, len(currencies))
	for i, c := range currencies {
		codes[i] = c.Code
	}
	fresh, err := s.rates.RatesFor(ctx, codes)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	updated := 0
	for _, c := range currencies {
		rate, ok := fresh[c.Code]
		if !ok || !rate.IsPositive() {
			continue
		}
		if err := s.store.UpdateCurrencyRate(ctx, userID, c.ID, rate, now); err != nil {
			return updated, fmt.Errorf("store rate for %s: %w", c.Code, err)
		}
		updated++
	}

	if userID == 0 {
		s.invalidateAll(ctx)
	} else {
		s.invalidate(ctx, userID)
	}
	s.logger.InfoContext(ctx, "Rates refreshed",
		log.FieldOperation, log.OpRefresh,
		log.FieldUserID, userID,
		"updated", updated,
		"requested", len(currencies))
	return updated, nil
}

// RequestRateRefresh queues a refresh for the worker. Without a publisher,
// or when publishing fails, the refresh runs synchronously. The returned
// bool reports whether the refresh was queued.
func (s *FinanceService) RequestRateRefresh(ctx context.Context, userID int64) (bool, error) {
	if s.publisher != nil {
		err := s.publisher.PublishRateRefresh(ctx, userID)
		if err == nil {
			return true, nil
		}
		s.logger.WarnContext(ctx, "Failed to queue rate refresh, refreshing inline",
			log.FieldUserID, userID, log.FieldError, err)
	}
	_, err := s.RefreshRates(ctx, userID)
	return false, err
}
