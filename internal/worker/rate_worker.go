package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
)

// RateRefresher is implemented by services.FinanceService.
type RateRefresher interface {
	RefreshRates(ctx context.Context, userID int64) (int, error)
}

// RateWorker refreshes exchange rates on request and on a schedule.
type RateWorker struct {
	refresher RateRefresher
	logger    *log.Logger
	now       func() time.Time

	mu          sync.Mutex
	lastRefresh map[int64]time.Time
}

func NewRateWorker(refresher RateRefresher, logger *log.Logger) *RateWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &RateWorker{
		refresher:   refresher,
		logger:      logger.WithComponent(log.ComponentWorker),
		now:         time.Now,
		lastRefresh: make(map[int64]time.Time),
	}
}

// HandleRefreshMessage processes a single rate refresh message from AMQP.
// Requests older than the user's last successful refresh are acknowledged
// without calling the provider again.
func (w *RateWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RateRefreshMessage) error {
	w.logger.InfoContext(ctx, "Processing rate refresh message",
		"message_id", msg.ID,
		log.FieldUserID, msg.UserID)

	if last, ok := w.lastRefreshed(msg.UserID); ok && !msg.RequestedAt.IsZero() && msg.RequestedAt.Before(last) {
		w.logger.InfoContext(ctx, "Rates already refreshed after request, skipping",
			log.FieldUserID, msg.UserID,
			"requested_at", msg.RequestedAt.Format(time.RFC3339),
			"last_refresh", last.Format(time.RFC3339))
		return nil
	}
	return w.refresh(ctx, msg.UserID)
}

// StartupRefresh refreshes the system currencies once when the worker starts.
func (w *RateWorker) StartupRefresh(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Performing startup rate refresh")
	return w.refresh(ctx, 0)
}

// RunPeriodic refreshes the system currencies every interval until ctx is done.
func (w *RateWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.refresh(ctx, 0); err != nil {
				w.logger.ErrorContext(ctx, "Periodic rate refresh failed", log.FieldError, err)
			}
		}
	}
}

func (w *RateWorker) refresh(ctx context.Context, userID int64) error {
	started := w.now()
	n, err := w.refresher.RefreshRates(ctx, userID)
	if err != nil {
		return fmt.Errorf("refresh rates for user %d: %w", userID, err)
	}

	w.mu.Lock()
	w.lastRefresh[userID] = started
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Rates refreshed",
		log.FieldOperation, log.OpRefresh,
		log.FieldUserID, userID,
		"updated", n)
	return nil
}

func (w *RateWorker) lastRefreshed(userID int64) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.lastRefresh[userID]
	return t, ok
}
