package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"strconv"

	"fintrack/internal/cache"
	"fintrack/internal/charts"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/rates"
	"fintrack/internal/sheets"
	"fintrack/internal/stats"
	"fintrack/internal/storage"
)

// ErrExportDisabled is returned by ExportStatistics when no exporter is configured.
var ErrExportDisabled = errors.New("report export is not configured")

// RatePublisher queues a rate refresh for the rates worker.
type RatePublisher interface {
	PublishRateRefresh(ctx context.Context, userID int64) error
}

type Options struct {
	Rates     rates.Provider
	Publisher RatePublisher
	Exporter  sheets.ReportExporter
	Charts    *charts.Renderer
	// Reports caches statistics per user and query. Nil disables caching.
	Reports cache.Cache[stats.Report]
	Logger  *log.Logger
	// DefaultCurrencies are created for every provisioned user.
	DefaultCurrencies []string
}

// FinanceService orchestrates every user-facing operation over the store,
// the rates provider and the statistics engine.
type FinanceService struct {
	store     *storage.Store
	rates     rates.Provider
	publisher RatePublisher
	exporter  sheets.ReportExporter
	charts    *charts.Renderer
	engine    *stats.Engine
	reports   cache.Cache[stats.Report]
	logger    *log.Logger

	defaultCurrencies []string
}

func NewFinanceService(store *storage.Store, opts Options) *FinanceService {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	renderer := opts.Charts
	if renderer == nil {
		renderer = charts.NewRenderer(logger)
	}
	return &FinanceService{
		store:             store,
		rates:             opts.Rates,
		publisher:         opts.Publisher,
		exporter:          opts.Exporter,
		charts:            renderer,
		engine:            stats.NewEngine(logger),
		reports:           opts.Reports,
		logger:            logger.WithComponent(log.ComponentFinance),
		defaultCurrencies: opts.DefaultCurrencies,
	}
}

// Ping checks the store connection.
func (s *FinanceService) Ping(ctx context.Context) error {
	if s.store == nil {
		return errors.New("store not configured")
	}
	return s.store.Ping(ctx)
}

// Close closes the store.
func (s *FinanceService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close finance service: %w", err)
	}
	return nil
}

// reportKey includes ratesVersion so a rate change made by another process
// (the rates worker) misses the cache instead of serving old conversions.
func reportKey(userID int64, q stats.Query, ratesVersion string) cache.Key {
	return cache.Key{Owner: userID, Name: q.String() + "@" + ratesVersion}
}

// ratesVersion fingerprints the ids and rates of the currencies a report converts with.
func ratesVersion(currencies map[int64]core.Currency) string {
	ids := make([]int64, 0, len(currencies))
	for id := range currencies {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	h := fnv.New64a()
	for _, id := range ids {
		fmt.Fprintf(h, "%d=%s;", id, currencies[id].Rate.String())
	}
	return strconv.FormatUint(h.Sum64(), 36)
}

// invalidate drops cached reports for one user after a write.
func (s *FinanceService) invalidate(ctx context.Context, userID int64) {
	if s.reports == nil {
		return
	}
	if n := s.reports.InvalidateOwner(userID); n > 0 {
		s.logger.DebugContext(ctx, "Report cache invalidated", log.FieldUserID, userID, "entries", n)
	}
}

// invalidateAll drops every cached report. System currency changes affect all users.
func (s *FinanceService) invalidateAll(ctx context.Context) {
	if s.reports == nil {
		return
	}
	if n := s.reports.Clear(); n > 0 {
		s.logger.DebugContext(ctx, "Report cache cleared", "entries", n)
	}
}
