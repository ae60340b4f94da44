package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/stats"
	"fintrack/internal/storage"
)

// TransactionDates lists the years (newest first) and, per year, the months
// (ascending) in which the user has transactions.
type TransactionDates struct {
	Years        []int            `json:"years"`
	MonthsByYear map[string][]int `json:"monthsByYear"`
}

// Statistics returns the report for q, from cache when possible.
func (s *FinanceService) Statistics(ctx context.Context, userID int64, q stats.Query) (stats.Report, error) {
	q = q.Normalize()
	if q.Year == 0 {
		return s.engine.Aggregate(ctx, q, stats.Input{}).Report(), nil
	}

	var gen uint64
	if s.reports != nil {
		gen = s.reports.Generation(userID)
	}
	currencies, err := s.currencyIndex(ctx, userID)
	if err != nil {
		return stats.Report{}, fmt.Errorf("load statistics input: %w", err)
	}
	key := reportKey(userID, q, ratesVersion(currencies))
	if s.reports != nil {
		if rep, ok := s.reports.Get(key); ok {
			return rep, nil
		}
	}

	in, err := s.loadInput(ctx, userID, q)
	if err != nil {
		return stats.Report{}, err
	}
	in.Currencies = currencies
	rep := s.engine.Aggregate(ctx, q, in).Report()

	if s.reports != nil && !s.reports.SetIfCurrent(key, rep, gen) {
		s.logger.DebugContext(ctx, "Report not cached, user data changed while loading",
			log.FieldUserID, userID, "period", q.String())
	}
	return rep, nil
}

func (s *FinanceService) currencyIndex(ctx context.Context, userID int64) (map[int64]core.Currency, error) {
	curs, err := s.store.ListCurrencies(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]core.Currency, len(curs))
	for _, c := range curs {
		out[c.ID] = c
	}
	return out, nil
}

// loadInput fetches transactions, budgets and categories for q concurrently.
func (s *FinanceService) loadInput(ctx context.Context, userID int64, q stats.Query) (stats.Input, error) {
	var in stats.Input
	if q.Year <= 0 {
		return in, nil
	}

	filter := storage.TransactionFilter{Year: q.Year}
	if q.Mode == stats.ModeMonth {
		filter.Month = q.Month
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.store.ListTransactions(gctx, userID, filter)
		in.Transactions = txs
		return err
	})
	g.Go(func() error {
		var err error
		if q.Mode == stats.ModeMonth {
			in.Budgets, err = s.store.ListBudgets(gctx, userID, core.NewDate(q.Year, q.Month, 1))
		} else {
			in.Budgets, err = s.store.BudgetsForYear(gctx, userID, q.Year)
		}
		return err
	})
	g.Go(func() error {
		cats, err := s.store.ListCategories(gctx, userID, nil)
		if err != nil {
			return err
		}
		in.Categories = make(map[int64]core.Category, len(cats))
		for _, c := range cats {
			in.Categories[c.ID] = c
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return stats.Input{}, fmt.Errorf("load statistics input: %w", err)
	}
	return in, nil
}

func (s *FinanceService) TransactionDates(ctx context.Context, userID int64) (TransactionDates, error) {
	dates, err := s.store.TransactionDates(ctx, userID)
	if err != nil {
		return TransactionDates{}, err
	}

	out := TransactionDates{Years: []int{}, MonthsByYear: map[string][]int{}}
	seen := map[int]map[int]bool{}
	for _, d := range dates {
		y, m := d.Year(), d.Month()
		if seen[y] == nil {
			seen[y] = map[int]bool{}
			out.Years = append(out.Years, y)
		}
		if !seen[y][m] {
			seen[y][m] = true
			key := strconv.Itoa(y)
			out.MonthsByYear[key] = append(out.MonthsByYear[key], m)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out.Years)))
	for _, months := range out.MonthsByYear {
		sort.Ints(months)
	}
	return out, nil
}

// ExportStatistics writes the report for q through the configured exporter
// and returns the exporter's reference.
func (s *FinanceService) ExportStatistics(ctx context.Context, userID int64, q stats.Query) (string, error) {
	if s.exporter == nil {
		return "", ErrExportDisabled
	}
	q = q.Normalize()
	if q.Year == 0 {
		return "", core.NewValidation("year", "year is required")
	}
	rep, err := s.Statistics(ctx, userID, q)
	if err != nil {
		return "", err
	}
	ref, err := s.exporter.ExportReport(ctx, userID, q, rep)
	if err != nil {
		return "", fmt.Errorf("export statistics: %w", err)
	}
	s.logger.InfoContext(ctx, "Statistics exported",
		log.FieldOperation, log.OpExport,
		log.FieldUserID, userID,
		"period", q.String(),
		log.FieldSheetsRef, ref)
	return ref, nil
}

// MonthlyChart renders the year's monthly income and expense as a PNG.
func (s *FinanceService) MonthlyChart(ctx context.Context, userID int64, year int) ([]byte, error) {
	if year <= 0 {
		return nil, core.NewValidation("year", "year is required")
	}
	q := stats.Query{Year: year, Mode: stats.ModeYear}
	rep, err := s.Statistics(ctx, userID, q)
	if err != nil {
		return nil, err
	}
	return s.charts.MonthlyBars(ctx, fmt.Sprintf("%d income and expense (%s)", year, core.BaseCurrency), rep)
}
