// Package stats aggregates transactions and budgets into income/expense reports
// normalized to the base currency.
package stats

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type Mode string

const (
	ModeYear  Mode = "year"
	ModeMonth Mode = "month"
)

// Query selects the reporting period. Year == 0 yields an empty report.
type Query struct {
	Year  int
	Month int
	Mode  Mode
}

// Normalize resolves the effective mode: month mode without a valid month
// falls back to year mode, and unknown modes are treated as year mode.
func (q Query) Normalize() Query {
	// negative years select nothing, like a missing one
	q.Year = max(q.Year, 0)
	if q.Mode == ModeMonth && q.Month >= 1 && q.Month <= 12 {
		return q
	}
	return Query{Year: q.Year, Mode: ModeYear}
}

func (q Query) String() string {
	q = q.Normalize()
	if q.Mode == ModeMonth {
		return fmt.Sprintf("%04d-%02d", q.Year, q.Month)
	}
	return fmt.Sprintf("%04d", q.Year)
}

// Contains reports whether d falls inside the query period.
func (q Query) Contains(d core.Date) bool {
	q = q.Normalize()
	if d.Year() != q.Year {
		return false
	}
	return q.Mode != ModeMonth || d.Month() == q.Month
}

// Input is everything the engine needs for one user. Categories and
// currencies are keyed by id.
type Input struct {
	Transactions []core.Transaction
	Budgets      []core.Budget
	Categories   map[int64]core.Category
	Currencies   map[int64]core.Currency
}

type Bucket struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Result holds exact, unrounded totals. Use Report to produce the rounded view.
type Result struct {
	Query             Query
	Income            decimal.Decimal
	Expense           decimal.Decimal
	Monthly           [12]Bucket
	Daily             []Bucket
	IncomeByCategory  map[string]decimal.Decimal
	ExpenseByCategory map[string]decimal.Decimal
	TotalBudget       decimal.Decimal
	CategoryBudgets   map[string]decimal.Decimal
	// Skipped counts transactions dropped because they could not be normalized.
	Skipped int
}

func (r *Result) Balance() decimal.Decimal {
	return r.Income.Sub(r.Expense)
}

type Engine struct {
	logger *log.Logger
}

func NewEngine(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Engine{logger: logger.WithComponent(log.ComponentStats)}
}

func newResult(q Query) *Result {
	r := &Result{
		Query:             q,
		Income:            decimal.Zero,
		Expense:           decimal.Zero,
		IncomeByCategory:  map[string]decimal.Decimal{},
		ExpenseByCategory: map[string]decimal.Decimal{},
		TotalBudget:       decimal.Zero,
		CategoryBudgets:   map[string]decimal.Decimal{},
	}
	for i := range r.Monthly {
		r.Monthly[i] = Bucket{Income: decimal.Zero, Expense: decimal.Zero}
	}
	if q.Mode == ModeMonth {
		r.Daily = make([]Bucket, core.DaysInMonth(q.Year, q.Month))
		for i := range r.Daily {
			r.Daily[i] = Bucket{Income: decimal.Zero, Expense: decimal.Zero}
		}
	}
	return r
}

// Aggregate computes the report for q. Transactions outside the period are
// ignored; a transaction that cannot be normalized is logged and skipped
// without failing the report.
func (e *Engine) Aggregate(ctx context.Context, q Query, in Input) *Result {
	q = q.Normalize()
	if q.Year == 0 {
		return newResult(Query{Mode: ModeYear})
	}
	res := newResult(q)

	for _, tx := range in.Transactions {
		if !q.Contains(tx.Date) {
			continue
		}
		amount, err := normalize(tx, in.Currencies)
		if err != nil {
			res.Skipped++
			e.logger.WarnContext(ctx, "Skipping transaction in statistics",
				log.FieldTransactionID, tx.ID,
				log.FieldUserID, tx.UserID,
				log.FieldError, err,
			)
			continue
		}

		name := categoryName(tx.CategoryID, in.Categories)
		month := &res.Monthly[tx.Date.Month()-1]
		var day *Bucket
		if res.Daily != nil {
			day = &res.Daily[tx.Date.Day()-1]
		}

		if tx.IsIncome {
			res.Income = res.Income.Add(amount)
			month.Income = month.Income.Add(amount)
			if day != nil {
				day.Income = day.Income.Add(amount)
			}
			res.IncomeByCategory[name] = addTo(res.IncomeByCategory, name, amount)
		} else {
			res.Expense = res.Expense.Add(amount)
			month.Expense = month.Expense.Add(amount)
			if day != nil {
				day.Expense = day.Expense.Add(amount)
			}
			res.ExpenseByCategory[name] = addTo(res.ExpenseByCategory, name, amount)
		}
	}

	for _, b := range in.Budgets {
		if !q.Contains(b.Period) {
			continue
		}
		name := categoryName(b.CategoryID, in.Categories)
		res.TotalBudget = res.TotalBudget.Add(b.Amount)
		res.CategoryBudgets[name] = addTo(res.CategoryBudgets, name, b.Amount)
	}

	if res.Skipped > 0 {
		e.logger.InfoContext(ctx, "Statistics computed with skipped transactions",
			"period", q.String(), "skipped", res.Skipped)
	}
	return res
}

// normalize converts a transaction amount into the base currency.
func normalize(tx core.Transaction, currencies map[int64]core.Currency) (decimal.Decimal, error) {
	cur, ok := currencies[tx.CurrencyID]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown currency %d", tx.CurrencyID)
	}
	if !cur.Rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("currency %s has non-positive rate %s", cur.Code, cur.Rate)
	}
	return core.Div(tx.Amount, cur.Rate), nil
}

func categoryName(id int64, categories map[int64]core.Category) string {
	if c, ok := categories[id]; ok && c.Name != "" {
		return c.Name
	}
	return core.UncategorizedName
}

func addTo(m map[string]decimal.Decimal, key string, v decimal.Decimal) decimal.Decimal {
	if cur, ok := m[key]; ok {
		return cur.Add(v)
	}
	return v
}
