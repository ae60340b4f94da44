package sheets

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/stats"
)

func sampleReport(q stats.Query) stats.Report {
	in := stats.Input{
		Transactions: []core.Transaction{
			{ID: 1, UserID: 9, CategoryID: 1, CurrencyID: 1, IsIncome: true, Amount: decimal.RequireFromString("1000"), Date: core.NewDate(2024, 3, 1)},
			{ID: 2, UserID: 9, CategoryID: 2, CurrencyID: 1, Amount: decimal.RequireFromString("12.50"), Date: core.NewDate(2024, 3, 4)},
		},
		Budgets: []core.Budget{
			{ID: 1, UserID: 9, CategoryID: 2, Amount: decimal.RequireFromString("200"), Period: core.NewDate(2024, 3, 1)},
		},
		Categories: map[int64]core.Category{
			1: {ID: 1, Name: "Salary", IsIncome: true},
			2: {ID: 2, Name: "Food"},
		},
		Currencies: map[int64]core.Currency{1: {ID: 1, Code: "GBP", Rate: decimal.NewFromInt(1)}},
	}
	return stats.NewEngine(log.Discard()).Aggregate(context.Background(), q, in).Report()
}

func TestRowsYearMode(t *testing.T) {
	q := stats.Query{Year: 2024, Mode: stats.ModeYear}
	rows := Rows(9, q, sampleReport(q))

	require.GreaterOrEqual(t, len(rows), 3+12)
	assert.Equal(t, []string{"9", "2024", "total", "income", "1000.00", ""}, rows[0])
	assert.Equal(t, []string{"9", "2024", "total", "balance", "987.50", ""}, rows[2])

	// months come in calendar order, not string order
	assert.Equal(t, "1", rows[3][3])
	assert.Equal(t, "2", rows[4][3])
	assert.Equal(t, "12", rows[14][3])
	assert.Equal(t, []string{"9", "2024", "month", "3", "1000.00", "12.50"}, rows[5])

	for _, r := range rows {
		assert.Len(t, r, len(Header))
		assert.NotEqual(t, "day", r[2], "year mode has no daily rows")
	}
}

func TestRowsMonthMode(t *testing.T) {
	q := stats.Query{Year: 2024, Month: 3, Mode: stats.ModeMonth}
	rows := Rows(9, q, sampleReport(q))

	days := 0
	var budget []string
	for _, r := range rows {
		assert.Equal(t, "2024-03", r[1])
		if r[2] == "day" {
			days++
		}
		if r[2] == "category_budget" {
			budget = r
		}
	}
	assert.Equal(t, 31, days)
	assert.Equal(t, []string{"9", "2024-03", "category_budget", "Food", "200.00", ""}, budget)
}
