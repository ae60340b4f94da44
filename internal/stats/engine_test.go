package stats

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixture() Input {
	return Input{
		Categories: map[int64]core.Category{
			1: {ID: 1, Name: "Salary", IsIncome: true},
			2: {ID: 2, Name: "Food"},
			3: {ID: 3, Name: "Rent"},
		},
		Currencies: map[int64]core.Currency{
			10: {ID: 10, Code: "GBP", Rate: d("1")},
			11: {ID: 11, Code: "EUR", Rate: d("1.2")},
			12: {ID: 12, Code: "XXX", Rate: d("2")},
		},
	}
}

func tx(id int64, income bool, amount string, cur, cat int64, date core.Date) core.Transaction {
	return core.Transaction{
		ID: id, UserID: 1, AccountID: 1, CategoryID: cat, CurrencyID: cur,
		IsIncome: income, Amount: d(amount), Date: date,
	}
}

func newTestEngine() *Engine {
	return NewEngine(log.Discard())
}

func TestQueryNormalize(t *testing.T) {
	cases := []struct {
		in   Query
		want Query
	}{
		{Query{Year: 2024, Mode: ModeYear}, Query{Year: 2024, Mode: ModeYear}},
		{Query{Year: 2024, Month: 3, Mode: ModeMonth}, Query{Year: 2024, Month: 3, Mode: ModeMonth}},
		{Query{Year: 2024, Mode: ModeMonth}, Query{Year: 2024, Mode: ModeYear}},
		{Query{Year: 2024, Month: 13, Mode: ModeMonth}, Query{Year: 2024, Mode: ModeYear}},
		{Query{Year: 2024, Month: 5}, Query{Year: 2024, Mode: ModeYear}},
		{Query{Year: -1, Month: 5, Mode: ModeMonth}, Query{Year: 0, Month: 5, Mode: ModeMonth}},
		{Query{Year: -2024}, Query{Year: 0, Mode: ModeYear}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.in.Normalize(), "input %+v", tc.in)
	}
}

func TestAggregateNoYearIsEmpty(t *testing.T) {
	in := fixture()
	in.Transactions = []core.Transaction{tx(1, false, "10", 10, 2, core.NewDate(2024, 1, 1))}

	res := newTestEngine().Aggregate(context.Background(), Query{Mode: ModeMonth, Month: 1}, in)
	rep := res.Report()

	assert.Equal(t, "0.00", rep.Income.String())
	assert.Equal(t, "0.00", rep.Expense.String())
	assert.Equal(t, "0.00", rep.Balance.String())
	assert.Len(t, rep.MonthlyData, 12)
	assert.Nil(t, rep.DailyData)
	assert.Empty(t, rep.ExpenseByCategory)
}

func TestAggregateYearMode(t *testing.T) {
	in := fixture()
	in.Transactions = []core.Transaction{
		tx(1, true, "3000", 10, 1, core.NewDate(2024, 1, 31)),
		tx(2, false, "120", 11, 2, core.NewDate(2024, 1, 5)),  // 100 GBP
		tx(3, false, "800", 10, 3, core.NewDate(2024, 6, 1)),
		tx(4, false, "50", 10, 2, core.NewDate(2023, 12, 31)), // other year
		tx(5, true, "60", 11, 99, core.NewDate(2024, 12, 25)), // 50 GBP, unknown category
	}

	res := newTestEngine().Aggregate(context.Background(), Query{Year: 2024, Mode: ModeYear}, in)

	assert.True(t, res.Income.Equal(d("3050")), "income %s", res.Income)
	assert.True(t, res.Expense.Equal(d("900")), "expense %s", res.Expense)
	assert.True(t, res.Balance().Equal(d("2150")))
	assert.Nil(t, res.Daily)

	assert.True(t, res.Monthly[0].Income.Equal(d("3000")))
	assert.True(t, res.Monthly[0].Expense.Equal(d("100")))
	assert.True(t, res.Monthly[5].Expense.Equal(d("800")))
	assert.True(t, res.Monthly[11].Income.Equal(d("50")))

	assert.True(t, res.ExpenseByCategory["Food"].Equal(d("100")))
	assert.True(t, res.ExpenseByCategory["Rent"].Equal(d("800")))
	assert.True(t, res.IncomeByCategory["Salary"].Equal(d("3000")))
	assert.True(t, res.IncomeByCategory[core.UncategorizedName].Equal(d("50")))
}

func TestAggregateMonthlySumsEqualTotals(t *testing.T) {
	in := fixture()
	for i := 0; i < 60; i++ {
		month := i%12 + 1
		cur := int64(10 + i%3)
		in.Transactions = append(in.Transactions,
			tx(int64(i), i%4 == 0, decimal.NewFromInt(int64(i*7+3)).Div(decimal.NewFromInt(3)).StringFixed(4), cur, int64(1+i%3), core.NewDate(2025, month, 1+i%28)))
	}

	res := newTestEngine().Aggregate(context.Background(), Query{Year: 2025, Mode: ModeYear}, in)

	income, expense := decimal.Zero, decimal.Zero
	for _, b := range res.Monthly {
		income = income.Add(b.Income)
		expense = expense.Add(b.Expense)
	}
	assert.True(t, income.Equal(res.Income), "monthly income %s != %s", income, res.Income)
	assert.True(t, expense.Equal(res.Expense), "monthly expense %s != %s", expense, res.Expense)
	assert.True(t, res.Balance().Equal(res.Income.Sub(res.Expense)))

	rep := res.Report()
	assert.True(t, rep.Balance.Equal(rep.Income.Sub(rep.Expense.Decimal)))
}

func TestAggregateMonthModeDaily(t *testing.T) {
	in := fixture()
	in.Transactions = []core.Transaction{
		tx(1, false, "100", 12, 2, core.NewDate(2024, 2, 29)),
		tx(2, false, "10", 10, 2, core.NewDate(2024, 2, 1)),
		tx(3, true, "10", 10, 1, core.NewDate(2024, 3, 1)), // other month
	}

	res := newTestEngine().Aggregate(context.Background(), Query{Year: 2024, Month: 2, Mode: ModeMonth}, in)
	require.Len(t, res.Daily, 29)
	assert.True(t, res.Daily[28].Expense.Equal(d("50")))
	assert.True(t, res.Daily[0].Expense.Equal(d("10")))
	assert.True(t, res.Income.IsZero())

	rep := res.Report()
	require.Len(t, rep.DailyData, 29)
	assert.Equal(t, "50.00", rep.DailyData["29"].Expense.String())
	assert.Equal(t, "60.00", rep.Expense.String())
	assert.Equal(t, "60.00", rep.MonthlyData["2"].Expense.String())
}

func TestAggregateFebruaryNonLeap(t *testing.T) {
	res := newTestEngine().Aggregate(context.Background(), Query{Year: 2023, Month: 2, Mode: ModeMonth}, fixture())
	assert.Len(t, res.Daily, 28)
	assert.Len(t, res.Report().DailyData, 28)
}

func TestAggregateMonthWithoutMonthFallsBackToYear(t *testing.T) {
	in := fixture()
	in.Transactions = []core.Transaction{
		tx(1, false, "10", 10, 2, core.NewDate(2024, 2, 1)),
		tx(2, false, "15", 10, 2, core.NewDate(2024, 9, 1)),
	}
	res := newTestEngine().Aggregate(context.Background(), Query{Year: 2024, Mode: ModeMonth}, in)
	assert.Equal(t, ModeYear, res.Query.Mode)
	assert.Nil(t, res.Daily)
	assert.True(t, res.Expense.Equal(d("25")))
}

func TestAggregateSkipsUnnormalizable(t *testing.T) {
	in := fixture()
	in.Currencies[13] = core.Currency{ID: 13, Code: "BAD", Rate: decimal.Zero}
	in.Transactions = []core.Transaction{
		tx(1, false, "10", 10, 2, core.NewDate(2024, 1, 1)),
		tx(2, false, "10", 13, 2, core.NewDate(2024, 1, 1)),  // zero rate
		tx(3, false, "10", 404, 2, core.NewDate(2024, 1, 1)), // unknown currency
	}

	res := newTestEngine().Aggregate(context.Background(), Query{Year: 2024, Mode: ModeYear}, in)
	assert.Equal(t, 2, res.Skipped)
	assert.True(t, res.Expense.Equal(d("10")))
}

func TestAggregateBudgets(t *testing.T) {
	in := fixture()
	in.Budgets = []core.Budget{
		{ID: 1, CategoryID: 2, Amount: d("200"), Period: core.NewDate(2024, 1, 1)},
		{ID: 2, CategoryID: 2, Amount: d("250"), Period: core.NewDate(2024, 2, 1)},
		{ID: 3, CategoryID: 3, Amount: d("900"), Period: core.NewDate(2024, 1, 1)},
		{ID: 4, CategoryID: 3, Amount: d("900"), Period: core.NewDate(2023, 1, 1)},
	}
	in.Transactions = []core.Transaction{tx(1, false, "120", 11, 2, core.NewDate(2024, 1, 3))}

	year := newTestEngine().Aggregate(context.Background(), Query{Year: 2024, Mode: ModeYear}, in).Report()
	assert.Equal(t, "1350.00", year.BudgetData.TotalBudget.String())
	assert.Equal(t, "450.00", year.BudgetData.CategoryBudgets["Food"].String())
	assert.Equal(t, "100.00", year.BudgetData.UsedBudget.String())

	jan := newTestEngine().Aggregate(context.Background(), Query{Year: 2024, Month: 1, Mode: ModeMonth}, in).Report()
	assert.Equal(t, "1100.00", jan.BudgetData.TotalBudget.String())
	assert.Equal(t, "200.00", jan.BudgetData.CategoryBudgets["Food"].String())
	assert.Equal(t, "900.00", jan.BudgetData.CategoryBudgets["Rent"].String())
}

func TestReportRoundsOnlyAtEmission(t *testing.T) {
	in := fixture()
	// Three expenses of 0.005 GBP each: 0.015 exact, 0.02 when emitted.
	for i := 1; i <= 3; i++ {
		in.Transactions = append(in.Transactions, tx(int64(i), false, "0.005", 10, 2, core.NewDate(2024, 4, 1)))
	}
	res := newTestEngine().Aggregate(context.Background(), Query{Year: 2024, Mode: ModeYear}, in)
	assert.True(t, res.Expense.Equal(d("0.015")))
	assert.Equal(t, "0.02", res.Report().Expense.String())
}

func TestReportJSONShape(t *testing.T) {
	in := fixture()
	in.Transactions = []core.Transaction{tx(1, false, "100", 12, 2, core.NewDate(2024, 5, 10))}

	rep := newTestEngine().Aggregate(context.Background(), Query{Year: 2024, Month: 5, Mode: ModeMonth}, in).Report()
	raw, err := json.Marshal(rep)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"income", "expense", "balance", "monthly_data", "expense_by_category", "income_by_category", "budget_data", "daily_data"} {
		assert.Contains(t, decoded, key)
	}
	assert.Equal(t, "50.00", decoded["expense"])
	assert.Equal(t, "-50.00", decoded["balance"])

	monthly := decoded["monthly_data"].(map[string]any)
	assert.Len(t, monthly, 12)
	assert.Equal(t, map[string]any{"income": "0.00", "expense": "50.00"}, monthly["5"])

	budget := decoded["budget_data"].(map[string]any)
	assert.Contains(t, budget, "total_budget")
	assert.Contains(t, budget, "used_budget")
	assert.Contains(t, budget, "category_budgets")

	yearRep := newTestEngine().Aggregate(context.Background(), Query{Year: 2024}, in).Report()
	raw, err = json.Marshal(yearRep)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "daily_data")
}
