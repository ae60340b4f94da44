package stats

import (
	"strconv"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Amount is a money value emitted with exactly two fractional digits,
// encoded as a JSON string so no precision is lost to float parsing.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: core.Round2(d)}
}

func (a Amount) String() string {
	return a.Decimal.StringFixed(core.ReportPlaces)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

type BucketReport struct {
	Income  Amount `json:"income"`
	Expense Amount `json:"expense"`
}

type BudgetReport struct {
	TotalBudget     Amount            `json:"total_budget"`
	UsedBudget      Amount            `json:"used_budget"`
	CategoryBudgets map[string]Amount `json:"category_budgets"`
}

// Report is the wire shape consumed by the dashboard. Field names are a contract.
type Report struct {
	Income            Amount                  `json:"income"`
	Expense           Amount                  `json:"expense"`
	Balance           Amount                  `json:"balance"`
	MonthlyData       map[string]BucketReport `json:"monthly_data"`
	ExpenseByCategory map[string]Amount       `json:"expense_by_category"`
	IncomeByCategory  map[string]Amount       `json:"income_by_category"`
	BudgetData        BudgetReport            `json:"budget_data"`
	DailyData         map[string]BucketReport `json:"daily_data,omitempty"`
}

// Report rounds the exact result for emission. Balance is derived from the
// rounded totals so the emitted figures always satisfy income - expense = balance.
func (r *Result) Report() Report {
	income := NewAmount(r.Income)
	expense := NewAmount(r.Expense)

	rep := Report{
		Income:            income,
		Expense:           expense,
		Balance:           Amount{Decimal: income.Decimal.Sub(expense.Decimal)},
		MonthlyData:       make(map[string]BucketReport, len(r.Monthly)),
		ExpenseByCategory: roundMap(r.ExpenseByCategory),
		IncomeByCategory:  roundMap(r.IncomeByCategory),
		BudgetData: BudgetReport{
			TotalBudget:     NewAmount(r.TotalBudget),
			UsedBudget:      expense,
			CategoryBudgets: roundMap(r.CategoryBudgets),
		},
	}
	for i, b := range r.Monthly {
		rep.MonthlyData[strconv.Itoa(i+1)] = roundBucket(b)
	}
	if r.Daily != nil {
		rep.DailyData = make(map[string]BucketReport, len(r.Daily))
		for i, b := range r.Daily {
			rep.DailyData[strconv.Itoa(i+1)] = roundBucket(b)
		}
	}
	return rep
}

func roundBucket(b Bucket) BucketReport {
	return BucketReport{Income: NewAmount(b.Income), Expense: NewAmount(b.Expense)}
}

func roundMap(m map[string]decimal.Decimal) map[string]Amount {
	out := make(map[string]Amount, len(m))
	for k, v := range m {
		out[k] = NewAmount(v)
	}
	return out
}
