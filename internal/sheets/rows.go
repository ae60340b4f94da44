package sheets

import (
	"sort"
	"strconv"

	"fintrack/internal/stats"
)

// Header is the first row of every exported block.
var Header = []string{"user_id", "period", "section", "key", "income", "expense"}

// Rows flattens a report into spreadsheet rows. Single-valued sections put
// their value in the income column and leave expense empty.
func Rows(userID int64, q stats.Query, rep stats.Report) [][]string {
	uid := strconv.FormatInt(userID, 10)
	period := q.String()
	row := func(section, key, income, expense string) []string {
		return []string{uid, period, section, key, income, expense}
	}

	out := [][]string{
		row("total", "income", rep.Income.String(), ""),
		row("total", "expense", rep.Expense.String(), ""),
		row("total", "balance", rep.Balance.String(), ""),
	}
	for _, k := range numericKeys(rep.MonthlyData) {
		b := rep.MonthlyData[k]
		out = append(out, row("month", k, b.Income.String(), b.Expense.String()))
	}
	for _, k := range numericKeys(rep.DailyData) {
		b := rep.DailyData[k]
		out = append(out, row("day", k, b.Income.String(), b.Expense.String()))
	}
	for _, k := range sortedKeys(rep.IncomeByCategory) {
		out = append(out, row("income_category", k, rep.IncomeByCategory[k].String(), ""))
	}
	for _, k := range sortedKeys(rep.ExpenseByCategory) {
		out = append(out, row("expense_category", k, "", rep.ExpenseByCategory[k].String()))
	}
	out = append(out,
		row("budget", "total_budget", rep.BudgetData.TotalBudget.String(), ""),
		row("budget", "used_budget", "", rep.BudgetData.UsedBudget.String()),
	)
	for _, k := range sortedKeys(rep.BudgetData.CategoryBudgets) {
		out = append(out, row("category_budget", k, rep.BudgetData.CategoryBudgets[k].String(), ""))
	}
	return out
}

func numericKeys(m map[string]stats.BucketReport) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.Atoi(keys[i])
		b, _ := strconv.Atoi(keys[j])
		return a < b
	})
	return keys
}

func sortedKeys(m map[string]stats.Amount) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
