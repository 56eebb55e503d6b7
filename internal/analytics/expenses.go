package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"wealthtrack/internal/core"
)

type CategoryTotal struct {
	Category     core.Category   `json:"category"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	ExpenseCount int             `json:"expense_count"`
}

type MonthTotal struct {
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	ExpenseCount int             `json:"expense_count"`
}

// ExpenseSummary compares the current calendar month with the previous one.
type ExpenseSummary struct {
	CurrentMonthTotal       decimal.Decimal `json:"current_month_total"`
	CurrentMonthCount       int             `json:"current_month_count"`
	LastMonthTotal          decimal.Decimal `json:"last_month_total"`
	LastMonthCount          int             `json:"last_month_count"`
	AllTimeTotal            decimal.Decimal `json:"all_time_total"`
	AllTimeCount            int             `json:"all_time_count"`
	ExpenseChangePercentage float64         `json:"expense_change_percentage"`
}

// SummarizeExpenses partitions expenses by calendar month relative to today.
// Expenses dated later in the current month still count towards it.
func SummarizeExpenses(exps []core.Expense, today core.Date) ExpenseSummary {
	previous := today.PreviousMonth()
	s := ExpenseSummary{
		CurrentMonthTotal: decimal.Zero,
		LastMonthTotal:    decimal.Zero,
		AllTimeTotal:      decimal.Zero,
	}
	for _, e := range exps {
		s.AllTimeTotal = s.AllTimeTotal.Add(e.Amount)
		s.AllTimeCount++
		switch {
		case e.Date.SameMonth(today):
			s.CurrentMonthTotal = s.CurrentMonthTotal.Add(e.Amount)
			s.CurrentMonthCount++
		case e.Date.SameMonth(previous):
			s.LastMonthTotal = s.LastMonthTotal.Add(e.Amount)
			s.LastMonthCount++
		}
	}
	s.ExpenseChangePercentage = ChangePercentage(s.CurrentMonthTotal, s.LastMonthTotal)
	return s
}

// ChangePercentage is (current-last)/last*100, or 0 when last is not positive.
func ChangePercentage(current, last decimal.Decimal) float64 {
	if !last.IsPositive() {
		return 0
	}
	return core.Percent(current.Sub(last), last)
}

// CategorySummary totals expenses per category, largest first.
func CategorySummary(exps []core.Expense) []CategoryTotal {
	groups := make(map[core.Category]*CategoryTotal)
	for _, e := range exps {
		g, ok := groups[e.Category]
		if !ok {
			g = &CategoryTotal{Category: e.Category, TotalAmount: decimal.Zero}
			groups[e.Category] = g
		}
		g.TotalAmount = g.TotalAmount.Add(e.Amount)
		g.ExpenseCount++
	}
	out := make([]CategoryTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(a, b int) bool {
		if c := out[a].TotalAmount.Cmp(out[b].TotalAmount); c != 0 {
			return c > 0
		}
		return out[a].Category < out[b].Category
	})
	return out
}

// TopCategories returns the n largest category totals.
func TopCategories(exps []core.Expense, n int) []CategoryTotal {
	return firstN(CategorySummary(exps), n)
}

// MonthlySummary totals expenses per (year, month) in chronological order.
func MonthlySummary(exps []core.Expense) []MonthTotal {
	type key struct{ year, month int }
	groups := make(map[key]*MonthTotal)
	for _, e := range exps {
		k := key{e.Date.Year(), int(e.Date.Month())}
		g, ok := groups[k]
		if !ok {
			g = &MonthTotal{Year: k.year, Month: k.month, TotalAmount: decimal.Zero}
			groups[k] = g
		}
		g.TotalAmount = g.TotalAmount.Add(e.Amount)
		g.ExpenseCount++
	}
	out := make([]MonthTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Year != out[b].Year {
			return out[a].Year < out[b].Year
		}
		return out[a].Month < out[b].Month
	})
	return out
}

// TotalAmount sums the amounts of exps.
func TotalAmount(exps []core.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range exps {
		total = total.Add(e.Amount)
	}
	return total
}

// FilterExpenses keeps the expenses matching f. Pagination fields are ignored.
func FilterExpenses(exps []core.Expense, f core.ExpenseFilter) []core.Expense {
	out := make([]core.Expense, 0, len(exps))
	for _, e := range exps {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
