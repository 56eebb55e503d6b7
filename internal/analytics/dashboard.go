package analytics

import (
	"github.com/shopspring/decimal"

	"wealthtrack/internal/core"
)

// DashboardTopN bounds the category and performer lists on the dashboard.
const DashboardTopN = 5

type DashboardSummary struct {
	NetWorth                  decimal.Decimal `json:"net_worth"`
	TotalInvested             decimal.Decimal `json:"total_invested"`
	InvestmentGains           decimal.Decimal `json:"investment_gains"`
	InvestmentGainsPercentage float64         `json:"investment_gains_percentage"`
	CurrentMonthExpenses      decimal.Decimal `json:"current_month_expenses"`
	LastMonthExpenses         decimal.Decimal `json:"last_month_expenses"`
	ExpenseChangePercentage   float64         `json:"expense_change_percentage"`
	TotalInvestments          int             `json:"total_investments"`
	TotalExpensesCount        int             `json:"total_expenses_count"`
}

type DashboardExpenses struct {
	CurrentMonthTotal decimal.Decimal `json:"current_month_total"`
	CurrentMonthCount int             `json:"current_month_count"`
	AllTimeTotal      decimal.Decimal `json:"all_time_total"`
	AllTimeCount      int             `json:"all_time_count"`
	TopCategories     []CategoryTotal `json:"top_categories"`
}

type DashboardInvestments struct {
	PortfolioValue  decimal.Decimal   `json:"portfolio_value"`
	TotalInvested   decimal.Decimal   `json:"total_invested"`
	TotalGains      decimal.Decimal   `json:"total_gains"`
	GainsPercentage float64           `json:"gains_percentage"`
	AssetAllocation []AllocationSlice `json:"asset_allocation"`
	TopPerformers   []Performer       `json:"top_performers"`
}

type MonthOverview struct {
	CurrentMonth        string          `json:"current_month"`
	DaysInMonth         int             `json:"days_in_month"`
	AverageDailyExpense decimal.Decimal `json:"average_daily_expense"`
}

type Dashboard struct {
	Summary       DashboardSummary     `json:"summary"`
	Expenses      DashboardExpenses    `json:"expenses"`
	Investments   DashboardInvestments `json:"investments"`
	MonthOverview MonthOverview        `json:"month_overview"`
}

// BuildDashboard assembles the complete dashboard. Net worth is the current
// value of the portfolio; cash balances are not modelled.
func BuildDashboard(exps []core.Expense, invs []core.Investment, today core.Date) Dashboard {
	portfolio := SummarizePortfolio(invs)
	spend := SummarizeExpenses(exps, today)

	currentMonth := FilterExpenses(exps, core.ExpenseFilter{Start: ptr(today.StartOfMonth()), End: ptr(today.EndOfMonth())})

	top := TopPerformers(invs, DashboardTopN)
	performers := make([]Performer, len(top))
	for i, inv := range top {
		performers[i] = NewPerformer(inv)
	}

	return Dashboard{
		Summary: DashboardSummary{
			NetWorth:                  portfolio.TotalCurrentValue,
			TotalInvested:             portfolio.TotalInvested,
			InvestmentGains:           portfolio.TotalGainLoss,
			InvestmentGainsPercentage: portfolio.TotalGainLossPercentage,
			CurrentMonthExpenses:      spend.CurrentMonthTotal,
			LastMonthExpenses:         spend.LastMonthTotal,
			ExpenseChangePercentage:   spend.ExpenseChangePercentage,
			TotalInvestments:          portfolio.TotalInvestments,
			TotalExpensesCount:        spend.AllTimeCount,
		},
		Expenses: DashboardExpenses{
			CurrentMonthTotal: spend.CurrentMonthTotal,
			CurrentMonthCount: spend.CurrentMonthCount,
			AllTimeTotal:      spend.AllTimeTotal,
			AllTimeCount:      spend.AllTimeCount,
			TopCategories:     TopCategories(currentMonth, DashboardTopN),
		},
		Investments: DashboardInvestments{
			PortfolioValue:  portfolio.TotalCurrentValue,
			TotalInvested:   portfolio.TotalInvested,
			TotalGains:      portfolio.TotalGainLoss,
			GainsPercentage: portfolio.TotalGainLossPercentage,
			AssetAllocation: AssetAllocation(invs),
			TopPerformers:   performers,
		},
		MonthOverview: monthOverview(spend.CurrentMonthTotal, today),
	}
}

func monthOverview(monthTotal decimal.Decimal, today core.Date) MonthOverview {
	days := today.DaysInMonth()
	return MonthOverview{
		CurrentMonth:        today.Format("January 2006"),
		DaysInMonth:         days,
		AverageDailyExpense: monthTotal.DivRound(decimal.NewFromInt(int64(days)), 2),
	}
}

func ptr[T any](v T) *T { return &v }
