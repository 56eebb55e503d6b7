package analytics

import (
	"github.com/shopspring/decimal"

	"wealthtrack/internal/core"
)

// HealthInputs are the signals a health rule can look at.
type HealthInputs struct {
	Portfolio               PortfolioSummary
	CurrentMonthExpenses    decimal.Decimal
	CurrentMonthCount       int
	ExpenseChangePercentage float64
}

// HealthRule adjusts the score by Delta when Applies holds. Issue and
// Recommendation are reported only for rules that apply and carry text.
type HealthRule struct {
	Name           string
	Delta          int
	Issue          string
	Recommendation string
	Applies        func(HealthInputs) bool
}

// RatingBand maps scores at or above MinScore to a label.
type RatingBand struct {
	MinScore int
	Rating   string
	Color    string
}

type HealthPolicy struct {
	BaseScore int
	Rules     []HealthRule
	// Bands must be ordered by descending MinScore; the last band is the
	// fallback.
	Bands []RatingBand
}

type HealthReport struct {
	Score           int      `json:"score"`
	Rating          string   `json:"rating"`
	Color           string   `json:"color"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

const (
	MinHealthScore = 0
	MaxHealthScore = 100

	diversityMinTypes      = 3
	concentrationThreshold = 60.0
	strongGainThreshold    = 15.0
	spendingRiseThreshold  = 20.0
)

// DefaultHealthPolicy is the scoring table used by the service.
func DefaultHealthPolicy() HealthPolicy {
	return HealthPolicy{
		BaseScore: MaxHealthScore,
		Rules: []HealthRule{
			{
				Name:           "no_investments",
				Delta:          -30,
				Issue:          "No investments",
				Recommendation: "Start investing to build wealth",
				Applies:        func(in HealthInputs) bool { return in.Portfolio.TotalInvestments == 0 },
			},
			{
				Name:           "low_diversity",
				Delta:          -20,
				Issue:          "Low investment diversity",
				Recommendation: "Consider diversifying across more asset types",
				Applies: func(in HealthInputs) bool {
					return in.Portfolio.TotalInvestments > 0 && len(in.Portfolio.AssetTypeBreakdown) < diversityMinTypes
				},
			},
			{
				Name:           "concentration",
				Delta:          -10,
				Issue:          "High concentration in a single asset type",
				Recommendation: "Rebalance to reduce exposure to a single asset type",
				Applies: func(in HealthInputs) bool {
					for _, g := range in.Portfolio.AssetTypeBreakdown {
						if g.PercentageOfPortfolio > concentrationThreshold {
							return true
						}
					}
					return false
				},
			},
			{
				Name:           "portfolio_loss",
				Delta:          -15,
				Issue:          "Portfolio in loss",
				Recommendation: "Review and rebalance your portfolio",
				Applies:        func(in HealthInputs) bool { return in.Portfolio.TotalGainLossPercentage < 0 },
			},
			{
				Name:    "strong_returns",
				Delta:   10,
				Applies: func(in HealthInputs) bool { return in.Portfolio.TotalGainLossPercentage > strongGainThreshold },
			},
			{
				Name:           "no_expenses_tracked",
				Delta:          -10,
				Issue:          "No expenses tracked this month",
				Recommendation: "Track your expenses regularly",
				Applies:        func(in HealthInputs) bool { return in.CurrentMonthCount == 0 },
			},
			{
				Name:           "rising_spend",
				Delta:          -10,
				Issue:          "Spending increased vs last month",
				Recommendation: "Review spending in your top categories",
				Applies:        func(in HealthInputs) bool { return in.ExpenseChangePercentage > spendingRiseThreshold },
			},
			{
				Name:           "no_emergency_fund",
				Delta:          -15,
				Issue:          "No emergency fund (FD)",
				Recommendation: "Maintain 6 months of expenses in FD",
				Applies: func(in HealthInputs) bool {
					for _, g := range in.Portfolio.AssetTypeBreakdown {
						if g.AssetType == core.AssetFD {
							return false
						}
					}
					return true
				},
			},
		},
		Bands: []RatingBand{
			{MinScore: 80, Rating: "Excellent", Color: "green"},
			{MinScore: 60, Rating: "Good", Color: "blue"},
			{MinScore: 40, Rating: "Fair", Color: "yellow"},
			{MinScore: MinHealthScore, Rating: "Needs Improvement", Color: "red"},
		},
	}
}

// HealthScore evaluates policy against the user's records.
func HealthScore(exps []core.Expense, invs []core.Investment, today core.Date, policy HealthPolicy) HealthReport {
	spend := SummarizeExpenses(exps, today)
	in := HealthInputs{
		Portfolio:               SummarizePortfolio(invs),
		CurrentMonthExpenses:    spend.CurrentMonthTotal,
		CurrentMonthCount:       spend.CurrentMonthCount,
		ExpenseChangePercentage: spend.ExpenseChangePercentage,
	}
	return policy.Evaluate(in)
}

// Evaluate applies every rule in order, clamps the score and rates it.
func (p HealthPolicy) Evaluate(in HealthInputs) HealthReport {
	report := HealthReport{
		Score:           p.BaseScore,
		Issues:          []string{},
		Recommendations: []string{},
	}
	for _, rule := range p.Rules {
		if rule.Applies == nil || !rule.Applies(in) {
			continue
		}
		report.Score += rule.Delta
		if rule.Issue != "" {
			report.Issues = append(report.Issues, rule.Issue)
		}
		if rule.Recommendation != "" {
			report.Recommendations = append(report.Recommendations, rule.Recommendation)
		}
	}
	report.Score = max(MinHealthScore, min(MaxHealthScore, report.Score))
	report.Rating, report.Color = p.rate(report.Score)
	return report
}

func (p HealthPolicy) rate(score int) (string, string) {
	for _, band := range p.Bands {
		if score >= band.MinScore {
			return band.Rating, band.Color
		}
	}
	if n := len(p.Bands); n > 0 {
		return p.Bands[n-1].Rating, p.Bands[n-1].Color
	}
	return "", ""
}
