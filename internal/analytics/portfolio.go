// Package analytics derives aggregated figures from a user's expense and
// investment records.
//
// Every function is a pure computation over the slices it receives and a
// caller-supplied "today". Empty or sparse input yields zero sums, 0%
// changes and empty lists; nothing in this package returns an error.
package analytics

import (
	"bytes"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"wealthtrack/internal/core"
)

// DefaultRankingLimit is used when a caller asks for a non-positive number
// of performers.
const DefaultRankingLimit = 5

type PortfolioSummary struct {
	TotalInvested           decimal.Decimal      `json:"total_invested"`
	TotalCurrentValue       decimal.Decimal      `json:"total_current_value"`
	TotalGainLoss           decimal.Decimal      `json:"total_gain_loss"`
	TotalGainLossPercentage float64              `json:"total_gain_loss_percentage"`
	TotalInvestments        int                  `json:"total_investments"`
	AssetTypeBreakdown      []AssetTypeBreakdown `json:"asset_type_breakdown"`
}

type AssetTypeBreakdown struct {
	AssetType             core.AssetType  `json:"asset_type"`
	Count                 int             `json:"count"`
	Invested              decimal.Decimal `json:"invested"`
	CurrentValue          decimal.Decimal `json:"current_value"`
	GainLoss              decimal.Decimal `json:"gain_loss"`
	PercentageOfPortfolio float64         `json:"percentage_of_portfolio"`
}

type AllocationSlice struct {
	AssetType  core.AssetType  `json:"asset_type"`
	Value      decimal.Decimal `json:"value"`
	Percentage float64         `json:"percentage"`
}

type PlatformTotals struct {
	Platform           string          `json:"platform"`
	InvestmentCount    int             `json:"investment_count"`
	TotalInvested      decimal.Decimal `json:"total_invested"`
	TotalCurrentValue  decimal.Decimal `json:"total_current_value"`
	GainLoss           decimal.Decimal `json:"gain_loss"`
	GainLossPercentage float64         `json:"gain_loss_percentage"`
}

// UnknownPlatform labels holdings recorded without a platform.
const UnknownPlatform = "Unknown"

// SummarizePortfolio totals valuation and gain/loss and breaks it down by
// asset type, largest current value first.
func SummarizePortfolio(invs []core.Investment) PortfolioSummary {
	summary := PortfolioSummary{
		TotalInvested:      decimal.Zero,
		TotalCurrentValue:  decimal.Zero,
		TotalInvestments:   len(invs),
		AssetTypeBreakdown: []AssetTypeBreakdown{},
	}

	groups := make(map[core.AssetType]*AssetTypeBreakdown)
	for _, inv := range invs {
		invested := inv.InvestedAmount()
		value := inv.CurrentValue()
		summary.TotalInvested = summary.TotalInvested.Add(invested)
		summary.TotalCurrentValue = summary.TotalCurrentValue.Add(value)

		g, ok := groups[inv.AssetType]
		if !ok {
			g = &AssetTypeBreakdown{AssetType: inv.AssetType, Invested: decimal.Zero, CurrentValue: decimal.Zero}
			groups[inv.AssetType] = g
		}
		g.Count++
		g.Invested = g.Invested.Add(invested)
		g.CurrentValue = g.CurrentValue.Add(value)
	}
	summary.TotalGainLoss = summary.TotalCurrentValue.Sub(summary.TotalInvested)
	summary.TotalGainLossPercentage = core.Percent(summary.TotalGainLoss, summary.TotalInvested)

	for _, g := range groups {
		g.GainLoss = g.CurrentValue.Sub(g.Invested)
		g.PercentageOfPortfolio = core.Percent(g.CurrentValue, summary.TotalCurrentValue)
		summary.AssetTypeBreakdown = append(summary.AssetTypeBreakdown, *g)
	}
	sort.Slice(summary.AssetTypeBreakdown, func(a, b int) bool {
		x, y := summary.AssetTypeBreakdown[a], summary.AssetTypeBreakdown[b]
		if c := x.CurrentValue.Cmp(y.CurrentValue); c != 0 {
			return c > 0
		}
		return x.AssetType < y.AssetType
	})
	return summary
}

// AssetAllocation is the share of current value held in each asset type.
func AssetAllocation(invs []core.Investment) []AllocationSlice {
	summary := SummarizePortfolio(invs)
	out := make([]AllocationSlice, 0, len(summary.AssetTypeBreakdown))
	for _, g := range summary.AssetTypeBreakdown {
		out = append(out, AllocationSlice{
			AssetType:  g.AssetType,
			Value:      g.CurrentValue,
			Percentage: g.PercentageOfPortfolio,
		})
	}
	return out
}

// TopPerformers returns up to n investments with the highest percentage
// gain. Equal gains are ordered by ascending record id.
func TopPerformers(invs []core.Investment, n int) []core.Investment {
	ranked := rankByGain(invs)
	return firstN(ranked, n)
}

// WorstPerformers returns up to n investments with the lowest percentage
// gain. Equal gains are ordered by descending record id, so that over the
// full set the result is exactly TopPerformers reversed.
func WorstPerformers(invs []core.Investment, n int) []core.Investment {
	ranked := rankByGain(invs)
	for i, j := 0, len(ranked)-1; i < j; i, j = i+1, j-1 {
		ranked[i], ranked[j] = ranked[j], ranked[i]
	}
	return firstN(ranked, n)
}

func rankByGain(invs []core.Investment) []core.Investment {
	type ranked struct {
		inv  core.Investment
		gain decimal.Decimal
	}
	rows := make([]ranked, len(invs))
	for i, inv := range invs {
		rows[i] = ranked{inv: inv, gain: inv.GainRatio()}
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if c := rows[a].gain.Cmp(rows[b].gain); c != 0 {
			return c > 0
		}
		return bytes.Compare(rows[a].inv.ID[:], rows[b].inv.ID[:]) < 0
	})
	out := make([]core.Investment, len(rows))
	for i, r := range rows {
		out[i] = r.inv
	}
	return out
}

func firstN[T any](items []T, n int) []T {
	if n <= 0 {
		n = DefaultRankingLimit
	}
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}

// MaturingSoon returns holdings whose maturity date falls within
// [today, today+days], soonest first.
func MaturingSoon(invs []core.Investment, today core.Date, days int) []core.Investment {
	horizon := today.AddDays(days)
	out := []core.Investment{}
	for _, inv := range invs {
		if inv.MaturityDate == nil || inv.MaturityDate.IsZero() {
			continue
		}
		if inv.MaturityDate.Between(today, horizon) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].MaturityDate.Equal(*out[b].MaturityDate) {
			return out[a].MaturityDate.Before(*out[b].MaturityDate)
		}
		return bytes.Compare(out[a].ID[:], out[b].ID[:]) < 0
	})
	return out
}

// PlatformSummary groups holdings by broker, largest current value first.
func PlatformSummary(invs []core.Investment) []PlatformTotals {
	groups := make(map[string]*PlatformTotals)
	for _, inv := range invs {
		name := strings.TrimSpace(inv.Platform)
		if name == "" {
			name = UnknownPlatform
		}
		g, ok := groups[name]
		if !ok {
			g = &PlatformTotals{Platform: name, TotalInvested: decimal.Zero, TotalCurrentValue: decimal.Zero}
			groups[name] = g
		}
		g.InvestmentCount++
		g.TotalInvested = g.TotalInvested.Add(inv.InvestedAmount())
		g.TotalCurrentValue = g.TotalCurrentValue.Add(inv.CurrentValue())
	}

	out := make([]PlatformTotals, 0, len(groups))
	for _, g := range groups {
		g.GainLoss = g.TotalCurrentValue.Sub(g.TotalInvested)
		g.GainLossPercentage = core.Percent(g.GainLoss, g.TotalInvested)
		out = append(out, *g)
	}
	sort.Slice(out, func(a, b int) bool {
		if c := out[a].TotalCurrentValue.Cmp(out[b].TotalCurrentValue); c != 0 {
			return c > 0
		}
		return out[a].Platform < out[b].Platform
	})
	return out
}
