package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"wealthtrack/internal/core"
)

// TrendPoint is the cumulative position after every purchase made on Date.
type TrendPoint struct {
	Date             core.Date       `json:"date"`
	InvestedAmount   decimal.Decimal `json:"invested_amount"`
	InvestmentsCount int             `json:"investments_count"`
}

type Trends struct {
	Timeline        []TrendPoint `json:"timeline"`
	TotalDataPoints int          `json:"total_data_points"`
}

// PerformanceTrends builds a purchase-date timeline of cumulative capital
// invested. Historical prices are not tracked, so only invested amounts
// appear on the timeline.
func PerformanceTrends(invs []core.Investment) Trends {
	byDate := make(map[string][]core.Investment)
	dates := []core.Date{}
	for _, inv := range invs {
		key := inv.PurchaseDate.String()
		if _, seen := byDate[key]; !seen {
			dates = append(dates, inv.PurchaseDate)
		}
		byDate[key] = append(byDate[key], inv)
	}
	sort.Slice(dates, func(a, b int) bool { return dates[a].Before(dates[b]) })

	timeline := make([]TrendPoint, 0, len(dates))
	cumulative := decimal.Zero
	count := 0
	for _, d := range dates {
		for _, inv := range byDate[d.String()] {
			cumulative = cumulative.Add(inv.InvestedAmount())
			count++
		}
		timeline = append(timeline, TrendPoint{Date: d, InvestedAmount: cumulative, InvestmentsCount: count})
	}
	return Trends{Timeline: timeline, TotalDataPoints: len(timeline)}
}

type StatisticsOverview struct {
	TotalInvestments  int             `json:"total_investments"`
	TotalInvested     decimal.Decimal `json:"total_invested"`
	TotalValue        decimal.Decimal `json:"total_value"`
	TotalGains        decimal.Decimal `json:"total_gains"`
	OverallPercentage float64         `json:"overall_percentage"`
	AverageDaysHeld   int             `json:"average_days_held"`
}

type WinLoss struct {
	ProfitableCount int     `json:"profitable_count"`
	LossMakingCount int     `json:"loss_making_count"`
	BreakEvenCount  int     `json:"break_even_count"`
	WinRate         float64 `json:"win_rate"`
}

type Performer struct {
	ID             string          `json:"id"`
	AssetName      string          `json:"asset_name"`
	AssetType      core.AssetType  `json:"asset_type"`
	PercentageGain float64         `json:"percentage_gain"`
	AbsoluteGain   decimal.Decimal `json:"absolute_gain"`
	CurrentValue   decimal.Decimal `json:"current_value"`
}

type Extremes struct {
	BestPerformer  *Performer `json:"best_performer"`
	WorstPerformer *Performer `json:"worst_performer"`
}

type AssetPerformance struct {
	Count          int             `json:"count"`
	TotalInvested  decimal.Decimal `json:"total_invested"`
	TotalValue     decimal.Decimal `json:"total_value"`
	TotalGains     decimal.Decimal `json:"total_gains"`
	PercentageGain float64         `json:"percentage_gain"`
}

type Statistics struct {
	Overview             StatisticsOverview                  `json:"overview"`
	Performance          WinLoss                             `json:"performance"`
	Extremes             Extremes                            `json:"extremes"`
	AssetTypePerformance map[core.AssetType]AssetPerformance `json:"asset_type_performance"`
}

// NewPerformer projects an investment onto the fields shown in rankings.
func NewPerformer(inv core.Investment) Performer {
	return Performer{
		ID:             inv.ID.String(),
		AssetName:      inv.AssetName,
		AssetType:      inv.AssetType,
		PercentageGain: inv.PercentageGain(),
		AbsoluteGain:   inv.AbsoluteGain(),
		CurrentValue:   inv.CurrentValue(),
	}
}

// InvestmentStatistics reports holding period, win/loss counts, extremes and
// per-asset-type performance.
func InvestmentStatistics(invs []core.Investment, today core.Date) Statistics {
	stats := Statistics{
		Overview: StatisticsOverview{
			TotalInvested: decimal.Zero,
			TotalValue:    decimal.Zero,
			TotalGains:    decimal.Zero,
		},
		AssetTypePerformance: map[core.AssetType]AssetPerformance{},
	}
	if len(invs) == 0 {
		return stats
	}

	totalDays := 0
	for _, inv := range invs {
		gain := inv.AbsoluteGain()
		stats.Overview.TotalInvested = stats.Overview.TotalInvested.Add(inv.InvestedAmount())
		stats.Overview.TotalValue = stats.Overview.TotalValue.Add(inv.CurrentValue())
		stats.Overview.TotalGains = stats.Overview.TotalGains.Add(gain)
		totalDays += inv.DaysHeld(today)

		switch gain.Sign() {
		case 1:
			stats.Performance.ProfitableCount++
		case -1:
			stats.Performance.LossMakingCount++
		default:
			stats.Performance.BreakEvenCount++
		}

		ap := stats.AssetTypePerformance[inv.AssetType]
		ap.Count++
		ap.TotalInvested = ap.TotalInvested.Add(inv.InvestedAmount())
		ap.TotalValue = ap.TotalValue.Add(inv.CurrentValue())
		ap.TotalGains = ap.TotalGains.Add(gain)
		stats.AssetTypePerformance[inv.AssetType] = ap
	}
	for t, ap := range stats.AssetTypePerformance {
		ap.PercentageGain = core.Percent(ap.TotalGains, ap.TotalInvested)
		stats.AssetTypePerformance[t] = ap
	}

	n := len(invs)
	stats.Overview.TotalInvestments = n
	stats.Overview.OverallPercentage = core.Percent(stats.Overview.TotalGains, stats.Overview.TotalInvested)
	stats.Overview.AverageDaysHeld = totalDays / n
	stats.Performance.WinRate = core.Percent(decimal.NewFromInt(int64(stats.Performance.ProfitableCount)), decimal.NewFromInt(int64(n)))

	best := NewPerformer(TopPerformers(invs, 1)[0])
	worst := NewPerformer(WorstPerformers(invs, 1)[0])
	stats.Extremes = Extremes{BestPerformer: &best, WorstPerformer: &worst}
	return stats
}
