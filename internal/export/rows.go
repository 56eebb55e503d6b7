// Package export renders expense and investment records as tabular rows for
// CSV downloads, XLSX workbooks and the spreadsheet mirror.
package export

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"wealthtrack/internal/core"
)

var (
	ExpenseHeader = []string{"Date", "Title", "Amount", "Category", "Payment Method", "Notes"}

	InvestmentHeader = []string{
		"Asset Type", "Asset Name", "Symbol", "Quantity", "Purchase Price",
		"Current Price", "Purchase Date", "Invested Amount", "Current Value",
		"Absolute Gain", "Percentage Gain", "Days Held", "Platform", "Notes",
	}
)

// ExpenseRows returns one row per expense, newest first. The header is not
// included.
func ExpenseRows(exps []core.Expense) [][]string {
	sorted := make([]core.Expense, len(exps))
	copy(sorted, exps)
	sort.SliceStable(sorted, func(a, b int) bool {
		if !sorted[a].Date.Equal(sorted[b].Date) {
			return sorted[a].Date.After(sorted[b].Date)
		}
		if !sorted[a].CreatedAt.Equal(sorted[b].CreatedAt) {
			return sorted[a].CreatedAt.After(sorted[b].CreatedAt)
		}
		return bytes.Compare(sorted[a].ID[:], sorted[b].ID[:]) < 0
	})

	rows := make([][]string, 0, len(sorted))
	for _, e := range sorted {
		rows = append(rows, []string{
			e.Date.String(),
			e.Title,
			e.Amount.String(),
			string(e.Category),
			e.PaymentMethod,
			e.Notes,
		})
	}
	return rows
}

// InvestmentRows returns one row per holding, most recent purchase first,
// with the metrics derived as of today.
func InvestmentRows(invs []core.Investment, today core.Date) [][]string {
	sorted := make([]core.Investment, len(invs))
	copy(sorted, invs)
	sort.SliceStable(sorted, func(a, b int) bool {
		if !sorted[a].PurchaseDate.Equal(sorted[b].PurchaseDate) {
			return sorted[a].PurchaseDate.After(sorted[b].PurchaseDate)
		}
		return bytes.Compare(sorted[a].ID[:], sorted[b].ID[:]) < 0
	})

	rows := make([][]string, 0, len(sorted))
	for _, inv := range sorted {
		v := inv.View(today)
		rows = append(rows, []string{
			string(v.AssetType),
			v.AssetName,
			v.Symbol,
			v.Quantity.String(),
			v.PurchasePrice.String(),
			v.CurrentPrice.String(),
			v.PurchaseDate.String(),
			money(v.InvestedAmount),
			money(v.CurrentValue),
			money(v.AbsoluteGain),
			strconv.FormatFloat(v.PercentageGain, 'f', -1, 64),
			strconv.Itoa(v.DaysHeld),
			v.Platform,
			v.Notes,
		})
	}
	return rows
}

func money(d decimal.Decimal) string {
	return d.Round(2).String()
}

// WithHeader prepends header to rows.
func WithHeader(header []string, rows [][]string) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, header)
	return append(out, rows...)
}
