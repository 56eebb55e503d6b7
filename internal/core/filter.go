package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// ExpenseFilter narrows an expense listing. Nil fields do not filter.
// A Limit of zero or less returns every matching record.
type ExpenseFilter struct {
	Category *Category
	Start    *Date
	End      *Date
	Skip     int
	Limit    int
}

func (f ExpenseFilter) Matches(e Expense) bool {
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	if f.Start != nil && e.Date.Before(*f.Start) {
		return false
	}
	if f.End != nil && e.Date.After(*f.End) {
		return false
	}
	return true
}

// PlatformKey is the form platforms are compared in: Unicode lower case
// with surrounding whitespace removed.
func PlatformKey(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// InvestmentFilter narrows an investment listing. Platform matches on
// PlatformKey.
type InvestmentFilter struct {
	AssetType *AssetType
	Platform  string
	Skip      int
	Limit     int
}

func (f InvestmentFilter) Matches(i Investment) bool {
	if f.AssetType != nil && i.AssetType != *f.AssetType {
		return false
	}
	if p := PlatformKey(f.Platform); p != "" && p != PlatformKey(i.Platform) {
		return false
	}
	return true
}

// ExpensePage is one page of a filtered expense listing plus totals over the
// whole filtered set.
type ExpensePage struct {
	Expenses    []Expense       `json:"expenses"`
	TotalCount  int             `json:"total_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type InvestmentPage struct {
	Investments []Investment
	TotalCount  int
}

// Paginate applies skip/limit to an already ordered slice.
func Paginate[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
