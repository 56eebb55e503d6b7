package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validExpense() Expense {
	return Expense{
		Title:    "Groceries",
		Amount:   dec("42.50"),
		Category: CategoryFood,
		Date:     NewDate(2025, 1, 15),
	}
}

func validInvestment() Investment {
	return Investment{
		AssetType:     AssetStock,
		AssetName:     "ACME Corp",
		Quantity:      dec("10"),
		PurchasePrice: dec("100"),
		CurrentPrice:  dec("150"),
		PurchaseDate:  NewDate(2024, 1, 1),
	}
}

func TestExpenseValidate(t *testing.T) {
	if err := validExpense().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Expense)
		field  string
	}{
		{"empty title", func(e *Expense) { e.Title = "   " }, "title"},
		{"long title", func(e *Expense) { e.Title = strings.Repeat("a", 201) }, "title"},
		{"negative amount", func(e *Expense) { e.Amount = dec("-1") }, "amount"},
		{"three decimals", func(e *Expense) { e.Amount = dec("1.005") }, "amount"},
		{"unknown category", func(e *Expense) { e.Category = "Rent" }, "category"},
		{"zero date", func(e *Expense) { e.Date = Date{} }, "date"},
		{"long payment method", func(e *Expense) { e.PaymentMethod = strings.Repeat("x", 51) }, "payment_method"},
		{"long notes", func(e *Expense) { e.Notes = strings.Repeat("x", 501) }, "notes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validExpense()
			tt.mutate(&e)
			err := e.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("errors.Is(err, ErrValidation) = false")
			}
		})
	}
}

func TestExpenseValidate_ZeroAmountAllowed(t *testing.T) {
	e := validExpense()
	e.Amount = decimal.Zero
	if err := e.Validate(); err != nil {
		t.Fatalf("zero amount should be accepted, got %v", err)
	}
}

func TestInvestmentValidate(t *testing.T) {
	if err := validInvestment().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	before := NewDate(2023, 12, 31)
	same := NewDate(2024, 1, 1)
	rate := dec("101")
	tests := []struct {
		name   string
		mutate func(*Investment)
		field  string
	}{
		{"unknown asset type", func(i *Investment) { i.AssetType = "Land" }, "asset_type"},
		{"empty name", func(i *Investment) { i.AssetName = "" }, "asset_name"},
		{"long symbol", func(i *Investment) { i.Symbol = strings.Repeat("S", 21) }, "symbol"},
		{"negative quantity", func(i *Investment) { i.Quantity = dec("-0.5") }, "quantity"},
		{"zero purchase price", func(i *Investment) { i.PurchasePrice = decimal.Zero }, "purchase_price"},
		{"negative current price", func(i *Investment) { i.CurrentPrice = dec("-1") }, "current_price"},
		{"maturity before purchase", func(i *Investment) { i.MaturityDate = &before }, "maturity_date"},
		{"maturity equal purchase", func(i *Investment) { i.MaturityDate = &same }, "maturity_date"},
		{"interest above 100", func(i *Investment) { i.InterestRate = &rate }, "interest_rate"},
		{"long platform", func(i *Investment) { i.Platform = strings.Repeat("p", 101) }, "platform"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := validInvestment()
			tt.mutate(&inv)
			var verr *ValidationError
			if err := inv.Validate(); !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("Validate() = %v, want validation error on %q", err, tt.field)
			}
		})
	}
}

func TestInvestmentMetrics(t *testing.T) {
	inv := validInvestment()
	today := NewDate(2024, 1, 31)

	if got := inv.InvestedAmount(); !got.Equal(dec("1000")) {
		t.Errorf("InvestedAmount() = %s, want 1000", got)
	}
	if got := inv.CurrentValue(); !got.Equal(dec("1500")) {
		t.Errorf("CurrentValue() = %s, want 1500", got)
	}
	if got := inv.AbsoluteGain(); !got.Equal(dec("500")) {
		t.Errorf("AbsoluteGain() = %s, want 500", got)
	}
	if got := inv.PercentageGain(); got != 50.0 {
		t.Errorf("PercentageGain() = %v, want 50", got)
	}
	if got := inv.DaysHeld(today); got != 30 {
		t.Errorf("DaysHeld() = %d, want 30", got)
	}
	if inv.IsMatured(today) {
		t.Errorf("IsMatured() = true without maturity date")
	}

	maturity := NewDate(2024, 1, 31)
	inv.MaturityDate = &maturity
	if !inv.IsMatured(today) {
		t.Errorf("IsMatured() = false on maturity day")
	}
	if inv.IsMatured(today.AddDays(-1)) {
		t.Errorf("IsMatured() = true before maturity day")
	}
}

func TestInvestmentMetrics_ZeroInvested(t *testing.T) {
	inv := validInvestment()
	inv.Quantity = decimal.Zero
	if got := inv.PercentageGain(); got != 0 {
		t.Errorf("PercentageGain() = %v, want 0 when nothing invested", got)
	}
}

func TestParseEnums(t *testing.T) {
	if c, err := ParseCategory("Transport"); err != nil || c != CategoryTransport {
		t.Errorf("ParseCategory(Transport) = %q, %v", c, err)
	}
	if _, err := ParseCategory("transport"); !errors.Is(err, ErrValidation) {
		t.Errorf("ParseCategory is expected to be case sensitive, got %v", err)
	}
	if a, err := ParseAssetType("MutualFund"); err != nil || a != AssetMutualFund {
		t.Errorf("ParseAssetType(MutualFund) = %q, %v", a, err)
	}
	if _, err := ParseAssetType("Land"); !errors.Is(err, ErrValidation) {
		t.Errorf("ParseAssetType(Land) error = %v, want validation error", err)
	}
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		email, name, password string
		field                 string
	}{
		{"user@example.com", "Jane Doe", "secret123", ""},
		{"not-an-email", "Jane", "secret123", "email"},
		{"user@example.com", "", "secret123", "full_name"},
		{"user@example.com", "Jane", "short", "password"},
	}
	for _, tt := range tests {
		err := ValidateRegistration(tt.email, tt.name, tt.password)
		if tt.field == "" {
			if err != nil {
				t.Errorf("ValidateRegistration(%q) = %v, want nil", tt.email, err)
			}
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != tt.field {
			t.Errorf("ValidateRegistration(%q) = %v, want error on %s", tt.email, err, tt.field)
		}
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		skip, limit int
		want        int
	}{
		{0, 0, 5},
		{0, 2, 2},
		{4, 10, 1},
		{5, 10, 0},
		{-1, 3, 3},
	}
	for _, tt := range tests {
		if got := Paginate(items, tt.skip, tt.limit); len(got) != tt.want {
			t.Errorf("Paginate(skip=%d, limit=%d) len = %d, want %d", tt.skip, tt.limit, len(got), tt.want)
		}
	}
}
