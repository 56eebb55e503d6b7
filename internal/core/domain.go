package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type (
	User struct {
		ID           uuid.UUID `json:"id"`
		Email        string    `json:"email"`
		FullName     string    `json:"full_name"`
		PasswordHash string    `json:"-"`
		IsActive     bool      `json:"is_active"`
		CreatedAt    time.Time `json:"created_at"`
	}

	Expense struct {
		ID            uuid.UUID       `json:"id"`
		UserID        uuid.UUID       `json:"user_id"`
		Title         string          `json:"title"`
		Amount        decimal.Decimal `json:"amount"`
		Category      Category        `json:"category"`
		Date          Date            `json:"date"`
		PaymentMethod string          `json:"payment_method"`
		Notes         string          `json:"notes"`
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     time.Time       `json:"updated_at"`
	}

	Investment struct {
		ID            uuid.UUID        `json:"id"`
		UserID        uuid.UUID        `json:"user_id"`
		AssetType     AssetType        `json:"asset_type"`
		AssetName     string           `json:"asset_name"`
		Symbol        string           `json:"symbol"`
		Quantity      decimal.Decimal  `json:"quantity"`
		PurchasePrice decimal.Decimal  `json:"purchase_price"`
		CurrentPrice  decimal.Decimal  `json:"current_price"`
		PurchaseDate  Date             `json:"purchase_date"`
		MaturityDate  *Date            `json:"maturity_date"`
		Platform      string           `json:"platform"`
		InterestRate  *decimal.Decimal `json:"interest_rate"`
		Notes         string           `json:"notes"`
		CreatedAt     time.Time        `json:"created_at"`
		UpdatedAt     time.Time        `json:"updated_at"`
	}

	// InvestmentView is an Investment together with the metrics derived on read.
	InvestmentView struct {
		Investment
		InvestedAmount decimal.Decimal `json:"invested_amount"`
		CurrentValue   decimal.Decimal `json:"current_value"`
		AbsoluteGain   decimal.Decimal `json:"absolute_gain"`
		PercentageGain float64         `json:"percentage_gain"`
		DaysHeld       int             `json:"days_held"`
		IsMatured      bool            `json:"is_matured"`
	}
)

const (
	MaxTitleLength         = 200
	MaxPaymentMethodLength = 50
	MaxNotesLength         = 500
	MaxSymbolLength        = 20
	MaxPlatformLength      = 100
	MaxFullNameLength      = 100
	MinPasswordLength      = 8
	MaxPasswordLength      = 100
)

var maxInterestRate = decimal.NewFromInt(100)

func (d Date) Validate() error {
	if d.IsZero() {
		return Invalid("date", "is required")
	}
	return nil
}

func (e Expense) Validate() error {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return Invalid("title", "is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return Invalid("title", "must be at most %d characters", MaxTitleLength)
	}
	if e.Amount.IsNegative() {
		return Invalid("amount", "must not be negative")
	}
	if !HasAtMostDecimals(e.Amount, 2) {
		return Invalid("amount", "must have at most 2 decimal places")
	}
	if !e.Category.Valid() {
		_, err := ParseCategory(string(e.Category))
		return err
	}
	if e.Date.IsZero() {
		return Invalid("date", "is required")
	}
	if utf8.RuneCountInString(e.PaymentMethod) > MaxPaymentMethodLength {
		return Invalid("payment_method", "must be at most %d characters", MaxPaymentMethodLength)
	}
	if utf8.RuneCountInString(e.Notes) > MaxNotesLength {
		return Invalid("notes", "must be at most %d characters", MaxNotesLength)
	}
	return nil
}

func (i Investment) Validate() error {
	if !i.AssetType.Valid() {
		_, err := ParseAssetType(string(i.AssetType))
		return err
	}
	name := strings.TrimSpace(i.AssetName)
	if name == "" {
		return Invalid("asset_name", "is required")
	}
	if utf8.RuneCountInString(name) > MaxTitleLength {
		return Invalid("asset_name", "must be at most %d characters", MaxTitleLength)
	}
	if utf8.RuneCountInString(i.Symbol) > MaxSymbolLength {
		return Invalid("symbol", "must be at most %d characters", MaxSymbolLength)
	}
	if i.Quantity.IsNegative() {
		return Invalid("quantity", "must not be negative")
	}
	if !i.PurchasePrice.IsPositive() {
		return Invalid("purchase_price", "must be greater than 0")
	}
	if i.CurrentPrice.IsNegative() {
		return Invalid("current_price", "must not be negative")
	}
	if i.PurchaseDate.IsZero() {
		return Invalid("purchase_date", "is required")
	}
	if i.MaturityDate != nil && !i.MaturityDate.IsZero() && !i.MaturityDate.After(i.PurchaseDate) {
		return Invalid("maturity_date", "must be after purchase date")
	}
	if i.InterestRate != nil && (i.InterestRate.IsNegative() || i.InterestRate.GreaterThan(maxInterestRate)) {
		return Invalid("interest_rate", "must be between 0 and 100")
	}
	if utf8.RuneCountInString(i.Platform) > MaxPlatformLength {
		return Invalid("platform", "must be at most %d characters", MaxPlatformLength)
	}
	if utf8.RuneCountInString(i.Notes) > MaxNotesLength {
		return Invalid("notes", "must be at most %d characters", MaxNotesLength)
	}
	return nil
}

// InvestedAmount is quantity × purchase price.
func (i Investment) InvestedAmount() decimal.Decimal {
	return i.Quantity.Mul(i.PurchasePrice)
}

// CurrentValue is quantity × current price.
func (i Investment) CurrentValue() decimal.Decimal {
	return i.Quantity.Mul(i.CurrentPrice)
}

func (i Investment) AbsoluteGain() decimal.Decimal {
	return i.CurrentValue().Sub(i.InvestedAmount())
}

// GainRatio is the unrounded gain over the invested amount, 0 when nothing
// was invested. Rankings compare on it; PercentageGain is for output.
func (i Investment) GainRatio() decimal.Decimal {
	invested := i.InvestedAmount()
	if invested.IsZero() {
		return decimal.Zero
	}
	return i.AbsoluteGain().DivRound(invested, 16)
}

// PercentageGain is 0 when nothing was invested.
func (i Investment) PercentageGain() float64 {
	return Percent(i.AbsoluteGain(), i.InvestedAmount())
}

func (i Investment) DaysHeld(today Date) int {
	return i.PurchaseDate.DaysUntil(today)
}

func (i Investment) IsMatured(today Date) bool {
	return i.MaturityDate != nil && !i.MaturityDate.IsZero() && !i.MaturityDate.After(today)
}

func (i Investment) View(today Date) InvestmentView {
	return InvestmentView{
		Investment:     i,
		InvestedAmount: i.InvestedAmount(),
		CurrentValue:   i.CurrentValue(),
		AbsoluteGain:   i.AbsoluteGain(),
		PercentageGain: i.PercentageGain(),
		DaysHeld:       i.DaysHeld(today),
		IsMatured:      i.IsMatured(today),
	}
}

// Views derives metrics for every investment, preserving order.
func Views(invs []Investment, today Date) []InvestmentView {
	out := make([]InvestmentView, len(invs))
	for idx, inv := range invs {
		out[idx] = inv.View(today)
	}
	return out
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegistration checks the fields of a new account.
func ValidateRegistration(email, fullName, password string) error {
	email = NormalizeEmail(email)
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return Invalid("email", "must be a valid email address")
	}
	name := strings.TrimSpace(fullName)
	if name == "" || utf8.RuneCountInString(name) > MaxFullNameLength {
		return Invalid("full_name", "must be between 1 and %d characters", MaxFullNameLength)
	}
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return Invalid("password", "must be between %d and %d characters", MinPasswordLength, MaxPasswordLength)
	}
	return nil
}
