package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"wealthtrack/internal/core"
)

func TestQueryParserBounds(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantLimit int
		wantSkip  int
		wantErr   bool
	}{
		{"defaults", "", core.DefaultListLimit, 0, false},
		{"explicit values", "limit=25&skip=50", 25, 50, false},
		{"upper bound", "limit=500", 500, 0, false},
		{"limit too large", "limit=501", core.DefaultListLimit, 0, true},
		{"limit zero", "limit=0", core.DefaultListLimit, 0, true},
		{"limit not a number", "limit=ten", core.DefaultListLimit, 0, true},
		{"negative skip", "skip=-3", core.DefaultListLimit, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/expenses?"+tt.query, nil)
			q := NewQueryParser(req)
			limit := q.Int("limit", core.DefaultListLimit, 1, core.MaxListLimit)
			skip := q.Skip()

			if limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", limit, tt.wantLimit)
			}
			if skip != tt.wantSkip {
				t.Errorf("skip = %d, want %d", skip, tt.wantSkip)
			}
			if gotErr := q.Err() != nil; gotErr != tt.wantErr {
				t.Errorf("Err() = %v, wantErr %v", q.Err(), tt.wantErr)
			}
		})
	}
}

func TestQueryParserCollectsEveryError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?category=Rent&start_date=yesterday&asset_type=Stock", nil)
	q := NewQueryParser(req)

	if q.Category("category") != nil {
		t.Error("unknown category should not parse")
	}
	if q.Date("start_date") != nil {
		t.Error("malformed date should not parse")
	}
	if a := q.AssetType("asset_type"); a == nil || *a != core.AssetStock {
		t.Errorf("asset_type = %v, want Stock", a)
	}

	err, ok := q.Err().(*RequestValidationError)
	if !ok {
		t.Fatalf("Err() = %T, want *RequestValidationError", q.Err())
	}
	if len(err.Fields) != 2 || err.Fields[0].Field != "category" || err.Fields[1].Field != "start_date" {
		t.Errorf("unexpected fields %+v", err.Fields)
	}
	if !strings.Contains(err.Fields[0].Message, "Food") {
		t.Errorf("category message should list the allowed values, got %q", err.Fields[0].Message)
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"email": "ada@example.com", "password": "secret", "remember": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if got := parser.Get("email"); got != "ada@example.com" {
		t.Errorf("Get('email') = %q", got)
	}
	if got := parser.Get("remember"); got != "true" {
		t.Errorf("Get('remember') = %q", got)
	}
	if got := parser.Get("username"); got != "" {
		t.Errorf("Get('username') = %q, want empty", got)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "username=ada%40example.com&password=s3cret+phrase"
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if got := parser.Get("username"); got != "ada@example.com" {
		t.Errorf("Get('username') = %q", got)
	}
	if got := parser.Get("password"); got != "s3cret phrase" {
		t.Errorf("Get('password') = %q", got)
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
	req.Header.Set("Content-Type", "application/json")
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Error("expected an error for truncated JSON")
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Rent\x00\x07 March\t "); got != "Rent March" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}

func TestValidatorMessages(t *testing.T) {
	v := NewValidator()
	neg := decimal.NewFromInt(-5)
	err := v.Struct(expenseRequest{Title: "x", Amount: &neg, Category: "Rent"})
	verr, ok := err.(*RequestValidationError)
	if !ok {
		t.Fatalf("Struct() = %T, want *RequestValidationError", err)
	}

	byField := map[string]string{}
	for _, f := range verr.Fields {
		byField[f.Field] = f.Message
	}
	if len(byField) != 3 {
		t.Fatalf("expected amount, category and date errors, got %+v", verr.Fields)
	}
	if msg := byField["amount"]; msg != "amount must be 0 or greater" {
		t.Errorf("amount message = %q", msg)
	}
	if msg := byField["category"]; !strings.HasPrefix(msg, "category must be one of: Food") {
		t.Errorf("category message = %q", msg)
	}
	if msg := byField["date"]; msg != "date is a required field" {
		t.Errorf("date message = %q", msg)
	}

	ok2 := decimal.RequireFromString("12.30")
	if err := v.Struct(expenseRequest{
		Title: "Lunch", Amount: &ok2, Category: core.CategoryFood, Date: core.NewDate(2025, 1, 2),
	}); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}
