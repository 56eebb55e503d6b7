package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wealthtrack/internal/auth"
	"wealthtrack/internal/core"
	"wealthtrack/internal/services"
)

type expenseRequest struct {
	Title         string           `json:"title" validate:"required,max=200"`
	Amount        *decimal.Decimal `json:"amount" validate:"required,gte=0"`
	Category      core.Category    `json:"category" validate:"required,category"`
	Date          core.Date        `json:"date" validate:"required"`
	PaymentMethod string           `json:"payment_method" validate:"max=50"`
	Notes         string           `json:"notes" validate:"max=500"`
}

func (req expenseRequest) input() services.ExpenseInput {
	return services.ExpenseInput{
		Title:         sanitizeInput(req.Title),
		Amount:        *req.Amount,
		Category:      req.Category,
		Date:          req.Date,
		PaymentMethod: sanitizeInput(req.PaymentMethod),
		Notes:         req.Notes,
	}
}

// expenseUpdateRequest is a partial update: absent fields stay unchanged.
type expenseUpdateRequest struct {
	Title         *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Amount        *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
	Category      *core.Category   `json:"category" validate:"omitempty,category"`
	Date          *core.Date       `json:"date"`
	PaymentMethod *string          `json:"payment_method" validate:"omitempty,max=50"`
	Notes         *string          `json:"notes" validate:"omitempty,max=500"`
}

func (req expenseUpdateRequest) patch() services.ExpensePatch {
	return services.ExpensePatch{
		Title:         req.Title,
		Amount:        req.Amount,
		Category:      req.Category,
		Date:          req.Date,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
}

// currentUser returns the authenticated caller. requireAuth guarantees it
// is present on every /api route that reaches a handler.
func currentUser(r *http.Request) uuid.UUID {
	id, _ := auth.UserFrom(r.Context())
	return id
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	exp, err := s.svc.Expenses.Create(ctx, currentUser(r), req.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.created(w, exp)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	f := core.ExpenseFilter{
		Skip:     q.Skip(),
		Limit:    q.Int("limit", core.DefaultListLimit, 1, core.MaxListLimit),
		Category: q.Category("category"),
		Start:    q.Date("start_date"),
		End:      q.Date("end_date"),
	}
	if err := q.Err(); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	page, err := s.svc.Expenses.List(ctx, currentUser(r), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, page)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	exp, err := s.svc.Expenses.Get(r.Context(), currentUser(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, exp)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req expenseUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	exp, err := s.svc.Expenses.Update(ctx, currentUser(r), id, req.patch())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, exp)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := withTimeout(r)
	defer cancel()
	if err := s.svc.Expenses.Delete(ctx, currentUser(r), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	start, end := q.Date("start_date"), q.Date("end_date")
	if err := q.Err(); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	summary, err := s.svc.Expenses.CategorySummary(ctx, currentUser(r), start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, summary)
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	year := q.OptionalInt("year", MinYear, MaxYear)
	if err := q.Err(); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	summary, err := s.svc.Expenses.MonthlySummary(ctx, currentUser(r), year)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, summary)
}
