package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/analytics"
	"wealthtrack/internal/core"
	"wealthtrack/internal/log"
	"wealthtrack/internal/storage"
)

// ExpenseInput carries the fields of a new expense.
type ExpenseInput struct {
	Title         string
	Amount        decimal.Decimal
	Category      core.Category
	Date          core.Date
	PaymentMethod string
	Notes         string
}

// ExpensePatch is a partial update: nil fields are left unchanged.
type ExpensePatch struct {
	Title         *string
	Amount        *decimal.Decimal
	Category      *core.Category
	Date          *core.Date
	PaymentMethod *string
	Notes         *string
}

func (p ExpensePatch) apply(e *core.Expense) {
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.PaymentMethod != nil {
		e.PaymentMethod = strings.TrimSpace(*p.PaymentMethod)
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
}

// ExpenseService orchestrates expense operations across storage, the
// aggregate caches and AMQP.
type ExpenseService struct {
	store  storage.ExpenseStore
	notify changeNotifier
	logger *log.Logger
}

func NewExpenseService(store storage.ExpenseStore, aggregates *Aggregates, publisher Publisher, clock Clock, logger *log.Logger) *ExpenseService {
	logger = orDiscard(logger).WithComponent(log.ComponentExpense)
	return &ExpenseService{
		store: store,
		notify: changeNotifier{
			aggregates: aggregates,
			publisher:  publisher,
			clock:      clock,
			logger:     logger,
		},
		logger: logger,
	}
}

// Create validates and saves a new expense, then publishes a change event.
func (s *ExpenseService) Create(ctx context.Context, userID uuid.UUID, in ExpenseInput) (core.Expense, error) {
	now := s.notify.clock.now()
	e := core.Expense{
		ID:            uuid.New(),
		UserID:        userID,
		Title:         strings.TrimSpace(in.Title),
		Amount:        in.Amount,
		Category:      in.Category,
		Date:          in.Date,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense created",
		log.FieldUserID, userID.String(),
		log.FieldRecordID, saved.ID.String(),
		log.FieldAmount, saved.Amount.String(),
		log.FieldCategory, string(saved.Category))
	s.notify.recordChanged(ctx, userID, amqp.KindExpense, saved.ID, amqp.OpCreate)
	return saved, nil
}

func (s *ExpenseService) Get(ctx context.Context, userID, id uuid.UUID) (core.Expense, error) {
	return s.store.GetExpense(ctx, userID, id)
}

// Update applies patch to an existing expense and revalidates the result.
func (s *ExpenseService) Update(ctx context.Context, userID, id uuid.UUID, patch ExpensePatch) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, userID, id)
	if err != nil {
		return core.Expense{}, err
	}
	patch.apply(&e)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.UpdatedAt = s.notify.clock.now()

	saved, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense updated",
		log.FieldUserID, userID.String(),
		log.FieldRecordID, id.String())
	s.notify.recordChanged(ctx, userID, amqp.KindExpense, id, amqp.OpUpdate)
	return saved, nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Expense deleted",
		log.FieldUserID, userID.String(),
		log.FieldRecordID, id.String())
	s.notify.recordChanged(ctx, userID, amqp.KindExpense, id, amqp.OpDelete)
	return nil
}

// List returns one page of the user's expenses plus totals over every
// expense matching the filter.
func (s *ExpenseService) List(ctx context.Context, userID uuid.UUID, f core.ExpenseFilter) (core.ExpensePage, error) {
	if err := checkRange(f.Start, f.End); err != nil {
		return core.ExpensePage{}, err
	}
	page, err := s.store.ListExpenses(ctx, userID, f)
	if err != nil {
		return core.ExpensePage{}, fmt.Errorf("list expenses: %w", err)
	}
	return page, nil
}

// CategorySummary totals expenses per category within the optional
// inclusive date range.
func (s *ExpenseService) CategorySummary(ctx context.Context, userID uuid.UUID, start, end *core.Date) ([]analytics.CategoryTotal, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	exps, err := s.store.AllExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	return analytics.CategorySummary(analytics.FilterExpenses(exps, core.ExpenseFilter{Start: start, End: end})), nil
}

// MonthlySummary totals expenses per calendar month, optionally restricted
// to a single year.
func (s *ExpenseService) MonthlySummary(ctx context.Context, userID uuid.UUID, year *int) ([]analytics.MonthTotal, error) {
	exps, err := s.store.AllExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	if year != nil {
		start := core.NewDate(*year, 1, 1)
		end := core.NewDate(*year, 12, 31)
		exps = analytics.FilterExpenses(exps, core.ExpenseFilter{Start: &start, End: &end})
	}
	return analytics.MonthlySummary(exps), nil
}

func checkRange(start, end *core.Date) error {
	if start != nil && end != nil && end.Before(*start) {
		return core.Invalid("end_date", "must not be before start_date")
	}
	return nil
}
