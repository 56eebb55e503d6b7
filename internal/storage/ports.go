package storage

import (
	"context"

	"github.com/google/uuid"

	"wealthtrack/internal/core"
)

// Ports implemented by the sqlite and memory backends. Every record method is
// scoped to the owning user: a record that belongs to someone else is
// reported as core.ErrNotFound.
type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		UserByEmail(ctx context.Context, email string) (core.User, error)
		UserByID(ctx context.Context, id uuid.UUID) (core.User, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		GetExpense(ctx context.Context, userID, id uuid.UUID) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, userID, id uuid.UUID) error
		// ListExpenses returns one page plus count and amount totals over
		// every expense matching the filter.
		ListExpenses(ctx context.Context, userID uuid.UUID, f core.ExpenseFilter) (core.ExpensePage, error)
		AllExpenses(ctx context.Context, userID uuid.UUID) ([]core.Expense, error)
	}

	InvestmentStore interface {
		CreateInvestment(ctx context.Context, i core.Investment) (core.Investment, error)
		GetInvestment(ctx context.Context, userID, id uuid.UUID) (core.Investment, error)
		UpdateInvestment(ctx context.Context, i core.Investment) (core.Investment, error)
		DeleteInvestment(ctx context.Context, userID, id uuid.UUID) error
		ListInvestments(ctx context.Context, userID uuid.UUID, f core.InvestmentFilter) (core.InvestmentPage, error)
		AllInvestments(ctx context.Context, userID uuid.UUID) ([]core.Investment, error)
	}

	Store interface {
		UserStore
		ExpenseStore
		InvestmentStore
		Ping(ctx context.Context) error
		Close() error
	}
)
