// Package memory is an in-process Store used by DATA_BACKEND=memory and by
// tests. Data is lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wealthtrack/internal/core"
	"wealthtrack/internal/storage"
)

type Store struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]core.User
	emails      map[string]uuid.UUID
	expenses    map[uuid.UUID]core.Expense
	investments map[uuid.UUID]core.Investment
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:       make(map[uuid.UUID]core.User),
		emails:      make(map[string]uuid.UUID),
		expenses:    make(map[uuid.UUID]core.Expense),
		investments: make(map[uuid.UUID]core.Investment),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = core.NormalizeEmail(u.Email)
	if _, taken := s.emails[u.Email]; taken {
		return core.User{}, fmt.Errorf("email %s already registered: %w", u.Email, core.ErrConflict)
	}
	s.users[u.ID] = u
	s.emails[u.Email] = u.ID
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[core.NormalizeEmail(email)]
	if !ok {
		return core.User{}, fmt.Errorf("user: %w", core.ErrNotFound)
	}
	return s.users[id], nil
}

func (s *Store) UserByID(_ context.Context, id uuid.UUID) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user: %w", core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) GetExpense(_ context.Context, userID, id uuid.UUID) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok || e.UserID != userID {
		return core.Expense{}, fmt.Errorf("expense: %w", core.ErrNotFound)
	}
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.expenses[e.ID]
	if !ok || old.UserID != e.UserID {
		return core.Expense{}, fmt.Errorf("expense: %w", core.ErrNotFound)
	}
	e.CreatedAt = old.CreatedAt
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.UserID != userID {
		return fmt.Errorf("expense: %w", core.ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, userID uuid.UUID, f core.ExpenseFilter) (core.ExpensePage, error) {
	all, _ := s.AllExpenses(ctx, userID)
	matched := make([]core.Expense, 0, len(all))
	total := decimal.Zero
	for _, e := range all {
		if f.Matches(e) {
			matched = append(matched, e)
			total = total.Add(e.Amount)
		}
	}
	return core.ExpensePage{
		Expenses:    core.Paginate(matched, f.Skip, f.Limit),
		TotalCount:  len(matched),
		TotalAmount: total,
	}, nil
}

func (s *Store) AllExpenses(_ context.Context, userID uuid.UUID) ([]core.Expense, error) {
	s.mu.RLock()
	out := []core.Expense{}
	for _, e := range s.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		x, y := out[a], out[b]
		if !x.Date.Equal(y.Date) {
			return x.Date.After(y.Date)
		}
		if !x.CreatedAt.Equal(y.CreatedAt) {
			return x.CreatedAt.After(y.CreatedAt)
		}
		return x.ID.String() < y.ID.String()
	})
	return out, nil
}

func (s *Store) CreateInvestment(_ context.Context, i core.Investment) (core.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	s.investments[i.ID] = i
	return i, nil
}

func (s *Store) GetInvestment(_ context.Context, userID, id uuid.UUID) (core.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.investments[id]
	if !ok || i.UserID != userID {
		return core.Investment{}, fmt.Errorf("investment: %w", core.ErrNotFound)
	}
	return i, nil
}

func (s *Store) UpdateInvestment(_ context.Context, i core.Investment) (core.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.investments[i.ID]
	if !ok || old.UserID != i.UserID {
		return core.Investment{}, fmt.Errorf("investment: %w", core.ErrNotFound)
	}
	i.CreatedAt = old.CreatedAt
	s.investments[i.ID] = i
	return i, nil
}

func (s *Store) DeleteInvestment(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.investments[id]
	if !ok || i.UserID != userID {
		return fmt.Errorf("investment: %w", core.ErrNotFound)
	}
	delete(s.investments, id)
	return nil
}

func (s *Store) ListInvestments(ctx context.Context, userID uuid.UUID, f core.InvestmentFilter) (core.InvestmentPage, error) {
	all, _ := s.AllInvestments(ctx, userID)
	matched := make([]core.Investment, 0, len(all))
	for _, i := range all {
		if f.Matches(i) {
			matched = append(matched, i)
		}
	}
	return core.InvestmentPage{
		Investments: core.Paginate(matched, f.Skip, f.Limit),
		TotalCount:  len(matched),
	}, nil
}

func (s *Store) AllInvestments(_ context.Context, userID uuid.UUID) ([]core.Investment, error) {
	s.mu.RLock()
	out := []core.Investment{}
	for _, i := range s.investments {
		if i.UserID == userID {
			out = append(out, i)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		x, y := out[a], out[b]
		if !x.PurchaseDate.Equal(y.PurchaseDate) {
			return x.PurchaseDate.After(y.PurchaseDate)
		}
		return x.ID.String() < y.ID.String()
	})
	return out, nil
}
