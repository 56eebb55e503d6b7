package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"wealthtrack/internal/core"
	"wealthtrack/internal/export"
	ports "wealthtrack/internal/sheets"
)

var _ ports.Mirror = (*Mirror)(nil)

// Mirror keeps the last mirrored rows of every tab in memory.
type Mirror struct {
	mu    sync.Mutex
	now   func() time.Time
	tabs  map[string][][]string
	calls int
}

func New(now func() time.Time) *Mirror {
	if now == nil {
		now = time.Now
	}
	return &Mirror{now: now, tabs: map[string][][]string{}}
}

func (m *Mirror) MirrorUser(_ context.Context, userID uuid.UUID, expenses []core.Expense, investments []core.Investment) error {
	today := core.DateOf(m.now().UTC())
	exps := export.WithHeader(export.ExpenseHeader, export.ExpenseRows(expenses))
	invs := export.WithHeader(export.InvestmentHeader, export.InvestmentRows(investments, today))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[ports.ExpensesTab(userID)] = exps
	m.tabs[ports.InvestmentsTab(userID)] = invs
	m.calls++
	return nil
}

// Tab returns a copy of the rows last written to tab, header included.
func (m *Mirror) Tab(tab string) ([][]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tabs[tab]
	if !ok {
		return nil, false
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, true
}

// Calls reports how many snapshots were mirrored.
func (m *Mirror) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
