package sheets

import (
	"context"

	"github.com/google/uuid"

	"wealthtrack/internal/core"
)

// Mirror replaces the spreadsheet copy of a user's records with the given
// snapshot.
type Mirror interface {
	MirrorUser(ctx context.Context, userID uuid.UUID, expenses []core.Expense, investments []core.Investment) error
}

// TabPrefix is the first 8 characters of the user id.
func TabPrefix(userID uuid.UUID) string {
	return userID.String()[:8]
}

func ExpensesTab(userID uuid.UUID) string {
	return TabPrefix(userID) + "-expenses"
}

func InvestmentsTab(userID uuid.UUID) string {
	return TabPrefix(userID) + "-investments"
}
