package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"wealthtrack/internal/core"
	"wealthtrack/internal/storage"
	"wealthtrack/internal/storage/memory"
)

// StoreSuite runs the same behaviour checks against every Store backend.
type StoreSuite struct {
	suite.Suite
	open  func(t *testing.T) storage.Store
	store storage.Store
	ctx   context.Context
	user  core.User
	other core.User
	now   time.Time
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func(t *testing.T) storage.Store {
		repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "test.db"))
		require.NoError(t, err)
		return repo
	}})
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func(*testing.T) storage.Store { return memory.New() }})
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.open(s.T())
	s.now = time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC)

	var err error
	s.user, err = s.store.CreateUser(s.ctx, core.User{Email: "Ada@Example.com", FullName: "Ada", PasswordHash: "h", IsActive: true, CreatedAt: s.now})
	s.Require().NoError(err)
	s.other, err = s.store.CreateUser(s.ctx, core.User{Email: "bob@example.com", FullName: "Bob", PasswordHash: "h", IsActive: true, CreatedAt: s.now})
	s.Require().NoError(err)
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreSuite) expense(owner uuid.UUID, title, amount string, date core.Date, created time.Time) core.Expense {
	e, err := s.store.CreateExpense(s.ctx, core.Expense{
		UserID:    owner,
		Title:     title,
		Amount:    decimal.RequireFromString(amount),
		Category:  core.CategoryFood,
		Date:      date,
		CreatedAt: created,
		UpdatedAt: created,
	})
	s.Require().NoError(err)
	return e
}

func (s *StoreSuite) investment(owner uuid.UUID, typ core.AssetType, platform string, purchased core.Date) core.Investment {
	i, err := s.store.CreateInvestment(s.ctx, core.Investment{
		UserID:        owner,
		AssetType:     typ,
		AssetName:     string(typ) + " fund",
		Quantity:      decimal.RequireFromString("2.5"),
		PurchasePrice: decimal.RequireFromString("100.10"),
		CurrentPrice:  decimal.RequireFromString("120"),
		PurchaseDate:  purchased,
		Platform:      platform,
		CreatedAt:     s.now,
		UpdatedAt:     s.now,
	})
	s.Require().NoError(err)
	return i
}

func (s *StoreSuite) TestUsers() {
	got, err := s.store.UserByEmail(s.ctx, " ADA@example.com ")
	s.Require().NoError(err)
	s.Equal(s.user.ID, got.ID)
	s.Equal("ada@example.com", got.Email)
	s.True(got.IsActive)

	byID, err := s.store.UserByID(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Equal("Ada", byID.FullName)

	_, err = s.store.CreateUser(s.ctx, core.User{Email: "ada@example.com", FullName: "Dup", PasswordHash: "h", CreatedAt: s.now})
	s.ErrorIs(err, core.ErrConflict)

	_, err = s.store.UserByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *StoreSuite) TestExpenseRoundTripKeepsDecimals() {
	created := s.expense(s.user.ID, "Lunch", "12.34", core.NewDate(2025, 1, 5), s.now)

	got, err := s.store.GetExpense(s.ctx, s.user.ID, created.ID)
	s.Require().NoError(err)
	s.Equal("12.34", got.Amount.StringFixed(2))
	s.Equal("2025-01-05", got.Date.String())
	s.True(got.CreatedAt.Equal(s.now))
}

func (s *StoreSuite) TestExpenseOwnership() {
	mine := s.expense(s.user.ID, "Mine", "10", core.NewDate(2025, 1, 5), s.now)

	_, err := s.store.GetExpense(s.ctx, s.other.ID, mine.ID)
	s.ErrorIs(err, core.ErrNotFound)

	mine.UserID = s.other.ID
	_, err = s.store.UpdateExpense(s.ctx, mine)
	s.ErrorIs(err, core.ErrNotFound)

	s.ErrorIs(s.store.DeleteExpense(s.ctx, s.other.ID, mine.ID), core.ErrNotFound)

	all, err := s.store.AllExpenses(s.ctx, s.other.ID)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *StoreSuite) TestExpenseUpdateAndDelete() {
	e := s.expense(s.user.ID, "Taxi", "20", core.NewDate(2025, 1, 5), s.now)
	e.Title = "Train"
	e.Amount = decimal.RequireFromString("7.5")
	e.UpdatedAt = s.now.Add(time.Hour)

	updated, err := s.store.UpdateExpense(s.ctx, e)
	s.Require().NoError(err)
	s.Equal("Train", updated.Title)
	s.True(updated.Amount.Equal(decimal.RequireFromString("7.5")))

	s.Require().NoError(s.store.DeleteExpense(s.ctx, s.user.ID, e.ID))
	_, err = s.store.GetExpense(s.ctx, s.user.ID, e.ID)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *StoreSuite) TestListExpensesOrderFilterAndTotals() {
	old := s.expense(s.user.ID, "old", "1.10", core.NewDate(2024, 12, 1), s.now)
	first := s.expense(s.user.ID, "first", "2.20", core.NewDate(2025, 1, 10), s.now)
	later := s.expense(s.user.ID, "later", "3.30", core.NewDate(2025, 1, 10), s.now.Add(time.Minute))
	s.expense(s.other.ID, "foreign", "99", core.NewDate(2025, 1, 10), s.now)

	page, err := s.store.ListExpenses(s.ctx, s.user.ID, core.ExpenseFilter{})
	s.Require().NoError(err)
	s.Equal(3, page.TotalCount)
	s.True(page.TotalAmount.Equal(decimal.RequireFromString("6.60")))
	s.Require().Len(page.Expenses, 3)
	s.Equal(later.ID, page.Expenses[0].ID)
	s.Equal(first.ID, page.Expenses[1].ID)
	s.Equal(old.ID, page.Expenses[2].ID)

	start := core.NewDate(2025, 1, 1)
	paged, err := s.store.ListExpenses(s.ctx, s.user.ID, core.ExpenseFilter{Start: &start, Skip: 1, Limit: 5})
	s.Require().NoError(err)
	s.Equal(2, paged.TotalCount)
	s.True(paged.TotalAmount.Equal(decimal.RequireFromString("5.50")))
	s.Require().Len(paged.Expenses, 1)
	s.Equal(first.ID, paged.Expenses[0].ID)

	other := core.CategoryBills
	none, err := s.store.ListExpenses(s.ctx, s.user.ID, core.ExpenseFilter{Category: &other})
	s.Require().NoError(err)
	s.Zero(none.TotalCount)
	s.NotNil(none.Expenses)
	s.True(none.TotalAmount.IsZero())
}

func (s *StoreSuite) TestInvestmentRoundTripOptionalFields() {
	i := s.investment(s.user.ID, core.AssetFD, "Bank", core.NewDate(2024, 6, 1))

	got, err := s.store.GetInvestment(s.ctx, s.user.ID, i.ID)
	s.Require().NoError(err)
	s.Nil(got.MaturityDate)
	s.Nil(got.InterestRate)
	s.True(got.Quantity.Equal(decimal.RequireFromString("2.5")))

	maturity := core.NewDate(2025, 6, 1)
	rate := decimal.RequireFromString("7.25")
	got.MaturityDate = &maturity
	got.InterestRate = &rate
	got.CurrentPrice = decimal.RequireFromString("101")
	updated, err := s.store.UpdateInvestment(s.ctx, got)
	s.Require().NoError(err)
	s.Require().NotNil(updated.MaturityDate)
	s.Equal("2025-06-01", updated.MaturityDate.String())
	s.Require().NotNil(updated.InterestRate)
	s.Equal("7.25", updated.InterestRate.String())
	s.True(updated.CurrentPrice.Equal(decimal.RequireFromString("101")))
}

func (s *StoreSuite) TestListInvestmentsFilterAndOrder() {
	a := s.investment(s.user.ID, core.AssetStock, "Zerodha", core.NewDate(2024, 1, 1))
	b := s.investment(s.user.ID, core.AssetStock, "zerodha ", core.NewDate(2024, 3, 1))
	s.investment(s.user.ID, core.AssetGold, "Vault", core.NewDate(2024, 2, 1))
	s.investment(s.other.ID, core.AssetStock, "Zerodha", core.NewDate(2024, 5, 1))

	stock := core.AssetStock
	page, err := s.store.ListInvestments(s.ctx, s.user.ID, core.InvestmentFilter{AssetType: &stock, Platform: "ZERODHA"})
	s.Require().NoError(err)
	s.Equal(2, page.TotalCount)
	s.Require().Len(page.Investments, 2)
	s.Equal(b.ID, page.Investments[0].ID)
	s.Equal(a.ID, page.Investments[1].ID)

	limited, err := s.store.ListInvestments(s.ctx, s.user.ID, core.InvestmentFilter{Limit: 1})
	s.Require().NoError(err)
	s.Equal(3, limited.TotalCount)
	s.Len(limited.Investments, 1)

	s.Require().NoError(s.store.DeleteInvestment(s.ctx, s.user.ID, a.ID))
	all, err := s.store.AllInvestments(s.ctx, s.user.ID)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *StoreSuite) TestPlatformFilterIsUnicodeAware() {
	a := s.investment(s.user.ID, core.AssetStock, "\tSociété Générale ", core.NewDate(2024, 1, 1))
	s.investment(s.user.ID, core.AssetStock, "Societe Generale", core.NewDate(2024, 2, 1))

	page, err := s.store.ListInvestments(s.ctx, s.user.ID, core.InvestmentFilter{Platform: "SOCIÉTÉ GÉNÉRALE"})
	s.Require().NoError(err)
	s.Require().Len(page.Investments, 1)
	s.Equal(a.ID, page.Investments[0].ID)

	a.Platform = "Ökobank"
	_, err = s.store.UpdateInvestment(s.ctx, a)
	s.Require().NoError(err)
	page, err = s.store.ListInvestments(s.ctx, s.user.ID, core.InvestmentFilter{Platform: "ökoBANK"})
	s.Require().NoError(err)
	s.Require().Len(page.Investments, 1)
	s.Equal(a.ID, page.Investments[0].ID)
}

func (s *StoreSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	require.NoError(t, storage.RunMigrations(path))
	require.NoError(t, storage.RunMigrations(path))
}
