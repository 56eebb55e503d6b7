package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"wealthtrack/internal/amqp"
	"wealthtrack/internal/analytics"
	"wealthtrack/internal/auth"
	"wealthtrack/internal/cache"
	"wealthtrack/internal/core"
	"wealthtrack/internal/storage/memory"
)

var fixedNow = time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fakePublisher struct {
	mu       sync.Mutex
	messages []*amqp.RecordChangedMessage
	err      error
}

func (p *fakePublisher) PublishRecordChanged(_ context.Context, msg *amqp.RecordChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakePublisher) published() []*amqp.RecordChangedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*amqp.RecordChangedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	store      *memory.Store
	publisher  *fakePublisher
	aggregates *Aggregates
	userID     uuid.UUID

	expenses    *ExpenseService
	investments *InvestmentService
	dashboard   *DashboardService
	exports     *ExportService
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.publisher = &fakePublisher{}
	s.aggregates = &Aggregates{
		Dashboards: cache.NewLRUCache[analytics.Dashboard](10, time.Minute),
		Health:     cache.NewLRUCache[analytics.HealthReport](10, time.Minute),
		Clock:      fixedClock,
	}
	s.userID = uuid.New()

	s.expenses = NewExpenseService(s.store, s.aggregates, s.publisher, fixedClock, nil)
	s.investments = NewInvestmentService(s.store, s.aggregates, s.publisher, fixedClock, nil)
	s.dashboard = NewDashboardService(s.store, s.aggregates, analytics.DefaultHealthPolicy(), fixedClock, nil)
	s.exports = NewExportService(s.store, fixedClock, nil)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) createExpense(title, amount string, cat core.Category, date core.Date) core.Expense {
	e, err := s.expenses.Create(s.ctx, s.userID, ExpenseInput{
		Title:    title,
		Amount:   dec(amount),
		Category: cat,
		Date:     date,
	})
	s.Require().NoError(err)
	return e
}

func (s *ServiceSuite) createInvestment(name string, typ core.AssetType, qty, buy, cur string) core.InvestmentView {
	v, err := s.investments.Create(s.ctx, s.userID, InvestmentInput{
		AssetType:     typ,
		AssetName:     name,
		Quantity:      dec(qty),
		PurchasePrice: dec(buy),
		CurrentPrice:  dec(cur),
		PurchaseDate:  core.NewDate(2024, 12, 21),
		Platform:      "Broker",
	})
	s.Require().NoError(err)
	return v
}

func (s *ServiceSuite) TestCreateExpensePublishesAndStamps() {
	e := s.createExpense("  Lunch ", "12.50", core.CategoryFood, core.NewDate(2025, 1, 5))

	s.Equal("Lunch", e.Title)
	s.Equal(fixedNow, e.CreatedAt)
	s.Equal(s.userID, e.UserID)

	msgs := s.publisher.published()
	s.Require().Len(msgs, 1)
	s.Equal(amqp.KindExpense, msgs[0].Kind)
	s.Equal(amqp.OpCreate, msgs[0].Op)
	s.Equal(e.ID, msgs[0].RecordID)
}

func (s *ServiceSuite) TestCreateExpenseRejectsInvalid() {
	_, err := s.expenses.Create(s.ctx, s.userID, ExpenseInput{
		Title: "x", Amount: dec("-1"), Category: core.CategoryFood, Date: core.NewDate(2025, 1, 5),
	})
	s.ErrorIs(err, core.ErrValidation)

	var verr *core.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("amount", verr.Field)
	s.Empty(s.publisher.published())
}

func (s *ServiceSuite) TestUpdateExpenseIsPartial() {
	e := s.createExpense("Lunch", "12.50", core.CategoryFood, core.NewDate(2025, 1, 5))

	amount := dec("15")
	updated, err := s.expenses.Update(s.ctx, s.userID, e.ID, ExpensePatch{Amount: &amount})
	s.Require().NoError(err)
	s.True(updated.Amount.Equal(amount))
	s.Equal("Lunch", updated.Title)
	s.Equal(core.CategoryFood, updated.Category)

	empty := "   "
	_, err = s.expenses.Update(s.ctx, s.userID, e.ID, ExpensePatch{Title: &empty})
	s.ErrorIs(err, core.ErrValidation)
}

func (s *ServiceSuite) TestExpenseOwnership() {
	e := s.createExpense("Lunch", "12.50", core.CategoryFood, core.NewDate(2025, 1, 5))
	stranger := uuid.New()

	_, err := s.expenses.Get(s.ctx, stranger, e.ID)
	s.ErrorIs(err, core.ErrNotFound)
	s.ErrorIs(s.expenses.Delete(s.ctx, stranger, e.ID), core.ErrNotFound)

	s.Require().NoError(s.expenses.Delete(s.ctx, s.userID, e.ID))
	_, err = s.expenses.Get(s.ctx, s.userID, e.ID)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *ServiceSuite) TestListExpensesRejectsInvertedRange() {
	start := core.NewDate(2025, 2, 1)
	end := core.NewDate(2025, 1, 1)
	_, err := s.expenses.List(s.ctx, s.userID, core.ExpenseFilter{Start: &start, End: &end})
	s.ErrorIs(err, core.ErrValidation)
}

func (s *ServiceSuite) TestExpenseSummaries() {
	s.createExpense("Lunch", "10", core.CategoryFood, core.NewDate(2024, 12, 5))
	s.createExpense("Dinner", "30", core.CategoryFood, core.NewDate(2025, 1, 5))
	s.createExpense("Bus", "20", core.CategoryTransport, core.NewDate(2025, 1, 6))

	start := core.NewDate(2025, 1, 1)
	byCat, err := s.expenses.CategorySummary(s.ctx, s.userID, &start, nil)
	s.Require().NoError(err)
	s.Require().Len(byCat, 2)
	s.Equal(core.CategoryFood, byCat[0].Category)
	s.True(byCat[0].TotalAmount.Equal(dec("30")))

	year := 2025
	months, err := s.expenses.MonthlySummary(s.ctx, s.userID, &year)
	s.Require().NoError(err)
	s.Require().Len(months, 1)
	s.Equal(1, months[0].Month)
	s.Equal(2, months[0].ExpenseCount)

	all, err := s.expenses.MonthlySummary(s.ctx, s.userID, nil)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *ServiceSuite) TestWritesInvalidateCachedDashboard() {
	s.createExpense("Lunch", "10", core.CategoryFood, core.NewDate(2025, 1, 5))

	first, err := s.dashboard.Dashboard(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(1, first.Summary.TotalExpensesCount)
	s.Equal(1, s.aggregates.Dashboards.Size())

	s.createExpense("Dinner", "20", core.CategoryFood, core.NewDate(2025, 1, 6))
	s.Equal(0, s.aggregates.Dashboards.Size())

	second, err := s.dashboard.Dashboard(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(2, second.Summary.TotalExpensesCount)
	s.True(second.Summary.CurrentMonthExpenses.Equal(dec("30")))
}

// gatedLoader pauses AllExpenses after it has read its snapshot until
// release is closed.
type gatedLoader struct {
	RecordLoader
	loaded  chan struct{}
	release chan struct{}
}

func (g *gatedLoader) AllExpenses(ctx context.Context, userID uuid.UUID) ([]core.Expense, error) {
	exps, err := g.RecordLoader.AllExpenses(ctx, userID)
	close(g.loaded)
	<-g.release
	return exps, err
}

func (s *ServiceSuite) TestDashboardComputedBeforeDeleteIsNotCached() {
	e := s.createExpense("Rent share", "100", core.CategoryBills, core.NewDate(2025, 1, 5))

	gated := &gatedLoader{RecordLoader: s.store, loaded: make(chan struct{}), release: make(chan struct{})}
	slow := NewDashboardService(gated, s.aggregates, analytics.DefaultHealthPolicy(), fixedClock, nil)

	type result struct {
		d   analytics.Dashboard
		err error
	}
	done := make(chan result, 1)
	go func() {
		d, err := slow.Dashboard(s.ctx, s.userID)
		done <- result{d, err}
	}()

	<-gated.loaded
	s.Require().NoError(s.expenses.Delete(s.ctx, s.userID, e.ID))
	close(gated.release)

	stale := <-done
	s.Require().NoError(stale.err)
	s.Equal(1, stale.d.Summary.TotalExpensesCount)
	s.Equal(0, s.aggregates.Dashboards.Size(), "a snapshot older than the delete must not be cached")

	fresh, err := s.dashboard.Dashboard(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(0, fresh.Summary.TotalExpensesCount)
	s.True(fresh.Summary.CurrentMonthExpenses.IsZero())
	s.Equal(1, s.aggregates.Dashboards.Size())
}

func (s *ServiceSuite) TestAggregateKeysFollowTheMonth() {
	s.createExpense("Lunch", "10", core.CategoryFood, core.NewDate(2025, 1, 5))
	_, err := s.dashboard.Dashboard(s.ctx, s.userID)
	s.Require().NoError(err)

	_, ok := s.aggregates.Dashboards.Get(s.ctx, cache.DashboardKey(s.userID, fixedNow))
	s.True(ok)
	_, ok = s.aggregates.Dashboards.Get(s.ctx, cache.DashboardKey(s.userID, fixedNow.AddDate(0, 1, 0)))
	s.False(ok, "next month must not see this month's dashboard")
}

func (s *ServiceSuite) TestInvestmentPatchClearsOptionalFields() {
	v := s.createInvestment("Deposit", core.AssetFD, "1", "1000", "1000")
	maturity := core.NewDate(2025, 12, 21)
	rate := dec("6.5")

	set, err := s.investments.Update(s.ctx, s.userID, v.ID, InvestmentPatch{MaturityDate: &maturity, InterestRate: &rate})
	s.Require().NoError(err)
	s.Require().NotNil(set.MaturityDate)
	s.Require().NotNil(set.InterestRate)

	cleared, err := s.investments.Update(s.ctx, s.userID, v.ID, InvestmentPatch{ClearMaturityDate: true, ClearInterestRate: true})
	s.Require().NoError(err)
	s.Nil(cleared.MaturityDate)
	s.Nil(cleared.InterestRate)
}

func (s *ServiceSuite) TestPublishFailureDoesNotFailWrite() {
	s.publisher.err = errors.New("broker down")

	e := s.createExpense("Lunch", "10", core.CategoryFood, core.NewDate(2025, 1, 5))
	got, err := s.expenses.Get(s.ctx, s.userID, e.ID)
	s.Require().NoError(err)
	s.Equal(e.ID, got.ID)
}

func (s *ServiceSuite) TestInvestmentLifecycle() {
	v := s.createInvestment("ACME", core.AssetStock, "10", "100", "110")
	s.True(v.InvestedAmount.Equal(dec("1000")))
	s.Equal(10.0, v.PercentageGain)
	s.Equal(30, v.DaysHeld)

	updated, err := s.investments.UpdatePrice(s.ctx, s.userID, v.ID, dec("90"))
	s.Require().NoError(err)
	s.Equal(-10.0, updated.PercentageGain)

	_, err = s.investments.UpdatePrice(s.ctx, s.userID, v.ID, decimal.Zero)
	s.ErrorIs(err, core.ErrValidation)

	name := "ACME Corp"
	patched, err := s.investments.Update(s.ctx, s.userID, v.ID, InvestmentPatch{AssetName: &name})
	s.Require().NoError(err)
	s.Equal("ACME Corp", patched.AssetName)
	s.True(patched.CurrentPrice.Equal(dec("90")))

	s.Require().NoError(s.investments.Delete(s.ctx, s.userID, v.ID))
	_, err = s.investments.Get(s.ctx, s.userID, v.ID)
	s.ErrorIs(err, core.ErrNotFound)

	ops := []amqp.Op{}
	for _, m := range s.publisher.published() {
		ops = append(ops, m.Op)
	}
	s.Equal([]amqp.Op{amqp.OpCreate, amqp.OpUpdate, amqp.OpUpdate, amqp.OpDelete}, ops)
}

func (s *ServiceSuite) TestInvestmentRejectsMaturityBeforePurchase() {
	maturity := core.NewDate(2024, 1, 1)
	_, err := s.investments.Create(s.ctx, s.userID, InvestmentInput{
		AssetType: core.AssetFD, AssetName: "Deposit", Quantity: dec("1"),
		PurchasePrice: dec("1000"), CurrentPrice: dec("1000"),
		PurchaseDate: core.NewDate(2024, 12, 21), MaturityDate: &maturity,
	})
	s.ErrorIs(err, core.ErrValidation)
}

func (s *ServiceSuite) TestBulkUpdatePrices() {
	a := s.createInvestment("A", core.AssetStock, "1", "10", "10")
	b := s.createInvestment("B", core.AssetGold, "1", "10", "10")

	res := s.investments.BulkUpdatePrices(s.ctx, s.userID, []PriceUpdate{
		{ID: a.ID.String(), CurrentPrice: dec("12")},
		{ID: "not-a-uuid", CurrentPrice: dec("12")},
		{ID: uuid.NewString(), CurrentPrice: dec("12")},
		{ID: b.ID.String(), CurrentPrice: dec("0")},
	})

	s.Equal(1, res.UpdatedCount)
	s.Equal(3, res.FailedCount)
	s.Require().Len(res.FailedUpdates, 3)
	s.Equal("not-a-uuid", res.FailedUpdates[0].ID)

	got, err := s.investments.Get(s.ctx, s.userID, a.ID)
	s.Require().NoError(err)
	s.True(got.CurrentPrice.Equal(dec("12")))
}

func (s *ServiceSuite) TestListInvestmentsSummarizesFilteredSet() {
	s.createInvestment("A", core.AssetStock, "1", "100", "110")
	s.createInvestment("B", core.AssetStock, "1", "100", "120")
	s.createInvestment("C", core.AssetGold, "1", "100", "100")

	stock := core.AssetStock
	list, err := s.investments.List(s.ctx, s.userID, core.InvestmentFilter{AssetType: &stock, Limit: 1})
	s.Require().NoError(err)
	s.Len(list.Investments, 1)
	s.Equal(2, list.TotalCount)
	s.Equal(2, list.PortfolioSummary.TotalInvestments)
	s.True(list.PortfolioSummary.TotalCurrentValue.Equal(dec("230")))
}

func (s *ServiceSuite) TestInvestmentAnalytics() {
	s.createInvestment("A", core.AssetStock, "1", "100", "150")
	s.createInvestment("B", core.AssetGold, "1", "100", "90")

	top, err := s.investments.TopPerformers(s.ctx, s.userID, 1)
	s.Require().NoError(err)
	s.Require().Len(top, 1)
	s.Equal("A", top[0].AssetName)

	worst, err := s.investments.WorstPerformers(s.ctx, s.userID, 1)
	s.Require().NoError(err)
	s.Equal("B", worst[0].AssetName)

	alloc, err := s.investments.AssetAllocation(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Len(alloc, 2)

	platforms, err := s.investments.PlatformSummary(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Require().Len(platforms, 1)
	s.Equal(2, platforms[0].InvestmentCount)

	stats, err := s.investments.Statistics(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(1, stats.Performance.ProfitableCount)
	s.Equal(50.0, stats.Performance.WinRate)

	trends, err := s.investments.Trends(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(1, trends.TotalDataPoints)

	soon, err := s.investments.MaturingSoon(s.ctx, s.userID, 30)
	s.Require().NoError(err)
	s.Empty(soon)
}

func (s *ServiceSuite) TestOverviewJoinsDashboardAndHealth() {
	s.createExpense("Lunch", "10", core.CategoryFood, core.NewDate(2025, 1, 5))

	ov, err := s.dashboard.Overview(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(1, ov.Dashboard.Summary.TotalExpensesCount)
	s.Equal(55, ov.Health.Score)
	s.Equal("Fair", ov.Health.Rating)
	s.Equal(1, s.aggregates.Health.Size())
}

type failingLoader struct{}

func (failingLoader) AllExpenses(context.Context, uuid.UUID) ([]core.Expense, error) {
	return nil, nil
}

func (failingLoader) AllInvestments(context.Context, uuid.UUID) ([]core.Investment, error) {
	return nil, errors.New("database is locked")
}

func TestOverviewFailsWhenEitherSideFails(t *testing.T) {
	svc := NewDashboardService(failingLoader{}, nil, analytics.DefaultHealthPolicy(), fixedClock, nil)

	_, err := svc.Overview(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestAggregatesInvalidateNilSafe(t *testing.T) {
	var a *Aggregates
	a.Invalidate(context.Background(), uuid.New())

	(&Aggregates{}).Invalidate(context.Background(), uuid.New())
}

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	issuer, err := auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour, fixedClock)
	require.NoError(t, err)
	svc := NewAuthService(store, issuer, 4, fixedClock, nil)

	user, err := svc.Register(ctx, " Ada@Example.com ", "Ada Lovelace", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.True(t, user.IsActive)

	_, err = svc.Register(ctx, "ada@example.com", "Someone Else", "another password")
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = svc.Register(ctx, "bob@example.com", "Bob", "short")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong password")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	token, err := svc.Authenticate(ctx, "ADA@example.com", "correct horse")
	require.NoError(t, err)

	me, err := svc.UserForToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, me.ID)

	_, err = svc.UserForToken(ctx, token+"x")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	got, err := svc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.FullName)
}
