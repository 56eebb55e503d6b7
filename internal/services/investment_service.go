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

type InvestmentInput struct {
	AssetType     core.AssetType
	AssetName     string
	Symbol        string
	Quantity      decimal.Decimal
	PurchasePrice decimal.Decimal
	CurrentPrice  decimal.Decimal
	PurchaseDate  core.Date
	MaturityDate  *core.Date
	Platform      string
	InterestRate  *decimal.Decimal
	Notes         string
}

// InvestmentPatch is a partial update: nil fields are left unchanged. The
// Clear flags remove the optional maturity date and interest rate and take
// precedence over a value in the same patch.
type InvestmentPatch struct {
	AssetType     *core.AssetType
	AssetName     *string
	Symbol        *string
	Quantity      *decimal.Decimal
	PurchasePrice *decimal.Decimal
	CurrentPrice  *decimal.Decimal
	PurchaseDate  *core.Date
	MaturityDate  *core.Date
	Platform      *string
	InterestRate  *decimal.Decimal
	Notes         *string

	ClearMaturityDate bool
	ClearInterestRate bool
}

func (p InvestmentPatch) apply(i *core.Investment) {
	if p.AssetType != nil {
		i.AssetType = *p.AssetType
	}
	if p.AssetName != nil {
		i.AssetName = strings.TrimSpace(*p.AssetName)
	}
	if p.Symbol != nil {
		i.Symbol = strings.TrimSpace(*p.Symbol)
	}
	if p.Quantity != nil {
		i.Quantity = *p.Quantity
	}
	if p.PurchasePrice != nil {
		i.PurchasePrice = *p.PurchasePrice
	}
	if p.CurrentPrice != nil {
		i.CurrentPrice = *p.CurrentPrice
	}
	if p.PurchaseDate != nil {
		i.PurchaseDate = *p.PurchaseDate
	}
	switch {
	case p.ClearMaturityDate:
		i.MaturityDate = nil
	case p.MaturityDate != nil:
		d := *p.MaturityDate
		i.MaturityDate = &d
	}
	if p.Platform != nil {
		i.Platform = strings.TrimSpace(*p.Platform)
	}
	switch {
	case p.ClearInterestRate:
		i.InterestRate = nil
	case p.InterestRate != nil:
		r := *p.InterestRate
		i.InterestRate = &r
	}
	if p.Notes != nil {
		i.Notes = *p.Notes
	}
}

// PriceUpdate is one entry of a bulk price update. ID is kept as text so a
// malformed id is reported per entry instead of failing the batch.
type PriceUpdate struct {
	ID           string          `json:"id"`
	CurrentPrice decimal.Decimal `json:"current_price"`
}

type FailedUpdate struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type BulkUpdateResult struct {
	UpdatedCount  int            `json:"updated_count"`
	FailedCount   int            `json:"failed_count"`
	FailedUpdates []FailedUpdate `json:"failed_updates"`
}

// InvestmentList is one page of holdings plus the portfolio summary over
// every holding matching the filter.
type InvestmentList struct {
	Investments      []core.InvestmentView      `json:"investments"`
	TotalCount       int                        `json:"total_count"`
	PortfolioSummary analytics.PortfolioSummary `json:"portfolio_summary"`
}

type InvestmentService struct {
	store  storage.InvestmentStore
	notify changeNotifier
	logger *log.Logger
}

func NewInvestmentService(store storage.InvestmentStore, aggregates *Aggregates, publisher Publisher, clock Clock, logger *log.Logger) *InvestmentService {
	logger = orDiscard(logger).WithComponent(log.ComponentInvestment)
	return &InvestmentService{
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

func (s *InvestmentService) today() core.Date {
	return s.notify.clock.today()
}

func (s *InvestmentService) Create(ctx context.Context, userID uuid.UUID, in InvestmentInput) (core.InvestmentView, error) {
	now := s.notify.clock.now()
	inv := core.Investment{
		ID:            uuid.New(),
		UserID:        userID,
		AssetType:     in.AssetType,
		AssetName:     strings.TrimSpace(in.AssetName),
		Symbol:        strings.TrimSpace(in.Symbol),
		Quantity:      in.Quantity,
		PurchasePrice: in.PurchasePrice,
		CurrentPrice:  in.CurrentPrice,
		PurchaseDate:  in.PurchaseDate,
		MaturityDate:  in.MaturityDate,
		Platform:      strings.TrimSpace(in.Platform),
		InterestRate:  in.InterestRate,
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := inv.Validate(); err != nil {
		return core.InvestmentView{}, err
	}

	saved, err := s.store.CreateInvestment(ctx, inv)
	if err != nil {
		return core.InvestmentView{}, fmt.Errorf("save investment: %w", err)
	}

	s.logger.InfoContext(ctx, "Investment created",
		log.FieldUserID, userID.String(),
		log.FieldRecordID, saved.ID.String(),
		log.FieldAssetType, string(saved.AssetType))
	s.notify.recordChanged(ctx, userID, amqp.KindInvestment, saved.ID, amqp.OpCreate)
	return saved.View(s.today()), nil
}

func (s *InvestmentService) Get(ctx context.Context, userID, id uuid.UUID) (core.InvestmentView, error) {
	inv, err := s.store.GetInvestment(ctx, userID, id)
	if err != nil {
		return core.InvestmentView{}, err
	}
	return inv.View(s.today()), nil
}

func (s *InvestmentService) Update(ctx context.Context, userID, id uuid.UUID, patch InvestmentPatch) (core.InvestmentView, error) {
	inv, err := s.store.GetInvestment(ctx, userID, id)
	if err != nil {
		return core.InvestmentView{}, err
	}
	patch.apply(&inv)
	return s.save(ctx, inv)
}

// UpdatePrice sets the current price of one holding. The price must be
// strictly positive.
func (s *InvestmentService) UpdatePrice(ctx context.Context, userID, id uuid.UUID, price decimal.Decimal) (core.InvestmentView, error) {
	if !price.IsPositive() {
		return core.InvestmentView{}, core.Invalid("current_price", "must be greater than 0")
	}
	inv, err := s.store.GetInvestment(ctx, userID, id)
	if err != nil {
		return core.InvestmentView{}, err
	}
	inv.CurrentPrice = price
	return s.save(ctx, inv)
}

func (s *InvestmentService) save(ctx context.Context, inv core.Investment) (core.InvestmentView, error) {
	if err := inv.Validate(); err != nil {
		return core.InvestmentView{}, err
	}
	inv.UpdatedAt = s.notify.clock.now()

	saved, err := s.store.UpdateInvestment(ctx, inv)
	if err != nil {
		return core.InvestmentView{}, fmt.Errorf("update investment: %w", err)
	}

	s.logger.InfoContext(ctx, "Investment updated",
		log.FieldUserID, inv.UserID.String(),
		log.FieldRecordID, inv.ID.String())
	s.notify.recordChanged(ctx, inv.UserID, amqp.KindInvestment, inv.ID, amqp.OpUpdate)
	return saved.View(s.today()), nil
}

// BulkUpdatePrices applies every update independently. Failures are
// collected per entry and never abort the batch.
func (s *InvestmentService) BulkUpdatePrices(ctx context.Context, userID uuid.UUID, updates []PriceUpdate) BulkUpdateResult {
	result := BulkUpdateResult{FailedUpdates: []FailedUpdate{}}
	for _, u := range updates {
		id, err := uuid.Parse(strings.TrimSpace(u.ID))
		if err != nil {
			result.FailedUpdates = append(result.FailedUpdates, FailedUpdate{ID: u.ID, Error: "invalid investment id"})
			continue
		}
		if _, err := s.UpdatePrice(ctx, userID, id, u.CurrentPrice); err != nil {
			result.FailedUpdates = append(result.FailedUpdates, FailedUpdate{ID: u.ID, Error: err.Error()})
			continue
		}
		result.UpdatedCount++
	}
	result.FailedCount = len(result.FailedUpdates)

	s.logger.InfoContext(ctx, "Bulk price update finished",
		log.FieldUserID, userID.String(),
		"updated_count", result.UpdatedCount,
		"failed_count", result.FailedCount)
	return result
}

func (s *InvestmentService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.store.DeleteInvestment(ctx, userID, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Investment deleted",
		log.FieldUserID, userID.String(),
		log.FieldRecordID, id.String())
	s.notify.recordChanged(ctx, userID, amqp.KindInvestment, id, amqp.OpDelete)
	return nil
}

func (s *InvestmentService) List(ctx context.Context, userID uuid.UUID, f core.InvestmentFilter) (InvestmentList, error) {
	page, err := s.store.ListInvestments(ctx, userID, f)
	if err != nil {
		return InvestmentList{}, fmt.Errorf("list investments: %w", err)
	}
	all, err := s.store.AllInvestments(ctx, userID)
	if err != nil {
		return InvestmentList{}, fmt.Errorf("load investments: %w", err)
	}

	matching := make([]core.Investment, 0, len(all))
	for _, inv := range all {
		if f.Matches(inv) {
			matching = append(matching, inv)
		}
	}

	return InvestmentList{
		Investments:      core.Views(page.Investments, s.today()),
		TotalCount:       page.TotalCount,
		PortfolioSummary: analytics.SummarizePortfolio(matching),
	}, nil
}

func (s *InvestmentService) all(ctx context.Context, userID uuid.UUID) ([]core.Investment, error) {
	invs, err := s.store.AllInvestments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load investments: %w", err)
	}
	return invs, nil
}

func (s *InvestmentService) PortfolioSummary(ctx context.Context, userID uuid.UUID) (analytics.PortfolioSummary, error) {
	invs, err := s.all(ctx, userID)
	if err != nil {
		return analytics.PortfolioSummary{}, err
	}
	return analytics.SummarizePortfolio(invs), nil
}

func (s *InvestmentService) AssetAllocation(ctx context.Context, userID uuid.UUID) ([]analytics.AllocationSlice, error) {
	invs, err := s.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	return analytics.AssetAllocation(invs), nil
}

func (s *InvestmentService) TopPerformers(ctx context.Context, userID uuid.UUID, limit int) ([]core.InvestmentView, error) {
	invs, err := s.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	return core.Views(analytics.TopPerformers(invs, limit), s.today()), nil
}

func (s *InvestmentService) WorstPerformers(ctx context.Context, userID uuid.UUID, limit int) ([]core.InvestmentView, error) {
	invs, err := s.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	return core.Views(analytics.WorstPerformers(invs, limit), s.today()), nil
}

// MaturingSoon lists holdings that mature within the next days days.
func (s *InvestmentService) MaturingSoon(ctx context.Context, userID uuid.UUID, days int) ([]core.InvestmentView, error) {
	invs, err := s.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := s.today()
	return core.Views(analytics.MaturingSoon(invs, today, days), today), nil
}

func (s *InvestmentService) PlatformSummary(ctx context.Context, userID uuid.UUID) ([]analytics.PlatformTotals, error) {
	invs, err := s.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	return analytics.PlatformSummary(invs), nil
}

func (s *InvestmentService) Trends(ctx context.Context, userID uuid.UUID) (analytics.Trends, error) {
	invs, err := s.all(ctx, userID)
	if err != nil {
		return analytics.Trends{}, err
	}
	return analytics.PerformanceTrends(invs), nil
}

func (s *InvestmentService) Statistics(ctx context.Context, userID uuid.UUID) (analytics.Statistics, error) {
	invs, err := s.all(ctx, userID)
	if err != nil {
		return analytics.Statistics{}, err
	}
	return analytics.InvestmentStatistics(invs, s.today()), nil
}
