package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wealthtrack/internal/analytics"
	"wealthtrack/internal/core"
	"wealthtrack/internal/services"
)

type investmentRequest struct {
	AssetType     core.AssetType   `json:"asset_type" validate:"required,asset_type"`
	AssetName     string           `json:"asset_name" validate:"required,max=200"`
	Symbol        string           `json:"symbol" validate:"max=20"`
	Quantity      *decimal.Decimal `json:"quantity" validate:"required,gte=0"`
	PurchasePrice *decimal.Decimal `json:"purchase_price" validate:"required,gt=0"`
	CurrentPrice  *decimal.Decimal `json:"current_price" validate:"required,gte=0"`
	PurchaseDate  core.Date        `json:"purchase_date" validate:"required"`
	MaturityDate  *core.Date       `json:"maturity_date"`
	Platform      string           `json:"platform" validate:"max=100"`
	InterestRate  *decimal.Decimal `json:"interest_rate" validate:"omitempty,gte=0,lte=100"`
	Notes         string           `json:"notes" validate:"max=500"`
}

func (req investmentRequest) input() services.InvestmentInput {
	maturity := req.MaturityDate
	if maturity != nil && maturity.IsZero() {
		maturity = nil
	}
	return services.InvestmentInput{
		AssetType:     req.AssetType,
		AssetName:     sanitizeInput(req.AssetName),
		Symbol:        sanitizeInput(req.Symbol),
		Quantity:      *req.Quantity,
		PurchasePrice: *req.PurchasePrice,
		CurrentPrice:  *req.CurrentPrice,
		PurchaseDate:  req.PurchaseDate,
		MaturityDate:  maturity,
		Platform:      sanitizeInput(req.Platform),
		InterestRate:  req.InterestRate,
		Notes:         req.Notes,
	}
}

type investmentUpdateRequest struct {
	AssetType     *core.AssetType  `json:"asset_type" validate:"omitempty,asset_type"`
	AssetName     *string          `json:"asset_name" validate:"omitempty,min=1,max=200"`
	Symbol        *string          `json:"symbol" validate:"omitempty,max=20"`
	Quantity      *decimal.Decimal `json:"quantity" validate:"omitempty,gte=0"`
	PurchasePrice *decimal.Decimal `json:"purchase_price" validate:"omitempty,gt=0"`
	CurrentPrice  *decimal.Decimal `json:"current_price" validate:"omitempty,gte=0"`
	PurchaseDate  *core.Date       `json:"purchase_date"`
	MaturityDate  *core.Date       `json:"maturity_date"`
	Platform      *string          `json:"platform" validate:"omitempty,max=100"`
	InterestRate  *decimal.Decimal `json:"interest_rate" validate:"omitempty,gte=0,lte=100"`
	Notes         *string          `json:"notes" validate:"omitempty,max=500"`

	// Set when the body sends an explicit null, which clears the field.
	clearMaturityDate bool
	clearInterestRate bool
}

func (req *investmentUpdateRequest) UnmarshalJSON(data []byte) error {
	type fields investmentUpdateRequest
	if err := json.Unmarshal(data, (*fields)(req)); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	req.clearMaturityDate = isJSONNull(raw, "maturity_date")
	req.clearInterestRate = isJSONNull(raw, "interest_rate")
	return nil
}

func isJSONNull(raw map[string]json.RawMessage, key string) bool {
	v, ok := raw[key]
	return ok && bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func (req investmentUpdateRequest) patch() services.InvestmentPatch {
	return services.InvestmentPatch{
		AssetType:     req.AssetType,
		AssetName:     req.AssetName,
		Symbol:        req.Symbol,
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
		CurrentPrice:  req.CurrentPrice,
		PurchaseDate:  req.PurchaseDate,
		MaturityDate:  req.MaturityDate,
		Platform:      req.Platform,
		InterestRate:  req.InterestRate,
		Notes:         req.Notes,

		ClearMaturityDate: req.clearMaturityDate,
		ClearInterestRate: req.clearInterestRate,
	}
}

type priceUpdateRequest struct {
	CurrentPrice *decimal.Decimal `json:"current_price" validate:"required,gt=0"`
}

func (s *Server) handleCreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req investmentRequest
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
	inv, err := s.svc.Investments.Create(ctx, currentUser(r), req.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.created(w, inv)
}

func (s *Server) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	f := core.InvestmentFilter{
		Skip:      q.Skip(),
		Limit:     q.Int("limit", core.DefaultListLimit, 1, core.MaxListLimit),
		AssetType: q.AssetType("asset_type"),
		Platform:  q.String("platform"),
	}
	if err := q.Err(); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	list, err := s.svc.Investments.List(ctx, currentUser(r), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, list)
}

func (s *Server) handleGetInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	inv, err := s.svc.Investments.Get(r.Context(), currentUser(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, inv)
}

func (s *Server) handleUpdateInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req investmentUpdateRequest
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
	inv, err := s.svc.Investments.Update(ctx, currentUser(r), id, req.patch())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, inv)
}

func (s *Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req priceUpdateRequest
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
	inv, err := s.svc.Investments.UpdatePrice(ctx, currentUser(r), id, *req.CurrentPrice)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, inv)
}

// handleBulkUpdatePrices applies each entry independently; bad entries are
// reported in the result instead of failing the request.
func (s *Server) handleBulkUpdatePrices(w http.ResponseWriter, r *http.Request) {
	var updates []services.PriceUpdate
	if err := decodeJSON(w, r, &updates); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	s.ok(w, s.svc.Investments.BulkUpdatePrices(ctx, currentUser(r), updates))
}

func (s *Server) handleDeleteInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := withTimeout(r)
	defer cancel()
	if err := s.svc.Investments.Delete(ctx, currentUser(r), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	summary, err := s.svc.Investments.PortfolioSummary(ctx, currentUser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, summary)
}

func (s *Server) handleAssetAllocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	slices, err := s.svc.Investments.AssetAllocation(ctx, currentUser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, slices)
}

func (s *Server) handleTopPerformers(w http.ResponseWriter, r *http.Request) {
	s.handleRanking(w, r, s.svc.Investments.TopPerformers)
}

func (s *Server) handleWorstPerformers(w http.ResponseWriter, r *http.Request) {
	s.handleRanking(w, r, s.svc.Investments.WorstPerformers)
}

type rankingFunc func(ctx context.Context, userID uuid.UUID, limit int) ([]core.InvestmentView, error)

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request, rank rankingFunc) {
	q := NewQueryParser(r)
	limit := q.Int("limit", analytics.DefaultRankingLimit, 1, MaxRankingLimit)
	if err := q.Err(); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	views, err := rank(ctx, currentUser(r), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, views)
}

func (s *Server) handleMaturingSoon(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	days := q.Int("days", DefaultDays, MinMaturityDays, MaxMaturityDays)
	if err := q.Err(); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	views, err := s.svc.Investments.MaturingSoon(ctx, currentUser(r), days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, views)
}

func (s *Server) handlePlatformSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	totals, err := s.svc.Investments.PlatformSummary(ctx, currentUser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, totals)
}

// handleTrends validates "days" but the timeline always covers every
// holding's purchase date.
func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParser(r)
	q.Int("days", DefaultDays, MinTrendDays, MaxTrendDays)
	if err := q.Err(); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	trends, err := s.svc.Investments.Trends(ctx, currentUser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, trends)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r)
	defer cancel()
	stats, err := s.svc.Investments.Statistics(ctx, currentUser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, stats)
}
