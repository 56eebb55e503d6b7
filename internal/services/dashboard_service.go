package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"wealthtrack/internal/analytics"
	"wealthtrack/internal/core"
	"wealthtrack/internal/log"
)

// RecordLoader loads every record a user owns.
type RecordLoader interface {
	AllExpenses(ctx context.Context, userID uuid.UUID) ([]core.Expense, error)
	AllInvestments(ctx context.Context, userID uuid.UUID) ([]core.Investment, error)
}

// Overview joins the dashboard and the health score of one user.
type Overview struct {
	Dashboard analytics.Dashboard    `json:"dashboard"`
	Health    analytics.HealthReport `json:"health"`
}

// DashboardService serves the cached per-user aggregates.
type DashboardService struct {
	records    RecordLoader
	aggregates *Aggregates
	policy     analytics.HealthPolicy
	clock      Clock
	logger     *log.Logger
}

func NewDashboardService(records RecordLoader, aggregates *Aggregates, policy analytics.HealthPolicy, clock Clock, logger *log.Logger) *DashboardService {
	return &DashboardService{
		records:    records,
		aggregates: aggregates,
		policy:     policy,
		clock:      clock,
		logger:     orDiscard(logger).WithComponent(log.ComponentDashboard),
	}
}

// load fetches expenses and investments concurrently.
func (s *DashboardService) load(ctx context.Context, userID uuid.UUID) ([]core.Expense, []core.Investment, error) {
	var (
		exps []core.Expense
		invs []core.Investment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		exps, err = s.records.AllExpenses(gctx, userID)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		invs, err = s.records.AllInvestments(gctx, userID)
		if err != nil {
			return fmt.Errorf("load investments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return exps, invs, nil
}

func (s *DashboardService) Dashboard(ctx context.Context, userID uuid.UUID) (analytics.Dashboard, error) {
	var key string
	if s.aggregates != nil && s.aggregates.Dashboards != nil {
		key = s.aggregates.dashboardKey(userID)
		if d, ok := s.aggregates.Dashboards.Get(ctx, key); ok {
			s.logger.DebugContext(ctx, "Dashboard cache hit", log.FieldUserID, userID.String())
			return d, nil
		}
	}

	gen := s.aggregates.generation(userID)
	exps, invs, err := s.load(ctx, userID)
	if err != nil {
		return analytics.Dashboard{}, err
	}
	d := analytics.BuildDashboard(exps, invs, s.clock.today())

	if s.aggregates != nil && s.aggregates.Dashboards != nil &&
		!storeIfCurrent(ctx, s.aggregates, s.aggregates.Dashboards, key, userID, gen, d) {
		s.logger.DebugContext(ctx, "Dashboard not cached, records changed while computing", log.FieldUserID, userID.String())
	}
	return d, nil
}

func (s *DashboardService) Health(ctx context.Context, userID uuid.UUID) (analytics.HealthReport, error) {
	var key string
	if s.aggregates != nil && s.aggregates.Health != nil {
		key = s.aggregates.healthKey(userID)
		if h, ok := s.aggregates.Health.Get(ctx, key); ok {
			s.logger.DebugContext(ctx, "Health score cache hit", log.FieldUserID, userID.String())
			return h, nil
		}
	}

	gen := s.aggregates.generation(userID)
	exps, invs, err := s.load(ctx, userID)
	if err != nil {
		return analytics.HealthReport{}, err
	}
	h := analytics.HealthScore(exps, invs, s.clock.today(), s.policy)

	storeIfCurrent(ctx, s.aggregates, s.aggregates.Health, key, userID, gen, h)
	return h, nil
}

// Overview computes the dashboard and the health score concurrently. Either
// failure fails the whole overview.
func (s *DashboardService) Overview(ctx context.Context, userID uuid.UUID) (Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.Dashboard(gctx, userID)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		out.Dashboard = d
		return nil
	})
	g.Go(func() error {
		h, err := s.Health(gctx, userID)
		if err != nil {
			return fmt.Errorf("health score: %w", err)
		}
		out.Health = h
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Overview failed", log.FieldUserID, userID.String(), log.FieldError, err.Error())
		return Overview{}, err
	}
	return out, nil
}
