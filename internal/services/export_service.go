package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wealthtrack/internal/analytics"
	"wealthtrack/internal/core"
	"wealthtrack/internal/export"
	"wealthtrack/internal/log"
)

type ExpenseExportSummary struct {
	TotalAmount decimal.Decimal           `json:"total_amount"`
	TotalCount  int                       `json:"total_count"`
	ByCategory  []analytics.CategoryTotal `json:"by_category"`
}

type ExpenseExport struct {
	Summary ExpenseExportSummary `json:"summary"`
	Data    []core.Expense       `json:"data"`
}

type InvestmentExport struct {
	Summary analytics.PortfolioSummary `json:"summary"`
	Data    []core.InvestmentView      `json:"data"`
}

// CompleteExport is every record of a user together with the aggregates
// derived from them.
type CompleteExport struct {
	ExportDate  core.Date           `json:"export_date"`
	ExportedAt  time.Time           `json:"exported_at"`
	UserID      uuid.UUID           `json:"user_id"`
	Expenses    ExpenseExport       `json:"expenses"`
	Investments InvestmentExport    `json:"investments"`
	Dashboard   analytics.Dashboard `json:"dashboard"`
}

type ExportService struct {
	records RecordLoader
	clock   Clock
	logger  *log.Logger
}

func NewExportService(records RecordLoader, clock Clock, logger *log.Logger) *ExportService {
	return &ExportService{
		records: records,
		clock:   clock,
		logger:  orDiscard(logger).WithComponent(log.ComponentExport),
	}
}

func (s *ExportService) ExpensesCSV(ctx context.Context, userID uuid.UUID, w io.Writer) error {
	exps, err := s.records.AllExpenses(ctx, userID)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	if err := export.WriteCSV(w, export.ExpenseHeader, export.ExpenseRows(exps)); err != nil {
		return err
	}
	s.logExport(ctx, userID, "expenses_csv", len(exps))
	return nil
}

func (s *ExportService) InvestmentsCSV(ctx context.Context, userID uuid.UUID, w io.Writer) error {
	invs, err := s.records.AllInvestments(ctx, userID)
	if err != nil {
		return fmt.Errorf("load investments: %w", err)
	}
	if err := export.WriteCSV(w, export.InvestmentHeader, export.InvestmentRows(invs, s.clock.today())); err != nil {
		return err
	}
	s.logExport(ctx, userID, "investments_csv", len(invs))
	return nil
}

// Workbook writes an XLSX file with one sheet for expenses and one for
// investments.
func (s *ExportService) Workbook(ctx context.Context, userID uuid.UUID, w io.Writer) error {
	exps, err := s.records.AllExpenses(ctx, userID)
	if err != nil {
		return fmt.Errorf("load expenses: %w", err)
	}
	invs, err := s.records.AllInvestments(ctx, userID)
	if err != nil {
		return fmt.Errorf("load investments: %w", err)
	}

	err = export.WriteXLSX(w,
		export.Sheet{Name: export.ExpensesSheet, Header: export.ExpenseHeader, Rows: export.ExpenseRows(exps)},
		export.Sheet{Name: export.InvestmentsSheet, Header: export.InvestmentHeader, Rows: export.InvestmentRows(invs, s.clock.today())},
	)
	if err != nil {
		return err
	}
	s.logExport(ctx, userID, "xlsx", len(exps)+len(invs))
	return nil
}

func (s *ExportService) Complete(ctx context.Context, userID uuid.UUID) (CompleteExport, error) {
	exps, err := s.records.AllExpenses(ctx, userID)
	if err != nil {
		return CompleteExport{}, fmt.Errorf("load expenses: %w", err)
	}
	invs, err := s.records.AllInvestments(ctx, userID)
	if err != nil {
		return CompleteExport{}, fmt.Errorf("load investments: %w", err)
	}

	if exps == nil {
		exps = []core.Expense{}
	}

	now := s.clock.now()
	today := core.DateOf(now)
	out := CompleteExport{
		ExportDate: today,
		ExportedAt: now,
		UserID:     userID,
		Expenses: ExpenseExport{
			Summary: ExpenseExportSummary{
				TotalAmount: analytics.TotalAmount(exps),
				TotalCount:  len(exps),
				ByCategory:  analytics.CategorySummary(exps),
			},
			Data: exps,
		},
		Investments: InvestmentExport{
			Summary: analytics.SummarizePortfolio(invs),
			Data:    core.Views(invs, today),
		},
		Dashboard: analytics.BuildDashboard(exps, invs, today),
	}
	s.logExport(ctx, userID, "complete", len(exps)+len(invs))
	return out, nil
}

func (s *ExportService) logExport(ctx context.Context, userID uuid.UUID, format string, count int) {
	s.logger.InfoContext(ctx, "Export generated",
		log.FieldUserID, userID.String(),
		log.FieldOperation, log.OpExport,
		"format", format,
		log.FieldCount, count)
}
