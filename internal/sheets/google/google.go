package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"wealthtrack/internal/core"
	"wealthtrack/internal/export"
	"wealthtrack/internal/log"
	ports "wealthtrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors user records into per-user tabs of a single spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	now           func() time.Time
	logger        *log.Logger
}

// Ensure interface conformance
var _ ports.Mirror = (*Client)(nil)

// LoadCredentials returns the service account JSON, preferring the inline
// value over the file path. GOOGLE_APPLICATION_CREDENTIALS is the last
// fallback.
func LoadCredentials(inlineJSON, file string) ([]byte, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	file = strings.TrimSpace(file)
	if inlineJSON == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inlineJSON != "":
		return []byte(inlineJSON), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, spreadsheetID string, credentialsJSON []byte, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, time.Now, logger), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID string, now func() time.Time, logger *log.Logger) *Client {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		now:           now,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

// MirrorUser makes sure both tabs of the user exist, then clears and
// rewrites each with its header and rows.
func (c *Client) MirrorUser(ctx context.Context, userID uuid.UUID, expenses []core.Expense, investments []core.Investment) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	expensesTab := ports.ExpensesTab(userID)
	investmentsTab := ports.InvestmentsTab(userID)
	if err := c.ensureTabs(ctx, expensesTab, investmentsTab); err != nil {
		return err
	}

	today := core.DateOf(c.now().UTC())
	if err := c.rewriteTab(ctx, expensesTab, export.WithHeader(export.ExpenseHeader, export.ExpenseRows(expenses))); err != nil {
		return err
	}
	if err := c.rewriteTab(ctx, investmentsTab, export.WithHeader(export.InvestmentHeader, export.InvestmentRows(investments, today))); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Mirrored user records",
		log.FieldUserID, userID.String(),
		"expenses", len(expenses),
		"investments", len(investments))
	return nil
}

func (c *Client) ensureTabs(ctx context.Context, tabs ...string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	existing := map[string]bool{}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = true
		}
	}

	var reqs []*gsheet.Request
	for _, tab := range tabs {
		if existing[tab] {
			continue
		}
		reqs = append(reqs, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		})
	}
	if len(reqs) == 0 {
		return nil
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add tabs %v: %w", tabs, err)
	}
	c.logger.InfoContext(ctx, "Created spreadsheet tabs", log.FieldCount, len(reqs))
	return nil
}

func (c *Client) rewriteTab(ctx context.Context, tab string, rows [][]string) error {
	rng := quoteTab(tab)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}

	vr := &gsheet.ValueRange{Values: toValues(rows)}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}
	return nil
}

// quoteTab wraps a tab name for A1 notation.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}
