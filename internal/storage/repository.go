package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wealthtrack/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements Store on a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = core.NormalizeEmail(u.Email)

	active := 0
	if u.IsActive {
		active = 1
	}
	_, err := r.db.ExecContext(ctx, insertUser,
		u.ID.String(), u.Email, u.FullName, u.PasswordHash, active, formatTimestamp(u.CreatedAt))
	if isUniqueViolation(err) {
		return core.User{}, fmt.Errorf("email %s already registered: %w", u.Email, core.ErrConflict)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User saved to SQLite", "user_id", u.ID)
	return u, nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, core.NormalizeEmail(email))
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, notFound(err, "user")
	}
	return u, nil
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id uuid.UUID) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String())
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, notFound(err, "user")
	}
	return u, nil
}

// Expenses

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, insertExpense,
		e.ID.String(), e.UserID.String(), e.Title, e.Amount.String(), string(e.Category), e.Date.String(),
		e.PaymentMethod, e.Notes, formatTimestamp(e.CreatedAt), formatTimestamp(e.UpdatedAt))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"user_id", e.UserID,
		"amount", e.Amount.String(),
		"date", e.Date.String())
	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id uuid.UUID) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, notFound(err, "expense")
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx, updateExpense,
		e.Title, e.Amount.String(), string(e.Category), e.Date.String(), e.PaymentMethod, e.Notes,
		formatTimestamp(e.UpdatedAt), e.ID.String(), e.UserID.String())
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if err := expectOneRow(res, "expense"); err != nil {
		return core.Expense{}, err
	}
	return r.GetExpense(ctx, e.UserID, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, deleteExpense, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectOneRow(res, "expense")
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID uuid.UUID, f core.ExpenseFilter) (core.ExpensePage, error) {
	where, args := expenseWhere(userID, f)

	// Amounts are TEXT, so totals are summed as decimals rather than by SQL SUM.
	amounts, err := r.db.QueryContext(ctx, `SELECT amount FROM expenses`+where, args...)
	if err != nil {
		return core.ExpensePage{}, fmt.Errorf("total expenses: %w", err)
	}
	page := core.ExpensePage{TotalAmount: decimal.Zero}
	for amounts.Next() {
		var raw string
		if err := amounts.Scan(&raw); err != nil {
			amounts.Close()
			return core.ExpensePage{}, fmt.Errorf("scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			amounts.Close()
			return core.ExpensePage{}, fmt.Errorf("parse amount: %w", err)
		}
		page.TotalAmount = page.TotalAmount.Add(amount)
		page.TotalCount++
	}
	if err := amounts.Err(); err != nil {
		amounts.Close()
		return core.ExpensePage{}, fmt.Errorf("total expenses: %w", err)
	}
	amounts.Close()

	limit, limitArgs := limitClause(f.Skip, f.Limit)
	page.Expenses, err = r.queryExpenses(ctx, `SELECT `+expenseColumns+` FROM expenses`+where+expenseOrder+limit,
		append(args, limitArgs...)...)
	if err != nil {
		return core.ExpensePage{}, err
	}
	return page, nil
}

func (r *SQLiteRepository) AllExpenses(ctx context.Context, userID uuid.UUID) ([]core.Expense, error) {
	return r.queryExpenses(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE user_id = ?`+expenseOrder, userID.String())
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

// Investments

func (r *SQLiteRepository) CreateInvestment(ctx context.Context, i core.Investment) (core.Investment, error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, insertInvestment,
		i.ID.String(), i.UserID.String(), string(i.AssetType), i.AssetName, i.Symbol,
		i.Quantity.String(), i.PurchasePrice.String(), i.CurrentPrice.String(),
		i.PurchaseDate.String(), nullableDate(i.MaturityDate), i.Platform, nullableDecimal(i.InterestRate),
		i.Notes, formatTimestamp(i.CreatedAt), formatTimestamp(i.UpdatedAt), core.PlatformKey(i.Platform))
	if err != nil {
		return core.Investment{}, fmt.Errorf("create investment: %w", err)
	}

	slog.DebugContext(ctx, "Investment saved to SQLite",
		"id", i.ID,
		"user_id", i.UserID,
		"asset_type", i.AssetType)
	return i, nil
}

func (r *SQLiteRepository) GetInvestment(ctx context.Context, userID, id uuid.UUID) (core.Investment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE id = ? AND user_id = ?`, id.String(), userID.String())
	i, err := scanInvestment(row)
	if err != nil {
		return core.Investment{}, notFound(err, "investment")
	}
	return i, nil
}

func (r *SQLiteRepository) UpdateInvestment(ctx context.Context, i core.Investment) (core.Investment, error) {
	res, err := r.db.ExecContext(ctx, updateInvestment,
		string(i.AssetType), i.AssetName, i.Symbol, i.Quantity.String(), i.PurchasePrice.String(),
		i.CurrentPrice.String(), i.PurchaseDate.String(), nullableDate(i.MaturityDate), i.Platform,
		core.PlatformKey(i.Platform), nullableDecimal(i.InterestRate), i.Notes, formatTimestamp(i.UpdatedAt), i.ID.String(), i.UserID.String())
	if err != nil {
		return core.Investment{}, fmt.Errorf("update investment: %w", err)
	}
	if err := expectOneRow(res, "investment"); err != nil {
		return core.Investment{}, err
	}
	return r.GetInvestment(ctx, i.UserID, i.ID)
}

func (r *SQLiteRepository) DeleteInvestment(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, deleteInvestment, id.String(), userID.String())
	if err != nil {
		return fmt.Errorf("delete investment: %w", err)
	}
	return expectOneRow(res, "investment")
}

func (r *SQLiteRepository) ListInvestments(ctx context.Context, userID uuid.UUID, f core.InvestmentFilter) (core.InvestmentPage, error) {
	where, args := investmentWhere(userID, f)

	var page core.InvestmentPage
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM investments`+where, args...).Scan(&page.TotalCount); err != nil {
		return core.InvestmentPage{}, fmt.Errorf("count investments: %w", err)
	}

	limit, limitArgs := limitClause(f.Skip, f.Limit)
	invs, err := r.queryInvestments(ctx, `SELECT `+investmentColumns+` FROM investments`+where+investmentOrder+limit,
		append(args, limitArgs...)...)
	if err != nil {
		return core.InvestmentPage{}, err
	}
	page.Investments = invs
	return page, nil
}

func (r *SQLiteRepository) AllInvestments(ctx context.Context, userID uuid.UUID) ([]core.Investment, error) {
	return r.queryInvestments(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE user_id = ?`+investmentOrder, userID.String())
}

func (r *SQLiteRepository) queryInvestments(ctx context.Context, query string, args ...any) ([]core.Investment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	out := []core.Investment{}
	for rows.Next() {
		i, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	return out, nil
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}
