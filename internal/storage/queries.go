package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wealthtrack/internal/core"
)

// timestampLayout is fixed-width so that stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const (
	userColumns       = `id, email, full_name, password_hash, is_active, created_at`
	expenseColumns    = `id, user_id, title, amount, category, date, payment_method, notes, created_at, updated_at`
	investmentColumns = `id, user_id, asset_type, asset_name, symbol, quantity, purchase_price, current_price,
		purchase_date, maturity_date, platform, interest_rate, notes, created_at, updated_at`

	insertUser = `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

	insertExpense = `INSERT INTO expenses (` + expenseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	updateExpense = `UPDATE expenses SET title = ?, amount = ?, category = ?, date = ?, payment_method = ?,
		notes = ?, updated_at = ? WHERE id = ? AND user_id = ?`
	deleteExpense = `DELETE FROM expenses WHERE id = ? AND user_id = ?`
	expenseOrder  = ` ORDER BY date DESC, created_at DESC, id`

	insertInvestment = `INSERT INTO investments (` + investmentColumns + `, platform_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	updateInvestment = `UPDATE investments SET asset_type = ?, asset_name = ?, symbol = ?, quantity = ?,
		purchase_price = ?, current_price = ?, purchase_date = ?, maturity_date = ?, platform = ?,
		platform_key = ?, interest_rate = ?, notes = ?, updated_at = ? WHERE id = ? AND user_id = ?`
	deleteInvestment = `DELETE FROM investments WHERE id = ? AND user_id = ?`
	investmentOrder  = ` ORDER BY purchase_date DESC, id`
)

type scanner interface {
	Scan(dest ...any) error
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func nullableDate(d *core.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullableDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func scanUser(row scanner) (core.User, error) {
	var (
		u           core.User
		id, created string
		active      int
	)
	if err := row.Scan(&id, &u.Email, &u.FullName, &u.PasswordHash, &active, &created); err != nil {
		return core.User{}, err
	}
	var err error
	if u.ID, err = uuid.Parse(id); err != nil {
		return core.User{}, fmt.Errorf("parse user id: %w", err)
	}
	if u.CreatedAt, err = parseTimestamp(created); err != nil {
		return core.User{}, fmt.Errorf("parse created_at: %w", err)
	}
	u.IsActive = active != 0
	return u, nil
}

func scanExpense(row scanner) (core.Expense, error) {
	var (
		e                                  core.Expense
		id, userID, amount, category, date string
		created, updated                   string
	)
	err := row.Scan(&id, &userID, &e.Title, &amount, &category, &date,
		&e.PaymentMethod, &e.Notes, &created, &updated)
	if err != nil {
		return core.Expense{}, err
	}

	if e.ID, err = uuid.Parse(id); err != nil {
		return core.Expense{}, fmt.Errorf("parse expense id: %w", err)
	}
	if e.UserID, err = uuid.Parse(userID); err != nil {
		return core.Expense{}, fmt.Errorf("parse user id: %w", err)
	}
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Expense{}, fmt.Errorf("parse amount: %w", err)
	}
	if e.Date, err = core.ParseDate(date); err != nil {
		return core.Expense{}, fmt.Errorf("parse date: %w", err)
	}
	if e.CreatedAt, err = parseTimestamp(created); err != nil {
		return core.Expense{}, fmt.Errorf("parse created_at: %w", err)
	}
	if e.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return core.Expense{}, fmt.Errorf("parse updated_at: %w", err)
	}
	e.Category = core.Category(category)
	return e, nil
}

func scanInvestment(row scanner) (core.Investment, error) {
	var (
		i                                core.Investment
		id, userID, assetType            string
		quantity, purchasePrice, current string
		purchaseDate, created, updated   string
		maturity, interest               sql.NullString
	)
	err := row.Scan(&id, &userID, &assetType, &i.AssetName, &i.Symbol, &quantity, &purchasePrice,
		&current, &purchaseDate, &maturity, &i.Platform, &interest, &i.Notes, &created, &updated)
	if err != nil {
		return core.Investment{}, err
	}

	if i.ID, err = uuid.Parse(id); err != nil {
		return core.Investment{}, fmt.Errorf("parse investment id: %w", err)
	}
	if i.UserID, err = uuid.Parse(userID); err != nil {
		return core.Investment{}, fmt.Errorf("parse user id: %w", err)
	}
	for _, f := range []struct {
		dst  *decimal.Decimal
		src  string
		name string
	}{
		{&i.Quantity, quantity, "quantity"},
		{&i.PurchasePrice, purchasePrice, "purchase_price"},
		{&i.CurrentPrice, current, "current_price"},
	} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return core.Investment{}, fmt.Errorf("parse %s: %w", f.name, err)
		}
	}
	if i.PurchaseDate, err = core.ParseDate(purchaseDate); err != nil {
		return core.Investment{}, fmt.Errorf("parse purchase_date: %w", err)
	}
	if maturity.Valid && maturity.String != "" {
		d, err := core.ParseDate(maturity.String)
		if err != nil {
			return core.Investment{}, fmt.Errorf("parse maturity_date: %w", err)
		}
		i.MaturityDate = &d
	}
	if interest.Valid && interest.String != "" {
		r, err := decimal.NewFromString(interest.String)
		if err != nil {
			return core.Investment{}, fmt.Errorf("parse interest_rate: %w", err)
		}
		i.InterestRate = &r
	}
	if i.CreatedAt, err = parseTimestamp(created); err != nil {
		return core.Investment{}, fmt.Errorf("parse created_at: %w", err)
	}
	if i.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return core.Investment{}, fmt.Errorf("parse updated_at: %w", err)
	}
	i.AssetType = core.AssetType(assetType)
	return i, nil
}

// expenseWhere renders the filter as a WHERE clause for the expenses table.
func expenseWhere(userID uuid.UUID, f core.ExpenseFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID.String()}
	if f.Category != nil {
		clauses = append(clauses, "category = ?")
		args = append(args, string(*f.Category))
	}
	if f.Start != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.Start.String())
	}
	if f.End != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.End.String())
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func investmentWhere(userID uuid.UUID, f core.InvestmentFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID.String()}
	if f.AssetType != nil {
		clauses = append(clauses, "asset_type = ?")
		args = append(args, string(*f.AssetType))
	}
	if p := core.PlatformKey(f.Platform); p != "" {
		clauses = append(clauses, "platform_key = ?")
		args = append(args, p)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// limitClause renders skip/limit. A non-positive limit means no limit,
// which SQLite expresses as LIMIT -1.
func limitClause(skip, limit int) (string, []any) {
	if limit <= 0 {
		limit = -1
	}
	if skip < 0 {
		skip = 0
	}
	return " LIMIT ? OFFSET ?", []any{limit, skip}
}
