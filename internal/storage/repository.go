package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"budgetbee/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises writers and keeps per-connection pragmas.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Expenses

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, title, amount_cents, category, date, description, payment_method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Title, e.Amount.Cents, string(e.Category), e.Date.Format(dateLayout),
		nullable(e.Description), nullable(e.PaymentMethod))
	if err != nil {
		return fmt.Errorf("insert expense: %w", classify(err))
	}
	return nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET title = ?, amount_cents = ?, category = ?, date = ?, description = ?, payment_method = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		e.Title, e.Amount.Cents, string(e.Category), e.Date.Format(dateLayout),
		nullable(e.Description), nullable(e.PaymentMethod), e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return expectRow(res)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectRow(res)
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, amount_cents, category, date, description, payment_method
		FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	return e, err
}

// RecentExpenses returns the user's newest expenses, newest date first.
func (r *SQLiteRepository) RecentExpenses(ctx context.Context, userID string, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, amount_cents, category, date, description, payment_method
		FROM expenses
		WHERE user_id = ?
		ORDER BY date DESC, created_at DESC, id
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MonthOverview totals a user's expenses for one calendar month.
func (r *SQLiteRepository) MonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents), COUNT(*)
		FROM expenses
		WHERE user_id = ? AND date >= ? AND date < ?
		GROUP BY category
		ORDER BY SUM(amount_cents) DESC, category`,
		userID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("query month overview: %w", err)
	}
	defer rows.Close()

	ov := core.MonthOverview{Year: year, Month: month, ByCategory: []core.CategoryAmount{}}
	for rows.Next() {
		var (
			cat   string
			cents int64
			n     int
		)
		if err := rows.Scan(&cat, &cents, &n); err != nil {
			return core.MonthOverview{}, fmt.Errorf("scan month overview: %w", err)
		}
		ov.ByCategory = append(ov.ByCategory, core.CategoryAmount{Category: core.Category(cat), Amount: core.Money{Cents: cents}})
		ov.Total.Cents += cents
		ov.Count += n
	}
	return ov, rows.Err()
}

// Budgets

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, category, limit_cents, period_type, alert_threshold, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, string(b.Category), b.Limit.Cents, string(b.Period), b.AlertThreshold, b.Active)
	if err != nil {
		return fmt.Errorf("insert budget: %w", classify(err))
	}
	return nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets
		SET category = ?, limit_cents = ?, period_type = ?, alert_threshold = ?, is_active = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		string(b.Category), b.Limit.Cents, string(b.Period), b.AlertThreshold, b.Active, b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update budget: %w", classify(err))
	}
	return expectRow(res)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if err := expectRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM budget_alerts WHERE budget_id = ?`, id); err != nil {
		return fmt.Errorf("delete budget alerts: %w", err)
	}
	return tx.Commit()
}

const budgetSelect = `
	SELECT b.id, b.user_id, b.category, b.limit_cents, b.period_type, b.alert_threshold, b.is_active,
	       COALESCE((SELECT SUM(e.amount_cents) FROM expenses e
	                 WHERE e.user_id = b.user_id AND e.category = b.category), 0)
	FROM budgets b`

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID, id string) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx, budgetSelect+` WHERE b.id = ? AND b.user_id = ?`, id, userID)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ErrNotFound
	}
	return b, err
}

// ListBudgets returns the user's budgets with Spent summed from their expenses.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, budgetSelect+` WHERE b.user_id = ? ORDER BY b.category`, userID)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BudgetOwners lists users holding at least one active budget.
func (r *SQLiteRepository) BudgetOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM budgets WHERE is_active = 1 ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query budget owners: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan budget owner: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Budget alerts

func (r *SQLiteRepository) AlertLevels(ctx context.Context, budgetID string) ([]core.AlertLevel, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT level FROM budget_alerts WHERE budget_id = ?`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("query alert levels: %w", err)
	}
	defer rows.Close()

	var out []core.AlertLevel
	for rows.Next() {
		var lvl string
		if err := rows.Scan(&lvl); err != nil {
			return nil, fmt.Errorf("scan alert level: %w", err)
		}
		out = append(out, core.AlertLevel(lvl))
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RecordAlert(ctx context.Context, budgetID string, level core.AlertLevel, spent core.Money) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_alerts (budget_id, level, spent_cents) VALUES (?, ?, ?)
		ON CONFLICT (budget_id, level) DO UPDATE SET spent_cents = excluded.spent_cents, sent_at = CURRENT_TIMESTAMP`,
		budgetID, string(level), spent.Cents)
	if err != nil {
		return fmt.Errorf("record alert: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ClearAlert(ctx context.Context, budgetID string, level core.AlertLevel) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM budget_alerts WHERE budget_id = ? AND level = ?`, budgetID, string(level)); err != nil {
		return fmt.Errorf("clear alert: %w", err)
	}
	return nil
}

// Profiles

// TouchProfile records the user's email, creating the profile if needed.
func (r *SQLiteRepository) TouchProfile(ctx context.Context, userID, email string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, email) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
		    email = COALESCE(excluded.email, profiles.email),
		    updated_at = CURRENT_TIMESTAMP`,
		userID, nullable(email))
	if err != nil {
		return fmt.Errorf("touch profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetCurrency(ctx context.Context, userID, currency string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, currency) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET currency = excluded.currency, updated_at = CURRENT_TIMESTAMP`,
		userID, currency)
	if err != nil {
		return fmt.Errorf("set currency: %w", err)
	}
	return nil
}

// GetProfile returns the stored profile, or a USD default when none exists.
func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	p := core.Profile{UserID: userID, Currency: "USD"}
	var email sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT email, currency FROM profiles WHERE user_id = ?`, userID).Scan(&email, &p.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("query profile: %w", err)
	}
	p.Email = email.String
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e                   core.Expense
		cat, date           string
		description, method sql.NullString
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.Title, &e.Amount.Cents, &cat, &date, &description, &method); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %s: %w", e.ID, err)
	}
	e.Category = core.Category(cat)
	e.Date = d
	e.Description = description.String
	e.PaymentMethod = method.String
	return e, nil
}

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b           core.Budget
		cat, period string
	)
	err := s.Scan(&b.ID, &b.UserID, &cat, &b.Limit.Cents, &period, &b.AlertThreshold, &b.Active, &b.Spent.Cents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Budget{}, err
		}
		return core.Budget{}, fmt.Errorf("scan budget: %w", err)
	}
	b.Category = core.Category(cat)
	b.Period = core.PeriodType(period)
	return b, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func classify(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && (se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
