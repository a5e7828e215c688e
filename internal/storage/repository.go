// Package storage persists periods, categories and budgets in SQLite or
// Postgres through database/sql.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"budgetflow/internal/core"
	"budgetflow/internal/log"
)

// Repository implements source.Store on top of a SQL database.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	logger  *log.Logger
}

// OpenSQLite opens (creating if needed) the database file at dbPath and
// applies migrations.
func OpenSQLite(dbPath string, logger *log.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	return open(SQLite, dsn, logger)
}

// OpenPostgres connects to databaseURL and applies migrations.
func OpenPostgres(databaseURL string, logger *log.Logger) (*Repository, error) {
	repo, err := open(Postgres, databaseURL, logger)
	if err != nil {
		return nil, err
	}
	repo.db.SetMaxOpenConns(25)
	repo.db.SetMaxIdleConns(5)
	return repo, nil
}

func open(d Dialect, dsn string, logger *log.Logger) (*Repository, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.Name, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(d, dsn); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{
		db:      db,
		dialect: d,
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) GetPeriod(ctx context.Context, id string) (core.Period, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(
		`SELECT id, name, month, year FROM periods WHERE id = ?`), id)

	p, err := scanPeriod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Period{}, fmt.Errorf("period %q: %w", id, core.ErrPeriodNotFound)
	}
	if err != nil {
		return core.Period{}, fmt.Errorf("get period %q: %w", id, err)
	}
	return p, nil
}

// ListPeriods returns periods newest first.
func (r *Repository) ListPeriods(ctx context.Context) ([]core.Period, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, month, year FROM periods ORDER BY year DESC, month DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	out := make([]core.Period, 0)
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(recurrence_frequency, ''), recurrence_default_day,
		       COALESCE(recurrence_step_days, 0), COALESCE(recurrence_count, 0)
		FROM categories
		ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		var (
			c   core.Category
			day sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Frequency, &day, &c.StepDays, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.DefaultDay = nullIntPtr(day)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListPeriodBudgets returns the period's budgets joined with category and
// period, ordered by default date then id. Rows without a default date sort
// first.
func (r *Repository) ListPeriodBudgets(ctx context.Context, periodID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`
		SELECT b.id, b.period_id, b.category_id, c.name,
		       b.expected_amount, b.payment_method, b.default_date,
		       COALESCE(c.recurrence_frequency, ''), c.recurrence_default_day,
		       COALESCE(c.recurrence_step_days, 0), COALESCE(c.recurrence_count, 0),
		       p.month, p.year
		FROM budgets b
		JOIN categories c ON c.id = b.category_id
		JOIN periods p ON p.id = b.period_id
		WHERE b.period_id = ?
		ORDER BY COALESCE(b.default_date, ''), b.id`), periodID)
	if err != nil {
		return nil, fmt.Errorf("list budgets for period %q: %w", periodID, err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		var (
			b           core.Budget
			amount      decimal.Decimal
			method      string
			defaultDate sql.NullString
			categoryDay sql.NullInt64
			month       int
		)
		if err := rows.Scan(
			&b.ID, &b.PeriodID, &b.CategoryID, &b.CategoryName,
			&amount, &method, &defaultDate,
			&b.Frequency, &categoryDay, &b.CustomStepDays, &b.CustomCount,
			&month, &b.PeriodYear,
		); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}

		// Negative amounts are kept so that expansion can report them.
		b.Total = core.Money{Cents: amount.Shift(2).Round(0).IntPart()}
		b.PaymentMethod = core.PaymentMethod(strings.ToLower(method))
		b.CategoryDefaultDay = nullIntPtr(categoryDay)
		b.PeriodMonth = time.Month(month + 1)
		if defaultDate.Valid && defaultDate.String != "" {
			d, err := core.ParseDate(defaultDate.String)
			if err != nil {
				r.logger.WarnContext(ctx, "Ignoring unparsable budget default date",
					log.FieldBudgetID, b.ID,
					"default_date", defaultDate.String,
					log.FieldError, err)
			} else {
				b.DefaultDate = d
			}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) CreatePeriod(ctx context.Context, p core.Period) (core.Period, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := p.Validate(); err != nil {
		return core.Period{}, err
	}

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`INSERT INTO periods (id, name, month, year) VALUES (?, ?, ?, ?)`),
		p.ID, p.Name, int(p.Month)-1, p.Year)
	if err != nil {
		return core.Period{}, fmt.Errorf("create period: %w", err)
	}

	r.logger.InfoContext(ctx, "Period created",
		log.FieldPeriodID, p.ID,
		log.FieldOperation, log.OpCreate)
	return p, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	var day sql.NullInt64
	if c.DefaultDay != nil {
		day = sql.NullInt64{Int64: int64(*c.DefaultDay), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO categories
		    (id, name, recurrence_frequency, recurrence_default_day, recurrence_step_days, recurrence_count)
		VALUES (?, ?, ?, ?, ?, ?)`),
		c.ID, c.Name, nullString(c.Frequency), day, c.StepDays, c.Count)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	r.logger.InfoContext(ctx, "Category created",
		log.FieldCategoryID, c.ID,
		log.FieldOperation, log.OpCreate)
	return c, nil
}

// CreateBudget inserts a budget after checking its period and category exist.
func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Budget{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, r.dialect.Rebind(`SELECT 1 FROM periods WHERE id = ?`), b.PeriodID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("period %q: %w", b.PeriodID, core.ErrPeriodNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("check period: %w", err)
	}
	err = tx.QueryRowContext(ctx, r.dialect.Rebind(`SELECT 1 FROM categories WHERE id = ?`), b.CategoryID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("category %q not found", b.CategoryID)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("check category: %w", err)
	}

	_, err = tx.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO budgets (id, period_id, category_id, expected_amount, payment_method, default_date)
		VALUES (?, ?, ?, ?, ?, ?)`),
		b.ID, b.PeriodID, b.CategoryID, b.Total.String(), string(b.PaymentMethod), nullString(b.DefaultDate.String()))
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Budget{}, fmt.Errorf("commit budget: %w", err)
	}

	r.logger.InfoContext(ctx, "Budget created",
		log.NewFields().
			WithBudget(b.ID, b.CategoryID, b.Total.Cents).
			WithPeriod(b.PeriodID, "").
			WithOperation(log.OpCreate).
			ToSlice()...)
	return b, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPeriod(s scanner) (core.Period, error) {
	var (
		p     core.Period
		month int
	)
	if err := s.Scan(&p.ID, &p.Name, &month, &p.Year); err != nil {
		return core.Period{}, err
	}
	p.Month = time.Month(month + 1)
	return p, nil
}

func nullIntPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
