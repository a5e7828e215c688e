// Package source defines the ports through which budget data is read and written.
//
// Implementations live in source/memory (seeded from a TOML file) and in
// storage (SQLite and Postgres through database/sql).
package source

import (
	"context"

	"budgetflow/internal/core"
)

// PeriodReader looks up accounting periods. GetPeriod wraps
// core.ErrPeriodNotFound when the id is unknown.
type PeriodReader interface {
	GetPeriod(ctx context.Context, id string) (core.Period, error)
	ListPeriods(ctx context.Context) ([]core.Period, error)
}

// BudgetLister returns a period's budgets joined with their category policy,
// ordered by effective date ascending.
type BudgetLister interface {
	ListPeriodBudgets(ctx context.Context, periodID string) ([]core.Budget, error)
}

// Writer persists new rows. Budgets reference an existing period and category.
type Writer interface {
	CreatePeriod(ctx context.Context, p core.Period) (core.Period, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
}

// Reader is what the execution service needs.
type Reader interface {
	PeriodReader
	BudgetLister
}

// Store is a full read/write backend.
type Store interface {
	Reader
	Writer
	Ping(ctx context.Context) error
	Close() error
}
