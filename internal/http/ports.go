package http

import (
	"context"

	"budgetbee/internal/analysis"
	"budgetbee/internal/auth"
	"budgetbee/internal/core"
)

// Ports the HTTP layer depends on. The concrete services live in
// internal/services, internal/analysis and internal/storage.
type (
	ExpenseService interface {
		ListExpenses(ctx context.Context, userID string, limit int) ([]core.Expense, error)
		GetExpense(ctx context.Context, userID, id string) (core.Expense, error)
		CreateExpense(ctx context.Context, who auth.Identity, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, who auth.Identity, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, who auth.Identity, id string) error
	}

	BudgetService interface {
		ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
		CreateBudget(ctx context.Context, who auth.Identity, b core.Budget) (core.Budget, error)
		UpdateBudget(ctx context.Context, who auth.Identity, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, who auth.Identity, id string) error
	}

	Analyzer interface {
		Analyze(ctx context.Context, userID string) (analysis.SpendingAnalysis, error)
	}

	// OverviewReader returns monthly totals for a user.
	OverviewReader interface {
		MonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error)
	}

	ProfileStore interface {
		GetProfile(ctx context.Context, userID string) (core.Profile, error)
		SetCurrency(ctx context.Context, userID, currency string) error
	}

	// Pinger backs the readiness probe.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
