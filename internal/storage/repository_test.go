package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"budgetbee/internal/core"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "budgetbee.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func mustCreateExpense(t *testing.T, repo *SQLiteRepository, id, user string, cents int64, cat core.Category, date core.Date) {
	t.Helper()
	err := repo.CreateExpense(context.Background(), core.Expense{
		ID: id, UserID: user, Title: "t-" + id, Amount: core.Money{Cents: cents}, Category: cat, Date: date,
	})
	if err != nil {
		t.Fatalf("CreateExpense(%s): %v", id, err)
	}
}

func TestRecentExpensesOrderingAndLimit(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	mustCreateExpense(t, repo, "e1", "u1", 1000, core.Food, core.NewDate(2025, 1, 5))
	mustCreateExpense(t, repo, "e2", "u1", 2000, core.Bills, core.NewDate(2025, 3, 1))
	mustCreateExpense(t, repo, "e3", "u1", 3000, core.Food, core.NewDate(2025, 2, 10))
	mustCreateExpense(t, repo, "other", "u2", 9999, core.Food, core.NewDate(2025, 4, 1))

	got, err := repo.RecentExpenses(ctx, "u1", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "e2" || got[1].ID != "e3" || got[2].ID != "e1" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Date.String() != "2025-03-01" || got[0].Category != core.Bills {
		t.Fatalf("fields not round-tripped: %+v", got[0])
	}

	limited, err := repo.RecentExpenses(ctx, "u1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit not applied, got %d", len(limited))
	}
}

func TestExpenseUpdateDeleteScopedToOwner(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	mustCreateExpense(t, repo, "e1", "u1", 1000, core.Food, core.NewDate(2025, 1, 5))

	e, err := repo.GetExpense(ctx, "u1", "e1")
	if err != nil {
		t.Fatal(err)
	}
	e.Title = "Groceries"
	e.PaymentMethod = "card"
	if err := repo.UpdateExpense(ctx, e); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.GetExpense(ctx, "u1", "e1")
	if got.Title != "Groceries" || got.PaymentMethod != "card" {
		t.Fatalf("update not applied: %+v", got)
	}

	e.UserID = "intruder"
	if err := repo.UpdateExpense(ctx, e); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign update, got %v", err)
	}
	if err := repo.DeleteExpense(ctx, "intruder", "e1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}
	if err := repo.DeleteExpense(ctx, "u1", "e1"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetExpense(ctx, "u1", "e1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestBudgetSpentIsDerivedOnRead(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	b := core.Budget{ID: "b1", UserID: "u1", Category: core.Food, Limit: core.Money{Cents: 10000}, Period: core.Monthly, AlertThreshold: 80, Active: true}
	if err := repo.CreateBudget(ctx, b); err != nil {
		t.Fatal(err)
	}
	dup := b
	dup.ID = "b2"
	if err := repo.CreateBudget(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate category, got %v", err)
	}

	mustCreateExpense(t, repo, "e1", "u1", 2500, core.Food, core.NewDate(2025, 1, 5))
	mustCreateExpense(t, repo, "e2", "u1", 1500, core.Food, core.NewDate(2025, 1, 6))
	mustCreateExpense(t, repo, "e3", "u1", 9000, core.Bills, core.NewDate(2025, 1, 6))
	mustCreateExpense(t, repo, "e4", "u2", 9000, core.Food, core.NewDate(2025, 1, 6))

	budgets, err := repo.ListBudgets(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(budgets) != 1 || budgets[0].Spent.Cents != 4000 || !budgets[0].Active {
		t.Fatalf("unexpected budgets %+v", budgets)
	}

	if err := repo.DeleteExpense(ctx, "u1", "e1"); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetBudget(ctx, "u1", "b1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Spent.Cents != 1500 {
		t.Fatalf("spent should follow expenses, got %d", got.Spent.Cents)
	}

	owners, err := repo.BudgetOwners(ctx)
	if err != nil || len(owners) != 1 || owners[0] != "u1" {
		t.Fatalf("owners = %v, %v", owners, err)
	}
}

func TestBudgetAlertsLifecycle(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	b := core.Budget{ID: "b1", UserID: "u1", Category: core.Food, Limit: core.Money{Cents: 10000}, Period: core.Monthly, AlertThreshold: 80, Active: true}
	if err := repo.CreateBudget(ctx, b); err != nil {
		t.Fatal(err)
	}

	if err := repo.RecordAlert(ctx, "b1", core.AlertWarning, core.Money{Cents: 8500}); err != nil {
		t.Fatal(err)
	}
	if err := repo.RecordAlert(ctx, "b1", core.AlertWarning, core.Money{Cents: 8600}); err != nil {
		t.Fatalf("re-recording should upsert: %v", err)
	}
	levels, err := repo.AlertLevels(ctx, "b1")
	if err != nil || len(levels) != 1 || levels[0] != core.AlertWarning {
		t.Fatalf("levels = %v, %v", levels, err)
	}
	if err := repo.ClearAlert(ctx, "b1", core.AlertWarning); err != nil {
		t.Fatal(err)
	}
	if levels, _ := repo.AlertLevels(ctx, "b1"); len(levels) != 0 {
		t.Fatalf("expected no levels, got %v", levels)
	}

	if err := repo.RecordAlert(ctx, "b1", core.AlertExceeded, core.Money{Cents: 12000}); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteBudget(ctx, "u1", "b1"); err != nil {
		t.Fatal(err)
	}
	if levels, _ := repo.AlertLevels(ctx, "b1"); len(levels) != 0 {
		t.Fatalf("alerts should go with the budget, got %v", levels)
	}
}

func TestMonthOverview(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	mustCreateExpense(t, repo, "e1", "u1", 1000, core.Food, core.NewDate(2025, 2, 1))
	mustCreateExpense(t, repo, "e2", "u1", 4000, core.Bills, core.NewDate(2025, 2, 28))
	mustCreateExpense(t, repo, "e3", "u1", 500, core.Food, core.NewDate(2025, 2, 14))
	mustCreateExpense(t, repo, "e4", "u1", 7000, core.Food, core.NewDate(2025, 3, 1))

	ov, err := repo.MonthOverview(ctx, "u1", 2025, 2)
	if err != nil {
		t.Fatal(err)
	}
	if ov.Total.Cents != 5500 || ov.Count != 3 || len(ov.ByCategory) != 2 {
		t.Fatalf("unexpected overview %+v", ov)
	}
	if ov.ByCategory[0].Category != core.Bills || ov.ByCategory[1].Amount.Cents != 1500 {
		t.Fatalf("unexpected breakdown %+v", ov.ByCategory)
	}

	empty, err := repo.MonthOverview(ctx, "u1", 2024, 12)
	if err != nil || empty.Total.Cents != 0 || empty.ByCategory == nil {
		t.Fatalf("empty month = %+v, %v", empty, err)
	}
}

func TestProfiles(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	p, err := repo.GetProfile(ctx, "u1")
	if err != nil || p.Currency != "USD" {
		t.Fatalf("default profile = %+v, %v", p, err)
	}
	if err := repo.TouchProfile(ctx, "u1", "me@example.com"); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetCurrency(ctx, "u1", "EUR"); err != nil {
		t.Fatal(err)
	}
	if err := repo.TouchProfile(ctx, "u1", ""); err != nil {
		t.Fatal(err)
	}
	p, err = repo.GetProfile(ctx, "u1")
	if err != nil || p.Email != "me@example.com" || p.Currency != "EUR" {
		t.Fatalf("profile = %+v, %v", p, err)
	}
}

func TestMigrationVersionAndRollback(t *testing.T) {
	repo, path := newTestRepo(t)
	repo.Close()

	v, dirty, err := MigrationVersion(path)
	if err != nil || dirty || v != 2 {
		t.Fatalf("version = %d dirty=%v err=%v", v, dirty, err)
	}
	if err := RollbackMigrations(path, 1); err != nil {
		t.Fatal(err)
	}
	if v, _, _ := MigrationVersion(path); v != 1 {
		t.Fatalf("expected version 1 after rollback, got %d", v)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatal(err)
	}
}
