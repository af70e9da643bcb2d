package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"budgetbee/internal/core"
)

type fakeStore struct {
	expenses  []core.Expense
	budgets   []core.Budget
	err       error
	lastLimit int
	calls     int
}

func (f *fakeStore) RecentExpenses(_ context.Context, _ string, limit int) ([]core.Expense, error) {
	f.calls++
	f.lastLimit = limit
	return f.expenses, f.err
}

func (f *fakeStore) ListBudgets(context.Context, string) ([]core.Budget, error) {
	return f.budgets, nil
}

type fakeSummarizer struct {
	reply  string
	err    error
	calls  int
	system string
	prompt string
}

func (f *fakeSummarizer) Complete(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	f.system, f.prompt = system, prompt
	return f.reply, f.err
}

func TestAnalyzeUnauthorized(t *testing.T) {
	store := &fakeStore{}
	sum := &fakeSummarizer{}
	_, err := NewService(store, sum, nil).Analyze(context.Background(), "  ")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if store.calls != 0 || sum.calls != 0 {
		t.Fatalf("nothing should run before identity is established")
	}
}

func TestAnalyzeEmptyHistory(t *testing.T) {
	sum := &fakeSummarizer{}
	got, err := NewService(&fakeStore{}, sum, nil).Analyze(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.calls != 0 {
		t.Fatalf("summarizer must not be called for an empty history")
	}
	if got.Statistics != nil || got.SpendingPatterns != Placeholder().SpendingPatterns {
		t.Fatalf("expected placeholder, got %+v", got)
	}
}

func TestAnalyzeHappyPath(t *testing.T) {
	store := &fakeStore{
		expenses: []core.Expense{exp("a", 1000, core.Food, 3), exp("b", 1000, core.Food, 2), exp("c", 10000, core.Bills, 1)},
		budgets:  []core.Budget{{Category: core.Food, Limit: core.Money{Cents: 5000}, Spent: core.Money{Cents: 2000}}},
	}
	sum := &fakeSummarizer{reply: "```json\n{\"spending_patterns\":\"steady\",\"recommendations\":[\"x\"],\"tax_insights\":\"none\"}\n```"}

	got, err := NewService(store, sum, nil).Analyze(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lastLimit != 100 {
		t.Fatalf("expected 100 expense cap, got %d", store.lastLimit)
	}
	if sum.calls != 1 || sum.system != SystemInstruction {
		t.Fatalf("summarizer calls=%d system=%q", sum.calls, sum.system)
	}
	if !strings.Contains(sum.prompt, "- Food: $20.00/$50.00") {
		t.Fatalf("prompt missing budget line:\n%s", sum.prompt)
	}
	if got.SpendingPatterns != "steady" || got.Statistics == nil || got.Statistics.TotalSpent.Cents != 12000 {
		t.Fatalf("unexpected result %+v", got)
	}
	if len(got.FraudAlerts) != 0 {
		t.Fatalf("100 is not above 3x40, got %+v", got.FraudAlerts)
	}
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	store := &fakeStore{expenses: []core.Expense{exp("a", 1000, core.Food, 1)}}
	sum := &fakeSummarizer{err: errors.New("status 502")}
	_, err := NewService(store, sum, nil).Analyze(context.Background(), "user-1")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestAnalyzeStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("disk gone")}
	_, err := NewService(store, &fakeSummarizer{}, nil).Analyze(context.Background(), "user-1")
	if err == nil || errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected a plain internal error, got %v", err)
	}
}
