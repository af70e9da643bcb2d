package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"budgetbee/internal/analysis"
	"budgetbee/internal/core"
	"budgetbee/internal/services"
	"budgetbee/internal/storage"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		query   string
		want    MonthParams
		wantErr bool
	}{
		{"", MonthParams{2025, 3}, false},
		{"year=2024&month=12", MonthParams{2024, 12}, false},
		{"month=1", MonthParams{2025, 1}, false},
		{"month=0", MonthParams{}, true},
		{"month=abc", MonthParams{}, true},
		{"year=99", MonthParams{}, true},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		got, err := ParseMonthParams(q, now)
		if tt.wantErr {
			if !errors.Is(err, services.ErrValidation) {
				t.Errorf("%q: expected validation error, got %v", tt.query, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: got %+v, %v", tt.query, got, err)
		}
	}
}

func TestParseLimit(t *testing.T) {
	for query, want := range map[string]int{
		"":           50,
		"limit=10":   10,
		"limit=0":    50,
		"limit=-3":   50,
		"limit=9999": 500,
		"limit=x":    50,
	} {
		q, _ := url.ParseQuery(query)
		if got := ParseLimit(q, 50, 500); got != want {
			t.Errorf("%q: got %d, want %d", query, got, want)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Lunch\x00 with\tfriends\x07 "); got != "Lunch with\tfriends" {
		t.Fatalf("got %q", got)
	}
}

func TestExpenseInputToExpense(t *testing.T) {
	now := time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)
	e, err := expenseInput{Title: " Coffee ", Amount: core.Money{Cents: 350}, Category: "ENTERTAINMENT"}.toExpense(now)
	if err != nil {
		t.Fatal(err)
	}
	if e.Title != "Coffee" || e.Category != core.Entertainment || e.Date.String() != "2025-06-15" {
		t.Fatalf("unexpected %+v", e)
	}
	if _, err := (expenseInput{Category: "Groceries"}).toExpense(now); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBudgetInputDefaults(t *testing.T) {
	b, err := budgetInput{Category: "food", Limit: core.Money{Cents: 100}}.toBudget()
	if err != nil {
		t.Fatal(err)
	}
	if b.Period != core.Monthly || !b.Active {
		t.Fatalf("defaults not applied: %+v", b)
	}
	off := false
	b, _ = budgetInput{Category: "food", Active: &off}.toBudget()
	if b.Active {
		t.Fatal("explicit is_active=false ignored")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		{fmt.Errorf("%w: bad", services.ErrValidation), http.StatusBadRequest, "validation failed: bad"},
		{analysis.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
		{fmt.Errorf("get: %w", storage.ErrNotFound), http.StatusNotFound, "Not found"},
		{storage.ErrConflict, http.StatusConflict, msgConflict},
		{fmt.Errorf("%w: timeout", analysis.ErrUpstreamUnavailable), http.StatusInternalServerError, "AI service unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "fallback"},
	}
	for _, tt := range tests {
		status, msg, _ := statusFor(tt.err, "fallback")
		if status != tt.wantStatus || msg != tt.wantMsg {
			t.Errorf("%v: got %d %q, want %d %q", tt.err, status, msg, tt.wantStatus, tt.wantMsg)
		}
	}
}
