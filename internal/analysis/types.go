// Package analysis turns a user's expenses and budgets into spending
// statistics, anomaly flags and model-written insights.
package analysis

import (
	"context"
	"errors"

	"budgetbee/internal/core"
)

const (
	// RecentExpenseLimit caps how many of the newest expenses are analysed.
	RecentExpenseLimit = 100
	// AnomalyMultiplier is the multiple of the average above which an expense is flagged.
	AnomalyMultiplier = 3
	// AnomalyReason is attached to every flagged expense.
	AnomalyReason = "Unusually high amount compared to average spending"
	// SystemInstruction accompanies every prompt sent to the summarizer.
	SystemInstruction = "You are a financial analysis expert. Provide detailed, actionable insights in JSON format."
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUpstreamUnavailable = errors.New("AI service unavailable")
)

// Store is the read side of persistence the analysis needs.
type Store interface {
	RecentExpenses(ctx context.Context, userID string, limit int) ([]core.Expense, error)
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
}

// Summarizer turns a prompt into free-form text.
type Summarizer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Statistics are the locally computed facts about an expense list.
type Statistics struct {
	TotalSpent        core.Money                   `json:"total_spent"`
	AvgExpense        core.Money                   `json:"avg_expense"`
	TransactionCount  int                          `json:"transaction_count"`
	CategoryBreakdown map[core.Category]core.Money `json:"category_breakdown"`

	// categories holds breakdown keys in order of first appearance.
	categories []core.Category
}

// FraudAlert flags a single unusually large expense.
type FraudAlert struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Amount core.Money `json:"amount"`
	Date   core.Date  `json:"date"`
	Reason string     `json:"reason"`
}

// Insights are the narrative sections produced by the summarizer.
type Insights struct {
	SpendingPatterns     string
	BudgetAnalysis       string
	Recommendations      []string
	TaxInsights          string
	SavingsOpportunities string
}

// SpendingAnalysis is the response body of an analysis run.
type SpendingAnalysis struct {
	SpendingPatterns     string       `json:"spending_patterns"`
	BudgetAnalysis       string       `json:"budget_analysis,omitempty"`
	Recommendations      []string     `json:"recommendations"`
	TaxInsights          string       `json:"tax_insights"`
	SavingsOpportunities string       `json:"savings_opportunities,omitempty"`
	FraudAlerts          []FraudAlert `json:"fraud_alerts"`
	Statistics           *Statistics  `json:"statistics,omitempty"`
}
