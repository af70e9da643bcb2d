package analysis

import (
	"fmt"
	"strings"

	"budgetbee/internal/core"
)

const recentInPrompt = 10

const promptInstructions = `Provide a comprehensive analysis including:
1. Spending Patterns: Identify trends, peak spending days/categories
2. Budget Adherence: How well they're sticking to budgets
3. Recommendations: 3-5 actionable tips to improve financial health
4. Tax Insights: Potential deductible expenses or tax-saving opportunities
5. Savings Opportunities: Areas where they can cut costs

Format as JSON with keys: spending_patterns, budget_analysis, recommendations (array), tax_insights, savings_opportunities`

// BuildPrompt renders statistics, recent transactions and budget state into
// the request sent to the summarizer. Expenses must already be sorted newest first.
func BuildPrompt(stats Statistics, expenses []core.Expense, budgets []core.Budget) string {
	var b strings.Builder

	b.WriteString("Analyze this financial data and provide detailed insights:\n\n")
	fmt.Fprintf(&b, "Total Expenses: $%s\n", stats.TotalSpent)
	fmt.Fprintf(&b, "Number of Transactions: %d\n", stats.TransactionCount)
	fmt.Fprintf(&b, "Average Transaction: $%s\n\n", stats.AvgExpense)

	b.WriteString("Spending by Category:\n")
	for _, c := range stats.Categories() {
		fmt.Fprintf(&b, "- %s: $%s\n", c, stats.CategoryBreakdown[c])
	}

	b.WriteString("\nRecent Transactions (last 10):\n")
	recent := expenses
	if len(recent) > recentInPrompt {
		recent = recent[:recentInPrompt]
	}
	for _, e := range recent {
		fmt.Fprintf(&b, "- %s: $%s (%s) on %s\n", e.Title, e.Amount, e.Category, e.Date)
	}

	b.WriteString("\nBudgets:\n")
	if len(budgets) == 0 {
		b.WriteString("No budgets set\n")
	}
	for _, bu := range budgets {
		fmt.Fprintf(&b, "- %s: $%s/$%s\n", bu.Category, bu.Spent, bu.Limit)
	}

	b.WriteString("\n")
	b.WriteString(promptInstructions)
	return b.String()
}
