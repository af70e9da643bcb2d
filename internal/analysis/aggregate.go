package analysis

import "budgetbee/internal/core"

// Aggregate reduces expenses to totals, an average and a per-category breakdown.
// Sums are exact in cents; the average is rounded half-up to the cent.
func Aggregate(expenses []core.Expense) Statistics {
	stats := Statistics{
		TransactionCount:  len(expenses),
		CategoryBreakdown: make(map[core.Category]core.Money),
	}
	for _, e := range expenses {
		stats.TotalSpent = stats.TotalSpent.Add(e.Amount)
		sum, seen := stats.CategoryBreakdown[e.Category]
		if !seen {
			stats.categories = append(stats.categories, e.Category)
		}
		stats.CategoryBreakdown[e.Category] = sum.Add(e.Amount)
	}
	stats.AvgExpense = stats.TotalSpent.DivRound(int64(len(expenses)))
	return stats
}

// Categories returns the breakdown keys in order of first appearance.
func (s Statistics) Categories() []core.Category {
	return s.categories
}
