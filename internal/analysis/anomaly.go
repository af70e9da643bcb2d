package analysis

import "budgetbee/internal/core"

// DetectAnomalies flags expenses strictly above AnomalyMultiplier times the average.
//
// amount > k*total/count is evaluated as amount*count > k*total so the
// rounded average never decides a borderline case.
func DetectAnomalies(expenses []core.Expense, stats Statistics) []FraudAlert {
	alerts := []FraudAlert{}
	if stats.TransactionCount == 0 {
		return alerts
	}
	limit := AnomalyMultiplier * stats.TotalSpent.Cents
	count := int64(stats.TransactionCount)
	for _, e := range expenses {
		if e.Amount.Cents*count > limit {
			alerts = append(alerts, FraudAlert{
				ID:     e.ID,
				Title:  e.Title,
				Amount: e.Amount,
				Date:   e.Date,
				Reason: AnomalyReason,
			})
		}
	}
	return alerts
}
