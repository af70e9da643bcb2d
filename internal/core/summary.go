package core

import "fmt"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category Category `json:"category"`
	Amount   Money    `json:"amount"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"` // 1-12
	Total      Money            `json:"total"`
	Count      int              `json:"transaction_count"`
	ByCategory []CategoryAmount `json:"by_category"`
}

type (
	BudgetStatus string
	AlertLevel   string
)

const (
	StatusOK      BudgetStatus = "ok"
	StatusWarning BudgetStatus = "warning"
	StatusOver    BudgetStatus = "over"
)

const (
	AlertNone     AlertLevel = ""
	AlertWarning  AlertLevel = "warning"
	AlertExceeded AlertLevel = "exceeded"
)

// BudgetView is a budget together with its derived progress figures.
type BudgetView struct {
	Budget
	Remaining  Money        `json:"remaining"`
	Percentage float64      `json:"percentage"`
	Status     BudgetStatus `json:"status"`
	Message    string       `json:"message,omitempty"`
}

// Level reports which alert a budget has reached. Exceeded means strictly over
// the limit; warning means at or above the alert threshold.
func (b Budget) Level() AlertLevel {
	if b.Limit.Cents <= 0 {
		return AlertNone
	}
	if b.Spent.Cents > b.Limit.Cents {
		return AlertExceeded
	}
	threshold := int64(b.AlertThreshold)
	if threshold <= 0 {
		threshold = DefaultAlertThreshold
	}
	if b.Spent.Cents*100 >= threshold*b.Limit.Cents {
		return AlertWarning
	}
	return AlertNone
}

// View derives remaining amount, percentage and status for display.
func (b Budget) View(symbol string) BudgetView {
	v := BudgetView{Budget: b, Remaining: b.Limit.Sub(b.Spent), Status: StatusOK}
	if b.Limit.Cents > 0 {
		pct := b.Spent.Decimal().Div(b.Limit.Decimal()).Shift(2).Round(1)
		v.Percentage, _ = pct.Float64()
	}
	switch b.Level() {
	case AlertExceeded:
		v.Status = StatusOver
		v.Message = fmt.Sprintf("Over budget by %s%s", symbol, b.Spent.Sub(b.Limit))
	case AlertWarning:
		v.Status = StatusWarning
		v.Message = fmt.Sprintf("Approaching limit - %s%s remaining", symbol, v.Remaining)
	}
	return v
}
