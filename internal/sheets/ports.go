package sheets

import (
	"context"

	"budgetbee/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseExporter mirrors stored expenses into an external spreadsheet.
	ExpenseExporter interface {
		// AppendExpense writes one row and returns the range it landed in.
		AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
	}
)
