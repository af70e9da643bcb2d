package services

import (
	"context"
	"errors"
	"fmt"

	"budgetbee/internal/core"
	"budgetbee/internal/log"
	"budgetbee/internal/notify"
)

// AlertStore is what the alerter reads and records.
type AlertStore interface {
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
	AlertLevels(ctx context.Context, budgetID string) ([]core.AlertLevel, error)
	RecordAlert(ctx context.Context, budgetID string, level core.AlertLevel, spent core.Money) error
	ClearAlert(ctx context.Context, budgetID string, level core.AlertLevel) error
	GetProfile(ctx context.Context, userID string) (core.Profile, error)
}

// levelRank orders alert levels from none to exceeded.
var levelRank = map[core.AlertLevel]int{
	core.AlertNone:     0,
	core.AlertWarning:  1,
	core.AlertExceeded: 2,
}

// BudgetAlerter sends at most one notification per budget and level. When a
// budget falls back below a level, that level is re-armed.
type BudgetAlerter struct {
	store    AlertStore
	notifier notify.Notifier
	logger   *log.Logger
}

func NewBudgetAlerter(store AlertStore, notifier notify.Notifier, logger *log.Logger) *BudgetAlerter {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &BudgetAlerter{store: store, notifier: notifier, logger: logger.WithComponent(log.ComponentBudget)}
}

// CheckUser evaluates every active budget of a user. email overrides the
// stored profile address when set. It returns the number of alerts sent.
func (a *BudgetAlerter) CheckUser(ctx context.Context, userID, email string) (int, error) {
	budgets, err := a.store.ListBudgets(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return 0, nil
	}

	profile, err := a.store.GetProfile(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load profile: %w", err)
	}
	if email == "" {
		email = profile.Email
	}

	sent := 0
	var errs []error
	for _, b := range budgets {
		if !b.Active {
			continue
		}
		ok, err := a.checkBudget(ctx, b, email, profile.Currency)
		if err != nil {
			errs = append(errs, fmt.Errorf("budget %s: %w", b.ID, err))
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, errors.Join(errs...)
}

func (a *BudgetAlerter) checkBudget(ctx context.Context, b core.Budget, email, currency string) (bool, error) {
	current := b.Level()
	recorded, err := a.store.AlertLevels(ctx, b.ID)
	if err != nil {
		return false, err
	}

	already := false
	for _, lvl := range recorded {
		switch {
		case lvl == current:
			already = true
		case levelRank[lvl] > levelRank[current]:
			if err := a.store.ClearAlert(ctx, b.ID, lvl); err != nil {
				return false, err
			}
		}
	}
	if current == core.AlertNone || already {
		return false, nil
	}

	err = a.notifier.NotifyBudget(ctx, notify.BudgetAlert{
		UserID:   b.UserID,
		Email:    email,
		Currency: currency,
		Budget:   b,
		Level:    current,
	})
	if errors.Is(err, notify.ErrNoRecipient) {
		a.logger.WarnContext(ctx, "Budget alert skipped, no email on record",
			log.FieldUserID, b.UserID,
			log.FieldBudgetID, b.ID,
			log.FieldAlertLevel, current)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// Reaching exceeded directly also settles the warning.
	for lvl, rank := range levelRank {
		if rank > 0 && rank <= levelRank[current] {
			if err := a.store.RecordAlert(ctx, b.ID, lvl, b.Spent); err != nil {
				return true, err
			}
		}
	}
	a.logger.InfoContext(ctx, "Budget alert sent",
		log.FieldUserID, b.UserID,
		log.FieldBudgetID, b.ID,
		log.FieldCategory, b.Category,
		log.FieldAlertLevel, current)
	return true, nil
}
