package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"budgetbee/internal/amqp"
	"budgetbee/internal/auth"
	"budgetbee/internal/core"
	"budgetbee/internal/log"
)

type BudgetStore interface {
	CreateBudget(ctx context.Context, b core.Budget) error
	UpdateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, userID, id string) error
	GetBudget(ctx context.Context, userID, id string) (core.Budget, error)
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
	TouchProfile(ctx context.Context, userID, email string) error
}

// BudgetService manages category budgets. Spent is never written; it is
// read back from the store after every change.
type BudgetService struct {
	store     BudgetStore
	publisher Publisher
	logger    *log.Logger
}

func NewBudgetService(store BudgetStore, publisher Publisher, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &BudgetService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentBudget),
	}
}

func (s *BudgetService) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	return s.store.ListBudgets(ctx, userID)
}

func (s *BudgetService) CreateBudget(ctx context.Context, who auth.Identity, b core.Budget) (core.Budget, error) {
	b.ID = uuid.NewString()
	b.UserID = who.UserID
	if b.AlertThreshold == 0 {
		b.AlertThreshold = core.DefaultAlertThreshold
	}
	if b.Period == "" {
		b.Period = core.Monthly
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.store.CreateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	if who.Email != "" {
		if err := s.store.TouchProfile(ctx, who.UserID, who.Email); err != nil {
			s.logger.WarnContext(ctx, "Failed to record profile email", log.FieldUserID, who.UserID, log.FieldError, err)
		}
	}

	s.logger.InfoContext(ctx, "Budget created",
		log.FieldUserID, b.UserID,
		log.FieldBudgetID, b.ID,
		log.FieldCategory, b.Category,
		log.FieldAmountCents, b.Limit.Cents)
	return s.changed(ctx, who, b.ID)
}

func (s *BudgetService) UpdateBudget(ctx context.Context, who auth.Identity, b core.Budget) (core.Budget, error) {
	b.UserID = who.UserID
	if b.AlertThreshold == 0 {
		b.AlertThreshold = core.DefaultAlertThreshold
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.store.UpdateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return s.changed(ctx, who, b.ID)
}

func (s *BudgetService) DeleteBudget(ctx context.Context, who auth.Identity, id string) error {
	if err := s.store.DeleteBudget(ctx, who.UserID, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

// changed re-reads the budget so the caller sees the derived spent amount,
// then notifies the worker.
func (s *BudgetService) changed(ctx context.Context, who auth.Identity, id string) (core.Budget, error) {
	b, err := s.store.GetBudget(ctx, who.UserID, id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("reload budget: %w", err)
	}
	evt := amqp.NewExpenseEvent(amqp.BudgetChanged, who.UserID, who.Email)
	evt.BudgetID = id
	publishEvent(ctx, s.publisher, s.logger, evt)
	return b, nil
}
