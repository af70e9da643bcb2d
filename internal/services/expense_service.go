package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"budgetbee/internal/amqp"
	"budgetbee/internal/auth"
	"budgetbee/internal/core"
	"budgetbee/internal/log"
)

// ErrValidation marks input the caller must fix.
var ErrValidation = errors.New("validation failed")

// ExpenseStore is the persistence the expense service writes through.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) error
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, userID, id string) error
	GetExpense(ctx context.Context, userID, id string) (core.Expense, error)
	RecentExpenses(ctx context.Context, userID string, limit int) ([]core.Expense, error)
	TouchProfile(ctx context.Context, userID, email string) error
}

// Publisher forwards change events to the worker.
type Publisher interface {
	Publish(ctx context.Context, evt *amqp.ExpenseEvent) error
}

// ExpenseService orchestrates expense writes across SQLite and AMQP
type ExpenseService struct {
	store     ExpenseStore
	publisher Publisher
	logger    *log.Logger
}

// NewExpenseService accepts a nil publisher when messaging is not configured.
func NewExpenseService(store ExpenseStore, publisher Publisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentExpense),
	}
}

func (s *ExpenseService) ListExpenses(ctx context.Context, userID string, limit int) ([]core.Expense, error) {
	return s.store.RecentExpenses(ctx, userID, limit)
}

func (s *ExpenseService) GetExpense(ctx context.Context, userID, id string) (core.Expense, error) {
	return s.store.GetExpense(ctx, userID, id)
}

// CreateExpense saves an expense locally and publishes a change event
func (s *ExpenseService) CreateExpense(ctx context.Context, who auth.Identity, e core.Expense) (core.Expense, error) {
	e.ID = uuid.NewString()
	e.UserID = who.UserID
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.store.CreateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.touchProfile(ctx, who)

	s.logger.InfoContext(ctx, "Expense created", log.NewFields().
		WithUser(e.UserID).
		WithExpense(e.ID, e.Amount.Cents, string(e.Category)).
		WithOperation(log.OpCreate).
		ToSlice()...)

	evt := amqp.NewExpenseEvent(amqp.ExpenseCreated, who.UserID, who.Email)
	evt.ExpenseID = e.ID
	s.publish(ctx, evt)
	return e, nil
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, who auth.Identity, e core.Expense) (core.Expense, error) {
	e.UserID = who.UserID
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	evt := amqp.NewExpenseEvent(amqp.ExpenseUpdated, who.UserID, who.Email)
	evt.ExpenseID = e.ID
	s.publish(ctx, evt)
	return e, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, who auth.Identity, id string) error {
	if err := s.store.DeleteExpense(ctx, who.UserID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	evt := amqp.NewExpenseEvent(amqp.ExpenseDeleted, who.UserID, who.Email)
	evt.ExpenseID = id
	s.publish(ctx, evt)
	return nil
}

func (s *ExpenseService) touchProfile(ctx context.Context, who auth.Identity) {
	if who.Email == "" {
		return
	}
	if err := s.store.TouchProfile(ctx, who.UserID, who.Email); err != nil {
		s.logger.WarnContext(ctx, "Failed to record profile email", log.FieldUserID, who.UserID, log.FieldError, err)
	}
}

// publish never fails the request; the write already succeeded locally.
func (s *ExpenseService) publish(ctx context.Context, evt *amqp.ExpenseEvent) {
	publishEvent(ctx, s.publisher, s.logger, evt)
}

func publishEvent(ctx context.Context, p Publisher, logger *log.Logger, evt *amqp.ExpenseEvent) {
	if p == nil {
		logger.DebugContext(ctx, "AMQP publisher not available, skipping event", log.FieldEventType, evt.Type)
		return
	}
	if err := p.Publish(ctx, evt); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event",
			log.FieldEventType, evt.Type,
			log.FieldUserID, evt.UserID,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeNetwork)
	}
}
