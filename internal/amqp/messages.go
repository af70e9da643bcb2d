package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	ExpenseUpdated EventType = "expense.updated"
	ExpenseDeleted EventType = "expense.deleted"
	BudgetChanged  EventType = "budget.changed"
)

// ExpenseEvent tells the worker that a user's spending data changed.
// It carries ids only; the worker reads current state from the database.
type ExpenseEvent struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	ExpenseID string    `json:"expense_id,omitempty"`
	BudgetID  string    `json:"budget_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseEvent(t EventType, userID, email string) *ExpenseEvent {
	return &ExpenseEvent{
		Type:      t,
		UserID:    userID,
		Email:     email,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and validates an event.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case ExpenseCreated, ExpenseUpdated, ExpenseDeleted, BudgetChanged:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("event %s without user id", msg.Type)
	}
	return &msg, nil
}
