package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"budgetbee/internal/log"
)

// Service runs spending analysis for one user per call.
type Service struct {
	store      Store
	summarizer Summarizer
	logger     *log.Logger
}

func NewService(store Store, summarizer Summarizer, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		store:      store,
		summarizer: summarizer,
		logger:     logger.WithComponent(log.ComponentAnalysis),
	}
}

// Analyze reads the user's recent expenses and budgets, computes statistics
// and anomalies locally and asks the summarizer for narrative insights.
//
// It returns ErrUnauthorized for an empty user and wraps any summarizer
// failure in ErrUpstreamUnavailable. An unreadable reply is not an error.
func (s *Service) Analyze(ctx context.Context, userID string) (SpendingAnalysis, error) {
	if strings.TrimSpace(userID) == "" {
		return SpendingAnalysis{}, ErrUnauthorized
	}

	expenses, err := s.store.RecentExpenses(ctx, userID, RecentExpenseLimit)
	if err != nil {
		return SpendingAnalysis{}, fmt.Errorf("load expenses: %w", err)
	}
	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		return SpendingAnalysis{}, fmt.Errorf("load budgets: %w", err)
	}

	if len(expenses) == 0 {
		s.logger.InfoContext(ctx, "No expenses on record, returning placeholder analysis",
			log.FieldUserID, userID)
		return Placeholder(), nil
	}

	stats := Aggregate(expenses)
	alerts := DetectAnomalies(expenses, stats)
	prompt := BuildPrompt(stats, expenses, budgets)

	start := time.Now()
	reply, err := s.summarizer.Complete(ctx, SystemInstruction, prompt)
	if err != nil {
		s.logger.ErrorContext(ctx, "Summarizer call failed",
			log.FieldUserID, userID,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeUpstream)
		return SpendingAnalysis{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	result := Merge(ParseInsights(reply), alerts, stats)
	s.logger.InfoContext(ctx, "Spending analysis completed",
		log.FieldUserID, userID,
		log.FieldCount, stats.TransactionCount,
		"fraud_alerts", len(alerts),
		"budgets", len(budgets),
		log.FieldDuration, time.Since(start).Milliseconds())
	return result, nil
}
