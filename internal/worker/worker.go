package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"budgetbee/internal/amqp"
	"budgetbee/internal/core"
	"budgetbee/internal/log"
	"budgetbee/internal/sheets"
	"budgetbee/internal/storage"
)

// Store is the read side the worker needs.
type Store interface {
	GetExpense(ctx context.Context, userID, id string) (core.Expense, error)
	BudgetOwners(ctx context.Context) ([]string, error)
}

// Alerter evaluates a user's budgets and sends pending alerts.
type Alerter interface {
	CheckUser(ctx context.Context, userID, email string) (int, error)
}

// Consumer delivers expense events until ctx ends.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

// Worker reacts to expense events and periodically sweeps every budget owner.
type Worker struct {
	store       Store
	alerter     Alerter
	exporter    sheets.ExpenseExporter
	concurrency int
	logger      *log.Logger
}

// New creates a worker. exporter may be nil when no spreadsheet is configured.
func New(store Store, alerter Alerter, exporter sheets.ExpenseExporter, concurrency int, logger *log.Logger) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Worker{
		store:       store,
		alerter:     alerter,
		exporter:    exporter,
		concurrency: concurrency,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single event from the queue. A returned error makes
// the consumer requeue the message.
func (w *Worker) HandleEvent(ctx context.Context, evt *amqp.ExpenseEvent) error {
	w.logger.InfoContext(ctx, "Processing event",
		log.FieldEventType, evt.Type,
		log.FieldUserID, evt.UserID,
		log.FieldExpenseID, evt.ExpenseID)

	if evt.Type == amqp.ExpenseCreated && w.exporter != nil {
		if err := w.export(ctx, evt); err != nil {
			return err
		}
	}

	sent, err := w.alerter.CheckUser(ctx, evt.UserID, evt.Email)
	if err != nil {
		return fmt.Errorf("check budgets: %w", err)
	}
	if sent > 0 {
		w.logger.InfoContext(ctx, "Budget alerts sent", log.FieldUserID, evt.UserID, log.FieldCount, sent)
	}
	return nil
}

func (w *Worker) export(ctx context.Context, evt *amqp.ExpenseEvent) error {
	e, err := w.store.GetExpense(ctx, evt.UserID, evt.ExpenseID)
	if errors.Is(err, storage.ErrNotFound) {
		// deleted before we got to it
		w.logger.WarnContext(ctx, "Expense gone before export", log.FieldExpenseID, evt.ExpenseID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load expense: %w", err)
	}
	if _, err := w.exporter.AppendExpense(ctx, e); err != nil {
		return fmt.Errorf("export expense: %w", err)
	}
	return nil
}

// Sweep checks the budgets of every owner, at most concurrency users at a
// time. It returns the number of alerts sent.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	owners, err := w.store.BudgetOwners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list budget owners: %w", err)
	}

	var sent atomic.Int64
	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, userID := range owners {
		g.Go(func() error {
			n, err := w.alerter.CheckUser(gctx, userID, "")
			sent.Add(int64(n))
			if err != nil {
				// one user's failure must not stop the others
				failed.Add(1)
				w.logger.ErrorContext(gctx, "Budget check failed", log.FieldUserID, userID, log.FieldError, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(sent.Load()), err
	}

	w.logger.InfoContext(ctx, "Budget sweep completed",
		log.FieldOperation, log.OpSweep,
		"users", len(owners),
		"alerts", sent.Load(),
		"failures", failed.Load())
	return int(sent.Load()), ctx.Err()
}

// Run consumes events (when consumer is not nil) and sweeps on schedule until
// ctx is cancelled.
func (w *Worker) Run(ctx context.Context, consumer Consumer, schedule string) error {
	g, gctx := errgroup.WithContext(ctx)

	// sweeps share gctx so a failed consumer also stops a sweep in flight
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := w.Sweep(gctx); err != nil && gctx.Err() == nil {
			w.logger.ErrorContext(gctx, "Scheduled sweep failed", log.FieldError, err)
		}
	}); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", schedule, err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	w.logger.InfoContext(ctx, "Worker started", "schedule", schedule, "consumer", consumer != nil)

	if consumer != nil {
		g.Go(func() error {
			return consumer.Consume(gctx, w.HandleEvent)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	w.logger.InfoContext(context.Background(), "Worker stopped", log.FieldOperation, log.OpShutdown)
	return err
}
