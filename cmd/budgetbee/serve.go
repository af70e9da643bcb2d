package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"budgetbee/internal/ai"
	"budgetbee/internal/amqp"
	"budgetbee/internal/analysis"
	"budgetbee/internal/auth"
	"budgetbee/internal/cli"
	apphttp "budgetbee/internal/http"
	"budgetbee/internal/log"
	"budgetbee/internal/services"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadConfig(flagConfig, true)
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	ctx, stop := cli.SignalContext(cmd.Context(), logger)
	defer stop()

	logger.InfoContext(ctx, "Starting budgetbee server", log.FieldOperation, log.OpStartup, "port", cfg.Port)

	repo, err := cli.OpenRepository(ctx, logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	// Events are best effort; the API keeps working without a broker.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.WarnContext(ctx, "AMQP unavailable, expense events disabled", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	} else {
		logger.InfoContext(ctx, "AMQP_URL not set, expense events disabled")
	}

	if cfg.AIAPIKey == "" {
		logger.WarnContext(ctx, "AI_API_KEY not set, spending analysis will fail")
	}
	summarizer := ai.NewClient(ai.Config{
		URL:     cfg.AIGatewayURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	})

	srv := apphttp.NewServer(apphttp.Options{
		Addr:                      ":" + cfg.Port,
		AllowedOrigins:            cfg.AllowedOrigins,
		RateLimitPerMinute:        cfg.RateLimitPerMinute,
		AnalyzeRateLimitPerMinute: cfg.AnalyzeRateLimitPerMinute,
		OverviewCacheTTL:          cfg.OverviewCacheTTL,
	}, apphttp.Deps{
		Expenses: services.NewExpenseService(repo, publisher, logger),
		Budgets:  services.NewBudgetService(repo, publisher, logger),
		Analyzer: analysis.NewService(repo, summarizer, logger),
		Overview: repo,
		Profiles: repo,
		Ready:    repo,
		Verifier: auth.NewVerifier(cfg.JWTSecret),
		Logger:   logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.ErrorContext(ctx, "HTTP server failed", log.FieldError, err)
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", log.FieldError, err)
		return err
	}
	logger.Info("Server stopped", log.FieldOperation, log.OpShutdown)
	return nil
}
