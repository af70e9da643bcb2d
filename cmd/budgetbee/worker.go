package main

import (
	"github.com/spf13/cobra"

	"budgetbee/internal/amqp"
	"budgetbee/internal/cli"
	"budgetbee/internal/log"
	"budgetbee/internal/notify"
	"budgetbee/internal/services"
	"budgetbee/internal/sheets"
	"budgetbee/internal/sheets/google"
	"budgetbee/internal/worker"
)

var flagWorkerOnce bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume expense events and send budget alerts",
	Long: "Consume expense events from AMQP, export new expenses to Google Sheets and " +
		"check budgets on every change and on the alert schedule.",
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().BoolVar(&flagWorkerOnce, "once", false, "Run a single budget sweep and exit")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadConfig(flagConfig, false)
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	ctx, stop := cli.SignalContext(cmd.Context(), logger)
	defer stop()

	repo, err := cli.OpenRepository(ctx, logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	var notifier notify.Notifier
	if cfg.MailgunEnabled() {
		notifier = notify.NewMailgunNotifier(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.AlertSender, logger)
		logger.InfoContext(ctx, "Mailgun alerts enabled", "domain", cfg.MailgunDomain)
	} else {
		notifier = notify.NewLogNotifier(logger)
		logger.InfoContext(ctx, "Mailgun not configured, alerts are logged only")
	}

	var exporter sheets.ExpenseExporter
	if cfg.SheetsEnabled() {
		client, err := google.New(ctx, google.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			return err
		}
		exporter = client
		logger.InfoContext(ctx, "Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	w := worker.New(repo, services.NewBudgetAlerter(repo, notifier, logger), exporter, cfg.WorkerConcurrency, logger)

	if flagWorkerOnce {
		sent, err := w.Sweep(ctx)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Sweep complete", log.FieldCount, sent)
		return nil
	}

	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		consumer = client
	} else {
		logger.InfoContext(ctx, "AMQP_URL not set, running scheduled sweeps only")
	}

	return w.Run(ctx, consumer, cfg.AlertSchedule)
}
