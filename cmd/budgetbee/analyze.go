package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"budgetbee/internal/ai"
	"budgetbee/internal/analysis"
	"budgetbee/internal/auth"
	"budgetbee/internal/cli"
	"budgetbee/internal/log"
)

var (
	flagAnalyzeUser string
	flagTokenUser   string
	flagTokenEmail  string
	flagTokenTTL    time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the spending analysis for one user and print it as JSON",
	RunE:  runAnalyze,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed access token for local testing",
	RunE:  runToken,
}

func init() {
	analyzeCmd.Flags().StringVarP(&flagAnalyzeUser, "user", "u", "", "User ID to analyze")
	_ = analyzeCmd.MarkFlagRequired("user")

	tokenCmd.Flags().StringVarP(&flagTokenUser, "user", "u", "", "User ID (token subject)")
	tokenCmd.Flags().StringVar(&flagTokenEmail, "email", "", "Email claim")
	tokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(analyzeCmd, tokenCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadConfig(flagConfig, false)
	if err != nil {
		return err
	}
	// stdout carries the JSON result
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentAnalysis,
		Output:    os.Stderr,
	})

	repo, err := cli.OpenRepository(cmd.Context(), logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc := analysis.NewService(repo, ai.NewClient(ai.Config{
		URL:     cfg.AIGatewayURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	}), logger)

	result, err := svc.Analyze(cmd.Context(), flagAnalyzeUser)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(map[string]any{"analysis": result}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadConfig(flagConfig, true)
	if err != nil {
		return err
	}
	token, err := auth.NewVerifier(cfg.JWTSecret).IssueToken(auth.Identity{
		UserID: flagTokenUser,
		Email:  flagTokenEmail,
	}, flagTokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
