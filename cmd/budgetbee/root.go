package main

import (
	"os"

	"github.com/spf13/cobra"

	"budgetbee/internal/cli"
)

var (
	flagConfig  string
	flagEnvFile string
)

var rootCmd = &cobra.Command{
	Use:          "budgetbee",
	Short:        "Budget Bee spending tracker and analysis service",
	Long:         "Track expenses and budgets, send budget alerts and ask an AI model for spending insights.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cli.LoadEnvFile(flagEnvFile)
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "TOML config file (default $BUDGETBEE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "dotenv file to load before reading the environment (default .env if present)")
}
