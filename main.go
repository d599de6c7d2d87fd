package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// @title jvm-analyzer API
// @version 1.0
// @description Alertmanager webhook receiver that writes JVM analysis reports to the object store.
// @BasePath /
func main() {
	// 로컬 개발용 .env (없으면 무시)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:   "jvm-analyzer",
		Short: "Alert-driven JVM thread dump and JFR analyzer",
		Long: `jvm-analyzer receives Alertmanager webhooks for struggling JVM pods,
collects a thread dump and the latest JFR profile, and writes an analysis
report to the object store.

COMMANDS
  serve               Run the webhook server (default)
  summarize <file>    Print the model-facing summary of a local JFR file`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	rootCmd.AddCommand(newServeCmd(), newSummarizeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
