package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-sourcing/procure-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "procure-cli",
	Short: "Supplier risk monitor for procurement bids",
	Long:  "Scans supplier bid submissions for pricing and compliance exposures, drafts clarification questions, and aggregates a portfolio-wide verification queue.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
