package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridian-sourcing/procure-cli/internal/portfolio"
)

var (
	portfolioQuery string
	portfolioXLSX  string
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio <bid-id>",
	Short: "Aggregate per-supplier exposure and the verification queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		runner, st, err := initRunner(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		result, err := runner.Portfolio(ctx, args[0], portfolioQuery, time.Now())
		if err != nil {
			return err
		}

		if portfolioXLSX != "" {
			if err := portfolio.ExportXLSX(result, portfolioXLSX); err != nil {
				return err
			}
			zap.L().Info("portfolio exported",
				zap.String("path", portfolioXLSX),
				zap.Int("rows", len(result.Rows)),
			)
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	portfolioCmd.Flags().StringVarP(&portfolioQuery, "query", "q", "", "natural-language filter (e.g. \"red cocoa suppliers from ghana\")")
	portfolioCmd.Flags().StringVar(&portfolioXLSX, "xlsx", "", "write the portfolio to an xlsx workbook instead of stdout")
	rootCmd.AddCommand(portfolioCmd)
}
