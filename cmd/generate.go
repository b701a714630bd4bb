package main

import (
	"encoding/json"
	"os"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	generateSupplier    string
	generateConcurrency int
	generateJSON        bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <bid-id>",
	Short: "Generate draft signals and questions for a bid's submissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		bidID := args[0]

		runner, st, err := initRunner(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		// Single supplier: run inline and print the result.
		if generateSupplier != "" {
			res, err := runner.GenerateForSupplier(ctx, bidID, generateSupplier)
			if err != nil {
				return err
			}
			if generateJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			cmd.Printf("%d signals, %d questions\n", len(res.Signals), len(res.Questions))
			return nil
		}

		subs, err := st.ListSubmissions(ctx, bidID)
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			zap.L().Info("no submissions for bid", zap.String("bid_id", bidID))
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(generateConcurrency)

		var succeeded, failed atomic.Int64
		for _, sub := range subs {
			g.Go(func() error {
				log := zap.L().With(zap.String("supplier_org_id", sub.SupplierOrgID))
				if _, err := runner.GenerateForSupplier(gctx, bidID, sub.SupplierOrgID); err != nil {
					failed.Add(1)
					log.Error("generation failed", zap.Error(err))
					return nil // don't abort the batch on individual failure
				}
				succeeded.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "generate batch")
		}

		zap.L().Info("generation batch complete",
			zap.Int64("succeeded", succeeded.Load()),
			zap.Int64("failed", failed.Load()),
		)
		if failed.Load() > 0 {
			return eris.Errorf("generation failed for %d of %d suppliers", failed.Load(), len(subs))
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateSupplier, "supplier", "", "generate for a single supplier org id")
	generateCmd.Flags().IntVar(&generateConcurrency, "concurrency", 4, "max concurrent suppliers")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "print the generation result as JSON (single supplier only)")
	rootCmd.AddCommand(generateCmd)
}
