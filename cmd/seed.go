package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/meridian-sourcing/procure-cli/internal/model"
)

var seedFile string

// seedFixture is the on-disk shape of a seed file.
type seedFixture struct {
	Bids []struct {
		ID                     string   `yaml:"id"`
		BuyerOrgID             string   `yaml:"buyer_org_id"`
		Title                  string   `yaml:"title"`
		Currency               string   `yaml:"currency"`
		BenchmarkAvgPrice      *float64 `yaml:"benchmark_avg_price"`
		RequiredCertifications []string `yaml:"required_certifications"`
	} `yaml:"bids"`
	Submissions []struct {
		BidID         string   `yaml:"bid_id"`
		SupplierOrgID string   `yaml:"supplier_org_id"`
		SupplierName  string   `yaml:"supplier_name"`
		Status        string   `yaml:"status"`
		Price         *float64 `yaml:"price"`
		Currency      string   `yaml:"currency"`
		SharedFileIDs []string `yaml:"shared_file_ids"`
		Tier          string   `yaml:"tier"`
		Origin        string   `yaml:"origin"`
		Category      string   `yaml:"category"`
		Commodity     string   `yaml:"commodity"`
		Product       string   `yaml:"product"`
		Readiness     string   `yaml:"readiness"`
		RiskThemes    []string `yaml:"risk_themes"`
		SubmittedAt   string   `yaml:"submitted_at"`
	} `yaml:"submissions"`
	Evidence []struct {
		FileID  string `yaml:"file_id"`
		ChunkID string `yaml:"chunk_id"`
		Text    string `yaml:"text"`
	} `yaml:"evidence"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load bids, submissions, and evidence from a YAML fixture",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(seedFile)
		if err != nil {
			return eris.Wrap(err, "read seed file")
		}
		var fixture seedFixture
		if err := yaml.Unmarshal(data, &fixture); err != nil {
			return eris.Wrap(err, "parse seed file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		for _, b := range fixture.Bids {
			if _, err := st.CreateBid(ctx, model.Bid{
				ID:                     b.ID,
				BuyerOrgID:             b.BuyerOrgID,
				Title:                  b.Title,
				Currency:               b.Currency,
				BenchmarkAvgPrice:      b.BenchmarkAvgPrice,
				RequiredCertifications: b.RequiredCertifications,
			}); err != nil {
				return eris.Wrapf(err, "seed bid %s", b.Title)
			}
		}

		for _, s := range fixture.Submissions {
			sub := model.Submission{
				BidID:         s.BidID,
				SupplierOrgID: s.SupplierOrgID,
				SupplierName:  s.SupplierName,
				Status:        model.SubmissionStatus(s.Status),
				Price:         s.Price,
				Currency:      s.Currency,
				SharedFileIDs: s.SharedFileIDs,
				Tier:          s.Tier,
				Origin:        s.Origin,
				Category:      s.Category,
				Commodity:     s.Commodity,
				Product:       s.Product,
				Readiness:     model.Readiness(s.Readiness),
				RiskThemes:    s.RiskThemes,
			}
			if s.SubmittedAt != "" {
				ts, err := time.Parse(time.RFC3339, s.SubmittedAt)
				if err != nil {
					return eris.Wrapf(err, "seed submission %s: parse submitted_at", s.SupplierOrgID)
				}
				sub.SubmittedAt = ts
			}
			if _, err := st.UpsertSubmission(ctx, sub); err != nil {
				return eris.Wrapf(err, "seed submission %s", s.SupplierOrgID)
			}
		}

		snippets := make([]model.EvidenceSnippet, 0, len(fixture.Evidence))
		for _, e := range fixture.Evidence {
			snippets = append(snippets, model.EvidenceSnippet{
				FileID:  e.FileID,
				ChunkID: e.ChunkID,
				Text:    e.Text,
			})
		}
		if err := st.AddEvidence(ctx, snippets); err != nil {
			return eris.Wrap(err, "seed evidence")
		}

		zap.L().Info("seed complete",
			zap.Int("bids", len(fixture.Bids)),
			zap.Int("submissions", len(fixture.Submissions)),
			zap.Int("evidence_snippets", len(fixture.Evidence)),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "testdata/seed.yaml", "path to the seed fixture")
	rootCmd.AddCommand(seedCmd)
}
