package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-sourcing/procure-cli/internal/engine"
	"github.com/meridian-sourcing/procure-cli/internal/model"
	"github.com/meridian-sourcing/procure-cli/internal/store"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return New(st, engine.DefaultRuleConfig(), 10)
}

func seedScenario(t *testing.T, r *Runner) (bidID string) {
	t.Helper()
	ctx := context.Background()

	benchmark := 1000.0
	bid, err := r.Store.CreateBid(ctx, model.Bid{
		BuyerOrgID:             "org-buyer",
		Title:                  "Q3 Cocoa Tender",
		Currency:               "GBP",
		BenchmarkAvgPrice:      &benchmark,
		RequiredCertifications: []string{"RSPO"},
	})
	require.NoError(t, err)

	price := 850.0
	_, err = r.Store.UpsertSubmission(ctx, model.Submission{
		BidID:         bid.ID,
		SupplierOrgID: "org-supplier-1",
		SupplierName:  "Westfield Foods",
		Status:        model.SubmissionSubmitted,
		Price:         &price,
		Currency:      "GBP",
		SharedFileIDs: []string{"file-1"},
		Origin:        "Ghana",
		Commodity:     "Cocoa",
		Category:      "Ingredients",
		Readiness:     model.ReadinessRed,
		RiskThemes:    []string{"EUDR"},
	})
	require.NoError(t, err)

	require.NoError(t, r.Store.AddEvidence(ctx, []model.EvidenceSnippet{
		{FileID: "file-1", ChunkID: "c1", Text: "We operate a zero landfill policy across all sites."},
	}))

	return bid.ID
}

func TestRunner_GenerateForSupplier(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	bidID := seedScenario(t, r)

	res, err := r.GenerateForSupplier(ctx, bidID, "org-supplier-1")
	require.NoError(t, err)

	// Price 850 vs benchmark 1000, missing RSPO, zero-landfill claim
	// without operational detail.
	require.Len(t, res.Signals, 3)
	assert.Equal(t, model.SignalCompression, res.Signals[0].Type)
	assert.Equal(t, model.SignalAbsence, res.Signals[1].Type)
	assert.Equal(t, model.SignalMisalignment, res.Signals[2].Type)

	require.Len(t, res.Questions, 3)
	for i, q := range res.Questions {
		assert.Equal(t, i, q.LinkedSignalIndex)
		assert.Equal(t, model.QuestionOpen, q.Status)
	}

	require.NotNil(t, res.Generation)
	assert.Equal(t, 3, res.Generation.SignalCount)
	assert.Equal(t, 3, res.Generation.QuestionCount)
	assert.Equal(t, "Exposures surfaced that require verification before decision.", res.Generation.Summary)
}

func TestRunner_GenerateForSupplier_Rerun_Replaces(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	bidID := seedScenario(t, r)

	_, err := r.GenerateForSupplier(ctx, bidID, "org-supplier-1")
	require.NoError(t, err)

	// Supplier raises their price above the compression threshold and
	// submits evidence covering the certification.
	price := 990.0
	_, err = r.Store.UpsertSubmission(ctx, model.Submission{
		BidID:         bidID,
		SupplierOrgID: "org-supplier-1",
		SupplierName:  "Westfield Foods",
		Status:        model.SubmissionSubmitted,
		Price:         &price,
		Currency:      "GBP",
		SharedFileIDs: []string{"file-2"},
	})
	require.NoError(t, err)
	require.NoError(t, r.Store.AddEvidence(ctx, []model.EvidenceSnippet{
		{FileID: "file-2", ChunkID: "c1", Text: "RSPO certificate attached, valid through 2027."},
	}))

	res, err := r.GenerateForSupplier(ctx, bidID, "org-supplier-1")
	require.NoError(t, err)
	assert.Empty(t, res.Signals)

	// Stale signals and questions from the first run are gone.
	signals, err := r.Store.ListSignals(ctx, bidID, "org-supplier-1")
	require.NoError(t, err)
	assert.Empty(t, signals)
	questions, err := r.Store.ListQuestions(ctx, bidID, "org-supplier-1")
	require.NoError(t, err)
	assert.Empty(t, questions)
}

func TestRunner_GenerateForSupplier_UnknownBid(t *testing.T) {
	r := newTestRunner(t)

	_, err := r.GenerateForSupplier(context.Background(), "nonexistent", "org-supplier-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRunner_Portfolio(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	bidID := seedScenario(t, r)

	_, err := r.GenerateForSupplier(ctx, bidID, "org-supplier-1")
	require.NoError(t, err)

	result, err := r.Portfolio(ctx, bidID, "", time.Now())
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Equal(t, "org-supplier-1", row.SupplierOrgID)
	require.NotNil(t, row.PriceDeltaPct)
	assert.Equal(t, -15, *row.PriceDeltaPct)
	assert.Equal(t, 1, row.ExposureCounts[model.SignalCompression])
	assert.Equal(t, 1, row.ExposureCounts[model.SignalAbsence])
	assert.Equal(t, 1, row.ExposureCounts[model.SignalMisalignment])
	assert.Equal(t, 0, row.ExposureCounts[model.SignalContradiction])
	assert.Equal(t, 3, row.OpenQuestions)
	assert.Len(t, result.Queue, 3)
}

func TestRunner_Portfolio_QueryFilters(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	bidID := seedScenario(t, r)

	// Second supplier outside the query's scope.
	price := 1200.0
	_, err := r.Store.UpsertSubmission(ctx, model.Submission{
		BidID:         bidID,
		SupplierOrgID: "org-supplier-2",
		SupplierName:  "Nordic Packaging",
		Status:        model.SubmissionSubmitted,
		Price:         &price,
		Currency:      "GBP",
		Origin:        "Germany",
		Commodity:     "Plastic",
		Category:      "Packaging",
		Readiness:     model.ReadinessGreen,
	})
	require.NoError(t, err)

	_, err = r.GenerateForSupplier(ctx, bidID, "org-supplier-1")
	require.NoError(t, err)

	result, err := r.Portfolio(ctx, bidID, "red cocoa suppliers from ghana", time.Now())
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "org-supplier-1", result.Rows[0].SupplierOrgID)

	// Queue only carries suppliers present in the rows.
	for _, entry := range result.Queue {
		assert.Equal(t, "org-supplier-1", entry.SupplierOrgID)
	}
}
