package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-sourcing/procure-cli/internal/config"
	"github.com/meridian-sourcing/procure-cli/internal/engine"
)

const seedYAML = `bids:
  - id: bid-1
    buyer_org_id: org-buyer
    title: Q3 Cocoa Tender
    currency: GBP
    benchmark_avg_price: 1000
    required_certifications: [RSPO, Fairtrade]
submissions:
  - bid_id: bid-1
    supplier_org_id: org-supplier-1
    supplier_name: Westfield Foods
    status: submitted
    price: 850
    currency: GBP
    shared_file_ids: [file-1]
    origin: Ghana
    category: Ingredients
    commodity: Cocoa
    readiness: Red
    risk_themes: [EUDR]
    submitted_at: 2026-02-10T09:30:00Z
evidence:
  - file_id: file-1
    chunk_id: c1
    text: We operate a zero landfill policy across all sites.
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	// Tests invoke RunE directly, bypassing Execute, which is what normally
	// sets the command context; cmd.Context() is nil without this.
	for _, c := range []*cobra.Command{seedCmd, generateCmd, migrateCmd, portfolioCmd, queryCmd} {
		c.SetContext(context.Background())
	}
	return &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "test.db"),
		},
		Rules: engine.DefaultRuleConfig(),
		Queue: config.QueueConfig{Limit: 10},
	}
}

func TestSeedCmd(t *testing.T) {
	cfg = testConfig(t)

	fixture := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(seedYAML), 0o644))
	seedFile = fixture

	require.NoError(t, seedCmd.RunE(seedCmd, nil))

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	bid, err := st.GetBid(context.Background(), "bid-1")
	require.NoError(t, err)
	assert.Equal(t, "Q3 Cocoa Tender", bid.Title)
	assert.Equal(t, []string{"RSPO", "Fairtrade"}, bid.RequiredCertifications)

	sub, err := st.GetSubmission(context.Background(), "bid-1", "org-supplier-1")
	require.NoError(t, err)
	assert.Equal(t, "Ghana", sub.Origin)
	assert.Equal(t, []string{"EUDR"}, sub.RiskThemes)
	assert.False(t, sub.SubmittedAt.IsZero())

	snippets, err := st.ListEvidence(context.Background(), []string{"file-1"})
	require.NoError(t, err)
	require.Len(t, snippets, 1)
}

func TestSeedCmd_MissingFile(t *testing.T) {
	cfg = testConfig(t)
	seedFile = filepath.Join(t.TempDir(), "does-not-exist.yaml")

	err := seedCmd.RunE(seedCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read seed file")
}

func TestSeedCmd_InvalidYAML(t *testing.T) {
	cfg = testConfig(t)

	fixture := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte("bids: [not: valid: yaml"), 0o644))
	seedFile = fixture

	err := seedCmd.RunE(seedCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse seed file")
}
