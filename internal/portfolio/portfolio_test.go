package portfolio

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-sourcing/procure-cli/internal/model"
)

func f64(v float64) *float64 { return &v }

func TestPriceDeltaPct(t *testing.T) {
	tests := []struct {
		name      string
		price     *float64
		benchmark *float64
		want      *int
	}{
		{"ten percent below", f64(900), f64(1000), intPtr(-10)},
		{"ten percent above", f64(1100), f64(1000), intPtr(10)},
		{"zero benchmark", f64(900), f64(0), nil},
		{"missing price", nil, f64(1000), nil},
		{"missing benchmark", f64(900), nil, nil},
		{"equal", f64(1000), f64(1000), intPtr(0)},
		// Half cases round away from zero.
		{"positive half rounds up", f64(1005), f64(1000), intPtr(1)},
		{"negative half rounds down", f64(995), f64(1000), intPtr(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PriceDeltaPct(tt.price, tt.benchmark)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func intPtr(v int) *int { return &v }

func ts(minute int) time.Time {
	return time.Date(2026, 2, 1, 12, minute, 0, 0, time.UTC)
}

func TestAggregate_QueueRanking(t *testing.T) {
	// Severities low, high, medium, high with increasing timestamps:
	// the later high outranks the earlier high, then medium, then low.
	signals := []model.Signal{
		{SupplierOrgID: "a", Severity: model.SeverityLow, Description: "low", CreatedAt: ts(0)},
		{SupplierOrgID: "b", Severity: model.SeverityHigh, Description: "high-early", CreatedAt: ts(1)},
		{SupplierOrgID: "c", Severity: model.SeverityMedium, Description: "medium", CreatedAt: ts(2)},
		{SupplierOrgID: "d", Severity: model.SeverityHigh, Description: "high-late", CreatedAt: ts(3)},
	}

	result := Aggregate(AggregateInput{Signals: signals})
	require.Len(t, result.Queue, 4)
	assert.Equal(t, "high-late", result.Queue[0].Text)
	assert.Equal(t, "high-early", result.Queue[1].Text)
	assert.Equal(t, "medium", result.Queue[2].Text)
	assert.Equal(t, "low", result.Queue[3].Text)
}

func TestAggregate_QueueTruncation(t *testing.T) {
	var signals []model.Signal
	for i := 0; i < 25; i++ {
		signals = append(signals, model.Signal{
			SupplierOrgID: "a",
			Severity:      model.SeverityMedium,
			Description:   fmt.Sprintf("sig-%d", i),
			CreatedAt:     ts(i),
		})
	}

	result := Aggregate(AggregateInput{Signals: signals})
	assert.Len(t, result.Queue, DefaultQueueLimit)

	result = Aggregate(AggregateInput{Signals: signals, QueueLimit: 3})
	assert.Len(t, result.Queue, 3)

	result = Aggregate(AggregateInput{Signals: signals[:4]})
	assert.Len(t, result.Queue, 4)
}

func TestAggregate_QueueTiesKeepAllEntries(t *testing.T) {
	same := ts(5)
	signals := []model.Signal{
		{SupplierOrgID: "a", Severity: model.SeverityHigh, Description: "one", CreatedAt: same},
		{SupplierOrgID: "b", Severity: model.SeverityHigh, Description: "two", CreatedAt: same},
		{SupplierOrgID: "c", Severity: model.SeverityHigh, Description: "three", CreatedAt: same},
	}

	result := Aggregate(AggregateInput{Signals: signals})
	require.Len(t, result.Queue, 3)

	seen := map[string]bool{}
	for _, e := range result.Queue {
		assert.False(t, seen[e.Text], "duplicate queue entry %q", e.Text)
		seen[e.Text] = true
	}
}

func TestAggregate_Rows(t *testing.T) {
	subs := []model.Submission{
		{
			SupplierOrgID: "a", SupplierName: "ABC Farms", Status: model.SubmissionSubmitted,
			Price: f64(900), UpdatedAt: ts(1),
		},
		{
			SupplierOrgID: "b", SupplierName: "Quiet Co", Status: model.SubmissionInvited,
			UpdatedAt: ts(2),
		},
	}
	signals := []model.Signal{
		{SupplierOrgID: "a", Type: model.SignalCompression, Severity: model.SeverityMedium, CreatedAt: ts(1)},
		{SupplierOrgID: "a", Type: model.SignalAbsence, Severity: model.SeverityHigh, CreatedAt: ts(1)},
		{SupplierOrgID: "a", Type: model.SignalAbsence, Severity: model.SeverityHigh, CreatedAt: ts(2)},
	}
	questions := []model.Question{
		{SupplierOrgID: "a", Status: model.QuestionOpen},
		{SupplierOrgID: "a", Status: model.QuestionAnswered},
		{SupplierOrgID: "a", Status: model.QuestionOpen},
	}

	result := Aggregate(AggregateInput{
		BenchmarkAvgPrice: f64(1000),
		Submissions:       subs,
		Signals:           signals,
		Questions:         questions,
	})

	require.Len(t, result.Rows, 2)

	a := result.Rows[0]
	assert.Equal(t, "a", a.SupplierOrgID)
	require.NotNil(t, a.PriceDeltaPct)
	assert.Equal(t, -10, *a.PriceDeltaPct)
	assert.Equal(t, 2, a.ExposureCounts[model.SignalAbsence])
	assert.Equal(t, 1, a.ExposureCounts[model.SignalCompression])
	assert.Equal(t, 0, a.ExposureCounts[model.SignalMisalignment])
	assert.Equal(t, 0, a.ExposureCounts[model.SignalContradiction])
	assert.Equal(t, 2, a.OpenQuestions)

	// Supplier with no signals still gets a row with zeroed counts.
	b := result.Rows[1]
	assert.Equal(t, "b", b.SupplierOrgID)
	assert.Nil(t, b.PriceDeltaPct)
	assert.Len(t, b.ExposureCounts, 4)
	for st, n := range b.ExposureCounts {
		assert.Zero(t, n, "count for %q", st)
	}
	assert.Zero(t, b.OpenQuestions)
}

func TestAggregate_FixedCountKeys(t *testing.T) {
	subs := []model.Submission{{SupplierOrgID: "a", UpdatedAt: ts(1)}}
	signals := []model.Signal{
		{SupplierOrgID: "a", Type: model.SignalType("bogus"), Severity: model.SeverityLow, CreatedAt: ts(1)},
	}

	result := Aggregate(AggregateInput{Submissions: subs, Signals: signals})
	require.Len(t, result.Rows, 1)
	// Unrecognized types never become extra keys.
	assert.Len(t, result.Rows[0].ExposureCounts, 4)
}

func TestAggregate_NoBenchmark(t *testing.T) {
	subs := []model.Submission{
		{SupplierOrgID: "a", Price: f64(900), UpdatedAt: ts(1)},
		{SupplierOrgID: "b", Price: f64(1100), UpdatedAt: ts(2)},
	}

	result := Aggregate(AggregateInput{Submissions: subs})
	for _, row := range result.Rows {
		assert.Nil(t, row.PriceDeltaPct)
	}
}

func TestAggregate_EmptyInput(t *testing.T) {
	result := Aggregate(AggregateInput{})
	assert.Empty(t, result.Rows)
	assert.Empty(t, result.Queue)
}
