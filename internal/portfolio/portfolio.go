// Package portfolio rolls a bid's per-supplier signals into an
// exposure overview: one row per supplier with counts and price-delta
// metrics, plus a severity-ranked verification queue across all
// suppliers. All computation is pure and recomputed on every call;
// nothing here has an independent lifecycle.
package portfolio

import (
	"math"
	"sort"
	"time"

	"github.com/meridian-sourcing/procure-cli/internal/model"
)

// DefaultQueueLimit bounds the verification queue.
const DefaultQueueLimit = 10

// ExposureRow is the per-supplier aggregation output.
type ExposureRow struct {
	SupplierOrgID  string                   `json:"supplier_org_id"`
	SupplierName   string                   `json:"supplier_name"`
	Status         model.SubmissionStatus   `json:"status"`
	Price          *float64                 `json:"price,omitempty"`
	PriceDeltaPct  *int                     `json:"price_delta_pct,omitempty"`
	ExposureCounts map[model.SignalType]int `json:"exposure_counts"`
	OpenQuestions  int                      `json:"open_questions"`
	LastUpdated    time.Time                `json:"last_updated"`
}

// QueueEntry is one item in the verification queue.
type QueueEntry struct {
	SupplierOrgID string         `json:"supplier_org_id"`
	Severity      model.Severity `json:"severity"`
	Text          string         `json:"text"`
}

// AggregateInput scopes an aggregation to one bid. Submissions may be
// pre-filtered by query constraints before they reach here. QueueLimit
// zero means DefaultQueueLimit.
type AggregateInput struct {
	BenchmarkAvgPrice *float64
	Submissions       []model.Submission
	Signals           []model.Signal
	Questions         []model.Question
	QueueLimit        int
}

// Result pairs the per-supplier rows with the ranked queue.
type Result struct {
	Rows  []ExposureRow `json:"rows"`
	Queue []QueueEntry  `json:"queue"`
}

// Aggregate computes one row per submission (in input order) and the
// ranked verification queue. An empty submission set yields empty
// rows and queue; suppliers with zero signals still get a row with
// all-zero counts.
func Aggregate(in AggregateInput) Result {
	signalsBySupplier := make(map[string][]model.Signal, len(in.Submissions))
	for _, s := range in.Signals {
		signalsBySupplier[s.SupplierOrgID] = append(signalsBySupplier[s.SupplierOrgID], s)
	}

	openBySupplier := make(map[string]int)
	for _, q := range in.Questions {
		if q.Status == model.QuestionOpen {
			openBySupplier[q.SupplierOrgID]++
		}
	}

	rows := make([]ExposureRow, 0, len(in.Submissions))
	for _, sub := range in.Submissions {
		counts := make(map[model.SignalType]int, len(model.SignalTypes))
		for _, st := range model.SignalTypes {
			counts[st] = 0
		}
		for _, sig := range signalsBySupplier[sub.SupplierOrgID] {
			if sig.Type.Valid() {
				counts[sig.Type]++
			}
		}

		rows = append(rows, ExposureRow{
			SupplierOrgID:  sub.SupplierOrgID,
			SupplierName:   sub.SupplierName,
			Status:         sub.Status,
			Price:          sub.Price,
			PriceDeltaPct:  PriceDeltaPct(sub.Price, in.BenchmarkAvgPrice),
			ExposureCounts: counts,
			OpenQuestions:  openBySupplier[sub.SupplierOrgID],
			LastUpdated:    sub.UpdatedAt,
		})
	}

	return Result{
		Rows:  rows,
		Queue: buildQueue(in.Signals, in.QueueLimit),
	}
}

// PriceDeltaPct returns the rounded percentage delta of price against
// benchmark, or nil when either side is missing or the benchmark is
// zero. Rounding is half away from zero.
func PriceDeltaPct(price, benchmark *float64) *int {
	if price == nil || benchmark == nil || *benchmark == 0 {
		return nil
	}
	delta := int(math.Round((*price - *benchmark) / *benchmark * 100))
	return &delta
}

// buildQueue orders all signals by severity rank descending, then
// creation time descending (most recent first), and truncates to the
// limit. The stable sort keeps relative input order for full ties
// without duplicating or dropping entries.
func buildQueue(signals []model.Signal, limit int) []QueueEntry {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}

	ordered := make([]model.Signal, len(signals))
	copy(ordered, signals)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := ordered[i].Severity.Rank(), ordered[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	queue := make([]QueueEntry, 0, len(ordered))
	for _, s := range ordered {
		queue = append(queue, QueueEntry{
			SupplierOrgID: s.SupplierOrgID,
			Severity:      s.Severity,
			Text:          s.Description,
		})
	}
	return queue
}
