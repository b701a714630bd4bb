package model

import "time"

// Generation records one signal-generation pass for a (bid, supplier)
// pair: its one-line summary and what it produced. Each pass fully
// replaces the previous one's signals and questions.
type Generation struct {
	ID            string    `json:"id"`
	BidID         string    `json:"bid_id"`
	SupplierOrgID string    `json:"supplier_org_id"`
	Summary       string    `json:"summary"`
	SignalCount   int       `json:"signal_count"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}
