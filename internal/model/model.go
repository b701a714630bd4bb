// Package model holds the domain records shared across the detection
// pipeline: bids, supplier submissions, evidence snippets, and the
// clarification questions derived from signals.
package model

import "time"

// SubmissionStatus represents where a supplier submission sits in the
// bid lifecycle.
type SubmissionStatus string

const (
	SubmissionInvited       SubmissionStatus = "invited"
	SubmissionSubmitted     SubmissionStatus = "submitted"
	SubmissionInReview      SubmissionStatus = "in_review"
	SubmissionClarification SubmissionStatus = "clarification"
)

// Readiness is the coarse risk tier assigned to a submission.
type Readiness string

const (
	ReadinessGreen  Readiness = "Green"
	ReadinessYellow Readiness = "Yellow"
	ReadinessOrange Readiness = "Orange"
	ReadinessRed    Readiness = "Red"
)

// QuestionStatus tracks whether a clarification question has been
// answered by the supplier.
type QuestionStatus string

const (
	QuestionOpen     QuestionStatus = "open"
	QuestionAnswered QuestionStatus = "answered"
)

// Bid is the buyer-side tender a set of suppliers submit against.
// Benchmark and required certifications drive signal generation.
type Bid struct {
	ID                     string   `json:"id"`
	BuyerOrgID             string   `json:"buyer_org_id"`
	Title                  string   `json:"title"`
	Currency               string   `json:"currency"`
	BenchmarkAvgPrice      *float64 `json:"benchmark_avg_price,omitempty"`
	RequiredCertifications []string `json:"required_certifications"`
}

// Submission is one supplier's response to a bid. Created on invite,
// mutated on submit, never deleted; a re-submission supersedes the
// prior one in place.
type Submission struct {
	ID            string           `json:"id"`
	BidID         string           `json:"bid_id"`
	SupplierOrgID string           `json:"supplier_org_id"`
	SupplierName  string           `json:"supplier_name"`
	Status        SubmissionStatus `json:"status"`
	Price         *float64         `json:"price,omitempty"`
	Currency      string           `json:"currency"`
	SharedFileIDs []string         `json:"shared_file_ids"`

	// Monitor metadata used by query-constraint filtering.
	Tier       string    `json:"tier,omitempty"` // "1", "2", "3+"
	Origin     string    `json:"origin,omitempty"`
	Category   string    `json:"category,omitempty"`
	Commodity  string    `json:"commodity,omitempty"`
	Product    string    `json:"product,omitempty"`
	Readiness  Readiness `json:"readiness,omitempty"`
	RiskThemes []string  `json:"risk_themes,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EvidenceSnippet is a chunk of text from a document the supplier
// shared on a submission. Read-only input sourced from the document
// store.
type EvidenceSnippet struct {
	FileID  string `json:"file_id"`
	ChunkID string `json:"chunk_id,omitempty"`
	Text    string `json:"text"`
}

// Question is a clarification request derived from a signal.
// LinkedSignalIndex is the position of the generating signal within
// the same generation batch.
type Question struct {
	ID                string         `json:"id"`
	BidID             string         `json:"bid_id"`
	SupplierOrgID     string         `json:"supplier_org_id"`
	Text              string         `json:"text"`
	Status            QuestionStatus `json:"status"`
	LinkedSignalIndex int            `json:"linked_signal_index"`
	CreatedAt         time.Time      `json:"created_at"`
}
