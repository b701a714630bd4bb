package model

import "time"

// SignalType classifies a procurement exposure. The set is closed;
// the question generator and the aggregator switch exhaustively on it.
type SignalType string

const (
	SignalAbsence       SignalType = "absence"
	SignalMisalignment  SignalType = "misalignment"
	SignalContradiction SignalType = "contradiction"
	SignalCompression   SignalType = "compression"
)

// SignalTypes lists every valid type in a fixed order. Aggregation
// keys off this list so output maps never grow extra keys.
var SignalTypes = []SignalType{
	SignalAbsence,
	SignalMisalignment,
	SignalContradiction,
	SignalCompression,
}

// Valid reports whether t is a member of the closed type set.
func (t SignalType) Valid() bool {
	switch t {
	case SignalAbsence, SignalMisalignment, SignalContradiction, SignalCompression:
		return true
	}
	return false
}

// Severity grades how urgently a signal needs verification.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank returns the numeric ordering used by the verification queue:
// high=3, medium=2, low=1. Unknown severities rank 0 and sink.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// EvidenceRef points a signal at the snippet(s) that triggered it.
// Synthetic refs (price comparison, missing-certification fallback)
// use reserved file ids and carry only an excerpt.
type EvidenceRef struct {
	FileID  string `json:"file_id"`
	ChunkID string `json:"chunk_id,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

// Signal is a typed, evidenced finding on one supplier's submission.
// The generator fills type, severity, description, and evidence;
// identity and timestamps are assigned when the caller persists a
// generation batch.
type Signal struct {
	ID            string        `json:"id,omitempty"`
	BidID         string        `json:"bid_id,omitempty"`
	SupplierOrgID string        `json:"supplier_org_id,omitempty"`
	Type          SignalType    `json:"type"`
	Severity      Severity      `json:"severity"`
	Description   string        `json:"description"`
	EvidenceRefs  []EvidenceRef `json:"evidence_refs"`
	CreatedAt     time.Time     `json:"created_at,omitempty"`
}
