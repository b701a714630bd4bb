// Package store persists bids, submissions, evidence, and the derived
// signals and questions. The detection core never touches it; commands
// read inputs here, run the pure generators, and write results back.
// Regeneration is full-replace: ReplaceSignals and ReplaceQuestions
// delete the prior batch and insert the new one in a single
// transaction, so stale findings never survive a re-run.
package store

import (
	"context"

	"github.com/meridian-sourcing/procure-cli/internal/model"
)

// Store is the persistence interface for the procurement monitor.
type Store interface {
	// Bids
	CreateBid(ctx context.Context, bid model.Bid) (*model.Bid, error)
	GetBid(ctx context.Context, bidID string) (*model.Bid, error)
	ListBids(ctx context.Context) ([]model.Bid, error)

	// Submissions
	UpsertSubmission(ctx context.Context, sub model.Submission) (*model.Submission, error)
	GetSubmission(ctx context.Context, bidID, supplierOrgID string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, bidID string) ([]model.Submission, error)

	// Evidence snippets, keyed by shared file id
	AddEvidence(ctx context.Context, snippets []model.EvidenceSnippet) error
	ListEvidence(ctx context.Context, fileIDs []string) ([]model.EvidenceSnippet, error)

	// Derived signals and questions. Replace* implements the
	// clear-then-write contract for one (bid, supplier) pair and
	// returns the records with assigned ids and timestamps.
	ReplaceSignals(ctx context.Context, bidID, supplierOrgID string, signals []model.Signal) ([]model.Signal, error)
	ListSignals(ctx context.Context, bidID, supplierOrgID string) ([]model.Signal, error)
	ReplaceQuestions(ctx context.Context, bidID, supplierOrgID string, questions []model.Question) ([]model.Question, error)
	ListQuestions(ctx context.Context, bidID, supplierOrgID string) ([]model.Question, error)
	AnswerQuestion(ctx context.Context, questionID string) error

	// Generation log
	SaveGeneration(ctx context.Context, gen model.Generation) (*model.Generation, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
