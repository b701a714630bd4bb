// Package pipeline orchestrates a generation run: load the bid,
// submission, and evidence, run the detection rules, derive questions,
// and persist the replacement batch.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/meridian-sourcing/procure-cli/internal/engine"
	"github.com/meridian-sourcing/procure-cli/internal/model"
	"github.com/meridian-sourcing/procure-cli/internal/nlq"
	"github.com/meridian-sourcing/procure-cli/internal/portfolio"
	"github.com/meridian-sourcing/procure-cli/internal/question"
	"github.com/meridian-sourcing/procure-cli/internal/store"
)

// Runner ties the detection engine to a store.
type Runner struct {
	Store      store.Store
	Rules      engine.RuleConfig
	QueueLimit int
}

func New(st store.Store, rules engine.RuleConfig, queueLimit int) *Runner {
	return &Runner{Store: st, Rules: rules, QueueLimit: queueLimit}
}

// GenerateResult is the outcome of one generation run for a supplier.
type GenerateResult struct {
	Generation *model.Generation `json:"generation"`
	Signals    []model.Signal    `json:"signals"`
	Questions  []model.Question  `json:"questions"`
}

// GenerateForSupplier re-derives signals and questions for one
// submission. The previous batch for the pair is fully replaced.
func (r *Runner) GenerateForSupplier(ctx context.Context, bidID, supplierOrgID string) (*GenerateResult, error) {
	log := zap.L().With(zap.String("bid_id", bidID), zap.String("supplier_org_id", supplierOrgID))

	bid, err := r.Store.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	sub, err := r.Store.GetSubmission(ctx, bidID, supplierOrgID)
	if err != nil {
		return nil, err
	}
	snippets, err := r.Store.ListEvidence(ctx, sub.SharedFileIDs)
	if err != nil {
		return nil, err
	}

	signals := engine.Generate(engine.GenerateInput{
		BenchmarkAvgPrice:      bid.BenchmarkAvgPrice,
		SupplierPrice:          sub.Price,
		RequiredCertifications: bid.RequiredCertifications,
		Snippets:               snippets,
	}, r.Rules)

	saved, err := r.Store.ReplaceSignals(ctx, bidID, supplierOrgID, signals)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: replace signals")
	}

	texts := question.FromSignals(saved)
	questions := make([]model.Question, len(texts))
	for i, text := range texts {
		questions[i] = model.Question{Text: text, LinkedSignalIndex: i}
	}
	savedQs, err := r.Store.ReplaceQuestions(ctx, bidID, supplierOrgID, questions)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: replace questions")
	}

	gen, err := r.Store.SaveGeneration(ctx, model.Generation{
		BidID:         bidID,
		SupplierOrgID: supplierOrgID,
		Summary:       engine.Summary(saved),
		SignalCount:   len(saved),
		QuestionCount: len(savedQs),
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: save generation")
	}

	log.Info("generation complete",
		zap.Int("signals", len(saved)),
		zap.Int("questions", len(savedQs)),
	)

	return &GenerateResult{Generation: gen, Signals: saved, Questions: savedQs}, nil
}

// Portfolio builds the exposure view for a bid, optionally narrowed by
// a natural-language query.
func (r *Runner) Portfolio(ctx context.Context, bidID, query string, now time.Time) (portfolio.Result, error) {
	bid, err := r.Store.GetBid(ctx, bidID)
	if err != nil {
		return portfolio.Result{}, err
	}
	subs, err := r.Store.ListSubmissions(ctx, bidID)
	if err != nil {
		return portfolio.Result{}, err
	}

	if query != "" {
		c := nlq.Parse(query, now)
		subs = nlq.Filter(subs, c)
		zap.L().Debug("portfolio query applied",
			zap.String("query", query),
			zap.Int("matched", len(subs)),
		)
	}

	signals, err := r.Store.ListSignals(ctx, bidID, "")
	if err != nil {
		return portfolio.Result{}, err
	}
	questions, err := r.Store.ListQuestions(ctx, bidID, "")
	if err != nil {
		return portfolio.Result{}, err
	}

	// Keep only records for suppliers that survived the filter so the
	// queue cannot surface suppliers absent from the rows.
	included := make(map[string]bool, len(subs))
	for _, sub := range subs {
		included[sub.SupplierOrgID] = true
	}
	signals = filterSignals(signals, included)
	questions = filterQuestions(questions, included)

	return portfolio.Aggregate(portfolio.AggregateInput{
		BenchmarkAvgPrice: bid.BenchmarkAvgPrice,
		Submissions:       subs,
		Signals:           signals,
		Questions:         questions,
		QueueLimit:        r.QueueLimit,
	}), nil
}

func filterSignals(signals []model.Signal, included map[string]bool) []model.Signal {
	out := signals[:0]
	for _, s := range signals {
		if included[s.SupplierOrgID] {
			out = append(out, s)
		}
	}
	return out
}

func filterQuestions(questions []model.Question, included map[string]bool) []model.Question {
	out := questions[:0]
	for _, q := range questions {
		if included[q.SupplierOrgID] {
			out = append(out, q)
		}
	}
	return out
}
