package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/meridian-sourcing/procure-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS bids (
	id             TEXT PRIMARY KEY,
	buyer_org_id   TEXT NOT NULL,
	title          TEXT NOT NULL,
	currency       TEXT NOT NULL DEFAULT 'GBP',
	benchmark_avg_price REAL,
	required_certifications TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS submissions (
	id              TEXT PRIMARY KEY,
	bid_id          TEXT NOT NULL REFERENCES bids(id),
	supplier_org_id TEXT NOT NULL,
	supplier_name   TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'invited',
	price           REAL,
	currency        TEXT NOT NULL DEFAULT 'GBP',
	shared_file_ids TEXT NOT NULL DEFAULT '[]',
	tier            TEXT,
	origin          TEXT,
	category        TEXT,
	commodity       TEXT,
	product         TEXT,
	readiness       TEXT,
	risk_themes     TEXT NOT NULL DEFAULT '[]',
	submitted_at    TEXT,
	updated_at      TEXT NOT NULL,
	UNIQUE(bid_id, supplier_org_id)
);

CREATE TABLE IF NOT EXISTS evidence_snippets (
	file_id  TEXT NOT NULL,
	chunk_id TEXT NOT NULL DEFAULT '',
	text     TEXT NOT NULL,
	UNIQUE(file_id, chunk_id)
);

CREATE TABLE IF NOT EXISTS signals (
	id              TEXT PRIMARY KEY,
	bid_id          TEXT NOT NULL,
	supplier_org_id TEXT NOT NULL,
	type            TEXT NOT NULL,
	severity        TEXT NOT NULL,
	description     TEXT NOT NULL,
	evidence_refs   TEXT NOT NULL DEFAULT '[]',
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
	id                  TEXT PRIMARY KEY,
	bid_id              TEXT NOT NULL,
	supplier_org_id     TEXT NOT NULL,
	text                TEXT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'open',
	linked_signal_index INTEGER NOT NULL,
	created_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS generations (
	id              TEXT PRIMARY KEY,
	bid_id          TEXT NOT NULL,
	supplier_org_id TEXT NOT NULL,
	summary         TEXT NOT NULL,
	signal_count    INTEGER NOT NULL,
	question_count  INTEGER NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_bid ON submissions(bid_id);
CREATE INDEX IF NOT EXISTS idx_signals_bid_supplier ON signals(bid_id, supplier_org_id);
CREATE INDEX IF NOT EXISTS idx_questions_bid_supplier ON questions(bid_id, supplier_org_id);
CREATE INDEX IF NOT EXISTS idx_evidence_file ON evidence_snippets(file_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateBid(ctx context.Context, bid model.Bid) (*model.Bid, error) {
	if bid.ID == "" {
		bid.ID = uuid.New().String()
	}
	certs, err := json.Marshal(bid.RequiredCertifications)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal certifications")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bids (id, buyer_org_id, title, currency, benchmark_avg_price, required_certifications)
		VALUES (?, ?, ?, ?, ?, ?)
	`, bid.ID, bid.BuyerOrgID, bid.Title, bid.Currency, bid.BenchmarkAvgPrice, string(certs))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert bid")
	}
	return &bid, nil
}

func (s *SQLiteStore) GetBid(ctx context.Context, bidID string) (*model.Bid, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, buyer_org_id, title, currency, benchmark_avg_price, required_certifications
		FROM bids WHERE id = ?
	`, bidID)
	return scanBid(row)
}

func (s *SQLiteStore) ListBids(ctx context.Context) ([]model.Bid, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, buyer_org_id, title, currency, benchmark_avg_price, required_certifications
		FROM bids ORDER BY title
	`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list bids")
	}
	defer rows.Close() //nolint:errcheck

	var bids []model.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *b)
	}
	return bids, eris.Wrap(rows.Err(), "sqlite: iterate bids")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBid(row rowScanner) (*model.Bid, error) {
	var b model.Bid
	var benchmark sql.NullFloat64
	var certs string
	if err := row.Scan(&b.ID, &b.BuyerOrgID, &b.Title, &b.Currency, &benchmark, &certs); err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.New("bid not found")
		}
		return nil, eris.Wrap(err, "sqlite: scan bid")
	}
	if benchmark.Valid {
		b.BenchmarkAvgPrice = &benchmark.Float64
	}
	if err := json.Unmarshal([]byte(certs), &b.RequiredCertifications); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal certifications")
	}
	return &b, nil
}

func (s *SQLiteStore) UpsertSubmission(ctx context.Context, sub model.Submission) (*model.Submission, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = time.Now().UTC()
	}

	fileIDs, err := json.Marshal(sub.SharedFileIDs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal file ids")
	}
	themes, err := json.Marshal(sub.RiskThemes)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal risk themes")
	}

	var submittedAt any
	if !sub.SubmittedAt.IsZero() {
		submittedAt = sub.SubmittedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submissions
			(id, bid_id, supplier_org_id, supplier_name, status, price, currency,
			 shared_file_ids, tier, origin, category, commodity, product, readiness,
			 risk_themes, submitted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bid_id, supplier_org_id) DO UPDATE SET
			supplier_name = excluded.supplier_name,
			status = excluded.status,
			price = excluded.price,
			currency = excluded.currency,
			shared_file_ids = excluded.shared_file_ids,
			tier = excluded.tier,
			origin = excluded.origin,
			category = excluded.category,
			commodity = excluded.commodity,
			product = excluded.product,
			readiness = excluded.readiness,
			risk_themes = excluded.risk_themes,
			submitted_at = excluded.submitted_at,
			updated_at = excluded.updated_at
	`, sub.ID, sub.BidID, sub.SupplierOrgID, sub.SupplierName, string(sub.Status), sub.Price,
		sub.Currency, string(fileIDs), sub.Tier, sub.Origin, sub.Category, sub.Commodity,
		sub.Product, string(sub.Readiness), string(themes), submittedAt,
		sub.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert submission")
	}
	return s.GetSubmission(ctx, sub.BidID, sub.SupplierOrgID)
}

const submissionColumns = `id, bid_id, supplier_org_id, supplier_name, status, price, currency,
	shared_file_ids, tier, origin, category, commodity, product, readiness,
	risk_themes, submitted_at, updated_at`

func (s *SQLiteStore) GetSubmission(ctx context.Context, bidID, supplierOrgID string) (*model.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE bid_id = ? AND supplier_org_id = ?`,
		bidID, supplierOrgID)
	sub, err := scanSubmission(row)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SQLiteStore) ListSubmissions(ctx context.Context, bidID string) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE bid_id = ? ORDER BY supplier_org_id`,
		bidID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list submissions")
	}
	defer rows.Close() //nolint:errcheck

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, eris.Wrap(rows.Err(), "sqlite: iterate submissions")
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	var sub model.Submission
	var price sql.NullFloat64
	var status, readiness, fileIDs, themes string
	var submittedAt sql.NullString
	var updatedAt string

	err := row.Scan(&sub.ID, &sub.BidID, &sub.SupplierOrgID, &sub.SupplierName, &status,
		&price, &sub.Currency, &fileIDs, &sub.Tier, &sub.Origin, &sub.Category,
		&sub.Commodity, &sub.Product, &readiness, &themes, &submittedAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.New("submission not found")
		}
		return nil, eris.Wrap(err, "sqlite: scan submission")
	}

	sub.Status = model.SubmissionStatus(status)
	sub.Readiness = model.Readiness(readiness)
	if price.Valid {
		sub.Price = &price.Float64
	}
	if err := json.Unmarshal([]byte(fileIDs), &sub.SharedFileIDs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal file ids")
	}
	if err := json.Unmarshal([]byte(themes), &sub.RiskThemes); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal risk themes")
	}
	if submittedAt.Valid {
		if sub.SubmittedAt, err = time.Parse(time.RFC3339Nano, submittedAt.String); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse submitted_at")
		}
	}
	if sub.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse updated_at")
	}
	return &sub, nil
}

func (s *SQLiteStore) AddEvidence(ctx context.Context, snippets []model.EvidenceSnippet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin evidence tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, sn := range snippets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO evidence_snippets (file_id, chunk_id, text) VALUES (?, ?, ?)
			ON CONFLICT(file_id, chunk_id) DO UPDATE SET text = excluded.text
		`, sn.FileID, sn.ChunkID, sn.Text); err != nil {
			return eris.Wrap(err, "sqlite: insert evidence")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit evidence")
}

func (s *SQLiteStore) ListEvidence(ctx context.Context, fileIDs []string) ([]model.EvidenceSnippet, error) {
	var snippets []model.EvidenceSnippet
	for _, fileID := range fileIDs {
		rows, err := s.db.QueryContext(ctx,
			`SELECT file_id, chunk_id, text FROM evidence_snippets WHERE file_id = ? ORDER BY chunk_id`,
			fileID)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list evidence")
		}
		for rows.Next() {
			var sn model.EvidenceSnippet
			if err := rows.Scan(&sn.FileID, &sn.ChunkID, &sn.Text); err != nil {
				rows.Close()
				return nil, eris.Wrap(err, "sqlite: scan evidence")
			}
			snippets = append(snippets, sn)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: iterate evidence")
		}
		rows.Close()
	}
	return snippets, nil
}

// ReplaceSignals deletes the supplier's prior signals for the bid and
// inserts the new batch in one transaction, assigning ids and a shared
// creation timestamp.
func (s *SQLiteStore) ReplaceSignals(ctx context.Context, bidID, supplierOrgID string, signals []model.Signal) ([]model.Signal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin signals tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM signals WHERE bid_id = ? AND supplier_org_id = ?`, bidID, supplierOrgID); err != nil {
		return nil, eris.Wrap(err, "sqlite: delete prior signals")
	}

	now := time.Now().UTC()
	out := make([]model.Signal, 0, len(signals))
	for _, sig := range signals {
		sig.ID = uuid.New().String()
		sig.BidID = bidID
		sig.SupplierOrgID = supplierOrgID
		sig.CreatedAt = now

		refs, err := json.Marshal(sig.EvidenceRefs)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal evidence refs")
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO signals (id, bid_id, supplier_org_id, type, severity, description, evidence_refs, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, sig.ID, sig.BidID, sig.SupplierOrgID, string(sig.Type), string(sig.Severity),
			sig.Description, string(refs), sig.CreatedAt.Format(time.RFC3339Nano)); err != nil {
			return nil, eris.Wrap(err, "sqlite: insert signal")
		}
		out = append(out, sig)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit signals")
	}
	return out, nil
}

func (s *SQLiteStore) ListSignals(ctx context.Context, bidID, supplierOrgID string) ([]model.Signal, error) {
	query := `SELECT id, bid_id, supplier_org_id, type, severity, description, evidence_refs, created_at
		FROM signals WHERE bid_id = ?`
	args := []any{bidID}
	if supplierOrgID != "" {
		query += ` AND supplier_org_id = ?`
		args = append(args, supplierOrgID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list signals")
	}
	defer rows.Close() //nolint:errcheck

	var signals []model.Signal
	for rows.Next() {
		var sig model.Signal
		var sigType, severity, refs, createdAt string
		if err := rows.Scan(&sig.ID, &sig.BidID, &sig.SupplierOrgID, &sigType, &severity,
			&sig.Description, &refs, &createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan signal")
		}
		sig.Type = model.SignalType(sigType)
		sig.Severity = model.Severity(severity)
		if err := json.Unmarshal([]byte(refs), &sig.EvidenceRefs); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal evidence refs")
		}
		if sig.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse signal created_at")
		}
		signals = append(signals, sig)
	}
	return signals, eris.Wrap(rows.Err(), "sqlite: iterate signals")
}

// ReplaceQuestions mirrors ReplaceSignals for the derived questions.
func (s *SQLiteStore) ReplaceQuestions(ctx context.Context, bidID, supplierOrgID string, questions []model.Question) ([]model.Question, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin questions tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM questions WHERE bid_id = ? AND supplier_org_id = ?`, bidID, supplierOrgID); err != nil {
		return nil, eris.Wrap(err, "sqlite: delete prior questions")
	}

	now := time.Now().UTC()
	out := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		q.ID = uuid.New().String()
		q.BidID = bidID
		q.SupplierOrgID = supplierOrgID
		if q.Status == "" {
			q.Status = model.QuestionOpen
		}
		q.CreatedAt = now

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO questions (id, bid_id, supplier_org_id, text, status, linked_signal_index, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, q.ID, q.BidID, q.SupplierOrgID, q.Text, string(q.Status), q.LinkedSignalIndex,
			q.CreatedAt.Format(time.RFC3339Nano)); err != nil {
			return nil, eris.Wrap(err, "sqlite: insert question")
		}
		out = append(out, q)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit questions")
	}
	return out, nil
}

func (s *SQLiteStore) ListQuestions(ctx context.Context, bidID, supplierOrgID string) ([]model.Question, error) {
	query := `SELECT id, bid_id, supplier_org_id, text, status, linked_signal_index, created_at
		FROM questions WHERE bid_id = ?`
	args := []any{bidID}
	if supplierOrgID != "" {
		query += ` AND supplier_org_id = ?`
		args = append(args, supplierOrgID)
	}
	query += ` ORDER BY created_at, linked_signal_index`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list questions")
	}
	defer rows.Close() //nolint:errcheck

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var status, createdAt string
		if err := rows.Scan(&q.ID, &q.BidID, &q.SupplierOrgID, &q.Text, &status,
			&q.LinkedSignalIndex, &createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan question")
		}
		q.Status = model.QuestionStatus(status)
		if q.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse question created_at")
		}
		questions = append(questions, q)
	}
	return questions, eris.Wrap(rows.Err(), "sqlite: iterate questions")
}

func (s *SQLiteStore) AnswerQuestion(ctx context.Context, questionID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE questions SET status = ? WHERE id = ?`, string(model.QuestionAnswered), questionID)
	if err != nil {
		return eris.Wrap(err, "sqlite: answer question")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: answer question rows affected")
	}
	if n == 0 {
		return eris.Errorf("question %s not found", questionID)
	}
	return nil
}

func (s *SQLiteStore) SaveGeneration(ctx context.Context, gen model.Generation) (*model.Generation, error) {
	if gen.ID == "" {
		gen.ID = uuid.New().String()
	}
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generations (id, bid_id, supplier_org_id, summary, signal_count, question_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, gen.ID, gen.BidID, gen.SupplierOrgID, gen.Summary, gen.SignalCount, gen.QuestionCount,
		gen.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert generation")
	}
	return &gen, nil
}
