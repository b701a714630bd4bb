package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/meridian-sourcing/procure-cli/internal/db"
	"github.com/meridian-sourcing/procure-cli/internal/model"
	"github.com/meridian-sourcing/procure-cli/internal/resilience"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	// The database may still be coming up when we connect.
	pingCfg := resilience.DefaultRetryConfig()
	pingCfg.OnRetry = resilience.RetryLogger("store", "ping")
	if err := resilience.Do(ctx, pingCfg, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS bids (
	id             TEXT PRIMARY KEY,
	buyer_org_id   TEXT NOT NULL,
	title          TEXT NOT NULL,
	currency       TEXT NOT NULL DEFAULT 'GBP',
	benchmark_avg_price DOUBLE PRECISION,
	required_certifications JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS submissions (
	id              TEXT PRIMARY KEY,
	bid_id          TEXT NOT NULL REFERENCES bids(id),
	supplier_org_id TEXT NOT NULL,
	supplier_name   TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'invited',
	price           DOUBLE PRECISION,
	currency        TEXT NOT NULL DEFAULT 'GBP',
	shared_file_ids JSONB NOT NULL DEFAULT '[]',
	tier            TEXT,
	origin          TEXT,
	category        TEXT,
	commodity       TEXT,
	product         TEXT,
	readiness       TEXT,
	risk_themes     JSONB NOT NULL DEFAULT '[]',
	submitted_at    TIMESTAMPTZ,
	updated_at      TIMESTAMPTZ NOT NULL,
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
	evidence_refs   JSONB NOT NULL DEFAULT '[]',
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
	id                  TEXT PRIMARY KEY,
	bid_id              TEXT NOT NULL,
	supplier_org_id     TEXT NOT NULL,
	text                TEXT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'open',
	linked_signal_index INTEGER NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS generations (
	id              TEXT PRIMARY KEY,
	bid_id          TEXT NOT NULL,
	supplier_org_id TEXT NOT NULL,
	summary         TEXT NOT NULL,
	signal_count    INTEGER NOT NULL,
	question_count  INTEGER NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_bid ON submissions(bid_id);
CREATE INDEX IF NOT EXISTS idx_signals_bid_supplier ON signals(bid_id, supplier_org_id);
CREATE INDEX IF NOT EXISTS idx_questions_bid_supplier ON questions(bid_id, supplier_org_id);
CREATE INDEX IF NOT EXISTS idx_evidence_file ON evidence_snippets(file_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateBid(ctx context.Context, bid model.Bid) (*model.Bid, error) {
	if bid.ID == "" {
		bid.ID = uuid.New().String()
	}
	certs, err := json.Marshal(bid.RequiredCertifications)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal certifications")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO bids (id, buyer_org_id, title, currency, benchmark_avg_price, required_certifications)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, bid.ID, bid.BuyerOrgID, bid.Title, bid.Currency, bid.BenchmarkAvgPrice, certs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert bid")
	}
	return &bid, nil
}

func (s *PostgresStore) GetBid(ctx context.Context, bidID string) (*model.Bid, error) {
	var b model.Bid
	var certs []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, buyer_org_id, title, currency, benchmark_avg_price, required_certifications
		FROM bids WHERE id = $1
	`, bidID).Scan(&b.ID, &b.BuyerOrgID, &b.Title, &b.Currency, &b.BenchmarkAvgPrice, &certs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("bid %s not found", bidID)
		}
		return nil, eris.Wrap(err, "postgres: get bid")
	}
	if err := json.Unmarshal(certs, &b.RequiredCertifications); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal certifications")
	}
	return &b, nil
}

func (s *PostgresStore) ListBids(ctx context.Context) ([]model.Bid, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, buyer_org_id, title, currency, benchmark_avg_price, required_certifications
		FROM bids ORDER BY title
	`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list bids")
	}
	defer rows.Close()

	var bids []model.Bid
	for rows.Next() {
		var b model.Bid
		var certs []byte
		if err := rows.Scan(&b.ID, &b.BuyerOrgID, &b.Title, &b.Currency, &b.BenchmarkAvgPrice, &certs); err != nil {
			return nil, eris.Wrap(err, "postgres: scan bid")
		}
		if err := json.Unmarshal(certs, &b.RequiredCertifications); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal certifications")
		}
		bids = append(bids, b)
	}
	return bids, eris.Wrap(rows.Err(), "postgres: iterate bids")
}

const pgSubmissionColumns = `id, bid_id, supplier_org_id, supplier_name, status, price, currency,
	shared_file_ids, tier, origin, category, commodity, product, readiness,
	risk_themes, submitted_at, updated_at`

func (s *PostgresStore) UpsertSubmission(ctx context.Context, sub model.Submission) (*model.Submission, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = time.Now().UTC()
	}

	fileIDs, err := json.Marshal(sub.SharedFileIDs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal file ids")
	}
	themes, err := json.Marshal(sub.RiskThemes)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal risk themes")
	}

	var submittedAt *time.Time
	if !sub.SubmittedAt.IsZero() {
		t := sub.SubmittedAt.UTC()
		submittedAt = &t
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO submissions
			(id, bid_id, supplier_org_id, supplier_name, status, price, currency,
			 shared_file_ids, tier, origin, category, commodity, product, readiness,
			 risk_themes, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (bid_id, supplier_org_id) DO UPDATE SET
			supplier_name = EXCLUDED.supplier_name,
			status = EXCLUDED.status,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			shared_file_ids = EXCLUDED.shared_file_ids,
			tier = EXCLUDED.tier,
			origin = EXCLUDED.origin,
			category = EXCLUDED.category,
			commodity = EXCLUDED.commodity,
			product = EXCLUDED.product,
			readiness = EXCLUDED.readiness,
			risk_themes = EXCLUDED.risk_themes,
			submitted_at = EXCLUDED.submitted_at,
			updated_at = EXCLUDED.updated_at
	`, sub.ID, sub.BidID, sub.SupplierOrgID, sub.SupplierName, string(sub.Status), sub.Price,
		sub.Currency, fileIDs, sub.Tier, sub.Origin, sub.Category, sub.Commodity,
		sub.Product, string(sub.Readiness), themes, submittedAt, sub.UpdatedAt.UTC())
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert submission")
	}
	return s.GetSubmission(ctx, sub.BidID, sub.SupplierOrgID)
}

func (s *PostgresStore) GetSubmission(ctx context.Context, bidID, supplierOrgID string) (*model.Submission, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgSubmissionColumns+` FROM submissions WHERE bid_id = $1 AND supplier_org_id = $2`,
		bidID, supplierOrgID)
	sub, err := scanPgSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("submission for supplier %s not found", supplierOrgID)
		}
		return nil, err
	}
	return sub, nil
}

func (s *PostgresStore) ListSubmissions(ctx context.Context, bidID string) ([]model.Submission, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgSubmissionColumns+` FROM submissions WHERE bid_id = $1 ORDER BY supplier_org_id`,
		bidID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list submissions")
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanPgSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, eris.Wrap(rows.Err(), "postgres: iterate submissions")
}

func scanPgSubmission(row pgx.Row) (*model.Submission, error) {
	var sub model.Submission
	var status, readiness string
	var tier, origin, category, commodity, product *string
	var fileIDs, themes []byte
	var submittedAt *time.Time

	err := row.Scan(&sub.ID, &sub.BidID, &sub.SupplierOrgID, &sub.SupplierName, &status,
		&sub.Price, &sub.Currency, &fileIDs, &tier, &origin, &category,
		&commodity, &product, &readiness, &themes, &submittedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan submission")
	}

	sub.Status = model.SubmissionStatus(status)
	sub.Readiness = model.Readiness(readiness)
	sub.Tier = deref(tier)
	sub.Origin = deref(origin)
	sub.Category = deref(category)
	sub.Commodity = deref(commodity)
	sub.Product = deref(product)
	if err := json.Unmarshal(fileIDs, &sub.SharedFileIDs); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal file ids")
	}
	if err := json.Unmarshal(themes, &sub.RiskThemes); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal risk themes")
	}
	if submittedAt != nil {
		sub.SubmittedAt = *submittedAt
	}
	return &sub, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *PostgresStore) AddEvidence(ctx context.Context, snippets []model.EvidenceSnippet) error {
	rows := make([][]any, 0, len(snippets))
	for _, sn := range snippets {
		rows = append(rows, []any{sn.FileID, sn.ChunkID, sn.Text})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "evidence_snippets",
		Columns:      []string{"file_id", "chunk_id", "text"},
		ConflictKeys: []string{"file_id", "chunk_id"},
	}, rows)
	return eris.Wrap(err, "postgres: add evidence")
}

func (s *PostgresStore) ListEvidence(ctx context.Context, fileIDs []string) ([]model.EvidenceSnippet, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT file_id, chunk_id, text FROM evidence_snippets
		WHERE file_id = ANY($1) ORDER BY file_id, chunk_id
	`, fileIDs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evidence")
	}
	defer rows.Close()

	var snippets []model.EvidenceSnippet
	for rows.Next() {
		var sn model.EvidenceSnippet
		if err := rows.Scan(&sn.FileID, &sn.ChunkID, &sn.Text); err != nil {
			return nil, eris.Wrap(err, "postgres: scan evidence")
		}
		snippets = append(snippets, sn)
	}
	return snippets, eris.Wrap(rows.Err(), "postgres: iterate evidence")
}

func (s *PostgresStore) ReplaceSignals(ctx context.Context, bidID, supplierOrgID string, signals []model.Signal) ([]model.Signal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin signals tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`DELETE FROM signals WHERE bid_id = $1 AND supplier_org_id = $2`, bidID, supplierOrgID); err != nil {
		return nil, eris.Wrap(err, "postgres: delete prior signals")
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
			return nil, eris.Wrap(err, "postgres: marshal evidence refs")
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO signals (id, bid_id, supplier_org_id, type, severity, description, evidence_refs, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, sig.ID, sig.BidID, sig.SupplierOrgID, string(sig.Type), string(sig.Severity),
			sig.Description, refs, sig.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: insert signal")
		}
		out = append(out, sig)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit signals")
	}
	return out, nil
}

func (s *PostgresStore) ListSignals(ctx context.Context, bidID, supplierOrgID string) ([]model.Signal, error) {
	query := `SELECT id, bid_id, supplier_org_id, type, severity, description, evidence_refs, created_at
		FROM signals WHERE bid_id = $1`
	args := []any{bidID}
	if supplierOrgID != "" {
		query += ` AND supplier_org_id = $2`
		args = append(args, supplierOrgID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list signals")
	}
	defer rows.Close()

	var signals []model.Signal
	for rows.Next() {
		var sig model.Signal
		var sigType, severity string
		var refs []byte
		if err := rows.Scan(&sig.ID, &sig.BidID, &sig.SupplierOrgID, &sigType, &severity,
			&sig.Description, &refs, &sig.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan signal")
		}
		sig.Type = model.SignalType(sigType)
		sig.Severity = model.Severity(severity)
		if err := json.Unmarshal(refs, &sig.EvidenceRefs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal evidence refs")
		}
		signals = append(signals, sig)
	}
	return signals, eris.Wrap(rows.Err(), "postgres: iterate signals")
}

func (s *PostgresStore) ReplaceQuestions(ctx context.Context, bidID, supplierOrgID string, questions []model.Question) ([]model.Question, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin questions tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`DELETE FROM questions WHERE bid_id = $1 AND supplier_org_id = $2`, bidID, supplierOrgID); err != nil {
		return nil, eris.Wrap(err, "postgres: delete prior questions")
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

		if _, err := tx.Exec(ctx, `
			INSERT INTO questions (id, bid_id, supplier_org_id, text, status, linked_signal_index, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, q.ID, q.BidID, q.SupplierOrgID, q.Text, string(q.Status), q.LinkedSignalIndex, q.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: insert question")
		}
		out = append(out, q)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit questions")
	}
	return out, nil
}

func (s *PostgresStore) ListQuestions(ctx context.Context, bidID, supplierOrgID string) ([]model.Question, error) {
	query := `SELECT id, bid_id, supplier_org_id, text, status, linked_signal_index, created_at
		FROM questions WHERE bid_id = $1`
	args := []any{bidID}
	if supplierOrgID != "" {
		query += ` AND supplier_org_id = $2`
		args = append(args, supplierOrgID)
	}
	query += ` ORDER BY created_at, linked_signal_index`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list questions")
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var status string
		if err := rows.Scan(&q.ID, &q.BidID, &q.SupplierOrgID, &q.Text, &status,
			&q.LinkedSignalIndex, &q.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan question")
		}
		q.Status = model.QuestionStatus(status)
		questions = append(questions, q)
	}
	return questions, eris.Wrap(rows.Err(), "postgres: iterate questions")
}

func (s *PostgresStore) AnswerQuestion(ctx context.Context, questionID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE questions SET status = $1 WHERE id = $2`, string(model.QuestionAnswered), questionID)
	if err != nil {
		return eris.Wrap(err, "postgres: answer question")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("question %s not found", questionID)
	}
	return nil
}

func (s *PostgresStore) SaveGeneration(ctx context.Context, gen model.Generation) (*model.Generation, error) {
	if gen.ID == "" {
		gen.ID = uuid.New().String()
	}
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO generations (id, bid_id, supplier_org_id, summary, signal_count, question_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, gen.ID, gen.BidID, gen.SupplierOrgID, gen.Summary, gen.SignalCount, gen.QuestionCount, gen.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert generation")
	}
	return &gen, nil
}
