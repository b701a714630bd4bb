package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	mock := newMockPool(t)

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "evidence_snippets",
		Columns:      []string{"file_id", "chunk_id", "text"},
		ConflictKeys: []string{"file_id", "chunk_id"},
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	mock := newMockPool(t)

	_, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "evidence_snippets",
		ConflictKeys: []string{"file_id"},
	}, [][]any{{"file-1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	mock := newMockPool(t)

	_, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:   "evidence_snippets",
		Columns: []string{"file_id"},
	}, [][]any{{"file-1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys")
}

func TestBulkUpsert_TempTableFlow(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_evidence_snippets"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_evidence_snippets"},
		[]string{"file_id", "chunk_id", "text"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "evidence_snippets".+ON CONFLICT \("file_id", "chunk_id"\) DO UPDATE SET "text" = EXCLUDED\."text"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "evidence_snippets",
		Columns:      []string{"file_id", "chunk_id", "text"},
		ConflictKeys: []string{"file_id", "chunk_id"},
	}, [][]any{
		{"file-1", "c1", "zero landfill policy"},
		{"file-1", "c2", "palm free formulation"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
