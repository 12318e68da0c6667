package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"markui/internal/model"
	"markui/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var documentCols = []string{"id", "filename", "storage_path", "size", "content_type", "total_pages", "created_at", "last_accessed_at", "processed"}

func docRow(d *model.Document) *sqlmock.Rows {
	return sqlmock.NewRows(documentCols).
		AddRow(d.ID, d.Filename, d.StoragePath, d.Size, d.ContentType, d.TotalPages, d.CreatedAt, d.LastAccessedAt, d.Processed)
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	doc := &model.Document{
		ID:             "test-uuid",
		Filename:       "report.pdf",
		StoragePath:    "documents/test-uuid.pdf",
		Size:           123,
		ContentType:    "application/pdf",
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(doc.ID, doc.Filename, doc.StoragePath, doc.Size, doc.ContentType, doc.TotalPages, doc.CreatedAt, doc.LastAccessedAt, doc.Processed).
		WillReturnRows(docRow(doc))

	result, err := repo.Create(ctx, doc)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, doc.ID, result.ID)
	assert.Equal(t, doc.LastAccessedAt, result.LastAccessedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		now := time.Now().UTC()
		doc := &model.Document{
			ID:             "doc-1",
			Filename:       "a.pdf",
			StoragePath:    "documents/a.pdf",
			Size:           10,
			ContentType:    "application/pdf",
			CreatedAt:      now,
			LastAccessedAt: now,
			Processed:      true,
		}

		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs("doc-1").
			WillReturnRows(docRow(doc))

		got, err := repo.FindByID(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "doc-1", got.ID)
		assert.True(t, got.Processed)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_ListAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentCols).
		AddRow("doc-1", "a.pdf", "documents/a.pdf", int64(10), "application/pdf", nil, now.Add(-time.Hour), now, false).
		AddRow("doc-2", "b.pdf", "documents/b.pdf", int64(20), "application/pdf", nil, now, now, true)

	mock.ExpectQuery("SELECT (.+) FROM documents").WillReturnRows(rows)

	items, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "doc-1", items[0].ID)
	assert.Equal(t, int64(20), items[1].Size)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Aggregate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("counts and sums", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(SUM\(size\), 0\) FROM documents`).
			WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(3, int64(4096)))

		count, totalBytes, err := repo.Aggregate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.Equal(t, int64(4096), totalBytes)
	})

	t.Run("empty table sums to zero", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(SUM\(size\), 0\) FROM documents`).
			WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(0, int64(0)))

		count, totalBytes, err := repo.Aggregate(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Zero(t, totalBytes)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("deletes existing row", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents").
			WithArgs("doc-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(ctx, "doc-1"))
	})

	t.Run("missing row reports ErrNotFound", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents").
			WithArgs("gone").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Delete(ctx, "gone"), repository.ErrNotFound)
	})

	t.Run("exec error propagates", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents").
			WithArgs("doc-1").
			WillReturnError(errors.New("connection reset"))

		err := repo.Delete(ctx, "doc-1")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_TouchAccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE documents SET last_accessed_at = GREATEST").
		WithArgs("doc-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.TouchAccess(ctx, "doc-1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_MarkProcessed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE documents SET processed = TRUE").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.MarkProcessed(ctx, "doc-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
