package repository

import (
	"context"
	"time"

	"markui/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here — strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record.
	// The caller should provide required fields (e.g., ID, CreatedAt) according to the database schema defaults.
	// Returns the stored document (may include values set by the DB).
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns a paginated list of documents and total rows count for the given filter.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// ListAll returns every live document record. Used by the retention pass,
	// which needs the full candidate set rather than a page.
	ListAll(ctx context.Context) ([]model.Document, error)

	// Aggregate returns the live record count and the sum of sizes in bytes
	// as a single query, so the caller never derives totals from a stale scan.
	Aggregate(ctx context.Context) (count int, totalBytes int64, err error)

	// Delete removes a document by ID. It returns ErrNotFound when no row was
	// deleted, so two paths racing over the same id can tell who won.
	Delete(ctx context.Context, id string) error

	// TouchAccess bumps last_accessed_at to at. The column never moves
	// backwards, even if callers race with out-of-order timestamps.
	TouchAccess(ctx context.Context, id string, at time.Time) error

	// MarkProcessed flips the processed flag to true. One-way; calling it on
	// an already processed document is a no-op.
	MarkProcessed(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
