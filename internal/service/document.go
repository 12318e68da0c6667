package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"markui/internal/model"
	"markui/internal/repository"
	"markui/internal/storage"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("document not found")
	ErrReaderNil  = errors.New("reader is nil")
)

// CleanupTrigger is the reactive hook into the retention subsystem. The
// upload path fires it after each successful upload; the call must not
// block.
type CleanupTrigger interface {
	NotifyUpload()
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload uploads the content to object storage, saves metadata to DB, and rolls back storage if DB save fails.
	// - originalFilename is kept for display; the stored object key is UUID + original extension.
	// After a successful upload the retention subsystem is notified.
	Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error)

	// List returns documents using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// Get returns a single document by its ID and records the access.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Open returns the document content for streaming (preview/download)
	// and records the access. The caller closes the reader.
	Open(ctx context.Context, id string) (io.ReadCloser, *model.Document, error)

	// Delete removes a document by ID from both storage and repository.
	// User-initiated: it bypasses retention scoring entirely.
	Delete(ctx context.Context, id string) error

	// MarkProcessed flips the processed flag once a conversion referencing
	// the document has completed. One-way, idempotent.
	MarkProcessed(ctx context.Context, id string) error
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store   storage.Storage
	repo    repository.DocumentRepository
	cleanup CleanupTrigger
}

// NewDocumentService constructs a new DocumentService. cleanup may be nil
// when no retention subsystem is wired (tests).
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, cleanup CleanupTrigger) DocumentService {
	return &documentService{store: store, repo: repo, cleanup: cleanup}
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	// Generate object key using UUID + extension
	ext := filepath.Ext(originalFilename)
	id := uuid.New().String()
	key := filepath.ToSlash(filepath.Join("documents", id+ext))

	// Upload to object storage
	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	// Save metadata to database
	now := time.Now().UTC()
	doc := &model.Document{
		ID:             id,
		Filename:       originalFilename,
		StoragePath:    objInfo.Key,
		Size:           objInfo.Size,
		ContentType:    objInfo.ContentType,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	if s.cleanup != nil {
		s.cleanup.NotifyUpload()
	}
	return stored, nil
}

func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.touch(ctx, id)
	return doc, nil
}

func (s *documentService) Open(ctx context.Context, id string) (io.ReadCloser, *model.Document, error) {
	if id == "" {
		return nil, nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rc, _, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open from storage: %w", err)
	}

	s.touch(ctx, id)
	return rc, doc, nil
}

func (s *documentService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	// Best effort on the object: an already-missing file must not leave the
	// metadata behind.
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete from storage: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The eviction pass got there first.
			return nil
		}
		return fmt.Errorf("delete metadata: %w", err)
	}
	return nil
}

func (s *documentService) MarkProcessed(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	return s.repo.MarkProcessed(ctx, id)
}

// touch records a read access. Best effort: a failed touch never fails the
// read it annotates.
func (s *documentService) touch(ctx context.Context, id string) {
	_ = s.repo.TouchAccess(ctx, id, time.Now().UTC())
}
