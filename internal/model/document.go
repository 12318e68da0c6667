package model

import "time"

// Document represents a stored source file in the system.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage, retention) without
// coupling to persistence.
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	TotalPages  *int      `json:"total_pages,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	// LastAccessedAt is bumped whenever the document content is read
	// (preview, download, conversion input). Never before CreatedAt.
	LastAccessedAt time.Time `json:"last_accessed_at"`
	// Processed flips to true once a conversion referencing this document
	// has completed successfully. It is never reset.
	Processed bool `json:"processed"`
}
