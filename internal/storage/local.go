package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"markui/internal/config"
)

// localStorage implements the Storage interface on the local filesystem.
// Writes go through a temp file plus rename so a crashed upload never leaves
// a partial object under a live key.
type localStorage struct {
	baseDir string
	baseURL string
}

// NewLocal creates a filesystem-backed storage rooted at cfg.BaseDir.
// The directory is created if missing.
func NewLocal(cfg config.LocalStorageConfig) (Storage, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("local storage base dir is required")
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure storage dir: %w", err)
	}
	return &localStorage{baseDir: cfg.BaseDir, baseURL: cfg.BaseURL}, nil
}

func (l *localStorage) path(key string) string {
	return filepath.Join(l.baseDir, filepath.Clean("/"+key))
}

// Put writes the object to a temp file, fsyncs, then renames into place.
func (l *localStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	target := l.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return ObjectInfo{}, fmt.Errorf("ensure dir: %w", err)
	}

	tmp := target + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return ObjectInfo{}, fmt.Errorf("write object: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return ObjectInfo{}, fmt.Errorf("sync object: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return ObjectInfo{}, fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return ObjectInfo{}, fmt.Errorf("rename object: %w", err)
	}

	return ObjectInfo{
		Key:          key,
		Size:         n,
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}, nil
}

// Get opens the object for streaming reads.
func (l *localStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}

	target := l.path(key)
	f, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("open object: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("stat object: %w", err)
	}

	return f, ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		LastModified: st.ModTime(),
	}, nil
}

// Delete removes the object. An already-missing file maps to ErrNotFound so
// the retention pass can distinguish it from an I/O failure.
func (l *localStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(l.path(key)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// PresignGet has no signing on a local filesystem; when a public base URL is
// configured the object URL is returned as-is.
func (l *localStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if l.baseURL == "" {
		return "", fmt.Errorf("local storage has no public base URL configured")
	}
	return url.JoinPath(l.baseURL, filepath.ToSlash(key))
}
