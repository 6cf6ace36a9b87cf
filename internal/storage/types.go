package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrInvalidName = errors.New("storage: invalid name")
	ErrClosed      = errors.New("storage: closed")
)

// Store is the persistence capability the pipeline depends on.
type Store interface {
	// EnsureDir creates the directory part of a name if the backend has one.
	EnsureDir(ctx context.Context, dir string) error
	WriteText(ctx context.Context, name, content string) error
	// ReadText fails with ErrNotFound if name was never written.
	ReadText(ctx context.Context, name string) (string, error)
	Close() error
}

// Config configures storage.
//
// Driver values:
//   - "file": files under Path
//   - "sqlite": SQLite database file at Path
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means driver default
}
