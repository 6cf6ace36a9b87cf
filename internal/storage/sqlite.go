package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "wordtally/pkg/logx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS blobs (
	name       TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// sqliteStore keeps every blob as one row. Directories are implicit.
type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) EnsureDir(ctx context.Context, dir string) error {
	if _, err := cleanName(dir); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *sqliteStore) WriteText(ctx context.Context, name, content string) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	n, err := cleanName(name)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO blobs(name, content, updated_at) VALUES(?,?,?)
		 ON CONFLICT(name) DO UPDATE SET content=excluded.content, updated_at=excluded.updated_at`,
		n, content, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("storage: write %s: %w", name, err)
	}
	s.log.Debug("blob written", logx.String("name", n), logx.Int("bytes", len(content)))
	return nil
}

func (s *sqliteStore) ReadText(ctx context.Context, name string) (string, error) {
	if s == nil || s.db == nil {
		return "", ErrClosed
	}
	n, err := cleanName(name)
	if err != nil {
		return "", err
	}
	var content string
	err = s.db.QueryRowContext(ctx, `SELECT content FROM blobs WHERE name = ?`, n).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("storage: read %s: %w", name, err)
	}
	return content, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
