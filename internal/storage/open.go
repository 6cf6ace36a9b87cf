package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"

	logx "wordtally/pkg/logx"
)

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

// cleanName validates a blob name and returns its canonical slash form.
func cleanName(name string) (string, error) {
	n := strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if n == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	n = path.Clean(n)
	if path.IsAbs(n) || n == "." || n == ".." || strings.HasPrefix(n, "../") {
		return "", fmt.Errorf("%w: %q escapes the store", ErrInvalidName, name)
	}
	return n, nil
}
