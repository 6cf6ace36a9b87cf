package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"wordtally/internal/storage"
)

// mapStorageConfig resolves where year tables and reports live. The file
// driver writes under data_folder_path; sqlite keeps everything in one
// database file, by default inside the data folder.
func mapStorageConfig(cfg *Config) (storage.Config, error) {
	if cfg == nil {
		return storage.Config{}, fmt.Errorf("nil config")
	}
	sc := cfg.Storage
	path := strings.TrimSpace(sc.Path)

	switch dl := strings.ToLower(strings.TrimSpace(sc.Driver)); dl {
	case "", "file":
		if path == "" {
			path = cfg.DataFolderPath
		}
		return storage.Config{Driver: "file", Path: path}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			path = filepath.Join(cfg.DataFolderPath, "wordtally.db")
		}
		busy := cfg.BusyTimeout()
		if busy <= 0 {
			busy = 1 * time.Second
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}
