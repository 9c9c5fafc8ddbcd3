package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Backend is a key/value store for session blobs.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the backend named kind rooted at dir.
func Open(kind, dir string) (Backend, error) {
	switch kind {
	case "", BackendFile:
		return NewFileStore(filepath.Join(dir, "session"))
	case BackendSQLite:
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
		return NewSQLiteStore("sqlite://" + filepath.Join(dir, "mocha.db"))
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want file, sqlite or memory)", kind)
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}
