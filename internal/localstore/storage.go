package localstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StorageKey is the single well-known key the whole flashcard collection
// lives under, kept identical to the mobile app's storage key so the layout
// stays recognizable.
const StorageKey = "@KanjiFinder:flashcards"

// Storage is the key-value seam under the store: one opaque blob per key.
// A missing key returns (nil, nil).
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// FileStorage keeps each key as one JSON file in a directory.
type FileStorage struct {
	Dir string
}

func DefaultDir() string {
	if d := os.Getenv("KANJIFINDER_DATA_DIR"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".kanjifinder")
}

func NewFileStorage(dir string) *FileStorage {
	if dir == "" {
		dir = DefaultDir()
	}
	return &FileStorage{Dir: dir}
}

// keyFile maps a storage key to a safe filename, e.g.
// "@KanjiFinder:flashcards" -> "KanjiFinder-flashcards.json".
func (fs *FileStorage) keyFile(key string) string {
	name := strings.TrimPrefix(key, "@")
	name = strings.ReplaceAll(name, ":", "-")
	name = strings.ReplaceAll(name, string(os.PathSeparator), "-")
	return filepath.Join(fs.Dir, name+".json")
}

func (fs *FileStorage) Get(key string) ([]byte, error) {
	b, err := os.ReadFile(fs.keyFile(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

func (fs *FileStorage) Set(key string, value []byte) error {
	if err := os.MkdirAll(fs.Dir, 0o755); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}
	if err := os.WriteFile(fs.keyFile(key), value, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// MemStorage is an in-memory Storage for tests.
type MemStorage struct {
	data map[string][]byte
}

func NewMemStorage() *MemStorage {
	return &MemStorage{data: make(map[string][]byte)}
}

func (ms *MemStorage) Get(key string) ([]byte, error) {
	b, ok := ms.data[key]
	if !ok {
		return nil, nil
	}
	return b, nil
}

func (ms *MemStorage) Set(key string, value []byte) error {
	ms.data[key] = append([]byte(nil), value...)
	return nil
}
