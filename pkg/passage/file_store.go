package passage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// FileStore keeps passages in a pretty-printed JSON array on disk.
// Writes go through a temp file and rename while holding both an in-process
// mutex and an advisory file lock, so several agents sharing a directory
// never observe a half-written store.
type FileStore struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

var _ Store = &FileStore{}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Replace(ctx context.Context, passages []Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("store %s is locked", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := encode(passages)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("swap store: %w", err)
	}
	return nil
}

// Load returns an empty slice when nothing has been stored yet.
func (s *FileStore) Load(ctx context.Context) ([]Passage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	locked, err := s.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("store %s is locked", s.path)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Passage{}, nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}
	return decode(data)
}

// encode keeps non-ASCII text readable in the file.
func encode(passages []Passage) ([]byte, error) {
	if passages == nil {
		passages = []Passage{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(passages); err != nil {
		return nil, fmt.Errorf("marshal passages: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) ([]Passage, error) {
	passages := []Passage{}
	if len(bytes.TrimSpace(data)) == 0 {
		return passages, nil
	}
	if err := json.Unmarshal(data, &passages); err != nil {
		return nil, fmt.Errorf("unmarshal passages: %w", err)
	}
	return passages, nil
}
