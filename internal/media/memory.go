package media

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// memObject holds the raw data and precomputed checksum for an object.
type memObject struct {
	Data     []byte
	Checksum string
}

// MemoryStore keeps media objects in a map. Contents are lost on restart;
// it is meant for tests and ephemeral deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memObject)}
}

// Put stores a copy of the reader's content.
func (s *MemoryStore) Put(ctx context.Context, name string, reader io.Reader, size int64) (int64, string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, "", fmt.Errorf("reading media data: %w", err)
	}
	sum := md5.Sum(data)
	checksum := hex.EncodeToString(sum[:])

	s.mu.Lock()
	s.objects[name] = memObject{Data: data, Checksum: checksum}
	s.mu.Unlock()

	return int64(len(data)), checksum, nil
}

// Get returns a reader over a private copy of the stored data.
func (s *MemoryStore) Get(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	s.mu.RLock()
	obj, ok := s.objects[name]
	s.mu.RUnlock()
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	data := bytes.Clone(obj.Data)
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

// Exists reports whether name is stored.
func (s *MemoryStore) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	_, ok := s.objects[name]
	s.mu.RUnlock()
	return ok, nil
}

// HealthCheck always succeeds.
func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

// Location returns "memory://".
func (s *MemoryStore) Location() string {
	return "memory://"
}

var _ Store = (*MemoryStore)(nil)
