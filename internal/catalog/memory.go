package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/tierstore/tierstore/internal/tier"
)

type memKey struct {
	tier tier.Tier
	name string
}

// MemoryStore is a map-backed Store for tests and ephemeral deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[memKey]Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[memKey]Entry)}
}

func (s *MemoryStore) Put(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	s.entries[memKey{e.Tier, e.Name}] = *e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, t tier.Tier, name string) (*Entry, error) {
	s.mu.RLock()
	e, ok := s.entries[memKey{t, name}]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *MemoryStore) List(ctx context.Context, t tier.Tier) ([]Entry, error) {
	s.mu.RLock()
	var out []Entry
	for k, e := range s.entries {
		if k.tier == t {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
