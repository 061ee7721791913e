// internal/quota/memory_store.go
package quota

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process CountStore. Counts reset with the
// process; it suits single-instance deployments and tests.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryStore creates an empty in-memory count store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]int)}
}

var _ CountStore = (*MemoryStore)(nil)

// dayOf extracts the calendar-day suffix of a "user:day" key.
func dayOf(key string) string {
	if i := strings.LastIndex(key, ":"); i >= 0 {
		return key[i+1:]
	}
	return key
}

func (s *MemoryStore) Increment(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Only the current day matters; drop every user's older keys.
	day := dayOf(key)
	for k := range s.counts {
		if dayOf(k) != day {
			delete(s.counts, k)
		}
	}
	s.counts[key]++
	return s.counts[key], nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key], nil
}
