package credit

import (
	"context"
	"sort"
	"sync"

	"github.com/altscore/altscore/internal/pagination"
)

// MemoryStore is an in-memory score store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]*Result  // by ID
	byUser  map[string][]string // userID → IDs
}

// NewMemoryStore creates a new in-memory score store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string]*Result),
		byUser:  make(map[string][]string),
	}
}

func (m *MemoryStore) Save(_ context.Context, r *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := copyResult(r)
	if _, exists := m.results[r.ID]; !exists {
		m.byUser[r.UserID] = append(m.byUser[r.UserID], r.ID)
	}
	m.results[r.ID] = cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.results[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyResult(r), nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID string, limit int, cursor *pagination.Cursor) ([]*Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Result
	for _, id := range m.byUser[userID] {
		r := m.results[id]
		if cursor.Admits(r.CreatedAt, r.ID) {
			out = append(out, copyResult(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return pagination.Newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyResult(r *Result) *Result {
	cp := *r
	cp.Contributions = append(cp.Contributions[:0:0], r.Contributions...)
	cp.Summary = append(cp.Summary[:0:0], r.Summary...)
	return &cp
}
