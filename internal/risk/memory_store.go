package risk

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps the latest assessment per user in an expiring cache.
type MemoryStore struct {
	profiles *cache.Cache
}

// NewMemoryStore creates an in-memory store whose profiles expire after ttl.
// A non-positive ttl keeps profiles until the process exits.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		return &MemoryStore{profiles: cache.New(cache.NoExpiration, 0)}
	}
	return &MemoryStore{profiles: cache.New(ttl, ttl/2)}
}

func (s *MemoryStore) Save(_ context.Context, a *Assessment) error {
	s.profiles.SetDefault(a.UserID, copyAssessment(a))
	return nil
}

func (s *MemoryStore) Latest(_ context.Context, userID string) (*Assessment, error) {
	v, ok := s.profiles.Get(userID)
	if !ok {
		return nil, ErrNotFound
	}
	return copyAssessment(v.(*Assessment)), nil
}

// Len reports the number of live profiles.
func (s *MemoryStore) Len() int {
	return s.profiles.ItemCount()
}
