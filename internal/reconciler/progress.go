package reconciler

import (
	"context"
	"sync"
)

// Progress records the sub-records already created by an interrupted save
type Progress struct {
	Fingerprint       string `json:"fingerprint"`
	SolutionID        string `json:"solution_id,omitempty"`
	SolutionVariantID string `json:"solution_variant_id,omitempty"`
}

// ProgressStore keeps save progress per idempotency key
type ProgressStore interface {
	Get(ctx context.Context, key string) (*Progress, error)
	Put(ctx context.Context, key string, p *Progress) error
	Delete(ctx context.Context, key string) error
}

// MemoryProgressStore is a ProgressStore held in process memory
type MemoryProgressStore struct {
	mu      sync.RWMutex
	entries map[string]Progress
}

// NewMemoryProgressStore creates an empty in-memory progress store
func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{entries: make(map[string]Progress)}
}

// Get returns the progress for key, or nil if there is none
func (s *MemoryProgressStore) Get(ctx context.Context, key string) (*Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Put stores the progress for key
func (s *MemoryProgressStore) Put(ctx context.Context, key string, p *Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = *p
	return nil
}

// Delete removes the progress for key
func (s *MemoryProgressStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}
