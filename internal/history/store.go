// Package history keeps the most recent predictions served by this
// process. The store is injected into the handlers so the eviction
// policy lives in one place instead of in every frontend variant.
package history

import (
	"context"
	"sync"
	"time"

	"clinsight/internal/models"
)

// Keep is the fixed number of entries retained by any Store.
const Keep = 8

// Entry pairs a served prediction with the case that produced it.
type Entry struct {
	CreatedAt time.Time               `json:"created_at"`
	Input     models.CaseInput        `json:"input"`
	Result    models.PredictionResult `json:"result"`
}

// Store records served predictions and returns the newest ones first.
type Store interface {
	Add(ctx context.Context, entry Entry) error
	Recent(ctx context.Context) ([]Entry, error)
}

// MemoryStore is the default in-process Store: a ring of the last Keep
// entries, safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make([]Entry, 0, Keep)}
}

func (s *MemoryStore) Add(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	if len(s.entries) > Keep {
		s.entries = s.entries[len(s.entries)-Keep:]
	}
	return nil
}

func (s *MemoryStore) Recent(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	for i, entry := range s.entries {
		out[len(s.entries)-1-i] = entry
	}
	return out, nil
}
