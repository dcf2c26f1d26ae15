package job

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mattxander12/forex-trader/pkg/errors"
)

// ResultStore keeps the final result payload of finished jobs as JSON.
type ResultStore interface {
	Put(ctx context.Context, jobID string, result any) error
	// Get returns ErrCodeJobNotFound when no result was stored for jobID.
	Get(ctx context.Context, jobID string) (json.RawMessage, error)
	Close() error
}

// MemoryStore is a process-local ResultStore.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]json.RawMessage)}
}

func (s *MemoryStore) Put(_ context.Context, jobID string, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultStoreError, "failed to encode result", err)
	}

	s.mu.Lock()
	s.results[jobID] = data
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Get(_ context.Context, jobID string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.results[jobID]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeJobNotFound, "no result for job %s", jobID)
	}

	return data, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
