package store

import (
	"context"
	"fmt"
	"sync"

	"lineacaptura/internal/capture/models"
	"lineacaptura/pkg/domain"
	"lineacaptura/pkg/platform/sentinel"
)

// Errors returned by every capture store.
var (
	ErrNotFound     = sentinel.ErrNotFound
	ErrInvalidState = sentinel.ErrInvalidState
)

// InMemoryStore keeps records in process memory for development and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	seq     int64
	records map[domain.RecordID]models.Record
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.RecordID]models.Record)}
}

func (s *InMemoryStore) NextID(_ context.Context) (domain.RecordID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return domain.RecordID(s.seq), nil
}

func (s *InMemoryStore) Create(_ context.Context, r *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[r.ID]; exists {
		return fmt.Errorf("record %d already exists: %w", r.ID, ErrInvalidState)
	}
	s.records[r.ID] = *r
	return nil
}

// AttachResponse stores the authority outcome. A record accepts exactly one
// response.
func (s *InMemoryStore) AttachResponse(_ context.Context, id domain.RecordID, resp models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	if r.IsFinal() {
		return fmt.Errorf("record %d already has a response: %w", id, ErrInvalidState)
	}
	r.Response = &resp
	r.Status = statusFor(resp)
	r.UpdatedAt = resp.RespondedAt
	s.records[id] = r
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.RecordID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func statusFor(resp models.Response) models.Status {
	if resp.Success {
		return models.StatusCompleted
	}
	return models.StatusFailed
}
