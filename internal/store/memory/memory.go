// Package memory provides in-process store implementations used by tests and
// by server runs without a database configured.
package memory

import (
	"context"
	"sync"

	"github.com/okanlawon/pawdispatch/internal/domain"
	"github.com/okanlawon/pawdispatch/internal/store"
)

type ClinicStore struct {
	mu      sync.RWMutex
	clinics map[string]*domain.Clinic
}

func NewClinicStore() *ClinicStore {
	return &ClinicStore{clinics: make(map[string]*domain.Clinic)}
}

func (s *ClinicStore) Upsert(ctx context.Context, c *domain.Clinic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.clinics[c.ID] = &cp
	return nil
}

func (s *ClinicStore) GetByIDs(ctx context.Context, ids []string) ([]*domain.Clinic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Clinic
	for _, id := range ids {
		if c, ok := s.clinics[id]; ok {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *ClinicStore) List(ctx context.Context) ([]*domain.Clinic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Clinic, 0, len(s.clinics))
	for _, c := range s.clinics {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

type DispatchResultStore struct {
	mu      sync.RWMutex
	results map[string]*domain.DispatchResult
}

func NewDispatchResultStore() *DispatchResultStore {
	return &DispatchResultStore{results: make(map[string]*domain.DispatchResult)}
}

func (s *DispatchResultStore) Get(ctx context.Context, requestID string) (*domain.DispatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[requestID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

// PutIfAbsent keeps the first result written for a request ID and returns
// whichever result is canonical.
func (s *DispatchResultStore) PutIfAbsent(ctx context.Context, result *domain.DispatchResult) (*domain.DispatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.results[result.RequestID]; ok {
		return existing, nil
	}
	s.results[result.RequestID] = result
	return result, nil
}

func (s *DispatchResultStore) ListByStatus(ctx context.Context, status domain.OverallStatus, limit int) ([]*domain.DispatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.DispatchResult
	for _, r := range s.results {
		if status != "" && r.OverallStatus != status {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type DispatchAttemptStore struct {
	mu       sync.Mutex
	attempts map[string][]*domain.DispatchAttempt
}

func NewDispatchAttemptStore() *DispatchAttemptStore {
	return &DispatchAttemptStore{attempts: make(map[string][]*domain.DispatchAttempt)}
}

func (s *DispatchAttemptStore) Create(ctx context.Context, requestID string, attempt *domain.DispatchAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[requestID] = append(s.attempts[requestID], attempt)
	return nil
}

// ByRequest returns the recorded attempts for a request, for tests.
func (s *DispatchAttemptStore) ByRequest(requestID string) []*domain.DispatchAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.DispatchAttempt, len(s.attempts[requestID]))
	copy(out, s.attempts[requestID])
	return out
}
