package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/matchaops/cafeleads/internal/leads"
)

// AttemptStore keeps search attempts in memory.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]leads.SearchAttempt
}

// NewAttemptStore constructs an AttemptStore.
func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]leads.SearchAttempt)}
}

// Create stores a new attempt.
func (s *AttemptStore) Create(_ context.Context, attempt leads.SearchAttempt) error {
	if attempt.ID == "" {
		return fmt.Errorf("attempt id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.attempts[attempt.ID]; exists {
		return fmt.Errorf("attempt %s already exists", attempt.ID)
	}
	s.attempts[attempt.ID] = attempt
	return nil
}

// UpdateStatus transitions the attempt. Terminal attempts are never mutated.
func (s *AttemptStore) UpdateStatus(_ context.Context, id string, status leads.AttemptStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok || a.Status.Terminal() {
		return fmt.Errorf("attempt %s not updatable: %w", id, leads.ErrNotFound)
	}
	a.Status = status
	a.ErrorText = errText
	s.attempts[id] = a
	return nil
}

// Get fetches an attempt by ID.
func (s *AttemptStore) Get(_ context.Context, id string) (leads.SearchAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[id]
	if !ok {
		return leads.SearchAttempt{}, fmt.Errorf("attempt %s: %w", id, leads.ErrNotFound)
	}
	return a, nil
}

// ListRecent returns the initiator's latest attempts, newest first.
func (s *AttemptStore) ListRecent(_ context.Context, initiator string, limit int) ([]leads.SearchAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]leads.SearchAttempt, 0, len(s.attempts))
	for _, a := range s.attempts {
		if initiator != "" && a.Initiator != initiator {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit <= 0 {
		limit = 20
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
