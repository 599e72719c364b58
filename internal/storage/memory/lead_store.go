// Package memory provides in-memory store implementations for development
// and testing. They honor the same uniqueness and ordering contracts as the
// Postgres stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/matchaops/cafeleads/internal/leads"
)

// LeadStore keeps leads in a map keyed by (source, natural key).
type LeadStore struct {
	mu    sync.RWMutex
	byKey map[string]leads.Lead
}

// NewLeadStore constructs a LeadStore.
func NewLeadStore() *LeadStore {
	return &LeadStore{byKey: make(map[string]leads.Lead)}
}

func compositeKey(source leads.Source, naturalKey string) string {
	return string(source) + "\x00" + naturalKey
}

// Insert writes the lead unless its natural key already exists for the
// source. Returns false with a nil error for duplicates.
func (s *LeadStore) Insert(_ context.Context, lead leads.Lead) (bool, error) {
	if lead.ID == "" {
		return false, fmt.Errorf("lead id is required")
	}
	if lead.Name == "" {
		return false, fmt.Errorf("lead name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := compositeKey(lead.Source, lead.NaturalKey())
	if _, exists := s.byKey[key]; exists {
		return false, nil
	}
	s.byKey[key] = lead
	return true, nil
}

// ExistingKeys returns the subset of the given natural keys already stored
// for the source.
func (s *LeadStore) ExistingKeys(_ context.Context, source leads.Source, keys []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, exists := s.byKey[compositeKey(source, k)]; exists {
			out[k] = true
		}
	}
	return out, nil
}

// List returns stored leads, newest first.
func (s *LeadStore) List(_ context.Context, filter leads.LeadFilter) ([]leads.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]leads.Lead, 0, len(s.byKey))
	for _, l := range s.byKey {
		if filter.Source != "" && l.Source != filter.Source {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len reports how many leads are stored.
func (s *LeadStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}
