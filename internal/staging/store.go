// Package staging holds normalized, deduplicated candidates between the end
// of a search and the operator's confirmation. Entries are in-memory only:
// candidates are review state, not durable data, and an unconfirmed batch is
// allowed to vanish with the process.
package staging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matchaops/cafeleads/internal/leads"
)

const (
	defaultTTL        = 30 * time.Minute
	defaultMaxEntries = 1000
)

type entry struct {
	candidates []leads.Lead
	storedAt   time.Time
	consumed   bool
}

// Store is a TTL-bounded, single-consume staging area keyed by attempt ID.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*entry
	clock      leads.Clock
	ttl        time.Duration
	maxEntries int
	logger     *zap.Logger
}

// Options tunes the store. Zero values fall back to defaults.
type Options struct {
	TTL        time.Duration
	MaxEntries int
}

// New builds a Store. A nil logger is replaced with a no-op logger.
func New(clock leads.Clock, opts Options, logger *zap.Logger) *Store {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		entries:    make(map[string]*entry),
		clock:      clock,
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		logger:     logger,
	}
}

// Put stages the candidate batch for an attempt, replacing any previous batch
// for the same attempt. When the store is full the oldest entry is evicted.
func (s *Store) Put(_ context.Context, attemptID string, candidates []leads.Lead) error {
	if attemptID == "" {
		return fmt.Errorf("staging: attempt id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.sweepLocked(now)

	if _, exists := s.entries[attemptID]; !exists && len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}

	batch := make([]leads.Lead, len(candidates))
	copy(batch, candidates)
	s.entries[attemptID] = &entry{candidates: batch, storedAt: now}
	return nil
}

// Get returns the staged batch without consuming it. Expired and unknown
// attempts both report leads.ErrNotFound.
func (s *Store) Get(_ context.Context, attemptID string) ([]leads.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.liveEntryLocked(attemptID)
	if err != nil {
		return nil, err
	}
	out := make([]leads.Lead, len(e.candidates))
	copy(out, e.candidates)
	return out, nil
}

// Consume returns the staged batch exactly once. A second consume of the
// same attempt reports leads.ErrAlreadyConsumed.
func (s *Store) Consume(_ context.Context, attemptID string) ([]leads.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.liveEntryLocked(attemptID)
	if err != nil {
		return nil, err
	}
	e.consumed = true
	return e.candidates, nil
}

func (s *Store) liveEntryLocked(attemptID string) (*entry, error) {
	now := s.clock.Now()
	s.sweepLocked(now)

	e, ok := s.entries[attemptID]
	if !ok {
		return nil, fmt.Errorf("staging: attempt %s: %w", attemptID, leads.ErrNotFound)
	}
	if e.consumed {
		return nil, fmt.Errorf("staging: attempt %s: %w", attemptID, leads.ErrAlreadyConsumed)
	}
	return e, nil
}

// sweepLocked drops expired entries. Called lazily on every access so no
// background goroutine is needed.
func (s *Store) sweepLocked(now time.Time) {
	for id, e := range s.entries {
		if now.Sub(e.storedAt) > s.ttl {
			delete(s.entries, id)
			if !e.consumed {
				s.logger.Debug("staged batch expired unconfirmed",
					zap.String("attempt_id", id),
					zap.Int("candidates", len(e.candidates)))
			}
		}
	}
}

func (s *Store) evictOldestLocked() {
	var oldestID string
	var oldestAt time.Time
	for id, e := range s.entries {
		if oldestID == "" || e.storedAt.Before(oldestAt) {
			oldestID = id
			oldestAt = e.storedAt
		}
	}
	if oldestID != "" {
		delete(s.entries, oldestID)
		s.logger.Warn("staging store full, evicted oldest batch",
			zap.String("attempt_id", oldestID))
	}
}

// Len reports the number of live entries, sweeping expired ones first.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.clock.Now())
	return len(s.entries)
}
