package leads

import (
	"context"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator creates unique identifiers for attempts and leads.
type IDGenerator interface {
	NewID() (string, error)
}

// LeadFilter narrows LeadStore listing.
type LeadFilter struct {
	Source Source
	Limit  int
	Offset int
}

// LeadStore persists Lead rows. Insert must be atomic with respect to the
// natural-key uniqueness check: concurrent inserts of the same
// (source, natural key) yield exactly one row.
type LeadStore interface {
	// Insert writes the lead unless its natural key already exists.
	// Returns false with a nil error when the row was a duplicate.
	Insert(ctx context.Context, lead Lead) (inserted bool, err error)
	// ExistingKeys returns the subset of the given natural keys already
	// persisted for the source.
	ExistingKeys(ctx context.Context, source Source, keys []string) (map[string]bool, error)
	// List returns persisted leads, newest first.
	List(ctx context.Context, filter LeadFilter) ([]Lead, error)
}

// AttemptStore persists SearchAttempt audit rows.
type AttemptStore interface {
	Create(ctx context.Context, attempt SearchAttempt) error
	// UpdateStatus transitions the attempt; terminal attempts are never mutated.
	UpdateStatus(ctx context.Context, id string, status AttemptStatus, errText string) error
	Get(ctx context.Context, id string) (SearchAttempt, error)
	// ListRecent returns the initiator's latest attempts, newest first.
	ListRecent(ctx context.Context, initiator string, limit int) ([]SearchAttempt, error)
}

// Exporter forwards persisted leads to the spreadsheet collaborator. Failures
// are best-effort: they are reported but never roll back persistence.
type Exporter interface {
	Export(ctx context.Context, destination string, rows []Lead) error
}
