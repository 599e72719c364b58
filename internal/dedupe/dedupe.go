// Package dedupe collapses candidate batches against themselves and against
// leads already persisted for the same source.
package dedupe

import (
	"context"

	"go.uber.org/zap"

	"github.com/matchaops/cafeleads/internal/leads"
)

// KeyChecker answers which natural keys already exist for a source. The
// persistent lead store satisfies it.
type KeyChecker interface {
	ExistingKeys(ctx context.Context, source leads.Source, keys []string) (map[string]bool, error)
}

// Deduper filters candidate batches.
type Deduper struct {
	checker KeyChecker
	logger  *zap.Logger
}

// New builds a Deduper. A nil logger is replaced with a no-op logger.
func New(checker KeyChecker, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{checker: checker, logger: logger}
}

// Result reports what one Filter call removed.
type Result struct {
	Kept            []leads.Lead
	DroppedInBatch  int
	DroppedExisting int
}

// Filter removes in-batch duplicates (first occurrence wins) and candidates
// whose natural key is already persisted for the source. Order is preserved.
// Filtering an already filtered batch is a no-op.
func (d *Deduper) Filter(ctx context.Context, source leads.Source, candidates []leads.Lead) (Result, error) {
	res := Result{Kept: make([]leads.Lead, 0, len(candidates))}

	seen := make(map[string]bool, len(candidates))
	firstPass := make([]leads.Lead, 0, len(candidates))
	keys := make([]string, 0, len(candidates))
	for _, c := range candidates {
		key := c.NaturalKey()
		if seen[key] {
			res.DroppedInBatch++
			continue
		}
		seen[key] = true
		firstPass = append(firstPass, c)
		keys = append(keys, key)
	}

	existing := map[string]bool{}
	if d.checker != nil && len(keys) > 0 {
		var err error
		existing, err = d.checker.ExistingKeys(ctx, source, keys)
		if err != nil {
			return Result{}, err
		}
	}

	for _, c := range firstPass {
		if existing[c.NaturalKey()] {
			res.DroppedExisting++
			continue
		}
		res.Kept = append(res.Kept, c)
	}

	if res.DroppedInBatch > 0 || res.DroppedExisting > 0 {
		d.logger.Debug("deduplicated candidate batch",
			zap.String("source", string(source)),
			zap.Int("kept", len(res.Kept)),
			zap.Int("dropped_in_batch", res.DroppedInBatch),
			zap.Int("dropped_existing", res.DroppedExisting))
	}
	return res, nil
}
