// Package provider defines the contract for outbound search providers.
package provider

import (
	"context"
	"strings"

	"github.com/matchaops/cafeleads/internal/leads"
)

// Search types accepted by the social-scraping provider. The maps provider
// ignores the field.
const (
	SearchTypeProfile = "profile"
	SearchTypeHashtag = "hashtag"
	SearchTypePlace   = "place"
)

// Query is one user-initiated search request.
type Query struct {
	// Text is the free-text query string.
	Text string
	// Provider selects the search source.
	Provider leads.Source
	// SearchType selects the kind of social search (profile/hashtag/place).
	SearchType string
	// AttemptID ties outbound calls and progress events to the audit record.
	AttemptID string
}

// RawRecord is one provider-specific record, untouched except for decoding.
// The normalizer's per-provider mapping is the only place its shape is
// interpreted.
type RawRecord struct {
	Provider leads.Source
	Fields   map[string]any
}

// Client issues exactly one search (plus, for asynchronous providers, the
// bounded poll that retrieves its results) and returns raw records in
// provider order.
type Client interface {
	Search(ctx context.Context, q Query) ([]RawRecord, error)
}

// ValidateQuery applies the shared pre-network checks: the query must be
// non-empty after trimming and must not exceed the provider's maximum length.
func ValidateQuery(text string, maxLen int) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return leads.ErrInvalidQuery
	}
	if maxLen > 0 && len(trimmed) > maxLen {
		return leads.ErrInvalidQuery
	}
	return nil
}
