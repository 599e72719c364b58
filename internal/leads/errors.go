package leads

import (
	"errors"
	"fmt"
)

// Sentinel errors for the search pipeline. Callers classify with errors.Is.
var (
	// ErrInvalidQuery rejects empty or overlong queries before any network call.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrAuthenticationFailure covers rejected or missing provider credentials.
	ErrAuthenticationFailure = errors.New("provider authentication failure")
	// ErrProviderRejected covers provider-side refusals that are not auth or quota.
	ErrProviderRejected = errors.New("provider rejected request")
	// ErrNetworkFailure covers transport-level failures reaching a provider.
	ErrNetworkFailure = errors.New("network failure")
	// ErrRateLimited signals provider quota exhaustion.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrTimeout signals the poll wait budget was exhausted; the remote job
	// is left to finish on its own.
	ErrTimeout = errors.New("job poll timed out")
	// ErrJobFailed signals the remote job reached a failed terminal state.
	ErrJobFailed = errors.New("remote job failed")
	// ErrMalformedRecord marks a single raw record that cannot be normalized;
	// it is skipped, never aborting the batch.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrNotFound covers missing or expired staged entries and absent rows.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyConsumed rejects a second confirm on the same attempt.
	ErrAlreadyConsumed = errors.New("staged entry already consumed")
)

// ProviderError carries the provider name and raw error text alongside the
// taxonomy sentinel so outbound failures stay diagnosable.
type ProviderError struct {
	Provider Source
	Kind     error
	Detail   string
}

// Error renders the provider, classification, and raw detail.
func (e *ProviderError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Provider, e.Kind, e.Detail)
}

// Unwrap exposes the taxonomy sentinel for errors.Is.
func (e *ProviderError) Unwrap() error {
	return e.Kind
}

// NewProviderError wraps a taxonomy sentinel with provider context.
func NewProviderError(provider Source, kind error, detail string) error {
	return &ProviderError{Provider: provider, Kind: kind, Detail: detail}
}
