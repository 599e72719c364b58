// Package leads defines the core domain types shared across the service.
package leads

import (
	"strings"
	"time"
)

// Source identifies where a lead was discovered.
type Source string

// Supported lead sources.
const (
	SourceGoogleMaps Source = "google_maps"
	SourceTikTok     Source = "apify_tiktok"
	SourceInstagram  Source = "apify_instagram"
	SourceManual     Source = "manual"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceGoogleMaps, SourceTikTok, SourceInstagram, SourceManual:
		return true
	default:
		return false
	}
}

// Lead is a discovered business record eligible for persistence.
type Lead struct {
	ID              string    `json:"id,omitempty"`
	Name            string    `json:"name"`
	City            string    `json:"city,omitempty"`
	Address         string    `json:"address,omitempty"`
	Website         string    `json:"website,omitempty"`
	InstagramHandle string    `json:"instagram_handle,omitempty"`
	TikTokHandle    string    `json:"tiktok_handle,omitempty"`
	Source          Source    `json:"source"`
	// ExternalID is the provider's natural identifier when it has one
	// (e.g. a Google place_id). Empty for handle-only sources.
	ExternalID    string    `json:"external_id,omitempty"`
	FollowerCount int64     `json:"follower_count,omitempty"`
	ProfileURL    string    `json:"profile_url,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// NaturalKey returns the deduplication key for the lead: external_id when
// present, else the social handle, else the normalized name+city pair.
func (l Lead) NaturalKey() string {
	if l.ExternalID != "" {
		return l.ExternalID
	}
	if l.InstagramHandle != "" {
		return strings.ToLower(l.InstagramHandle)
	}
	if l.TikTokHandle != "" {
		return strings.ToLower(l.TikTokHandle)
	}
	return strings.ToLower(strings.TrimSpace(l.Name)) + "|" + strings.ToLower(strings.TrimSpace(l.City))
}

// HasSocialHandle reports whether the lead satisfies the export predicate.
func (l Lead) HasSocialHandle() bool {
	return l.InstagramHandle != "" || l.TikTokHandle != ""
}

// AttemptStatus tracks the lifecycle of one search.
type AttemptStatus string

// Search attempt statuses; terminal once done or failed.
const (
	AttemptPending AttemptStatus = "pending"
	AttemptRunning AttemptStatus = "running"
	AttemptDone    AttemptStatus = "done"
	AttemptFailed  AttemptStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptDone || s == AttemptFailed
}

// SearchAttempt is the audit record of one search.
type SearchAttempt struct {
	ID         string        `json:"id"`
	QueryText  string        `json:"query_text"`
	Provider   Source        `json:"provider"`
	SearchType string        `json:"search_type,omitempty"`
	Status     AttemptStatus `json:"status"`
	Initiator  string        `json:"initiator"`
	ErrorText  string        `json:"error_text,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// PersistResult reports the outcome of committing confirmed candidates.
type PersistResult struct {
	Inserted         int `json:"inserted"`
	SkippedDuplicate int `json:"skipped_duplicate"`
	Exported         int `json:"exported"`
}
