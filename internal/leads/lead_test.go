package leads

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLead_NaturalKey_PrefersExternalID(t *testing.T) {
	t.Parallel()

	lead := Lead{Name: "Matcha House", City: "Tokyo", ExternalID: "place-123", InstagramHandle: "matchahouse"}
	require.Equal(t, "place-123", lead.NaturalKey())
}

func TestLead_NaturalKey_FallsBackToHandle(t *testing.T) {
	t.Parallel()

	lead := Lead{Name: "Matcha House", InstagramHandle: "MatchaHouse"}
	require.Equal(t, "matchahouse", lead.NaturalKey())

	lead = Lead{Name: "Matcha House", TikTokHandle: "MatchaTok"}
	require.Equal(t, "matchatok", lead.NaturalKey())
}

func TestLead_NaturalKey_NameCityPair(t *testing.T) {
	t.Parallel()

	lead := Lead{Name: " Matcha House ", City: "Tokyo"}
	require.Equal(t, "matcha house|tokyo", lead.NaturalKey())
}

func TestSource_Valid(t *testing.T) {
	t.Parallel()

	require.True(t, SourceGoogleMaps.Valid())
	require.True(t, SourceTikTok.Valid())
	require.False(t, Source("yelp").Valid())
}

func TestAttemptStatus_Terminal(t *testing.T) {
	t.Parallel()

	require.True(t, AttemptDone.Terminal())
	require.True(t, AttemptFailed.Terminal())
	require.False(t, AttemptRunning.Terminal())
	require.False(t, AttemptPending.Terminal())
}

func TestProviderError_UnwrapsSentinel(t *testing.T) {
	t.Parallel()

	err := NewProviderError(SourceGoogleMaps, ErrRateLimited, "OVER_QUERY_LIMIT")
	require.True(t, errors.Is(err, ErrRateLimited))
	require.Contains(t, err.Error(), "google_maps")
	require.Contains(t, err.Error(), "OVER_QUERY_LIMIT")
}
