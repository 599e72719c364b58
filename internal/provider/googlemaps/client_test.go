package googlemaps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matchaops/cafeleads/internal/leads"
	"github.com/matchaops/cafeleads/internal/metrics"
	"github.com/matchaops/cafeleads/internal/provider"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

func newTestClient(t *testing.T, handler http.HandlerFunc, fetchDetails bool) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		APIKey:       "test-key",
		Endpoint:     srv.URL,
		FetchDetails: fetchDetails,
	}, zap.NewNop())
}

func TestSearchReturnsPlaces(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/textsearch/json", r.URL.Path)
		assert.Equal(t, "matcha cafe seattle", r.URL.Query().Get("query"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{
			"status": "OK",
			"results": [
				{"name": "Matcha House", "formatted_address": "1 Pike St, Seattle, WA", "place_id": "abc123"},
				{"name": "Green Leaf", "formatted_address": "2 Pine St, Seattle, WA", "place_id": "def456"}
			]
		}`))
	}, false)

	records, err := client.Search(context.Background(), provider.Query{Text: "matcha cafe seattle"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, leads.SourceGoogleMaps, records[0].Provider)
	assert.Equal(t, "Matcha House", records[0].Fields["name"])
	assert.Equal(t, "def456", records[1].Fields["place_id"])
}

func TestSearchZeroResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}, false)

	records, err := client.Search(context.Background(), provider.Query{Text: "nothing here"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSearchStatusMapping(t *testing.T) {
	cases := []struct {
		status string
		want   error
	}{
		{"REQUEST_DENIED", leads.ErrAuthenticationFailure},
		{"OVER_QUERY_LIMIT", leads.ErrRateLimited},
		{"INVALID_REQUEST", leads.ErrInvalidQuery},
		{"UNKNOWN_ERROR", leads.ErrProviderRejected},
	}
	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			status := tc.status
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status": "` + status + `", "error_message": "boom"}`))
			}, false)

			_, err := client.Search(context.Background(), provider.Query{Text: "cafe"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var perr *leads.ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, leads.SourceGoogleMaps, perr.Provider)
		})
	}
}

func TestSearchInvalidQueryBeforeNetwork(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, false)

	_, err := client.Search(context.Background(), provider.Query{Text: "   "})
	assert.ErrorIs(t, err, leads.ErrInvalidQuery)
	assert.False(t, called)
}

func TestSearchMissingAPIKey(t *testing.T) {
	client := New(Config{Endpoint: "http://example.invalid"}, zap.NewNop())

	_, err := client.Search(context.Background(), provider.Query{Text: "cafe"})
	assert.ErrorIs(t, err, leads.ErrAuthenticationFailure)
}

func TestSearchNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	client := New(Config{APIKey: "k", Endpoint: srv.URL}, zap.NewNop())

	_, err := client.Search(context.Background(), provider.Query{Text: "cafe"})
	assert.ErrorIs(t, err, leads.ErrNetworkFailure)
}

func TestSearchFetchesWebsiteDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/textsearch/json":
			w.Write([]byte(`{
				"status": "OK",
				"results": [{"name": "Matcha House", "place_id": "abc123"}]
			}`))
		case "/details/json":
			assert.Equal(t, "abc123", r.URL.Query().Get("place_id"))
			w.Write([]byte(`{
				"status": "OK",
				"result": {"website": "https://matchahouse.example.com"}
			}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, true)

	records, err := client.Search(context.Background(), provider.Query{Text: "matcha"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "https://matchahouse.example.com", records[0].Fields["website"])
}

func TestSearchDetailsFailureIsNonFatal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/textsearch/json":
			w.Write([]byte(`{"status": "OK", "results": [{"name": "Matcha House", "place_id": "abc123"}]}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}, true)

	records, err := client.Search(context.Background(), provider.Query{Text: "matcha"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	_, hasWebsite := records[0].Fields["website"]
	assert.False(t, hasWebsite)
}
