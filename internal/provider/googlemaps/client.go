// Package googlemaps implements the synchronous Places text-search provider.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matchaops/cafeleads/internal/leads"
	"github.com/matchaops/cafeleads/internal/metrics"
	"github.com/matchaops/cafeleads/internal/provider"
)

// Config controls the Places client.
type Config struct {
	APIKey      string
	Endpoint    string
	MaxQueryLen int
	Timeout     time.Duration
	// FetchDetails enables the per-result Place Details call that resolves
	// the business website (text search alone never returns it).
	FetchDetails bool
}

// Client calls the Google Places API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a Client. A nil logger is replaced with a no-op logger.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://maps.googleapis.com/maps/api/place"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type textSearchResponse struct {
	Status       string           `json:"status"`
	ErrorMessage string           `json:"error_message"`
	Results      []map[string]any `json:"results"`
}

type detailsResponse struct {
	Status string         `json:"status"`
	Result map[string]any `json:"result"`
}

// Search runs one Places text search and returns the raw place records in
// provider order. The query is validated before any network call.
func (c *Client) Search(ctx context.Context, q provider.Query) ([]provider.RawRecord, error) {
	if err := provider.ValidateQuery(q.Text, c.cfg.MaxQueryLen); err != nil {
		return nil, err
	}
	if c.cfg.APIKey == "" {
		return nil, leads.NewProviderError(leads.SourceGoogleMaps, leads.ErrAuthenticationFailure, "api key not configured")
	}

	params := url.Values{}
	params.Set("query", strings.TrimSpace(q.Text))
	params.Set("key", c.cfg.APIKey)

	start := time.Now()
	var resp textSearchResponse
	if err := c.getJSON(ctx, c.cfg.Endpoint+"/textsearch/json?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	metrics.ObserveProviderRequest(string(leads.SourceGoogleMaps), "textsearch", time.Since(start))

	if err := classifyStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}

	records := make([]provider.RawRecord, 0, len(resp.Results))
	for _, place := range resp.Results {
		if c.cfg.FetchDetails {
			c.attachDetails(ctx, place)
		}
		records = append(records, provider.RawRecord{
			Provider: leads.SourceGoogleMaps,
			Fields:   place,
		})
	}
	return records, nil
}

// attachDetails resolves the place website via the Details endpoint and folds
// it into the raw record. Detail failures are logged and skipped; a missing
// website never fails the search.
func (c *Client) attachDetails(ctx context.Context, place map[string]any) {
	placeID, _ := place["place_id"].(string)
	if placeID == "" {
		return
	}
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "name,formatted_address,website,address_components")
	params.Set("key", c.cfg.APIKey)

	start := time.Now()
	var resp detailsResponse
	if err := c.getJSON(ctx, c.cfg.Endpoint+"/details/json?"+params.Encode(), &resp); err != nil {
		c.logger.Debug("place details fetch failed", zap.String("place_id", placeID), zap.Error(err))
		return
	}
	metrics.ObserveProviderRequest(string(leads.SourceGoogleMaps), "details", time.Since(start))

	if resp.Status != "OK" || resp.Result == nil {
		return
	}
	if website, ok := resp.Result["website"].(string); ok && website != "" {
		place["website"] = website
	}
	if components, ok := resp.Result["address_components"]; ok {
		if _, present := place["address_components"]; !present {
			place["address_components"] = components
		}
	}
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build places request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return leads.NewProviderError(leads.SourceGoogleMaps, leads.ErrNetworkFailure, err.Error())
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return leads.NewProviderError(leads.SourceGoogleMaps, leads.ErrNetworkFailure, err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return leads.NewProviderError(
			leads.SourceGoogleMaps,
			leads.ErrProviderRejected,
			fmt.Sprintf("http %d: %s", resp.StatusCode, truncate(body, 256)),
		)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return leads.NewProviderError(leads.SourceGoogleMaps, leads.ErrProviderRejected, "undecodable response: "+err.Error())
	}
	return nil
}

// classifyStatus maps the Places API status field onto the error taxonomy.
func classifyStatus(status, errorMessage string) error {
	detail := errorMessage
	if detail == "" {
		detail = status
	}
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "REQUEST_DENIED":
		return leads.NewProviderError(leads.SourceGoogleMaps, leads.ErrAuthenticationFailure, detail)
	case "OVER_QUERY_LIMIT":
		return leads.NewProviderError(leads.SourceGoogleMaps, leads.ErrRateLimited, detail)
	case "INVALID_REQUEST":
		return leads.NewProviderError(leads.SourceGoogleMaps, leads.ErrInvalidQuery, detail)
	default:
		return leads.NewProviderError(leads.SourceGoogleMaps, leads.ErrProviderRejected, detail)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
