// Package apify implements the asynchronous social-scraper providers backed
// by Apify actor runs. A search starts an actor run, polls it to a terminal
// status, then drains the run's default dataset.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matchaops/cafeleads/internal/leads"
	"github.com/matchaops/cafeleads/internal/metrics"
	"github.com/matchaops/cafeleads/internal/progress"
	"github.com/matchaops/cafeleads/internal/provider"
)

// Terminal actor-run statuses.
const (
	statusSucceeded = "SUCCEEDED"
	statusFailed    = "FAILED"
	statusAborted   = "ABORTED"
	statusTimedOut  = "TIMED-OUT"
)

// Config controls one platform client. ActorID selects which scraper actor
// runs; Source tags the records it produces.
type Config struct {
	Token        string
	Endpoint     string
	ActorID      string
	Source       leads.Source
	ResultsLimit int
	MaxQueryLen  int
	PollInterval time.Duration
	WaitBudget   time.Duration
	Timeout      time.Duration
}

// Client implements provider.Client for one Apify actor.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	emitter    progress.Emitter
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// New builds a platform client. The emitter may be nil when poll progress is
// not surfaced anywhere.
func New(cfg Config, logger *zap.Logger, emitter progress.Emitter) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.apify.com/v2"
	}
	if cfg.ResultsLimit <= 0 {
		cfg.ResultsLimit = 20
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.WaitBudget <= 0 {
		cfg.WaitBudget = 300 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		emitter:    emitter,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

type run struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

type runEnvelope struct {
	Data run `json:"data"`
}

// Search starts an actor run for the query, polls it to completion, and
// returns the dataset items as raw records.
func (c *Client) Search(ctx context.Context, q provider.Query) ([]provider.RawRecord, error) {
	if err := provider.ValidateQuery(q.Text, c.cfg.MaxQueryLen); err != nil {
		return nil, err
	}
	if c.cfg.Token == "" {
		return nil, leads.NewProviderError(c.cfg.Source, leads.ErrAuthenticationFailure, "token not configured")
	}

	input, err := c.actorInput(q)
	if err != nil {
		return nil, err
	}

	started, err := c.startRun(ctx, input)
	if err != nil {
		return nil, err
	}
	c.logger.Info("actor run started",
		zap.String("actor", c.cfg.ActorID),
		zap.String("run_id", started.ID),
		zap.String("attempt_id", q.AttemptID))
	if c.emitter != nil {
		c.emitter.Emit(progress.Event{
			AttemptID:    q.AttemptID,
			TS:           c.now(),
			Stage:        progress.StageJobSubmitted,
			Provider:     string(c.cfg.Source),
			RemoteStatus: started.Status,
			Note:         "run " + started.ID,
		})
	}

	final, err := c.waitForRun(ctx, q.AttemptID, started.ID)
	if err != nil {
		return nil, err
	}

	items, err := c.datasetItems(ctx, final.DefaultDatasetID)
	if err != nil {
		return nil, err
	}

	records := make([]provider.RawRecord, 0, len(items))
	for _, item := range items {
		records = append(records, provider.RawRecord{Provider: c.cfg.Source, Fields: item})
	}
	return records, nil
}

// actorInput builds the actor-specific input document. The TikTok and
// Instagram scraper actors accept different shapes for the same logical
// search, so the mapping keys off the record source.
func (c *Client) actorInput(q provider.Query) (map[string]any, error) {
	text := strings.TrimSpace(q.Text)
	switch c.cfg.Source {
	case leads.SourceTikTok:
		input := map[string]any{"resultsPerPage": c.cfg.ResultsLimit}
		switch q.SearchType {
		case provider.SearchTypeProfile:
			input["profiles"] = []string{strings.TrimPrefix(text, "@")}
		case provider.SearchTypeHashtag:
			input["hashtags"] = []string{strings.TrimPrefix(text, "#")}
		default:
			input["searchQueries"] = []string{text}
		}
		return input, nil
	case leads.SourceInstagram:
		searchType := "user"
		if q.SearchType == provider.SearchTypeHashtag {
			searchType = "hashtag"
		}
		return map[string]any{
			"search":       strings.TrimPrefix(strings.TrimPrefix(text, "@"), "#"),
			"searchType":   searchType,
			"resultsType":  "details",
			"resultsLimit": c.cfg.ResultsLimit,
		}, nil
	default:
		return nil, leads.NewProviderError(c.cfg.Source, leads.ErrProviderRejected,
			fmt.Sprintf("no actor input mapping for source %q", c.cfg.Source))
	}
}

func (c *Client) startRun(ctx context.Context, input map[string]any) (run, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return run{}, fmt.Errorf("encode actor input: %w", err)
	}
	u := fmt.Sprintf("%s/acts/%s/runs", c.cfg.Endpoint, c.cfg.ActorID)

	start := c.now()
	var env runEnvelope
	if err := c.doJSON(ctx, http.MethodPost, u, bytes.NewReader(body), &env); err != nil {
		return run{}, err
	}
	metrics.ObserveProviderRequest(string(c.cfg.Source), "start_run", c.now().Sub(start))

	if env.Data.ID == "" {
		return run{}, leads.NewProviderError(c.cfg.Source, leads.ErrProviderRejected, "run started without an id")
	}
	return env.Data, nil
}

func (c *Client) runStatus(ctx context.Context, runID string) (run, error) {
	u := fmt.Sprintf("%s/actor-runs/%s", c.cfg.Endpoint, runID)
	var env runEnvelope
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &env); err != nil {
		return run{}, err
	}
	return env.Data, nil
}

func (c *Client) datasetItems(ctx context.Context, datasetID string) ([]map[string]any, error) {
	if datasetID == "" {
		return nil, nil
	}
	u := fmt.Sprintf("%s/datasets/%s/items?format=json&clean=true", c.cfg.Endpoint, datasetID)

	start := c.now()
	var items []map[string]any
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &items); err != nil {
		return nil, err
	}
	metrics.ObserveProviderRequest(string(c.cfg.Source), "dataset_items", c.now().Sub(start))
	return items, nil
}

func (c *Client) doJSON(ctx context.Context, method, rawURL string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("build apify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return leads.NewProviderError(c.cfg.Source, leads.ErrNetworkFailure, err.Error())
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return leads.NewProviderError(c.cfg.Source, leads.ErrNetworkFailure, err.Error())
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return leads.NewProviderError(c.cfg.Source, leads.ErrAuthenticationFailure, snippet(raw))
	case resp.StatusCode == http.StatusTooManyRequests:
		return leads.NewProviderError(c.cfg.Source, leads.ErrRateLimited, snippet(raw))
	case resp.StatusCode >= 400:
		return leads.NewProviderError(c.cfg.Source, leads.ErrProviderRejected,
			fmt.Sprintf("http %d: %s", resp.StatusCode, snippet(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return leads.NewProviderError(c.cfg.Source, leads.ErrProviderRejected, "undecodable response: "+err.Error())
	}
	return nil
}

func snippet(b []byte) string {
	const max = 256
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
