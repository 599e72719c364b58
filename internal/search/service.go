// Package search orchestrates the lead pipeline: provider query, normalize,
// enrich, dedupe, stage, and on confirmation persist plus export.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/matchaops/cafeleads/internal/dedupe"
	"github.com/matchaops/cafeleads/internal/enrich"
	"github.com/matchaops/cafeleads/internal/export"
	"github.com/matchaops/cafeleads/internal/leads"
	"github.com/matchaops/cafeleads/internal/metrics"
	"github.com/matchaops/cafeleads/internal/normalize"
	"github.com/matchaops/cafeleads/internal/progress"
	"github.com/matchaops/cafeleads/internal/provider"
	"github.com/matchaops/cafeleads/internal/staging"
)

// Request describes one search submission.
type Request struct {
	QueryText  string
	Provider   leads.Source
	SearchType string
	Initiator  string
}

// Result pairs the attempt record with the staged candidates.
type Result struct {
	Attempt    leads.SearchAttempt
	Candidates []leads.Lead
}

// Service runs searches and confirmations.
type Service struct {
	providers  map[leads.Source]provider.Client
	normalizer *normalize.Normalizer
	enricher   *enrich.WebsiteEnricher
	deduper    *dedupe.Deduper
	staging    *staging.Store
	leadStore  leads.LeadStore
	attempts   leads.AttemptStore
	exporter   *export.Trigger
	emitter    progress.Emitter
	clock      leads.Clock
	ids        leads.IDGenerator
	logger     *zap.Logger
}

// Deps collects the service's collaborators.
type Deps struct {
	Providers  map[leads.Source]provider.Client
	Normalizer *normalize.Normalizer
	Enricher   *enrich.WebsiteEnricher
	Deduper    *dedupe.Deduper
	Staging    *staging.Store
	LeadStore  leads.LeadStore
	Attempts   leads.AttemptStore
	Exporter   *export.Trigger
	Emitter    progress.Emitter
	Clock      leads.Clock
	IDs        leads.IDGenerator
	Logger     *zap.Logger
}

// New builds a Service.
func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		providers:  deps.Providers,
		normalizer: deps.Normalizer,
		enricher:   deps.Enricher,
		deduper:    deps.Deduper,
		staging:    deps.Staging,
		leadStore:  deps.LeadStore,
		attempts:   deps.Attempts,
		exporter:   deps.Exporter,
		emitter:    deps.Emitter,
		clock:      deps.Clock,
		ids:        deps.IDs,
		logger:     logger,
	}
}

// Search runs the pipeline through staging. The attempt is left in running
// status; Confirm moves it to done. Provider failures mark it failed.
func (s *Service) Search(ctx context.Context, req Request) (Result, error) {
	client, ok := s.providers[req.Provider]
	if !ok || !req.Provider.Valid() {
		return Result{}, fmt.Errorf("%w: unknown provider %q", leads.ErrInvalidQuery, req.Provider)
	}

	id, err := s.ids.NewID()
	if err != nil {
		return Result{}, fmt.Errorf("generate attempt id: %w", err)
	}
	attempt := leads.SearchAttempt{
		ID:         id,
		QueryText:  req.QueryText,
		Provider:   req.Provider,
		SearchType: req.SearchType,
		Status:     leads.AttemptPending,
		Initiator:  req.Initiator,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return Result{}, fmt.Errorf("create attempt: %w", err)
	}
	s.emit(progress.Event{
		AttemptID: attempt.ID,
		TS:        s.clock.Now(),
		Stage:     progress.StageSearchStart,
		Provider:  string(req.Provider),
	})

	if err := s.attempts.UpdateStatus(ctx, attempt.ID, leads.AttemptRunning, ""); err != nil {
		return Result{}, fmt.Errorf("mark attempt running: %w", err)
	}
	attempt.Status = leads.AttemptRunning

	start := s.clock.Now()
	records, err := client.Search(ctx, provider.Query{
		Text:       req.QueryText,
		Provider:   req.Provider,
		SearchType: req.SearchType,
		AttemptID:  attempt.ID,
	})
	if err != nil {
		return Result{}, s.failAttempt(ctx, attempt, err)
	}
	s.emit(progress.Event{
		AttemptID: attempt.ID,
		TS:        s.clock.Now(),
		Stage:     progress.StageJobDone,
		Provider:  string(req.Provider),
		Count:     len(records),
		Elapsed:   s.clock.Now().Sub(start),
	})

	candidates, skipped := s.normalizer.Records(records)
	if skipped > 0 {
		s.logger.Info("skipped malformed records",
			zap.String("attempt_id", attempt.ID),
			zap.Int("skipped", skipped))
	}

	if s.enricher != nil {
		candidates = s.enricher.Candidates(ctx, candidates)
	}

	dres, err := s.deduper.Filter(ctx, req.Provider, candidates)
	if err != nil {
		return Result{}, s.failAttempt(ctx, attempt, fmt.Errorf("dedupe candidates: %w", err))
	}

	if err := s.staging.Put(ctx, attempt.ID, dres.Kept); err != nil {
		return Result{}, s.failAttempt(ctx, attempt, fmt.Errorf("stage candidates: %w", err))
	}
	metrics.ObserveStaged(string(req.Provider), len(dres.Kept))
	s.emit(progress.Event{
		AttemptID: attempt.ID,
		TS:        s.clock.Now(),
		Stage:     progress.StageStaged,
		Provider:  string(req.Provider),
		Count:     len(dres.Kept),
	})

	metrics.ObserveSearch(string(req.Provider), "ok")
	s.emit(progress.Event{
		AttemptID: attempt.ID,
		TS:        s.clock.Now(),
		Stage:     progress.StageSearchDone,
		Provider:  string(req.Provider),
		Count:     len(dres.Kept),
		Elapsed:   s.clock.Now().Sub(start),
	})
	s.logger.Info("search staged",
		zap.String("attempt_id", attempt.ID),
		zap.String("provider", string(req.Provider)),
		zap.Int("raw", len(records)),
		zap.Int("staged", len(dres.Kept)),
		zap.Int("dropped_in_batch", dres.DroppedInBatch),
		zap.Int("dropped_existing", dres.DroppedExisting))

	return Result{Attempt: attempt, Candidates: dres.Kept}, nil
}

// Confirm consumes the staged batch for the attempt, persists it, marks the
// attempt done, and triggers the best-effort export.
func (s *Service) Confirm(ctx context.Context, attemptID string, indices []int) (leads.PersistResult, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return leads.PersistResult{}, err
	}

	// Validate the selection against the non-consuming view first so a bad
	// request does not burn the single-use staged batch.
	staged, err := s.staging.Get(ctx, attemptID)
	if err != nil {
		return leads.PersistResult{}, err
	}
	if err := validateIndices(indices, len(staged)); err != nil {
		return leads.PersistResult{}, err
	}

	batch, err := s.staging.Consume(ctx, attemptID)
	if err != nil {
		return leads.PersistResult{}, err
	}
	candidates := selectCandidates(batch, indices)

	var res leads.PersistResult
	now := s.clock.Now().UTC()
	persisted := make([]leads.Lead, 0, len(candidates))
	for _, c := range candidates {
		c.Source = attempt.Provider
		c.CreatedAt = now
		c.ID, err = s.ids.NewID()
		if err != nil {
			return res, fmt.Errorf("generate lead id: %w", err)
		}
		inserted, err := s.leadStore.Insert(ctx, c)
		if err != nil {
			return res, fmt.Errorf("persist lead %q: %w", c.Name, err)
		}
		if inserted {
			res.Inserted++
			persisted = append(persisted, c)
		} else {
			res.SkippedDuplicate++
		}
	}
	metrics.ObservePersist(string(attempt.Provider), res.Inserted, res.SkippedDuplicate)
	s.emit(progress.Event{
		AttemptID: attemptID,
		TS:        s.clock.Now(),
		Stage:     progress.StageConfirmed,
		Provider:  string(attempt.Provider),
		Count:     res.Inserted,
	})

	if err := s.attempts.UpdateStatus(ctx, attemptID, leads.AttemptDone, ""); err != nil {
		s.logger.Warn("attempt already terminal on confirm",
			zap.String("attempt_id", attemptID), zap.Error(err))
	}

	res.Exported = s.exporter.Run(ctx, attempt.QueryText, attempt.Provider, persisted)
	if res.Exported > 0 {
		s.emit(progress.Event{
			AttemptID: attemptID,
			TS:        s.clock.Now(),
			Stage:     progress.StageExported,
			Provider:  string(attempt.Provider),
			Count:     res.Exported,
		})
	}
	s.logger.Info("confirmation persisted",
		zap.String("attempt_id", attemptID),
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped_duplicate", res.SkippedDuplicate),
		zap.Int("exported", res.Exported))
	return res, nil
}

func validateIndices(indices []int, n int) error {
	for _, i := range indices {
		if i < 0 || i >= n {
			return fmt.Errorf("candidate index %d out of range [0,%d): %w", i, n, leads.ErrInvalidQuery)
		}
	}
	return nil
}

// selectCandidates keeps the staged order. An empty selection confirms the
// whole batch.
func selectCandidates(batch []leads.Lead, indices []int) []leads.Lead {
	if len(indices) == 0 {
		return batch
	}
	keep := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		keep[i] = struct{}{}
	}
	out := make([]leads.Lead, 0, len(keep))
	for i, c := range batch {
		if _, ok := keep[i]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Attempt returns the attempt record together with any still-staged
// candidates.
func (s *Service) Attempt(ctx context.Context, attemptID string) (Result, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return Result{}, err
	}
	candidates, err := s.staging.Get(ctx, attemptID)
	if err != nil {
		// Expired, consumed, or never staged; the attempt itself is still
		// worth returning.
		candidates = nil
	}
	return Result{Attempt: attempt, Candidates: candidates}, nil
}

// Attempts lists the initiator's recent attempts, newest first.
func (s *Service) Attempts(ctx context.Context, initiator string, limit int) ([]leads.SearchAttempt, error) {
	return s.attempts.ListRecent(ctx, initiator, limit)
}

// Leads lists persisted leads.
func (s *Service) Leads(ctx context.Context, filter leads.LeadFilter) ([]leads.Lead, error) {
	return s.leadStore.List(ctx, filter)
}

func (s *Service) failAttempt(ctx context.Context, attempt leads.SearchAttempt, cause error) error {
	metrics.ObserveSearch(string(attempt.Provider), "error")
	if err := s.attempts.UpdateStatus(ctx, attempt.ID, leads.AttemptFailed, cause.Error()); err != nil {
		s.logger.Error("mark attempt failed",
			zap.String("attempt_id", attempt.ID), zap.Error(err))
	}
	s.emit(progress.Event{
		AttemptID: attempt.ID,
		TS:        s.clock.Now(),
		Stage:     progress.StageSearchError,
		Provider:  string(attempt.Provider),
		Note:      cause.Error(),
	})
	return cause
}

func (s *Service) emit(e progress.Event) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(e)
}
