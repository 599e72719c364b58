// Package export forwards confirmed leads to the spreadsheet collaborator.
// Export is best-effort: a failure is logged and counted but never rolls
// back persistence.
package export

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/matchaops/cafeleads/internal/leads"
	"github.com/matchaops/cafeleads/internal/metrics"
)

// Tab names accept word characters, spaces and a few separators; anything
// else is squashed so the Sheets API never rejects the title.
var tabNameSanitizer = regexp.MustCompile(`[^\w\s().-]+`)

const maxTabNameLen = 100

// Trigger owns the export policy: which rows qualify, what the destination
// tab is called, and the best-effort error handling around the exporter.
type Trigger struct {
	exporter  leads.Exporter
	clock     leads.Clock
	tabPrefix string
	logger    *zap.Logger
}

// NewTrigger builds a Trigger. A nil exporter disables exporting entirely.
func NewTrigger(exporter leads.Exporter, clock leads.Clock, tabPrefix string, logger *zap.Logger) *Trigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{
		exporter:  exporter,
		clock:     clock,
		tabPrefix: tabPrefix,
		logger:    logger,
	}
}

// Run exports the rows that carry at least one social handle and returns how
// many were sent. Errors are logged, never returned.
func (t *Trigger) Run(ctx context.Context, query string, source leads.Source, rows []leads.Lead) int {
	if t == nil || t.exporter == nil {
		return 0
	}
	eligible := make([]leads.Lead, 0, len(rows))
	for _, r := range rows {
		if r.HasSocialHandle() {
			eligible = append(eligible, r)
		}
	}
	if len(eligible) == 0 {
		return 0
	}

	destination := t.Destination(query, source)
	if err := t.exporter.Export(ctx, destination, eligible); err != nil {
		metrics.ObserveExport("error")
		t.logger.Error("spreadsheet export failed",
			zap.String("destination", destination),
			zap.Int("rows", len(eligible)),
			zap.Error(err))
		return 0
	}
	metrics.ObserveExport("ok")
	t.logger.Info("exported leads",
		zap.String("destination", destination),
		zap.Int("rows", len(eligible)))
	return len(eligible)
}

// Destination builds the tab name from the query and source, suffixed with
// the wall-clock time so repeated exports of the same query get their own
// tabs within a day.
func (t *Trigger) Destination(query string, source leads.Source) string {
	suffix := t.clock.Now().Format("1504")

	query = strings.TrimSpace(query)
	if len(query) > 30 {
		query = query[:30]
	}

	var name string
	switch {
	case query != "" && source != "":
		name = fmt.Sprintf("%s - %s (%s)", query, SourceLabel(source), suffix)
	case query != "":
		name = fmt.Sprintf("%s (%s)", query, suffix)
	case source != "":
		name = fmt.Sprintf("%s (%s)", SourceLabel(source), suffix)
	default:
		name = fmt.Sprintf("Export (%s)", suffix)
	}
	if t.tabPrefix != "" {
		name = t.tabPrefix + " " + name
	}

	name = tabNameSanitizer.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), " ")
	if len(name) > maxTabNameLen {
		name = name[:maxTabNameLen]
	}
	return name
}

// SourceLabel renders a source value for human-facing output
// (google_maps becomes "Google Maps").
func SourceLabel(source leads.Source) string {
	parts := strings.Split(string(source), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// Recorder is an in-memory exporter for development mode and tests.
type Recorder struct {
	mu      sync.Mutex
	Batches map[string][]leads.Lead
	Err     error
}

// NewRecorder constructs a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{Batches: make(map[string][]leads.Lead)}
}

// Export records the batch under its destination.
func (r *Recorder) Export(_ context.Context, destination string, rows []leads.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	batch := make([]leads.Lead, len(rows))
	copy(batch, rows)
	r.Batches[destination] = append(r.Batches[destination], batch...)
	return nil
}
