package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matchaops/cafeleads/internal/progress"
)

// PrometheusSink exports search progress metrics via Prometheus. It owns all
// collectors for searches started/completed/running and poll-check counters.
type PrometheusSink struct {
	searchesStarted   prometheus.Counter
	searchesCompleted *prometheus.CounterVec
	searchesRunning   prometheus.Gauge
	searchRuntime     *prometheus.HistogramVec

	pollChecks    *prometheus.CounterVec
	stagedRecords *prometheus.CounterVec

	tracker *attemptTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		searchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafeleads_progress_searches_started_total",
			Help: "Total search attempts that have started.",
		}),
		searchesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cafeleads_progress_searches_completed_total",
			Help: "Total search attempts completed partitioned by result.",
		}, []string{"result"}),
		searchesRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cafeleads_progress_searches_running",
			Help: "Current number of in-flight search attempts.",
		}),
		searchRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cafeleads_progress_search_runtime_seconds",
			Help:    "Wall time per completed search attempt.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"result"}),
		pollChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cafeleads_progress_poll_checks_total",
			Help: "Remote job status checks partitioned by reported status.",
		}, []string{"remote_status"}),
		stagedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cafeleads_progress_staged_records_total",
			Help: "Candidate records staged for review partitioned by provider.",
		}, []string{"provider"}),
		tracker: newAttemptTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.searchesStarted,
		s.searchesCompleted,
		s.searchesRunning,
		s.searchRuntime,
		s.pollChecks,
		s.stagedRecords,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageSearchStart:
		s.searchesStarted.Inc()
		if s.tracker.start(evt.AttemptID) {
			s.searchesRunning.Inc()
		}
	case progress.StageSearchDone:
		s.completeSearch(evt, "success")
	case progress.StageSearchError:
		s.completeSearch(evt, "error")
	case progress.StageJobPoll:
		s.pollChecks.WithLabelValues(evt.RemoteStatus).Inc()
	case progress.StageStaged:
		if evt.Count > 0 {
			s.stagedRecords.WithLabelValues(evt.Provider).Add(float64(evt.Count))
		}
	}
}

func (s *PrometheusSink) completeSearch(evt progress.Event, result string) {
	s.searchesCompleted.WithLabelValues(result).Inc()
	if evt.Elapsed > 0 {
		s.searchRuntime.WithLabelValues(result).Observe(evt.Elapsed.Seconds())
	}
	if s.tracker.complete(evt.AttemptID) {
		s.searchesRunning.Dec()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type attemptTracker struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newAttemptTracker() *attemptTracker {
	return &attemptTracker{running: make(map[string]struct{})}
}

func (t *attemptTracker) start(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *attemptTracker) complete(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
