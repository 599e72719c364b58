// Package progress defines the event structures emitted by the search pipeline.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageSearchStart  Stage = "SEARCH_START"
	StageJobSubmitted Stage = "JOB_SUBMITTED"
	StageJobPoll      Stage = "JOB_POLL"
	StageJobDone      Stage = "JOB_DONE"
	StageStaged       Stage = "STAGED"
	StageSearchDone   Stage = "SEARCH_DONE"
	StageSearchError  Stage = "SEARCH_ERROR"
	StageConfirmed    Stage = "CONFIRMED"
	StageExported     Stage = "EXPORTED"
)

// Event captures a single milestone of a search attempt's lifecycle.
type Event struct {
	// AttemptID identifies the search attempt the milestone belongs to.
	AttemptID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// Provider labels the search source (google_maps, apify_tiktok, ...).
	Provider string
	// RemoteStatus carries the provider job status observed by a poll check.
	RemoteStatus string
	// Count carries record counts for STAGED/CONFIRMED/EXPORTED milestones.
	Count int
	// Elapsed captures wall time for polls and completed searches.
	Elapsed time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.AttemptID == "" {
		return errors.New("attempt id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageSearchStart, StageJobSubmitted, StageJobDone,
		StageStaged, StageSearchDone, StageSearchError,
		StageConfirmed, StageExported:
	case StageJobPoll:
		if e.RemoteStatus == "" {
			return errors.New("poll event requires remote status")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Elapsed < 0 {
		return errors.New("elapsed must be >= 0")
	}
	if e.Count < 0 {
		return errors.New("count must be >= 0")
	}
	return nil
}
