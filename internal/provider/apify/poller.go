package apify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/matchaops/cafeleads/internal/leads"
	"github.com/matchaops/cafeleads/internal/metrics"
	"github.com/matchaops/cafeleads/internal/progress"
)

// waitForRun polls the actor run until it reaches a terminal status or the
// wait budget runs out. The first status check happens after one full poll
// interval; a run is always checked at least once, and the total wait never
// exceeds the budget by more than one interval. On timeout the remote run is
// left running, only the local wait is abandoned.
func (c *Client) waitForRun(ctx context.Context, attemptID, runID string) (run, error) {
	deadline := c.now().Add(c.cfg.WaitBudget)
	checks := 0

	for {
		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return run{}, leads.NewProviderError(c.cfg.Source, leads.ErrTimeout, "wait cancelled: "+err.Error())
		}

		r, err := c.runStatus(ctx, runID)
		if err != nil {
			var perr *leads.ProviderError
			if errors.As(err, &perr) && errors.Is(err, leads.ErrNetworkFailure) {
				// Transient status-check failure; the run itself is fine.
				c.logger.Warn("run status check failed",
					zap.String("run_id", runID), zap.Error(err))
				metrics.ObservePollCheck("error")
				if !c.now().Before(deadline) {
					return run{}, leads.NewProviderError(c.cfg.Source, leads.ErrTimeout,
						fmt.Sprintf("run %s unreachable after %s", runID, c.cfg.WaitBudget))
				}
				continue
			}
			return run{}, err
		}
		checks++
		c.emitPoll(attemptID, r.Status, checks)

		switch r.Status {
		case statusSucceeded:
			metrics.ObservePollCheck("succeeded")
			return r, nil
		case statusFailed, statusAborted, statusTimedOut:
			metrics.ObservePollCheck("failed")
			return run{}, leads.NewProviderError(c.cfg.Source, leads.ErrJobFailed,
				fmt.Sprintf("run %s finished with status %s", runID, r.Status))
		default:
			metrics.ObservePollCheck("pending")
		}

		if !c.now().Before(deadline) {
			c.logger.Warn("run wait budget exhausted, run left alive",
				zap.String("run_id", runID),
				zap.Duration("budget", c.cfg.WaitBudget),
				zap.Int("checks", checks))
			return run{}, leads.NewProviderError(c.cfg.Source, leads.ErrTimeout,
				fmt.Sprintf("run %s still %s after %s", runID, r.Status, c.cfg.WaitBudget))
		}
	}
}

func (c *Client) emitPoll(attemptID, remoteStatus string, checks int) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(progress.Event{
		AttemptID:    attemptID,
		TS:           c.now(),
		Stage:        progress.StageJobPoll,
		Provider:     string(c.cfg.Source),
		RemoteStatus: remoteStatus,
		Count:        checks,
	})
}
