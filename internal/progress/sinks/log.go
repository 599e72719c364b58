package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/matchaops/cafeleads/internal/progress"
)

// LogSink emits structured logs for debugging progress streams. It is useful
// during development or audits where a metrics backend is unavailable.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("attempt_id", evt.AttemptID),
			zap.String("stage", string(evt.Stage)),
			zap.String("provider", evt.Provider),
			zap.String("remote_status", evt.RemoteStatus),
			zap.Int("count", evt.Count),
			zap.Duration("elapsed", evt.Elapsed),
			zap.String("note", evt.Note),
		}
		s.logger.Info("progress event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
