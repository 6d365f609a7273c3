package telemetry

import (
	"go.uber.org/zap"
)

// ZapSink writes stage events as structured log entries. Zap's core is
// non-blocking enough for fire-and-forget use; a write failure only surfaces
// through zap's own error output, never to the pipeline.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Emit(event StageEvent) {
	s.logger.Info("telemetry",
		zap.String("session_id", event.SessionId),
		zap.String("stage", event.Stage),
		zap.String("name", event.Name),
		zap.Int64("duration_ms", event.DurationMs()),
		zap.Any("metadata", event.Metadata),
	)
}
