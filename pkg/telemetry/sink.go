package telemetry

import (
	"time"
)

// StageEvent is one append-only telemetry record tied to a session and a
// pipeline stage. Events are never mutated after emission.
type StageEvent struct {
	SessionId string                 `json:"session_id"`
	Stage     string                 `json:"stage"`
	Name      string                 `json:"name"`
	StartedAt time.Time              `json:"started_at"`
	EndedAt   time.Time              `json:"ended_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// EventType implements events.Event.
func (e StageEvent) EventType() string {
	return e.Name
}

// Payload implements events.Event.
func (e StageEvent) Payload() map[string]interface{} {
	p := map[string]interface{}{
		"session_id":  e.SessionId,
		"stage":       e.Stage,
		"name":        e.Name,
		"started_at":  e.StartedAt,
		"ended_at":    e.EndedAt,
		"duration_ms": e.DurationMs(),
	}
	for k, v := range e.Metadata {
		p[k] = v
	}
	return p
}

// Timestamp implements events.Event.
func (e StageEvent) Timestamp() time.Time {
	return e.EndedAt
}

func (e StageEvent) DurationMs() int64 {
	if e.EndedAt.IsZero() || e.StartedAt.IsZero() {
		return 0
	}
	return e.EndedAt.Sub(e.StartedAt).Milliseconds()
}

// Sink is an append-only recorder for stage events. Emit is fire-and-forget:
// implementations must never block the pipeline or surface errors to it.
type Sink interface {
	Emit(event StageEvent)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Emit(StageEvent) {}

// MultiSink fans out to several sinks.
type MultiSink []Sink

func (m MultiSink) Emit(event StageEvent) {
	for _, s := range m {
		s.Emit(event)
	}
}
