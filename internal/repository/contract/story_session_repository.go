package contract

import (
	"context"

	"ai-storystudio-be/pkg/story"
)

// StorySessionRepository is the durable artifact store: one JSON-serializable
// session document per session id. Put must be atomic per document; the
// engine relies on it to guarantee crash resumability.
type StorySessionRepository interface {
	// Put persists the full session document, replacing any previous version.
	Put(ctx context.Context, session *story.Session) error

	// Get returns the session document, or (nil, nil) when not found.
	Get(ctx context.Context, sessionId string) (*story.Session, error)
}
