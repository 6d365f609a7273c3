package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-storystudio-be/internal/repository/contract"
	"ai-storystudio-be/pkg/story"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "story:session:"

// StorySessionRepository persists session documents as JSON values in Redis.
// SET is atomic per key, which is all the engine's per-session write
// serialization needs.
type StorySessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

var _ contract.StorySessionRepository = &StorySessionRepository{}

func NewStorySessionRepository(client *redis.Client, ttl time.Duration) *StorySessionRepository {
	return &StorySessionRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *StorySessionRepository) Put(ctx context.Context, session *story.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.Id, err)
	}
	if err := r.client.Set(ctx, keyPrefix+session.Id, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", session.Id, err)
	}
	return nil
}

func (r *StorySessionRepository) Get(ctx context.Context, sessionId string) (*story.Session, error) {
	payload, err := r.client.Get(ctx, keyPrefix+sessionId).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get session %s: %w", sessionId, err)
	}

	var session story.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sessionId, err)
	}
	return &session, nil
}
