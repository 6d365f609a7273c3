package memory

import (
	"context"
	"time"

	"ai-storystudio-be/internal/repository/contract"
	"ai-storystudio-be/pkg/story"

	"github.com/patrickmn/go-cache"
)

type StorySessionRepository struct {
	cache *cache.Cache
}

var _ contract.StorySessionRepository = &StorySessionRepository{}

func NewStorySessionRepository() *StorySessionRepository {
	// Sessions linger for a day so finished stories stay retrievable;
	// expired items are purged every hour
	c := cache.New(24*time.Hour, 1*time.Hour)
	return &StorySessionRepository{
		cache: c,
	}
}

func (r *StorySessionRepository) Put(_ context.Context, session *story.Session) error {
	// Store a clone: callers keep mutating their copy between writes
	r.cache.Set(session.Id, session.Clone(), cache.DefaultExpiration)
	return nil
}

func (r *StorySessionRepository) Get(_ context.Context, sessionId string) (*story.Session, error) {
	if x, found := r.cache.Get(sessionId); found {
		return x.(*story.Session).Clone(), nil
	}
	return nil, nil
}
