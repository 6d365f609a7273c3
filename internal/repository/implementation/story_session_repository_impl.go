package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ai-storystudio-be/internal/model"
	"ai-storystudio-be/internal/repository/contract"
	"ai-storystudio-be/pkg/story"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StorySessionRepositoryImpl struct {
	db *gorm.DB
}

func NewStorySessionRepository(db *gorm.DB) contract.StorySessionRepository {
	return &StorySessionRepositoryImpl{
		db: db,
	}
}

func (r *StorySessionRepositoryImpl) Put(ctx context.Context, session *story.Session) error {
	id, err := uuid.Parse(session.Id)
	if err != nil {
		return fmt.Errorf("session id %q is not a uuid: %w", session.Id, err)
	}

	document, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.Id, err)
	}

	m := &model.StorySession{
		Id:       id,
		State:    session.State,
		Document: document,
	}

	// Upsert: Put replaces the whole document on every transition
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "document", "updated_at"}),
	}).Create(m).Error
}

func (r *StorySessionRepositoryImpl) Get(ctx context.Context, sessionId string) (*story.Session, error) {
	id, err := uuid.Parse(sessionId)
	if err != nil {
		return nil, fmt.Errorf("session id %q is not a uuid: %w", sessionId, err)
	}

	var m model.StorySession
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var session story.Session
	if err := json.Unmarshal(m.Document, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sessionId, err)
	}
	return &session, nil
}
