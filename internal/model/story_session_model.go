package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StorySession stores the full session artifact as one JSON document, with
// the state lifted into a column for cheap filtering.
type StorySession struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	State     string         `gorm:"type:varchar(20);not null;index"`
	Document  datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (StorySession) TableName() string {
	return "story_sessions"
}
