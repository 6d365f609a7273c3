package dto

import (
	"time"
)

type CreateStorySessionRequest struct {
	Request string `json:"request" validate:"required,min=3"`
}

type CreateStorySessionResponse struct {
	SessionId string `json:"session_id"`
	State     string `json:"state"`
}

type StoryFeedbackRequest struct {
	Feedback string `json:"feedback" validate:"required,min=2"`
}

type JudgeReportDTO struct {
	RevisionIndex  int     `json:"revision_index"`
	Verdict        string  `json:"verdict"`
	AggregateScore float64 `json:"aggregate_score"`
	GatesPassed    bool    `json:"gates_passed"`
	Summary        string  `json:"summary,omitempty"`
}

type StorySessionResponse struct {
	SessionId     string           `json:"session_id"`
	State         string           `json:"state"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DraftCount    int              `json:"draft_count"`
	JudgeReports  []JudgeReportDTO `json:"judge_reports,omitempty"`
	FinalStory    string           `json:"final_story,omitempty"`
	BestEffort    bool             `json:"best_effort,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
}
