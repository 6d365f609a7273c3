package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"

	"ai-storystudio-be/internal/dto"
	"ai-storystudio-be/internal/pkg/logger"
	"ai-storystudio-be/internal/repository/contract"
	"ai-storystudio-be/pkg/story"
	"ai-storystudio-be/pkg/story/engine"
)

type IStoryService interface {
	CreateSession(ctx context.Context, req *dto.CreateStorySessionRequest) (*dto.CreateStorySessionResponse, error)
	GetSession(ctx context.Context, sessionId string) (*dto.StorySessionResponse, error)
	AbortSession(ctx context.Context, sessionId string) error
	SubmitFeedback(ctx context.Context, sessionId string, req *dto.StoryFeedbackRequest) (*dto.StorySessionResponse, error)
}

type storyService struct {
	engine   *engine.Engine
	sessions contract.StorySessionRepository
	logger   logger.ILogger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewStoryService(eng *engine.Engine, sessions contract.StorySessionRepository, log logger.ILogger) IStoryService {
	return &storyService{
		engine:   eng,
		sessions: sessions,
		logger:   log,
		running:  make(map[string]context.CancelFunc),
	}
}

// CreateSession persists a fresh session and kicks off the pipeline in the
// background. The response returns immediately with the session id; callers
// poll GetSession for progress.
func (s *storyService) CreateSession(ctx context.Context, req *dto.CreateStorySessionRequest) (*dto.CreateStorySessionResponse, error) {
	session := story.NewSession(req.Request)
	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	// Snapshot before the goroutine starts: the engine mutates session in place.
	sessionId, initialState := session.Id, session.State

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.running[sessionId] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.running, sessionId)
			s.mu.Unlock()
		}()
		if err := s.engine.Run(runCtx, session); err != nil {
			s.logger.Error("story", "pipeline run failed", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
		}
	}()

	return &dto.CreateStorySessionResponse{SessionId: sessionId, State: initialState}, nil
}

func (s *storyService) GetSession(ctx context.Context, sessionId string) (*dto.StorySessionResponse, error) {
	session, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return toSessionResponse(session), nil
}

// AbortSession cancels the background run. The engine honors cancellation at
// the next stage boundary, so the caller may still observe a short window in
// which the prior state is reported.
func (s *storyService) AbortSession(ctx context.Context, sessionId string) error {
	session, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	if session.Terminal() {
		return fiber.NewError(fiber.StatusConflict, "session already reached a terminal state")
	}

	s.mu.Lock()
	cancel, ok := s.running[sessionId]
	s.mu.Unlock()
	if !ok {
		return fiber.NewError(fiber.StatusConflict, "session is not running")
	}
	cancel()
	return nil
}

func (s *storyService) SubmitFeedback(ctx context.Context, sessionId string, req *dto.StoryFeedbackRequest) (*dto.StorySessionResponse, error) {
	session, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	if session.State != story.StateFinalized {
		return nil, fiber.NewError(fiber.StatusConflict, "feedback is only accepted on finalized sessions")
	}

	if err := s.engine.ApplyFeedback(ctx, session, req.Feedback); err != nil {
		return nil, fmt.Errorf("failed to apply feedback: %w", err)
	}
	return toSessionResponse(session), nil
}

func toSessionResponse(session *story.Session) *dto.StorySessionResponse {
	resp := &dto.StorySessionResponse{
		SessionId:     session.Id,
		State:         session.State,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
		DraftCount:    len(session.DraftHistory),
		FinalStory:    session.FinalStory,
		BestEffort:    session.BestEffort,
		FailureReason: session.FailureReason,
	}
	for _, report := range session.JudgeReports {
		resp.JudgeReports = append(resp.JudgeReports, dto.JudgeReportDTO{
			RevisionIndex:  report.RevisionIndex,
			Verdict:        report.OverallVerdict,
			AggregateScore: report.AggregateScore(),
			GatesPassed:    report.GatesPassed(),
			Summary:        report.Summary,
		})
	}
	return resp
}
