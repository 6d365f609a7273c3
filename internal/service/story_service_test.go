package service

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-storystudio-be/internal/dto"
	"ai-storystudio-be/internal/repository/memory"
	"ai-storystudio-be/pkg/story"
	"ai-storystudio-be/pkg/story/engine"
)

// --- stubs ---------------------------------------------------------------

type stubInterpreter struct{}

func (stubInterpreter) Interpret(ctx context.Context, rawRequest string, prefs *story.Preferences) (*story.RequestSpec, error) {
	return &story.RequestSpec{Theme: "a sleepy forest", AgeBand: "5-10", Tone: "calm"}, nil
}

type stubPlanner struct{}

func (stubPlanner) PlanStory(ctx context.Context, spec *story.RequestSpec) (*story.Plan, error) {
	return &story.Plan{Version: 1, Beats: []story.PlanBeat{
		{Summary: "hook"}, {Summary: "gentle obstacle"}, {Summary: "wind-down", Closure: true},
	}}, nil
}

type stubStoryteller struct{}

func (stubStoryteller) Tell(ctx context.Context, spec *story.RequestSpec, plan *story.Plan) (string, error) {
	return "Once upon a time...", nil
}

type stubJudge struct{}

func (stubJudge) Evaluate(ctx context.Context, spec *story.RequestSpec, draft *story.Draft) (*story.JudgeReport, error) {
	gates := make(map[string]story.GateResult, len(story.HardGates))
	for _, g := range story.HardGates {
		gates[g] = story.GateResult{Passed: true}
	}
	scores := make(map[string]float64, len(story.SoftDimensions))
	for _, d := range story.SoftDimensions {
		scores[d] = 8
	}
	return &story.JudgeReport{
		RevisionIndex:   draft.RevisionIndex,
		HardGateResults: gates,
		SoftScores:      scores,
		OverallVerdict:  story.VerdictPass,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

type stubReviser struct{}

func (stubReviser) Revise(ctx context.Context, spec *story.RequestSpec, plan *story.Plan, draft *story.Draft, report *story.JudgeReport) (*story.Draft, error) {
	return nil, errors.New("stubReviser: not expected in this flow")
}

type stubPrefs struct{}

func (stubPrefs) Load(ctx context.Context) (*story.Preferences, error) {
	return &story.Preferences{}, nil
}

func (stubPrefs) Save(ctx context.Context, prefs *story.Preferences) error {
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{}) {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                 { return nil }

// --- helpers -------------------------------------------------------------

func newTestService(t *testing.T) IStoryService {
	t.Helper()
	sessions := memory.NewStorySessionRepository()
	eng := engine.NewEngine(
		stubInterpreter{}, stubPlanner{}, stubStoryteller{}, stubJudge{}, stubReviser{},
		sessions, stubPrefs{}, nil,
		engine.Config{MaxIterations: 1, RetryBackoff: time.Millisecond},
		log.New(io.Discard, "", 0),
	)
	return NewStoryService(eng, sessions, nopLogger{})
}

func waitForTerminal(t *testing.T, svc IStoryService, sessionId string) *dto.StorySessionResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, err := svc.GetSession(context.Background(), sessionId)
		require.NoError(t, err)
		switch got.State {
		case story.StateFinalized, story.StateFailed, story.StateAborted:
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session %s never reached a terminal state", sessionId)
	return nil
}

// --- tests ---------------------------------------------------------------

func TestCreateSessionReturnsInitSnapshot(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.CreateSession(context.Background(), &dto.CreateStorySessionRequest{
		Request: "a story about a sleepy fox",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionId)
	// The background run mutates the session concurrently; the response is a
	// snapshot taken before that run starts.
	assert.Equal(t, story.StateInit, resp.State)

	waitForTerminal(t, svc, resp.SessionId)
}

func TestCreateSessionRunsPipelineToFinalized(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.CreateSession(context.Background(), &dto.CreateStorySessionRequest{
		Request: "a story about a sleepy fox",
	})
	require.NoError(t, err)

	got := waitForTerminal(t, svc, resp.SessionId)
	assert.Equal(t, story.StateFinalized, got.State)
	assert.Equal(t, "Once upon a time...", got.FinalStory)
	assert.Equal(t, 1, got.DraftCount)
}

func TestGetSessionUnknownIdIsNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetSession(context.Background(), "no-such-session")
	var ferr *fiber.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, fiber.StatusNotFound, ferr.Code)
}

func TestAbortSessionAfterTerminalStateConflicts(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.CreateSession(context.Background(), &dto.CreateStorySessionRequest{
		Request: "a story about a sleepy fox",
	})
	require.NoError(t, err)
	waitForTerminal(t, svc, resp.SessionId)

	err = svc.AbortSession(context.Background(), resp.SessionId)
	var ferr *fiber.Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, fiber.StatusConflict, ferr.Code)
}
