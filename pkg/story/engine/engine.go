package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"ai-storystudio-be/internal/repository/contract"
	"ai-storystudio-be/pkg/story"
	"ai-storystudio-be/pkg/telemetry"
)

// Config is the engine's tuning surface. Retry bounds, backoff, timeouts and
// the iteration budget are configuration, never hardcoded per call.
type Config struct {
	// MaxIterations bounds the judge-revise convergence loop (revisions, not
	// evaluations: a budget of 3 allows drafts v0..v3).
	MaxIterations int

	// MaxRetries bounds transient-failure retries per external call.
	MaxRetries int

	// RetryBackoff is the base delay between retries (linear backoff).
	RetryBackoff time.Duration

	// Per-call-kind timeouts for the external collaborators.
	InterpretTimeout time.Duration
	PlanTimeout      time.Duration
	DraftTimeout     time.Duration
	JudgeTimeout     time.Duration
	ReviseTimeout    time.Duration

	// PersistTimeout bounds each artifact store write.
	PersistTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 3
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	def := func(d *time.Duration, fallback time.Duration) {
		if *d <= 0 {
			*d = fallback
		}
	}
	def(&c.InterpretTimeout, 60*time.Second)
	def(&c.PlanTimeout, 60*time.Second)
	def(&c.DraftTimeout, 180*time.Second)
	def(&c.JudgeTimeout, 90*time.Second)
	def(&c.ReviseTimeout, 180*time.Second)
	def(&c.PersistTimeout, 10*time.Second)
	return c
}

// Engine is the session state machine. It alone decides state transitions;
// the collaborators report results or failures upward and never decide
// terminal outcomes. Each transition persists the session document before
// the in-memory state advances, so a crash resumes from the last completed
// state.
type Engine struct {
	interpreter story.Interpreter
	planner     story.Planner
	storyteller story.Storyteller
	judge       story.Judge
	reviser     story.Reviser
	sessions    contract.StorySessionRepository
	prefs       contract.PreferenceRepository
	sink        telemetry.Sink
	cfg         Config
	logger      *log.Logger
}

func NewEngine(
	interpreter story.Interpreter,
	planner story.Planner,
	storyteller story.Storyteller,
	judge story.Judge,
	reviser story.Reviser,
	sessions contract.StorySessionRepository,
	prefs contract.PreferenceRepository,
	sink telemetry.Sink,
	cfg Config,
	logger *log.Logger,
) *Engine {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Engine{
		interpreter: interpreter,
		planner:     planner,
		storyteller: storyteller,
		judge:       judge,
		reviser:     reviser,
		sessions:    sessions,
		prefs:       prefs,
		sink:        sink,
		cfg:         cfg.withDefaults(),
		logger:      logger,
	}
}

// Run drives the session from its current state to a terminal state. It is
// resumable: a session loaded from the store continues where it stopped.
// Cancelling ctx is the cooperative abort signal, observed only at
// transition boundaries; an in-flight collaborator call runs to completion
// (or its own timeout) and its result is discarded.
//
// The returned error is infrastructural (an artifact write that could not
// complete). Content and collaborator failures end in a terminal session
// state instead, with a machine-readable reason.
func (e *Engine) Run(ctx context.Context, s *story.Session) error {
	for !s.Terminal() {
		if ctx.Err() != nil {
			return e.abortSession(ctx, s)
		}

		var err error
		switch s.State {
		case story.StateInit:
			err = e.advance(ctx, s, story.StateInterpreting, "session started")
		case story.StateInterpreting:
			err = e.interpretStage(ctx, s)
		case story.StatePlanning:
			err = e.planStage(ctx, s)
		case story.StateDrafting:
			err = e.draftStage(ctx, s)
		case story.StateJudging:
			err = e.judgeStage(ctx, s)
		default:
			return fmt.Errorf("session %s in unknown state %q", s.Id, s.State)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) interpretStage(ctx context.Context, s *story.Session) error {
	prefs, err := e.prefs.Load(ctx)
	if err != nil {
		// Preference memory is advisory; a broken store must not kill the run
		e.logger.Printf("[WARN] Preference load failed, continuing without: %v", err)
		prefs = &story.Preferences{}
	}

	start := time.Now()
	var spec *story.RequestSpec
	err = e.withRetry(ctx, "interpreter", e.cfg.InterpretTimeout, func(callCtx context.Context) error {
		var callErr error
		spec, callErr = e.interpreter.Interpret(callCtx, s.RawRequest, prefs)
		return callErr
	})
	e.emit(s, "interpreter", start, map[string]interface{}{"ok": err == nil})
	if err != nil {
		return e.fail(ctx, s, story.ReasonIntentUnresolved, err)
	}
	if ctx.Err() != nil {
		return nil // result discarded, abort recorded at the loop boundary
	}

	next := s.Clone()
	next.RequestSpec = spec
	next.Transition(story.StatePlanning, "request interpreted")
	return e.swap(ctx, s, next)
}

func (e *Engine) planStage(ctx context.Context, s *story.Session) error {
	start := time.Now()
	var plan *story.Plan
	err := e.withRetry(ctx, "planner", e.cfg.PlanTimeout, func(callCtx context.Context) error {
		var callErr error
		plan, callErr = e.planner.PlanStory(callCtx, s.RequestSpec)
		return callErr
	})
	e.emit(s, "planner", start, map[string]interface{}{"ok": err == nil})
	if err != nil {
		return e.fail(ctx, s, story.ReasonPlanningFailed, err)
	}
	if ctx.Err() != nil {
		return nil
	}

	next := s.Clone()
	next.Plan = plan
	next.Transition(story.StateDrafting, "outline planned")
	return e.swap(ctx, s, next)
}

func (e *Engine) draftStage(ctx context.Context, s *story.Session) error {
	start := time.Now()
	var text string
	err := e.withRetry(ctx, "storyteller", e.cfg.DraftTimeout, func(callCtx context.Context) error {
		var callErr error
		text, callErr = e.storyteller.Tell(callCtx, s.RequestSpec, s.Plan)
		return callErr
	})
	e.emit(s, "storyteller", start, map[string]interface{}{"ok": err == nil})
	if err != nil {
		return e.fail(ctx, s, story.ReasonDraftGenerationFailed, err)
	}
	if ctx.Err() != nil {
		return nil
	}

	next := s.Clone()
	if err := next.AppendDraft(story.Draft{
		RevisionIndex: len(next.DraftHistory),
		Text:          text,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		return err
	}
	next.Transition(story.StateJudging, "draft v0 generated")
	return e.swap(ctx, s, next)
}

func (e *Engine) judgeStage(ctx context.Context, s *story.Session) error {
	outcome, err := e.converge(ctx, s)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil // abort recorded at the loop boundary
	}

	if !outcome.resolved {
		return e.fail(ctx, s, story.ReasonSafetyUnresolved,
			fmt.Errorf("no draft cleared all hard gates within the iteration budget"))
	}

	next := s.Clone()
	next.FinalStory = outcome.final.Text
	next.BestEffort = outcome.bestEffort
	reason := "judge verdict PASS"
	if outcome.bestEffort {
		reason = fmt.Sprintf("budget exhausted, safe best-effort draft v%d selected", outcome.final.RevisionIndex)
	}
	next.Transition(story.StateFinalized, reason)
	return e.swap(ctx, s, next)
}

// swap persists the mutated clone and, only on success, makes it the
// session's in-memory state.
func (e *Engine) swap(ctx context.Context, s, next *story.Session) error {
	if err := e.put(ctx, next); err != nil {
		return fmt.Errorf("persist session %s at %s: %w", next.Id, next.State, err)
	}
	*s = *next
	e.emit(s, "transition", time.Now(), map[string]interface{}{"state": s.State})
	return nil
}

func (e *Engine) advance(ctx context.Context, s *story.Session, to, reason string) error {
	next := s.Clone()
	next.Transition(to, reason)
	return e.swap(ctx, s, next)
}

func (e *Engine) fail(ctx context.Context, s *story.Session, reason string, cause error) error {
	e.logger.Printf("[ENGINE] Session %s failed: %s (%v)", s.Id, reason, cause)
	next := s.Clone()
	next.FailureReason = reason
	next.Transition(story.StateFailed, reason)
	return e.swap(ctx, s, next)
}

func (e *Engine) abortSession(ctx context.Context, s *story.Session) error {
	e.logger.Printf("[ENGINE] Session %s aborted by caller at state %s", s.Id, s.State)
	next := s.Clone()
	next.Transition(story.StateAborted, story.ReasonAborted)
	return e.swap(ctx, s, next)
}

// put writes through the artifact store. The write context is detached from
// the abort signal: a cancelled run must still be able to record its final
// state.
func (e *Engine) put(ctx context.Context, s *story.Session) error {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.PersistTimeout)
	defer cancel()
	return e.sessions.Put(persistCtx, s)
}

func (e *Engine) emit(s *story.Session, name string, start time.Time, meta map[string]interface{}) {
	e.sink.Emit(telemetry.StageEvent{
		SessionId: s.Id,
		Stage:     s.State,
		Name:      name,
		StartedAt: start,
		EndedAt:   time.Now().UTC(),
		Metadata:  meta,
	})
}
