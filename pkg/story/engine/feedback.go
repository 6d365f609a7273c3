package engine

import (
	"context"
	"fmt"
	"time"

	"ai-storystudio-be/pkg/story"
)

// ApplyFeedback handles explicit human feedback on a finalized story. It is
// the only path that writes preference memory, and it runs one reviser pass
// so the user immediately sees their feedback applied. The revised draft is
// appended to the history like any other version.
func (e *Engine) ApplyFeedback(ctx context.Context, s *story.Session, feedback string) error {
	if s.State != story.StateFinalized {
		return fmt.Errorf("feedback requires a FINALIZED session, state is %s", s.State)
	}

	prefs, err := e.prefs.Load(ctx)
	if err != nil {
		e.logger.Printf("[WARN] Preference load failed: %v", err)
		prefs = &story.Preferences{}
	}
	prefs.ApplyFeedback(feedback)
	if err := e.prefs.Save(ctx, prefs); err != nil {
		e.logger.Printf("[WARN] Preference save failed: %v", err)
	}

	// Feedback applies to the published story. After a best-effort fallback
	// the latest draft can be a gate-failing one, so it is never the base.
	current := s.FinalDraft()
	feedbackReport := &story.JudgeReport{
		RevisionIndex: current.RevisionIndex,
		RevisionInstructions: []string{
			"User feedback: " + feedback,
			"Apply the feedback while keeping the story safe and age-appropriate for " + s.RequestSpec.AgeBand + ".",
			"Do not add scary elements. Keep a cozy bedtime ending.",
		},
		CreatedAt: time.Now().UTC(),
	}

	start := time.Now()
	var draft *story.Draft
	err = e.withRetry(ctx, "feedback_reviser", e.cfg.ReviseTimeout, func(callCtx context.Context) error {
		var callErr error
		draft, callErr = e.reviser.Revise(callCtx, s.RequestSpec, s.Plan, current, feedbackReport)
		return callErr
	})
	e.emit(s, "feedback_reviser", start, map[string]interface{}{"ok": err == nil})
	if err != nil {
		return fmt.Errorf("feedback revision failed: %w", err)
	}

	next := s.Clone()
	next.UserFeedback = feedback
	// The new version goes to the end of the chain even when its base was an
	// earlier draft.
	draft.RevisionIndex = len(next.DraftHistory)
	if err := next.AppendDraft(*draft); err != nil {
		return err
	}
	next.FinalStory = draft.Text
	if err := e.put(ctx, next); err != nil {
		return fmt.Errorf("persist session %s after feedback: %w", next.Id, err)
	}
	*s = *next

	e.logger.Printf("[ENGINE] Session %s updated from user feedback (draft v%d)", s.Id, draft.RevisionIndex)
	return nil
}
