package engine

import (
	"context"
	"fmt"
	"time"

	"ai-storystudio-be/pkg/story"
)

// convergeOutcome is the convergence loop's report back to the state
// machine. The loop never transitions the session itself.
type convergeOutcome struct {
	// final is the draft to publish. Nil when resolved is false.
	final *story.Draft
	// bestEffort marks a fallback selection after budget exhaustion.
	bestEffort bool
	// resolved is false when no draft ever cleared all hard gates.
	resolved bool
}

// converge drives the judge-revise loop: evaluate the latest draft, stop on
// PASS, otherwise revise until the iteration budget is exhausted, then apply
// the fallback policy. This is the system's only repair mechanism for
// content quality; infrastructure retries happen one level down, inside
// withRetry around each collaborator call.
//
// The loop appends to draft_history and judge_reports (persisting after
// each append) and never touches session state.
func (e *Engine) converge(ctx context.Context, s *story.Session) (convergeOutcome, error) {
	for {
		if ctx.Err() != nil {
			return convergeOutcome{}, nil // abort recorded at the run-loop boundary
		}

		current := s.LatestDraft()
		if current == nil {
			return convergeOutcome{}, fmt.Errorf("session %s entered JUDGING without a draft", s.Id)
		}

		// One report per evaluated draft; skip when resuming a session whose
		// latest draft is already judged.
		if len(s.JudgeReports) <= current.RevisionIndex {
			report, err := e.evaluate(ctx, s, current)
			if err != nil {
				// Evaluator-level failure after bounded retries: stop
				// iterating and decide from what we have. Never a PASS.
				e.logger.Printf("[CONVERGE] Evaluation of draft v%d failed, stopping loop: %v", current.RevisionIndex, err)
				return e.fallback(s), nil
			}
			if ctx.Err() != nil {
				return convergeOutcome{}, nil // verdict discarded
			}

			next := s.Clone()
			next.AppendReport(*report)
			if err := e.swapQuiet(ctx, s, next); err != nil {
				return convergeOutcome{}, err
			}
		}

		report := &s.JudgeReports[len(s.JudgeReports)-1]
		if report.OverallVerdict == story.VerdictPass {
			return convergeOutcome{final: current, resolved: true}, nil
		}

		revisions := len(s.DraftHistory) - 1
		if revisions >= e.cfg.MaxIterations {
			e.logger.Printf("[CONVERGE] Iteration budget (%d) exhausted", e.cfg.MaxIterations)
			return e.fallback(s), nil
		}

		draft, err := e.reviseOnce(ctx, s, current, report)
		if err != nil {
			e.logger.Printf("[CONVERGE] Revision of draft v%d failed, stopping loop: %v", current.RevisionIndex, err)
			return e.fallback(s), nil
		}
		if ctx.Err() != nil {
			return convergeOutcome{}, nil // revision discarded
		}

		next := s.Clone()
		if err := next.AppendDraft(*draft); err != nil {
			return convergeOutcome{}, err
		}
		if err := e.swapQuiet(ctx, s, next); err != nil {
			return convergeOutcome{}, err
		}
	}
}

func (e *Engine) evaluate(ctx context.Context, s *story.Session, draft *story.Draft) (*story.JudgeReport, error) {
	start := time.Now()
	var report *story.JudgeReport
	err := e.withRetry(ctx, "judge", e.cfg.JudgeTimeout, func(callCtx context.Context) error {
		var callErr error
		report, callErr = e.judge.Evaluate(callCtx, s.RequestSpec, draft)
		return callErr
	})
	meta := map[string]interface{}{"revision_index": draft.RevisionIndex, "ok": err == nil}
	if err == nil {
		meta["verdict"] = report.OverallVerdict
		meta["aggregate_score"] = report.AggregateScore()
		meta["gates_passed"] = report.GatesPassed()
	}
	e.emit(s, "judge", start, meta)
	return report, err
}

func (e *Engine) reviseOnce(ctx context.Context, s *story.Session, draft *story.Draft, report *story.JudgeReport) (*story.Draft, error) {
	start := time.Now()
	var next *story.Draft
	err := e.withRetry(ctx, "reviser", e.cfg.ReviseTimeout, func(callCtx context.Context) error {
		var callErr error
		next, callErr = e.reviser.Revise(callCtx, s.RequestSpec, s.Plan, draft, report)
		return callErr
	})
	e.emit(s, "reviser", start, map[string]interface{}{
		"parent_revision": draft.RevisionIndex,
		"rewrite":         report.RewriteRequired,
		"ok":              err == nil,
	})
	return next, err
}

// fallback selects the best-scoring draft among those whose hard gates all
// passed: highest aggregate soft score, ties broken by the latest revision.
// With no gate-passing draft the session cannot be resolved safely.
func (e *Engine) fallback(s *story.Session) convergeOutcome {
	bestIdx := -1
	bestScore := -1.0
	for i := range s.JudgeReports {
		r := &s.JudgeReports[i]
		if !r.GatesPassed() || r.RevisionIndex >= len(s.DraftHistory) {
			continue
		}
		if score := r.AggregateScore(); score >= bestScore {
			bestScore = score
			bestIdx = r.RevisionIndex
		}
	}
	if bestIdx < 0 {
		return convergeOutcome{resolved: false}
	}
	e.logger.Printf("[CONVERGE] Best-effort fallback: draft v%d (aggregate %.1f)", bestIdx, bestScore)
	return convergeOutcome{final: &s.DraftHistory[bestIdx], bestEffort: true, resolved: true}
}

// swapQuiet persists an appended artifact without emitting a transition
// event (the state did not change).
func (e *Engine) swapQuiet(ctx context.Context, s, next *story.Session) error {
	if err := e.put(ctx, next); err != nil {
		return fmt.Errorf("persist session %s artifacts: %w", next.Id, err)
	}
	*s = *next
	return nil
}
