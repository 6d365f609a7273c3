package story

import "context"

// The generation steps are narrow capability interfaces so the orchestration
// core stays deterministic and unit-testable with stubs. Implementations
// live in pkg/story/{interpret,plan,tell,judge,revise} and delegate to an
// llm.LLMProvider.

// Interpreter turns the raw, underspecified user request into a RequestSpec.
type Interpreter interface {
	Interpret(ctx context.Context, rawRequest string, prefs *Preferences) (*RequestSpec, error)
}

// Planner produces an ordered outline from a RequestSpec.
type Planner interface {
	PlanStory(ctx context.Context, spec *RequestSpec) (*Plan, error)
}

// Storyteller writes the full v0 draft text from spec and plan.
type Storyteller interface {
	Tell(ctx context.Context, spec *RequestSpec, plan *Plan) (string, error)
}

// Judge evaluates one draft against the rubric and returns a fully
// populated report. A malformed verdict from the underlying judgment call
// is an error, never a coerced PASS.
type Judge interface {
	Evaluate(ctx context.Context, spec *RequestSpec, draft *Draft) (*JudgeReport, error)
}

// Reviser produces the next draft version from judge feedback. The parent
// draft is never modified; the returned draft carries revision_index+1 and
// the instructions it attempted to address.
type Reviser interface {
	Revise(ctx context.Context, spec *RequestSpec, plan *Plan, draft *Draft, report *JudgeReport) (*Draft, error)
}
