package plan

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-storystudio-be/pkg/llm"
	"ai-storystudio-be/pkg/story"
)

// Planner produces a simple, cozy outline with a gentle arc. The outline
// must carry an explicit closure beat; a plan without one is treated as a
// malformed response so the caller's retry policy applies.
type Planner struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

var _ story.Planner = &Planner{}

func NewPlanner(llmProvider llm.LLMProvider, logger *log.Logger) *Planner {
	return &Planner{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

func (p *Planner) PlanStory(ctx context.Context, spec *story.RequestSpec) (*story.Plan, error) {
	prompt := p.buildPrompt(spec)

	response, err := p.llmProvider.Generate(ctx, prompt,
		llm.WithTemperature(0.2),
		llm.WithMaxTokens(700),
	)
	if err != nil {
		return nil, fmt.Errorf("planner call failed: %w", err)
	}

	var parsed struct {
		Beats []story.PlanBeat `json:"beats"`
	}
	if err := story.ExtractJSON(response, &parsed); err != nil {
		return nil, fmt.Errorf("planner returned malformed outline: %w", err)
	}
	if len(parsed.Beats) < 3 {
		return nil, fmt.Errorf("planner outline too short: %d beats", len(parsed.Beats))
	}

	plan := &story.Plan{Version: 1, Beats: parsed.Beats}
	if plan.ClosureBeat() < 0 {
		return nil, fmt.Errorf("planner outline has no closure beat")
	}

	p.logger.Printf("[PLAN] Outline ready: %d beats, closure at beat %d", len(plan.Beats), plan.ClosureBeat())

	return plan, nil
}

func (p *Planner) buildPrompt(spec *story.RequestSpec) string {
	var prompt strings.Builder

	prompt.WriteString("You are a story planner for a bedtime story (ages ")
	prompt.WriteString(spec.AgeBand)
	prompt.WriteString(").\nCreate a simple, cozy outline with a gentle arc.\n\n")

	prompt.WriteString("Constraints:\n")
	prompt.WriteString("- Keep conflict mild and non-scary.\n")
	prompt.WriteString("- One clear main thread; no complex twists.\n")
	prompt.WriteString("- End with emotional closure and a bedtime wind-down scene.\n\n")

	prompt.WriteString("Request Spec:\n")
	prompt.WriteString(spec.ToText())
	prompt.WriteString("\n")

	prompt.WriteString("You MUST output a single JSON object. No extra text. Schema:\n")
	prompt.WriteString(`{
  "beats": [
    {"summary": "Hook", "closure": false},
    {"summary": "Character + want", "closure": false},
    {"summary": "Gentle obstacle", "closure": false},
    {"summary": "Helper / coping strategy", "closure": false},
    {"summary": "Progress", "closure": false},
    {"summary": "Resolution", "closure": false},
    {"summary": "Wind-down bedtime moment", "closure": true}
  ]
}
Exactly one beat must have "closure": true, and it must be the last one.`)

	return prompt.String()
}
