package revise

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"ai-storystudio-be/pkg/llm"
	"ai-storystudio-be/pkg/story"
	"ai-storystudio-be/pkg/story/tell"
)

// Controller applies judge feedback to produce the next draft version. It
// owns the version bookkeeping: the parent draft is never touched, the new
// draft carries revision_index+1 plus the instructions it addressed, so an
// oscillating loop can be audited afterwards. Text generation is delegated
// to the LLM.
type Controller struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

var _ story.Reviser = &Controller{}

func NewController(llmProvider llm.LLMProvider, logger *log.Logger) *Controller {
	return &Controller{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

func (c *Controller) Revise(ctx context.Context, spec *story.RequestSpec, plan *story.Plan, draft *story.Draft, report *story.JudgeReport) (*story.Draft, error) {
	if len(report.RevisionInstructions) == 0 {
		return nil, fmt.Errorf("judge report carries no revision instructions")
	}

	var (
		text string
		err  error
	)
	if report.RewriteRequired {
		// Hard rejection: patching won't fix it, regenerate from the plan
		c.logger.Printf("[REVISE] Draft v%d: full rewrite required", draft.RevisionIndex)
		text, err = c.llmProvider.Generate(ctx, tell.BuildPrompt(spec, plan),
			llm.WithTemperature(0.2),
			llm.WithMaxTokens(2200),
		)
	} else {
		text, err = c.llmProvider.Generate(ctx, c.buildPrompt(spec, draft, report.RevisionInstructions),
			llm.WithTemperature(0.25),
			llm.WithMaxTokens(2200),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("reviser call failed: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("reviser returned empty draft")
	}

	next := &story.Draft{
		RevisionIndex:         draft.RevisionIndex + 1,
		Text:                  text,
		AddressedInstructions: append([]string(nil), report.RevisionInstructions...),
		CreatedAt:             time.Now().UTC(),
	}

	c.logger.Printf("[REVISE] Draft v%d produced from v%d (%d instructions)",
		next.RevisionIndex, draft.RevisionIndex, len(next.AddressedInstructions))

	return next, nil
}

func (c *Controller) buildPrompt(spec *story.RequestSpec, draft *story.Draft, instructions []string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a reviser for a bedtime story for children ages ")
	prompt.WriteString(spec.AgeBand)
	prompt.WriteString(".\n\nGoal: Produce a safer, calmer, clearer bedtime story.\n")
	prompt.WriteString("Rules:\n")
	prompt.WriteString("- Do NOT introduce new major plot elements, new villains, or new threats.\n")
	prompt.WriteString("- Reduce arousal; soften conflict; increase reassurance.\n")
	prompt.WriteString("- Preserve the user's theme and keep the story coherent.\n\n")

	prompt.WriteString("Request Spec:\n")
	prompt.WriteString(spec.ToText())
	prompt.WriteString("\nRevision instructions:\n")
	for _, instr := range instructions {
		prompt.WriteString("- " + instr + "\n")
	}

	prompt.WriteString("\nOriginal story:\n")
	prompt.WriteString(draft.Text)
	prompt.WriteString("\n\nReturn the revised full story only.")

	return prompt.String()
}
