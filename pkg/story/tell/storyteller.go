package tell

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-storystudio-be/pkg/llm"
	"ai-storystudio-be/pkg/story"
	"ai-storystudio-be/pkg/story/judge"
)

// Storyteller writes the full draft text from spec and plan.
type Storyteller struct {
	llmProvider llm.LLMProvider
	temperature float64
	logger      *log.Logger
}

var _ story.Storyteller = &Storyteller{}

func NewStoryteller(llmProvider llm.LLMProvider, temperature float64, logger *log.Logger) *Storyteller {
	if temperature <= 0 {
		temperature = 0.4
	}
	return &Storyteller{
		llmProvider: llmProvider,
		temperature: temperature,
		logger:      logger,
	}
}

func (s *Storyteller) Tell(ctx context.Context, spec *story.RequestSpec, plan *story.Plan) (string, error) {
	prompt := BuildPrompt(spec, plan)

	text, err := s.llmProvider.Generate(ctx, prompt,
		llm.WithTemperature(s.temperature),
		llm.WithMaxTokens(2200),
	)
	if err != nil {
		return "", fmt.Errorf("storyteller call failed: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("storyteller returned empty draft")
	}

	s.logger.Printf("[TELL] Draft generated (%d chars)", len(text))

	return text, nil
}

// BuildPrompt is exported because a hard-gate rejection makes the revision
// controller fall back to a full rewrite using the same prompt.
func BuildPrompt(spec *story.RequestSpec, plan *story.Plan) string {
	var prompt strings.Builder

	prompt.WriteString("You are a bedtime storyteller for children ages ")
	prompt.WriteString(spec.AgeBand)
	prompt.WriteString(".\n\n")

	prompt.WriteString("Hard safety constraints (must obey):\n")
	for _, c := range judge.HardConstraints {
		prompt.WriteString("- " + c + "\n")
	}
	prompt.WriteString("\n")

	prompt.WriteString("Style constraints:\n")
	prompt.WriteString("- Calm, warm, reassuring.\n")
	prompt.WriteString("- Simple language; short paragraphs.\n")
	prompt.WriteString("- Gentle humor is OK, but keep arousal low.\n")
	prompt.WriteString("- Clear beginning-middle-end; end with closure and sleepiness.\n\n")

	prompt.WriteString("Request Spec:\n")
	prompt.WriteString(spec.ToText())
	prompt.WriteString("\n")

	prompt.WriteString("Plan:\n")
	for i, beat := range plan.Beats {
		fmt.Fprintf(&prompt, "%d) %s\n", i+1, beat.Summary)
	}
	prompt.WriteString("\nWrite the full story (about 600-900 words).")

	return prompt.String()
}
