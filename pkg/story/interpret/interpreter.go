package interpret

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-storystudio-be/pkg/llm"
	"ai-storystudio-be/pkg/story"
)

// Interpreter converts the raw, underspecified user request into a
// structured story request spec. Pure LLM call, no retrieval.
type Interpreter struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

var _ story.Interpreter = &Interpreter{}

func NewInterpreter(llmProvider llm.LLMProvider, logger *log.Logger) *Interpreter {
	return &Interpreter{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

func (i *Interpreter) Interpret(ctx context.Context, rawRequest string, prefs *story.Preferences) (*story.RequestSpec, error) {
	prompt := i.buildPrompt(rawRequest, prefs)

	// Low temperature: interpretation should be stable, not creative
	response, err := i.llmProvider.Generate(ctx, prompt,
		llm.WithTemperature(0.2),
		llm.WithMaxTokens(800),
	)
	if err != nil {
		return nil, fmt.Errorf("interpreter call failed: %w", err)
	}

	var spec story.RequestSpec
	if err := story.ExtractJSON(response, &spec); err != nil {
		return nil, fmt.Errorf("interpreter returned malformed spec: %w", err)
	}

	if strings.TrimSpace(spec.Theme) == "" {
		return nil, fmt.Errorf("interpreter returned empty theme")
	}
	if spec.AgeBand == "" {
		spec.AgeBand = "5-10"
	}
	if spec.Tone == "" {
		spec.Tone = "calm"
	}
	spec.MemoryDefaults = prefs.ToText()

	i.logger.Printf("[INTERPRET] Resolved spec: theme=%q age_band=%s tone=%s length=%s",
		spec.Theme, spec.AgeBand, spec.Tone, spec.LengthTarget)

	return &spec, nil
}

func (i *Interpreter) buildPrompt(rawRequest string, prefs *story.Preferences) string {
	var prompt strings.Builder

	prompt.WriteString("You are an intent interpreter for a bedtime-story system.\n\n")
	prompt.WriteString("Task: Convert the user's request into a Story Request Spec.\n")
	prompt.WriteString("The user prompt is underspecified; infer missing constraints for bedtime stories for ages 5-10.\n\n")

	prompt.WriteString("User request:\n")
	prompt.WriteString(rawRequest)
	prompt.WriteString("\n\n")

	prompt.WriteString("Known user preferences (optional; safety overrides preferences):\n")
	prompt.WriteString(prefs.ToText())
	prompt.WriteString("\n\n")

	prompt.WriteString("You MUST output a single JSON object. No extra text. Schema:\n")
	prompt.WriteString(`{
  "theme": "...",
  "characters": ["..."],
  "setting": "...",
  "age_band": "5-10",
  "tone": "calming tone, REQUIRED",
  "length_target": "short|medium|long",
  "must_include": ["1-3 items"],
  "must_avoid": ["hard safety constraints"],
  "cultural_notes": "notes on cultural interpretation, if applicable"
}`)

	return prompt.String()
}
