package judge

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"ai-storystudio-be/pkg/llm"
	"ai-storystudio-be/pkg/story"
)

// Evaluator maps (draft, spec) to a judge report. The judgment call itself
// is delegated to the LLM; the evaluator owns parsing, validation, and the
// verdict derivation. A malformed verdict payload is an evaluator-level
// failure for the caller's retry policy, never a coerced PASS.
type Evaluator struct {
	llmProvider llm.LLMProvider
	thresholds  Thresholds
	logger      *log.Logger
}

var _ story.Judge = &Evaluator{}

func NewEvaluator(llmProvider llm.LLMProvider, thresholds Thresholds, logger *log.Logger) *Evaluator {
	return &Evaluator{
		llmProvider: llmProvider,
		thresholds:  thresholds,
		logger:      logger,
	}
}

// rawVerdict is the wire schema the judgment call must return.
type rawVerdict struct {
	HardGates       map[string]rawGate `json:"hard_gates"`
	Scores          map[string]float64 `json:"scores"`
	Issues          []string           `json:"issues"`
	Instructions    []string           `json:"revision_instructions"`
	RewriteRequired bool               `json:"rewrite_required"`
	Summary         string             `json:"one_sentence_verdict"`
}

type rawGate struct {
	Pass     bool   `json:"pass"`
	Evidence string `json:"evidence"`
}

func (e *Evaluator) Evaluate(ctx context.Context, spec *story.RequestSpec, draft *story.Draft) (*story.JudgeReport, error) {
	prompt := e.buildPrompt(spec, draft)

	// Temperature 0: the judge must be as deterministic as the model allows
	response, err := e.llmProvider.Generate(ctx, prompt,
		llm.WithTemperature(0.0),
		llm.WithMaxTokens(800),
	)
	if err != nil {
		return nil, fmt.Errorf("judgment call failed: %w", err)
	}

	var raw rawVerdict
	if err := story.ExtractJSON(response, &raw); err != nil {
		return nil, fmt.Errorf("judgment returned malformed verdict: %w", err)
	}

	report, err := e.toReport(&raw, draft.RevisionIndex)
	if err != nil {
		return nil, fmt.Errorf("judgment verdict incomplete: %w", err)
	}

	e.logger.Printf("[JUDGE] Draft v%d: verdict=%s aggregate=%.1f gates_passed=%v",
		draft.RevisionIndex, report.OverallVerdict, report.AggregateScore(), report.GatesPassed())

	return report, nil
}

// toReport validates that the payload covers every enumerated gate and
// dimension, then derives the verdict from the deterministic policy. The
// model's own pass/fail opinion is never trusted for the overall verdict.
func (e *Evaluator) toReport(raw *rawVerdict, revisionIndex int) (*story.JudgeReport, error) {
	gates := make(map[string]story.GateResult, len(story.HardGates))
	for _, gate := range story.HardGates {
		g, ok := raw.HardGates[gate]
		if !ok {
			return nil, fmt.Errorf("missing hard gate %q", gate)
		}
		gates[gate] = story.GateResult{Passed: g.Pass, Evidence: g.Evidence}
	}

	scores := make(map[string]float64, len(story.SoftDimensions))
	for _, dim := range story.SoftDimensions {
		score, ok := raw.Scores[dim]
		if !ok {
			return nil, fmt.Errorf("missing soft score %q", dim)
		}
		// Clamp instead of reject: off-scale numbers are a model quirk,
		// not a content signal
		if score < 0 {
			score = 0
		}
		if score > 10 {
			score = 10
		}
		scores[dim] = score
	}

	report := &story.JudgeReport{
		RevisionIndex:        revisionIndex,
		HardGateResults:      gates,
		SoftScores:           scores,
		OverallVerdict:       DeriveVerdict(gates, scores, e.thresholds),
		RevisionInstructions: raw.Instructions,
		Issues:               raw.Issues,
		Summary:              raw.Summary,
		RewriteRequired:      raw.RewriteRequired,
		CreatedAt:            time.Now().UTC(),
	}

	if report.OverallVerdict == story.VerdictPass {
		report.RevisionInstructions = nil
	} else if len(report.RevisionInstructions) == 0 {
		// Fall back to the issue list before declaring the payload unusable
		if len(report.Issues) == 0 {
			return nil, fmt.Errorf("non-passing verdict without revision instructions")
		}
		report.RevisionInstructions = report.Issues
	}

	return report, nil
}

func (e *Evaluator) buildPrompt(spec *story.RequestSpec, draft *story.Draft) string {
	var prompt strings.Builder

	prompt.WriteString("You are a conservative evaluator (LLM Judge) for AI-generated bedtime stories for children ages ")
	prompt.WriteString(spec.AgeBand)
	prompt.WriteString(".\n\nYou MUST output a single JSON object. No extra text.\n\n")

	prompt.WriteString("Hard safety constraints (gating):\n")
	for _, c := range HardConstraints {
		prompt.WriteString("- " + c + "\n")
	}
	prompt.WriteString("\nSoft quality dimensions (graded 0-10):\n")
	for _, q := range QualityGuidance {
		prompt.WriteString("- " + q + "\n")
	}

	prompt.WriteString(`
Task:
1) Check EVERY hard gate. For a failed gate, quote the offending passage as evidence.
2) Score the story along EVERY soft dimension.
3) Set rewrite_required true if the story is unsalvageable by small edits.
4) Provide actionable revision instructions (always, unless the story is flawless).

Return JSON with this schema:
{
  "hard_gates": {
    "violence": {"pass": true, "evidence": ""},
    "horror": {"pass": true, "evidence": ""},
    "sexual_content": {"pass": true, "evidence": ""},
    "hate_discrimination": {"pass": true, "evidence": ""},
    "unsafe_content": {"pass": true, "evidence": ""}
  },
  "scores": {
    "age_fit": 0,
    "low_arousal": 0,
    "structure": 0,
    "coziness": 0,
    "cultural_ethics": 0,
    "intent_alignment": 0
  },
  "issues": ["..."],
  "revision_instructions": ["..."],
  "rewrite_required": false,
  "one_sentence_verdict": "..."
}

`)

	prompt.WriteString("Request Spec:\n")
	prompt.WriteString(spec.ToText())
	prompt.WriteString("\nStory:\n")
	prompt.WriteString(draft.Text)

	return prompt.String()
}
