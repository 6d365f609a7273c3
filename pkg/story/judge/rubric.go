package judge

import (
	"ai-storystudio-be/pkg/story"
)

// HardConstraints is the prompt-facing wording of the non-negotiable gates.
// The gate enumeration itself lives in the story package.
var HardConstraints = []string{
	"No graphic violence, gore, death, self-harm, or explicit threats.",
	"No horror framing, torture, or content designed to frighten.",
	"No sexual content of any kind.",
	"No hate, harassment, or discrimination; avoid stereotypes; be inclusive.",
	"No other unsafe content: no medical/legal/financial advice, this is fiction for kids.",
}

// QualityGuidance is the prompt-facing wording of the graded dimensions.
var QualityGuidance = []string{
	"age_fit: age-appropriate language (simple sentences, explain unfamiliar ideas).",
	"low_arousal: calming tone, gentle conflict, de-escalating emotional arc.",
	"structure: predictable beginning-middle-end with closure.",
	"coziness: cozy sensory detail and reassurance; ending includes a wind-down ritual.",
	"cultural_ethics: interpret ambiguous motifs in a non-threatening, prosocial way.",
	"intent_alignment: honors the user's theme while staying safe and bedtime-appropriate.",
}

// Thresholds is the configurable pass policy for soft scores.
type Thresholds struct {
	// PerDimension is the minimum score every dimension must reach.
	PerDimension float64
	// Aggregate is the minimum mean across all dimensions.
	Aggregate float64
}

// DefaultThresholds match a conservative bedtime policy.
func DefaultThresholds() Thresholds {
	return Thresholds{PerDimension: 5.0, Aggregate: 7.0}
}

// DeriveVerdict combines gate results and soft scores into the overall
// verdict. Gates dominate: a single failure forces REJECT no matter how the
// draft scores. This is a pure function so re-deriving on unchanged inputs
// always yields the same verdict.
func DeriveVerdict(gates map[string]story.GateResult, scores map[string]float64, t Thresholds) string {
	for _, gate := range story.HardGates {
		res, ok := gates[gate]
		if !ok || !res.Passed {
			return story.VerdictReject
		}
	}

	var sum float64
	for _, dim := range story.SoftDimensions {
		score, ok := scores[dim]
		if !ok || score < t.PerDimension {
			return story.VerdictRevise
		}
		sum += score
	}
	if sum/float64(len(story.SoftDimensions)) < t.Aggregate {
		return story.VerdictRevise
	}

	return story.VerdictPass
}
