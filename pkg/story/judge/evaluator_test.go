package judge

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-storystudio-be/pkg/llm"
	"ai-storystudio-be/pkg/story"
)

// stubProvider returns a canned response (or error) for every call.
type stubProvider struct {
	response string
	err      error
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.response, s.err
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.response, s.err
}

func verdictJSON(t *testing.T, mutate func(m map[string]interface{})) string {
	t.Helper()

	gates := map[string]interface{}{}
	for _, g := range story.HardGates {
		gates[g] = map[string]interface{}{"pass": true, "evidence": ""}
	}
	scores := map[string]interface{}{}
	for _, d := range story.SoftDimensions {
		scores[d] = 8.0
	}
	m := map[string]interface{}{
		"hard_gates":            gates,
		"scores":                scores,
		"issues":                []string{},
		"revision_instructions": []string{},
		"rewrite_required":      false,
		"one_sentence_verdict":  "A calm, cozy story.",
	}
	if mutate != nil {
		mutate(m)
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return string(b)
}

func testSpec() *story.RequestSpec {
	return &story.RequestSpec{Theme: "a sleepy forest", AgeBand: "5-10", Tone: "calm"}
}

func testDraft(rev int) *story.Draft {
	return &story.Draft{RevisionIndex: rev, Text: "Once upon a time..."}
}

func newTestEvaluator(provider llm.LLMProvider) *Evaluator {
	return NewEvaluator(provider, DefaultThresholds(), log.New(log.Writer(), "", 0))
}

func TestEvaluatePass(t *testing.T) {
	e := newTestEvaluator(&stubProvider{response: verdictJSON(t, nil)})

	report, err := e.Evaluate(context.Background(), testSpec(), testDraft(0))
	require.NoError(t, err)

	assert.Equal(t, story.VerdictPass, report.OverallVerdict)
	assert.Equal(t, 0, report.RevisionIndex)
	assert.True(t, report.GatesPassed())
	assert.InDelta(t, 8.0, report.AggregateScore(), 0.001)
	assert.Empty(t, report.RevisionInstructions, "a passing report carries no instructions")
}

func TestEvaluateGateFailureIsReject(t *testing.T) {
	raw := verdictJSON(t, func(m map[string]interface{}) {
		m["hard_gates"].(map[string]interface{})[story.GateHorror] = map[string]interface{}{
			"pass": false, "evidence": "the shadow chased them",
		}
		m["revision_instructions"] = []string{"remove the chase scene"}
		m["rewrite_required"] = true
	})
	e := newTestEvaluator(&stubProvider{response: raw})

	report, err := e.Evaluate(context.Background(), testSpec(), testDraft(1))
	require.NoError(t, err)

	assert.Equal(t, story.VerdictReject, report.OverallVerdict)
	assert.False(t, report.GatesPassed())
	assert.True(t, report.RewriteRequired)
	assert.Equal(t, []string{"remove the chase scene"}, report.RevisionInstructions)
	assert.Equal(t, "the shadow chased them", report.HardGateResults[story.GateHorror].Evidence)
}

func TestEvaluateLowScoreIsRevise(t *testing.T) {
	raw := verdictJSON(t, func(m map[string]interface{}) {
		m["scores"].(map[string]interface{})[story.DimLowArousal] = 3.0
		m["revision_instructions"] = []string{"soften the storm scene"}
	})
	e := newTestEvaluator(&stubProvider{response: raw})

	report, err := e.Evaluate(context.Background(), testSpec(), testDraft(0))
	require.NoError(t, err)

	assert.Equal(t, story.VerdictRevise, report.OverallVerdict)
	assert.True(t, report.GatesPassed())
}

func TestEvaluateIgnoresModelVerdictOpinion(t *testing.T) {
	// Even if the model claims everything passed, a failed gate in the
	// payload forces REJECT.
	raw := verdictJSON(t, func(m map[string]interface{}) {
		m["hard_gates"].(map[string]interface{})[story.GateViolence] = map[string]interface{}{
			"pass": false, "evidence": "swordfight",
		}
		m["one_sentence_verdict"] = "Perfect story, publish as is."
		m["issues"] = []string{"violence"}
	})
	e := newTestEvaluator(&stubProvider{response: raw})

	report, err := e.Evaluate(context.Background(), testSpec(), testDraft(0))
	require.NoError(t, err)
	assert.Equal(t, story.VerdictReject, report.OverallVerdict)
}

func TestEvaluateClampsScores(t *testing.T) {
	raw := verdictJSON(t, func(m map[string]interface{}) {
		scores := m["scores"].(map[string]interface{})
		scores[story.DimAgeFit] = 14.0
		scores[story.DimStructure] = -2.0
		m["revision_instructions"] = []string{"fix structure"}
	})
	e := newTestEvaluator(&stubProvider{response: raw})

	report, err := e.Evaluate(context.Background(), testSpec(), testDraft(0))
	require.NoError(t, err)

	assert.Equal(t, 10.0, report.SoftScores[story.DimAgeFit])
	assert.Equal(t, 0.0, report.SoftScores[story.DimStructure])
}

func TestEvaluateMissingGateIsError(t *testing.T) {
	raw := verdictJSON(t, func(m map[string]interface{}) {
		delete(m["hard_gates"].(map[string]interface{}), story.GateSexual)
	})
	e := newTestEvaluator(&stubProvider{response: raw})

	_, err := e.Evaluate(context.Background(), testSpec(), testDraft(0))
	assert.Error(t, err)
}

func TestEvaluateMissingDimensionIsError(t *testing.T) {
	raw := verdictJSON(t, func(m map[string]interface{}) {
		delete(m["scores"].(map[string]interface{}), story.DimIntentAlignment)
	})
	e := newTestEvaluator(&stubProvider{response: raw})

	_, err := e.Evaluate(context.Background(), testSpec(), testDraft(0))
	assert.Error(t, err)
}

func TestEvaluateFallsBackToIssues(t *testing.T) {
	raw := verdictJSON(t, func(m map[string]interface{}) {
		m["scores"].(map[string]interface{})[story.DimCoziness] = 2.0
		m["issues"] = []string{"ending feels abrupt"}
		m["revision_instructions"] = []string{}
	})
	e := newTestEvaluator(&stubProvider{response: raw})

	report, err := e.Evaluate(context.Background(), testSpec(), testDraft(0))
	require.NoError(t, err)
	assert.Equal(t, []string{"ending feels abrupt"}, report.RevisionInstructions)
}

func TestEvaluateNoInstructionsAndNoIssuesIsError(t *testing.T) {
	raw := verdictJSON(t, func(m map[string]interface{}) {
		m["scores"].(map[string]interface{})[story.DimCoziness] = 2.0
		m["issues"] = []string{}
		m["revision_instructions"] = []string{}
	})
	e := newTestEvaluator(&stubProvider{response: raw})

	_, err := e.Evaluate(context.Background(), testSpec(), testDraft(0))
	assert.Error(t, err)
}

func TestEvaluateMalformedPayloadIsError(t *testing.T) {
	e := newTestEvaluator(&stubProvider{response: "I think the story is nice."})
	_, err := e.Evaluate(context.Background(), testSpec(), testDraft(0))
	assert.Error(t, err)
}

func TestEvaluateProviderErrorPropagates(t *testing.T) {
	e := newTestEvaluator(&stubProvider{err: errors.New("model offline")})
	_, err := e.Evaluate(context.Background(), testSpec(), testDraft(0))
	assert.ErrorContains(t, err, "model offline")
}

func TestEvaluateWrappedJSONStillParses(t *testing.T) {
	raw := "Here is my evaluation:\n```json\n" + verdictJSON(t, nil) + "\n```"
	e := newTestEvaluator(&stubProvider{response: raw})

	report, err := e.Evaluate(context.Background(), testSpec(), testDraft(0))
	require.NoError(t, err)
	assert.Equal(t, story.VerdictPass, report.OverallVerdict)
}
