package revise

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-storystudio-be/pkg/llm"
	"ai-storystudio-be/pkg/story"
)

// recordingProvider captures the prompt so tests can assert on its shape.
type recordingProvider struct {
	response   string
	err        error
	lastPrompt string
}

func (p *recordingProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return p.response, p.err
}

func (p *recordingProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	p.lastPrompt = prompt
	return p.response, p.err
}

func testSpec() *story.RequestSpec {
	return &story.RequestSpec{Theme: "a sleepy forest", AgeBand: "5-10", Tone: "calm"}
}

func testPlan() *story.Plan {
	return &story.Plan{Version: 1, Beats: []story.PlanBeat{
		{Summary: "Momo cannot sleep"},
		{Summary: "Momo finds a quiet glade"},
		{Summary: "Momo yawns and drifts off", Closure: true},
	}}
}

func TestReviseProducesNextVersion(t *testing.T) {
	provider := &recordingProvider{response: "A calmer story."}
	c := NewController(provider, log.New(log.Writer(), "", 0))

	draft := &story.Draft{RevisionIndex: 1, Text: "An exciting story."}
	report := &story.JudgeReport{
		RevisionIndex:        1,
		RevisionInstructions: []string{"soften the thunder", "add a wind-down ritual"},
	}

	next, err := c.Revise(context.Background(), testSpec(), testPlan(), draft, report)
	require.NoError(t, err)

	assert.Equal(t, 2, next.RevisionIndex)
	assert.Equal(t, "A calmer story.", next.Text)
	assert.Equal(t, report.RevisionInstructions, next.AddressedInstructions)
	// The parent draft is never modified
	assert.Equal(t, "An exciting story.", draft.Text)
	assert.Equal(t, 1, draft.RevisionIndex)

	assert.Contains(t, provider.lastPrompt, "soften the thunder")
	assert.Contains(t, provider.lastPrompt, "An exciting story.")
}

func TestReviseCopiesInstructions(t *testing.T) {
	provider := &recordingProvider{response: "revised"}
	c := NewController(provider, log.New(log.Writer(), "", 0))

	report := &story.JudgeReport{RevisionInstructions: []string{"instruction"}}
	next, err := c.Revise(context.Background(), testSpec(), testPlan(), &story.Draft{Text: "x"}, report)
	require.NoError(t, err)

	report.RevisionInstructions[0] = "mutated"
	assert.Equal(t, "instruction", next.AddressedInstructions[0])
}

func TestReviseRequiresInstructions(t *testing.T) {
	c := NewController(&recordingProvider{response: "x"}, log.New(log.Writer(), "", 0))

	_, err := c.Revise(context.Background(), testSpec(), testPlan(), &story.Draft{Text: "x"}, &story.JudgeReport{})
	assert.Error(t, err)
}

func TestReviseRewriteRegeneratesFromPlan(t *testing.T) {
	provider := &recordingProvider{response: "A fresh story."}
	c := NewController(provider, log.New(log.Writer(), "", 0))

	draft := &story.Draft{RevisionIndex: 0, Text: "Unsalvageable text."}
	report := &story.JudgeReport{
		RevisionInstructions: []string{"start over"},
		RewriteRequired:      true,
	}

	next, err := c.Revise(context.Background(), testSpec(), testPlan(), draft, report)
	require.NoError(t, err)
	assert.Equal(t, 1, next.RevisionIndex)

	// A full rewrite prompts from the plan, not from the rejected text
	assert.Contains(t, provider.lastPrompt, "Momo finds a quiet glade")
	assert.NotContains(t, provider.lastPrompt, "Unsalvageable text.")
}

func TestReviseEmptyResponseIsError(t *testing.T) {
	c := NewController(&recordingProvider{response: "   \n"}, log.New(log.Writer(), "", 0))

	_, err := c.Revise(context.Background(), testSpec(), testPlan(), &story.Draft{Text: "x"},
		&story.JudgeReport{RevisionInstructions: []string{"fix"}})
	assert.Error(t, err)
}

func TestReviseProviderErrorPropagates(t *testing.T) {
	c := NewController(&recordingProvider{err: errors.New("model offline")}, log.New(log.Writer(), "", 0))

	_, err := c.Revise(context.Background(), testSpec(), testPlan(), &story.Draft{Text: "x"},
		&story.JudgeReport{RevisionInstructions: []string{"fix"}})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "model offline"))
}
