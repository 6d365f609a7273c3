package plan

import (
	"context"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-storystudio-be/pkg/llm"
	"ai-storystudio-be/pkg/story"
)

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

func testSpec() *story.RequestSpec {
	return &story.RequestSpec{Theme: "a sleepy forest", AgeBand: "5-10", Tone: "calm"}
}

func TestPlanStory(t *testing.T) {
	p := NewPlanner(&stubProvider{response: `{
		"beats": [
			{"summary": "Momo cannot sleep", "closure": false},
			{"summary": "Momo walks to the glade", "closure": false},
			{"summary": "Momo meets a sleepy owl", "closure": false},
			{"summary": "Momo yawns and curls up", "closure": true}
		]
	}`}, log.New(log.Writer(), "", 0))

	plan, err := p.PlanStory(context.Background(), testSpec())
	require.NoError(t, err)

	assert.Equal(t, 1, plan.Version)
	assert.Len(t, plan.Beats, 4)
	assert.Equal(t, 3, plan.ClosureBeat())
}

func TestPlanStoryTooFewBeats(t *testing.T) {
	p := NewPlanner(&stubProvider{response: `{
		"beats": [
			{"summary": "only one", "closure": true}
		]
	}`}, log.New(log.Writer(), "", 0))

	_, err := p.PlanStory(context.Background(), testSpec())
	assert.Error(t, err)
}

func TestPlanStoryMissingClosureBeat(t *testing.T) {
	p := NewPlanner(&stubProvider{response: `{
		"beats": [
			{"summary": "a", "closure": false},
			{"summary": "b", "closure": false},
			{"summary": "c", "closure": false}
		]
	}`}, log.New(log.Writer(), "", 0))

	_, err := p.PlanStory(context.Background(), testSpec())
	assert.Error(t, err)
}

func TestPlanStoryMalformedOutline(t *testing.T) {
	p := NewPlanner(&stubProvider{response: "1. intro 2. middle 3. end"}, log.New(log.Writer(), "", 0))

	_, err := p.PlanStory(context.Background(), testSpec())
	assert.Error(t, err)
}
