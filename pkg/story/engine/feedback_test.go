package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-storystudio-be/pkg/story"
)

func finalizedSession(t *testing.T, rig *testRig, eng *Engine) *story.Session {
	t.Helper()
	s := story.NewSession("a story about a sleepy forest")
	require.NoError(t, eng.Run(context.Background(), s))
	require.Equal(t, story.StateFinalized, s.State)
	return s
}

func TestApplyFeedbackRevisesAndRemembers(t *testing.T) {
	rig := newRig(passReport())
	eng := rig.engine(fastConfig())
	s := finalizedSession(t, rig, eng)

	require.NoError(t, eng.ApplyFeedback(context.Background(), s, "make it shorter and calmer"))

	// One more draft, published as the new final story
	assert.Len(t, s.DraftHistory, 2)
	assert.Equal(t, "revised v1", s.FinalStory)
	assert.Equal(t, "make it shorter and calmer", s.UserFeedback)
	assert.Equal(t, story.StateFinalized, s.State, "feedback never reopens the lifecycle")

	// Preference memory captured the explicit style feedback
	assert.Equal(t, 1, rig.prefs.saveCalls)
	assert.Equal(t, "short", rig.prefs.prefs.PreferredLength)
	assert.Equal(t, "calmer", rig.prefs.prefs.PreferredTone)

	// The feedback text reached the reviser through the instructions
	require.NotEmpty(t, s.DraftHistory[1].AddressedInstructions)
	assert.Contains(t, s.DraftHistory[1].AddressedInstructions[0], "make it shorter and calmer")

	// And the update is persisted
	stored, err := rig.repo.Get(context.Background(), s.Id)
	require.NoError(t, err)
	assert.Equal(t, "revised v1", stored.FinalStory)
}

func TestApplyFeedbackRevisesThePublishedStory(t *testing.T) {
	// Budget exhaustion publishes v0 as best effort while the later v1 fails
	// a hard gate. Feedback must build on the published story, never on the
	// rejected draft.
	rig := newRig(reviseReport(6), rejectReport())
	cfg := fastConfig()
	cfg.MaxIterations = 1
	eng := rig.engine(cfg)

	s := story.NewSession("test")
	require.NoError(t, eng.Run(context.Background(), s))
	require.Equal(t, story.StateFinalized, s.State)
	require.True(t, s.BestEffort)
	require.Equal(t, "Once upon a time...", s.FinalStory)
	require.Len(t, s.DraftHistory, 2)

	require.NoError(t, eng.ApplyFeedback(context.Background(), s, "make it shorter"))

	assert.Equal(t, "Once upon a time...", rig.reviser.lastBase)
	// The revision extends the chain rather than forking it
	require.Len(t, s.DraftHistory, 3)
	assert.Equal(t, 2, s.DraftHistory[2].RevisionIndex)
	assert.Equal(t, s.DraftHistory[2].Text, s.FinalStory)
}

func TestApplyFeedbackRequiresFinalizedState(t *testing.T) {
	rig := newRig()
	eng := rig.engine(fastConfig())

	s := story.NewSession("test")
	err := eng.ApplyFeedback(context.Background(), s, "shorter please")
	assert.Error(t, err)
	assert.Empty(t, s.UserFeedback)
}

func TestApplyFeedbackReviserFailureLeavesStoryIntact(t *testing.T) {
	rig := newRig(passReport())
	eng := rig.engine(fastConfig())
	s := finalizedSession(t, rig, eng)

	rig.reviser.err = errors.New("reviser offline")
	err := eng.ApplyFeedback(context.Background(), s, "shorter please")

	require.Error(t, err)
	assert.Equal(t, "Once upon a time...", s.FinalStory)
	assert.Len(t, s.DraftHistory, 1)
}

func TestApplyFeedbackSurvivesBrokenPreferenceStore(t *testing.T) {
	rig := newRig(passReport())
	eng := rig.engine(fastConfig())
	s := finalizedSession(t, rig, eng)

	rig.prefs.loadErr = errors.New("disk full")
	require.NoError(t, eng.ApplyFeedback(context.Background(), s, "funnier next time"))
	assert.Equal(t, "revised v1", s.FinalStory)
}
