package contract

import (
	"context"

	"ai-storystudio-be/pkg/story"
)

// PreferenceRepository stores the opt-in user style preferences. Load always
// returns a usable value (zero preferences when nothing is stored). Save is
// invoked only on explicit user feedback, never automatically from judge
// output.
type PreferenceRepository interface {
	Load(ctx context.Context) (*story.Preferences, error)
	Save(ctx context.Context, prefs *story.Preferences) error
}
