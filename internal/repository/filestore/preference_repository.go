package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ai-storystudio-be/internal/repository/contract"
	"ai-storystudio-be/pkg/story"
)

// PreferenceRepository keeps the opt-in user preferences in a small JSON
// file. A missing file simply means no preferences yet.
type PreferenceRepository struct {
	path string
	mu   sync.Mutex
}

var _ contract.PreferenceRepository = &PreferenceRepository{}

func NewPreferenceRepository(path string) *PreferenceRepository {
	return &PreferenceRepository{path: path}
}

func (r *PreferenceRepository) Load(_ context.Context) (*story.Preferences, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &story.Preferences{}, nil
		}
		return nil, fmt.Errorf("read preferences: %w", err)
	}

	var prefs story.Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("parse preferences: %w", err)
	}
	return &prefs, nil
}

func (r *PreferenceRepository) Save(_ context.Context, prefs *story.Preferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}
