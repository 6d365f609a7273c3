package story

import (
	"testing"
)

func TestApplyFeedback(t *testing.T) {
	tests := []struct {
		name          string
		feedback      string
		wantLength    string
		wantTone      string
		wantCharacter string
	}{
		{
			name:       "shorter request",
			feedback:   "make it shorter please",
			wantLength: "short",
		},
		{
			name:       "longer request",
			feedback:   "I'd love a longer story next time",
			wantLength: "long",
		},
		{
			name:     "calmer tone",
			feedback: "a bit too exciting, keep it calm",
			wantTone: "calmer",
		},
		{
			name:     "cozy maps to calmer",
			feedback: "more cozy details",
			wantTone: "calmer",
		},
		{
			name:     "funnier tone",
			feedback: "my kid wants it funny",
			wantTone: "funnier",
		},
		{
			name:          "recurring character",
			feedback:      "keep the bunny named Momo in future stories",
			wantCharacter: "Momo",
		},
		{
			name:          "combined feedback",
			feedback:      "shorter and calmer, with the fox named Ferdinand",
			wantLength:    "short",
			wantTone:      "calmer",
			wantCharacter: "Ferdinand",
		},
		{
			name:     "unrelated feedback changes nothing",
			feedback: "loved it, thank you!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Preferences
			p.ApplyFeedback(tt.feedback)

			if p.PreferredLength != tt.wantLength {
				t.Errorf("PreferredLength = %q, want %q", p.PreferredLength, tt.wantLength)
			}
			if p.PreferredTone != tt.wantTone {
				t.Errorf("PreferredTone = %q, want %q", p.PreferredTone, tt.wantTone)
			}
			if p.RecurringCharacter != tt.wantCharacter {
				t.Errorf("RecurringCharacter = %q, want %q", p.RecurringCharacter, tt.wantCharacter)
			}
		})
	}
}

func TestApplyFeedbackKeepsExisting(t *testing.T) {
	p := Preferences{PreferredLength: "long", PreferredTone: "funnier"}
	p.ApplyFeedback("loved it!")

	if p.PreferredLength != "long" || p.PreferredTone != "funnier" {
		t.Errorf("neutral feedback should not reset preferences, got %+v", p)
	}
}

func TestPreferencesToText(t *testing.T) {
	var nilPrefs *Preferences
	if got := nilPrefs.ToText(); got != "(none)" {
		t.Errorf("nil prefs ToText() = %q", got)
	}

	empty := &Preferences{}
	if got := empty.ToText(); got != "(none)" {
		t.Errorf("empty prefs ToText() = %q", got)
	}

	p := &Preferences{PreferredLength: "short", RecurringCharacter: "Momo"}
	got := p.ToText()
	if got != "preferred_length=short, recurring_character=Momo" {
		t.Errorf("ToText() = %q", got)
	}
}
