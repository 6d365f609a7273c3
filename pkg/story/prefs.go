package story

import (
	"regexp"
	"strings"
)

// Preferences is the opt-in preference memory merged into new request specs.
// Only lightweight style preferences the user explicitly stated are stored,
// never inferred private attributes.
type Preferences struct {
	PreferredLength    string `json:"preferred_length,omitempty"` // short / medium / long
	PreferredTone      string `json:"preferred_tone,omitempty"`   // calmer / funnier / ...
	RecurringCharacter string `json:"recurring_character,omitempty"`
}

// ToText renders preferences for prompt injection.
func (p *Preferences) ToText() string {
	if p == nil {
		return "(none)"
	}
	var parts []string
	if p.PreferredLength != "" {
		parts = append(parts, "preferred_length="+p.PreferredLength)
	}
	if p.PreferredTone != "" {
		parts = append(parts, "preferred_tone="+p.PreferredTone)
	}
	if p.RecurringCharacter != "" {
		parts = append(parts, "recurring_character="+p.RecurringCharacter)
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, ", ")
}

var namedCharacterRe = regexp.MustCompile(`named\s+([A-Za-z]{2,20})`)

// ApplyFeedback conservatively updates preferences from explicit user
// feedback. Only clearly stated style preferences are captured.
func (p *Preferences) ApplyFeedback(feedback string) {
	fb := strings.ToLower(feedback)

	switch {
	case strings.Contains(fb, "short"):
		p.PreferredLength = "short"
	case strings.Contains(fb, "long"):
		p.PreferredLength = "long"
	case strings.Contains(fb, "medium"):
		p.PreferredLength = "medium"
	}

	switch {
	case strings.Contains(fb, "calm"), strings.Contains(fb, "cozy"):
		p.PreferredTone = "calmer"
	case strings.Contains(fb, "funny"), strings.Contains(fb, "humor"):
		p.PreferredTone = "funnier"
	}

	if m := namedCharacterRe.FindStringSubmatch(feedback); m != nil {
		p.RecurringCharacter = m[1]
	}
}
