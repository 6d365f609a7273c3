package story

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON unmarshals model output into v. Models often wrap the JSON in
// prose or code fences, so after a direct parse fails we retry on the
// outermost object substring.
func ExtractJSON(raw string, v interface{}) error {
	raw = strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object found in model output")
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return fmt.Errorf("parse model output: %w", err)
	}
	return nil
}
