package browse

import (
	"encoding/json"
	"regexp"
	"strings"
)

var intentFence = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// parseIntentJSON tolerantly extracts an Intent from the LLM's raw response,
// stripping a single surrounding fenced code block if present. Any parse
// failure yields ActionUnknown so the pipeline continues normal flow.
func parseIntentJSON(raw string) Intent {
	text := strings.TrimSpace(raw)
	if m := intentFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	var intent Intent
	if err := json.Unmarshal([]byte(text), &intent); err != nil {
		return Intent{Action: ActionUnknown}
	}
	if intent.Action == "" {
		intent.Action = ActionUnknown
	}
	return intent
}
