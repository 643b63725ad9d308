// Package browse implements the voice-controlled "browse mode" pipeline
// branch: deterministic keyword overrides for the common actions (open,
// click, select, search, store, scroll, go back, close tab), falling back to
// an LLM-classified intent for anything else. Grounded on
// original_source/modules/browser/__init__.py.
package browse

import "github.com/invopop/jsonschema"

// Action is one of the intents the browse handler can resolve to.
type Action string

const (
	ActionUnknown    Action = "unknown"
	ActionBrowseOn   Action = "browse_on"
	ActionBrowseOff  Action = "browse_off"
	ActionSearch     Action = "search"
	ActionOpenURL    Action = "open_url"
	ActionClickLink  Action = "click_link"
	ActionSelectLink Action = "select_link"
	ActionStorePage  Action = "store_page"
	ActionGoBack     Action = "go_back"
	ActionCloseTab   Action = "close_tab"
	ActionScrollUp    Action = "scroll_up"
	ActionScrollDown  Action = "scroll_down"
	ActionScrollLeft  Action = "scroll_left"
	ActionScrollRight Action = "scroll_right"
)

// Intent is the structured result of interpreting a browse utterance, either
// from a keyword override or from the LLM tool call.
type Intent struct {
	Action    Action `json:"action"`
	Query     string `json:"query,omitempty"`
	URL       string `json:"url,omitempty"`
	LinkIndex int    `json:"link_index,omitempty"`
	LinkText  string `json:"link_text,omitempty"`
}

// intentToolSchema is the JSON schema of the Intent wire shape, generated with
// invopop/jsonschema so it stays in sync with the Intent struct. The built-in
// llmClassifier does not send it to the LLM.
var intentToolSchema = jsonschema.Reflect(&Intent{})

// IntentToolSchema returns the JSON schema describing the classify_browse_intent
// tool call, for use by an LLM-backed classifier.
func IntentToolSchema() *jsonschema.Schema {
	return intentToolSchema
}
