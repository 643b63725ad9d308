package browse

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/talkie-assistant/talkie-core-sub000/internal/engine"
)

// IntentClassifier resolves an utterance to an Intent via an LLM tool call,
// used only when no deterministic keyword override matches.
type IntentClassifier interface {
	Classify(ctx context.Context, utterance string) (Intent, error)
}

// Handler implements the pipeline's browse contract:
// Handle(ctx, utterance, setBrowseMode, setSelection, onOpenURL) (*string, error).
// A non-nil string is a final user-visible message; nil means "continue
// normal flow" (the LLM classifier returned "unknown").
type Handler struct {
	classifier IntentClassifier
	executor   Executor
}

// Executor carries out a resolved Intent against the user's browser session
// (search, click, select, store page, go back, close tab) and returns the
// user-visible result message.
type Executor interface {
	Execute(ctx context.Context, intent Intent, setSelection func(string), onOpenURL func(string)) (string, error)
}

// NewHandler creates a Handler. classifier may be nil, in which case only
// keyword overrides are recognized and anything else is "unknown" (nil
// return, pipeline continues normal flow).
func NewHandler(classifier IntentClassifier, executor Executor) *Handler {
	return &Handler{classifier: classifier, executor: executor}
}

// Handle resolves utterance to an intent (keyword override first, LLM
// classification as fallback) and executes it.
func (h *Handler) Handle(ctx context.Context, utterance string, setBrowseMode func(bool), setSelection func(string), onOpenURL func(string)) (*string, error) {
	intent := Intent{Action: ActionUnknown}
	applyKeywordOverrides(utterance, &intent)
	if intent.Action == ActionUnknown && h.classifier != nil {
		classified, err := h.classifier.Classify(ctx, utterance)
		if err == nil {
			intent = classified
		}
	}

	switch intent.Action {
	case ActionUnknown:
		return nil, nil
	case ActionBrowseOn:
		setBrowseMode(true)
		msg := `Browse mode is on. Say "search", then your search term.`
		return &msg, nil
	case ActionBrowseOff:
		setBrowseMode(false)
		msg := "Browse mode is off."
		return &msg, nil
	}

	if h.executor == nil {
		msg := "Could not complete that action."
		return &msg, nil
	}
	result, err := h.executor.Execute(ctx, intent, setSelection, onOpenURL)
	if err != nil {
		msg := "Could not complete that action."
		return &msg, nil
	}
	return &result, nil
}

// applyKeywordOverrides mirrors original_source/modules/browser/__init__.py's
// _force_*_intent_if_uttered chain: deterministic phrasing always wins over
// the LLM's classification, in this exact order.
func applyKeywordOverrides(utterance string, intent *Intent) {
	forceSearchIntent(utterance, intent)
	forceStoreIntent(utterance, intent)
	forceGoBackIntent(utterance, intent)
	forceClickOrSelectIntent(utterance, intent)
	forceScrollIntent(utterance, intent)
	forceCloseTabIntent(utterance, intent)
}

var ordinalWords = map[string]int{
	"first": 1, "1st": 1, "one": 1,
	"second": 2, "2nd": 2, "two": 2,
	"third": 3, "3rd": 3, "three": 3,
	"fourth": 4, "4th": 4, "four": 4,
	"fifth": 5, "5th": 5, "five": 5,
}

var ordinalPattern = regexp.MustCompile(`(?i)^(?:the\s+)?(?:first|1st|one|second|2nd|two|third|3rd|three|fourth|4th|four|fifth|5th|five)\s*(?:link\s*)?(?:down)?$`)
var numberPattern = regexp.MustCompile(`(?i)^(?:link\s+number\s+)?(\d+)\s*(?:link\s*)?(?:down)?$`)

func resolveOrdinalOrNumber(rest string, intent *Intent) bool {
	restLower := strings.ToLower(rest)
	if ordinalPattern.MatchString(rest) {
		for word, idx := range ordinalWords {
			if strings.Contains(restLower, word) {
				intent.LinkIndex = idx
				intent.LinkText = ""
				return true
			}
		}
	}
	if m := numberPattern.FindStringSubmatch(rest); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			intent.LinkIndex = n
			intent.LinkText = ""
			return true
		}
	}
	return false
}

func normalizeLinkText(rest string) string {
	r := strings.TrimSpace(rest)
	rl := strings.ToLower(r)
	for _, prefix := range []string{"the link for ", "link for "} {
		if strings.HasPrefix(rl, prefix) {
			return strings.TrimSpace(r[len(prefix):])
		}
	}
	return r
}

func normalizeBrowseUtterance(utterance string) string {
	u := strings.TrimSpace(utterance)
	if u == "" {
		return u
	}
	ul := strings.ToLower(u)
	prefixes := []string{"click", "select ", "open ", "open the ", "the link for ", "link for "}
	for _, p := range prefixes {
		if strings.HasPrefix(ul, p) {
			return u
		}
	}
	phrases := []string{" the link for ", " link for ", " click ", " clicks ", " clicked ", " select ", " open the ", " open "}
	for _, phrase := range phrases {
		if idx := strings.Index(ul, phrase); idx >= 0 {
			return strings.TrimSpace(u[idx+1:])
		}
	}
	return u
}

func forceClickOrSelectIntent(utterance string, intent *Intent) {
	u := normalizeBrowseUtterance(utterance)
	if u == "" {
		return
	}
	ul := strings.ToLower(u)

	if strings.HasPrefix(ul, "the link for ") || strings.HasPrefix(ul, "link for ") {
		intent.Action = ActionClickLink
		intent.Query = ""
		intent.LinkText = normalizeLinkText(u)
		intent.LinkIndex = 0
		return
	}

	if strings.HasPrefix(ul, "open the ") || strings.HasPrefix(ul, "open ") {
		var rest string
		if strings.HasPrefix(ul, "open the ") {
			rest = strings.TrimSpace(u[len("open the "):])
		} else {
			rest = strings.TrimSpace(u[len("open "):])
		}
		if rest == "" {
			return
		}
		restLower := strings.ToLower(rest)
		if strings.Contains(rest, ".") && !strings.Contains(restLower, "link") && !strings.Contains(rest, " ") {
			intent.Action = ActionOpenURL
			intent.Query = ""
			intent.LinkIndex = 0
			intent.LinkText = ""
			if strings.Contains(rest, "://") {
				intent.URL = rest
			} else {
				intent.URL = "https://" + rest
			}
			return
		}
		if regexp.MustCompile(`(?i)^sir\.?$`).MatchString(rest) {
			intent.Action = ActionClickLink
			intent.Query = ""
			intent.LinkIndex = 1
			intent.LinkText = ""
			return
		}
		if ordinalPattern.MatchString(rest) || numberPattern.MatchString(rest) {
			intent.Action = ActionClickLink
			intent.Query = ""
			resolveOrdinalOrNumber(rest, intent)
			return
		}
		if strings.Contains(restLower, "link") {
			intent.Action = ActionClickLink
			intent.Query = ""
			intent.LinkText = normalizeLinkText(rest)
			intent.LinkIndex = 0
			return
		}
		return
	}

	if ul == "click" || ul == "clicks" || ul == "clicked" ||
		strings.HasPrefix(ul, "click ") || strings.HasPrefix(ul, "clicks ") || strings.HasPrefix(ul, "clicked ") {
		intent.Action = ActionClickLink
		intent.Query = ""
		var rest string
		switch {
		case strings.HasPrefix(ul, "clicked "):
			rest = strings.TrimSpace(u[len("clicked "):])
		case strings.HasPrefix(ul, "clicks "):
			rest = strings.TrimSpace(u[len("clicks "):])
		case strings.HasPrefix(ul, "click "):
			rest = strings.TrimSpace(u[len("click "):])
		default:
			if len(u) > 5 {
				rest = strings.TrimSpace(u[5:])
			}
		}
		if rest == "" {
			intent.LinkIndex = 0
			intent.LinkText = ""
			return
		}
		if resolveOrdinalOrNumber(rest, intent) {
			return
		}
		intent.LinkText = normalizeLinkText(rest)
		intent.LinkIndex = 0
		return
	}

	if strings.HasPrefix(ul, "select ") {
		intent.Action = ActionSelectLink
		intent.Query = ""
		rest := strings.TrimSpace(u[len("select "):])
		if rest == "" {
			return
		}
		if resolveOrdinalOrNumber(rest, intent) {
			return
		}
		intent.LinkText = normalizeLinkText(rest)
		intent.LinkIndex = 0
	}
}

func forceSearchIntent(utterance string, intent *Intent) {
	u := strings.TrimSpace(utterance)
	if u == "" {
		return
	}
	ul := strings.ToLower(u)
	nonSearchPrefixes := []string{"scroll ", "click", "select ", "open ", "open the ", "the link for ", "link for "}
	if ul == "scroll" {
		return
	}
	for _, p := range nonSearchPrefixes {
		if strings.HasPrefix(ul, p) {
			return
		}
	}
	for _, phrase := range []string{"searching for ", "search for "} {
		if idx := strings.Index(ul, phrase); idx >= 0 {
			query := strings.TrimSpace(u[idx+len(phrase):])
			if query != "" {
				intent.Action = ActionSearch
				intent.Query = query
				return
			}
		}
	}
	for _, phrase := range []string{" searching ", " search "} {
		if idx := strings.Index(ul, phrase); idx >= 0 {
			query := strings.TrimSpace(u[idx+len(phrase):])
			if query != "" {
				intent.Action = ActionSearch
				intent.Query = query
				return
			}
		}
	}
	if strings.HasPrefix(ul, "searching ") && len(u) > len("searching ") {
		intent.Action = ActionSearch
		intent.Query = strings.TrimSpace(u[len("searching "):])
	} else if strings.HasPrefix(ul, "search ") && len(u) > len("search ") {
		intent.Action = ActionSearch
		intent.Query = strings.TrimSpace(u[len("search "):])
	}
}

func forceStoreIntent(utterance string, intent *Intent) {
	u := strings.TrimSpace(utterance)
	if u == "" {
		return
	}
	ul := strings.ToLower(u)
	for _, phrase := range []string{"save page", "save the page", "store this page", "store the page", "store page", "store this"} {
		if strings.Contains(ul, phrase) || ul == phrase {
			intent.Action = ActionStorePage
			intent.Query = ""
			return
		}
	}
}

func forceScrollIntent(utterance string, intent *Intent) {
	u := strings.ToLower(strings.TrimSpace(utterance))
	if u == "" {
		return
	}
	if strings.Contains(u, "search for ") || strings.Contains(u, "searching for ") ||
		(strings.HasPrefix(u, "search ") && len(u) > len("search ")) {
		return
	}
	if u == "scroll" {
		return
	}
	if !strings.HasPrefix(u, "scroll ") && !strings.Contains(u, " scroll ") {
		return
	}
	parts := strings.SplitN(u, "scroll", 2)
	rest := strings.TrimSpace(parts[len(parts)-1])
	rest = strings.TrimSpace(strings.ReplaceAll(rest, "the page", ""))
	rest = strings.TrimRight(rest, ".,;!?")
	switch rest {
	case "up":
		intent.Action = ActionScrollUp
	case "down":
		intent.Action = ActionScrollDown
	case "left":
		intent.Action = ActionScrollLeft
	case "right":
		intent.Action = ActionScrollRight
	default:
		for _, direction := range []string{"up", "down", "left", "right"} {
			if rest == direction || strings.HasPrefix(rest, direction+" ") || strings.HasSuffix(rest, " "+direction) {
				intent.Action = Action("scroll_" + direction)
				intent.Query = ""
				return
			}
		}
		return
	}
	intent.Query = ""
}

func forceGoBackIntent(utterance string, intent *Intent) {
	u := strings.ToLower(strings.TrimSpace(utterance))
	if u == "" {
		return
	}
	for _, phrase := range []string{"go back", "previous page", "go to previous page", "back"} {
		if strings.Contains(u, phrase) || u == phrase || strings.HasPrefix(u, phrase+" ") || strings.HasSuffix(u, " "+phrase) {
			intent.Action = ActionGoBack
			intent.Query = ""
			intent.URL = ""
			intent.LinkIndex = 0
			intent.LinkText = ""
			return
		}
	}
}

func forceCloseTabIntent(utterance string, intent *Intent) {
	u := strings.ToLower(strings.TrimSpace(utterance))
	if u == "" {
		return
	}
	for _, phrase := range []string{"close tab", "close"} {
		if u == phrase || strings.HasPrefix(u, phrase+" ") {
			intent.Action = ActionCloseTab
			intent.Query = ""
			intent.URL = ""
			intent.LinkIndex = 0
			intent.LinkText = ""
			return
		}
	}
}

// llmClassifier classifies an utterance via the pipeline's LLM engine. It
// sends the utterance with the caller-supplied system prompt (no tool schema
// is attached) and parses the reply as a JSON object that maps 1:1 onto
// Intent; a reply that does not parse yields ActionUnknown.
type llmClassifier struct {
	llm    engine.LLMEngine
	system string
}

// NewLLMClassifier creates an IntentClassifier backed by llm.
func NewLLMClassifier(llm engine.LLMEngine, systemPrompt string) IntentClassifier {
	return &llmClassifier{llm: llm, system: systemPrompt}
}

func (c *llmClassifier) Classify(ctx context.Context, utterance string) (Intent, error) {
	raw, err := c.llm.Generate(ctx, utterance, c.system)
	if err != nil {
		return Intent{Action: ActionUnknown}, err
	}
	return parseIntentJSON(raw), nil
}
