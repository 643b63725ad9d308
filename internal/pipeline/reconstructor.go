package pipeline

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/talkie-assistant/talkie-core-sub000/internal/engine"
	"github.com/talkie-assistant/talkie-core-sub000/internal/prompts"
	"github.com/tidwall/gjson"
)

// fencedBlock matches a single surrounding ``` or ```json fenced code block.
var fencedBlock = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// ReconstructorConfig configures how the raw transcription is turned into an
// intent sentence via the LLM.
type ReconstructorConfig struct {
	Enabled          bool
	RequestCertainty bool
	SystemPrompt     string // overrides the built-in default when non-empty
}

// Reconstructor turns a raw, fragmented transcription into one clean
// first-person sentence (or question) via an LLM call, optionally reporting
// a certainty score. Grounded on original_source/app/pipeline.py's
// regeneration step and llm/prompts.py's parse_regeneration_response.
type Reconstructor struct {
	llm    engine.LLMEngine
	cfg    ReconstructorConfig
}

// NewReconstructor creates a Reconstructor backed by llm.
func NewReconstructor(llm engine.LLMEngine, cfg ReconstructorConfig) *Reconstructor {
	return &Reconstructor{llm: llm, cfg: cfg}
}

// Result is the outcome of a reconstruction attempt.
type Result struct {
	Sentence  string
	Certainty *int // nil when not requested or not parseable
	Ran       bool // true only when the LLM call actually happened
}

// Reconstruct runs the regeneration LLM call (when enabled) and parses its
// response. On a disabled config, an LLM error or an empty LLM response it
// falls back to the raw transcription with a nil certainty. A reply that is
// not the expected JSON is used as the sentence itself, with a nil certainty.
func (r *Reconstructor) Reconstruct(ctx context.Context, transcription, profileContext string) Result {
	if !r.cfg.Enabled {
		return Result{Sentence: transcription}
	}

	system, user := prompts.RegenerationPrompts(transcription, profileContext, r.cfg.RequestCertainty)
	if r.cfg.SystemPrompt != "" {
		system = r.cfg.SystemPrompt
		if profileContext != "" {
			system = strings.TrimRight(system, " \t\n") + "\n\n" + strings.TrimSpace(profileContext)
		}
		if r.cfg.RequestCertainty {
			system = strings.TrimRight(system, " \t\n") + "\n\n" + prompts.RegenerationJSONSuffix
		}
	}

	raw, err := r.llm.Generate(ctx, user, system)
	if err != nil || strings.TrimSpace(raw) == "" {
		return Result{Sentence: transcription}
	}

	sentence, certainty := parseRegenerationResponse(raw)
	if sentence == "" {
		sentence = transcription
	}
	return Result{Sentence: sentence, Certainty: certainty, Ran: true}
}

// parseRegenerationResponse strips a single surrounding fenced code block
// (if present), then attempts a tolerant gjson extraction of
// {"sentence", "certainty"} followed by a strict encoding/json validation.
// On any failure the raw text is returned verbatim with a nil certainty.
func parseRegenerationResponse(raw string) (sentence string, certainty *int) {
	text := strings.TrimSpace(raw)
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	if !gjson.Valid(text) {
		return text, nil
	}
	sentenceVal := gjson.Get(text, "sentence")
	if !sentenceVal.Exists() {
		return text, nil
	}

	var parsed struct {
		Sentence  string `json:"sentence"`
		Certainty *int   `json:"certainty"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		s := strings.TrimSpace(sentenceVal.String())
		if s == "" {
			s = text
		}
		return s, nil
	}

	s := strings.TrimSpace(parsed.Sentence)
	if s == "" {
		s = text
	}
	if parsed.Certainty != nil {
		c := clampInt(*parsed.Certainty, 0, 100)
		certainty = &c
	}
	return s, certainty
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
