package pipeline

import (
	"context"
	"strings"

	"github.com/talkie-assistant/talkie-core-sub000/internal/browse"
	"github.com/talkie-assistant/talkie-core-sub000/internal/engine"
	"github.com/talkie-assistant/talkie-core-sub000/internal/prompts"
)

// noDocumentsMessage is the fixed response when document-QA mode is active
// but no documents have been indexed yet.
const noDocumentsMessage = "No documents are indexed yet. Open Documents, add files, and click Vectorize."

// SelectorConfig carries the per-turn mode flags and thresholds the Selector
// consults to choose a branch.
type SelectorConfig struct {
	BrowseMode             bool
	DocumentQAMode         bool
	DocumentQATopK         int
	UseReconstructionAsResponse bool
	CertaintyThreshold     int
	CompletionSystemPrompt string
}

// Selector picks and runs exactly one response branch for a turn: browse,
// document-QA, agreement-repeat, reconstruction-as-final, or completion.
// Grounded on original_source/app/pipeline.py's _run_loop branch chain.
type Selector struct {
	llm       engine.LLMEngine
	retriever engine.Retriever
	browse    *browse.Handler
}

// NewSelector creates a Selector. retriever and browseHandler may be nil to
// disable their respective branches.
func NewSelector(llm engine.LLMEngine, retriever engine.Retriever, browseHandler *browse.Handler) *Selector {
	return &Selector{llm: llm, retriever: retriever, browse: browseHandler}
}

// Outcome is the result of running the selector for one turn.
type Outcome struct {
	// Text is the user-visible output, including the browse handler's
	// messages (browse mode toggles among them). Empty means the turn
	// produced no response.
	Text string
	// Skip is true when the turn should end without any persistence,
	// response event, or TTS (the browse handler returned an error).
	Skip bool
}

// Select runs the branch chain and returns the outcome for one turn.
func (s *Selector) Select(ctx context.Context, rawText string, reconstructed Result, profileContext string, cfg SelectorConfig, setBrowseMode func(bool), setSelection func(string), onOpenURL func(string)) (Outcome, error) {
	if cfg.BrowseMode && s.browse != nil {
		msg, err := s.browse.Handle(ctx, rawText, setBrowseMode, setSelection, onOpenURL)
		if err != nil {
			return Outcome{Skip: true}, nil
		}
		if msg != nil {
			return Outcome{Text: *msg}, nil
		}
	}

	if cfg.DocumentQAMode {
		return s.selectDocumentQA(ctx, reconstructed.Sentence, cfg)
	}

	if reconstructed.Ran && normalizeForRepeat(rawText) == normalizeForRepeat(reconstructed.Sentence) {
		return Outcome{Text: reconstructed.Sentence}, nil
	}

	if cfg.UseReconstructionAsResponse && reconstructed.Ran &&
		(reconstructed.Certainty == nil || *reconstructed.Certainty >= cfg.CertaintyThreshold) {
		return Outcome{Text: reconstructed.Sentence}, nil
	}

	return s.selectCompletion(ctx, reconstructed.Sentence, profileContext, cfg)
}

func (s *Selector) selectDocumentQA(ctx context.Context, question string, cfg SelectorConfig) (Outcome, error) {
	if s.retriever == nil {
		return Outcome{Text: noDocumentsMessage}, nil
	}
	hasDocuments, err := s.retriever.HasDocuments(ctx)
	if err != nil || !hasDocuments {
		return Outcome{Text: noDocumentsMessage}, nil
	}
	topK := cfg.DocumentQATopK
	if topK <= 0 {
		topK = 8
	}
	retrievedContext, err := s.retriever.Query(ctx, question, topK)
	if err != nil {
		retrievedContext = ""
	}
	system, user := prompts.DocumentQAPrompts(question, retrievedContext)
	response, err := s.llm.Generate(ctx, user, system)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Text: response}, nil
}

func (s *Selector) selectCompletion(ctx context.Context, intentSentence, profileContext string, cfg SelectorConfig) (Outcome, error) {
	system := cfg.CompletionSystemPrompt
	if system == "" {
		system = prompts.DefaultRegenerationSystem
	}
	if profileContext != "" {
		system = strings.TrimRight(system, " \t\n") + "\n\n" + strings.TrimSpace(profileContext)
	}
	response, err := s.llm.Generate(ctx, intentSentence, system)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Text: response}, nil
}

// normalizeForRepeat lower-cases, collapses whitespace, and strips trailing
// sentence punctuation — used to detect "the LLM agrees with what was
// heard" so the completion call can be skipped.
func normalizeForRepeat(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, ".!? ")
}
