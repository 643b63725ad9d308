package profile

import (
	"log/slog"
	"sync"
	"time"

	"github.com/talkie-assistant/talkie-core-sub000/internal/store"
)

// ContextCacheTTL is how long a built profile context is reused before the
// next GetContextForLLM call rebuilds it from the repositories.
const ContextCacheTTL = 30 * time.Second

// Profile provides the personalization context folded into the LLM system
// prompt, cached for a short TTL so a burst of turns doesn't re-query the
// repositories on every call.
type Profile struct {
	history  *store.HistoryRepo
	settings *store.SettingsRepo
	training *store.TrainingRepo
	logger   *slog.Logger

	mu          sync.Mutex
	cached      string
	cachedAt    time.Time
	hasCache    bool
}

// New creates a Profile backed by the given repositories. settings and
// training may be nil, in which case their sections are simply omitted.
func New(history *store.HistoryRepo, settings *store.SettingsRepo, training *store.TrainingRepo, logger *slog.Logger) *Profile {
	if logger == nil {
		logger = slog.Default()
	}
	return &Profile{history: history, settings: settings, training: training, logger: logger}
}

// Invalidate clears the cached context so the next call rebuilds it; call
// this after a new interaction is saved.
func (p *Profile) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasCache = false
}

// GetContextForLLM returns the personalization text to append to the system
// prompt. On any repository error it logs and returns "" so the LLM still
// gets the base prompt.
func (p *Profile) GetContextForLLM() string {
	p.mu.Lock()
	if p.hasCache && time.Since(p.cachedAt) < ContextCacheTTL {
		cached := p.cached
		p.mu.Unlock()
		return cached
	}
	p.mu.Unlock()

	text, err := p.build()
	if err != nil {
		p.logger.Error("build profile context failed", "error", err)
		return ""
	}

	p.mu.Lock()
	p.cached = text
	p.cachedAt = time.Now()
	p.hasCache = true
	p.mu.Unlock()
	return text
}

func (p *Profile) build() (string, error) {
	var userContext string
	if p.settings != nil {
		value, ok, err := p.settings.Get("user_context")
		if err != nil {
			return "", err
		}
		if ok {
			userContext = value
		}
	}

	var trainingFacts []string
	if p.training != nil {
		facts, err := p.training.GetForProfile()
		if err != nil {
			return "", err
		}
		for _, f := range facts {
			trainingFacts = append(trainingFacts, f.Text)
		}
	}

	correctionRows, err := p.history.GetCorrectionsForProfile()
	if err != nil {
		return "", err
	}
	corrections := make([]CorrectionPair, 0, len(correctionRows))
	for _, r := range correctionRows {
		if r.CorrectedResponse == nil {
			continue
		}
		corrections = append(corrections, CorrectionPair{Original: r.OriginalTranscription, Corrected: *r.CorrectedResponse})
	}

	acceptedRows, err := p.history.GetAcceptedForProfile()
	if err != nil {
		return "", err
	}
	accepted := make([]AcceptedPair, 0, len(acceptedRows))
	for _, r := range acceptedRows {
		accepted = append(accepted, AcceptedPair{Transcription: r.OriginalTranscription, Response: r.LLMResponse})
	}

	return BuildText(userContext, trainingFacts, corrections, accepted), nil
}
