package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/talkie-assistant/talkie-core-sub000/internal/audio"
	"github.com/talkie-assistant/talkie-core-sub000/internal/browse"
	"github.com/talkie-assistant/talkie-core-sub000/internal/engine"
	"github.com/talkie-assistant/talkie-core-sub000/internal/profile"
	"github.com/talkie-assistant/talkie-core-sub000/internal/store"
	"github.com/talkie-assistant/talkie-core-sub000/internal/wsaudio"
)

// workerJoinTimeout bounds how long Stop waits for the worker goroutine to
// exit before giving up (but not forcing the process down).
const workerJoinTimeout = 7 * time.Second

// PromptConfig mirrors original_source/app/pipeline.py's llm_prompt_config
// dict, carrying the per-turn completion/regeneration knobs.
type PromptConfig struct {
	MinTranscriptionLength      int
	RegenerationEnabled         bool
	RegenerationRequestCertainty bool
	RegenerationSystemPrompt    string
	UseRegenerationAsResponse   bool
	CertaintyThreshold          int
	SystemPrompt                string
}

// DefaultPromptConfig matches the original's defaults.
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		RegenerationEnabled:          true,
		RegenerationRequestCertainty: true,
		UseRegenerationAsResponse:    true,
		CertaintyThreshold:           70,
	}
}

// Config wires a Pipeline's dependencies together.
type Config struct {
	Queue    *wsaudio.Queue
	STT      engine.STTEngine
	LLM      engine.LLMEngine
	TTS      engine.TTSEngine
	History  *store.HistoryRepo
	Profile  *profile.Profile
	Retriever engine.Retriever
	Browse    *browse.Handler

	Prompt         PromptConfig
	AutoSensitivity AutoSensitivityConfig

	Logger *slog.Logger
}

// Pipeline runs the capture -> STT -> dedupe -> reconstruct -> select ->
// persist -> TTS loop in a single worker goroutine per instance. State
// machine: Stopped -> Starting -> Running -> Stopping -> Stopped. Grounded
// line-for-line on original_source/app/pipeline.py's Pipeline._run_loop.
type Pipeline struct {
	cfg Config

	selector      *Selector
	reconstructor *Reconstructor
	dedupe        DedupeFilter
	autoSens      *autoSensitivityController
	observers     *observerSet

	mu       sync.Mutex
	state    State
	done     chan struct{}

	trainingMode bool
	trainingFn   func(text string)

	documentQAMode bool
	documentQATopK int
	browseMode     bool
	browseSelection string

	lastSpoken string
}

// New creates a Pipeline from cfg. Does not start the worker goroutine.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Prompt == (PromptConfig{}) {
		cfg.Prompt = DefaultPromptConfig()
	}
	p := &Pipeline{
		cfg:           cfg,
		selector:      NewSelector(cfg.LLM, cfg.Retriever, cfg.Browse),
		reconstructor: NewReconstructor(cfg.LLM, ReconstructorConfig{
			Enabled:          cfg.Prompt.RegenerationEnabled,
			RequestCertainty: cfg.Prompt.RegenerationRequestCertainty,
			SystemPrompt:     cfg.Prompt.RegenerationSystemPrompt,
		}),
		autoSens:       newAutoSensitivityController(cfg.AutoSensitivity),
		observers:      newObserverSet(cfg.Logger),
		documentQATopK: 8,
	}
	return p
}

// Subscribe registers an observer for the pipeline's event stream.
func (p *Pipeline) Subscribe(o Observer) (unsubscribe func()) {
	return p.observers.Subscribe(o)
}

// State reports the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetTrainingMode toggles training mode: while enabled, transcriptions are
// forwarded to the training callback instead of the LLM.
func (p *Pipeline) SetTrainingMode(enabled bool, onTranscription func(text string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trainingMode = enabled
	p.trainingFn = onTranscription
}

// SetDocumentQAMode toggles document-QA mode for the next utterance onward.
func (p *Pipeline) SetDocumentQAMode(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.documentQAMode = on
}

// SetDocumentQATopK bounds the retrieval width for document-QA, clamped to [1,20].
func (p *Pipeline) SetDocumentQATopK(topK int) {
	if topK < 1 {
		topK = 1
	}
	if topK > 20 {
		topK = 20
	}
	p.mu.Lock()
	p.documentQATopK = topK
	p.mu.Unlock()
}

// Speak synthesizes text via TTS directly (e.g. a ready message). Safe to
// call before Start or from outside the worker goroutine.
func (p *Pipeline) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" || p.cfg.TTS == nil {
		return
	}
	p.cfg.TTS.Speak(text)
}

// Start launches the worker goroutine if not already running. Idempotent.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.state != Stopped {
		p.mu.Unlock()
		return
	}
	p.state = Starting
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go p.runLoop(ctx, done)
}

// Stop signals the worker to exit and waits up to workerJoinTimeout for it
// to do so. It calls the chunk queue's Stop so that a worker blocked in
// ReadChunk wakes with ok=false and leaves its loop, then stops STT and
// marks the pipeline Stopped.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.state == Stopped {
		p.mu.Unlock()
		return
	}
	p.state = Stopping
	done := p.done
	p.mu.Unlock()

	p.cfg.Queue.Stop()

	if done != nil {
		select {
		case <-done:
		case <-time.After(workerJoinTimeout):
			p.cfg.Logger.Error("pipeline worker did not stop within timeout; may still be running")
		}
	}

	if p.cfg.STT != nil {
		_ = p.cfg.STT.Stop()
	}

	p.mu.Lock()
	p.state = Stopped
	p.mu.Unlock()
	p.observers.Emit(statusEvent("Stopped"))
}

func (p *Pipeline) runLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.observers.Emit(debugEvent("Pipeline worker started"))
	p.observers.Emit(statusEvent("Starting..."))

	if p.cfg.STT != nil {
		if err := p.cfg.STT.Start(ctx); err != nil {
			p.observers.Emit(debugEvent("Pipeline start failed: " + err.Error()))
			p.observers.Emit(errorEvent(err.Error()))
			p.mu.Lock()
			p.state = Stopped
			p.mu.Unlock()
			return
		}
	}
	p.cfg.Queue.Start()

	if !p.cfg.LLM.CheckConnection(ctx, 5*time.Second) {
		p.observers.Emit(debugEvent("Error: language model not reachable"))
		p.observers.Emit(errorEvent("Language model not reachable. Is it running?"))
		p.mu.Lock()
		p.state = Stopped
		p.mu.Unlock()
		p.cfg.Queue.Stop()
		if p.cfg.STT != nil {
			_ = p.cfg.STT.Stop()
		}
		return
	}

	p.mu.Lock()
	p.state = Running
	p.mu.Unlock()

	for {
		p.mu.Lock()
		state := p.state
		p.mu.Unlock()
		if state != Running {
			break
		}

		p.observers.Emit(statusEvent("Listening..."))
		chunk, ok := p.cfg.Queue.ReadChunk(func(level float64) {
			p.observers.Emit(volumeEvent(level))
		})
		if !ok {
			break
		}

		p.processChunk(ctx, chunk)
	}

	// The queue can close itself (producer/connection gone) without a
	// caller ever invoking Stop; reflect that in the state machine so
	// State() does not report Running forever once this goroutine exits.
	p.mu.Lock()
	alreadyStopping := p.state == Stopping
	p.state = Stopped
	p.mu.Unlock()
	if !alreadyStopping {
		if p.cfg.STT != nil {
			_ = p.cfg.STT.Stop()
		}
		p.observers.Emit(statusEvent("Stopped"))
	}

	p.observers.Emit(debugEvent("Pipeline worker stopped"))
}

func (p *Pipeline) processChunk(ctx context.Context, chunk []byte) {
	level := audio.RMS(chunk)

	p.observers.Emit(statusEvent("Transcribing..."))
	text, err := p.cfg.STT.Transcribe(ctx, chunk)
	if err != nil {
		p.observers.Emit(debugEvent("STT transcribe failed: " + err.Error()))
		p.observers.Emit(errorEvent("Speech recognition failed"))
		return
	}
	text = strings.TrimSpace(text)

	if text == "" {
		p.handleEmptyTranscription(level)
		return
	}

	if p.cfg.Prompt.MinTranscriptionLength > 0 && len(text) < p.cfg.Prompt.MinTranscriptionLength {
		p.observers.Emit(debugEvent("Transcription too short, skipping"))
		return
	}

	if !p.dedupe.Accept(text) {
		p.observers.Emit(debugEvent("Duplicate or echoed transcription; skipping"))
		return
	}

	if p.cfg.TTS != nil {
		p.cfg.TTS.Stop()
	}

	p.mu.Lock()
	trainingMode, trainingFn := p.trainingMode, p.trainingFn
	p.mu.Unlock()
	if trainingMode && trainingFn != nil {
		p.observers.Emit(debugEvent("Training mode: saving sentence as fact"))
		trainingFn(text)
		if p.cfg.Profile != nil {
			p.cfg.Profile.Invalidate()
		}
		return
	}

	p.observers.Emit(statusEvent("Responding..."))

	reconstructed := p.reconstructor.Reconstruct(ctx, text, "")

	var profileContext string
	if p.cfg.Profile != nil {
		profileContext = p.cfg.Profile.GetContextForLLM()
	}

	p.mu.Lock()
	selCfg := SelectorConfig{
		BrowseMode:                  p.browseMode,
		DocumentQAMode:              p.documentQAMode,
		DocumentQATopK:              p.documentQATopK,
		UseReconstructionAsResponse: p.cfg.Prompt.UseRegenerationAsResponse,
		CertaintyThreshold:          p.cfg.Prompt.CertaintyThreshold,
		CompletionSystemPrompt:      p.cfg.Prompt.SystemPrompt,
	}
	p.mu.Unlock()

	outcome, err := p.selector.Select(ctx, text, reconstructed, profileContext, selCfg,
		func(on bool) { p.mu.Lock(); p.browseMode = on; p.mu.Unlock() },
		func(sel string) { p.mu.Lock(); p.browseSelection = sel; p.mu.Unlock() },
		func(url string) { p.observers.Emit(openURLEvent(url)) },
	)
	if err != nil {
		p.observers.Emit(debugEvent("Response generation failed: " + err.Error()))
		p.observers.Emit(errorEvent("Could not generate a response"))
		return
	}
	if outcome.Skip {
		return
	}
	response := strings.TrimSpace(outcome.Text)
	if response == "" {
		return
	}

	var interactionID int64
	if p.cfg.History != nil {
		id, err := p.cfg.History.InsertInteraction(text, response, nil, nil)
		if err != nil {
			p.observers.Emit(debugEvent("Failed to save interaction: " + err.Error()))
			p.observers.Emit(errorEvent("Could not save to history"))
		} else {
			interactionID = id
			if p.cfg.Profile != nil {
				p.cfg.Profile.Invalidate()
			}
		}
	}

	p.observers.Emit(responseEvent(response, interactionID))
	p.dedupe.NotifySpoken(response)

	if p.cfg.TTS != nil {
		p.cfg.TTS.Speak(response)
	}
	p.observers.Emit(statusEvent("Listening..."))
}

func (p *Pipeline) handleEmptyTranscription(level float64) {
	current := p.cfg.Queue.Sensitivity()
	newValue, adjusted := p.autoSens.OnEmptyTranscription(level, current, p.cfg.Queue.SetSensitivity)
	if adjusted {
		p.observers.Emit(debugEvent("Auto sensitivity raised"))
		p.observers.Emit(sensitivityEvent(newValue))
	}
}
