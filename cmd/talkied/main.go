package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/openai/openai-go/v2/packages/param"

	"github.com/talkie-assistant/talkie-core-sub000/internal/browse"
	"github.com/talkie-assistant/talkie-core-sub000/internal/config"
	"github.com/talkie-assistant/talkie-core-sub000/internal/curation"
	"github.com/talkie-assistant/talkie-core-sub000/internal/engine"
	"github.com/talkie-assistant/talkie-core-sub000/internal/env"
	"github.com/talkie-assistant/talkie-core-sub000/internal/pipeline"
	"github.com/talkie-assistant/talkie-core-sub000/internal/profile"
	"github.com/talkie-assistant/talkie-core-sub000/internal/store"
	"github.com/talkie-assistant/talkie-core-sub000/internal/trace"
	"github.com/talkie-assistant/talkie-core-sub000/internal/wsaudio"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed, continuing with defaults", "error", err)
		cfg = config.Default()
	}

	db, err := store.Open(env.Str("TALKIE_DB_PATH", cfg.Persistence.DBPath))
	if err != nil {
		slog.Error("open database failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	history := store.NewHistoryRepo(db)
	settings := store.NewSettingsRepo(db)
	training := store.NewTrainingRepo(db)
	prof := profile.New(history, settings, training, slog.Default())

	var traceStore *trace.Store
	if postgresURL := env.Str("TALKIE_TRACE_POSTGRES_URL", cfg.Persistence.PostgresURL); postgresURL != "" {
		traceStore, err = trace.Open(postgresURL)
		if err != nil {
			slog.Error("trace store open failed, continuing without tracing", "error", err)
		} else {
			slog.Info("tracing enabled", "postgres", postgresURL)
		}
	}
	_ = traceStore

	llm := buildLLM(cfg)
	retriever := buildRetriever(cfg)
	browseHandler := buildBrowse(cfg, llm)

	stopCuration := curation.StartBackgroundScheduler(
		history,
		curation.Config{
			MinWeight:                 cfg.Curation.MinWeight,
			MaxWeight:                 cfg.Curation.MaxWeight,
			CorrectionWeightBump:      cfg.Curation.CorrectionWeightBump,
			PatternCountWeightScale:   cfg.Curation.PatternCountWeightScale,
			ExcludeEmptyTranscription: cfg.Curation.ExcludeEmptyTranscription,
			DeleteOlderThanDays:       cfg.Curation.DeleteOlderThanDays,
		},
		time.Duration(cfg.Curation.IntervalSeconds)*time.Second,
		slog.Default(),
	)
	defer stopCuration()

	handler := wsaudio.NewHandler(func(sessionID string, q *wsaudio.Queue) {
		runSession(sessionID, q, cfg, llm, retriever, browseHandler, history, prof)
	})

	mux := http.NewServeMux()
	mux.Handle("/ws/audio", handler)

	addr := ":" + env.Str("TALKIE_PORT", "8000")
	srv := &http.Server{Addr: addr, Handler: mux}

	go awaitShutdown(srv)

	slog.Info("talkied starting", "addr", addr)
	if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("talkied stopped")
}

// runSession builds one pipeline per WebSocket session and runs it until the
// connection closes (the queue's Stop wakes the worker's blocked read).
func runSession(sessionID string, q *wsaudio.Queue, cfg config.Snapshot, llm engine.LLMEngine, retriever engine.Retriever, browseHandler *browse.Handler, history *store.HistoryRepo, prof *profile.Profile) {
	logger := slog.Default().With("session_id", sessionID)

	q.SetSensitivity(cfg.InitialSensitivity)

	stt := engine.NewWhisperSTT(env.Str("WHISPER_SERVER_URL", ""), env.Str("WHISPER_PROMPT", ""), 4)

	ttsSink := func(audioBytes []byte) {
		// A real deployment relays audioBytes back over the session's
		// WebSocket; this composition root's audio egress is intentionally
		// left to the caller-supplied sink in tests since the HTTP/UI
		// surface is out of this module's scope.
		_ = audioBytes
	}
	tts := engine.NewPiperTTS(env.Str("PIPER_URL", "http://localhost:5001"), "fast", 4, ttsSink, logger)

	p := pipeline.New(pipeline.Config{
		Queue:     q,
		STT:       stt,
		LLM:       llm,
		TTS:       tts,
		History:   history,
		Profile:   prof,
		Retriever: retriever,
		Browse:    browseHandler,
		Prompt: pipeline.PromptConfig{
			MinTranscriptionLength:       cfg.Reconstruction.MinTranscriptionLength,
			RegenerationEnabled:          cfg.Reconstruction.Enabled,
			RegenerationRequestCertainty: cfg.Reconstruction.RequestCertainty,
			RegenerationSystemPrompt:     cfg.Reconstruction.SystemPrompt,
			UseRegenerationAsResponse:    cfg.Reconstruction.UseAsResponse,
			CertaintyThreshold:           cfg.Reconstruction.CertaintyThreshold,
		},
		AutoSensitivity: pipeline.AutoSensitivityConfig{
			Enabled:        cfg.AutoSensitivity.Enabled,
			MinLevel:       cfg.AutoSensitivity.MinLevel,
			MaxLevel:       cfg.AutoSensitivity.MaxLevel,
			Step:           cfg.AutoSensitivity.Step,
			CooldownChunks: cfg.AutoSensitivity.CooldownChunks,
		},
		Logger: logger,
	})
	p.SetDocumentQATopK(cfg.DocumentQA.TopK)

	unsubscribe := p.Subscribe(pipeline.ObserverFunc(func(e pipeline.Event) {
		logger.Debug("pipeline event", "type", e.Type, "status", e.Status)
	}))
	defer unsubscribe()

	ctx := context.Background()
	p.Start(ctx)
	defer p.Stop()

	// The worker goroutine exits on its own once the WebSocket handler's
	// defer q.Stop() fires on disconnect (ReadChunk returns ok=false), so
	// this just waits for that to reach the Stopped state.
	for p.State() == pipeline.Starting || p.State() == pipeline.Running {
		time.Sleep(200 * time.Millisecond)
	}
}

func buildLLM(cfg config.Snapshot) engine.LLMEngine {
	ollamaURL := env.Str("OLLAMA_URL", "http://localhost:11434")
	ollamaModel := env.Str("OLLAMA_MODEL", cfg.LLMModel)
	openaiAPIKey := env.Str("OPENAI_API_KEY", "")
	anthropicAPIKey := env.Str("ANTHROPIC_API_KEY", "")

	backends := map[string]engine.LLMEngine{
		"ollama": engine.NewAgentLLM(agents.NewOpenAIProvider(agents.OpenAIProviderParams{
			BaseURL:      param.NewOpt(ollamaURL + "/v1/"),
			APIKey:       param.NewOpt("ollama"),
			UseResponses: param.NewOpt(false),
		}), ollamaModel, 2048),
	}
	if openaiAPIKey != "" {
		backends["openai"] = engine.NewAgentLLM(agents.NewOpenAIProvider(agents.OpenAIProviderParams{
			BaseURL:      param.NewOpt(env.Str("OPENAI_URL", "https://api.openai.com") + "/v1/"),
			APIKey:       param.NewOpt(openaiAPIKey),
			UseResponses: param.NewOpt(true),
		}), env.Str("OPENAI_MODEL", "gpt-4.1-nano"), 2048)
	}
	if anthropicAPIKey != "" {
		backends["anthropic"] = engine.NewAnthropicLLM(anthropicAPIKey, env.Str("ANTHROPIC_URL", "https://api.anthropic.com"), env.Str("ANTHROPIC_MODEL", "claude-sonnet-4-5"), 2048, 10)
	}
	router := engine.NewRouter(backends, "ollama")
	backend, _ := router.Route(env.Str("TALKIE_LLM_BACKEND", cfg.LLMBackend))
	return engine.WithFallback(backend, slog.Default())
}

func buildRetriever(cfg config.Snapshot) engine.Retriever {
	if !cfg.DocumentQA.Enabled {
		return nil
	}
	return engine.NewQdrantRetriever(engine.QdrantRetrieverConfig{
		EmbedURL:   env.Str("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel: env.Str("EMBED_MODEL", "nomic-embed-text"),
		QdrantURL:  env.Str("QDRANT_URL", "http://localhost:6333"),
		Collection: env.Str("QDRANT_COLLECTION", "talkie_documents"),
		TopK:       cfg.DocumentQA.TopK,
		PoolSize:   10,
	})
}

func buildBrowse(cfg config.Snapshot, llm engine.LLMEngine) *browse.Handler {
	if !cfg.Browse.Enabled {
		return nil
	}
	classifier := browse.NewLLMClassifier(llm, "")
	executor := browse.NewExecutor(nil, nil)
	return browse.NewHandler(classifier, executor)
}

func awaitShutdown(srv *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
