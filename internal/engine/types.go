// Package engine defines the capability contracts the pipeline worker dispatches
// over (STT, LLM, TTS, document retrieval) and a generic named-backend router.
package engine

import (
	"context"
	"time"
)

// STTEngine transcribes 16kHz mono int16 audio. Transcribe must never panic on
// malformed input; an engine-level failure is returned as an error, not a
// recovered empty string.
type STTEngine interface {
	Start(ctx context.Context) error
	Stop() error
	Transcribe(ctx context.Context, pcm16 []byte) (string, error)
}

// ConfidenceSTT is an optional extension of STTEngine for backends that can
// report a confidence score alongside the transcription.
type ConfidenceSTT interface {
	TranscribeWithConfidence(ctx context.Context, pcm16 []byte) (text string, confidence *float64, err error)
}

// LLMEngine is the pipeline's view of a language model backend. Generate must
// never return an error to the worker loop once wrapped by WithFallback; the
// raw engine implementation may still fail transiently.
type LLMEngine interface {
	CheckConnection(ctx context.Context, timeout time.Duration) bool
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// TTSEngine starts speech playback asynchronously.
type TTSEngine interface {
	Speak(text string)
	Stop()
}

// WaitableTTS is an optional extension for engines that can report synthesis
// completion.
type WaitableTTS interface {
	WaitUntilDone()
}

// Retriever answers document-QA queries against an indexed corpus.
type Retriever interface {
	Query(ctx context.Context, query string, topK int) (string, error)
	HasDocuments(ctx context.Context) (bool, error)
}
