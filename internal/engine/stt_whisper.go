package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/talkie-assistant/talkie-core-sub000/internal/audio"
)

// WhisperSTT transcribes audio through a whisper.cpp HTTP server's /inference
// endpoint. It satisfies STTEngine; Start/Stop are no-ops since the server is
// externally managed, matching the contract's allowance for engines that have
// no session state of their own.
type WhisperSTT struct {
	url    string
	prompt string
	client *http.Client

	mu      sync.Mutex
	started bool
}

// NewWhisperSTT creates a client pointing at a whisper.cpp server URL. prompt,
// when non-empty, is passed as the initial decoding prompt on every request.
func NewWhisperSTT(url, prompt string, poolSize int) *WhisperSTT {
	return &WhisperSTT{
		url:    url,
		prompt: prompt,
		client: NewPooledHTTPClient(poolSize, 30*time.Second),
	}
}

func (w *WhisperSTT) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.started = true
	return nil
}

func (w *WhisperSTT) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.started = false
	return nil
}

// Transcribe sends 16kHz mono int16 PCM to whisper.cpp, wrapping it as WAV
// (whisper.cpp's /inference endpoint expects a file upload, not raw PCM).
func (w *WhisperSTT) Transcribe(ctx context.Context, pcm16 []byte) (string, error) {
	text, _, err := w.transcribe(ctx, pcm16)
	return text, err
}

// TranscribeWithConfidence satisfies ConfidenceSTT. whisper.cpp's /inference
// response does not carry a confidence score in the minimal JSON shape used
// here, so confidence is always nil; callers should type-assert for
// ConfidenceSTT only when a richer whisper.cpp build is configured.
func (w *WhisperSTT) TranscribeWithConfidence(ctx context.Context, pcm16 []byte) (string, *float64, error) {
	return w.transcribe(ctx, pcm16)
}

func (w *WhisperSTT) transcribe(ctx context.Context, pcm16 []byte) (string, *float64, error) {
	body, contentType, err := buildMultipartAudio(pcm16, w.prompt)
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url+"/inference", body)
	if err != nil {
		return "", nil, fmt.Errorf("create whisper request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", nil, fmt.Errorf("whisper status %d: %s", resp.StatusCode, respBody)
	}

	var whisperResp struct {
		Text string `json:"text"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&whisperResp); err != nil {
		return "", nil, fmt.Errorf("decode whisper response: %w", err)
	}
	return whisperResp.Text, nil, nil
}

func buildMultipartAudio(pcm16 []byte, prompt string) (*bytes.Buffer, string, error) {
	wavData := audio.PCM16ToWAV(pcm16, 16000)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err = part.Write(wavData); err != nil {
		return nil, "", fmt.Errorf("write wav data: %w", err)
	}
	if prompt != "" {
		if err = writer.WriteField("prompt", prompt); err != nil {
			return nil, "", fmt.Errorf("write prompt field: %w", err)
		}
	}
	if err = writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}
