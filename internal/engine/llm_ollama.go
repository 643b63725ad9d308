package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/talkie-assistant/talkie-core-sub000/internal/metrics"
)

// OllamaLLM generates chat completions from Ollama. Generate collapses the
// teacher's token-streaming Chat into a single buffered result: the worker
// needs only the finished sentence to hand to the selector and TTS.
type OllamaLLM struct {
	url          string
	model        string
	systemPrompt string
	maxTokens    int
	client       *http.Client
}

// NewOllamaLLM creates an Ollama HTTP client.
func NewOllamaLLM(url, model, systemPrompt string, maxTokens, poolSize int) *OllamaLLM {
	return &OllamaLLM{
		url:          url,
		model:        model,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
		client:       NewPooledHTTPClient(poolSize, 60*time.Second),
	}
}

// CheckConnection probes Ollama's /api/tags endpoint within timeout.
func (c *OllamaLLM) CheckConnection(ctx context.Context, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Generate sends prompt/system to Ollama and returns the fully assembled
// response text, draining the streamed chunks internally.
func (c *OllamaLLM) Generate(ctx context.Context, prompt, system string) (string, error) {
	start := time.Now()

	resp, err := c.postChatRequest(ctx, prompt, system)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.Errors.WithLabelValues("llm", "status").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama status %d: %s", resp.StatusCode, body)
	}

	text := c.consumeStream(resp.Body)
	metrics.StageDuration.WithLabelValues("llm").Observe(time.Since(start).Seconds())
	return text, nil
}

func (c *OllamaLLM) postChatRequest(ctx context.Context, prompt, system string) (*http.Response, error) {
	sysPrompt := c.systemPrompt
	if system != "" {
		sysPrompt = system
	}

	messages := []ollamaMessage{{Role: "system", Content: sysPrompt}}
	messages = append(messages, ollamaMessage{Role: "user", Content: prompt})

	reqBody := ollamaRequest{
		Model:    c.model,
		Stream:   true,
		Options:  ollamaOptions{NumPredict: c.maxTokens},
		Messages: messages,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/api/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "http").Inc()
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	return resp, nil
}

func (c *OllamaLLM) consumeStream(body io.Reader) string {
	var sb strings.Builder
	scanner := bufio.NewScanner(body)

	for scanner.Scan() {
		var chunk ollamaStreamChunk
		if json.Unmarshal(scanner.Bytes(), &chunk) != nil {
			continue
		}
		if chunk.Done {
			break
		}
		sb.WriteString(chunk.Message.Content)
	}
	return sb.String()
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Stream   bool            `json:"stream"`
	Messages []ollamaMessage `json:"messages"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	NumPredict int `json:"num_predict"`
}

type ollamaStreamChunk struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}
