package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/nlpodyssey/openai-agents-go/modelsettings"
	"github.com/openai/openai-go/v2/packages/param"
)

// AgentLLM drives chat completions through the openai-agents-go SDK, which
// gives a uniform provider abstraction over OpenAI-compatible backends.
// Generate runs a single-turn, non-tool-using agent and collects its
// streamed output into one string, matching the LLMEngine contract.
type AgentLLM struct {
	provider  agents.ModelProvider
	model     string
	maxTokens int
}

// NewAgentLLM wraps provider/model behind the LLMEngine contract.
func NewAgentLLM(provider agents.ModelProvider, model string, maxTokens int) *AgentLLM {
	return &AgentLLM{provider: provider, model: model, maxTokens: maxTokens}
}

// CheckConnection runs a minimal one-turn exchange and reports success within
// timeout. The agents SDK has no dedicated health endpoint, so a cheap real
// call is the most faithful check available.
func (a *AgentLLM) CheckConnection(ctx context.Context, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := a.Generate(ctx, "ping", "Reply with a single word.")
	return err == nil
}

// Generate runs the configured model for one turn and returns its text.
func (a *AgentLLM) Generate(ctx context.Context, prompt, system string) (string, error) {
	agent := agents.New("assistant").
		WithInstructions(system).
		WithModel(a.model).
		WithModelSettings(modelsettings.ModelSettings{
			MaxTokens: param.NewOpt(int64(a.maxTokens)),
		})

	runner := agents.Runner{Config: agents.RunConfig{
		ModelProvider:   a.provider,
		MaxTurns:        1,
		TracingDisabled: true,
	}}

	events, errCh, err := runner.RunStreamedChan(ctx, agent, prompt)
	if err != nil {
		return "", fmt.Errorf("llm stream start: %w", err)
	}

	var textBuf strings.Builder
	for ev := range events {
		appendStreamDelta(ev, &textBuf)
	}

	if streamErr := <-errCh; streamErr != nil {
		return "", fmt.Errorf("llm stream: %w", streamErr)
	}
	return textBuf.String(), nil
}

func appendStreamDelta(ev agents.StreamEvent, textBuf *strings.Builder) {
	raw, ok := ev.(agents.RawResponsesStreamEvent)
	if !ok {
		return
	}
	if raw.Data.Type != "response.output_text.delta" {
		return
	}
	textBuf.WriteString(raw.Data.Delta)
}
