package pipeline

import (
	"context"
	"testing"
	"time"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) CheckConnection(ctx context.Context, timeout time.Duration) bool { return true }
func (f *fakeLLM) Generate(ctx context.Context, prompt, system string) (string, error) {
	return f.response, f.err
}

func TestParseRegenerationResponseJSON(t *testing.T) {
	sentence, certainty := parseRegenerationResponse(`{"sentence": "I want water.", "certainty": 85}`)
	if sentence != "I want water." {
		t.Fatalf("unexpected sentence: %q", sentence)
	}
	if certainty == nil || *certainty != 85 {
		t.Fatalf("unexpected certainty: %v", certainty)
	}
}

func TestParseRegenerationResponseFencedJSON(t *testing.T) {
	raw := "```json\n{\"sentence\": \"Pass the salt.\", \"certainty\": 120}\n```"
	sentence, certainty := parseRegenerationResponse(raw)
	if sentence != "Pass the salt." {
		t.Fatalf("unexpected sentence: %q", sentence)
	}
	if certainty == nil || *certainty != 100 {
		t.Fatalf("certainty should be clamped to 100, got %v", certainty)
	}
}

func TestParseRegenerationResponsePlainText(t *testing.T) {
	sentence, certainty := parseRegenerationResponse("I didn't catch that.")
	if sentence != "I didn't catch that." {
		t.Fatalf("unexpected sentence: %q", sentence)
	}
	if certainty != nil {
		t.Fatalf("expected nil certainty for plain text, got %v", certainty)
	}
}

func TestParseRegenerationResponseNegativeCertaintyClamped(t *testing.T) {
	_, certainty := parseRegenerationResponse(`{"sentence": "Hi.", "certainty": -10}`)
	if certainty == nil || *certainty != 0 {
		t.Fatalf("expected certainty clamped to 0, got %v", certainty)
	}
}

func TestReconstructDisabledReturnsRaw(t *testing.T) {
	r := NewReconstructor(&fakeLLM{response: "ignored"}, ReconstructorConfig{Enabled: false})
	result := r.Reconstruct(context.Background(), "raw text", "")
	if result.Sentence != "raw text" || result.Ran {
		t.Fatalf("expected raw passthrough, got %+v", result)
	}
}

func TestReconstructEmptyResponseFallsBackToRaw(t *testing.T) {
	r := NewReconstructor(&fakeLLM{response: ""}, ReconstructorConfig{Enabled: true})
	result := r.Reconstruct(context.Background(), "raw text", "")
	if result.Sentence != "raw text" || result.Ran {
		t.Fatalf("expected fallback to raw text, got %+v", result)
	}
}

func TestReconstructCertaintyAlwaysInRange(t *testing.T) {
	for _, c := range []int{-500, -1, 0, 50, 100, 101, 9999} {
		clamped := clampInt(c, 0, 100)
		if clamped < 0 || clamped > 100 {
			t.Fatalf("clampInt(%d) = %d out of range", c, clamped)
		}
	}
}
