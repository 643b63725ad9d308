package pipeline

import (
	"context"
	"testing"
)

func ptrInt(v int) *int { return &v }

func TestSelectorAgreementRepeatSkipsSecondCall(t *testing.T) {
	llm := &fakeLLM{response: "should not be called"}
	s := NewSelector(llm, nil, nil)
	reconstructed := Result{Sentence: "i want water", Ran: true}
	outcome, err := s.Select(context.Background(), "I want water.", reconstructed, "", SelectorConfig{CertaintyThreshold: 100}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Text != "i want water" {
		t.Fatalf("expected reconstructed sentence verbatim, got %q", outcome.Text)
	}
}

func TestSelectorCertaintyThresholdZeroAlwaysUsesReconstruction(t *testing.T) {
	llm := &fakeLLM{response: "should not be called"}
	s := NewSelector(llm, nil, nil)
	reconstructed := Result{Sentence: "intent sentence", Ran: true, Certainty: ptrInt(1)}
	outcome, err := s.Select(context.Background(), "raw totally different", reconstructed, "", SelectorConfig{UseReconstructionAsResponse: true, CertaintyThreshold: 0}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Text != "intent sentence" {
		t.Fatalf("expected reconstruction used as response, got %q", outcome.Text)
	}
}

func TestSelectorCertaintyThreshold100NeverUsesReconstructionUnlessNil(t *testing.T) {
	llm := &fakeLLM{response: "completion text"}
	s := NewSelector(llm, nil, nil)
	reconstructed := Result{Sentence: "intent sentence", Ran: true, Certainty: ptrInt(99)}
	outcome, err := s.Select(context.Background(), "raw totally different", reconstructed, "", SelectorConfig{UseReconstructionAsResponse: true, CertaintyThreshold: 100}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Text != "completion text" {
		t.Fatalf("expected completion call since certainty < 100, got %q", outcome.Text)
	}
}

func TestSelectorCertaintyThreshold100NilCertaintyUsesReconstruction(t *testing.T) {
	llm := &fakeLLM{response: "should not be called"}
	s := NewSelector(llm, nil, nil)
	reconstructed := Result{Sentence: "intent sentence", Ran: true, Certainty: nil}
	outcome, err := s.Select(context.Background(), "raw totally different", reconstructed, "", SelectorConfig{UseReconstructionAsResponse: true, CertaintyThreshold: 100}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Text != "intent sentence" {
		t.Fatalf("nil certainty should still use reconstruction, got %q", outcome.Text)
	}
}

type fakeRetriever struct {
	hasDocuments bool
	context      string
}

func (f *fakeRetriever) Query(ctx context.Context, query string, topK int) (string, error) {
	return f.context, nil
}
func (f *fakeRetriever) HasDocuments(ctx context.Context) (bool, error) { return f.hasDocuments, nil }

func TestSelectorDocumentQANoDocuments(t *testing.T) {
	llm := &fakeLLM{response: "should not be called"}
	retriever := &fakeRetriever{hasDocuments: false}
	s := NewSelector(llm, retriever, nil)
	outcome, err := s.Select(context.Background(), "what does it say", Result{Sentence: "what does it say"}, "", SelectorConfig{DocumentQAMode: true}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Text != noDocumentsMessage {
		t.Fatalf("expected fixed no-documents message, got %q", outcome.Text)
	}
}

func TestSelectorDocumentQAWithDocuments(t *testing.T) {
	llm := &fakeLLM{response: "the answer is 42"}
	retriever := &fakeRetriever{hasDocuments: true, context: "some context"}
	s := NewSelector(llm, retriever, nil)
	outcome, err := s.Select(context.Background(), "what is the answer", Result{Sentence: "what is the answer"}, "", SelectorConfig{DocumentQAMode: true}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Text != "the answer is 42" {
		t.Fatalf("expected LLM answer, got %q", outcome.Text)
	}
}
