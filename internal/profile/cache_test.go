package profile

import (
	"path/filepath"
	"testing"

	"github.com/talkie-assistant/talkie-core-sub000/internal/store"
)

func openTestStores(t *testing.T) (*store.HistoryRepo, *store.SettingsRepo, *store.TrainingRepo) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talkie.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewHistoryRepo(db), store.NewSettingsRepo(db), store.NewTrainingRepo(db)
}

func TestGetContextForLLMCachesWithinTTL(t *testing.T) {
	history, settings, training := openTestStores(t)
	if err := settings.Set("user_context", "The user's name is Alex."); err != nil {
		t.Fatalf("set context: %v", err)
	}

	p := New(history, settings, training, nil)

	first := p.GetContextForLLM()
	if first == "" {
		t.Fatal("expected non-empty context")
	}

	// Change the underlying data without invalidating the cache: a cached
	// read within the TTL must return the same text it returned before.
	if err := settings.Set("user_context", "Something entirely different."); err != nil {
		t.Fatalf("set context again: %v", err)
	}
	second := p.GetContextForLLM()
	if second != first {
		t.Fatalf("expected cached value to be reused within TTL, got %q want %q", second, first)
	}
}

func TestInvalidateForcesRebuild(t *testing.T) {
	history, settings, training := openTestStores(t)
	if err := settings.Set("user_context", "first context"); err != nil {
		t.Fatalf("set: %v", err)
	}
	p := New(history, settings, training, nil)

	first := p.GetContextForLLM()
	if err := settings.Set("user_context", "second context"); err != nil {
		t.Fatalf("set: %v", err)
	}
	p.Invalidate()
	second := p.GetContextForLLM()
	if second == first {
		t.Fatal("expected rebuild after Invalidate to reflect the new context")
	}
}

func TestBuildTextEmptyInputsYieldsEmptyString(t *testing.T) {
	if got := BuildText("", nil, nil, nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestBuildTextCorrectionsSectionFormat(t *testing.T) {
	got := BuildText("", nil, []CorrectionPair{{Original: "wader", Corrected: "water"}}, nil)
	want := `User phrasing preferences (from corrections; prefer these when relevant):
- Prefer: "water" (instead of "wader")`
	if got != want {
		t.Fatalf("unexpected corrections section:\ngot:  %q\nwant: %q", got, want)
	}
}
