package curation

import (
	"path/filepath"
	"testing"

	"github.com/talkie-assistant/talkie-core-sub000/internal/store"
)

func openTestRepo(t *testing.T) *store.HistoryRepo {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talkie.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewHistoryRepo(db)
}

func TestClampAlwaysWithinBounds(t *testing.T) {
	for _, v := range []float64{-100, -0.01, 0, 5, 10, 10.01, 1000} {
		got := clamp(v, 0.0, 10.0)
		if got < 0.0 || got > 10.0 {
			t.Fatalf("clamp(%v) = %v out of [0,10]", v, got)
		}
	}
}

func TestNormalizeForPatternCollapsesPunctuationAndCase(t *testing.T) {
	a := normalizeForPattern("Thanks.")
	b := normalizeForPattern("thanks")
	if a != b {
		t.Fatalf("expected equal pattern keys, got %q vs %q", a, b)
	}
}

func TestRunWeightClampingAcrossInputs(t *testing.T) {
	repo := openTestRepo(t)
	for i := 0; i < 5; i++ {
		if _, err := repo.InsertInteraction("thanks!", "You're welcome.", nil, nil); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	id, err := repo.InsertInteraction("", "empty transcription response", nil, nil)
	if err != nil {
		t.Fatalf("insert empty: %v", err)
	}

	cfg := DefaultConfig()
	result, err := Run(repo, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.WeightsUpdated == 0 {
		t.Fatal("expected at least one weight update")
	}
	if result.Excluded != 1 {
		t.Fatalf("expected 1 excluded (empty transcription), got %d", result.Excluded)
	}

	rows, err := repo.ListRecent(10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	for _, r := range rows {
		if r.Weight == nil {
			continue
		}
		if *r.Weight < cfg.MinWeight || *r.Weight > cfg.MaxWeight {
			t.Fatalf("weight %v for id %d out of [%v,%v]", *r.Weight, r.ID, cfg.MinWeight, cfg.MaxWeight)
		}
	}
	_ = id
}

func TestRunEmptyRepoIsNoop(t *testing.T) {
	repo := openTestRepo(t)
	result, err := Run(repo, DefaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.WeightsUpdated != 0 || result.Excluded != 0 || result.Deleted != 0 {
		t.Fatalf("expected no-op result on empty repo, got %+v", result)
	}
}
