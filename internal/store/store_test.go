package store

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talkie.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talkie.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	db.Close()

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("second open (re-migrate) should be a no-op, got error: %v", err)
	}
	db2.Close()
}

func TestInsertInteractionThenListRecent(t *testing.T) {
	db := openTestDB(t)
	repo := NewHistoryRepo(db)

	id, err := repo.InsertInteraction("hello there", "hi, how can I help?", nil, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, err := repo.ListRecent(1)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].ID != id {
		t.Fatalf("expected id %d, got %d", id, rows[0].ID)
	}
	if rows[0].OriginalTranscription != "hello there" {
		t.Fatalf("unexpected transcription: %q", rows[0].OriginalTranscription)
	}
}

func TestUpdateCorrectionThenGetCorrectionsForProfile(t *testing.T) {
	db := openTestDB(t)
	repo := NewHistoryRepo(db)

	id, err := repo.InsertInteraction("i want water", "I want water.", nil, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err = repo.UpdateCorrection(id, "I'd like some water, please.", 2.0); err != nil {
		t.Fatalf("update correction: %v", err)
	}

	rows, err := repo.GetCorrectionsForProfile()
	if err != nil {
		t.Fatalf("get corrections: %v", err)
	}
	if len(rows) != 1 || rows[0].CorrectedResponse == nil || *rows[0].CorrectedResponse != "I'd like some water, please." {
		t.Fatalf("unexpected corrections: %+v", rows)
	}

	// Repeat: same correction should not duplicate or change the result.
	rowsAgain, err := repo.GetCorrectionsForProfile()
	if err != nil {
		t.Fatalf("get corrections again: %v", err)
	}
	if len(rowsAgain) != 1 || *rowsAgain[0].CorrectedResponse != *rows[0].CorrectedResponse {
		t.Fatalf("expected stable result on repeat call, got %+v", rowsAgain)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewSettingsRepo(db)

	if err := repo.Set("tts_voice", "Daniel"); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, ok, err := repo.Get("tts_voice")
	if err != nil || !ok || value != "Daniel" {
		t.Fatalf("unexpected get result: value=%q ok=%v err=%v", value, ok, err)
	}

	_, ok, err = repo.Get("does_not_exist")
	if err != nil {
		t.Fatalf("get missing key: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing key")
	}
}

func TestTrainingRepoAddAndList(t *testing.T) {
	db := openTestDB(t)
	repo := NewTrainingRepo(db)

	if _, err := repo.Add("the user's dog is named Max"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := repo.Add(""); err == nil {
		t.Fatal("expected error adding empty fact")
	}

	facts, err := repo.ListAll()
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
}
