package curation

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestExportForFinetuningWritesJSONLInPreferredOrder(t *testing.T) {
	repo := openTestRepo(t)

	lowID, err := repo.InsertInteraction("low weight one", "response one", nil, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err = repo.UpdateWeight(lowID, 1.0); err != nil {
		t.Fatalf("update weight: %v", err)
	}

	correctedID, err := repo.InsertInteraction("needs correction", "bad response", nil, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err = repo.UpdateCorrection(correctedID, "corrected response", 5.0); err != nil {
		t.Fatalf("update correction: %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "export.jsonl")
	n, err := ExportForFinetuning(repo, outPath, ExportOptions{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 records written, got %d", n)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	var records []trainingRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec trainingRecord
		if err = json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("unmarshal record: %v", err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(records))
	}
	if records[0].Output != "corrected response" {
		t.Fatalf("expected corrected interaction first, got %+v", records[0])
	}
	if records[0].Instruction == "" {
		t.Fatal("expected non-empty instruction field")
	}
}

func TestExportForFinetuningMinWeightFilter(t *testing.T) {
	repo := openTestRepo(t)
	lowID, err := repo.InsertInteraction("low", "low response", nil, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err = repo.UpdateWeight(lowID, 0.5); err != nil {
		t.Fatalf("update weight: %v", err)
	}
	highID, err := repo.InsertInteraction("high", "high response", nil, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err = repo.UpdateWeight(highID, 5.0); err != nil {
		t.Fatalf("update weight: %v", err)
	}

	minWeight := 1.0
	outPath := filepath.Join(t.TempDir(), "export.jsonl")
	n, err := ExportForFinetuning(repo, outPath, ExportOptions{MinWeight: &minWeight})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 record above min weight, got %d", n)
	}
}
