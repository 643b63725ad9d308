package curation

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/talkie-assistant/talkie-core-sub000/internal/prompts"
	"github.com/talkie-assistant/talkie-core-sub000/internal/store"
)

// trainingRecord is the instruction-tuning shape written per exported line:
// instruction + input (the raw transcription) + output (the preferred
// response).
type trainingRecord struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
}

// ExportOptions tunes ExportForFinetuning.
type ExportOptions struct {
	MinWeight         *float64
	SystemInstruction string
	// Limit caps how many records are written, 0 meaning unlimited.
	Limit int
}

// ExportForFinetuning writes interactions to outPath as JSONL, one
// trainingRecord per line, preferring corrected responses and higher
// curation weight. Returns the number of lines written.
func ExportForFinetuning(repo *store.HistoryRepo, outPath string, opts ExportOptions) (int, error) {
	rows, err := repo.ListForCuration()
	if err != nil {
		return 0, fmt.Errorf("list for export: %w", err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		hasCorrI := rows[i].CorrectedResponse != nil && strings.TrimSpace(*rows[i].CorrectedResponse) != ""
		hasCorrJ := rows[j].CorrectedResponse != nil && strings.TrimSpace(*rows[j].CorrectedResponse) != ""
		if hasCorrI != hasCorrJ {
			return hasCorrI
		}
		wi, wj := weightOf(rows[i]), weightOf(rows[j])
		if wi != wj {
			return wi > wj
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	if opts.MinWeight != nil {
		filtered := rows[:0]
		for _, r := range rows {
			if weightOf(r) >= *opts.MinWeight {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	instruction := opts.SystemInstruction
	if instruction == "" {
		instruction = prompts.DefaultExportInstruction
	}

	if err = os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	writer := bufio.NewWriter(f)
	defer writer.Flush()

	written := 0
	for _, r := range rows {
		output := strings.TrimSpace(responseText(r))
		if output == "" {
			continue
		}
		rec := trainingRecord{
			Instruction: instruction,
			Input:       strings.TrimSpace(r.OriginalTranscription),
			Output:      output,
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return written, fmt.Errorf("marshal export record: %w", err)
		}
		if _, err = writer.Write(append(line, '\n')); err != nil {
			return written, fmt.Errorf("write export record: %w", err)
		}
		written++
		if opts.Limit > 0 && written >= opts.Limit {
			break
		}
	}
	return written, writer.Flush()
}

func weightOf(r store.InteractionRecord) float64 {
	if r.Weight == nil {
		return 0
	}
	return *r.Weight
}
