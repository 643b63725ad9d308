// Command talkiectl is the maintenance CLI for the interaction history and
// the curation pipeline: inspect, edit, and clear stored interactions, run a
// curation pass on demand, or export interactions as fine-tuning data.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/talkie-assistant/talkie-core-sub000/internal/config"
	"github.com/talkie-assistant/talkie-core-sub000/internal/curation"
	"github.com/talkie-assistant/talkie-core-sub000/internal/store"
)

const listPreviewLen = 60

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "history":
		os.Exit(runHistory(os.Args[2:]))
	case "curation":
		os.Exit(runCuration(os.Args[2:]))
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: talkiectl history {clear|list|view N|edit N}")
	fmt.Fprintln(os.Stderr, "       talkiectl curation [--export FILE] [--limit N]")
}

func openHistoryRepo() (*store.HistoryRepo, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	dbPath := cfg.Persistence.DBPath
	if !filepath.IsAbs(dbPath) {
		if wd, wdErr := os.Getwd(); wdErr == nil {
			dbPath = filepath.Join(wd, dbPath)
		}
	}
	if err = os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return store.NewHistoryRepo(db), func() { db.Close() }, nil
}

func runHistory(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: talkiectl history {clear|list|view N|edit N}")
		return 1
	}

	repo, closeFn, err := openHistoryRepo()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeFn()

	switch strings.ToLower(args[0]) {
	case "clear":
		return cmdClear(repo)
	case "list":
		return cmdList(repo)
	case "view":
		return cmdView(repo, args[1:])
	case "edit":
		return cmdEdit(repo, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s. use clear, list, view, or edit.\n", args[0])
		return 1
	}
}

func cmdClear(repo *store.HistoryRepo) int {
	n, err := repo.DeleteAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	fmt.Printf("Cleared %d interaction(s).\n", n)
	return 0
}

func cmdList(repo *store.HistoryRepo) int {
	items, err := repo.ListRecent(2000)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	for i, r := range items {
		created := r.CreatedAt.Format("2006-01-02T15:04:05")
		orig := previewTrim(r.OriginalTranscription)
		resp := previewTrim(r.LLMResponse)
		fmt.Printf("%5d  %s  %s\n", i+1, created, orig)
		fmt.Printf("       %s\n", resp)
	}
	return 0
}

func previewTrim(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > listPreviewLen {
		return text[:listPreviewLen-1] + "…"
	}
	return text
}

// itemAtIndex returns the 1-based index'th most-recent interaction, or false
// if the index is out of range.
func itemAtIndex(repo *store.HistoryRepo, oneBasedIndex int) (store.InteractionRecord, bool) {
	if oneBasedIndex < 1 {
		return store.InteractionRecord{}, false
	}
	items, err := repo.ListRecent(oneBasedIndex)
	if err != nil || oneBasedIndex > len(items) {
		return store.InteractionRecord{}, false
	}
	return items[oneBasedIndex-1], true
}

func parseIndexArg(args []string, usage string) (int, int) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 0, 1
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "N must be an integer.")
		return 0, 1
	}
	return n, 0
}

func cmdView(repo *store.HistoryRepo, args []string) int {
	n, code := parseIndexArg(args, "usage: talkiectl history view <N>")
	if code != 0 {
		return code
	}
	rec, ok := itemAtIndex(repo, n)
	if !ok {
		fmt.Fprintf(os.Stderr, "No history item at index %d.\n", n)
		return 1
	}
	corrected := "(none)"
	if rec.CorrectedResponse != nil {
		corrected = *rec.CorrectedResponse
	}
	fmt.Println("id:", rec.ID)
	fmt.Println("created_at:", rec.CreatedAt)
	fmt.Println("original_transcription:", rec.OriginalTranscription)
	fmt.Println("llm_response:", rec.LLMResponse)
	fmt.Println("corrected_response:", corrected)
	fmt.Println("exclude_from_profile:", rec.ExcludeFromProfile)
	return 0
}

func cmdEdit(repo *store.HistoryRepo, args []string) int {
	n, code := parseIndexArg(args, "usage: talkiectl history edit <N>")
	if code != 0 {
		return code
	}
	rec, ok := itemAtIndex(repo, n)
	if !ok {
		fmt.Fprintf(os.Stderr, "No history item at index %d.\n", n)
		return 1
	}
	current := rec.LLMResponse
	if rec.CorrectedResponse != nil {
		current = *rec.CorrectedResponse
	}
	current = strings.TrimSpace(current)

	tmp, err := os.CreateTemp("", "talkiectl-edit-*.txt")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err = tmp.WriteString(current); err != nil {
		tmp.Close()
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	tmp.Close()

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	cmd := exec.Command(editor, tmpPath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err = cmd.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	newContent, err := os.ReadFile(tmpPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	edited := strings.TrimSpace(string(newContent))
	if err = repo.UpdateCorrection(rec.ID, edited, 1.0); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	fmt.Printf("Updated correction for interaction id=%d.\n", rec.ID)
	return 0
}

func runCuration(args []string) int {
	fs := flag.NewFlagSet("curation", flag.ContinueOnError)
	exportPath := fs.String("export", "", "export interactions to JSONL for fine-tuning instead of running curation")
	limit := fs.Int("limit", 5000, "max rows for export")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	repo, closeFn, err := openHistoryRepo()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeFn()

	if *exportPath != "" {
		n, err := curation.ExportForFinetuning(repo, *exportPath, curation.ExportOptions{Limit: *limit})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		fmt.Println("exported", n, "records to", *exportPath)
		return 0
	}

	curationCfg := curation.Config{
		MinWeight:                 cfg.Curation.MinWeight,
		MaxWeight:                 cfg.Curation.MaxWeight,
		CorrectionWeightBump:      cfg.Curation.CorrectionWeightBump,
		PatternCountWeightScale:   cfg.Curation.PatternCountWeightScale,
		ExcludeEmptyTranscription: cfg.Curation.ExcludeEmptyTranscription,
		DeleteOlderThanDays:       cfg.Curation.DeleteOlderThanDays,
	}
	result, err := curation.Run(repo, curationCfg)
	if err != nil {
		slog.Error("curation run failed", "error", err)
		return 2
	}
	fmt.Printf("curation done: weights_updated=%d excluded=%d deleted=%d\n",
		result.WeightsUpdated, result.Excluded, result.Deleted)
	return 0
}
