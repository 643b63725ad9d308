// Package curation periodically re-weights and prunes the interaction
// history so the profile builder favors corrected and recurring phrasing.
package curation

import (
	"regexp"
	"strings"
	"time"

	"github.com/talkie-assistant/talkie-core-sub000/internal/store"
)

var trailingPunctuation = regexp.MustCompile(`[.,!?;:]+$`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizePhrase lowercases and collapses whitespace so near-identical
// phrasing groups together for pattern counting.
func normalizePhrase(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	return whitespaceRun.ReplaceAllString(t, " ")
}

// normalizeForPattern additionally strips trailing punctuation, used as the
// grouping key so "thanks." and "thanks" count as the same pattern.
func normalizeForPattern(text string) string {
	return trailingPunctuation.ReplaceAllString(normalizePhrase(text), "")
}

// Config tunes one curation pass.
type Config struct {
	MinWeight                float64
	MaxWeight                float64
	CorrectionWeightBump     float64
	PatternCountWeightScale  float64
	ExcludeEmptyTranscription bool
	DeleteOlderThanDays      int
}

// DefaultConfig matches the original curator's defaults.
func DefaultConfig() Config {
	return Config{
		MinWeight:                 0.0,
		MaxWeight:                 10.0,
		CorrectionWeightBump:      1.5,
		PatternCountWeightScale:   0.5,
		ExcludeEmptyTranscription: true,
	}
}

// Result summarizes what one curation pass changed.
type Result struct {
	WeightsUpdated int
	Excluded       int
	Deleted        int
}

// Run executes one curation pass against repo: it computes a weight per
// interaction (base 1.0, bumped for corrections and for recurring response
// or transcription phrasing, clamped to [MinWeight, MaxWeight]), excludes
// interactions with an empty transcription from profile building, and
// optionally deletes interactions older than DeleteOlderThanDays.
func Run(repo *store.HistoryRepo, cfg Config) (Result, error) {
	var result Result

	rows, err := repo.ListForCuration()
	if err != nil {
		return result, err
	}
	if len(rows) == 0 {
		return result, nil
	}

	responseKeyCount := make(map[string]int)
	transcriptionKeyCount := make(map[string]int)
	for _, r := range rows {
		resp := strings.TrimSpace(responseText(r))
		if resp != "" {
			responseKeyCount[normalizeForPattern(resp)]++
		}
		orig := strings.TrimSpace(r.OriginalTranscription)
		if orig != "" {
			transcriptionKeyCount[normalizeForPattern(orig)]++
		}
	}

	weightUpdates := make(map[int64]float64)
	var toExclude []int64

	for _, r := range rows {
		orig := strings.TrimSpace(r.OriginalTranscription)
		resp := strings.TrimSpace(responseText(r))

		if cfg.ExcludeEmptyTranscription && orig == "" {
			toExclude = append(toExclude, r.ID)
			continue
		}

		weight := 1.0
		if r.CorrectedResponse != nil {
			weight += cfg.CorrectionWeightBump
		}
		countResp := responseKeyCount[normalizeForPattern(resp)]
		countTrans := transcriptionKeyCount[normalizeForPattern(orig)]
		weight += float64(countResp-1) * cfg.PatternCountWeightScale
		weight += float64(countTrans-1) * cfg.PatternCountWeightScale
		weight = clamp(weight, cfg.MinWeight, cfg.MaxWeight)

		weightUpdates[r.ID] = weight
	}

	if len(weightUpdates) > 0 {
		if err = repo.UpdateWeightsBatch(weightUpdates); err != nil {
			return result, err
		}
		result.WeightsUpdated = len(weightUpdates)
	}
	if len(toExclude) > 0 {
		if err = repo.SetExcludeBatch(toExclude, true); err != nil {
			return result, err
		}
		result.Excluded = len(toExclude)
	}

	if cfg.DeleteOlderThanDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -cfg.DeleteOlderThanDays)
		oldIDs, err := repo.ListIDsOlderThan(cutoff)
		if err != nil {
			return result, err
		}
		if len(oldIDs) > 0 {
			if err = repo.DeleteInteractions(oldIDs); err != nil {
				return result, err
			}
			result.Deleted = len(oldIDs)
		}
	}

	return result, nil
}

func responseText(r store.InteractionRecord) string {
	if r.CorrectedResponse != nil {
		return *r.CorrectedResponse
	}
	return r.LLMResponse
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
