// Package profile builds the personalization context folded into the LLM
// system prompt: the user's own context notes, corrected phrasing examples,
// accepted-as-is examples, and freestanding training facts.
package profile

import (
	"fmt"
	"strings"
)

// Display caps on how many correction/accepted examples are folded into the
// prompt, independent of how many are fetched for consideration.
const (
	CorrectionDisplayCap = 50
	AcceptedDisplayCap   = 30
)

// CorrectionPair is an (original, corrected) phrasing example.
type CorrectionPair struct {
	Original  string
	Corrected string
}

// AcceptedPair is a (transcription, response) example the user did not
// correct.
type AcceptedPair struct {
	Transcription string
	Response      string
}

// BuildText assembles the personalization section of the system prompt from
// user context, training facts, corrections, and accepted examples. Invalid
// or empty entries are skipped rather than erroring; an entirely empty
// result yields "".
func BuildText(userContext string, trainingFacts []string, corrections []CorrectionPair, accepted []AcceptedPair) string {
	var sections []string

	if s := userContextSection(userContext); s != "" {
		sections = append(sections, s)
	}
	if s := trainingFactsSection(trainingFacts); s != "" {
		sections = append(sections, s)
	}
	if s := correctionsSection(corrections); s != "" {
		sections = append(sections, s)
	}
	if s := acceptedSection(accepted); s != "" {
		sections = append(sections, s)
	}
	return strings.Join(sections, "\n\n")
}

func userContextSection(uc string) string {
	uc = strings.TrimSpace(uc)
	if uc == "" {
		return ""
	}
	return "User context (tailor vocabulary and topic to this person):\n" + uc
}

func trainingFactsSection(facts []string) string {
	var lines []string
	for _, f := range facts {
		f = strings.TrimSpace(f)
		if f != "" {
			lines = append(lines, "- "+f)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "Facts the user has told you (use this context when relevant, e.g. names and relationships):\n" + strings.Join(lines, "\n")
}

func correctionsSection(corrections []CorrectionPair) string {
	if len(corrections) > CorrectionDisplayCap {
		corrections = corrections[:CorrectionDisplayCap]
	}
	var lines []string
	for _, c := range corrections {
		orig := strings.TrimSpace(c.Original)
		corrected := strings.TrimSpace(c.Corrected)
		if corrected == "" {
			continue
		}
		if orig != "" {
			lines = append(lines, fmt.Sprintf("- Prefer: %q (instead of %q)", corrected, orig))
		} else {
			lines = append(lines, fmt.Sprintf("- Prefer: %q", corrected))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "User phrasing preferences (from corrections; prefer these when relevant):\n" + strings.Join(lines, "\n")
}

func acceptedSection(accepted []AcceptedPair) string {
	if len(accepted) > AcceptedDisplayCap {
		accepted = accepted[:AcceptedDisplayCap]
	}
	var lines []string
	for _, a := range accepted {
		t := strings.TrimSpace(a.Transcription)
		r := strings.TrimSpace(a.Response)
		if r == "" {
			continue
		}
		if t != "" {
			lines = append(lines, fmt.Sprintf("- When user said %q, this was accepted: %q", t, r))
		} else {
			lines = append(lines, fmt.Sprintf("- Accepted: %q", r))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "Accepted completions (use similar style when relevant):\n" + strings.Join(lines, "\n")
}
