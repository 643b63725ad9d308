package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TrainingFactsProfileLimit bounds how many training facts feed the profile
// builder.
const TrainingFactsProfileLimit = 100

// TrainingFact is a user-supplied fact fed into the personalization profile
// rather than learned from interaction corrections.
type TrainingFact struct {
	ID        int64
	Text      string
	CreatedAt time.Time
}

// TrainingRepo persists user-supplied training facts.
type TrainingRepo struct {
	db *DB
}

// NewTrainingRepo wraps db for training-fact access.
func NewTrainingRepo(db *DB) *TrainingRepo {
	return &TrainingRepo{db: db}
}

// Add records a new training fact. text must be non-empty after trimming.
func (r *TrainingRepo) Add(text string) (int64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, errors.New("training fact text must not be empty")
	}
	result, err := r.db.conn.Exec(
		`INSERT INTO training_facts (text, created_at) VALUES (?, ?)`,
		trimmed, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("add training fact: %w", err)
	}
	return result.LastInsertId()
}

// ListAll returns every training fact, oldest first.
func (r *TrainingRepo) ListAll() ([]TrainingFact, error) {
	rows, err := r.db.conn.Query(`SELECT id, text, created_at FROM training_facts ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list training facts: %w", err)
	}
	defer rows.Close()
	return scanTrainingFacts(rows)
}

// Delete removes a training fact by id.
func (r *TrainingRepo) Delete(id int64) error {
	_, err := r.db.conn.Exec(`DELETE FROM training_facts WHERE id = ?`, id)
	return err
}

// GetForProfile returns the most recent training facts, capped at
// TrainingFactsProfileLimit.
func (r *TrainingRepo) GetForProfile() ([]TrainingFact, error) {
	rows, err := r.db.conn.Query(
		`SELECT id, text, created_at FROM training_facts ORDER BY created_at DESC LIMIT ?`,
		TrainingFactsProfileLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("get training facts for profile: %w", err)
	}
	defer rows.Close()
	return scanTrainingFacts(rows)
}

func scanTrainingFacts(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]TrainingFact, error) {
	var facts []TrainingFact
	for rows.Next() {
		var fact TrainingFact
		var createdAt string
		if err := rows.Scan(&fact.ID, &fact.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan training fact: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339, createdAt)
		if err == nil {
			fact.CreatedAt = parsed
		}
		facts = append(facts, fact)
	}
	return facts, rows.Err()
}
