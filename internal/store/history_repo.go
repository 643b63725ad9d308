package store

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	// MaxTextLength caps original_transcription/llm_response on write.
	MaxTextLength   = 65536
	truncatedSuffix = " [truncated]"

	// CorrectionProfileLimit bounds how many corrected interactions feed
	// the profile builder's correction examples.
	CorrectionProfileLimit = 200
	// AcceptedProfileLimit bounds how many uncorrected, accepted
	// interactions feed the profile builder's accepted examples.
	AcceptedProfileLimit = 50
)

// InteractionRecord is one turn of the conversation: the raw transcription,
// the model's response, and optional correction/curation metadata.
type InteractionRecord struct {
	ID                   int64
	CreatedAt            time.Time
	OriginalTranscription string
	LLMResponse          string
	CorrectedResponse    *string
	ExcludeFromProfile   bool
	Weight               *float64
	SpeakerID            *string
	SessionID            *string
}

// HistoryRepo persists and queries interaction records.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo wraps db for interaction access.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func truncate(text string) string {
	if len(text) <= MaxTextLength {
		return text
	}
	cut := MaxTextLength - len(truncatedSuffix)
	if cut < 0 {
		cut = 0
	}
	return text[:cut] + truncatedSuffix
}

// InsertInteraction records a new turn and returns its id.
func (r *HistoryRepo) InsertInteraction(original, response string, speakerID, sessionID *string) (int64, error) {
	result, err := r.db.conn.Exec(
		`INSERT INTO interactions (created_at, original_transcription, llm_response, speaker_id, session_id)
		 VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), truncate(original), truncate(response), speakerID, sessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert interaction: %w", err)
	}
	return result.LastInsertId()
}

// UpdateCorrection records a user-supplied correction for interaction id and
// assigns it the given curation weight.
func (r *HistoryRepo) UpdateCorrection(id int64, corrected string, weight float64) error {
	_, err := r.db.conn.Exec(
		`UPDATE interactions SET corrected_response = ?, weight = ? WHERE id = ?`,
		truncate(corrected), weight, id,
	)
	return err
}

// DeleteAll removes every interaction and returns how many rows were
// removed, for the maintenance CLI's "clear" subcommand.
func (r *HistoryRepo) DeleteAll() (int64, error) {
	result, err := r.db.conn.Exec(`DELETE FROM interactions`)
	if err != nil {
		return 0, fmt.Errorf("delete all interactions: %w", err)
	}
	return result.RowsAffected()
}

// ListRecent returns the most recent interactions, newest first.
func (r *HistoryRepo) ListRecent(limit int) ([]InteractionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.conn.Query(
		`SELECT id, created_at, original_transcription, llm_response, corrected_response,
		        exclude_from_profile, weight, speaker_id, session_id
		 FROM interactions ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	defer rows.Close()
	return scanInteractions(rows)
}

// GetCorrectionsForProfile returns corrected interactions not excluded from
// profile building, ordered by weight then recency, capped at
// CorrectionProfileLimit.
func (r *HistoryRepo) GetCorrectionsForProfile() ([]InteractionRecord, error) {
	rows, err := r.db.conn.Query(
		`SELECT id, created_at, original_transcription, llm_response, corrected_response,
		        exclude_from_profile, weight, speaker_id, session_id
		 FROM interactions
		 WHERE corrected_response IS NOT NULL AND exclude_from_profile = 0
		 ORDER BY weight DESC, created_at DESC
		 LIMIT ?`, CorrectionProfileLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("get corrections for profile: %w", err)
	}
	defer rows.Close()
	return scanInteractions(rows)
}

// GetAcceptedForProfile returns uncorrected, not-excluded interactions,
// ordered by weight then recency, capped at AcceptedProfileLimit.
func (r *HistoryRepo) GetAcceptedForProfile() ([]InteractionRecord, error) {
	rows, err := r.db.conn.Query(
		`SELECT id, created_at, original_transcription, llm_response, corrected_response,
		        exclude_from_profile, weight, speaker_id, session_id
		 FROM interactions
		 WHERE corrected_response IS NULL AND exclude_from_profile = 0
		 ORDER BY weight DESC, created_at DESC
		 LIMIT ?`, AcceptedProfileLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("get accepted for profile: %w", err)
	}
	defer rows.Close()
	return scanInteractions(rows)
}

// UpdateExcludeFromProfile flips whether interaction id is considered when
// building the personalization profile.
func (r *HistoryRepo) UpdateExcludeFromProfile(id int64, exclude bool) error {
	_, err := r.db.conn.Exec(`UPDATE interactions SET exclude_from_profile = ? WHERE id = ?`, boolToInt(exclude), id)
	return err
}

// ListForCuration returns all interactions eligible for curator scoring,
// capped at a generous ceiling so curation runs stay bounded.
func (r *HistoryRepo) ListForCuration() ([]InteractionRecord, error) {
	const curationLimit = 10000
	rows, err := r.db.conn.Query(
		`SELECT id, created_at, original_transcription, llm_response, corrected_response,
		        exclude_from_profile, weight, speaker_id, session_id
		 FROM interactions ORDER BY created_at ASC LIMIT ?`, curationLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("list for curation: %w", err)
	}
	defer rows.Close()
	return scanInteractions(rows)
}

// UpdateWeight sets a single interaction's curation weight.
func (r *HistoryRepo) UpdateWeight(id int64, weight float64) error {
	_, err := r.db.conn.Exec(`UPDATE interactions SET weight = ? WHERE id = ?`, weight, id)
	return err
}

// UpdateWeightsBatch sets curation weights for many interactions in one
// transaction.
func (r *HistoryRepo) UpdateWeightsBatch(weights map[int64]float64) error {
	tx, err := r.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin batch weight update: %w", err)
	}
	stmt, err := tx.Prepare(`UPDATE interactions SET weight = ? WHERE id = ?`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare batch weight update: %w", err)
	}
	defer stmt.Close()

	for id, weight := range weights {
		if _, err = stmt.Exec(weight, id); err != nil {
			tx.Rollback()
			return fmt.Errorf("batch weight update id=%d: %w", id, err)
		}
	}
	return tx.Commit()
}

// SetExcludeBatch flips exclude_from_profile for many interactions in one
// transaction.
func (r *HistoryRepo) SetExcludeBatch(ids []int64, exclude bool) error {
	tx, err := r.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin batch exclude update: %w", err)
	}
	stmt, err := tx.Prepare(`UPDATE interactions SET exclude_from_profile = ? WHERE id = ?`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare batch exclude update: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err = stmt.Exec(boolToInt(exclude), id); err != nil {
			tx.Rollback()
			return fmt.Errorf("batch exclude update id=%d: %w", id, err)
		}
	}
	return tx.Commit()
}

// ListIDsOlderThan returns interaction ids created before cutoff, for
// retention-driven pruning.
func (r *HistoryRepo) ListIDsOlderThan(cutoff time.Time) ([]int64, error) {
	rows, err := r.db.conn.Query(`SELECT id FROM interactions WHERE created_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("list ids older than: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteInteractions removes the given interaction ids in one transaction.
func (r *HistoryRepo) DeleteInteractions(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	stmt, err := tx.Prepare(`DELETE FROM interactions WHERE id = ?`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err = stmt.Exec(id); err != nil {
			tx.Rollback()
			return fmt.Errorf("delete id=%d: %w", id, err)
		}
	}
	return tx.Commit()
}

func scanInteractions(rows *sql.Rows) ([]InteractionRecord, error) {
	var records []InteractionRecord
	for rows.Next() {
		var (
			rec         InteractionRecord
			createdAt   string
			exclude     int
			corrected   sql.NullString
			weight      sql.NullFloat64
			speakerID   sql.NullString
			sessionID   sql.NullString
		)
		if err := rows.Scan(&rec.ID, &createdAt, &rec.OriginalTranscription, &rec.LLMResponse,
			&corrected, &exclude, &weight, &speakerID, &sessionID); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			parsed = time.Time{}
		}
		rec.CreatedAt = parsed
		rec.ExcludeFromProfile = exclude != 0
		if corrected.Valid {
			rec.CorrectedResponse = &corrected.String
		}
		if weight.Valid {
			rec.Weight = &weight.Float64
		}
		if speakerID.Valid {
			rec.SpeakerID = &speakerID.String
		}
		if sessionID.Valid {
			rec.SessionID = &sessionID.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
