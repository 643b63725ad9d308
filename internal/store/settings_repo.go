package store

import (
	"database/sql"
	"fmt"
)

// UserContextMaxChars caps the stored length of the "user_context" setting.
const UserContextMaxChars = 2000

// SettingsRepo persists short key-value user settings (calibration
// overrides, voice preference, personalization fields).
type SettingsRepo struct {
	db *DB
}

// NewSettingsRepo wraps db for settings access.
func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the value for key, or ("", false) if unset.
func (r *SettingsRepo) Get(key string) (string, bool, error) {
	var value string
	err := r.db.conn.QueryRow(`SELECT value FROM user_settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

// GetMany returns every requested key present in the store.
func (r *SettingsRepo) GetMany(keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	placeholders := make([]any, len(keys))
	query := "SELECT key, value FROM user_settings WHERE key IN ("
	for i, k := range keys {
		if i > 0 {
			query += ","
		}
		query += "?"
		placeholders[i] = k
	}
	query += ")"

	rows, err := r.db.conn.Query(query, placeholders...)
	if err != nil {
		return nil, fmt.Errorf("get many settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string, len(keys))
	for rows.Next() {
		var k, v string
		if err = rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Set upserts key=value, truncating the "user_context" key to
// UserContextMaxChars.
func (r *SettingsRepo) Set(key, value string) error {
	if key == "user_context" && len(value) > UserContextMaxChars {
		value = value[:UserContextMaxChars]
	}
	_, err := r.db.conn.Exec(
		`INSERT INTO user_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// SetMany upserts every key in kv in one transaction.
func (r *SettingsRepo) SetMany(kv map[string]string) error {
	tx, err := r.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin set many: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO user_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare set many: %w", err)
	}
	defer stmt.Close()

	for k, v := range kv {
		if k == "user_context" && len(v) > UserContextMaxChars {
			v = v[:UserContextMaxChars]
		}
		if _, err = stmt.Exec(k, v); err != nil {
			tx.Rollback()
			return fmt.Errorf("set many key=%q: %w", k, err)
		}
	}
	return tx.Commit()
}

// Delete removes a single key.
func (r *SettingsRepo) Delete(key string) error {
	_, err := r.db.conn.Exec(`DELETE FROM user_settings WHERE key = ?`, key)
	return err
}

// DeleteMany removes several keys in one transaction.
func (r *SettingsRepo) DeleteMany(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := r.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin delete many: %w", err)
	}
	stmt, err := tx.Prepare(`DELETE FROM user_settings WHERE key = ?`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare delete many: %w", err)
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err = stmt.Exec(k); err != nil {
			tx.Rollback()
			return fmt.Errorf("delete many key=%q: %w", k, err)
		}
	}
	return tx.Commit()
}
