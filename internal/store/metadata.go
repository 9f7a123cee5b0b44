package store

import (
	"database/sql"
	"time"
)

// Metadata keys written by the pre-generation job.
const (
	MetaLastPregenRun   = "pregen_last_run"
	MetaLastPregenAdded = "pregen_last_added"
)

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// LastPregenRun returns when the pre-generation job last finished, or the
// zero time if it never ran.
func (s *Store) LastPregenRun() (time.Time, error) {
	v, err := s.GetMetadata(MetaLastPregenRun)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}
