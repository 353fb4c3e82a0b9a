package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// SettingsStore is a key/value table for small application settings.
type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the value for key and whether it was set.
func (s *SettingsStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.Conn().QueryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *SettingsStore) Delete(key string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM app_settings WHERE key = ?`, key)
	return err
}
