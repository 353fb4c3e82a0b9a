package storage

import (
	"fmt"
	"path/filepath"
	"time"
)

// RecentFile is an entry of the recently opened files list.
type RecentFile struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	OpenedAt time.Time `json:"openedAt"`
}

// RecentFileStore remembers the last opened files.
type RecentFileStore struct {
	db    *DB
	limit int
}

// NewRecentFileStore creates a store keeping at most limit entries. A limit of
// 0 disables the list.
func NewRecentFileStore(db *DB, limit int) *RecentFileStore {
	return &RecentFileStore{db: db, limit: limit}
}

// Touch records path as just opened.
func (s *RecentFileStore) Touch(path string) error {
	if s.limit == 0 {
		return nil
	}
	_, err := s.db.Conn().Exec(
		`INSERT INTO recent_files (path, name, opened_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET opened_at = excluded.opened_at`,
		path, filepath.Base(path), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("touch recent file: %w", err)
	}

	_, err = s.db.Conn().Exec(
		`DELETE FROM recent_files WHERE path NOT IN (
			SELECT path FROM recent_files ORDER BY opened_at DESC, rowid DESC LIMIT ?
		)`, s.limit,
	)
	if err != nil {
		return fmt.Errorf("prune recent files: %w", err)
	}
	return nil
}

// List returns the recent files, most recent first.
func (s *RecentFileStore) List() ([]RecentFile, error) {
	rows, err := s.db.Conn().Query(
		`SELECT path, name, opened_at FROM recent_files ORDER BY opened_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent files: %w", err)
	}
	defer rows.Close()

	var files []RecentFile
	for rows.Next() {
		var f RecentFile
		if err := rows.Scan(&f.Path, &f.Name, &f.OpenedAt); err != nil {
			return nil, fmt.Errorf("scan recent file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Remove forgets path.
func (s *RecentFileStore) Remove(path string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM recent_files WHERE path = ?`, path)
	return err
}
