package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSnapshotNotFound is returned when no snapshot has the requested id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is one saved state of a document.
type Snapshot struct {
	ID           string    `json:"id"`
	DocumentKey  string    `json:"documentKey"`
	Label        string    `json:"label"`
	PivotCount   int       `json:"pivotCount"`
	DocumentJSON string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HistoryStore keeps a bounded list of document snapshots per file.
type HistoryStore struct {
	db    *DB
	limit int
}

// NewHistoryStore creates a HistoryStore keeping at most limit snapshots per
// document. A limit below 1 means 40.
func NewHistoryStore(db *DB, limit int) *HistoryStore {
	if limit < 1 {
		limit = 40
	}
	return &HistoryStore{db: db, limit: limit}
}

// Push stores a snapshot and prunes the oldest ones over the limit.
func (s *HistoryStore) Push(documentKey, label string, pivotCount int, documentJSON string) (*Snapshot, error) {
	snap := &Snapshot{
		ID:           uuid.New().String(),
		DocumentKey:  documentKey,
		Label:        label,
		PivotCount:   pivotCount,
		DocumentJSON: documentJSON,
		CreatedAt:    time.Now(),
	}

	_, err := s.db.Conn().Exec(
		`INSERT INTO snapshots (id, document_key, label, pivot_count, document_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.DocumentKey, snap.Label, snap.PivotCount, snap.DocumentJSON, snap.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	if err := s.prune(documentKey); err != nil {
		return nil, err
	}
	return snap, nil
}

// List returns the snapshots of a document, newest first, without their JSON.
func (s *HistoryStore) List(documentKey string) ([]Snapshot, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, document_key, label, pivot_count, created_at
		 FROM snapshots WHERE document_key = ? ORDER BY created_at DESC, rowid DESC`, documentKey,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.DocumentKey, &snap.Label, &snap.PivotCount, &snap.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Get returns a snapshot with its JSON.
func (s *HistoryStore) Get(id string) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.Conn().QueryRow(
		`SELECT id, document_key, label, pivot_count, document_json, created_at
		 FROM snapshots WHERE id = ?`, id,
	).Scan(&snap.ID, &snap.DocumentKey, &snap.Label, &snap.PivotCount, &snap.DocumentJSON, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get snapshot %s: %w", id, ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// Latest returns the newest snapshot of a document, or nil.
func (s *HistoryStore) Latest(documentKey string) (*Snapshot, error) {
	var id string
	err := s.db.Conn().QueryRow(
		`SELECT id FROM snapshots WHERE document_key = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		documentKey,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return s.Get(id)
}

// Clear removes the history of a document and returns how many snapshots
// were deleted.
func (s *HistoryStore) Clear(documentKey string) (int, error) {
	res, err := s.db.Conn().Exec(`DELETE FROM snapshots WHERE document_key = ?`, documentKey)
	if err != nil {
		return 0, fmt.Errorf("clear snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear snapshots: %w", err)
	}
	return int(n), nil
}

func (s *HistoryStore) prune(documentKey string) error {
	var count int
	if err := s.db.Conn().QueryRow(
		`SELECT COUNT(*) FROM snapshots WHERE document_key = ?`, documentKey,
	).Scan(&count); err != nil {
		return fmt.Errorf("count snapshots: %w", err)
	}
	if count <= s.limit {
		return nil
	}

	_, err := s.db.Conn().Exec(
		`DELETE FROM snapshots WHERE id IN (
			SELECT id FROM snapshots WHERE document_key = ?
			ORDER BY created_at ASC, rowid ASC LIMIT ?
		)`, documentKey, count-s.limit,
	)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
