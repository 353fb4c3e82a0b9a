package service

import (
	"context"
	"fmt"

	"pivoteditor/internal/domain"
	"pivoteditor/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Snapshot history
// ─────────────────────────────────────────────────────────────
//
// Every change to the committed document pushes its serialized form into
// SQLite, keyed by the opened file. Identical consecutive states are stored
// once.

// History lists the snapshots of the open document, newest first.
func (s *DocumentService) History() ([]storage.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return nil, nil
	}
	return s.history.List(s.documentKey())
}

// Snapshot stores the committed document now. Returns false when nothing
// changed since the last snapshot.
func (s *DocumentService) Snapshot(label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(label)
}

// ClearHistory deletes every snapshot of the open document and returns how
// many were removed.
func (s *DocumentService) ClearHistory(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return 0, nil
	}
	n, err := s.history.Clear(s.documentKey())
	if err != nil {
		return 0, err
	}
	s.lastSnapshot = ""
	s.logger.Info("history cleared", "document", s.documentKey(), "snapshots", n)
	s.notice(ctx, NoticeInfo, fmt.Sprintf("Cleared %d snapshot(s)", n))
	return n, nil
}

// restoreLast seeds the snapshot dedupe with the newest stored snapshot of
// the open document, so reopening an unchanged file stores nothing. Must be
// called with the lock held.
func (s *DocumentService) restoreLast() {
	s.lastSnapshot = ""
	if s.history == nil {
		return
	}
	latest, err := s.history.Latest(s.documentKey())
	if err != nil {
		s.logger.Warn("latest snapshot", "err", err)
		return
	}
	if latest != nil {
		s.lastSnapshot = latest.DocumentJSON
	}
}

// Restore replaces the committed document with a snapshot. The edit buffer
// survives when its pivot exists in the restored document.
func (s *DocumentService) Restore(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.flush(ctx)
	defer s.mu.Unlock()

	if s.history == nil {
		return fmt.Errorf("restore snapshot: history is disabled")
	}
	snap, err := s.history.Get(id)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	if snap.DocumentKey != s.documentKey() {
		return fmt.Errorf("restore snapshot %s: %w", id, storage.ErrSnapshotNotFound)
	}
	doc, err := domain.Parse([]byte(snap.DocumentJSON))
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}

	s.sess.Replace(doc)
	s.logger.Info("snapshot restored", "id", id, "label", snap.Label)
	s.snapshot("restore " + snap.Label)
	s.notice(ctx, NoticeInfo, "Restored "+snap.Label)
	s.emitDocument(ctx)
	return nil
}

// snapshot must be called with the lock held.
func (s *DocumentService) snapshot(label string) bool {
	if s.history == nil {
		return false
	}
	doc := s.sess.Document()
	data, err := domain.Serialize(doc)
	if err != nil {
		s.logger.Error("snapshot", "err", err)
		return false
	}
	if string(data) == s.lastSnapshot {
		return false
	}
	if _, err := s.history.Push(s.documentKey(), label, doc.Len(), string(data)); err != nil {
		s.logger.Error("snapshot", "err", err)
		return false
	}
	s.lastSnapshot = string(data)
	return true
}
