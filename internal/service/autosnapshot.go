package service

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// ── Autosnapshot ──────────────────────────────────────────

// StartAutosnapshot snapshots the committed document on a cron schedule
// (e.g. "@every 5m"). An empty spec stops the schedule.
func (s *DocumentService) StartAutosnapshot(spec string) error {
	s.StopAutosnapshot()
	if spec == "" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if s.Snapshot("autosnapshot") {
			s.logger.Debug("autosnapshot stored")
		}
	}); err != nil {
		return fmt.Errorf("autosnapshot schedule %q: %w", spec, err)
	}
	c.Start()

	s.mu.Lock()
	s.cronSched = c
	s.mu.Unlock()
	s.logger.Info("autosnapshot scheduled", "spec", spec)
	return nil
}

// StopAutosnapshot stops the schedule and waits for a running snapshot.
func (s *DocumentService) StopAutosnapshot() {
	s.mu.Lock()
	c := s.cronSched
	s.cronSched = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
