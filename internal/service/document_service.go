package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"pivoteditor/internal/domain"
	"pivoteditor/internal/session"
	"pivoteditor/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Document Service: one open document and its edit session
// ─────────────────────────────────────────────────────────────

// DocumentOptions configure a DocumentService. Stores may be nil.
type DocumentOptions struct {
	History           *storage.HistoryStore
	Recent            *storage.RecentFileStore
	Logger            *log.Logger
	DefaultModel      string
	SwitchPolicy      session.SwitchPolicy
	Prompter          session.Prompter
	EnforceValidation bool
}

// DocumentService owns the committed document, the edit session over it and
// the identity of the file it came from. It is safe for concurrent use.
type DocumentService struct {
	mu      sync.Mutex
	sess    *session.Session
	pending []session.Transition

	fileName string
	filePath string
	enforce  bool
	model    string

	history      *storage.HistoryStore
	recent       *storage.RecentFileStore
	lastSnapshot string

	emitter   EventEmitter
	logger    *log.Logger
	now       func() time.Time
	cronSched *cron.Cron

	// The prompt policy is answered outside mu; the session only ever sees
	// the recorded decision.
	policy   session.SwitchPolicy
	prompter session.Prompter
}

// NewDocumentService creates a DocumentService with an empty document.
func NewDocumentService(emitter EventEmitter, opts DocumentOptions) *DocumentService {
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = domain.DefaultModel
	}

	s := &DocumentService{
		enforce: opts.EnforceValidation,
		model:   opts.DefaultModel,
		history: opts.History,
		recent:  opts.Recent,
		emitter: emitter,
		logger:  opts.Logger.WithPrefix("document"),
		now:     time.Now,
	}
	s.sess = session.New(domain.Document{}, "", session.Options{
		EnforceValidation: opts.EnforceValidation,
		Listener:          s.onTransition,
	})
	s.setPolicy(opts.SwitchPolicy, opts.Prompter)
	return s
}

// SetPrompter installs the prompter used by the prompt switch policy.
func (s *DocumentService) SetPrompter(policy session.SwitchPolicy, p session.Prompter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPolicy(policy, p)
}

// setPolicy must be called with the lock held.
func (s *DocumentService) setPolicy(policy session.SwitchPolicy, p session.Prompter) {
	s.policy = policy
	s.prompter = p
	if policy == session.SwitchPrompt {
		p = nil
	}
	s.sess.SetPolicy(policy, p)
}

// switchAnswer is a prompt already answered by the user.
type switchAnswer struct {
	from     string
	decision session.Decision
	asked    bool
}

func (a switchAnswer) ConfirmSwitch(string, string) session.Decision {
	return a.decision
}

// askSwitch asks the prompter, without holding the lock, what to do with a
// dirty buffer before switching to the id returned by target.
func (s *DocumentService) askSwitch(target func() string) switchAnswer {
	s.mu.Lock()
	prompter := s.prompter
	ask := s.policy == session.SwitchPrompt && prompter != nil && s.sess.Dirty()
	from := s.sess.Selected()
	to := target()
	s.mu.Unlock()

	if !ask {
		return switchAnswer{}
	}
	return switchAnswer{from: from, decision: prompter.ConfirmSwitch(from, to), asked: true}
}

// selectAnswered must be called with the lock held. An answer given for
// another buffer than the current one is not used.
func (s *DocumentService) selectAnswered(id string, answer switchAnswer) error {
	if answer.asked && s.sess.Dirty() && s.sess.Selected() == answer.from {
		s.sess.SetPolicy(session.SwitchPrompt, answer)
		defer s.sess.SetPolicy(session.SwitchPrompt, nil)
	}
	return s.sess.Select(id)
}

// ── Loading ───────────────────────────────────────────────

// Load replaces the open document with the parsed contents. On any error the
// previous document stays open.
func (s *DocumentService) Load(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.flush(ctx)
	defer s.mu.Unlock()
	return s.load(ctx, name, "", data)
}

// LoadFile reads and loads path. The file is remembered by its absolute
// path, which also keys its snapshot history.
func (s *DocumentService) LoadFile(ctx context.Context, path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.notice(ctx, NoticeError, fmt.Sprintf("Cannot read %s", filepath.Base(path)))
		return fmt.Errorf("read document: %w", err)
	}

	s.mu.Lock()
	defer s.flush(ctx)
	defer s.mu.Unlock()
	if err := s.load(ctx, filepath.Base(path), path, data); err != nil {
		return err
	}
	if s.recent != nil {
		if err := s.recent.Touch(path); err != nil {
			s.logger.Warn("recent files", "err", err)
		}
	}
	return nil
}

// Reload re-reads the file the document was opened from, dropping unsaved
// edits.
func (s *DocumentService) Reload(ctx context.Context) error {
	s.mu.Lock()
	path := s.filePath
	s.mu.Unlock()
	if path == "" {
		return errors.New("document was not opened from a file")
	}
	return s.LoadFile(ctx, path)
}

func (s *DocumentService) load(ctx context.Context, name, path string, data []byte) error {
	doc, err := domain.Parse(data)
	if err != nil {
		s.logger.Error("load failed", "file", name, "err", err)
		s.notice(ctx, NoticeError, "Invalid JSON file")
		return err
	}

	if err := domain.Validate(doc); err != nil {
		var verr *domain.ValidationError
		errors.As(err, &verr)
		if s.enforce {
			s.notice(ctx, NoticeError, fmt.Sprintf("Invalid pivots: %s", strings.Join(verr.IDs, ", ")))
			return err
		}
		s.notice(ctx, NoticeWarning, fmt.Sprintf("%d pivot(s) fail validation: %s", len(verr.IDs), strings.Join(verr.IDs, ", ")))
	}

	s.sess.Reset(doc)
	s.fileName = name
	s.filePath = path
	s.restoreLast()
	s.logger.Info("document loaded", "file", name, "pivots", doc.Len())
	s.snapshot("open " + name)
	s.emitDocument(ctx)
	return nil
}

// Import merges the pivots of data into the open document under fresh ids.
func (s *DocumentService) Import(ctx context.Context, name string, data []byte) (domain.ImportResult, error) {
	incoming, err := domain.Parse(data)
	if err != nil {
		s.logger.Error("import failed", "file", name, "err", err)
		s.notice(ctx, NoticeError, "Invalid JSON file")
		return domain.ImportResult{}, err
	}

	s.mu.Lock()
	defer s.flush(ctx)
	defer s.mu.Unlock()

	merged, res := domain.Merge(s.sess.Document(), incoming)
	if res.Count == 0 {
		s.notice(ctx, NoticeWarning, "No pivots found in imported file")
		return res, nil
	}

	s.sess.Replace(merged)
	s.logger.Info("pivots imported", "file", name, "count", res.Count, "first", res.FirstID)
	s.notice(ctx, NoticeInfo, fmt.Sprintf("Imported %d pivot(s) starting at id %s", res.Count, res.FirstID))
	s.snapshot(fmt.Sprintf("import %d from %s", res.Count, name))
	s.emitDocument(ctx)
	return res, nil
}

// ImportFile reads path and imports it.
func (s *DocumentService) ImportFile(ctx context.Context, path string) (domain.ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("read import: %w", err)
	}
	return s.Import(ctx, filepath.Base(path), data)
}

// ── Pivots ────────────────────────────────────────────────

// AddPivot inserts a skeleton pivot under the next free numeric id and
// selects it. If the switch policy keeps the current buffer, the pivot is
// still added and a notice says so.
func (s *DocumentService) AddPivot(ctx context.Context) (string, error) {
	answer := s.askSwitch(func() string { return s.sess.Document().NextID() })

	s.mu.Lock()
	defer s.flush(ctx)
	defer s.mu.Unlock()

	doc := s.sess.Document()
	id := doc.NextID()
	s.sess.Replace(doc.Insert(id, domain.NewPivot(id, s.model)))
	s.snapshot("add pivot " + id)
	s.emitDocument(ctx)

	added := s.sess.Document()
	if err := s.selectAnswered(id, answer); err != nil {
		s.notice(ctx, NoticeWarning, fmt.Sprintf("Pivot %s added; unsaved changes to pivot %s kept", id, s.sess.Selected()))
	}
	if !added.Equal(s.sess.Document()) {
		s.snapshot("commit")
		s.emitDocument(ctx)
	}
	return id, nil
}

// DeletePivot removes a pivot from the document. Confirmation is the
// caller's concern.
func (s *DocumentService) DeletePivot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.flush(ctx)
	defer s.mu.Unlock()

	doc := s.sess.Document()
	if !doc.Has(id) {
		return fmt.Errorf("delete pivot %s: %w", id, domain.ErrNotFound)
	}
	s.sess.Replace(doc.Remove(id))
	s.logger.Info("pivot deleted", "id", id)
	s.snapshot("delete pivot " + id)
	s.emitDocument(ctx)
	return nil
}

// Pivot returns a committed pivot.
func (s *DocumentService) Pivot(id string) (domain.Pivot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.sess.Document().Get(id)
	if !ok {
		return domain.Pivot{}, fmt.Errorf("pivot %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// ── Edit session ──────────────────────────────────────────

// Select checks out pivot id.
func (s *DocumentService) Select(ctx context.Context, id string) error {
	answer := s.askSwitch(func() string { return id })

	s.mu.Lock()
	defer s.flush(ctx)
	defer s.mu.Unlock()

	committedBefore := s.sess.Document()
	if err := s.selectAnswered(id, answer); err != nil {
		return err
	}
	// A prompt answered "save" commits before switching.
	if !committedBefore.Equal(s.sess.Document()) {
		s.snapshot("commit")
		s.emitDocument(ctx)
	}
	return nil
}

// Edit applies patch to the buffer.
func (s *DocumentService) Edit(ctx context.Context, patch domain.PivotPatch) error {
	s.mu.Lock()
	defer s.flush(ctx)
	defer s.mu.Unlock()
	return s.sess.Edit(patch)
}

// Commit writes the buffer into the document.
func (s *DocumentService) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.flush(ctx)
	defer s.mu.Unlock()

	from := s.sess.Selected()
	wasDirty := s.sess.Dirty()
	if err := s.sess.Commit(); err != nil {
		return err
	}
	if !wasDirty {
		return nil
	}
	label := "commit " + s.sess.Selected()
	if from != s.sess.Selected() {
		label = fmt.Sprintf("commit %s (was %s)", s.sess.Selected(), from)
	}
	s.snapshot(label)
	s.emitDocument(ctx)
	return nil
}

// Discard drops unsaved changes.
func (s *DocumentService) Discard(ctx context.Context) {
	s.mu.Lock()
	defer s.flush(ctx)
	defer s.mu.Unlock()
	s.sess.Discard()
}

// Session returns the buffer state.
func (s *DocumentService) Session() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionView()
}

// Document returns the committed document view.
func (s *DocumentService) Document() DocumentView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentView()
}

// Committed returns the committed document value.
func (s *DocumentService) Committed() domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.Document()
}

// FilePath returns the path the document was loaded from, if any.
func (s *DocumentService) FilePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filePath
}

// Validate checks every committed pivot.
func (s *DocumentService) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Validate(s.sess.Document())
}

// ── Saving ────────────────────────────────────────────────

// SaveName is the name offered by the save dialog.
func (s *DocumentService) SaveName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fileName == "" {
		return domain.DefaultSaveName
	}
	return domain.ExportName(s.fileName, s.now())
}

// Export serializes the committed document and names it after the loaded
// file. The edit buffer is not included.
func (s *DocumentService) Export() (string, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.sess.Document()
	if s.enforce {
		if err := domain.Validate(doc); err != nil {
			return "", nil, err
		}
	}
	data, err := domain.Serialize(doc)
	if err != nil {
		return "", nil, fmt.Errorf("serialize document: %w", err)
	}
	return domain.ExportName(s.fileName, s.now()), data, nil
}

// SaveTo writes the committed document to path.
func (s *DocumentService) SaveTo(ctx context.Context, path string) error {
	_, data, err := s.Export()
	if err != nil {
		s.notice(ctx, NoticeError, fmt.Sprintf("Save failed: %v", err))
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		s.notice(ctx, NoticeError, fmt.Sprintf("Save failed: %v", err))
		return fmt.Errorf("write document: %w", err)
	}
	s.logger.Info("document saved", "path", path, "bytes", len(data))
	if s.recent != nil {
		if err := s.recent.Touch(path); err != nil {
			s.logger.Warn("recent files", "err", err)
		}
	}
	s.notice(ctx, NoticeInfo, "Saved "+filepath.Base(path))
	return nil
}

// RecentFiles lists recently opened and saved files.
func (s *DocumentService) RecentFiles() ([]storage.RecentFile, error) {
	if s.recent == nil {
		return nil, nil
	}
	return s.recent.List()
}

// ForgetRecent drops path from the recent files list.
func (s *DocumentService) ForgetRecent(path string) error {
	if s.recent == nil {
		return nil
	}
	return s.recent.Remove(path)
}

// ── External changes ──────────────────────────────────────

// NotifyFileChanged reports that the opened file was modified outside the
// editor.
func (s *DocumentService) NotifyFileChanged(ctx context.Context, path string) {
	s.mu.Lock()
	current := s.filePath
	s.mu.Unlock()
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if current == "" || current != path {
		return
	}
	s.emitter.Emit(ctx, EventDocumentFileChanged, FileChanged{Path: path})
	s.notice(ctx, NoticeWarning, filepath.Base(path)+" changed on disk")
}

// ── Internals ─────────────────────────────────────────────

func (s *DocumentService) onTransition(t session.Transition) {
	s.pending = append(s.pending, t)
}

// flush emits queued session transitions. Called without the lock held.
func (s *DocumentService) flush(ctx context.Context) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	var buffer *domain.Pivot
	if p, ok := s.sess.Buffer(); ok {
		buffer = &p
	}
	s.mu.Unlock()

	for _, t := range pending {
		s.emitter.Emit(ctx, EventSessionChanged, SessionChanged{Transition: t, Buffer: buffer})
	}
}

func (s *DocumentService) notice(ctx context.Context, level, message string) {
	s.emitter.Emit(ctx, EventNotice, Notice{Level: level, Message: message})
}

func (s *DocumentService) emitDocument(ctx context.Context) {
	s.emitter.Emit(ctx, EventDocumentChanged, s.documentView())
}

func (s *DocumentService) documentView() DocumentView {
	doc := s.sess.Document()
	return DocumentView{
		FileName: s.fileName,
		FilePath: s.filePath,
		Pivots:   summarize(doc),
		Invalid:  invalidIDs(doc),
	}
}

func (s *DocumentService) sessionView() SessionView {
	v := SessionView{
		State:    s.sess.State(),
		Selected: s.sess.Selected(),
		Dirty:    s.sess.Dirty(),
	}
	if p, ok := s.sess.Buffer(); ok {
		v.Buffer = &p
	}
	return v
}

func (s *DocumentService) documentKey() string {
	if s.filePath != "" {
		return s.filePath
	}
	return s.fileName
}
