// Package session holds the edit buffer for one checked-out pivot and the
// clean/dirty state machine around it.
//
// A Session owns the committed Document and a deep copy of one of its pivots.
// Select, Edit, Commit and Discard are the only operations that change the
// buffer; Reset and Replace let the host swap the committed document after a
// load, import, add, delete or history restore.
//
// A Session is not safe for concurrent use.
package session

import (
	"errors"
	"fmt"

	"pivoteditor/internal/domain"
)

var (
	// ErrNoSelection is returned by Edit and Commit when no pivot is checked out.
	ErrNoSelection = errors.New("no pivot selected")
	// ErrUnsavedChanges is returned by Select under SwitchBlock while dirty,
	// and when a prompt is cancelled.
	ErrUnsavedChanges = errors.New("selected pivot has unsaved changes")
)

// State of the edit buffer.
type State int

const (
	StateEmpty State = iota
	StateClean
	StateDirty
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	default:
		return "empty"
	}
}

// MarshalText lets State travel as "empty", "clean" or "dirty".
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Transition is emitted after every observable change.
type Transition struct {
	From     State  `json:"from"`
	To       State  `json:"to"`
	Selected string `json:"selected"`
	Dirty    bool   `json:"dirty"`
}

// Listener receives transitions.
type Listener func(Transition)

// Options configure a Session.
type Options struct {
	SwitchPolicy      SwitchPolicy
	Prompter          Prompter
	EnforceValidation bool
	Listener          Listener
}

// Session is the edit buffer for one pivot of a document.
type Session struct {
	doc      domain.Document
	selected string
	buffer   domain.Pivot
	state    State
	opts     Options
}

// New creates a session over doc with id checked out. An empty or unknown id
// leaves the session Empty.
func New(doc domain.Document, id string, opts Options) *Session {
	if opts.SwitchPolicy == "" {
		opts.SwitchPolicy = SwitchDiscard
	}
	s := &Session{doc: doc, opts: opts}
	s.load(id)
	return s
}

// SetPolicy changes the switch policy and prompter.
func (s *Session) SetPolicy(p SwitchPolicy, prompter Prompter) {
	if p == "" {
		p = SwitchDiscard
	}
	s.opts.SwitchPolicy = p
	s.opts.Prompter = prompter
}

// SetEnforceValidation toggles structural validation on commit.
func (s *Session) SetEnforceValidation(on bool) {
	s.opts.EnforceValidation = on
}

// Document returns the committed document.
func (s *Session) Document() domain.Document { return s.doc }

// State returns the buffer state.
func (s *Session) State() State { return s.state }

// Dirty reports whether the buffer differs from the committed pivot.
func (s *Session) Dirty() bool { return s.state == StateDirty }

// Selected returns the id the buffer was checked out from, or "".
func (s *Session) Selected() string { return s.selected }

// Buffer returns a copy of the edit buffer.
func (s *Session) Buffer() (domain.Pivot, bool) {
	if s.state == StateEmpty {
		return domain.Pivot{}, false
	}
	return s.buffer.Clone(), true
}

// Select checks out a copy of pivot id. An empty or unknown id clears the
// selection. While dirty, the switch policy decides whether the buffer is
// dropped, kept (ErrUnsavedChanges), or first committed.
func (s *Session) Select(id string) error {
	if s.state == StateDirty {
		switch s.opts.SwitchPolicy {
		case SwitchBlock:
			return ErrUnsavedChanges
		case SwitchPrompt:
			if s.opts.Prompter == nil {
				return ErrUnsavedChanges
			}
			switch s.opts.Prompter.ConfirmSwitch(s.selected, id) {
			case DecisionSave:
				if err := s.Commit(); err != nil {
					return fmt.Errorf("save before switch: %w", err)
				}
			case DecisionDiscard:
			default:
				return ErrUnsavedChanges
			}
		}
	}
	s.track(func() { s.load(id) })
	return nil
}

// Edit merges patch into the buffer. Changing the id to an empty value or to
// the id of another committed pivot rejects the whole patch and leaves the
// buffer untouched.
func (s *Session) Edit(patch domain.PivotPatch) error {
	if s.state == StateEmpty {
		return ErrNoSelection
	}
	if patch.ID != nil {
		if err := s.checkTarget(*patch.ID); err != nil {
			return err
		}
	}
	next, err := patch.Apply(s.buffer)
	if err != nil {
		return err
	}
	s.track(func() {
		s.buffer = next
		s.refreshState()
	})
	return nil
}

// Commit writes the buffer into the document under the buffer's id. When the
// id changed since Select the old key is removed and the new one inserted in
// the same step. A Clean commit is a no-op.
func (s *Session) Commit() error {
	switch s.state {
	case StateEmpty:
		return ErrNoSelection
	case StateClean:
		return nil
	}
	target := s.buffer.ID
	if err := s.checkTarget(target); err != nil {
		return err
	}
	if s.opts.EnforceValidation && !domain.IsValid(s.buffer) {
		return &domain.ValidationError{IDs: []string{target}}
	}
	s.track(func() {
		if target == s.selected {
			s.doc = s.doc.Insert(target, s.buffer)
		} else {
			s.doc = s.doc.Rename(s.selected, target, s.buffer)
		}
		s.load(target)
	})
	return nil
}

// Discard reloads the buffer from the committed document. If the selected
// pivot no longer exists the first remaining one is checked out instead.
func (s *Session) Discard() {
	s.track(func() {
		id := s.selected
		if !s.doc.Has(id) {
			id = s.doc.First()
		}
		s.load(id)
	})
}

// Reset installs a freshly loaded document and checks out its first pivot.
func (s *Session) Reset(doc domain.Document) {
	s.track(func() {
		s.doc = doc
		s.load(doc.First())
	})
}

// Replace installs a new committed document. If the selected pivot survives,
// the buffer is kept (and stays dirty if it was); otherwise the first
// remaining pivot is checked out clean.
func (s *Session) Replace(doc domain.Document) {
	s.track(func() {
		s.doc = doc
		if s.state != StateEmpty && doc.Has(s.selected) {
			s.refreshState()
			return
		}
		s.load(doc.First())
	})
}

func (s *Session) checkTarget(id string) error {
	if id == "" {
		return domain.ErrEmptyID
	}
	if id != s.selected && s.doc.Has(id) {
		return &domain.ConflictError{ID: id}
	}
	return nil
}

func (s *Session) load(id string) {
	p, ok := s.doc.Get(id)
	if id == "" || !ok {
		s.selected = ""
		s.buffer = domain.Pivot{}
		s.state = StateEmpty
		return
	}
	s.selected = id
	s.buffer = p
	s.state = StateClean
}

func (s *Session) refreshState() {
	committed, ok := s.doc.Get(s.selected)
	if ok && committed.Equal(s.buffer) {
		s.state = StateClean
		return
	}
	s.state = StateDirty
}

// track runs fn and notifies the listener if state, selection or buffer
// changed.
func (s *Session) track(fn func()) {
	from, selected, buffer := s.state, s.selected, s.buffer
	fn()
	if s.opts.Listener == nil {
		return
	}
	if from == s.state && selected == s.selected && buffer.Equal(s.buffer) {
		return
	}
	s.opts.Listener(Transition{From: from, To: s.state, Selected: s.selected, Dirty: s.state == StateDirty})
}
