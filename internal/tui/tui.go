// Package tui is a terminal editor for pivot documents.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pivoteditor/internal/domain"
	"pivoteditor/internal/service"
	"pivoteditor/internal/session"
)

// Mode is what keys currently act on.
type Mode int

const (
	ModeList Mode = iota
	ModeEdit
	ModeConfirmSwitch
	ModeConfirmDelete
	ModeConfirmQuit
)

// Model is the editor TUI model.
type Model struct {
	// Config
	docs   *service.DocumentService
	path   string
	prompt bool // ask before dropping unsaved edits

	// State
	mode      Mode
	cursor    int
	pivots    []service.PivotSummary
	sess      service.SessionView
	pending   string // pivot waiting behind the switch prompt
	status    string
	statusErr bool
	width     int
	height    int

	// Components
	inputs []textinput.Model
	focus  int
}

// NewModel creates an editor over docs. Saving writes to path. Under the
// prompt policy the question is asked inside the TUI, so the service is
// switched to block and the answer applied here.
func NewModel(docs *service.DocumentService, path string, policy session.SwitchPolicy) Model {
	m := Model{docs: docs, path: path}
	if policy == session.SwitchPrompt {
		docs.SetPrompter(session.SwitchBlock, nil)
		m.prompt = true
	}
	m.refresh()
	if m.sess.Selected != "" {
		m.cursor = m.indexOf(m.sess.Selected)
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Mode returns the current mode.
func (m Model) Mode() Mode { return m.mode }

// Status returns the last status line.
func (m Model) Status() string { return m.status }

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case ModeEdit:
			return m.updateEdit(msg)
		case ModeConfirmSwitch:
			return m.updateConfirmSwitch(msg)
		case ModeConfirmDelete:
			return m.updateConfirmDelete(msg)
		case ModeConfirmQuit:
			if msg.String() == "y" {
				return m, tea.Quit
			}
			m.mode = ModeList
			return m, nil
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	switch msg.String() {
	case "q", "esc":
		if m.sess.Dirty {
			m.mode = ModeConfirmQuit
			return m, nil
		}
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.pivots)-1 {
			m.cursor++
		}
	case "enter", "e":
		if len(m.pivots) == 0 {
			return m, nil
		}
		return m.selectPivot(m.pivots[m.cursor].ID)
	case "a":
		id, err := m.docs.AddPivot(ctx)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.refresh()
		m.cursor = m.indexOf(id)
		m.setStatus("Added pivot " + id)
		if m.sess.Selected == id {
			return m.startEdit()
		}
	case "d", "x":
		if len(m.pivots) > 0 {
			m.mode = ModeConfirmDelete
		}
	case "c":
		m.commit()
	case "u":
		m.docs.Discard(ctx)
		m.refresh()
		m.setStatus("Changes discarded")
	case "w", "ctrl+s":
		m.save()
	}
	return m, nil
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeList
		m.inputs[m.focus].Blur()
		return m, nil
	case "tab", "down":
		return m, m.focusField((m.focus + 1) % len(m.inputs))
	case "shift+tab", "up":
		return m, m.focusField((m.focus + len(m.inputs) - 1) % len(m.inputs))
	case "enter":
		if m.applyField() {
			m.setStatus("Updated " + domain.EditableKeys[m.focus])
		}
		return m, nil
	case "ctrl+s":
		if m.applyField() {
			m.commit()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) updateConfirmSwitch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	target := m.pending
	switch msg.String() {
	case "s":
		if err := m.docs.Commit(ctx); err != nil {
			m.mode = ModeList
			m.setError(fmt.Errorf("save before switch: %w", err))
			return m, nil
		}
	case "d":
		m.docs.Discard(ctx)
	default:
		m.mode = ModeList
		m.pending = ""
		m.setStatus("Switch cancelled")
		return m, nil
	}
	m.pending = ""
	m.mode = ModeList
	return m.selectPivot(target)
}

func (m Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = ModeList
	if msg.String() != "y" || len(m.pivots) == 0 {
		return m, nil
	}
	id := m.pivots[m.cursor].ID
	if err := m.docs.DeletePivot(context.Background(), id); err != nil {
		m.setError(err)
		return m, nil
	}
	m.refresh()
	m.setStatus("Deleted pivot " + id)
	return m, nil
}

// ── Actions ───────────────────────────────────────────────

func (m Model) selectPivot(id string) (tea.Model, tea.Cmd) {
	if id == m.sess.Selected && m.sess.Buffer != nil {
		return m.startEdit()
	}
	err := m.docs.Select(context.Background(), id)
	if errors.Is(err, session.ErrUnsavedChanges) {
		if m.prompt {
			m.pending = id
			m.mode = ModeConfirmSwitch
			return m, nil
		}
		m.setError(err)
		return m, nil
	}
	if err != nil {
		m.setError(err)
		return m, nil
	}
	m.refresh()
	m.cursor = m.indexOf(id)
	return m.startEdit()
}

func (m Model) startEdit() (tea.Model, tea.Cmd) {
	if m.sess.Buffer == nil {
		return m, nil
	}
	m.loadInputs()
	m.mode = ModeEdit
	return m, m.focusField(0)
}

// applyField sends the focused input to the edit buffer.
func (m *Model) applyField() bool {
	key := domain.EditableKeys[m.focus]
	patch, err := domain.FieldPatch(key, m.inputs[m.focus].Value())
	if err == nil {
		err = m.docs.Edit(context.Background(), patch)
	}
	if err != nil {
		m.setError(err)
		return false
	}
	m.refresh()
	return true
}

func (m *Model) commit() {
	if err := m.docs.Commit(context.Background()); err != nil {
		m.setError(err)
		return
	}
	m.refresh()
	if m.sess.Selected != "" {
		m.cursor = m.indexOf(m.sess.Selected)
		m.loadInputs()
		if m.mode == ModeEdit {
			m.inputs[m.focus].Focus()
		}
	}
	m.setStatus("Pivot saved")
}

func (m *Model) save() {
	if m.path == "" {
		m.setError(errors.New("no output file"))
		return
	}
	if err := m.docs.SaveTo(context.Background(), m.path); err != nil {
		m.setError(err)
		return
	}
	m.setStatus("Wrote " + m.path)
}

// ── Helpers ───────────────────────────────────────────────

func (m *Model) refresh() {
	m.pivots = m.docs.Document().Pivots
	m.sess = m.docs.Session()
	if m.cursor >= len(m.pivots) {
		m.cursor = max(len(m.pivots)-1, 0)
	}
}

func (m *Model) loadInputs() {
	var buf domain.Pivot
	if m.sess.Buffer != nil {
		buf = *m.sess.Buffer
	}
	m.inputs = make([]textinput.Model, len(domain.EditableKeys))
	for i, key := range domain.EditableKeys {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 0
		ti.Width = 60
		ti.SetValue(domain.FieldText(buf, key))
		m.inputs[i] = ti
	}
}

func (m *Model) focusField(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[i].Focus()
}

func (m *Model) indexOf(id string) int {
	for i, p := range m.pivots {
		if p.ID == id {
			return i
		}
	}
	return 0
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

// ── View ──────────────────────────────────────────────────

// View renders the UI
func (m Model) View() string {
	var b strings.Builder

	name := m.docs.Document().FileName
	if name == "" {
		name = "untitled"
	}
	b.WriteString(titleStyle.Render("Pivot Editor") + "  " + subtitleStyle.Render(name))
	b.WriteString("\n\n")

	list := m.renderList()
	editor := m.renderEditor()
	listBox, editBox := focusedBoxStyle, boxStyle
	if m.mode == ModeEdit {
		listBox, editBox = boxStyle, focusedBoxStyle
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, listBox.Render(list), " ", editBox.Render(editor)))
	b.WriteString("\n")

	switch m.mode {
	case ModeConfirmSwitch:
		b.WriteString(promptStyle.Render(fmt.Sprintf("Pivot %s has unsaved changes: [s]ave, [d]iscard, any other key cancels", m.sess.Selected)))
	case ModeConfirmDelete:
		p := m.pivots[m.cursor]
		b.WriteString(promptStyle.Render(fmt.Sprintf("Delete %s? [y/N]", p.Label)))
	case ModeConfirmQuit:
		b.WriteString(promptStyle.Render("Quit and lose unsaved changes? [y/N]"))
	default:
		if m.statusErr {
			b.WriteString(statusErrorStyle.Render(m.status))
		} else {
			b.WriteString(statusOKStyle.Render(m.status))
		}
	}
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderList() string {
	if len(m.pivots) == 0 {
		return subtitleStyle.Render("no pivots")
	}
	var lines []string
	for i, p := range m.pivots {
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		style := listNormalStyle
		switch {
		case i == m.cursor:
			style = listSelectedStyle
		case !p.Valid:
			style = listInvalidStyle
		}
		line := cursor + style.Render(p.Label)
		if p.ID == m.sess.Selected && m.sess.Dirty {
			line += stateDirtyStyle.Render(" *")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderEditor() string {
	var b strings.Builder
	switch m.sess.State {
	case session.StateDirty:
		b.WriteString(stateDirtyStyle.Render("● modified"))
	case session.StateClean:
		b.WriteString(stateCleanStyle.Render("● saved"))
	default:
		b.WriteString(stateEmptyStyle.Render("○ no pivot selected"))
	}
	b.WriteString("\n")

	if m.sess.Buffer == nil {
		return b.String()
	}
	for i, key := range domain.EditableKeys {
		value := domain.FieldText(*m.sess.Buffer, key)
		if m.mode == ModeEdit && i < len(m.inputs) {
			value = m.inputs[i].View()
		}
		b.WriteString("\n" + labelStyle.Render(key) + value)
	}
	return b.String()
}

func (m Model) renderHelp() string {
	if m.mode == ModeEdit {
		return helpStyle.Render("tab next field • enter apply • ctrl+s apply and save pivot • esc back")
	}
	return helpStyle.Render("↑/↓ move • enter edit • a add • d delete • c save pivot • u discard • w write file • q quit")
}

// Run starts the TUI
func Run(docs *service.DocumentService, path string, policy session.SwitchPolicy) error {
	p := tea.NewProgram(
		NewModel(docs, path, policy),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
