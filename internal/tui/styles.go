package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor = lipgloss.Color("36")  // Teal
	okColor      = lipgloss.Color("35")  // Green
	warningColor = lipgloss.Color("220") // Amber
	errorColor   = lipgloss.Color("167") // Soft red
	valueColor   = lipgloss.Color("255")
	mutedColor   = lipgloss.Color("240")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	focusedBoxStyle = boxStyle.
			BorderForeground(primaryColor)

	// List
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	listNormalStyle   = lipgloss.NewStyle().Foreground(valueColor)
	listInvalidStyle  = lipgloss.NewStyle().Foreground(errorColor)

	// State badges
	stateCleanStyle = lipgloss.NewStyle().Foreground(okColor)
	stateDirtyStyle = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	stateEmptyStyle = lipgloss.NewStyle().Foreground(mutedColor)

	labelStyle = lipgloss.NewStyle().Foreground(mutedColor).Width(14)

	statusOKStyle    = lipgloss.NewStyle().Foreground(okColor)
	statusErrorStyle = lipgloss.NewStyle().Foreground(errorColor)
	promptStyle      = lipgloss.NewStyle().Foreground(warningColor).Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)
