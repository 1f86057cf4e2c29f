package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/habitr/internal/calendar"
)

var (
	colorPrimary   = lipgloss.Color("#43A047")
	colorAccent    = lipgloss.Color("#FFB74D")
	colorMuted     = lipgloss.Color("#6B7280")
	colorSuccess   = lipgloss.Color("#66BB6A")
	colorWarning   = lipgloss.Color("#FFCA28")
	colorError     = lipgloss.Color("#EF5350")
	colorFg        = lipgloss.Color("#E5E7EB")
	colorSubtle    = lipgloss.Color("#374151")
	colorHighlight = lipgloss.Color("#81D4FA")
)

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorPrimary).
			Padding(0, 2)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 2)

	panelStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSubtle).Padding(1, 2)
	activePanelStyle = panelStyle.BorderForeground(colorPrimary)

	// The grid cursor inverts whatever status color the cell has.
	cellCursorStyle = lipgloss.NewStyle().Reverse(true)
	todayStyle      = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(colorHighlight)

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorFg)
	subtitleStyle  = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	accentStyle    = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	successStyle   = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	highlightStyle = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true)

	headerStyle = lipgloss.NewStyle().Padding(0, 1)
	footerStyle = mutedStyle.Padding(0, 1)

	selectedItemStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	normalItemStyle   = lipgloss.NewStyle().Foreground(colorFg)
)

// statusCell returns the glyph and style for a calendar cell.
func statusCell(s calendar.DisplayStatus) (string, lipgloss.Style) {
	switch s {
	case calendar.DisplayCompleted:
		return "●", successStyle
	case calendar.DisplayPartial:
		return "◐", warningStyle
	case calendar.DisplayNotDone:
		return "○", errorStyle
	case calendar.DisplayFuture:
		return "·", mutedStyle
	case calendar.DisplayBeforeCreation:
		return " ", mutedStyle
	}
	return "?", accentStyle
}

func logStatusStyle(s calendar.LogStatus) lipgloss.Style {
	switch s {
	case calendar.LogCompleted:
		return successStyle
	case calendar.LogPartial:
		return warningStyle
	}
	return errorStyle
}
