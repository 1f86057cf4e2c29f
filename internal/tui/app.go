package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/habitr/internal/export"
	"github.com/sadopc/habitr/internal/logger"
)

// App is the root Bubble Tea model.
type App struct {
	b      *backend
	width  int
	height int

	loggedIn bool
	login    loginModel

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	calendar   calendarModel
	habits     habitsModel
	statistics statisticsModel
	profile    profileModel

	help      help.Model
	status    string
	statusErr bool
}

func NewApp(d Deps) App {
	b := newBackend(d)
	h := help.New()
	h.ShowAll = false

	return App{
		b:          b,
		loggedIn:   b.session.LoggedIn(),
		login:      newLoginModel(b, b.session.Username()),
		activeView: viewCalendar,
		calendar:   newCalendarModel(b),
		habits:     newHabitsModel(b),
		statistics: newStatisticsModel(b),
		profile:    newProfileModel(b),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	if !a.loggedIn {
		return a.login.Init()
	}
	return tea.Batch(a.startSession(), tickCmd())
}

// startSession backfills missing logs then loads the calendar.
func (a App) startSession() tea.Cmd {
	b := a.b
	backfill := b.call(func(ctx context.Context) tea.Msg {
		if err := b.client.CreateMissingLogs(ctx); err != nil {
			logger.Warn("create missing logs", "error", err)
		}
		return nil
	})
	return tea.Sequence(backfill, a.calendar.load())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.login.setSize(a.width, a.height)
		a.calendar.setSize(a.width, contentHeight)
		a.habits.setSize(a.width, contentHeight)
		a.statistics.setSize(a.width, contentHeight)
		a.profile.setSize(a.width, contentHeight)
		return a, nil

	case loginDoneMsg:
		a.loggedIn = true
		a.activeView = viewCalendar
		a.setStatus(fmt.Sprintf("Welcome, %s", msg.profile.Username), false)
		a.calendar = newCalendarModel(a.b)
		a.calendar.setSize(a.width, a.height-4)
		return a, tea.Batch(a.startSession(), tickCmd())

	case loggedOutMsg:
		return a.toLogin(msg.reason)

	case logoutRequestMsg:
		if err := a.b.session.Logout(); err != nil {
			logger.Error("logout", "error", err)
		}
		return a.toLogin("Logged out")

	case tea.KeyMsg:
		if !a.loggedIn {
			if msg.String() == "ctrl+c" {
				return a, tea.Quit
			}
			var cmd tea.Cmd
			a.login, cmd = a.login.update(msg)
			return a, cmd
		}

		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewCalendar
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewHabits
			return a, a.habits.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewStatistics
			return a, a.statistics.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewProfile
			return a, a.profile.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		var cmd tea.Cmd
		a.calendar, cmd = a.calendar.update(msg)
		return a, tea.Batch(cmd, tickCmd())

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		return a, nil

	case errMsg:
		logger.Warn(msg.context, "error", msg.err)
		st := msg.status()
		a.setStatus(st.text, true)
		return a, nil

	case exportDoneMsg:
		a.setStatus("Exported to "+msg.path, false)
		a.exportPicking = false
		return a, nil

	case dataChangedMsg:
		a.setStatus(msg.text, false)
		var cmd tea.Cmd
		a.habits, cmd = a.habits.update(msg)
		return a, tea.Batch(cmd, a.calendar.load())

	case settingsChangedMsg:
		a.setStatus("Preferences saved", false)
		var calCmd tea.Cmd
		a.calendar, calCmd = a.calendar.update(msg)
		a.statistics.mode = parseChartMode(a.b.store.SettingOr("chart_mode", "stacked"))
		a.statistics.buildChart()
		return a, tea.Batch(calCmd, a.profile.loadSettings())

	// Data messages go to their owner even when another view is active.
	case monthDataMsg, logSavedMsg, habitNotesMsg:
		var cmd tea.Cmd
		a.calendar, cmd = a.calendar.update(msg)
		return a, cmd
	case habitsDataMsg, habitStatsMsg:
		var cmd tea.Cmd
		a.habits, cmd = a.habits.update(msg)
		return a, cmd
	case statisticsDataMsg:
		var cmd tea.Cmd
		a.statistics, cmd = a.statistics.update(msg)
		return a, cmd
	case profileDataMsg, settingsDataMsg:
		var cmd tea.Cmd
		a.profile, cmd = a.profile.update(msg)
		return a, cmd
	}

	if !a.loggedIn {
		var cmd tea.Cmd
		a.login, cmd = a.login.update(msg)
		return a, cmd
	}
	return a.updateActiveView(msg)
}

func (a *App) setStatus(text string, isErr bool) {
	a.status = text
	a.statusErr = isErr
}

func (a App) toLogin(reason string) (tea.Model, tea.Cmd) {
	a.loggedIn = false
	a.exportPicking = false
	a.login = newLoginModel(a.b, "")
	a.login.setSize(a.width, a.height)
	a.login.err = reason
	a.calendar = newCalendarModel(a.b)
	a.habits = newHabitsModel(a.b)
	a.profile = newProfileModel(a.b)
	a.setStatus("", false)
	return a, a.login.Init()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewCalendar:
		a.calendar, cmd = a.calendar.update(msg)
	case viewHabits:
		a.habits, cmd = a.habits.update(msg)
	case viewStatistics:
		a.statistics, cmd = a.statistics.update(msg)
	case viewProfile:
		a.profile, cmd = a.profile.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewCalendar:
		return a.calendar.formActive
	case viewHabits:
		return a.habits.formActive
	case viewProfile:
		return a.profile.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewHabits:
		return a.habits.refresh()
	case viewStatistics:
		return a.statistics.refresh()
	case viewProfile:
		return a.profile.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}
	if !a.loggedIn {
		return a.login.view()
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewCalendar:
		content = a.calendar.view()
	case viewHabits:
		content = a.habits.view()
	case viewStatistics:
		content = a.statistics.view()
	case viewProfile:
		content = a.profile.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("habitr")
	if u := a.b.session.Username(); u != "" {
		title += mutedStyle.Render(" · " + u)
	}
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		st := mutedStyle
		if a.statusErr {
			st = errorStyle
		}
		status = st.Render(" " + a.status)
	}

	offline := ""
	if a.calendar.offline {
		offline = warningStyle.Render(" ● offline")
	}

	left := footerStyle.Render(helpView)
	right := offline + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"CSV", "JSON"}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export " + a.calendar.month.Title())
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// doExport writes the calendar's current grid to the home directory.
func (a App) doExport(format int) tea.Cmd {
	g := a.calendar.grid
	loaded := a.calendar.loaded
	return func() tea.Msg {
		if !loaded {
			return statusMsg{text: "Nothing to export yet", isError: true}
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		var path string
		if format == 0 {
			path = filepath.Join(home, fmt.Sprintf("habitr-%s.csv", g.Month))
			if err := export.ToCSV(g, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(home, fmt.Sprintf("habitr-%s.json", g.Month))
			if err := export.ToJSON(g, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}
		logger.Info("exported month", "month", g.Month.String(), "path", path)
		return exportDoneMsg{path: path}
	}
}
