package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/habitr/internal/api"
	"github.com/sadopc/habitr/internal/calendar"
	"github.com/sadopc/habitr/internal/logger"
	"github.com/sadopc/habitr/internal/store"
)

const nameWidth = 16

const (
	msgFutureDay = "future days cannot be logged"
	msgPastDay   = "past days are read-only"
	msgNoHabit   = "habit did not exist yet"
)

type calendarModel struct {
	b      *backend
	width  int
	height int

	month    calendar.Month
	habits   []calendar.Habit
	logs     []calendar.HabitLog
	grid     calendar.Grid
	loaded   bool
	loading  bool
	offline  bool
	syncedAt time.Time

	row       int // habit index
	col       int // day index, 0-based
	weekStart time.Weekday

	formActive bool
	form       *huh.Form
	formStatus *calendar.LogStatus
	formNotes  *string
	editing    calendar.Cell

	detail     bool
	detailName string
	detailLogs []calendar.HabitLog
}

func newCalendarModel(b *backend) calendarModel {
	today := b.today()
	st, notes := calendar.LogCompleted, ""
	return calendarModel{
		b:          b,
		month:      calendar.MonthOf(today),
		col:        today.Day - 1,
		loading:    true,
		weekStart:  parseWeekStart(b.store.SettingOr("week_start", "monday")),
		formStatus: &st,
		formNotes:  &notes,
	}
}

func (c *calendarModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

type monthDataMsg struct {
	month    calendar.Month
	habits   []calendar.Habit
	logs     []calendar.HabitLog
	offline  bool
	syncedAt time.Time
	err      error
}

type logSavedMsg struct {
	habit string
	date  calendar.Date
	log   *api.HabitLog
}

type habitNotesMsg struct {
	name string
	logs []calendar.HabitLog
}

// load fetches the month from the API and caches it. When the API cannot be
// reached the last cached snapshot is shown instead.
func (c calendarModel) load() tea.Cmd {
	month, today, b := c.month, c.b.today(), c.b
	return b.call(func(ctx context.Context) tea.Msg {
		data, err := b.client.FetchMonth(ctx, month, today)
		if err == nil {
			now := b.now()
			if serr := b.store.SaveSnapshot(month, data.Habits, data.Logs, now); serr != nil {
				logger.Warn("cache snapshot failed", "month", month.String(), "error", serr)
			}
			if serr := b.store.SetSetting("last_month", month.String()); serr != nil {
				logger.Warn("save last month", "month", month.String(), "error", serr)
			}
			return monthDataMsg{month: month, habits: data.Habits, logs: data.Logs, syncedAt: now}
		}
		if errors.Is(err, api.ErrUnauthorized) {
			return errMsg{context: "load calendar", err: err}
		}

		logger.Warn("fetch month failed, trying cache", "month", month.String(), "error", err)
		snap, cerr := b.store.LoadSnapshot(month)
		if cerr != nil {
			if !errors.Is(cerr, store.ErrNoSnapshot) {
				logger.Error("load snapshot", "month", month.String(), "error", cerr)
			}
			return monthDataMsg{month: month, err: err}
		}
		return monthDataMsg{
			month:    month,
			habits:   snap.Habits,
			logs:     snap.Logs,
			offline:  true,
			syncedAt: snap.SyncedAt,
		}
	})
}

// rebuild reconciles the loaded data against the current clock.
func (c *calendarModel) rebuild() error {
	g, err := calendar.Reconcile(c.habits, c.logs, c.month, c.b.now())
	if err != nil {
		return err
	}
	c.grid = g
	c.clampCursor()
	return nil
}

func (c *calendarModel) clampCursor() {
	if c.row >= len(c.grid.Habits) {
		c.row = max(0, len(c.grid.Habits)-1)
	}
	if days := c.month.Days(); c.col >= days {
		c.col = days - 1
	}
	if c.col < 0 {
		c.col = 0
	}
}

func (c calendarModel) selected() (calendar.Cell, calendar.Habit, bool) {
	if !c.loaded || c.row >= len(c.grid.Habits) {
		return calendar.Cell{}, calendar.Habit{}, false
	}
	h := c.grid.Habits[c.row]
	cell, ok := c.grid.Cell(h.ID, c.col+1)
	return cell, h, ok
}

func (c calendarModel) update(msg tea.Msg) (calendarModel, tea.Cmd) {
	switch msg := msg.(type) {
	case monthDataMsg:
		if msg.month != c.month {
			return c, nil
		}
		c.loading = false
		if msg.err != nil {
			return c, func() tea.Msg { return errMsg{context: "load " + msg.month.Title(), err: msg.err} }
		}
		c.habits, c.logs = msg.habits, msg.logs
		c.offline, c.syncedAt = msg.offline, msg.syncedAt
		if err := c.rebuild(); err != nil {
			return c, func() tea.Msg { return errMsg{context: "reconcile", err: err} }
		}
		c.loaded = true
		if c.offline {
			return c, func() tea.Msg {
				return statusMsg{text: "offline: showing cached data from " + formatSynced(msg.syncedAt, c.b.now()), isError: true}
			}
		}
		return c, nil

	case logSavedMsg:
		text := fmt.Sprintf("Logged %s for %s", msg.habit, msg.date)
		return c, tea.Batch(c.load(), func() tea.Msg { return statusMsg{text: text} })

	case habitNotesMsg:
		c.detail = true
		c.detailName = msg.name
		c.detailLogs = msg.logs
		return c, nil

	case settingsChangedMsg:
		c.weekStart = parseWeekStart(c.b.store.SettingOr("week_start", "monday"))
		return c, nil

	case tickMsg:
		// Crossing midnight moves the editable day.
		if c.loaded && c.b.today() != c.grid.Today {
			if err := c.rebuild(); err != nil {
				logger.Warn("rebuild on day change", "error", err)
			}
		}
		return c, nil
	}

	if c.formActive && c.form != nil {
		return c.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if c.detail {
			if key.Matches(msg, keys.Back) || key.Matches(msg, keys.Info) {
				c.detail = false
			}
			return c, nil
		}
		return c.updateGrid(msg)
	}
	return c, nil
}

func (c calendarModel) updateGrid(msg tea.KeyMsg) (calendarModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.PrevMonth):
		return c.gotoMonth(c.month.Prev())
	case key.Matches(msg, keys.NextMonth):
		return c.gotoMonth(c.month.Next())
	case key.Matches(msg, keys.Today):
		today := c.b.today()
		c.col = today.Day - 1
		if m := calendar.MonthOf(today); m != c.month {
			return c.gotoMonth(m)
		}
	case key.Matches(msg, keys.Refresh):
		c.loading = true
		return c, c.load()
	case key.Matches(msg, keys.Up):
		if c.row > 0 {
			c.row--
		}
	case key.Matches(msg, keys.Down):
		if c.row < len(c.grid.Habits)-1 {
			c.row++
		}
	case key.Matches(msg, keys.Left):
		if c.col > 0 {
			c.col--
		}
	case key.Matches(msg, keys.Right):
		if c.col < c.month.Days()-1 {
			c.col++
		}
	case key.Matches(msg, keys.Enter):
		return c.openCell()
	case key.Matches(msg, keys.Info):
		if _, h, ok := c.selected(); ok {
			return c, c.loadNotes(h)
		}
	}
	return c, nil
}

func (c calendarModel) gotoMonth(m calendar.Month) (calendarModel, tea.Cmd) {
	c.month = m
	c.loaded = false
	c.loading = true
	c.clampCursor()
	return c, c.load()
}

// openCell opens the log form on today's cell and explains why any other
// cell cannot be edited.
func (c calendarModel) openCell() (calendarModel, tea.Cmd) {
	cell, h, ok := c.selected()
	if !ok {
		return c, nil
	}
	if !cell.Editable {
		text := msgPastDay
		switch cell.Status {
		case calendar.DisplayFuture:
			text = msgFutureDay
		case calendar.DisplayBeforeCreation:
			text = msgNoHabit
		case calendar.DisplayNotDone, calendar.DisplayPartial, calendar.DisplayCompleted:
		}
		return c, func() tea.Msg { return statusMsg{text: text, isError: true} }
	}
	if c.offline {
		return c, func() tea.Msg { return statusMsg{text: "offline: reconnect to log today", isError: true} }
	}

	*c.formStatus = calendar.LogCompleted
	*c.formNotes = ""
	if cell.Log != nil {
		*c.formStatus = cell.Log.Status
		*c.formNotes = cell.Log.Notes
	}
	c.editing = cell

	opts := make([]huh.Option[calendar.LogStatus], len(calendar.LogStatuses))
	for i, s := range calendar.LogStatuses {
		opts[i] = huh.NewOption(s.Label(), s)
	}
	c.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[calendar.LogStatus]().
				Title(fmt.Sprintf("%s · %s", h.Name, cell.Date)).
				Options(opts...).
				Value(c.formStatus),
			huh.NewText().Title("Notes").Lines(3).Value(c.formNotes),
		),
	).WithShowHelp(true).WithShowErrors(true)

	c.formActive = true
	return c, c.form.Init()
}

func (c calendarModel) updateForm(msg tea.Msg) (calendarModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			c.formActive = false
			c.form = nil
			return c, nil
		}
	}

	form, cmd := c.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		c.form = f
	}

	if c.form.State == huh.StateCompleted {
		c.formActive = false
		return c, c.saveLog(c.editing, *c.formStatus, strings.TrimSpace(*c.formNotes))
	}
	return c, cmd
}

func (c calendarModel) saveLog(cell calendar.Cell, status calendar.LogStatus, notes string) tea.Cmd {
	// The day may have rolled over while the form was open.
	if cell.Date != c.b.today() {
		return func() tea.Msg { return statusMsg{text: msgPastDay, isError: true} }
	}
	name := ""
	for _, h := range c.grid.Habits {
		if h.ID == cell.HabitID {
			name = h.Name
		}
	}
	b := c.b
	return b.call(func(ctx context.Context) tea.Msg {
		l, err := b.client.SaveLog(ctx, cell.HabitID, cell.Date, status, notes)
		if err != nil {
			return errMsg{context: "save log", err: err}
		}
		logger.Info("log saved", "habit_id", cell.HabitID, "date", cell.Date.String(), "status", status.String())
		return logSavedMsg{habit: name, date: cell.Date, log: l}
	})
}

// loadNotes fetches every log of h that carries notes, newest first.
func (c calendarModel) loadNotes(h calendar.Habit) tea.Cmd {
	b := c.b
	return b.call(func(ctx context.Context) tea.Msg {
		raw, err := b.client.ListLogs(ctx, api.LogFilter{HabitID: h.ID})
		var logs []calendar.HabitLog
		if err == nil {
			logs, err = api.ConvertLogs(raw)
		}
		if err != nil {
			logger.Warn("notes fetch failed, using cache", "habit_id", h.ID, "error", err)
			if logs, err = b.store.HabitLogs(h.ID); err != nil {
				return errMsg{context: "load notes", err: err}
			}
		}
		return habitNotesMsg{name: h.Name, logs: withNotes(logs)}
	})
}

func withNotes(logs []calendar.HabitLog) []calendar.HabitLog {
	out := make([]calendar.HabitLog, 0, len(logs))
	for _, l := range logs {
		if strings.TrimSpace(l.Notes) != "" {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (c calendarModel) view() string {
	w := c.width - 4

	if c.formActive && c.form != nil {
		title := titleStyle.Render("Log today")
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", c.form.View()))
	}
	if c.detail {
		return c.renderNotes(w)
	}

	title := titleStyle.Render(c.month.Title())
	if c.offline {
		title += warningStyle.Render("  offline · synced " + formatSynced(c.syncedAt, c.b.now()))
	}

	if !c.loaded {
		hint := "Loading..."
		if !c.loading {
			hint = "No data. Press r to retry."
		}
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", mutedStyle.Render(hint)))
	}
	if len(c.grid.Habits) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No active habits. Add one in the Habits view (2, then n)."),
		))
	}

	var rows []string
	rows = append(rows, title, "", c.renderDayHeader())
	for i, h := range c.grid.Habits {
		rows = append(rows, c.renderRow(i, h))
	}
	rows = append(rows, "", c.renderSelection(), "", renderLegend())
	rows = append(rows, mutedStyle.Render("  arrows: move  enter: log today  i: notes  [ ]: month  t: today  r: refresh"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (c calendarModel) renderDayHeader() string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", nameWidth+2))
	for _, d := range c.month.Dates() {
		label := "  "
		if d.Day == 1 || d.Time().Weekday() == c.weekStart {
			label = fmt.Sprintf("%-2d", d.Day)
		}
		if d == c.grid.Today {
			sb.WriteString(todayStyle.Render(fmt.Sprintf("%-2d", d.Day)))
			continue
		}
		sb.WriteString(mutedStyle.Render(label))
	}
	return sb.String()
}

func (c calendarModel) renderRow(i int, h calendar.Habit) string {
	style := normalItemStyle
	cursor := "  "
	if i == c.row {
		style = selectedItemStyle
		cursor = "> "
	}
	var sb strings.Builder
	sb.WriteString(style.Render(fmt.Sprintf("%s%-*s", cursor, nameWidth, truncate(h.Name, nameWidth))))
	for j, cell := range c.grid.Row(h.ID) {
		glyph, st := statusCell(cell.Status)
		if i == c.row && j == c.col {
			st = cellCursorStyle.Foreground(st.GetForeground())
		}
		sb.WriteString(st.Render(glyph) + " ")
	}
	if h.Streak > 0 {
		sb.WriteString(accentStyle.Render(fmt.Sprintf(" %dd", h.Streak)))
	}
	return sb.String()
}

func (c calendarModel) renderSelection() string {
	cell, h, ok := c.selected()
	if !ok {
		return ""
	}
	glyph, st := statusCell(cell.Status)
	parts := []string{
		highlightStyle.Render(h.Name),
		cell.Date.String(),
		st.Render(glyph + " " + displayLabel(cell.Status)),
	}
	if cell.Editable {
		parts = append(parts, successStyle.Render("editable"))
	}
	line := "  " + strings.Join(parts, mutedStyle.Render(" · "))
	if cell.Log != nil && cell.Log.Notes != "" {
		line += "\n  " + mutedStyle.Render(truncate(cell.Log.Notes, max(10, c.width-12)))
	}
	return line
}

func parseWeekStart(s string) time.Weekday {
	if s == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

func displayLabel(s calendar.DisplayStatus) string {
	switch s {
	case calendar.DisplayCompleted:
		return "Completed"
	case calendar.DisplayPartial:
		return "Partial"
	case calendar.DisplayNotDone:
		return "Not done"
	case calendar.DisplayFuture:
		return "Future"
	case calendar.DisplayBeforeCreation:
		return "Before creation"
	}
	return s.String()
}

func renderLegend() string {
	statuses := []calendar.DisplayStatus{
		calendar.DisplayCompleted, calendar.DisplayPartial, calendar.DisplayNotDone,
		calendar.DisplayFuture, calendar.DisplayBeforeCreation,
	}
	items := make([]string, len(statuses))
	for i, s := range statuses {
		glyph, st := statusCell(s)
		items[i] = st.Render(glyph) + " " + mutedStyle.Render(displayLabel(s))
	}
	return "  " + strings.Join(items, "   ")
}

func (c calendarModel) renderNotes(w int) string {
	title := titleStyle.Render(c.detailName + " · notes")
	if len(c.detailLogs) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No notes yet."), "", mutedStyle.Render("  esc: back"),
		))
	}
	rows := []string{title, ""}
	limit := len(c.detailLogs)
	if c.height > 8 && limit > c.height-8 {
		limit = c.height - 8
	}
	for _, l := range c.detailLogs[:limit] {
		d, _ := calendar.DateOf(l.Date)
		rows = append(rows, fmt.Sprintf("  %s  %s  %s",
			mutedStyle.Render(d.String()),
			logStatusStyle(l.Status).Render(fmt.Sprintf("%-9s", l.Status.Label())),
			l.Notes,
		))
	}
	rows = append(rows, "", mutedStyle.Render("  esc: back"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
