package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/habitr/internal/api"
	"github.com/sadopc/habitr/internal/calendar"
	"github.com/sadopc/habitr/internal/logger"
)

type habitForm int

const (
	formNone habitForm = iota
	formNewHabit
	formEditHabit
	formDeleteHabit
)

type habitsModel struct {
	b      *backend
	width  int
	height int

	habits []calendar.Habit
	cursor int

	stats   *api.HabitStatistics
	statsID int64

	formActive bool
	form       *huh.Form
	formType   habitForm

	// Form field pointers (survive value copies)
	formName    *string
	formDesc    *string
	formConfirm *bool

	editingID int64
}

func newHabitsModel(b *backend) habitsModel {
	name, desc, confirm := "", "", false
	return habitsModel{
		b:           b,
		formName:    &name,
		formDesc:    &desc,
		formConfirm: &confirm,
	}
}

func (h *habitsModel) setSize(w, hh int) {
	h.width = w
	h.height = hh
}

type habitsDataMsg struct {
	habits []calendar.Habit
}

type habitStatsMsg struct {
	id    int64
	stats *api.HabitStatistics
}

func (h habitsModel) refresh() tea.Cmd {
	b := h.b
	return b.call(func(ctx context.Context) tea.Msg {
		raw, err := b.client.ListHabits(ctx)
		if err != nil {
			// Offline: cached habits still let the list render.
			if cached, cerr := b.store.Habits(false); cerr == nil && len(cached) > 0 && !errors.Is(err, api.ErrUnauthorized) {
				return habitsDataMsg{habits: cached}
			}
			return errMsg{context: "load habits", err: err}
		}
		habits, err := api.ConvertHabits(raw)
		if err != nil {
			return errMsg{context: "load habits", err: err}
		}
		return habitsDataMsg{habits: habits}
	})
}

func (h habitsModel) loadStats(id int64) tea.Cmd {
	b := h.b
	return b.call(func(ctx context.Context) tea.Msg {
		st, err := b.client.HabitStatistics(ctx, id)
		if err != nil {
			return errMsg{context: "habit statistics", err: err}
		}
		return habitStatsMsg{id: id, stats: st}
	})
}

func (h habitsModel) current() (calendar.Habit, bool) {
	if h.cursor < 0 || h.cursor >= len(h.habits) {
		return calendar.Habit{}, false
	}
	return h.habits[h.cursor], true
}

func (h habitsModel) update(msg tea.Msg) (habitsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case habitsDataMsg:
		h.habits = msg.habits
		if h.cursor >= len(h.habits) {
			h.cursor = max(0, len(h.habits)-1)
		}
		return h, nil

	case habitStatsMsg:
		h.stats = msg.stats
		h.statsID = msg.id
		return h, nil

	case dataChangedMsg:
		return h, h.refresh()
	}

	if h.formActive && h.form != nil {
		return h.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		return h.updateList(msg)
	}
	return h, nil
}

func (h habitsModel) updateList(msg tea.KeyMsg) (habitsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if h.cursor > 0 {
			h.cursor--
		}
	case key.Matches(msg, keys.Down):
		if h.cursor < len(h.habits)-1 {
			h.cursor++
		}
	case key.Matches(msg, keys.Enter):
		if cur, ok := h.current(); ok {
			return h, h.loadStats(cur.ID)
		}
	case key.Matches(msg, keys.New):
		return h.showHabitForm(formNewHabit)
	case key.Matches(msg, keys.Edit):
		if _, ok := h.current(); ok {
			return h.showHabitForm(formEditHabit)
		}
	case key.Matches(msg, keys.Toggle):
		if cur, ok := h.current(); ok {
			return h, h.toggleActive(cur)
		}
	case key.Matches(msg, keys.Delete):
		if _, ok := h.current(); ok {
			return h.showDeleteForm()
		}
	case key.Matches(msg, keys.Refresh):
		return h, h.refresh()
	}
	return h, nil
}

func requireName(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("name is required")
	}
	return nil
}

func (h habitsModel) showHabitForm(kind habitForm) (habitsModel, tea.Cmd) {
	*h.formName = ""
	*h.formDesc = ""
	h.formType = kind
	if kind == formEditHabit {
		cur, _ := h.current()
		*h.formName = cur.Name
		*h.formDesc = cur.Description
		h.editingID = cur.ID
	}

	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Habit name").Value(h.formName).Validate(requireName),
			huh.NewText().Title("Description").Lines(3).Value(h.formDesc),
		),
	).WithShowHelp(true).WithShowErrors(true)

	h.formActive = true
	return h, h.form.Init()
}

func (h habitsModel) showDeleteForm() (habitsModel, tea.Cmd) {
	cur, _ := h.current()
	*h.formConfirm = false
	h.formType = formDeleteHabit
	h.editingID = cur.ID

	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", cur.Name)).
				Description("All of its logs are deleted too.").
				Affirmative("Delete").
				Negative("Cancel").
				Value(h.formConfirm),
		),
	).WithShowHelp(true)

	h.formActive = true
	return h, h.form.Init()
}

func (h habitsModel) updateForm(msg tea.Msg) (habitsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			h.formActive = false
			h.form = nil
			return h, nil
		}
	}

	form, cmd := h.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		h.form = f
	}

	if h.form.State == huh.StateCompleted {
		h.formActive = false
		name := strings.TrimSpace(*h.formName)
		desc := strings.TrimSpace(*h.formDesc)
		switch h.formType {
		case formNewHabit:
			return h, h.create(name, desc)
		case formEditHabit:
			return h, h.edit(h.editingID, name, desc)
		case formDeleteHabit:
			if *h.formConfirm {
				return h, h.remove(h.editingID)
			}
			return h, nil
		}
	}
	return h, cmd
}

func (h habitsModel) create(name, desc string) tea.Cmd {
	b := h.b
	return b.call(func(ctx context.Context) tea.Msg {
		created, err := b.client.CreateHabit(ctx, api.NewHabitInput(name, desc))
		if err != nil {
			return errMsg{context: "create habit", err: err}
		}
		logger.Info("habit created", "habit_id", created.ID, "name", created.Name)
		return dataChangedMsg{text: "Created " + created.Name}
	})
}

func (h habitsModel) edit(id int64, name, desc string) tea.Cmd {
	b := h.b
	return b.call(func(ctx context.Context) tea.Msg {
		in := api.HabitInput{Name: &name, Description: &desc}
		updated, err := b.client.UpdateHabit(ctx, id, in)
		if err != nil {
			return errMsg{context: "update habit", err: err}
		}
		return dataChangedMsg{text: "Updated " + updated.Name}
	})
}

func (h habitsModel) toggleActive(cur calendar.Habit) tea.Cmd {
	b := h.b
	return b.call(func(ctx context.Context) tea.Msg {
		updated, err := b.client.SetHabitActive(ctx, cur.ID, !cur.Active)
		if err != nil {
			return errMsg{context: "toggle habit", err: err}
		}
		if err := b.store.SetHabitActive(updated.ID, updated.IsActive); err != nil {
			logger.Warn("update cached habit", "habit_id", updated.ID, "error", err)
		}
		state := "paused"
		if updated.IsActive {
			state = "active"
		}
		return dataChangedMsg{text: fmt.Sprintf("%s is now %s", updated.Name, state)}
	})
}

func (h habitsModel) remove(id int64) tea.Cmd {
	b := h.b
	return b.call(func(ctx context.Context) tea.Msg {
		if err := b.client.DeleteHabit(ctx, id); err != nil {
			return errMsg{context: "delete habit", err: err}
		}
		if err := b.store.DeleteHabit(id); err != nil {
			logger.Warn("drop cached habit", "habit_id", id, "error", err)
		}
		logger.Info("habit deleted", "habit_id", id)
		return dataChangedMsg{text: "Habit deleted"}
	})
}

func (h habitsModel) view() string {
	w := h.width - 4

	if h.formActive && h.form != nil {
		var title string
		switch h.formType {
		case formEditHabit:
			title = "Edit Habit"
		case formDeleteHabit:
			title = "Delete Habit"
		default:
			title = "New Habit"
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", h.form.View()),
		)
	}

	title := titleStyle.Render("Habits")
	if len(h.habits) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No habits yet. Press n to create one."),
		))
	}

	var rows []string
	rows = append(rows, title, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-2s %-24s %-8s %-8s %s", "", "Name", "Streak", "Since", "Description")))

	for i, hb := range h.habits {
		cursor := "  "
		style := normalItemStyle
		if i == h.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		dot := successStyle.Render("●")
		if !hb.Active {
			dot = mutedStyle.Render("○")
			style = style.Foreground(colorMuted)
		}
		since := hb.Created.Format("Jan 06")
		rows = append(rows, cursor+dot+" "+style.Render(fmt.Sprintf("%-24s %-8s %-8s", truncate(hb.Name, 24), fmt.Sprintf("%dd", hb.Streak), since))+
			" "+mutedStyle.Render(truncate(hb.Description, max(10, w-50))))
	}

	if cur, ok := h.current(); ok && h.stats != nil && h.statsID == cur.ID {
		rows = append(rows, "", h.renderStats())
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  e: edit  space: pause/resume  d: delete  enter: statistics"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (h habitsModel) renderStats() string {
	s := h.stats
	label := lipgloss.NewStyle().Width(18)
	lines := []string{
		highlightStyle.Render("  " + s.HabitName),
		"  " + label.Render("Total logs") + fmt.Sprintf("%d", s.TotalLogs),
		"  " + label.Render("Completed") + successStyle.Render(fmt.Sprintf("%d (%s)", s.CompletedLogs, formatRate(s.CompletionRate))),
		"  " + label.Render("Partial") + warningStyle.Render(fmt.Sprintf("%d (%s)", s.PartialLogs, formatRate(s.PartialRate))),
		"  " + label.Render("This week") + fmt.Sprintf("%d/%d (%s)", s.WeeklyCompleted, s.WeeklyTotal, formatRate(s.WeeklyCompletionRate)),
		"  " + label.Render("Current streak") + accentStyle.Render(fmt.Sprintf("%d days", s.CurrentStreak)),
	}
	return strings.Join(lines, "\n")
}
