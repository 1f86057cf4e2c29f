package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sadopc/habitr/internal/calendar"
	"github.com/sadopc/habitr/internal/logger"
)

type LogCmd struct {
	Habit  string `required:"" help:"Habit name or ID."`
	Status string `required:"" enum:"completed,partial,not_done" help:"completed, partial or not_done."`
	Notes  string `short:"n" help:"Optional notes."`
}

// Run records today's status. Only today's cell of an existing habit is
// writable, the same rule the calendar enforces.
func (cmd *LogCmd) Run(c *Context) error {
	status, err := calendar.ParseLogStatus(cmd.Status)
	if err != nil {
		return err
	}
	ctx, cancel, err := c.authed()
	if err != nil {
		return err
	}
	defer cancel()

	today := c.today()
	g, err := c.loadGrid(ctx, calendar.MonthOf(today))
	if err != nil {
		return err
	}
	if g.offline {
		return fmt.Errorf("offline: cannot reach %s", c.Client.BaseURL())
	}

	h, ok := findHabit(g.Habits, cmd.Habit)
	if !ok {
		return fmt.Errorf("no active habit %q", cmd.Habit)
	}
	cell, ok := g.Cell(h.ID, today.Day)
	if !ok || !cell.Editable {
		return fmt.Errorf("%s did not exist on %s", h.Name, today)
	}

	if _, err := c.Client.SaveLog(ctx, h.ID, today, status, strings.TrimSpace(cmd.Notes)); err != nil {
		return err
	}
	logger.Info("log saved", "habit_id", h.ID, "date", today.String(), "status", status.String())
	fmt.Fprintf(c.Out, "%s: %s on %s\n", h.Name, status.Label(), today)
	return nil
}

// findHabit matches an ID first, then a case-insensitive name.
func findHabit(habits []calendar.Habit, ref string) (calendar.Habit, bool) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for _, h := range habits {
			if h.ID == id {
				return h, true
			}
		}
	}
	for _, h := range habits {
		if strings.EqualFold(h.Name, strings.TrimSpace(ref)) {
			return h, true
		}
	}
	return calendar.Habit{}, false
}
