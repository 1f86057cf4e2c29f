package cli

import (
	"fmt"
	"strings"

	"github.com/sadopc/habitr/internal/calendar"
)

type CalendarCmd struct {
	Month string `short:"m" help:"Month to show as YYYY-MM. Defaults to the current month."`
}

func (cmd *CalendarCmd) Run(c *Context) error {
	month, err := c.monthOrCurrent(cmd.Month)
	if err != nil {
		return err
	}
	ctx, cancel, err := c.authed()
	if err != nil {
		return err
	}
	defer cancel()

	g, err := c.loadGrid(ctx, month)
	if err != nil {
		return err
	}
	fmt.Fprint(c.Out, renderGrid(g))
	return nil
}

var glyphs = map[calendar.DisplayStatus]byte{
	calendar.DisplayCompleted:      '#',
	calendar.DisplayPartial:        '+',
	calendar.DisplayNotDone:        '.',
	calendar.DisplayFuture:         ' ',
	calendar.DisplayBeforeCreation: ' ',
}

const nameWidth = 16

func renderGrid(g grid) string {
	var b strings.Builder
	b.WriteString(g.Month.Title())
	if g.offline {
		fmt.Fprintf(&b, " (offline, synced %s)", g.syncedAt.Local().Format("Jan 02 15:04"))
	}
	b.WriteString("\n\n")

	days := g.Month.Days()
	fmt.Fprintf(&b, "%-*s ", nameWidth, "")
	for d := 1; d <= days; d++ {
		b.WriteByte(byte('0' + d%10))
	}
	b.WriteByte('\n')

	if len(g.Habits) == 0 {
		b.WriteString("No active habits.\n")
		return b.String()
	}
	for _, h := range g.Habits {
		name := []rune(h.Name)
		if len(name) > nameWidth {
			name = name[:nameWidth]
		}
		fmt.Fprintf(&b, "%-*s ", nameWidth, string(name))
		for _, cell := range g.Row(h.ID) {
			ch := glyphs[cell.Status]
			if cell.Editable && cell.Log == nil {
				ch = '_'
			}
			b.WriteByte(ch)
		}
		b.WriteByte('\n')
	}

	s := calendar.Summarize(g.Grid)
	fmt.Fprintf(&b, "\n# completed  + partial  . not done  _ today\n")
	fmt.Fprintf(&b, "%d completed, %d partial, %d not done (%.0f%%)\n",
		s.Completed, s.Partial, s.NotDone, s.CompletionRate())
	return b.String()
}
