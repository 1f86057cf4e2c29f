package calendar

import (
	"fmt"
	"time"
)

// Key addresses one calendar cell.
type Key struct {
	HabitID int64
	Date    Date
}

// Cell is the derived display state of one habit on one day.
type Cell struct {
	HabitID  int64
	Date     Date
	Status   DisplayStatus
	Editable bool
	// Log is the log backing Status, nil when none applies.
	Log *HabitLog
}

// Grid is the result of one reconciliation pass.
type Grid struct {
	Month  Month
	Today  Date
	Habits []Habit
	Cells  map[Key]Cell
}

// Reconcile computes a cell for every habit and every day of month.
//
// The function is pure. It never reads a clock, never mutates its inputs and
// only consults logs dated inside month. When several logs share a habit and
// date the first one in input order wins. Habits repeating an earlier ID are
// skipped.
func Reconcile(habits []Habit, logs []HabitLog, month Month, today time.Time) (Grid, error) {
	if !month.valid() {
		return Grid{}, fmt.Errorf("%w: month %d", ErrInvalidDate, int(month.Month))
	}
	todayDate, err := DateOf(today)
	if err != nil {
		return Grid{}, fmt.Errorf("today: %w", err)
	}

	byKey := make(map[Key]HabitLog, len(logs))
	for _, l := range logs {
		d, err := DateOf(l.Date)
		if err != nil {
			return Grid{}, fmt.Errorf("log %d: %w", l.ID, err)
		}
		if !month.Contains(d) {
			continue
		}
		k := Key{HabitID: l.HabitID, Date: d}
		if _, dup := byKey[k]; dup {
			continue
		}
		byKey[k] = l
	}

	days := month.Dates()
	g := Grid{
		Month: month,
		Today: todayDate,
		Cells: make(map[Key]Cell, len(habits)*len(days)),
	}
	seen := make(map[int64]bool, len(habits))
	for _, h := range habits {
		if seen[h.ID] {
			continue
		}
		seen[h.ID] = true

		created, err := DateOf(h.Created)
		if err != nil {
			return Grid{}, fmt.Errorf("habit %d created: %w", h.ID, err)
		}
		g.Habits = append(g.Habits, h)

		for _, d := range days {
			k := Key{HabitID: h.ID, Date: d}
			c := Cell{HabitID: h.ID, Date: d}
			switch {
			case d.Before(created):
				c.Status = DisplayBeforeCreation
			case d.After(todayDate):
				c.Status = DisplayFuture
			default:
				c.Status = DisplayNotDone
				if l, ok := byKey[k]; ok {
					c.Status = displayFromLog(l.Status)
					c.Log = &l
				}
			}
			c.Editable = d == todayDate && !d.Before(created)
			g.Cells[k] = c
		}
	}
	return g, nil
}

// Cell returns the cell for habitID on day (1-based) of the grid's month.
func (g Grid) Cell(habitID int64, day int) (Cell, bool) {
	c, ok := g.Cells[Key{HabitID: habitID, Date: Date{Year: g.Month.Year, Month: g.Month.Month, Day: day}}]
	return c, ok
}

// Row returns the habit's cells ordered by day.
func (g Grid) Row(habitID int64) []Cell {
	days := g.Month.Dates()
	row := make([]Cell, 0, len(days))
	for _, d := range days {
		if c, ok := g.Cells[Key{HabitID: habitID, Date: d}]; ok {
			row = append(row, c)
		}
	}
	return row
}

func (g Grid) Len() int { return len(g.Cells) }
