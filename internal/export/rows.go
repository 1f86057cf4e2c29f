package export

import (
	"github.com/sadopc/habitr/internal/calendar"
)

// Row is one exported calendar cell.
type Row struct {
	HabitID  int64  `json:"habit_id"`
	Habit    string `json:"habit"`
	Date     string `json:"date"`
	Status   string `json:"status"`
	Editable bool   `json:"editable"`
	Notes    string `json:"notes,omitempty"`
}

// Rows flattens a grid habit by habit, each habit's days in order.
func Rows(g calendar.Grid) []Row {
	rows := make([]Row, 0, g.Len())
	for _, h := range g.Habits {
		for _, c := range g.Row(h.ID) {
			r := Row{
				HabitID:  h.ID,
				Habit:    h.Name,
				Date:     c.Date.String(),
				Status:   c.Status.String(),
				Editable: c.Editable,
			}
			if c.Log != nil {
				r.Notes = c.Log.Notes
			}
			rows = append(rows, r)
		}
	}
	return rows
}
