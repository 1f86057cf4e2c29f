package calendar

import "fmt"

// DayCount is the number of logs per status on one day.
type DayCount struct {
	Date      Date
	Completed int
	Partial   int
	NotDone   int
}

func (c DayCount) Total() int { return c.Completed + c.Partial + c.NotDone }

// MonthlyCounts counts logs by status for every day of month. Logs outside
// the month are ignored. Every log counts, including duplicates, because the
// chart reports what the server returned.
func MonthlyCounts(logs []HabitLog, month Month) ([]DayCount, error) {
	if !month.valid() {
		return nil, fmt.Errorf("%w: month %d", ErrInvalidDate, int(month.Month))
	}
	out := make([]DayCount, month.Days())
	for i, d := range month.Dates() {
		out[i].Date = d
	}
	for _, l := range logs {
		d, err := DateOf(l.Date)
		if err != nil {
			return nil, fmt.Errorf("log %d: %w", l.ID, err)
		}
		if !month.Contains(d) {
			continue
		}
		c := &out[d.Day-1]
		switch l.Status {
		case LogCompleted:
			c.Completed++
		case LogPartial:
			c.Partial++
		case LogNotDone:
			c.NotDone++
		}
	}
	return out, nil
}

// Summary totals a grid's cells by display status.
type Summary struct {
	Completed      int
	Partial        int
	NotDone        int
	Future         int
	BeforeCreation int
}

// Tracked is the number of cells that carry a result (past or today, in range).
func (s Summary) Tracked() int { return s.Completed + s.Partial + s.NotDone }

// CompletionRate is the percentage of tracked cells that are completed.
func (s Summary) CompletionRate() float64 {
	if s.Tracked() == 0 {
		return 0
	}
	return float64(s.Completed) * 100 / float64(s.Tracked())
}

// PartialRate is the percentage of tracked cells that are partial.
func (s Summary) PartialRate() float64 {
	if s.Tracked() == 0 {
		return 0
	}
	return float64(s.Partial) * 100 / float64(s.Tracked())
}

func Summarize(g Grid) Summary {
	var s Summary
	for _, c := range g.Cells {
		s.add(c.Status)
	}
	return s
}

// SummarizeHabit totals a single habit's row.
func SummarizeHabit(g Grid, habitID int64) Summary {
	var s Summary
	for _, c := range g.Row(habitID) {
		s.add(c.Status)
	}
	return s
}

func (s *Summary) add(st DisplayStatus) {
	switch st {
	case DisplayCompleted:
		s.Completed++
	case DisplayPartial:
		s.Partial++
	case DisplayNotDone:
		s.NotDone++
	case DisplayFuture:
		s.Future++
	case DisplayBeforeCreation:
		s.BeforeCreation++
	}
}
