package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sadopc/habitr/internal/calendar"
)

func (c *Client) ListLogs(ctx context.Context, f LogFilter) ([]HabitLog, error) {
	q := url.Values{}
	if f.HabitID != 0 {
		q.Set("habit_id", strconv.FormatInt(f.HabitID, 10))
	}
	if !f.Date.IsZero() {
		q.Set("date", f.Date.String())
	}
	var out []HabitLog
	if err := c.get(ctx, "/habit-logs/", q, &out); err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	return out, nil
}

func (c *Client) CreateLog(ctx context.Context, in LogInput) (*HabitLog, error) {
	var out HabitLog
	if err := c.post(ctx, "/habit-logs/", in, &out); err != nil {
		return nil, fmt.Errorf("create log: %w", err)
	}
	return &out, nil
}

func (c *Client) UpdateLog(ctx context.Context, id int64, in LogInput) (*HabitLog, error) {
	var out HabitLog
	if err := c.patch(ctx, fmt.Sprintf("/habit-logs/%d/", id), in, &out); err != nil {
		return nil, fmt.Errorf("update log %d: %w", id, err)
	}
	return &out, nil
}

func (c *Client) DeleteLog(ctx context.Context, id int64) error {
	if err := c.delete(ctx, fmt.Sprintf("/habit-logs/%d/", id)); err != nil {
		return fmt.Errorf("delete log %d: %w", id, err)
	}
	return nil
}

func (c *Client) TodayLogs(ctx context.Context) ([]HabitLog, error) {
	return c.listNamed(ctx, "today")
}

func (c *Client) WeeklyLogs(ctx context.Context) ([]HabitLog, error) {
	return c.listNamed(ctx, "weekly")
}

// MonthlyLogs returns the server's current month only.
func (c *Client) MonthlyLogs(ctx context.Context) ([]HabitLog, error) {
	return c.listNamed(ctx, "monthly")
}

func (c *Client) listNamed(ctx context.Context, name string) ([]HabitLog, error) {
	var out []HabitLog
	if err := c.get(ctx, "/habit-logs/"+name+"/", nil, &out); err != nil {
		return nil, fmt.Errorf("%s logs: %w", name, err)
	}
	return out, nil
}

// SaveLog records status for habitID on date, updating the existing log for
// that day when there is one.
func (c *Client) SaveLog(ctx context.Context, habitID int64, date calendar.Date, status calendar.LogStatus, notes string) (*HabitLog, error) {
	existing, err := c.ListLogs(ctx, LogFilter{HabitID: habitID, Date: date})
	if err != nil {
		return nil, err
	}
	in := LogInput{Habit: habitID, Date: date.String(), Status: status.String(), Notes: notes}
	for _, l := range existing {
		if l.Habit != habitID {
			continue
		}
		if d, err := calendar.ParseDate(l.Date); err == nil && d == date {
			return c.UpdateLog(ctx, l.ID, in)
		}
	}
	return c.CreateLog(ctx, in)
}
