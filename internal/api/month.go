package api

import (
	"context"
	"fmt"

	"github.com/sadopc/habitr/internal/calendar"
	"golang.org/x/sync/errgroup"
)

// MonthData is a consistent snapshot of active habits and their logs.
type MonthData struct {
	Month  calendar.Month
	Habits []calendar.Habit
	Logs   []calendar.HabitLog
}

// FetchMonth loads active habits and the logs covering month concurrently and
// returns only when both succeed. The server's monthly endpoint covers the
// current month, so other months fall back to the full log list and rely on
// calendar.Reconcile to ignore days outside the month.
func (c *Client) FetchMonth(ctx context.Context, month calendar.Month, today calendar.Date) (*MonthData, error) {
	var (
		habits []Habit
		logs   []HabitLog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		habits, err = c.ListActiveHabits(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		if month.Contains(today) {
			logs, err = c.MonthlyLogs(gctx)
		} else {
			logs, err = c.ListLogs(gctx, LogFilter{})
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", month, err)
	}

	ch, err := ConvertHabits(habits)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", month, err)
	}
	cl, err := ConvertLogs(logs)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", month, err)
	}
	return &MonthData{Month: month, Habits: ch, Logs: cl}, nil
}
