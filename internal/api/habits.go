package api

import (
	"context"
	"fmt"
)

func (c *Client) ListHabits(ctx context.Context) ([]Habit, error) {
	var out []Habit
	if err := c.get(ctx, "/habits/", nil, &out); err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return out, nil
}

func (c *Client) ListActiveHabits(ctx context.Context) ([]Habit, error) {
	var out []Habit
	if err := c.get(ctx, "/habits/active/", nil, &out); err != nil {
		return nil, fmt.Errorf("list active habits: %w", err)
	}
	return out, nil
}

func (c *Client) CreateHabit(ctx context.Context, in HabitInput) (*Habit, error) {
	if in.Name == nil {
		return nil, fmt.Errorf("create habit: name is required")
	}
	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	var out Habit
	if err := c.post(ctx, "/habits/", in, &out); err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &out, nil
}

func (c *Client) UpdateHabit(ctx context.Context, id int64, in HabitInput) (*Habit, error) {
	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("update habit %d: %w", id, err)
	}
	var out Habit
	if err := c.patch(ctx, fmt.Sprintf("/habits/%d/", id), in, &out); err != nil {
		return nil, fmt.Errorf("update habit %d: %w", id, err)
	}
	return &out, nil
}

// SetHabitActive flips only the active flag.
func (c *Client) SetHabitActive(ctx context.Context, id int64, active bool) (*Habit, error) {
	return c.UpdateHabit(ctx, id, HabitInput{IsActive: &active})
}

func (c *Client) DeleteHabit(ctx context.Context, id int64) error {
	if err := c.delete(ctx, fmt.Sprintf("/habits/%d/", id)); err != nil {
		return fmt.Errorf("delete habit %d: %w", id, err)
	}
	return nil
}

func (c *Client) HabitStatistics(ctx context.Context, id int64) (*HabitStatistics, error) {
	var out HabitStatistics
	if err := c.get(ctx, fmt.Sprintf("/habits/%d/statistics/", id), nil, &out); err != nil {
		return nil, fmt.Errorf("habit %d statistics: %w", id, err)
	}
	return &out, nil
}
