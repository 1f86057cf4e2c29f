package api

import (
	"errors"
	"fmt"

	"github.com/sadopc/habitr/internal/calendar"
)

// Habit is the API representation of a habit.
type Habit struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     string `json:"created_at"`
	CurrentStreak int    `json:"current_streak"`
}

// Calendar converts the habit; an unparseable created_at yields calendar.ErrInvalidDate.
func (h Habit) Calendar() (calendar.Habit, error) {
	d, err := calendar.ParseDate(h.CreatedAt)
	if err != nil {
		return calendar.Habit{}, fmt.Errorf("habit %d: %w", h.ID, err)
	}
	return calendar.Habit{
		ID:          h.ID,
		Name:        h.Name,
		Description: h.Description,
		Active:      h.IsActive,
		Created:     d.Time(),
		Streak:      h.CurrentStreak,
	}, nil
}

// HabitInput is the body of create and update calls. Nil fields are left out
// so a PATCH only touches what is set.
type HabitInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func NewHabitInput(name, description string) HabitInput {
	active := true
	return HabitInput{Name: &name, Description: &description, IsActive: &active}
}

func (in HabitInput) validate() error {
	if in.Name != nil && *in.Name == "" {
		return errors.New("habit name is required")
	}
	return nil
}

type HabitLog struct {
	ID     int64  `json:"id"`
	Habit  int64  `json:"habit"`
	Date   string `json:"date"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (l HabitLog) Calendar() (calendar.HabitLog, error) {
	d, err := calendar.ParseDate(l.Date)
	if err != nil {
		return calendar.HabitLog{}, fmt.Errorf("log %d: %w", l.ID, err)
	}
	st, err := calendar.ParseLogStatus(l.Status)
	if err != nil {
		return calendar.HabitLog{}, fmt.Errorf("log %d: %w", l.ID, err)
	}
	return calendar.HabitLog{
		ID:      l.ID,
		HabitID: l.Habit,
		Date:    d.Time(),
		Status:  st,
		Notes:   l.Notes,
	}, nil
}

type LogInput struct {
	Habit  int64  `json:"habit"`
	Date   string `json:"date"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// LogFilter narrows ListLogs. Zero fields are not sent.
type LogFilter struct {
	HabitID int64
	Date    calendar.Date
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type HabitStatistics struct {
	HabitName            string  `json:"habit_name"`
	TotalLogs            int     `json:"total_logs"`
	CompletedLogs        int     `json:"completed_logs"`
	PartialLogs          int     `json:"partial_logs"`
	CurrentStreak        int     `json:"current_streak"`
	CompletionRate       float64 `json:"completion_rate"`
	PartialRate          float64 `json:"partial_rate"`
	WeeklyCompletionRate float64 `json:"weekly_completion_rate"`
	WeeklyCompleted      int     `json:"weekly_completed"`
	WeeklyTotal          int     `json:"weekly_total"`
}

type Streak struct {
	HabitName     string `json:"habit_name"`
	CurrentStreak int    `json:"current_streak"`
}

type Dashboard struct {
	TotalHabits          int      `json:"total_habits"`
	ActiveHabits         int      `json:"active_habits"`
	TodayCompletionRate  float64  `json:"today_completion_rate"`
	WeeklyCompletionRate float64  `json:"weekly_completion_rate"`
	TodayCompleted       int      `json:"today_completed"`
	TodayTotal           int      `json:"today_total"`
	BestStreaks          []Streak `json:"best_streaks"`
}

type Profile struct {
	ID                 int64  `json:"id"`
	Username           string `json:"username"`
	Email              string `json:"email"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	BackgroundImageURL string `json:"background_image_url,omitempty"`
}

type ProfileUpdate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

var (
	ErrPasswordMismatch = errors.New("new passwords do not match")
	ErrPasswordTooShort = errors.New("new password must be at least 8 characters")
)

type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate mirrors the checks the server would reject anyway.
func (p PasswordChange) Validate() error {
	if p.NewPassword != p.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if len(p.NewPassword) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}

// ConvertHabits converts a list, failing on the first invalid record.
func ConvertHabits(in []Habit) ([]calendar.Habit, error) {
	out := make([]calendar.Habit, 0, len(in))
	for _, h := range in {
		ch, err := h.Calendar()
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, nil
}

func ConvertLogs(in []HabitLog) ([]calendar.HabitLog, error) {
	out := make([]calendar.HabitLog, 0, len(in))
	for _, l := range in {
		cl, err := l.Calendar()
		if err != nil {
			return nil, err
		}
		out = append(out, cl)
	}
	return out, nil
}
