package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/habitr/internal/calendar"
)

// Snapshot is the last synced copy of one month.
type Snapshot struct {
	Month    calendar.Month
	Habits   []calendar.Habit
	Logs     []calendar.HabitLog
	SyncedAt time.Time
}

// SaveSnapshot replaces the cached habits and the month's logs in one
// transaction. habits is the full active set from the server; cached habits
// missing from it are marked inactive. Logs dated outside the month are not
// stored.
func (s *Store) SaveSnapshot(month calendar.Month, habits []calendar.Habit, logs []calendar.HabitLog, now time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	syncedAt := now.UTC().Format(time.RFC3339)

	for _, h := range habits {
		created, err := calendar.DateOf(h.Created)
		if err != nil {
			return fmt.Errorf("habit %d: %w", h.ID, err)
		}
		_, err = tx.Exec(`
			INSERT INTO habits (id, name, description, active, created_on, streak, synced_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, description = excluded.description,
				active = excluded.active, created_on = excluded.created_on,
				streak = excluded.streak, synced_at = excluded.synced_at`,
			h.ID, h.Name, h.Description, boolToInt(h.Active), created.String(), h.Streak, syncedAt,
		)
		if err != nil {
			return fmt.Errorf("save habit %d: %w", h.ID, err)
		}
	}

	if err := deactivateMissing(tx, habits); err != nil {
		return err
	}

	first, last := month.First().String(), month.Last().String()
	if _, err := tx.Exec(`DELETE FROM habit_logs WHERE date BETWEEN ? AND ?`, first, last); err != nil {
		return fmt.Errorf("clear month logs: %w", err)
	}
	for _, l := range logs {
		d, err := calendar.DateOf(l.Date)
		if err != nil {
			return fmt.Errorf("log %d: %w", l.ID, err)
		}
		if !month.Contains(d) {
			continue
		}
		_, err = tx.Exec(`
			INSERT INTO habit_logs (id, habit_id, date, status, notes) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				habit_id = excluded.habit_id, date = excluded.date,
				status = excluded.status, notes = excluded.notes`,
			l.ID, l.HabitID, d.String(), l.Status.String(), l.Notes,
		)
		if err != nil {
			return fmt.Errorf("save log %d: %w", l.ID, err)
		}
	}

	_, err = tx.Exec(
		`INSERT INTO snapshots (month, synced_at) VALUES (?, ?)
		 ON CONFLICT(month) DO UPDATE SET synced_at = excluded.synced_at`,
		month.String(), syncedAt,
	)
	if err != nil {
		return fmt.Errorf("mark snapshot: %w", err)
	}
	return tx.Commit()
}

// LoadSnapshot returns the cached month, or ErrNoSnapshot if it was never saved.
// Only active habits are returned, matching what the calendar shows online.
func (s *Store) LoadSnapshot(month calendar.Month) (*Snapshot, error) {
	var synced string
	err := s.db.QueryRow(`SELECT synced_at FROM snapshots WHERE month = ?`, month.String()).Scan(&synced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", month, err)
	}

	snap := &Snapshot{Month: month}
	snap.SyncedAt, _ = time.Parse(time.RFC3339, synced)

	if snap.Habits, err = s.Habits(true); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT id, habit_id, date, status, notes FROM habit_logs WHERE date BETWEEN ? AND ? ORDER BY date, id`,
		month.First().String(), month.Last().String(),
	)
	if err != nil {
		return nil, fmt.Errorf("load logs: %w", err)
	}
	defer rows.Close()
	snap.Logs, err = scanLogs(rows)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Habits lists cached habits ordered by name.
func (s *Store) Habits(activeOnly bool) ([]calendar.Habit, error) {
	q := `SELECT id, name, description, active, created_on, streak FROM habits`
	if activeOnly {
		q += ` WHERE active = 1`
	}
	q += ` ORDER BY name COLLATE NOCASE, id`

	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var habits []calendar.Habit
	for rows.Next() {
		var (
			h       calendar.Habit
			active  int
			created string
		)
		if err := rows.Scan(&h.ID, &h.Name, &h.Description, &active, &created, &h.Streak); err != nil {
			return nil, err
		}
		d, err := calendar.ParseDate(created)
		if err != nil {
			return nil, fmt.Errorf("habit %d: %w", h.ID, err)
		}
		h.Active = active == 1
		h.Created = d.Time()
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func deactivateMissing(tx *sql.Tx, habits []calendar.Habit) error {
	query := `UPDATE habits SET active = 0`
	args := make([]any, len(habits))
	for i, h := range habits {
		args[i] = h.ID
	}
	if len(habits) > 0 {
		query += ` WHERE id NOT IN (?` + strings.Repeat(`, ?`, len(habits)-1) + `)`
	}
	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("deactivate missing habits: %w", err)
	}
	return nil
}

// SetHabitActive updates the cached active flag of one habit. Unknown ids are
// ignored; the next sync brings them in.
func (s *Store) SetHabitActive(id int64, active bool) error {
	if _, err := s.db.Exec(`UPDATE habits SET active = ? WHERE id = ?`, boolToInt(active), id); err != nil {
		return fmt.Errorf("set habit %d active: %w", id, err)
	}
	return nil
}

// HabitLogs returns every cached log of a habit, newest first.
func (s *Store) HabitLogs(habitID int64) ([]calendar.HabitLog, error) {
	rows, err := s.db.Query(
		`SELECT id, habit_id, date, status, notes FROM habit_logs WHERE habit_id = ? ORDER BY date DESC, id DESC`,
		habitID,
	)
	if err != nil {
		return nil, fmt.Errorf("habit logs: %w", err)
	}
	defer rows.Close()
	return scanLogs(rows)
}

// DeleteHabit drops a habit and its cached logs.
func (s *Store) DeleteHabit(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM habit_logs WHERE habit_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM habits WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func scanLogs(rows *sql.Rows) ([]calendar.HabitLog, error) {
	var logs []calendar.HabitLog
	for rows.Next() {
		var (
			l      calendar.HabitLog
			date   string
			status string
		)
		if err := rows.Scan(&l.ID, &l.HabitID, &date, &status, &l.Notes); err != nil {
			return nil, err
		}
		d, err := calendar.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("log %d: %w", l.ID, err)
		}
		if l.Status, err = calendar.ParseLogStatus(status); err != nil {
			return nil, fmt.Errorf("log %d: %w", l.ID, err)
		}
		l.Date = d.Time()
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
