package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoSession is returned when no credentials are stored.
var ErrNoSession = errors.New("no stored session")

// Credentials is the token pair persisted when the OS keyring is unavailable.
type Credentials struct {
	Username  string
	Access    string
	Refresh   string
	UpdatedAt time.Time
}

func (s *Store) SaveCredentials(c Credentials) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO session (id, username, access, refresh, updated_at) VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username, access = excluded.access,
			refresh = excluded.refresh, updated_at = excluded.updated_at`,
		c.Username, c.Access, c.Refresh, c.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *Store) LoadCredentials() (Credentials, error) {
	var (
		c       Credentials
		updated string
	)
	err := s.db.QueryRow(`SELECT username, access, refresh, updated_at FROM session WHERE id = 1`).
		Scan(&c.Username, &c.Access, &c.Refresh, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Credentials{}, ErrNoSession
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return c, nil
}

func (s *Store) ClearCredentials() error {
	_, err := s.db.Exec(`DELETE FROM session`)
	return err
}
