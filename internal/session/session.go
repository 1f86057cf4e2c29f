// Package session keeps the signed-in user's tokens and profile.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sadopc/habitr/internal/api"
	"github.com/sadopc/habitr/internal/logger"
	"github.com/sadopc/habitr/internal/store"
)

var (
	ErrNoSession = errors.New("not logged in")
	ErrExpired   = errors.New("session expired, log in again")
)

// refreshSkew renews tokens slightly before they lapse.
const refreshSkew = 30 * time.Second

// Manager owns the token pair. It installs itself as the client's token
// source, and a 401 from the API drops the session.
type Manager struct {
	client *api.Client
	store  *store.Store

	mu       sync.RWMutex
	username string
	access   string
	refresh  string
	profile  *api.Profile
	keyring  bool
}

func New(client *api.Client, st *store.Store) *Manager {
	m := &Manager{client: client, store: st}
	client.SetTokenSource(m.accessToken)
	client.OnUnauthorized(m.invalidate)
	return m
}

// Restore loads a previously saved session from the keyring, then from the
// database. It returns ErrNoSession when neither holds one.
func (m *Manager) Restore() error {
	sec, err := keyringGet()
	switch {
	case err == nil:
		m.set(sec, true)
		return nil
	case errors.Is(err, ErrKeyringNotFound):
	default:
		logger.Warn("keyring read failed, using database", "error", err)
	}

	creds, err := m.store.LoadCredentials()
	if errors.Is(err, store.ErrNoSession) {
		return ErrNoSession
	}
	if err != nil {
		return err
	}
	m.set(secret{Username: creds.Username, Access: creds.Access, Refresh: creds.Refresh}, false)
	return nil
}

// Login authenticates, persists the tokens and loads the profile. A failed
// profile call is not fatal; the profile falls back to the username.
func (m *Manager) Login(ctx context.Context, username, password string) (*api.Profile, error) {
	pair, err := m.client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	sec := secret{Username: username, Access: pair.Access, Refresh: pair.Refresh}
	if err := m.persist(sec); err != nil {
		return nil, err
	}
	logger.Info("logged in", "username", username, "keyring", m.usesKeyring())

	profile, err := m.client.Profile(ctx)
	if err != nil {
		logger.Warn("profile fetch failed", "error", err)
		profile = &api.Profile{Username: username}
	}
	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()
	return profile, nil
}

// Logout forgets the session everywhere it may be stored.
func (m *Manager) Logout() error {
	m.clear()
	kerr := keyringDelete()
	if kerr != nil {
		logger.Warn("keyring delete failed", "error", kerr)
	}
	if err := m.store.ClearCredentials(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	logger.Info("logged out")
	return nil
}

// Token returns the current access token.
func (m *Manager) Token() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.access == "" {
		return "", ErrNoSession
	}
	return m.access, nil
}

func (m *Manager) LoggedIn() bool {
	_, err := m.Token()
	return err == nil
}

func (m *Manager) Username() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.username
}

// Profile returns the cached profile, fetching it on first use.
func (m *Manager) Profile(ctx context.Context) (*api.Profile, error) {
	m.mu.RLock()
	p := m.profile
	m.mu.RUnlock()
	if p != nil {
		return p, nil
	}
	p, err := m.client.Profile(ctx)
	if err != nil {
		return nil, err
	}
	m.SetProfile(p)
	return p, nil
}

// SetProfile replaces the cached profile after an update.
func (m *Manager) SetProfile(p *api.Profile) {
	m.mu.Lock()
	m.profile = p
	m.mu.Unlock()
}

// Expired reports whether the access token's exp claim is at or before now.
// Tokens without exp never expire; undecodable tokens count as expired.
func (m *Manager) Expired(now time.Time) bool {
	m.mu.RLock()
	access := m.access
	m.mu.RUnlock()
	if access == "" {
		return true
	}
	return tokenExpired(access, now)
}

// EnsureFresh refreshes the access token if it expires within a short skew.
// If the refresh token is itself expired or rejected the session is dropped
// and ErrExpired returned.
func (m *Manager) EnsureFresh(ctx context.Context, now time.Time) error {
	m.mu.RLock()
	sec := secret{Username: m.username, Access: m.access, Refresh: m.refresh}
	m.mu.RUnlock()

	if sec.Access == "" {
		return ErrNoSession
	}
	if !tokenExpired(sec.Access, now.Add(refreshSkew)) {
		return nil
	}
	if sec.Refresh == "" || tokenExpired(sec.Refresh, now) {
		_ = m.Logout()
		return ErrExpired
	}

	pair, err := m.client.Refresh(ctx, sec.Refresh)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			_ = m.Logout()
			return ErrExpired
		}
		return err
	}
	sec.Access, sec.Refresh = pair.Access, pair.Refresh
	logger.Debug("access token refreshed", "username", sec.Username)
	return m.persist(sec)
}

func tokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(now)
}

// persist saves to the keyring, falling back to the database.
func (m *Manager) persist(sec secret) error {
	useKeyring := true
	if err := keyringSet(sec); err != nil {
		logger.Warn("keyring unavailable, storing session in database", "error", err)
		useKeyring = false
		err = m.store.SaveCredentials(store.Credentials{
			Username: sec.Username, Access: sec.Access, Refresh: sec.Refresh,
		})
		if err != nil {
			return err
		}
		_ = keyringDelete()
	} else if err := m.store.ClearCredentials(); err != nil {
		logger.Warn("clear database session", "error", err)
	}
	m.set(sec, useKeyring)
	return nil
}

func (m *Manager) set(sec secret, useKeyring bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sec.Username != m.username {
		m.profile = nil
	}
	m.username, m.access, m.refresh = sec.Username, sec.Access, sec.Refresh
	m.keyring = useKeyring
}

func (m *Manager) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.username, m.access, m.refresh = "", "", ""
	m.profile = nil
}

func (m *Manager) usesKeyring() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.keyring
}

func (m *Manager) accessToken() string {
	tok, _ := m.Token()
	return tok
}

// invalidate runs on 401 responses.
func (m *Manager) invalidate() {
	if !m.LoggedIn() {
		return
	}
	logger.Warn("api rejected token, dropping session", "username", m.Username())
	_ = m.Logout()
}
