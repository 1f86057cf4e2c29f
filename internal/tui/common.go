package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/habitr/internal/api"
	"github.com/sadopc/habitr/internal/calendar"
	"github.com/sadopc/habitr/internal/logger"
	"github.com/sadopc/habitr/internal/session"
	"github.com/sadopc/habitr/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewCalendar viewState = iota
	viewHabits
	viewStatistics
	viewProfile
)

var viewNames = []string{"Calendar", "Habits", "Statistics", "Profile"}

const requestTimeout = 20 * time.Second

// Deps are the services the views talk to. Now defaults to time.Now.
type Deps struct {
	Client  *api.Client
	Session *session.Manager
	Store   *store.Store
	Now     func() time.Time
}

// backend is shared by every view.
type backend struct {
	client  *api.Client
	session *session.Manager
	store   *store.Store
	now     func() time.Time
}

func newBackend(d Deps) *backend {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &backend{client: d.Client, session: d.Session, store: d.Store, now: now}
}

func (b *backend) today() calendar.Date {
	d, _ := calendar.DateOf(b.now())
	return d
}

// call runs fn in a command with a request timeout, refreshing the access
// token first. Session loss turns into loggedOutMsg.
func (b *backend) call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := b.session.EnsureFresh(ctx, b.now()); err != nil {
			if errors.Is(err, session.ErrExpired) || errors.Is(err, session.ErrNoSession) {
				return loggedOutMsg{reason: err.Error()}
			}
			logger.Warn("token refresh failed", "error", err)
		}
		msg := fn(ctx)
		if e, ok := msg.(errMsg); ok && errors.Is(e.err, api.ErrUnauthorized) {
			return loggedOutMsg{reason: "session expired, log in again"}
		}
		return msg
	}
}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type errMsg struct {
	context string
	err     error
}

func (e errMsg) status() statusMsg {
	return statusMsg{text: fmt.Sprintf("%s: %v", e.context, e.err), isError: true}
}

type tickMsg time.Time

type loginDoneMsg struct {
	profile *api.Profile
}

type loginFailedMsg struct {
	err error
}

type loggedOutMsg struct {
	reason string
}

type exportDoneMsg struct {
	path string
}

// dataChangedMsg is sent after any write so views holding habits reload.
type dataChangedMsg struct {
	text string
}

// --- Helpers ---

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func formatRate(pct float64) string {
	return fmt.Sprintf("%.0f%%", pct)
}

func formatSynced(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return t.Local().Format("Jan 02 15:04")
}
