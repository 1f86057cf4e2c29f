// Package cli implements the habitr subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sadopc/habitr/internal/api"
	"github.com/sadopc/habitr/internal/calendar"
	"github.com/sadopc/habitr/internal/logger"
	"github.com/sadopc/habitr/internal/session"
	"github.com/sadopc/habitr/internal/store"
)

// Context carries the services every command runs against.
type Context struct {
	Client  *api.Client
	Session *session.Manager
	Store   *store.Store
	Out     io.Writer
	Now     func() time.Time
	Timeout time.Duration
}

func (c *Context) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Context) today() calendar.Date {
	d, _ := calendar.DateOf(c.now())
	return d
}

func (c *Context) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

// authed returns a request context after making sure the session is usable.
func (c *Context) authed() (context.Context, context.CancelFunc, error) {
	if !c.Session.LoggedIn() {
		return nil, nil, errors.New("not logged in, run: habitr login")
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout())
	if err := c.Session.EnsureFresh(ctx, c.now()); err != nil {
		cancel()
		return nil, nil, err
	}
	return ctx, cancel, nil
}

// monthOrCurrent parses a YYYY-MM flag, defaulting to the current month.
func (c *Context) monthOrCurrent(s string) (calendar.Month, error) {
	if s == "" {
		return calendar.MonthOf(c.today()), nil
	}
	return calendar.ParseMonth(s)
}

// grid is a reconciled month plus where it came from.
type grid struct {
	calendar.Grid
	offline  bool
	syncedAt time.Time
}

// loadGrid fetches month and caches it, falling back to the cached snapshot
// when the API is unreachable.
func (c *Context) loadGrid(ctx context.Context, month calendar.Month) (grid, error) {
	data, err := c.Client.FetchMonth(ctx, month, c.today())
	if err == nil {
		now := c.now()
		if serr := c.Store.SaveSnapshot(month, data.Habits, data.Logs, now); serr != nil {
			logger.Warn("cache snapshot failed", "month", month.String(), "error", serr)
		}
		g, err := calendar.Reconcile(data.Habits, data.Logs, month, now)
		return grid{Grid: g, syncedAt: now}, err
	}
	if errors.Is(err, api.ErrUnauthorized) {
		return grid{}, session.ErrExpired
	}

	logger.Warn("fetch month failed, trying cache", "month", month.String(), "error", err)
	snap, cerr := c.Store.LoadSnapshot(month)
	if cerr != nil {
		if errors.Is(cerr, store.ErrNoSnapshot) {
			return grid{}, err
		}
		return grid{}, fmt.Errorf("%w (cache: %v)", err, cerr)
	}
	g, rerr := calendar.Reconcile(snap.Habits, snap.Logs, month, c.now())
	return grid{Grid: g, offline: true, syncedAt: snap.SyncedAt}, rerr
}
