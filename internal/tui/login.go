package tui

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/habitr/internal/api"
)

type loginModel struct {
	b      *backend
	width  int
	height int

	form     *huh.Form
	username *string
	password *string
	busy     bool
	err      string
}

func newLoginModel(b *backend, username string) loginModel {
	u, pw := username, ""
	l := loginModel{b: b, username: &u, password: &pw}
	l.form = l.buildForm()
	return l
}

func (l loginModel) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Username").Value(l.username).Validate(requireField("username")),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(l.password).
				Validate(requireField("password")),
		),
	).WithShowHelp(true).WithShowErrors(true)
}

func requireField(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(name + " is required")
		}
		return nil
	}
}

func (l loginModel) Init() tea.Cmd {
	return l.form.Init()
}

func (l *loginModel) setSize(w, h int) {
	l.width = w
	l.height = h
}

func (l loginModel) submit() tea.Cmd {
	username, password := strings.TrimSpace(*l.username), *l.password
	b := l.b
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		prof, err := b.session.Login(ctx, username, password)
		if err != nil {
			return loginFailedMsg{err: err}
		}
		return loginDoneMsg{profile: prof}
	}
}

func (l loginModel) update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loginFailedMsg:
		l.busy = false
		l.err = loginError(msg.err)
		*l.password = ""
		l.form = l.buildForm()
		return l, l.form.Init()
	}

	if l.busy {
		return l, nil
	}

	form, cmd := l.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		l.form = f
	}
	if l.form.State == huh.StateCompleted {
		l.busy = true
		l.err = ""
		return l, l.submit()
	}
	return l, cmd
}

func loginError(err error) string {
	var apiErr *api.Error
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return "Invalid username or password"
	case errors.As(err, &apiErr) && apiErr.Detail != "":
		return apiErr.Detail
	case errors.Is(err, context.DeadlineExceeded):
		return "Server did not respond in time"
	}
	return err.Error()
}

func (l loginModel) view() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("habitr")
	sub := subtitleStyle.Render("Sign in to " + l.b.client.BaseURL())

	body := l.form.View()
	if l.busy {
		body = mutedStyle.Render("Signing in...")
	}
	rows := []string{title, sub, "", body}
	if l.err != "" {
		rows = append(rows, "", errorStyle.Render(l.err))
	}
	rows = append(rows, "", mutedStyle.Render("ctrl+c: quit"))

	box := activePanelStyle.Width(min(60, max(30, l.width-4))).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	if l.width == 0 {
		return box
	}
	return lipgloss.Place(l.width, l.height, lipgloss.Center, lipgloss.Center, box)
}
