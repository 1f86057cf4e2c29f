package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/sadopc/habitr/internal/api"
)

type LoginCmd struct {
	Username string `short:"u" help:"Account username. Prompted when empty."`
	Password string `env:"HABITR_PASSWORD" help:"Account password. Prompted when empty."`
}

func (l *LoginCmd) Run(c *Context) error {
	username, password := strings.TrimSpace(l.Username), l.Password
	if username == "" || password == "" {
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Username").Value(&username),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password),
		))
		if err := form.Run(); err != nil {
			return err
		}
		username = strings.TrimSpace(username)
	}
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout())
	defer cancel()
	prof, err := c.Session.Login(ctx, username, password)
	if errors.Is(err, api.ErrUnauthorized) {
		return errors.New("invalid username or password")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Logged in as %s\n", prof.Username)
	return nil
}

type LogoutCmd struct{}

func (l *LogoutCmd) Run(c *Context) error {
	if err := c.Session.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(c.Out, "Logged out")
	return nil
}
