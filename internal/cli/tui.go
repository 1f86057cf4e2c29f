package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/habitr/internal/tui"
)

type TuiCmd struct{}

func (t *TuiCmd) Run(c *Context) error {
	app := tui.NewApp(tui.Deps{Client: c.Client, Session: c.Session, Store: c.Store, Now: c.Now})
	_, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
	return err
}
