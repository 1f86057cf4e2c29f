package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sadopc/habitr/internal/export"
	"github.com/sadopc/habitr/internal/logger"
)

type ExportCmd struct {
	Format string `short:"f" enum:"csv,json" default:"csv" help:"Output format (csv, json)."`
	Month  string `short:"m" help:"Month to export as YYYY-MM. Defaults to the current month."`
	Out    string `short:"o" help:"Output file, - for stdout. Defaults to ~/habitr-YYYY-MM.<format>."`
}

func (cmd *ExportCmd) Run(c *Context) error {
	month, err := c.monthOrCurrent(cmd.Month)
	if err != nil {
		return err
	}
	ctx, cancel, err := c.authed()
	if err != nil {
		return err
	}
	defer cancel()

	g, err := c.loadGrid(ctx, month)
	if err != nil {
		return err
	}

	if cmd.Out == "-" {
		if cmd.Format == "json" {
			return export.WriteJSON(c.Out, g.Grid, c.now())
		}
		return export.WriteCSV(c.Out, g.Grid)
	}

	path := cmd.Out
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, fmt.Sprintf("habitr-%s.%s", month, cmd.Format))
	}
	if cmd.Format == "json" {
		err = export.ToJSON(g.Grid, path)
	} else {
		err = export.ToCSV(g.Grid, path)
	}
	if err != nil {
		return err
	}
	logger.Info("exported month", "month", month.String(), "path", path, "offline", g.offline)
	fmt.Fprintf(c.Out, "Exported %d cells to %s\n", g.Len(), path)
	return nil
}
