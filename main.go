package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/sadopc/habitr/internal/api"
	"github.com/sadopc/habitr/internal/cli"
	"github.com/sadopc/habitr/internal/logger"
	"github.com/sadopc/habitr/internal/session"
	"github.com/sadopc/habitr/internal/store"
)

var CLI struct {
	Version kong.VersionFlag
	APIURL  string        `name:"api-url" env:"HABITR_API_URL" default:"${api_url}" help:"Habit API base URL."`
	DB      string        `env:"HABITR_DB" type:"path" help:"SQLite cache path. Defaults to the user config dir."`
	Debug   bool          `env:"HABITR_DEBUG" help:"Verbose logging, mirrored to stderr."`
	Timeout time.Duration `env:"HABITR_TIMEOUT" default:"30s" help:"Per-request timeout."`
	Rate    float64       `env:"HABITR_RATE" default:"5" help:"Max API requests per second, 0 for no limit."`

	Tui      cli.TuiCmd      `cmd:"" default:"1" help:"Launch the interactive TUI."`
	Login    cli.LoginCmd    `cmd:"" help:"Sign in and store the session."`
	Logout   cli.LogoutCmd   `cmd:"" help:"Forget the stored session."`
	Calendar cli.CalendarCmd `cmd:"" help:"Print a month of habit logs."`
	Log      cli.LogCmd      `cmd:"" help:"Record today's status for a habit."`
	Export   cli.ExportCmd   `cmd:"" help:"Export a month as CSV or JSON."`
}

func main() {
	cfgDir, err := store.ConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	// Environment files never override variables that are already set.
	for _, f := range []string{".env", filepath.Join(cfgDir, ".env")} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", f, err)
		}
	}

	ctx := kong.Parse(&CLI,
		kong.Name("habitr"),
		kong.Description("Habit tracker for the terminal"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0", "api_url": api.DefaultBaseURL},
	)

	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: cfgDir}); err != nil {
		fmt.Fprintf(os.Stderr, "error: init logger: %v\n", err)
		os.Exit(1)
	}

	dbPath := CLI.DB
	if dbPath == "" {
		if dbPath, err = store.DefaultDBPath(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
	st, err := store.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	client := api.New(api.Config{BaseURL: CLI.APIURL, Timeout: CLI.Timeout, RatePerSecond: CLI.Rate, Burst: 4})
	sess := session.New(client, st)
	if err := sess.Restore(); err != nil && !errors.Is(err, session.ErrNoSession) {
		logger.Warn("restore session", "error", err)
	}
	logger.Info("starting", "command", ctx.Command(), "api", client.BaseURL(), "db", dbPath)

	err = ctx.Run(&cli.Context{
		Client:  client,
		Session: sess,
		Store:   st,
		Out:     os.Stdout,
		Timeout: CLI.Timeout,
	})
	if err != nil {
		logger.Error("command failed", "command", ctx.Command(), "error", err)
		st.Close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
