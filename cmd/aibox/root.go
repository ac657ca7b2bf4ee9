package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/aibox/internal/config"
	"github.com/JonMunkholm/aibox/internal/core"
	"github.com/JonMunkholm/aibox/internal/logging"
)

// app is the state shared by subcommands once configuration is loaded.
type app struct {
	envFile string

	cfg *config.Config
	// cfgErr is a missing required variable; cfg is still usable.
	cfgErr error
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "aibox",
		Short:         "Clean invoice and stock spreadsheets with the AI Box service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		newServeCommand(a),
		newCleanCommand(a),
	)

	return root
}

// load reads the dotenv file and the environment, then sets up logging.
// Any configuration error other than a missing service location stops the
// command with the misconfiguration exit code.
func (a *app) load() error {
	// Overload overwrites existing env vars
	if err := godotenv.Overload(a.envFile); err != nil {
		slog.Debug("no dotenv file loaded, using environment variables", "file", a.envFile)
	}

	cfg, err := config.LoadLenient()
	if cfg == nil {
		return &exitError{code: exitMisconfigured, msg: err.Error()}
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err == nil {
		slog.Debug("configuration loaded", "config", cfg.String())
	}

	a.cfg, a.cfgErr = cfg, err
	return nil
}

// misconfigured is the exit error for a missing service location.
func (a *app) misconfigured() error {
	return &exitError{
		code: exitMisconfigured,
		msg:  core.FormatUserError(a.cfgErr),
	}
}
