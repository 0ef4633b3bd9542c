package cli

import (
	"fmt"
	"os"
	"strings"

	"getitdone/internal/format"
	"getitdone/internal/logging"
	"getitdone/internal/notify"
	"getitdone/internal/store"
	"getitdone/internal/todo"
	"getitdone/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	RedisURL   string
	Channel    string
	PrettyJSON bool
	LogLevel   string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "getitdone",
		Short:        "Get It Done: a personal task list (TUI + web)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  getitdone

  # Sign in from a script
  getitdone login alice

  # Serve the browser UI
  getitdone web --addr 127.0.0.1:3335
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("GETITDONE_DIR", ""), "Data directory (default: ~/.getitdone)")
	cmd.PersistentFlags().StringVar(&app.RedisURL, "redis", envOr("GETITDONE_REDIS_URL", ""), "Redis URL for change notifications (default: poll the database)")
	cmd.PersistentFlags().StringVar(&app.Channel, "channel", envOr("GETITDONE_CHANNEL", notify.DefaultChannel), "Redis Pub/Sub channel")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("GETITDONE_LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newWebCmd(app))
	cmd.AddCommand(newWebTUICmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	logger, closeLog, err := logging.ForTUI(app.LogLevel)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer closeLog()

	ctx := cmd.Context()
	rt, err := openRuntime(ctx, app, logger)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer rt.Close()
	rt.Start(ctx)

	cfg, err := store.LoadConfig()
	if err != nil {
		return writeErr(cmd, err)
	}
	svc := todo.NewService(rt.Backend.Client(store.ConfigTokens{}), logger)
	return tui.Run(ctx, svc, cfg.TUI, store.Store{Dir: app.Dir})
}

// resolveDir returns the data directory: --dir, else the config directory.
func resolveDir(app *App) (string, error) {
	if d := strings.TrimSpace(app.Dir); d != "" {
		return d, nil
	}
	d, err := store.ConfigDir()
	if err != nil {
		return "", err
	}
	app.Dir = d
	return d, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, data any, hints ...string) error {
	return format.Write(cmd.OutOrStdout(), data, app.PrettyJSON, hints...)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
