package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"getitdone/internal/backend"
	"getitdone/internal/logging"
	"getitdone/internal/store"

	"github.com/spf13/cobra"
)

const cliOpTimeout = 10 * time.Second

// withClient opens the backend for one command, acting for the config-file session.
func withClient(cmd *cobra.Command, app *App, fn func(ctx context.Context, c backend.Client) error) error {
	logger, err := logging.New(app.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return writeErr(cmd, err)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cliOpTimeout)
	defer cancel()

	rt, err := openRuntime(ctx, app, logger)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer rt.Close()

	if err := fn(ctx, rt.Backend.Client(store.ConfigTokens{})); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

func newLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login <name>",
		Short: "Sign in (creates the user on first use)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return writeErr(cmd, errors.New("login: name is empty"))
			}
			return withClient(cmd, app, func(ctx context.Context, c backend.Client) error {
				u, err := c.SignIn(ctx, name)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"user": u}, "run `getitdone` to open your task list")
			})
		},
	}
}

func newLogoutCmd(app *App) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Long: strings.TrimSpace(`
Sign out of the current session.

Scopes:
- local: this session only (default)
- global: every session of the signed-in user
- others: every other session; this one stays signed in
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := backend.ParseSignOutScope(scope)
			if err != nil {
				return writeErr(cmd, err)
			}
			return withClient(cmd, app, func(ctx context.Context, c backend.Client) error {
				if err := c.SignOut(ctx, sc); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"scope": sc, "signedOut": sc != backend.SignOutOthers})
			})
		},
	}
	cmd.Flags().StringVar(&scope, "scope", string(backend.SignOutLocal), "Sign-out scope (local|global|others)")
	return cmd
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, app, func(ctx context.Context, c backend.Client) error {
				u, err := c.CurrentUser(ctx)
				if err != nil {
					return err
				}
				if u == nil {
					return writeOut(cmd, app, nil, "run `getitdone login <name>` to sign in")
				}
				return writeOut(cmd, app, u)
			})
		},
	}
}
