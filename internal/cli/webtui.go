package cli

import (
	"fmt"
	"net"
	"strings"
	"time"

	"getitdone/internal/logging"
	"getitdone/internal/webtui"

	"github.com/spf13/cobra"
)

func newWebTUICmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "webtui",
		Short: "Run the TUI in your browser (PTY + WebSocket)",
		Long: strings.TrimSpace(`
Run the terminal UI in a browser through a server-side PTY and a browser terminal emulator.

Notes:
- Each browser tab starts its own TUI process on the server.
- Every tab acts as the user signed in with ` + "`getitdone login`" + `.
`),
		Example: strings.TrimSpace(`
getitdone webtui --addr 127.0.0.1:3334
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			logger, err := logging.New(app.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}

			childArgs := []string{"--dir", dir, "--log-level", app.LogLevel}
			if r := strings.TrimSpace(app.RedisURL); r != "" {
				childArgs = append(childArgs, "--redis", r, "--channel", app.Channel)
			}

			srv, err := webtui.NewServer(webtui.ServerConfig{
				Addr:   strings.TrimSpace(addr),
				Args:   childArgs,
				Logger: logger,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", srv.Addr())
			if err != nil {
				return writeErr(cmd, err)
			}
			actualAddr := ln.Addr().String()

			_ = writeOut(cmd, app, map[string]any{
				"addr":      actualAddr,
				"dir":       dir,
				"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
			}, "open http://"+actualAddr)

			fmt.Fprintf(cmd.ErrOrStderr(), "Get It Done webtui running at http://%s\n", actualAddr)
			return serveUntilDone(cmd.Context(), ln, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3334", "Bind address (host:port or :port)")
	return cmd
}
