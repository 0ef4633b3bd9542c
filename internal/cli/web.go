package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	goruntime "runtime"
	"strings"
	"time"

	"getitdone/internal/backend"
	"getitdone/internal/logging"
	"getitdone/internal/web"

	"github.com/spf13/cobra"
)

func newWebCmd(app *App) *cobra.Command {
	var addr string
	var open bool
	var secure bool

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the browser UI",
		Long: strings.TrimSpace(`
Serve the task list as a web page. Pages are rendered on the server; live updates
arrive over server-sent events. Each browser signs in on its own (session cookie).
`),
		Example: strings.TrimSpace(`
# Serve on localhost
getitdone web --addr 127.0.0.1:3335

# Share change notifications with other processes through Redis
getitdone --redis redis://localhost:6379/0 web
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				return writeErr(cmd, errors.New("web: missing --addr"))
			}

			logger, err := logging.NewJSON(app.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}

			ctx := cmd.Context()
			rt, err := openRuntime(ctx, app, logger)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()
			rt.Start(ctx)

			srv, err := web.NewServer(web.ServerConfig{
				Addr:          listenAddr,
				Clients:       func(tokens web.TokenStore) backend.Client { return rt.Backend.Client(tokens) },
				Logger:        logger,
				SecureCookies: secure,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}

			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"

			opened := false
			openErr := ""
			if open {
				if err := openPath(url); err != nil {
					openErr = err.Error()
				} else {
					opened = true
				}
			}

			var hints []string
			if !opened {
				hints = append(hints, "open "+url)
			}
			_ = writeOut(cmd, app, map[string]any{
				"addr":      actualAddr,
				"url":       url,
				"dir":       app.Dir,
				"opened":    opened,
				"openError": openErr,
				"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
			}, hints...)

			fmt.Fprintf(cmd.ErrOrStderr(), "Get It Done web running at %s\n", url)
			return serveUntilDone(ctx, ln, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3335", "Bind address (host:port or :port)")
	cmd.Flags().BoolVar(&open, "open", true, "Open the UI in your default browser")
	cmd.Flags().BoolVar(&secure, "secure-cookies", false, "Mark the session cookie Secure (when served over TLS)")
	return cmd
}

// serveUntilDone serves h on ln and shuts down gracefully when ctx ends.
func serveUntilDone(ctx context.Context, ln net.Listener, h http.Handler) error {
	hs := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- hs.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func openPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("empty path")
	}
	switch goruntime.GOOS {
	case "darwin":
		return exec.Command("open", path).Run()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path).Run()
	default:
		return exec.Command("xdg-open", path).Run()
	}
}
