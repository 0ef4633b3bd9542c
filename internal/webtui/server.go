// Package webtui serves the terminal UI to a browser: each WebSocket connection gets
// its own getitdone process running in a pseudo-terminal.
package webtui

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"getitdone/internal/todo"

	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html static/*.css static/*.js
var assetsFS embed.FS

const (
	xtermScriptURL = "https://cdn.jsdelivr.net/npm/@xterm/xterm@5.5.0/lib/xterm.js"
	xtermCSSURL    = "https://cdn.jsdelivr.net/npm/@xterm/xterm@5.5.0/css/xterm.css"
	xtermFitURL    = "https://cdn.jsdelivr.net/npm/@xterm/addon-fit@0.10.0/lib/addon-fit.js"
)

type ServerConfig struct {
	Addr string
	// Args are passed to the child process. With no subcommand it starts the TUI.
	Args []string
	// Env is appended to the child's environment.
	Env    []string
	Logger logrus.FieldLogger
	// Command overrides how the child is built. Defaults to re-running this executable.
	Command func(args []string) (*exec.Cmd, error)
}

type Server struct {
	cfg    ServerConfig
	tmpl   *template.Template
	logger logrus.FieldLogger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("webtui: missing addr")
	}
	if cfg.Command == nil {
		cfg.Command = selfCommand
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	tmpl, err := template.ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, tmpl: tmpl, logger: logger}, nil
}

func selfCommand(args []string) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	return exec.Command(exe, args...), nil
}

func (s *Server) Addr() string {
	return strings.TrimSpace(s.cfg.Addr)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/terminal", http.StatusFound)
	})
	mux.HandleFunc("GET /terminal", s.handleTerminal)
	mux.HandleFunc("GET /ws", s.handleWS)

	mux.HandleFunc("GET /static/app.css", s.handleStatic("static/app.css", "text/css; charset=utf-8"))
	mux.HandleFunc("GET /static/app.js", s.handleStatic("static/app.js", "text/javascript; charset=utf-8"))

	return mux
}

func (s *Server) handleStatic(path, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := assetsFS.ReadFile(path)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(b)
	}
}

type terminalVM struct {
	Title    string
	XtermJS  string
	XtermCSS string
	XtermFit string
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	vm := terminalVM{
		Title:    todo.AppTitle,
		XtermJS:  xtermScriptURL,
		XtermCSS: xtermCSSURL,
		XtermFit: xtermFitURL,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "terminal.html", vm); err != nil {
		s.logger.WithError(err).Error("render terminal page")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
