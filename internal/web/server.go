package web

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"getitdone/internal/backend"
	"getitdone/internal/model"
	"getitdone/internal/todo"

	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html static/*.css
var assetsFS embed.FS

// DatastarScriptURL is the client runtime loaded by every page.
const DatastarScriptURL = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"

const (
	keepAliveInterval = 25 * time.Second
	toastTimeout      = 4 * time.Second
	opTimeout         = 10 * time.Second
)

// ClientFunc returns a backend client acting for whoever holds the token in tokens.
type ClientFunc func(tokens TokenStore) backend.Client

type ServerConfig struct {
	Addr    string
	Clients ClientFunc
	Logger  logrus.FieldLogger
	// SecureCookies marks the session cookie Secure (serve behind TLS).
	SecureCookies bool
	// Location is used to read and show deadlines. Defaults to time.Local.
	Location *time.Location
}

type Server struct {
	cfg    ServerConfig
	tmpl   *template.Template
	logger logrus.FieldLogger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("web: addr is empty")
	}
	if cfg.Clients == nil {
		return nil, errors.New("web: missing backend")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"markdown": renderInlineMarkdown,
		"deadline": model.FormatDeadline,
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, tmpl: tmpl, logger: logger}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /static/app.css", s.handleAppCSS)
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /auth", s.handleAuthGet)
	mux.HandleFunc("POST /auth", s.handleAuthPost)
	mux.HandleFunc("POST /logout", s.handleLogoutPost)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("POST /tasks", s.handleTaskCreate)
	mux.HandleFunc("POST /tasks/{id}/toggle", s.handleTaskToggle)
	mux.HandleFunc("POST /tasks/{id}/delete", s.handleTaskDelete)
	return s.logRequests(mux)
}

// service builds the per-request core, bound to the caller's session cookie.
func (s *Server) service(w http.ResponseWriter, r *http.Request) *todo.Service {
	tokens := newCookieTokens(w, r, s.cfg.SecureCookies)
	return todo.NewService(s.cfg.Clients(tokens), s.logger).WithLocation(s.cfg.Location)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleAppCSS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/app.css")
	if err != nil || len(b) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, status int, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		s.logger.WithError(err).WithField("template", name).Error("render template")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, html)
}

// statusRecorder captures the response status for request logging. It forwards
// Flush so server-sent event streams keep working.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}
