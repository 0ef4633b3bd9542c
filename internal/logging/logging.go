// Package logging builds the logrus loggers used by the commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// DebugLogEnv names the file the TUI writes its log to.
const DebugLogEnv = "GETITDONE_DEBUG_LOG"

// New returns a logger writing text records at level to out.
func New(level string, out io.Writer) (*log.Logger, error) {
	lvl := log.InfoLevel
	if s := strings.TrimSpace(level); s != "" {
		parsed, err := log.ParseLevel(s)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}
	if out == nil {
		out = os.Stderr
	}
	logger := log.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})
	return logger, nil
}

// NewJSON is like New but emits JSON records. The web server uses it.
func NewJSON(level string, out io.Writer) (*log.Logger, error) {
	logger, err := New(level, out)
	if err != nil {
		return nil, err
	}
	logger.SetFormatter(&log.JSONFormatter{})
	return logger, nil
}

// ForTUI returns a logger that never writes to the terminal. When GETITDONE_DEBUG_LOG
// is set, records are appended to that file; the returned close func releases it.
func ForTUI(level string) (*log.Logger, func() error, error) {
	path := strings.TrimSpace(os.Getenv(DebugLogEnv))
	if path == "" {
		logger, err := New(level, io.Discard)
		return logger, func() error { return nil }, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open debug log: %w", err)
	}
	logger, err := New(level, f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return logger, f.Close, nil
}
