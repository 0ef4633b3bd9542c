package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type GlobalConfig struct {
	// SessionToken is the signed session of the CLI/TUI user. Empty when signed out.
	SessionToken string `json:"session,omitempty"`

	// RedisURL enables Redis Pub/Sub change notifications (redis://host:port/db).
	RedisURL string `json:"redisUrl,omitempty"`

	// TUI holds optional user preferences for the interactive TUI.
	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// Theme is "light", "dark" or "auto" (default).
	Theme string `json:"theme,omitempty"`
	// Glyphs selects the glyph set ("unicode" or "ascii").
	Glyphs string `json:"glyphs,omitempty"`
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.getitdone).
	if v := strings.TrimSpace(os.Getenv("GETITDONE_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".getitdone"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func SaveConfig(cfg *GlobalConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	// Keep the previous config around for manual recovery; failures here are ignored.
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "config.json.bak.*.tmp", path+".bak", prev, 0o600)
	}

	// The file holds a session token, so it stays private to the user.
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

// UpdateConfig loads the config, applies fn and saves the result.
func UpdateConfig(fn func(cfg *GlobalConfig)) error {
	configMu.Lock()
	defer configMu.Unlock()

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	fn(cfg)
	return SaveConfig(cfg)
}

var configMu sync.Mutex

// ConfigTokens keeps the CLI/TUI session token in config.json.
type ConfigTokens struct{}

func (ConfigTokens) Token() (string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(cfg.SessionToken), nil
}

func (ConfigTokens) SetToken(token string) error {
	return UpdateConfig(func(cfg *GlobalConfig) {
		cfg.SessionToken = strings.TrimSpace(token)
	})
}
