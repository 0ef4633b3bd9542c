package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestSaveConfig_ConcurrentWriters_DoesNotCorruptConfig(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("GETITDONE_CONFIG_DIR", cfgDir)

	if err := SaveConfig(&GlobalConfig{RedisURL: "redis://seed:6379/0"}); err != nil {
		t.Fatalf("SaveConfig(seed): %v", err)
	}

	const n = 32
	errCh := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg, err := LoadConfig()
			if err != nil {
				errCh <- err
				return
			}
			cfg.TUI = &TUIConfig{Glyphs: fmt.Sprintf("g-%d", i)}
			if err := SaveConfig(cfg); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent SaveConfig: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(cfgDir, "config.json"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var got GlobalConfig
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("config is not valid JSON after concurrent writes: %v\n%s", err, b)
	}
	if got.RedisURL != "redis://seed:6379/0" {
		t.Fatalf("expected seed redisUrl to survive, got %q", got.RedisURL)
	}

	ents, err := os.ReadDir(cfgDir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range ents {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}

func TestConfigTokens_RoundTripAndBackup(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("GETITDONE_CONFIG_DIR", cfgDir)

	var tokens ConfigTokens
	if tok, err := tokens.Token(); err != nil || tok != "" {
		t.Fatalf("expected empty token without config, got %q err=%v", tok, err)
	}
	if err := tokens.SetToken(" abc "); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if err := tokens.SetToken("def"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if tok, _ := tokens.Token(); tok != "def" {
		t.Fatalf("expected def, got %q", tok)
	}

	bak, err := os.ReadFile(filepath.Join(cfgDir, "config.json.bak"))
	if err != nil {
		t.Fatalf("expected backup file: %v", err)
	}
	if !strings.Contains(string(bak), "abc") {
		t.Fatalf("expected backup to hold the previous token, got %s", bak)
	}

	st, err := os.Stat(filepath.Join(cfgDir, "config.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 config, got %v", st.Mode().Perm())
	}
}
