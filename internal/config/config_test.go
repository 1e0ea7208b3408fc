package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.BaseURL == "" {
		t.Error("expected default backend URL")
	}
	if cfg.Backend.PollInterval.Duration != 2*time.Second {
		t.Errorf("expected default poll interval, got %v", cfg.Backend.PollInterval.Duration)
	}
	if cfg.Server.Port == 0 {
		t.Error("expected default server port")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `[backend]
base_url = "http://backend.internal:9000"
api_token = "secret"
poll_interval = "500ms"

[server]
port = 7001
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.BaseURL != "http://backend.internal:9000" {
		t.Errorf("base url not applied: %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.APIToken != "secret" {
		t.Errorf("token not applied: %q", cfg.Backend.APIToken)
	}
	if cfg.Backend.PollInterval.Duration != 500*time.Millisecond {
		t.Errorf("poll interval not applied: %v", cfg.Backend.PollInterval.Duration)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("port not applied: %d", cfg.Server.Port)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Addr != "127.0.0.1" {
		t.Errorf("addr default lost: %q", cfg.Server.Addr)
	}
}

func TestLoadRejectsMalformedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[backend\nbroken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
