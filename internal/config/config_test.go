package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
server:
  server_url: "https://gemp.example.com"
credentials:
  username: "bot"
  password: "secret"
card_data:
  card_json_dir: "/data/cards"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timing.PollIntervalSeconds != 3 {
		t.Errorf("poll interval default = %d, want 3", cfg.Timing.PollIntervalSeconds)
	}
	if cfg.Timing.RequestTimeoutSeconds != 10 {
		t.Errorf("request timeout default = %d, want 10", cfg.Timing.RequestTimeoutSeconds)
	}
	if cfg.Brain.Name != "Static" {
		t.Errorf("brain name default = %q, want Static", cfg.Brain.Name)
	}
	if cfg.Server.URL != "https://gemp.example.com" {
		t.Errorf("server url = %q", cfg.Server.URL)
	}
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	path := writeTempConfig(t, `
server:
  server_url: "https://gemp.example.com"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing credentials/card_json_dir")
	}
}

func TestLoadOverridesFromExplicitValues(t *testing.T) {
	path := writeTempConfig(t, `
server:
  server_url: "https://gemp.example.com"
credentials:
  username: "bot"
  password: "secret"
card_data:
  card_json_dir: "/data/cards"
timing:
  poll_interval_seconds: 7
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timing.PollIntervalSeconds != 7 {
		t.Errorf("poll interval = %d, want 7", cfg.Timing.PollIntervalSeconds)
	}
}
