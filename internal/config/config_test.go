package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

const sampleYAML = `
server:
  port: "9000"
backend:
  url: http://backend.local/api
  timeout: 5s
redis:
  addr: localhost:6379
  ttl: 10m
catalog:
  ttl: 1m
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("port", "8080", "")
	fs.String("backend-url", "", "")
	fs.String("catalog", "", "")
	fs.Bool("verbose", false, "")
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func TestLoadLayersFileEnvFlags(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("NUTRIPLAY_REDIS__ADDR", "redis.internal:6380")
	t.Setenv("NUTRIPLAY_SESSION__SUBMIT_TIMEOUT", "3s")

	cfg, err := Load(path, newFlags(t, "--catalog", "games.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Fatalf("unchanged flag default must not override the file, got %q", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Fatalf("expected env override, got %q", cfg.Redis.Addr)
	}
	if cfg.Session.SubmitTimeout != "3s" {
		t.Fatalf("expected nested env key, got %q", cfg.Session.SubmitTimeout)
	}
	if cfg.Catalog.File != "games.yaml" {
		t.Fatalf("expected flag value, got %q", cfg.Catalog.File)
	}
	if cfg.Backend.URL != "http://backend.local/api" {
		t.Fatalf("unexpected backend url %q", cfg.Backend.URL)
	}
}

func TestLoadExplicitFlagWins(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	cfg, err := Load(path, newFlags(t, "--port", "7000"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Fatalf("expected flag to win, got %q", cfg.Server.Port)
	}
}

func TestLoadMissingFileUsesEnvAndDefaults(t *testing.T) {
	t.Setenv("NUTRIPLAY_BACKEND__URL", "https://api.example.com")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), newFlags(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Backend.URL != "https://api.example.com" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad duration":     "backend:\n  url: http://b\ncatalog:\n  ttl: soon\n",
		"bad redis addr":   "backend:\n  url: http://b\nredis:\n  addr: nowhere\n",
		"non numeric port": "backend:\n  url: http://b\nserver:\n  port: http\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body), nil); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestBackendRequiredOnlyForServer(t *testing.T) {
	cfg, err := Load(writeConfig(t, "postgres:\n  url: postgres://nutri@localhost/nutri\n"), nil)
	if err != nil {
		t.Fatalf("load without backend: %v", err)
	}
	if err := cfg.RequireBackend(); err == nil {
		t.Fatalf("expected server check to demand backend.url")
	}

	cfg, err = Load(writeConfig(t, sampleYAML), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.RequireBackend(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for invalid, got %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
}
