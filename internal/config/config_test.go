package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NATS.URL == "" {
		t.Error("default NATS URL unset")
	}
	if cfg.Pipeline.Workers <= 0 {
		t.Error("default worker count unset")
	}
	if cfg.ConsumerName == "" {
		t.Error("default consumer name unset")
	}
}

func TestLoad_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
nats:
  url: nats://broker.internal:4222
pipeline:
  workers: 16
handlers:
  notifications: true
log_level: debug
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NATS.URL != "nats://broker.internal:4222" {
		t.Errorf("NATS URL = %q", cfg.NATS.URL)
	}
	if cfg.Pipeline.Workers != 16 {
		t.Errorf("workers = %d", cfg.Pipeline.Workers)
	}
	if !cfg.Handlers.Notifications {
		t.Error("notifications handler not enabled")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	// Untouched sections keep their defaults.
	if cfg.Database.Host == "" {
		t.Error("database defaults lost during overlay")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("NATS_URL", "nats://env.internal:4222")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("REDIS_ADDR", "env-redis:6379")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NATS.URL != "nats://env.internal:4222" {
		t.Errorf("NATS URL = %q", cfg.NATS.URL)
	}
	if cfg.Database.Port != 5433 {
		t.Errorf("postgres port = %d", cfg.Database.Port)
	}
	if cfg.Redis.Addr != "env-redis:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
