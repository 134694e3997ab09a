package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9090"
redis:
  addr: localhost:6379
  db: 1
session:
  tick_interval: 500ms
  seconds_per_assessment: 120
backend:
  url: http://localhost:9090
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ASSESSMENT_REDIS_ADDR", "redis:6380")
	t.Setenv("ASSESSMENT_REDIS_DB", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Backend.URL != "http://localhost:9090" {
		t.Fatalf("file values not loaded: %+v", cfg)
	}
	if cfg.Redis.Addr != "redis:6380" || cfg.Redis.DB != 3 {
		t.Fatalf("env overrides not applied: %+v", cfg.Redis)
	}
	if Duration(cfg.Session.TickInterval, time.Second) != 500*time.Millisecond || cfg.Session.SecondsPerAssessment != 120 {
		t.Fatalf("session section not loaded: %+v", cfg.Session)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("ASSESSMENT_POSTGRES_URL", "postgres://localhost/assessments")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Postgres.URL != "postgres://localhost/assessments" {
		t.Fatalf("expected env-only config, got %+v", cfg.Postgres)
	}
}

func TestLoadRejectsBadInt(t *testing.T) {
	t.Setenv("ASSESSMENT_SESSION_SECONDS_PER_ASSESSMENT", "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for non-numeric override")
	}
}

func TestDurationFallback(t *testing.T) {
	if got := Duration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := Duration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for invalid, got %v", got)
	}
	if got := Duration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected parsed value, got %v", got)
	}
}
