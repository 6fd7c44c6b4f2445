package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected port %q, got %q", "8090", cfg.Port)
	}
	if cfg.DataSource != "./data/data.yml" {
		t.Errorf("expected data source %q, got %q", "./data/data.yml", cfg.DataSource)
	}
	if cfg.BindAttr != "user" {
		t.Errorf("expected bind attr %q, got %q", "user", cfg.BindAttr)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected job ttl 1h, got %s", cfg.JobTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
	if err := cfg.ValidateServer(); err == nil {
		t.Error("expected server validation to require an api key")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("BIND_ATTR", "Data-Bind")
	t.Setenv("SNAPSHOT_WORKERS", "-3")
	t.Setenv("MAX_QUEUE_SIZE", "not-a-number")
	t.Setenv("JOB_TTL", "15m")
	t.Setenv("BADGE_API_KEY", "secret")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("expected port %q, got %q", "9000", cfg.Port)
	}
	if cfg.BindAttr != "data-bind" {
		t.Errorf("expected lower-cased attr, got %q", cfg.BindAttr)
	}
	if cfg.SnapshotWorkers != 2 {
		t.Errorf("expected non-positive workers to fall back to 2, got %d", cfg.SnapshotWorkers)
	}
	if cfg.MaxQueueSize != 20 {
		t.Errorf("expected unparsable queue size to fall back to 20, got %d", cfg.MaxQueueSize)
	}
	if cfg.JobTTL != 15*time.Minute {
		t.Errorf("expected job ttl 15m, got %s", cfg.JobTTL)
	}
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_BadAttr(t *testing.T) {
	cfg := Load()
	cfg.BindAttr = "user name"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for attribute with whitespace")
	}
}

func TestValidateCollector(t *testing.T) {
	cfg := Load()
	if err := cfg.ValidateCollector(); err == nil {
		t.Error("expected error without user id")
	}
	cfg.HTBUserID = "abc"
	if err := cfg.ValidateCollector(); err == nil {
		t.Error("expected error for non-numeric user id")
	}
	cfg.HTBUserID = "780424"
	if err := cfg.ValidateCollector(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
