package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
log:
  level: debug
enforcement:
  max_retries: 5
  backoff_base: 2s
  max_backoff: 30s
  mute_default_minutes: 120
retention:
  action_log_ttl: 720h
  archive_bucket: audit-archive
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level: %s", cfg.Log.Level)
	}
	if cfg.Enforcement.MaxRetries != 5 {
		t.Fatalf("unexpected max retries: %d", cfg.Enforcement.MaxRetries)
	}
	if cfg.Enforcement.BackoffBase != 2*time.Second {
		t.Fatalf("unexpected backoff base: %s", cfg.Enforcement.BackoffBase)
	}
	if cfg.Enforcement.MaxBackoff != 30*time.Second {
		t.Fatalf("unexpected max backoff: %s", cfg.Enforcement.MaxBackoff)
	}
	if cfg.Enforcement.MuteDefaultMinutes != 120 {
		t.Fatalf("unexpected mute default: %d", cfg.Enforcement.MuteDefaultMinutes)
	}
	if cfg.Retention.ActionLogTTL != 720*time.Hour {
		t.Fatalf("unexpected action log ttl: %s", cfg.Retention.ActionLogTTL)
	}
	if cfg.Retention.ArchiveBucket != "audit-archive" {
		t.Fatalf("unexpected archive bucket: %s", cfg.Retention.ArchiveBucket)
	}

	// Values absent from the file keep their defaults.
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Enforcement.ActionsPerMinute != 60 {
		t.Fatalf("unexpected actions/minute: %d", cfg.Enforcement.ActionsPerMinute)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("POSTGRES_DSN", "postgres://enforcer:secret@db/enforcer")
	t.Setenv("POSTGRES_MAX_CONNS", "12")
	t.Setenv("S3_REGION", "eu-central-1")
	t.Setenv("ENFORCEMENT_MAX_RETRIES", "1")
	t.Setenv("ENFORCEMENT_MAX_BACKOFF", "5s")
	t.Setenv("RETENTION_SWEEP_INTERVAL", "1h")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Postgres.DSN != "postgres://enforcer:secret@db/enforcer" {
		t.Fatalf("unexpected dsn: %s", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 12 {
		t.Fatalf("unexpected pool size: %d", cfg.Postgres.MaxConns)
	}
	if cfg.S3.Region != "eu-central-1" {
		t.Fatalf("unexpected s3 region: %s", cfg.S3.Region)
	}
	if cfg.Enforcement.MaxRetries != 1 {
		t.Fatalf("unexpected max retries: %d", cfg.Enforcement.MaxRetries)
	}
	if cfg.Enforcement.MaxBackoff != 5*time.Second {
		t.Fatalf("unexpected max backoff: %s", cfg.Enforcement.MaxBackoff)
	}
	if cfg.Retention.SweepInterval != time.Hour {
		t.Fatalf("unexpected sweep interval: %s", cfg.Retention.SweepInterval)
	}
}

func TestLoadRejectsMalformedEnvDuration(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("ENFORCEMENT_BACKOFF_BASE", "soon")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for malformed duration override")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()

	names := []string{
		"APP_ENV", "HTTP_ADDR", "HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL", "POSTGRES_DSN", "POSTGRES_MAX_CONNS", "POSTGRES_MIN_CONNS",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_REGION", "S3_BUCKET",
		"JWT_SECRET", "JWT_ACCESS_TTL", "BOT_TOKEN",
		"ENFORCEMENT_MAX_RETRIES", "ENFORCEMENT_BACKOFF_BASE", "ENFORCEMENT_MAX_BACKOFF",
		"ENFORCEMENT_MUTE_DEFAULT_MINUTES", "ENFORCEMENT_ACTIONS_PER_MINUTE", "ENFORCEMENT_ACTIONS_PER_10SEC",
		"RETENTION_ACTION_LOG_TTL", "RETENTION_SWEEP_INTERVAL", "RETENTION_ARCHIVE_BUCKET",
	}
	for _, name := range names {
		t.Setenv(name, "")
	}
}
