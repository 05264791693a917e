package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
server:
  host: "0.0.0.0"
  port: 8080
database:
  host: "localhost"
  port: 5432
  name: "gymflow"
  user: "gymflow"
  password: "secret"
  sslmode: "disable"
auth:
  api_key: "test-key-123"
timer:
  max_active_runs: 16
  idle_ttl_minutes: 30
  defaults:
    rounds: 8
    work_seconds: 20
    rest_seconds: 10
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadValid verifies that a well-formed YAML config loads with all fields populated.
func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server.host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "gymflow" {
		t.Errorf("database.name = %q, want %q", cfg.Database.Name, "gymflow")
	}
	if cfg.Auth.APIKey != "test-key-123" {
		t.Errorf("auth.api_key = %q, want %q", cfg.Auth.APIKey, "test-key-123")
	}
	if cfg.Timer.MaxActiveRuns != 16 {
		t.Errorf("timer.max_active_runs = %d, want 16", cfg.Timer.MaxActiveRuns)
	}
	if cfg.Timer.Defaults.Rounds != 8 {
		t.Errorf("timer.defaults.rounds = %d, want 8", cfg.Timer.Defaults.Rounds)
	}
}

// TestTimerDefaults verifies the timer section falls back to defaults when omitted.
func TestTimerDefaults(t *testing.T) {
	yaml := `
server:
  port: 8080
database:
  host: "localhost"
  port: 5432
  name: "gymflow"
  user: "gymflow"
auth:
  api_key: "k"
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Timer.MaxActiveRuns != 64 {
		t.Errorf("timer.max_active_runs default = %d, want 64", cfg.Timer.MaxActiveRuns)
	}
	if cfg.Timer.IdleTTLMinutes != 120 {
		t.Errorf("timer.idle_ttl_minutes default = %d, want 120", cfg.Timer.IdleTTLMinutes)
	}
	if cfg.Timer.Defaults.WorkSeconds != 60 {
		t.Errorf("timer.defaults.work_seconds default = %d, want 60", cfg.Timer.Defaults.WorkSeconds)
	}
}

// TestEnvOverride verifies that GYMFLOW_ env vars take precedence over YAML values.
func TestEnvOverride(t *testing.T) {
	t.Setenv("GYMFLOW_SERVER_PORT", "9999")
	t.Setenv("GYMFLOW_DB_PASSWORD", "env-secret")
	t.Setenv("GYMFLOW_AUTH_API_KEY", "env-key")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999 (env override)", cfg.Server.Port)
	}
	if cfg.Database.Password != "env-secret" {
		t.Errorf("database.password = %q, want env override", cfg.Database.Password)
	}
	if cfg.Auth.APIKey != "env-key" {
		t.Errorf("auth.api_key = %q, want env override", cfg.Auth.APIKey)
	}
}

// TestValidationErrors verifies required fields are enforced.
func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing port", `
database: {host: h, port: 5432, name: n, user: u}
auth: {api_key: k}
`},
		{"missing db host", `
server: {port: 8080}
database: {port: 5432, name: n, user: u}
auth: {api_key: k}
`},
		{"missing api key", `
server: {port: 8080}
database: {host: h, port: 5432, name: n, user: u}
`},
		{"tailscale without hostname", `
server: {port: 8080}
database: {host: h, port: 5432, name: n, user: u}
auth: {api_key: k}
tailscale: {enabled: true}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeTemp(t, tt.yaml)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

// TestDSN verifies the connection string format and the sslmode fallback.
func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "gymflow", User: "u", Password: "p"}
	want := "postgres://u:p@db:5432/gymflow?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	d.SSLMode = "require"
	want = "postgres://u:p@db:5432/gymflow?sslmode=require"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

// TestMissingFile verifies a clear error when the config file does not exist.
func TestMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
