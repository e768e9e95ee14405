package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte(body), 0o600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	return path
}

func TestLoadReadsYAMLAndAppliesDefaults(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvPort, "")
	path := writeConfigFile(t, `
database:
  url: "file:teamhub.db"
security:
  password_secret: "pw-secret"
  jwt:
    secret: "jwt-secret"
    expiry: 2h
webauthn:
  origins: ["https://app.example.com"]
signup:
  auto_create_team: true
`)

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Database.URL != "file:teamhub.db" {
		t.Fatalf("database url = %q", cfg.Database.URL)
	}
	if cfg.Security.JWT.Expiry != 2*time.Hour {
		t.Fatalf("jwt expiry = %s, want 2h", cfg.Security.JWT.Expiry)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("default port = %d, want 8080", cfg.Server.Port)
	}
	if !cfg.Signup.AutoCreateTeam {
		t.Fatalf("expected auto_create_team")
	}
	if cfg.WebAuthn.SessionTTL != 5*time.Minute {
		t.Fatalf("default session ttl = %s", cfg.WebAuthn.SessionTTL)
	}
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
database:
  url: "file:from-file.db"
security:
  password_secret: "pw-secret"
  jwt:
    secret: "jwt-secret"
`)
	t.Setenv(EnvDatabaseURL, "postgres://u:p@localhost/teamhub")
	t.Setenv(EnvPort, "9090")

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Database.URL != "postgres://u:p@localhost/teamhub" {
		t.Fatalf("database url = %q", cfg.Database.URL)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port = %d, want 9090", cfg.Server.Port)
	}
}

func TestLoadMissingFileRequiresDatabaseURL(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "")
	_, errLoad := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(errLoad, ErrMissingDatabaseURL) {
		t.Fatalf("expected ErrMissingDatabaseURL, got %v", errLoad)
	}
}

func TestResolveConfigPathPrecedence(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/teamhub.yaml")
	if got := ResolveConfigPath(" custom.yaml "); got != "custom.yaml" {
		t.Fatalf("flag path = %q", got)
	}
	if got := ResolveConfigPath(""); got != "/etc/teamhub.yaml" {
		t.Fatalf("env path = %q", got)
	}
	t.Setenv(EnvConfigPath, "")
	if got := ResolveConfigPath(""); got != defaultConfigPath {
		t.Fatalf("default path = %q", got)
	}
}
