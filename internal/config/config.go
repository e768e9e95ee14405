package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognised on top of the YAML file.
const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "TEAMHUB_CONFIG"
	// EnvDatabaseURL provides the database connection string.
	EnvDatabaseURL = "DATABASE_URL"
	// EnvPasswordSecret provides the password-record encryption secret.
	EnvPasswordSecret = "TEAMHUB_PASSWORD_SECRET"
	// EnvJWTSecret provides the session token signing secret.
	EnvJWTSecret = "TEAMHUB_JWT_SECRET"
	// EnvRedisURL provides the redis URL for ceremony sessions.
	EnvRedisURL = "REDIS_URL"
	// EnvPort overrides the listen port.
	EnvPort = "PORT"
)

// defaultConfigPath is used when neither flag nor environment names a file.
const defaultConfigPath = "config.yaml"

// ErrMissingDatabaseURL is returned when no DSN is configured.
var ErrMissingDatabaseURL = errors.New("config: database url is required")

// AppConfig holds process-level options passed from the command line.
type AppConfig struct {
	ConfigPath string
}

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Security SecurityConfig `yaml:"security"`
	WebAuthn WebAuthnConfig `yaml:"webauthn"`
	Redis    RedisConfig    `yaml:"redis"`
	Signup   SignupConfig   `yaml:"signup"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the SQL connection.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// SecurityConfig holds credential secrets.
type SecurityConfig struct {
	PasswordSecret string    `yaml:"password_secret"`
	JWT            JWTConfig `yaml:"jwt"`
}

// JWTConfig configures session tokens.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// WebAuthnConfig configures the relying party.
type WebAuthnConfig struct {
	RPID       string        `yaml:"rp_id"`
	RPName     string        `yaml:"rp_name"`
	Origins    []string      `yaml:"origins"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// RedisConfig configures the optional ceremony session store.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// SignupConfig toggles signup variants.
type SignupConfig struct {
	AutoCreateTeam bool `yaml:"auto_create_team"`
}

// LoggingConfig configures log level and optional file rotation.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	return Config{
		Server: ServerConfig{Host: "", Port: 8080},
		Security: SecurityConfig{
			JWT: JWTConfig{Expiry: 24 * time.Hour},
		},
		WebAuthn: WebAuthnConfig{
			RPName:     "Teamhub",
			SessionTTL: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
	}
}

// ResolveConfigPath picks the config file path from flag, env, or default.
func ResolveConfigPath(flagValue string) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv(EnvConfigPath)); env != "" {
		return env
	}
	return defaultConfigPath
}

// Load reads the YAML file at path, applies environment overrides, and validates.
// A missing file is not an error; the environment alone may configure the process.
func Load(path string) (Config, error) {
	cfg := Default()
	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	applyEnv(&cfg)
	if errValidate := cfg.Validate(); errValidate != nil {
		return Config{}, errValidate
	}
	return cfg, nil
}

// Validate checks required settings.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return ErrMissingDatabaseURL
	}
	if strings.TrimSpace(c.Security.PasswordSecret) == "" {
		return errors.New("config: security.password_secret is required")
	}
	if strings.TrimSpace(c.Security.JWT.Secret) == "" {
		return errors.New("config: security.jwt.secret is required")
	}
	if c.Security.JWT.Expiry <= 0 {
		return errors.New("config: security.jwt.expiry must be positive")
	}
	return nil
}

// applyEnv overlays environment variables on cfg.
func applyEnv(cfg *Config) {
	if v, ok := lookupEnv(EnvDatabaseURL); ok {
		cfg.Database.URL = v
	}
	if v, ok := lookupEnv(EnvPasswordSecret); ok {
		cfg.Security.PasswordSecret = v
	}
	if v, ok := lookupEnv(EnvJWTSecret); ok {
		cfg.Security.JWT.Secret = v
	}
	if v, ok := lookupEnv(EnvRedisURL); ok {
		cfg.Redis.URL = v
	}
	if v, ok := lookupEnv(EnvPort); ok {
		var port int
		if _, errScan := fmt.Sscanf(v, "%d", &port); errScan == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
