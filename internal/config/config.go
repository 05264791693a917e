package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Timer     TimerConfig     `yaml:"timer"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// TimerConfig tunes the live session runner and the defaults applied when a
// start request omits the interval parameters.
type TimerConfig struct {
	MaxActiveRuns  int           `yaml:"max_active_runs"`
	IdleTTLMinutes int           `yaml:"idle_ttl_minutes"`
	Defaults       TimerDefaults `yaml:"defaults"`
}

type TimerDefaults struct {
	Rounds      int `yaml:"rounds"`
	WorkSeconds int `yaml:"work_seconds"`
	RestSeconds int `yaml:"rest_seconds"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable
// overrides. Env vars use the prefix GYMFLOW_ and underscore-separated paths:
//
//	GYMFLOW_SERVER_HOST, GYMFLOW_SERVER_PORT,
//	GYMFLOW_DB_HOST, GYMFLOW_DB_PORT, GYMFLOW_DB_NAME,
//	GYMFLOW_DB_USER, GYMFLOW_DB_PASSWORD, GYMFLOW_DB_SSLMODE,
//	GYMFLOW_AUTH_API_KEY, GYMFLOW_TS_HOSTNAME
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyTimerDefaults(&cfg.Timer)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GYMFLOW_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("GYMFLOW_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GYMFLOW_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("GYMFLOW_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("GYMFLOW_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("GYMFLOW_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("GYMFLOW_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("GYMFLOW_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("GYMFLOW_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("GYMFLOW_TS_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
}

func applyTimerDefaults(t *TimerConfig) {
	if t.MaxActiveRuns == 0 {
		t.MaxActiveRuns = 64
	}
	if t.IdleTTLMinutes == 0 {
		t.IdleTTLMinutes = 120
	}
	if t.Defaults.Rounds == 0 {
		t.Defaults.Rounds = 5
	}
	if t.Defaults.WorkSeconds == 0 {
		t.Defaults.WorkSeconds = 60
	}
	if t.Defaults.RestSeconds == 0 {
		t.Defaults.RestSeconds = 30
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
