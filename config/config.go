// Package config loads the keepalived configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platforma-dev/keepalive/application"
	"github.com/platforma-dev/keepalive/keepalive"
)

// Config is the keepalived configuration.
type Config struct {
	Log     LogConfig    `yaml:"log"`
	Server  ServerConfig `yaml:"server"`
	Admin   AdminConfig  `yaml:"admin"`
	Targets []Target     `yaml:"targets"`
}

// LogConfig configures the process logger and firing events.
type LogConfig struct {
	Format string      `yaml:"format"`
	Level  string      `yaml:"level"`
	Events EventConfig `yaml:"events"`
}

// EventConfig configures the wide event written per firing.
type EventConfig struct {
	Enabled             bool          `yaml:"enabled"`
	SlowThreshold       time.Duration `yaml:"slowThreshold"`
	KeepAttemptsAtLeast int           `yaml:"keepAttemptsAtLeast"`
	RandomKeepRate      float64       `yaml:"randomKeepRate"`
}

// ServerConfig configures the host HTTP server. Its requests count as activity for every target.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	IgnorePaths     []string      `yaml:"ignorePaths"`
}

// AdminConfig configures the admin API.
type AdminConfig struct {
	Enabled   bool   `yaml:"enabled"`
	TokenHash string `yaml:"tokenHash"`
}

// Target is one guarded dependency with exactly one of SQL or HTTP set.
type Target struct {
	Label            string        `yaml:"label"`
	InactivityLimit  time.Duration `yaml:"inactivityLimit"`
	MaxRetryAttempts *int          `yaml:"maxRetryAttempts"`
	RetryDelay       time.Duration `yaml:"retryDelay"`
	WindowPolicy     string        `yaml:"windowPolicy"`
	Warmup           string        `yaml:"warmup"`
	SQL              *SQLTarget    `yaml:"sql"`
	HTTP             *HTTPTarget   `yaml:"http"`
}

// SQLTarget keeps a database awake with a query or a heartbeat write.
type SQLTarget struct {
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	Query     string `yaml:"query"`
	Heartbeat bool   `yaml:"heartbeat"`
}

// HTTPTarget keeps an HTTP endpoint awake with a request.
type HTTPTarget struct {
	URL                string            `yaml:"url"`
	Method             string            `yaml:"method"`
	Timeout            time.Duration     `yaml:"timeout"`
	Headers            map[string]string `yaml:"headers"`
	ExpectedStatus     []int             `yaml:"expectedStatus"`
	CAFile             string            `yaml:"caFile"`
	InsecureSkipVerify bool              `yaml:"insecureSkipVerify"`
}

// Default returns the configuration used for unset fields.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Format: "text",
			Level:  "info",
			Events: EventConfig{
				SlowThreshold:       5 * time.Second,
				KeepAttemptsAtLeast: 2,
				RandomKeepRate:      0.1,
			},
		},
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 3 * time.Second,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies KEEPALIVE_* environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

// Parse is Load for YAML already in memory.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("KEEPALIVE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	if v := os.Getenv("KEEPALIVE_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}

	if v := os.Getenv("KEEPALIVE_SERVER_PORT"); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid KEEPALIVE_SERVER_PORT %q: %w", v, err)
		}
		c.Server.Port = v
	}

	if v := os.Getenv("KEEPALIVE_ADMIN_TOKEN_HASH"); v != "" {
		c.Admin.TokenHash = v
		c.Admin.Enabled = true
	}

	// KEEPALIVE_<LABEL>_DSN keeps credentials out of the config file.
	for i := range c.Targets {
		if c.Targets[i].SQL == nil {
			continue
		}

		if v := os.Getenv("KEEPALIVE_" + envName(c.Targets[i].Label) + "_DSN"); v != "" {
			c.Targets[i].SQL.DSN = v
		}
	}

	return nil
}

func envName(label string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, label)
}

// Validate checks the configuration without connecting to anything.
func (c *Config) Validate() error {
	var errs []error

	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(c.Targets) == 0 {
		errs = append(errs, errors.New("at least one target is required"))
	}

	seen := make(map[string]struct{}, len(c.Targets))
	for i, t := range c.Targets {
		if t.Label == "" {
			errs = append(errs, fmt.Errorf("targets[%d]: label is required", i))
		} else if _, dup := seen[t.Label]; dup {
			errs = append(errs, fmt.Errorf("targets[%d]: duplicate label %q", i, t.Label))
		}
		seen[t.Label] = struct{}{}

		if (t.SQL == nil) == (t.HTTP == nil) {
			errs = append(errs, fmt.Errorf("target %q: exactly one of sql or http is required", t.Label))
		}

		if t.SQL != nil {
			if t.SQL.DSN == "" {
				errs = append(errs, fmt.Errorf("target %q: sql.dsn is required", t.Label))
			}

			if t.SQL.Driver != "" && t.SQL.Driver != "postgres" && t.SQL.Driver != "sqlite" {
				errs = append(errs, fmt.Errorf("target %q: sql.driver must be postgres or sqlite, got %q", t.Label, t.SQL.Driver))
			}
		}

		if t.HTTP != nil && t.HTTP.URL == "" {
			errs = append(errs, fmt.Errorf("target %q: http.url is required", t.Label))
		}

		if t.InactivityLimit <= 0 {
			errs = append(errs, fmt.Errorf("target %q: inactivityLimit must be positive, got %s", t.Label, t.InactivityLimit))
		}

		if t.MaxRetryAttempts != nil && *t.MaxRetryAttempts < 0 {
			errs = append(errs, fmt.Errorf("target %q: maxRetryAttempts must not be negative", t.Label))
		}

		if t.RetryDelay < 0 {
			errs = append(errs, fmt.Errorf("target %q: retryDelay must not be negative", t.Label))
		}

		if _, err := keepalive.ParseWindowPolicy(t.WindowPolicy); err != nil {
			errs = append(errs, fmt.Errorf("target %q: %w", t.Label, err))
		}
	}

	return errors.Join(errs...)
}

// KeepAliveConfig converts the target to a scheduler configuration running action.
// Unset retry settings keep the keepalive defaults.
func (t Target) KeepAliveConfig(action application.Runner) (keepalive.Config, error) {
	policy, err := keepalive.ParseWindowPolicy(t.WindowPolicy)
	if err != nil {
		return keepalive.Config{}, err
	}

	cfg := keepalive.DefaultConfig()
	cfg.Label = t.Label
	cfg.InactivityLimit = t.InactivityLimit
	cfg.Action = action
	cfg.WindowPolicy = policy

	switch {
	case t.MaxRetryAttempts == nil:
	case *t.MaxRetryAttempts == 0:
		cfg.MaxRetryAttempts = keepalive.NoRetries
	default:
		cfg.MaxRetryAttempts = *t.MaxRetryAttempts
	}

	if t.RetryDelay != 0 {
		cfg.RetryDelay = t.RetryDelay
	}

	return cfg, nil
}
