// Package config loads and validates tool configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Validation sentinels for required connection parameters. Both are detected
// before any network I/O and map to exit code 2.
var (
	ErrMissingHost        = errors.New("server host is required (flag --host or SPLUNKQ_CONNECTION_HOST)")
	ErrMissingCredentials = errors.New("credentials are required (flags --user/--password or SPLUNKQ_CONNECTION_USER/SPLUNKQ_CONNECTION_PASSWORD)")
)

// Config captures all tool configuration loaded via Viper.
type Config struct {
	Connection ConnectionConfig `mapstructure:"connection"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Search     SearchConfig     `mapstructure:"search"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
}

// ConnectionConfig identifies the server and credentials.
type ConnectionConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Insecure bool   `mapstructure:"insecure"`
}

// HTTPConfig bounds individual requests.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// SearchConfig bounds the poll loop of one run.
type SearchConfig struct {
	MaxWaitSeconds int `mapstructure:"max_wait_seconds"`
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MonitorConfig controls the monitor server.
type MonitorConfig struct {
	Port            int `mapstructure:"port"`
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// Bind wires defaults and environment lookup into v. Environment variables
// use the SPLUNKQ prefix, e.g. SPLUNKQ_CONNECTION_HOST. This is the only
// place the process environment is consulted.
func Bind(v *viper.Viper) {
	v.SetEnvPrefix("SPLUNKQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
}

// Load builds a Config from v, optionally merging a config file first.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout_seconds", 20)
	v.SetDefault("search.max_wait_seconds", 120)
	v.SetDefault("search.poll_interval_ms", 1500)
	v.SetDefault("connection.insecure", false)
	v.SetDefault("logging.development", true)
	v.SetDefault("monitor.port", 8080)
	v.SetDefault("monitor.interval_seconds", 300)
}

// Validate enforces reasonable limits on everything except the connection,
// which only network commands require (see ValidateConnection).
func (c Config) Validate() error {
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Search.MaxWaitSeconds <= 0 {
		return fmt.Errorf("search.max_wait_seconds must be > 0")
	}
	if c.Search.PollIntervalMs <= 0 {
		return fmt.Errorf("search.poll_interval_ms must be > 0")
	}
	if c.Monitor.Port <= 0 {
		return fmt.Errorf("monitor.port must be > 0")
	}
	if c.Monitor.IntervalSeconds <= 0 {
		return fmt.Errorf("monitor.interval_seconds must be > 0")
	}
	return nil
}

// ValidateConnection checks the parameters every network command needs,
// before any request is made.
func (c Config) ValidateConnection() error {
	if c.Connection.Host == "" {
		return ErrMissingHost
	}
	if c.Connection.User == "" || c.Connection.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Timeout returns the per-request HTTP timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// MaxWait returns the poll-loop deadline budget.
func (c Config) MaxWait() time.Duration {
	return time.Duration(c.Search.MaxWaitSeconds) * time.Second
}

// PollInterval returns the pause between status checks.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Search.PollIntervalMs) * time.Millisecond
}

// MonitorInterval returns the pause between monitor probes.
func (c Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}
