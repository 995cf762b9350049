// Package config provides unified configuration for the copaw relay and
// its remote host helpers.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. .env file in the working directory (never overrides the environment)
//  4. Environment variable overrides (LLM_*, DEEPSEEK_*, COPAW_*)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all configuration for the copaw relay.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Session       SessionConfig       `yaml:"session"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
	Remote        RemoteConfig        `yaml:"remote"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`             // default: "0.0.0.0"
	Port            int           `yaml:"port"`             // default: 8088
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MB
	KeepAlive       time.Duration `yaml:"keep_alive"`       // SSE ping interval, default: 15s
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// UpstreamConfig holds the chat-completions backend settings.
type UpstreamConfig struct {
	BaseURL        string        `yaml:"base_url"`        // default: "https://api.deepseek.com/v1"
	APIKey         string        `yaml:"api_key"`         // optional; relay calls fail without it
	APIKeyFile     string        `yaml:"api_key_file"`    // _file variant for api_key
	Model          string        `yaml:"model"`           // default: "deepseek-chat"
	SystemPrompt   string        `yaml:"system_prompt"`   // default: the CoPaw assistant prompt
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // default: 60s
}

// SessionConfig holds session history settings.
type SessionConfig struct {
	// MaxHistory is the number of exchanges kept per session. A session
	// holds at most 2*MaxHistory turns. Zero means unlimited.
	MaxHistory int `yaml:"max_history"` // default: 20
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`        // ERROR, WARN, INFO, DEBUG, TRACE; default: INFO
	Format     string `yaml:"format"`       // "text" or "json"; default: "text"
	Debug      string `yaml:"debug"`        // comma separated debug categories
	File       string `yaml:"file"`         // rotated log file; empty means stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`  // default: 50
	MaxBackups int    `yaml:"max_backups"`  // default: 3
	MaxAgeDays int    `yaml:"max_age_days"` // default: 28
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// RemoteConfig holds the SSH-over-SOCKS5 settings used by copawctl. No
// host or credential has a default.
type RemoteConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"` // default: 22
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	PasswordFile   string `yaml:"password_file"`    // _file variant for password
	KnownHostsFile string `yaml:"known_hosts_file"` // empty accepts any host key

	Proxy ProxyConfig `yaml:"proxy"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"` // default: 30s
	CommandTimeout time.Duration `yaml:"command_timeout"` // default: 120s
}

// ProxyConfig describes the SOCKS5 proxy the SSH connection is tunnelled
// through. An empty Host dials the SSH server directly.
type ProxyConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"` // default: 1080
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	PasswordFile string `yaml:"password_file"` // _file variant for password
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8088,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     10 << 20,
			KeepAlive:       15 * time.Second,
		},
		Upstream: UpstreamConfig{
			BaseURL:        "https://api.deepseek.com/v1",
			Model:          "deepseek-chat",
			ConnectTimeout: 60 * time.Second,
		},
		Session: SessionConfig{
			MaxHistory: 20,
		},
		Logging: LoggingConfig{
			Level:      "INFO",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Remote: RemoteConfig{
			Port:           22,
			ConnectTimeout: 30 * time.Second,
			CommandTimeout: 120 * time.Second,
			Proxy: ProxyConfig{
				Port: 1080,
			},
		},
	}
}
