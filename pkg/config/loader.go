package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rhuss/copaw/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, COPAW_CONFIG env, ./config.yaml, /etc/copaw/config.yaml)
//  3. .env file (COPAW_ENV_FILE or ./.env)
//  4. Environment variable mapping
//  5. File reference resolution (_file suffix)
//  6. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded file", "path", filePath)
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. COPAW_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/copaw/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("COPAW_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/copaw/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// loadDotEnv loads KEY=VALUE pairs from COPAW_ENV_FILE, or ./.env, into
// the process environment. Variables already set are left alone. A
// missing file is not an error.
func loadDotEnv() error {
	path := os.Getenv("COPAW_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	debug.Log("config", "loaded env file", "path", path)
	return nil
}

// firstEnv returns the value of the first set, non-empty variable.
func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envString(dst *string, names ...string) {
	if v := firstEnv(names...); v != "" {
		*dst = v
	}
}

// applyEnvOverrides maps environment variables to config fields. The
// vendor-neutral LLM_* names take precedence over the DEEPSEEK_* names.
func applyEnvOverrides(cfg *Config) {
	envString(&cfg.Upstream.APIKey, "LLM_API_KEY", "DEEPSEEK_API_KEY")
	envString(&cfg.Upstream.BaseURL, "LLM_BASE_URL", "DEEPSEEK_BASE_URL")
	envString(&cfg.Upstream.Model, "LLM_MODEL", "DEEPSEEK_MODEL")
	envString(&cfg.Upstream.SystemPrompt, "SYSTEM_PROMPT")

	envString(&cfg.Server.Host, "COPAW_HOST")
	envInt("COPAW_PORT", &cfg.Server.Port)
	envInt("COPAW_MAX_HISTORY", &cfg.Session.MaxHistory)

	envString(&cfg.Logging.Level, "COPAW_LOG_LEVEL")
	envString(&cfg.Logging.Format, "COPAW_LOG_FORMAT")
	envString(&cfg.Logging.File, "COPAW_LOG_FILE")
	envString(&cfg.Logging.Debug, "COPAW_DEBUG")

	if v := os.Getenv("COPAW_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Observability.Metrics.Enabled = b
		}
	}

	envString(&cfg.Remote.Host, "COPAW_REMOTE_HOST")
	envInt("COPAW_REMOTE_PORT", &cfg.Remote.Port)
	envString(&cfg.Remote.User, "COPAW_REMOTE_USER")
	envString(&cfg.Remote.Password, "COPAW_REMOTE_PASSWORD")
	envString(&cfg.Remote.KnownHostsFile, "COPAW_REMOTE_KNOWN_HOSTS")
	envString(&cfg.Remote.Proxy.Host, "COPAW_REMOTE_PROXY_HOST")
	envInt("COPAW_REMOTE_PROXY_PORT", &cfg.Remote.Proxy.Port)
	envString(&cfg.Remote.Proxy.User, "COPAW_REMOTE_PROXY_USER")
	envString(&cfg.Remote.Proxy.Password, "COPAW_REMOTE_PROXY_PASSWORD")
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	if err := resolveRefs([]fileRef{
		{"upstream.api_key_file", cfg.Upstream.APIKeyFile, &cfg.Upstream.APIKey},
	}); err != nil {
		return err
	}
	return ResolveRemoteSecrets(&cfg.Remote)
}

// ResolveRemoteSecrets fills the remote and proxy passwords from their
// _file fields when the passwords themselves are empty.
func ResolveRemoteSecrets(r *RemoteConfig) error {
	return resolveRefs([]fileRef{
		{"remote.password_file", r.PasswordFile, &r.Password},
		{"remote.proxy.password_file", r.Proxy.PasswordFile, &r.Proxy.Password},
	})
}

type fileRef struct {
	name string
	file string
	dst  *string
}

func resolveRefs(refs []fileRef) error {
	for _, ref := range refs {
		if ref.file == "" || *ref.dst != "" {
			continue
		}
		val, err := readSecretFile(ref.file)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.name, err)
		}
		*ref.dst = val
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
