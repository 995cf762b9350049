package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the relay configuration for required fields and valid
// values. The remote section is checked separately by RemoteConfig.Validate
// since only copawctl needs it. A missing upstream API key is not an
// error: the relay starts and reports the problem per request.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Upstream.BaseURL == "" {
		errs = append(errs, fmt.Errorf("upstream.base_url is required"))
	} else if u, err := url.Parse(c.Upstream.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("upstream.base_url must be an http(s) URL, got %q", c.Upstream.BaseURL))
	}

	if c.Upstream.Model == "" {
		errs = append(errs, fmt.Errorf("upstream.model is required"))
	}

	if c.Session.MaxHistory < 0 {
		errs = append(errs, fmt.Errorf("session.max_history must be >= 0, got %d", c.Session.MaxHistory))
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "ERROR", "WARN", "WARNING", "INFO", "DEBUG", "TRACE":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of ERROR, WARN, INFO, DEBUG, TRACE, got %q", c.Logging.Level))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	return errors.Join(errs...)
}

// Validate checks the remote section for what an SSH session needs.
func (r *RemoteConfig) Validate() error {
	var errs []error

	if r.Host == "" {
		errs = append(errs, fmt.Errorf("remote.host is required"))
	}
	if r.Port <= 0 || r.Port > 65535 {
		errs = append(errs, fmt.Errorf("remote.port must be between 1 and 65535, got %d", r.Port))
	}
	if r.User == "" {
		errs = append(errs, fmt.Errorf("remote.user is required"))
	}
	if r.Password == "" {
		errs = append(errs, fmt.Errorf("remote.password or remote.password_file is required"))
	}
	if r.Proxy.Host != "" && (r.Proxy.Port <= 0 || r.Proxy.Port > 65535) {
		errs = append(errs, fmt.Errorf("remote.proxy.port must be between 1 and 65535, got %d", r.Proxy.Port))
	}
	if r.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("remote.connect_timeout must be > 0"))
	}

	return errors.Join(errs...)
}
