package remote

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/net/proxy"
)

const (
	// DefaultConnectTimeout bounds the proxy dial and SSH handshake.
	DefaultConnectTimeout = 30 * time.Second

	// DefaultCommandTimeout bounds a single Run call when the caller's
	// context carries no deadline.
	DefaultCommandTimeout = 120 * time.Second
)

// Config describes how to reach the remote host.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string

	// KnownHostsFile enables host key verification. When empty any host
	// key is accepted.
	KnownHostsFile string

	Proxy ProxyConfig

	ConnectTimeout time.Duration
	CommandTimeout time.Duration
}

// ProxyConfig is a SOCKS5 proxy. An empty Host means a direct connection.
type ProxyConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = 22
	}
	if c.Proxy.Host != "" && c.Proxy.Port == 0 {
		c.Proxy.Port = 1080
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	return c
}

func (c Config) address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) proxyAddress() string {
	return net.JoinHostPort(c.Proxy.Host, strconv.Itoa(c.Proxy.Port))
}

// dialer returns the dialer used to open the TCP connection to the SSH
// server: a SOCKS5 dialer when a proxy is configured, a plain one otherwise.
func (c Config) dialer() (proxy.ContextDialer, error) {
	direct := &net.Dialer{Timeout: c.ConnectTimeout}
	if c.Proxy.Host == "" {
		return direct, nil
	}

	var auth *proxy.Auth
	if c.Proxy.User != "" {
		auth = &proxy.Auth{User: c.Proxy.User, Password: c.Proxy.Password}
	}
	d, err := proxy.SOCKS5("tcp", c.proxyAddress(), auth, direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy %s: %w", c.proxyAddress(), err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("socks5 dialer does not support contexts")
	}
	return cd, nil
}

func (c Config) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if c.KnownHostsFile == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(c.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("known hosts %s: %w", c.KnownHostsFile, err)
	}
	return cb, nil
}

func (c Config) clientConfig(hostKey ssh.HostKeyCallback) *ssh.ClientConfig {
	password := c.Password
	return &ssh.ClientConfig{
		User: c.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKey,
		Timeout:         c.ConnectTimeout,
	}
}
