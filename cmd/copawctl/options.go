package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhuss/copaw/pkg/config"
	"github.com/rhuss/copaw/pkg/debug"
	"github.com/rhuss/copaw/pkg/remote"
)

// remoteOptions holds the persistent connection flags. Flags left unset
// fall back to the loaded configuration.
type remoteOptions struct {
	configPath string

	host           string
	port           int
	user           string
	passwordFile   string
	knownHosts     string
	proxyHost      string
	proxyPort      int
	proxyUser      string
	proxyPassFile  string
	connectTimeout time.Duration
	commandTimeout time.Duration

	cfg       *config.Config
	logCloser io.Closer
}

func (o *remoteOptions) bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "", "path to YAML config file")
	f.StringVar(&o.host, "host", "", "SSH host")
	f.IntVar(&o.port, "port", 0, "SSH port")
	f.StringVarP(&o.user, "user", "u", "", "SSH user")
	f.StringVar(&o.passwordFile, "password-file", "", "file holding the SSH password")
	f.StringVar(&o.knownHosts, "known-hosts", "", "known_hosts file for host key verification")
	f.StringVar(&o.proxyHost, "proxy-host", "", "SOCKS5 proxy host")
	f.IntVar(&o.proxyPort, "proxy-port", 0, "SOCKS5 proxy port")
	f.StringVar(&o.proxyUser, "proxy-user", "", "SOCKS5 proxy user")
	f.StringVar(&o.proxyPassFile, "proxy-password-file", "", "file holding the SOCKS5 proxy password")
	f.DurationVar(&o.connectTimeout, "connect-timeout", 0, "proxy dial and SSH handshake timeout")
	f.DurationVar(&o.commandTimeout, "timeout", 0, "remote command timeout")
}

func (o *remoteOptions) load() (*config.Config, error) {
	if o.cfg == nil {
		cfg, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		o.cfg = cfg
	}
	return o.cfg, nil
}

// initLogging sets up the logger from the logging section of the loaded
// configuration.
func (o *remoteOptions) initLogging() error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	o.logCloser = debug.Init(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	return nil
}

func (o *remoteOptions) closeLogging() error {
	if o.logCloser == nil {
		return nil
	}
	err := o.logCloser.Close()
	o.logCloser = nil
	return err
}

// resolve loads the configuration and applies flag overrides. Passwords
// are only accepted from files, the environment or the config file so
// they never show up in the process list.
func (o *remoteOptions) resolve() (remote.Config, error) {
	cfg, err := o.load()
	if err != nil {
		return remote.Config{}, err
	}
	rc := cfg.Remote

	setString(&rc.Host, o.host)
	setInt(&rc.Port, o.port)
	setString(&rc.User, o.user)
	setString(&rc.KnownHostsFile, o.knownHosts)
	setString(&rc.Proxy.Host, o.proxyHost)
	setInt(&rc.Proxy.Port, o.proxyPort)
	setString(&rc.Proxy.User, o.proxyUser)
	if o.connectTimeout > 0 {
		rc.ConnectTimeout = o.connectTimeout
	}
	if o.commandTimeout > 0 {
		rc.CommandTimeout = o.commandTimeout
	}

	if o.passwordFile != "" {
		rc.Password = ""
		rc.PasswordFile = o.passwordFile
	}
	if o.proxyPassFile != "" {
		rc.Proxy.Password = ""
		rc.Proxy.PasswordFile = o.proxyPassFile
	}
	if err := config.ResolveRemoteSecrets(&rc); err != nil {
		return remote.Config{}, err
	}

	if err := rc.Validate(); err != nil {
		return remote.Config{}, err
	}
	return toRemoteConfig(rc), nil
}

func toRemoteConfig(rc config.RemoteConfig) remote.Config {
	return remote.Config{
		Host:           rc.Host,
		Port:           rc.Port,
		User:           rc.User,
		Password:       rc.Password,
		KnownHostsFile: rc.KnownHostsFile,
		Proxy: remote.ProxyConfig{
			Host:     rc.Proxy.Host,
			Port:     rc.Proxy.Port,
			User:     rc.Proxy.User,
			Password: rc.Proxy.Password,
		},
		ConnectTimeout: rc.ConnectTimeout,
		CommandTimeout: rc.CommandTimeout,
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
