package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/rhuss/copaw/pkg/debug"
)

// Client is an open SSH connection to the remote host.
type Client struct {
	cfg Config
	ssh *ssh.Client
}

// Result is the outcome of a remote command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Dial connects to the remote host, through the SOCKS5 proxy when one is
// configured, and completes the SSH password handshake.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Host == "" {
		return nil, errors.New("remote host is required")
	}

	hostKey, err := cfg.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	d, err := cfg.dialer()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	addr := cfg.address()
	debug.Log("remote", "dialing", "addr", addr, "proxy", cfg.Proxy.Host != "")

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	// The handshake itself does not watch ctx; a deadline on the
	// connection bounds it instead.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	sc, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg.clientConfig(hostKey))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	debug.Log("remote", "connected", "addr", addr, "user", cfg.User)
	return &Client{cfg: cfg, ssh: ssh.NewClient(sc, chans, reqs)}, nil
}

// Run executes cmd in a new session and collects its output. A non-zero
// exit status is reported in Result.ExitCode, not as an error. When ctx
// has no deadline the configured command timeout applies.
func (c *Client) Run(ctx context.Context, cmd string) (Result, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CommandTimeout)
		defer cancel()
	}

	sess, err := c.ssh.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	debug.Log("remote", "run", "cmd", debug.Truncate(cmd, 200))

	done := make(chan error, 1)
	go func() { done <- sess.Run(cmd) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		sess.Close()
		return Result{ExitCode: -1}, fmt.Errorf("run %q: %w", cmd, ctx.Err())
	}

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitStatus()
		return res, nil
	}
	res.ExitCode = -1
	return res, fmt.Errorf("run %q: %w", cmd, err)
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	return c.ssh.Close()
}
