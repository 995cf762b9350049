// Command copawctl runs commands on and uploads files to the host that
// serves the relay, over SSH through an optional SOCKS5 proxy.
//
// Connection settings come from flags, COPAW_REMOTE_* environment
// variables, or the remote section of the config file, in that order of
// precedence.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.2.0"

type exitError struct {
	Code int
	Err  error
}

func (e *exitError) Error() string {
	if e == nil || e.Err == nil {
		return "command failed"
	}
	return e.Err.Error()
}

func (e *exitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var coded *exitError
		if errors.As(err, &coded) {
			if coded.Err != nil {
				_, _ = fmt.Fprintln(os.Stderr, coded.Err)
			}
			os.Exit(coded.Code)
		}
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &remoteOptions{}

	root := &cobra.Command{
		Use:           "copawctl",
		Short:         "Remote host helper for CoPaw deployments",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return opts.initLogging()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return opts.closeLogging()
		},
	}
	opts.bind(root)

	root.AddCommand(
		newVersionCmd(),
		newExecCmd(opts),
		newUploadCmd(opts),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print copawctl version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "copawctl %s\n", version)
			return err
		},
	}
}
