package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rhuss/copaw/pkg/remote"
)

const defaultCommand = "echo hello"

func newExecCmd(opts *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exec [command...]",
		Short: "Run a command on the remote host",
		Long: `Run a command on the remote host and forward its output.

Arguments are joined with spaces into one shell command. Without
arguments "echo hello" is run as a connectivity check. copawctl exits
with the remote command's exit code.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve()
			if err != nil {
				return err
			}

			command := strings.Join(args, " ")
			if command == "" {
				command = defaultCommand
			}

			client, err := remote.Dial(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			res, err := client.Run(cmd.Context(), command)
			if res.Stdout != "" {
				fmt.Fprint(cmd.OutOrStdout(), res.Stdout)
			}
			if res.Stderr != "" {
				fmt.Fprint(cmd.ErrOrStderr(), res.Stderr)
			}
			if err != nil {
				return err
			}
			if res.ExitCode != 0 {
				return &exitError{Code: res.ExitCode}
			}
			return nil
		},
	}
}
