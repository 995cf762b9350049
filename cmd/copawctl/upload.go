package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhuss/copaw/pkg/remote"
)

func newUploadCmd(opts *remoteOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <local-dir> <remote-dir>",
		Short: "Upload the files of a local directory to the remote host",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			local, dest := args[0], args[1]

			cfg, err := opts.resolve()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uploading %s -> %s\n", local, dest)

			client, err := remote.Dial(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := client.UploadDir(cmd.Context(), local, dest, out); err != nil {
				return err
			}
			fmt.Fprintln(out, "Done!")
			return nil
		},
	}
}
