package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var play bool

	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search catalog tracks",
		Long: `Search the catalog for tracks matching QUERY (at least 2 characters).
With --play the results are queued and played, reading commands from
standard input as the play command does.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown() }()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			if play {
				res, err := a.PlaySearch(ctx, query)
				if err != nil {
					return err
				}
				if !res.OK() {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", res.Err)
				}
				return interactive(ctx, cmd, a)
			}

			browse, err := a.Browse()
			if err != nil {
				return err
			}
			tracks, err := browse.Search(ctx, query)
			if err != nil {
				return err
			}
			printTracks(cmd.OutOrStdout(), fmt.Sprintf("Results for %q", query), tracks)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&play, "play", "p", false, "queue the results and start playing")
	return cmd
}
