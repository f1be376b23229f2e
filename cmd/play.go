package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/tunestream/internal/service"
)

func newPlayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "play URL...",
		Short: "Queue stream URLs and play the first",
		Long: `Queue the given http(s) audio URLs and start playing the first one.
Commands are read from standard input, one per line:

  p          play/pause
  n          next track
  b          previous track (restarts the current one after 3s)
  s SECONDS  seek
  x          stop
  q          quit`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown() }()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			res, err := a.PlayURLs(ctx, args)
			if err != nil {
				return err
			}
			if !res.OK() {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", res.Err)
			}
			return interactive(ctx, cmd, a)
		},
	}
}

func newRadioCmd(opts *rootOptions) *cobra.Command {
	var genre string

	cmd := &cobra.Command{
		Use:   "radio",
		Short: "Play featured catalog tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateGenre(genre); err != nil {
				return err
			}
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown() }()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			res, err := a.PlayRadio(ctx, genre)
			if err != nil {
				return err
			}
			if !res.OK() {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", res.Err)
			}
			return interactive(ctx, cmd, a)
		},
	}
	cmd.Flags().StringVarP(&genre, "genre", "g", service.AllGenres, "genre filter")
	return cmd
}
