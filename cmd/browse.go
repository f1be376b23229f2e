package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/tunestream/internal/adapter/ui/console"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/service"
)

var headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))

func newBrowseCmd(opts *rootOptions) *cobra.Command {
	var genre string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Print featured tracks, trending tracks and new albums",
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

			browse, err := a.Browse()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			feed, err := browse.Home(ctx, genre)
			if err != nil {
				return err
			}
			printFeed(cmd.OutOrStdout(), feed)
			return nil
		},
	}
	cmd.Flags().StringVarP(&genre, "genre", "g", service.AllGenres, "genre filter")
	return cmd
}

func printFeed(w io.Writer, feed *service.HomeFeed) {
	printTracks(w, "Featured", feed.Featured)
	printTracks(w, "Trending", feed.Trending)

	_, _ = fmt.Fprintln(w, headingStyle.Render("New albums"))
	for i, a := range feed.Albums {
		_, _ = fmt.Fprintf(w, "%3d. %s - %s (%s)\n", i+1, a.Name, a.ArtistName, a.ReleaseDate)
	}
}

func printTracks(w io.Writer, title string, tracks []domain.Track) {
	_, _ = fmt.Fprintln(w, headingStyle.Render(title))
	for i, t := range tracks {
		_, _ = fmt.Fprintf(w, "%3d. %s - %s [%s] %s\n", i+1, t.Name, t.ArtistName, t.DisplayAlbum(), duration(t.Duration))
	}
}

func duration(d time.Duration) string {
	if d <= 0 {
		return "-:--"
	}
	return console.FormatTime(d)
}
