package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/tunestream/internal/app"
	"github.com/tejashwikalptaru/tunestream/internal/config"
	"github.com/tejashwikalptaru/tunestream/internal/service"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configFile string
	logLevel   string
	mockAudio  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tunestream",
		Short: "Stream music from the terminal",
		Long: `tunestream plays remote audio streams with a single-handle playback
controller, and browses the Jamendo catalog.

Configuration is read from config.yaml in $XDG_CONFIG_HOME/tunestream,
~/.config/tunestream or the working directory, then from TUNESTREAM_*
environment variables (a .env file is honoured).`,
		Version:      app.GetVersionInfo().Short(),
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default searches the standard locations)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&opts.mockAudio, "mock-audio", false, "use the in-memory player instead of the audio device")

	cmd.AddCommand(
		newPlayCmd(opts),
		newRadioCmd(opts),
		newBrowseCmd(opts),
		newSearchCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig reads configuration and applies flag overrides.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.Options{File: o.configFile})
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if o.mockAudio {
		cfg.Audio.Mock = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp builds the application with the command's standard output.
func (o *rootOptions) newApp(cmd *cobra.Command) (*app.Application, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.NewApplication(app.Options{
		Config: cfg,
		Stdout: cmd.OutOrStdout(),
	})
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// validateGenre accepts the catalog genres, case-insensitively.
func validateGenre(genre string) error {
	if lo.ContainsBy(service.Genres, func(g string) bool { return strings.EqualFold(g, genre) }) {
		return nil
	}
	return fmt.Errorf("unknown genre %q (choose from %s)", genre, strings.Join(service.Genres, ", "))
}

// interactive plays until the command reader ends. An interrupt is a normal exit.
func interactive(ctx context.Context, cmd *cobra.Command, a *app.Application) error {
	err := a.RunCommands(ctx, cmd.InOrStdin())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
