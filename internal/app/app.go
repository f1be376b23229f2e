// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"sync"

	"github.com/tejashwikalptaru/tunestream/internal/adapter/catalog/jamendo"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/media/mock"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/media/stream"
	"github.com/tejashwikalptaru/tunestream/internal/adapter/ui/console"
	"github.com/tejashwikalptaru/tunestream/internal/config"
	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/logger"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
	"github.com/tejashwikalptaru/tunestream/internal/service"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
type Application struct {
	// Core dependencies
	logger *slog.Logger
	cfg    *config.Config
	stdout io.Writer

	// Infrastructure
	eventBus *eventbus.SyncEventBus
	player   ports.MediaPlayer
	catalog  ports.Catalog

	// Services
	controller *service.PlaybackController
	browse     *service.BrowseService

	// UI
	presenter *console.Presenter

	subs         []domain.SubscriptionID
	shutdownOnce sync.Once
	shutdownErr  error
}

// Options configure NewApplication.
type Options struct {
	// Config is required
	Config *config.Config

	// Stdout receives the now-playing line (defaults to os.Stdout)
	Stdout io.Writer

	// LogOutput receives log records (defaults to os.Stderr)
	LogOutput io.Writer

	// Player replaces the configured media player
	Player ports.MediaPlayer

	// Catalog replaces the Jamendo client
	Catalog ports.Catalog
}

// NewApplication creates a new application with all dependencies wired.
func NewApplication(opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, domain.NewValidationError("config", nil, "configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, domain.NewValidationError("log.level", cfg.Log.Level, err.Error())
	}

	app := &Application{
		cfg:    cfg,
		stdout: opts.Stdout,
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}

	// Step 1: Logger
	app.logger = logger.NewLogger(logger.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: opts.LogOutput,
	})
	app.logger.Debug("initializing application",
		slog.String("version", GetVersionInfo().FullString()),
		slog.String("config_file", cfg.File))

	// Step 2: Event bus
	app.eventBus = eventbus.NewSyncEventBus(app.logger)

	// Step 3: Media player
	switch {
	case opts.Player != nil:
		app.player = opts.Player
	case cfg.Audio.Mock:
		app.player = mock.NewPlayer(app.logger.With(slog.String("player", "mock")))
	default:
		app.player = stream.NewPlayer(stream.Config{
			SampleRate: cfg.Audio.SampleRate,
			MaxBytes:   cfg.Audio.MaxStreamBytes,
			HTTPClient: &http.Client{},
			Logger:     app.logger.With(slog.String("player", "stream")),
		})
	}

	// Step 4: Services
	app.controller = service.NewPlaybackController(
		app.logger.With(slog.String("service", "playback")),
		app.player,
		app.eventBus,
		service.ControllerOptions{
			StatusInterval:   cfg.Playback.StatusInterval,
			RestartThreshold: cfg.Playback.RestartThreshold,
			AutoAdvance:      cfg.Playback.AutoAdvance,
		},
	)

	// Step 5: Catalog. Only the commands that browse need a client id.
	switch {
	case opts.Catalog != nil:
		app.catalog = opts.Catalog
	case cfg.Catalog.ClientID != "":
		client, err := jamendo.NewClient(jamendo.Config{
			ClientID: cfg.Catalog.ClientID,
			BaseURL:  cfg.Catalog.BaseURL,
			Limit:    cfg.Catalog.Limit,
			Timeout:  cfg.Catalog.Timeout,
			Logger:   app.logger.With(slog.String("component", "jamendo")),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create catalog client: %w", err)
		}
		app.catalog = client
	}
	if app.catalog != nil {
		app.browse = service.NewBrowseService(app.logger.With(slog.String("service", "browse")), app.catalog)
	}

	// Step 6: Presenter and view
	app.presenter = console.NewPresenter(app.logger, app.controller, app.eventBus, console.NewLineView(app.stdout))

	app.subs = append(app.subs,
		eventbus.On(app.eventBus, domain.EventTrackLoaded, func(e domain.TrackLoadedEvent) {
			app.logger.Info("now playing",
				slog.String("track_id", e.Track.ID),
				slog.String("name", e.Track.Name),
				slog.Int("index", e.Index))
		}),
		eventbus.On(app.eventBus, domain.EventTrackError, func(e domain.TrackErrorEvent) {
			app.logger.Warn("track unavailable",
				slog.String("track_id", e.Track.ID),
				slog.Any("error", e.Error))
		}),
	)

	return app, nil
}

// Controller returns the playback controller.
func (a *Application) Controller() *service.PlaybackController { return a.controller }

// Presenter returns the now-playing presenter.
func (a *Application) Presenter() *console.Presenter { return a.presenter }

// EventBus returns the application event bus.
func (a *Application) EventBus() ports.EventBus { return a.eventBus }

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// Browse returns the browse service, or a validation error when no
// catalog client id is configured.
func (a *Application) Browse() (*service.BrowseService, error) {
	if a.browse == nil {
		return nil, domain.NewValidationError("catalog.client_id", "", "required for catalog access (set TUNESTREAM_CATALOG_CLIENT_ID)")
	}
	return a.browse, nil
}

// PlayURLs queues one track per URL and starts the first.
func (a *Application) PlayURLs(ctx context.Context, urls []string) (domain.LoadResult, error) {
	tracks, err := TracksFromURLs(urls)
	if err != nil {
		return domain.LoadResult{}, err
	}
	return a.presenter.Play(ctx, tracks[0], tracks), nil
}

// PlayRadio queues the featured tracks for genre and starts the first.
func (a *Application) PlayRadio(ctx context.Context, genre string) (domain.LoadResult, error) {
	browse, err := a.Browse()
	if err != nil {
		return domain.LoadResult{}, err
	}
	tracks, err := browse.Radio(ctx, genre)
	if err != nil {
		return domain.LoadResult{}, err
	}
	return a.presenter.Play(ctx, tracks[0], tracks), nil
}

// PlaySearch queues the catalog tracks matching query and starts the first.
func (a *Application) PlaySearch(ctx context.Context, query string) (domain.LoadResult, error) {
	browse, err := a.Browse()
	if err != nil {
		return domain.LoadResult{}, err
	}
	tracks, err := browse.Search(ctx, query)
	if err != nil {
		return domain.LoadResult{}, err
	}
	return a.presenter.Play(ctx, tracks[0], tracks), nil
}

// RunCommands reads transport commands from r until quit or EOF.
func (a *Application) RunCommands(ctx context.Context, r io.Reader) error {
	_, _ = fmt.Fprintln(a.stdout, console.Help)
	return console.RunCommands(ctx, a.presenter, r, a.stdout)
}

// Shutdown gracefully shuts down the application.
// Components are stopped in reverse order of creation. Calling it again
// returns the first result.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.logger.Debug("shutting down application")

		for _, id := range a.subs {
			a.eventBus.Unsubscribe(id)
		}
		a.presenter.Close()

		var errs []error
		if err := a.controller.Shutdown(); err != nil {
			a.logger.Warn("failed to shutdown playback controller", slog.Any("error", err))
			errs = append(errs, err)
		}
		if err := a.eventBus.Close(); err != nil {
			errs = append(errs, err)
		}

		published, panics := a.eventBus.Stats()
		a.logger.Debug("application shutdown complete",
			slog.Uint64("events_published", published),
			slog.Uint64("handler_panics", panics))
		a.shutdownErr = errors.Join(errs...)
	})
	return a.shutdownErr
}

// TracksFromURLs builds ad-hoc tracks for direct stream URLs.
// Only http and https URLs are accepted.
func TracksFromURLs(urls []string) ([]domain.Track, error) {
	if len(urls) == 0 {
		return nil, domain.ErrQueueEmpty
	}
	tracks := make([]domain.Track, 0, len(urls))
	for i, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, domain.NewValidationError("url", raw, "must be an http or https URL")
		}
		name := path.Base(u.Path)
		if name == "/" || name == "." {
			name = u.Host
		}
		tracks = append(tracks, domain.Track{
			ID:       "url-" + strconv.Itoa(i+1),
			Name:     name,
			AudioURL: raw,
		})
	}
	return tracks, nil
}
