// Package service provides the business logic of tunestream: the playback
// controller that owns the single live media handle, and the browse service
// that assembles the catalog home feed.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/tunestream/internal/domain"
	"github.com/tejashwikalptaru/tunestream/internal/ports"
)

// Default controller timings.
const (
	DefaultStatusInterval   = 500 * time.Millisecond
	DefaultRestartThreshold = 3 * time.Second
)

// ControllerOptions configure a PlaybackController.
type ControllerOptions struct {
	// StatusInterval is requested from the media primitive for periodic snapshots
	StatusInterval time.Duration

	// RestartThreshold is the position past which PlayPrev rewinds the current
	// track instead of moving to the previous one
	RestartThreshold time.Duration

	// AutoAdvance loads the next queued track when the current one finishes
	AutoAdvance bool
}

// DefaultControllerOptions returns the default controller options.
func DefaultControllerOptions() ControllerOptions {
	return ControllerOptions{
		StatusInterval:   DefaultStatusInterval,
		RestartThreshold: DefaultRestartThreshold,
	}
}

// PlaybackController mediates between transport commands and a single
// media handle, keeping a PlaybackSession consistent with the handle's
// asynchronous status reports.
//
// Concurrency: every transport operation holds the in-flight token for its
// whole duration, so overlapping calls run one after another. The session
// is guarded by mu, which is never held while calling into the media
// player; players may therefore deliver snapshots synchronously.
type PlaybackController struct {
	// Dependencies (injected)
	logger *slog.Logger
	player ports.MediaPlayer
	bus    ports.EventBus
	opts   ControllerOptions

	// token is the in-flight-operation token (capacity 1)
	token chan struct{}

	// handle is owned by the token holder
	handle ports.MediaHandle

	// mu protects session, generation and closed
	mu         sync.RWMutex
	session    domain.PlaybackSession
	generation uint64
	closed     bool

	// lifetime of background work; canceled by Shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPlaybackController creates a playback controller.
// Zero option fields fall back to their defaults.
func NewPlaybackController(
	logger *slog.Logger,
	player ports.MediaPlayer,
	bus ports.EventBus,
	opts ControllerOptions,
) *PlaybackController {
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = DefaultStatusInterval
	}
	if opts.RestartThreshold <= 0 {
		opts.RestartThreshold = DefaultRestartThreshold
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &PlaybackController{
		logger: logger,
		player: player,
		bus:    bus,
		opts:   opts,
		token:  make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}

	logger.Debug("playback controller initialized",
		slog.Duration("status_interval", opts.StatusInterval),
		slog.Duration("restart_threshold", opts.RestartThreshold),
		slog.Bool("auto_advance", opts.AutoAdvance))

	return c
}

// PlayTrack loads track and starts playing it. queue becomes the play
// queue; a nil or empty queue means a queue holding only track. The queue
// index is the position of track in queue, or 0 when it is absent.
//
// Any open handle is stopped and released before the new one is opened.
// Load failures never panic and are reported through the result, the
// session's LastError and a TrackErrorEvent.
func (c *PlaybackController) PlayTrack(ctx context.Context, track domain.Track, queue []domain.Track) domain.LoadResult {
	if len(queue) == 0 {
		queue = []domain.Track{track}
	} else {
		queue = slices.Clone(queue)
	}
	index := domain.ResolveIndex(queue, track)

	if err := c.acquire(ctx); err != nil {
		return canceledResult(&track, index, err)
	}
	defer c.release()

	return c.load(ctx, track, queue, index)
}

// PlayNext loads the next queued track, wrapping from the last to the first.
// It is a no-op on an empty queue.
func (c *PlaybackController) PlayNext(ctx context.Context) domain.LoadResult {
	if err := c.acquire(ctx); err != nil {
		return canceledResult(nil, c.queueIndex(), err)
	}
	defer c.release()

	return c.step(ctx, domain.NextIndex)
}

// PlayPrev loads the previous queued track, wrapping from the first to the
// last. When the current track has played past the restart threshold it is
// rewound to the start instead and the queue index is left alone.
// It is a no-op on an empty queue.
func (c *PlaybackController) PlayPrev(ctx context.Context) domain.LoadResult {
	if err := c.acquire(ctx); err != nil {
		return canceledResult(nil, c.queueIndex(), err)
	}
	defer c.release()

	c.mu.RLock()
	position := c.session.Position
	index := c.session.QueueIndex
	empty := len(c.session.Queue) == 0
	var current *domain.Track
	if c.session.CurrentTrack != nil {
		t := *c.session.CurrentTrack
		current = &t
	}
	c.mu.RUnlock()

	if empty {
		return domain.LoadResult{Outcome: domain.OutcomeSkipped, Index: index}
	}

	if c.handle != nil && current != nil && position > c.opts.RestartThreshold {
		if err := c.handle.SetPosition(0); err != nil {
			c.logger.Warn("failed to restart track",
				slog.String("track_id", current.ID),
				slog.Any("error", err))
			return domain.LoadResult{
				Outcome: domain.OutcomeFailed,
				Track:   current,
				Index:   index,
				Err:     domain.NewLoadError(current.ID, err),
			}
		}
		c.logger.Debug("restarted current track",
			slog.String("track_id", current.ID),
			slog.Duration("from", position))
		c.bus.Publish(domain.NewTrackRestartedEvent(*current))
		return domain.LoadResult{Outcome: domain.OutcomeRestarted, Track: current, Index: index}
	}

	return c.step(ctx, domain.PrevIndex)
}

// TogglePlay pauses a playing handle or resumes a paused one.
// The session's playing flag only changes once the player reports it.
// Without an open handle this is a no-op.
func (c *PlaybackController) TogglePlay(ctx context.Context) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	if c.handle == nil {
		return nil
	}

	c.mu.RLock()
	playing := c.session.IsPlaying()
	c.mu.RUnlock()

	if playing {
		if err := c.handle.Pause(); err != nil {
			return fmt.Errorf("pause: %w", err)
		}
		return nil
	}
	if err := c.handle.Play(); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	return nil
}

// Seek moves playback of the open handle to position.
// The value is passed through unclamped. Without an open handle this is a no-op.
func (c *PlaybackController) Seek(ctx context.Context, position time.Duration) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	if c.handle == nil {
		return nil
	}
	if err := c.handle.SetPosition(position); err != nil {
		return fmt.Errorf("seek to %s: %w", position, err)
	}
	return nil
}

// Stop releases the open handle and resets the session to empty.
// The queue and queue index are kept.
func (c *PlaybackController) Stop(ctx context.Context) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	c.mu.Lock()
	c.generation++
	var track *domain.Track
	if c.session.CurrentTrack != nil {
		t := *c.session.CurrentTrack
		track = &t
	}
	c.session.Reset()
	c.mu.Unlock()

	err := c.teardown()
	c.bus.Publish(domain.NewTrackStoppedEvent(track))
	return err
}

// State returns a copy of the current session.
func (c *PlaybackController) State() domain.PlaybackSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Clone()
}

// UpNext returns the queued tracks after the current one.
func (c *PlaybackController) UpNext() []domain.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.UpNext()
}

// Shutdown aborts any in-flight load, waits for background work, releases
// the handle and resets the session. Later operations fail with
// domain.ErrControllerClosed. Calling Shutdown again is a no-op.
func (c *PlaybackController) Shutdown() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()

	// Wait for the in-flight operation; it sees the canceled context.
	c.token <- struct{}{}
	defer c.release()

	c.wg.Wait()

	c.mu.Lock()
	c.generation++
	c.session.Reset()
	c.mu.Unlock()

	err := c.teardown()
	c.logger.Debug("playback controller shut down")
	return err
}

// acquire takes the in-flight token, honoring ctx and controller shutdown.
func (c *PlaybackController) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.ctx.Err() != nil {
		return domain.ErrControllerClosed
	}

	select {
	case c.token <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return domain.ErrControllerClosed
	}

	if c.ctx.Err() != nil {
		c.release()
		return domain.ErrControllerClosed
	}
	return nil
}

func (c *PlaybackController) release() {
	<-c.token
}

func (c *PlaybackController) queueIndex() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.QueueIndex
}

// step moves the queue index with move and loads the resulting track.
// Caller must hold the token.
func (c *PlaybackController) step(ctx context.Context, move func(i, n int) int) domain.LoadResult {
	c.mu.RLock()
	queue := c.session.Queue
	index := c.session.QueueIndex
	c.mu.RUnlock()

	if len(queue) == 0 {
		return domain.LoadResult{Outcome: domain.OutcomeSkipped, Index: index}
	}

	next := move(index, len(queue))
	return c.load(ctx, queue[next], queue, next)
}

// load tears down the current handle and opens track. Caller must hold the token.
func (c *PlaybackController) load(ctx context.Context, track domain.Track, queue []domain.Track, index int) domain.LoadResult {
	requestID := uuid.NewString()
	log := c.logger.With(
		slog.String("request_id", requestID),
		slog.String("track_id", track.ID))

	// Bumping the generation first makes snapshots from the old handle stale,
	// including the ones its own teardown produces.
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.session.BeginLoad(track, queue, index)
	c.mu.Unlock()

	if err := c.teardown(); err != nil {
		log.Warn("failed to release previous handle", slog.Any("error", err))
	}

	c.bus.Publish(domain.NewQueueChangedEvent(slices.Clone(queue), index))
	c.bus.Publish(domain.NewTrackLoadingEvent(requestID, track, index))
	log.Debug("loading track", slog.String("uri", track.AudioURL), slog.Int("index", index))

	// The open is bounded by both the caller and the controller lifetime.
	openCtx, cancelOpen := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(c.ctx, cancelOpen)
	defer func() {
		stopAfter()
		cancelOpen()
	}()

	var (
		handle ports.MediaHandle
		err    error
	)
	if track.AudioURL == "" {
		err = domain.ErrInvalidTrack
	} else {
		handle, err = c.player.Open(openCtx, track.AudioURL, ports.OpenOptions{
			Autoplay:       true,
			StatusInterval: c.opts.StatusInterval,
		}, c.statusHandler(gen))
	}

	result := domain.LoadResult{Track: &track, Index: index}

	if err != nil {
		loadErr := domain.NewLoadError(track.ID, err)

		c.mu.Lock()
		c.session.LoadFailed(loadErr)
		c.mu.Unlock()

		result.Err = loadErr
		result.Outcome = domain.OutcomeFailed
		if loadErr.Kind == domain.LoadErrorCanceled {
			result.Outcome = domain.OutcomeCanceled
		}

		log.Warn("failed to load track",
			slog.String("kind", string(loadErr.Kind)),
			slog.Any("error", err))
		c.bus.Publish(domain.NewTrackErrorEvent(requestID, track, loadErr))
		return result
	}

	c.handle = handle

	c.mu.Lock()
	c.session.LoadSucceeded()
	c.mu.Unlock()

	var metadata *domain.HandleMetadata
	if mp, ok := handle.(ports.MetadataProvider); ok {
		metadata = mp.Metadata()
	}

	log.Debug("track loaded")
	c.bus.Publish(domain.NewTrackLoadedEvent(requestID, track, index, metadata))

	result.Outcome = domain.OutcomeLoaded
	return result
}

// teardown stops and releases the current handle. Caller must hold the token.
// The handle is forgotten even when stopping or releasing it fails.
func (c *PlaybackController) teardown() error {
	h := c.handle
	if h == nil {
		return nil
	}
	c.handle = nil

	return errors.Join(h.Stop(), h.Unload())
}

// statusHandler returns the snapshot callback for the load with generation gen.
func (c *PlaybackController) statusHandler(gen uint64) ports.StatusHandler {
	return func(st domain.StatusSnapshot) {
		// A handle mid-teardown reports not loaded.
		if !st.IsLoaded {
			return
		}

		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return
		}
		if c.session.Phase != domain.PhaseLoading && c.session.Phase != domain.PhaseReady {
			c.mu.Unlock()
			return
		}
		finished := c.session.ApplyStatus(st)
		playing := c.session.IsPlaying()
		position, duration := c.session.Position, c.session.Duration
		index := c.session.QueueIndex
		var track domain.Track
		if c.session.CurrentTrack != nil {
			track = *c.session.CurrentTrack
		}
		c.mu.Unlock()

		c.bus.Publish(domain.NewPlaybackStatusEvent(playing, position, duration))

		if finished {
			c.logger.Debug("track finished", slog.String("track_id", track.ID))
			c.bus.Publish(domain.NewTrackCompletedEvent(track, index))
			if c.opts.AutoAdvance {
				c.advanceLater(gen)
			}
		}
	}
}

// advanceLater loads the next queued track in the background, unless a
// newer load has happened by the time it gets the token.
func (c *PlaybackController) advanceLater(gen uint64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()

		if err := c.acquire(c.ctx); err != nil {
			return
		}
		defer c.release()

		c.mu.RLock()
		stale := gen != c.generation
		c.mu.RUnlock()
		if stale {
			return
		}

		res := c.step(c.ctx, domain.NextIndex)
		if res.Err != nil {
			c.logger.Warn("auto-advance failed", slog.Any("error", res.Err))
		}
	}()
}

// canceledResult reports an operation that never got to run.
func canceledResult(track *domain.Track, index int, err error) domain.LoadResult {
	id := ""
	if track != nil {
		id = track.ID
	}
	return domain.LoadResult{
		Outcome: domain.OutcomeCanceled,
		Track:   track,
		Index:   index,
		Err:     &domain.LoadError{Kind: domain.LoadErrorCanceled, TrackID: id, Err: err},
	}
}

var _ interface {
	PlayTrack(context.Context, domain.Track, []domain.Track) domain.LoadResult
	PlayNext(context.Context) domain.LoadResult
	PlayPrev(context.Context) domain.LoadResult
	TogglePlay(context.Context) error
	Seek(context.Context, time.Duration) error
	Stop(context.Context) error
	State() domain.PlaybackSession
	UpNext() []domain.Track
	Shutdown() error
} = (*PlaybackController)(nil)
